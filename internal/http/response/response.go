package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/gbid-catalog/internal/platform/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// UpstreamDetails is attached to errors caused by a failed upstream call.
type UpstreamDetails struct {
	Status int    `json:"status,omitempty"`
	Body   string `json:"body,omitempty"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondAPIError maps err onto the envelope: validation failures are 400,
// every other failure is 500 with upstream status and body in details.
func RespondAPIError(c *gin.Context, err error) {
	status, code := StatusFor(err)
	env := ErrorEnvelope{Error: APIError{Message: "unknown error", Code: code}}
	if err != nil {
		env.Error.Message = err.Error()
	}
	var e *apierr.Error
	if errors.As(err, &e) && (e.Status != 0 || e.Body != "") {
		env.Error.Details = UpstreamDetails{Status: e.Status, Body: e.Body}
	}
	c.JSON(status, env)
}

func StatusFor(err error) (int, string) {
	switch apierr.KindOf(err) {
	case apierr.KindValidation:
		return http.StatusBadRequest, "validation_failed"
	case apierr.KindNotConfigured:
		return http.StatusInternalServerError, "not_configured"
	case apierr.KindEmbedding:
		return http.StatusInternalServerError, "embedding_failed"
	case apierr.KindStore:
		return http.StatusInternalServerError, "store_failed"
	case apierr.KindNetwork:
		return http.StatusInternalServerError, "network_failed"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
