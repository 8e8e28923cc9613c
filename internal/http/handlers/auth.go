package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/gbid-catalog/internal/http/response"
	"github.com/yungbote/gbid-catalog/internal/services"
)

type AuthHandler struct {
	authService services.AdminAuthService
}

func NewAuthHandler(authService services.AdminAuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (ah *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	token, err := ah.authService.Login(c.Request.Context(), req.Password)
	switch {
	case errors.Is(err, services.ErrAuthDisabled):
		response.RespondError(c, http.StatusNotFound, "auth_disabled", err)
		return
	case err != nil:
		response.RespondError(c, http.StatusUnauthorized, "invalid_credentials", err)
		return
	}
	response.RespondOK(c, gin.H{
		"token":      token,
		"expires_in": int(ah.authService.GetAccessTTL().Seconds()),
	})
}
