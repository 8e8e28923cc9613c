package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a failure for retry decisions and HTTP mapping.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindNotConfigured Kind = "not_configured"
	KindEmbedding     Kind = "embedding"
	KindStore         Kind = "store"
	KindNetwork       Kind = "network"
)

const (
	maxBodyBytes = 2048
	// maxLogBodyBytes caps the upstream body quoted in operator log lines.
	maxLogBodyBytes = 300
)

type Error struct {
	Kind Kind
	// Op names the failing call, e.g. "upsert", "query", "embed".
	Op string
	// Status and Body carry the upstream HTTP response for embedding/store errors.
	Status int
	Body   string
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	switch e.Kind {
	case KindEmbedding:
		b.WriteString("embedding ")
	case KindStore:
		b.WriteString("vector store ")
	case KindNetwork:
		b.WriteString("network ")
	}
	if e.Op != "" && e.Kind != KindValidation && e.Kind != KindNotConfigured {
		b.WriteString(e.Op)
		b.WriteString(" failed")
	}
	if e.Status != 0 {
		fmt.Fprintf(&b, ": %d - %s", e.Status, http.StatusText(e.Status))
	}
	if e.Msg != "" {
		if b.Len() > 0 {
			b.WriteString(": ")
		}
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		if b.Len() > 0 {
			b.WriteString(": ")
		}
		b.WriteString(e.Err.Error())
	}
	if b.Len() == 0 {
		return string(e.Kind) + " error"
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatusCode reports the upstream status, if any.
func (e *Error) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.Status
}

func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Msg: msg}
}

func NotConfigured(msg string) *Error {
	return &Error{Kind: KindNotConfigured, Msg: msg}
}

func Embedding(op string, status int, body string) *Error {
	return &Error{Kind: KindEmbedding, Op: op, Status: status, Body: truncate(body)}
}

func Store(op string, status int, body string) *Error {
	return &Error{Kind: KindStore, Op: op, Status: status, Body: truncate(body)}
}

func Network(op string, err error) *Error {
	return &Error{Kind: KindNetwork, Op: op, Err: err}
}

// Wrap attaches a kind to an arbitrary error, keeping it in the chain.
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Retryable reports whether a store write that failed with err may be resent.
// Validation and configuration failures never are.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindValidation, KindNotConfigured:
		return false
	default:
		return err != nil
	}
}

// Describe renders err for an operator log line: the error text followed by
// the upstream response body, whitespace-collapsed and shortened.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	var e *Error
	if !errors.As(err, &e) {
		return msg
	}
	body := strings.Join(strings.Fields(e.Body), " ")
	if body == "" || strings.Contains(msg, body) {
		return msg
	}
	if len(body) > maxLogBodyBytes {
		body = strings.ToValidUTF8(body[:maxLogBodyBytes], "") + "..."
	}
	return msg + " - " + body
}

func truncate(s string) string {
	if len(s) <= maxBodyBytes {
		return s
	}
	return s[:maxBodyBytes] + "..."
}
