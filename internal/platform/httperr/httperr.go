package httperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Error is the single error type carried across layers for expected
// failures. Code is a short machine-readable identifier, Status the HTTP
// status it maps to. Err optionally wraps the underlying cause; it is
// logged server-side and never serialized to clients.
type Error struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func InvalidInput(msg string) *Error {
	return &Error{Status: http.StatusBadRequest, Code: "invalid_input", Message: msg}
}

func MissingVersionToken() *Error {
	return &Error{Status: http.StatusBadRequest, Code: "missing_version_token", Message: "If-Match header is required for updates"}
}

func InvalidToken(msg string) *Error {
	return &Error{Status: http.StatusUnauthorized, Code: "invalid_token", Message: msg}
}

func NotOwned() *Error {
	return &Error{Status: http.StatusForbidden, Code: "not_owned", Message: "you do not have access to this resource"}
}

func NotFound(resource string) *Error {
	return &Error{Status: http.StatusNotFound, Code: "not_found", Message: resource + " not found"}
}

func VersionConflict() *Error {
	return &Error{Status: http.StatusConflict, Code: "version_conflict", Message: "resource was modified by another request"}
}

func ValidationFailed(msg string) *Error {
	return &Error{Status: http.StatusUnprocessableEntity, Code: "validation_failed", Message: msg}
}

func InsufficientContext(msg string) *Error {
	return &Error{Status: http.StatusUnprocessableEntity, Code: "insufficient_context", Message: msg}
}

func RateLimited() *Error {
	return &Error{Status: http.StatusTooManyRequests, Code: "rate_limited", Message: "provider rate limit exceeded, try again later"}
}

func ProviderUnavailable(err error) *Error {
	return &Error{Status: http.StatusBadGateway, Code: "provider_unavailable", Message: "AI provider is unavailable", Err: err}
}

func GenerationFailed(err error) *Error {
	return &Error{Status: http.StatusBadGateway, Code: "generation_failed", Message: "AI provider returned an unusable response", Err: err}
}

func StoreUnavailable(err error) *Error {
	return &Error{Status: http.StatusBadGateway, Code: "store_unavailable", Message: "data store is unavailable", Err: err}
}

func Internal(err error) *Error {
	return &Error{Status: http.StatusInternalServerError, Code: "internal", Message: "internal server error", Err: err}
}

// envelope is the uniform JSON error body.
type envelope struct {
	Error body `json:"error"`
}

type body struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorHandler returns an Echo HTTPErrorHandler that converts any error into
// the uniform envelope. Expected failures (*Error) keep their code and
// message; echo.HTTPError and unclassified errors are mapped onto the
// taxonomy. 5xx detail is logged, clients get a generic message.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		code := "internal"
		msg := "internal server error"

		var appErr *Error
		var echoErr *echo.HTTPError
		switch {
		case errors.As(err, &appErr):
			status = appErr.Status
			code = appErr.Code
			msg = appErr.Message
		case errors.As(err, &echoErr):
			status = echoErr.Code
			code = codeForStatus(status)
			if s, ok := echoErr.Message.(string); ok {
				msg = s
			} else {
				msg = http.StatusText(status)
			}
		}

		if status >= http.StatusInternalServerError {
			rid, _ := c.Get("request_id").(string)
			logger.Error().
				Err(err).
				Str("request_id", rid).
				Str("path", c.Request().URL.Path).
				Int("status", status).
				Msg("request failed")
			// do not leak internals
			if code == "internal" {
				msg = "internal server error"
			}
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(status)
		} else {
			writeErr = c.JSON(status, envelope{Error: body{Code: code, Message: msg}})
		}
		if writeErr != nil {
			logger.Error().Err(writeErr).Msg("failed to write error response")
		}
	}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid_input"
	case http.StatusUnauthorized:
		return "invalid_token"
	case http.StatusForbidden:
		return "not_owned"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "version_conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusTooManyRequests:
		return "rate_limited"
	case http.StatusBadGateway:
		return "provider_unavailable"
	default:
		return "internal"
	}
}
