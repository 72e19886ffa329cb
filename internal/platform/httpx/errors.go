package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/odyssey-erp/useradmin/internal/shared"
)

// Stable error codes returned to clients.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeEmailExists        = "EMAIL_EXISTS"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeUserBlocked        = "USER_BLOCKED"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	CodeRateLimited        = "RATE_LIMITED"
	CodeInternal           = "INTERNAL_ERROR"
)

// Messages the client matches on to force a logout.
const (
	MsgUserGone    = "User no longer exists"
	MsgUserBlocked = "User is blocked"
)

// Classify maps a domain error to status, code and user-safe message.
func Classify(err error) (int, ErrorBody) {
	var verr *shared.ValidationError
	switch {
	case errors.As(err, &verr):
		msg := verr.Message()
		if msg == "" {
			msg = "Validation failed"
		}
		return http.StatusBadRequest, ErrorBody{Error: msg, Code: CodeValidation, Fields: verr.Fields}
	case errors.Is(err, shared.ErrValidation):
		return http.StatusBadRequest, ErrorBody{Error: "Validation failed", Code: CodeValidation}
	case errors.Is(err, shared.ErrEmailExists):
		return http.StatusBadRequest, ErrorBody{Error: "Email already exists", Code: CodeEmailExists}
	case errors.Is(err, shared.ErrInvalidCredentials):
		return http.StatusUnauthorized, ErrorBody{Error: "Invalid credentials", Code: CodeInvalidCredentials}
	case errors.Is(err, shared.ErrUserGone):
		return http.StatusUnauthorized, ErrorBody{Error: MsgUserGone, Code: CodeUnauthorized}
	case errors.Is(err, shared.ErrUnauthorized):
		return http.StatusUnauthorized, ErrorBody{Error: "Unauthorized", Code: CodeUnauthorized}
	case errors.Is(err, shared.ErrUserBlocked):
		return http.StatusForbidden, ErrorBody{Error: MsgUserBlocked, Code: CodeUserBlocked}
	case errors.Is(err, shared.ErrForbidden):
		return http.StatusForbidden, ErrorBody{Error: "Forbidden", Code: CodeForbidden}
	default:
		return http.StatusInternalServerError, ErrorBody{Error: "Internal server error", Code: CodeInternal}
	}
}

// RespondError writes the mapped error. Internal errors are logged with their cause.
func RespondError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, body := Classify(err)
	if status >= http.StatusInternalServerError && logger != nil {
		logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
	}
	JSON(w, status, body)
}
