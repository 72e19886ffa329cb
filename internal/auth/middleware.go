package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/odyssey-erp/useradmin/internal/observability"
	"github.com/odyssey-erp/useradmin/internal/platform/httpx"
	"github.com/odyssey-erp/useradmin/internal/shared"
	"github.com/odyssey-erp/useradmin/internal/users"
)

// UserLookup loads the token subject on every protected request.
type UserLookup interface {
	FindByID(ctx context.Context, id int64) (*users.User, error)
}

// Middleware guards routes behind a bearer token whose subject still exists
// and is not blocked.
type Middleware struct {
	tokens  *TokenService
	users   UserLookup
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewMiddleware constructs the authorization middleware.
func NewMiddleware(tokens *TokenService, lookup UserLookup, logger *slog.Logger, metrics *observability.Metrics) *Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &Middleware{tokens: tokens, users: lookup, logger: logger, metrics: metrics}
}

// RequireUser rejects the request unless it carries a valid token for an
// existing active user, then attaches that user to the context.
func (m *Middleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			m.reject(w, r, "missing_token", shared.ErrUnauthorized)
			return
		}
		id, err := m.tokens.Verify(raw)
		if err != nil {
			m.logger.Debug("token rejected", slog.Any("error", err))
			m.reject(w, r, "invalid_token", shared.ErrUnauthorized)
			return
		}
		user, err := m.users.FindByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, users.ErrNotFound) {
				m.reject(w, r, "user_gone", shared.ErrUserGone)
				return
			}
			m.reject(w, r, "error", shared.Internal(err))
			return
		}
		if user.Blocked() {
			m.reject(w, r, "blocked", shared.ErrUserBlocked)
			return
		}
		m.metrics.AuthEvent(observability.EventAuthorize, "success")
		next.ServeHTTP(w, r.WithContext(users.ContextWithCurrent(r.Context(), user)))
	})
}

func (m *Middleware) reject(w http.ResponseWriter, r *http.Request, outcome string, err error) {
	m.metrics.AuthEvent(observability.EventAuthorize, outcome)
	httpx.RespondError(w, r, m.logger, err)
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
