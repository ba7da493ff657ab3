package auth

import (
	"log/slog"
	"net/http"

	"github.com/gaetanog1994-web/job-ixl-graph-service/internal/apperror"
)

// ErrorWriter renders an error response.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// Middleware guards handlers behind an administrator bearer token.
type Middleware struct {
	verifier Verifier
	admins   AdminDirectory
	logger   *slog.Logger
	writeErr ErrorWriter
}

// NewMiddleware returns a guard. A nil verifier disables authentication entirely.
func NewMiddleware(verifier Verifier, admins AdminDirectory, logger *slog.Logger, writeErr ErrorWriter) *Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &Middleware{
		verifier: verifier,
		admins:   admins,
		logger:   logger.With("component", "auth"),
		writeErr: writeErr,
	}
}

// RequireAdmin rejects requests without a valid token (401) or from non-admins (403).
func (m *Middleware) RequireAdmin(next http.Handler) http.Handler {
	if m.verifier == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		token, err := BearerToken(r.Header.Get("Authorization"))
		if err != nil {
			m.writeErr(w, r, apperror.ErrUnauthorized.WithInternal(err))
			return
		}
		userID, err := m.verifier.Verify(ctx, token)
		if err != nil {
			m.logger.WarnContext(ctx, "token rejected", "error", err)
			m.writeErr(w, r, apperror.ErrUnauthorized.WithMessage("Invalid token").WithInternal(err))
			return
		}

		if m.admins == nil {
			m.writeErr(w, r, apperror.ErrForbidden)
			return
		}
		isAdmin, err := m.admins.IsAdmin(ctx, userID)
		if err != nil {
			m.logger.ErrorContext(ctx, "admin lookup failed", "user_id", userID, "error", err)
			m.writeErr(w, r, apperror.ErrInternal.WithInternal(err))
			return
		}
		if !isAdmin {
			m.logger.InfoContext(ctx, "non-admin denied", "user_id", userID, "path", r.URL.Path)
			m.writeErr(w, r, apperror.ErrForbidden.WithMessage("Administrator role required"))
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(ctx, userID)))
	})
}
