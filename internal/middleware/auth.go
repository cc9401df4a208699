package middleware

import (
	"net/http"
	"strings"

	"github.com/RizzWan-Codes/homedoctor.ai/internal/auth"
	"github.com/RizzWan-Codes/homedoctor.ai/internal/handler"
	"github.com/RizzWan-Codes/homedoctor.ai/internal/logging"
)

// Auth requires a bearer token and puts its subject, the account id, on the
// request context and on the request logger.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				handler.RespondAppError(w, handler.ErrMissingToken, nil)
				return
			}

			token, found := strings.CutPrefix(header, "Bearer ")
			if !found || strings.TrimSpace(token) == "" {
				handler.RespondAppError(w, handler.ErrInvalidToken, nil)
				return
			}

			claims, err := auth.ValidateToken(strings.TrimSpace(token), secret)
			if err != nil {
				logging.FromContext(r.Context()).Debug("token rejected", "error", err)
				handler.RespondAppError(w, handler.ErrInvalidToken, nil)
				return
			}

			ctx := auth.ContextWithUserID(r.Context(), claims.UserID)
			ctx = logging.WithLogger(ctx, logging.FromContext(ctx).With("user_id", claims.UserID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
