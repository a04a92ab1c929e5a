package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/linkpulse/linkpulse/internal/httpx"
)

// bearerToken extracts the token from an Authorization: Bearer header.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}
	return token
}

// RequireUser rejects requests without a valid session token and puts
// the authenticated user ID on the request context.
func RequireUser(tokens *TokenManager, logger *slog.Logger) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				httpx.WriteError(w, http.StatusUnauthorized, "unauthorized",
					"Authentication required", nil)
				return
			}

			userID, err := tokens.Parse(token)
			if err != nil {
				logger.WarnContext(r.Context(), "invalid session token",
					"request_id", httpx.GetRequestID(r.Context()),
					"error", err.Error(),
				)
				httpx.WriteError(w, http.StatusUnauthorized, "unauthorized",
					"Invalid or expired session", nil)
				return
			}

			next.ServeHTTP(w, r.WithContext(httpx.WithUserID(r.Context(), userID)))
		})
	}
}

// OptionalUser resolves a session token when one is present but lets
// anonymous requests through. Used on link creation, where anonymous
// links are allowed.
func OptionalUser(tokens *TokenManager) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := bearerToken(r); token != "" {
				if userID, err := tokens.Parse(token); err == nil {
					r = r.WithContext(httpx.WithUserID(r.Context(), userID))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
