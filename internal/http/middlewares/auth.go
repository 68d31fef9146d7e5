package middlewares

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	httperrors "github.com/santhoshmp/LearningPlanner-sub010/internal/http/errors"
	jwtx "github.com/santhoshmp/LearningPlanner-sub010/internal/jwt"
)

const authUserKey ctxKey = "auth_user"

// AuthUser es la identidad autenticada inyectada en el contexto.
type AuthUser struct {
	ID   string
	Role string
}

// RequireAuth valida el bearer token de sesión e inyecta la identidad.
func RequireAuth(issuer *jwtx.Issuer) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				httperrors.WriteError(w, httperrors.ErrUnauthorized)
				return
			}
			claims, err := issuer.ParseAccess(raw)
			if err != nil {
				httperrors.WriteError(w, httperrors.ErrUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), authUserKey, AuthUser{
				ID:   claims.UserID,
				Role: claims.Role,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAuthUser retorna la identidad autenticada, si la hay.
func GetAuthUser(ctx context.Context) (AuthUser, bool) {
	u, ok := ctx.Value(authUserKey).(AuthUser)
	return u, ok
}

// RequireAdminKey protege la superficie admin con una API key estática.
// Clave vacía = superficie admin deshabilitada.
func RequireAdminKey(key string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" {
				httperrors.WriteError(w, httperrors.ErrForbidden.WithDetail("admin surface disabled"))
				return
			}
			got := r.Header.Get("X-Admin-API-Key")
			if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				httperrors.WriteError(w, httperrors.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
