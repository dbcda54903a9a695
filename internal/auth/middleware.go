package auth

import (
	"context"
	"encoding/json"
	"net/http"
)

type ctxKey struct{}

// WithIdentity stores id in ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// IdentityFrom returns the identity stored by the middleware.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}

type AuthMiddleware struct {
	verifier *Verifier
}

func NewAuthMiddleware(verifier *Verifier) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
	}
}

// Wrap rejects requests without a valid bearer token. When roles are given
// the identity must hold one of them.
func (am *AuthMiddleware) Wrap(next http.Handler, roles ...string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := am.verifier.FromRequest(r)
		if err != nil {
			deny(w, http.StatusUnauthorized, "Unauthorized", "Invalid or expired token")
			return
		}

		if len(roles) > 0 && !hasRole(id, roles) {
			deny(w, http.StatusForbidden, "Forbidden", "Role not allowed")
			return
		}

		r.Header.Set("X-UserId", id.SubjectID)
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

func hasRole(id Identity, roles []string) bool {
	for _, role := range roles {
		if id.Role == role {
			return true
		}
	}
	return false
}

func deny(w http.ResponseWriter, code int, kind, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"kind":    kind,
		"error":   msg,
	})
}
