package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
)

const testSecret = "test-secret"

func TestVerifyAcceptsSignedToken(t *testing.T) {
	token, err := Sign(testSecret, Identity{SubjectID: "drv-1", Role: RoleDriver}, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	v := NewVerifier(testSecret)
	for _, raw := range []string{token, "Bearer " + token} {
		id, err := v.Verify(raw)
		if err != nil {
			t.Fatalf("verify %q: %v", raw, err)
		}
		if id.SubjectID != "drv-1" || !id.IsDriver() {
			t.Fatalf("identity = %+v", id)
		}
	}
}

func TestVerifyRejects(t *testing.T) {
	expired, _ := Sign(testSecret, Identity{SubjectID: "drv-1", Role: RoleDriver}, -time.Minute)
	foreign, _ := Sign("other-secret", Identity{SubjectID: "drv-1", Role: RoleDriver}, time.Hour)
	noRole, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":  "drv-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"empty", "", ErrMissingToken},
		{"bearer only", "Bearer ", ErrMissingToken},
		{"garbage", "not-a-jwt", ErrInvalidToken},
		{"expired", expired, ErrTokenExpired},
		{"wrong secret", foreign, ErrInvalidToken},
		{"no role", noRole, ErrInvalidToken},
	}

	v := NewVerifier(testSecret)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(tt.token)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestVerifyFallbackClaims(t *testing.T) {
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "admin-7",
		"role":    "ADMIN",
	}).SignedString([]byte(testSecret))

	id, err := NewVerifier(testSecret).Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if id.SubjectID != "admin-7" || !id.IsAdmin() {
		t.Fatalf("identity = %+v", id)
	}
}

func TestMiddlewareRoles(t *testing.T) {
	v := NewVerifier(testSecret)
	mw := NewAuthMiddleware(v)

	var seen Identity
	h := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = IdentityFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}), RoleAdmin)

	driver, _ := Sign(testSecret, Identity{SubjectID: "drv-1", Role: RoleDriver}, time.Hour)
	admin, _ := Sign(testSecret, Identity{SubjectID: "adm-1", Role: RoleAdmin}, time.Hour)

	tests := []struct {
		name   string
		header string
		query  string
		code   int
	}{
		{"missing", "", "", http.StatusUnauthorized},
		{"wrong role", "Bearer " + driver, "", http.StatusForbidden},
		{"admin header", "Bearer " + admin, "", http.StatusNoContent},
		{"admin query", "", admin, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := "/admin"
			if tt.query != "" {
				target += "?token=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.code {
				t.Fatalf("code = %d, want %d", rec.Code, tt.code)
			}
		})
	}
	if seen.SubjectID != "adm-1" {
		t.Fatalf("identity not propagated: %+v", seen)
	}
}
