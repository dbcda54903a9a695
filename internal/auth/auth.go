package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
)

const (
	RoleDriver = "driver"
	RoleRider  = "rider"
	RoleAdmin  = "admin"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Identity is the verified subject behind a bearer credential.
type Identity struct {
	SubjectID string `json:"subject_id"`
	Role      string `json:"role"`
}

func (i Identity) IsDriver() bool { return i.Role == RoleDriver }
func (i Identity) IsAdmin() bool  { return i.Role == RoleAdmin }

// Verifier checks HMAC signed tokens issued by the auth service.
type Verifier struct {
	secret []byte
	now    func() time.Time
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		now:    time.Now,
	}
}

// Verify parses tokenString (with or without the "Bearer " prefix) and
// returns the identity it carries. The subject is read from "id", falling
// back to "user_id" and "driver_id"; the role from "user_type", falling back
// to "role".
func (v *Verifier) Verify(tokenString string) (Identity, error) {
	tokenString = strings.TrimSpace(strings.TrimPrefix(tokenString, "Bearer "))
	if tokenString == "" {
		return Identity{}, ErrMissingToken
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		var vErr *jwt.ValidationError
		if errors.As(err, &vErr) && vErr.Errors&jwt.ValidationErrorExpired != 0 {
			return Identity{}, ErrTokenExpired
		}
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Identity{}, ErrInvalidToken
	}

	if exp, ok := claims["exp"].(float64); ok {
		if time.Unix(int64(exp), 0).Before(v.now()) {
			return Identity{}, ErrTokenExpired
		}
	}

	subject := claimString(claims, "id", "user_id", "driver_id")
	if subject == "" {
		return Identity{}, fmt.Errorf("%w: subject not found", ErrInvalidToken)
	}
	role := strings.ToLower(claimString(claims, "user_type", "role"))
	if role == "" {
		return Identity{}, fmt.Errorf("%w: role not found", ErrInvalidToken)
	}

	return Identity{SubjectID: subject, Role: role}, nil
}

// FromRequest extracts the bearer credential from the Authorization header,
// or from the "token" query parameter for clients that cannot set headers.
func (v *Verifier) FromRequest(r *http.Request) (Identity, error) {
	tokenString := r.Header.Get("Authorization")
	if tokenString == "" {
		tokenString = r.URL.Query().Get("token")
	}
	return v.Verify(tokenString)
}

// Sign issues a token for id. Only tooling and tests use it; issuance proper
// belongs to the auth service.
func Sign(secret string, id Identity, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"id":        id.SubjectID,
		"user_type": id.Role,
		"exp":       time.Now().Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func claimString(claims jwt.MapClaims, keys ...string) string {
	for _, key := range keys {
		switch v := claims[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return fmt.Sprintf("%.0f", v)
		}
	}
	return ""
}
