package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoToken is returned when an operation needs a token and none is present.
var ErrNoToken = errors.New("session: no token")

// ErrTokenExpired is returned when a decoded token is past its expiry claim.
var ErrTokenExpired = errors.New("session: token expired")

// Claims is the token-derived part of the session: the subject, the issue
// and expiry instants, and the superuser flag the role is derived from.
type Claims struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Superuser bool
}

// DecodeToken decodes the bearer token without signature verification. The
// client never holds the signing key; validity here is structural, the
// backend re-verifies the signature on every request.
func DecodeToken(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrNoToken
	}

	parser := jwt.NewParser()
	raw := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, raw); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}

	claims := &Claims{}
	if sub, ok := raw["sub"].(string); ok {
		claims.Subject = sub
	}
	if iat, ok := numericClaim(raw["iat"]); ok {
		claims.IssuedAt = time.Unix(iat, 0)
	}
	if exp, ok := numericClaim(raw["exp"]); ok {
		claims.ExpiresAt = time.Unix(exp, 0)
	}
	if super, ok := raw["is_superuser"].(bool); ok {
		claims.Superuser = super
	}
	return claims, nil
}

// numericClaim reads a claim that JSON decoding may have produced as either
// a float64 or a json.Number-like string form.
func numericClaim(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	}
	return 0, false
}

// validAt reports whether the claims describe a usable token at the given
// instant: expiry strictly in the future, and both subject and issued-at set.
func (c *Claims) validAt(now time.Time) bool {
	if c.Subject == "" || c.IssuedAt.IsZero() || c.ExpiresAt.IsZero() {
		return false
	}
	return c.ExpiresAt.After(now)
}

// Role derives the binary role from the superuser claim.
func (c *Claims) Role() Role {
	if c.Superuser {
		return RoleAdmin
	}
	return RoleUser
}
