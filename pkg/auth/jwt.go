// Package auth inspects the backend's bearer credential without verifying it.
//
// The portal never holds the signing key. It only peeks at the standard
// claims so it can skip a revalidation round-trip for a token that has
// already expired, and show the expiry in `aquaportal whoami`.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrOpaque is returned when the credential is not a JWT.
var ErrOpaque = errors.New("auth: credential is not a JWT")

// Claims holds the claims the backend puts in its tokens.
type Claims struct {
	UserID string `json:"id,omitempty"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Inspect decodes the claims of token without checking the signature.
func Inspect(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, ErrOpaque
	}
	return claims, nil
}

// Expired reports whether token carries an exp claim at or before now.
// Opaque tokens and tokens without exp are never considered expired; the
// backend stays the authority for those.
func Expired(token string, now time.Time) bool {
	claims, err := Inspect(token)
	if err != nil || claims.ExpiresAt == nil {
		return false
	}
	return !claims.ExpiresAt.Time.After(now)
}

// ExpiresAt returns the exp claim, if any.
func ExpiresAt(token string) (time.Time, bool) {
	claims, err := Inspect(token)
	if err != nil || claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
