package session

import (
	"time"

	"github.com/dgrijalva/jwt-go"
)

var NowFunc = time.Now // mockable

// ExpiresAt derives when a session holding `token` should end: `lifetime` from now,
// or earlier when the token is a JWT whose `exp` claim comes first.
// The token is opaque to the client, so its signature is never verified.
func ExpiresAt(token string, lifetime time.Duration) time.Time {
	expires := NowFunc().Add(lifetime)

	claims := new(jwt.StandardClaims)
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil || claims.ExpiresAt == 0 {
		return expires
	}
	if exp := time.Unix(claims.ExpiresAt, 0); exp.Before(expires) {
		return exp
	}
	return expires
}
