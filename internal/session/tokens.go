package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// refreshLeeway refreshes access tokens slightly before they expire
const refreshLeeway = 30 * time.Second

// accessTokenExpiring reports whether a JWT access token has expired or is about to.
// The signature is not verified: the front-end holds no secret and only uses the
// expiry to decide when to refresh. Opaque (non-JWT) tokens are never considered expiring.
func accessTokenExpiring(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}

	return !now.Add(refreshLeeway).Before(exp.Time)
}
