package connection

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// checkToken fails fast on JWT credentials whose exp claim has passed.
// Opaque tokens and tokens without exp are left for the server to judge.
// The signature is not verified here.
func checkToken(token string, now time.Time) error {
	if strings.Count(token, ".") != 2 {
		return nil
	}

	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil
	}
	if claims.ExpiresAt != nil && !claims.ExpiresAt.Time.After(now) {
		return fmt.Errorf("%w (expired %s)", ErrTokenExpired, claims.ExpiresAt.Time.UTC().Format(time.RFC3339))
	}
	return nil
}
