// Package token inspects bearer tokens without verifying signatures.
//
// The proxy never validates upstream tokens cryptographically; it only
// needs the exp claim to decide between reuse, refresh and re-login.
package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var parser = jwt.NewParser()

// IsExpiredAt reports whether tok's exp claim is strictly before now.
// A token that cannot be decoded, or that carries no exp claim, counts
// as expired: an unnecessary re-login is cheaper than a broken session.
func IsExpiredAt(tok string, now time.Time) bool {
	var claims jwt.RegisteredClaims
	if _, _, err := parser.ParseUnverified(tok, &claims); err != nil {
		return true
	}
	if claims.ExpiresAt == nil {
		return true
	}
	return claims.ExpiresAt.Unix() < now.Unix()
}

// IsExpired is IsExpiredAt against the current time.
func IsExpired(tok string) bool {
	return IsExpiredAt(tok, time.Now())
}
