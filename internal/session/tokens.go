package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenExpiry reads the exp claim of a JWT access token without
// verifying its signature. The second result is false when the token is not a
// JWT or carries no expiry.
func AccessTokenExpiry(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// ExpiresWithin reports whether the held access token expires before
// now+window. Tokens without a readable expiry never report true.
func (s *Store) ExpiresWithin(now time.Time, window time.Duration) bool {
	s.mu.Lock()
	token := s.accessToken
	s.mu.Unlock()

	exp, ok := AccessTokenExpiry(token)
	if !ok {
		return false
	}
	return exp.Before(now.Add(window))
}
