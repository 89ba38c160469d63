package sandbox

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type claims struct {
	Username string `json:"username"`
	IsDriver bool   `json:"is_driver"`
	jwt.RegisteredClaims
}

// issueTokens builds the access/refresh pair for a user.
func (c *Core) issueTokens(userID, username string, isDriver bool) (access, refresh string, err error) {
	now := time.Now()
	sign := func(ttl time.Duration) (string, error) {
		cl := &claims{
			Username: username,
			IsDriver: isDriver,
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   userID,
				Issuer:    "mototaxi-sandbox",
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			},
		}
		return jwt.NewWithClaims(jwt.SigningMethodHS256, cl).SignedString([]byte(c.cfg.JWTSecret))
	}
	if access, err = sign(c.cfg.AccessTTL); err != nil {
		return "", "", err
	}
	if refresh, err = sign(c.cfg.RefreshTTL); err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// verifyToken parses and validates an access token, honouring sign-out
// revocations.
func (c *Core) verifyToken(token string) (*claims, error) {
	cl := &claims{}
	parsed, err := jwt.ParseWithClaims(token, cl, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(c.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	c.mu.RLock()
	_, revoked := c.revoked[token]
	c.mu.RUnlock()
	if revoked {
		return nil, errors.New("token revoked")
	}
	return cl, nil
}
