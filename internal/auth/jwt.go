package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the trusted user identity issued by the external auth service.
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// NewToken signs a token for userID. The chat core only parses tokens; this
// exists for tooling and tests.
func NewToken(secret string, userID string, ttl time.Duration) (string, error) {
	return NewUserToken(secret, userID, "", ttl)
}

// NewUserToken is NewToken with a display name claim.
func NewUserToken(secret, userID, username string, ttl time.Duration) (string, error) {
	claims := Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().UTC().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now().UTC()),
			Issuer:    "pairchat",
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}

func ParseToken(secret, token string) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(token, &Claims{}, func(tok *jwt.Token) (interface{}, error) {
		// Ensure the token is using HMAC (HS256, HS384, HS512)
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := tok.Claims.(*Claims); ok && tok.Valid && claims.UserID != "" {
		return claims, nil
	}
	return nil, jwt.ErrTokenInvalidClaims
}
