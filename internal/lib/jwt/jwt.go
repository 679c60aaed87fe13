package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims carries the authenticated identity of a session token.
// Subject is the user's email, UserID the numeric id.
type Claims struct {
	jwt.RegisteredClaims
	UserID int64 `json:"userId"`
}

// NewToken выпускает access токен с subject=email и claim userId.
func NewToken(email string, userID int64, ttl time.Duration, secret string) (string, error) {
	const op = "lib.jwt.NewToken"

	now := time.Now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID: userID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, nil
}

// ParseToken verifies the signature and standard claims. Expiry is enforced
// by the library's claim validation. Any failure maps to ErrInvalidToken.
func ParseToken(tokenStr, secret string) (Claims, error) {
	const op = "lib.jwt.ParseToken"

	var claims Claims

	parsedToken, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%s: unexpected signing method", op)
		}
		return []byte(secret), nil
	})
	if err != nil {
		return Claims{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	if !parsedToken.Valid || claims.Subject == "" {
		return Claims{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return claims, nil
}
