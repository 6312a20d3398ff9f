package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenIssuer выпускает и проверяет компактные HS256-токены сессии.
// Claims: sub=email, iat, exp=iat+ttl. Списка отзыва нет — отзыв
// работает через повторную выборку пользователя в Authorize.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	Now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, Now: time.Now}
}

func (t *TokenIssuer) Issue(email string) (string, error) {
	now := t.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   email,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
	})
	return token.SignedString(t.secret)
}

// Verify — подпись, затем срок, затем наличие subject; при любом отказе
// ErrInvalidToken, без деталей. Неверифицированному payload не верим.
func (t *TokenIssuer) Verify(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(tok *jwt.Token) (interface{}, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return t.Now() }),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
