package email

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenInvalid covers missing, malformed, forged and expired tokens.
	ErrTokenInvalid = errors.New("verification token invalid")
	// ErrTokenMismatch means the token was issued for another address.
	ErrTokenMismatch = errors.New("verification token issued for another email")
)

type Claims struct {
	jwt.RegisteredClaims
}

// TokenIssuer signs proof that an address passed verification. The subject
// is the normalized address.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue returns a token for email valid for the issuer's TTL.
func (i *TokenIssuer) Issue(email string) (string, error) {
	now := i.now()
	c := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   Normalize(email),
			Issuer:    "samplebook",
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return t.SignedString(i.secret)
}

// Check verifies that token proves verification of email.
func (i *TokenIssuer) Check(token, email string) error {
	if token == "" {
		return ErrTokenInvalid
	}
	t, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(i.now))
	if err != nil {
		return ErrTokenInvalid
	}
	claims, ok := t.Claims.(*Claims)
	if !ok || !t.Valid {
		return ErrTokenInvalid
	}
	if claims.Subject != Normalize(email) {
		return ErrTokenMismatch
	}
	return nil
}
