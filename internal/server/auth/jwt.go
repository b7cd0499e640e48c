// Package auth holds the credential primitives of the server: password
// hashing, access token signing and refresh token lifecycle.
package auth

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the identity carried by an access token.
type Claims struct {
	Email string
	ID    int64
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Email     string `json:"email"`
	AccountID int64  `json:"id"`
}

// IssuerConfig configures an Issuer. Secret is the HS256 key.
type IssuerConfig struct {
	Secret []byte
	TTL    time.Duration
}

// Issuer signs and verifies stateless access tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(cfg IssuerConfig) *Issuer {
	return &Issuer{secret: cfg.Secret, ttl: cfg.TTL, now: time.Now}
}

// Issue returns a signed token for c that expires TTL from now.
func (i *Issuer) Issue(c Claims) (string, error) {
	now := i.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		Email:     c.Email,
		AccountID: c.ID,
	})

	tokenString, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return tokenString, nil
}

// Verify checks signature, algorithm and expiry. Every failure is reported
// as common.ErrInvalidToken.
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	claims := &tokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, common.ErrInvalidToken
	}

	return &Claims{Email: claims.Email, ID: claims.AccountID}, nil
}
