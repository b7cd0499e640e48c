package services

import (
	"context"

	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

// Principal is what a successful Strategy yields. Account is set by
// BearerJWT, Tokens by OpaqueRefresh.
type Principal struct {
	Account *models.AccountView
	Tokens  *TokenPair
}

// Strategy verifies one kind of credential. Rejections are
// common.ErrorUnauthorized.
type Strategy interface {
	Authenticate(ctx context.Context, credential string) (*Principal, error)
}

// BearerJWT authenticates a request by its access token.
type BearerJWT struct {
	Auth *AuthService
}

func (b BearerJWT) Authenticate(ctx context.Context, credential string) (*Principal, error) {
	account, err := b.Auth.ResolveFromAccessToken(ctx, credential)
	if err != nil {
		return nil, err
	}
	return &Principal{Account: account}, nil
}

// OpaqueRefresh exchanges a refresh token for a token pair.
type OpaqueRefresh struct {
	Auth *AuthService
}

func (o OpaqueRefresh) Authenticate(ctx context.Context, credential string) (*Principal, error) {
	pair, err := o.Auth.Refresh(ctx, credential)
	if err != nil {
		return nil, err
	}
	return &Principal{Tokens: pair}, nil
}
