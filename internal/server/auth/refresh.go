package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/refreshtokens"
)

// refreshTokenBytes is the amount of randomness behind each refresh token.
const refreshTokenBytes = 128

// RefreshTokenManager issues opaque refresh tokens and enforces their
// expiry and revocation.
type RefreshTokenManager struct {
	store refreshtokens.Repository
	ttl   time.Duration
	now   func() time.Time
}

func NewRefreshTokenManager(store refreshtokens.Repository, ttl time.Duration) *RefreshTokenManager {
	return &RefreshTokenManager{store: store, ttl: ttl, now: time.Now}
}

// Create persists a fresh token for accountID.
func (m *RefreshTokenManager) Create(ctx context.Context, accountID int64) (*models.RefreshToken, error) {
	value, err := common.MakeRandBase64String(refreshTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	token, err := m.store.Save(ctx, &models.RefreshToken{
		Token:    value,
		UserID:   accountID,
		ExpireAt: m.now().Add(m.ttl),
	})
	if err != nil {
		return nil, fmt.Errorf("save refresh token: %w", err)
	}
	return token, nil
}

// ValidateAndResolve returns the owner of a live token. Unknown, revoked and
// expired tokens all yield common.ErrorUnauthorized.
func (m *RefreshTokenManager) ValidateAndResolve(ctx context.Context, token string) (int64, error) {
	rt, err := m.store.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return 0, common.ErrorUnauthorized
		}
		return 0, fmt.Errorf("find refresh token: %w", err)
	}
	if !rt.Live(m.now()) {
		return 0, common.ErrorUnauthorized
	}
	return rt.UserID, nil
}

// Rotate revokes token and returns its replacement. The replacement is
// saved first, so a failing store leaves the presented token usable. When
// two callers rotate the same token only one gets a replacement.
func (m *RefreshTokenManager) Rotate(ctx context.Context, token string) (*models.RefreshToken, error) {
	accountID, err := m.ValidateAndResolve(ctx, token)
	if err != nil {
		return nil, err
	}

	next, err := m.Create(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if err := m.Revoke(ctx, token); err != nil {
		// Lost the race or the store failed: the replacement must not outlive it.
		_ = m.store.Revoke(ctx, next.Token)
		return nil, err
	}
	return next, nil
}

// Revoke marks token as unusable. Unknown or already revoked tokens yield
// common.ErrorUnauthorized.
func (m *RefreshTokenManager) Revoke(ctx context.Context, token string) error {
	if err := m.store.Revoke(ctx, token); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorUnauthorized
		}
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// PurgeExpired deletes records that are already past their expiry.
func (m *RefreshTokenManager) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := m.store.DeleteExpired(ctx, m.now())
	if err != nil {
		return 0, fmt.Errorf("purge refresh tokens: %w", err)
	}
	return n, nil
}
