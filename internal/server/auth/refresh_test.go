package auth

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/refreshtokens"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisManager(t *testing.T, ttl time.Duration) *RefreshTokenManager {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRefreshTokenManager(refreshtokens.NewRedisRepository(client), ttl)
}

// stubStore lets a test inject store failures.
type stubStore struct {
	mu        sync.Mutex
	revoked   []string
	found     *models.RefreshToken
	findErr   error
	saveErr   error
	revokeErr error
	deleted   int64
	deleteErr error
	before    time.Time
}

func (s *stubStore) Save(_ context.Context, t *models.RefreshToken) (*models.RefreshToken, error) {
	if s.saveErr != nil {
		return nil, s.saveErr
	}
	return t, nil
}

func (s *stubStore) FindByToken(context.Context, string) (*models.RefreshToken, error) {
	return s.found, s.findErr
}

func (s *stubStore) Revoke(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked = append(s.revoked, token)
	return s.revokeErr
}

func (s *stubStore) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	s.before = before
	return s.deleted, s.deleteErr
}

func TestRefresh_CreateAndResolve(t *testing.T) {
	m := newRedisManager(t, 24*time.Hour)
	ctx := context.Background()

	rt, err := m.Create(ctx, 42)
	require.NoError(t, err)
	assert.Len(t, rt.Token, 172) // base64 of 128 bytes
	assert.False(t, rt.Revoked)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), rt.ExpireAt, time.Minute)

	id, err := m.ValidateAndResolve(ctx, rt.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	other, err := m.Create(ctx, 42)
	require.NoError(t, err)
	assert.NotEqual(t, rt.Token, other.Token)
}

func TestRefresh_UnknownToken(t *testing.T) {
	m := newRedisManager(t, time.Hour)

	_, err := m.ValidateAndResolve(context.Background(), "nope")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestRefresh_ExpiredButNotRevoked(t *testing.T) {
	store := &stubStore{found: &models.RefreshToken{Token: "t", UserID: 1, ExpireAt: time.Now().Add(-time.Second)}}
	m := NewRefreshTokenManager(store, time.Hour)

	_, err := m.ValidateAndResolve(context.Background(), "t")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestRefresh_RevokedButNotExpired(t *testing.T) {
	m := newRedisManager(t, time.Hour)
	ctx := context.Background()

	rt, err := m.Create(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, m.Revoke(ctx, rt.Token))

	_, err = m.ValidateAndResolve(ctx, rt.Token)
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	assert.ErrorIs(t, m.Revoke(ctx, rt.Token), common.ErrorUnauthorized)
}

func TestRefresh_StoreErrorIsNotUnauthorized(t *testing.T) {
	boom := errors.New("db error: connection refused")
	m := NewRefreshTokenManager(&stubStore{findErr: boom, saveErr: boom, revokeErr: boom}, time.Hour)
	ctx := context.Background()

	_, err := m.ValidateAndResolve(ctx, "t")
	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, common.ErrorUnauthorized)

	_, err = m.Create(ctx, 1)
	require.ErrorIs(t, err, boom)

	err = m.Revoke(ctx, "t")
	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, common.ErrorUnauthorized)
}

func TestRefresh_Rotate(t *testing.T) {
	m := newRedisManager(t, time.Hour)
	ctx := context.Background()

	old, err := m.Create(ctx, 9)
	require.NoError(t, err)

	fresh, err := m.Rotate(ctx, old.Token)
	require.NoError(t, err)
	assert.NotEqual(t, old.Token, fresh.Token)
	assert.Equal(t, int64(9), fresh.UserID)

	_, err = m.ValidateAndResolve(ctx, old.Token)
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	_, err = m.Rotate(ctx, old.Token)
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestRefresh_RotateKeepsOldTokenWhenSaveFails(t *testing.T) {
	boom := errors.New("db down")
	store := &stubStore{
		found:   &models.RefreshToken{Token: "old", UserID: 4, ExpireAt: time.Now().Add(time.Hour)},
		saveErr: boom,
	}
	m := NewRefreshTokenManager(store, time.Hour)

	_, err := m.Rotate(context.Background(), "old")
	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, common.ErrorUnauthorized)
	assert.Empty(t, store.revoked)
}

func TestRefresh_RotateDropsReplacementWhenRevokeFails(t *testing.T) {
	store := &stubStore{
		found:     &models.RefreshToken{Token: "old", UserID: 4, ExpireAt: time.Now().Add(time.Hour)},
		revokeErr: common.ErrorNotFound,
	}
	m := NewRefreshTokenManager(store, time.Hour)

	_, err := m.Rotate(context.Background(), "old")
	require.ErrorIs(t, err, common.ErrorUnauthorized)
	require.Len(t, store.revoked, 2)
	assert.Equal(t, "old", store.revoked[0])
	assert.NotEqual(t, "old", store.revoked[1])
}

func TestRefresh_CounterKeyRejectedAsToken(t *testing.T) {
	m := newRedisManager(t, time.Hour)
	ctx := context.Background()

	_, err := m.Create(ctx, 1)
	require.NoError(t, err)

	_, err = m.ValidateAndResolve(ctx, "seq")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
	assert.ErrorIs(t, m.Revoke(ctx, "seq"), common.ErrorUnauthorized)
}

func TestRefresh_ConcurrentRotateSingleWinner(t *testing.T) {
	m := newRedisManager(t, time.Hour)
	ctx := context.Background()

	old, err := m.Create(ctx, 3)
	require.NoError(t, err)

	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.Rotate(ctx, old.Token); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func TestRefresh_PurgeExpired(t *testing.T) {
	store := &stubStore{deleted: 5}
	m := NewRefreshTokenManager(store, time.Hour)
	fixed := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	n, err := m.PurgeExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	assert.Equal(t, fixed, store.before)

	store.deleteErr = errors.New("boom")
	_, err = m.PurgeExpired(context.Background())
	assert.Error(t, err)
}
