package services

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/users"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// memUsers is an in-memory users.Repository.
type memUsers struct {
	mu     sync.Mutex
	byID   map[int64]*models.Account
	nextID int64

	// block makes every call wait for its context to end.
	block bool
	err   error
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[int64]*models.Account{}, nextID: 1}
}

func (m *memUsers) gate(ctx context.Context) error {
	if m.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return m.err
}

func (m *memUsers) Create(ctx context.Context, a *models.Account) (*models.Account, error) {
	if err := m.gate(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Email == a.Email {
			return nil, common.ErrorAlreadyExists
		}
	}
	c := *a
	c.ID = m.nextID
	m.nextID++
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	m.byID[c.ID] = &c
	out := c
	return &out, nil
}

func (m *memUsers) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	if err := m.gate(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byID {
		if a.Email == email {
			out := *a
			return &out, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (m *memUsers) FindByID(ctx context.Context, id int64) (*models.Account, error) {
	if err := m.gate(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	out := *a
	return &out, nil
}

func (m *memUsers) Update(ctx context.Context, a *models.Account) (*models.Account, error) {
	if err := m.gate(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[a.ID]; !ok {
		return nil, common.ErrorNotFound
	}
	c := *a
	c.UpdatedAt = time.Now()
	m.byID[c.ID] = &c
	out := c
	return &out, nil
}

func (m *memUsers) delete(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, id)
}

// memTokens is an in-memory refreshtokens.Repository.
type memTokens struct {
	mu     sync.Mutex
	byTok  map[string]*models.RefreshToken
	nextID int64
	err    error

	// saveErr fails Save only.
	saveErr error
}

func newMemTokens() *memTokens {
	return &memTokens{byTok: map[string]*models.RefreshToken{}, nextID: 1}
}

func (m *memTokens) Save(_ context.Context, t *models.RefreshToken) (*models.RefreshToken, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.saveErr != nil {
		return nil, m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byTok[t.Token]; ok {
		return nil, common.ErrorAlreadyExists
	}
	c := *t
	c.ID = m.nextID
	m.nextID++
	c.CreatedAt = time.Now()
	m.byTok[c.Token] = &c
	out := c
	return &out, nil
}

func (m *memTokens) FindByToken(_ context.Context, token string) (*models.RefreshToken, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byTok[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	out := *t
	return &out, nil
}

func (m *memTokens) Revoke(_ context.Context, token string) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byTok[token]
	if !ok || t.Revoked {
		return common.ErrorNotFound
	}
	t.Revoked = true
	return nil
}

func (m *memTokens) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, t := range m.byTok {
		if t.ExpireAt.Before(before) {
			delete(m.byTok, k)
			n++
		}
	}
	return n, nil
}

func (m *memTokens) put(t *models.RefreshToken) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byTok[t.Token] = t
}

// fakeManager hands out the same in-memory repositories for any handle.
type fakeManager struct {
	users  *memUsers
	tokens *memTokens
}

func (f *fakeManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (f *fakeManager) Users(dbx.DBTX) users.Repository            { return f.users }
func (f *fakeManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository {
	return f.tokens
}

const (
	testEmail    = "a@b.com"
	testPassword = "Secret1"
)

type authFixture struct {
	svc    *AuthService
	users  *memUsers
	tokens *memTokens
	issuer *auth.Issuer
	hasher *auth.BcryptHasher
	alice  *models.Account
}

func newAuthFixture(t *testing.T, cfg AuthConfig) *authFixture {
	t.Helper()

	hasher := auth.NewBcryptHasher(bcrypt.MinCost, 4)
	digest, err := hasher.Hash(context.Background(), testPassword)
	require.NoError(t, err)

	u := newMemUsers()
	alice, err := u.Create(context.Background(), &models.Account{
		Email:        testEmail,
		PasswordHash: digest,
		FirstName:    "Alice",
		LastName:     "Doe",
		Gender:       models.GenderFemale,
	})
	require.NoError(t, err)

	tokens := newMemTokens()
	issuer := auth.NewIssuer(auth.IssuerConfig{Secret: []byte("test-secret"), TTL: time.Hour})
	if cfg.OperationTimeout == 0 {
		cfg.OperationTimeout = 5 * time.Second
	}

	svc := NewAuthService(u, hasher, issuer, auth.NewRefreshTokenManager(tokens, 24*time.Hour), cfg, nil)
	return &authFixture{svc: svc, users: u, tokens: tokens, issuer: issuer, hasher: hasher, alice: alice}
}
