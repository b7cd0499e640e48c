// Package services contains server-side business logic: the authentication
// orchestrator, credential strategies and account management.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/users"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// AccessTokens signs and verifies access tokens.
type AccessTokens interface {
	Issue(c auth.Claims) (string, error)
	Verify(token string) (*auth.Claims, error)
}

// RefreshTokens manages the refresh token lifecycle.
type RefreshTokens interface {
	Create(ctx context.Context, accountID int64) (*models.RefreshToken, error)
	ValidateAndResolve(ctx context.Context, token string) (int64, error)
	Rotate(ctx context.Context, token string) (*models.RefreshToken, error)
	Revoke(ctx context.Context, token string) error
	PurgeExpired(ctx context.Context) (int64, error)
}

// AuthConfig tunes AuthService.
type AuthConfig struct {
	// OperationTimeout bounds every store round-trip and password hash.
	OperationTimeout time.Duration
	// RotateRefreshTokens makes Refresh revoke the presented token and hand
	// out a new one.
	RotateRefreshTokens bool
}

// fallbackDigest is used only when the hasher cannot produce a dummy digest
// at construction time.
const fallbackDigest = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// AuthService authenticates accounts and manages their token pairs.
// Every rejection is reported as common.ErrorUnauthorized; infrastructure
// failures (including timeouts) are wrapped and returned as-is.
type AuthService struct {
	users   users.Repository
	hasher  auth.PasswordHasher
	access  AccessTokens
	refresh RefreshTokens
	cfg     AuthConfig
	log     logging.Logger

	// dummyDigest is hashed with the configured cost from a random secret.
	// Comparing against it keeps unknown-email logins as slow as
	// wrong-password ones.
	dummyDigest string
}

func NewAuthService(u users.Repository, h auth.PasswordHasher, a AccessTokens, r RefreshTokens, cfg AuthConfig, log logging.Logger) *AuthService {
	if log == nil {
		log = logging.Nop()
	}
	log = log.With("module", "auth")
	return &AuthService{
		users:       u,
		hasher:      h,
		access:      a,
		refresh:     r,
		cfg:         cfg,
		log:         log,
		dummyDigest: makeDummyDigest(h, log),
	}
}

func makeDummyDigest(h auth.PasswordHasher, log logging.Logger) string {
	secret, err := common.MakeRandBase64String(6)
	if err != nil {
		log.Warn(context.Background(), "dummy digest: random source failed", "error", err)
		return fallbackDigest
	}
	digest, err := h.Hash(context.Background(), secret)
	if err != nil {
		log.Warn(context.Background(), "dummy digest: hash failed", "error", err)
		return fallbackDigest
	}
	return digest
}

// Login checks email and password and returns a new token pair. An unknown
// email and a wrong password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	account, err := s.findByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			if _, herr := s.verifyPassword(ctx, s.dummyDigest, password); herr != nil {
				return nil, herr
			}
			return nil, common.ErrorUnauthorized
		}
		return nil, err
	}

	ok, err := s.verifyPassword(ctx, account.PasswordHash, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.ErrorUnauthorized
	}

	access, err := s.issueAccess(account)
	if err != nil {
		return nil, err
	}

	opCtx, cancel := s.opContext(ctx)
	defer cancel()
	rt, err := s.refresh.Create(opCtx, account.ID)
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "login succeeded", "user_id", account.ID)
	return &TokenPair{AccessToken: access, RefreshToken: rt.Token}, nil
}

// Refresh exchanges a live refresh token for a new access token. Unless
// rotation is enabled the same refresh token is handed back.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	var (
		accountID int64
		next      = refreshToken
	)

	opCtx, cancel := s.opContext(ctx)
	if s.cfg.RotateRefreshTokens {
		rt, err := s.refresh.Rotate(opCtx, refreshToken)
		if err != nil {
			cancel()
			return nil, err
		}
		accountID, next = rt.UserID, rt.Token
	} else {
		id, err := s.refresh.ValidateAndResolve(opCtx, refreshToken)
		if err != nil {
			cancel()
			return nil, err
		}
		accountID = id
	}
	cancel()

	account, err := s.findByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, err
	}

	access, err := s.issueAccess(account)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: next}, nil
}

// ResolveFromAccessToken returns the account an access token was issued to.
// The account is looked up again so deleted accounts and changed emails
// invalidate outstanding tokens.
func (s *AuthService) ResolveFromAccessToken(ctx context.Context, token string) (*models.AccountView, error) {
	claims, err := s.access.Verify(token)
	if err != nil {
		return nil, common.ErrorUnauthorized
	}

	account, err := s.findByEmail(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, err
	}
	if account.ID != claims.ID {
		return nil, common.ErrorUnauthorized
	}
	return account.View(), nil
}

// Revoke invalidates a refresh token (logout).
func (s *AuthService) Revoke(ctx context.Context, refreshToken string) error {
	opCtx, cancel := s.opContext(ctx)
	defer cancel()
	return s.refresh.Revoke(opCtx, refreshToken)
}

// PurgeExpired removes refresh tokens past their expiry.
func (s *AuthService) PurgeExpired(ctx context.Context) (int64, error) {
	opCtx, cancel := s.opContext(ctx)
	defer cancel()
	return s.refresh.PurgeExpired(opCtx)
}

// --- helpers below ---

func (s *AuthService) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return withOperationTimeout(ctx, s.cfg.OperationTimeout)
}

func withOperationTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func (s *AuthService) findByEmail(ctx context.Context, email string) (*models.Account, error) {
	opCtx, cancel := s.opContext(ctx)
	defer cancel()
	account, err := s.users.FindByEmail(opCtx, email)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("find account: %w", err)
	}
	return account, err
}

func (s *AuthService) findByID(ctx context.Context, id int64) (*models.Account, error) {
	opCtx, cancel := s.opContext(ctx)
	defer cancel()
	account, err := s.users.FindByID(opCtx, id)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("find account: %w", err)
	}
	return account, err
}

func (s *AuthService) verifyPassword(ctx context.Context, digest, candidate string) (bool, error) {
	opCtx, cancel := s.opContext(ctx)
	defer cancel()
	ok, err := s.hasher.Verify(opCtx, digest, candidate)
	if err != nil {
		return false, fmt.Errorf("verify password: %w", err)
	}
	return ok, nil
}

func (s *AuthService) issueAccess(account *models.Account) (string, error) {
	token, err := s.access.Issue(auth.Claims{Email: account.Email, ID: account.ID})
	if err != nil {
		return "", fmt.Errorf("issue access token: %w", err)
	}
	return token, nil
}
