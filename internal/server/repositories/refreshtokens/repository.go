// Package refreshtokens declares the refresh-token store contract and its
// PostgreSQL and Redis implementations.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

// Repository persists refresh-token records keyed by their opaque token string.
type Repository interface {
	// Save stores a new record atomically and fills in its generated fields.
	// A token string that already exists yields common.ErrorAlreadyExists.
	Save(ctx context.Context, token *models.RefreshToken) (*models.RefreshToken, error)

	// FindByToken looks a record up by exact token match.
	// Absent tokens yield common.ErrorNotFound.
	FindByToken(ctx context.Context, token string) (*models.RefreshToken, error)

	// Revoke flips the revoked flag of a live record. Unknown, expired or
	// already revoked tokens yield common.ErrorNotFound, so of two concurrent
	// callers exactly one succeeds.
	Revoke(ctx context.Context, token string) error

	// DeleteExpired removes records that expired before the given instant and
	// returns how many were removed.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
