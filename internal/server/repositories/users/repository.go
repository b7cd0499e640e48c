// Package users declares the account repository contract (the user
// directory) and its PostgreSQL implementation.
package users

import (
	"context"

	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

// Repository stores accounts. Lookups return common.ErrorNotFound when no
// account matches; writes return common.ErrorAlreadyExists on a duplicate email.
type Repository interface {
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	FindByID(ctx context.Context, id int64) (*models.Account, error)
	Update(ctx context.Context, account *models.Account) (*models.Account, error)
}
