package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	"github.com/go-playground/validator/v10"
)

// RegisterInput is the data needed to create an account.
type RegisterInput struct {
	Email     string        `json:"email" validate:"required,email,min=5,max=100"`
	Password  string        `json:"password" validate:"min=5,max=10"`
	FirstName string        `json:"firstName" validate:"min=2,max=100"`
	LastName  string        `json:"lastName" validate:"min=2,max=100"`
	Gender    models.Gender `json:"gender" validate:"oneof=m f"`
	Company   *string       `json:"company" validate:"omitempty,min=2,max=100"`
}

// UpdateInput replaces an account's profile. A nil Password keeps the
// current one.
type UpdateInput struct {
	Email     string        `json:"email" validate:"required,email,min=5,max=100"`
	Password  *string       `json:"password" validate:"omitempty,min=5,max=10"`
	FirstName string        `json:"firstName" validate:"min=2,max=100"`
	LastName  string        `json:"lastName" validate:"min=2,max=100"`
	Gender    models.Gender `json:"gender" validate:"oneof=m f"`
	Company   *string       `json:"company" validate:"omitempty,min=2,max=100"`
}

// UserService registers accounts and manages the signed-in user's profile.
// Passwords are hashed here, never in the repositories.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      auth.PasswordHasher
	validate    *validator.Validate
	timeout     time.Duration
	log         logging.Logger
}

// NewUserService constructs a UserService. timeout bounds each hash and each
// database round-trip (or transaction).
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, h auth.PasswordHasher, timeout time.Duration, log logging.Logger) *UserService {
	if log == nil {
		log = logging.Nop()
	}
	return &UserService{
		db:          db,
		repomanager: m,
		hasher:      h,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		timeout:     timeout,
		log:         log.With("module", "users"),
	}
}

// Register validates in, hashes the password and stores the account.
// A taken email yields common.ErrorAlreadyExists.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.AccountView, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}

	digest, err := s.hash(ctx, in.Password)
	if err != nil {
		return nil, err
	}

	opCtx, cancel := withOperationTimeout(ctx, s.timeout)
	defer cancel()

	account, err := s.repomanager.Users(s.db).Create(opCtx, &models.Account{
		Email:        in.Email,
		PasswordHash: digest,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Gender:       in.Gender,
		Company:      in.Company,
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.log.Info(ctx, "user registered", "user_id", account.ID)
	return account.View(), nil
}

// Me returns the account with the given id.
func (s *UserService) Me(ctx context.Context, id int64) (*models.AccountView, error) {
	opCtx, cancel := withOperationTimeout(ctx, s.timeout)
	defer cancel()

	account, err := s.repomanager.Users(s.db).FindByID(opCtx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}
	return account.View(), nil
}

// Update replaces the profile of account id. Moving to an email owned by
// another account yields common.ErrorAlreadyExists.
func (s *UserService) Update(ctx context.Context, id int64, in UpdateInput) (*models.AccountView, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}

	var digest string
	if in.Password != nil {
		d, err := s.hash(ctx, *in.Password)
		if err != nil {
			return nil, err
		}
		digest = d
	}

	opCtx, cancel := withOperationTimeout(ctx, s.timeout)
	defer cancel()

	var updated *models.Account
	err := dbx.WithTx(opCtx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		owner, err := repo.FindByEmail(ctx, in.Email)
		switch {
		case err == nil && owner.ID != id:
			return common.ErrorAlreadyExists
		case err != nil && !errors.Is(err, common.ErrorNotFound):
			return err
		}

		account, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}

		account.Email = in.Email
		account.FirstName = in.FirstName
		account.LastName = in.LastName
		account.Gender = in.Gender
		account.Company = in.Company
		if digest != "" {
			account.PasswordHash = digest
		}

		updated, err = repo.Update(ctx, account)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) || errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("error updating user: %w", err)
	}

	s.log.Info(ctx, "user updated", "user_id", id)
	return updated.View(), nil
}

// --- helpers below ---

func (s *UserService) hash(ctx context.Context, password string) (string, error) {
	opCtx, cancel := withOperationTimeout(ctx, s.timeout)
	defer cancel()
	digest, err := s.hasher.Hash(opCtx, password)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return digest, nil
}

// check runs struct validation and reports failures as common.ErrorValidation.
func (s *UserService) check(in any) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("%w: invalid %s", common.ErrorValidation, strings.Join(fields, ", "))
}
