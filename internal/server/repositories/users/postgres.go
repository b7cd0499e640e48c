package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX, so it works on
// both *sql.DB and *sql.Tx.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectAccount = `SELECT id, email, password_hash, first_name, last_name, gender, company, created_at, updated_at FROM users`

func (r *PostgresRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	query :=
		`INSERT INTO users (email, password_hash, first_name, last_name, gender, company)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		account.Email, account.PasswordHash, account.FirstName, account.LastName, string(account.Gender), nullString(account.Company),
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return account, nil
}

func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	return r.findOne(ctx, selectAccount+` WHERE email = $1`, email)
}

func (r *PostgresRepository) FindByID(ctx context.Context, id int64) (*models.Account, error) {
	return r.findOne(ctx, selectAccount+` WHERE id = $1`, id)
}

func (r *PostgresRepository) Update(ctx context.Context, account *models.Account) (*models.Account, error) {
	query :=
		`UPDATE users
		 SET email = $1, password_hash = $2, first_name = $3, last_name = $4, gender = $5, company = $6, updated_at = now()
		 WHERE id = $7
		 RETURNING created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		account.Email, account.PasswordHash, account.FirstName, account.LastName, string(account.Gender), nullString(account.Company), account.ID,
	).Scan(&account.CreatedAt, &account.UpdatedAt)

	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, common.ErrorNotFound
		case dbx.IsUniqueViolation(err):
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return account, nil
}

func (r *PostgresRepository) findOne(ctx context.Context, query string, arg any) (*models.Account, error) {
	var (
		account models.Account
		gender  string
		company sql.NullString
	)

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&account.ID, &account.Email, &account.PasswordHash, &account.FirstName, &account.LastName,
		&gender, &company, &account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	account.Gender = models.Gender(gender)
	if company.Valid {
		account.Company = &company.String
	}
	return &account, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
