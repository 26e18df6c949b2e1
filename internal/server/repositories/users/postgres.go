package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/shipledger/internal/common"
	"github.com/dmitrijs2005/shipledger/internal/dbx"
	"github.com/dmitrijs2005/shipledger/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts the account and fills its id and creation time. A taken
// email is reported as common.ErrDuplicateIdentifier.
func (r *PostgresRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	query :=
		`INSERT INTO users (name, email, password_hash, role, is_active)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		account.Name, account.Email, account.PasswordHash, account.Role.String(), account.Active).
		Scan(&account.ID, &account.CreatedAt)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrDuplicateIdentifier
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return account, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	query :=
		`SELECT id, name, email, password_hash, role, is_active, created_at FROM users
		 WHERE email = $1
		 `

	var (
		account models.Account
		role    string
	)
	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&account.ID, &account.Name, &account.Email, &account.PasswordHash,
		&role, &account.Active, &account.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	parsed, ok := models.ParseRole(role)
	if !ok {
		return nil, fmt.Errorf("db error: account %d has unknown role %q", account.ID, role)
	}
	account.Role = parsed

	return &account, nil
}

// ToggleActive flips the account's active flag and returns the new value.
func (r *PostgresRepository) ToggleActive(ctx context.Context, id int64) (bool, error) {
	query :=
		`UPDATE users SET is_active = NOT is_active
		 WHERE id = $1
		 RETURNING is_active
		 `

	var active bool
	err := r.db.QueryRowContext(ctx, query, id).Scan(&active)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, common.ErrorNotFound
		}
		return false, fmt.Errorf("db error: %w", err)
	}

	return active, nil
}

func (r *PostgresRepository) CountByRole(ctx context.Context, role models.Role) (int64, error) {
	query := `SELECT COUNT(*) FROM users WHERE role = $1`

	var n int64
	if err := r.db.QueryRowContext(ctx, query, role.String()).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return n, nil
}
