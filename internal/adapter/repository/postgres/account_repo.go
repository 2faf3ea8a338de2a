package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/centavohq/centavo-backend/internal/domain"
)

// accountRepository implements domain.AccountRepository
type accountRepository struct {
	db *DB
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *DB) domain.AccountRepository {
	return &accountRepository{db: db}
}

const accountColumns = `id, owner_id, name, account_type, currency, balance_units, active, version, created_at, updated_at`

func (r *accountRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	account, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFoundError("account", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		account.ID,
		account.OwnerID,
		account.Name,
		string(account.AccountType),
		account.Currency,
		account.Balance.Units,
		account.Active,
		account.Version,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert account: %w", err)
	}
	return nil
}

func (r *accountRepository) Update(ctx context.Context, account *domain.Account) error {
	query := `
		UPDATE accounts
		SET name = $1, account_type = $2, balance_units = $3, active = $4,
		    version = version + 1, updated_at = $5
		WHERE id = $6 AND version = $7
	`
	result, err := r.db.ExecContext(ctx, query,
		account.Name,
		string(account.AccountType),
		account.Balance.Units,
		account.Active,
		account.UpdatedAt,
		account.ID,
		account.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return domain.NewConflictError("account %s was modified concurrently", account.ID)
	}
	account.Version++
	return nil
}

func (r *accountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if rows == 0 {
		return domain.NewNotFoundError("account", id)
	}
	return nil
}

func (r *accountRepository) HasHistory(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (SELECT 1 FROM movements WHERE account_id = $1)
		    OR EXISTS (SELECT 1 FROM transfers WHERE source_account_id = $1 OR dest_account_id = $1)
	`
	var has bool
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&has); err != nil {
		return false, fmt.Errorf("failed to check account history: %w", err)
	}
	return has, nil
}

func (r *accountRepository) ListByOwner(ctx context.Context, owner uuid.UUID) ([]*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE owner_id = $1 ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (*domain.Account, error) {
	var (
		account     domain.Account
		accountType string
	)
	err := row.Scan(
		&account.ID,
		&account.OwnerID,
		&account.Name,
		&accountType,
		&account.Currency,
		&account.Balance.Units,
		&account.Active,
		&account.Version,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	account.AccountType = domain.AccountType(accountType)
	account.Balance.Currency = account.Currency
	return &account, nil
}

// applyAccountDelta persists an account's balance inside an open database
// transaction, bumping the version under the optimistic check. Shared by
// the movement and transfer repositories, whose writes carry account
// balance effects.
func applyAccountDelta(ctx context.Context, tx *sql.Tx, account *domain.Account) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE accounts
		SET balance_units = $1, version = version + 1, updated_at = $2
		WHERE id = $3 AND version = $4
	`,
		account.Balance.Units,
		account.UpdatedAt,
		account.ID,
		account.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update account balance: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check balance update result: %w", err)
	}
	if rows == 0 {
		return domain.NewConflictError("account %s was modified concurrently", account.ID)
	}
	return nil
}
