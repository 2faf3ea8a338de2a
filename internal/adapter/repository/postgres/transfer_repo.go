package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/centavohq/centavo-backend/internal/domain"
)

// transferRepository implements domain.TransferRepository
type transferRepository struct {
	db *DB
}

// NewTransferRepository creates a new transfer repository
func NewTransferRepository(db *DB) domain.TransferRepository {
	return &transferRepository{db: db}
}

const transferColumns = `id, owner_id, source_account_id, dest_account_id, amount_units, currency, date, note, cancelled, created_at, updated_at`

func (r *transferRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transfer, error) {
	query := `SELECT ` + transferColumns + ` FROM transfers WHERE id = $1`
	transfer, err := scanTransfer(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFoundError("transfer", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transfer: %w", err)
	}
	return transfer, nil
}

// CreateExecuted persists the transfer record and both post-transfer
// balances in the same database transaction. The account rows are locked
// in id order so two concurrent transfers over the same pair cannot
// deadlock.
func (r *transferRepository) CreateExecuted(ctx context.Context, transfer *domain.Transfer, source, dest *domain.Account) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := lockAccountPair(ctx, tx, source.ID, dest.ID); err != nil {
		return err
	}

	query := `
		INSERT INTO transfers (` + transferColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = tx.ExecContext(ctx, query,
		transfer.ID,
		transfer.OwnerID,
		transfer.SourceAccountID,
		transfer.DestAccountID,
		transfer.Amount.Units,
		transfer.Amount.Currency,
		transfer.Date,
		transfer.Note,
		transfer.Cancelled,
		transfer.CreatedAt,
		transfer.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transfer: %w", err)
	}

	if err := applyAccountDelta(ctx, tx, source); err != nil {
		return err
	}
	if err := applyAccountDelta(ctx, tx, dest); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	source.Version++
	dest.Version++
	return nil
}

// MarkCancelled flips the transfer to cancelled and persists both
// reversed balances in the same database transaction.
func (r *transferRepository) MarkCancelled(ctx context.Context, transfer *domain.Transfer, source, dest *domain.Account) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := lockAccountPair(ctx, tx, source.ID, dest.ID); err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE transfers SET cancelled = TRUE, updated_at = $1
		WHERE id = $2 AND cancelled = FALSE
	`, transfer.UpdatedAt, transfer.ID)
	if err != nil {
		return fmt.Errorf("failed to update transfer: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check transfer update result: %w", err)
	}
	if rows == 0 {
		return domain.NewConflictError("transfer %s is already cancelled", transfer.ID)
	}

	if err := applyAccountDelta(ctx, tx, source); err != nil {
		return err
	}
	if err := applyAccountDelta(ctx, tx, dest); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	source.Version++
	dest.Version++
	return nil
}

func (r *transferRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, from, to time.Time) ([]*domain.Transfer, error) {
	query := `
		SELECT ` + transferColumns + ` FROM transfers
		WHERE (source_account_id = $1 OR dest_account_id = $1)
		  AND date >= $2 AND date <= $3
		ORDER BY date
	`
	rows, err := r.db.QueryContext(ctx, query, accountID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list transfers: %w", err)
	}
	defer rows.Close()

	var transfers []*domain.Transfer
	for rows.Next() {
		transfer, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transfer: %w", err)
		}
		transfers = append(transfers, transfer)
	}
	return transfers, rows.Err()
}

// lockAccountPair takes row locks on both accounts in id order.
func lockAccountPair(ctx context.Context, tx *sql.Tx, a, b uuid.UUID) error {
	first, second := a, b
	if second.String() < first.String() {
		first, second = second, first
	}
	for _, id := range []uuid.UUID{first, second} {
		if _, err := tx.ExecContext(ctx, `SELECT 1 FROM accounts WHERE id = $1 FOR UPDATE`, id); err != nil {
			return fmt.Errorf("failed to lock account %s: %w", id, err)
		}
	}
	return nil
}

func scanTransfer(row scanner) (*domain.Transfer, error) {
	var (
		transfer domain.Transfer
		currency string
	)
	err := row.Scan(
		&transfer.ID,
		&transfer.OwnerID,
		&transfer.SourceAccountID,
		&transfer.DestAccountID,
		&transfer.Amount.Units,
		&currency,
		&transfer.Date,
		&transfer.Note,
		&transfer.Cancelled,
		&transfer.CreatedAt,
		&transfer.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	transfer.Amount.Currency = currency
	return &transfer, nil
}
