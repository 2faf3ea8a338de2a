package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/centavohq/centavo-backend/internal/domain"
)

// movementRepository implements domain.MovementRepository
type movementRepository struct {
	db *DB
}

// NewMovementRepository creates a new movement repository
func NewMovementRepository(db *DB) domain.MovementRepository {
	return &movementRepository{db: db}
}

const movementColumns = `id, owner_id, kind, total_units, effective_units, currency, category_id, account_id, contact_id, envelope_id, description, date, created_at, updated_at`

func (r *movementRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Movement, error) {
	query := `SELECT ` + movementColumns + ` FROM movements WHERE id = $1`
	movement, err := scanMovement(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFoundError("movement", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get movement: %w", err)
	}
	return movement, nil
}

// Create persists the movement and, when account is non-nil, its balance
// effect in the same database transaction.
func (r *movementRepository) Create(ctx context.Context, movement *domain.Movement, account *domain.Account) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO movements (` + movementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err = tx.ExecContext(ctx, query,
		movement.ID,
		movement.OwnerID,
		string(movement.Kind),
		movement.TotalAmount.Units,
		movement.EffectiveAmount.Units,
		movement.TotalAmount.Currency,
		movement.CategoryID,
		movement.AccountID,
		movement.ContactID,
		movement.EnvelopeID,
		movement.Description,
		movement.Date,
		movement.CreatedAt,
		movement.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert movement: %w", err)
	}

	if account != nil {
		if err := applyAccountDelta(ctx, tx, account); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	if account != nil {
		account.Version++
	}
	return nil
}

// Update persists movement changes and, when account is non-nil, the
// adjusted balance in the same database transaction.
func (r *movementRepository) Update(ctx context.Context, movement *domain.Movement, account *domain.Account) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE movements
		SET kind = $1, total_units = $2, effective_units = $3, currency = $4,
		    category_id = $5, account_id = $6, contact_id = $7, envelope_id = $8,
		    description = $9, date = $10, updated_at = $11
		WHERE id = $12
	`
	result, err := tx.ExecContext(ctx, query,
		string(movement.Kind),
		movement.TotalAmount.Units,
		movement.EffectiveAmount.Units,
		movement.TotalAmount.Currency,
		movement.CategoryID,
		movement.AccountID,
		movement.ContactID,
		movement.EnvelopeID,
		movement.Description,
		movement.Date,
		movement.UpdatedAt,
		movement.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update movement: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return domain.NewNotFoundError("movement", movement.ID)
	}

	if account != nil {
		if err := applyAccountDelta(ctx, tx, account); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	if account != nil {
		account.Version++
	}
	return nil
}

// Delete removes the movement and, when account is non-nil, persists the
// reversed balance effect in the same database transaction.
func (r *movementRepository) Delete(ctx context.Context, movement *domain.Movement, account *domain.Account) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `DELETE FROM movements WHERE id = $1`, movement.ID)
	if err != nil {
		return fmt.Errorf("failed to delete movement: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if rows == 0 {
		return domain.NewNotFoundError("movement", movement.ID)
	}

	if account != nil {
		if err := applyAccountDelta(ctx, tx, account); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	if account != nil {
		account.Version++
	}
	return nil
}

func (r *movementRepository) ListByEnvelope(ctx context.Context, envelopeID uuid.UUID) ([]*domain.Movement, error) {
	query := `SELECT ` + movementColumns + ` FROM movements WHERE envelope_id = $1 ORDER BY date`
	rows, err := r.db.QueryContext(ctx, query, envelopeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list movements: %w", err)
	}
	defer rows.Close()

	var movements []*domain.Movement
	for rows.Next() {
		movement, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan movement: %w", err)
		}
		movements = append(movements, movement)
	}
	return movements, rows.Err()
}

func scanMovement(row scanner) (*domain.Movement, error) {
	var (
		movement domain.Movement
		kind     string
		currency string
		account  uuid.NullUUID
		contact  uuid.NullUUID
		envelope uuid.NullUUID
	)
	err := row.Scan(
		&movement.ID,
		&movement.OwnerID,
		&kind,
		&movement.TotalAmount.Units,
		&movement.EffectiveAmount.Units,
		&currency,
		&movement.CategoryID,
		&account,
		&contact,
		&envelope,
		&movement.Description,
		&movement.Date,
		&movement.CreatedAt,
		&movement.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	movement.Kind = domain.MovementKind(kind)
	movement.TotalAmount.Currency = currency
	movement.EffectiveAmount.Currency = currency
	movement.AccountID = nullableID(account)
	movement.ContactID = nullableID(contact)
	movement.EnvelopeID = nullableID(envelope)
	return &movement, nil
}

func nullableID(id uuid.NullUUID) *uuid.UUID {
	if !id.Valid {
		return nil
	}
	v := id.UUID
	return &v
}
