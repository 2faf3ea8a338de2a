package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/centavohq/centavo-backend/internal/domain"
)

// envelopeRepository implements domain.EnvelopeRepository
type envelopeRepository struct {
	db *DB
}

// NewEnvelopeRepository creates a new envelope repository
func NewEnvelopeRepository(db *DB) domain.EnvelopeRepository {
	return &envelopeRepository{db: db}
}

const envelopeColumns = `id, owner_id, name, currency, planned_budget_units, spent_units, inflow_units, status, start_date, end_date, version, created_at, updated_at`

func (r *envelopeRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Envelope, error) {
	query := `SELECT ` + envelopeColumns + ` FROM envelopes WHERE id = $1`
	envelope, err := scanEnvelope(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFoundError("envelope", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get envelope: %w", err)
	}
	return envelope, nil
}

func (r *envelopeRepository) Create(ctx context.Context, envelope *domain.Envelope) error {
	query := `
		INSERT INTO envelopes (` + envelopeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := r.db.ExecContext(ctx, query,
		envelope.ID,
		envelope.OwnerID,
		envelope.Name,
		envelope.Currency,
		nullableUnits(envelope.PlannedBudget),
		envelope.SpentAmount.Units,
		envelope.InflowAmount.Units,
		string(envelope.Status),
		envelope.StartDate,
		envelope.EndDate,
		envelope.Version,
		envelope.CreatedAt,
		envelope.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert envelope: %w", err)
	}
	return nil
}

func (r *envelopeRepository) Update(ctx context.Context, envelope *domain.Envelope) error {
	query := `
		UPDATE envelopes
		SET name = $1, planned_budget_units = $2, spent_units = $3, inflow_units = $4,
		    status = $5, start_date = $6, end_date = $7, version = version + 1, updated_at = $8
		WHERE id = $9 AND version = $10
	`
	result, err := r.db.ExecContext(ctx, query,
		envelope.Name,
		nullableUnits(envelope.PlannedBudget),
		envelope.SpentAmount.Units,
		envelope.InflowAmount.Units,
		string(envelope.Status),
		envelope.StartDate,
		envelope.EndDate,
		envelope.UpdatedAt,
		envelope.ID,
		envelope.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update envelope: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return domain.NewConflictError("envelope %s was modified concurrently", envelope.ID)
	}
	envelope.Version++
	return nil
}

// Delete removes the envelope. Linked movements keep existing; their
// envelope_id column is set to NULL by the schema's ON DELETE rule.
func (r *envelopeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM envelopes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete envelope: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if rows == 0 {
		return domain.NewNotFoundError("envelope", id)
	}
	return nil
}

func (r *envelopeRepository) ListByOwner(ctx context.Context, owner uuid.UUID) ([]*domain.Envelope, error) {
	query := `SELECT ` + envelopeColumns + ` FROM envelopes WHERE owner_id = $1 ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list envelopes: %w", err)
	}
	defer rows.Close()

	var envelopes []*domain.Envelope
	for rows.Next() {
		envelope, err := scanEnvelope(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan envelope: %w", err)
		}
		envelopes = append(envelopes, envelope)
	}
	return envelopes, rows.Err()
}

func nullableUnits(m *domain.Money) sql.NullInt64 {
	if m == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: m.Units, Valid: true}
}

func scanEnvelope(row scanner) (*domain.Envelope, error) {
	var (
		envelope domain.Envelope
		budget   sql.NullInt64
		status   string
		endDate  sql.NullTime
	)
	err := row.Scan(
		&envelope.ID,
		&envelope.OwnerID,
		&envelope.Name,
		&envelope.Currency,
		&budget,
		&envelope.SpentAmount.Units,
		&envelope.InflowAmount.Units,
		&status,
		&envelope.StartDate,
		&endDate,
		&envelope.Version,
		&envelope.CreatedAt,
		&envelope.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	envelope.Status = domain.EnvelopeStatus(status)
	envelope.SpentAmount.Currency = envelope.Currency
	envelope.InflowAmount.Currency = envelope.Currency
	if budget.Valid {
		b := domain.NewMoney(budget.Int64, envelope.Currency)
		envelope.PlannedBudget = &b
	}
	if endDate.Valid {
		end := endDate.Time
		envelope.EndDate = &end
	}
	return &envelope, nil
}
