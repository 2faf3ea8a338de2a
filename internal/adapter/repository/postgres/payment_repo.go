package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/centavohq/centavo-backend/internal/domain"
)

// paymentRepository implements domain.PaymentRepository. Payments are
// read-only here; every payment write goes through the debt repository so
// it lands in the same transaction as the debt's settle state.
type paymentRepository struct {
	db *DB
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *DB) domain.PaymentRepository {
	return &paymentRepository{db: db}
}

const paymentColumns = `id, debt_id, amount_units, interest_units, principal_units, currency, method, status, date, created_at, updated_at`

func (r *paymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	payment, err := scanPayment(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFoundError("payment", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return payment, nil
}

func (r *paymentRepository) ListConfirmedByDebt(ctx context.Context, debtID uuid.UUID) ([]*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE debt_id = $1 AND status = 'CONFIRMED' ORDER BY date`
	rows, err := r.db.QueryContext(ctx, query, debtID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var payments []*domain.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, payment)
	}
	return payments, rows.Err()
}

func scanPayment(row scanner) (*domain.Payment, error) {
	var (
		payment  domain.Payment
		currency string
		method   string
		status   string
	)
	err := row.Scan(
		&payment.ID,
		&payment.DebtID,
		&payment.Amount.Units,
		&payment.InterestPortion.Units,
		&payment.PrincipalPortion.Units,
		&currency,
		&method,
		&status,
		&payment.Date,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	payment.Method = domain.PaymentMethod(method)
	payment.Status = domain.PaymentStatus(status)
	payment.Amount.Currency = currency
	payment.InterestPortion.Currency = currency
	payment.PrincipalPortion.Currency = currency
	return &payment, nil
}
