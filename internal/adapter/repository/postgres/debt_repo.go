package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/centavohq/centavo-backend/internal/domain"
)

// debtRepository implements domain.DebtRepository
type debtRepository struct {
	db *DB
}

// NewDebtRepository creates a new debt repository
func NewDebtRepository(db *DB) domain.DebtRepository {
	return &debtRepository{db: db}
}

const debtColumns = `id, owner_id, debt_type, principal_units, currency, interest_rate, interest_mode, interest_units, total_units, effective_units, status, due_date, contact_id, account_id, category_id, description, version, created_at, updated_at`

func (r *debtRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Debt, error) {
	query := `SELECT ` + debtColumns + ` FROM debts WHERE id = $1`
	debt, err := scanDebt(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFoundError("debt", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get debt: %w", err)
	}
	return debt, nil
}

func (r *debtRepository) Create(ctx context.Context, debt *domain.Debt) error {
	query := `
		INSERT INTO debts (` + debtColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`
	_, err := r.db.ExecContext(ctx, query, debtArgs(debt)...)
	if err != nil {
		return fmt.Errorf("failed to insert debt: %w", err)
	}
	return nil
}

func (r *debtRepository) Update(ctx context.Context, debt *domain.Debt) error {
	result, err := r.db.ExecContext(ctx, debtUpdateQuery, debtUpdateArgs(debt)...)
	if err != nil {
		return fmt.Errorf("failed to update debt: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return domain.NewConflictError("debt %s was modified concurrently", debt.ID)
	}
	debt.Version++
	return nil
}

func (r *debtRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM debts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete debt: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if rows == 0 {
		return domain.NewNotFoundError("debt", id)
	}
	return nil
}

// ApplyPayment persists the payment and the debt's new settle state in the
// same database transaction, so a payment can never exist without its
// effect on the debt.
func (r *debtRepository) ApplyPayment(ctx context.Context, debt *domain.Debt, payment *domain.Payment) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	insertQuery := `
		INSERT INTO payments (id, debt_id, amount_units, interest_units, principal_units, currency, method, status, date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = tx.ExecContext(ctx, insertQuery,
		payment.ID,
		payment.DebtID,
		payment.Amount.Units,
		payment.InterestPortion.Units,
		payment.PrincipalPortion.Units,
		payment.Amount.Currency,
		string(payment.Method),
		string(payment.Status),
		payment.Date,
		payment.CreatedAt,
		payment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}

	if err := updateDebtTx(ctx, tx, debt); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	debt.Version++
	return nil
}

// CancelPayment flips the payment to cancelled and persists the debt's
// rolled-back settle state in the same database transaction.
func (r *debtRepository) CancelPayment(ctx context.Context, debt *domain.Debt, payment *domain.Payment) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE payments SET status = $1, updated_at = $2 WHERE id = $3
	`, string(payment.Status), payment.UpdatedAt, payment.ID)
	if err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check payment update result: %w", err)
	}
	if rows == 0 {
		return domain.NewNotFoundError("payment", payment.ID)
	}

	if err := updateDebtTx(ctx, tx, debt); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	debt.Version++
	return nil
}

func (r *debtRepository) HasActivePayments(ctx context.Context, debtID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM payments WHERE debt_id = $1 AND status != 'CANCELLED')`
	var has bool
	if err := r.db.QueryRowContext(ctx, query, debtID).Scan(&has); err != nil {
		return false, fmt.Errorf("failed to check payments: %w", err)
	}
	return has, nil
}

func (r *debtRepository) ListByOwner(ctx context.Context, owner uuid.UUID) ([]*domain.Debt, error) {
	query := `SELECT ` + debtColumns + ` FROM debts WHERE owner_id = $1 ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list debts: %w", err)
	}
	return collectDebts(rows)
}

// ListByStatus retrieves an owner's debts in a given status. A Nil owner
// widens the scope to all owners, which the status refresher relies on.
func (r *debtRepository) ListByStatus(ctx context.Context, owner uuid.UUID, status domain.DebtStatus) ([]*domain.Debt, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if owner == uuid.Nil {
		query := `SELECT ` + debtColumns + ` FROM debts WHERE status = $1 ORDER BY created_at`
		rows, err = r.db.QueryContext(ctx, query, string(status))
	} else {
		query := `SELECT ` + debtColumns + ` FROM debts WHERE owner_id = $1 AND status = $2 ORDER BY created_at`
		rows, err = r.db.QueryContext(ctx, query, owner, string(status))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list debts by status: %w", err)
	}
	return collectDebts(rows)
}

const debtUpdateQuery = `
	UPDATE debts
	SET debt_type = $1, principal_units = $2, interest_rate = $3, interest_mode = $4,
	    interest_units = $5, total_units = $6, effective_units = $7, status = $8,
	    due_date = $9, contact_id = $10, account_id = $11, category_id = $12,
	    description = $13, version = version + 1, updated_at = $14
	WHERE id = $15 AND version = $16
`

func debtUpdateArgs(debt *domain.Debt) []any {
	return []any{
		string(debt.DebtType),
		debt.Principal.Units,
		nullableRate(debt.InterestRate),
		string(debt.InterestMode),
		debt.InterestAmount.Units,
		debt.TotalAmount.Units,
		debt.EffectiveAmount.Units,
		string(debt.Status),
		debt.DueDate,
		debt.ContactID,
		debt.AccountID,
		debt.CategoryID,
		debt.Description,
		debt.UpdatedAt,
		debt.ID,
		debt.Version,
	}
}

// updateDebtTx applies the versioned debt update inside an open database
// transaction.
func updateDebtTx(ctx context.Context, tx *sql.Tx, debt *domain.Debt) error {
	result, err := tx.ExecContext(ctx, debtUpdateQuery, debtUpdateArgs(debt)...)
	if err != nil {
		return fmt.Errorf("failed to update debt: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check debt update result: %w", err)
	}
	if rows == 0 {
		return domain.NewConflictError("debt %s was modified concurrently", debt.ID)
	}
	return nil
}

func debtArgs(debt *domain.Debt) []any {
	return []any{
		debt.ID,
		debt.OwnerID,
		string(debt.DebtType),
		debt.Principal.Units,
		debt.Principal.Currency,
		nullableRate(debt.InterestRate),
		string(debt.InterestMode),
		debt.InterestAmount.Units,
		debt.TotalAmount.Units,
		debt.EffectiveAmount.Units,
		string(debt.Status),
		debt.DueDate,
		debt.ContactID,
		debt.AccountID,
		debt.CategoryID,
		debt.Description,
		debt.Version,
		debt.CreatedAt,
		debt.UpdatedAt,
	}
}

func nullableRate(rate *decimal.Decimal) decimal.NullDecimal {
	if rate == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *rate, Valid: true}
}

func collectDebts(rows *sql.Rows) ([]*domain.Debt, error) {
	defer rows.Close()
	var debts []*domain.Debt
	for rows.Next() {
		debt, err := scanDebt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan debt: %w", err)
		}
		debts = append(debts, debt)
	}
	return debts, rows.Err()
}

func scanDebt(row scanner) (*domain.Debt, error) {
	var (
		debt     domain.Debt
		debtType string
		currency string
		rate     decimal.NullDecimal
		mode     string
		status   string
		dueDate  sql.NullTime
		contact  uuid.NullUUID
		account  uuid.NullUUID
		category uuid.NullUUID
	)
	err := row.Scan(
		&debt.ID,
		&debt.OwnerID,
		&debtType,
		&debt.Principal.Units,
		&currency,
		&rate,
		&mode,
		&debt.InterestAmount.Units,
		&debt.TotalAmount.Units,
		&debt.EffectiveAmount.Units,
		&status,
		&dueDate,
		&contact,
		&account,
		&category,
		&debt.Description,
		&debt.Version,
		&debt.CreatedAt,
		&debt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	debt.DebtType = domain.DebtType(debtType)
	debt.InterestMode = domain.InterestMode(mode)
	debt.Status = domain.DebtStatus(status)
	debt.Principal.Currency = currency
	debt.InterestAmount.Currency = currency
	debt.TotalAmount.Currency = currency
	debt.EffectiveAmount.Currency = currency
	if rate.Valid {
		v := rate.Decimal
		debt.InterestRate = &v
	}
	if dueDate.Valid {
		due := dueDate.Time
		debt.DueDate = &due
	}
	debt.ContactID = nullableID(contact)
	debt.AccountID = nullableID(account)
	debt.CategoryID = nullableID(category)
	return &debt, nil
}
