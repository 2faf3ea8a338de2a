package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DebtType distinguishes who owes whom.
type DebtType string

const (
	DebtLoanGiven  DebtType = "LOAN_GIVEN"
	DebtLoanTaken  DebtType = "LOAN_TAKEN"
	DebtReceivable DebtType = "RECEIVABLE"
)

// InterestMode selects how interest is computed. Simple interest is a flat
// one-shot percentage of the principal, not prorated by elapsed time; the
// engine deliberately carries no compounding or proration policy.
type InterestMode string

const (
	InterestNone   InterestMode = "NONE"
	InterestSimple InterestMode = "SIMPLE"
)

// DebtStatus is the debt lifecycle classification. It is derived purely
// from the remaining amount and the due date; see DebtStatusFor.
type DebtStatus string

const (
	DebtPending DebtStatus = "PENDING"
	DebtOverdue DebtStatus = "OVERDUE"
	DebtPaid    DebtStatus = "PAID"
)

// Debt is a two-party payable or receivable settled over one or more
// payments. InterestAmount and TotalAmount are recomputed from principal
// and rate whenever either changes (Recompute); EffectiveAmount is the flat
// sum of confirmed payment amounts. Status is persisted for querying but
// must always agree with StatusAt.
type Debt struct {
	ID              uuid.UUID
	OwnerID         uuid.UUID
	DebtType        DebtType
	Principal       Money
	InterestRate    *decimal.Decimal // percent, nil when no interest applies
	InterestMode    InterestMode
	InterestAmount  Money
	TotalAmount     Money
	EffectiveAmount Money
	DueDate         *time.Time
	ContactID       *uuid.UUID
	AccountID       *uuid.UUID
	CategoryID      *uuid.UUID
	Description     string
	Status          DebtStatus
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Recompute refreshes InterestAmount and TotalAmount from the principal and
// rate. Called on creation and whenever principal or rate change, so the
// totals are never stale.
func (d *Debt) Recompute() {
	if d.InterestMode == InterestSimple && d.InterestRate != nil {
		d.InterestAmount = d.Principal.Percent(*d.InterestRate)
	} else {
		d.InterestAmount = Zero(d.Principal.Currency)
	}
	d.TotalAmount = Money{
		Units:    d.Principal.Units + d.InterestAmount.Units,
		Currency: d.Principal.Currency,
	}
}

// RemainingAmount is the unpaid portion of the total, floored at zero.
func (d *Debt) RemainingAmount() Money {
	remaining := d.TotalAmount.Units - d.EffectiveAmount.Units
	if remaining < 0 {
		remaining = 0
	}
	return Money{Units: remaining, Currency: d.TotalAmount.Currency}
}

// DebtStatusFor derives the lifecycle status: paid iff nothing remains,
// overdue iff something remains past the due date, pending otherwise.
func DebtStatusFor(remaining Money, dueDate *time.Time, now time.Time) DebtStatus {
	if !remaining.IsPositive() {
		return DebtPaid
	}
	if dueDate != nil && now.After(*dueDate) {
		return DebtOverdue
	}
	return DebtPending
}

// StatusAt derives the debt status at the given instant.
func (d *Debt) StatusAt(now time.Time) DebtStatus {
	return DebtStatusFor(d.RemainingAmount(), d.DueDate, now)
}

// RefreshStatus re-derives and stores the status. Returns true when the
// stored value changed. Idempotent for a fixed now.
func (d *Debt) RefreshStatus(now time.Time) bool {
	derived := d.StatusAt(now)
	if derived == d.Status {
		return false
	}
	d.Status = derived
	return true
}

// IsDueSoon reports whether the debt still has an outstanding amount, is
// not yet overdue, and falls due within the lookahead window.
func (d *Debt) IsDueSoon(now time.Time, window time.Duration) bool {
	if d.DueDate == nil || !d.RemainingAmount().IsPositive() {
		return false
	}
	if now.After(*d.DueDate) {
		return false
	}
	return d.DueDate.Sub(now) <= window
}

// OwnedBy reports whether the debt belongs to the given owner.
func (d *Debt) OwnedBy(owner uuid.UUID) bool {
	return d.OwnerID == owner
}

// Validate ensures the debt adheres to domain rules.
func (d *Debt) Validate() error {
	switch d.DebtType {
	case DebtLoanGiven, DebtLoanTaken, DebtReceivable:
	default:
		return NewValidationError("unknown debt type %q", d.DebtType)
	}
	if err := d.Principal.Validate(); err != nil {
		return err
	}
	switch d.InterestMode {
	case InterestNone, InterestSimple:
	default:
		return NewValidationError("unknown interest mode %q", d.InterestMode)
	}
	if d.InterestRate != nil && d.InterestRate.IsNegative() {
		return NewValidationError("interest rate cannot be negative")
	}
	if !d.TotalAmount.SameCurrency(d.Principal) || !d.EffectiveAmount.SameCurrency(d.Principal) {
		return NewValidationError("debt amounts must share the principal currency %s", d.Principal.Currency)
	}
	if d.EffectiveAmount.IsNegative() {
		return NewValidationError("effective amount cannot be negative")
	}
	return nil
}
