package domain

import (
	"time"

	"github.com/google/uuid"
)

// MovementKind tags the variants of the movement union. Expense, income and
// gift share one record and are dispatched by switching on the kind; debts
// carry enough extra state to be modelled separately (see Debt).
type MovementKind string

const (
	MovementExpense MovementKind = "EXPENSE"
	MovementIncome  MovementKind = "INCOME"
	MovementGift    MovementKind = "GIFT"
)

// FlowDirection is the side of the ledger a movement lands on.
type FlowDirection string

const (
	FlowOutflow FlowDirection = "OUTFLOW"
	FlowInflow  FlowDirection = "INFLOW"
)

// SettlementStatus classifies how much of a movement's face value has been
// settled. It is always a pure function of (effective, total); see
// SettlementStatusFor.
type SettlementStatus string

const (
	SettlementUnpaid  SettlementStatus = "UNPAID"
	SettlementPartial SettlementStatus = "PARTIAL"
	SettlementPaid    SettlementStatus = "PAID"
)

// Movement records a single-sided cash event against an account and/or a
// category and budget envelope. TotalAmount is the declared face value;
// EffectiveAmount is the settled portion. Expense, income and gift settle
// immediately, so for them EffectiveAmount equals TotalAmount from
// creation on.
type Movement struct {
	ID              uuid.UUID
	OwnerID         uuid.UUID
	Kind            MovementKind
	TotalAmount     Money
	EffectiveAmount Money
	CategoryID      uuid.UUID
	AccountID       *uuid.UUID
	ContactID       *uuid.UUID
	EnvelopeID      *uuid.UUID
	Date            time.Time
	Description     string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// SettlementStatusFor derives the settlement status from the settled and
// declared amounts: paid iff effective >= total, unpaid iff effective == 0,
// partial in between.
func SettlementStatusFor(effective, total Money) SettlementStatus {
	switch {
	case effective.Units >= total.Units:
		return SettlementPaid
	case effective.Units <= 0:
		return SettlementUnpaid
	default:
		return SettlementPartial
	}
}

// Status derives the movement's settlement status.
func (m *Movement) Status() SettlementStatus {
	return SettlementStatusFor(m.EffectiveAmount, m.TotalAmount)
}

// RemainingAmount is the unsettled portion of the face value, floored at
// zero.
func (m *Movement) RemainingAmount() Money {
	remaining := m.TotalAmount.Units - m.EffectiveAmount.Units
	if remaining < 0 {
		remaining = 0
	}
	return Money{Units: remaining, Currency: m.TotalAmount.Currency}
}

// Direction reports which side of the ledger the movement lands on.
// Expenses and gifts are outflows; income is an inflow.
func (m *Movement) Direction() FlowDirection {
	switch m.Kind {
	case MovementIncome:
		return FlowInflow
	default:
		return FlowOutflow
	}
}

// BalanceDelta is the signed effect of this movement on its linked
// account's balance: -total for outflows, +total for income.
func (m *Movement) BalanceDelta() Money {
	if m.Direction() == FlowOutflow {
		return m.TotalAmount.Neg()
	}
	return m.TotalAmount
}

// OwnedBy reports whether the movement belongs to the given owner.
func (m *Movement) OwnedBy(owner uuid.UUID) bool {
	return m.OwnerID == owner
}

// Validate ensures the movement adheres to domain rules.
func (m *Movement) Validate() error {
	switch m.Kind {
	case MovementExpense, MovementIncome, MovementGift:
	default:
		return NewValidationError("unknown movement kind %q", m.Kind)
	}
	if err := m.TotalAmount.Validate(); err != nil {
		return err
	}
	if !m.EffectiveAmount.SameCurrency(m.TotalAmount) {
		return NewValidationError("effective amount currency %s does not match total amount currency %s",
			m.EffectiveAmount.Currency, m.TotalAmount.Currency)
	}
	if m.EffectiveAmount.Units > m.TotalAmount.Units {
		return NewValidationError("effective amount %s exceeds total amount %s",
			m.EffectiveAmount, m.TotalAmount)
	}
	if m.CategoryID == uuid.Nil {
		return NewValidationError("movement must reference a category")
	}
	if m.Date.IsZero() {
		return NewValidationError("movement date cannot be zero")
	}
	return nil
}
