package domain

import (
	"time"

	"github.com/google/uuid"
)

// AccountType classifies an account for display and reporting. The engine
// treats all types identically.
type AccountType string

const (
	AccountTypePrincipal   AccountType = "PRINCIPAL"
	AccountTypeSavings     AccountType = "SAVINGS"
	AccountTypeMobileMoney AccountType = "MOBILE_MONEY"
	AccountTypeCash        AccountType = "CASH"
	AccountTypeOther       AccountType = "OTHER"
)

// Account represents a single-currency money holding. Its balance is
// mutated only through ApplyDelta, so the invariant "balance == initial
// balance + sum of all signed deltas ever applied" holds by construction.
// Version backs the optimistic-concurrency check performed on every
// persisted balance change.
type Account struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	Name        string
	AccountType AccountType
	Currency    string
	Balance     Money
	Active      bool
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate ensures the account adheres to domain rules.
func (a *Account) Validate() error {
	if a.Name == "" {
		return NewValidationError("account name cannot be empty")
	}
	switch a.AccountType {
	case AccountTypePrincipal, AccountTypeSavings, AccountTypeMobileMoney, AccountTypeCash, AccountTypeOther:
	default:
		return NewValidationError("unknown account type %q", a.AccountType)
	}
	if a.Currency == "" {
		return NewValidationError("account currency cannot be empty")
	}
	if a.Balance.Currency != a.Currency {
		return NewValidationError("account balance currency %s does not match account currency %s",
			a.Balance.Currency, a.Currency)
	}
	return nil
}

// ApplyDelta adds a signed delta to the balance and stamps the modification
// time. Every balance change in the engine (movements, transfers and their
// reversals) funnels through this single operation. A negative resulting
// balance is permitted (flagged via IsOverdrawn, never prevented).
func (a *Account) ApplyDelta(delta Money, now time.Time) error {
	if delta.Currency != a.Currency {
		return NewValidationError("delta currency %s does not match account currency %s",
			delta.Currency, a.Currency)
	}
	a.Balance.Units += delta.Units
	a.Balance.Currency = a.Currency
	a.UpdatedAt = now
	return nil
}

// IsOverdrawn reports whether the balance has gone negative.
func (a *Account) IsOverdrawn() bool {
	return a.Balance.IsNegative()
}

// OwnedBy reports whether the account belongs to the given owner.
func (a *Account) OwnedBy(owner uuid.UUID) bool {
	return a.OwnerID == owner
}
