package domain

import (
	"time"

	"github.com/google/uuid"
)

// Transfer is an atomic balance movement between two accounts of the same
// currency. It is created in an already-executed state (both balances are
// mutated in the same unit of work that persists the record) and supports
// exactly one reversal via the cancelled flag.
type Transfer struct {
	ID              uuid.UUID
	OwnerID         uuid.UUID
	SourceAccountID uuid.UUID
	DestAccountID   uuid.UUID
	Amount          Money
	Date            time.Time
	Note            string
	Cancelled       bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OwnedBy reports whether the transfer belongs to the given owner.
func (t *Transfer) OwnedBy(owner uuid.UUID) bool {
	return t.OwnerID == owner
}

// Validate ensures the transfer record adheres to domain rules. The
// balance-level rules (ownership, currency match, sufficient funds) are
// enforced by the transfer service, which sees both accounts.
func (t *Transfer) Validate() error {
	if t.SourceAccountID == uuid.Nil || t.DestAccountID == uuid.Nil {
		return NewValidationError("transfer must reference a source and a destination account")
	}
	if t.SourceAccountID == t.DestAccountID {
		return NewValidationError("source and destination account must differ")
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if t.Date.IsZero() {
		return NewValidationError("transfer date cannot be zero")
	}
	return nil
}
