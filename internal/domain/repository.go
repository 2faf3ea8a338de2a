package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository interfaces follow two rules. First, every multi-entity
// mutation (movement + account balance, payment + debt, transfer + two
// accounts) is a single method so the adapter can commit it as one
// all-or-nothing unit. Second, every persisted write of a versioned entity
// carries the version the caller computed against; a stale version must
// fail with a ConflictError rather than silently overwrite. On success the
// implementation bumps the in-memory Version of the entities it persisted.

// AccountRepository defines persistence operations for accounts.
type AccountRepository interface {
	// GetByID retrieves an account by its ID.
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)

	// Create creates a new account.
	Create(ctx context.Context, account *Account) error

	// Update persists account fields and balance with a version check.
	Update(ctx context.Context, account *Account) error

	// Delete removes an account. The service layer refuses deletion while
	// the account has movement or transfer history.
	Delete(ctx context.Context, id uuid.UUID) error

	// HasHistory reports whether any movement or transfer references the
	// account.
	HasHistory(ctx context.Context, id uuid.UUID) (bool, error)

	// ListByOwner retrieves all accounts belonging to an owner.
	ListByOwner(ctx context.Context, owner uuid.UUID) ([]*Account, error)
}

// MovementRepository defines persistence operations for movements. The
// account parameter, when non-nil, carries the post-delta balance to be
// persisted in the same unit of work as the movement write.
type MovementRepository interface {
	// GetByID retrieves a movement by its ID.
	GetByID(ctx context.Context, id uuid.UUID) (*Movement, error)

	// Create persists a new movement and, when account is non-nil, its
	// balance effect, atomically.
	Create(ctx context.Context, movement *Movement, account *Account) error

	// Update persists movement changes and, when account is non-nil, the
	// balance delta effect, atomically.
	Update(ctx context.Context, movement *Movement, account *Account) error

	// Delete removes the movement and, when account is non-nil, persists
	// the reversed balance effect, atomically.
	Delete(ctx context.Context, movement *Movement, account *Account) error

	// ListByEnvelope retrieves all movements linked to an envelope.
	ListByEnvelope(ctx context.Context, envelopeID uuid.UUID) ([]*Movement, error)
}

// DebtRepository defines persistence operations for debts, including the
// atomic payment writes that touch the debt and the payment together.
type DebtRepository interface {
	// GetByID retrieves a debt by its ID.
	GetByID(ctx context.Context, id uuid.UUID) (*Debt, error)

	// Create creates a new debt.
	Create(ctx context.Context, debt *Debt) error

	// Update persists debt fields with a version check.
	Update(ctx context.Context, debt *Debt) error

	// Delete removes a debt. The service layer refuses deletion while
	// dependent payments exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// ApplyPayment persists a new payment and the recomputed debt in one
	// unit of work, with a version check on the debt.
	ApplyPayment(ctx context.Context, debt *Debt, payment *Payment) error

	// CancelPayment persists the cancelled payment and the recomputed debt
	// in one unit of work, with a version check on the debt.
	CancelPayment(ctx context.Context, debt *Debt, payment *Payment) error

	// HasActivePayments reports whether any pending or confirmed payment
	// references the debt.
	HasActivePayments(ctx context.Context, debtID uuid.UUID) (bool, error)

	// ListByOwner retrieves all debts belonging to an owner.
	ListByOwner(ctx context.Context, owner uuid.UUID) ([]*Debt, error)

	// ListByStatus retrieves debts with the given stored status. A Nil
	// owner widens the scope to every owner (batch refresh).
	ListByStatus(ctx context.Context, owner uuid.UUID, status DebtStatus) ([]*Debt, error)
}

// PaymentRepository defines read operations for payments. All payment
// writes go through DebtRepository so they stay atomic with the debt.
type PaymentRepository interface {
	// GetByID retrieves a payment by its ID.
	GetByID(ctx context.Context, id uuid.UUID) (*Payment, error)

	// ListConfirmedByDebt retrieves the confirmed payments of a debt.
	ListConfirmedByDebt(ctx context.Context, debtID uuid.UUID) ([]*Payment, error)
}

// TransferRepository defines persistence operations for transfers. Both
// balance-mutating methods receive the two post-delta accounts and must
// lock the underlying rows in a fixed global order (by account id) to
// avoid deadlock between opposing transfers.
type TransferRepository interface {
	// GetByID retrieves a transfer by its ID.
	GetByID(ctx context.Context, id uuid.UUID) (*Transfer, error)

	// CreateExecuted persists the transfer and both account balances as a
	// single all-or-nothing unit, with version checks on both accounts.
	CreateExecuted(ctx context.Context, transfer *Transfer, source, dest *Account) error

	// MarkCancelled persists the cancelled flag and both reversed account
	// balances as a single all-or-nothing unit.
	MarkCancelled(ctx context.Context, transfer *Transfer, source, dest *Account) error

	// ListByAccount retrieves transfers touching the account within the
	// date range, either side.
	ListByAccount(ctx context.Context, accountID uuid.UUID, from, to time.Time) ([]*Transfer, error)
}

// EnvelopeRepository defines persistence operations for budget envelopes.
type EnvelopeRepository interface {
	// GetByID retrieves an envelope by its ID.
	GetByID(ctx context.Context, id uuid.UUID) (*Envelope, error)

	// Create creates a new envelope.
	Create(ctx context.Context, envelope *Envelope) error

	// Update persists envelope fields and derived caches with a version
	// check.
	Update(ctx context.Context, envelope *Envelope) error

	// Delete removes an envelope. Movements that referenced it keep
	// existing with the link cleared.
	Delete(ctx context.Context, id uuid.UUID) error

	// ListByOwner retrieves all envelopes belonging to an owner.
	ListByOwner(ctx context.Context, owner uuid.UUID) ([]*Envelope, error)
}
