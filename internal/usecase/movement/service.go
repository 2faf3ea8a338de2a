package movement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/centavohq/centavo-backend/internal/domain"
)

// EnvelopeRecomputer re-derives an envelope's spend figures from its
// linked movements. Satisfied by the envelope service.
type EnvelopeRecomputer interface {
	Recompute(ctx context.Context, owner, envelopeID uuid.UUID) (*domain.Envelope, error)
}

// EventPublisher notifies downstream collaborators that a movement linked
// to an envelope changed. Optional; a nil publisher disables events.
type EventPublisher interface {
	MovementChanged(ctx context.Context, owner, envelopeID uuid.UUID) error
}

// Service is the movement ledger: it records single-sided cash events and
// keeps the linked account balance and envelope figures consistent as
// movements are created, edited or deleted.
type Service struct {
	Accounts   domain.AccountRepository
	Movements  domain.MovementRepository
	Envelopes  domain.EnvelopeRepository
	Recomputer EnvelopeRecomputer
	Events     EventPublisher
	Now        func() time.Time
}

// NewService creates a movement Service with a real clock.
func NewService(
	accounts domain.AccountRepository,
	movements domain.MovementRepository,
	envelopes domain.EnvelopeRepository,
	recomputer EnvelopeRecomputer,
	events EventPublisher,
) *Service {
	return &Service{
		Accounts:   accounts,
		Movements:  movements,
		Envelopes:  envelopes,
		Recomputer: recomputer,
		Events:     events,
		Now:        time.Now,
	}
}

// CreateInput carries the fields for recording a movement.
type CreateInput struct {
	OwnerID     uuid.UUID
	Kind        domain.MovementKind
	Amount      domain.Money
	CategoryID  uuid.UUID
	AccountID   *uuid.UUID
	ContactID   *uuid.UUID
	EnvelopeID  *uuid.UUID
	Date        time.Time // zero means "now"
	Description string
}

// Create records a movement. Expense, income and gift settle immediately:
// the effective amount is set equal to the face value and the settlement
// status becomes paid. When an account is linked, its balance absorbs the
// movement's signed delta in the same unit of work as the movement write.
func (s *Service) Create(ctx context.Context, input CreateInput) (*domain.Movement, error) {
	if err := input.Amount.Validate(); err != nil {
		return nil, err
	}

	now := s.Now()
	date := input.Date
	if date.IsZero() {
		date = now
	}

	movement := &domain.Movement{
		ID:              uuid.New(),
		OwnerID:         input.OwnerID,
		Kind:            input.Kind,
		TotalAmount:     input.Amount,
		EffectiveAmount: input.Amount,
		CategoryID:      input.CategoryID,
		AccountID:       input.AccountID,
		ContactID:       input.ContactID,
		EnvelopeID:      input.EnvelopeID,
		Date:            date,
		Description:     input.Description,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := movement.Validate(); err != nil {
		return nil, err
	}

	if input.EnvelopeID != nil {
		if _, err := s.checkEnvelope(ctx, input.OwnerID, *input.EnvelopeID, input.Amount.Currency); err != nil {
			return nil, err
		}
	}

	var updated *domain.Account
	if input.AccountID != nil {
		account, err := s.checkAccount(ctx, input.OwnerID, *input.AccountID, input.Amount.Currency)
		if err != nil {
			return nil, err
		}
		mutated := *account
		if err := mutated.ApplyDelta(movement.BalanceDelta(), now); err != nil {
			return nil, err
		}
		updated = &mutated
	}

	if err := s.Movements.Create(ctx, movement, updated); err != nil {
		return nil, fmt.Errorf("create movement: %w", err)
	}

	s.refreshEnvelope(ctx, movement.OwnerID, movement.EnvelopeID)
	return movement, nil
}

// UpdateInput is a partial patch for a movement. Nil fields are left
// untouched. EnvelopeID relinks the movement to another envelope;
// ClearEnvelope severs the link instead.
type UpdateInput struct {
	MovementID    uuid.UUID
	OwnerID       uuid.UUID
	TotalAmount   *domain.Money
	Description   *string
	Date          *time.Time
	CategoryID    *uuid.UUID
	EnvelopeID    *uuid.UUID
	ClearEnvelope bool
}

// Update patches a movement. When the face value changes after the account
// balance was already applied, only the delta between old and new effect
// is applied to the account: the old effect is undone and the new one
// applied in a single signed adjustment, so nothing is double-counted.
// Relinking to another envelope re-aggregates both the envelope left
// behind and the one newly linked.
func (s *Service) Update(ctx context.Context, input UpdateInput) (*domain.Movement, error) {
	existing, err := s.getOwned(ctx, input.OwnerID, input.MovementID)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	patched := *existing
	patched.UpdatedAt = now

	if input.Description != nil {
		patched.Description = *input.Description
	}
	if input.Date != nil {
		patched.Date = *input.Date
	}
	if input.CategoryID != nil {
		patched.CategoryID = *input.CategoryID
	}

	amountChanged := false
	if input.TotalAmount != nil && !input.TotalAmount.Equal(existing.TotalAmount) {
		if !input.TotalAmount.SameCurrency(existing.TotalAmount) {
			return nil, domain.NewValidationError(
				"movement currency cannot change from %s to %s",
				existing.TotalAmount.Currency, input.TotalAmount.Currency)
		}
		if err := input.TotalAmount.Validate(); err != nil {
			return nil, err
		}
		patched.TotalAmount = *input.TotalAmount
		patched.EffectiveAmount = *input.TotalAmount
		amountChanged = true
	}

	envelopeChanged := false
	if input.ClearEnvelope {
		if existing.EnvelopeID != nil {
			patched.EnvelopeID = nil
			envelopeChanged = true
		}
	} else if input.EnvelopeID != nil &&
		(existing.EnvelopeID == nil || *existing.EnvelopeID != *input.EnvelopeID) {
		if _, err := s.checkEnvelope(ctx, input.OwnerID, *input.EnvelopeID, patched.TotalAmount.Currency); err != nil {
			return nil, err
		}
		envelopeID := *input.EnvelopeID
		patched.EnvelopeID = &envelopeID
		envelopeChanged = true
	}

	if err := patched.Validate(); err != nil {
		return nil, err
	}

	var updated *domain.Account
	if amountChanged && existing.AccountID != nil {
		account, err := s.checkAccount(ctx, input.OwnerID, *existing.AccountID, existing.TotalAmount.Currency)
		if err != nil {
			return nil, err
		}
		delta := domain.NewMoney(
			patched.BalanceDelta().Units-existing.BalanceDelta().Units,
			existing.TotalAmount.Currency,
		)
		mutated := *account
		if err := mutated.ApplyDelta(delta, now); err != nil {
			return nil, err
		}
		updated = &mutated
	}

	if err := s.Movements.Update(ctx, &patched, updated); err != nil {
		return nil, fmt.Errorf("update movement: %w", err)
	}

	s.refreshEnvelope(ctx, input.OwnerID, patched.EnvelopeID)
	if envelopeChanged {
		s.refreshEnvelope(ctx, input.OwnerID, existing.EnvelopeID)
	}
	return &patched, nil
}

// Delete removes a movement, reversing its account-balance effect in the
// same unit of work as the removal.
func (s *Service) Delete(ctx context.Context, owner, movementID uuid.UUID) error {
	existing, err := s.getOwned(ctx, owner, movementID)
	if err != nil {
		return err
	}

	var updated *domain.Account
	if existing.AccountID != nil {
		account, err := s.checkAccount(ctx, owner, *existing.AccountID, existing.TotalAmount.Currency)
		if err != nil {
			return err
		}
		mutated := *account
		if err := mutated.ApplyDelta(existing.BalanceDelta().Neg(), s.Now()); err != nil {
			return err
		}
		updated = &mutated
	}

	if err := s.Movements.Delete(ctx, existing, updated); err != nil {
		return fmt.Errorf("delete movement: %w", err)
	}

	s.refreshEnvelope(ctx, existing.OwnerID, existing.EnvelopeID)
	return nil
}

// Get retrieves a movement after re-checking ownership.
func (s *Service) Get(ctx context.Context, owner, movementID uuid.UUID) (*domain.Movement, error) {
	return s.getOwned(ctx, owner, movementID)
}

func (s *Service) getOwned(ctx context.Context, owner, movementID uuid.UUID) (*domain.Movement, error) {
	movement, err := s.Movements.GetByID(ctx, movementID)
	if err != nil {
		return nil, err
	}
	if !movement.OwnedBy(owner) {
		return nil, domain.NewAuthorizationError("movement", movementID)
	}
	return movement, nil
}

func (s *Service) checkAccount(ctx context.Context, owner, accountID uuid.UUID, currency string) (*domain.Account, error) {
	account, err := s.Accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !account.OwnedBy(owner) {
		return nil, domain.NewAuthorizationError("account", accountID)
	}
	if account.Currency != currency {
		return nil, domain.NewValidationError(
			"movement currency %s does not match account currency %s", currency, account.Currency)
	}
	return account, nil
}

func (s *Service) checkEnvelope(ctx context.Context, owner, envelopeID uuid.UUID, currency string) (*domain.Envelope, error) {
	envelope, err := s.Envelopes.GetByID(ctx, envelopeID)
	if err != nil {
		return nil, err
	}
	if !envelope.OwnedBy(owner) {
		return nil, domain.NewAuthorizationError("envelope", envelopeID)
	}
	if envelope.Currency != currency {
		return nil, domain.NewValidationError(
			"movement currency %s does not match envelope currency %s", currency, envelope.Currency)
	}
	return envelope, nil
}

// refreshEnvelope re-aggregates one envelope after a movement mutation.
// The mutation itself has already committed; a failed recompute is logged
// and retried by the worker on the published event, never surfaced as a
// failure of the caller's call.
func (s *Service) refreshEnvelope(ctx context.Context, owner uuid.UUID, envelopeID *uuid.UUID) {
	if envelopeID == nil {
		return
	}
	if s.Recomputer != nil {
		if _, err := s.Recomputer.Recompute(ctx, owner, *envelopeID); err != nil {
			slog.WarnContext(ctx, "envelope recompute failed",
				"envelope_id", *envelopeID, "error", err)
		}
	}
	if s.Events != nil {
		if err := s.Events.MovementChanged(ctx, owner, *envelopeID); err != nil {
			slog.WarnContext(ctx, "publish movement-changed event failed",
				"envelope_id", *envelopeID, "error", err)
		}
	}
}
