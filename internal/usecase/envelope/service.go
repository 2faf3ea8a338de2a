package envelope

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/centavohq/centavo-backend/internal/domain"
)

// Service is the budget envelope aggregator: it manages the envelope
// lifecycle and keeps the derived spend figures consistent with the live
// set of linked movements.
type Service struct {
	Envelopes domain.EnvelopeRepository
	Movements domain.MovementRepository
	Now       func() time.Time
}

// NewService creates an envelope Service with a real clock.
func NewService(envelopes domain.EnvelopeRepository, movements domain.MovementRepository) *Service {
	return &Service{
		Envelopes: envelopes,
		Movements: movements,
		Now:       time.Now,
	}
}

// CreateInput carries the fields for planning an envelope.
type CreateInput struct {
	OwnerID       uuid.UUID
	Name          string
	Currency      string
	PlannedBudget *domain.Money // nil means unknown budget
	StartDate     time.Time
	EndDate       *time.Time
}

// Create plans a new envelope with zeroed spend figures.
func (s *Service) Create(ctx context.Context, input CreateInput) (*domain.Envelope, error) {
	now := s.Now()
	start := input.StartDate
	if start.IsZero() {
		start = now
	}

	envelope := &domain.Envelope{
		ID:            uuid.New(),
		OwnerID:       input.OwnerID,
		Name:          input.Name,
		Currency:      input.Currency,
		PlannedBudget: input.PlannedBudget,
		SpentAmount:   domain.Zero(input.Currency),
		InflowAmount:  domain.Zero(input.Currency),
		Status:        domain.EnvelopePlanned,
		StartDate:     start,
		EndDate:       input.EndDate,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := envelope.Validate(); err != nil {
		return nil, err
	}
	if err := s.Envelopes.Create(ctx, envelope); err != nil {
		return nil, fmt.Errorf("create envelope: %w", err)
	}
	return envelope, nil
}

// UpdateInput is a partial patch for an envelope. Nil fields are left
// untouched.
type UpdateInput struct {
	EnvelopeID  uuid.UUID
	OwnerID     uuid.UUID
	Name        *string
	Budget      *domain.Money
	ClearBudget bool // true drops the planned budget entirely
	EndDate     *time.Time
}

// Update patches an envelope's plan. Spend figures are untouched; they
// only change through Recompute.
func (s *Service) Update(ctx context.Context, input UpdateInput) (*domain.Envelope, error) {
	envelope, err := s.getOwned(ctx, input.OwnerID, input.EnvelopeID)
	if err != nil {
		return nil, err
	}

	updated := *envelope
	updated.UpdatedAt = s.Now()

	if input.Name != nil {
		updated.Name = *input.Name
	}
	if input.ClearBudget {
		updated.PlannedBudget = nil
	} else if input.Budget != nil {
		budget := *input.Budget
		updated.PlannedBudget = &budget
	}
	if input.EndDate != nil {
		end := *input.EndDate
		updated.EndDate = &end
	}

	if err := updated.Validate(); err != nil {
		return nil, err
	}
	if err := s.Envelopes.Update(ctx, &updated); err != nil {
		return nil, fmt.Errorf("update envelope: %w", err)
	}
	return &updated, nil
}

// Start activates a planned envelope. Only planned and already-active
// envelopes can start; a finished envelope stays finished.
func (s *Service) Start(ctx context.Context, owner, envelopeID uuid.UUID) (*domain.Envelope, error) {
	return s.setStatus(ctx, owner, envelopeID, domain.EnvelopeActive)
}

// Complete finishes an envelope. Completing an already-completed envelope
// is a no-op rather than an error.
func (s *Service) Complete(ctx context.Context, owner, envelopeID uuid.UUID) (*domain.Envelope, error) {
	return s.setStatus(ctx, owner, envelopeID, domain.EnvelopeCompleted)
}

// Cancel abandons an envelope. Cancelling an already-cancelled envelope
// is a no-op rather than an error.
func (s *Service) Cancel(ctx context.Context, owner, envelopeID uuid.UUID) (*domain.Envelope, error) {
	return s.setStatus(ctx, owner, envelopeID, domain.EnvelopeCancelled)
}

func (s *Service) setStatus(ctx context.Context, owner, envelopeID uuid.UUID, target domain.EnvelopeStatus) (*domain.Envelope, error) {
	envelope, err := s.getOwned(ctx, owner, envelopeID)
	if err != nil {
		return nil, err
	}
	if envelope.Status == target {
		return envelope, nil
	}
	if target == domain.EnvelopeActive &&
		(envelope.Status == domain.EnvelopeCompleted || envelope.Status == domain.EnvelopeCancelled) {
		return nil, domain.NewConflictError("envelope %s is %s and cannot be restarted",
			envelope.ID, envelope.Status)
	}

	updated := *envelope
	updated.Status = target
	updated.UpdatedAt = s.Now()
	if err := s.Envelopes.Update(ctx, &updated); err != nil {
		return nil, fmt.Errorf("update envelope status: %w", err)
	}
	return &updated, nil
}

// Delete removes an envelope. Linked movements survive; the link is
// severed at the persistence layer.
func (s *Service) Delete(ctx context.Context, owner, envelopeID uuid.UUID) error {
	envelope, err := s.getOwned(ctx, owner, envelopeID)
	if err != nil {
		return err
	}
	if err := s.Envelopes.Delete(ctx, envelope.ID); err != nil {
		return fmt.Errorf("delete envelope: %w", err)
	}
	return nil
}

// Get retrieves an envelope after re-checking ownership.
func (s *Service) Get(ctx context.Context, owner, envelopeID uuid.UUID) (*domain.Envelope, error) {
	return s.getOwned(ctx, owner, envelopeID)
}

// Recompute re-derives the spend figures from the live set of linked
// movements: outflow settled amounts sum into SpentAmount, inflow settled
// amounts into InflowAmount. Running it twice in a row changes nothing,
// so it doubles as a repair operation after ad hoc data fixes.
func (s *Service) Recompute(ctx context.Context, owner, envelopeID uuid.UUID) (*domain.Envelope, error) {
	envelope, err := s.getOwned(ctx, owner, envelopeID)
	if err != nil {
		return nil, err
	}
	movements, err := s.Movements.ListByEnvelope(ctx, envelope.ID)
	if err != nil {
		return nil, fmt.Errorf("list envelope movements: %w", err)
	}

	var spent, inflow int64
	for _, mv := range movements {
		switch mv.Direction() {
		case domain.FlowOutflow:
			spent += mv.EffectiveAmount.Units
		case domain.FlowInflow:
			inflow += mv.EffectiveAmount.Units
		}
	}

	updated := *envelope
	updated.SpentAmount = domain.NewMoney(spent, envelope.Currency)
	updated.InflowAmount = domain.NewMoney(inflow, envelope.Currency)
	if updated.SpentAmount.Equal(envelope.SpentAmount) && updated.InflowAmount.Equal(envelope.InflowAmount) {
		return envelope, nil
	}

	updated.UpdatedAt = s.Now()
	if err := s.Envelopes.Update(ctx, &updated); err != nil {
		return nil, fmt.Errorf("store recomputed envelope: %w", err)
	}
	return &updated, nil
}

// ListByOwner returns all of the owner's envelopes.
func (s *Service) ListByOwner(ctx context.Context, owner uuid.UUID) ([]*domain.Envelope, error) {
	envelopes, err := s.Envelopes.ListByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list envelopes: %w", err)
	}
	return envelopes, nil
}

// ListNeedingAttention returns the owner's envelopes that are overdue or
// over budget.
func (s *Service) ListNeedingAttention(ctx context.Context, owner uuid.UUID) ([]*domain.Envelope, error) {
	envelopes, err := s.ListByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	now := s.Now()
	var flagged []*domain.Envelope
	for _, e := range envelopes {
		if e.NeedsAttention(now) {
			flagged = append(flagged, e)
		}
	}
	return flagged, nil
}

func (s *Service) getOwned(ctx context.Context, owner, envelopeID uuid.UUID) (*domain.Envelope, error) {
	envelope, err := s.Envelopes.GetByID(ctx, envelopeID)
	if err != nil {
		return nil, err
	}
	if !envelope.OwnedBy(owner) {
		return nil, domain.NewAuthorizationError("envelope", envelopeID)
	}
	return envelope, nil
}
