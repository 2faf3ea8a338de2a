package domain

import (
	"time"

	"github.com/google/uuid"
)

// EnvelopeStatus is the envelope lifecycle state.
type EnvelopeStatus string

const (
	EnvelopePlanned   EnvelopeStatus = "PLANNED"
	EnvelopeActive    EnvelopeStatus = "ACTIVE"
	EnvelopeCompleted EnvelopeStatus = "COMPLETED"
	EnvelopeCancelled EnvelopeStatus = "CANCELLED"
)

// Envelope is a planned-expense bucket aggregating linked movements.
// SpentAmount and InflowAmount are derived caches recomputed from the live
// set of linked movements, never independent sources of truth. A nil
// PlannedBudget means "unknown budget": spend is tracked for information
// only and no overrun is computed.
type Envelope struct {
	ID            uuid.UUID
	OwnerID       uuid.UUID
	Name          string
	Currency      string
	PlannedBudget *Money
	SpentAmount   Money
	InflowAmount  Money
	Status        EnvelopeStatus
	StartDate     time.Time
	EndDate       *time.Time
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsOverBudget reports whether the settled outflow exceeds the planned
// budget. Always false when the budget is unknown.
func (e *Envelope) IsOverBudget() bool {
	if e.PlannedBudget == nil {
		return false
	}
	return e.PlannedBudget.LessThan(e.SpentAmount)
}

// IsOverdueAt reports whether the envelope's end date has passed without
// the envelope being completed.
func (e *Envelope) IsOverdueAt(now time.Time) bool {
	if e.EndDate == nil || e.Status == EnvelopeCompleted {
		return false
	}
	return e.EndDate.Before(now)
}

// NeedsAttention reports whether the envelope is overdue or over budget.
// Completed and cancelled envelopes never need attention.
func (e *Envelope) NeedsAttention(now time.Time) bool {
	if e.Status == EnvelopeCompleted || e.Status == EnvelopeCancelled {
		return false
	}
	return e.IsOverdueAt(now) || e.IsOverBudget()
}

// NetSpent is the settled outflow netted against linked inflows. Computed
// only on request; SpentAmount itself never embeds inflows.
func (e *Envelope) NetSpent() Money {
	return Money{Units: e.SpentAmount.Units - e.InflowAmount.Units, Currency: e.Currency}
}

// OwnedBy reports whether the envelope belongs to the given owner.
func (e *Envelope) OwnedBy(owner uuid.UUID) bool {
	return e.OwnerID == owner
}

// Validate ensures the envelope adheres to domain rules.
func (e *Envelope) Validate() error {
	if e.Name == "" {
		return NewValidationError("envelope name cannot be empty")
	}
	if e.Currency == "" {
		return NewValidationError("envelope currency cannot be empty")
	}
	if e.PlannedBudget != nil {
		if err := e.PlannedBudget.Validate(); err != nil {
			return err
		}
		if e.PlannedBudget.Currency != e.Currency {
			return NewValidationError("planned budget currency %s does not match envelope currency %s",
				e.PlannedBudget.Currency, e.Currency)
		}
	}
	switch e.Status {
	case EnvelopePlanned, EnvelopeActive, EnvelopeCompleted, EnvelopeCancelled:
	default:
		return NewValidationError("unknown envelope status %q", e.Status)
	}
	if e.EndDate != nil && !e.StartDate.IsZero() && e.EndDate.Before(e.StartDate) {
		return NewValidationError("envelope end date cannot precede start date")
	}
	return nil
}
