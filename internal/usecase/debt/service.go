package debt

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/centavohq/centavo-backend/internal/domain"
	"github.com/centavohq/centavo-backend/internal/usecase/allocator"
)

// OverdueNotifier announces debts that flipped to overdue. Optional; a nil
// notifier disables announcements.
type OverdueNotifier interface {
	DebtOverdue(ctx context.Context, debt *domain.Debt) error
}

// Service is the debt and payment allocator: it computes debt totals,
// applies payments in the interest-first allocation order, and keeps the
// debt lifecycle status in sync with amounts and due dates.
type Service struct {
	Debts    domain.DebtRepository
	Payments domain.PaymentRepository
	Notifier OverdueNotifier
	Now      func() time.Time
}

// NewService creates a debt Service with a real clock.
func NewService(debts domain.DebtRepository, payments domain.PaymentRepository, notifier OverdueNotifier) *Service {
	return &Service{
		Debts:    debts,
		Payments: payments,
		Notifier: notifier,
		Now:      time.Now,
	}
}

// CreateInput carries the fields for registering a debt.
type CreateInput struct {
	OwnerID      uuid.UUID
	DebtType     domain.DebtType
	Principal    domain.Money
	InterestRate *decimal.Decimal // percent; nil means no interest
	DueDate      *time.Time
	ContactID    *uuid.UUID
	AccountID    *uuid.UUID
	CategoryID   *uuid.UUID
	Description  string
}

// Create registers a debt. Interest is a flat one-shot percentage of the
// principal (not prorated by elapsed time); the status is derived
// immediately after creation, so a debt whose due date already passed
// starts out overdue rather than pending.
func (s *Service) Create(ctx context.Context, input CreateInput) (*domain.Debt, error) {
	if err := input.Principal.Validate(); err != nil {
		return nil, err
	}

	now := s.Now()
	mode := domain.InterestNone
	if input.InterestRate != nil && input.InterestRate.IsPositive() {
		mode = domain.InterestSimple
	}

	debt := &domain.Debt{
		ID:              uuid.New(),
		OwnerID:         input.OwnerID,
		DebtType:        input.DebtType,
		Principal:       input.Principal,
		InterestRate:    input.InterestRate,
		InterestMode:    mode,
		EffectiveAmount: domain.Zero(input.Principal.Currency),
		DueDate:         input.DueDate,
		ContactID:       input.ContactID,
		AccountID:       input.AccountID,
		CategoryID:      input.CategoryID,
		Description:     input.Description,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	debt.Recompute()
	debt.Status = debt.StatusAt(now)

	if err := debt.Validate(); err != nil {
		return nil, err
	}
	if err := s.Debts.Create(ctx, debt); err != nil {
		return nil, fmt.Errorf("create debt: %w", err)
	}
	return debt, nil
}

// SplitHint is an explicit interest/principal breakdown supplied by the
// caller instead of the default interest-first allocation.
type SplitHint struct {
	InterestPortion  domain.Money
	PrincipalPortion domain.Money
}

// ApplyPaymentInput carries the fields for applying a payment to a debt.
type ApplyPaymentInput struct {
	OwnerID   uuid.UUID
	DebtID    uuid.UUID
	Amount    domain.Money
	Method    domain.PaymentMethod
	Split     *SplitHint // nil means allocate interest first
	Date      time.Time  // zero means "now"
}

// ApplyPayment records a confirmed payment against a debt. Without an
// explicit split the amount settles outstanding interest first and the
// excess rolls to principal. The debt's effective amount grows by exactly
// the payment amount, the remaining amount is clamped at zero, and the
// status is re-derived, all persisted atomically with the payment.
func (s *Service) ApplyPayment(ctx context.Context, input ApplyPaymentInput) (*domain.Payment, error) {
	if err := input.Amount.Validate(); err != nil {
		return nil, err
	}

	debt, err := s.getOwned(ctx, input.OwnerID, input.DebtID)
	if err != nil {
		return nil, err
	}
	if !input.Amount.SameCurrency(debt.Principal) {
		return nil, domain.NewValidationError(
			"payment currency %s does not match debt currency %s",
			input.Amount.Currency, debt.Principal.Currency)
	}

	var split allocator.Split
	if input.Split != nil {
		if err := allocator.ValidateSplit(input.Amount, input.Split.InterestPortion, input.Split.PrincipalPortion); err != nil {
			return nil, err
		}
		split = allocator.Split{
			InterestPortion:  input.Split.InterestPortion,
			PrincipalPortion: input.Split.PrincipalPortion,
		}
	} else {
		outstanding, err := s.interestOutstanding(ctx, debt)
		if err != nil {
			return nil, err
		}
		split, err = allocator.SplitPayment(input.Amount, outstanding)
		if err != nil {
			return nil, err
		}
	}

	now := s.Now()
	date := input.Date
	if date.IsZero() {
		date = now
	}
	method := input.Method
	if method == "" {
		method = domain.PaymentMethodOther
	}

	payment := &domain.Payment{
		ID:               uuid.New(),
		DebtID:           debt.ID,
		Amount:           input.Amount,
		InterestPortion:  split.InterestPortion,
		PrincipalPortion: split.PrincipalPortion,
		Method:           method,
		Status:           domain.PaymentConfirmed,
		Date:             date,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := payment.Validate(); err != nil {
		return nil, err
	}

	updated := *debt
	updated.EffectiveAmount = domain.NewMoney(
		debt.EffectiveAmount.Units+input.Amount.Units, debt.Principal.Currency)
	updated.RefreshStatus(now)
	updated.UpdatedAt = now

	if err := s.Debts.ApplyPayment(ctx, &updated, payment); err != nil {
		return nil, fmt.Errorf("apply payment: %w", err)
	}
	return payment, nil
}

// CancelPayment reverses a confirmed payment's contribution: the payment
// flips to cancelled and the debt's effective amount shrinks by exactly
// the payment amount. Cancelling anything but a confirmed payment is a
// conflict.
func (s *Service) CancelPayment(ctx context.Context, owner, paymentID uuid.UUID) (*domain.Payment, error) {
	payment, err := s.Payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	debt, err := s.getOwned(ctx, owner, payment.DebtID)
	if err != nil {
		return nil, err
	}
	if payment.Status != domain.PaymentConfirmed {
		return nil, domain.NewConflictError("payment %s is %s, only confirmed payments can be cancelled",
			payment.ID, payment.Status)
	}

	now := s.Now()
	cancelled := *payment
	cancelled.Status = domain.PaymentCancelled
	cancelled.UpdatedAt = now

	updated := *debt
	updated.EffectiveAmount = domain.NewMoney(
		debt.EffectiveAmount.Units-payment.Amount.Units, debt.Principal.Currency)
	updated.RefreshStatus(now)
	updated.UpdatedAt = now

	if err := s.Debts.CancelPayment(ctx, &updated, &cancelled); err != nil {
		return nil, fmt.Errorf("cancel payment: %w", err)
	}
	return &cancelled, nil
}

// UpdateInput is a partial patch for a debt. Nil fields are left untouched.
type UpdateInput struct {
	DebtID       uuid.UUID
	OwnerID      uuid.UUID
	Principal    *domain.Money
	InterestRate *decimal.Decimal
	ClearRate    bool // true drops the interest rate entirely
	DueDate      *time.Time
	Description  *string
}

// Update patches a debt. A change of principal or rate triggers a full
// recompute of interest, total, remaining and status; the total is never
// left stale.
func (s *Service) Update(ctx context.Context, input UpdateInput) (*domain.Debt, error) {
	debt, err := s.getOwned(ctx, input.OwnerID, input.DebtID)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	updated := *debt
	updated.UpdatedAt = now

	if input.Principal != nil {
		if err := input.Principal.Validate(); err != nil {
			return nil, err
		}
		if !input.Principal.SameCurrency(debt.Principal) {
			return nil, domain.NewValidationError(
				"debt currency cannot change from %s to %s",
				debt.Principal.Currency, input.Principal.Currency)
		}
		updated.Principal = *input.Principal
	}
	if input.ClearRate {
		updated.InterestRate = nil
		updated.InterestMode = domain.InterestNone
	} else if input.InterestRate != nil {
		rate := *input.InterestRate
		updated.InterestRate = &rate
		if rate.IsPositive() {
			updated.InterestMode = domain.InterestSimple
		}
	}
	if input.DueDate != nil {
		due := *input.DueDate
		updated.DueDate = &due
	}
	if input.Description != nil {
		updated.Description = *input.Description
	}

	updated.Recompute()
	updated.RefreshStatus(now)

	if err := updated.Validate(); err != nil {
		return nil, err
	}
	if err := s.Debts.Update(ctx, &updated); err != nil {
		return nil, fmt.Errorf("update debt: %w", err)
	}
	return &updated, nil
}

// Delete removes a debt. Refused while any pending or confirmed payment
// references it; the caller must cancel those payments first; deletion
// does not auto-reverse.
func (s *Service) Delete(ctx context.Context, owner, debtID uuid.UUID) error {
	debt, err := s.getOwned(ctx, owner, debtID)
	if err != nil {
		return err
	}
	hasPayments, err := s.Debts.HasActivePayments(ctx, debt.ID)
	if err != nil {
		return fmt.Errorf("check dependent payments: %w", err)
	}
	if hasPayments {
		return domain.NewConflictError("debt %s has dependent payments", debt.ID)
	}
	if err := s.Debts.Delete(ctx, debt.ID); err != nil {
		return fmt.Errorf("delete debt: %w", err)
	}
	return nil
}

// Get retrieves a debt after re-checking ownership.
func (s *Service) Get(ctx context.Context, owner, debtID uuid.UUID) (*domain.Debt, error) {
	return s.getOwned(ctx, owner, debtID)
}

// RefreshStatuses re-evaluates every pending debt in scope against the
// current clock and flips the overdue ones, returning how many changed.
// A Nil owner widens the scope to all owners. Idempotent and safe to call
// arbitrarily often; a concurrent-modification conflict on one debt is
// logged and skipped; the next pass picks it up.
func (s *Service) RefreshStatuses(ctx context.Context, owner uuid.UUID) (int, error) {
	pending, err := s.Debts.ListByStatus(ctx, owner, domain.DebtPending)
	if err != nil {
		return 0, fmt.Errorf("list pending debts: %w", err)
	}

	now := s.Now()
	changed := 0
	for _, debt := range pending {
		updated := *debt
		if !updated.RefreshStatus(now) {
			continue
		}
		updated.UpdatedAt = now
		if err := s.Debts.Update(ctx, &updated); err != nil {
			if domain.IsConflict(err) {
				slog.WarnContext(ctx, "skipping concurrently modified debt during refresh",
					"debt_id", debt.ID)
				continue
			}
			return changed, fmt.Errorf("refresh debt %s: %w", debt.ID, err)
		}
		changed++
		if updated.Status == domain.DebtOverdue && s.Notifier != nil {
			if err := s.Notifier.DebtOverdue(ctx, &updated); err != nil {
				slog.WarnContext(ctx, "publish debt-overdue event failed",
					"debt_id", debt.ID, "error", err)
			}
		}
	}
	return changed, nil
}

// ListOverdue returns the owner's debts with an outstanding amount past
// their due date.
func (s *Service) ListOverdue(ctx context.Context, owner uuid.UUID) ([]*domain.Debt, error) {
	debts, err := s.Debts.ListByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list debts: %w", err)
	}
	now := s.Now()
	var overdue []*domain.Debt
	for _, d := range debts {
		if d.StatusAt(now) == domain.DebtOverdue {
			overdue = append(overdue, d)
		}
	}
	return overdue, nil
}

// ListDueSoon returns the owner's debts falling due within the lookahead
// window (in days) that are not yet overdue.
func (s *Service) ListDueSoon(ctx context.Context, owner uuid.UUID, lookaheadDays int) ([]*domain.Debt, error) {
	if lookaheadDays <= 0 {
		return nil, domain.NewValidationError("lookahead window must be positive, got %d days", lookaheadDays)
	}
	debts, err := s.Debts.ListByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list debts: %w", err)
	}
	now := s.Now()
	window := time.Duration(lookaheadDays) * 24 * time.Hour
	var dueSoon []*domain.Debt
	for _, d := range debts {
		if d.IsDueSoon(now, window) {
			dueSoon = append(dueSoon, d)
		}
	}
	return dueSoon, nil
}

func (s *Service) getOwned(ctx context.Context, owner, debtID uuid.UUID) (*domain.Debt, error) {
	debt, err := s.Debts.GetByID(ctx, debtID)
	if err != nil {
		return nil, err
	}
	if !debt.OwnedBy(owner) {
		return nil, domain.NewAuthorizationError("debt", debtID)
	}
	return debt, nil
}

// interestOutstanding is the accrued interest not yet covered by the
// interest portions of confirmed payments.
func (s *Service) interestOutstanding(ctx context.Context, debt *domain.Debt) (domain.Money, error) {
	confirmed, err := s.Payments.ListConfirmedByDebt(ctx, debt.ID)
	if err != nil {
		return domain.Money{}, fmt.Errorf("list confirmed payments: %w", err)
	}
	var paid int64
	for _, p := range confirmed {
		paid += p.InterestPortion.Units
	}
	outstanding := debt.InterestAmount.Units - paid
	if outstanding < 0 {
		outstanding = 0
	}
	return domain.NewMoney(outstanding, debt.Principal.Currency), nil
}
