package transfer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/centavohq/centavo-backend/internal/domain"
)

// Service is the transfer engine: it moves money between two accounts of
// the same owner and currency as one atomic operation, and supports a
// single unconditional reversal per transfer.
type Service struct {
	Accounts  domain.AccountRepository
	Transfers domain.TransferRepository
	Now       func() time.Time
}

// NewService creates a transfer Service with a real clock.
func NewService(accounts domain.AccountRepository, transfers domain.TransferRepository) *Service {
	return &Service{
		Accounts:  accounts,
		Transfers: transfers,
		Now:       time.Now,
	}
}

// CreateInput carries the fields for executing a transfer.
type CreateInput struct {
	OwnerID         uuid.UUID
	SourceAccountID uuid.UUID
	DestAccountID   uuid.UUID
	Amount          domain.Money
	Date            time.Time // zero means "now"
	Note            string
}

// Simulation is the outcome of a dry run. Errors holds every rule the
// transfer would break, not just the first one found.
type Simulation struct {
	Valid                  bool
	Errors                 []string
	ProjectedSourceBalance domain.Money
	ProjectedDestBalance   domain.Money
}

// Create executes a transfer: it debits the source, credits the
// destination and persists the transfer record in one unit of work.
// Unlike movements, transfers refuse to overdraw the source account.
func (s *Service) Create(ctx context.Context, input CreateInput) (*domain.Transfer, error) {
	source, dest, err := s.loadPair(ctx, input.OwnerID, input.SourceAccountID, input.DestAccountID)
	if err != nil {
		return nil, err
	}
	if problems := checkRules(input, source, dest); len(problems) > 0 {
		if input.Amount.IsPositive() && source.Balance.LessThan(input.Amount) {
			return nil, domain.NewConflictError(
				"insufficient funds in account %s: balance %s, transfer %s",
				source.ID, source.Balance, input.Amount)
		}
		return nil, domain.NewValidationError("%s", problems[0])
	}

	now := s.Now()
	date := input.Date
	if date.IsZero() {
		date = now
	}

	transfer := &domain.Transfer{
		ID:              uuid.New(),
		OwnerID:         input.OwnerID,
		SourceAccountID: source.ID,
		DestAccountID:   dest.ID,
		Amount:          input.Amount,
		Date:            date,
		Note:            input.Note,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := transfer.Validate(); err != nil {
		return nil, err
	}

	debited := *source
	credited := *dest
	if err := debited.ApplyDelta(input.Amount.Neg(), now); err != nil {
		return nil, err
	}
	if err := credited.ApplyDelta(input.Amount, now); err != nil {
		return nil, err
	}

	if err := s.Transfers.CreateExecuted(ctx, transfer, &debited, &credited); err != nil {
		return nil, fmt.Errorf("execute transfer: %w", err)
	}
	return transfer, nil
}

// Cancel reverses an executed transfer: the source gets the amount back
// and the destination gives it up, unconditionally, even if that leaves
// the destination overdrawn. A transfer can only be cancelled once.
func (s *Service) Cancel(ctx context.Context, owner, transferID uuid.UUID) (*domain.Transfer, error) {
	transfer, err := s.Transfers.GetByID(ctx, transferID)
	if err != nil {
		return nil, err
	}
	if !transfer.OwnedBy(owner) {
		return nil, domain.NewAuthorizationError("transfer", transferID)
	}
	if transfer.Cancelled {
		return nil, domain.NewConflictError("transfer %s is already cancelled", transferID)
	}

	source, dest, err := s.loadPair(ctx, owner, transfer.SourceAccountID, transfer.DestAccountID)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	refunded := *source
	debited := *dest
	if err := refunded.ApplyDelta(transfer.Amount, now); err != nil {
		return nil, err
	}
	if err := debited.ApplyDelta(transfer.Amount.Neg(), now); err != nil {
		return nil, err
	}

	cancelled := *transfer
	cancelled.Cancelled = true
	cancelled.UpdatedAt = now

	if err := s.Transfers.MarkCancelled(ctx, &cancelled, &refunded, &debited); err != nil {
		return nil, fmt.Errorf("cancel transfer: %w", err)
	}
	return &cancelled, nil
}

// Simulate dry-runs a transfer against the current balances without
// writing anything. It collects every broken rule and the balances both
// accounts would end up with.
func (s *Service) Simulate(ctx context.Context, input CreateInput) (*Simulation, error) {
	source, dest, err := s.loadPair(ctx, input.OwnerID, input.SourceAccountID, input.DestAccountID)
	if err != nil {
		return nil, err
	}

	problems := checkRules(input, source, dest)
	sim := &Simulation{
		Valid:                  len(problems) == 0,
		Errors:                 problems,
		ProjectedSourceBalance: source.Balance,
		ProjectedDestBalance:   dest.Balance,
	}
	if sim.Valid {
		sim.ProjectedSourceBalance = domain.NewMoney(
			source.Balance.Units-input.Amount.Units, source.Balance.Currency)
		sim.ProjectedDestBalance = domain.NewMoney(
			dest.Balance.Units+input.Amount.Units, dest.Balance.Currency)
	}
	return sim, nil
}

// Get retrieves a transfer after re-checking ownership.
func (s *Service) Get(ctx context.Context, owner, transferID uuid.UUID) (*domain.Transfer, error) {
	transfer, err := s.Transfers.GetByID(ctx, transferID)
	if err != nil {
		return nil, err
	}
	if !transfer.OwnedBy(owner) {
		return nil, domain.NewAuthorizationError("transfer", transferID)
	}
	return transfer, nil
}

// ListByAccount returns the transfers touching an account within the
// date range, as source or destination.
func (s *Service) ListByAccount(ctx context.Context, owner, accountID uuid.UUID, from, to time.Time) ([]*domain.Transfer, error) {
	account, err := s.Accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !account.OwnedBy(owner) {
		return nil, domain.NewAuthorizationError("account", accountID)
	}
	transfers, err := s.Transfers.ListByAccount(ctx, accountID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	return transfers, nil
}

// loadPair fetches both accounts and verifies they belong to the owner.
func (s *Service) loadPair(ctx context.Context, owner, sourceID, destID uuid.UUID) (*domain.Account, *domain.Account, error) {
	source, err := s.Accounts.GetByID(ctx, sourceID)
	if err != nil {
		return nil, nil, err
	}
	if !source.OwnedBy(owner) {
		return nil, nil, domain.NewAuthorizationError("account", sourceID)
	}
	dest, err := s.Accounts.GetByID(ctx, destID)
	if err != nil {
		return nil, nil, err
	}
	if !dest.OwnedBy(owner) {
		return nil, nil, domain.NewAuthorizationError("account", destID)
	}
	return source, dest, nil
}

// checkRules evaluates every transfer rule and returns the full list of
// violations. Create and Simulate share this so a transfer that would be
// refused simulates as invalid for the same reasons.
func checkRules(input CreateInput, source, dest *domain.Account) []string {
	var problems []string
	if !input.Amount.IsPositive() {
		problems = append(problems, fmt.Sprintf("transfer amount must be positive, got %s", input.Amount))
	}
	if source.ID == dest.ID {
		problems = append(problems, "source and destination account must differ")
	}
	if !source.Balance.SameCurrency(dest.Balance) {
		problems = append(problems, fmt.Sprintf("account currencies differ: %s vs %s",
			source.Balance.Currency, dest.Balance.Currency))
	} else if !input.Amount.SameCurrency(source.Balance) {
		problems = append(problems, fmt.Sprintf("transfer currency %s does not match account currency %s",
			input.Amount.Currency, source.Balance.Currency))
	}
	if input.Amount.IsPositive() && source.Balance.LessThan(input.Amount) {
		problems = append(problems, fmt.Sprintf("insufficient funds: balance %s, transfer %s",
			source.Balance, input.Amount))
	}
	return problems
}
