package account

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/centavohq/centavo-backend/internal/domain"
)

// defaultAccount describes one account every owner starts with.
type defaultAccount struct {
	Name        string
	AccountType domain.AccountType
}

var defaultAccounts = []defaultAccount{
	{Name: "Principal", AccountType: domain.AccountTypePrincipal},
	{Name: "Savings", AccountType: domain.AccountTypeSavings},
	{Name: "Cash", AccountType: domain.AccountTypeCash},
}

// Service manages the account registry: provisioning the default set for
// a new owner, renames, deactivation and guarded deletion.
type Service struct {
	Accounts domain.AccountRepository
	Now      func() time.Time
}

// NewService creates an account Service with a real clock.
func NewService(accounts domain.AccountRepository) *Service {
	return &Service{
		Accounts: accounts,
		Now:      time.Now,
	}
}

// ProvisionDefaults ensures the owner has the standard starter accounts
// (principal, savings, cash) in the given currency, each opened at a zero
// balance. Accounts the owner already has, matched by type, are left
// alone, so provisioning is safe to run on every login.
func (s *Service) ProvisionDefaults(ctx context.Context, owner uuid.UUID, currency string) ([]*domain.Account, error) {
	if currency == "" {
		return nil, domain.NewValidationError("currency is required to provision accounts")
	}
	existing, err := s.Accounts.ListByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	have := make(map[domain.AccountType]bool, len(existing))
	for _, a := range existing {
		have[a.AccountType] = true
	}

	now := s.Now()
	var created []*domain.Account
	for _, d := range defaultAccounts {
		if have[d.AccountType] {
			continue
		}
		account := &domain.Account{
			ID:          uuid.New(),
			OwnerID:     owner,
			Name:        d.Name,
			AccountType: d.AccountType,
			Currency:    currency,
			Balance:     domain.Zero(currency),
			Active:      true,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := account.Validate(); err != nil {
			return nil, err
		}
		if err := s.Accounts.Create(ctx, account); err != nil {
			return nil, fmt.Errorf("provision %s account: %w", d.AccountType, err)
		}
		created = append(created, account)
	}
	return created, nil
}

// CreateInput carries the fields for opening an extra account beyond the
// provisioned defaults.
type CreateInput struct {
	OwnerID        uuid.UUID
	Name           string
	AccountType    domain.AccountType
	Currency       string
	InitialBalance *domain.Money // nil opens at zero
}

// Create opens an account. An initial balance, when given, seeds the
// starting point of the balance invariant.
func (s *Service) Create(ctx context.Context, input CreateInput) (*domain.Account, error) {
	now := s.Now()
	balance := domain.Zero(input.Currency)
	if input.InitialBalance != nil {
		balance = *input.InitialBalance
	}

	account := &domain.Account{
		ID:          uuid.New(),
		OwnerID:     input.OwnerID,
		Name:        input.Name,
		AccountType: input.AccountType,
		Currency:    input.Currency,
		Balance:     balance,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := account.Validate(); err != nil {
		return nil, err
	}
	if err := s.Accounts.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	return account, nil
}

// Rename changes an account's display name. The balance and its history
// are untouched.
func (s *Service) Rename(ctx context.Context, owner, accountID uuid.UUID, name string) (*domain.Account, error) {
	account, err := s.getOwned(ctx, owner, accountID)
	if err != nil {
		return nil, err
	}
	updated := *account
	updated.Name = name
	updated.UpdatedAt = s.Now()
	if err := updated.Validate(); err != nil {
		return nil, err
	}
	if err := s.Accounts.Update(ctx, &updated); err != nil {
		return nil, fmt.Errorf("rename account: %w", err)
	}
	return &updated, nil
}

// Deactivate hides an account from day-to-day use while preserving its
// balance and history. Deactivating an inactive account is a no-op.
func (s *Service) Deactivate(ctx context.Context, owner, accountID uuid.UUID) (*domain.Account, error) {
	account, err := s.getOwned(ctx, owner, accountID)
	if err != nil {
		return nil, err
	}
	if !account.Active {
		return account, nil
	}
	updated := *account
	updated.Active = false
	updated.UpdatedAt = s.Now()
	if err := s.Accounts.Update(ctx, &updated); err != nil {
		return nil, fmt.Errorf("deactivate account: %w", err)
	}
	return &updated, nil
}

// Delete removes an account that never took part in the ledger. An
// account with movement or transfer history must be deactivated instead,
// otherwise the history would dangle.
func (s *Service) Delete(ctx context.Context, owner, accountID uuid.UUID) error {
	account, err := s.getOwned(ctx, owner, accountID)
	if err != nil {
		return err
	}
	hasHistory, err := s.Accounts.HasHistory(ctx, account.ID)
	if err != nil {
		return fmt.Errorf("check account history: %w", err)
	}
	if hasHistory {
		return domain.NewConflictError("account %s has ledger history, deactivate it instead", account.ID)
	}
	if err := s.Accounts.Delete(ctx, account.ID); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}

// Get retrieves an account after re-checking ownership.
func (s *Service) Get(ctx context.Context, owner, accountID uuid.UUID) (*domain.Account, error) {
	return s.getOwned(ctx, owner, accountID)
}

// ListByOwner returns all of the owner's accounts, active and inactive.
func (s *Service) ListByOwner(ctx context.Context, owner uuid.UUID) ([]*domain.Account, error) {
	accounts, err := s.Accounts.ListByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}

func (s *Service) getOwned(ctx context.Context, owner, accountID uuid.UUID) (*domain.Account, error) {
	account, err := s.Accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !account.OwnedBy(owner) {
		return nil, domain.NewAuthorizationError("account", accountID)
	}
	return account, nil
}
