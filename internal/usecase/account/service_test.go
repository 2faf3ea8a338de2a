package account

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/centavohq/centavo-backend/internal/domain"
)

// MockAccountRepository is a mock implementation of AccountRepository for testing
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) Update(ctx context.Context, account *domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAccountRepository) HasHistory(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccountRepository) ListByOwner(ctx context.Context, owner uuid.UUID) ([]*domain.Account, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Account), args.Error(1)
}

var testNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestService(accounts *MockAccountRepository) *Service {
	s := NewService(accounts)
	s.Now = func() time.Time { return testNow }
	return s
}

func TestProvisionDefaults_CreatesStarterSet(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()

	accounts := new(MockAccountRepository)
	service := newTestService(accounts)

	accounts.On("ListByOwner", ctx, owner).Return([]*domain.Account{}, nil)
	accounts.On("Create", ctx, mock.MatchedBy(func(a *domain.Account) bool {
		return a.OwnerID == owner && a.Balance.IsZero() && a.Currency == "EUR" && a.Active
	})).Return(nil).Times(3)

	created, err := service.ProvisionDefaults(ctx, owner, "EUR")
	require.NoError(t, err)
	require.Len(t, created, 3)
	assert.Equal(t, domain.AccountTypePrincipal, created[0].AccountType)
	assert.Equal(t, domain.AccountTypeSavings, created[1].AccountType)
	assert.Equal(t, domain.AccountTypeCash, created[2].AccountType)
	accounts.AssertExpectations(t)
}

func TestProvisionDefaults_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()

	existing := []*domain.Account{
		{ID: uuid.New(), OwnerID: owner, Name: "Principal", AccountType: domain.AccountTypePrincipal,
			Currency: "EUR", Balance: domain.NewMoney(12345, "EUR"), Active: true},
		{ID: uuid.New(), OwnerID: owner, Name: "Savings", AccountType: domain.AccountTypeSavings,
			Currency: "EUR", Balance: domain.Zero("EUR"), Active: true},
		{ID: uuid.New(), OwnerID: owner, Name: "Cash", AccountType: domain.AccountTypeCash,
			Currency: "EUR", Balance: domain.Zero("EUR"), Active: true},
	}

	accounts := new(MockAccountRepository)
	service := newTestService(accounts)
	accounts.On("ListByOwner", ctx, owner).Return(existing, nil)

	created, err := service.ProvisionDefaults(ctx, owner, "EUR")
	require.NoError(t, err)
	assert.Empty(t, created)
	accounts.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestProvisionDefaults_FillsOnlyMissingTypes(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()

	existing := []*domain.Account{
		{ID: uuid.New(), OwnerID: owner, Name: "Main", AccountType: domain.AccountTypePrincipal,
			Currency: "EUR", Balance: domain.Zero("EUR"), Active: true},
	}

	accounts := new(MockAccountRepository)
	service := newTestService(accounts)
	accounts.On("ListByOwner", ctx, owner).Return(existing, nil)
	accounts.On("Create", ctx, mock.AnythingOfType("*domain.Account")).Return(nil).Times(2)

	created, err := service.ProvisionDefaults(ctx, owner, "EUR")
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, domain.AccountTypeSavings, created[0].AccountType)
	assert.Equal(t, domain.AccountTypeCash, created[1].AccountType)
}

func TestCreate_SeedsInitialBalance(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	initial := domain.NewMoney(250000, "EUR")

	accounts := new(MockAccountRepository)
	service := newTestService(accounts)
	accounts.On("Create", ctx, mock.AnythingOfType("*domain.Account")).Return(nil)

	created, err := service.Create(ctx, CreateInput{
		OwnerID:        owner,
		Name:           "Emergency fund",
		AccountType:    domain.AccountTypeSavings,
		Currency:       "EUR",
		InitialBalance: &initial,
	})

	require.NoError(t, err)
	assert.Equal(t, initial, created.Balance)
	assert.True(t, created.Active)
}

func TestCreate_RejectsUnknownType(t *testing.T) {
	ctx := context.Background()

	accounts := new(MockAccountRepository)
	service := newTestService(accounts)

	_, err := service.Create(ctx, CreateInput{
		OwnerID:     uuid.New(),
		Name:        "weird",
		AccountType: "CRYPTO",
		Currency:    "EUR",
	})

	assert.True(t, domain.IsValidation(err))
	accounts.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestDeactivate_PreservesBalance(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	account := &domain.Account{
		ID: uuid.New(), OwnerID: owner, Name: "Old bank",
		AccountType: domain.AccountTypeOther, Currency: "EUR",
		Balance: domain.NewMoney(7700, "EUR"), Active: true,
	}

	accounts := new(MockAccountRepository)
	service := newTestService(accounts)
	accounts.On("GetByID", ctx, account.ID).Return(account, nil)
	accounts.On("Update", ctx, mock.MatchedBy(func(a *domain.Account) bool {
		return !a.Active && a.Balance.Units == 7700
	})).Return(nil)

	deactivated, err := service.Deactivate(ctx, owner, account.ID)
	require.NoError(t, err)
	assert.False(t, deactivated.Active)
	accounts.AssertExpectations(t)

	// Already inactive: nothing to write.
	accounts.ExpectedCalls = nil
	accounts.Calls = nil
	accounts.On("GetByID", ctx, account.ID).Return(deactivated, nil)
	again, err := service.Deactivate(ctx, owner, account.ID)
	require.NoError(t, err)
	assert.False(t, again.Active)
	accounts.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestDelete_WithHistoryConflicts(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	account := &domain.Account{
		ID: uuid.New(), OwnerID: owner, Name: "Main",
		AccountType: domain.AccountTypePrincipal, Currency: "EUR",
		Balance: domain.Zero("EUR"), Active: true,
	}

	accounts := new(MockAccountRepository)
	service := newTestService(accounts)
	accounts.On("GetByID", ctx, account.ID).Return(account, nil)
	accounts.On("HasHistory", ctx, account.ID).Return(true, nil)

	err := service.Delete(ctx, owner, account.ID)
	assert.True(t, domain.IsConflict(err))
	accounts.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestDelete_FreshAccountSucceeds(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	account := &domain.Account{
		ID: uuid.New(), OwnerID: owner, Name: "Mistake",
		AccountType: domain.AccountTypeOther, Currency: "EUR",
		Balance: domain.Zero("EUR"), Active: true,
	}

	accounts := new(MockAccountRepository)
	service := newTestService(accounts)
	accounts.On("GetByID", ctx, account.ID).Return(account, nil)
	accounts.On("HasHistory", ctx, account.ID).Return(false, nil)
	accounts.On("Delete", ctx, account.ID).Return(nil)

	err := service.Delete(ctx, owner, account.ID)
	require.NoError(t, err)
	accounts.AssertExpectations(t)
}

func TestDelete_ForeignAccountRejected(t *testing.T) {
	ctx := context.Background()
	account := &domain.Account{
		ID: uuid.New(), OwnerID: uuid.New(), Name: "Main",
		AccountType: domain.AccountTypePrincipal, Currency: "EUR",
		Balance: domain.Zero("EUR"), Active: true,
	}

	accounts := new(MockAccountRepository)
	service := newTestService(accounts)
	accounts.On("GetByID", ctx, account.ID).Return(account, nil)

	err := service.Delete(ctx, uuid.New(), account.ID)
	assert.True(t, domain.IsAuthorization(err))
}
