package debt

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/centavohq/centavo-backend/internal/domain"
)

// MockDebtRepository is a mock implementation of DebtRepository for testing
type MockDebtRepository struct {
	mock.Mock
}

func (m *MockDebtRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Debt, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Debt), args.Error(1)
}

func (m *MockDebtRepository) Create(ctx context.Context, debt *domain.Debt) error {
	args := m.Called(ctx, debt)
	return args.Error(0)
}

func (m *MockDebtRepository) Update(ctx context.Context, debt *domain.Debt) error {
	args := m.Called(ctx, debt)
	return args.Error(0)
}

func (m *MockDebtRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDebtRepository) ApplyPayment(ctx context.Context, debt *domain.Debt, payment *domain.Payment) error {
	args := m.Called(ctx, debt, payment)
	return args.Error(0)
}

func (m *MockDebtRepository) CancelPayment(ctx context.Context, debt *domain.Debt, payment *domain.Payment) error {
	args := m.Called(ctx, debt, payment)
	return args.Error(0)
}

func (m *MockDebtRepository) HasActivePayments(ctx context.Context, debtID uuid.UUID) (bool, error) {
	args := m.Called(ctx, debtID)
	return args.Bool(0), args.Error(1)
}

func (m *MockDebtRepository) ListByOwner(ctx context.Context, owner uuid.UUID) ([]*domain.Debt, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Debt), args.Error(1)
}

func (m *MockDebtRepository) ListByStatus(ctx context.Context, owner uuid.UUID, status domain.DebtStatus) ([]*domain.Debt, error) {
	args := m.Called(ctx, owner, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Debt), args.Error(1)
}

// MockPaymentRepository is a mock implementation of PaymentRepository for testing
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentRepository) ListConfirmedByDebt(ctx context.Context, debtID uuid.UUID) ([]*domain.Payment, error) {
	args := m.Called(ctx, debtID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Payment), args.Error(1)
}

var testNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestService(debts *MockDebtRepository, payments *MockPaymentRepository) *Service {
	s := NewService(debts, payments, nil)
	s.Now = func() time.Time { return testNow }
	return s
}

func TestCreate_ComputesInterestAndTotal(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	rate := decimal.NewFromInt(10)

	debts := new(MockDebtRepository)
	service := newTestService(debts, new(MockPaymentRepository))
	debts.On("Create", ctx, mock.AnythingOfType("*domain.Debt")).Return(nil)

	created, err := service.Create(ctx, CreateInput{
		OwnerID:      owner,
		DebtType:     domain.DebtLoanGiven,
		Principal:    domain.NewMoney(100000, "EUR"),
		InterestRate: &rate,
	})

	require.NoError(t, err)
	assert.Equal(t, domain.NewMoney(10000, "EUR"), created.InterestAmount)
	assert.Equal(t, domain.NewMoney(110000, "EUR"), created.TotalAmount)
	assert.True(t, created.EffectiveAmount.IsZero())
	assert.Equal(t, domain.NewMoney(110000, "EUR"), created.RemainingAmount())
	assert.Equal(t, domain.DebtPending, created.Status)
}

func TestCreate_PastDueDateStartsOverdue(t *testing.T) {
	ctx := context.Background()
	yesterday := testNow.Add(-24 * time.Hour)

	debts := new(MockDebtRepository)
	service := newTestService(debts, new(MockPaymentRepository))
	debts.On("Create", ctx, mock.AnythingOfType("*domain.Debt")).Return(nil)

	created, err := service.Create(ctx, CreateInput{
		OwnerID:   uuid.New(),
		DebtType:  domain.DebtReceivable,
		Principal: domain.NewMoney(5000, "EUR"),
		DueDate:   &yesterday,
	})

	require.NoError(t, err)
	assert.Equal(t, domain.DebtOverdue, created.Status)
}

func TestCreate_RejectsNonPositivePrincipal(t *testing.T) {
	ctx := context.Background()
	debts := new(MockDebtRepository)
	service := newTestService(debts, new(MockPaymentRepository))

	_, err := service.Create(ctx, CreateInput{
		OwnerID:   uuid.New(),
		DebtType:  domain.DebtLoanTaken,
		Principal: domain.Zero("EUR"),
	})

	assert.True(t, domain.IsValidation(err))
	debts.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

// Lifecycle of a reference debt: principal 1000.00 at 10% flat.
// The first 100.00 payment settles interest alone; the next 1000.00 pays
// the debt off.
func TestApplyPayment_InterestFirstAllocation(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	rate := decimal.NewFromInt(10)

	debt := &domain.Debt{
		ID:              uuid.New(),
		OwnerID:         owner,
		DebtType:        domain.DebtLoanGiven,
		Principal:       domain.NewMoney(100000, "EUR"),
		InterestRate:    &rate,
		InterestMode:    domain.InterestSimple,
		InterestAmount:  domain.NewMoney(10000, "EUR"),
		TotalAmount:     domain.NewMoney(110000, "EUR"),
		EffectiveAmount: domain.Zero("EUR"),
		Status:          domain.DebtPending,
	}

	debts := new(MockDebtRepository)
	payments := new(MockPaymentRepository)
	service := newTestService(debts, payments)

	debts.On("GetByID", ctx, debt.ID).Return(debt, nil)
	payments.On("ListConfirmedByDebt", ctx, debt.ID).Return([]*domain.Payment{}, nil)
	debts.On("ApplyPayment", ctx, mock.MatchedBy(func(d *domain.Debt) bool {
		return d.EffectiveAmount.Units == 10000 && d.Status == domain.DebtPending
	}), mock.MatchedBy(func(p *domain.Payment) bool {
		return p.InterestPortion.Units == 10000 && p.PrincipalPortion.Units == 0
	})).Return(nil)

	payment, err := service.ApplyPayment(ctx, ApplyPaymentInput{
		OwnerID: owner,
		DebtID:  debt.ID,
		Amount:  domain.NewMoney(10000, "EUR"),
	})

	require.NoError(t, err)
	assert.Equal(t, domain.PaymentConfirmed, payment.Status)
	assert.Equal(t, int64(10000), payment.InterestPortion.Units)
	assert.Equal(t, int64(0), payment.PrincipalPortion.Units)
	debts.AssertExpectations(t)

	// Second payment: interest already settled, everything goes to
	// principal and the debt is paid off.
	debt.EffectiveAmount = domain.NewMoney(10000, "EUR")
	firstPayment := *payment
	payments.ExpectedCalls = nil
	debts.ExpectedCalls = nil

	debts.On("GetByID", ctx, debt.ID).Return(debt, nil)
	payments.On("ListConfirmedByDebt", ctx, debt.ID).Return([]*domain.Payment{&firstPayment}, nil)
	debts.On("ApplyPayment", ctx, mock.MatchedBy(func(d *domain.Debt) bool {
		return d.EffectiveAmount.Units == 110000 &&
			d.RemainingAmount().IsZero() &&
			d.Status == domain.DebtPaid
	}), mock.MatchedBy(func(p *domain.Payment) bool {
		return p.InterestPortion.Units == 0 && p.PrincipalPortion.Units == 100000
	})).Return(nil)

	_, err = service.ApplyPayment(ctx, ApplyPaymentInput{
		OwnerID: owner,
		DebtID:  debt.ID,
		Amount:  domain.NewMoney(100000, "EUR"),
	})

	require.NoError(t, err)
	debts.AssertExpectations(t)
}

func TestApplyPayment_ExplicitSplitHint(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()

	debt := &domain.Debt{
		ID:              uuid.New(),
		OwnerID:         owner,
		DebtType:        domain.DebtLoanTaken,
		Principal:       domain.NewMoney(50000, "EUR"),
		InterestMode:    domain.InterestNone,
		InterestAmount:  domain.Zero("EUR"),
		TotalAmount:     domain.NewMoney(50000, "EUR"),
		EffectiveAmount: domain.Zero("EUR"),
		Status:          domain.DebtPending,
	}

	debts := new(MockDebtRepository)
	payments := new(MockPaymentRepository)
	service := newTestService(debts, payments)

	debts.On("GetByID", ctx, debt.ID).Return(debt, nil)
	debts.On("ApplyPayment", ctx, mock.Anything, mock.MatchedBy(func(p *domain.Payment) bool {
		return p.InterestPortion.Units == 2000 && p.PrincipalPortion.Units == 8000
	})).Return(nil)

	_, err := service.ApplyPayment(ctx, ApplyPaymentInput{
		OwnerID: owner,
		DebtID:  debt.ID,
		Amount:  domain.NewMoney(10000, "EUR"),
		Split: &SplitHint{
			InterestPortion:  domain.NewMoney(2000, "EUR"),
			PrincipalPortion: domain.NewMoney(8000, "EUR"),
		},
	})

	require.NoError(t, err)

	// A split that does not sum to the amount is rejected before any write.
	_, err = service.ApplyPayment(ctx, ApplyPaymentInput{
		OwnerID: owner,
		DebtID:  debt.ID,
		Amount:  domain.NewMoney(10000, "EUR"),
		Split: &SplitHint{
			InterestPortion:  domain.NewMoney(2000, "EUR"),
			PrincipalPortion: domain.NewMoney(7000, "EUR"),
		},
	})
	assert.True(t, domain.IsValidation(err))
}

func TestApplyPayment_Rejections(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	debtID := uuid.New()

	debts := new(MockDebtRepository)
	payments := new(MockPaymentRepository)
	service := newTestService(debts, payments)

	// Non-positive amount fails before the debt is even fetched.
	_, err := service.ApplyPayment(ctx, ApplyPaymentInput{
		OwnerID: owner,
		DebtID:  debtID,
		Amount:  domain.NewMoney(-100, "EUR"),
	})
	assert.True(t, domain.IsValidation(err))

	// Foreign debt.
	foreign := &domain.Debt{ID: debtID, OwnerID: uuid.New(), Principal: domain.NewMoney(1000, "EUR")}
	debts.On("GetByID", ctx, debtID).Return(foreign, nil)
	_, err = service.ApplyPayment(ctx, ApplyPaymentInput{
		OwnerID: owner,
		DebtID:  debtID,
		Amount:  domain.NewMoney(100, "EUR"),
	})
	assert.True(t, domain.IsAuthorization(err))

	debts.AssertNotCalled(t, "ApplyPayment", mock.Anything, mock.Anything, mock.Anything)
}

func TestCancelPayment_ReversesContribution(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()

	debt := &domain.Debt{
		ID:              uuid.New(),
		OwnerID:         owner,
		DebtType:        domain.DebtLoanGiven,
		Principal:       domain.NewMoney(100000, "EUR"),
		InterestMode:    domain.InterestNone,
		InterestAmount:  domain.Zero("EUR"),
		TotalAmount:     domain.NewMoney(100000, "EUR"),
		EffectiveAmount: domain.NewMoney(100000, "EUR"),
		Status:          domain.DebtPaid,
	}
	payment := &domain.Payment{
		ID:               uuid.New(),
		DebtID:           debt.ID,
		Amount:           domain.NewMoney(100000, "EUR"),
		InterestPortion:  domain.Zero("EUR"),
		PrincipalPortion: domain.NewMoney(100000, "EUR"),
		Status:           domain.PaymentConfirmed,
	}

	debts := new(MockDebtRepository)
	payments := new(MockPaymentRepository)
	service := newTestService(debts, payments)

	payments.On("GetByID", ctx, payment.ID).Return(payment, nil)
	debts.On("GetByID", ctx, debt.ID).Return(debt, nil)
	debts.On("CancelPayment", ctx, mock.MatchedBy(func(d *domain.Debt) bool {
		return d.EffectiveAmount.IsZero() && d.Status == domain.DebtPending
	}), mock.MatchedBy(func(p *domain.Payment) bool {
		return p.Status == domain.PaymentCancelled
	})).Return(nil)

	cancelled, err := service.CancelPayment(ctx, owner, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentCancelled, cancelled.Status)
	debts.AssertExpectations(t)
}

func TestCancelPayment_AlreadyCancelledConflicts(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()

	debt := &domain.Debt{
		ID:        uuid.New(),
		OwnerID:   owner,
		Principal: domain.NewMoney(1000, "EUR"),
	}
	payment := &domain.Payment{
		ID:     uuid.New(),
		DebtID: debt.ID,
		Amount: domain.NewMoney(1000, "EUR"),
		Status: domain.PaymentCancelled,
	}

	debts := new(MockDebtRepository)
	payments := new(MockPaymentRepository)
	service := newTestService(debts, payments)

	payments.On("GetByID", ctx, payment.ID).Return(payment, nil)
	debts.On("GetByID", ctx, debt.ID).Return(debt, nil)

	_, err := service.CancelPayment(ctx, owner, payment.ID)
	assert.True(t, domain.IsConflict(err))
	debts.AssertNotCalled(t, "CancelPayment", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdate_PrincipalChangeRecomputesTotals(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	rate := decimal.NewFromInt(10)

	debt := &domain.Debt{
		ID:              uuid.New(),
		OwnerID:         owner,
		DebtType:        domain.DebtLoanGiven,
		Principal:       domain.NewMoney(100000, "EUR"),
		InterestRate:    &rate,
		InterestMode:    domain.InterestSimple,
		InterestAmount:  domain.NewMoney(10000, "EUR"),
		TotalAmount:     domain.NewMoney(110000, "EUR"),
		EffectiveAmount: domain.Zero("EUR"),
		Status:          domain.DebtPending,
	}

	debts := new(MockDebtRepository)
	service := newTestService(debts, new(MockPaymentRepository))

	debts.On("GetByID", ctx, debt.ID).Return(debt, nil)
	debts.On("Update", ctx, mock.AnythingOfType("*domain.Debt")).Return(nil)

	newPrincipal := domain.NewMoney(200000, "EUR")
	updated, err := service.Update(ctx, UpdateInput{
		DebtID:    debt.ID,
		OwnerID:   owner,
		Principal: &newPrincipal,
	})

	require.NoError(t, err)
	assert.Equal(t, domain.NewMoney(20000, "EUR"), updated.InterestAmount)
	assert.Equal(t, domain.NewMoney(220000, "EUR"), updated.TotalAmount)
	assert.Equal(t, domain.NewMoney(220000, "EUR"), updated.RemainingAmount())
}

func TestDelete_WithDependentPaymentsConflicts(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	debt := &domain.Debt{ID: uuid.New(), OwnerID: owner, Principal: domain.NewMoney(1000, "EUR")}

	debts := new(MockDebtRepository)
	service := newTestService(debts, new(MockPaymentRepository))

	debts.On("GetByID", ctx, debt.ID).Return(debt, nil)
	debts.On("HasActivePayments", ctx, debt.ID).Return(true, nil)

	err := service.Delete(ctx, owner, debt.ID)
	assert.True(t, domain.IsConflict(err))
	debts.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestRefreshStatuses_FlipsOverdueAndCounts(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	yesterday := testNow.Add(-24 * time.Hour)
	nextWeek := testNow.Add(7 * 24 * time.Hour)

	overdueSoon := &domain.Debt{
		ID:          uuid.New(),
		OwnerID:     owner,
		Principal:   domain.NewMoney(1000, "EUR"),
		TotalAmount: domain.NewMoney(1000, "EUR"),
		DueDate:     &yesterday,
		Status:      domain.DebtPending,
	}
	stillPending := &domain.Debt{
		ID:          uuid.New(),
		OwnerID:     owner,
		Principal:   domain.NewMoney(1000, "EUR"),
		TotalAmount: domain.NewMoney(1000, "EUR"),
		DueDate:     &nextWeek,
		Status:      domain.DebtPending,
	}

	debts := new(MockDebtRepository)
	service := newTestService(debts, new(MockPaymentRepository))

	debts.On("ListByStatus", ctx, owner, domain.DebtPending).
		Return([]*domain.Debt{overdueSoon, stillPending}, nil)
	debts.On("Update", ctx, mock.MatchedBy(func(d *domain.Debt) bool {
		return d.ID == overdueSoon.ID && d.Status == domain.DebtOverdue
	})).Return(nil)

	changed, err := service.RefreshStatuses(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 1, changed)
	debts.AssertExpectations(t)

	// Second run: the stored statuses are now current, nothing changes.
	debts.ExpectedCalls = nil
	overdueSoon.Status = domain.DebtOverdue
	debts.On("ListByStatus", ctx, owner, domain.DebtPending).
		Return([]*domain.Debt{stillPending}, nil)

	changed, err = service.RefreshStatuses(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 0, changed)
}

func TestRefreshStatuses_SkipsConcurrentlyModifiedDebt(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	yesterday := testNow.Add(-24 * time.Hour)

	contested := &domain.Debt{
		ID:          uuid.New(),
		OwnerID:     owner,
		Principal:   domain.NewMoney(1000, "EUR"),
		TotalAmount: domain.NewMoney(1000, "EUR"),
		DueDate:     &yesterday,
		Status:      domain.DebtPending,
	}
	clean := &domain.Debt{
		ID:          uuid.New(),
		OwnerID:     owner,
		Principal:   domain.NewMoney(2000, "EUR"),
		TotalAmount: domain.NewMoney(2000, "EUR"),
		DueDate:     &yesterday,
		Status:      domain.DebtPending,
	}

	debts := new(MockDebtRepository)
	service := newTestService(debts, new(MockPaymentRepository))

	debts.On("ListByStatus", ctx, owner, domain.DebtPending).
		Return([]*domain.Debt{contested, clean}, nil)
	debts.On("Update", ctx, mock.MatchedBy(func(d *domain.Debt) bool {
		return d.ID == contested.ID
	})).Return(domain.NewConflictError("debt was modified concurrently"))
	debts.On("Update", ctx, mock.MatchedBy(func(d *domain.Debt) bool {
		return d.ID == clean.ID && d.Status == domain.DebtOverdue
	})).Return(nil)

	// The contested debt is skipped, the sweep continues and counts only
	// the write that landed.
	changed, err := service.RefreshStatuses(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 1, changed)
	debts.AssertExpectations(t)
}

func TestListDueSoon_WindowClassification(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	inThreeDays := testNow.Add(3 * 24 * time.Hour)
	inTenDays := testNow.Add(10 * 24 * time.Hour)
	yesterday := testNow.Add(-24 * time.Hour)

	dueSoon := &domain.Debt{
		ID: uuid.New(), OwnerID: owner,
		Principal: domain.NewMoney(1000, "EUR"), TotalAmount: domain.NewMoney(1000, "EUR"),
		DueDate: &inThreeDays, Status: domain.DebtPending,
	}
	farOut := &domain.Debt{
		ID: uuid.New(), OwnerID: owner,
		Principal: domain.NewMoney(1000, "EUR"), TotalAmount: domain.NewMoney(1000, "EUR"),
		DueDate: &inTenDays, Status: domain.DebtPending,
	}
	overdue := &domain.Debt{
		ID: uuid.New(), OwnerID: owner,
		Principal: domain.NewMoney(1000, "EUR"), TotalAmount: domain.NewMoney(1000, "EUR"),
		DueDate: &yesterday, Status: domain.DebtOverdue,
	}

	debts := new(MockDebtRepository)
	service := newTestService(debts, new(MockPaymentRepository))
	debts.On("ListByOwner", ctx, owner).Return([]*domain.Debt{dueSoon, farOut, overdue}, nil)

	got, err := service.ListDueSoon(ctx, owner, 7)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, dueSoon.ID, got[0].ID)

	overdueList, err := service.ListOverdue(ctx, owner)
	require.NoError(t, err)
	require.Len(t, overdueList, 1)
	assert.Equal(t, overdue.ID, overdueList[0].ID)

	_, err = service.ListDueSoon(ctx, owner, 0)
	assert.True(t, domain.IsValidation(err))
}
