package overview

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/centavohq/centavo-backend/internal/domain"
)

// CurrencyBalance is the net position across all active accounts holding
// one currency.
type CurrencyBalance struct {
	Currency   string
	NetBalance domain.Money
	Accounts   int
	Overdrawn  int
}

// DebtPosition is the outstanding total on one side of the debt ledger
// for one currency.
type DebtPosition struct {
	Currency    string
	Outstanding domain.Money
	Debts       int
	Overdue     int
}

// Result is the owner's financial snapshot.
type Result struct {
	Balances []CurrencyBalance
	// Receivables is money owed to the owner (loans given, receivables).
	Receivables []DebtPosition
	// Payables is money the owner owes (loans taken).
	Payables []DebtPosition
	// EnvelopesNeedingAttention counts envelopes that are overdue or
	// over budget.
	EnvelopesNeedingAttention int
}

// Service assembles the overview snapshot. It only reads; balances and
// debt figures come straight from the ledger state.
type Service struct {
	Accounts  domain.AccountRepository
	Debts     domain.DebtRepository
	Envelopes domain.EnvelopeRepository
	Now       func() time.Time
}

// NewService creates an overview Service with a real clock.
func NewService(accounts domain.AccountRepository, debts domain.DebtRepository, envelopes domain.EnvelopeRepository) *Service {
	return &Service{
		Accounts:  accounts,
		Debts:     debts,
		Envelopes: envelopes,
		Now:       time.Now,
	}
}

// Get builds the owner's snapshot: per-currency net account balances,
// outstanding receivable and payable totals, and the count of envelopes
// needing attention. Inactive accounts and fully paid debts are excluded.
func (s *Service) Get(ctx context.Context, owner uuid.UUID) (*Result, error) {
	accounts, err := s.Accounts.ListByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	debts, err := s.Debts.ListByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list debts: %w", err)
	}
	envelopes, err := s.Envelopes.ListByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list envelopes: %w", err)
	}

	now := s.Now()
	result := &Result{
		Balances:    sumBalances(accounts),
		Receivables: sumDebts(debts, now, true),
		Payables:    sumDebts(debts, now, false),
	}
	for _, e := range envelopes {
		if e.NeedsAttention(now) {
			result.EnvelopesNeedingAttention++
		}
	}
	return result, nil
}

func sumBalances(accounts []*domain.Account) []CurrencyBalance {
	byCurrency := map[string]*CurrencyBalance{}
	for _, a := range accounts {
		if !a.Active {
			continue
		}
		cb, ok := byCurrency[a.Currency]
		if !ok {
			cb = &CurrencyBalance{Currency: a.Currency, NetBalance: domain.Zero(a.Currency)}
			byCurrency[a.Currency] = cb
		}
		cb.NetBalance.Units += a.Balance.Units
		cb.Accounts++
		if a.IsOverdrawn() {
			cb.Overdrawn++
		}
	}
	return sortedByCurrency(byCurrency)
}

// sumDebts totals the remaining amounts on one side of the debt ledger.
// Receivable covers loans given and receivables; the other side is loans
// taken.
func sumDebts(debts []*domain.Debt, now time.Time, receivable bool) []DebtPosition {
	byCurrency := map[string]*DebtPosition{}
	for _, d := range debts {
		owedToOwner := d.DebtType == domain.DebtLoanGiven || d.DebtType == domain.DebtReceivable
		if owedToOwner != receivable {
			continue
		}
		remaining := d.RemainingAmount()
		if remaining.IsZero() {
			continue
		}
		dp, ok := byCurrency[remaining.Currency]
		if !ok {
			dp = &DebtPosition{Currency: remaining.Currency, Outstanding: domain.Zero(remaining.Currency)}
			byCurrency[remaining.Currency] = dp
		}
		dp.Outstanding.Units += remaining.Units
		dp.Debts++
		if d.StatusAt(now) == domain.DebtOverdue {
			dp.Overdue++
		}
	}
	positions := make([]DebtPosition, 0, len(byCurrency))
	for _, dp := range byCurrency {
		positions = append(positions, *dp)
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i].Currency < positions[j].Currency })
	return positions
}

func sortedByCurrency(byCurrency map[string]*CurrencyBalance) []CurrencyBalance {
	balances := make([]CurrencyBalance, 0, len(byCurrency))
	for _, cb := range byCurrency {
		balances = append(balances, *cb)
	}
	sort.Slice(balances, func(i, j int) bool { return balances[i].Currency < balances[j].Currency })
	return balances
}
