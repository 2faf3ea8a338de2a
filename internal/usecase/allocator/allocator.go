package allocator

import (
	"github.com/centavohq/centavo-backend/internal/domain"
)

// Split is the interest/principal breakdown of a single payment.
type Split struct {
	InterestPortion  domain.Money
	PrincipalPortion domain.Money
}

// SplitPayment allocates a payment against a debt: interest is settled
// before principal. The payment covers the outstanding interest first, up
// to its remainder, and any excess rolls to principal. The order matters
// only for the per-payment breakdown reported to callers; the debt's
// effective amount is a flat sum either way.
//
// Safety: the two portions always sum exactly to the payment amount.
func SplitPayment(amount, interestOutstanding domain.Money) (Split, error) {
	if err := amount.Validate(); err != nil {
		return Split{}, err
	}
	if !amount.SameCurrency(interestOutstanding) {
		return Split{}, domain.NewValidationError(
			"payment currency %s does not match interest currency %s",
			amount.Currency, interestOutstanding.Currency)
	}

	outstanding := interestOutstanding.Units
	if outstanding < 0 {
		outstanding = 0
	}

	interest := amount.Units
	if interest > outstanding {
		interest = outstanding
	}

	return Split{
		InterestPortion:  domain.NewMoney(interest, amount.Currency),
		PrincipalPortion: domain.NewMoney(amount.Units-interest, amount.Currency),
	}, nil
}

// ValidateSplit checks a caller-declared split against the payment amount:
// non-negative portions that sum exactly to the amount, all in one
// currency.
func ValidateSplit(amount, interestPortion, principalPortion domain.Money) error {
	if !interestPortion.SameCurrency(amount) || !principalPortion.SameCurrency(amount) {
		return domain.NewValidationError("split portions must share the payment currency %s", amount.Currency)
	}
	if interestPortion.IsNegative() || principalPortion.IsNegative() {
		return domain.NewValidationError("split portions cannot be negative")
	}
	if interestPortion.Units+principalPortion.Units != amount.Units {
		return domain.NewValidationError("split %s + %s does not sum to payment amount %s",
			interestPortion, principalPortion, amount)
	}
	return nil
}
