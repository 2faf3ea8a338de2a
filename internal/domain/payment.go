package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaymentMethod tags how a payment was made. Informational only.
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "CASH"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodMobileMoney  PaymentMethod = "MOBILE_MONEY"
	PaymentMethodOther        PaymentMethod = "OTHER"
)

// PaymentStatus is the payment lifecycle. Only confirmed payments count
// toward a debt's effective amount; cancelling a confirmed payment
// reverses its contribution exactly.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentConfirmed PaymentStatus = "CONFIRMED"
	PaymentCancelled PaymentStatus = "CANCELLED"
)

// Payment is a single settlement applied to a debt. The interest/principal
// split records the allocation order (interest settled before principal)
// for reporting; the debt's effective amount tracks the flat sum.
type Payment struct {
	ID               uuid.UUID
	DebtID           uuid.UUID
	Amount           Money
	InterestPortion  Money
	PrincipalPortion Money
	Method           PaymentMethod
	Status           PaymentStatus
	Date             time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Validate ensures the payment adheres to domain rules, in particular that
// the declared split sums exactly to the payment amount.
func (p *Payment) Validate() error {
	if p.DebtID == uuid.Nil {
		return NewValidationError("payment must reference a debt")
	}
	if err := p.Amount.Validate(); err != nil {
		return err
	}
	if !p.InterestPortion.SameCurrency(p.Amount) || !p.PrincipalPortion.SameCurrency(p.Amount) {
		return NewValidationError("payment portions must share the payment currency %s", p.Amount.Currency)
	}
	if p.InterestPortion.IsNegative() || p.PrincipalPortion.IsNegative() {
		return NewValidationError("payment portions cannot be negative")
	}
	if p.InterestPortion.Units+p.PrincipalPortion.Units != p.Amount.Units {
		return NewValidationError("payment split %s + %s does not sum to amount %s",
			p.InterestPortion, p.PrincipalPortion, p.Amount)
	}
	switch p.Status {
	case PaymentPending, PaymentConfirmed, PaymentCancelled:
	default:
		return NewValidationError("unknown payment status %q", p.Status)
	}
	return nil
}
