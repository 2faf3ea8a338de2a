package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is a fixed-precision monetary amount: integer minor units plus a
// currency code. All arithmetic is exact; amounts never pass through a
// binary float. Negative values are legal only as signed deltas (and for
// overdrawn account balances, which are flagged rather than prevented).
type Money struct {
	Units    int64  // minor units (cents)
	Currency string // ISO 4217 code, e.g. "EUR"
}

// minorDigits is the number of decimal places carried by every supported
// currency. The engine performs no currency conversion, so a single scale
// is enough.
const minorDigits = 2

// NewMoney builds a Money value from minor units.
func NewMoney(units int64, currency string) Money {
	return Money{Units: units, Currency: currency}
}

// Zero returns the zero amount in the given currency.
func Zero(currency string) Money {
	return Money{Currency: currency}
}

// ParseMoney converts a decimal string ("12.34", "12,34") into Money.
// Anything beyond the supported minor digits is rounded half-up. Sign is
// preserved; callers enforce positivity where the business rules demand it.
func ParseMoney(s, currency string) (Money, error) {
	d, err := decimal.NewFromString(normalizeDecimal(s))
	if err != nil {
		return Money{}, NewValidationError("invalid amount %q: %v", s, err)
	}
	units := d.Shift(minorDigits).Round(0)
	if !units.IsInteger() {
		return Money{}, NewValidationError("invalid amount %q", s)
	}
	return Money{Units: units.IntPart(), Currency: currency}, nil
}

func normalizeDecimal(s string) string {
	out := []byte(s)
	for i, c := range out {
		if c == ',' {
			out[i] = '.'
		}
	}
	return string(out)
}

// Add returns m + o. The currencies must match.
func (m Money) Add(o Money) (Money, error) {
	if err := m.sameCurrency(o); err != nil {
		return Money{}, err
	}
	return Money{Units: m.Units + o.Units, Currency: m.Currency}, nil
}

// Sub returns m - o. The currencies must match.
func (m Money) Sub(o Money) (Money, error) {
	if err := m.sameCurrency(o); err != nil {
		return Money{}, err
	}
	return Money{Units: m.Units - o.Units, Currency: m.Currency}, nil
}

// Neg returns the amount with its sign flipped. Used to build the inverse
// of a previously applied balance delta.
func (m Money) Neg() Money {
	return Money{Units: -m.Units, Currency: m.Currency}
}

// Percent returns rate% of the amount, rounded half-up to minor units.
// Used for flat one-shot interest computation.
func (m Money) Percent(rate decimal.Decimal) Money {
	units := decimal.NewFromInt(m.Units).
		Mul(rate).
		Div(decimal.NewFromInt(100)).
		Round(0)
	return Money{Units: units.IntPart(), Currency: m.Currency}
}

// Decimal returns the amount as an exact decimal value.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Units, -minorDigits)
}

// String renders the amount as a decimal string ("1234.50"), the form in
// which amounts cross the engine boundary.
func (m Money) String() string {
	return m.Decimal().StringFixed(minorDigits)
}

func (m Money) IsZero() bool     { return m.Units == 0 }
func (m Money) IsNegative() bool { return m.Units < 0 }
func (m Money) IsPositive() bool { return m.Units > 0 }

// LessThan reports m < o, ignoring currency. Callers compare amounts only
// after the currency invariant has been established.
func (m Money) LessThan(o Money) bool {
	return m.Units < o.Units
}

// Equal reports exact equality of amount and currency.
func (m Money) Equal(o Money) bool {
	return m.Units == o.Units && m.Currency == o.Currency
}

// SameCurrency reports whether both amounts share a currency.
func (m Money) SameCurrency(o Money) bool {
	return m.Currency == o.Currency
}

func (m Money) sameCurrency(o Money) error {
	if m.Currency != o.Currency {
		return NewValidationError("currency mismatch: %s vs %s", m.Currency, o.Currency)
	}
	return nil
}

// Validate rejects amounts that are not strictly positive. Stored face
// values (movement totals, debt principals, transfer amounts) must pass.
func (m Money) Validate() error {
	if m.Currency == "" {
		return NewValidationError("amount is missing a currency")
	}
	if m.Units <= 0 {
		return fmt.Errorf("%w: amount must be positive, got %s", ErrInvalidAmount, m)
	}
	return nil
}
