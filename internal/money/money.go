// Package money provides exact decimal amounts with currency codes.
// All monetary arithmetic in the engine flows through this type; floats
// are rejected at construction.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is the currency assumed when none is given.
const DefaultCurrency = "CAD"

// Money is a signed exact decimal amount in a single currency.
type Money struct {
	Amount   decimal.Decimal
	Currency string
}

// Zero returns a zero amount in the given currency.
func Zero(currency string) Money {
	return Money{Amount: decimal.Zero, Currency: currency}
}

// New creates a Money from an already-exact decimal.
func New(amount decimal.Decimal, currency string) Money {
	return Money{Amount: amount, Currency: currency}
}

// FromString parses a decimal literal such as "-125.50".
func FromString(s, currency string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	return Money{Amount: d, Currency: currency}, nil
}

// MustFromString is FromString for literals known to be valid.
func MustFromString(s, currency string) Money {
	m, err := FromString(s, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// FromCents creates a Money from an integer number of cents.
func FromCents(cents int64, currency string) Money {
	return Money{Amount: decimal.New(cents, -2), Currency: currency}
}

// FromFloat always fails. Monetary values must enter the system as exact
// decimal strings or integer cents; the constructor exists so callers get a
// typed refusal instead of silently rounding a float.
func FromFloat(f float64, currency string) (Money, error) {
	return Money{}, fmt.Errorf("refusing float construction of %v %s: use FromString or FromCents", f, currency)
}

// Quantize rounds to two fractional digits, half up (away from zero on exact
// midpoints). Every arithmetic path applies it at the boundary of a numeric
// contract.
func (m Money) Quantize() Money {
	return Money{Amount: m.Amount.Round(2), Currency: m.Currency}
}

// Add returns m + other. Currencies must match.
func (m Money) Add(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount.Add(other.Amount), Currency: m.Currency}, nil
}

// Sub returns m - other. Currencies must match.
func (m Money) Sub(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount.Sub(other.Amount), Currency: m.Currency}, nil
}

// MulRat multiplies by an exact decimal rate and quantizes to cents.
func (m Money) MulRat(rate decimal.Decimal) Money {
	return Money{Amount: m.Amount.Mul(rate), Currency: m.Currency}.Quantize()
}

// Neg returns the negated amount.
func (m Money) Neg() Money {
	return Money{Amount: m.Amount.Neg(), Currency: m.Currency}
}

// Abs returns the absolute amount.
func (m Money) Abs() Money {
	return Money{Amount: m.Amount.Abs(), Currency: m.Currency}
}

// IsZero reports whether the amount is exactly zero.
func (m Money) IsZero() bool {
	return m.Amount.IsZero()
}

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool {
	return m.Amount.IsNegative()
}

// IsPositive reports whether the amount is above zero.
func (m Money) IsPositive() bool {
	return m.Amount.IsPositive()
}

// Cmp compares amounts, ignoring currency.
func (m Money) Cmp(other Money) int {
	return m.Amount.Cmp(other.Amount)
}

// String renders "-125.50 CAD".
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Amount.StringFixed(2), m.Currency)
}

func (m Money) sameCurrency(other Money) error {
	if m.Currency != other.Currency {
		return fmt.Errorf("currency mismatch: %s vs %s", m.Currency, other.Currency)
	}
	return nil
}

// Min returns the smaller of a and b by amount.
func Min(a, b Money) Money {
	if a.Amount.LessThan(b.Amount) {
		return a
	}
	return b
}
