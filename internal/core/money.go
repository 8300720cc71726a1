// Package core provides money parsing and handling utilities.
//
// Amounts are exact decimals with two fractional digits. Sums over many rows
// are accumulated by the database as NUMERIC and scanned back without ever
// passing through binary floating point.
package core

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a non-negative currency amount with cent precision.
type Money struct {
	Amount decimal.Decimal
}

// NewMoney rounds d half-up to cents.
func NewMoney(d decimal.Decimal) Money {
	return Money{Amount: d.Round(2)}
}

// MoneyFromCents builds an amount from an integer number of cents.
func MoneyFromCents(cents int64) Money {
	return Money{Amount: decimal.New(cents, -2)}
}

// ZeroMoney returns a zero amount.
func ZeroMoney() Money {
	return Money{Amount: decimal.Zero}
}

// MaxAmountDigits is the number of digits allowed before the decimal point,
// matching the NUMERIC(12,2) column.
const MaxAmountDigits = 10

// maxExponent bounds scientific notation before the value is expanded.
const maxExponent = 20

var maxAmount = decimal.New(1, MaxAmountDigits)

// ParseAmount converts a decimal string to Money with half-up rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and
// JSON-style exponents (4.5e0). Blank input and zero return
// ErrMissingAmount; signs, amounts with more than MaxAmountDigits integer
// digits and malformed numbers return ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,345") -> 12.35, nil
//	ParseAmount("0") -> ErrMissingAmount
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrMissingAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return Money{}, ErrInvalidAmount
	}
	if i := strings.IndexAny(s, "eE"); i >= 0 {
		exp, err := strconv.Atoi(s[i+1:])
		if err != nil || exp > maxExponent || exp < -maxExponent {
			return Money{}, ErrInvalidAmount
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	m := NewMoney(d)
	if err := m.Validate(); err != nil {
		return Money{}, err
	}
	return m, nil
}

// Validate checks that the amount is positive and fits the storage column.
func (m Money) Validate() error {
	if m.Amount.IsZero() {
		return ErrMissingAmount
	}
	if m.Amount.IsNegative() || m.Amount.GreaterThanOrEqual(maxAmount) {
		return ErrInvalidAmount
	}
	return nil
}

func (m Money) Add(other Money) Money {
	return Money{Amount: m.Amount.Add(other.Amount)}
}

func (m Money) Equal(other Money) bool {
	return m.Amount.Equal(other.Amount)
}

// Cents returns the amount in integer cents.
func (m Money) Cents() int64 {
	return m.Amount.Shift(2).Round(0).IntPart()
}

// String renders the amount with exactly two decimals.
func (m Money) String() string {
	return m.Amount.StringFixed(2)
}

// MarshalJSON writes the amount as a bare JSON number with trailing zeros
// trimmed, so 4.50 is encoded as 4.5.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Amount.Round(2).String()), nil
}

func (m *Money) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" {
		*m = Money{}
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, s)
	}
	*m = NewMoney(d)
	return nil
}

// Value binds the amount as its fixed two-decimal text form.
func (m Money) Value() (driver.Value, error) {
	return m.String(), nil
}

// Scan reads NUMERIC text (PostgreSQL) or REAL/INTEGER values (SQLite) and
// rounds to cents.
func (m *Money) Scan(src any) error {
	if src == nil {
		*m = ZeroMoney()
		return nil
	}
	var d decimal.Decimal
	if err := d.Scan(src); err != nil {
		return fmt.Errorf("scan money: %w", err)
	}
	*m = NewMoney(d)
	return nil
}
