package shared

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Money is an amount in minor units (cents) of the company currency.
type Money int64

// Epsilon is the largest balance still considered settled.
const Epsilon Money = 1

// DateLayout is the civil date format used in messages and payloads.
const DateLayout = "2006-01-02"

// ParseMoney converts a decimal string such as "115.00" into minor units,
// rounding half away from zero to the cent.
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, Invalid("amount", fmt.Sprintf("%q is not a decimal", s))
	}
	return FromDecimal(d), nil
}

// MustMoney is ParseMoney for fixtures and tests.
func MustMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

// FromDecimal rounds a decimal amount to the cent.
func FromDecimal(d decimal.Decimal) Money {
	return Money(d.Round(2).Shift(2).IntPart())
}

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -2)
}

func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Abs returns the absolute amount.
func (m Money) Abs() Money {
	if m < 0 {
		return -m
	}
	return m
}

// MarshalText renders the amount as a fixed two-decimal string.
func (m Money) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText parses a decimal string.
func (m *Money) UnmarshalText(b []byte) error {
	v, err := ParseMoney(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// DateOf truncates t to its civil date in UTC.
func DateOf(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, Invalid("date", fmt.Sprintf("%q is not YYYY-MM-DD", s))
	}
	return t, nil
}

// MustDate is ParseDate for fixtures and tests.
func MustDate(s string) time.Time {
	t, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}
