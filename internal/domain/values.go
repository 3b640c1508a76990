package domain

import (
	"fmt"
	"math"
	"strings"
	"time"

	"taskflow/internal/policy"
)

// ValidationError is a value-object construction failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ManDay is a fraction of one person-day in [0, 1].
type ManDay struct{ v float64 }

func NewManDay(v float64) (ManDay, error) {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return ManDay{}, invalid("man_day", "must be between 0 and 1, got %v", v)
	}
	return ManDay{v: v}, nil
}

func (m ManDay) Float() float64 { return m.v }

// Progress is a completion percentage in [0, 100].
type Progress struct{ v int }

func NewProgress(v int) (Progress, error) {
	if v < 0 || v > 100 {
		return Progress{}, invalid("progress", "must be between 0 and 100, got %d", v)
	}
	return Progress{v: v}, nil
}

func (p Progress) Int() int { return p.v }

// Money is an amount in minor units of an ISO 4217 currency.
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func NewMoney(amount int64, currency string) (Money, error) {
	c := strings.TrimSpace(currency)
	if len(c) != 3 || strings.ToUpper(c) != c {
		return Money{}, invalid("currency", "must be a 3-letter upper-case code, got %q", currency)
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return Money{}, invalid("currency", "must be a 3-letter upper-case code, got %q", currency)
		}
	}
	return Money{Amount: amount, Currency: c}, nil
}

func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, invalid("currency", "cannot add %s to %s", other.Currency, m.Currency)
	}
	return Money{Amount: m.Amount + other.Amount, Currency: m.Currency}, nil
}

// DateRange is an inclusive span of calendar dates.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func NewDateRange(start, end string) (DateRange, error) {
	s, err := time.Parse(policy.DateLayout, start)
	if err != nil {
		return DateRange{}, invalid("start", "expected YYYY-MM-DD, got %q", start)
	}
	e, err := time.Parse(policy.DateLayout, end)
	if err != nil {
		return DateRange{}, invalid("end", "expected YYYY-MM-DD, got %q", end)
	}
	if e.Before(s) {
		return DateRange{}, invalid("date_range", "end %s is before start %s", end, start)
	}
	return DateRange{Start: start, End: end}, nil
}

// Contains reports whether day (YYYY-MM-DD) falls inside the range.
func (r DateRange) Contains(day string) bool {
	return day >= r.Start && day <= r.End
}

// Days is the inclusive number of calendar days covered.
func (r DateRange) Days() int {
	s, _ := time.Parse(policy.DateLayout, r.Start)
	e, _ := time.Parse(policy.DateLayout, r.End)
	return int(e.Sub(s).Hours()/24) + 1
}

// ParseDate validates a YYYY-MM-DD calendar date.
func ParseDate(field, day string) (time.Time, error) {
	d, err := time.Parse(policy.DateLayout, strings.TrimSpace(day))
	if err != nil {
		return time.Time{}, invalid(field, "expected YYYY-MM-DD, got %q", day)
	}
	return d, nil
}
