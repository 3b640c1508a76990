package policy

import (
	"fmt"
	"time"

	"taskflow/internal/ident"
)

// DateLayout is the calendar-date format used by daily log entries.
const DateLayout = "2006-01-02"

// WorkEntry is an already logged share of a user's day.
type WorkEntry struct {
	UserID    ident.UserID
	Date      string
	Headcount float64
}

// MaxDailyHeadcount is the most one user may log for one date.
const MaxDailyHeadcount = 1.0

// WorkHour caps the headcount a user logs per date.
// Entries match on exact user id and date string; there is no rounding tolerance.
type WorkHour struct{}

// Total sums the headcount already logged for userID on date.
func (WorkHour) Total(userID ident.UserID, date string, existing []WorkEntry) float64 {
	var sum float64
	for _, e := range existing {
		if e.UserID.Equals(userID) && e.Date == date {
			sum += e.Headcount
		}
	}
	return sum
}

func (p WorkHour) IsSatisfiedBy(headcount float64, userID ident.UserID, date string, existing []WorkEntry) bool {
	return p.Total(userID, date, existing)+headcount <= MaxDailyHeadcount
}

func (p WorkHour) AssertIsValid(headcount float64, userID ident.UserID, date string, existing []WorkEntry) error {
	total := p.Total(userID, date, existing)
	if total+headcount <= MaxDailyHeadcount {
		return nil
	}
	return violation("work hour", []string{
		fmt.Sprintf("user %s already logged %g for %s; adding %g exceeds %g", userID, total, date, headcount, MaxDailyHeadcount),
	})
}

// HistoricalEntry limits edits to entries dated between today and MaxAgeDays ago.
type HistoricalEntry struct {
	MaxAgeDays int
}

var DefaultHistoricalEntry = HistoricalEntry{MaxAgeDays: 30}

// AgeInDays is the number of calendar days (UTC) from entryDate to now; negative for future dates.
func AgeInDays(entryDate, now time.Time) int {
	e := time.Date(entryDate.Year(), entryDate.Month(), entryDate.Day(), 0, 0, 0, 0, time.UTC)
	n := now.UTC()
	n = time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
	return int(n.Sub(e).Hours() / 24)
}

func (p HistoricalEntry) IsSatisfiedBy(entryDate, now time.Time) bool {
	age := AgeInDays(entryDate, now)
	return age >= 0 && age <= p.MaxAgeDays
}

func (p HistoricalEntry) AssertIsValid(entryDate, now time.Time) error {
	age := AgeInDays(entryDate, now)
	switch {
	case age < 0:
		return violation("historical entry", []string{fmt.Sprintf("entry dated %s is in the future", entryDate.Format(DateLayout))})
	case age > p.MaxAgeDays:
		return violation("historical entry", []string{fmt.Sprintf("entry dated %s is %d days old; only the last %d days can be changed", entryDate.Format(DateLayout), age, p.MaxAgeDays)})
	}
	return nil
}

// CompletedStatus is the display status that closes a task to time logging.
const CompletedStatus = "Completed"

// TaskCompletion forbids logging time against completed tasks. The match is exact.
type TaskCompletion struct{}

func (TaskCompletion) IsSatisfiedBy(taskStatus string) bool {
	return taskStatus != CompletedStatus
}

func (p TaskCompletion) AssertIsValid(taskStatus string) error {
	if p.IsSatisfiedBy(taskStatus) {
		return nil
	}
	return violation("task completion", []string{"cannot log time against a completed task"})
}
