package program

import (
	"errors"
	"strings"
	"time"
)

// DateLayout is the calendar date format used in URLs, JSON and storage.
const DateLayout = "2006-01-02"

// Field limits.
const (
	MaxNameLength        = 120
	MaxDescriptionLength = 4000
	MaxDurationWeeks     = 52
)

// Domain errors
var (
	ErrEmptyName        = errors.New("program name cannot be empty")
	ErrNameTooLong      = errors.New("program name cannot exceed 120 characters")
	ErrDescriptionLong  = errors.New("program description cannot exceed 4000 characters")
	ErrEmptyTrainer     = errors.New("program trainer is required")
	ErrMissingStartDate = errors.New("program start date is required")
	ErrInvalidDuration  = errors.New("program duration must be between 1 and 52 weeks")
	ErrDateOutOfRange   = errors.New("date is outside the program")
	ErrNotFound         = errors.New("program not found")
	ErrNotOwner         = errors.New("program belongs to another trainer")
)

// Program is a block of training a trainer lays out on a calendar, optionally for one client.
// INVARIANT: StartDate is a UTC midnight; the program covers [StartDate, StartDate+7*DurationWeeks days).
type Program struct {
	ID            string
	TrainerID     string
	ClientID      string
	Name          string
	Description   string
	StartDate     time.Time
	DurationWeeks int
	CreatedAt     time.Time
}

// Validate checks if the Program has valid data.
// PRE: Program struct is populated
// POST: Returns nil if valid, error otherwise
func (p *Program) Validate() error {
	if p.TrainerID == "" {
		return ErrEmptyTrainer
	}
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	if len(p.Name) > MaxNameLength {
		return ErrNameTooLong
	}
	if len(p.Description) > MaxDescriptionLength {
		return ErrDescriptionLong
	}
	if p.StartDate.IsZero() {
		return ErrMissingStartDate
	}
	if p.DurationWeeks < 1 || p.DurationWeeks > MaxDurationWeeks {
		return ErrInvalidDuration
	}
	return nil
}

// EndDate is the first date after the program.
func (p *Program) EndDate() time.Time {
	return p.StartDate.AddDate(0, 0, 7*p.DurationWeeks)
}

// Contains reports whether date falls on one of the program's days.
func (p *Program) Contains(date time.Time) bool {
	d := Day(date)
	return !d.Before(p.StartDate) && d.Before(p.EndDate())
}

// Dates lists every day of the program in order.
func (p *Program) Dates() []time.Time {
	out := make([]time.Time, 0, 7*p.DurationWeeks)
	for d := p.StartDate; d.Before(p.EndDate()); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

// OwnedBy reports whether trainerID may edit the program.
func (p *Program) OwnedBy(trainerID string) bool {
	return p.TrainerID == trainerID
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}
