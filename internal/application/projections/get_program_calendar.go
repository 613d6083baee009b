package projections

import (
	"context"
	"time"

	domainCalendar "coachdesk/internal/domain/calendar"
	domainProgram "coachdesk/internal/domain/program"
)

// GetProgramCalendarQuery carries query parameters.
type GetProgramCalendarQuery struct {
	ViewerID  string
	ProgramID string
}

// CalendarDayView is one date of the program calendar.
type CalendarDayView struct {
	Date      string                              `json:"date"` // YYYY-MM-DD
	Week      int                                 `json:"week"` // 1-indexed
	Type      string                              `json:"type"`
	Notes     string                              `json:"notes,omitempty"`
	Exercises []domainCalendar.ExerciseAssignment `json:"exercises"`
}

// ProgramView is the summary shape of a program.
type ProgramView struct {
	ID            string `json:"id"`
	TrainerID     string `json:"trainer_id"`
	ClientID      string `json:"client_id,omitempty"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"` // last day, inclusive
	DurationWeeks int    `json:"duration_weeks"`
}

// GetProgramCalendarResult carries the program and every one of its days.
type GetProgramCalendarResult struct {
	Program ProgramView       `json:"program"`
	Days    []CalendarDayView `json:"days"`
}

// GetProgramCalendarDeps holds dependencies for GetProgramCalendar.
type GetProgramCalendarDeps struct {
	Programs ProgramStore
	Days     CalendarStore
}

// QueryGetProgramCalendar returns the full calendar of a program, filling unplanned dates as free.
// PRE: ViewerID is the owning trainer or the assigned client
// POST: Days has exactly 7*DurationWeeks entries in date order
func QueryGetProgramCalendar(ctx context.Context, query GetProgramCalendarQuery, deps GetProgramCalendarDeps) (GetProgramCalendarResult, error) {
	p, err := deps.Programs.GetByID(ctx, query.ProgramID)
	if err != nil {
		return GetProgramCalendarResult{}, err
	}
	if !canView(p, query.ViewerID) {
		return GetProgramCalendarResult{}, domainProgram.ErrNotOwner
	}

	stored, err := deps.Days.ListDays(ctx, p.ID, p.StartDate, p.EndDate())
	if err != nil {
		return GetProgramCalendarResult{}, err
	}
	byDate := make(map[string]domainCalendar.Day, len(stored))
	for _, d := range stored {
		byDate[d.Date.Format(domainProgram.DateLayout)] = d
	}

	dates := p.Dates()
	days := make([]CalendarDayView, 0, len(dates))
	for i, date := range dates {
		key := date.Format(domainProgram.DateLayout)
		d, ok := byDate[key]
		if !ok {
			d = domainCalendar.FreeDay(p.ID, date)
		}
		exercises := d.Exercises
		if exercises == nil {
			exercises = []domainCalendar.ExerciseAssignment{}
		}
		days = append(days, CalendarDayView{
			Date:      key,
			Week:      i/7 + 1,
			Type:      d.Type,
			Notes:     d.Notes,
			Exercises: exercises,
		})
	}
	return GetProgramCalendarResult{Program: programView(p), Days: days}, nil
}

// GetProgramListQuery carries query parameters.
type GetProgramListQuery struct {
	AccountID string
	Role      string // "trainer" lists owned programs, anything else assigned ones
}

// GetProgramListResult carries the query result.
type GetProgramListResult struct {
	Programs []ProgramView `json:"programs"`
}

// QueryGetProgramList lists the programs a trainer owns or a client is assigned to.
func QueryGetProgramList(ctx context.Context, query GetProgramListQuery, deps GetProgramCalendarDeps) (GetProgramListResult, error) {
	var (
		ps  []domainProgram.Program
		err error
	)
	if query.Role == "trainer" {
		ps, err = deps.Programs.ListByTrainer(ctx, query.AccountID)
	} else {
		ps, err = deps.Programs.ListByClient(ctx, query.AccountID)
	}
	if err != nil {
		return GetProgramListResult{}, err
	}
	out := GetProgramListResult{Programs: make([]ProgramView, 0, len(ps))}
	for _, p := range ps {
		out.Programs = append(out.Programs, programView(p))
	}
	return out, nil
}

func canView(p domainProgram.Program, viewerID string) bool {
	return viewerID != "" && (p.OwnedBy(viewerID) || p.ClientID == viewerID)
}

func programView(p domainProgram.Program) ProgramView {
	return ProgramView{
		ID:            p.ID,
		TrainerID:     p.TrainerID,
		ClientID:      p.ClientID,
		Name:          p.Name,
		Description:   p.Description,
		StartDate:     p.StartDate.Format(domainProgram.DateLayout),
		EndDate:       p.EndDate().Add(-24 * time.Hour).Format(domainProgram.DateLayout),
		DurationWeeks: p.DurationWeeks,
	}
}
