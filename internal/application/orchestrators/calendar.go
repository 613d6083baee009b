package orchestrators

import (
	"context"
	"log/slog"
	"time"

	"coachdesk/internal/domain/calendar"
	"coachdesk/internal/domain/program"
)

// ProgramReader loads programs by ID.
type ProgramReader interface {
	GetByID(ctx context.Context, id string) (program.Program, error)
}

// CalendarStoreForEdit defines the store interface needed by calendar edits.
type CalendarStoreForEdit interface {
	GetDay(ctx context.Context, programID string, date time.Time) (calendar.Day, error)
	SaveDay(ctx context.Context, day calendar.Day) error
	DeleteDay(ctx context.Context, programID string, date time.Time) error
}

// CalendarDeps holds dependencies for every calendar edit.
type CalendarDeps struct {
	Programs ProgramReader
	Days     CalendarStoreForEdit
	Now      func() time.Time
}

// CalendarDayRef names one date of one program, edited by TrainerID.
type CalendarDayRef struct {
	TrainerID string
	ProgramID string
	Date      time.Time
}

// SetCalendarDayInput carries input for SetCalendarDay. A nil Notes keeps the current notes.
type SetCalendarDayInput struct {
	CalendarDayRef
	Type  string
	Notes *string
}

// ExerciseInput carries an exercise for AddExercise and UpdateExercise. Index is ignored by add.
type ExerciseInput struct {
	CalendarDayRef
	Index    int
	Exercise calendar.ExerciseAssignment
}

// RemoveExerciseInput carries input for RemoveExercise.
type RemoveExerciseInput struct {
	CalendarDayRef
	Index int
}

// MoveExerciseInput carries input for MoveExercise.
type MoveExerciseInput struct {
	CalendarDayRef
	From int
	To   int
}

// loadDay checks ownership and range, then loads the stored day or a free day.
func loadDay(ctx context.Context, ref CalendarDayRef, deps CalendarDeps) (calendar.Day, error) {
	p, err := deps.Programs.GetByID(ctx, ref.ProgramID)
	if err != nil {
		return calendar.Day{}, err
	}
	if !p.OwnedBy(ref.TrainerID) {
		return calendar.Day{}, program.ErrNotOwner
	}
	if !p.Contains(ref.Date) {
		return calendar.Day{}, program.ErrDateOutOfRange
	}
	return deps.Days.GetDay(ctx, p.ID, program.Day(ref.Date))
}

// storeDay persists the day. A free day with no notes is deleted: unset dates read as free.
func storeDay(ctx context.Context, day calendar.Day, deps CalendarDeps, event string) (calendar.Day, error) {
	if err := day.Validate(); err != nil {
		return calendar.Day{}, err
	}
	day.UpdatedAt = deps.Now()
	var err error
	if day.Type == calendar.TypeFree && day.Notes == "" {
		err = deps.Days.DeleteDay(ctx, day.ProgramID, day.Date)
	} else {
		err = deps.Days.SaveDay(ctx, day)
	}
	if err != nil {
		return calendar.Day{}, err
	}
	slog.Info("calendar_event", "event", event, "program_id", day.ProgramID, "date", day.Date.Format(program.DateLayout), "type", day.Type, "exercises", len(day.Exercises))
	return day, nil
}

// ExecuteSetCalendarDay sets a day's type and, optionally, its notes.
// PRE: Date lies inside the program
// POST: Leaving workout discards the day's exercises; notes are kept unless replaced
func ExecuteSetCalendarDay(ctx context.Context, input SetCalendarDayInput, deps CalendarDeps) (calendar.Day, error) {
	day, err := loadDay(ctx, input.CalendarDayRef, deps)
	if err != nil {
		return calendar.Day{}, err
	}
	if err := day.SetType(input.Type); err != nil {
		return calendar.Day{}, err
	}
	if input.Notes != nil {
		day.Notes = *input.Notes
	}
	return storeDay(ctx, day, deps, "day_set")
}

// ExecuteAddExercise appends an exercise to a workout day.
// PRE: The day is a workout day
// POST: The exercise is last in the day's order
func ExecuteAddExercise(ctx context.Context, input ExerciseInput, deps CalendarDeps) (calendar.Day, error) {
	day, err := loadDay(ctx, input.CalendarDayRef, deps)
	if err != nil {
		return calendar.Day{}, err
	}
	if err := day.AddExercise(input.Exercise); err != nil {
		return calendar.Day{}, err
	}
	return storeDay(ctx, day, deps, "exercise_added")
}

// ExecuteUpdateExercise replaces the exercise at input.Index.
func ExecuteUpdateExercise(ctx context.Context, input ExerciseInput, deps CalendarDeps) (calendar.Day, error) {
	day, err := loadDay(ctx, input.CalendarDayRef, deps)
	if err != nil {
		return calendar.Day{}, err
	}
	if err := day.UpdateExercise(input.Index, input.Exercise); err != nil {
		return calendar.Day{}, err
	}
	return storeDay(ctx, day, deps, "exercise_updated")
}

// ExecuteRemoveExercise deletes the exercise at input.Index.
func ExecuteRemoveExercise(ctx context.Context, input RemoveExerciseInput, deps CalendarDeps) (calendar.Day, error) {
	day, err := loadDay(ctx, input.CalendarDayRef, deps)
	if err != nil {
		return calendar.Day{}, err
	}
	if err := day.RemoveExercise(input.Index); err != nil {
		return calendar.Day{}, err
	}
	return storeDay(ctx, day, deps, "exercise_removed")
}

// ExecuteMoveExercise reorders the day's exercises.
func ExecuteMoveExercise(ctx context.Context, input MoveExerciseInput, deps CalendarDeps) (calendar.Day, error) {
	day, err := loadDay(ctx, input.CalendarDayRef, deps)
	if err != nil {
		return calendar.Day{}, err
	}
	if err := day.MoveExercise(input.From, input.To); err != nil {
		return calendar.Day{}, err
	}
	return storeDay(ctx, day, deps, "exercise_moved")
}

// ExecuteClearCalendarDay resets a date to an unplanned free day.
// POST: Nothing is stored for the date
func ExecuteClearCalendarDay(ctx context.Context, ref CalendarDayRef, deps CalendarDeps) (calendar.Day, error) {
	day, err := loadDay(ctx, ref, deps)
	if err != nil {
		return calendar.Day{}, err
	}
	if err := deps.Days.DeleteDay(ctx, day.ProgramID, day.Date); err != nil {
		return calendar.Day{}, err
	}
	slog.Info("calendar_event", "event", "day_cleared", "program_id", day.ProgramID, "date", day.Date.Format(program.DateLayout))
	return calendar.FreeDay(day.ProgramID, day.Date), nil
}
