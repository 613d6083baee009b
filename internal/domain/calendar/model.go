package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Day type constants.
const (
	TypeRest    = "rest"
	TypeWorkout = "workout"
	TypeFree    = "free" // also what unset dates report
)

// Limits.
const (
	MaxNotesLength        = 2000
	MaxExerciseNameLength = 120
	MaxExercisesPerDay    = 40
)

// Domain errors
var (
	ErrInvalidType     = errors.New("day type must be one of: rest, workout, free")
	ErrNotWorkoutDay   = errors.New("exercises can only be added to workout days")
	ErrIndexOutOfRange = errors.New("exercise index out of range")
	ErrTooManyExercise = errors.New("a day cannot have more than 40 exercises")
	ErrEmptyExercise   = errors.New("exercise name is required")
	ErrNegativeTarget  = errors.New("sets, reps and rest cannot be negative")
	ErrNotesTooLong    = errors.New("notes cannot exceed 2000 characters")
)

// ExerciseAssignment is one prescribed exercise on a workout day.
type ExerciseAssignment struct {
	Exercise    string  `json:"exercise"`
	Sets        int     `json:"sets"`
	Reps        int     `json:"reps"`
	RestSeconds int     `json:"rest_seconds"`
	Weight      float64 `json:"weight"`
	Notes       string  `json:"notes,omitempty"`
}

// Validate checks if the ExerciseAssignment has valid data.
// PRE: none
// POST: Returns nil if valid, error otherwise
func (e *ExerciseAssignment) Validate() error {
	name := strings.TrimSpace(e.Exercise)
	if name == "" {
		return ErrEmptyExercise
	}
	if len(name) > MaxExerciseNameLength {
		return fmt.Errorf("exercise name cannot exceed %d characters", MaxExerciseNameLength)
	}
	if e.Sets < 0 || e.Reps < 0 || e.RestSeconds < 0 || e.Weight < 0 {
		return ErrNegativeTarget
	}
	if len(e.Notes) > MaxNotesLength {
		return ErrNotesTooLong
	}
	return nil
}

// Day is the plan for one date of a program.
// INVARIANT: only workout days carry exercises.
type Day struct {
	ProgramID string
	Date      time.Time
	Type      string
	Notes     string
	Exercises []ExerciseAssignment
	UpdatedAt time.Time
}

// FreeDay is the value reported for a date nobody has planned.
func FreeDay(programID string, date time.Time) Day {
	return Day{ProgramID: programID, Date: date, Type: TypeFree}
}

// IsValidType reports whether t names a day type.
func IsValidType(t string) bool {
	return t == TypeRest || t == TypeWorkout || t == TypeFree
}

// Validate checks the day's invariants.
// PRE: none
// POST: returns nil if valid, error describing the first violation otherwise
func (d *Day) Validate() error {
	if !IsValidType(d.Type) {
		return ErrInvalidType
	}
	if len(d.Notes) > MaxNotesLength {
		return ErrNotesTooLong
	}
	if d.Type != TypeWorkout && len(d.Exercises) > 0 {
		return ErrNotWorkoutDay
	}
	if len(d.Exercises) > MaxExercisesPerDay {
		return ErrTooManyExercise
	}
	for i := range d.Exercises {
		if err := d.Exercises[i].Validate(); err != nil {
			return fmt.Errorf("exercise %d: %w", i, err)
		}
	}
	return nil
}

// SetType changes the day type. Leaving workout discards the day's exercises; notes are kept.
// PRE: t is a valid day type
// POST: Type is t; Exercises is empty unless t is workout
func (d *Day) SetType(t string) error {
	if !IsValidType(t) {
		return ErrInvalidType
	}
	d.Type = t
	if t != TypeWorkout {
		d.Exercises = nil
	}
	return nil
}

// AddExercise appends an exercise to a workout day.
// PRE: Type is workout
// POST: e is the last exercise
func (d *Day) AddExercise(e ExerciseAssignment) error {
	if d.Type != TypeWorkout {
		return ErrNotWorkoutDay
	}
	if err := e.Validate(); err != nil {
		return err
	}
	if len(d.Exercises) >= MaxExercisesPerDay {
		return ErrTooManyExercise
	}
	e.Exercise = strings.TrimSpace(e.Exercise)
	d.Exercises = append(d.Exercises, e)
	return nil
}

// UpdateExercise replaces the exercise at index i.
func (d *Day) UpdateExercise(i int, e ExerciseAssignment) error {
	if i < 0 || i >= len(d.Exercises) {
		return ErrIndexOutOfRange
	}
	if err := e.Validate(); err != nil {
		return err
	}
	e.Exercise = strings.TrimSpace(e.Exercise)
	d.Exercises[i] = e
	return nil
}

// RemoveExercise deletes the exercise at index i, keeping the order of the rest.
func (d *Day) RemoveExercise(i int) error {
	if i < 0 || i >= len(d.Exercises) {
		return ErrIndexOutOfRange
	}
	d.Exercises = append(d.Exercises[:i], d.Exercises[i+1:]...)
	return nil
}

// MoveExercise moves the exercise at from so that it ends up at index to.
func (d *Day) MoveExercise(from, to int) error {
	n := len(d.Exercises)
	if from < 0 || from >= n || to < 0 || to >= n {
		return ErrIndexOutOfRange
	}
	if from == to {
		return nil
	}
	e := d.Exercises[from]
	rest := append(d.Exercises[:from:from], d.Exercises[from+1:]...)
	out := make([]ExerciseAssignment, 0, n)
	out = append(out, rest[:to]...)
	out = append(out, e)
	out = append(out, rest[to:]...)
	d.Exercises = out
	return nil
}
