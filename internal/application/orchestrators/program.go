package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"coachdesk/internal/domain/program"
	"coachdesk/internal/domain/relationship"
)

// ProgramStoreForCreate defines the store interface needed by CreateProgram.
type ProgramStoreForCreate interface {
	Save(ctx context.Context, p program.Program) error
}

// ActiveRelationshipReader finds an active trainer-client link.
type ActiveRelationshipReader interface {
	GetActive(ctx context.Context, trainerID, clientID string) (relationship.Relationship, error)
}

// CreateProgramInput carries input for the create program orchestrator.
type CreateProgramInput struct {
	TrainerID     string
	ClientID      string // optional
	Name          string
	Description   string
	StartDate     time.Time
	DurationWeeks int
}

// CreateProgramDeps holds dependencies for CreateProgram.
type CreateProgramDeps struct {
	Programs      ProgramStoreForCreate
	Relationships ActiveRelationshipReader
	GenerateID    func() string
	Now           func() time.Time
}

var ErrClientNotLinked = errors.New("client is not an active client of this trainer")

// ExecuteCreateProgram creates a program, optionally assigned to one of the trainer's clients.
// PRE: TrainerID is a trainer
// POST: Program persisted with StartDate truncated to a UTC date
func ExecuteCreateProgram(ctx context.Context, input CreateProgramInput, deps CreateProgramDeps) (program.Program, error) {
	p := program.Program{
		ID:            deps.GenerateID(),
		TrainerID:     input.TrainerID,
		ClientID:      input.ClientID,
		Name:          strings.TrimSpace(input.Name),
		Description:   strings.TrimSpace(input.Description),
		DurationWeeks: input.DurationWeeks,
		CreatedAt:     deps.Now(),
	}
	if !input.StartDate.IsZero() {
		p.StartDate = program.Day(input.StartDate)
	}
	if err := p.Validate(); err != nil {
		return program.Program{}, err
	}

	if p.ClientID != "" {
		if _, err := deps.Relationships.GetActive(ctx, p.TrainerID, p.ClientID); err != nil {
			if errors.Is(err, relationship.ErrNotFound) {
				return program.Program{}, ErrClientNotLinked
			}
			return program.Program{}, fmt.Errorf("check client: %w", err)
		}
	}

	if err := deps.Programs.Save(ctx, p); err != nil {
		return program.Program{}, err
	}

	slog.Info("program_event", "event", "program_created", "program_id", p.ID, "trainer_id", p.TrainerID, "weeks", p.DurationWeeks)
	return p, nil
}
