package relationship

import (
	"errors"
	"time"
)

// Status constants
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Domain errors
var (
	ErrEmptyTrainer  = errors.New("trainer is required")
	ErrEmptyClient   = errors.New("client is required")
	ErrSelfRelation  = errors.New("a trainer cannot be their own client")
	ErrNotActive     = errors.New("relationship is not active")
	ErrLimitReached  = errors.New("active client limit reached")
	ErrAlreadyActive = errors.New("an active relationship already exists")
	ErrNotFound      = errors.New("relationship not found")
	// ErrInvitationLinked means another relationship already came from the same invitation.
	ErrInvitationLinked = errors.New("invitation already has a relationship")
)

// Relationship links a trainer to one client. A client may have several trainers,
// but a (trainer, client) pair has at most one active relationship.
type Relationship struct {
	ID           string
	TrainerID    string
	ClientID     string
	InvitationID string // empty when the link was made without an invitation
	Status       string
	CreatedAt    time.Time
	EndedAt      time.Time
}

// Validate checks if the Relationship has valid data.
// PRE: Relationship struct is populated
// POST: Returns nil if valid, error otherwise
func (r *Relationship) Validate() error {
	if r.TrainerID == "" {
		return ErrEmptyTrainer
	}
	if r.ClientID == "" {
		return ErrEmptyClient
	}
	if r.TrainerID == r.ClientID {
		return ErrSelfRelation
	}
	return nil
}

// IsActive returns true while the relationship counts against the trainer's limit.
func (r *Relationship) IsActive() bool {
	return r.Status == StatusActive
}

// End deactivates the relationship.
// PRE: Status is active
// POST: Status is inactive, EndedAt is now
func (r *Relationship) End(now time.Time) error {
	if r.Status != StatusActive {
		return ErrNotActive
	}
	r.Status = StatusInactive
	r.EndedAt = now
	return nil
}
