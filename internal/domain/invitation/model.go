package invitation

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

// Status constants for the invitation lifecycle.
// pending -> accepted | expired | cancelled. Records are never deleted.
const (
	StatusPending   = "pending"
	StatusAccepted  = "accepted"
	StatusExpired   = "expired"
	StatusCancelled = "cancelled"
)

// Field limits.
const (
	MaxEmailLength           = 254
	MaxFirstNameLength       = 80
	MaxPersonalMessageLength = 2000
	TokenBytes               = 32
	DefaultTTL               = 7 * 24 * time.Hour
)

// Invitation is a trainer's single-use offer for a client to join their roster.
type Invitation struct {
	ID              string
	Token           string
	TrainerID       string
	Email           string
	FirstName       string
	PersonalMessage string
	Status          string
	ExpiresAt       time.Time
	AcceptedAt      time.Time
	CreatedAt       time.Time
}

// Validate checks if the Invitation has valid data.
// PRE: Invitation struct is populated
// POST: Returns nil if valid, an error wrapping ErrInvalidInput otherwise
func (i *Invitation) Validate() error {
	if i.TrainerID == "" {
		return fmt.Errorf("%w: trainer is required", ErrInvalidInput)
	}
	email := strings.TrimSpace(i.Email)
	if email == "" || !strings.Contains(email, "@") {
		return fmt.Errorf("%w: a valid email is required", ErrInvalidInput)
	}
	if len(i.Email) > MaxEmailLength {
		return fmt.Errorf("%w: email cannot exceed %d characters", ErrInvalidInput, MaxEmailLength)
	}
	if len(i.FirstName) > MaxFirstNameLength {
		return fmt.Errorf("%w: first name cannot exceed %d characters", ErrInvalidInput, MaxFirstNameLength)
	}
	if len(i.PersonalMessage) > MaxPersonalMessageLength {
		return fmt.Errorf("%w: personal message cannot exceed %d characters", ErrInvalidInput, MaxPersonalMessageLength)
	}
	if i.Token == "" {
		return fmt.Errorf("%w: token is required", ErrInvalidInput)
	}
	if i.ExpiresAt.IsZero() {
		return fmt.Errorf("%w: expiry is required", ErrInvalidInput)
	}
	return nil
}

// IsOverdue reports whether a pending invitation has passed its expiry at now.
// INVARIANT: Invitation fields are not mutated
func (i *Invitation) IsOverdue(now time.Time) bool {
	return i.Status == StatusPending && now.After(i.ExpiresAt)
}

// CheckUsable reports why the invitation cannot be accepted at now, or nil.
// An overdue pending invitation is reported as expired; callers persist the flip.
// INVARIANT: Invitation fields are not mutated
func (i *Invitation) CheckUsable(now time.Time) error {
	switch i.Status {
	case StatusPending:
		if now.After(i.ExpiresAt) {
			return ErrExpired
		}
		return nil
	case StatusExpired:
		return ErrExpired
	case StatusAccepted, StatusCancelled:
		return ErrAlreadyUsed
	}
	return fmt.Errorf("%w: unknown invitation status %q", ErrInvalidInput, i.Status)
}

// Expire moves a pending invitation to expired.
// POST: Status is expired if it was pending; other statuses are untouched
func (i *Invitation) Expire() {
	if i.Status == StatusPending {
		i.Status = StatusExpired
	}
}

// Accept marks the invitation as used.
// PRE: CheckUsable returned nil
// POST: Status is accepted, AcceptedAt is now
func (i *Invitation) Accept(now time.Time) {
	i.Status = StatusAccepted
	i.AcceptedAt = now
}

// Cancel withdraws a pending invitation.
// PRE: Status is pending
// POST: Status is cancelled
func (i *Invitation) Cancel() error {
	if i.Status != StatusPending {
		return ErrAlreadyUsed
	}
	i.Status = StatusCancelled
	return nil
}

// Renew issues a new token and expiry for a pending or expired invitation.
// The old token stops working because tokens are looked up exactly.
// PRE: Status is pending or expired
// POST: Token replaced, Status is pending, ExpiresAt is now+ttl
func (i *Invitation) Renew(token string, now time.Time, ttl time.Duration) error {
	if i.Status != StatusPending && i.Status != StatusExpired {
		return ErrAlreadyUsed
	}
	i.Token = token
	i.Status = StatusPending
	i.ExpiresAt = now.Add(ttl)
	return nil
}

// GenerateToken returns TokenBytes of crypto/rand output encoded as unpadded base64url.
// PRE: none
// POST: Returns a 43 character URL-safe token, or an error if the system RNG fails
func GenerateToken() (string, error) {
	buf := make([]byte, TokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate invitation token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// MaskEmail hides most of the local part: "jordan@example.com" becomes "j*****@example.com".
func MaskEmail(email string) string {
	at := strings.LastIndexByte(email, '@')
	if at <= 0 {
		return email
	}
	local := email[:at]
	if len(local) == 1 {
		return "*" + email[at:]
	}
	return local[:1] + strings.Repeat("*", len(local)-1) + email[at:]
}

// View is the read-only shape handed to an invitee before they accept.
type View struct {
	InvitationID    string    `json:"invitation_id"`
	TrainerName     string    `json:"trainer_name"`
	TrainerEmail    string    `json:"trainer_email"`
	Email           string    `json:"email"`
	MaskedEmail     string    `json:"masked_email"`
	FirstName       string    `json:"first_name,omitempty"`
	PersonalMessage string    `json:"personal_message,omitempty"`
	ExpiresAt       time.Time `json:"expires_at"`
}
