package subscription

import (
	"errors"
	"time"
)

// Tier constants
const (
	TierFree  = "free"
	TierPro   = "pro"
	TierBeast = "beast"
)

// Unlimited is the ClientLimit of tiers without a cap.
const Unlimited = -1

// Domain errors
var (
	ErrInvalidTier  = errors.New("tier must be one of: free, pro, beast")
	ErrEmptyTrainer = errors.New("trainer is required")
)

var limits = map[string]int{
	TierFree:  3,
	TierPro:   25,
	TierBeast: Unlimited,
}

// Subscription records which tier a trainer pays for.
type Subscription struct {
	TrainerID string
	Tier      string
	UpdatedAt time.Time
}

// Default is the subscription assumed for trainers with no stored record.
func Default(trainerID string) Subscription {
	return Subscription{TrainerID: trainerID, Tier: TierFree}
}

// Validate checks if the Subscription has valid data.
// PRE: Subscription struct is populated
// POST: Returns nil if valid, error otherwise
func (s *Subscription) Validate() error {
	if s.TrainerID == "" {
		return ErrEmptyTrainer
	}
	if _, ok := limits[s.Tier]; !ok {
		return ErrInvalidTier
	}
	return nil
}

// ClientLimit returns the number of active clients the tier allows, or Unlimited.
// Unknown tiers get the free limit.
func (s *Subscription) ClientLimit() int {
	return LimitFor(s.Tier)
}

// LimitFor returns the client limit for a tier name.
func LimitFor(tier string) int {
	if n, ok := limits[tier]; ok {
		return n
	}
	return limits[TierFree]
}

// Allows reports whether a trainer with active clients may take one more.
// INVARIANT: Subscription fields are not mutated
func (s *Subscription) Allows(active int) bool {
	limit := s.ClientLimit()
	return limit == Unlimited || active < limit
}
