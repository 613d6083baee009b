package subscription_test

import (
	"testing"

	"coachdesk/internal/domain/subscription"
)

// TestSubscription_Allows tests the admission boundary for each tier.
func TestSubscription_Allows(t *testing.T) {
	tests := []struct {
		name   string
		tier   string
		active int
		want   bool
	}{
		{"free under limit", subscription.TierFree, 2, true},
		{"free at limit", subscription.TierFree, 3, false},
		{"pro under limit", subscription.TierPro, 24, true},
		{"pro at limit", subscription.TierPro, 25, false},
		{"beast never full", subscription.TierBeast, 10000, true},
		{"unknown tier treated as free", "platinum", 3, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := subscription.Subscription{TrainerID: "t1", Tier: tt.tier}
			if got := s.Allows(tt.active); got != tt.want {
				t.Errorf("Allows(%d) = %v, want %v", tt.active, got, tt.want)
			}
		})
	}
}

func TestSubscription_Validate(t *testing.T) {
	if err := (&subscription.Subscription{TrainerID: "t1", Tier: "gold"}).Validate(); err != subscription.ErrInvalidTier {
		t.Errorf("Validate() unknown tier = %v", err)
	}
	if err := (&subscription.Subscription{Tier: subscription.TierPro}).Validate(); err != subscription.ErrEmptyTrainer {
		t.Errorf("Validate() no trainer = %v", err)
	}
	d := subscription.Default("t1")
	if err := d.Validate(); err != nil || d.ClientLimit() != 3 {
		t.Errorf("Default() = %+v limit %d err %v", d, d.ClientLimit(), err)
	}
}
