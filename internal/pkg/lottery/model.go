package lottery

import "time"

type Category string

const (
	CategoryBaseXP       Category = "base-xp"
	CategoryLargeXP      Category = "large-xp"
	CategoryMediumXP     Category = "medium-xp-bonus-votes"
	CategoryBonusVotes   Category = "bonus-votes"
	CategorySmallXPBonus Category = "small-xp-bonus-votes"
	CategoryToken        Category = "token"
)

// Award is one processed draw. Amounts are what was actually granted.
type Award struct {
	Seq uint64 `json:"seq"`

	Category Category `json:"category"`
	Roll     int      `json:"roll"`
	Tier     int      `json:"tier,omitempty"`

	XP         int64 `json:"xp"`
	BonusVotes int64 `json:"bonus_votes"`
	Tokens     int64 `json:"tokens"`
	Degraded   bool  `json:"degraded,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

type ClaimResult struct {
	Voter  string  `json:"voter"`
	Awards []Award `json:"awards"`

	LastClaimedAt int64 `json:"last_claimed_at"`
	PendingDraws  int64 `json:"pending_draws"`
	TotalXP       int64 `json:"total_xp"`
}

// Tier is one rung of the token ladder.
type Tier struct {
	Level   int
	Target  int64
	Minimum int64
	Floor   int64
	Points  int
}

// Branch is one slice of the 0-99 roll space.
type Branch struct {
	Category Category
	Tier     int
	Mass     int
}

type ClaimRequest struct {
	Voter string `json:"voter"`
}
