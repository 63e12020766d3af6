package events

import "time"

type Kind string

const (
	KindAssetRegistered    Kind = "asset-registered"
	KindAssetActiveChanged Kind = "asset-active-changed"
	KindVoteCast           Kind = "vote-cast"
	KindRatingChanged      Kind = "rating-changed"
	KindRewardClaimed      Kind = "reward-claimed"
	KindTreasuryChanged    Kind = "treasury-changed"
	KindRevenueDistributed Kind = "revenue-distributed"
)

type Event interface {
	EventKind() Kind
}

type AssetRegistered struct {
	AssetID   uint64    `json:"asset_id"`
	Rating    int64     `json:"rating"`
	Timestamp time.Time `json:"timestamp"`
}

type AssetActiveChanged struct {
	AssetID   uint64    `json:"asset_id"`
	Active    bool      `json:"active"`
	Timestamp time.Time `json:"timestamp"`
}

type VoteCast struct {
	RecordID  string    `json:"record_id"`
	Voter     string    `json:"voter"`
	MatchupID string    `json:"matchup_id"`
	WinnerID  uint64    `json:"winner_id"`
	LoserID   uint64    `json:"loser_id"`
	Premium   bool      `json:"premium"`
	XP        int64     `json:"xp"`
	Timestamp time.Time `json:"timestamp"`
}

type RatingChanged struct {
	AssetID   uint64    `json:"asset_id"`
	OldRating int64     `json:"old_rating"`
	NewRating int64     `json:"new_rating"`
	Timestamp time.Time `json:"timestamp"`
}

type RewardClaimed struct {
	Voter      string    `json:"voter"`
	Category   string    `json:"category"`
	XP         int64     `json:"xp"`
	BonusVotes int64     `json:"bonus_votes"`
	Tokens     int64     `json:"tokens"`
	Degraded   bool      `json:"degraded"`
	TotalXP    int64     `json:"total_xp"`
	Timestamp  time.Time `json:"timestamp"`
}

type TreasuryChanged struct {
	Reason       string    `json:"reason"`
	PrizeBreak   int64     `json:"prize_break"`
	WeeklyRaffle int64     `json:"weekly_raffle"`
	Legacy       int64     `json:"legacy"`
	Timestamp    time.Time `json:"timestamp"`
}

type RevenueDistributed struct {
	Gross        int64     `json:"gross"`
	Burned       int64     `json:"burned"`
	PrizeBreak   int64     `json:"prize_break"`
	WeeklyRaffle int64     `json:"weekly_raffle"`
	Operations   int64     `json:"operations"`
	Recipient    string    `json:"recipient"`
	Timestamp    time.Time `json:"timestamp"`
}

func (AssetRegistered) EventKind() Kind    { return KindAssetRegistered }
func (AssetActiveChanged) EventKind() Kind { return KindAssetActiveChanged }
func (VoteCast) EventKind() Kind           { return KindVoteCast }
func (RatingChanged) EventKind() Kind      { return KindRatingChanged }
func (RewardClaimed) EventKind() Kind      { return KindRewardClaimed }
func (TreasuryChanged) EventKind() Kind    { return KindTreasuryChanged }
func (RevenueDistributed) EventKind() Kind { return KindRevenueDistributed }
