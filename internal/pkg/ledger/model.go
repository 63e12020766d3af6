package ledger

import "time"

type Voter struct {
	ID string `json:"id"`

	TotalVotes   int64 `json:"total_votes"`
	WinningVotes int64 `json:"winning_votes"`
	Streak       int64 `json:"streak"`

	PendingXP    int64 `json:"pending_xp"`
	TotalXP      int64 `json:"total_xp"`
	BonusVotes   int64 `json:"bonus_votes"`
	TokensEarned int64 `json:"tokens_earned"`

	LastClaimedAt int64 `json:"last_claimed_at"`

	Registered   bool      `json:"registered"`
	RegisteredAt time.Time `json:"registered_at"`
}

type VoteRequest struct {
	Voter     string `json:"voter"`
	MatchupID string `json:"matchup_id"`
	WinnerID  uint64 `json:"winner_id"`
	LoserID   uint64 `json:"loser_id"`
	Premium   bool   `json:"premium"`
}

type VoteRecord struct {
	ID        string `json:"id"`
	Voter     string `json:"voter"`
	MatchupID string `json:"matchup_id"`

	WinnerID uint64 `json:"winner_id"`
	LoserID  uint64 `json:"loser_id"`

	Premium   bool      `json:"premium"`
	XP        int64     `json:"xp"`
	Timestamp time.Time `json:"timestamp"`
}

type GlobalStats struct {
	Voters       int64 `json:"voters"`
	Assets       int64 `json:"assets"`
	Votes        int64 `json:"votes"`
	PremiumVotes int64 `json:"premium_votes"`
	Claims       int64 `json:"claims"`
	Draws        int64 `json:"draws"`
	TokensPaid   int64 `json:"tokens_paid"`
}

type HasVotedResponse struct {
	Voted    bool   `json:"voted"`
	RecordID string `json:"record_id,omitempty"`
}
