package treasury

import "time"

type Kind string

const (
	KindPrizeBreak   Kind = "prize-break"
	KindWeeklyRaffle Kind = "weekly-raffle"
	KindLegacy       Kind = "legacy"
)

type Direction string

const (
	PrizeBreakToWeeklyRaffle Direction = "prize-break-to-weekly-raffle"
	WeeklyRaffleToPrizeBreak Direction = "weekly-raffle-to-prize-break"
)

// State holds the three balances plus the cumulative burn and operations legs.
type State struct {
	PrizeBreak   int64 `json:"prize_break"`
	WeeklyRaffle int64 `json:"weekly_raffle"`
	Legacy       int64 `json:"legacy"`

	Burned     int64 `json:"burned"`
	Operations int64 `json:"operations"`

	OperationsRecipient string `json:"operations_recipient"`

	UpdatedAt time.Time `json:"updated_at"`
}

type Split struct {
	Gross        int64  `json:"gross"`
	Burned       int64  `json:"burned"`
	PrizeBreak   int64  `json:"prize_break"`
	WeeklyRaffle int64  `json:"weekly_raffle"`
	Operations   int64  `json:"operations"`
	Recipient    string `json:"recipient"`
}

type Migration struct {
	Amount       int64 `json:"amount"`
	PrizeBreak   int64 `json:"prize_break"`
	WeeklyRaffle int64 `json:"weekly_raffle"`
}

type Band string

const (
	BandExcellent Band = "excellent"
	BandGood      Band = "good"
	BandFair      Band = "fair"
	BandWarning   Band = "warning"
	BandCritical  Band = "critical"
)

type Runway struct {
	Balance    int64 `json:"balance"`
	RunwayDays int64 `json:"runway_days"`
	Unlimited  bool  `json:"unlimited"`
	Band       Band  `json:"band"`
}

type Health struct {
	DailyBurn    int64  `json:"daily_burn"`
	PrizeBreak   Runway `json:"prize_break"`
	WeeklyRaffle Runway `json:"weekly_raffle"`
}

type Report struct {
	State  State  `json:"state"`
	Health Health `json:"health"`
}

type AmountRequest struct {
	Amount int64 `json:"amount"`
}

type TransferRequest struct {
	Amount    int64     `json:"amount"`
	Direction Direction `json:"direction"`
}

type RecipientRequest struct {
	Recipient string `json:"recipient"`
}
