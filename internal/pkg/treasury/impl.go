package treasury

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v4"
	"github.com/samber/do/v2"
	"github.com/vreid/shiki-arena/internal/pkg/common"
	"github.com/vreid/shiki-arena/internal/pkg/events"
	"go.etcd.io/bbolt"
	"go.uber.org/zap"
)

const (
	BasisPoints             = 10000
	BurnBasisPoints         = 3333
	PrizeBreakBasisPoints   = 2333
	WeeklyRaffleBasisPoints = 1000

	LegacyPrizeBreakPercent = 70
)

const stateKey = "state"

var (
	ErrInsufficientFunds = errors.New("insufficient treasury funds")
	ErrNothingToMigrate  = errors.New("legacy treasury is empty")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidDirection  = errors.New("invalid transfer direction")
	ErrUnknownTreasury   = errors.New("unknown treasury")
	ErrInvalidRecipient  = errors.New("invalid operations recipient")
)

type TreasuryService struct {
	DatabaseService *common.DatabaseService
	Guard           *common.CallGuard
	Logger          *zap.SugaredLogger

	EventSink chan<- events.Event

	Admin               string
	OperationsRecipient string
	DailyBurn           int64

	Now func() time.Time
}

func NewTreasuryService(i do.Injector) (*TreasuryService, error) {
	result := &TreasuryService{
		DatabaseService: do.MustInvoke[*common.DatabaseService](i),
		Guard:           do.MustInvoke[*common.CallGuard](i),
		Logger:          do.MustInvoke[*zap.SugaredLogger](i).Named("treasury"),

		EventSink: do.MustInvokeNamed[chan<- events.Event](i, "event-sink"),

		Admin:               do.MustInvokeNamed[string](i, "admin"),
		OperationsRecipient: do.MustInvokeNamed[string](i, "operations-recipient"),
		DailyBurn:           do.MustInvokeNamed[int64](i, "daily-burn"),

		Now: time.Now,
	}

	echoService, err := do.Invoke[*common.EchoService](i)
	if err != nil {
		return nil, fmt.Errorf("failed to create echo service: %w", err)
	}

	echoService.Register(func(e *echo.Echo) {
		apiGroup := e.Group("/api")

		treasuryGroup := apiGroup.Group("/treasury")

		treasuryGroup.GET("", result.GetReport)
		treasuryGroup.POST("/revenue", result.PostRevenue)
		treasuryGroup.POST("/deposits/:kind", result.PostDeposit)
		treasuryGroup.POST("/transfers", result.PostTransfer)
		treasuryGroup.POST("/migrations", result.PostMigration)
		treasuryGroup.POST("/recipient", result.PostRecipient)
	})

	return result, nil
}

// SplitRevenue splits amount into burn, prize-break, weekly-raffle and operations legs.
// The operations leg takes the rounding remainder so the legs always sum to amount.
func SplitRevenue(amount int64) Split {
	share := func(basisPoints int64) int64 {
		return amount/BasisPoints*basisPoints + amount%BasisPoints*basisPoints/BasisPoints
	}

	split := Split{
		Gross:        amount,
		Burned:       share(BurnBasisPoints),
		PrizeBreak:   share(PrizeBreakBasisPoints),
		WeeklyRaffle: share(WeeklyRaffleBasisPoints),
	}

	split.Operations = amount - split.Burned - split.PrizeBreak - split.WeeklyRaffle

	return split
}

func (st *State) balance(kind Kind) (*int64, error) {
	switch kind {
	case KindPrizeBreak:
		return &st.PrizeBreak, nil
	case KindWeeklyRaffle:
		return &st.WeeklyRaffle, nil
	case KindLegacy:
		return &st.Legacy, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTreasury, kind)
	}
}

func addChecked(balance *int64, amount int64) error {
	if amount <= 0 || *balance > math.MaxInt64-amount {
		return fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}

	*balance += amount

	return nil
}

func (st *State) Credit(kind Kind, amount int64) error {
	balance, err := st.balance(kind)
	if err != nil {
		return err
	}

	return addChecked(balance, amount)
}

// Debit never lets a balance go below zero.
func (st *State) Debit(kind Kind, amount int64) error {
	balance, err := st.balance(kind)
	if err != nil {
		return err
	}

	if amount <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}

	if *balance < amount {
		return fmt.Errorf("%w: %s holds %d, %d requested", ErrInsufficientFunds, kind, *balance, amount)
	}

	*balance -= amount

	return nil
}

func LoadState(tx *bbolt.Tx) (*State, error) {
	bucket, err := common.Bucket(tx, common.TreasuryStateBucket)
	if err != nil {
		return nil, err
	}

	var state State

	_, err = common.GetJSON(bucket, []byte(stateKey), &state)
	if err != nil {
		return nil, fmt.Errorf("failed to load treasury state: %w", err)
	}

	return &state, nil
}

func StoreState(tx *bbolt.Tx, state *State) error {
	bucket, err := common.Bucket(tx, common.TreasuryStateBucket)
	if err != nil {
		return err
	}

	return common.PutJSON(bucket, []byte(stateKey), state)
}

func Changed(reason string, state *State) events.TreasuryChanged {
	return events.TreasuryChanged{
		Reason:       reason,
		PrizeBreak:   state.PrizeBreak,
		WeeklyRaffle: state.WeeklyRaffle,
		Legacy:       state.Legacy,
		Timestamp:    state.UpdatedAt,
	}
}

func (s *TreasuryService) recipient(state *State) string {
	if state.OperationsRecipient != "" {
		return state.OperationsRecipient
	}

	return s.OperationsRecipient
}

// update runs fn as one administrator call against the stored state. UpdatedAt is
// stamped before fn runs and is the call's only timestamp.
func (s *TreasuryService) update(
	ctx context.Context,
	caller string,
	reason string,
	fn func(state *State, batch *events.Batch) error) (*State, error) {
	var result *State

	err := s.Guard.Run(ctx, func(ctx context.Context) error {
		err := common.Authorize(s.Admin, caller)
		if err != nil {
			return err
		}

		var batch events.Batch

		err = s.DatabaseService.DB.Update(func(tx *bbolt.Tx) error {
			state, err := LoadState(tx)
			if err != nil {
				return err
			}

			state.UpdatedAt = s.Now()

			err = fn(state, &batch)
			if err != nil {
				return err
			}

			batch.Add(Changed(reason, state))

			result = state

			return StoreState(tx, state)
		})
		if err != nil {
			return err
		}

		batch.Publish(ctx, s.EventSink)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (s *TreasuryService) DistributeRevenue(ctx context.Context, caller string, amount int64) (*Split, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}

	split := SplitRevenue(amount)

	_, err := s.update(ctx, caller, "revenue", func(state *State, batch *events.Batch) error {
		split.Recipient = s.recipient(state)

		for _, leg := range []struct {
			balance *int64
			amount  int64
		}{
			{&state.Burned, split.Burned},
			{&state.PrizeBreak, split.PrizeBreak},
			{&state.WeeklyRaffle, split.WeeklyRaffle},
			{&state.Operations, split.Operations},
		} {
			if leg.amount == 0 {
				continue
			}

			err := addChecked(leg.balance, leg.amount)
			if err != nil {
				return err
			}
		}

		batch.Add(events.RevenueDistributed{
			Gross:        split.Gross,
			Burned:       split.Burned,
			PrizeBreak:   split.PrizeBreak,
			WeeklyRaffle: split.WeeklyRaffle,
			Operations:   split.Operations,
			Recipient:    split.Recipient,
			Timestamp:    state.UpdatedAt,
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infof("distributed revenue of %s: burned %s, prize-break %s, weekly-raffle %s, operations %s to %s",
		humanize.Comma(split.Gross),
		humanize.Comma(split.Burned),
		humanize.Comma(split.PrizeBreak),
		humanize.Comma(split.WeeklyRaffle),
		humanize.Comma(split.Operations),
		split.Recipient)

	return &split, nil
}

func (s *TreasuryService) Deposit(ctx context.Context, caller string, kind Kind, amount int64) (*State, error) {
	state, err := s.update(ctx, caller, "deposit", func(state *State, _ *events.Batch) error {
		return state.Credit(kind, amount)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infof("deposited %s into %s", humanize.Comma(amount), kind)

	return state, nil
}

func (s *TreasuryService) Transfer(ctx context.Context, caller string, amount int64, direction Direction) (*State, error) {
	var from, to Kind

	switch direction {
	case PrizeBreakToWeeklyRaffle:
		from, to = KindPrizeBreak, KindWeeklyRaffle
	case WeeklyRaffleToPrizeBreak:
		from, to = KindWeeklyRaffle, KindPrizeBreak
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidDirection, direction)
	}

	state, err := s.update(ctx, caller, "transfer", func(state *State, _ *events.Batch) error {
		err := state.Debit(from, amount)
		if err != nil {
			return err
		}

		return state.Credit(to, amount)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infof("transferred %s from %s to %s", humanize.Comma(amount), from, to)

	return state, nil
}

// MigrateLegacy moves the deprecated single-treasury balance into the live treasuries.
func (s *TreasuryService) MigrateLegacy(ctx context.Context, caller string) (*Migration, error) {
	var migration Migration

	_, err := s.update(ctx, caller, "migration", func(state *State, _ *events.Batch) error {
		if state.Legacy == 0 {
			return ErrNothingToMigrate
		}

		migration.Amount = state.Legacy
		migration.PrizeBreak = state.Legacy / 100 * LegacyPrizeBreakPercent
		migration.PrizeBreak += state.Legacy % 100 * LegacyPrizeBreakPercent / 100
		migration.WeeklyRaffle = state.Legacy - migration.PrizeBreak

		err := state.Debit(KindLegacy, migration.Amount)
		if err != nil {
			return err
		}

		if migration.PrizeBreak > 0 {
			err = state.Credit(KindPrizeBreak, migration.PrizeBreak)
			if err != nil {
				return err
			}
		}

		if migration.WeeklyRaffle > 0 {
			err = state.Credit(KindWeeklyRaffle, migration.WeeklyRaffle)
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infof("migrated legacy treasury of %s", humanize.Comma(migration.Amount))

	return &migration, nil
}

func (s *TreasuryService) SetOperationsRecipient(ctx context.Context, caller string, recipient string) (*State, error) {
	if recipient == "" {
		return nil, ErrInvalidRecipient
	}

	return s.update(ctx, caller, "recipient", func(state *State, _ *events.Batch) error {
		state.OperationsRecipient = recipient

		return nil
	})
}

func (s *TreasuryService) State() (*State, error) {
	var result *State

	err := s.DatabaseService.DB.View(func(tx *bbolt.Tx) error {
		state, err := LoadState(tx)
		result = state

		return err
	})
	if err != nil {
		return nil, err
	}

	result.OperationsRecipient = s.recipient(result)

	return result, nil
}

func RunwayFor(balance int64, dailyBurn int64) Runway {
	runway := Runway{
		Balance: balance,
	}

	if dailyBurn <= 0 {
		runway.Unlimited = true
		runway.Band = BandExcellent

		return runway
	}

	runway.RunwayDays = balance / dailyBurn

	switch {
	case runway.RunwayDays >= 90:
		runway.Band = BandExcellent
	case runway.RunwayDays >= 30:
		runway.Band = BandGood
	case runway.RunwayDays >= 14:
		runway.Band = BandFair
	case runway.RunwayDays >= 7:
		runway.Band = BandWarning
	default:
		runway.Band = BandCritical
	}

	return runway
}

// Health is advisory only; nothing enforces the bands.
func (s *TreasuryService) Health() (*Report, error) {
	state, err := s.State()
	if err != nil {
		return nil, err
	}

	return &Report{
		State: *state,
		Health: Health{
			DailyBurn:    s.DailyBurn,
			PrizeBreak:   RunwayFor(state.PrizeBreak, s.DailyBurn),
			WeeklyRaffle: RunwayFor(state.WeeklyRaffle, s.DailyBurn),
		},
	}, nil
}
