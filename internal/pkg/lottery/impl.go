package lottery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/samber/do/v2"
	"github.com/vreid/shiki-arena/internal/pkg/common"
	"github.com/vreid/shiki-arena/internal/pkg/events"
	"github.com/vreid/shiki-arena/internal/pkg/ledger"
	"github.com/vreid/shiki-arena/internal/pkg/treasury"
	"go.etcd.io/bbolt"
	"go.uber.org/zap"
)

const (
	Threshold = 10

	// MaxDrawsPerClaim bounds one claim; draws beyond it stay pending.
	MaxDrawsPerClaim = 10
)

var ErrNothingToClaim = errors.New("no lottery draws pending")

type LotteryService struct {
	DatabaseService *common.DatabaseService
	Guard           *common.CallGuard
	Logger          *zap.SugaredLogger

	EventSink chan<- events.Event

	RollSource RollSource
	Now        func() time.Time
}

func NewLotteryService(i do.Injector) (*LotteryService, error) {
	result := &LotteryService{
		DatabaseService: do.MustInvoke[*common.DatabaseService](i),
		Guard:           do.MustInvoke[*common.CallGuard](i),
		Logger:          do.MustInvoke[*zap.SugaredLogger](i).Named("lottery"),

		EventSink: do.MustInvokeNamed[chan<- events.Event](i, "event-sink"),

		RollSource: HashRollSource{},
		Now:        time.Now,
	}

	echoService, err := do.Invoke[*common.EchoService](i)
	if err != nil {
		return nil, fmt.Errorf("failed to create echo service: %w", err)
	}

	echoService.Register(func(e *echo.Echo) {
		apiGroup := e.Group("/api")

		lotteryGroup := apiGroup.Group("/lottery")

		lotteryGroup.POST("/claims", result.PostClaim)
		lotteryGroup.GET("/voters/:voter/awards", result.GetAwards)
		lotteryGroup.GET("/voters/:voter/pending", result.GetPending)
	})

	return result, nil
}

// PendingDraws is the number of draws the voter's unclaimed votes are worth.
func PendingDraws(voter *ledger.Voter) int64 {
	if voter.TotalVotes <= voter.LastClaimedAt {
		return 0
	}

	return (voter.TotalVotes - voter.LastClaimedAt) / Threshold
}

//nolint:cyclop,funlen // A claim settles every draw inside one write transaction.
func (s *LotteryService) claim(tx *bbolt.Tx, voterID string, batch *events.Batch) (*ClaimResult, error) {
	voter, err := ledger.LoadVoter(tx, voterID)
	if errors.Is(err, ledger.ErrUnknownVoter) {
		return nil, fmt.Errorf("%w: %s", ErrNothingToClaim, voterID)
	}

	if err != nil {
		return nil, err
	}

	draws := min(PendingDraws(voter), MaxDrawsPerClaim)
	if draws == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNothingToClaim, voterID)
	}

	state, err := treasury.LoadState(tx)
	if err != nil {
		return nil, err
	}

	allAwards, err := common.Bucket(tx, common.LotteryAwardsBucket)
	if err != nil {
		return nil, err
	}

	awards, err := allAwards.CreateBucketIfNotExists([]byte(voterID))
	if err != nil {
		return nil, fmt.Errorf("failed to create awards bucket for %s: %w", voterID, err)
	}

	now := s.Now()
	result := &ClaimResult{
		Voter:  voterID,
		Awards: make([]Award, 0, draws),
	}

	var tokensPaid int64

	for draw := range int(draws) {
		roll, secondaryRoll := s.RollSource.Rolls(Seed{
			Timestamp:     now.UnixNano(),
			Voter:         voterID,
			TotalVotes:    voter.TotalVotes,
			LastClaimedAt: voter.LastClaimedAt,
			Draw:          draw,
		})

		award := Draw(roll, secondaryRoll, state.PrizeBreak)

		award.XP += voter.PendingXP
		voter.PendingXP = 0

		voter.TotalXP += award.XP
		voter.BonusVotes += award.BonusVotes

		if award.Tokens > 0 {
			err = state.Debit(treasury.KindPrizeBreak, award.Tokens)
			if err != nil {
				award.Tokens = 0
				award.Degraded = true
			} else {
				voter.TokensEarned += award.Tokens
				tokensPaid += award.Tokens
			}
		}

		award.Seq, err = awards.NextSequence()
		if err != nil {
			return nil, fmt.Errorf("failed to allocate award sequence: %w", err)
		}

		award.Timestamp = now

		err = common.PutJSON(awards, common.Uint64Key(award.Seq), award)
		if err != nil {
			return nil, fmt.Errorf("failed to put award: %w", err)
		}

		result.Awards = append(result.Awards, award)

		batch.Add(events.RewardClaimed{
			Voter:      voterID,
			Category:   string(award.Category),
			XP:         award.XP,
			BonusVotes: award.BonusVotes,
			Tokens:     award.Tokens,
			Degraded:   award.Degraded,
			TotalXP:    voter.TotalXP,
			Timestamp:  now,
		})
	}

	voter.LastClaimedAt += draws * Threshold

	err = ledger.StoreVoter(tx, voter)
	if err != nil {
		return nil, fmt.Errorf("failed to put voter: %w", err)
	}

	if tokensPaid > 0 {
		state.UpdatedAt = now

		err = treasury.StoreState(tx, state)
		if err != nil {
			return nil, fmt.Errorf("failed to put treasury state: %w", err)
		}

		batch.Add(treasury.Changed("payout", state))
	}

	for name, delta := range map[string]int64{
		ledger.ClaimsCounter:     1,
		ledger.DrawsCounter:      draws,
		ledger.TokensPaidCounter: tokensPaid,
	} {
		_, err = common.AddCounter(tx, name, delta)
		if err != nil {
			return nil, err
		}
	}

	result.LastClaimedAt = voter.LastClaimedAt
	result.PendingDraws = PendingDraws(voter)
	result.TotalXP = voter.TotalXP

	return result, nil
}

// Claim settles every pending draw of a voter, up to MaxDrawsPerClaim.
func (s *LotteryService) Claim(ctx context.Context, voterID string) (*ClaimResult, error) {
	var result *ClaimResult

	err := s.Guard.Run(ctx, func(ctx context.Context) error {
		var batch events.Batch

		err := s.DatabaseService.DB.Update(func(tx *bbolt.Tx) error {
			claimed, err := s.claim(tx, voterID, &batch)
			result = claimed

			return err
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

	s.Logger.Infof("voter %s claimed %d draws", voterID, len(result.Awards))

	return result, nil
}

func (s *LotteryService) Awards(voterID string) ([]Award, error) {
	result := []Award{}

	err := s.DatabaseService.DB.View(func(tx *bbolt.Tx) error {
		allAwards, err := common.Bucket(tx, common.LotteryAwardsBucket)
		if err != nil {
			return err
		}

		awards := allAwards.Bucket([]byte(voterID))
		if awards == nil {
			return nil
		}

		return awards.ForEach(func(k, _ []byte) error {
			var award Award

			_, err := common.GetJSON(awards, k, &award)
			if err != nil {
				return err
			}

			award.Seq = common.KeyToUint64(k)
			result = append(result, award)

			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list awards: %w", err)
	}

	return result, nil
}

func (s *LotteryService) Pending(voterID string) (int64, error) {
	var result int64

	err := s.DatabaseService.DB.View(func(tx *bbolt.Tx) error {
		voter, err := ledger.LoadVoter(tx, voterID)
		if errors.Is(err, ledger.ErrUnknownVoter) {
			return nil
		}

		if err != nil {
			return err
		}

		result = PendingDraws(voter)

		return nil
	})
	if err != nil {
		return 0, err
	}

	return result, nil
}
