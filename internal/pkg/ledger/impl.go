package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/samber/do/v2"
	"github.com/vreid/shiki-arena/internal/pkg/common"
	"github.com/vreid/shiki-arena/internal/pkg/events"
	"github.com/vreid/shiki-arena/internal/pkg/registry"
	"github.com/vreid/shiki-arena/internal/pkg/scorer"
	"go.etcd.io/bbolt"
	"go.uber.org/zap"
)

const (
	VoteXP        = 10
	PremiumVoteXP = 30
)

const (
	VotersCounter       = "voters"
	VotesCounter        = "votes"
	PremiumVotesCounter = "premium-votes"
	ClaimsCounter       = "claims"
	DrawsCounter        = "draws"
	TokensPaidCounter   = "tokens-paid"
)

var (
	ErrInvalidVote            = errors.New("invalid vote")
	ErrDuplicateVote          = errors.New("matchup already voted")
	ErrInactiveAsset          = errors.New("asset is inactive")
	ErrInsufficientBonusVotes = errors.New("premium vote requires a bonus vote credit")
	ErrUnknownVoter           = errors.New("voter not found")
	ErrUnknownVoteRecord      = errors.New("vote record not found")
)

type LedgerService struct {
	DatabaseService *common.DatabaseService
	Guard           *common.CallGuard
	Logger          *zap.SugaredLogger

	EventSink chan<- events.Event

	Now func() time.Time
}

func NewLedgerService(i do.Injector) (*LedgerService, error) {
	result := &LedgerService{
		DatabaseService: do.MustInvoke[*common.DatabaseService](i),
		Guard:           do.MustInvoke[*common.CallGuard](i),
		Logger:          do.MustInvoke[*zap.SugaredLogger](i).Named("ledger"),

		EventSink: do.MustInvokeNamed[chan<- events.Event](i, "event-sink"),

		Now: time.Now,
	}

	echoService, err := do.Invoke[*common.EchoService](i)
	if err != nil {
		return nil, fmt.Errorf("failed to create echo service: %w", err)
	}

	echoService.Register(func(e *echo.Echo) {
		apiGroup := e.Group("/api")

		ledgerGroup := apiGroup.Group("/ledger")

		ledgerGroup.POST("/votes", result.PostVote)
		ledgerGroup.GET("/votes/:id", result.GetVote)
		ledgerGroup.GET("/voters/:voter", result.GetVoter)
		ledgerGroup.GET("/voters/:voter/matchups/:matchup", result.GetHasVoted)
		ledgerGroup.GET("/stats", result.GetStats)
	})

	return result, nil
}

// replayed returns the record id stored for the pair, or nil. Each voter has its
// own nested bucket keyed by matchup id.
func replayed(replay *bbolt.Bucket, voter, matchupID string) []byte {
	voted := replay.Bucket([]byte(voter))
	if voted == nil {
		return nil
	}

	return voted.Get([]byte(matchupID))
}

// LoadVoter returns ErrUnknownVoter for identities that never voted.
func LoadVoter(tx *bbolt.Tx, id string) (*Voter, error) {
	voters, err := common.Bucket(tx, common.LedgerVotersBucket)
	if err != nil {
		return nil, err
	}

	var voter Voter

	found, err := common.GetJSON(voters, []byte(id), &voter)
	if err != nil {
		return nil, fmt.Errorf("failed to load voter %s: %w", id, err)
	}

	if !found {
		return nil, fmt.Errorf("%w: %s", ErrUnknownVoter, id)
	}

	return &voter, nil
}

func StoreVoter(tx *bbolt.Tx, voter *Voter) error {
	voters, err := common.Bucket(tx, common.LedgerVotersBucket)
	if err != nil {
		return err
	}

	return common.PutJSON(voters, []byte(voter.ID), voter)
}

func (s *LedgerService) loadOrCreateVoter(tx *bbolt.Tx, id string, now time.Time) (*Voter, error) {
	voter, err := LoadVoter(tx, id)
	if err == nil {
		return voter, nil
	}

	if !errors.Is(err, ErrUnknownVoter) {
		return nil, err
	}

	_, err = common.AddCounter(tx, VotersCounter, 1)
	if err != nil {
		return nil, err
	}

	return &Voter{
		ID:           id,
		Registered:   true,
		RegisteredAt: now,
	}, nil
}

func loadVotableAsset(tx *bbolt.Tx, id uint64) (*registry.Asset, error) {
	asset, err := registry.LoadAsset(tx, id)
	if err != nil {
		return nil, err
	}

	if !asset.Active {
		return nil, fmt.Errorf("%w: %d", ErrInactiveAsset, id)
	}

	return asset, nil
}

//nolint:cyclop,funlen // Every check must happen inside the one write transaction.
func (s *LedgerService) castVote(tx *bbolt.Tx, request VoteRequest, batch *events.Batch) (*VoteRecord, error) {
	if request.Voter == "" || request.MatchupID == "" {
		return nil, fmt.Errorf("%w: voter and matchup id are required", ErrInvalidVote)
	}

	replay, err := common.Bucket(tx, common.LedgerReplayBucket)
	if err != nil {
		return nil, err
	}

	if replayed(replay, request.Voter, request.MatchupID) != nil {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateVote, request.MatchupID)
	}

	if request.WinnerID == request.LoserID {
		return nil, fmt.Errorf("%w: winner and loser are both %d", ErrInvalidVote, request.WinnerID)
	}

	winner, err := loadVotableAsset(tx, request.WinnerID)
	if err != nil {
		return nil, err
	}

	loser, err := loadVotableAsset(tx, request.LoserID)
	if err != nil {
		return nil, err
	}

	now := s.Now()

	voter, err := s.loadOrCreateVoter(tx, request.Voter, now)
	if err != nil {
		return nil, err
	}

	xp := int64(VoteXP)

	if request.Premium {
		if voter.BonusVotes < 1 {
			return nil, ErrInsufficientBonusVotes
		}

		voter.BonusVotes--
		xp = PremiumVoteXP
	}

	if winner.Rating >= loser.Rating {
		voter.WinningVotes++
		voter.Streak++
	} else {
		voter.Streak = 0
	}

	voter.TotalVotes++
	voter.PendingXP += xp

	oldWinnerRating, oldLoserRating := winner.Rating, loser.Rating
	winner.Rating, loser.Rating = scorer.UpdateRatings(winner.Rating, loser.Rating, request.Premium)

	winner.Votes++
	winner.Wins++
	loser.Votes++
	loser.Losses++

	_uuid, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate vote record id: %w", err)
	}

	record := &VoteRecord{
		ID:        _uuid.String(),
		Voter:     request.Voter,
		MatchupID: request.MatchupID,
		WinnerID:  request.WinnerID,
		LoserID:   request.LoserID,
		Premium:   request.Premium,
		XP:        xp,
		Timestamp: now,
	}

	votes, err := common.Bucket(tx, common.LedgerVotesBucket)
	if err != nil {
		return nil, err
	}

	err = registry.StoreAsset(tx, winner)
	if err != nil {
		return nil, fmt.Errorf("failed to put winner: %w", err)
	}

	err = registry.StoreAsset(tx, loser)
	if err != nil {
		return nil, fmt.Errorf("failed to put loser: %w", err)
	}

	err = StoreVoter(tx, voter)
	if err != nil {
		return nil, fmt.Errorf("failed to put voter: %w", err)
	}

	err = common.PutJSON(votes, []byte(record.ID), record)
	if err != nil {
		return nil, fmt.Errorf("failed to put vote record: %w", err)
	}

	voted, err := replay.CreateBucketIfNotExists([]byte(request.Voter))
	if err != nil {
		return nil, fmt.Errorf("failed to create replay bucket for %s: %w", request.Voter, err)
	}

	err = voted.Put([]byte(request.MatchupID), []byte(record.ID))
	if err != nil {
		return nil, fmt.Errorf("failed to put replay guard: %w", err)
	}

	_, err = common.AddCounter(tx, VotesCounter, 1)
	if err != nil {
		return nil, err
	}

	if request.Premium {
		_, err = common.AddCounter(tx, PremiumVotesCounter, 1)
		if err != nil {
			return nil, err
		}
	}

	batch.Add(events.VoteCast{
		RecordID:  record.ID,
		Voter:     record.Voter,
		MatchupID: record.MatchupID,
		WinnerID:  record.WinnerID,
		LoserID:   record.LoserID,
		Premium:   record.Premium,
		XP:        record.XP,
		Timestamp: now,
	})
	batch.Add(events.RatingChanged{AssetID: winner.ID, OldRating: oldWinnerRating, NewRating: winner.Rating, Timestamp: now})
	batch.Add(events.RatingChanged{AssetID: loser.ID, OldRating: oldLoserRating, NewRating: loser.Rating, Timestamp: now})

	return record, nil
}

// CastVote records one vote. Unknown voters are onboarded by their first vote.
func (s *LedgerService) CastVote(ctx context.Context, request VoteRequest) (*VoteRecord, error) {
	var result *VoteRecord

	err := s.Guard.Run(ctx, func(ctx context.Context) error {
		var batch events.Batch

		err := s.DatabaseService.DB.Update(func(tx *bbolt.Tx) error {
			record, err := s.castVote(tx, request, &batch)
			result = record

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

	s.Logger.Debugf("voter %s picked %d over %d in %s", result.Voter, result.WinnerID, result.LoserID, result.MatchupID)

	return result, nil
}

func (s *LedgerService) Voter(id string) (*Voter, error) {
	var result *Voter

	err := s.DatabaseService.DB.View(func(tx *bbolt.Tx) error {
		voter, err := LoadVoter(tx, id)
		result = voter

		return err
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (s *LedgerService) VoteRecord(id string) (*VoteRecord, error) {
	var result VoteRecord

	err := s.DatabaseService.DB.View(func(tx *bbolt.Tx) error {
		votes, err := common.Bucket(tx, common.LedgerVotesBucket)
		if err != nil {
			return err
		}

		found, err := common.GetJSON(votes, []byte(id), &result)
		if err != nil {
			return err
		}

		if !found {
			return fmt.Errorf("%w: %s", ErrUnknownVoteRecord, id)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// HasVoted reports whether voter already voted on matchupID and, if so, the record id.
func (s *LedgerService) HasVoted(voter, matchupID string) (string, bool, error) {
	var recordID string

	err := s.DatabaseService.DB.View(func(tx *bbolt.Tx) error {
		replay, err := common.Bucket(tx, common.LedgerReplayBucket)
		if err != nil {
			return err
		}

		recordID = string(replayed(replay, voter, matchupID))

		return nil
	})
	if err != nil {
		return "", false, err
	}

	return recordID, recordID != "", nil
}

func (s *LedgerService) Stats() (*GlobalStats, error) {
	result := &GlobalStats{}

	err := s.DatabaseService.DB.View(func(tx *bbolt.Tx) error {
		for name, target := range map[string]*int64{
			VotersCounter:          &result.Voters,
			registry.AssetsCounter: &result.Assets,
			VotesCounter:           &result.Votes,
			PremiumVotesCounter:    &result.PremiumVotes,
			ClaimsCounter:          &result.Claims,
			DrawsCounter:           &result.Draws,
			TokensPaidCounter:      &result.TokensPaid,
		} {
			value, err := common.Counter(tx, name)
			if err != nil {
				return err
			}

			*target = value
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read stats: %w", err)
	}

	return result, nil
}
