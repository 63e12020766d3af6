package ledger_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/samber/do/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vreid/shiki-arena/internal/pkg/common"
	"github.com/vreid/shiki-arena/internal/pkg/events"
	"github.com/vreid/shiki-arena/internal/pkg/ledger"
	"github.com/vreid/shiki-arena/internal/pkg/registry"
	"github.com/vreid/shiki-arena/internal/pkg/scorer"
	"github.com/vreid/shiki-arena/internal/pkg/testutil"
	"go.etcd.io/bbolt"
)

type env struct {
	injector  *do.RootScope
	eventChan chan events.Event

	registry *registry.RegistryService
	ledger   *ledger.LedgerService
}

func newEnv(t *testing.T, assets ...uint64) *env {
	t.Helper()

	i, eventChan := testutil.NewInjector(t)
	do.Provide(i, registry.NewRegistryService)
	do.Provide(i, ledger.NewLedgerService)

	result := &env{
		injector:  i,
		eventChan: eventChan,
		registry:  do.MustInvoke[*registry.RegistryService](i),
		ledger:    do.MustInvoke[*ledger.LedgerService](i),
	}

	_, err := result.registry.RegisterMany(context.Background(), testutil.Admin, assets)
	require.NoError(t, err)

	testutil.Drain(eventChan)

	return result
}

func (e *env) vote(voter, matchupID string, winnerID, loserID uint64) (*ledger.VoteRecord, error) {
	return e.ledger.CastVote(context.Background(), ledger.VoteRequest{
		Voter:     voter,
		MatchupID: matchupID,
		WinnerID:  winnerID,
		LoserID:   loserID,
	})
}

func (e *env) grantBonusVotes(t *testing.T, voterID string, bonusVotes int64) {
	t.Helper()

	err := e.ledger.DatabaseService.DB.Update(func(tx *bbolt.Tx) error {
		voter, err := ledger.LoadVoter(tx, voterID)
		if err != nil {
			return err
		}

		voter.BonusVotes += bonusVotes

		return ledger.StoreVoter(tx, voter)
	})
	require.NoError(t, err)
}

func TestCastVoteFreshAssets(t *testing.T) {
	t.Parallel()

	e := newEnv(t, 1, 2)

	record, err := e.vote("alice", "m-1", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(ledger.VoteXP), record.XP)

	winner, err := e.registry.Asset(1)
	require.NoError(t, err)
	loser, err := e.registry.Asset(2)
	require.NoError(t, err)

	assert.Equal(t, int64(1216), winner.Rating)
	assert.Equal(t, int64(1184), loser.Rating)
	assert.Equal(t, int64(1), winner.Votes)
	assert.Equal(t, int64(1), winner.Wins)
	assert.Equal(t, int64(0), winner.Losses)
	assert.Equal(t, int64(1), loser.Votes)
	assert.Equal(t, int64(1), loser.Losses)
	assert.Equal(t, int64(0), loser.Wins)

	voter, err := e.ledger.Voter("alice")
	require.NoError(t, err)
	assert.True(t, voter.Registered)
	assert.Equal(t, int64(1), voter.TotalVotes)
	assert.Equal(t, int64(ledger.VoteXP), voter.PendingXP)
	assert.Equal(t, int64(1), voter.WinningVotes)
	assert.Equal(t, int64(1), voter.Streak)

	published := testutil.Drain(e.eventChan)
	require.Len(t, published, 3)
	assert.Equal(t, events.KindVoteCast, published[0].EventKind())

	changed, ok := published[1].(events.RatingChanged)
	require.True(t, ok)
	assert.Equal(t, events.RatingChanged{AssetID: 1, OldRating: 1200, NewRating: 1216, Timestamp: changed.Timestamp}, changed)

	changed, ok = published[2].(events.RatingChanged)
	require.True(t, ok)
	assert.Equal(t, events.RatingChanged{AssetID: 2, OldRating: 1200, NewRating: 1184, Timestamp: changed.Timestamp}, changed)
}

func TestCastVoteRejectsReplayRegardlessOfAssets(t *testing.T) {
	t.Parallel()

	e := newEnv(t, 1, 2, 3)

	first, err := e.vote("alice", "m-1", 1, 2)
	require.NoError(t, err)

	for _, pair := range [][2]uint64{{1, 2}, {2, 1}, {3, 1}, {3, 3}, {9, 8}} {
		_, err = e.vote("alice", "m-1", pair[0], pair[1])
		require.ErrorIs(t, err, ledger.ErrDuplicateVote)
	}

	_, err = e.vote("bob", "m-1", 1, 2)
	require.NoError(t, err)

	recordID, voted, err := e.ledger.HasVoted("alice", "m-1")
	require.NoError(t, err)
	assert.True(t, voted)
	assert.Equal(t, first.ID, recordID)

	_, voted, err = e.ledger.HasVoted("alice", "m-2")
	require.NoError(t, err)
	assert.False(t, voted)

	voter, err := e.ledger.Voter("alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), voter.TotalVotes)
}

func TestCastVoteRejectionsAreAtomic(t *testing.T) {
	t.Parallel()

	e := newEnv(t, 1, 2, 3)

	_, err := e.registry.SetActive(context.Background(), testutil.Admin, 3, false)
	require.NoError(t, err)

	_, err = e.vote("carol", "m-1", 1, 1)
	require.ErrorIs(t, err, ledger.ErrInvalidVote)

	_, err = e.vote("carol", "m-1", 1, 3)
	require.ErrorIs(t, err, ledger.ErrInactiveAsset)

	_, err = e.vote("carol", "m-1", 4, 1)
	require.ErrorIs(t, err, registry.ErrUnknownAsset)

	_, err = e.vote("", "m-1", 1, 2)
	require.ErrorIs(t, err, ledger.ErrInvalidVote)

	_, err = e.ledger.Voter("carol")
	require.ErrorIs(t, err, ledger.ErrUnknownVoter)

	_, voted, err := e.ledger.HasVoted("carol", "m-1")
	require.NoError(t, err)
	assert.False(t, voted)

	asset, err := e.registry.Asset(1)
	require.NoError(t, err)
	assert.Equal(t, int64(scorer.DefaultRating), asset.Rating)
	assert.Equal(t, int64(0), asset.Votes)

	stats, err := e.ledger.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Votes)
	assert.Equal(t, int64(0), stats.Voters)

	_, err = e.vote("carol", "m-1", 1, 2)
	require.NoError(t, err)
}

func TestCastPremiumVote(t *testing.T) {
	t.Parallel()

	e := newEnv(t, 1, 2, 3)

	_, err := e.vote("dave", "m-1", 1, 2)
	require.NoError(t, err)

	premium := ledger.VoteRequest{Voter: "dave", MatchupID: "m-2", WinnerID: 3, LoserID: 2, Premium: true}

	_, err = e.ledger.CastVote(context.Background(), premium)
	require.ErrorIs(t, err, ledger.ErrInsufficientBonusVotes)

	e.grantBonusVotes(t, "dave", 1)

	record, err := e.ledger.CastVote(context.Background(), premium)
	require.NoError(t, err)
	assert.True(t, record.Premium)
	assert.Equal(t, int64(ledger.PremiumVoteXP), record.XP)

	// 3 at 1200 beats 2 at 1184: expected 500 for the winner, 425 for the loser, K doubled.
	winner, err := e.registry.Asset(3)
	require.NoError(t, err)
	assert.Equal(t, int64(1232), winner.Rating)

	loser, err := e.registry.Asset(2)
	require.NoError(t, err)
	assert.Equal(t, int64(1148), loser.Rating)

	voter, err := e.ledger.Voter("dave")
	require.NoError(t, err)
	assert.Equal(t, int64(0), voter.BonusVotes)
	assert.Equal(t, int64(ledger.VoteXP+ledger.PremiumVoteXP), voter.PendingXP)

	stats, err := e.ledger.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Votes)
	assert.Equal(t, int64(1), stats.PremiumVotes)
	assert.Equal(t, int64(1), stats.Voters)
	assert.Equal(t, int64(3), stats.Assets)
}

func TestStreakResetsOnUpset(t *testing.T) {
	t.Parallel()

	e := newEnv(t, 1, 2)

	_, err := e.vote("erin", "m-1", 1, 2)
	require.NoError(t, err)
	_, err = e.vote("erin", "m-2", 1, 2)
	require.NoError(t, err)

	voter, err := e.ledger.Voter("erin")
	require.NoError(t, err)
	assert.Equal(t, int64(2), voter.Streak)

	_, err = e.vote("erin", "m-3", 2, 1)
	require.NoError(t, err)

	voter, err = e.ledger.Voter("erin")
	require.NoError(t, err)
	assert.Equal(t, int64(0), voter.Streak)
	assert.Equal(t, int64(2), voter.WinningVotes)
	assert.Equal(t, int64(3), voter.TotalVotes)
}

func TestCountersAndFloorOverManyVotes(t *testing.T) {
	t.Parallel()

	e := newEnv(t, 1, 2, 3, 4)

	for n := range 400 {
		// asset 1 keeps winning so the others sink towards the floor
		loser := uint64(2 + n%3)

		_, err := e.vote(fmt.Sprintf("voter-%d", n%7), fmt.Sprintf("m-%d", n), 1, loser)
		require.NoError(t, err)
	}

	assets, err := e.registry.Assets()
	require.NoError(t, err)

	var wins, losses, votes int64

	for _, asset := range assets {
		assert.GreaterOrEqual(t, asset.Rating, int64(scorer.MinRating))
		assert.Equal(t, asset.Wins+asset.Losses, asset.Votes)

		wins += asset.Wins
		losses += asset.Losses
		votes += asset.Votes
	}

	assert.Equal(t, int64(400), wins)
	assert.Equal(t, int64(400), losses)
	assert.Equal(t, int64(800), votes)

	stats, err := e.ledger.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(400), stats.Votes)
	assert.Equal(t, int64(7), stats.Voters)
}

func TestVoteRecord(t *testing.T) {
	t.Parallel()

	e := newEnv(t, 1, 2)

	record, err := e.vote("frank", "m-9", 2, 1)
	require.NoError(t, err)

	stored, err := e.ledger.VoteRecord(record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.ID, stored.ID)
	assert.Equal(t, "m-9", stored.MatchupID)
	assert.Equal(t, uint64(2), stored.WinnerID)
	assert.Equal(t, uint64(1), stored.LoserID)

	_, err = e.ledger.VoteRecord("missing")
	require.ErrorIs(t, err, ledger.ErrUnknownVoteRecord)
}

func TestLedgerAPI(t *testing.T) {
	t.Parallel()

	e := newEnv(t, 1, 2)
	echoService := do.MustInvoke[*common.EchoService](e.injector)

	post := func() *httptest.ResponseRecorder {
		request := httptest.NewRequest(http.MethodPost, "/api/ledger/votes",
			strings.NewReader(`{"voter":"gina","matchup_id":"m-1","winner_id":1,"loser_id":2}`))
		request.Header.Set("Content-Type", "application/json")

		recorder := httptest.NewRecorder()
		echoService.ServeHTTP(recorder, request)

		return recorder
	}

	assert.Equal(t, http.StatusCreated, post().Code)

	recorder := post()
	assert.Equal(t, http.StatusConflict, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "matchup already voted")

	recorder = httptest.NewRecorder()
	echoService.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/ledger/voters/gina/matchups/m-1", nil))
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"voted":true`)

	recorder = httptest.NewRecorder()
	echoService.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/ledger/voters/nobody", nil))
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestReplayGuardSeparatesVoterAndMatchup(t *testing.T) {
	t.Parallel()

	e := newEnv(t, 1, 2)

	_, err := e.vote("bob\x00x", "m", 1, 2)
	require.NoError(t, err)

	_, voted, err := e.ledger.HasVoted("bob", "x\x00m")
	require.NoError(t, err)
	assert.False(t, voted)

	record, err := e.vote("bob", "x\x00m", 1, 2)
	require.NoError(t, err)

	recordID, voted, err := e.ledger.HasVoted("bob", "x\x00m")
	require.NoError(t, err)
	assert.True(t, voted)
	assert.Equal(t, record.ID, recordID)

	_, err = e.vote("bob", "x\x00m", 2, 1)
	require.ErrorIs(t, err, ledger.ErrDuplicateVote)

	_, err = e.vote("bob\x00x", "m", 2, 1)
	require.ErrorIs(t, err, ledger.ErrDuplicateVote)
}

func TestCastVoteInsideGuardedCall(t *testing.T) {
	t.Parallel()

	e := newEnv(t, 1, 2)

	err := e.ledger.Guard.Run(context.Background(), func(ctx context.Context) error {
		_, err := e.ledger.CastVote(ctx, ledger.VoteRequest{
			Voter:     "alice",
			MatchupID: "nested",
			WinnerID:  1,
			LoserID:   2,
		})

		return err
	})
	require.ErrorIs(t, err, common.ErrReentrantCall)

	_, voted, err := e.ledger.HasVoted("alice", "nested")
	require.NoError(t, err)
	assert.False(t, voted)
}
