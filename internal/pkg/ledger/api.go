package ledger

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/vreid/shiki-arena/internal/pkg/common"
	"github.com/vreid/shiki-arena/internal/pkg/registry"
)

var errorStatuses = map[error]int{
	ErrInvalidVote:            http.StatusBadRequest,
	ErrDuplicateVote:          http.StatusConflict,
	ErrInactiveAsset:          http.StatusConflict,
	ErrInsufficientBonusVotes: http.StatusUnprocessableEntity,
	ErrUnknownVoter:           http.StatusNotFound,
	ErrUnknownVoteRecord:      http.StatusNotFound,
	registry.ErrUnknownAsset:  http.StatusNotFound,
}

func (s *LedgerService) PostVote(c echo.Context) error {
	var request VoteRequest

	err := c.Bind(&request)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	record, err := s.CastVote(c.Request().Context(), request)
	if err != nil {
		return common.ErrorStatus(err, errorStatuses)
	}

	//nolint:wrapcheck
	return c.JSON(http.StatusCreated, record)
}

func (s *LedgerService) GetVote(c echo.Context) error {
	record, err := s.VoteRecord(c.Param("id"))
	if err != nil {
		return common.ErrorStatus(err, errorStatuses)
	}

	//nolint:wrapcheck
	return c.JSON(http.StatusOK, record)
}

func (s *LedgerService) GetVoter(c echo.Context) error {
	voter, err := s.Voter(c.Param("voter"))
	if err != nil {
		return common.ErrorStatus(err, errorStatuses)
	}

	//nolint:wrapcheck
	return c.JSON(http.StatusOK, voter)
}

func (s *LedgerService) GetHasVoted(c echo.Context) error {
	recordID, voted, err := s.HasVoted(c.Param("voter"), c.Param("matchup"))
	if err != nil {
		return common.ErrorStatus(err, errorStatuses)
	}

	//nolint:wrapcheck
	return c.JSON(http.StatusOK, HasVotedResponse{
		Voted:    voted,
		RecordID: recordID,
	})
}

func (s *LedgerService) GetStats(c echo.Context) error {
	stats, err := s.Stats()
	if err != nil {
		return common.ErrorStatus(err, errorStatuses)
	}

	//nolint:wrapcheck
	return c.JSON(http.StatusOK, stats)
}
