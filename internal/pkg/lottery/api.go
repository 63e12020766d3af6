package lottery

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/vreid/shiki-arena/internal/pkg/common"
)

var errorStatuses = map[error]int{
	ErrNothingToClaim: http.StatusUnprocessableEntity,
}

type pendingResponse struct {
	Voter        string `json:"voter"`
	PendingDraws int64  `json:"pending_draws"`
}

func (s *LotteryService) PostClaim(c echo.Context) error {
	var request ClaimRequest

	err := c.Bind(&request)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	result, err := s.Claim(c.Request().Context(), request.Voter)
	if err != nil {
		return common.ErrorStatus(err, errorStatuses)
	}

	//nolint:wrapcheck
	return c.JSON(http.StatusOK, result)
}

func (s *LotteryService) GetAwards(c echo.Context) error {
	awards, err := s.Awards(c.Param("voter"))
	if err != nil {
		return common.ErrorStatus(err, errorStatuses)
	}

	//nolint:wrapcheck
	return c.JSON(http.StatusOK, awards)
}

func (s *LotteryService) GetPending(c echo.Context) error {
	voter := c.Param("voter")

	pending, err := s.Pending(voter)
	if err != nil {
		return common.ErrorStatus(err, errorStatuses)
	}

	//nolint:wrapcheck
	return c.JSON(http.StatusOK, pendingResponse{
		Voter:        voter,
		PendingDraws: pending,
	})
}
