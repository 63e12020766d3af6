package treasury

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/vreid/shiki-arena/internal/pkg/common"
)

var errorStatuses = map[error]int{
	ErrInsufficientFunds: http.StatusConflict,
	ErrNothingToMigrate:  http.StatusConflict,
	ErrInvalidAmount:     http.StatusBadRequest,
	ErrInvalidDirection:  http.StatusBadRequest,
	ErrUnknownTreasury:   http.StatusNotFound,
	ErrInvalidRecipient:  http.StatusBadRequest,
}

func (s *TreasuryService) GetReport(c echo.Context) error {
	report, err := s.Health()
	if err != nil {
		return common.ErrorStatus(err, errorStatuses)
	}

	//nolint:wrapcheck
	return c.JSON(http.StatusOK, report)
}

func (s *TreasuryService) PostRevenue(c echo.Context) error {
	var request AmountRequest

	err := c.Bind(&request)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	split, err := s.DistributeRevenue(c.Request().Context(), common.Caller(c), request.Amount)
	if err != nil {
		return common.ErrorStatus(err, errorStatuses)
	}

	//nolint:wrapcheck
	return c.JSON(http.StatusOK, split)
}

func (s *TreasuryService) PostDeposit(c echo.Context) error {
	var request AmountRequest

	err := c.Bind(&request)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	state, err := s.Deposit(c.Request().Context(), common.Caller(c), Kind(c.Param("kind")), request.Amount)
	if err != nil {
		return common.ErrorStatus(err, errorStatuses)
	}

	//nolint:wrapcheck
	return c.JSON(http.StatusOK, state)
}

func (s *TreasuryService) PostTransfer(c echo.Context) error {
	var request TransferRequest

	err := c.Bind(&request)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	state, err := s.Transfer(c.Request().Context(), common.Caller(c), request.Amount, request.Direction)
	if err != nil {
		return common.ErrorStatus(err, errorStatuses)
	}

	//nolint:wrapcheck
	return c.JSON(http.StatusOK, state)
}

func (s *TreasuryService) PostMigration(c echo.Context) error {
	migration, err := s.MigrateLegacy(c.Request().Context(), common.Caller(c))
	if err != nil {
		return common.ErrorStatus(err, errorStatuses)
	}

	//nolint:wrapcheck
	return c.JSON(http.StatusOK, migration)
}

func (s *TreasuryService) PostRecipient(c echo.Context) error {
	var request RecipientRequest

	err := c.Bind(&request)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	state, err := s.SetOperationsRecipient(c.Request().Context(), common.Caller(c), request.Recipient)
	if err != nil {
		return common.ErrorStatus(err, errorStatuses)
	}

	//nolint:wrapcheck
	return c.JSON(http.StatusOK, state)
}
