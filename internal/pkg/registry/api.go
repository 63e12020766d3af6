package registry

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/vreid/shiki-arena/internal/pkg/common"
)

var errorStatuses = map[error]int{
	ErrAlreadyRegistered: http.StatusConflict,
	ErrUnknownAsset:      http.StatusNotFound,
}

func assetID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid asset id")
	}

	return id, nil
}

func (s *RegistryService) GetAssets(c echo.Context) error {
	assets, err := s.Assets()
	if err != nil {
		return common.ErrorStatus(err, errorStatuses)
	}

	//nolint:wrapcheck
	return c.JSON(http.StatusOK, assets)
}

func (s *RegistryService) GetAsset(c echo.Context) error {
	id, err := assetID(c)
	if err != nil {
		return err
	}

	asset, err := s.Asset(id)
	if err != nil {
		return common.ErrorStatus(err, errorStatuses)
	}

	//nolint:wrapcheck
	return c.JSON(http.StatusOK, asset)
}

func (s *RegistryService) PostAsset(c echo.Context) error {
	var request RegisterRequest

	err := c.Bind(&request)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	asset, err := s.RegisterAsset(c.Request().Context(), common.Caller(c), request.ID)
	if err != nil {
		return common.ErrorStatus(err, errorStatuses)
	}

	//nolint:wrapcheck
	return c.JSON(http.StatusCreated, asset)
}

func (s *RegistryService) PostAssets(c echo.Context) error {
	var request RegisterManyRequest

	err := c.Bind(&request)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	response, err := s.RegisterMany(c.Request().Context(), common.Caller(c), request.IDs)
	if err != nil {
		return common.ErrorStatus(err, errorStatuses)
	}

	//nolint:wrapcheck
	return c.JSON(http.StatusOK, response)
}

func (s *RegistryService) PostActive(c echo.Context) error {
	id, err := assetID(c)
	if err != nil {
		return err
	}

	var request SetActiveRequest

	err = c.Bind(&request)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	asset, err := s.SetActive(c.Request().Context(), common.Caller(c), id, request.Active)
	if err != nil {
		return common.ErrorStatus(err, errorStatuses)
	}

	//nolint:wrapcheck
	return c.JSON(http.StatusOK, asset)
}
