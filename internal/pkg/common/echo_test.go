package common_test

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/vreid/shiki-arena/internal/pkg/common"
	"go.uber.org/zap"
)

var errMissing = errors.New("missing")

func TestErrorStatus(t *testing.T) {
	t.Parallel()

	statuses := map[error]int{errMissing: http.StatusNotFound}

	assert.Equal(t, http.StatusNotFound, common.ErrorStatus(fmt.Errorf("%w: 7", errMissing), statuses).Code)
	assert.Equal(t, http.StatusForbidden, common.ErrorStatus(common.ErrUnauthorized, statuses).Code)
	assert.Equal(t, http.StatusConflict, common.ErrorStatus(common.ErrReentrantCall, statuses).Code)

	httpErr := common.ErrorStatus(errors.New("boom"), statuses)
	assert.Equal(t, http.StatusInternalServerError, httpErr.Code)
	assert.Equal(t, "internal error", httpErr.Message)
}

func TestErrorHandlerEnvelope(t *testing.T) {
	t.Parallel()

	e := echo.New()
	e.HTTPErrorHandler = common.ErrorHandler(zap.NewNop().Sugar())
	e.GET("/missing", func(_ echo.Context) error {
		return common.ErrorStatus(errMissing, map[error]int{errMissing: http.StatusNotFound})
	})

	recorder := httptest.NewRecorder()
	e.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/missing", nil))

	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.JSONEq(t, `{"error":{"code":"Not Found","message":"missing"}}`, recorder.Body.String())
}
