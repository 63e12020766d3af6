package common

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/samber/do/v2"
	"go.uber.org/zap"
)

// CallerHeader carries the identity used for administrator checks.
const CallerHeader = "X-Caller"

type HTTPErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type HTTPErrorResponseEnvelope struct {
	Error HTTPErrorResponse `json:"error"`
}

type EchoService struct {
	echo *echo.Echo
	port int
}

func NewEchoService(i do.Injector) (*EchoService, error) {
	port := do.MustInvokeNamed[int](i, "port")
	logger := do.MustInvoke[*zap.SugaredLogger](i)

	e := echo.New()

	e.HideBanner = true
	e.HidePort = false
	e.HTTPErrorHandler = ErrorHandler(logger)

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${id} ${remote_ip} ${status} ${method} ${path} ${error} ${latency_human} ${bytes_in} ${bytes_out}\n",
	}))
	e.Use(middleware.Recover())

	return &EchoService{
		echo: e,
		port: port,
	}, nil
}

func (s *EchoService) Register(c func(e *echo.Echo)) {
	c(s.echo)
}

func (s *EchoService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

func (s *EchoService) Start() error {
	err := s.echo.Start(fmt.Sprintf(":%d", s.port))
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start echo server: %w", err)
	}

	return nil
}

func (s *EchoService) Shutdown(ctx context.Context) error {
	err := s.echo.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("failed to shutdown echo server: %w", err)
	}

	return nil
}

// ErrorHandler renders every error as an HTTPErrorResponseEnvelope.
func ErrorHandler(logger *zap.SugaredLogger) func(error, echo.Context) {
	return func(err error, c echo.Context) {
		statusCode := http.StatusInternalServerError
		message := "internal error"

		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			statusCode = httpErr.Code
			message = fmt.Sprint(httpErr.Message)

			if httpErr.Internal != nil {
				logger.Warnf("request %s %s failed: %s", c.Request().Method, c.Path(), httpErr.Internal)
			}
		} else {
			logger.Warnf("unhandled request error on %s %s: %s", c.Request().Method, c.Path(), err)
		}

		if c.Response().Committed {
			return
		}

		envelope := HTTPErrorResponseEnvelope{
			Error: HTTPErrorResponse{
				Code:    http.StatusText(statusCode),
				Message: message,
			},
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(statusCode)
		} else {
			err = c.JSON(statusCode, envelope)
		}

		if err != nil {
			logger.Warnf("failed to write error response: %s", err)
		}
	}
}

// ErrorStatus maps a domain error onto an HTTP error. Unknown errors become 500s.
func ErrorStatus(err error, statuses map[error]int) *echo.HTTPError {
	for target, code := range statuses {
		if errors.Is(err, target) {
			return echo.NewHTTPError(code, err.Error())
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrReentrantCall):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error").SetInternal(err)
	}
}

func Caller(c echo.Context) string {
	return c.Request().Header.Get(CallerHeader)
}
