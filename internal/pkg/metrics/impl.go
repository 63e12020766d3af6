package metrics

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/samber/do/v2"
	"github.com/vreid/shiki-arena/internal/pkg/common"
	"github.com/vreid/shiki-arena/internal/pkg/events"
	"github.com/vreid/shiki-arena/internal/pkg/treasury"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

const namespace = "shiki_arena"

// eventCounters counts what the event stream has reported since start.
type eventCounters struct {
	assetsRegistered atomic.Uint64
	votes            atomic.Uint64
	premiumVotes     atomic.Uint64
	ratingChanges    atomic.Uint64
	draws            atomic.Uint64
	degradedDraws    atomic.Uint64
	tokensPaid       atomic.Uint64
	revenue          atomic.Uint64
	burned           atomic.Uint64
}

type MetricsService struct {
	Logger          *zap.SugaredLogger
	Guard           *common.CallGuard
	TreasuryService *treasury.TreasuryService

	EventSource <-chan events.Event

	Registry *prometheus.Registry

	schedule string
	cron     *cron.Cron
	counters eventCounters

	balance    *prometheus.GaugeVec
	runwayDays *prometheus.GaugeVec
}

func NewMetricsService(i do.Injector) (*MetricsService, error) {
	result := &MetricsService{
		Logger:          do.MustInvoke[*zap.SugaredLogger](i).Named("metrics"),
		Guard:           do.MustInvoke[*common.CallGuard](i),
		TreasuryService: do.MustInvoke[*treasury.TreasuryService](i),

		EventSource: do.MustInvokeNamed[<-chan events.Event](i, "event-source"),

		Registry: prometheus.NewRegistry(),

		schedule: do.MustInvokeNamed[string](i, "health-schedule"),
		cron:     cron.New(),
	}

	result.configure()

	echoService, err := do.Invoke[*common.EchoService](i)
	if err != nil {
		return nil, fmt.Errorf("failed to create echo service: %w", err)
	}

	echoService.Register(func(e *echo.Echo) {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(result.Registry, promhttp.HandlerOpts{})))
	})

	return result, nil
}

func (s *MetricsService) counterFunc(name string, help string, value func() uint64) prometheus.CounterFunc {
	return prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		},
		func() float64 {
			return float64(value())
		})
}

func (s *MetricsService) configure() {
	s.balance = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "treasury",
			Name:      "balance",
			Help:      "Current treasury balances.",
		},
		[]string{"treasury"},
	)

	s.runwayDays = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "treasury",
			Name:      "runway_days",
			Help:      "Days each treasury lasts at the configured daily burn.",
		},
		[]string{"treasury"},
	)

	s.Registry.MustRegister(
		s.balance,
		s.runwayDays,
		s.counterFunc("assets_registered_total", "The total amount of registered assets.", s.counters.assetsRegistered.Load),
		s.counterFunc("votes_total", "The total amount of recorded votes.", s.counters.votes.Load),
		s.counterFunc("premium_votes_total", "The total amount of premium votes.", s.counters.premiumVotes.Load),
		s.counterFunc("rating_changes_total", "The total amount of rating updates.", s.counters.ratingChanges.Load),
		s.counterFunc("draws_total", "The total amount of processed lottery draws.", s.counters.draws.Load),
		s.counterFunc("degraded_draws_total", "The total amount of token draws paid below target.", s.counters.degradedDraws.Load),
		s.counterFunc("tokens_paid_total", "The total amount of tokens paid by the lottery.", s.counters.tokensPaid.Load),
		s.counterFunc("revenue_total", "The total amount of distributed revenue.", s.counters.revenue.Load),
		s.counterFunc("burned_total", "The total amount of burned revenue.", s.counters.burned.Load),
		s.counterFunc("calls_total", "The total amount of guarded calls.", s.Guard.Calls),
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "call_in_progress",
				Help:      "Whether a guarded call currently holds the ledger.",
			},
			func() float64 {
				if s.Guard.Active() {
					return 1
				}

				return 0
			}),
	)
}

func (s *MetricsService) setBalances(prizeBreak, weeklyRaffle, legacy int64) {
	s.balance.WithLabelValues(string(treasury.KindPrizeBreak)).Set(float64(prizeBreak))
	s.balance.WithLabelValues(string(treasury.KindWeeklyRaffle)).Set(float64(weeklyRaffle))
	s.balance.WithLabelValues(string(treasury.KindLegacy)).Set(float64(legacy))
}

func positive(v int64) uint64 {
	if v <= 0 {
		return 0
	}

	return uint64(v)
}

func (s *MetricsService) HandleEvent(event events.Event) {
	switch e := event.(type) {
	case events.AssetRegistered:
		s.counters.assetsRegistered.Inc()
	case events.VoteCast:
		s.counters.votes.Inc()

		if e.Premium {
			s.counters.premiumVotes.Inc()
		}
	case events.RatingChanged:
		s.counters.ratingChanges.Inc()
	case events.RewardClaimed:
		s.counters.draws.Inc()
		s.counters.tokensPaid.Add(positive(e.Tokens))

		if e.Degraded {
			s.counters.degradedDraws.Inc()
		}
	case events.RevenueDistributed:
		s.counters.revenue.Add(positive(e.Gross))
		s.counters.burned.Add(positive(e.Burned))
	case events.TreasuryChanged:
		s.setBalances(e.PrizeBreak, e.WeeklyRaffle, e.Legacy)
	}
}

func (s *MetricsService) processEvents() {
	for event := range s.EventSource {
		s.HandleEvent(event)
	}
}

func runwayValue(runway treasury.Runway) float64 {
	if runway.Unlimited {
		return math.Inf(1)
	}

	return float64(runway.RunwayDays)
}

// CheckHealth refreshes the treasury gauges and logs the runway bands.
func (s *MetricsService) CheckHealth() (*treasury.Report, error) {
	report, err := s.TreasuryService.Health()
	if err != nil {
		s.Logger.Errorf("failed to check treasury health: %v", err)

		return nil, err
	}

	s.setBalances(report.State.PrizeBreak, report.State.WeeklyRaffle, report.State.Legacy)

	for kind, runway := range map[treasury.Kind]treasury.Runway{
		treasury.KindPrizeBreak:   report.Health.PrizeBreak,
		treasury.KindWeeklyRaffle: report.Health.WeeklyRaffle,
	} {
		s.runwayDays.WithLabelValues(string(kind)).Set(runwayValue(runway))

		logf := s.Logger.Infof
		if runway.Band == treasury.BandWarning || runway.Band == treasury.BandCritical {
			logf = s.Logger.Warnf
		}

		logf("%s holds %s, %s days of runway (%s)",
			kind,
			humanize.Comma(runway.Balance),
			humanize.Comma(runway.RunwayDays),
			runway.Band)
	}

	return report, nil
}

// Start consumes the event stream and schedules the health check.
func (s *MetricsService) Start() error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		_, _ = s.CheckHealth()
	})
	if err != nil {
		return fmt.Errorf("failed to schedule health check %q: %w", s.schedule, err)
	}

	go s.processEvents()

	s.cron.Start()

	_, err = s.CheckHealth()

	return err
}

func (s *MetricsService) Shutdown() error {
	<-s.cron.Stop().Done()

	return nil
}
