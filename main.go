package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/samber/do/v2"
	"github.com/urfave/cli/v3"
	"github.com/vreid/shiki-arena/internal/pkg/common"
	"github.com/vreid/shiki-arena/internal/pkg/events"
	"github.com/vreid/shiki-arena/internal/pkg/ledger"
	"github.com/vreid/shiki-arena/internal/pkg/lottery"
	"github.com/vreid/shiki-arena/internal/pkg/metrics"
	"github.com/vreid/shiki-arena/internal/pkg/registry"
	"github.com/vreid/shiki-arena/internal/pkg/treasury"
	"go.uber.org/zap"
)

type ShikiArenaService struct {
	Logger      *zap.SugaredLogger  `do:""`
	EchoService *common.EchoService `do:""`

	RegistryService *registry.RegistryService `do:""`
	LedgerService   *ledger.LedgerService     `do:""`
	TreasuryService *treasury.TreasuryService `do:""`
	LotteryService  *lottery.LotteryService   `do:""`
	MetricsService  *metrics.MetricsService   `do:""`
}

func runServer(_ context.Context, cmd *cli.Command) error {
	settings, err := common.ReadSettingsFile(cmd.String("config"), common.Settings{
		Admin:               cmd.String("admin"),
		OperationsRecipient: cmd.String("operations-recipient"),
		DailyBurn:           cmd.Int64("daily-burn"),
		HealthSchedule:      cmd.String("health-schedule"),
	})
	if err != nil {
		return err
	}

	i := do.New()

	do.ProvideNamedValue(i, "port", cmd.Int("port"))
	do.ProvideNamedValue(i, "data-dir", cmd.String("data-dir"))
	do.ProvideNamedValue(i, "debug", cmd.Bool("debug"))

	do.ProvideNamedValue(i, "admin", settings.Admin)
	do.ProvideNamedValue(i, "operations-recipient", settings.OperationsRecipient)
	do.ProvideNamedValue(i, "daily-burn", settings.DailyBurn)
	do.ProvideNamedValue(i, "health-schedule", settings.HealthSchedule)

	eventChan := make(chan events.Event, 1000)
	var eventSource <-chan events.Event = eventChan
	var eventSink chan<- events.Event = eventChan

	do.ProvideNamedValue(i, "event-source", eventSource)
	do.ProvideNamedValue(i, "event-sink", eventSink)

	do.Provide(i, common.NewLogger)
	do.Provide(i, common.NewCallGuard)
	do.Provide(i, common.NewDatabaseService)
	do.Provide(i, common.NewEchoService)

	do.Provide(i, registry.NewRegistryService)
	do.Provide(i, ledger.NewLedgerService)
	do.Provide(i, treasury.NewTreasuryService)
	do.Provide(i, lottery.NewLotteryService)
	do.Provide(i, metrics.NewMetricsService)

	do.Provide(i, do.InvokeStruct[ShikiArenaService])

	shikiArenaService, err := do.Invoke[ShikiArenaService](i)
	if err != nil {
		return fmt.Errorf("failed to create shiki-arena service: %w", err)
	}

	defer func() {
		_ = i.Shutdown()
	}()

	shikiArenaService.Logger.Infof("administrator is %s, operations recipient is %s",
		settings.Admin, settings.OperationsRecipient)

	err = shikiArenaService.MetricsService.Start()
	if err != nil {
		return fmt.Errorf("failed to start metrics service: %w", err)
	}

	//nolint:wrapcheck
	return shikiArenaService.EchoService.Start()
}

func main() {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load(".env")
	}

	//nolint:exhaustruct
	cmd := &cli.Command{
		Name: "shiki-arena",
		Commands: []*cli.Command{
			{
				Name: "server",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "port",
						Value:   3000, //nolint:mnd
						Sources: cli.EnvVars("SHIKI_ARENA_PORT"),
					},
					&cli.StringFlag{
						Name:    "data-dir",
						Value:   "./shiki-arena/data",
						Sources: cli.EnvVars("SHIKI_ARENA_DATA_DIR"),
					},
					&cli.StringFlag{
						Name:    "admin",
						Value:   "admin",
						Sources: cli.EnvVars("SHIKI_ARENA_ADMIN"),
					},
					&cli.StringFlag{
						Name:    "operations-recipient",
						Value:   "operations",
						Sources: cli.EnvVars("SHIKI_ARENA_OPERATIONS_RECIPIENT"),
					},
					&cli.Int64Flag{
						Name:    "daily-burn",
						Value:   5000, //nolint:mnd
						Sources: cli.EnvVars("SHIKI_ARENA_DAILY_BURN"),
					},
					&cli.StringFlag{
						Name:    "health-schedule",
						Value:   "@every 1m",
						Sources: cli.EnvVars("SHIKI_ARENA_HEALTH_SCHEDULE"),
					},
					&cli.StringFlag{
						Name:    "config",
						Value:   "",
						Sources: cli.EnvVars("SHIKI_ARENA_CONFIG"),
					},
					&cli.BoolFlag{
						Name:    "debug",
						Value:   false,
						Sources: cli.EnvVars("SHIKI_ARENA_DEBUG"),
					},
				},
				Action: runServer,
			},
		},
		DefaultCommand: "server",
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		log.Fatal(err)
	}
}
