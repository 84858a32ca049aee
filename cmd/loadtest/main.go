package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/erain9/matchcore/config"
	"github.com/erain9/matchcore/pkg/core"
	"github.com/erain9/matchcore/pkg/exchange"
	"github.com/erain9/matchcore/pkg/loadgen"
	"github.com/erain9/matchcore/pkg/logging"
	"github.com/erain9/matchcore/pkg/otel"
	"github.com/rs/zerolog/log"
)

func main() {
	flags := config.RegisterFlags(flag.CommandLine)
	workers := flag.Int("workers", 0, "Number of submitting workers (overrides config)")
	rate := flag.Float64("rate", -1, "Submissions per second, 0 for unlimited (overrides config)")
	duration := flag.Duration("duration", 0, "Run length (overrides config)")
	flag.Parse()

	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if *workers > 0 {
		cfg.LoadTest.Workers = *workers
	}
	if *rate >= 0 {
		cfg.LoadTest.Rate = *rate
	}
	if *duration > 0 {
		cfg.LoadTest.Duration = *duration
	}
	if err := flags.Apply(cfg); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	logger := logging.Setup(cfg.Logging(os.Stderr))

	shutdown, err := otel.Init(cfg.Otel())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize OpenTelemetry")
	}
	defer shutdown()
	if cfg.Telemetry.Enabled && cfg.Telemetry.RuntimeMetrics {
		if err := otel.StartRuntimeMetrics(cfg.Telemetry.MetricInterval); err != nil {
			logger.Warn().Err(err).Msg("failed to start runtime metrics")
		}
	}

	engineCfg := core.DefaultEngineConfig()
	engineCfg.Logger = logging.Component("engine")
	engineCfg.Degree = cfg.Engine.BTreeDegree
	x := exchange.New(core.NewMatchingEngine(engineCfg))

	runner, err := loadgen.New(cfg.LoadGen(), x, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create load generator")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := runner.Run(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("load test failed")
		return
	}
	report.Log(logger)

	for _, info := range x.Instruments() {
		logger.Info().
			Str("instrument", info.Name).
			Int("bids", info.Bids).
			Int("asks", info.Asks).
			Int("buy_stops", info.BuyStops).
			Int("sell_stops", info.SellStops).
			Int("trades", info.Trades).
			Str("last_price", info.LastPrice.String()).
			Msg("book summary")
	}
}
