package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alejandrodnm/kalshibot/config"
	"github.com/alejandrodnm/kalshibot/internal/adapters/kalshi"
	"github.com/alejandrodnm/kalshibot/internal/adapters/notify"
	"github.com/alejandrodnm/kalshibot/internal/adapters/storage"
	"github.com/alejandrodnm/kalshibot/internal/engine"
	"github.com/alejandrodnm/kalshibot/internal/ports"
	"github.com/alejandrodnm/kalshibot/internal/scanner"
	"github.com/alejandrodnm/kalshibot/internal/throttle"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one scan/enter cycle and exit")
	dryRun := flag.Bool("dry-run", false, "simulate fills locally, no exchange mutation")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "print full position tables (default: compact 1-line)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *dryRun {
		cfg.Trading.DryRun = true
	}
	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	slog.Info("kalshibot starting",
		"config", *configPath,
		"interval", cfg.ScanInterval(),
		"dry_run", cfg.Trading.DryRun,
		"once", *once,
		"max_positions", cfg.Trading.MaxPositions,
		"max_position_pct", cfg.Trading.MaxPositionPct,
		"profit_target_pct", cfg.Exits.ProfitTargetPct,
		"stop_loss_pct", cfg.Exits.StopLossPct,
		"probability_band", fmt.Sprintf("%.2f-%.2f", cfg.Scanner.MinProbability, cfg.Scanner.MaxProbability),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var signer *kalshi.Signer
	if !cfg.Trading.DryRun {
		signer, err = kalshi.LoadSigner(cfg.API.KeyID, cfg.API.PrivateKeyPath)
		if err != nil {
			slog.Error("failed to load API credentials", "err", err)
			os.Exit(1)
		}
	}

	gate := throttle.NewGate(cfg.API.RequestsPerSecond, cfg.API.Burst, cfg.RateGateMaxWait())
	exchange := throttle.WrapExchange(kalshi.NewExchange(kalshi.NewClient(cfg.API.BaseURL, signer)), gate)

	journal, err := storage.NewSQLiteJournal(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open journal", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer journal.Close()

	notifier := notify.NewConsole(*table)

	initialCash, err := startingBalance(ctx, cfg, exchange)
	if err != nil {
		slog.Error("failed to read balance", "err", err)
		os.Exit(1)
	}
	slog.Info("starting balance", "cash_cents", initialCash)

	ledger := engine.NewLedger(initialCash)
	lifecycle := engine.NewLifecycle(exchange, ledger, journal, notifier,
		cfg.PollInterval(), cfg.Trading.DryRun)
	monitor := engine.NewMonitor(exchange, ledger, lifecycle, engine.MonitorConfig{
		Cadence:           cfg.ExitCadence(),
		OrderTimeout:      cfg.OrderTimeout(),
		ProfitTargetPct:   cfg.Exits.ProfitTargetPct,
		StopLossPct:       cfg.Exits.StopLossPct,
		StopLossMinVolume: cfg.Exits.StopLossMinVolume,
		Precedence:        cfg.Exits.Precedence,
	})

	source := scanner.New(exchange, scanner.Config{
		Filter: scanner.FilterConfig{
			MinVolume:       cfg.Scanner.MinVolume,
			MinVolume24h:    cfg.Scanner.MinVolume24h,
			MinProbability:  cfg.Scanner.MinProbability,
			MaxProbability:  cfg.Scanner.MaxProbability,
			MaxHoursToClose: cfg.Scanner.MaxHoursToClose,
			MinHoursToClose: cfg.Scanner.MinHoursToClose,
		},
		MinLiquidityCents: cfg.Scanner.MinLiquidityCents,
		DepthCents:        cfg.Scanner.DepthCents,
		MaxResults:        cfg.Scanner.MaxResults,
	})

	eng := engine.New(source, ledger, lifecycle, monitor, journal, notifier, engine.Config{
		ScanInterval: cfg.ScanInterval(),
		OrderTimeout: cfg.OrderTimeout(),
		Sizer: engine.SizerConfig{
			MinPositionPct: cfg.Trading.MinPositionPct,
			MaxPositionPct: cfg.Trading.MaxPositionPct,
			MinContracts:   cfg.Trading.MinContracts,
			MaxContracts:   cfg.Trading.MaxContracts,
			MaxPriceCents:  cfg.Trading.MaxPriceCents,
			Compounding:    cfg.Trading.Compounding,
			MaxPositions:   cfg.Trading.MaxPositions,
		},
	})

	if *once {
		result, err := eng.RunOnce(ctx)
		if err != nil {
			slog.Error("cycle failed", "err", err)
			os.Exit(1)
		}
		slog.Info("cycle complete", "scanned", result.Scanned, "entered", result.Entered)
		return
	}

	if err := eng.Run(ctx); err != nil {
		slog.Error("engine exited with error", "err", err)
		os.Exit(1)
	}

	slog.Info("kalshibot stopped cleanly")
}

// startingBalance reads the live cash balance, or uses the configured
// starting balance in dry-run mode (falling back to it if the exchange is
// unreachable would hide a real error, so live mode fails hard).
func startingBalance(ctx context.Context, cfg *config.Config, ex ports.Exchange) (int64, error) {
	if cfg.Trading.DryRun {
		return cfg.Trading.InitialBalanceCents, nil
	}
	return ex.GetBalance(ctx)
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
