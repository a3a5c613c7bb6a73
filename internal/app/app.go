package app

import (
	"context"
	"errors"
	"math/rand/v2"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"price-move-alerts/internal/alerting"
	"price-move-alerts/internal/config"
	"price-move-alerts/internal/fetcher"
	"price-move-alerts/internal/scheduler"
	"price-move-alerts/internal/significance"
	"price-move-alerts/internal/watcher"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newFetcher() fetcher.QuoteFetcher {
	return fetcher.NewCMC(fetcher.CMCOptions{
		BaseURL:   a.Config.CMC.BaseURL,
		APIKey:    a.Config.CMC.APIKey,
		Timeout:   a.Config.CMC.RequestTimeout,
		UserAgent: a.Config.CMC.UserAgent,
		Debug:     a.Config.CMC.Debug,
	}, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if !a.Config.DispatchEnabled() {
		return nil
	}
	cfg := a.Config.Telegram
	return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, cfg.RequestTimeout, a.Logger)
}

func (a *App) newWatcher() (*watcher.Watcher, error) {
	policy, err := significance.NewPolicy(
		significance.Mode(a.Config.Watcher.Policy),
		decimal.NewFromFloat(a.Config.Watcher.ThresholdPct),
	)
	if err != nil {
		return nil, err
	}

	notifier := a.newNotifier()
	if notifier == nil {
		a.Logger.Warn().Msg("telegram destination not configured; reports will be logged only")
	}

	// rand/v2's global source is reseeded per process, which is what the
	// snapshot sampling wants.
	return watcher.New(a.Config.Watcher.Symbols, a.newFetcher(), notifier, policy, rand.IntN, a.Logger)
}

// Run executes the long-running monitoring service until a termination
// signal arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	w, err := a.newWatcher()
	if err != nil {
		return err
	}

	sched := scheduler.New(a.Logger,
		scheduler.Job{Name: "1h-check", Interval: a.Config.Scheduler.CheckInterval, Run: w.RunCheck},
		scheduler.Job{Name: "24h-snapshot", Interval: a.Config.Scheduler.SnapshotInterval, Run: w.RunSnapshot},
	)

	if err := sched.Start(ctx); err != nil {
		return err
	}
	a.Logger.Info().
		Strs("symbols", a.Config.Watcher.Symbols).
		Str("policy", a.Config.Watcher.Policy).
		Msg("price watcher started")

	<-ctx.Done()
	sched.Stop()
	a.Logger.Info().Msg("price watcher stopped")

	if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Check runs the short-interval cycle once and returns.
func (a *App) Check(ctx context.Context) error {
	w, err := a.newWatcher()
	if err != nil {
		return err
	}
	return w.RunCheck(ctx)
}

// Snapshot runs the 24h snapshot cycle once and returns.
func (a *App) Snapshot(ctx context.Context) error {
	w, err := a.newWatcher()
	if err != nil {
		return err
	}
	return w.RunSnapshot(ctx)
}
