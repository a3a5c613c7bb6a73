package watcher

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"price-move-alerts/internal/alerting"
	"price-move-alerts/internal/fetcher"
	"price-move-alerts/internal/significance"
)

const checkHeader = "1h price check:"

// Watcher runs the two monitoring cycles over a fixed, ordered list of
// tracked symbols. A nil notifier disables dispatch; cycles still fetch and
// log their results.
type Watcher struct {
	symbols  []string
	fetcher  fetcher.QuoteFetcher
	notifier alerting.Notifier
	policy   significance.Policy
	pick     func(n int) int
	logger   zerolog.Logger
}

// New constructs a Watcher. pick draws a uniform random index below n and is
// injected so snapshot sampling stays deterministic in tests.
func New(symbols []string, qf fetcher.QuoteFetcher, notifier alerting.Notifier, policy significance.Policy, pick func(n int) int, logger zerolog.Logger) (*Watcher, error) {
	if len(symbols) == 0 {
		return nil, errors.New("at least one tracked symbol required")
	}
	if qf == nil {
		return nil, errors.New("quote fetcher required")
	}
	if pick == nil {
		return nil, errors.New("random index source required")
	}
	return &Watcher{
		symbols:  symbols,
		fetcher:  qf,
		notifier: notifier,
		policy:   policy,
		pick:     pick,
		logger:   logger.With().Str("component", "watcher").Logger(),
	}, nil
}

// RunCheck executes one short-interval pass: every tracked symbol is fetched
// sequentially in configured order, filtered for significant 1h movement, and
// the surviving lines are dispatched as a single message. An empty report is
// a no-op. One symbol's failure never halts the pass.
func (w *Watcher) RunCheck(ctx context.Context) error {
	lines := make([]string, 0, len(w.symbols))

	for _, symbol := range w.symbols {
		quote, err := w.fetcher.Fetch(ctx, symbol)
		if err != nil {
			w.logger.Warn().Err(err).Str("symbol", symbol).Msg("quote unavailable")
			lines = append(lines, symbol+": No data returned")
			continue
		}

		if !w.policy.IsSignificant(quote.PercentChange1h) {
			w.logger.Debug().Str("symbol", symbol).
				Str("pc_1h", formatPercent(quote.PercentChange1h)).
				Msg("movement below significance filter")
			continue
		}

		lines = append(lines, fmt.Sprintf("%s: 1h change is %s the price now is %s",
			symbol, formatPercent(quote.PercentChange1h), formatPrice(quote.Price)))
	}

	if len(lines) == 0 {
		w.logger.Info().Int("symbols", len(w.symbols)).Msg("no significant movement this cycle")
		return nil
	}

	return w.dispatch(ctx, checkHeader+"\n"+strings.Join(lines, "\n"))
}

// RunSnapshot samples one tracked symbol at random and broadcasts its 24h
// change unconditionally. A failed fetch is logged and the cycle ends without
// dispatching.
func (w *Watcher) RunSnapshot(ctx context.Context) error {
	symbol := w.symbols[w.pick(len(w.symbols))]

	quote, err := w.fetcher.Fetch(ctx, symbol)
	if err != nil {
		w.logger.Warn().Err(err).Str("symbol", symbol).Msg("snapshot quote unavailable")
		return nil
	}

	return w.dispatch(ctx, fmt.Sprintf("%s: 24h change is %s", symbol, formatPercent(quote.PercentChange24h)))
}

func (w *Watcher) dispatch(ctx context.Context, text string) error {
	if w.notifier == nil {
		w.logger.Info().Str("report", text).Msg("notifier disabled; report logged only")
		return nil
	}
	if err := w.notifier.Notify(ctx, text); err != nil {
		return fmt.Errorf("dispatch report: %w", err)
	}
	return nil
}

func formatPercent(change *decimal.Decimal) string {
	if change == nil {
		return "N/A"
	}
	return change.StringFixed(2) + "%"
}

func formatPrice(price decimal.Decimal) string {
	if price.IsZero() {
		return "N/A"
	}
	return "$" + price.StringFixed(2)
}
