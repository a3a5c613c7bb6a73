package fetcher

import (
	"context"

	"github.com/shopspring/decimal"
)

// Quote is a point-in-time USD snapshot for one tracked asset. The percent
// fields are nil when the provider returned no numeric value for them, which
// is distinct from a reported change of zero.
type Quote struct {
	Symbol           string
	Price            decimal.Decimal
	PercentChange1h  *decimal.Decimal
	PercentChange24h *decimal.Decimal
}

// QuoteFetcher retrieves the latest quote for one asset symbol.
type QuoteFetcher interface {
	Fetch(ctx context.Context, symbol string) (Quote, error)
}
