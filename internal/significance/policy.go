package significance

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Mode selects which movement filter the watcher applies to 1h changes.
type Mode string

const (
	// ModeSymmetric reports moves whose absolute value reaches the threshold.
	// This is the production default.
	ModeSymmetric Mode = "symmetric"
	// ModeNonNegative reports any non-negative move regardless of size, an
	// intentionally asymmetric broadcast-style filter kept as an explicit
	// alternative.
	ModeNonNegative Mode = "non_negative"
)

// Policy decides whether a short-term percent change is worth reporting.
type Policy struct {
	mode      Mode
	threshold decimal.Decimal
}

// NewPolicy builds a movement filter. The threshold applies to ModeSymmetric
// only and must be positive there.
func NewPolicy(mode Mode, thresholdPct decimal.Decimal) (Policy, error) {
	switch mode {
	case ModeSymmetric:
		if thresholdPct.Sign() <= 0 {
			return Policy{}, fmt.Errorf("significance threshold must be positive, got %s", thresholdPct)
		}
	case ModeNonNegative:
	default:
		return Policy{}, fmt.Errorf("unknown significance mode %q", mode)
	}
	return Policy{mode: mode, threshold: thresholdPct}, nil
}

// Mode reports the configured filter mode.
func (p Policy) Mode() Mode {
	return p.mode
}

// IsSignificant reports whether the given 1h percent change crosses the
// filter. Absent data (nil) is never significant.
func (p Policy) IsSignificant(change *decimal.Decimal) bool {
	if change == nil {
		return false
	}
	if p.mode == ModeNonNegative {
		return change.Sign() >= 0
	}
	return change.Abs().GreaterThanOrEqual(p.threshold)
}
