package significance

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func pct(s string) *decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return &d
}

func TestSymmetricPolicy(t *testing.T) {
	policy, err := NewPolicy(ModeSymmetric, decimal.NewFromInt(5))
	require.NoError(t, err)

	cases := []struct {
		name   string
		change *decimal.Decimal
		want   bool
	}{
		{"absent", nil, false},
		{"zero", pct("0"), false},
		{"below threshold", pct("4.99"), false},
		{"at threshold", pct("5"), true},
		{"above threshold", pct("6.2"), true},
		{"negative at threshold", pct("-5"), true},
		{"negative below threshold", pct("-4.2"), false},
		{"large drop", pct("-12.7"), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, policy.IsSignificant(tc.change))
		})
	}
}

func TestNonNegativePolicy(t *testing.T) {
	policy, err := NewPolicy(ModeNonNegative, decimal.Zero)
	require.NoError(t, err)

	cases := []struct {
		name   string
		change *decimal.Decimal
		want   bool
	}{
		{"absent", nil, false},
		{"zero", pct("0"), true},
		{"small gain", pct("0.01"), true},
		{"small loss", pct("-0.01"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, policy.IsSignificant(tc.change))
		})
	}
}

func TestNewPolicyValidation(t *testing.T) {
	_, err := NewPolicy(Mode("aggressive"), decimal.NewFromInt(5))
	require.Error(t, err)

	_, err = NewPolicy(ModeSymmetric, decimal.Zero)
	require.Error(t, err)

	_, err = NewPolicy(ModeSymmetric, decimal.NewFromInt(-1))
	require.Error(t, err)
}
