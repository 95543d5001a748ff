package distributionmodel

import (
	"testing"

	"github.com/stretchr/testify/require"

	"orchai/core/num"
)

func TestTriggers(t *testing.T) {
	low, high, err := Triggers(num.MustDec("0.02"), num.MustDec("0.06"))
	require.NoError(t, err)
	require.Equal(t, "0.03", low.String())
	require.Equal(t, "0.05", high.String())
}

func TestEmissionRateHysteresis(t *testing.T) {
	m := Model{
		EmissionCap:         num.MustDec("200"),
		EmissionFloor:       num.MustDec("10"),
		IncrementMultiplier: num.MustDec("1.1"),
		DecrementMultiplier: num.MustDec("0.9"),
	}
	threshold, target := num.MustDec("0.02"), num.MustDec("0.06")

	cases := []struct {
		name    string
		deposit string
		current string
		want    string
	}{
		{"below low trigger increments", "0.01", "100", "110"},
		{"on low trigger is unchanged", "0.03", "100", "100"},
		{"inside band is unchanged", "0.04", "100", "100"},
		{"on high trigger is unchanged", "0.05", "100", "100"},
		{"above high trigger decrements", "0.07", "100", "90"},
		{"clamped to cap", "0.01", "190", "200"},
		{"clamped to floor", "0.07", "10", "10"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rate, err := m.EmissionRate(num.MustDec(tc.deposit), target, threshold, num.MustDec(tc.current))
			require.NoError(t, err)
			require.Equal(t, tc.want, rate.String())
		})
	}
}
