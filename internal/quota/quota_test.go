package quota

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute(t *testing.T) {
	cases := []struct {
		bytes   int
		percent int
		level   Level
	}{
		{0, 0, LevelNormal},
		{DefaultBudget / 2, 50, LevelNormal},
		{DefaultBudget * 3 / 4, 75, LevelElevated},
		{DefaultBudget * 89 / 100, 89, LevelElevated},
		{DefaultBudget * 96 / 100, 96, LevelCritical},
		{DefaultBudget * 2, 100, LevelCritical},
	}
	for _, tc := range cases {
		u := ComputeSize(tc.bytes, 0)
		assert.Equal(t, tc.percent, u.Percent, "bytes=%d", tc.bytes)
		assert.Equal(t, tc.level, u.Level, "bytes=%d", tc.bytes)
	}
	require.Equal(t, 3, Compute([]byte("abc"), 0).Bytes)
}

func TestMonitor_WarnsOncePerExcursion(t *testing.T) {
	m := NewMonitor(0)
	high := DefaultBudget * 96 / 100 // ~4.8 MiB

	_, warn := m.ObserveSize(high)
	require.True(t, warn, "first crossing warns")
	_, warn = m.ObserveSize(high)
	require.False(t, warn, "still high: no repeat")

	// Dipping into the elevated tier does not re-arm.
	_, warn = m.ObserveSize(DefaultBudget * 80 / 100)
	require.False(t, warn)
	_, warn = m.ObserveSize(high)
	require.False(t, warn)

	// Dropping below 75% re-arms.
	u, warn := m.ObserveSize(DefaultBudget / 10)
	require.False(t, warn)
	require.Equal(t, LevelNormal, u.Level)
	_, warn = m.ObserveSize(high)
	require.True(t, warn)
	require.Equal(t, 96, m.Last().Percent)
}
