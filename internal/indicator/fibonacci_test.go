package indicator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFibonacciLevels_Uptrend(t *testing.T) {
	levels := FibonacciLevels(200, 100, true)
	require.Len(t, levels, len(RetracementRatios))

	p, ok := LevelAt(levels, 0.618)
	require.True(t, ok)
	assert.InDelta(t, 138.2, p, 1e-9)

	p0, _ := LevelAt(levels, 0)
	p1, _ := LevelAt(levels, 1)
	assert.Equal(t, 200.0, p0)
	assert.Equal(t, 100.0, p1)
}

func TestFibonacciLevels_Downtrend(t *testing.T) {
	levels := FibonacciLevels(200, 100, false)

	p, ok := LevelAt(levels, 0.236)
	require.True(t, ok)
	assert.InDelta(t, 123.6, p, 1e-9)
}

func TestFibonacciLevels_OrderingAndBounds(t *testing.T) {
	swings := []struct{ high, low float64 }{
		{200, 100}, {1.5, 1.2}, {50, 50}, {10432.5, 9120.25},
	}
	for _, s := range swings {
		up := FibonacciLevels(s.high, s.low, true)
		down := FibonacciLevels(s.high, s.low, false)
		for i := range up {
			assert.GreaterOrEqual(t, up[i].Price, s.low)
			assert.LessOrEqual(t, up[i].Price, s.high)
			assert.GreaterOrEqual(t, down[i].Price, s.low)
			assert.LessOrEqual(t, down[i].Price, s.high)
			if i > 0 {
				// uptrend levels fall as the ratio grows, downtrend levels rise
				assert.LessOrEqual(t, up[i].Price, up[i-1].Price)
				assert.GreaterOrEqual(t, down[i].Price, down[i-1].Price)
			}
		}
	}
}

func TestFibonacciExtensions(t *testing.T) {
	up := FibonacciExtensions(200, 100, true)
	require.Len(t, up, 2)
	assert.InDelta(t, 227.2, up[0].Price, 1e-9)
	assert.InDelta(t, 261.8, up[1].Price, 1e-9)

	down := FibonacciExtensions(200, 100, false)
	assert.InDelta(t, 72.8, down[0].Price, 1e-9)
	assert.InDelta(t, 38.2, down[1].Price, 1e-9)
}

func TestLevelAt_Unknown(t *testing.T) {
	_, ok := LevelAt(FibonacciLevels(2, 1, true), 0.3)
	assert.False(t, ok)
}
