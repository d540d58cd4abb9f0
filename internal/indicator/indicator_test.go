package indicator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ramp(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func TestSMA_Calculate(t *testing.T) {
	prices := []float64{10, 11, 12, 13, 14, 15}

	sma := SMA(prices, 3)

	require.Len(t, sma, len(prices))
	expected := []float64{0, 0, 11, 12, 13, 14}
	for i, v := range expected {
		assert.InDelta(t, v, sma[i], 1e-9, "sma[%d]", i)
	}
}

func TestSMA_NotEnoughData(t *testing.T) {
	sma := SMA([]float64{10, 11}, 5)
	assert.Equal(t, []float64{0, 0}, sma)
}

func TestEMA_TracksRisingSeries(t *testing.T) {
	prices := ramp(40, 100, 1)
	ema := EMA(prices, 10)
	sma := SMA(prices, 10)

	require.Len(t, ema, 40)
	assert.InDelta(t, sma[9], ema[9], 1e-9, "seeded with the first SMA")
	// on a linear ramp both averages settle at the same lag
	assert.InDelta(t, Last(sma), Last(ema), 1e-6)
	assert.Less(t, Last(ema), Last(prices))
}

func TestRSI_Bounds(t *testing.T) {
	up := RSI(ramp(30, 100, 1), 14)
	assert.InDelta(t, 100, Last(up), 1e-9)

	down := RSI(ramp(30, 100, -1), 14)
	assert.InDelta(t, 0, Last(down), 1e-9)

	assert.Equal(t, make([]float64, 10), RSI(ramp(10, 1, 1), 14))
}

func TestRSI_FlatSeriesIsNeutral(t *testing.T) {
	flat := RSI(ramp(250, 100, 0), 14)
	require.Len(t, flat, 250)
	assert.Equal(t, 0.0, flat[13], "warm-up stays zero")
	for i := 14; i < len(flat); i++ {
		assert.Equal(t, 50.0, flat[i], "index %d", i)
	}

	// movement followed by a halt decays but never reads flat
	prices := append(ramp(30, 100, -1), ramp(20, 71, 0)...)
	halted := RSI(prices, 14)
	assert.InDelta(t, 0, Last(halted), 1e-9)
}

func TestMACD_Alignment(t *testing.T) {
	prices := ramp(60, 50, 0.5)
	macd, sig, hist := MACD(prices, 12, 26, 9)

	require.Len(t, macd, 60)
	require.Len(t, sig, 60)
	require.Len(t, hist, 60)
	assert.Greater(t, Last(macd), 0.0)
	assert.InDelta(t, Last(macd)-Last(sig), Last(hist), 1e-9)

	short, _, _ := MACD(prices[:20], 12, 26, 9)
	assert.Equal(t, make([]float64, 20), short)
}

func TestBollinger_Envelope(t *testing.T) {
	prices := make([]float64, 30)
	for i := range prices {
		prices[i] = 100 + math.Sin(float64(i))
	}
	upper, middle, lower := Bollinger(prices, 20, 2)

	require.Len(t, middle, 30)
	for i := 19; i < 30; i++ {
		assert.Greater(t, upper[i], middle[i])
		assert.Less(t, lower[i], middle[i])
		assert.InDelta(t, upper[i]-middle[i], middle[i]-lower[i], 1e-9)
	}
}

func TestADX_TrendingSeries(t *testing.T) {
	closes := ramp(60, 100, 1)
	highs := ramp(60, 100.5, 1)
	lows := ramp(60, 99.5, 1)

	adx, plus, minus := ADX(highs, lows, closes, 14)
	require.Len(t, adx, 60)
	assert.Greater(t, Last(adx), 25.0)
	assert.Greater(t, Last(plus), Last(minus))

	short, _, _ := ADX(highs[:10], lows[:10], closes[:10], 14)
	assert.Equal(t, make([]float64, 10), short)
}

func TestLastPrev(t *testing.T) {
	s := []float64{1, 2, 3}
	assert.Equal(t, 3.0, Last(s))
	assert.Equal(t, 2.0, Prev(s, 1))
	assert.Equal(t, 0.0, Prev(s, 5))
	assert.Equal(t, 0.0, Last(nil))
}

func TestHighestLowest(t *testing.T) {
	s := []float64{4, 9, -2, 7}
	assert.Equal(t, 9.0, Highest(s))
	assert.Equal(t, -2.0, Lowest(s))
	assert.Equal(t, 0.0, Highest(nil))
}
