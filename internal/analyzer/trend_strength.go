package analyzer

import (
	"math"

	"github.com/newthinker/quorum/internal/core"
	"github.com/newthinker/quorum/internal/indicator"
)

const adxPeriod = 14

// TrendStrength votes on ADX(14) trend strength and DI crossovers.
type TrendStrength struct{}

// NewTrendStrength creates the ADX analyzer.
func NewTrendStrength() *TrendStrength {
	return &TrendStrength{}
}

func (t *TrendStrength) Name() string    { return NameTrendStrength }
func (t *TrendStrength) Weight() float64 { return 7 }
func (t *TrendStrength) MinBars() int    { return 30 }

func (t *TrendStrength) Analyze(in Input) (Result, error) {
	adx, plus, minus := indicator.ADX(in.Highs, in.Lows, in.Closes, adxPeriod)
	a := indicator.Last(adx)
	p, m := indicator.Last(plus), indicator.Last(minus)
	prevP, prevM := indicator.Prev(plus, 1), indicator.Prev(minus, 1)

	var signals []core.Signal

	switch {
	case a > 25:
		strength := math.Min(90, 50+(a-25)*2)
		if p > m {
			signals = append(signals, signal("Strong Uptrend", core.DirectionBuy, strength))
		} else if m > p {
			signals = append(signals, signal("Strong Downtrend", core.DirectionSell, strength))
		}
	case a < 20:
		signals = append(signals, signal("Weak Trend", core.DirectionNeutral, 30))
	}

	if prevP <= prevM && p > m {
		signals = append(signals, signal("DI Bullish Cross", core.DirectionBuy, 60))
	}
	if prevP >= prevM && p < m {
		signals = append(signals, signal("DI Bearish Cross", core.DirectionSell, 60))
	}

	return tally(signals, DefaultCap, map[string]float64{
		"adx":      a,
		"plus_di":  p,
		"minus_di": m,
	}), nil
}
