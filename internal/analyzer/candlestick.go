package analyzer

import (
	"math"

	"github.com/newthinker/quorum/internal/core"
)

const candleWindow = 5

// Candlestick votes on single, double and triple candle reversal patterns
// formed by the most recent bars.
type Candlestick struct{}

// NewCandlestick creates the candlestick pattern analyzer.
func NewCandlestick() *Candlestick {
	return &Candlestick{}
}

func (c *Candlestick) Name() string    { return NameCandlestick }
func (c *Candlestick) Weight() float64 { return 10 }
func (c *Candlestick) MinBars() int    { return candleWindow }

func (c *Candlestick) Analyze(in Input) (Result, error) {
	bars := in.Bars[len(in.Bars)-candleWindow:]
	first, mid, last := bars[2], bars[3], bars[4]

	declining := bars[3].Close < bars[0].Close
	advancing := bars[3].Close > bars[0].Close

	var signals []core.Signal

	if rng := last.High - last.Low; rng > 0 && body(last)/rng < 0.1 {
		signals = append(signals, signal("Doji", core.DirectionNeutral, 30))
	}

	b := body(last)
	if b > 0 {
		if lowerShadow(last) >= 2*b && upperShadow(last) <= b && declining {
			signals = append(signals, signal("Hammer", core.DirectionBuy, 65))
		}
		if upperShadow(last) >= 2*b && lowerShadow(last) <= b && advancing {
			signals = append(signals, signal("Shooting Star", core.DirectionSell, 65))
		}
	}

	if bearish(mid) && bullish(last) && last.Open <= mid.Close && last.Close >= mid.Open && body(last) > body(mid) {
		signals = append(signals, signal("Bullish Engulfing", core.DirectionBuy, 75))
	}
	if bullish(mid) && bearish(last) && last.Open >= mid.Close && last.Close <= mid.Open && body(last) > body(mid) {
		signals = append(signals, signal("Bearish Engulfing", core.DirectionSell, 75))
	}

	small := body(mid) < 0.3*body(first)
	midpoint := (first.Open + first.Close) / 2
	if bearish(first) && small && bullish(last) && last.Close > midpoint {
		signals = append(signals, signal("Morning Star", core.DirectionBuy, 80))
	}
	if bullish(first) && small && bearish(last) && last.Close < midpoint {
		signals = append(signals, signal("Evening Star", core.DirectionSell, 80))
	}

	return tally(signals, ReducedCap, map[string]float64{
		"patterns": float64(len(signals)),
	}), nil
}

func body(b core.Bar) float64 { return math.Abs(b.Close - b.Open) }

func upperShadow(b core.Bar) float64 { return b.High - math.Max(b.Open, b.Close) }

func lowerShadow(b core.Bar) float64 { return math.Min(b.Open, b.Close) - b.Low }

func bullish(b core.Bar) bool { return b.Close > b.Open }

func bearish(b core.Bar) bool { return b.Close < b.Open }
