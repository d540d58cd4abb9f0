package analyzer

import (
	"github.com/newthinker/quorum/internal/core"
	"github.com/newthinker/quorum/internal/indicator"
)

// Bollinger signal names, shared with danger detection.
const (
	SignalAboveUpperBand = "Price Above Upper Band"
	SignalBelowLowerBand = "Price Below Lower Band"
)

const squeezeLookback = 5

// Bollinger votes on band breaches, re-entries and squeezes of a
// 20-period, 2-sigma envelope.
type Bollinger struct{}

// NewBollinger creates the Bollinger Bands analyzer.
func NewBollinger() *Bollinger {
	return &Bollinger{}
}

func (b *Bollinger) Name() string    { return NameBollinger }
func (b *Bollinger) Weight() float64 { return 10 }
func (b *Bollinger) MinBars() int    { return 25 }

func (b *Bollinger) Analyze(in Input) (Result, error) {
	closes := in.Closes
	upper, middle, lower := indicator.Bollinger(closes, 20, 2)

	price, prev := indicator.Last(closes), indicator.Prev(closes, 1)
	up, mid, lo := indicator.Last(upper), indicator.Last(middle), indicator.Last(lower)
	prevUp, prevLo := indicator.Prev(upper, 1), indicator.Prev(lower, 1)

	var signals []core.Signal

	switch {
	case price > up:
		signals = append(signals, signal(SignalAboveUpperBand, core.DirectionSell, 75))
	case price < lo:
		signals = append(signals, signal(SignalBelowLowerBand, core.DirectionBuy, 75))
	}

	inside := price >= lo && price <= up
	if prev < prevLo && inside {
		signals = append(signals, signal("Bounce From Lower Band", core.DirectionBuy, 65))
	}
	if prev > prevUp && inside {
		signals = append(signals, signal("Rejection From Upper Band", core.DirectionSell, 65))
	}

	bandwidth := bandwidthAt(upper, middle, lower, 0)
	pastBandwidth := bandwidthAt(upper, middle, lower, squeezeLookback)
	if pastBandwidth > 0 && bandwidth < 0.8*pastBandwidth {
		signals = append(signals, signal("Bollinger Squeeze", core.DirectionNeutral, 50))
	}

	percentB := 0.5
	if up > lo {
		percentB = (price - lo) / (up - lo)
	}

	return tally(signals, DefaultCap, map[string]float64{
		"upper":     up,
		"middle":    mid,
		"lower":     lo,
		"bandwidth": bandwidth,
		"percent_b": percentB,
	}), nil
}

func bandwidthAt(upper, middle, lower []float64, barsAgo int) float64 {
	mid := indicator.Prev(middle, barsAgo)
	if mid == 0 {
		return 0
	}
	return (indicator.Prev(upper, barsAgo) - indicator.Prev(lower, barsAgo)) / mid
}
