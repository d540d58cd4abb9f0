package analyzer

import (
	"github.com/newthinker/quorum/internal/core"
	"github.com/newthinker/quorum/internal/indicator"
)

const (
	fibWindow    = 30
	fibTrendBars = 15
	fibProximity = 0.01
)

// Fibonacci votes on price interaction with retracement levels of the
// last 30-bar swing.
type Fibonacci struct{}

// NewFibonacci creates the Fibonacci retracement analyzer.
func NewFibonacci() *Fibonacci {
	return &Fibonacci{}
}

func (f *Fibonacci) Name() string    { return NameFibonacci }
func (f *Fibonacci) Weight() float64 { return 8 }
func (f *Fibonacci) MinBars() int    { return fibWindow }

func (f *Fibonacci) Analyze(in Input) (Result, error) {
	n := in.Len()
	high := indicator.Highest(in.Highs[n-fibWindow:])
	low := indicator.Lowest(in.Lows[n-fibWindow:])
	if high <= low {
		return tally(nil, ReducedCap, nil), nil
	}

	price, prev := indicator.Last(in.Closes), indicator.Prev(in.Closes, 1)
	uptrend := price > indicator.Prev(in.Closes, fibTrendBars)
	dir := core.DirectionSell
	if uptrend {
		dir = core.DirectionBuy
	}

	levels := indicator.FibonacciLevels(high, low, uptrend)
	l236, _ := indicator.LevelAt(levels, 0.236)
	l500, _ := indicator.LevelAt(levels, 0.5)
	l618, _ := indicator.LevelAt(levels, 0.618)

	var signals []core.Signal

	switch {
	case within(price, l618, fibProximity):
		signals = append(signals, signal("Near Fib 0.618", dir, 65))
	case within(price, l500, fibProximity):
		signals = append(signals, signal("Near Fib 0.5", dir, 65))
	}

	if uptrend {
		if within(indicator.Prev(in.Lows, 1), l618, fibProximity) && price > prev && price > l618 {
			signals = append(signals, signal("Fib 0.618 Bounce", core.DirectionBuy, 75))
		}
		if prev <= l236 && price > l236 {
			signals = append(signals, signal("Fib 0.236 Breakout", core.DirectionBuy, 70))
		}
	} else {
		if within(indicator.Prev(in.Highs, 1), l618, fibProximity) && price < prev && price < l618 {
			signals = append(signals, signal("Fib 0.618 Bounce", core.DirectionSell, 75))
		}
		if prev >= l236 && price < l236 {
			signals = append(signals, signal("Fib 0.236 Breakout", core.DirectionSell, 70))
		}
	}

	uptrendFlag := 0.0
	if uptrend {
		uptrendFlag = 1
	}
	return tally(signals, ReducedCap, map[string]float64{
		"swing_high": high,
		"swing_low":  low,
		"fib_0.236":  l236,
		"fib_0.5":    l500,
		"fib_0.618":  l618,
		"uptrend":    uptrendFlag,
	}), nil
}
