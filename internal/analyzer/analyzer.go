// Package analyzer turns price history and news into directional votes.
package analyzer

import (
	"math"

	"github.com/newthinker/quorum/internal/core"
)

// Analyzer names, in canonical evaluation order.
const (
	NameMovingAverages    = "moving_averages"
	NameMACD              = "macd"
	NameSupportResistance = "support_resistance"
	NameRSI               = "rsi"
	NameBollinger         = "bollinger"
	NameCandlestick       = "candlestick_patterns"
	NameVolume            = "volume"
	NameFibonacci         = "fibonacci"
	NameTrendStrength     = "trend_strength"
	NameSentiment         = "market_sentiment"
)

// Confidence caps for tally.
const (
	DefaultCap = 90
	ReducedCap = 85
)

// Fallback values substituted for a failed analyzer.
const (
	FallbackConfidence = 70
	NeutralConfidence  = 50
)

// Input is the read-only data handed to every analyzer.
type Input struct {
	Symbol  string
	Bars    []core.Bar
	Opens   []float64
	Highs   []float64
	Lows    []float64
	Closes  []float64
	Volumes []float64
	News    []core.NewsItem
}

// NewInput splits bars into per-field series.
func NewInput(symbol string, bars []core.Bar, news []core.NewsItem) Input {
	in := Input{
		Symbol:  symbol,
		Bars:    bars,
		Opens:   make([]float64, len(bars)),
		Highs:   make([]float64, len(bars)),
		Lows:    make([]float64, len(bars)),
		Closes:  make([]float64, len(bars)),
		Volumes: make([]float64, len(bars)),
		News:    news,
	}
	for i, b := range bars {
		in.Opens[i] = b.Open
		in.Highs[i] = b.High
		in.Lows[i] = b.Low
		in.Closes[i] = b.Close
		in.Volumes[i] = b.Volume
	}
	return in
}

// Len returns the number of bars.
func (in Input) Len() int {
	return len(in.Closes)
}

// Result is one analyzer's verdict.
type Result struct {
	Direction  core.Direction     `json:"direction"`
	Confidence int                `json:"confidence"`
	Signals    []core.Signal      `json:"signals"`
	Values     map[string]float64 `json:"values,omitempty"`
}

// Valid reports whether the result is well formed.
func (r Result) Valid() bool {
	return r.Direction.IsValid() && r.Confidence >= 50 && r.Confidence <= 100
}

// Fallback is substituted when an analyzer fails.
func Fallback() Result {
	return Result{Direction: core.DirectionNeutral, Confidence: FallbackConfidence}
}

// Skipped is recorded for an analyzer that lacked history.
func Skipped(have, need int) Result {
	return Result{
		Direction:  core.DirectionNeutral,
		Confidence: NeutralConfidence,
		Values: map[string]float64{
			"skipped":  1,
			"bars":     float64(have),
			"min_bars": float64(need),
		},
	}
}

// Analyzer evaluates one family of technical or fundamental signals.
type Analyzer interface {
	Name() string
	Weight() float64
	MinBars() int
	Analyze(in Input) (Result, error)
}

// tally sums signal strengths per side and converts the net into a
// confidence in [50, ceiling].
func tally(signals []core.Signal, ceiling int, values map[string]float64) Result {
	var buy, sell float64
	for _, s := range signals {
		switch s.Direction {
		case core.DirectionBuy:
			buy += s.Strength
		case core.DirectionSell:
			sell += s.Strength
		}
	}

	res := Result{
		Direction:  core.DirectionNeutral,
		Confidence: NeutralConfidence,
		Signals:    signals,
		Values:     values,
	}
	switch {
	case buy > sell:
		res.Direction = core.DirectionBuy
		res.Confidence = confidence(buy-sell, ceiling)
	case sell > buy:
		res.Direction = core.DirectionSell
		res.Confidence = confidence(sell-buy, ceiling)
	}
	return res
}

func confidence(net float64, ceiling int) int {
	c := 50 + int(math.Round(net/2))
	if c > ceiling {
		return ceiling
	}
	return c
}

func signal(name string, d core.Direction, strength float64) core.Signal {
	return core.Signal{Name: name, Direction: d, Strength: strength}
}

func within(a, b, tolerance float64) bool {
	if b == 0 {
		return false
	}
	return math.Abs(a-b)/math.Abs(b) <= tolerance
}
