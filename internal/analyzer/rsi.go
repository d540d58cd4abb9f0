package analyzer

import (
	"github.com/newthinker/quorum/internal/core"
	"github.com/newthinker/quorum/internal/indicator"
)

// RSI signal names, shared with danger detection.
const (
	SignalRSIOversold   = "RSI Oversold"
	SignalRSIOverbought = "RSI Overbought"
)

const (
	rsiPeriod     = 14
	rsiOversold   = 30.0
	rsiOverbought = 70.0
	rsiDivergence = 5
)

// RSI votes on RSI(14) extremes, boundary crosses and divergence.
type RSI struct{}

// NewRSI creates the RSI analyzer.
func NewRSI() *RSI {
	return &RSI{}
}

func (r *RSI) Name() string    { return NameRSI }
func (r *RSI) Weight() float64 { return 10 }
func (r *RSI) MinBars() int    { return 20 }

func (r *RSI) Analyze(in Input) (Result, error) {
	closes := in.Closes
	rsi := indicator.RSI(closes, rsiPeriod)
	cur, prev := indicator.Last(rsi), indicator.Prev(rsi, 1)

	var signals []core.Signal

	switch {
	case cur < rsiOversold:
		signals = append(signals, signal(SignalRSIOversold, core.DirectionBuy, 70+2*(rsiOversold-cur)))
	case cur > rsiOverbought:
		signals = append(signals, signal(SignalRSIOverbought, core.DirectionSell, 70+2*(cur-rsiOverbought)))
	}

	if prev < rsiOversold && cur >= rsiOversold {
		signals = append(signals, signal("RSI Bullish Cross", core.DirectionBuy, 60))
	}
	if prev > rsiOverbought && cur <= rsiOverbought {
		signals = append(signals, signal("RSI Bearish Cross", core.DirectionSell, 60))
	}

	price, pastPrice := indicator.Last(closes), indicator.Prev(closes, rsiDivergence)
	pastRSI := indicator.Prev(rsi, rsiDivergence)
	if price < pastPrice && cur > pastRSI {
		signals = append(signals, signal("Bullish Divergence", core.DirectionBuy, 75))
	}
	if price > pastPrice && cur < pastRSI {
		signals = append(signals, signal("Bearish Divergence", core.DirectionSell, 75))
	}

	return tally(signals, DefaultCap, map[string]float64{"rsi": cur}), nil
}
