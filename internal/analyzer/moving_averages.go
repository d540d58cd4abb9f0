package analyzer

import (
	"github.com/newthinker/quorum/internal/core"
	"github.com/newthinker/quorum/internal/indicator"
)

// MovingAverages votes on SMA20/50/200 alignment and crossovers.
type MovingAverages struct{}

// NewMovingAverages creates the moving average analyzer.
func NewMovingAverages() *MovingAverages {
	return &MovingAverages{}
}

func (m *MovingAverages) Name() string    { return NameMovingAverages }
func (m *MovingAverages) Weight() float64 { return 15 }
func (m *MovingAverages) MinBars() int    { return 200 }

func (m *MovingAverages) Analyze(in Input) (Result, error) {
	closes := in.Closes
	sma20 := indicator.SMA(closes, 20)
	sma50 := indicator.SMA(closes, 50)
	sma200 := indicator.SMA(closes, 200)
	ema20 := indicator.EMA(closes, 20)

	price := indicator.Last(closes)
	s20, s50, s200 := indicator.Last(sma20), indicator.Last(sma50), indicator.Last(sma200)
	e20 := indicator.Last(ema20)

	var signals []core.Signal

	// A cross needs a previous SMA200, so one bar beyond its warm-up.
	if len(closes) > 200 {
		prev50, prev200 := indicator.Prev(sma50, 1), indicator.Prev(sma200, 1)
		if prev50 <= prev200 && s50 > s200 {
			signals = append(signals, signal("Golden Cross", core.DirectionBuy, 80))
		}
		if prev50 >= prev200 && s50 < s200 {
			signals = append(signals, signal("Death Cross", core.DirectionSell, 80))
		}
	}

	switch {
	case price > s20 && price > s50 && price > s200:
		signals = append(signals, signal("Price Above All MAs", core.DirectionBuy, 60))
	case price < s20 && price < s50 && price < s200:
		signals = append(signals, signal("Price Below All MAs", core.DirectionSell, 60))
	}

	prevE20, prevS50 := indicator.Prev(ema20, 1), indicator.Prev(sma50, 1)
	if prevE20 <= prevS50 && e20 > s50 {
		signals = append(signals, signal("EMA Bullish Cross", core.DirectionBuy, 50))
	}
	if prevE20 >= prevS50 && e20 < s50 {
		signals = append(signals, signal("EMA Bearish Cross", core.DirectionSell, 50))
	}

	return tally(signals, DefaultCap, map[string]float64{
		"sma20":  s20,
		"sma50":  s50,
		"sma200": s200,
		"ema20":  e20,
	}), nil
}
