package analyzer

import (
	"github.com/newthinker/quorum/internal/core"
	"github.com/newthinker/quorum/internal/indicator"
)

// MACD votes on MACD(12,26,9) crossovers and histogram momentum.
type MACD struct{}

// NewMACD creates the MACD analyzer.
func NewMACD() *MACD {
	return &MACD{}
}

func (m *MACD) Name() string    { return NameMACD }
func (m *MACD) Weight() float64 { return 12 }
func (m *MACD) MinBars() int    { return 35 }

func (m *MACD) Analyze(in Input) (Result, error) {
	line, sig, hist := indicator.MACD(in.Closes, 12, 26, 9)
	cur, prev := indicator.Last(line), indicator.Prev(line, 1)
	curSig, prevSig := indicator.Last(sig), indicator.Prev(sig, 1)
	curHist, prevHist := indicator.Last(hist), indicator.Prev(hist, 1)

	var signals []core.Signal

	if prev <= prevSig && cur > curSig {
		signals = append(signals, signal("MACD Bullish Crossover", core.DirectionBuy, 75))
	}
	if prev >= prevSig && cur < curSig {
		signals = append(signals, signal("MACD Bearish Crossover", core.DirectionSell, 75))
	}

	if prev <= 0 && cur > 0 {
		signals = append(signals, signal("MACD Zero Cross Up", core.DirectionBuy, 65))
	}
	if prev >= 0 && cur < 0 {
		signals = append(signals, signal("MACD Zero Cross Down", core.DirectionSell, 65))
	}

	switch {
	case curHist > prevHist && curHist > 0:
		signals = append(signals, signal("MACD Momentum Up", core.DirectionBuy, 40))
	case curHist < prevHist && curHist < 0:
		signals = append(signals, signal("MACD Momentum Down", core.DirectionSell, 40))
	}

	return tally(signals, DefaultCap, map[string]float64{
		"macd":      cur,
		"signal":    curSig,
		"histogram": curHist,
	}), nil
}
