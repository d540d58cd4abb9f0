// Package consensus folds weighted analyzer verdicts into one decision.
package consensus

import (
	"math"
	"time"

	"github.com/newthinker/quorum/internal/analyzer"
	"github.com/newthinker/quorum/internal/core"
)

// Margin is how far one side's score must lead the other.
const Margin = 0.10

// scores are compared with a small epsilon so a lead of exactly Margin
// stays NEUTRAL despite float rounding.
const epsilon = 1e-9

// DangerSignal is an extreme condition that can force a position closed.
type DangerSignal struct {
	Name       string  `json:"name"`
	Analyzer   string  `json:"analyzer"`
	Strength   float64 `json:"strength"`
	Importance int     `json:"importance"`
}

// Report is the consensus for one symbol at one evaluation.
type Report struct {
	Symbol        string              `json:"symbol"`
	Price         float64             `json:"price"`
	Timestamp     time.Time           `json:"timestamp"`
	Direction     core.Direction      `json:"direction"`
	Confidence    int                 `json:"confidence"`
	BuyScore      float64             `json:"buyScore"`
	SellScore     float64             `json:"sellScore"`
	Analyses      []analyzer.Analysis `json:"analyses"`
	DangerSignals []DangerSignal      `json:"dangerSignals,omitempty"`
}

// MaxDangerImportance returns the highest danger importance, or 0.
func (r Report) MaxDangerImportance() int {
	top := 0
	for _, d := range r.DangerSignals {
		if d.Importance > top {
			top = d.Importance
		}
	}
	return top
}

// Evaluate builds the report for a symbol from its analyses.
func Evaluate(symbol string, price float64, ts time.Time, analyses []analyzer.Analysis) Report {
	dir, conf, buy, sell := Score(analyses)
	return Report{
		Symbol:        symbol,
		Price:         price,
		Timestamp:     ts,
		Direction:     dir,
		Confidence:    conf,
		BuyScore:      buy,
		SellScore:     sell,
		Analyses:      analyses,
		DangerSignals: Dangers(analyses),
	}
}

// Score computes weight-normalized buy and sell scores and the resulting
// direction and confidence.
func Score(analyses []analyzer.Analysis) (core.Direction, int, float64, float64) {
	var buy, sell, total float64
	for _, a := range analyses {
		if a.Weight <= 0 {
			continue
		}
		total += a.Weight
		contribution := a.Weight * float64(a.Result.Confidence) / 100
		switch a.Result.Direction {
		case core.DirectionBuy:
			buy += contribution
		case core.DirectionSell:
			sell += contribution
		}
	}
	if total == 0 {
		return core.DirectionNeutral, 50, 0, 0
	}
	buy /= total
	sell /= total

	switch {
	case buy-sell > Margin+epsilon:
		return core.DirectionBuy, clamp(int(math.Round(buy * 100))), buy, sell
	case sell-buy > Margin+epsilon:
		return core.DirectionSell, clamp(int(math.Round(sell * 100))), buy, sell
	}
	return core.DirectionNeutral, 50, buy, sell
}

func clamp(c int) int {
	switch {
	case c < 50:
		return 50
	case c > 100:
		return 100
	}
	return c
}

type dangerRule struct {
	analyzer    string
	signals     []string
	minStrength float64
	importance  int
}

var dangerRules = []dangerRule{
	{
		analyzer:    analyzer.NameBollinger,
		signals:     []string{analyzer.SignalAboveUpperBand, analyzer.SignalBelowLowerBand},
		minStrength: 70,
		importance:  8,
	},
	{
		analyzer:    analyzer.NameRSI,
		signals:     []string{analyzer.SignalRSIOverbought, analyzer.SignalRSIOversold},
		minStrength: 75,
		importance:  7,
	},
	{
		analyzer:    analyzer.NameVolume,
		signals:     []string{analyzer.SignalVolumeClimax},
		minStrength: 70,
		importance:  9,
	},
}

// Dangers extracts danger signals regardless of the consensus direction.
func Dangers(analyses []analyzer.Analysis) []DangerSignal {
	var out []DangerSignal
	for _, a := range analyses {
		for _, rule := range dangerRules {
			if rule.analyzer != a.Name {
				continue
			}
			for _, s := range a.Result.Signals {
				if s.Strength >= rule.minStrength && contains(rule.signals, s.Name) {
					out = append(out, DangerSignal{
						Name:       s.Name,
						Analyzer:   a.Name,
						Strength:   s.Strength,
						Importance: rule.importance,
					})
				}
			}
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
