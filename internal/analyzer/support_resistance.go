package analyzer

import (
	"math"

	"github.com/newthinker/quorum/internal/core"
	"github.com/newthinker/quorum/internal/indicator"
)

const (
	extremaWindow    = 5
	levelTolerance   = 0.005
	levelProximity   = 0.01
	strongLevelTouch = 3
)

// level is a price zone confirmed by one or more swing extrema.
type level struct {
	price   float64
	touches int
}

// SupportResistance votes on proximity to, and breaks of, swing levels.
type SupportResistance struct{}

// NewSupportResistance creates the support/resistance analyzer.
func NewSupportResistance() *SupportResistance {
	return &SupportResistance{}
}

func (s *SupportResistance) Name() string    { return NameSupportResistance }
func (s *SupportResistance) Weight() float64 { return 12 }
func (s *SupportResistance) MinBars() int    { return 30 }

func (s *SupportResistance) Analyze(in Input) (Result, error) {
	supports, resistances := findLevels(in.Highs, in.Lows)
	price, prev := indicator.Last(in.Closes), indicator.Prev(in.Closes, 1)

	var signals []core.Signal

	if l, ok := strongestNear(supports, price); ok {
		signals = append(signals, signal("Near Strong Support", core.DirectionBuy, 60+5*float64(l.touches)))
	}
	if l, ok := strongestNear(resistances, price); ok {
		signals = append(signals, signal("Near Strong Resistance", core.DirectionSell, 60+5*float64(l.touches)))
	}

	if r, ok := nearestAtOrAbove(resistances, prev); ok && price > r.price {
		signals = append(signals, signal("Resistance Breakout", core.DirectionBuy, 80))
	}
	if sup, ok := nearestAtOrBelow(supports, prev); ok && price < sup.price {
		signals = append(signals, signal("Support Breakdown", core.DirectionSell, 80))
	}

	values := map[string]float64{
		"support_levels":    float64(len(supports)),
		"resistance_levels": float64(len(resistances)),
	}
	if sup, ok := nearestAtOrBelow(supports, price); ok {
		values["nearest_support"] = sup.price
	}
	if r, ok := nearestAtOrAbove(resistances, price); ok {
		values["nearest_resistance"] = r.price
	}

	return tally(signals, DefaultCap, values), nil
}

// findLevels collects swing highs and lows that dominate extremaWindow bars
// on each side and merges those within levelTolerance of each other. Only the
// first bar of a plateau of equal extremes counts as a touch.
func findLevels(highs, lows []float64) (supports, resistances []level) {
	n := len(highs)
	for i := extremaWindow; i < n-extremaWindow; i++ {
		isHigh, isLow := true, true
		for j := i - extremaWindow; j < i; j++ {
			if highs[j] >= highs[i] {
				isHigh = false
			}
			if lows[j] <= lows[i] {
				isLow = false
			}
		}
		for j := i + 1; j <= i+extremaWindow; j++ {
			if highs[j] > highs[i] {
				isHigh = false
			}
			if lows[j] < lows[i] {
				isLow = false
			}
		}
		if isHigh {
			resistances = mergeLevel(resistances, highs[i])
		}
		if isLow {
			supports = mergeLevel(supports, lows[i])
		}
	}
	return supports, resistances
}

func mergeLevel(levels []level, price float64) []level {
	for i := range levels {
		if within(price, levels[i].price, levelTolerance) {
			t := float64(levels[i].touches)
			levels[i].price = (levels[i].price*t + price) / (t + 1)
			levels[i].touches++
			return levels
		}
	}
	return append(levels, level{price: price, touches: 1})
}

func strongestNear(levels []level, price float64) (level, bool) {
	var best level
	found := false
	for _, l := range levels {
		if l.touches < strongLevelTouch || l.price <= 0 {
			continue
		}
		if math.Abs(price-l.price)/l.price >= levelProximity {
			continue
		}
		if !found || l.touches > best.touches {
			best, found = l, true
		}
	}
	return best, found
}

func nearestAtOrAbove(levels []level, price float64) (level, bool) {
	var best level
	found := false
	for _, l := range levels {
		if l.price >= price && (!found || l.price < best.price) {
			best, found = l, true
		}
	}
	return best, found
}

func nearestAtOrBelow(levels []level, price float64) (level, bool) {
	var best level
	found := false
	for _, l := range levels {
		if l.price <= price && (!found || l.price > best.price) {
			best, found = l, true
		}
	}
	return best, found
}
