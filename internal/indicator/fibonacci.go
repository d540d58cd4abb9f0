package indicator

// RetracementRatios are the standard Fibonacci retracement ratios.
var RetracementRatios = []float64{0, 0.236, 0.382, 0.5, 0.618, 0.786, 1}

// ExtensionRatios project beyond the swing range.
var ExtensionRatios = []float64{1.272, 1.618}

// Level is one Fibonacci ratio and its price.
type Level struct {
	Ratio float64
	Price float64
}

// FibonacciLevels returns retracement levels over a swing, ordered by ratio.
// In an uptrend the levels retrace down from high; in a downtrend they
// retrace up from low. All levels lie within [low, high].
func FibonacciLevels(high, low float64, isUptrend bool) []Level {
	return levels(high, low, isUptrend, RetracementRatios)
}

// FibonacciExtensions returns the extension levels past the swing in the
// trend direction: above high in an uptrend, below low in a downtrend.
func FibonacciExtensions(high, low float64, isUptrend bool) []Level {
	rng := high - low
	out := make([]Level, 0, len(ExtensionRatios))
	for _, r := range ExtensionRatios {
		price := low - rng*(r-1)
		if isUptrend {
			price = high + rng*(r-1)
		}
		out = append(out, Level{Ratio: r, Price: price})
	}
	return out
}

// LevelAt returns the price of ratio r, and false when r is not a
// retracement ratio.
func LevelAt(levels []Level, r float64) (float64, bool) {
	for _, l := range levels {
		if l.Ratio == r {
			return l.Price, true
		}
	}
	return 0, false
}

func levels(high, low float64, isUptrend bool, ratios []float64) []Level {
	rng := high - low
	out := make([]Level, 0, len(ratios))
	for _, r := range ratios {
		price := low + rng*r
		if isUptrend {
			price = high - rng*r
		}
		out = append(out, Level{Ratio: r, Price: price})
	}
	return out
}
