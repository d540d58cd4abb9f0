package risk

import (
	"github.com/newthinker/quorum/internal/core"
	"github.com/newthinker/quorum/internal/indicator"
)

// LevelWindow is how many recent prices define the swing.
const LevelWindow = 20

// Fallback offsets used when no Fibonacci level brackets the price.
const (
	fallbackLongStop    = 0.98
	fallbackLongTarget  = 1.05
	fallbackShortStop   = 1.02
	fallbackShortTarget = 0.95
)

// Levels returns stop-loss and take-profit prices for a trade. Candidate
// levels are the Fibonacci retracements and extensions of the last
// LevelWindow history prices, with the trend taken from the direction.
func Levels(direction core.Direction, price float64, history []float64) (stopLoss, takeProfit float64) {
	support, resistance, ok := bracket(direction, price, history)

	if direction == core.DirectionSell {
		stopLoss, takeProfit = price*fallbackShortStop, price*fallbackShortTarget
		if ok.resistance {
			stopLoss = resistance
		}
		if ok.support {
			takeProfit = support
		}
		return stopLoss, takeProfit
	}

	stopLoss, takeProfit = price*fallbackLongStop, price*fallbackLongTarget
	if ok.support {
		stopLoss = support
	}
	if ok.resistance {
		takeProfit = resistance
	}
	return stopLoss, takeProfit
}

type found struct {
	support    bool
	resistance bool
}

// bracket finds the nearest level strictly below and strictly above price.
func bracket(direction core.Direction, price float64, history []float64) (support, resistance float64, ok found) {
	if len(history) > LevelWindow {
		history = history[len(history)-LevelWindow:]
	}
	if len(history) < 2 || price <= 0 {
		return 0, 0, ok
	}
	high, low := indicator.Highest(history), indicator.Lowest(history)
	if high <= low {
		return 0, 0, ok
	}

	uptrend := direction == core.DirectionBuy
	candidates := append(indicator.FibonacciLevels(high, low, uptrend),
		indicator.FibonacciExtensions(high, low, uptrend)...)

	for _, l := range candidates {
		switch {
		case l.Price < price && (!ok.support || l.Price > support):
			support, ok.support = l.Price, true
		case l.Price > price && (!ok.resistance || l.Price < resistance):
			resistance, ok.resistance = l.Price, true
		}
	}
	return support, resistance, ok
}
