package analyzer

import (
	"math/rand"
	"time"

	"github.com/newthinker/quorum/internal/core"
)

var testStart = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

// barsFromCloses builds flat candles (open = previous close) with a fixed
// half-point range and constant volume.
func barsFromCloses(closes []float64) []core.Bar {
	bars := make([]core.Bar, len(closes))
	for i, c := range closes {
		open := c
		if i > 0 {
			open = closes[i-1]
		}
		hi, lo := c, open
		if open > c {
			hi, lo = open, c
		}
		bars[i] = core.Bar{
			Time:   testStart.AddDate(0, 0, i),
			Open:   open,
			High:   hi + 0.5,
			Low:    lo - 0.5,
			Close:  c,
			Volume: 1000,
		}
	}
	return bars
}

// pointBars builds candles whose open, high, low and close are all equal.
func pointBars(closes []float64) []core.Bar {
	bars := make([]core.Bar, len(closes))
	for i, c := range closes {
		bars[i] = core.Bar{Time: testStart.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 1000}
	}
	return bars
}

func inputFromCloses(closes []float64) Input {
	return NewInput("TEST", barsFromCloses(closes), nil)
}

func randomWalk(seed int64, n int) []core.Bar {
	rng := rand.New(rand.NewSource(seed))
	bars := make([]core.Bar, n)
	price := 100.0
	for i := range bars {
		open := price
		price *= 1 + (rng.Float64()-0.5)*0.06
		hi := max(open, price) * (1 + rng.Float64()*0.01)
		lo := min(open, price) * (1 - rng.Float64()*0.01)
		bars[i] = core.Bar{
			Time:   testStart.AddDate(0, 0, i),
			Open:   open,
			High:   hi,
			Low:    lo,
			Close:  price,
			Volume: 500 + rng.Float64()*2000,
		}
	}
	return bars
}

func findSignal(res Result, name string) (core.Signal, bool) {
	for _, s := range res.Signals {
		if s.Name == name {
			return s, true
		}
	}
	return core.Signal{}, false
}
