package marketdata

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"github.com/newthinker/quorum/internal/core"
)

// Synthetic generates a deterministic random walk per symbol.
// The same symbol, timeframe, limit and clock always produce the same bars.
type Synthetic struct {
	now func() time.Time
}

// NewSynthetic creates a synthetic provider. A nil clock uses time.Now.
func NewSynthetic(now func() time.Time) *Synthetic {
	if now == nil {
		now = time.Now
	}
	return &Synthetic{now: now}
}

// Name returns the provider identifier.
func (s *Synthetic) Name() string {
	return "synthetic"
}

// GetBars generates limit bars ending at the current bar boundary.
func (s *Synthetic) GetBars(ctx context.Context, symbol, timeframe string, limit int) ([]core.Bar, error) {
	_, step, err := ParseTimeframe(timeframe)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}
	return Generate(symbol, s.now().Truncate(step), step, limit), nil
}

// Fetch implements DataSource.
func (s *Synthetic) Fetch(ctx context.Context, symbol, timeframe string, limit int) (Series, error) {
	if limit < MinBars {
		limit = MinBars
	}
	bars, err := s.GetBars(ctx, symbol, timeframe, limit)
	if err != nil {
		return Series{}, err
	}
	return Series{Symbol: symbol, Bars: bars, Origin: OriginSynthetic}, nil
}

// Seed derives the generator seed for a symbol.
func Seed(symbol string) int64 {
	h := fnv.New64a()
	h.Write([]byte(core.NormalizeSymbol(symbol)))
	return int64(h.Sum64() & math.MaxInt64)
}

// Generate builds n bars spaced by step whose last bar opens at end.
func Generate(symbol string, end time.Time, step time.Duration, n int) []core.Bar {
	seed := Seed(symbol)
	rng := rand.New(rand.NewSource(seed))

	price := 20 + float64(seed%480)
	start := end.Add(-time.Duration(n-1) * step)

	bars := make([]core.Bar, n)
	for i := 0; i < n; i++ {
		open := price
		ret := 0.0003 + rng.NormFloat64()*0.015
		closePrice := math.Max(open*(1+ret), 0.01)
		high := math.Max(open, closePrice) * (1 + math.Abs(rng.NormFloat64())*0.005)
		low := math.Min(open, closePrice) * (1 - math.Abs(rng.NormFloat64())*0.005)

		bars[i] = core.Bar{
			Time:   start.Add(time.Duration(i) * step),
			Open:   round2(open),
			High:   round2(high),
			Low:    round2(low),
			Close:  round2(closePrice),
			Volume: math.Round(1_000_000 * (0.5 + rng.Float64())),
		}
		price = closePrice
	}
	return bars
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
