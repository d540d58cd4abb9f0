package analyzer

import (
	"testing"

	"github.com/newthinker/quorum/internal/core"
	"github.com/stretchr/testify/assert"
)

func TestNewInput_SplitsSeries(t *testing.T) {
	bars := barsFromCloses([]float64{10, 11, 12})
	in := NewInput("AAPL", bars, nil)

	assert.Equal(t, 3, in.Len())
	assert.Equal(t, []float64{10, 11, 12}, in.Closes)
	assert.Equal(t, []float64{10, 10, 11}, in.Opens)
	assert.Equal(t, 12.5, in.Highs[2])
	assert.Equal(t, 1000.0, in.Volumes[1])
}

func TestTally(t *testing.T) {
	tests := []struct {
		name    string
		signals []core.Signal
		cap     int
		wantDir core.Direction
		want    int
	}{
		{"no signals", nil, DefaultCap, core.DirectionNeutral, 50},
		{"single buy", []core.Signal{signal("a", core.DirectionBuy, 60)}, DefaultCap, core.DirectionBuy, 80},
		{"net sell", []core.Signal{
			signal("a", core.DirectionBuy, 40),
			signal("b", core.DirectionSell, 75),
		}, DefaultCap, core.DirectionSell, 68},
		{"tie", []core.Signal{
			signal("a", core.DirectionBuy, 65),
			signal("b", core.DirectionSell, 65),
		}, DefaultCap, core.DirectionNeutral, 50},
		{"neutral signals ignored", []core.Signal{signal("doji", core.DirectionNeutral, 30)}, ReducedCap, core.DirectionNeutral, 50},
		{"default cap", []core.Signal{
			signal("a", core.DirectionBuy, 80),
			signal("b", core.DirectionBuy, 60),
		}, DefaultCap, core.DirectionBuy, 90},
		{"reduced cap", []core.Signal{signal("a", core.DirectionSell, 80)}, ReducedCap, core.DirectionSell, 85},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := tally(tt.signals, tt.cap, nil)
			assert.Equal(t, tt.wantDir, res.Direction)
			assert.Equal(t, tt.want, res.Confidence)
			assert.True(t, res.Valid())
		})
	}
}

func TestResult_Valid(t *testing.T) {
	assert.True(t, Fallback().Valid())
	assert.True(t, Skipped(10, 200).Valid())
	assert.False(t, Result{Direction: core.DirectionBuy, Confidence: 49}.Valid())
	assert.False(t, Result{Direction: core.DirectionBuy, Confidence: 101}.Valid())
	assert.False(t, Result{Direction: "UP", Confidence: 60}.Valid())
}

func TestAnalyzers_WeightsSumToHundred(t *testing.T) {
	var total float64
	for _, a := range Default(nil).Analyzers() {
		total += a.Weight()
	}
	assert.Equal(t, 100.0, total)
}

func TestAnalyzers_ConfidenceAlwaysInRange(t *testing.T) {
	engine := Default(nil)
	for seed := int64(1); seed <= 25; seed++ {
		bars := randomWalk(seed, 260)
		for _, n := range []int{5, 30, 60, 210, 260} {
			for _, a := range engine.Analyzers() {
				if n < a.MinBars() {
					continue
				}
				res, err := a.Analyze(NewInput("RND", bars[:n], nil))
				assert.NoError(t, err)
				assert.True(t, res.Valid(), "%s seed=%d n=%d got %+v", a.Name(), seed, n, res)
				assert.GreaterOrEqual(t, res.Confidence, 50)
			}
		}
	}
}

func TestAnalyzers_Idempotent(t *testing.T) {
	in := NewInput("RND", randomWalk(7, 240), nil)
	for _, a := range Default(nil).Analyzers() {
		first, err := a.Analyze(in)
		assert.NoError(t, err)
		second, err := a.Analyze(in)
		assert.NoError(t, err)
		assert.Equal(t, first, second, a.Name())
	}
}
