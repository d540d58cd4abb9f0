package consensus

import (
	"context"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/newthinker/quorum/internal/analyzer"
	"github.com/newthinker/quorum/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vote(name string, weight float64, dir core.Direction, conf int, signals ...core.Signal) analyzer.Analysis {
	return analyzer.Analysis{
		Name:   name,
		Weight: weight,
		Result: analyzer.Result{Direction: dir, Confidence: conf, Signals: signals},
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name     string
		analyses []analyzer.Analysis
		wantDir  core.Direction
		want     int
	}{
		{
			name:    "empty",
			wantDir: core.DirectionNeutral, want: 50,
		},
		{
			name: "unanimous buy",
			analyses: []analyzer.Analysis{
				vote("a", 60, core.DirectionBuy, 80),
				vote("b", 40, core.DirectionBuy, 70),
			},
			wantDir: core.DirectionBuy, want: 76,
		},
		{
			name: "lead of exactly the margin stays neutral",
			analyses: []analyzer.Analysis{
				vote("a", 50, core.DirectionBuy, 70),
				vote("b", 50, core.DirectionSell, 50),
			},
			wantDir: core.DirectionNeutral, want: 50,
		},
		{
			name: "sell lead below fifty clamps up",
			analyses: []analyzer.Analysis{
				vote("a", 30, core.DirectionSell, 80),
				vote("b", 70, core.DirectionNeutral, 50),
			},
			wantDir: core.DirectionSell, want: 50,
		},
		{
			name: "neutral votes dilute",
			analyses: []analyzer.Analysis{
				vote("a", 15, core.DirectionBuy, 90),
				vote("b", 85, core.DirectionNeutral, 70),
			},
			wantDir: core.DirectionBuy, want: 50,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir, conf, _, _ := Score(tt.analyses)
			assert.Equal(t, tt.wantDir, dir)
			assert.Equal(t, tt.want, conf)
		})
	}
}

func TestScore_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	dirs := []core.Direction{core.DirectionBuy, core.DirectionSell, core.DirectionNeutral}

	for i := 0; i < 2000; i++ {
		n := 1 + rng.Intn(10)
		analyses := make([]analyzer.Analysis, n)
		for j := range analyses {
			analyses[j] = vote("x", 1+float64(rng.Intn(15)), dirs[rng.Intn(3)], 50+rng.Intn(51))
		}

		dir, conf, buy, sell := Score(analyses)
		assert.GreaterOrEqual(t, conf, 50)
		assert.LessOrEqual(t, conf, 100)
		if math.Abs(buy-sell) <= Margin {
			assert.Equal(t, core.DirectionNeutral, dir, "buy=%f sell=%f", buy, sell)
			assert.Equal(t, 50, conf)
		}

		again, againConf, _, _ := Score(analyses)
		assert.Equal(t, dir, again)
		assert.Equal(t, conf, againConf)
	}
}

func TestDangers(t *testing.T) {
	analyses := []analyzer.Analysis{
		vote(analyzer.NameBollinger, 10, core.DirectionSell, 88,
			core.Signal{Name: analyzer.SignalAboveUpperBand, Direction: core.DirectionSell, Strength: 75}),
		vote(analyzer.NameRSI, 10, core.DirectionSell, 86,
			core.Signal{Name: analyzer.SignalRSIOverbought, Direction: core.DirectionSell, Strength: 74}),
		vote(analyzer.NameVolume, 8, core.DirectionBuy, 85,
			core.Signal{Name: analyzer.SignalVolumeClimax, Direction: core.DirectionBuy, Strength: 70}),
		// a matching name from the wrong analyzer does not count
		vote(analyzer.NameMACD, 12, core.DirectionSell, 88,
			core.Signal{Name: analyzer.SignalAboveUpperBand, Direction: core.DirectionSell, Strength: 90}),
	}

	dangers := Dangers(analyses)
	require.Len(t, dangers, 2)
	assert.Equal(t, analyzer.SignalAboveUpperBand, dangers[0].Name)
	assert.Equal(t, 8, dangers[0].Importance)
	assert.Equal(t, analyzer.SignalVolumeClimax, dangers[1].Name)
	assert.Equal(t, 9, dangers[1].Importance)

	report := Evaluate("AAPL", 100, time.Now(), analyses)
	assert.Equal(t, 9, report.MaxDangerImportance())
}

func TestDangers_RSIThreshold(t *testing.T) {
	analyses := []analyzer.Analysis{
		vote(analyzer.NameRSI, 10, core.DirectionBuy, 90,
			core.Signal{Name: analyzer.SignalRSIOversold, Direction: core.DirectionBuy, Strength: 75}),
	}
	dangers := Dangers(analyses)
	require.Len(t, dangers, 1)
	assert.Equal(t, 7, dangers[0].Importance)
}

func TestEvaluate_Report(t *testing.T) {
	ts := time.Date(2024, 5, 1, 15, 0, 0, 0, time.UTC)
	report := Evaluate("MSFT", 412.5, ts, []analyzer.Analysis{
		vote("a", 1, core.DirectionSell, 80),
	})

	assert.Equal(t, "MSFT", report.Symbol)
	assert.Equal(t, 412.5, report.Price)
	assert.Equal(t, ts, report.Timestamp)
	assert.Equal(t, core.DirectionSell, report.Direction)
	assert.Equal(t, 80, report.Confidence)
	assert.Empty(t, report.DangerSignals)
	assert.Equal(t, 0, report.MaxDangerImportance())
}

func TestEvaluate_OversoldSeriesEndToEnd(t *testing.T) {
	closes := make([]float64, 0, 43)
	for i := 0; i < 40; i++ {
		closes = append(closes, 100+0.5*math.Pow(-1, float64(i)))
	}
	for i := 1; i <= 3; i++ {
		closes = append(closes, 99.5-10*float64(i))
	}
	bars := make([]core.Bar, len(closes))
	for i, c := range closes {
		bars[i] = core.Bar{Open: c, High: c + 0.5, Low: c - 0.5, Close: c, Volume: 1000}
	}

	engine := analyzer.NewEngine(nil, analyzer.NewRSI())
	analyses, err := engine.Run(context.Background(), analyzer.NewInput("TEST", bars, nil))
	require.NoError(t, err)

	report := Evaluate("TEST", closes[len(closes)-1], time.Now(), analyses)
	assert.Equal(t, core.DirectionBuy, report.Direction)
	assert.Equal(t, 90, report.Confidence)
	require.NotEmpty(t, report.DangerSignals)
	assert.Equal(t, analyzer.SignalRSIOversold, report.DangerSignals[0].Name)
	assert.Equal(t, 7, report.MaxDangerImportance())
}
