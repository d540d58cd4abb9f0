package marketdata

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/quorum/internal/core"
)

type stubProvider struct {
	bars  []core.Bar
	err   error
	calls int
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) GetBars(ctx context.Context, symbol, timeframe string, limit int) ([]core.Bar, error) {
	s.calls++
	return s.bars, s.err
}

func fixedNow() time.Time {
	return time.Date(2024, 3, 1, 15, 30, 0, 0, time.UTC)
}

func TestParseTimeframe(t *testing.T) {
	tests := []struct {
		in       string
		name     string
		duration time.Duration
		wantErr  bool
	}{
		{in: "1Day", name: Timeframe1Day, duration: 24 * time.Hour},
		{in: "1d", name: Timeframe1Day, duration: 24 * time.Hour},
		{in: " 1hour ", name: Timeframe1Hour, duration: time.Hour},
		{in: "60m", name: Timeframe1Hour, duration: time.Hour},
		{in: "5Min", name: Timeframe5Min, duration: 5 * time.Minute},
		{in: "1wk", name: Timeframe1Week, duration: 7 * 24 * time.Hour},
		{in: "3Day", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			name, d, err := ParseTimeframe(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, core.ErrConfigInvalid)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.name, name)
			assert.Equal(t, tt.duration, d)
		})
	}
}

func TestLookback(t *testing.T) {
	d, err := Lookback("1Day", 100)
	require.NoError(t, err)
	assert.Equal(t, 160*24*time.Hour, d)

	d, err = Lookback("1Hour", 10)
	require.NoError(t, err)
	assert.Equal(t, 40*time.Hour+96*time.Hour, d)

	_, err = Lookback("bogus", 10)
	assert.Error(t, err)
}

func TestTrim(t *testing.T) {
	bars := []core.Bar{
		{Close: 1, High: 1, Low: 1},
		{Close: 0},
		{Close: 2, High: 2, Low: 2},
		{Close: 3, High: 3, Low: 3},
	}

	got := Trim(bars, 2)
	require.Len(t, got, 2)
	assert.Equal(t, 2.0, got[0].Close)
	assert.Equal(t, 3.0, got[1].Close)

	assert.Len(t, Trim(bars, 0), 3)
	assert.Len(t, bars, 4, "input untouched")
}

func TestGenerate_Deterministic(t *testing.T) {
	end := fixedNow().Truncate(24 * time.Hour)
	a := Generate("AAPL", end, 24*time.Hour, 120)
	b := Generate("aapl", end, 24*time.Hour, 120)
	c := Generate("MSFT", end, 24*time.Hour, 120)

	require.Len(t, a, 120)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a[0].Close, c[0].Close)

	assert.Equal(t, end, a[119].Time)
	assert.Equal(t, end.Add(-119*24*time.Hour), a[0].Time)
	for i, bar := range a {
		assert.True(t, bar.IsValid(), "bar %d", i)
		assert.GreaterOrEqual(t, bar.High, bar.Open)
		assert.GreaterOrEqual(t, bar.High, bar.Close)
		assert.LessOrEqual(t, bar.Low, bar.Open)
		assert.LessOrEqual(t, bar.Low, bar.Close)
		if i > 0 {
			assert.True(t, bar.Time.After(a[i-1].Time))
		}
	}
}

func TestSynthetic_Fetch(t *testing.T) {
	s := NewSynthetic(fixedNow)

	series, err := s.Fetch(context.Background(), "AAPL", "1Day", 10)
	require.NoError(t, err)
	assert.Equal(t, OriginSynthetic, series.Origin)
	assert.Len(t, series.Bars, MinBars, "short requests are padded to the minimum")
	assert.Len(t, series.Closes(), MinBars)

	bars, err := s.GetBars(context.Background(), "AAPL", "1Day", 0)
	require.NoError(t, err)
	assert.Empty(t, bars)

	_, err = s.GetBars(context.Background(), "AAPL", "2Day", 10)
	assert.Error(t, err)
}

func TestLive_Fetch(t *testing.T) {
	ctx := context.Background()
	full := Generate("AAPL", fixedNow(), 24*time.Hour, 80)

	t.Run("enough live bars", func(t *testing.T) {
		p := &stubProvider{bars: full}
		series, err := NewLive(p, NewSynthetic(fixedNow), nil).Fetch(ctx, "AAPL", "1Day", 60)
		require.NoError(t, err)
		assert.Equal(t, OriginLive, series.Origin)
		assert.Len(t, series.Bars, 60)
		assert.Equal(t, full[79], series.Last())
	})

	t.Run("short series falls back", func(t *testing.T) {
		p := &stubProvider{bars: full[:20]}
		series, err := NewLive(p, NewSynthetic(fixedNow), nil).Fetch(ctx, "AAPL", "1Day", 100)
		require.NoError(t, err)
		assert.Equal(t, OriginSynthetic, series.Origin)
		assert.Len(t, series.Bars, 100)
		assert.Contains(t, series.Reason, "20 bars")
	})

	t.Run("provider error falls back", func(t *testing.T) {
		p := &stubProvider{err: errors.New("timeout")}
		series, err := NewLive(p, NewSynthetic(fixedNow), nil).Fetch(ctx, "AAPL", "1Day", 60)
		require.NoError(t, err)
		assert.Equal(t, OriginSynthetic, series.Origin)
		assert.Contains(t, series.Reason, "timeout")
	})

	t.Run("no fallback surfaces errors", func(t *testing.T) {
		_, err := NewLive(&stubProvider{err: errors.New("timeout")}, nil, nil).Fetch(ctx, "AAPL", "1Day", 60)
		assert.ErrorIs(t, err, core.ErrMarketData)

		_, err = NewLive(&stubProvider{bars: full[:10]}, nil, nil).Fetch(ctx, "AAPL", "1Day", 60)
		assert.ErrorIs(t, err, core.ErrInsufficientData)
	})
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register(NewSynthetic(nil))
	r.Register(&stubProvider{})

	p, ok := r.Get("synthetic")
	require.True(t, ok)
	assert.Equal(t, "synthetic", p.Name())

	_, ok = r.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, []string{"stub", "synthetic"}, r.Names())
}
