// Package marketdata supplies OHLCV bars to the evaluation loop.
package marketdata

import (
	"context"
	"strings"
	"time"

	"github.com/newthinker/quorum/internal/core"
)

// MinBars is the shortest series the analyzers accept before synthetic
// bars are substituted.
const MinBars = 50

// Provider defines the interface for bar providers.
type Provider interface {
	Name() string

	// GetBars returns up to limit bars ending at the latest available bar,
	// oldest first. Providers may return fewer bars than requested.
	GetBars(ctx context.Context, symbol, timeframe string, limit int) ([]core.Bar, error)
}

// Origin tells where a series came from.
type Origin string

const (
	OriginLive      Origin = "live"
	OriginSynthetic Origin = "synthetic"
)

// Series is a bar sequence tagged with its origin.
type Series struct {
	Symbol string
	Bars   []core.Bar
	Origin Origin
	// Reason is set when a live fetch was replaced by synthetic bars.
	Reason string
}

// Closes returns the close prices of the series.
func (s Series) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// Last returns the newest bar, or a zero bar for an empty series.
func (s Series) Last() core.Bar {
	if len(s.Bars) == 0 {
		return core.Bar{}
	}
	return s.Bars[len(s.Bars)-1]
}

// DataSource fetches a series for one evaluation.
type DataSource interface {
	Fetch(ctx context.Context, symbol, timeframe string, limit int) (Series, error)
}

// Timeframe names accepted by the providers.
const (
	Timeframe1Min  = "1Min"
	Timeframe5Min  = "5Min"
	Timeframe15Min = "15Min"
	Timeframe1Hour = "1Hour"
	Timeframe1Day  = "1Day"
	Timeframe1Week = "1Week"
)

var timeframes = map[string]time.Duration{
	"1min":  time.Minute,
	"5min":  5 * time.Minute,
	"15min": 15 * time.Minute,
	"1hour": time.Hour,
	"1day":  24 * time.Hour,
	"1week": 7 * 24 * time.Hour,
}

var timeframeAliases = map[string]string{
	"1m":  "1min",
	"5m":  "5min",
	"15m": "15min",
	"1h":  "1hour",
	"60m": "1hour",
	"1d":  "1day",
	"1w":  "1week",
	"1wk": "1week",
}

// ParseTimeframe returns the canonical name and bar duration of a timeframe.
// Names are matched case-insensitively and short aliases such as "1d" are accepted.
func ParseTimeframe(tf string) (string, time.Duration, error) {
	key := strings.ToLower(strings.TrimSpace(tf))
	if alias, ok := timeframeAliases[key]; ok {
		key = alias
	}
	d, ok := timeframes[key]
	if !ok {
		return "", 0, core.Wrapf(core.ErrConfigInvalid, "unknown timeframe %q", tf)
	}
	return canonical(key), d, nil
}

func canonical(key string) string {
	switch key {
	case "1min":
		return Timeframe1Min
	case "5min":
		return Timeframe5Min
	case "15min":
		return Timeframe15Min
	case "1hour":
		return Timeframe1Hour
	case "1week":
		return Timeframe1Week
	}
	return Timeframe1Day
}

// Lookback returns how far back a provider must query to cover limit bars.
// Daily and weekly bars are padded for weekends and holidays, intraday bars
// for overnight gaps.
func Lookback(tf string, limit int) (time.Duration, error) {
	name, d, err := ParseTimeframe(tf)
	if err != nil {
		return 0, err
	}
	span := time.Duration(limit) * d
	switch name {
	case Timeframe1Day:
		return span*3/2 + 10*24*time.Hour, nil
	case Timeframe1Week:
		return span + 14*24*time.Hour, nil
	}
	return span*4 + 4*24*time.Hour, nil
}

// Trim keeps the newest limit valid bars, oldest first.
func Trim(bars []core.Bar, limit int) []core.Bar {
	valid := bars[:0:0]
	for _, b := range bars {
		if b.IsValid() {
			valid = append(valid, b)
		}
	}
	if limit > 0 && len(valid) > limit {
		valid = valid[len(valid)-limit:]
	}
	return valid
}

func insufficient(symbol string, have int) error {
	return core.Wrapf(core.ErrInsufficientData, "%s: %d bars, need %d", symbol, have, MinBars)
}
