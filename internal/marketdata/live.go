package marketdata

import (
	"context"

	"go.uber.org/zap"

	"github.com/newthinker/quorum/internal/core"
)

// Live fetches bars from a provider. When a fallback is configured it
// substitutes synthetic bars for failed or short fetches.
type Live struct {
	provider Provider
	fallback *Synthetic
	logger   *zap.Logger
}

// NewLive wraps a provider. fallback may be nil to surface fetch failures.
func NewLive(provider Provider, fallback *Synthetic, logger *zap.Logger) *Live {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Live{provider: provider, fallback: fallback, logger: logger}
}

// Fetch implements DataSource.
func (l *Live) Fetch(ctx context.Context, symbol, timeframe string, limit int) (Series, error) {
	bars, err := l.provider.GetBars(ctx, symbol, timeframe, limit)
	if err == nil {
		bars = Trim(bars, limit)
		if len(bars) >= MinBars {
			return Series{Symbol: symbol, Bars: bars, Origin: OriginLive}, nil
		}
		err = insufficient(symbol, len(bars))
	} else {
		err = core.WrapError(core.ErrMarketData, err)
	}

	if l.fallback == nil {
		return Series{}, err
	}

	l.logger.Warn("using synthetic bars",
		zap.String("symbol", symbol),
		zap.String("provider", l.provider.Name()),
		zap.Error(err),
	)
	series, ferr := l.fallback.Fetch(ctx, symbol, timeframe, limit)
	if ferr != nil {
		return Series{}, ferr
	}
	series.Reason = err.Error()
	return series, nil
}

var (
	_ DataSource = (*Live)(nil)
	_ DataSource = (*Synthetic)(nil)
	_ Provider   = (*Synthetic)(nil)
)
