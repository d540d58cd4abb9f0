// Package store persists the trade journal, the active symbol list and the
// live trading configuration.
package store

import (
	"context"
	"time"

	"github.com/newthinker/quorum/internal/config"
	"github.com/newthinker/quorum/internal/core"
)

// Store defines the interface for quorum persistence.
type Store interface {
	// SaveTrade appends a trade record and assigns an ID when empty.
	SaveTrade(ctx context.Context, rec core.TradeRecord) error

	// ListTrades retrieves trade records matching the filter, oldest first.
	ListTrades(ctx context.Context, filter TradeFilter) ([]core.TradeRecord, error)

	// GetOpenTrades returns OPEN records whose position has no CLOSE record.
	GetOpenTrades(ctx context.Context) ([]core.TradeRecord, error)

	// GetActiveSymbols returns the persisted symbol list.
	GetActiveSymbols(ctx context.Context) ([]string, error)

	// SetActiveSymbols replaces the persisted symbol list.
	SetActiveSymbols(ctx context.Context, symbols []string) error

	// GetConfig returns the persisted trading configuration, or
	// core.ErrNoData when none was saved.
	GetConfig(ctx context.Context) (config.Trading, error)

	// UpdateConfig replaces the persisted trading configuration.
	UpdateConfig(ctx context.Context, cfg config.Trading) error

	Close() error
}

// TradeFilter defines criteria for listing trades.
type TradeFilter struct {
	Symbol string
	Action core.TradeAction
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}

func (f TradeFilter) matches(rec core.TradeRecord) bool {
	if f.Symbol != "" && rec.Symbol != core.NormalizeSymbol(f.Symbol) {
		return false
	}
	if f.Action != "" && rec.Action != f.Action {
		return false
	}
	if !f.From.IsZero() && rec.Time.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !rec.Time.Before(f.To) {
		return false
	}
	return true
}

func normalizeSymbols(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	seen := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		s = core.NormalizeSymbol(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// Open creates the store selected by cfg.
func Open(cfg config.StoreConfig) (Store, error) {
	switch cfg.Type {
	case "", "memory":
		return NewMemoryStore(cfg.MaxMemTrade), nil
	case "sqlite":
		return NewSQLiteStore(cfg.DSN)
	default:
		return nil, core.Wrapf(core.ErrConfigInvalid, "unknown store type %q", cfg.Type)
	}
}
