package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/newthinker/quorum/internal/config"
	"github.com/newthinker/quorum/internal/core"
)

// MemoryStore is an in-memory store. The journal keeps at most maxSize
// records; open positions are tracked separately so trimming never loses them.
type MemoryStore struct {
	mu      sync.RWMutex
	trades  []core.TradeRecord
	open    map[string]core.TradeRecord
	symbols []string
	trading *config.Trading
	maxSize int
}

// NewMemoryStore creates a new in-memory store with max journal capacity.
func NewMemoryStore(maxSize int) *MemoryStore {
	if maxSize <= 0 {
		maxSize = 10000
	}
	return &MemoryStore{
		open:    make(map[string]core.TradeRecord),
		maxSize: maxSize,
	}
}

// SaveTrade adds a trade record to the journal.
func (m *MemoryStore) SaveTrade(ctx context.Context, rec core.TradeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.Symbol = core.NormalizeSymbol(rec.Symbol)

	m.trades = append(m.trades, rec)
	if len(m.trades) > m.maxSize {
		m.trades = m.trades[len(m.trades)-m.maxSize:]
	}

	switch rec.Action {
	case core.TradeOpen:
		m.open[rec.PositionID] = rec
	case core.TradeClose:
		delete(m.open, rec.PositionID)
	}
	return nil
}

// ListTrades returns trades matching the filter.
func (m *MemoryStore) ListTrades(ctx context.Context, filter TradeFilter) ([]core.TradeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []core.TradeRecord
	for _, rec := range m.trades {
		if filter.matches(rec) {
			result = append(result, rec)
		}
	}

	// Apply offset and limit
	if filter.Offset >= len(result) {
		return []core.TradeRecord{}, nil
	}
	if filter.Offset > 0 {
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}

// GetOpenTrades returns the OPEN records of positions not yet closed.
func (m *MemoryStore) GetOpenTrades(ctx context.Context) ([]core.TradeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]core.TradeRecord, 0, len(m.open))
	for _, rec := range m.open {
		result = append(result, rec)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Time.Equal(result[j].Time) {
			return result[i].ID < result[j].ID
		}
		return result[i].Time.Before(result[j].Time)
	})
	return result, nil
}

// GetActiveSymbols returns the active symbol list.
func (m *MemoryStore) GetActiveSymbols(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string{}, m.symbols...), nil
}

// SetActiveSymbols replaces the active symbol list.
func (m *MemoryStore) SetActiveSymbols(ctx context.Context, symbols []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.symbols = normalizeSymbols(symbols)
	return nil
}

// GetConfig returns the saved trading configuration.
func (m *MemoryStore) GetConfig(ctx context.Context) (config.Trading, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.trading == nil {
		return config.Trading{}, core.ErrNoData
	}
	return *m.trading, nil
}

// UpdateConfig saves the trading configuration.
func (m *MemoryStore) UpdateConfig(ctx context.Context, cfg config.Trading) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trading = &cfg
	return nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}

var _ Store = (*MemoryStore)(nil)
