package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/quorum/internal/config"
	"github.com/newthinker/quorum/internal/core"
)

var t0 = time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)

func pnl(v float64) *float64 { return &v }

func openRec(pos, symbol string, at time.Duration) core.TradeRecord {
	return core.TradeRecord{
		PositionID: pos,
		Symbol:     symbol,
		Action:     core.TradeOpen,
		Side:       core.SideLong,
		Quantity:   2,
		Price:      100,
		StopLoss:   95,
		TakeProfit: 110,
		Status:     core.StatusOpen,
		Confidence: 72,
		OrderID:    "ord-" + pos,
		Time:       t0.Add(at),
	}
}

func closeRec(pos, symbol string, at time.Duration, status core.PositionStatus) core.TradeRecord {
	return core.TradeRecord{
		PositionID: pos,
		Symbol:     symbol,
		Action:     core.TradeClose,
		Side:       core.SideLong,
		Quantity:   2,
		Price:      104,
		Status:     status,
		PnL:        pnl(8),
		Time:       t0.Add(at),
	}
}

// implementations returns a fresh instance of every Store.
func implementations(t *testing.T) map[string]Store {
	t.Helper()
	sqliteMem, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	sqliteFile, err := NewSQLiteStore(filepath.Join(t.TempDir(), "quorum.db"))
	require.NoError(t, err)

	stores := map[string]Store{
		"memory":        NewMemoryStore(100),
		"sqlite-memory": sqliteMem,
		"sqlite-file":   sqliteFile,
	}
	t.Cleanup(func() {
		for _, s := range stores {
			s.Close()
		}
	})
	return stores
}

func TestStore_Trades(t *testing.T) {
	ctx := context.Background()
	for name, s := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.SaveTrade(ctx, openRec("p1", "aapl", 0)))
			require.NoError(t, s.SaveTrade(ctx, openRec("p2", "MSFT", time.Minute)))
			require.NoError(t, s.SaveTrade(ctx, closeRec("p1", "AAPL", 2*time.Minute, core.StatusClosedReversal)))
			require.NoError(t, s.SaveTrade(ctx, openRec("p3", "AAPL", 3*time.Minute)))

			all, err := s.ListTrades(ctx, TradeFilter{})
			require.NoError(t, err)
			require.Len(t, all, 4)
			assert.NotEmpty(t, all[0].ID)
			assert.Equal(t, "AAPL", all[0].Symbol)
			assert.Equal(t, t0, all[0].Time.UTC())
			assert.Equal(t, 95.0, all[0].StopLoss)
			assert.Equal(t, 72, all[0].Confidence)
			assert.Equal(t, "ord-p1", all[0].OrderID)
			assert.Nil(t, all[0].PnL)
			require.NotNil(t, all[2].PnL)
			assert.Equal(t, 8.0, *all[2].PnL)
			assert.Equal(t, core.StatusClosedReversal, all[2].Status)

			aapl, err := s.ListTrades(ctx, TradeFilter{Symbol: "aapl"})
			require.NoError(t, err)
			assert.Len(t, aapl, 3)

			closes, err := s.ListTrades(ctx, TradeFilter{Action: core.TradeClose})
			require.NoError(t, err)
			assert.Len(t, closes, 1)

			window, err := s.ListTrades(ctx, TradeFilter{From: t0.Add(time.Minute), To: t0.Add(3 * time.Minute)})
			require.NoError(t, err)
			require.Len(t, window, 2)
			assert.Equal(t, "p2", window[0].PositionID)

			page, err := s.ListTrades(ctx, TradeFilter{Offset: 1, Limit: 2})
			require.NoError(t, err)
			require.Len(t, page, 2)
			assert.Equal(t, "p2", page[0].PositionID)

			empty, err := s.ListTrades(ctx, TradeFilter{Offset: 10})
			require.NoError(t, err)
			assert.Empty(t, empty)

			open, err := s.GetOpenTrades(ctx)
			require.NoError(t, err)
			require.Len(t, open, 2)
			assert.Equal(t, "p2", open[0].PositionID)
			assert.Equal(t, "p3", open[1].PositionID)
		})
	}
}

func TestStore_ActiveSymbols(t *testing.T) {
	ctx := context.Background()
	for name, s := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			symbols, err := s.GetActiveSymbols(ctx)
			require.NoError(t, err)
			assert.Empty(t, symbols)

			require.NoError(t, s.SetActiveSymbols(ctx, []string{"aapl", " MSFT ", "AAPL", ""}))
			symbols, err = s.GetActiveSymbols(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"AAPL", "MSFT"}, symbols)

			require.NoError(t, s.SetActiveSymbols(ctx, nil))
			symbols, err = s.GetActiveSymbols(ctx)
			require.NoError(t, err)
			assert.Empty(t, symbols)
		})
	}
}

func TestStore_TradingConfig(t *testing.T) {
	ctx := context.Background()
	for name, s := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.GetConfig(ctx)
			assert.ErrorIs(t, err, core.ErrNoData)

			cfg := config.DefaultTrading()
			cfg.MaxRiskPercent = 3
			require.NoError(t, s.UpdateConfig(ctx, cfg))

			got, err := s.GetConfig(ctx)
			require.NoError(t, err)
			assert.Equal(t, cfg, got)

			cfg.MinLotSize = 2
			require.NoError(t, s.UpdateConfig(ctx, cfg))
			got, err = s.GetConfig(ctx)
			require.NoError(t, err)
			assert.Equal(t, 2.0, got.MinLotSize)
		})
	}
}

func TestMemoryStore_TrimKeepsOpenPositions(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(2)

	require.NoError(t, s.SaveTrade(ctx, openRec("p1", "AAPL", 0)))
	for i := 0; i < 3; i++ {
		require.NoError(t, s.SaveTrade(ctx, closeRec("other", "MSFT", time.Duration(i+1)*time.Minute, core.StatusClosed)))
	}

	all, err := s.ListTrades(ctx, TradeFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	open, err := s.GetOpenTrades(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "p1", open[0].PositionID)
}

func TestSQLiteStore_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "quorum.db")

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveTrade(ctx, openRec("p1", "AAPL", 0)))
	require.NoError(t, s.SetActiveSymbols(ctx, []string{"AAPL"}))
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()

	open, err := s.GetOpenTrades(ctx)
	require.NoError(t, err)
	assert.Len(t, open, 1)

	symbols, err := s.GetActiveSymbols(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL"}, symbols)
}

func TestOpen(t *testing.T) {
	s, err := Open(config.StoreConfig{Type: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(config.StoreConfig{Type: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	s.Close()

	_, err = Open(config.StoreConfig{Type: "mongo"})
	assert.ErrorIs(t, err, core.ErrConfigInvalid)
}
