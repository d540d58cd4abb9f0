package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/newthinker/quorum/internal/core"
	"github.com/newthinker/quorum/internal/store"
)

// TradeLister is the slice of store.Store the exporter reads from.
type TradeLister interface {
	ListTrades(ctx context.Context, filter store.TradeFilter) ([]core.TradeRecord, error)
}

// JournalPath returns the object path of the journal for a UTC day.
func JournalPath(day time.Time) string {
	day = day.UTC()
	return fmt.Sprintf("trades/%04d/%02d/%02d.jsonl", day.Year(), int(day.Month()), day.Day())
}

// Exporter writes one JSON-lines journal per day of trades.
type Exporter struct {
	storage Storage
	trades  TradeLister
	logger  *zap.Logger
	now     func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
}

// NewExporter creates an exporter.
func NewExporter(storage Storage, trades TradeLister, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{
		storage: storage,
		trades:  trades,
		logger:  logger,
		now:     time.Now,
	}
}

// ExportDay writes every trade of the UTC day containing day and returns the
// object path and the number of records. Days without trades write nothing.
func (e *Exporter) ExportDay(ctx context.Context, day time.Time) (string, int, error) {
	start := day.UTC().Truncate(24 * time.Hour)
	trades, err := e.trades.ListTrades(ctx, store.TradeFilter{From: start, To: start.Add(24 * time.Hour)})
	if err != nil {
		return "", 0, core.WrapError(core.ErrArchiveFailed, err)
	}
	if len(trades) == 0 {
		return "", 0, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, rec := range trades {
		if err := enc.Encode(rec); err != nil {
			return "", 0, core.Wrapf(core.ErrArchiveFailed, "encode trade %s: %w", rec.ID, err)
		}
	}

	path := JournalPath(start)
	if err := e.storage.Write(ctx, path, buf.Bytes()); err != nil {
		return "", 0, err
	}
	return path, len(trades), nil
}

// Start schedules a daily export of the previous UTC day. schedule is a
// standard five-field cron expression.
func (e *Exporter) Start(ctx context.Context, schedule string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cron != nil {
		return nil
	}

	c := cron.New(cron.WithLocation(time.UTC))
	if _, err := c.AddFunc(schedule, func() { e.exportPrevious(ctx) }); err != nil {
		return core.Wrapf(core.ErrConfigInvalid, "archive schedule %q: %w", schedule, err)
	}
	c.Start()
	e.cron = c
	e.logger.Info("archive exporter started", zap.String("schedule", schedule))
	return nil
}

// Stop stops the schedule and waits for a running export to finish.
func (e *Exporter) Stop() {
	e.mu.Lock()
	c := e.cron
	e.cron = nil
	e.mu.Unlock()

	if c == nil {
		return
	}
	<-c.Stop().Done()
	e.logger.Info("archive exporter stopped")
}

func (e *Exporter) exportPrevious(ctx context.Context) {
	day := e.now().UTC().AddDate(0, 0, -1)
	path, n, err := e.ExportDay(ctx, day)
	if err != nil {
		e.logger.Error("archive export failed", zap.Time("day", day), zap.Error(err))
		return
	}
	if n == 0 {
		e.logger.Debug("no trades to archive", zap.Time("day", day))
		return
	}
	e.logger.Info("trade journal archived", zap.String("path", path), zap.Int("trades", n))
}
