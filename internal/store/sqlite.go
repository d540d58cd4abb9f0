package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/newthinker/quorum/internal/config"
	"github.com/newthinker/quorum/internal/core"
)

const (
	keyActiveSymbols = "active_symbols"
	keyTradingConfig = "trading_config"
)

// SQLiteStore persists state to a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the SQLite database and runs migrations.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, core.Wrapf(core.ErrStoreFailed, "open sqlite: %w", err)
	}

	// Every connection to ":memory:" is a separate database.
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, core.Wrapf(core.ErrStoreFailed, "set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, core.Wrapf(core.ErrStoreFailed, "migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS trades (
			id          TEXT PRIMARY KEY,
			position_id TEXT NOT NULL,
			symbol      TEXT NOT NULL,
			action      TEXT NOT NULL,
			side        TEXT NOT NULL,
			quantity    REAL NOT NULL,
			price       REAL NOT NULL,
			stop_loss   REAL,
			take_profit REAL,
			status      TEXT NOT NULL,
			confidence  INTEGER,
			pnl         REAL,
			order_id    TEXT,
			timestamp   INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_ts ON trades(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_position ON trades(position_id, action)`,

		`CREATE TABLE IF NOT EXISTS kv (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

const tradeColumns = `id, position_id, symbol, action, side, quantity, price, stop_loss,
	take_profit, status, confidence, pnl, order_id, timestamp`

// SaveTrade inserts a trade record.
func (s *SQLiteStore) SaveTrade(ctx context.Context, rec core.TradeRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO trades (`+tradeColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		rec.ID, rec.PositionID, core.NormalizeSymbol(rec.Symbol), string(rec.Action), string(rec.Side),
		rec.Quantity, rec.Price, rec.StopLoss, rec.TakeProfit, string(rec.Status),
		rec.Confidence, nullFloat(rec.PnL), rec.OrderID, rec.Time.UnixNano(),
	)
	if err != nil {
		return core.Wrapf(core.ErrStoreFailed, "insert trade: %w", err)
	}
	return nil
}

// ListTrades returns trades matching the filter.
func (s *SQLiteStore) ListTrades(ctx context.Context, filter TradeFilter) ([]core.TradeRecord, error) {
	var (
		where []string
		args  []any
	)
	if filter.Symbol != "" {
		where = append(where, "symbol = ?")
		args = append(args, core.NormalizeSymbol(filter.Symbol))
	}
	if filter.Action != "" {
		where = append(where, "action = ?")
		args = append(args, string(filter.Action))
	}
	if !filter.From.IsZero() {
		where = append(where, "timestamp >= ?")
		args = append(args, filter.From.UnixNano())
	}
	if !filter.To.IsZero() {
		where = append(where, "timestamp < ?")
		args = append(args, filter.To.UnixNano())
	}

	query := `SELECT ` + tradeColumns + ` FROM trades`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY timestamp, rowid"
	if filter.Limit > 0 || filter.Offset > 0 {
		limit := filter.Limit
		if limit <= 0 {
			limit = -1
		}
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, filter.Offset)
	}

	return s.queryTrades(ctx, query, args...)
}

// GetOpenTrades returns OPEN records without a matching CLOSE.
func (s *SQLiteStore) GetOpenTrades(ctx context.Context) ([]core.TradeRecord, error) {
	return s.queryTrades(ctx, `SELECT `+tradeColumns+` FROM trades o
		WHERE o.action = ? AND NOT EXISTS (
			SELECT 1 FROM trades c WHERE c.position_id = o.position_id AND c.action = ?
		)
		ORDER BY o.timestamp, o.id`,
		string(core.TradeOpen), string(core.TradeClose),
	)
}

func (s *SQLiteStore) queryTrades(ctx context.Context, query string, args ...any) ([]core.TradeRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, core.Wrapf(core.ErrStoreFailed, "query trades: %w", err)
	}
	defer rows.Close()

	result := []core.TradeRecord{}
	for rows.Next() {
		var (
			rec                          core.TradeRecord
			action, side, status, symbol string
			stop, target, pnl            sql.NullFloat64
			confidence                   sql.NullInt64
			orderID                      sql.NullString
			ts                           int64
		)
		if err := rows.Scan(&rec.ID, &rec.PositionID, &symbol, &action, &side, &rec.Quantity,
			&rec.Price, &stop, &target, &status, &confidence, &pnl, &orderID, &ts); err != nil {
			return nil, core.Wrapf(core.ErrStoreFailed, "scan trade: %w", err)
		}
		rec.Symbol = symbol
		rec.Action = core.TradeAction(action)
		rec.Side = core.Side(side)
		rec.Status = core.PositionStatus(status)
		rec.StopLoss = stop.Float64
		rec.TakeProfit = target.Float64
		rec.Confidence = int(confidence.Int64)
		rec.OrderID = orderID.String
		rec.Time = time.Unix(0, ts).UTC()
		if pnl.Valid {
			v := pnl.Float64
			rec.PnL = &v
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, core.Wrapf(core.ErrStoreFailed, "iterate trades: %w", err)
	}
	return result, nil
}

// GetActiveSymbols returns the active symbol list.
func (s *SQLiteStore) GetActiveSymbols(ctx context.Context) ([]string, error) {
	var symbols []string
	err := s.getJSON(ctx, keyActiveSymbols, &symbols)
	if errors.Is(err, core.ErrNoData) {
		return []string{}, nil
	}
	return symbols, err
}

// SetActiveSymbols replaces the active symbol list.
func (s *SQLiteStore) SetActiveSymbols(ctx context.Context, symbols []string) error {
	return s.putJSON(ctx, keyActiveSymbols, normalizeSymbols(symbols))
}

// GetConfig returns the saved trading configuration.
func (s *SQLiteStore) GetConfig(ctx context.Context) (config.Trading, error) {
	var cfg config.Trading
	if err := s.getJSON(ctx, keyTradingConfig, &cfg); err != nil {
		return config.Trading{}, err
	}
	return cfg, nil
}

// UpdateConfig saves the trading configuration.
func (s *SQLiteStore) UpdateConfig(ctx context.Context, cfg config.Trading) error {
	return s.putJSON(ctx, keyTradingConfig, cfg)
}

func (s *SQLiteStore) getJSON(ctx context.Context, key string, out any) error {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNoData
	}
	if err != nil {
		return core.Wrapf(core.ErrStoreFailed, "read %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return core.Wrapf(core.ErrStoreFailed, "decode %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) putJSON(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return core.Wrapf(core.ErrStoreFailed, "encode %s: %w", key, err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, string(raw))
	if err != nil {
		return core.Wrapf(core.ErrStoreFailed, "write %s: %w", key, err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

var _ Store = (*SQLiteStore)(nil)
