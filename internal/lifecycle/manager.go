package lifecycle

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/newthinker/quorum/internal/broker"
	"github.com/newthinker/quorum/internal/config"
	"github.com/newthinker/quorum/internal/consensus"
	"github.com/newthinker/quorum/internal/core"
	"github.com/newthinker/quorum/internal/events"
	"github.com/newthinker/quorum/internal/risk"
)

// Rounding applied to order quantities, prices and realized PnL.
const (
	qtyPlaces   = 4
	pricePlaces = 4
	pnlPlaces   = 2
)

// TradeSaver persists trade records.
type TradeSaver interface {
	SaveTrade(ctx context.Context, rec core.TradeRecord) error
}

// Recorder counts saved trade records.
type Recorder interface {
	RecordTrade(action, status string)
}

// Manager executes lifecycle transitions against a brokerage.
type Manager struct {
	broker   broker.Brokerage
	trades   TradeSaver
	events   events.Publisher
	recorder Recorder
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock sets the time source for trade records.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithRecorder counts every saved trade record.
func WithRecorder(r Recorder) Option {
	return func(m *Manager) { m.recorder = r }
}

// WithIDs replaces the uuid generator for position, record and client
// order IDs.
func WithIDs(newID func() string) Option {
	return func(m *Manager) { m.newID = newID }
}

// NewManager creates a lifecycle manager. A nil publisher discards events.
func NewManager(b broker.Brokerage, trades TradeSaver, pub events.Publisher, logger *zap.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pub == nil {
		pub = events.Discard{}
	}
	m := &Manager{
		broker: b,
		trades: trades,
		events: pub,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Request carries what a transition needs besides the decision.
type Request struct {
	Report   consensus.Report
	Position *core.Position
	Equity   float64
	History  []float64
	Trading  config.Trading
}

// Outcome reports what Apply did.
type Outcome struct {
	Decision Decision
	Closed   *core.Position
	Position *core.Position
	Trades   []core.TradeRecord
	// OrderErr is set when an entry order was rejected and skipped.
	OrderErr error
}

// Apply carries out d for symbol. Closing comes first; a reversal then
// refreshes equity and opens the opposite side. A rejected entry order is
// logged and skipped without retry. The returned error is non-nil only
// when a close fails, in which case the position is left as it was.
func (m *Manager) Apply(ctx context.Context, symbol string, d Decision, req Request) (Outcome, error) {
	symbol = core.NormalizeSymbol(symbol)
	out := Outcome{Decision: d, Position: req.Position}

	switch d.Action {
	case ActionOpen:
		out.Position = nil
		pos, rec, err := m.open(ctx, symbol, d.Direction, d.Confidence, req)
		if err != nil {
			out.OrderErr = err
			return out, nil
		}
		out.Position = &pos
		out.Trades = append(out.Trades, rec)

	case ActionReverse:
		if req.Position == nil {
			return out, nil
		}
		closed, rec, err := m.Close(ctx, *req.Position, core.StatusClosedReversal, d.Confidence, req.Report.Price)
		if err != nil {
			return out, err
		}
		out.Closed = &closed
		out.Position = nil
		out.Trades = append(out.Trades, rec)

		req.Equity = m.refreshEquity(ctx, req.Equity, closed)
		if d.Direction == core.DirectionNeutral || d.Confidence < OpenConfidence {
			return out, nil
		}
		pos, openRec, err := m.open(ctx, symbol, d.Direction, d.Confidence, req)
		if err != nil {
			out.OrderErr = err
			return out, nil
		}
		out.Position = &pos
		out.Trades = append(out.Trades, openRec)

	case ActionCloseDanger:
		if req.Position == nil {
			return out, nil
		}
		closed, rec, err := m.Close(ctx, *req.Position, core.StatusClosedDanger, d.Confidence, req.Report.Price)
		if err != nil {
			return out, err
		}
		out.Closed = &closed
		out.Position = nil
		out.Trades = append(out.Trades, rec)
	}

	return out, nil
}

// Close liquidates pos at the brokerage and journals the exit. The exit
// price is the quote midpoint, or fallbackPrice when no quote is
// available. A brokerage that no longer holds the position is treated as
// already flat.
func (m *Manager) Close(ctx context.Context, pos core.Position, status core.PositionStatus, confidence int, fallbackPrice float64) (core.Position, core.TradeRecord, error) {
	exit := fallbackPrice
	if quote, err := m.broker.GetLatestQuote(ctx, pos.Symbol); err == nil && quote.Mid() > 0 {
		exit = quote.Mid()
	} else if err != nil {
		m.logger.Warn("no quote for exit, using last price",
			zap.String("symbol", pos.Symbol),
			zap.Float64("price", fallbackPrice),
			zap.Error(err),
		)
	}

	if err := m.broker.ClosePosition(ctx, pos.Symbol); err != nil {
		if !errors.Is(err, broker.ErrPositionNotFound) {
			m.logger.Error("close failed",
				zap.String("symbol", pos.Symbol),
				zap.String("status", string(status)),
				zap.Error(err),
			)
			return pos, core.TradeRecord{}, core.Wrapf(core.ErrOrderFailed, "closing %s: %w", pos.Symbol, err)
		}
		m.logger.Warn("position already flat at brokerage", zap.String("symbol", pos.Symbol))
	}

	closed, rec := m.settle(ctx, pos, status, confidence, exit)
	return closed, rec, nil
}

// Settle journals a position the brokerage closed on its own, such as a
// filled stop or target leg. The exit is the stop or target when price
// crossed it, otherwise price.
func (m *Manager) Settle(ctx context.Context, pos core.Position, price float64) (core.Position, core.TradeRecord) {
	exit := price
	switch pos.Side {
	case core.SideLong:
		if pos.StopLoss > 0 && price <= pos.StopLoss {
			exit = pos.StopLoss
		} else if pos.TakeProfit > 0 && price >= pos.TakeProfit {
			exit = pos.TakeProfit
		}
	case core.SideShort:
		if pos.StopLoss > 0 && price >= pos.StopLoss {
			exit = pos.StopLoss
		} else if pos.TakeProfit > 0 && price <= pos.TakeProfit {
			exit = pos.TakeProfit
		}
	}
	return m.settle(ctx, pos, core.StatusClosed, 0, exit)
}

func (m *Manager) settle(ctx context.Context, pos core.Position, status core.PositionStatus, confidence int, exit float64) (core.Position, core.TradeRecord) {
	now := m.now()
	pnl := PnL(pos.Side, pos.EntryPrice, exit, pos.Quantity)

	closed := pos
	closed.Status = status
	closed.ExitTime = &now
	closed.ExitPrice = &exit
	closed.PnL = &pnl

	rec := core.TradeRecord{
		ID:         m.newID(),
		PositionID: pos.ID,
		Symbol:     pos.Symbol,
		Action:     core.TradeClose,
		Side:       pos.Side,
		Quantity:   pos.Quantity,
		Price:      exit,
		Status:     status,
		Confidence: confidence,
		PnL:        &pnl,
		Time:       now,
	}
	m.journal(ctx, rec)

	m.logger.Info("position closed",
		zap.String("symbol", pos.Symbol),
		zap.String("status", string(status)),
		zap.Float64("exit", exit),
		zap.Float64("pnl", pnl),
	)
	return closed, rec
}

func (m *Manager) open(ctx context.Context, symbol string, dir core.Direction, confidence int, req Request) (core.Position, core.TradeRecord, error) {
	plan, err := risk.NewSizer(req.Trading).Plan(dir, req.Equity, req.Report.Price, confidence, req.History)
	if err != nil {
		m.logger.Warn("cannot size entry", zap.String("symbol", symbol), zap.Error(err))
		return core.Position{}, core.TradeRecord{}, core.WrapError(core.ErrOrderFailed, err)
	}
	qty, _ := decimal.NewFromFloat(plan.Quantity).Round(qtyPlaces).Float64()

	order := broker.BracketOrder{
		Symbol:        symbol,
		Side:          broker.SideFor(dir),
		Quantity:      qty,
		StopLoss:      plan.StopLoss,
		TakeProfit:    plan.TakeProfit,
		ClientOrderID: m.newID(),
	}
	result, err := m.broker.SubmitBracketOrder(ctx, order)
	if err != nil {
		m.logger.Warn("entry order rejected, skipping",
			zap.String("symbol", symbol),
			zap.String("side", string(order.Side)),
			zap.Float64("quantity", qty),
			zap.Error(err),
		)
		return core.Position{}, core.TradeRecord{}, core.Wrapf(core.ErrOrderFailed, "submitting %s %s: %w", order.Side, symbol, err)
	}

	entry := plan.Price
	if result.FilledPrice > 0 {
		entry = result.FilledPrice
	}
	now := m.now()
	pos := core.Position{
		ID:         m.newID(),
		Symbol:     symbol,
		Side:       core.SideFor(dir),
		Quantity:   qty,
		EntryPrice: entry,
		StopLoss:   plan.StopLoss,
		TakeProfit: plan.TakeProfit,
		Status:     core.StatusOpen,
		EntryTime:  now,
	}
	rec := core.TradeRecord{
		ID:         m.newID(),
		PositionID: pos.ID,
		Symbol:     symbol,
		Action:     core.TradeOpen,
		Side:       pos.Side,
		Quantity:   qty,
		Price:      entry,
		StopLoss:   pos.StopLoss,
		TakeProfit: pos.TakeProfit,
		Status:     core.StatusOpen,
		Confidence: confidence,
		OrderID:    result.OrderID,
		Time:       now,
	}
	m.journal(ctx, rec)

	m.logger.Info("position opened",
		zap.String("symbol", symbol),
		zap.String("side", string(pos.Side)),
		zap.Float64("quantity", qty),
		zap.Float64("entry", entry),
		zap.Float64("stop_loss", pos.StopLoss),
		zap.Float64("take_profit", pos.TakeProfit),
		zap.Int("confidence", confidence),
	)
	return pos, rec, nil
}

// journal saves rec and announces it. A failed save is logged; the trade
// already happened at the brokerage.
func (m *Manager) journal(ctx context.Context, rec core.TradeRecord) {
	if m.trades != nil {
		if err := m.trades.SaveTrade(ctx, rec); err != nil {
			m.logger.Error("failed to save trade record",
				zap.String("symbol", rec.Symbol),
				zap.String("action", string(rec.Action)),
				zap.Error(err),
			)
		}
	}
	if m.recorder != nil {
		m.recorder.RecordTrade(string(rec.Action), string(rec.Status))
	}
	m.events.Publish(events.NewTrade(rec))
}

func (m *Manager) refreshEquity(ctx context.Context, previous float64, closed core.Position) float64 {
	equity, err := m.broker.GetAccountEquity(ctx)
	if err == nil && equity > 0 {
		return equity
	}
	fallback := previous
	if closed.PnL != nil {
		fallback += *closed.PnL
	}
	m.logger.Warn("equity refresh failed, using estimate",
		zap.Float64("equity", fallback),
		zap.Error(err),
	)
	return fallback
}

// PnL is the realized profit of a position exited at exit, rounded to
// cents. Shorts profit when price falls.
func PnL(side core.Side, entry, exit, quantity float64) float64 {
	diff := decimal.NewFromFloat(exit).Sub(decimal.NewFromFloat(entry))
	if side == core.SideShort {
		diff = diff.Neg()
	}
	v, _ := diff.Mul(decimal.NewFromFloat(quantity)).Round(pnlPlaces).Float64()
	return v
}
