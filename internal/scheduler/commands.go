package scheduler

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/newthinker/quorum/internal/config"
	"github.com/newthinker/quorum/internal/core"
	"github.com/newthinker/quorum/internal/events"
)

// Load restores the active symbols and trading bounds from the store.
// When the store has no symbols, defaults are added and persisted.
func (s *Scheduler) Load(ctx context.Context, defaults []string) error {
	var err error
	if derr := s.do(ctx, func() { err = s.load(ctx, defaults) }); derr != nil {
		return derr
	}
	return err
}

func (s *Scheduler) load(ctx context.Context, defaults []string) error {
	symbols, err := s.store.GetActiveSymbols(ctx)
	if err != nil {
		return core.WrapError(core.ErrStoreFailed, err)
	}
	restored := len(symbols) > 0
	if !restored {
		symbols = defaults
	}
	for _, sym := range symbols {
		sym = core.NormalizeSymbol(sym)
		if sym == "" {
			continue
		}
		if _, ok := s.symbols[sym]; ok {
			continue
		}
		s.symbols[sym] = newSymbolState()
		s.order = append(s.order, sym)
	}
	if !restored {
		s.persistSymbols(ctx)
	}
	s.metrics.SetActiveSymbols(len(s.order))

	trading, err := s.store.GetConfig(ctx)
	switch {
	case err == nil:
		if verr := trading.Validate(); verr != nil {
			s.logger.Warn("ignoring invalid stored trading config", zap.Error(verr))
			break
		}
		s.trading = trading
	case errors.Is(err, core.ErrNoData):
	default:
		s.logger.Warn("failed to load trading config", zap.Error(err))
	}

	s.logger.Info("state loaded",
		zap.Strings("symbols", s.order),
		zap.Bool("restored", restored),
	)
	return nil
}

// AddSymbol starts evaluating symbol on the next cycle.
func (s *Scheduler) AddSymbol(ctx context.Context, symbol string) error {
	symbol = core.NormalizeSymbol(symbol)
	if symbol == "" {
		return core.Wrapf(core.ErrConfigInvalid, "symbol cannot be empty")
	}
	var err error
	if derr := s.do(ctx, func() { err = s.addSymbol(ctx, symbol) }); derr != nil {
		return derr
	}
	return err
}

func (s *Scheduler) addSymbol(ctx context.Context, symbol string) error {
	if _, ok := s.symbols[symbol]; ok {
		return core.Wrapf(core.ErrSymbolExists, "%s", symbol)
	}
	s.symbols[symbol] = newSymbolState()
	s.order = append(s.order, symbol)
	s.persistSymbols(ctx)
	s.metrics.SetActiveSymbols(len(s.order))
	s.logger.Info("symbol added", zap.String("symbol", symbol))
	return nil
}

// RemoveSymbol closes any open position in symbol with status CLOSED and
// stops evaluating it. If the close fails the symbol is kept.
func (s *Scheduler) RemoveSymbol(ctx context.Context, symbol string) error {
	symbol = core.NormalizeSymbol(symbol)
	var err error
	if derr := s.do(ctx, func() { err = s.removeSymbol(ctx, symbol) }); derr != nil {
		return derr
	}
	return err
}

func (s *Scheduler) removeSymbol(ctx context.Context, symbol string) error {
	st, ok := s.symbols[symbol]
	if !ok {
		return core.Wrapf(core.ErrSymbolNotFound, "%s", symbol)
	}
	if pos := st.Position(); pos != nil {
		if _, _, err := s.manager.Close(ctx, *pos, core.StatusClosed, 0, st.lastPrice()); err != nil {
			return err
		}
	}

	delete(s.symbols, symbol)
	for i, sym := range s.order {
		if sym == symbol {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.persistSymbols(ctx)
	s.metrics.SetActiveSymbols(len(s.order))
	s.metrics.ForgetSymbol(symbol)
	s.logger.Info("symbol removed", zap.String("symbol", symbol))
	return nil
}

// SetTrading enables or disables lifecycle transitions for symbol.
func (s *Scheduler) SetTrading(ctx context.Context, symbol string, enabled bool) error {
	symbol = core.NormalizeSymbol(symbol)
	var err error
	derr := s.do(ctx, func() {
		st, ok := s.symbols[symbol]
		if !ok {
			err = core.Wrapf(core.ErrSymbolNotFound, "%s", symbol)
			return
		}
		st.IsTrading = enabled
	})
	if derr != nil {
		return derr
	}
	return err
}

// UpdateConfig applies a partial change to the live trading bounds. An
// update that violates the bounds is rejected and nothing changes.
func (s *Scheduler) UpdateConfig(ctx context.Context, u config.TradingUpdate) (config.Trading, error) {
	var (
		out config.Trading
		err error
	)
	derr := s.do(ctx, func() {
		next, uerr := s.trading.Update(u)
		if uerr != nil {
			out, err = s.trading, uerr
			return
		}
		if serr := s.store.UpdateConfig(ctx, next); serr != nil {
			out, err = s.trading, core.WrapError(core.ErrStoreFailed, serr)
			return
		}
		s.trading = next
		out = next
		s.logger.Info("trading config updated",
			zap.Float64("min_risk_percent", next.MinRiskPercent),
			zap.Float64("max_risk_percent", next.MaxRiskPercent),
			zap.Float64("min_lot_size", next.MinLotSize),
			zap.Float64("max_lot_size", next.MaxLotSize),
		)
	})
	if derr != nil {
		return config.Trading{}, derr
	}
	return out, err
}

// Trading returns the live trading bounds.
func (s *Scheduler) Trading(ctx context.Context) (config.Trading, error) {
	var out config.Trading
	err := s.do(ctx, func() { out = s.trading })
	return out, err
}

// Status returns the loop summary.
func (s *Scheduler) Status(ctx context.Context) (events.BotStatus, error) {
	var out events.BotStatus
	err := s.do(ctx, func() { out = s.status() })
	return out, err
}

// Snapshot returns a copy of every symbol's state in evaluation order.
func (s *Scheduler) Snapshot(ctx context.Context) ([]SymbolSnapshot, error) {
	var out []SymbolSnapshot
	err := s.do(ctx, func() {
		out = make([]SymbolSnapshot, 0, len(s.order))
		for _, sym := range s.order {
			out = append(out, s.symbols[sym].snapshot(sym))
		}
	})
	return out, err
}

func (s *Scheduler) persistSymbols(ctx context.Context) {
	if err := s.store.SetActiveSymbols(ctx, s.order); err != nil {
		s.logger.Warn("failed to persist active symbols", zap.Error(err))
	}
}
