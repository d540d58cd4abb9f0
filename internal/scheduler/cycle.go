package scheduler

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/newthinker/quorum/internal/analyzer"
	"github.com/newthinker/quorum/internal/consensus"
	"github.com/newthinker/quorum/internal/core"
	"github.com/newthinker/quorum/internal/events"
	"github.com/newthinker/quorum/internal/lifecycle"
	"github.com/newthinker/quorum/internal/marketdata"
	"github.com/newthinker/quorum/internal/risk"
)

// cycle runs one pass and records its outcome. A panic anywhere in the
// pass is recovered and reported as a cycle error.
func (s *Scheduler) cycle(ctx context.Context) (err error) {
	start := s.clock.Now()
	defer func() {
		if r := recover(); r != nil {
			err = core.Wrapf(core.ErrCycleFailed, "panic: %v", r)
		}
		s.cycles++
		s.lastCycle = start
		s.lastError = ""
		if err != nil {
			s.lastError = err.Error()
			s.metrics.RecordError("cycle")
			s.logger.Error("cycle failed", zap.Int64("cycle", s.cycles), zap.Error(err))
		}
		s.metrics.RecordCycle(s.clock.Now().Sub(start).Seconds())
		s.publishStatus()
	}()
	return s.runCycle(ctx)
}

type account struct {
	equity    float64
	positions map[string]core.Position
	// live is false when the brokerage could not be reached and the
	// positions were rebuilt from the trade journal.
	live bool
}

func (s *Scheduler) runCycle(ctx context.Context) error {
	acct := s.account(ctx)
	s.syncPositions(ctx, acct)

	equity := acct.equity
	evaluated, failed := 0, 0
	for _, sym := range s.order {
		if ctx.Err() != nil {
			break
		}
		st, ok := s.symbols[sym]
		if !ok {
			continue
		}
		evaluated++
		if err := s.evaluate(ctx, sym, st, &equity); err != nil {
			failed++
			s.logger.Warn("symbol evaluation failed", zap.String("symbol", sym), zap.Error(err))
		}
	}

	s.logger.Debug("cycle complete",
		zap.Int("symbols", evaluated),
		zap.Int("failed", failed),
		zap.Float64("equity", equity),
		zap.Bool("live_account", acct.live),
	)
	if evaluated > 0 && failed == evaluated {
		return core.Wrapf(core.ErrCycleFailed, "all %d symbols failed", failed)
	}
	return nil
}

// account fetches equity and positions. When the brokerage is unreachable
// the default equity is used and positions come from the journal.
func (s *Scheduler) account(ctx context.Context) account {
	known := s.knownPositions(ctx)

	equity, err := s.broker.GetAccountEquity(ctx)
	if err == nil {
		held, perr := s.broker.GetOpenPositions(ctx)
		if perr == nil {
			return account{equity: equity, positions: lifecycle.Reconcile(held, known), live: true}
		}
		err = perr
	}

	s.metrics.RecordError("account")
	s.logger.Warn("account unavailable, using defaults",
		zap.Float64("equity", s.cfg.DefaultEquity),
		zap.Error(err),
	)
	return account{equity: s.cfg.DefaultEquity, positions: s.journalPositions(ctx)}
}

// knownPositions are the positions the journal and the loop already track,
// used to keep position IDs stable across reconciliation.
func (s *Scheduler) knownPositions(ctx context.Context) map[string]core.Position {
	known := s.journalPositions(ctx)
	for sym, st := range s.symbols {
		if p := st.Position(); p != nil {
			known[sym] = *p
		}
	}
	return known
}

func (s *Scheduler) journalPositions(ctx context.Context) map[string]core.Position {
	open, err := s.store.GetOpenTrades(ctx)
	if err != nil {
		s.logger.Warn("failed to load open trades", zap.Error(err))
		return make(map[string]core.Position)
	}
	return lifecycle.FromTrades(open)
}

// syncPositions aligns symbol state with the account. A position the live
// brokerage no longer holds was closed there (stop or target) and is
// settled into the journal.
func (s *Scheduler) syncPositions(ctx context.Context, acct account) {
	for sym, st := range s.symbols {
		if held, ok := acct.positions[sym]; ok {
			st.setPosition(&held)
			continue
		}
		prev := st.Position()
		if prev != nil && acct.live {
			price := st.lastPrice()
			if q, err := s.broker.GetLatestQuote(ctx, sym); err == nil && q.Mid() > 0 {
				price = q.Mid()
			}
			closed, _ := s.manager.Settle(ctx, *prev, price)
			s.logger.Info("position closed at brokerage",
				zap.String("symbol", sym),
				zap.Float64("exit", *closed.ExitPrice),
			)
		}
		st.setPosition(nil)
	}
}

// evaluate runs analysis for one symbol and applies the resulting
// lifecycle transition.
func (s *Scheduler) evaluate(ctx context.Context, sym string, st *SymbolState, equity *float64) error {
	report, series, err := s.analyze(ctx, sym)
	if err != nil {
		s.metrics.RecordError("analysis")
		return err
	}
	if series.Origin == marketdata.OriginSynthetic {
		s.metrics.RecordFallback(sym)
	}

	st.History.Push(report)
	st.LastAnalysis = &report
	s.events.Publish(events.AnalysisUpdate(report))
	s.metrics.RecordAnalysis(sym, string(report.Direction), report.Confidence)

	if !st.IsTrading {
		return nil
	}

	pos := st.Position()
	d := lifecycle.Decide(report, pos)
	if d.Action == lifecycle.ActionHold {
		s.logger.Debug("hold", zap.String("symbol", sym), zap.String("reason", d.Reason))
		return nil
	}

	s.logger.Info("lifecycle transition",
		zap.String("symbol", sym),
		zap.String("action", string(d.Action)),
		zap.String("reason", d.Reason),
	)
	out, err := s.manager.Apply(ctx, sym, d, lifecycle.Request{
		Report:   report,
		Position: pos,
		Equity:   *equity,
		History:  st.History.Prices(risk.LevelWindow),
		Trading:  s.trading,
	})
	if err != nil {
		s.metrics.RecordError("lifecycle")
		return err
	}
	if out.Closed != nil && out.Closed.PnL != nil {
		*equity += *out.Closed.PnL
	}
	st.setPosition(out.Position)
	return nil
}

// analyze fetches bars and news and folds the analyzers into a report.
// It reads no loop state.
func (s *Scheduler) analyze(ctx context.Context, sym string) (consensus.Report, marketdata.Series, error) {
	series, err := s.data.Fetch(ctx, sym, s.cfg.Timeframe, s.cfg.BarLimit)
	if err != nil {
		return consensus.Report{}, series, fmt.Errorf("fetching bars for %s: %w", sym, err)
	}
	if len(series.Bars) == 0 {
		return consensus.Report{}, series, core.Wrapf(core.ErrNoData, "no bars for %s", sym)
	}

	items, err := s.news.GetRecentNews(ctx, sym, s.cfg.NewsLimit)
	if err != nil {
		s.metrics.RecordError("news")
		s.logger.Warn("news unavailable", zap.String("symbol", sym), zap.Error(err))
		items = nil
	}

	analyses, err := s.analyzers.Run(ctx, analyzer.NewInput(sym, series.Bars, items))
	if err != nil {
		return consensus.Report{}, series, fmt.Errorf("analyzing %s: %w", sym, err)
	}
	return consensus.Evaluate(sym, series.Last().Close, s.clock.Now(), analyses), series, nil
}

// Analyze evaluates symbol once without touching loop state or trading.
func (s *Scheduler) Analyze(ctx context.Context, symbol string) (consensus.Report, error) {
	symbol = core.NormalizeSymbol(symbol)
	if symbol == "" {
		return consensus.Report{}, core.Wrapf(core.ErrConfigInvalid, "symbol cannot be empty")
	}
	report, _, err := s.analyze(ctx, symbol)
	return report, err
}
