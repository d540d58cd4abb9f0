package analyzer

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/newthinker/quorum/internal/core"
	"go.uber.org/zap"
)

// Analysis pairs an analyzer's identity with its result.
type Analysis struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
	Result Result  `json:"result"`
}

// Engine manages and runs analyzers
type Engine struct {
	mu        sync.RWMutex
	analyzers []Analyzer
	logger    *zap.Logger
}

// NewEngine creates an engine with the given analyzers.
func NewEngine(logger *zap.Logger, analyzers ...Analyzer) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{logger: logger}
	for _, a := range analyzers {
		e.Register(a)
	}
	return e
}

// Default returns an engine with all ten analyzers registered.
func Default(logger *zap.Logger) *Engine {
	return NewEngine(logger,
		NewMovingAverages(),
		NewMACD(),
		NewSupportResistance(),
		NewRSI(),
		NewBollinger(),
		NewCandlestick(),
		NewVolume(),
		NewFibonacci(),
		NewTrendStrength(),
		NewSentiment(),
	)
}

// Register adds an analyzer, replacing any with the same name. Analyzers
// run in descending weight order; ties keep registration order.
func (e *Engine) Register(a Analyzer) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, existing := range e.analyzers {
		if existing.Name() == a.Name() {
			e.analyzers[i] = a
			return
		}
	}
	e.analyzers = append(e.analyzers, a)
	sort.SliceStable(e.analyzers, func(i, j int) bool {
		return e.analyzers[i].Weight() > e.analyzers[j].Weight()
	})
}

// Get retrieves an analyzer by name
func (e *Engine) Get(name string) (Analyzer, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, a := range e.analyzers {
		if a.Name() == name {
			return a, true
		}
	}
	return nil, false
}

// Analyzers returns the registered analyzers in run order.
func (e *Engine) Analyzers() []Analyzer {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Analyzer, len(e.analyzers))
	copy(out, e.analyzers)
	return out
}

// Run evaluates every analyzer against in. It always returns one Analysis
// per registered analyzer; failures are replaced by the fallback result.
func (e *Engine) Run(ctx context.Context, in Input) ([]Analysis, error) {
	analyzers := e.Analyzers()
	out := make([]Analysis, 0, len(analyzers))

	for _, a := range analyzers {
		select {
		case <-ctx.Done():
			return out, ctx.Err()
		default:
		}

		out = append(out, Analysis{
			Name:   a.Name(),
			Weight: a.Weight(),
			Result: e.runOne(a, in),
		})
	}
	return out, nil
}

func (e *Engine) runOne(a Analyzer, in Input) (res Result) {
	if in.Len() < a.MinBars() {
		e.logger.Debug("analyzer skipped",
			zap.String("analyzer", a.Name()),
			zap.String("symbol", in.Symbol),
			zap.Int("bars", in.Len()),
			zap.Int("min_bars", a.MinBars()),
		)
		return Skipped(in.Len(), a.MinBars())
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("analyzer panicked",
				zap.String("analyzer", a.Name()),
				zap.String("symbol", in.Symbol),
				zap.Any("panic", r),
			)
			res = Fallback()
		}
	}()

	res, err := a.Analyze(in)
	if err != nil {
		e.logger.Warn("analyzer failed",
			zap.String("analyzer", a.Name()),
			zap.String("symbol", in.Symbol),
			zap.Error(core.WrapError(core.ErrAnalyzerFailed, err)),
		)
		return Fallback()
	}
	if !res.Valid() {
		e.logger.Warn("analyzer returned malformed result",
			zap.String("analyzer", a.Name()),
			zap.String("symbol", in.Symbol),
			zap.Error(core.WrapError(core.ErrAnalyzerFailed,
				fmt.Errorf("direction %q confidence %d", res.Direction, res.Confidence))),
		)
		return Fallback()
	}
	return res
}
