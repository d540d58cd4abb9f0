// Package scheduler owns the evaluation loop: one goroutine walks the
// active symbols, runs analysis and consensus, and drives the position
// lifecycle. Outside callers reach the loop's state only through commands.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/quorum/internal/analyzer"
	"github.com/newthinker/quorum/internal/broker"
	"github.com/newthinker/quorum/internal/config"
	"github.com/newthinker/quorum/internal/events"
	"github.com/newthinker/quorum/internal/lifecycle"
	"github.com/newthinker/quorum/internal/marketdata"
	"github.com/newthinker/quorum/internal/news"
	"github.com/newthinker/quorum/internal/store"
)

// Metrics is the subset of the metrics registry the loop reports to.
type Metrics interface {
	RecordCycle(duration float64)
	RecordError(stage string)
	RecordAnalysis(symbol, direction string, confidence int)
	RecordFallback(symbol string)
	SetActiveSymbols(n int)
	ForgetSymbol(symbol string)
}

type nopMetrics struct{}

func (nopMetrics) RecordCycle(float64)                {}
func (nopMetrics) RecordError(string)                 {}
func (nopMetrics) RecordAnalysis(string, string, int) {}
func (nopMetrics) RecordFallback(string)              {}
func (nopMetrics) SetActiveSymbols(int)               {}
func (nopMetrics) ForgetSymbol(string)                {}

// Config holds the loop settings.
type Config struct {
	Interval      time.Duration
	Backoff       time.Duration
	Timeframe     string
	BarLimit      int
	NewsLimit     int
	DefaultEquity float64
	Trading       config.Trading
}

// ConfigFrom extracts loop settings from the application config.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		Interval:      cfg.Engine.Interval,
		Backoff:       cfg.Engine.Backoff,
		Timeframe:     cfg.Engine.Timeframe,
		BarLimit:      cfg.Engine.BarLimit,
		NewsLimit:     cfg.Engine.NewsLimit,
		DefaultEquity: cfg.Engine.DefaultEquity,
		Trading:       cfg.Trading,
	}
}

// Deps are the collaborators of the loop. Broker, Data and Store are
// required.
type Deps struct {
	Broker    broker.Brokerage
	Data      marketdata.DataSource
	News      news.Provider
	Analyzers *analyzer.Engine
	Store     store.Store
	Events    events.Publisher
	Metrics   Metrics
	Clock     Clock
	Logger    *zap.Logger
}

type command struct {
	fn   func()
	done chan struct{}
}

// Scheduler runs the evaluation loop.
type Scheduler struct {
	cfg       Config
	broker    broker.Brokerage
	data      marketdata.DataSource
	news      news.Provider
	analyzers *analyzer.Engine
	store     store.Store
	events    events.Publisher
	metrics   Metrics
	clock     Clock
	logger    *zap.Logger
	manager   *lifecycle.Manager

	running atomic.Bool
	cmds    chan command
	wake    chan struct{}

	// mu guards the handoff of ownership between Run and inline commands.
	mu      sync.Mutex
	looping bool
	exited  chan struct{}

	// Owned by whoever holds the loop: Run's goroutine, or an inline
	// command while Run is not active.
	symbols   map[string]*SymbolState
	order     []string
	trading   config.Trading
	cycles    int64
	lastCycle time.Time
	lastError string
}

// New creates a scheduler. It does not start the loop.
func New(cfg Config, deps Deps) (*Scheduler, error) {
	if deps.Broker == nil || deps.Data == nil || deps.Store == nil {
		return nil, errors.New("scheduler: broker, data source and store are required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 60 * time.Second
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 10 * time.Second
	}
	if cfg.Timeframe == "" {
		cfg.Timeframe = marketdata.Timeframe1Day
	}
	if cfg.BarLimit <= 0 {
		cfg.BarLimit = 250
	}
	if cfg.NewsLimit <= 0 {
		cfg.NewsLimit = 5
	}
	if cfg.DefaultEquity <= 0 {
		cfg.DefaultEquity = 10000
	}
	if err := cfg.Trading.Validate(); err != nil {
		return nil, err
	}

	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.News == nil {
		deps.News = news.None{}
	}
	if deps.Analyzers == nil {
		deps.Analyzers = analyzer.Default(deps.Logger)
	}
	if deps.Events == nil {
		deps.Events = events.Discard{}
	}
	if deps.Metrics == nil {
		deps.Metrics = nopMetrics{}
	}
	if deps.Clock == nil {
		deps.Clock = SystemClock()
	}

	opts := []lifecycle.Option{lifecycle.WithClock(deps.Clock.Now)}
	if rec, ok := deps.Metrics.(lifecycle.Recorder); ok {
		opts = append(opts, lifecycle.WithRecorder(rec))
	}

	return &Scheduler{
		cfg:       cfg,
		broker:    deps.Broker,
		data:      deps.Data,
		news:      deps.News,
		analyzers: deps.Analyzers,
		store:     deps.Store,
		events:    deps.Events,
		metrics:   deps.Metrics,
		clock:     deps.Clock,
		logger:    deps.Logger,
		manager:   lifecycle.NewManager(deps.Broker, deps.Store, deps.Events, deps.Logger, opts...),
		cmds:      make(chan command),
		wake:      make(chan struct{}, 1),
		symbols:   make(map[string]*SymbolState),
		trading:   cfg.Trading,
	}, nil
}

// Run is the control loop. While running it evaluates every symbol, then
// waits Interval (Backoff after a failed cycle) before the next pass.
// Commands are served between cycles. Run returns when ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.looping {
		s.mu.Unlock()
		return errors.New("scheduler: loop already active")
	}
	s.looping = true
	exited := make(chan struct{})
	s.exited = exited
	select {
	case <-s.wake:
	default:
	}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.looping = false
		close(exited)
		s.mu.Unlock()
	}()

	s.logger.Info("evaluation loop started",
		zap.Duration("interval", s.cfg.Interval),
		zap.Duration("backoff", s.cfg.Backoff),
		zap.String("timeframe", s.cfg.Timeframe),
	)

	due := true
	var wait <-chan time.Time
	for {
		if due && s.running.Load() {
			due = false
			delay := s.cfg.Interval
			if err := s.cycle(ctx); err != nil {
				delay = s.cfg.Backoff
			}
			if ctx.Err() != nil {
				return nil
			}
			wait = s.clock.After(delay)
		}

		select {
		case <-ctx.Done():
			s.logger.Info("evaluation loop stopped")
			return nil
		case cmd := <-s.cmds:
			cmd.fn()
			close(cmd.done)
		case <-s.wake:
			due, wait = true, nil
		case <-wait:
			due, wait = true, nil
		}
	}
}

// do runs fn as the owner of the loop state: on the loop goroutine when
// Run is active, inline otherwise.
func (s *Scheduler) do(ctx context.Context, fn func()) error {
	for {
		s.mu.Lock()
		if !s.looping {
			fn()
			s.mu.Unlock()
			return nil
		}
		exited := s.exited
		s.mu.Unlock()

		cmd := command{fn: fn, done: make(chan struct{})}
		select {
		case s.cmds <- cmd:
			select {
			case <-cmd.done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		case <-exited:
			// the loop went away before taking the command; run it inline
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Start enables cycles and triggers one immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.running.Swap(true) {
		return nil
	}
	err := s.do(ctx, func() {
		s.logger.Info("trading started", zap.Strings("symbols", s.order))
		s.publishStatus()
	})
	select {
	case s.wake <- struct{}{}:
	default:
	}
	return err
}

// Stop disables further cycles. A cycle in progress runs to completion
// and Stop returns after it.
func (s *Scheduler) Stop(ctx context.Context) error {
	if !s.running.Swap(false) {
		return nil
	}
	return s.do(ctx, func() {
		s.logger.Info("trading stopped", zap.Int64("cycles", s.cycles))
		s.publishStatus()
	})
}

// Running reports whether cycles are enabled.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// RunOnce executes a single cycle as the loop owner, regardless of the
// running flag.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	var err error
	if derr := s.do(ctx, func() { err = s.cycle(ctx) }); derr != nil {
		return derr
	}
	return err
}

func (s *Scheduler) status() events.BotStatus {
	symbols := make([]string, len(s.order))
	copy(symbols, s.order)
	return events.BotStatus{
		Running:   s.running.Load(),
		Symbols:   symbols,
		Cycles:    s.cycles,
		LastCycle: s.lastCycle,
		LastError: s.lastError,
	}
}

func (s *Scheduler) publishStatus() {
	s.events.Publish(events.Status(s.status(), s.clock.Now()))
}
