// Package app wires the configured collaborators into a running bot.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/quorum/internal/analyzer"
	"github.com/newthinker/quorum/internal/archive"
	"github.com/newthinker/quorum/internal/broker"
	alpacabroker "github.com/newthinker/quorum/internal/broker/alpaca"
	"github.com/newthinker/quorum/internal/broker/paper"
	"github.com/newthinker/quorum/internal/config"
	"github.com/newthinker/quorum/internal/consensus"
	"github.com/newthinker/quorum/internal/core"
	"github.com/newthinker/quorum/internal/events"
	"github.com/newthinker/quorum/internal/llm"
	"github.com/newthinker/quorum/internal/llm/factory"
	"github.com/newthinker/quorum/internal/marketdata"
	alpacadata "github.com/newthinker/quorum/internal/marketdata/alpaca"
	"github.com/newthinker/quorum/internal/marketdata/yahoo"
	"github.com/newthinker/quorum/internal/metrics"
	"github.com/newthinker/quorum/internal/news"
	"github.com/newthinker/quorum/internal/news/finnhub"
	"github.com/newthinker/quorum/internal/notifier"
	"github.com/newthinker/quorum/internal/notifier/telegram"
	"github.com/newthinker/quorum/internal/notifier/webhook"
	"github.com/newthinker/quorum/internal/scheduler"
	"github.com/newthinker/quorum/internal/store"
)

const (
	hubBuffer      = 256
	scoreTimeout   = 20 * time.Second
	shutdownPeriod = 10 * time.Second
)

// Option customizes how an App is built.
type Option func(*options)

type options struct {
	clock  scheduler.Clock
	broker broker.Brokerage
	data   marketdata.DataSource
	news   news.Provider
	store  store.Store
}

// WithClock overrides the loop clock.
func WithClock(c scheduler.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithBroker replaces the configured brokerage.
func WithBroker(b broker.Brokerage) Option {
	return func(o *options) { o.broker = b }
}

// WithDataSource replaces the configured bar source.
func WithDataSource(d marketdata.DataSource) Option {
	return func(o *options) { o.data = d }
}

// WithNews replaces the configured news provider.
func WithNews(p news.Provider) Option {
	return func(o *options) { o.news = p }
}

// WithStore replaces the configured store.
func WithStore(s store.Store) Option {
	return func(o *options) { o.store = s }
}

// App is the main application orchestrator
type App struct {
	cfg       *config.Config
	logger    *zap.Logger
	hub       *events.Hub
	metrics   *metrics.Registry
	notifiers *notifier.Registry
	store     store.Store
	exporter  *archive.Exporter
	sched     *scheduler.Scheduler

	mu      sync.Mutex
	running bool
}

// New builds every collaborator from cfg. The returned App owns the store
// and must be closed.
func New(cfg *config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	a := &App{
		cfg:     cfg,
		logger:  logger,
		hub:     events.NewHub(hubBuffer),
		metrics: metrics.NewRegistry(),
	}

	var err error
	a.store = o.store
	if a.store == nil {
		if a.store, err = store.Open(cfg.Store); err != nil {
			return nil, fmt.Errorf("opening store: %w", err)
		}
	}

	data := o.data
	if data == nil {
		if data, err = newDataSource(cfg, logger); err != nil {
			a.Close()
			return nil, err
		}
	}

	brokerage := o.broker
	if brokerage == nil {
		if brokerage, err = newBroker(cfg, data); err != nil {
			a.Close()
			return nil, err
		}
	}

	headlines := o.news
	if headlines == nil {
		if headlines, err = newNews(cfg, logger); err != nil {
			a.Close()
			return nil, err
		}
	}

	if a.notifiers, err = newNotifiers(cfg.Notifiers); err != nil {
		a.Close()
		return nil, err
	}

	if cfg.Archive.Enabled {
		storage, err := archive.Open(cfg.Archive)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("opening archive: %w", err)
		}
		a.exporter = archive.NewExporter(storage, a.store, logger.Named("archive"))
	}

	a.sched, err = scheduler.New(scheduler.ConfigFrom(cfg), scheduler.Deps{
		Broker:    brokerage,
		Data:      data,
		News:      headlines,
		Analyzers: analyzer.Default(logger.Named("analyzer")),
		Store:     a.store,
		Events:    a.hub,
		Metrics:   a.metrics,
		Clock:     o.clock,
		Logger:    logger.Named("scheduler"),
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// Scheduler exposes the loop for commands.
func (a *App) Scheduler() *scheduler.Scheduler {
	return a.sched
}

// Events exposes the event hub.
func (a *App) Events() *events.Hub {
	return a.hub
}

// Metrics exposes the metrics registry.
func (a *App) Metrics() *metrics.Registry {
	return a.metrics
}

// Analyze evaluates one symbol without trading.
func (a *App) Analyze(ctx context.Context, symbol string) (consensus.Report, error) {
	return a.sched.Analyze(ctx, symbol)
}

// Run restores state, starts the side services and blocks in the
// evaluation loop until ctx is done.
func (a *App) Run(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("app already running")
	}
	a.running = true
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		a.running = false
		a.mu.Unlock()
	}()

	if err := a.sched.Load(ctx, a.cfg.Engine.Symbols); err != nil {
		return fmt.Errorf("loading state: %w", err)
	}

	var wg sync.WaitGroup
	defer wg.Wait()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if a.notifiers.Len() > 0 {
		ch, unsubscribe := a.hub.Subscribe()
		defer unsubscribe()
		wg.Add(1)
		go func() {
			defer wg.Done()
			notifier.Forward(ctx, ch, a.notifiers, a.metrics, a.logger.Named("notifier"))
		}()
	}

	if a.exporter != nil {
		if err := a.exporter.Start(ctx, a.cfg.Archive.Schedule); err != nil {
			return err
		}
		defer a.exporter.Stop()
	}

	if a.cfg.Metrics.Enabled {
		srv := a.metricsServer()
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("metrics server error", zap.Error(err))
			}
		}()
		defer func() {
			sctx, scancel := context.WithTimeout(context.Background(), shutdownPeriod)
			defer scancel()
			if err := srv.Shutdown(sctx); err != nil {
				a.logger.Warn("metrics server shutdown", zap.Error(err))
			}
		}()
	}

	a.logger.Info("quorum starting",
		zap.Strings("symbols", a.cfg.Engine.Symbols),
		zap.String("broker", a.cfg.Broker.Provider),
		zap.String("marketdata", a.cfg.MarketData.Provider),
		zap.Int("notifiers", a.notifiers.Len()),
	)

	loopErr := make(chan error, 1)
	go func() { loopErr <- a.sched.Run(ctx) }()

	if a.cfg.Engine.AutoStart {
		if err := a.sched.Start(ctx); err != nil && ctx.Err() == nil {
			cancel()
			<-loopErr
			return err
		}
	}

	err := <-loopErr

	sctx, scancel := context.WithTimeout(context.Background(), shutdownPeriod)
	defer scancel()
	if serr := a.sched.Stop(sctx); serr != nil {
		a.logger.Warn("stopping scheduler", zap.Error(serr))
	}
	a.logger.Info("quorum shutting down")
	return err
}

func (a *App) metricsServer() *http.Server {
	path := a.cfg.Metrics.Path
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, a.metrics.Handler())
	return &http.Server{
		Addr:              a.cfg.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// Close releases the store and the event hub.
func (a *App) Close() error {
	a.hub.Close()
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}

// GetStats returns application statistics
func (a *App) GetStats(ctx context.Context) (map[string]any, error) {
	status, err := a.sched.Status(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, a.notifiers.Len())
	for _, n := range a.notifiers.GetAll() {
		names = append(names, n.Name())
	}
	return map[string]any{
		"running":        status.Running,
		"symbols":        status.Symbols,
		"cycles":         status.Cycles,
		"lastError":      status.LastError,
		"notifiers":      names,
		"subscribers":    a.hub.Subscribers(),
		"droppedEvents":  a.hub.Dropped(),
		"archiveEnabled": a.exporter != nil,
	}, nil
}

// newDataSource registers every usable bar provider and selects the
// configured one. Alpaca is only registered when credentials are present.
func newDataSource(cfg *config.Config, logger *zap.Logger) (marketdata.DataSource, error) {
	synthetic := marketdata.NewSynthetic(time.Now)

	providers := marketdata.NewRegistry()
	providers.Register(synthetic)
	providers.Register(yahoo.New())
	if cfg.Broker.Alpaca.KeyID != "" && cfg.Broker.Alpaca.SecretKey != "" {
		p, err := alpacadata.New(cfg.Broker.Alpaca)
		if err != nil {
			return nil, err
		}
		providers.Register(p)
	}

	name := cfg.MarketData.Provider
	if name == "synthetic" {
		return synthetic, nil
	}
	provider, ok := providers.Get(name)
	if !ok {
		return nil, core.Wrapf(core.ErrConfigInvalid,
			"marketdata provider %q unavailable, have %v", name, providers.Names())
	}

	var fallback *marketdata.Synthetic
	if cfg.MarketData.SyntheticFallback {
		fallback = synthetic
	}
	logger.Debug("marketdata provider selected",
		zap.String("provider", provider.Name()),
		zap.Bool("synthetic_fallback", fallback != nil),
	)
	return marketdata.NewLive(provider, fallback, logger.Named("marketdata")), nil
}

// newBroker builds the brokerage. The paper broker prices symbols from the
// latest bar of the data source.
func newBroker(cfg *config.Config, data marketdata.DataSource) (broker.Brokerage, error) {
	if cfg.Broker.Provider == "alpaca" {
		c, err := alpacabroker.New(cfg.Broker.Alpaca)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	timeframe := cfg.Engine.Timeframe
	return paper.New(cfg.Broker.Paper.StartingEquity,
		paper.WithPriceSource(func(ctx context.Context, symbol string) (float64, error) {
			series, err := data.Fetch(ctx, symbol, timeframe, marketdata.MinBars)
			if err != nil {
				return 0, err
			}
			if len(series.Bars) == 0 {
				return 0, broker.ErrNoQuote
			}
			return series.Last().Close, nil
		}),
	), nil
}

func newNews(cfg *config.Config, logger *zap.Logger) (news.Provider, error) {
	var p news.Provider
	switch cfg.News.Provider {
	case "", "none":
		return news.None{}, nil
	case "static":
		items := make(map[string][]core.NewsItem)
		for _, h := range cfg.News.Static {
			sym := core.NormalizeSymbol(h.Symbol)
			items[sym] = append(items[sym], core.NewsItem{
				Headline:  h.Headline,
				Source:    "static",
				Sentiment: news.Clamp(h.Sentiment),
			})
		}
		p = news.NewStaticProvider(items)
	case "finnhub":
		c, err := finnhub.New(cfg.News.Finnhub)
		if err != nil {
			return nil, err
		}
		p = c
	default:
		return nil, core.Wrapf(core.ErrConfigInvalid, "unknown news provider %q", cfg.News.Provider)
	}

	var scorer news.Scorer = news.KeywordScorer{}
	if cfg.News.ScoreWithLLM {
		provider, err := factory.New(cfg.LLM)
		if err != nil {
			return nil, fmt.Errorf("creating llm provider: %w", err)
		}
		scorer = llm.NewSentimentScorer(provider, scoreTimeout)
	}
	p = news.NewScoredProvider(p, scorer, logger.Named("news"))

	if cfg.News.CacheTTL > 0 {
		p = news.NewCachedProvider(p, cfg.News.CacheTTL)
	}
	return p, nil
}

func newNotifiers(cfgs map[string]config.NotifierConfig) (*notifier.Registry, error) {
	reg := notifier.NewRegistry()

	names := make([]string, 0, len(cfgs))
	for name := range cfgs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		nc := cfgs[name]
		if !nc.Enabled {
			continue
		}

		var (
			n   notifier.Notifier
			err error
		)
		switch nc.Type {
		case "", "webhook":
			n, err = webhook.New(name, nc.URL, nc.Headers)
		case "telegram":
			n, err = telegram.New(name, nc.BotToken, nc.ChatID, "")
		default:
			err = core.Wrapf(core.ErrConfigInvalid, "notifier %s: unknown type %q", name, nc.Type)
		}
		if err != nil {
			return nil, err
		}

		kinds := make([]events.Kind, 0, len(nc.Events))
		for _, ev := range nc.Events {
			k, ok := events.ParseKind(ev)
			if !ok {
				return nil, core.Wrapf(core.ErrConfigInvalid, "notifier %s: unknown event %q", name, ev)
			}
			kinds = append(kinds, k)
		}
		if err := reg.Register(n, kinds...); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
