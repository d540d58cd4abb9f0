package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/newthinker/quorum/internal/config"
	"github.com/newthinker/quorum/internal/core"
)

func testConfig() *config.Config {
	cfg := config.Defaults()
	cfg.MarketData.Provider = "synthetic"
	cfg.Metrics.Enabled = false
	cfg.Engine.Symbols = []string{"AAPL"}
	return cfg
}

type sink struct {
	mu    sync.Mutex
	kinds []string
}

func (s *sink) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Type   string `json:"type"`
			Symbol string `json:"symbol"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		s.mu.Lock()
		s.kinds = append(s.kinds, body.Type)
		s.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *sink) seen(kind string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range s.kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   error
	}{
		{
			name:   "alpaca broker without keys",
			mutate: func(c *config.Config) { c.Broker.Provider = "alpaca" },
			want:   core.ErrConfigMissing,
		},
		{
			name:   "inverted lot sizes",
			mutate: func(c *config.Config) { c.Trading.MinLotSize = 50 },
			want:   core.ErrConfigInvalid,
		},
		{
			name: "unknown notifier type",
			mutate: func(c *config.Config) {
				c.Notifiers = map[string]config.NotifierConfig{"x": {Enabled: true, Type: "pager"}}
			},
			want: core.ErrConfigInvalid,
		},
		{
			name:   "finnhub without key",
			mutate: func(c *config.Config) { c.News.Provider = "finnhub" },
			want:   core.ErrConfigMissing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(cfg)
			_, err := New(cfg, nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestApp_Analyze(t *testing.T) {
	a, err := New(testConfig(), nil)
	require.NoError(t, err)
	defer a.Close()

	report, err := a.Analyze(context.Background(), "aapl")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", report.Symbol)
	assert.Len(t, report.Analyses, 10)
	assert.Greater(t, report.Price, 0.0)
	assert.GreaterOrEqual(t, report.Confidence, 50)
}

func TestApp_StaticNewsIsScored(t *testing.T) {
	cfg := testConfig()
	cfg.News.Provider = "static"
	cfg.News.Static = []config.StaticHeadline{
		{Symbol: "aapl", Headline: "Apple beats estimates", Sentiment: 0.8},
	}

	p, err := newNews(cfg, zap.NewNop())
	require.NoError(t, err)

	items, err := p.GetRecentNews(context.Background(), "AAPL", 5)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 0.8, items[0].Sentiment)
}

func TestApp_RunDeliversEvents(t *testing.T) {
	s := &sink{}
	srv := httptest.NewServer(s.handler(t))
	defer srv.Close()

	cfg := testConfig()
	cfg.Notifiers = map[string]config.NotifierConfig{
		"hook": {Enabled: true, URL: srv.URL},
	}

	a, err := New(cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	require.Eventually(t, func() bool {
		return s.seen("analysisUpdate") && s.seen("botStatus")
	}, 5*time.Second, 20*time.Millisecond)

	stats, err := a.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, true, stats["running"])
	assert.Equal(t, []string{"AAPL"}, stats["symbols"])
	assert.Equal(t, []string{"hook"}, stats["notifiers"])

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.False(t, a.Scheduler().Running())
}

func TestApp_ArchiveEnabled(t *testing.T) {
	cfg := testConfig()
	cfg.Archive.Enabled = true
	cfg.Archive.Path = t.TempDir()

	a, err := New(cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	stats, err := a.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, true, stats["archiveEnabled"])
}

func TestNewNotifiers_Filters(t *testing.T) {
	reg, err := newNotifiers(map[string]config.NotifierConfig{
		"trades": {Enabled: true, URL: "http://localhost:1", Events: []string{"newTrade"}},
		"off":    {Enabled: false, URL: "http://localhost:2"},
		"tg":     {Enabled: true, Type: "telegram", BotToken: "t", ChatID: "1"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len())

	forTrades := reg.For("newTrade")
	require.Len(t, forTrades, 2)
	forStatus := reg.For("botStatus")
	require.Len(t, forStatus, 1)
	assert.Equal(t, "tg", forStatus[0].Name())
}
