package news

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/quorum/internal/core"
)

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type countingProvider struct {
	items []core.NewsItem
	err   error
	calls int
}

func (p *countingProvider) GetRecentNews(ctx context.Context, symbol string, limit int) ([]core.NewsItem, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return newestFirst(append([]core.NewsItem(nil), p.items...), limit), nil
}

type fakeScorer struct {
	scores map[string]float64
	err    error
}

func (s fakeScorer) Score(ctx context.Context, headline string) (float64, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.scores[headline], nil
}

func TestNone(t *testing.T) {
	items, err := None{}.GetRecentNews(context.Background(), "AAPL", 5)
	assert.NoError(t, err)
	assert.Empty(t, items)
}

func TestStaticProvider(t *testing.T) {
	p := NewStaticProvider(map[string][]core.NewsItem{
		"aapl": {
			{Headline: "old", PublishedAt: base.Add(-48 * time.Hour)},
			{Headline: "new", PublishedAt: base},
			{Headline: "mid", PublishedAt: base.Add(-24 * time.Hour)},
		},
	})

	items, err := p.GetRecentNews(context.Background(), "AAPL", 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "new", items[0].Headline)
	assert.Equal(t, "mid", items[1].Headline)

	items, err = p.GetRecentNews(context.Background(), "MSFT", 2)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCachedProvider(t *testing.T) {
	src := &countingProvider{items: []core.NewsItem{
		{Headline: "a", PublishedAt: base},
		{Headline: "b", PublishedAt: base.Add(-time.Hour)},
		{Headline: "c", PublishedAt: base.Add(-2 * time.Hour)},
	}}
	now := base
	p := NewCachedProvider(src, 15*time.Minute)
	p.now = func() time.Time { return now }
	ctx := context.Background()

	items, err := p.GetRecentNews(ctx, "AAPL", 3)
	require.NoError(t, err)
	assert.Len(t, items, 3)
	assert.Equal(t, 1, src.calls)

	items, err = p.GetRecentNews(ctx, "aapl", 2)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, 1, src.calls, "smaller limit served from cache")

	_, err = p.GetRecentNews(ctx, "AAPL", 5)
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls, "larger limit refetches")

	now = now.Add(20 * time.Minute)
	_, err = p.GetRecentNews(ctx, "AAPL", 5)
	require.NoError(t, err)
	assert.Equal(t, 3, src.calls, "expired entry refetches")
}

func TestCachedProvider_ErrorsNotCached(t *testing.T) {
	src := &countingProvider{err: errors.New("down")}
	p := NewCachedProvider(src, time.Hour)

	_, err := p.GetRecentNews(context.Background(), "AAPL", 5)
	assert.Error(t, err)
	_, err = p.GetRecentNews(context.Background(), "AAPL", 5)
	assert.Error(t, err)
	assert.Equal(t, 2, src.calls)
}

func TestScoredProvider(t *testing.T) {
	src := &countingProvider{items: []core.NewsItem{
		{Headline: "pre-scored", Sentiment: -0.4, PublishedAt: base},
		{Headline: "great quarter", Unscored: true, PublishedAt: base.Add(-time.Minute)},
		{Headline: "off the charts", Unscored: true, PublishedAt: base.Add(-2 * time.Minute)},
	}}

	p := NewScoredProvider(src, fakeScorer{scores: map[string]float64{
		"great quarter":  0.6,
		"off the charts": 3,
	}}, nil)

	items, err := p.GetRecentNews(context.Background(), "AAPL", 5)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, -0.4, items[0].Sentiment)
	assert.Equal(t, 0.6, items[1].Sentiment)
	assert.False(t, items[1].Unscored)
	assert.Equal(t, 1.0, items[2].Sentiment, "clamped")
}

func TestScoredProvider_ScorerFailure(t *testing.T) {
	src := &countingProvider{items: []core.NewsItem{{Headline: "x", Unscored: true}}}
	p := NewScoredProvider(src, fakeScorer{err: errors.New("llm down")}, nil)

	items, err := p.GetRecentNews(context.Background(), "AAPL", 5)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].Unscored)
}

func TestKeywordScorer(t *testing.T) {
	tests := []struct {
		headline string
		want     float64
	}{
		{"Apple beats estimates, shares surge", 1},
		{"Tesla misses deliveries; stock plunges", -1},
		{"Record profit despite lawsuit", 1.0 / 3},
		{"Company holds annual meeting", 0},
	}

	for _, tt := range tests {
		t.Run(tt.headline, func(t *testing.T) {
			got, err := KeywordScorer{}.Score(context.Background(), tt.headline)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 1.0, Clamp(2))
	assert.Equal(t, -1.0, Clamp(-5))
	assert.Equal(t, 0.25, Clamp(0.25))
}
