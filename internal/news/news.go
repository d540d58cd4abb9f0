// Package news supplies recent scored headlines per symbol.
package news

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/newthinker/quorum/internal/core"
)

// Provider defines the interface for headline sources.
type Provider interface {
	// GetRecentNews returns at most limit headlines for a symbol, newest first.
	GetRecentNews(ctx context.Context, symbol string, limit int) ([]core.NewsItem, error)
}

// None is a provider that never returns headlines.
type None struct{}

// GetRecentNews returns no headlines.
func (None) GetRecentNews(ctx context.Context, symbol string, limit int) ([]core.NewsItem, error) {
	return nil, nil
}

// newestFirst sorts items by publication time, newest first, and keeps limit.
func newestFirst(items []core.NewsItem, limit int) []core.NewsItem {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PublishedAt.After(items[j].PublishedAt)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

// StaticProvider returns configured headlines.
type StaticProvider struct {
	news map[string][]core.NewsItem
}

// NewStaticProvider creates a provider with static headlines keyed by symbol.
func NewStaticProvider(news map[string][]core.NewsItem) *StaticProvider {
	normalized := make(map[string][]core.NewsItem, len(news))
	for sym, items := range news {
		key := core.NormalizeSymbol(sym)
		normalized[key] = append(normalized[key], items...)
	}
	return &StaticProvider{news: normalized}
}

// GetRecentNews returns the configured headlines for the symbol.
func (p *StaticProvider) GetRecentNews(ctx context.Context, symbol string, limit int) ([]core.NewsItem, error) {
	items := p.news[core.NormalizeSymbol(symbol)]
	out := make([]core.NewsItem, len(items))
	copy(out, items)
	return newestFirst(out, limit), nil
}

type cacheEntry struct {
	items []core.NewsItem
	limit int
	at    time.Time
}

// covers reports whether the entry was fetched with at least limit headroom.
func (e cacheEntry) covers(limit int) bool {
	return e.limit <= 0 || (limit > 0 && limit <= e.limit)
}

// CachedProvider wraps a provider with a per-symbol TTL cache.
type CachedProvider struct {
	provider Provider
	ttl      time.Duration
	now      func() time.Time

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// NewCachedProvider creates a cached news provider.
func NewCachedProvider(provider Provider, ttl time.Duration) *CachedProvider {
	return &CachedProvider{
		provider: provider,
		ttl:      ttl,
		now:      time.Now,
		cache:    make(map[string]cacheEntry),
	}
}

// GetRecentNews returns cached news or fetches from the underlying provider.
// Failed fetches are not cached.
func (p *CachedProvider) GetRecentNews(ctx context.Context, symbol string, limit int) ([]core.NewsItem, error) {
	key := core.NormalizeSymbol(symbol)

	p.mu.Lock()
	entry, ok := p.cache[key]
	p.mu.Unlock()
	if ok && p.now().Sub(entry.at) < p.ttl && entry.covers(limit) {
		return newestFirst(append([]core.NewsItem(nil), entry.items...), limit), nil
	}

	items, err := p.provider.GetRecentNews(ctx, symbol, limit)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.cache[key] = cacheEntry{items: items, limit: limit, at: p.now()}
	p.mu.Unlock()
	return append([]core.NewsItem(nil), items...), nil
}
