// Package finnhub fetches company news headlines from the Finnhub API.
package finnhub

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/newthinker/quorum/internal/config"
	"github.com/newthinker/quorum/internal/core"
)

const (
	defaultBaseURL = "https://finnhub.io/api/v1"
	// lookbackDays bounds the company-news query window.
	lookbackDays = 7
)

// Client handles Finnhub API operations.
type Client struct {
	client *resty.Client
	apiKey string
	now    func() time.Time
}

// New creates a Finnhub news client.
func New(cfg config.FinnhubConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, core.Wrapf(core.ErrConfigMissing, "finnhub api key not configured")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}

	client := resty.New()
	client.SetBaseURL(strings.TrimRight(cfg.BaseURL, "/"))
	client.SetTimeout(30 * time.Second)

	return &Client{client: client, apiKey: cfg.APIKey, now: time.Now}, nil
}

// companyNews represents news from Finnhub API.
type companyNews struct {
	Category string `json:"category"`
	DateTime int64  `json:"datetime"`
	Headline string `json:"headline"`
	ID       int64  `json:"id"`
	Related  string `json:"related"`
	Source   string `json:"source"`
	Summary  string `json:"summary"`
	URL      string `json:"url"`
}

// GetRecentNews returns the newest company headlines. Finnhub does not
// score headlines, so every item is marked unscored.
func (c *Client) GetRecentNews(ctx context.Context, symbol string, limit int) ([]core.NewsItem, error) {
	symbol = core.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, core.Wrapf(core.ErrNewsFailed, "symbol cannot be empty")
	}

	to := c.now().UTC()
	from := to.AddDate(0, 0, -lookbackDays)

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol": symbol,
			"from":   from.Format("2006-01-02"),
			"to":     to.Format("2006-01-02"),
			"token":  c.apiKey,
		}).
		Get("/company-news")
	if err != nil {
		return nil, core.Wrapf(core.ErrNewsFailed, "failed to fetch news for %s: %w", symbol, err)
	}
	if resp.IsError() {
		return nil, core.Wrapf(core.ErrNewsFailed, "API error %d: %s", resp.StatusCode(), resp.String())
	}

	var raw []companyNews
	if err := json.Unmarshal(resp.Body(), &raw); err != nil {
		return nil, core.Wrapf(core.ErrNewsFailed, "failed to parse news response: %w", err)
	}

	items := make([]core.NewsItem, 0, len(raw))
	for _, n := range raw {
		if strings.TrimSpace(n.Headline) == "" {
			continue
		}
		items = append(items, core.NewsItem{
			Headline:    n.Headline,
			Source:      n.Source,
			URL:         n.URL,
			Unscored:    true,
			PublishedAt: time.Unix(n.DateTime, 0).UTC(),
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PublishedAt.After(items[j].PublishedAt)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}
