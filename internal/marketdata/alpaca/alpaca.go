// Package alpaca provides bars from the Alpaca market data API.
package alpaca

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/newthinker/quorum/internal/config"
	"github.com/newthinker/quorum/internal/core"
	"github.com/newthinker/quorum/internal/marketdata"
)

const (
	defaultDataURL = "https://data.alpaca.markets"
	pageLimit      = 10000
)

// Provider implements marketdata.Provider for Alpaca stock bars.
type Provider struct {
	client *resty.Client
	feed   string
	now    func() time.Time
}

// New creates an Alpaca bar provider.
func New(cfg config.AlpacaConfig) (*Provider, error) {
	if cfg.KeyID == "" || cfg.SecretKey == "" {
		return nil, core.Wrapf(core.ErrConfigMissing, "alpaca key id and secret key are required")
	}
	if cfg.DataURL == "" {
		cfg.DataURL = defaultDataURL
	}
	if cfg.Feed == "" {
		cfg.Feed = "iex"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	client := resty.New()
	client.SetBaseURL(strings.TrimRight(cfg.DataURL, "/"))
	client.SetTimeout(cfg.Timeout)
	client.SetHeader("APCA-API-KEY-ID", cfg.KeyID)
	client.SetHeader("APCA-API-SECRET-KEY", cfg.SecretKey)

	return &Provider{client: client, feed: cfg.Feed, now: time.Now}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return "alpaca"
}

type barsResponse struct {
	Bars []struct {
		Time   time.Time `json:"t"`
		Open   float64   `json:"o"`
		High   float64   `json:"h"`
		Low    float64   `json:"l"`
		Close  float64   `json:"c"`
		Volume float64   `json:"v"`
	} `json:"bars"`
	Symbol        string  `json:"symbol"`
	NextPageToken *string `json:"next_page_token"`
}

// GetBars requests the newest limit bars in descending order and returns
// them oldest first.
func (p *Provider) GetBars(ctx context.Context, symbol, timeframe string, limit int) ([]core.Bar, error) {
	symbol = core.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, core.Wrapf(core.ErrMarketData, "symbol cannot be empty")
	}
	tf, _, err := marketdata.ParseTimeframe(timeframe)
	if err != nil {
		return nil, err
	}
	lookback, err := marketdata.Lookback(tf, limit)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > pageLimit {
		limit = pageLimit
	}

	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"timeframe":  tf,
			"start":      p.now().Add(-lookback).UTC().Format(time.RFC3339),
			"limit":      strconv.Itoa(limit),
			"sort":       "desc",
			"adjustment": "split",
			"feed":       p.feed,
		}).
		Get(fmt.Sprintf("/v2/stocks/%s/bars", symbol))
	if err != nil {
		return nil, core.WrapError(core.ErrMarketData, err)
	}
	if resp.IsError() {
		return nil, core.Wrapf(core.ErrMarketData, "alpaca API error %d: %s", resp.StatusCode(), resp.String())
	}

	var raw barsResponse
	if err := json.Unmarshal(resp.Body(), &raw); err != nil {
		return nil, core.Wrapf(core.ErrMarketData, "decoding bars: %w", err)
	}

	bars := make([]core.Bar, 0, len(raw.Bars))
	for i := len(raw.Bars) - 1; i >= 0; i-- {
		b := raw.Bars[i]
		bars = append(bars, core.Bar{
			Time:   b.Time,
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		})
	}
	return marketdata.Trim(bars, limit), nil
}

var _ marketdata.Provider = (*Provider)(nil)
