// Package yahoo provides daily and intraday bars from the Yahoo Finance chart API.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/newthinker/quorum/internal/core"
	"github.com/newthinker/quorum/internal/marketdata"
)

const (
	baseURL = "https://query1.finance.yahoo.com/v8/finance/chart"
)

// validSymbol matches stock symbols like AAPL, MSFT, 600519.SH, 0700.HK, BRK-B
var validSymbol = regexp.MustCompile(`^[A-Za-z0-9]{1,10}([.-][A-Za-z]{1,4})?$`)

// validateSymbol checks if a symbol has valid format
func validateSymbol(symbol string) error {
	if symbol == "" {
		return fmt.Errorf("symbol cannot be empty")
	}
	if len(symbol) > 20 {
		return fmt.Errorf("symbol too long: %s", symbol)
	}
	if !validSymbol.MatchString(symbol) {
		return fmt.Errorf("invalid symbol format: %s", symbol)
	}
	return nil
}

// Option configures the Yahoo provider.
type Option func(*Yahoo)

// WithBaseURL overrides the chart API endpoint.
func WithBaseURL(url string) Option {
	return func(y *Yahoo) { y.client.SetBaseURL(strings.TrimRight(url, "/")) }
}

// WithClock overrides the time source used to compute the query window.
func WithClock(now func() time.Time) Option {
	return func(y *Yahoo) { y.now = now }
}

// Yahoo implements marketdata.Provider.
type Yahoo struct {
	client *resty.Client
	now    func() time.Time
}

// New creates a new Yahoo provider
func New(opts ...Option) *Yahoo {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(10 * time.Second)
	client.SetHeader("User-Agent", "Mozilla/5.0 (compatible; quorum)")

	y := &Yahoo{client: client, now: time.Now}
	for _, opt := range opts {
		opt(y)
	}
	return y
}

func (y *Yahoo) Name() string {
	return "yahoo"
}

// toYahooSymbol converts internal symbol format to Yahoo format
func (y *Yahoo) toYahooSymbol(symbol string) string {
	// Shanghai stocks: 600519.SH -> 600519.SS
	if strings.HasSuffix(symbol, ".SH") {
		return strings.TrimSuffix(symbol, ".SH") + ".SS"
	}
	return symbol
}

func (y *Yahoo) toYahooInterval(timeframe string) string {
	switch timeframe {
	case marketdata.Timeframe1Min:
		return "1m"
	case marketdata.Timeframe5Min:
		return "5m"
	case marketdata.Timeframe15Min:
		return "15m"
	case marketdata.Timeframe1Hour:
		return "60m"
	case marketdata.Timeframe1Week:
		return "1wk"
	default:
		return "1d"
	}
}

// GetBars fetches the newest limit bars.
func (y *Yahoo) GetBars(ctx context.Context, symbol, timeframe string, limit int) ([]core.Bar, error) {
	symbol = core.NormalizeSymbol(symbol)
	if err := validateSymbol(symbol); err != nil {
		return nil, err
	}
	tf, _, err := marketdata.ParseTimeframe(timeframe)
	if err != nil {
		return nil, err
	}
	lookback, err := marketdata.Lookback(tf, limit)
	if err != nil {
		return nil, err
	}

	end := y.now()
	start := end.Add(-lookback)

	resp, err := y.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"interval": y.toYahooInterval(tf),
			"period1":  strconv.FormatInt(start.Unix(), 10),
			"period2":  strconv.FormatInt(end.Unix(), 10),
		}).
		Get("/" + y.toYahooSymbol(symbol))
	if err != nil {
		return nil, fmt.Errorf("fetching history: %w", err)
	}

	var result chartResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		if resp.IsError() {
			return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode())
		}
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if result.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo error: %s", result.Chart.Error.Description)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode())
	}
	if len(result.Chart.Result) == 0 {
		return nil, core.Wrapf(core.ErrNoData, "no data for symbol: %s", symbol)
	}

	r := result.Chart.Result[0]
	if len(r.Indicators.Quote) == 0 {
		return nil, core.Wrapf(core.ErrNoData, "no quotes for symbol: %s", symbol)
	}
	quotes := r.Indicators.Quote[0]

	bars := make([]core.Bar, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		if !quotes.complete(i) {
			continue // Skip missing data
		}
		bars = append(bars, core.Bar{
			Time:   time.Unix(ts, 0).UTC(),
			Open:   *quotes.Open[i],
			High:   *quotes.High[i],
			Low:    *quotes.Low[i],
			Close:  *quotes.Close[i],
			Volume: *quotes.Volume[i],
		})
	}

	return marketdata.Trim(bars, limit), nil
}

// Yahoo API response types
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta       chartMeta  `json:"meta"`
	Timestamp  []int64    `json:"timestamp"`
	Indicators indicators `json:"indicators"`
}

type chartMeta struct {
	Symbol             string  `json:"symbol"`
	RegularMarketPrice float64 `json:"regularMarketPrice"`
}

type indicators struct {
	Quote []quoteIndicator `json:"quote"`
}

type quoteIndicator struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*float64 `json:"volume"`
}

func (q quoteIndicator) complete(i int) bool {
	for _, col := range [][]*float64{q.Open, q.High, q.Low, q.Close, q.Volume} {
		if i >= len(col) || col[i] == nil {
			return false
		}
	}
	return true
}

var _ marketdata.Provider = (*Yahoo)(nil)
