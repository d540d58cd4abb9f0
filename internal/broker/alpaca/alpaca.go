// Package alpaca implements broker.Brokerage against the Alpaca REST API.
package alpaca

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/newthinker/quorum/internal/broker"
	"github.com/newthinker/quorum/internal/config"
	"github.com/newthinker/quorum/internal/core"
)

const (
	defaultTradingURL = "https://paper-api.alpaca.markets"
	defaultDataURL    = "https://data.alpaca.markets"
	defaultFeed       = "iex"
	defaultTimeout    = 15 * time.Second
)

// Client talks to the Alpaca trading and market data APIs.
type Client struct {
	trading *resty.Client
	data    *resty.Client
	feed    string
}

// New creates an Alpaca brokerage client.
func New(cfg config.AlpacaConfig) (*Client, error) {
	if cfg.KeyID == "" || cfg.SecretKey == "" {
		return nil, core.Wrapf(core.ErrConfigMissing, "alpaca key id and secret key are required")
	}
	if cfg.TradingURL == "" {
		cfg.TradingURL = defaultTradingURL
	}
	if cfg.DataURL == "" {
		cfg.DataURL = defaultDataURL
	}
	if cfg.Feed == "" {
		cfg.Feed = defaultFeed
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	return &Client{
		trading: newRestClient(cfg.TradingURL, cfg),
		data:    newRestClient(cfg.DataURL, cfg),
		feed:    cfg.Feed,
	}, nil
}

func newRestClient(baseURL string, cfg config.AlpacaConfig) *resty.Client {
	c := resty.New()
	c.SetBaseURL(strings.TrimRight(baseURL, "/"))
	c.SetTimeout(cfg.Timeout)
	c.SetHeader("APCA-API-KEY-ID", cfg.KeyID)
	c.SetHeader("APCA-API-SECRET-KEY", cfg.SecretKey)
	c.SetHeader("Accept", "application/json")
	return c
}

// Name returns the brokerage identifier.
func (c *Client) Name() string {
	return "alpaca"
}

type accountResponse struct {
	Equity string `json:"equity"`
	Status string `json:"status"`
}

// GetAccountEquity returns the account equity.
func (c *Client) GetAccountEquity(ctx context.Context) (float64, error) {
	var acct accountResponse
	if err := c.get(ctx, c.trading, "/v2/account", nil, &acct); err != nil {
		return 0, err
	}
	equity, err := strconv.ParseFloat(acct.Equity, 64)
	if err != nil {
		return 0, core.Wrapf(core.ErrBrokerFailed, "parse equity %q: %w", acct.Equity, err)
	}
	return equity, nil
}

type positionResponse struct {
	AssetID       string `json:"asset_id"`
	Symbol        string `json:"symbol"`
	Qty           string `json:"qty"`
	Side          string `json:"side"`
	AvgEntryPrice string `json:"avg_entry_price"`
}

// GetOpenPositions lists open positions.
func (c *Client) GetOpenPositions(ctx context.Context) ([]core.Position, error) {
	var raw []positionResponse
	if err := c.get(ctx, c.trading, "/v2/positions", nil, &raw); err != nil {
		return nil, err
	}

	positions := make([]core.Position, 0, len(raw))
	for _, p := range raw {
		qty, err := strconv.ParseFloat(p.Qty, 64)
		if err != nil {
			return nil, core.Wrapf(core.ErrBrokerFailed, "parse qty for %s: %w", p.Symbol, err)
		}
		entry, err := strconv.ParseFloat(p.AvgEntryPrice, 64)
		if err != nil {
			return nil, core.Wrapf(core.ErrBrokerFailed, "parse entry price for %s: %w", p.Symbol, err)
		}
		side := core.SideLong
		if p.Side == "short" || qty < 0 {
			side = core.SideShort
		}
		if qty < 0 {
			qty = -qty
		}
		positions = append(positions, core.Position{
			ID:         p.AssetID,
			Symbol:     core.NormalizeSymbol(p.Symbol),
			Side:       side,
			Quantity:   qty,
			EntryPrice: entry,
			Status:     core.StatusOpen,
		})
	}
	return positions, nil
}

type latestQuoteResponse struct {
	Symbol string `json:"symbol"`
	Quote  struct {
		Time     time.Time `json:"t"`
		AskPrice float64   `json:"ap"`
		BidPrice float64   `json:"bp"`
	} `json:"quote"`
}

// GetLatestQuote fetches the latest NBBO quote from the data API.
func (c *Client) GetLatestQuote(ctx context.Context, symbol string) (core.Quote, error) {
	symbol = core.NormalizeSymbol(symbol)
	if symbol == "" {
		return core.Quote{}, broker.ErrInvalidSymbol
	}

	var raw latestQuoteResponse
	path := fmt.Sprintf("/v2/stocks/%s/quotes/latest", symbol)
	if err := c.get(ctx, c.data, path, map[string]string{"feed": c.feed}, &raw); err != nil {
		return core.Quote{}, err
	}

	q := core.Quote{
		Symbol: symbol,
		Bid:    raw.Quote.BidPrice,
		Ask:    raw.Quote.AskPrice,
		Time:   raw.Quote.Time,
	}
	if !q.IsValid() {
		return core.Quote{}, broker.ErrNoQuote
	}
	return q, nil
}

type legPrice struct {
	LimitPrice string `json:"limit_price,omitempty"`
	StopPrice  string `json:"stop_price,omitempty"`
}

type orderRequest struct {
	Symbol        string   `json:"symbol"`
	Qty           string   `json:"qty"`
	Side          string   `json:"side"`
	Type          string   `json:"type"`
	TimeInForce   string   `json:"time_in_force"`
	OrderClass    string   `json:"order_class"`
	ClientOrderID string   `json:"client_order_id,omitempty"`
	TakeProfit    legPrice `json:"take_profit"`
	StopLoss      legPrice `json:"stop_loss"`
}

type orderResponse struct {
	ID             string    `json:"id"`
	ClientOrderID  string    `json:"client_order_id"`
	Symbol         string    `json:"symbol"`
	Qty            string    `json:"qty"`
	Side           string    `json:"side"`
	Status         string    `json:"status"`
	FilledAvgPrice *string   `json:"filled_avg_price"`
	SubmittedAt    time.Time `json:"submitted_at"`
}

// SubmitBracketOrder places a market bracket order.
func (c *Client) SubmitBracketOrder(ctx context.Context, order broker.BracketOrder) (*broker.OrderResult, error) {
	order.Symbol = core.NormalizeSymbol(order.Symbol)
	if err := order.Validate(); err != nil {
		return nil, err
	}

	req := orderRequest{
		Symbol:        order.Symbol,
		Qty:           formatNumber(order.Quantity),
		Side:          strings.ToLower(string(order.Side)),
		Type:          "market",
		TimeInForce:   "gtc",
		OrderClass:    "bracket",
		ClientOrderID: order.ClientOrderID,
		TakeProfit:    legPrice{LimitPrice: formatPrice(order.TakeProfit)},
		StopLoss:      legPrice{StopPrice: formatPrice(order.StopLoss)},
	}

	resp, err := c.trading.R().
		SetContext(ctx).
		SetBody(req).
		Post("/v2/orders")
	if err != nil {
		return nil, core.WrapError(core.ErrOrderFailed, err)
	}
	if resp.IsError() {
		return nil, core.WrapError(core.ErrOrderFailed, apiError(resp))
	}

	var raw orderResponse
	if err := json.Unmarshal(resp.Body(), &raw); err != nil {
		return nil, core.Wrapf(core.ErrOrderFailed, "parse order response: %w", err)
	}

	result := &broker.OrderResult{
		OrderID:       raw.ID,
		ClientOrderID: raw.ClientOrderID,
		Symbol:        core.NormalizeSymbol(raw.Symbol),
		Side:          order.Side,
		Quantity:      order.Quantity,
		Status:        mapStatus(raw.Status),
		SubmittedAt:   raw.SubmittedAt,
	}
	if raw.FilledAvgPrice != nil {
		if price, err := strconv.ParseFloat(*raw.FilledAvgPrice, 64); err == nil {
			result.FilledPrice = price
		}
	}
	return result, nil
}

// ClosePosition liquidates the position in a symbol.
func (c *Client) ClosePosition(ctx context.Context, symbol string) error {
	symbol = core.NormalizeSymbol(symbol)
	if symbol == "" {
		return broker.ErrInvalidSymbol
	}

	resp, err := c.trading.R().
		SetContext(ctx).
		Delete("/v2/positions/" + symbol)
	if err != nil {
		return core.WrapError(core.ErrBrokerFailed, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return broker.ErrPositionNotFound
	}
	if resp.IsError() {
		return core.WrapError(core.ErrBrokerFailed, apiError(resp))
	}
	return nil
}

func (c *Client) get(ctx context.Context, rc *resty.Client, path string, query map[string]string, out interface{}) error {
	resp, err := rc.R().
		SetContext(ctx).
		SetQueryParams(query).
		Get(path)
	if err != nil {
		return core.Wrapf(core.ErrBrokerFailed, "GET %s: %w", path, err)
	}
	if resp.IsError() {
		return core.WrapError(core.ErrBrokerFailed, apiError(resp))
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return core.Wrapf(core.ErrBrokerFailed, "parse %s: %w", path, err)
	}
	return nil
}

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func apiError(resp *resty.Response) error {
	var body errorResponse
	if err := json.Unmarshal(resp.Body(), &body); err == nil && body.Message != "" {
		return fmt.Errorf("alpaca API error %d: %s", resp.StatusCode(), body.Message)
	}
	return fmt.Errorf("alpaca API error %d: %s", resp.StatusCode(), resp.String())
}

func mapStatus(s string) broker.OrderStatus {
	switch s {
	case "filled":
		return broker.OrderStatusFilled
	case "rejected", "canceled", "expired":
		return broker.OrderStatusRejected
	}
	return broker.OrderStatusAccepted
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

var _ broker.Brokerage = (*Client)(nil)
