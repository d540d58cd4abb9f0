// Package broker provides types and interfaces for brokerage integrations.
package broker

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/newthinker/quorum/internal/core"
)

// Broker-specific errors.
var (
	// ErrPositionNotFound indicates no open position exists for the symbol.
	ErrPositionNotFound = errors.New("broker: position not found")
	// ErrInvalidSymbol indicates an invalid or empty symbol.
	ErrInvalidSymbol = errors.New("broker: invalid symbol")
	// ErrInvalidQuantity indicates an invalid quantity.
	ErrInvalidQuantity = errors.New("broker: invalid quantity")
	// ErrInvalidSide indicates an order side other than BUY or SELL.
	ErrInvalidSide = errors.New("broker: invalid order side")
	// ErrInvalidBracket indicates stop loss and take profit are on the wrong sides.
	ErrInvalidBracket = errors.New("broker: invalid bracket levels")
	// ErrNoQuote indicates no price is available for the symbol.
	ErrNoQuote = errors.New("broker: no quote available")
	// ErrInsufficientFunds indicates insufficient funds for the order.
	ErrInsufficientFunds = errors.New("broker: insufficient funds")
)

// OrderSide represents the direction of an order.
type OrderSide string

const (
	// OrderSideBuy represents a buy order.
	OrderSideBuy OrderSide = "BUY"
	// OrderSideSell represents a sell order.
	OrderSideSell OrderSide = "SELL"
)

// IsValid checks if the order side is valid.
func (s OrderSide) IsValid() bool {
	return s == OrderSideBuy || s == OrderSideSell
}

// SideFor maps a consensus direction onto an order side.
// NEUTRAL has no order side and yields "".
func SideFor(d core.Direction) OrderSide {
	switch d {
	case core.DirectionBuy:
		return OrderSideBuy
	case core.DirectionSell:
		return OrderSideSell
	}
	return ""
}

// OrderStatus represents the current state of an order.
type OrderStatus string

const (
	// OrderStatusAccepted means the brokerage accepted the order.
	OrderStatusAccepted OrderStatus = "ACCEPTED"
	// OrderStatusFilled means the entry leg is completely filled.
	OrderStatusFilled OrderStatus = "FILLED"
	// OrderStatusRejected means the order was rejected.
	OrderStatusRejected OrderStatus = "REJECTED"
)

// BracketOrder is a market entry with attached stop loss and take profit legs.
type BracketOrder struct {
	Symbol        string    `json:"symbol"`
	Side          OrderSide `json:"side"`
	Quantity      float64   `json:"quantity"`
	StopLoss      float64   `json:"stop_loss"`
	TakeProfit    float64   `json:"take_profit"`
	ClientOrderID string    `json:"client_order_id,omitempty"`
}

// Validate checks if the bracket order is well-formed.
// A BUY bracket needs stop below target, a SELL bracket the reverse.
func (o BracketOrder) Validate() error {
	if strings.TrimSpace(o.Symbol) == "" {
		return ErrInvalidSymbol
	}
	if o.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if !o.Side.IsValid() {
		return ErrInvalidSide
	}
	if o.StopLoss <= 0 || o.TakeProfit <= 0 {
		return ErrInvalidBracket
	}
	switch o.Side {
	case OrderSideBuy:
		if o.StopLoss >= o.TakeProfit {
			return ErrInvalidBracket
		}
	case OrderSideSell:
		if o.StopLoss <= o.TakeProfit {
			return ErrInvalidBracket
		}
	}
	return nil
}

// OrderResult is the brokerage acknowledgement of a submitted order.
type OrderResult struct {
	OrderID       string      `json:"order_id"`
	ClientOrderID string      `json:"client_order_id,omitempty"`
	Symbol        string      `json:"symbol"`
	Side          OrderSide   `json:"side"`
	Quantity      float64     `json:"quantity"`
	FilledPrice   float64     `json:"filled_price,omitempty"`
	Status        OrderStatus `json:"status"`
	SubmittedAt   time.Time   `json:"submitted_at"`
}

// Brokerage defines the interface for brokerage integrations.
// Implementations must be safe for concurrent use.
type Brokerage interface {
	// Name returns the brokerage identifier.
	Name() string

	// GetAccountEquity returns the current account equity.
	GetAccountEquity(ctx context.Context) (float64, error)

	// GetOpenPositions returns every open position held at the brokerage.
	// Quantities are positive; the side carries the sign.
	GetOpenPositions(ctx context.Context) ([]core.Position, error)

	// GetLatestQuote returns the most recent quote for a symbol.
	GetLatestQuote(ctx context.Context, symbol string) (core.Quote, error)

	// SubmitBracketOrder places a market entry with stop loss and take profit.
	SubmitBracketOrder(ctx context.Context, order BracketOrder) (*OrderResult, error)

	// ClosePosition liquidates the open position in a symbol.
	ClosePosition(ctx context.Context, symbol string) error
}
