package core

import (
	"strings"
	"time"
)

// Direction is the side a signal, analysis or consensus votes for.
type Direction string

const (
	DirectionBuy     Direction = "BUY"
	DirectionSell    Direction = "SELL"
	DirectionNeutral Direction = "NEUTRAL"
)

// IsValid reports whether d is one of the known directions.
func (d Direction) IsValid() bool {
	switch d {
	case DirectionBuy, DirectionSell, DirectionNeutral:
		return true
	}
	return false
}

// Opposite returns the opposing trade direction. NEUTRAL has no opposite.
func (d Direction) Opposite() Direction {
	switch d {
	case DirectionBuy:
		return DirectionSell
	case DirectionSell:
		return DirectionBuy
	}
	return DirectionNeutral
}

// Bar represents one OHLCV candle.
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// IsValid checks the candle geometry.
func (b Bar) IsValid() bool {
	return b.Close > 0 && b.High >= b.Low && b.Volume >= 0
}

// Signal is a single named vote produced by an analyzer rule.
type Signal struct {
	Name      string    `json:"name"`
	Direction Direction `json:"direction"`
	Strength  float64   `json:"strength"`
}

// Quote represents a real-time bid/ask quote
type Quote struct {
	Symbol string    `json:"symbol"`
	Bid    float64   `json:"bid"`
	Ask    float64   `json:"ask"`
	Last   float64   `json:"last"`
	Time   time.Time `json:"time"`
}

// Mid returns the midpoint of bid and ask, falling back to whichever side
// (or last trade) is populated.
func (q Quote) Mid() float64 {
	switch {
	case q.Bid > 0 && q.Ask > 0:
		return (q.Bid + q.Ask) / 2
	case q.Ask > 0:
		return q.Ask
	case q.Bid > 0:
		return q.Bid
	}
	return q.Last
}

// IsValid checks if the quote has required fields
func (q Quote) IsValid() bool {
	return q.Symbol != "" && q.Mid() > 0
}

// Side is the side of a held position.
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// SideFor maps a trade direction onto a position side.
func SideFor(d Direction) Side {
	if d == DirectionSell {
		return SideShort
	}
	return SideLong
}

// Direction returns the trade direction that opened a position on this side.
func (s Side) Direction() Direction {
	if s == SideShort {
		return DirectionSell
	}
	return DirectionBuy
}

// PositionStatus is the lifecycle state of a position.
type PositionStatus string

const (
	StatusOpen           PositionStatus = "OPEN"
	StatusClosed         PositionStatus = "CLOSED"
	StatusClosedReversal PositionStatus = "CLOSED_REVERSAL"
	StatusClosedDanger   PositionStatus = "CLOSED_DANGER"
)

// IsClosed reports whether the status is terminal.
func (s PositionStatus) IsClosed() bool {
	return s == StatusClosed || s == StatusClosedReversal || s == StatusClosedDanger
}

// Position is an open or closed holding in one symbol.
type Position struct {
	ID         string         `json:"id"`
	Symbol     string         `json:"symbol"`
	Side       Side           `json:"side"`
	Quantity   float64        `json:"quantity"`
	EntryPrice float64        `json:"entryPrice"`
	StopLoss   float64        `json:"stopLoss"`
	TakeProfit float64        `json:"takeProfit"`
	Status     PositionStatus `json:"status"`
	EntryTime  time.Time      `json:"entryTime"`
	ExitTime   *time.Time     `json:"exitTime,omitempty"`
	ExitPrice  *float64       `json:"exitPrice,omitempty"`
	PnL        *float64       `json:"pnl,omitempty"`
}

// IsOpen reports whether the position is still held.
func (p Position) IsOpen() bool {
	return p.Status == StatusOpen
}

// TradeAction marks whether a trade record opened or closed a position.
type TradeAction string

const (
	TradeOpen  TradeAction = "OPEN"
	TradeClose TradeAction = "CLOSE"
)

// TradeRecord is the persisted journal entry for a position transition.
type TradeRecord struct {
	ID         string         `json:"id"`
	PositionID string         `json:"positionId"`
	Symbol     string         `json:"symbol"`
	Action     TradeAction    `json:"action"`
	Side       Side           `json:"side"`
	Quantity   float64        `json:"quantity"`
	Price      float64        `json:"price"`
	StopLoss   float64        `json:"stopLoss,omitempty"`
	TakeProfit float64        `json:"takeProfit,omitempty"`
	Status     PositionStatus `json:"status"`
	Confidence int            `json:"confidence"`
	PnL        *float64       `json:"pnl,omitempty"`
	OrderID    string         `json:"orderId,omitempty"`
	Time       time.Time      `json:"time"`
}

// PositionFromTrade rebuilds an open position from its OPEN record.
func PositionFromTrade(rec TradeRecord) Position {
	return Position{
		ID:         rec.PositionID,
		Symbol:     rec.Symbol,
		Side:       rec.Side,
		Quantity:   rec.Quantity,
		EntryPrice: rec.Price,
		StopLoss:   rec.StopLoss,
		TakeProfit: rec.TakeProfit,
		Status:     StatusOpen,
		EntryTime:  rec.Time,
	}
}

// NewsItem is a scored headline
type NewsItem struct {
	Headline    string    `json:"headline"`
	Source      string    `json:"source"`
	URL         string    `json:"url,omitempty"`
	Sentiment   float64   `json:"sentiment"` // -1.0 (bearish) to 1.0 (bullish)
	Unscored    bool      `json:"unscored,omitempty"`
	PublishedAt time.Time `json:"publishedAt"`
}

// NormalizeSymbol upper-cases and trims a ticker.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
