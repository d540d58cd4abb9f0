// Package paper provides an in-memory brokerage that fills orders at the
// quote midpoint. It backs the default configuration and the lifecycle tests.
package paper

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/newthinker/quorum/internal/broker"
	"github.com/newthinker/quorum/internal/core"
)

// PriceSource supplies the latest price for a symbol.
type PriceSource func(ctx context.Context, symbol string) (float64, error)

// Option configures a Broker.
type Option func(*Broker)

// WithPriceSource sets where quotes come from when no explicit quote was set.
func WithPriceSource(src PriceSource) Option {
	return func(b *Broker) { b.source = src }
}

// WithSpread sets the fractional bid/ask spread applied around the price.
func WithSpread(spread float64) Option {
	return func(b *Broker) { b.spread = spread }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(b *Broker) { b.now = now }
}

// Broker implements broker.Brokerage in memory.
// Each fill is kept as its own lot, so several positions may share a symbol.
type Broker struct {
	mu sync.RWMutex

	startingEquity float64
	realized       float64

	lots    map[string][]core.Position
	quotes  map[string]float64
	orders  []broker.OrderResult
	orderID int64

	source PriceSource
	spread float64
	now    func() time.Time

	submitErr error
	closeErr  error
	equityErr error
}

// New creates a paper brokerage with the given starting equity.
func New(startingEquity float64, opts ...Option) *Broker {
	b := &Broker{
		startingEquity: startingEquity,
		lots:           make(map[string][]core.Position),
		quotes:         make(map[string]float64),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns the brokerage identifier.
func (b *Broker) Name() string {
	return "paper"
}

// SetQuote pins the price for a symbol.
func (b *Broker) SetQuote(symbol string, price float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.quotes[core.NormalizeSymbol(symbol)] = price
}

// FailSubmit makes every SubmitBracketOrder call fail with err until reset with nil.
func (b *Broker) FailSubmit(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.submitErr = err
}

// FailClose makes every ClosePosition call fail with err until reset with nil.
func (b *Broker) FailClose(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closeErr = err
}

// FailAccount makes GetAccountEquity and GetOpenPositions fail with err until reset with nil.
func (b *Broker) FailAccount(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.equityErr = err
}

// Orders returns a copy of every accepted order.
func (b *Broker) Orders() []broker.OrderResult {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]broker.OrderResult, len(b.orders))
	copy(out, b.orders)
	return out
}

// RealizedPnL returns profit and loss booked by closed positions.
func (b *Broker) RealizedPnL() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.realized
}

// GetAccountEquity returns starting equity plus realized PnL.
func (b *Broker) GetAccountEquity(ctx context.Context) (float64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.equityErr != nil {
		return 0, b.equityErr
	}
	return b.startingEquity + b.realized, nil
}

// GetOpenPositions returns every open lot ordered by symbol then entry time.
func (b *Broker) GetOpenPositions(ctx context.Context) ([]core.Position, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.equityErr != nil {
		return nil, b.equityErr
	}

	symbols := make([]string, 0, len(b.lots))
	for sym := range b.lots {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	var out []core.Position
	for _, sym := range symbols {
		out = append(out, b.lots[sym]...)
	}
	return out, nil
}

// GetLatestQuote returns a quote spread around the current price.
func (b *Broker) GetLatestQuote(ctx context.Context, symbol string) (core.Quote, error) {
	symbol = core.NormalizeSymbol(symbol)
	if symbol == "" {
		return core.Quote{}, broker.ErrInvalidSymbol
	}
	price, err := b.price(ctx, symbol)
	if err != nil {
		return core.Quote{}, err
	}
	half := price * b.spread / 2
	return core.Quote{
		Symbol: symbol,
		Bid:    price - half,
		Ask:    price + half,
		Last:   price,
		Time:   b.now(),
	}, nil
}

// SubmitBracketOrder fills the entry leg immediately at the quote midpoint.
func (b *Broker) SubmitBracketOrder(ctx context.Context, order broker.BracketOrder) (*broker.OrderResult, error) {
	order.Symbol = core.NormalizeSymbol(order.Symbol)
	if err := order.Validate(); err != nil {
		return nil, err
	}

	b.mu.RLock()
	failErr := b.submitErr
	b.mu.RUnlock()
	if failErr != nil {
		return nil, failErr
	}

	quote, err := b.GetLatestQuote(ctx, order.Symbol)
	if err != nil {
		return nil, err
	}
	fill := quote.Mid()

	b.mu.Lock()
	defer b.mu.Unlock()

	if fill*order.Quantity > b.startingEquity+b.realized {
		return nil, broker.ErrInsufficientFunds
	}

	b.orderID++
	now := b.now()
	id := fmt.Sprintf("PAPER-%d", b.orderID)
	side := core.SideLong
	if order.Side == broker.OrderSideSell {
		side = core.SideShort
	}
	b.lots[order.Symbol] = append(b.lots[order.Symbol], core.Position{
		ID:         id,
		Symbol:     order.Symbol,
		Side:       side,
		Quantity:   order.Quantity,
		EntryPrice: fill,
		StopLoss:   order.StopLoss,
		TakeProfit: order.TakeProfit,
		Status:     core.StatusOpen,
		EntryTime:  now,
	})

	result := broker.OrderResult{
		OrderID:       id,
		ClientOrderID: order.ClientOrderID,
		Symbol:        order.Symbol,
		Side:          order.Side,
		Quantity:      order.Quantity,
		FilledPrice:   fill,
		Status:        broker.OrderStatusFilled,
		SubmittedAt:   now,
	}
	b.orders = append(b.orders, result)
	return &result, nil
}

// ClosePosition closes every lot in the symbol at the quote midpoint.
func (b *Broker) ClosePosition(ctx context.Context, symbol string) error {
	symbol = core.NormalizeSymbol(symbol)
	if symbol == "" {
		return broker.ErrInvalidSymbol
	}

	b.mu.RLock()
	failErr := b.closeErr
	_, held := b.lots[symbol]
	b.mu.RUnlock()
	if failErr != nil {
		return failErr
	}
	if !held {
		return broker.ErrPositionNotFound
	}

	quote, err := b.GetLatestQuote(ctx, symbol)
	if err != nil {
		return err
	}
	exit := quote.Mid()

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, lot := range b.lots[symbol] {
		diff := exit - lot.EntryPrice
		if lot.Side == core.SideShort {
			diff = -diff
		}
		b.realized += diff * lot.Quantity
	}
	delete(b.lots, symbol)
	return nil
}

func (b *Broker) price(ctx context.Context, symbol string) (float64, error) {
	b.mu.RLock()
	price, ok := b.quotes[symbol]
	src := b.source
	b.mu.RUnlock()

	if ok && price > 0 {
		return price, nil
	}
	if src == nil {
		return 0, broker.ErrNoQuote
	}
	price, err := src(ctx, symbol)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", broker.ErrNoQuote, err)
	}
	if price <= 0 {
		return 0, broker.ErrNoQuote
	}
	return price, nil
}

var _ broker.Brokerage = (*Broker)(nil)
