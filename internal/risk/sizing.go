// Package risk sizes positions and places protective levels.
package risk

import (
	"fmt"
	"math"

	"github.com/newthinker/quorum/internal/config"
	"github.com/newthinker/quorum/internal/core"
)

// Sizer scales risk and lot size linearly with consensus confidence.
type Sizer struct {
	cfg config.Trading
}

// NewSizer creates a sizer over the given trading bounds.
func NewSizer(cfg config.Trading) *Sizer {
	return &Sizer{cfg: cfg}
}

// Config returns the bounds in use.
func (s *Sizer) Config() config.Trading {
	return s.cfg
}

// RiskPercent interpolates between min and max risk by confidence.
func (s *Sizer) RiskPercent(confidence int) float64 {
	return s.cfg.MinRiskPercent + (s.cfg.MaxRiskPercent-s.cfg.MinRiskPercent)*unit(confidence)
}

// RiskAmount is the equity put at risk for a trade.
func (s *Sizer) RiskAmount(equity float64, confidence int) float64 {
	return equity * s.RiskPercent(confidence) / 100
}

// LotMultiplier interpolates between min and max lot by confidence.
func (s *Sizer) LotMultiplier(confidence int) float64 {
	return s.cfg.MinLotSize + (s.cfg.MaxLotSize-s.cfg.MinLotSize)*unit(confidence)
}

// Quantity returns the order size, clamped to [MinLotSize, MaxLotSize].
func (s *Sizer) Quantity(equity, price float64, confidence int) float64 {
	if price <= 0 {
		return s.cfg.MinLotSize
	}
	q := s.RiskAmount(equity, confidence) / price * s.LotMultiplier(confidence)
	return math.Min(s.cfg.MaxLotSize, math.Max(s.cfg.MinLotSize, q))
}

// Plan is a fully sized trade with its protective levels.
type Plan struct {
	Direction   core.Direction `json:"direction"`
	Price       float64        `json:"price"`
	RiskPercent float64        `json:"riskPercent"`
	RiskAmount  float64        `json:"riskAmount"`
	Quantity    float64        `json:"quantity"`
	StopLoss    float64        `json:"stopLoss"`
	TakeProfit  float64        `json:"takeProfit"`
}

// Plan sizes a trade in direction at price and derives stop and target
// from recent price history.
func (s *Sizer) Plan(direction core.Direction, equity, price float64, confidence int, history []float64) (Plan, error) {
	if direction != core.DirectionBuy && direction != core.DirectionSell {
		return Plan{}, fmt.Errorf("risk: cannot size a %s trade", direction)
	}
	if price <= 0 {
		return Plan{}, fmt.Errorf("risk: price must be positive, got %g", price)
	}
	if equity <= 0 {
		return Plan{}, fmt.Errorf("risk: equity must be positive, got %g", equity)
	}

	stop, target := Levels(direction, price, history)
	return Plan{
		Direction:   direction,
		Price:       price,
		RiskPercent: s.RiskPercent(confidence),
		RiskAmount:  s.RiskAmount(equity, confidence),
		Quantity:    s.Quantity(equity, price, confidence),
		StopLoss:    stop,
		TakeProfit:  target,
	}, nil
}

// unit maps a confidence onto [0.5, 1].
func unit(confidence int) float64 {
	c := math.Min(100, math.Max(50, float64(confidence)))
	return c / 100
}
