package config

import (
	"fmt"

	"github.com/newthinker/quorum/internal/core"
)

// Trading holds the live position sizing bounds.
type Trading struct {
	MaxRiskPercent       float64 `mapstructure:"max_risk_percent" yaml:"max_risk_percent" json:"maxRiskPercent"`
	MinRiskPercent       float64 `mapstructure:"min_risk_percent" yaml:"min_risk_percent" json:"minRiskPercent"`
	MaxLotSize           float64 `mapstructure:"max_lot_size" yaml:"max_lot_size" json:"maxLotSize"`
	MinLotSize           float64 `mapstructure:"min_lot_size" yaml:"min_lot_size" json:"minLotSize"`
	TargetDailyGrowth    float64 `mapstructure:"target_daily_growth" yaml:"target_daily_growth" json:"targetDailyGrowth"`
	StopLossMultiplier   float64 `mapstructure:"stop_loss_multiplier" yaml:"stop_loss_multiplier" json:"stopLossMultiplier"`
	TakeProfitMultiplier float64 `mapstructure:"take_profit_multiplier" yaml:"take_profit_multiplier" json:"takeProfitMultiplier"`
}

// DefaultTrading returns conservative sizing bounds.
func DefaultTrading() Trading {
	return Trading{
		MaxRiskPercent:       2,
		MinRiskPercent:       0.5,
		MaxLotSize:           10,
		MinLotSize:           1,
		TargetDailyGrowth:    1,
		StopLossMultiplier:   1,
		TakeProfitMultiplier: 2,
	}
}

// Validate checks the bounds are positive and ordered.
func (t Trading) Validate() error {
	if t.MinRiskPercent <= 0 || t.MaxRiskPercent <= 0 {
		return core.Wrapf(core.ErrConfigInvalid,
			"risk percents must be positive, got min=%g max=%g", t.MinRiskPercent, t.MaxRiskPercent)
	}
	if t.MinRiskPercent > t.MaxRiskPercent {
		return core.Wrapf(core.ErrConfigInvalid,
			"min_risk_percent %g exceeds max_risk_percent %g", t.MinRiskPercent, t.MaxRiskPercent)
	}
	if t.MaxRiskPercent > 100 {
		return core.Wrapf(core.ErrConfigInvalid, "max_risk_percent %g exceeds 100", t.MaxRiskPercent)
	}
	if t.MinLotSize <= 0 || t.MaxLotSize <= 0 {
		return core.Wrapf(core.ErrConfigInvalid,
			"lot sizes must be positive, got min=%g max=%g", t.MinLotSize, t.MaxLotSize)
	}
	if t.MinLotSize > t.MaxLotSize {
		return core.Wrapf(core.ErrConfigInvalid,
			"min_lot_size %g exceeds max_lot_size %g", t.MinLotSize, t.MaxLotSize)
	}
	if t.TargetDailyGrowth <= 0 || t.StopLossMultiplier <= 0 || t.TakeProfitMultiplier <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("target_daily_growth and multipliers must be positive"))
	}
	return nil
}

// TradingUpdate is a partial change; nil fields are left as they are.
type TradingUpdate struct {
	MaxRiskPercent       *float64 `json:"maxRiskPercent,omitempty"`
	MinRiskPercent       *float64 `json:"minRiskPercent,omitempty"`
	MaxLotSize           *float64 `json:"maxLotSize,omitempty"`
	MinLotSize           *float64 `json:"minLotSize,omitempty"`
	TargetDailyGrowth    *float64 `json:"targetDailyGrowth,omitempty"`
	StopLossMultiplier   *float64 `json:"stopLossMultiplier,omitempty"`
	TakeProfitMultiplier *float64 `json:"takeProfitMultiplier,omitempty"`
}

// Update merges u into t and validates the result. On error t is returned
// unchanged.
func (t Trading) Update(u TradingUpdate) (Trading, error) {
	next := t
	set := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	set(&next.MaxRiskPercent, u.MaxRiskPercent)
	set(&next.MinRiskPercent, u.MinRiskPercent)
	set(&next.MaxLotSize, u.MaxLotSize)
	set(&next.MinLotSize, u.MinLotSize)
	set(&next.TargetDailyGrowth, u.TargetDailyGrowth)
	set(&next.StopLossMultiplier, u.StopLossMultiplier)
	set(&next.TakeProfitMultiplier, u.TakeProfitMultiplier)

	if err := next.Validate(); err != nil {
		return t, err
	}
	return next, nil
}
