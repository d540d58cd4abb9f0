package broker

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/newthinker/quorum/internal/core"
)

func TestSideFor(t *testing.T) {
	assert.Equal(t, OrderSideBuy, SideFor(core.DirectionBuy))
	assert.Equal(t, OrderSideSell, SideFor(core.DirectionSell))
	assert.Equal(t, OrderSide(""), SideFor(core.DirectionNeutral))
	assert.False(t, SideFor(core.DirectionNeutral).IsValid())
}

func TestBracketOrder_Validate(t *testing.T) {
	tests := []struct {
		name    string
		order   BracketOrder
		wantErr error
	}{
		{
			name:  "valid buy",
			order: BracketOrder{Symbol: "AAPL", Side: OrderSideBuy, Quantity: 2, StopLoss: 95, TakeProfit: 110},
		},
		{
			name:  "valid sell",
			order: BracketOrder{Symbol: "AAPL", Side: OrderSideSell, Quantity: 2, StopLoss: 105, TakeProfit: 90},
		},
		{
			name:    "empty symbol",
			order:   BracketOrder{Symbol: " ", Side: OrderSideBuy, Quantity: 1, StopLoss: 95, TakeProfit: 110},
			wantErr: ErrInvalidSymbol,
		},
		{
			name:    "zero quantity",
			order:   BracketOrder{Symbol: "AAPL", Side: OrderSideBuy, StopLoss: 95, TakeProfit: 110},
			wantErr: ErrInvalidQuantity,
		},
		{
			name:    "missing side",
			order:   BracketOrder{Symbol: "AAPL", Quantity: 1, StopLoss: 95, TakeProfit: 110},
			wantErr: ErrInvalidSide,
		},
		{
			name:    "buy with stop above target",
			order:   BracketOrder{Symbol: "AAPL", Side: OrderSideBuy, Quantity: 1, StopLoss: 110, TakeProfit: 95},
			wantErr: ErrInvalidBracket,
		},
		{
			name:    "sell with stop below target",
			order:   BracketOrder{Symbol: "AAPL", Side: OrderSideSell, Quantity: 1, StopLoss: 90, TakeProfit: 105},
			wantErr: ErrInvalidBracket,
		},
		{
			name:    "missing take profit",
			order:   BracketOrder{Symbol: "AAPL", Side: OrderSideBuy, Quantity: 1, StopLoss: 90},
			wantErr: ErrInvalidBracket,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.order.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
