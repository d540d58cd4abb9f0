package lifecycle

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/newthinker/quorum/internal/core"
)

// Reconcile folds brokerage positions into one net position per symbol:
// quantities are summed with the side as sign and the entry price is the
// quantity-weighted average of the lots on the surviving side. Symbols
// that net to zero are dropped.
//
// When known holds a position for the symbol on the same side, its ID and
// entry time are kept so trade records keep pointing at the position the
// journal opened.
func Reconcile(held []core.Position, known map[string]core.Position) map[string]core.Position {
	bySymbol := make(map[string][]core.Position)
	var order []string
	for _, p := range held {
		sym := core.NormalizeSymbol(p.Symbol)
		if sym == "" || p.Quantity <= 0 {
			continue
		}
		if _, seen := bySymbol[sym]; !seen {
			order = append(order, sym)
		}
		bySymbol[sym] = append(bySymbol[sym], p)
	}
	sort.Strings(order)

	out := make(map[string]core.Position, len(order))
	for _, sym := range order {
		net, ok := merge(sym, bySymbol[sym])
		if !ok {
			continue
		}
		if prev, found := known[sym]; found && prev.Side == net.Side {
			net.ID = prev.ID
			net.EntryTime = prev.EntryTime
			if net.StopLoss == 0 {
				net.StopLoss = prev.StopLoss
			}
			if net.TakeProfit == 0 {
				net.TakeProfit = prev.TakeProfit
			}
		}
		out[sym] = net
	}
	return out
}

func merge(symbol string, lots []core.Position) (core.Position, bool) {
	signed := decimal.Zero
	for _, l := range lots {
		q := decimal.NewFromFloat(l.Quantity)
		if l.Side == core.SideShort {
			q = q.Neg()
		}
		signed = signed.Add(q)
	}
	if signed.IsZero() {
		return core.Position{}, false
	}

	side := core.SideLong
	if signed.IsNegative() {
		side = core.SideShort
	}

	var (
		first    *core.Position
		notional = decimal.Zero
		sideQty  = decimal.Zero
	)
	for i := range lots {
		l := lots[i]
		if l.Side != side {
			continue
		}
		q := decimal.NewFromFloat(l.Quantity)
		notional = notional.Add(q.Mul(decimal.NewFromFloat(l.EntryPrice)))
		sideQty = sideQty.Add(q)
		if first == nil || l.EntryTime.Before(first.EntryTime) {
			first = &lots[i]
		}
	}

	qty, _ := signed.Abs().Round(qtyPlaces).Float64()
	entry, _ := notional.Div(sideQty).Round(pricePlaces).Float64()
	return core.Position{
		ID:         first.ID,
		Symbol:     symbol,
		Side:       side,
		Quantity:   qty,
		EntryPrice: entry,
		StopLoss:   first.StopLoss,
		TakeProfit: first.TakeProfit,
		Status:     core.StatusOpen,
		EntryTime:  first.EntryTime,
	}, true
}

// FromTrades rebuilds open positions from the journal's unmatched OPEN
// records, netted per symbol.
func FromTrades(open []core.TradeRecord) map[string]core.Position {
	positions := make([]core.Position, 0, len(open))
	for _, rec := range open {
		positions = append(positions, core.PositionFromTrade(rec))
	}
	return Reconcile(positions, nil)
}
