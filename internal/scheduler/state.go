package scheduler

import (
	"github.com/newthinker/quorum/internal/consensus"
	"github.com/newthinker/quorum/internal/core"
	"github.com/newthinker/quorum/internal/risk"
)

// SymbolState is everything the loop tracks for one symbol. It is only
// touched by the goroutine that owns the scheduler.
type SymbolState struct {
	// IsTrading enables lifecycle transitions. A symbol with trading
	// disabled is still analyzed and published.
	IsTrading     bool
	LastAnalysis  *consensus.Report
	OpenPositions []core.Position
	History       *consensus.History
}

func newSymbolState() *SymbolState {
	return &SymbolState{
		IsTrading: true,
		History:   consensus.NewHistory(consensus.HistoryCapacity),
	}
}

// Position returns a copy of the open position, or nil when flat.
func (st *SymbolState) Position() *core.Position {
	if len(st.OpenPositions) == 0 {
		return nil
	}
	p := st.OpenPositions[0]
	return &p
}

func (st *SymbolState) setPosition(p *core.Position) {
	if p == nil || !p.IsOpen() {
		st.OpenPositions = nil
		return
	}
	st.OpenPositions = []core.Position{*p}
}

func (st *SymbolState) lastPrice() float64 {
	if st.LastAnalysis != nil {
		return st.LastAnalysis.Price
	}
	if p := st.Position(); p != nil {
		return p.EntryPrice
	}
	return 0
}

// SymbolSnapshot is a copy of a symbol's state safe to hand out.
type SymbolSnapshot struct {
	Symbol       string            `json:"symbol"`
	IsTrading    bool              `json:"isTrading"`
	LastAnalysis *consensus.Report `json:"lastAnalysis,omitempty"`
	Position     *core.Position    `json:"position,omitempty"`
	HistoryLen   int               `json:"historyLen"`
	RecentPrices []float64         `json:"recentPrices,omitempty"`
}

func (st *SymbolState) snapshot(symbol string) SymbolSnapshot {
	snap := SymbolSnapshot{
		Symbol:       symbol,
		IsTrading:    st.IsTrading,
		Position:     st.Position(),
		HistoryLen:   st.History.Len(),
		RecentPrices: st.History.Prices(risk.LevelWindow),
	}
	if st.LastAnalysis != nil {
		r := *st.LastAnalysis
		snap.LastAnalysis = &r
	}
	return snap
}
