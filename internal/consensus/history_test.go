package consensus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistory_PushAndItems(t *testing.T) {
	h := NewHistory(3)
	_, ok := h.Latest()
	assert.False(t, ok)

	for i := 1; i <= 2; i++ {
		h.Push(Report{Price: float64(i)})
	}
	assert.Equal(t, 2, h.Len())
	assert.Equal(t, []float64{1, 2}, h.Prices(10))
}

func TestHistory_EvictsOldest(t *testing.T) {
	h := NewHistory(3)
	for i := 1; i <= 5; i++ {
		h.Push(Report{Price: float64(i)})
	}

	require.Equal(t, 3, h.Len())
	items := h.Items()
	assert.Equal(t, 3.0, items[0].Price)
	assert.Equal(t, 5.0, items[2].Price)

	latest, ok := h.Latest()
	require.True(t, ok)
	assert.Equal(t, 5.0, latest.Price)
	assert.Equal(t, []float64{4, 5}, h.Prices(2))
}

func TestHistory_DefaultCapacity(t *testing.T) {
	h := NewHistory(0)
	for i := 0; i < 150; i++ {
		h.Push(Report{Price: float64(i)})
	}
	assert.Equal(t, HistoryCapacity, h.Len())
	assert.Equal(t, 50.0, h.Items()[0].Price)
	assert.Nil(t, h.Prices(0))
}
