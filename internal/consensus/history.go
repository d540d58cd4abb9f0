package consensus

// HistoryCapacity is the number of reports kept per symbol.
const HistoryCapacity = 100

// History is a fixed-capacity ring of reports, oldest evicted first.
type History struct {
	items []Report
	start int
	size  int
}

// NewHistory creates a history holding up to capacity reports.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = HistoryCapacity
	}
	return &History{items: make([]Report, capacity)}
}

// Push appends a report, evicting the oldest when full.
func (h *History) Push(r Report) {
	capacity := len(h.items)
	if h.size < capacity {
		h.items[(h.start+h.size)%capacity] = r
		h.size++
		return
	}
	h.items[h.start] = r
	h.start = (h.start + 1) % capacity
}

// Len returns the number of stored reports.
func (h *History) Len() int {
	return h.size
}

// Items returns the reports oldest first.
func (h *History) Items() []Report {
	out := make([]Report, h.size)
	for i := 0; i < h.size; i++ {
		out[i] = h.items[(h.start+i)%len(h.items)]
	}
	return out
}

// Latest returns the most recent report.
func (h *History) Latest() (Report, bool) {
	if h.size == 0 {
		return Report{}, false
	}
	return h.items[(h.start+h.size-1)%len(h.items)], true
}

// Prices returns the prices of the most recent n reports, oldest first.
func (h *History) Prices(n int) []float64 {
	if n > h.size {
		n = h.size
	}
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	offset := h.size - n
	for i := 0; i < n; i++ {
		out[i] = h.items[(h.start+offset+i)%len(h.items)].Price
	}
	return out
}
