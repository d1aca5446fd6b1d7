package generator

// History is the rolling window of corrected multipliers. Bounded,
// append-only with oldest-eviction; consulted only for windowed stats
// and never persisted.
type History struct {
	values   []float64
	capacity int
}

func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = 100
	}
	return &History{
		values:   make([]float64, 0, capacity),
		capacity: capacity,
	}
}

func (h *History) Append(v float64) {
	if len(h.values) == h.capacity {
		h.values = append(h.values[1:], v)
		return
	}
	h.values = append(h.values, v)
}

func (h *History) Len() int {
	return len(h.values)
}

// Last returns up to k most recent values, oldest first.
func (h *History) Last(k int) []float64 {
	if k <= 0 || len(h.values) == 0 {
		return nil
	}
	if k > len(h.values) {
		k = len(h.values)
	}
	out := make([]float64, k)
	copy(out, h.values[len(h.values)-k:])
	return out
}

// TrailingRunAtOrBelow returns the length of the consecutive run of
// values <= threshold ending at the most recent entry.
func (h *History) TrailingRunAtOrBelow(threshold float64) int {
	run := 0
	for i := len(h.values) - 1; i >= 0; i-- {
		if h.values[i] > threshold {
			break
		}
		run++
	}
	return run
}

// CountAtOrBelow counts values <= threshold among the last window entries.
func (h *History) CountAtOrBelow(threshold float64, window int) int {
	count := 0
	for _, v := range h.Last(window) {
		if v <= threshold {
			count++
		}
	}
	return count
}

// CountAbove counts values > threshold among the last window entries.
func (h *History) CountAbove(threshold float64, window int) int {
	count := 0
	for _, v := range h.Last(window) {
		if v > threshold {
			count++
		}
	}
	return count
}
