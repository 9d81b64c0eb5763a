package manager

import "arbiter/internal/decision"

// ring is a fixed-capacity history buffer; the oldest entry is overwritten
// once it is full.
type ring struct {
	buf   []decision.HistoryEntry
	start int
	n     int
}

func newRing(capacity int) *ring {
	if capacity <= 0 {
		capacity = 1
	}
	return &ring{buf: make([]decision.HistoryEntry, capacity)}
}

func (r *ring) push(e decision.HistoryEntry) {
	if r.n < len(r.buf) {
		r.buf[(r.start+r.n)%len(r.buf)] = e
		r.n++
		return
	}
	r.buf[r.start] = e
	r.start = (r.start + 1) % len(r.buf)
}

// chronological returns the retained entries oldest first.
func (r *ring) chronological() []decision.HistoryEntry {
	out := make([]decision.HistoryEntry, r.n)
	for i := 0; i < r.n; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}

// recent returns up to limit entries newest first; limit <= 0 means all.
func (r *ring) recent(limit int) []decision.HistoryEntry {
	if limit <= 0 || limit > r.n {
		limit = r.n
	}
	out := make([]decision.HistoryEntry, limit)
	for i := 0; i < limit; i++ {
		e := r.buf[(r.start+r.n-1-i)%len(r.buf)]
		e.Result = e.Result.Clone()
		out[i] = e
	}
	return out
}

// resize keeps the newest entries that fit the new capacity.
func (r *ring) resize(capacity int) {
	if capacity <= 0 {
		capacity = 1
	}
	if capacity == len(r.buf) {
		return
	}
	kept := r.chronological()
	if len(kept) > capacity {
		kept = kept[len(kept)-capacity:]
	}
	r.buf = make([]decision.HistoryEntry, capacity)
	r.start = 0
	r.n = copy(r.buf, kept)
}

func (r *ring) clear() {
	r.buf = make([]decision.HistoryEntry, len(r.buf))
	r.start = 0
	r.n = 0
}
