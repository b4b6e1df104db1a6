package motion

import "sync"

// historyEntry is one (timestamp, angle-axis) pair in insertion order.
type historyEntry struct {
	timestampNs int64
	value       [3]float64
}

// OrientationHistory is the ordered map from timestamp_ns to orientation
// sample, retaining the most recent windowNs once Purge runs; Insert
// itself never drops entries, so the history grows until Purge is
// called. It is exclusively owned by the motion package but queried by
// the photo pipeline under this mutex.
type OrientationHistory struct {
	mu      sync.Mutex
	entries []historyEntry
	windowNs int64
}

// NewOrientationHistory creates a history that purges entries older than
// windowNs relative to the newest entry, except while a reference (a
// pending capture request) holds them (see Purge).
func NewOrientationHistory(windowNs int64) *OrientationHistory {
	return &OrientationHistory{windowNs: windowNs}
}

// Insert appends a new orientation sample. Entries are expected in
// nondecreasing timestamp order (the merge loop guarantees this).
func (h *OrientationHistory) Insert(timestampNs int64, value [3]float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, historyEntry{timestampNs: timestampNs, value: value})
}

// Lookup returns the orientation sample nearest to (at or before)
// timestampNs, if any exist within the retained window.
func (h *OrientationHistory) Lookup(timestampNs int64) ([3]float64, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var best historyEntry
	found := false
	for _, e := range h.entries {
		if e.timestampNs <= timestampNs && (!found || e.timestampNs > best.timestampNs) {
			best = e
			found = true
		}
	}
	return best.value, found
}

// Purge drops entries older than the retention window measured from the
// newest entry, unless referenced is non-nil and returns true for that
// entry's timestamp (a pending capture request still needs it).
func (h *OrientationHistory) Purge(referenced func(timestampNs int64) bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) == 0 {
		return
	}
	newest := h.entries[len(h.entries)-1].timestampNs
	cutoff := newest - h.windowNs

	kept := h.entries[:0]
	for _, e := range h.entries {
		if e.timestampNs >= cutoff || (referenced != nil && referenced(e.timestampNs)) {
			kept = append(kept, e)
		}
	}
	h.entries = kept
}

// Len returns the number of retained entries.
func (h *OrientationHistory) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}
