package motion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryLookupNearestAtOrBefore(t *testing.T) {
	h := NewOrientationHistory(int64(1e9))
	h.Insert(100, [3]float64{1, 0, 0})
	h.Insert(200, [3]float64{2, 0, 0})

	val, ok := h.Lookup(150)
	require.True(t, ok)
	assert.Equal(t, [3]float64{1, 0, 0}, val)

	val, ok = h.Lookup(200)
	require.True(t, ok)
	assert.Equal(t, [3]float64{2, 0, 0}, val)

	_, ok = h.Lookup(50)
	assert.False(t, ok)
}

func TestHistoryPurgeDropsOutsideWindowUnlessReferenced(t *testing.T) {
	h := NewOrientationHistory(int64(100))
	h.Insert(0, [3]float64{0, 0, 0})
	h.Insert(50, [3]float64{1, 0, 0})
	h.Insert(200, [3]float64{2, 0, 0}) // newest; window cutoff = 100

	h.Purge(func(ts int64) bool { return ts == 0 })
	assert.Equal(t, 2, h.Len(), "t=0 kept via reference, t=50 is before the cutoff and dropped, t=200 is newest")

	_, ok := h.Lookup(0)
	assert.True(t, ok)
}

func TestHistoryPurgeNoReferenceDropsOldEntries(t *testing.T) {
	h := NewOrientationHistory(int64(100))
	h.Insert(0, [3]float64{0, 0, 0})
	h.Insert(200, [3]float64{2, 0, 0})

	h.Purge(nil)
	assert.Equal(t, 1, h.Len())
	_, ok := h.Lookup(0)
	assert.False(t, ok)
}
