package motion

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFilter is a deterministic OrientationFilter test double: orientation
// is just the running sum of pushed gyro rates, so tests can assert on
// exactly what reached the filter.
type fakeFilter struct {
	mu          sync.Mutex
	initialized bool
	released    bool
	sum         [3]float64
	haveSample  bool
	bias        [3]float64
	gyroCalls   []GyroCall
	accelCalls  []AccelCall
	recenters   int
}

type GyroCall struct {
	Values      [3]float64
	TimestampNs int64
}

type AccelCall struct {
	Values      [3]float64
	TimestampNs int64
}

func (f *fakeFilter) Init() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initialized = true
	return nil
}

func (f *fakeFilter) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = true
}

func (f *fakeFilter) PushGyro(values [3]float64, timestampNs int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gyroCalls = append(f.gyroCalls, GyroCall{values, timestampNs})
	for i := range values {
		f.sum[i] += values[i]
	}
	f.haveSample = true
}

func (f *fakeFilter) PushAccel(values [3]float64, timestampNs int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accelCalls = append(f.accelCalls, AccelCall{values, timestampNs})
}

func (f *fakeFilter) Recenter() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recenters++
	f.sum = [3]float64{}
}

func (f *fakeFilter) SetBias(bias [3]float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bias = bias
}

func (f *fakeFilter) ReadOrientation() ([3]float64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sum, f.haveSample
}

func TestInterleavedMergeDropsBackwardDuplicate(t *testing.T) {
	filter := &fakeFilter{}
	in := New(filter, int64(1e9))
	require.NoError(t, in.Start())

	in.PushGyro(GyroSample{AngularRate: [3]float64{1, 0, 0}, TimestampNs: 100})
	in.PushAccel([3]float64{0, 1, 0}, 200)
	in.PushGyro(GyroSample{AngularRate: [3]float64{0, 0, 1}, TimestampNs: 300}) // accepted
	in.PushGyro(GyroSample{AngularRate: [3]float64{9, 9, 9}, TimestampNs: 300}) // duplicate, dropped
	in.PushAccel([3]float64{0, 0, 2}, 400)
	in.Drain() // flush the trailing accel sample, which has no later gyro sample to pair against

	require.Len(t, filter.gyroCalls, 2)
	assert.Equal(t, int64(100), filter.gyroCalls[0].TimestampNs)
	assert.Equal(t, int64(300), filter.gyroCalls[1].TimestampNs)
	assert.Equal(t, [3]float64{1, 0, 1}, filter.gyroCalls[1].Values)

	require.Len(t, filter.accelCalls, 2)
	assert.Equal(t, int64(200), filter.accelCalls[0].TimestampNs)
	assert.Equal(t, int64(400), filter.accelCalls[1].TimestampNs)

	assert.Equal(t, 2, in.History().Len())
}

func TestGyroSampleEmitsOrientationHistoryEntry(t *testing.T) {
	filter := &fakeFilter{}
	in := New(filter, int64(1e9))
	require.NoError(t, in.Start())

	in.PushGyro(GyroSample{AngularRate: [3]float64{1, 2, 3}, TimestampNs: 10})
	in.Drain() // no accel sample will ever arrive to pair against in this test

	val, ok := in.History().Lookup(10)
	require.True(t, ok)
	assert.Equal(t, [3]float64{1, 2, 3}, val)
}

func TestBiasFreezesAtCaptureStart(t *testing.T) {
	filter := &fakeFilter{}
	in := New(filter, int64(1e9))
	require.NoError(t, in.Start())

	in.PushGyro(GyroSample{AngularRate: [3]float64{1, 0, 0}, Bias: [3]float64{0.1, 0.1, 0.1}, TimestampNs: 10})
	assert.Equal(t, [3]float64{0.1, 0.1, 0.1}, in.Bias())

	in.SetCaptureActive(true)
	assert.Equal(t, [3]float64{0.1, 0.1, 0.1}, in.Bias())

	// live bias drifts during capture, but the applied/frozen bias must not move
	in.PushGyro(GyroSample{AngularRate: [3]float64{1, 0, 0}, Bias: [3]float64{9, 9, 9}, TimestampNs: 20})
	in.Drain() // no accel sample in this test, so the buffered gyro sample must be flushed to inspect it
	assert.Equal(t, [3]float64{0.1, 0.1, 0.1}, in.Bias(), "bias must stay frozen while capture is active")
	assert.Equal(t, [3]float64{0.1, 0.1, 0.1}, filter.bias, "frozen bias must be the one written to the filter")

	in.SetCaptureActive(false)
	assert.Equal(t, [3]float64{9, 9, 9}, in.Bias(), "bias resumes tracking live estimate once capture ends")
}

func TestReconfigureFlushesStaleSamples(t *testing.T) {
	filter := &fakeFilter{}
	in := New(filter, int64(1e9))
	require.NoError(t, in.Start())

	in.PushGyro(GyroSample{AngularRate: [3]float64{1, 0, 0}, TimestampNs: 100})
	in.Reconfigure(LatencyHigh)
	assert.Equal(t, LatencyHigh, in.Mode())

	// a sample from the in-flight (pre-reconfigure) batch must not reach the filter
	in.PushGyro(GyroSample{AngularRate: [3]float64{1, 1, 1}, TimestampNs: 100})
	require.Len(t, filter.gyroCalls, 1, "stale batch sample must be dropped, not delivered")

	in.PushGyro(GyroSample{AngularRate: [3]float64{2, 2, 2}, TimestampNs: 150})
	in.Drain() // no accel sample in this test, so the buffered gyro sample must be flushed to inspect it
	require.Len(t, filter.gyroCalls, 2)
	assert.Equal(t, int64(150), filter.gyroCalls[1].TimestampNs)
}

// TestPerKindMonotonicityIsIndependentAcrossStreams demonstrates the merge
// loop's core guarantee: a stream's own strictly-increasing timestamp
// invariant is the only thing gating acceptance of its samples. An accel
// sample must never be rejected merely because a gyro sample with a later
// timestamp already arrived, and vice versa.
func TestPerKindMonotonicityIsIndependentAcrossStreams(t *testing.T) {
	filter := &fakeFilter{}
	in := New(filter, int64(1e9))
	require.NoError(t, in.Start())

	in.PushGyro(GyroSample{AngularRate: [3]float64{1, 0, 0}, TimestampNs: 100})
	in.PushAccel([3]float64{0, 1, 0}, 50)

	require.Len(t, filter.accelCalls, 1, "an accel sample must not be dropped just because a later gyro sample already arrived")
	assert.Equal(t, int64(50), filter.accelCalls[0].TimestampNs)

	in.Drain()
	require.Len(t, filter.gyroCalls, 1)
	assert.Equal(t, int64(100), filter.gyroCalls[0].TimestampNs)
}

// TestMergeOrdersAcrossStreamsByTimestamp confirms the filter sees samples
// in true cross-stream timestamp order, not arrival order, whenever both
// queues are holding a sample to compare.
func TestMergeOrdersAcrossStreamsByTimestamp(t *testing.T) {
	filter := &fakeFilter{}
	in := New(filter, int64(1e9))
	require.NoError(t, in.Start())

	in.PushGyro(GyroSample{AngularRate: [3]float64{1, 0, 0}, TimestampNs: 300})
	in.PushAccel([3]float64{0, 1, 0}, 100)
	in.PushAccel([3]float64{0, 2, 0}, 200)

	require.Len(t, filter.accelCalls, 2, "both accel samples precede the pending gyro sample and must be forwarded first")
	assert.Equal(t, int64(100), filter.accelCalls[0].TimestampNs)
	assert.Equal(t, int64(200), filter.accelCalls[1].TimestampNs)
	assert.Empty(t, filter.gyroCalls, "the gyro sample has no counterpart yet and must still be buffered")

	in.Drain()
	require.Len(t, filter.gyroCalls, 1)
	assert.Equal(t, int64(300), filter.gyroCalls[0].TimestampNs)
}

func TestStopFreezesFilterStateForResume(t *testing.T) {
	filter := &fakeFilter{}
	in := New(filter, int64(1e9))
	require.NoError(t, in.Start())
	in.PushGyro(GyroSample{AngularRate: [3]float64{1, 0, 0}, TimestampNs: 10})

	in.Stop()
	assert.True(t, filter.released)
	assert.False(t, in.Running())

	require.NoError(t, in.Start())
	assert.True(t, in.Running())
}

func TestRecenterDelegatesToFilter(t *testing.T) {
	filter := &fakeFilter{}
	in := New(filter, int64(1e9))
	require.NoError(t, in.Start())
	in.Recenter()
	assert.Equal(t, 1, filter.recenters)
}
