// Package motion implements the motion ingest & merge component (C10):
// it receives gyroscope and accelerometer samples off the platform
// sensor-fusion bridge, merges the two per-kind streams into a single
// true timestamp order, forwards them to an external OrientationFilter
// collaborator, and records the filter's derived orientation into an
// OrientationHistory the photo pipeline can later consult.
package motion

import (
	"log"
	"sync"

	"github.com/sigurn/crc16"
)

// Kind discriminates the three motion event kinds.
type Kind string

const (
	KindGyro        Kind = "GYRO"
	KindAccel       Kind = "ACCEL"
	KindOrientation Kind = "ORIENTATION"
)

// GyroSample is a raw six-value gyro reading: the first three values are
// the angular rate, the last three are the platform's live bias estimate
// for that tick.
type GyroSample struct {
	AngularRate [3]float64
	Bias        [3]float64
	TimestampNs int64
}

// LatencyMode selects between the sensor's batched, power-saving delivery
// interval and its live, low-latency one.
type LatencyMode string

const (
	LatencyHigh LatencyMode = "HIGH" // batched, power-saving
	LatencyLow  LatencyMode = "LOW"  // live
)

// VerifyCRC checks a platform-delivered group of encoded sample bytes
// against a CRC16/CCITT-FALSE checksum computed by the sensor-fusion
// bridge. It is a standalone helper: Ingest does not call it, so samples
// pushed through PushGyro/PushAccel are not CRC-checked.
func VerifyCRC(payload []byte, want uint16) bool {
	table := crc16.MakeTable(crc16.CRC16_CCITT_FALSE)
	return crc16.Checksum(payload, table) == want
}

// queuedGyro is a gyro sample held in the merge queue along with the bias
// that was in effect the instant it arrived. The bias is resolved at
// arrival time, not at delivery time, so a capture-start freeze can't be
// undone by a sample that sits buffered across the freeze boundary.
type queuedGyro struct {
	sample      GyroSample
	appliedBias [3]float64
}

type queuedAccel struct {
	values      [3]float64
	timestampNs int64
}

// Ingest is the merge loop: gyro and accel samples each arrive on their
// own strictly-increasing timestamp stream and are queued independently
// per kind. Whenever both queues hold a sample, the one with the smaller
// timestamp is dequeued and forwarded to the filter first, so the filter
// always observes true cross-stream timestamp order even when gyro and
// accel delivery interleave unevenly. Every gyro sample forwarded this
// way yields a derived ORIENTATION event recorded into history.
//
// This is a single mutex-guarded struct driven synchronously by the
// producer's calling goroutine (the sensor-fusion bridge callback), not a
// goroutine/channel pipeline: the platform bridge already serializes
// delivery, so there is exactly one writer at a time and no internal
// queue depth to manage beyond the bookkeeping below.
type Ingest struct {
	mu sync.Mutex

	filter  OrientationFilter
	history *OrientationHistory

	lastGyroNs    int64
	lastAccelNs   int64
	flushBeforeNs int64 // samples at/before this timestamp are dropped post-reconfigure

	running bool
	mode    LatencyMode

	captureActive  bool
	frozenBias     [3]float64
	haveFrozenBias bool
	latestBias     [3]float64

	gyroQueue  []queuedGyro
	accelQueue []queuedAccel
}

// New creates an Ingest driving filter and recording derived orientation
// into a history with the given retention window, defaulting to
// low-latency mode.
func New(filter OrientationFilter, historyWindowNs int64) *Ingest {
	return &Ingest{
		filter:  filter,
		history: NewOrientationHistory(historyWindowNs),
		mode:    LatencyLow,
	}
}

// Start initializes the underlying filter and begins accepting samples.
func (in *Ingest) Start() error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.running {
		return nil
	}
	if err := in.filter.Init(); err != nil {
		return err
	}
	in.running = true
	in.lastGyroNs = 0
	in.lastAccelNs = 0
	in.flushBeforeNs = 0
	in.gyroQueue = nil
	in.accelQueue = nil
	return nil
}

// Stop flushes any samples still buffered in the merge queues, freezes
// emission, and releases the filter. Filter state (e.g. any internal
// calibration) is discarded per Release's contract; resuming requires a
// fresh Start.
func (in *Ingest) Stop() {
	in.mu.Lock()
	defer in.mu.Unlock()
	if !in.running {
		return
	}
	in.flushRemainingLocked()
	in.filter.Release()
	in.running = false
}

// Drain forwards every sample currently sitting in the merge queues to
// the filter, in timestamp order, without waiting for a counterpart
// sample from the other kind. Call this at a batch boundary (e.g. once a
// high-latency burst has fully landed) when no more samples are expected
// imminently and the remaining backlog should stop waiting for a
// comparison partner.
func (in *Ingest) Drain() {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.flushRemainingLocked()
}

// PushGyro feeds a gyroscope sample into the merge loop. Samples with a
// timestamp not strictly after the last accepted gyro sample are
// dropped with a warning: gyro timestamps must increase monotonically
// within the gyro stream, independent of what the accel stream has
// delivered.
func (in *Ingest) PushGyro(sample GyroSample) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if !in.acceptGyroLocked(sample.TimestampNs) {
		return
	}

	in.latestBias = sample.Bias
	if !in.captureActive {
		in.frozenBias = sample.Bias
		in.haveFrozenBias = true
	}

	applied := sample.Bias
	if in.captureActive && in.haveFrozenBias {
		applied = in.frozenBias
	}

	in.gyroQueue = append(in.gyroQueue, queuedGyro{sample: sample, appliedBias: applied})
	in.mergeLocked()
}

// PushAccel feeds an accelerometer sample into the merge loop. Unlike
// gyro samples, accel samples do not themselves yield a derived
// orientation event: only gyro ticks drive ORIENTATION output. Accel
// timestamps must increase monotonically within the accel stream,
// independent of what the gyro stream has delivered.
func (in *Ingest) PushAccel(values [3]float64, timestampNs int64) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if !in.acceptAccelLocked(timestampNs) {
		return
	}
	in.accelQueue = append(in.accelQueue, queuedAccel{values: values, timestampNs: timestampNs})
	in.mergeLocked()
}

// acceptGyroLocked enforces the gyro stream's strictly-increasing
// timestamp invariant and the post-reconfigure flush boundary, dropping
// and logging samples that violate either. Caller must hold in.mu.
func (in *Ingest) acceptGyroLocked(timestampNs int64) bool {
	if !in.running {
		return false
	}
	if timestampNs <= in.flushBeforeNs {
		log.Printf("motion: dropping stale gyro sample at t=%d, predates latency-mode flush at t=%d", timestampNs, in.flushBeforeNs)
		return false
	}
	if timestampNs <= in.lastGyroNs {
		log.Printf("motion: dropping gyro sample at t=%d, not after last accepted gyro t=%d", timestampNs, in.lastGyroNs)
		return false
	}
	in.lastGyroNs = timestampNs
	return true
}

// acceptAccelLocked is acceptGyroLocked's accel-stream counterpart.
// Caller must hold in.mu.
func (in *Ingest) acceptAccelLocked(timestampNs int64) bool {
	if !in.running {
		return false
	}
	if timestampNs <= in.flushBeforeNs {
		log.Printf("motion: dropping stale accel sample at t=%d, predates latency-mode flush at t=%d", timestampNs, in.flushBeforeNs)
		return false
	}
	if timestampNs <= in.lastAccelNs {
		log.Printf("motion: dropping accel sample at t=%d, not after last accepted accel t=%d", timestampNs, in.lastAccelNs)
		return false
	}
	in.lastAccelNs = timestampNs
	return true
}

// mergeLocked dequeues and delivers samples while both queues hold at
// least one entry, always choosing the smaller head timestamp first. At
// most one queue is left non-empty when this returns: the remainder
// waits for either a counterpart sample or an explicit Drain. Caller
// must hold in.mu.
func (in *Ingest) mergeLocked() {
	for len(in.gyroQueue) > 0 && len(in.accelQueue) > 0 {
		if in.gyroQueue[0].sample.TimestampNs <= in.accelQueue[0].timestampNs {
			in.deliverGyroLocked(in.gyroQueue[0])
			in.gyroQueue = in.gyroQueue[1:]
		} else {
			in.deliverAccelLocked(in.accelQueue[0])
			in.accelQueue = in.accelQueue[1:]
		}
	}
}

// flushRemainingLocked merges what it can, then forwards whatever is
// left in either queue without waiting for a counterpart. Caller must
// hold in.mu.
func (in *Ingest) flushRemainingLocked() {
	in.mergeLocked()
	for _, q := range in.gyroQueue {
		in.deliverGyroLocked(q)
	}
	in.gyroQueue = nil
	for _, q := range in.accelQueue {
		in.deliverAccelLocked(q)
	}
	in.accelQueue = nil
}

func (in *Ingest) deliverGyroLocked(q queuedGyro) {
	in.filter.SetBias(q.appliedBias)
	in.filter.PushGyro(q.sample.AngularRate, q.sample.TimestampNs)
	if angleAxis, ok := in.filter.ReadOrientation(); ok {
		in.history.Insert(q.sample.TimestampNs, angleAxis)
	}
}

func (in *Ingest) deliverAccelLocked(q queuedAccel) {
	in.filter.PushAccel(q.values, q.timestampNs)
}

// Recenter zeroes the filter's reference orientation.
func (in *Ingest) Recenter() {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.filter.Recenter()
}

// SetCaptureActive toggles the capture-in-progress flag. While active,
// the most recently frozen gyro bias (captured at the instant capture
// became active) is applied to every gyro sample instead of the
// sample's own bias, so a photo's orientation metadata is stable across
// the exposure even if the live bias estimate drifts mid-capture: online
// bias estimation during capture would corrupt stabilization, so the
// latest stable estimate is frozen at capture start.
func (in *Ingest) SetCaptureActive(active bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if active && !in.captureActive {
		in.frozenBias = in.latestBias
		in.haveFrozenBias = true
	}
	in.captureActive = active
}

// Bias reports the bias currently being applied to gyro samples: the
// frozen bias while a capture is active, or the latest live bias
// otherwise. Exposed for diagnostics.
func (in *Ingest) Bias() [3]float64 {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.captureActive && in.haveFrozenBias {
		return in.frozenBias
	}
	return in.latestBias
}

// Reconfigure switches between high-latency (batched) and low-latency
// (live) sensor delivery. The in-flight batch is flushed: everything
// already accepted under the old mode is forwarded to the filter now,
// without waiting for a cross-stream counterpart, and any sample
// timestamped at or before the reconfiguration instant is dropped if it
// arrives afterward, guaranteeing no stale orientation sample escapes
// the transition.
func (in *Ingest) Reconfigure(mode LatencyMode) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.mode = mode
	in.flushRemainingLocked()
	boundary := in.lastGyroNs
	if in.lastAccelNs > boundary {
		boundary = in.lastAccelNs
	}
	in.flushBeforeNs = boundary
}

// Mode reports the current latency mode.
func (in *Ingest) Mode() LatencyMode {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.mode
}

// History returns the orientation history this ingest populates.
func (in *Ingest) History() *OrientationHistory {
	return in.history
}

// Running reports whether the ingest is currently accepting samples.
func (in *Ingest) Running() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.running
}
