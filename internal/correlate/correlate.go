// Package correlate implements the capture-result to frame correlator
// (C12): frames and capture results arrive on the same thread, in either
// order, and must be paired up so the frame can be copied to the encoder
// surface at the mid-exposure instant the orientation track (C10) is
// timestamped against.
package correlate

import (
	"log"
	"time"
)

// Frame is an opaque texture handle plus the sensor timestamp it was
// captured at.
type Frame struct {
	Texture     any
	TimestampNs int64
	arrivedAt   time.Time
}

// Result is a capture result reported by the imaging pipeline, carrying
// the sensor timestamp of the frame it corresponds to plus the exposure
// parameters needed to compute the mid-exposure adjustment.
type Result struct {
	TimestampNs      int64
	ExposureNs       int64
	RollingShutterNs int64
}

// Copier performs the actual copy to the encoder surface at the given
// adjusted timestamp; it is the opaque platform collaborator.
type Copier interface {
	Copy(texture any, adjustedTimestampNs int64)
}

// entry is a pending frame or result awaiting its counterpart.
type entry struct {
	frame     *Frame
	result    *Result
	timestamp int64
	arrivedAt time.Time
}

// Correlator pairs frames with capture results by sensor timestamp.
// on_frame and on_capture_result are both expected to arrive on the same
// thread, so this type is not internally synchronized; callers must
// serialize access themselves.
type Correlator struct {
	copier Copier
	nowFn  func() time.Time

	pending map[int64]*entry

	purgeAge   time.Duration
	discardAge time.Duration

	stats Stats
}

// Stats are cumulative correlator counters, exposed for diagnostics.
type Stats struct {
	FramesMatched      int
	ResultsMatched     int
	MissingResults     int
	PurgedStale        int
	DiscardedOnArrival int
}

// New creates a Correlator. purgeAge and discardAge default to 2s and 1s
// respectively when zero or negative.
func New(copier Copier, purgeAge, discardAge time.Duration) *Correlator {
	if purgeAge <= 0 {
		purgeAge = 2 * time.Second
	}
	if discardAge <= 0 {
		discardAge = 1 * time.Second
	}
	return &Correlator{
		copier:     copier,
		nowFn:      time.Now,
		pending:    make(map[int64]*entry),
		purgeAge:   purgeAge,
		discardAge: discardAge,
	}
}

// OnFrame records a newly rendered frame. If a matching result already
// arrived, the frame is copied immediately at the adjusted timestamp;
// otherwise it is recorded awaiting the result.
func (c *Correlator) OnFrame(texture any, timestampNs int64) {
	now := c.nowFn()
	c.purgeLocked(now)

	if e, ok := c.pending[timestampNs]; ok && e.result != nil {
		adjusted := midExposure(timestampNs, e.result)
		delete(c.pending, timestampNs)
		c.stats.FramesMatched++
		c.copier.Copy(texture, adjusted)
		return
	}

	c.pending[timestampNs] = &entry{
		frame:     &Frame{Texture: texture, TimestampNs: timestampNs, arrivedAt: now},
		timestamp: timestampNs,
		arrivedAt: now,
	}
}

// OnCaptureResult records a capture result. If the matching frame already
// arrived, it is copied now at the adjusted mid-exposure timestamp;
// otherwise the result is recorded awaiting the frame.
func (c *Correlator) OnCaptureResult(result Result) {
	now := c.nowFn()
	c.purgeLocked(now)

	if e, ok := c.pending[result.TimestampNs]; ok && e.frame != nil {
		adjusted := midExposure(result.TimestampNs, &result)
		delete(c.pending, result.TimestampNs)
		c.stats.ResultsMatched++
		c.copier.Copy(e.frame.Texture, adjusted)
		return
	}

	r := result
	c.pending[result.TimestampNs] = &entry{
		result:    &r,
		timestamp: result.TimestampNs,
		arrivedAt: now,
	}
}

// midExposure computes (exposure + rolling_shutter_skew)/2 past the
// sensor timestamp, the instant the frame is placed at.
func midExposure(timestampNs int64, result *Result) int64 {
	return timestampNs + (result.ExposureNs+result.RollingShutterNs)/2
}

// purgeLocked drops entries older than discardAge proactively and any
// remaining older than purgeAge, logging a missing-result warning and
// copying the frame unadjusted for any frame that aged out without ever
// matching a result.
func (c *Correlator) purgeLocked(now time.Time) {
	for ts, e := range c.pending {
		age := now.Sub(e.arrivedAt)
		switch {
		case age >= c.discardAge && e.frame != nil:
			log.Printf("correlate: frame at t=%d aged out with no matching result, copying unadjusted", ts)
			c.stats.MissingResults++
			c.copier.Copy(e.frame.Texture, ts)
			delete(c.pending, ts)
			c.stats.DiscardedOnArrival++
		case age >= c.discardAge:
			// a result with no matching frame: nothing to copy, just drop it.
			delete(c.pending, ts)
			c.stats.DiscardedOnArrival++
		case age >= c.purgeAge:
			delete(c.pending, ts)
			c.stats.PurgedStale++
		}
	}
}

// StatsSnapshot returns a snapshot of cumulative correlator counters.
func (c *Correlator) StatsSnapshot() Stats {
	return c.stats
}

// Pending returns the number of unmatched frames/results currently held.
func (c *Correlator) Pending() int {
	return len(c.pending)
}
