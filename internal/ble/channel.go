package ble

import (
	"bytes"

	"github.com/daydream/camera-core/internal/framing"
)

// channelKind distinguishes the pairing channel from the main channel:
// each connected central is served on one or the other, never both,
// determined by which GATT service UUID it connected to.
type channelKind int

const (
	channelPairing channelKind = iota
	channelMain
)

// channel reassembles one connected central's framed byte stream: a
// receive buffer that never grows unbounded because every incoming byte
// is examined and a complete frame triggers dispatch + reset. Not safe
// for concurrent use: the platform delivers writes for one connection
// serially.
type channel struct {
	kind channelKind
	buf  []byte
}

func newChannel(kind channelKind) *channel {
	return &channel{kind: kind}
}

// feed appends data to the channel's receive buffer and extracts every
// complete frame now available, in arrival order. A frame boundary is
// the first 0x00 0x00 occurrence in the buffer: an encoded message
// contains exactly one such occurrence, at its own end; multiple queued
// messages concatenate without cross-frame escaping, so the interior
// occurrence is a real boundary.
func (c *channel) feed(data []byte) ([][]byte, error) {
	c.buf = append(c.buf, data...)

	var frames [][]byte
	for {
		idx := bytes.Index(c.buf, []byte{0x00, 0x00})
		if idx < 0 {
			break
		}
		raw := c.buf[:idx+2]
		c.buf = c.buf[idx+2:]

		msg, err := framing.Decode(raw)
		if err != nil {
			// Malformed escape sequence: reset this channel's buffer and
			// drop everything queued behind it. Framing errors are recovered
			// locally, the offending channel is reset, no response.
			c.buf = nil
			return frames, err
		}
		frames = append(frames, msg)
	}
	return frames, nil
}
