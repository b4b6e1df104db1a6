package ble

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daydream/camera-core/internal/framing"
)

func TestChannelFeedExtractsSingleFrame(t *testing.T) {
	c := newChannel(channelMain)
	msg := []byte("hello")
	frames, err := c.feed(framing.Encode(msg))
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, msg, frames[0])
	assert.Empty(t, c.buf)
}

func TestChannelFeedExtractsCoalescedFrames(t *testing.T) {
	c := newChannel(channelPairing)
	wire := append(framing.Encode([]byte("first")), framing.Encode([]byte("second"))...)
	frames, err := c.feed(wire)
	require.NoError(t, err)
	require.Len(t, frames, 2)
	assert.Equal(t, []byte("first"), frames[0])
	assert.Equal(t, []byte("second"), frames[1])
}

func TestChannelFeedAcrossMultipleWrites(t *testing.T) {
	c := newChannel(channelMain)
	wire := framing.Encode([]byte("split message"))
	mid := len(wire) / 2

	frames, err := c.feed(wire[:mid])
	require.NoError(t, err)
	assert.Empty(t, frames)

	frames, err = c.feed(wire[mid:])
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, []byte("split message"), frames[0])
}

func TestChannelFeedLeavesIncompleteTailBuffered(t *testing.T) {
	c := newChannel(channelMain)
	wire := framing.Encode([]byte("one"))
	wire = append(wire, []byte("\x02\x03")...) // start of a second, unterminated frame

	frames, err := c.feed(wire)
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, []byte{0x02, 0x03}, c.buf)
}
