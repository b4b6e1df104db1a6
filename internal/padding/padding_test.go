package padding

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPadProducesEqualLengthForDifferentContent(t *testing.T) {
	p1 := Pad([]byte("short"))
	p2 := Pad([]byte("a-much-longer-wifi-passphrase-but-still-under-the-cap"))
	assert.Equal(t, len(p1), len(p2))
	assert.Equal(t, PaddedLen(), len(p1))
}

func TestPadUnpadRoundTrip(t *testing.T) {
	cases := []string{"", "x", "correct horse battery staple", string(make([]byte, MaxFieldLen))}
	for _, c := range cases {
		padded := Pad([]byte(c))
		got := Unpad(padded)
		assert.Equal(t, []byte(c), got)
	}
}

func TestPadTruncatesBeyondMax(t *testing.T) {
	long := make([]byte, MaxFieldLen+50)
	for i := range long {
		long[i] = byte('a' + i%26)
	}
	padded := Pad(long)
	assert.Equal(t, PaddedLen(), len(padded))
	got := Unpad(padded)
	assert.Len(t, got, MaxFieldLen)
	assert.Equal(t, long[:MaxFieldLen], got)
}

func TestPadHandlesEmbeddedZeroBytes(t *testing.T) {
	field := []byte{0x00, 0x01, 0x00, 0x02, 0x00}
	padded := Pad(field)
	assert.Equal(t, field, Unpad(padded))
}
