// Package padding conceals the length of a sensitive field (e.g. a Wi-Fi
// passphrase) embedded in an otherwise-observable encoded message.
//
// Pad produces a byte-string of fixed length (PaddedLen), independent of
// the field's content and length, so that the outer message length is
// identical for any two fields; fields longer than MaxFieldLen are
// truncated.
package padding

import "encoding/binary"

// MaxFieldLen is L_max: the largest field length the scheme conceals.
// Fields longer than this are truncated before padding, same as the field
// itself would be truncated on the wire.
const MaxFieldLen = 128

// lenPrefixSize is the width of the length prefix carrying the true field
// length, so the field itself can contain arbitrary bytes (including 0x00)
// without confusing Unpad.
const lenPrefixSize = 2

// Pad returns a buffer of exactly PaddedLen() bytes: a 2-byte big-endian
// length prefix, the field (truncated to MaxFieldLen if necessary), then
// zero-fill to the fixed width.
func Pad(field []byte) []byte {
	truncated := field
	if len(truncated) > MaxFieldLen {
		truncated = truncated[:MaxFieldLen]
	}
	out := make([]byte, PaddedLen())
	binary.BigEndian.PutUint16(out, uint16(len(truncated)))
	copy(out[lenPrefixSize:], truncated)
	return out
}

// Unpad reverses Pad, returning the original (possibly truncated) field.
func Unpad(padded []byte) []byte {
	if len(padded) < lenPrefixSize {
		return nil
	}
	n := int(binary.BigEndian.Uint16(padded))
	body := padded[lenPrefixSize:]
	if n > len(body) {
		n = len(body)
	}
	return body[:n]
}

// PaddedLen is the fixed output length of Pad, independent of input length.
func PaddedLen() int {
	return lenPrefixSize + MaxFieldLen
}
