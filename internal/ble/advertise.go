package ble

import (
	"github.com/daydream/camera-core/internal/crypto"
)

// NonceSize and TagSize size the manufacturer-data rotation layout:
// random_nonce(k bytes) || truncated_tag(m bytes).
const (
	NonceSize = 8
	TagSize   = 8
)

// AdvertisedManufacturerData computes one rotation of the manufacturer
// data: a fresh random nonce plus a truncated HMAC tag over it keyed by
// the camera's public key, so a peer that knows the public key can
// recompute the tag and confirm identity without the camera revealing it
// directly. Exposed as a standalone pure function (beyond nonce
// generation) so the rotation property is unit-testable.
func AdvertisedManufacturerData(cameraPublicKey []byte) ([]byte, error) {
	nonce, err := crypto.Random(NonceSize)
	if err != nil {
		return nil, err
	}
	return buildManufacturerData(cameraPublicKey, nonce), nil
}

func buildManufacturerData(cameraPublicKey, nonce []byte) []byte {
	tag := crypto.HMACSHA256(cameraPublicKey, nonce)
	out := make([]byte, 0, len(nonce)+TagSize)
	out = append(out, nonce...)
	out = append(out, tag[:TagSize]...)
	return out
}

// VerifyManufacturerData reproduces the tag over data's leading nonce
// bytes and compares it against the trailing tag, as a previously-paired
// scanning peer would.
func VerifyManufacturerData(cameraPublicKey, data []byte) bool {
	if len(data) != NonceSize+TagSize {
		return false
	}
	nonce := data[:NonceSize]
	gotTag := data[NonceSize:]
	want := buildManufacturerData(cameraPublicKey, nonce)
	return constantTimeEqual(want[NonceSize:], gotTag)
}

func constantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	var diff byte
	for i := range a {
		diff |= a[i] ^ b[i]
	}
	return diff == 0
}
