// Package crypto implements the primitives the rest of the companion-control
// core builds on: P-256 ECDH key agreement, single-block HKDF-SHA256,
// HMAC-SHA256 request authentication, and versioned AES-GCM framing.
//
// Every failure is surfaced as an *Error value (see errors.go) so callers
// never have to guess which stdlib error type they're looking at.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"
)

// FrameVersion is the single byte prefixed to every encrypted blob (§4.1).
const FrameVersion byte = 0x01

const (
	ivSize  = 12 // 96-bit GCM IV
	tagSize = 16 // 128-bit GCM tag
)

// KeyPair is a long-lived NIST P-256 ECDH key pair.
type KeyPair struct {
	priv *ecdh.PrivateKey
}

// PublicKeyBytes returns the 65-byte uncompressed public key: 0x04 || X || Y.
func (kp *KeyPair) PublicKeyBytes() []byte {
	return kp.priv.PublicKey().Bytes()
}

// Private exposes the raw private scalar for persistence.
func (kp *KeyPair) Private() []byte {
	return kp.priv.Bytes()
}

// GenerateKeyPair creates a new random P-256 key pair.
func GenerateKeyPair() (*KeyPair, error) {
	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return nil, &Error{Kind: ErrBadCurve, Err: err}
	}
	return &KeyPair{priv: priv}, nil
}

// LoadKeyPair reconstructs a KeyPair from a previously persisted private
// scalar (see PublicKeyBytes/Private).
func LoadKeyPair(raw []byte) (*KeyPair, error) {
	priv, err := ecdh.P256().NewPrivateKey(raw)
	if err != nil {
		return nil, &Error{Kind: ErrBadCurve, Err: err}
	}
	return &KeyPair{priv: priv}, nil
}

// DeriveShared computes the raw ECDH shared secret between kp and a peer's
// 65-byte uncompressed public key. The peer bytes must be 65 bytes starting
// with 0x04 (§4.1 BadPeerKey).
func (kp *KeyPair) DeriveShared(peerPub []byte) ([]byte, error) {
	if len(peerPub) != 65 || peerPub[0] != 0x04 {
		return nil, &Error{Kind: ErrBadPeerKey}
	}
	pub, err := ecdh.P256().NewPublicKey(peerPub)
	if err != nil {
		return nil, &Error{Kind: ErrBadPeerKey, Err: err}
	}
	secret, err := kp.priv.ECDH(pub)
	if err != nil {
		return nil, &Error{Kind: ErrBadPeerKey, Err: err}
	}
	return secret, nil
}

// HKDFSHA256 derives 32 bytes of key material from ikm/salt/info using a
// single-block (N=1) HKDF-SHA256 expansion, per §4.1.
func HKDFSHA256(ikm, salt, info []byte) ([]byte, error) {
	out := make([]byte, 32)
	r := hkdf.New(sha256.New, ikm, salt, info)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, &Error{Kind: ErrKDFFailed, Err: err}
	}
	return out, nil
}

// HMACSHA256 computes HMAC-SHA256 over the byte-wise concatenation of parts,
// in order.
func HMACSHA256(key []byte, parts ...[]byte) []byte {
	mac := hmac.New(sha256.New, key)
	for _, p := range parts {
		mac.Write(p)
	}
	return mac.Sum(nil)
}

// Random returns n cryptographically secure random bytes.
func Random(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return nil, &Error{Kind: ErrRandomFailed, Err: err}
	}
	return buf, nil
}

// Encrypt produces version(1B) || iv(12B) || ciphertext_with_tag for
// plaintext under key (32 bytes), per §4.1.
func Encrypt(plaintext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, &Error{Kind: ErrBadKey, Err: err}
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, ivSize)
	if err != nil {
		return nil, &Error{Kind: ErrBadKey, Err: err}
	}
	iv, err := Random(ivSize)
	if err != nil {
		return nil, err
	}
	sealed := gcm.Seal(nil, iv, plaintext, nil)

	out := make([]byte, 0, 1+ivSize+len(sealed))
	out = append(out, FrameVersion)
	out = append(out, iv...)
	out = append(out, sealed...)
	return out, nil
}

// Decrypt inverts Encrypt. Returns ErrBadVersion if byte 0 isn't
// FrameVersion, ErrAuthFail on tag mismatch.
func Decrypt(blob, key []byte) ([]byte, error) {
	if len(blob) < 1+ivSize+tagSize {
		return nil, &Error{Kind: ErrAuthFail}
	}
	if blob[0] != FrameVersion {
		return nil, &Error{Kind: ErrBadVersion}
	}
	iv := blob[1 : 1+ivSize]
	ciphertext := blob[1+ivSize:]

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, &Error{Kind: ErrBadKey, Err: err}
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, ivSize)
	if err != nil {
		return nil, &Error{Kind: ErrBadKey, Err: err}
	}
	plaintext, err := gcm.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return nil, &Error{Kind: ErrAuthFail, Err: err}
	}
	return plaintext, nil
}
