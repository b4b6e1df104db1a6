// Package pairing implements the two-step ECDH pairing state machine with
// user-confirmation gating.
//
// A single timer handle per machine drives the 10s session timeout: no
// goroutine chain, just time.AfterFunc cancelled on every transition out
// of AwaitingFinalize.
package pairing

import (
	"bytes"
	"sync"
	"time"

	"github.com/daydream/camera-core/internal/crypto"
	"github.com/daydream/camera-core/internal/settings"
)

// KeyInfo is the fixed HKDF info string published alongside the protocol.
var KeyInfo = []byte("daydreamcamera-pairing-v1")

// Status mirrors the pairing_status values of the C8 status snapshot.
type Status string

const (
	StatusNotAdvertising          Status = "NOT_ADVERTISING"
	StatusAdvertising             Status = "ADVERTISING"
	StatusWaitingForUserConfirm   Status = "WAITING_FOR_USER_CONFIRMATION"
	StatusUserConfirmationTimeout Status = "USER_CONFIRMATION_TIMEOUT"
	StatusPaired                  Status = "PAIRED"
)

// state is the internal machine state (Idle/AwaitingFinalize/Paired);
// there is no distinct "Initiated" state because the INITIATE transition
// lands directly in AwaitingFinalize.
type state int

const (
	stateIdle state = iota
	stateAwaitingFinalize
	statePaired
)

// Request is the phone-issued public key + salt, used for both INITIATE
// and FINALIZE.
type Request struct {
	PublicKey []byte // 65-byte uncompressed P-256 public key
	Salt      []byte // 32 bytes
}

func (r Request) equal(o Request) bool {
	return bytes.Equal(r.PublicKey, o.PublicKey) && bytes.Equal(r.Salt, o.Salt)
}

// Result is returned by Initiate: the camera's public key and salt to send
// back to the phone.
type Result struct {
	PublicKey []byte
	Salt      []byte
}

// FinalizeStatus is the outcome of a FINALIZE request.
type FinalizeStatus int

const (
	FinalizeOK FinalizeStatus = iota
	FinalizeInvalid
)

// session is the ephemeral, at-most-one-active pairing session.
type session struct {
	initiateRequest Request
	cameraSalt      []byte
	combinedSalt    []byte
	sharedKey       []byte
	initiatedAt     time.Time
	userConfirmed   bool
	finalized       bool
}

// Machine is the pairing state machine (C4). All transitions and timeout
// checks execute under mu.
type Machine struct {
	mu sync.Mutex

	state   state
	session *session
	timer   *time.Timer

	localKeyPair *crypto.KeyPair
	store        *settings.Store
	ttl          time.Duration

	onStatus func(Status)
}

// New constructs a Machine. localKeyPair is the camera's long-lived P-256
// identity; store persists the shared key. ttl defaults to 10s when
// zero.
func New(localKeyPair *crypto.KeyPair, store *settings.Store, ttl time.Duration) *Machine {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &Machine{
		state:        stateIdle,
		localKeyPair: localKeyPair,
		store:        store,
		ttl:          ttl,
	}
}

// OnStatusChange registers a callback invoked (synchronously, under no
// lock) whenever the pairing status changes. Only one subscriber is kept,
// matching how C8 wires a single fan-in observer per producer.
func (m *Machine) OnStatusChange(fn func(Status)) {
	m.mu.Lock()
	m.onStatus = fn
	m.mu.Unlock()
}

func (m *Machine) emit(s Status) {
	if m.onStatus != nil {
		m.onStatus(s)
	}
}

// Status returns the current pairing status for C8 to poll directly.
func (m *Machine) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.state {
	case statePaired:
		return StatusPaired
	case stateAwaitingFinalize:
		return StatusWaitingForUserConfirm
	default:
		return StatusNotAdvertising
	}
}

// Initiate handles KEY_EXCHANGE_INITIATE. A second INITIATE
// while a session is already active is rejected defensively and clears the
// current session.
func (m *Machine) Initiate(req Request) (*Result, error) {
	m.mu.Lock()

	if len(req.Salt) != 32 {
		m.mu.Unlock()
		return nil, ErrInvalidRequest
	}

	// Defensive: a second INITIATE while a session is awaiting FINALIZE
	// is rejected and clears that session.
	if m.state == stateAwaitingFinalize {
		m.clearSessionLocked()
		m.state = stateIdle
		m.mu.Unlock()
		return nil, ErrInvalidRequest
	}
	m.clearSessionLocked()

	result, err := m.initiateLocked(req)
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	m.emit(StatusWaitingForUserConfirm)
	return result, nil
}

// initiateLocked performs the crypto/persistence side-effects of INITIATE
// while mu is held, leaving emission to the caller (after unlock).
func (m *Machine) initiateLocked(req Request) (*Result, error) {
	cameraSalt, err := crypto.Random(32)
	if err != nil {
		return nil, err
	}
	combinedSalt := xorBytes(req.Salt, cameraSalt)

	secret, err := m.localKeyPair.DeriveShared(req.PublicKey)
	if err != nil {
		return nil, err
	}
	shared, err := crypto.HKDFSHA256(secret, combinedSalt, KeyInfo)
	if err != nil {
		return nil, err
	}

	if err := m.store.Set(settings.KeySharedKey, shared); err != nil {
		return nil, err
	}
	if err := m.store.SetSharedKeyPending(true); err != nil {
		return nil, err
	}

	m.session = &session{
		initiateRequest: req,
		cameraSalt:      cameraSalt,
		combinedSalt:    combinedSalt,
		sharedKey:       shared,
		initiatedAt:     time.Now(),
	}
	m.state = stateAwaitingFinalize
	m.armTimeoutLocked()

	return &Result{
		PublicKey: m.localKeyPair.PublicKeyBytes(),
		Salt:      cameraSalt,
	}, nil
}

// ConfirmUser records the local user's out-of-band confirmation. No message
// is emitted and no state transition occurs.
func (m *Machine) ConfirmUser() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == stateAwaitingFinalize && m.session != nil {
		m.session.userConfirmed = true
	}
}

// Finalize handles KEY_EXCHANGE_FINALIZE. FINALIZE before
// confirmation is rejected but does not clear the session, so a later
// confirm+finalize can still succeed within the TTL window.
func (m *Machine) Finalize(req Request) (FinalizeStatus, error) {
	m.mu.Lock()

	if m.state != stateAwaitingFinalize || m.session == nil {
		m.mu.Unlock()
		return FinalizeInvalid, nil
	}
	sess := m.session

	if time.Since(sess.initiatedAt) > m.ttl {
		m.timeoutLocked()
		m.mu.Unlock()
		m.emit(StatusUserConfirmationTimeout)
		return FinalizeInvalid, nil
	}

	if !req.equal(sess.initiateRequest) {
		// Malformed/mismatched FINALIZE: reject, clear the session, return
		// to Idle. The persisted pending key is overwritten on next INITIATE.
		m.clearSessionLocked()
		m.state = stateIdle
		m.mu.Unlock()
		return FinalizeInvalid, nil
	}
	if !sess.userConfirmed {
		// Rejected, but the session survives so a subsequent confirm can
		// still finalize within the TTL.
		m.mu.Unlock()
		return FinalizeInvalid, nil
	}

	sess.finalized = true
	m.state = statePaired
	m.cancelTimerLocked()
	err := m.store.SetSharedKeyPending(false)
	m.mu.Unlock()

	if err != nil {
		return FinalizeInvalid, err
	}
	m.emit(StatusPaired)
	return FinalizeOK, nil
}

// Cancel returns the machine to Idle from any state.
func (m *Machine) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearSessionLocked()
	m.state = stateIdle
}

func (m *Machine) clearSessionLocked() {
	m.cancelTimerLocked()
	m.session = nil
}

func (m *Machine) cancelTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *Machine) armTimeoutLocked() {
	m.cancelTimerLocked()
	m.timer = time.AfterFunc(m.ttl, m.onTimerFired)
}

// onTimerFired runs on its own goroutine (time.AfterFunc); it must not hold
// m.mu while calling emit, so the callback fires after the lock is
// released.
func (m *Machine) onTimerFired() {
	m.mu.Lock()
	fire := m.state == stateAwaitingFinalize
	if fire {
		m.timeoutLocked()
	}
	m.mu.Unlock()
	if fire {
		m.emit(StatusUserConfirmationTimeout)
	}
}

// timeoutLocked performs the Idle transition on timeout. Whether the
// persisted pending key is cleared immediately here, rather than left
// until the next INITIATE overwrites it, is an explicit Open Question
// decision — see DESIGN.md.
func (m *Machine) timeoutLocked() {
	m.session = nil
	m.state = stateIdle
	m.timer = nil
}

func xorBytes(a, b []byte) []byte {
	out := make([]byte, len(a))
	for i := range a {
		out[i] = a[i] ^ b[i]
	}
	return out
}
