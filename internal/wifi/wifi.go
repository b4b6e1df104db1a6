// Package wifi implements the Wi-Fi client state machine (C11): a
// disconnect-before-connect join sequence gated by a single mutex and a
// single 30s timer handle, mirroring the pairing package's state-machine
// idiom.
package wifi

import (
	"sync"
	"time"
)

// State is one of the four Wi-Fi client states.
type State string

const (
	StateIdle          State = "IDLE"
	StateDisconnecting State = "DISCONNECTING"
	StateConnecting    State = "CONNECTING"
	StateConnected     State = "CONNECTED"
)

// Platform is the opaque collaborator driving the actual OS network stack,
// treated as an external integration point.
// The machine calls these and expects the corresponding Observed* method
// to be invoked later, off the platform's own callback thread, as the OS
// reports state changes.
type Platform interface {
	// Disconnect tears down whatever network is currently active.
	Disconnect() error
	// EnableNetwork configures and attempts to join ssid/passphrase. The
	// outcome is reported asynchronously via ObservedConnected,
	// ObservedAuthFailure, or a further ObservedDisconnected.
	EnableNetwork(ssid, passphrase string) error
	// BindDefaultNetwork binds the process's default route to ssid, so
	// application traffic does not silently fall back to another
	// interface.
	BindDefaultNetwork(ssid string) error
	// Forget removes ssid from the platform's stored network configs.
	Forget(ssid string) error
}

// Listener receives at most one terminal outcome per request_network call:
// nil on success (the state machine itself doesn't report success beyond
// reaching Connected, but a listener is still given the chance to observe
// it), or one of the Err* sentinels on failure.
type Listener func(err error)

// Machine is the Wi-Fi client state machine (C11). All transitions and
// the timeout check execute under mu.
type Machine struct {
	mu sync.Mutex

	state    State
	platform Platform
	timeout  time.Duration
	timer    *time.Timer

	targetSSID       string
	targetPassphrase string
	listener         Listener
}

// New constructs a Machine. timeout defaults to 30s when zero or
// negative.
func New(platform Platform, timeout time.Duration) *Machine {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Machine{
		state:    StateIdle,
		platform: platform,
		timeout:  timeout,
	}
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// RequestNetwork begins joining ssid. A request while the
// machine is not Idle surfaces ErrBusy to the NEW listener immediately
// and asynchronously, without disturbing the in-flight request.
func (m *Machine) RequestNetwork(ssid, passphrase string, listener Listener) {
	m.mu.Lock()
	if m.state != StateIdle {
		m.mu.Unlock()
		if listener != nil {
			go listener(ErrBusy)
		}
		return
	}

	m.targetSSID = ssid
	m.targetPassphrase = passphrase
	m.listener = listener
	m.state = StateDisconnecting
	m.armTimeoutLocked()
	err := m.platform.Disconnect()
	m.mu.Unlock()

	if err != nil {
		m.fail(ErrAuthentication)
	}
}

// ReleaseNetwork returns to Idle, either forgetting or keeping the stored
// network config per forget. It makes no platform call to unbind the
// default network or disconnect; Platform has no unbind operation.
func (m *Machine) ReleaseNetwork(forget bool) {
	m.mu.Lock()
	ssid := m.targetSSID
	m.cancelTimerLocked()
	m.clearLocked()
	m.mu.Unlock()

	if forget && ssid != "" {
		m.platform.Forget(ssid)
	}
}

// ObservedDisconnected is invoked by the platform when it observes the
// network interface go down. While Disconnecting, this advances to
// Connecting and enables the target network.
func (m *Machine) ObservedDisconnected() {
	m.mu.Lock()
	if m.state != StateDisconnecting {
		m.mu.Unlock()
		return
	}
	m.state = StateConnecting
	ssid, pass := m.targetSSID, m.targetPassphrase
	m.mu.Unlock()

	if err := m.platform.EnableNetwork(ssid, pass); err != nil {
		m.fail(ErrAuthentication)
	}
}

// ObservedConnected is invoked by the platform when it observes a
// successful association. A connection to the target SSID binds the
// default network and completes the request; a connection to a
// different SSID re-issues disconnect, since the disconnect-before-
// connect ordering is mandatory.
func (m *Machine) ObservedConnected(ssid string) {
	m.mu.Lock()
	if m.state != StateConnecting {
		m.mu.Unlock()
		return
	}
	if ssid != m.targetSSID {
		m.mu.Unlock()
		m.platform.Disconnect()
		return
	}

	m.state = StateConnected
	m.cancelTimerLocked()
	listener := m.listener
	target := m.targetSSID
	m.mu.Unlock()

	if err := m.platform.BindDefaultNetwork(target); err != nil {
		m.fail(ErrAuthentication)
		return
	}
	if listener != nil {
		listener(nil)
	}
}

// ObservedAuthFailure is invoked by the platform when the supplicant
// reports an authentication error against the target network.
func (m *Machine) ObservedAuthFailure() {
	m.fail(ErrAuthentication)
}

// fail surfaces err to the current listener and releases back to Idle.
func (m *Machine) fail(err error) {
	m.mu.Lock()
	if m.state == StateIdle {
		m.mu.Unlock()
		return
	}
	m.cancelTimerLocked()
	listener := m.listener
	m.clearLocked()
	m.mu.Unlock()

	if listener != nil {
		listener(err)
	}
}

func (m *Machine) clearLocked() {
	m.state = StateIdle
	m.targetSSID = ""
	m.targetPassphrase = ""
	m.listener = nil
	m.timer = nil
}

func (m *Machine) cancelTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *Machine) armTimeoutLocked() {
	m.cancelTimerLocked()
	m.timer = time.AfterFunc(m.timeout, m.onTimeout)
}

// onTimeout runs on its own goroutine (time.AfterFunc); it must not hold
// m.mu while invoking the listener: callers must never block under the
// lock.
func (m *Machine) onTimeout() {
	m.mu.Lock()
	fire := m.state != StateIdle
	var listener Listener
	if fire {
		listener = m.listener
		m.clearLocked()
	}
	m.mu.Unlock()
	if fire && listener != nil {
		listener(ErrTimeout)
	}
}
