// Package status implements the internal status manager (C8): a reactive
// fan-in of pairing state, connected-device addresses, and camera state
// into a single monotonic snapshot.
//
// This is not a behavior-subject graph with distinctUntilChanged
// operators: it's one snapshot-recomputing function guarded by a mutex,
// invoked synchronously on whichever producer thread fires a change,
// delivering to subscribers only when the new snapshot differs from the
// last (structural equality).
package status

import (
	"sort"
	"sync"

	"github.com/daydream/camera-core/internal/pairing"
)

// CameraState mirrors the wire protocol's camera_state values.
type CameraState string

const (
	CameraActive   CameraState = "ACTIVE"
	CameraInactive CameraState = "INACTIVE"
)

// Snapshot is the fused status tuple.
type Snapshot struct {
	PairingStatus            pairing.Status
	CameraState              CameraState
	ConnectedDeviceAddresses []string
}

// equal compares two snapshots structurally, treating the address set as
// unordered.
func (s Snapshot) equal(o Snapshot) bool {
	if s.PairingStatus != o.PairingStatus || s.CameraState != o.CameraState {
		return false
	}
	if len(s.ConnectedDeviceAddresses) != len(o.ConnectedDeviceAddresses) {
		return false
	}
	a := append([]string(nil), s.ConnectedDeviceAddresses...)
	b := append([]string(nil), o.ConnectedDeviceAddresses...)
	sort.Strings(a)
	sort.Strings(b)
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Manager fuses the three independent input streams into one snapshot,
// delivering changes to registered watchers.
type Manager struct {
	mu       sync.Mutex
	current  Snapshot
	watchers []func(Snapshot)
}

// New creates a Manager with the default startup snapshot: not advertising,
// camera inactive, no connected devices.
func New() *Manager {
	return &Manager{
		current: Snapshot{
			PairingStatus: pairing.StatusNotAdvertising,
			CameraState:   CameraInactive,
		},
	}
}

// Watch registers fn to be called synchronously, in recomputation order,
// whenever the snapshot changes, in recomputation order with no skipped
// intermediate state.
func (m *Manager) Watch(fn func(Snapshot)) {
	m.mu.Lock()
	m.watchers = append(m.watchers, fn)
	m.mu.Unlock()
}

// Current returns the most recently delivered snapshot.
func (m *Manager) Current() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// SetPairingStatus updates the pairing_status field of the snapshot.
func (m *Manager) SetPairingStatus(s pairing.Status) {
	m.mutate(func(snap *Snapshot) { snap.PairingStatus = s })
}

// SetCameraState updates the camera_state field of the snapshot.
func (m *Manager) SetCameraState(s CameraState) {
	m.mutate(func(snap *Snapshot) { snap.CameraState = s })
}

// SetConnectedDevices replaces the connected_device_addresses set.
func (m *Manager) SetConnectedDevices(addrs []string) {
	cp := append([]string(nil), addrs...)
	m.mutate(func(snap *Snapshot) { snap.ConnectedDeviceAddresses = cp })
}

// mutate applies fn to a copy of the current snapshot and, if the result
// differs, stores it and notifies every watcher before returning.
func (m *Manager) mutate(fn func(*Snapshot)) {
	m.mu.Lock()
	next := m.current
	fn(&next)
	if next.equal(m.current) {
		m.mu.Unlock()
		return
	}
	m.current = next
	watchers := make([]func(Snapshot), len(m.watchers))
	copy(watchers, m.watchers)
	m.mu.Unlock()

	for _, w := range watchers {
		w(next)
	}
}
