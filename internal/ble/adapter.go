package ble

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"tinygo.org/x/bluetooth"
)

// pairingServiceUUID and mainServiceUUID partition the two logical
// channels onto distinct GATT services so a central can open whichever
// one its current phase needs without the camera having to multiplex by
// characteristic alone. These are ordinary UUID literals via google/uuid,
// then handed to bluetooth.NewUUID in its own [16]byte form, rather than
// hand-rolled byte arrays.
var (
	pairingServiceUUID = toBluetoothUUID(uuid.MustParse("4159da00-0001-4000-8000-000000000000"))
	mainServiceUUID    = toBluetoothUUID(uuid.MustParse("4159da00-0002-4000-8000-000000000000"))
	pairingCharUUID    = toBluetoothUUID(uuid.MustParse("4159da01-0001-4000-8000-000000000000"))
	mainCharUUID       = toBluetoothUUID(uuid.MustParse("4159da01-0002-4000-8000-000000000000"))

	manufacturerCompanyID uint16 = 0xFFFF
)

func toBluetoothUUID(id uuid.UUID) bluetooth.UUID {
	return bluetooth.NewUUID([16]byte(id))
}

// Adapter wires a Server to the local platform's Bluetooth radio via
// tinygo.org/x/bluetooth. It implements both Notifier and Advertiser so
// a single value satisfies both Server dependencies.
//
// tinygo.org/x/bluetooth's peripheral role does not address notifies by
// individual central on every supported platform, so Notify broadcasts
// on the characteristic matching kind; Server still tracks per-connID
// framing state so a future platform with per-central addressing can be
// plugged in without changing Server.
type Adapter struct {
	adapter       *bluetooth.Adapter
	pairingChar   bluetooth.Characteristic
	mainChar      bluetooth.Characteristic
	advertisement *bluetooth.Advertisement

	mu   sync.Mutex
	seen map[string]struct{} // connIDs already HandleConnect-ed
}

// NewAdapter enables the default local Bluetooth adapter and registers
// the pairing and main GATT services. srv.HandleConnect/HandleWrite are
// invoked from the write-event callbacks; connID is synthesized from
// the connection handle tinygo hands back, since the library does not
// expose a stable peer address on every backend.
func NewAdapter(srv *Server) (*Adapter, error) {
	adapter := bluetooth.DefaultAdapter
	if err := adapter.Enable(); err != nil {
		return nil, fmt.Errorf("ble: enable adapter: %w", err)
	}

	a := &Adapter{adapter: adapter, seen: make(map[string]struct{})}

	connID := func(c bluetooth.Connection) string {
		return fmt.Sprintf("conn-%d", c)
	}

	err := adapter.AddService(&bluetooth.Service{
		UUID: pairingServiceUUID,
		Characteristics: []bluetooth.CharacteristicConfig{
			{
				Handle: &a.pairingChar,
				UUID:   pairingCharUUID,
				Flags:  bluetooth.CharacteristicWritePermission | bluetooth.CharacteristicWriteWithoutResponsePermission | bluetooth.CharacteristicNotifyPermission,
				WriteEvent: func(client bluetooth.Connection, offset int, value []byte) {
					id := connID(client)
					a.ensureConnected(srv, id, ChannelPairing)
					srv.HandleWrite(id, value)
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("ble: add pairing service: %w", err)
	}

	err = adapter.AddService(&bluetooth.Service{
		UUID: mainServiceUUID,
		Characteristics: []bluetooth.CharacteristicConfig{
			{
				Handle: &a.mainChar,
				UUID:   mainCharUUID,
				Flags:  bluetooth.CharacteristicWritePermission | bluetooth.CharacteristicWriteWithoutResponsePermission | bluetooth.CharacteristicNotifyPermission,
				WriteEvent: func(client bluetooth.Connection, offset int, value []byte) {
					id := connID(client)
					a.ensureConnected(srv, id, ChannelMain)
					srv.HandleWrite(id, value)
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("ble: add main service: %w", err)
	}

	a.advertisement = adapter.DefaultAdvertisement()
	return a, nil
}

// ensureConnected registers connID's channel accumulator with srv the
// first time a write arrives on it. tinygo.org/x/bluetooth's peripheral
// role does not surface a reliable per-connection connect event on
// every backend, so the accumulator is lazily created on first write
// instead of from a connect callback; disconnect cleanup is therefore
// left to the backend's own connection teardown rather than an explicit
// HandleDisconnect call.
func (a *Adapter) ensureConnected(srv *Server, connID string, kind int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.seen[connID]; ok {
		return
	}
	a.seen[connID] = struct{}{}
	srv.HandleConnect(connID, kind)
}

// StartAdvertising configures and (re)starts the advertisement with the
// given rotation of manufacturer data.
func (a *Adapter) StartAdvertising(manufacturerData []byte) error {
	err := a.advertisement.Configure(bluetooth.AdvertisementOptions{
		LocalName:    "Daydream Camera",
		ServiceUUIDs: []bluetooth.UUID{pairingServiceUUID},
		ManufacturerData: []bluetooth.ManufacturerDataElement{
			{CompanyID: manufacturerCompanyID, Data: manufacturerData},
		},
	})
	if err != nil {
		return fmt.Errorf("ble: configure advertisement: %w", err)
	}
	return a.advertisement.Start()
}

// StopAdvertising halts the radio advertisement.
func (a *Adapter) StopAdvertising() error {
	return a.advertisement.Stop()
}

// Notify writes data to the characteristic matching kind. connID is
// unused on backends without per-central notify addressing; see the
// Adapter doc comment.
func (a *Adapter) Notify(connID string, kind int, frame []byte) error {
	var ch *bluetooth.Characteristic
	switch channelKind(kind) {
	case channelPairing:
		ch = &a.pairingChar
	case channelMain:
		ch = &a.mainChar
	default:
		return fmt.Errorf("ble: unknown channel kind %d", kind)
	}
	_, err := ch.Write(frame)
	return err
}
