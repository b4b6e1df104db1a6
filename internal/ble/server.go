// Package ble implements the secure BLE socket server (C5): one GATT
// characteristic per logical channel (pairing and main), framed with
// package framing, with the pairing channel routed to
// pairing.Machine in the clear and the main channel decrypted with the
// non-pending shared key before reaching api.Dispatcher.
package ble

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/daydream/camera-core/internal/api"
	"github.com/daydream/camera-core/internal/crypto"
	"github.com/daydream/camera-core/internal/framing"
	"github.com/daydream/camera-core/internal/pairing"
	"github.com/daydream/camera-core/internal/settings"
)

// Notifier delivers a framed, encoded blob back to one connected central
// on the channel it originated from. Implemented by the platform adapter
// (adapter.go) as a GATT characteristic notify/indicate.
type Notifier interface {
	Notify(connID string, kind int, frame []byte) error
}

// Advertiser starts/stops/rotates the BLE advertisement. Implemented by
// the platform adapter; kept as an interface so Server's rotation timing
// is unit-testable without a real radio.
type Advertiser interface {
	StartAdvertising(manufacturerData []byte) error
	StopAdvertising() error
}

// Exported channel-kind aliases so callers outside the package (the
// platform adapter) can address the two GATT characteristics without
// reaching into unexported names.
const (
	ChannelPairing = int(channelPairing)
	ChannelMain    = int(channelMain)
)

// Server is the C5 BLE socket server: it owns per-connection framing
// state, routes pairing-channel frames to pairing.Machine and
// main-channel frames (after decrypt) to api.Dispatcher, and drives the
// manufacturer-data advertising rotation.
type Server struct {
	mu       sync.Mutex
	channels map[string]*channel // connID -> accumulator

	executor   *Executor
	pairing    *pairing.Machine
	dispatcher *api.Dispatcher
	store      *settings.Store
	keyPair    *crypto.KeyPair
	notifier   Notifier
	advertiser Advertiser

	rotateEvery time.Duration
	rotateStop  chan struct{}
}

// NewServer wires the BLE server to the core's shared pairing machine,
// request dispatcher, settings store and local identity key pair.
// rotateEvery defaults to 30s when zero or negative.
func NewServer(executor *Executor, pairingMachine *pairing.Machine, dispatcher *api.Dispatcher, store *settings.Store, keyPair *crypto.KeyPair, notifier Notifier, advertiser Advertiser, rotateEvery time.Duration) *Server {
	if rotateEvery <= 0 {
		rotateEvery = 30 * time.Second
	}
	return &Server{
		channels:    make(map[string]*channel),
		executor:    executor,
		pairing:     pairingMachine,
		dispatcher:  dispatcher,
		store:       store,
		keyPair:     keyPair,
		notifier:    notifier,
		advertiser:  advertiser,
		rotateEvery: rotateEvery,
	}
}

// SetTransport binds the platform notifier/advertiser after construction.
// NewAdapter needs a *Server to register its GATT write callbacks
// against, so the Server and its own Adapter are necessarily
// constructed in two steps; this closes the loop.
func (s *Server) SetTransport(notifier Notifier, advertiser Advertiser) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifier = notifier
	s.advertiser = advertiser
}

// HandleConnect registers a new connection's byte accumulator for the
// given logical channel (ChannelPairing or ChannelMain).
func (s *Server) HandleConnect(connID string, kind int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channels[connID] = newChannel(channelKind(kind))
}

// HandleDisconnect drops the connection's accumulator. Any bytes still
// buffered (an incomplete frame) are discarded; there is nothing to
// flush on disconnect.
func (s *Server) HandleDisconnect(connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.channels, connID)
}

// HandleWrite feeds newly arrived bytes for connID, extracts every
// complete frame, and dispatches each in arrival order. It notifies the
// caller's response for every frame that produces one; requests that
// fail to decrypt produce no response at all.
func (s *Server) HandleWrite(connID string, data []byte) {
	s.mu.Lock()
	ch, ok := s.channels[connID]
	s.mu.Unlock()
	if !ok {
		return
	}

	frames, err := ch.feed(data)
	if err != nil {
		// Malformed framing: the channel already reset its buffer;
		// nothing else to do (no response).
		return
	}

	for _, raw := range frames {
		var resp []byte
		switch ch.kind {
		case channelPairing:
			resp = s.handlePairingFrame(raw)
		case channelMain:
			resp = s.handleMainFrame(raw)
		}
		if resp == nil {
			continue
		}
		s.notifier.Notify(connID, int(ch.kind), framing.Encode(resp))
	}
}

// handlePairingFrame decodes raw as a plaintext api.Request and routes
// KEY_EXCHANGE_INITIATE/FINALIZE to pairing.Machine directly, bypassing
// api.Dispatcher entirely: the pairing channel never carries an
// encrypted envelope and the main Dispatcher never sees these types.
func (s *Server) handlePairingFrame(raw []byte) []byte {
	req, err := api.Decode(raw)
	if err != nil {
		return encodeResponse(&api.Response{Status: api.StatusInvalidRequest, Error: err.Error()})
	}

	switch req.Type {
	case api.TypeKeyExchangeInitiate:
		var payload api.KeyExchangePayload
		if err := json.Unmarshal(req.Payload, &payload); err != nil {
			return encodeResponse(&api.Response{RequestID: req.Header.RequestID, Status: api.StatusInvalidRequest, Error: err.Error()})
		}
		result, err := s.pairing.Initiate(pairing.Request{PublicKey: payload.PublicKey, Salt: payload.Salt})
		if err != nil {
			return encodeResponse(&api.Response{RequestID: req.Header.RequestID, Status: api.StatusError, Error: err.Error()})
		}
		resp := &api.Response{RequestID: req.Header.RequestID, Status: api.StatusOK}
		body, _ := json.Marshal(api.KeyExchangeResult{PublicKey: result.PublicKey, Salt: result.Salt})
		resp.Payload = body
		return encodeResponse(resp)

	case api.TypeKeyExchangeFinalize:
		var payload api.KeyExchangePayload
		if err := json.Unmarshal(req.Payload, &payload); err != nil {
			return encodeResponse(&api.Response{RequestID: req.Header.RequestID, Status: api.StatusInvalidRequest, Error: err.Error()})
		}
		status, err := s.pairing.Finalize(pairing.Request{PublicKey: payload.PublicKey, Salt: payload.Salt})
		if err != nil {
			return encodeResponse(&api.Response{RequestID: req.Header.RequestID, Status: api.StatusError, Error: err.Error()})
		}
		if status != pairing.FinalizeOK {
			return encodeResponse(&api.Response{RequestID: req.Header.RequestID, Status: api.StatusInvalidRequest})
		}
		return encodeResponse(&api.Response{RequestID: req.Header.RequestID, Status: api.StatusOK})

	default:
		return encodeResponse(&api.Response{RequestID: req.Header.RequestID, Status: api.StatusNotSupported})
	}
}

// handleMainFrame decrypts raw with the current (non-pending) shared
// key and routes the plaintext through api.Dispatcher, then re-encrypts
// the response. A decrypt failure produces no response at all; a
// successful decrypt followed by a malformed request still yields an
// encrypted INVALID_REQUEST response.
func (s *Server) handleMainFrame(raw []byte) []byte {
	key, ok := s.store.Get(settings.KeySharedKey)
	if !ok || s.store.SharedKeyPending() {
		return nil
	}

	plaintext, err := crypto.Decrypt(raw, key)
	if err != nil {
		return nil
	}

	req, err := api.Decode(plaintext)
	if err != nil {
		resp := &api.Response{Status: api.StatusInvalidRequest, Error: err.Error()}
		return s.sealResponse(resp, key)
	}

	resp := s.dispatcher.Dispatch(req)
	return s.sealResponse(resp, key)
}

func (s *Server) sealResponse(resp *api.Response, key []byte) []byte {
	body, err := resp.Encode()
	if err != nil {
		return nil
	}
	sealed, err := crypto.Encrypt(body, key)
	if err != nil {
		return nil
	}
	return sealed
}

func encodeResponse(resp *api.Response) []byte {
	body, err := resp.Encode()
	if err != nil {
		return nil
	}
	return body
}

// RefreshPairingWindow rotates the manufacturer-data advertisement
// using the camera's long-lived public key. Callers invoke
// this on a timer (see StartAdvertisingRotation) or directly when the
// pairing status changes.
func (s *Server) RefreshPairingWindow() error {
	data, err := AdvertisedManufacturerData(s.keyPair.PublicKeyBytes())
	if err != nil {
		return err
	}
	return s.executor.Run(func() error {
		return s.advertiser.StartAdvertising(data)
	})
}

// StartAdvertisingRotation refreshes the advertisement immediately and
// then every rotateEvery until StopAdvertisingRotation is called.
func (s *Server) StartAdvertisingRotation() error {
	if err := s.RefreshPairingWindow(); err != nil {
		return err
	}
	s.mu.Lock()
	if s.rotateStop != nil {
		s.mu.Unlock()
		return nil
	}
	stop := make(chan struct{})
	s.rotateStop = stop
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(s.rotateEvery)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.RefreshPairingWindow()
			}
		}
	}()
	return nil
}

// StopAdvertisingRotation stops the rotation goroutine and the radio.
func (s *Server) StopAdvertisingRotation() error {
	s.mu.Lock()
	stop := s.rotateStop
	s.rotateStop = nil
	s.mu.Unlock()
	if stop != nil {
		close(stop)
	}
	return s.executor.Run(s.advertiser.StopAdvertising)
}
