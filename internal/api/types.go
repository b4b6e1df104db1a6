// Package api implements the request-type dispatcher (C7) shared by the BLE
// and HTTP surfaces, plus the wire-level request/response envelope.
//
// The external schema is expressed as JSON, with a "type" discriminator
// driving a Go type switch instead of a oneof.
package api

import (
	"encoding/json"
	"time"
)

// RequestType enumerates the request type tags recognized by the
// dispatcher. Unrecognized values are NOT_SUPPORTED.
type RequestType string

const (
	TypeStatus        RequestType = "STATUS"
	TypeConfigure     RequestType = "CONFIGURE"
	TypeMediaList     RequestType = "MEDIA_LIST"
	TypeCaptureStart  RequestType = "CAPTURE_START"
	TypeCaptureStop   RequestType = "CAPTURE_STOP"
	TypeWifiConfigure RequestType = "WIFI_CONFIGURE"
	TypeUpdateStatus  RequestType = "UPDATE_STATUS"

	// TypeKeyExchangeInitiate and TypeKeyExchangeFinalize are only ever
	// carried on the BLE pairing channel; the main-channel
	// Dispatcher never sees them and would report them NOT_SUPPORTED.
	TypeKeyExchangeInitiate RequestType = "KEY_EXCHANGE_INITIATE"
	TypeKeyExchangeFinalize RequestType = "KEY_EXCHANGE_FINALIZE"
)

// Header is the envelope carried by every request.
type Header struct {
	RequestID           uint64 `json:"requestId"`
	ExpirationTimestamp int64  `json:"expirationTimestamp"` // unix millis
}

// Request is the decoded wire request: a header, a type tag, and a
// type-specific payload left as raw JSON until the dispatcher switches on
// Type.
type Request struct {
	Header  Header          `json:"header"`
	Type    RequestType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Decode parses a wire request body.
func Decode(body []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// Encode serializes a wire response body.
func (r *Response) Encode() ([]byte, error) {
	return json.Marshal(r)
}

// Expired reports whether the request's expiration timestamp is in the
// past relative to now.
func (r *Request) Expired(now time.Time) bool {
	return r.Header.ExpirationTimestamp < now.UnixMilli()
}

// ResponseStatus is the dispatcher's structured outcome enum.
type ResponseStatus string

const (
	StatusOK             ResponseStatus = "OK"
	StatusNotSupported   ResponseStatus = "NOT_SUPPORTED"
	StatusInvalidRequest ResponseStatus = "INVALID_REQUEST"
	StatusError          ResponseStatus = "ERROR"
)

// Response is returned by the dispatcher for every request type. It always
// echoes the incoming request_id.
type Response struct {
	RequestID uint64          `json:"requestId"`
	Status    ResponseStatus  `json:"status"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Error     string          `json:"error,omitempty"`
}

func newResponse(requestID uint64, status ResponseStatus) *Response {
	return &Response{RequestID: requestID, Status: status}
}

func (r *Response) withPayload(v any) *Response {
	b, err := json.Marshal(v)
	if err != nil {
		r.Status = StatusError
		r.Error = err.Error()
		return r
	}
	r.Payload = b
	return r
}

// --- Request/response payload shapes -------------------------------------

// ConfigurePayload updates a subset of user preferences.
type ConfigurePayload struct {
	CaptureDefaults map[string]any `json:"captureDefaults,omitempty"`
	WifiPrefs       map[string]any `json:"wifiPrefs,omitempty"`
}

// MediaListPayload requests a page of media items.
type MediaListPayload struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// MediaListResult is the MEDIA_LIST response payload.
type MediaListResult struct {
	Items []MediaItem `json:"items"`
	Total int         `json:"total"`
}

// MediaItem mirrors the companion app's Media Item tuple.
type MediaItem struct {
	Path        string `json:"path"`
	Size        int64  `json:"size"`
	TimestampMs int64  `json:"timestampMs"`
	DurationMs  int64  `json:"durationMs"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Checksum    string `json:"checksum,omitempty"`
	HasChecksum bool   `json:"hasChecksum"`
}

// CaptureStartPayload requests a photo capture.
type CaptureStartPayload struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

// CaptureStopPayload cancels a previously queued capture by ID.
type CaptureStopPayload struct {
	ID string `json:"id"`
}

// WifiConfigurePayload requests a Wi-Fi network join.
type WifiConfigurePayload struct {
	SSID       string `json:"ssid"`
	Passphrase string `json:"passphrase"`
	Forget     bool   `json:"forget,omitempty"`
}

// StatusResult is the STATUS response payload: the C8 snapshot plus
// capabilities and storage status.
type StatusResult struct {
	PairingStatus            string        `json:"pairingStatus"`
	CameraState              string        `json:"cameraState"`
	ConnectedDeviceAddresses []string      `json:"connectedDeviceAddresses"`
	Capabilities             Capabilities  `json:"capabilities"`
	Storage                  StorageStatus `json:"storage"`
}

// Capabilities describes static camera capabilities.
type Capabilities struct {
	MaxPhotoWidth  int      `json:"maxPhotoWidth"`
	MaxPhotoHeight int      `json:"maxPhotoHeight"`
	SupportedModes []string `json:"supportedModes"`
}

// StorageStatus describes available on-device storage.
type StorageStatus struct {
	TotalBytes     int64 `json:"totalBytes"`
	AvailableBytes int64 `json:"availableBytes"`
}

// UpdateStatusResult is the UPDATE_STATUS response payload.
type UpdateStatusResult struct {
	State   string `json:"state"` // e.g. "idle", "downloading", "installing", "failed"
	Percent int    `json:"percent,omitempty"`
}

// KeyExchangePayload carries the phone's public key and salt for both
// KEY_EXCHANGE_INITIATE and KEY_EXCHANGE_FINALIZE.
type KeyExchangePayload struct {
	PublicKey []byte `json:"publicKey"`
	Salt      []byte `json:"salt"`
}

// KeyExchangeResult is the KEY_EXCHANGE_INITIATE response payload: the
// camera's public key and salt.
type KeyExchangeResult struct {
	PublicKey []byte `json:"publicKey"`
	Salt      []byte `json:"salt"`
}
