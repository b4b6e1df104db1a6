package api

import (
	"encoding/json"
	"time"

	"github.com/daydream/camera-core/internal/capture"
	"github.com/daydream/camera-core/internal/media"
	"github.com/daydream/camera-core/internal/settings"
	"github.com/daydream/camera-core/internal/status"
	"github.com/daydream/camera-core/internal/wifi"
)

// CameraInfo supplies the static/slow-changing fields STATUS responses
// aggregate alongside the C8 snapshot.
type CameraInfo interface {
	Capabilities() Capabilities
	Storage() StorageStatus
}

// UpdateChecker reports the device's pending software-update status for
// UPDATE_STATUS requests; the update mechanism itself lives elsewhere.
type UpdateChecker interface {
	UpdateStatus() (state string, percent int)
}

// Dispatcher implements the C7 request-type switch shared by the BLE and
// HTTP surfaces. It holds no transport-specific state: both
// surfaces decode a Request, call Dispatch, and encode the Response.
type Dispatcher struct {
	status  *status.Manager
	capture *capture.Queue
	wifi    *wifi.Machine
	store   *settings.Store
	media   *media.Lister
	camera  CameraInfo
	updates UpdateChecker

	now func() time.Time
}

// New constructs a Dispatcher wired to the core's shared components.
func New(statusMgr *status.Manager, captureQueue *capture.Queue, wifiMachine *wifi.Machine, store *settings.Store, mediaLister *media.Lister, camera CameraInfo, updates UpdateChecker) *Dispatcher {
	return &Dispatcher{
		status:  statusMgr,
		capture: captureQueue,
		wifi:    wifiMachine,
		store:   store,
		media:   mediaLister,
		camera:  camera,
		updates: updates,
		now:     time.Now,
	}
}

// Dispatch handles one decoded request and returns the response to
// encode back to the caller. It never returns a Go error:
// every failure mode is expressed as a Response with StatusError or
// StatusInvalidRequest, since both transports just serialize whatever
// comes back.
func (d *Dispatcher) Dispatch(req *Request) *Response {
	if req.Expired(d.now()) {
		return newResponse(req.Header.RequestID, StatusInvalidRequest)
	}

	switch req.Type {
	case TypeStatus:
		return d.handleStatus(req)
	case TypeConfigure:
		return d.handleConfigure(req)
	case TypeMediaList:
		return d.handleMediaList(req)
	case TypeCaptureStart:
		return d.handleCaptureStart(req)
	case TypeCaptureStop:
		return d.handleCaptureStop(req)
	case TypeWifiConfigure:
		return d.handleWifiConfigure(req)
	case TypeUpdateStatus:
		return d.handleUpdateStatus(req)
	default:
		return newResponse(req.Header.RequestID, StatusNotSupported)
	}
}

func (d *Dispatcher) handleStatus(req *Request) *Response {
	snap := d.status.Current()
	result := StatusResult{
		PairingStatus:            string(snap.PairingStatus),
		CameraState:              string(snap.CameraState),
		ConnectedDeviceAddresses: snap.ConnectedDeviceAddresses,
	}
	if d.camera != nil {
		result.Capabilities = d.camera.Capabilities()
		result.Storage = d.camera.Storage()
	}
	return newResponse(req.Header.RequestID, StatusOK).withPayload(result)
}

func (d *Dispatcher) handleConfigure(req *Request) *Response {
	var payload ConfigurePayload
	if err := json.Unmarshal(req.Payload, &payload); err != nil {
		return newResponse(req.Header.RequestID, StatusInvalidRequest)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return errorResponse(req.Header.RequestID, err)
	}
	if err := d.store.Set(settings.KeyUserPreferences, raw); err != nil {
		return errorResponse(req.Header.RequestID, err)
	}
	return newResponse(req.Header.RequestID, StatusOK)
}

func (d *Dispatcher) handleMediaList(req *Request) *Response {
	var payload MediaListPayload
	if err := json.Unmarshal(req.Payload, &payload); err != nil {
		return newResponse(req.Header.RequestID, StatusInvalidRequest)
	}
	items, total, err := d.media.List(payload.Offset, payload.Limit)
	if err != nil {
		return errorResponse(req.Header.RequestID, err)
	}
	out := make([]MediaItem, len(items))
	for i, it := range items {
		out[i] = MediaItem{Path: it.Path, Size: it.Size, TimestampMs: it.TimestampMs}
	}
	return newResponse(req.Header.RequestID, StatusOK).withPayload(MediaListResult{Items: out, Total: total})
}

func (d *Dispatcher) handleCaptureStart(req *Request) *Response {
	var payload CaptureStartPayload
	if err := json.Unmarshal(req.Payload, &payload); err != nil || payload.ID == "" {
		return newResponse(req.Header.RequestID, StatusInvalidRequest)
	}
	if !d.capture.Add(payload.ID, payload.Path) {
		return newResponse(req.Header.RequestID, StatusError)
	}
	return newResponse(req.Header.RequestID, StatusOK)
}

func (d *Dispatcher) handleCaptureStop(req *Request) *Response {
	var payload CaptureStopPayload
	if err := json.Unmarshal(req.Payload, &payload); err != nil || payload.ID == "" {
		return newResponse(req.Header.RequestID, StatusInvalidRequest)
	}
	if !d.capture.Remove(payload.ID) {
		return newResponse(req.Header.RequestID, StatusError)
	}
	return newResponse(req.Header.RequestID, StatusOK)
}

func (d *Dispatcher) handleWifiConfigure(req *Request) *Response {
	var payload WifiConfigurePayload
	if err := json.Unmarshal(req.Payload, &payload); err != nil {
		return newResponse(req.Header.RequestID, StatusInvalidRequest)
	}
	if payload.Forget || payload.SSID == "" {
		d.wifi.ReleaseNetwork(payload.Forget)
		return newResponse(req.Header.RequestID, StatusOK)
	}
	d.wifi.RequestNetwork(payload.SSID, payload.Passphrase, nil)
	return newResponse(req.Header.RequestID, StatusOK)
}

func (d *Dispatcher) handleUpdateStatus(req *Request) *Response {
	if d.updates == nil {
		return newResponse(req.Header.RequestID, StatusNotSupported)
	}
	state, percent := d.updates.UpdateStatus()
	return newResponse(req.Header.RequestID, StatusOK).withPayload(UpdateStatusResult{State: state, Percent: percent})
}

func errorResponse(requestID uint64, err error) *Response {
	r := newResponse(requestID, StatusError)
	r.Error = err.Error()
	return r
}
