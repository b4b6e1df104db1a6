package api

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daydream/camera-core/internal/capture"
	"github.com/daydream/camera-core/internal/media"
	"github.com/daydream/camera-core/internal/settings"
	"github.com/daydream/camera-core/internal/status"
	"github.com/daydream/camera-core/internal/wifi"
)

type fakeCameraInfo struct{}

func (fakeCameraInfo) Capabilities() Capabilities {
	return Capabilities{MaxPhotoWidth: 4096, MaxPhotoHeight: 2048, SupportedModes: []string{"photo"}}
}
func (fakeCameraInfo) Storage() StorageStatus {
	return StorageStatus{TotalBytes: 1000, AvailableBytes: 500}
}

type fakeWifiPlatform struct{}

func (fakeWifiPlatform) Disconnect() error                    { return nil }
func (fakeWifiPlatform) EnableNetwork(ssid, pass string) error { return nil }
func (fakeWifiPlatform) BindDefaultNetwork(ssid string) error  { return nil }
func (fakeWifiPlatform) Forget(ssid string) error              { return nil }

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	store, err := settings.Open(filepath.Join(t.TempDir(), "settings.json"))
	require.NoError(t, err)
	statusMgr := status.New()
	captureQueue := capture.New(4)
	t.Cleanup(captureQueue.Close)
	wifiMachine := wifi.New(fakeWifiPlatform{}, time.Second)
	mediaLister := media.New(t.TempDir())
	return New(statusMgr, captureQueue, wifiMachine, store, mediaLister, fakeCameraInfo{}, nil)
}

func mustMarshal(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestDispatchExpiredRequestIsInvalid(t *testing.T) {
	d := newTestDispatcher(t)
	req := &Request{Header: Header{RequestID: 1, ExpirationTimestamp: time.Now().Add(-time.Hour).UnixMilli()}, Type: TypeStatus}
	resp := d.Dispatch(req)
	assert.Equal(t, StatusInvalidRequest, resp.Status)
	assert.Equal(t, uint64(1), resp.RequestID)
}

func TestDispatchUnknownTypeIsNotSupported(t *testing.T) {
	d := newTestDispatcher(t)
	req := &Request{Header: Header{RequestID: 2, ExpirationTimestamp: time.Now().Add(time.Hour).UnixMilli()}, Type: "BOGUS"}
	resp := d.Dispatch(req)
	assert.Equal(t, StatusNotSupported, resp.Status)
}

func TestDispatchStatusAggregatesSnapshotAndCapabilities(t *testing.T) {
	d := newTestDispatcher(t)
	req := &Request{Header: Header{RequestID: 3, ExpirationTimestamp: time.Now().Add(time.Hour).UnixMilli()}, Type: TypeStatus}
	resp := d.Dispatch(req)
	require.Equal(t, StatusOK, resp.Status)

	var result StatusResult
	require.NoError(t, json.Unmarshal(resp.Payload, &result))
	assert.Equal(t, "NOT_ADVERTISING", result.PairingStatus)
	assert.Equal(t, 4096, result.Capabilities.MaxPhotoWidth)
	assert.Equal(t, int64(500), result.Storage.AvailableBytes)
}

func TestDispatchCaptureStartThenStop(t *testing.T) {
	d := newTestDispatcher(t)
	start := &Request{
		Header:  Header{RequestID: 4, ExpirationTimestamp: time.Now().Add(time.Hour).UnixMilli()},
		Type:    TypeCaptureStart,
		Payload: mustMarshal(t, CaptureStartPayload{ID: "cap-1", Path: "/media/a.jpg"}),
	}
	resp := d.Dispatch(start)
	require.Equal(t, StatusOK, resp.Status)
	assert.Equal(t, 1, d.capture.Len())

	stop := &Request{
		Header:  Header{RequestID: 5, ExpirationTimestamp: time.Now().Add(time.Hour).UnixMilli()},
		Type:    TypeCaptureStop,
		Payload: mustMarshal(t, CaptureStopPayload{ID: "cap-1"}),
	}
	resp = d.Dispatch(stop)
	require.Equal(t, StatusOK, resp.Status)
	assert.Equal(t, 0, d.capture.Len())
}

func TestDispatchCaptureStopUnknownIDIsError(t *testing.T) {
	d := newTestDispatcher(t)
	stop := &Request{
		Header:  Header{RequestID: 6, ExpirationTimestamp: time.Now().Add(time.Hour).UnixMilli()},
		Type:    TypeCaptureStop,
		Payload: mustMarshal(t, CaptureStopPayload{ID: "missing"}),
	}
	resp := d.Dispatch(stop)
	assert.Equal(t, StatusError, resp.Status)
}

func TestDispatchWifiConfigureRequestsNetwork(t *testing.T) {
	d := newTestDispatcher(t)
	req := &Request{
		Header:  Header{RequestID: 7, ExpirationTimestamp: time.Now().Add(time.Hour).UnixMilli()},
		Type:    TypeWifiConfigure,
		Payload: mustMarshal(t, WifiConfigurePayload{SSID: "home", Passphrase: "hunter2"}),
	}
	resp := d.Dispatch(req)
	require.Equal(t, StatusOK, resp.Status)
	assert.Equal(t, wifi.StateDisconnecting, d.wifi.State())
}

func TestDispatchUpdateStatusWithoutCheckerIsNotSupported(t *testing.T) {
	d := newTestDispatcher(t)
	req := &Request{Header: Header{RequestID: 8, ExpirationTimestamp: time.Now().Add(time.Hour).UnixMilli()}, Type: TypeUpdateStatus}
	resp := d.Dispatch(req)
	assert.Equal(t, StatusNotSupported, resp.Status)
}

func TestDispatchConfigurePersistsPreferences(t *testing.T) {
	d := newTestDispatcher(t)
	req := &Request{
		Header:  Header{RequestID: 9, ExpirationTimestamp: time.Now().Add(time.Hour).UnixMilli()},
		Type:    TypeConfigure,
		Payload: mustMarshal(t, ConfigurePayload{WifiPrefs: map[string]any{"autoConnect": true}}),
	}
	resp := d.Dispatch(req)
	require.Equal(t, StatusOK, resp.Status)

	raw, ok := d.store.Get(settings.KeyUserPreferences)
	require.True(t, ok)
	var got ConfigurePayload
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, true, got.WifiPrefs["autoConnect"])
}
