// Command camerad is the composition root for the companion-control
// core: it loads configuration, constructs every component, and wires
// them into the BLE and HTTP surfaces before blocking on HTTP.
//
// Wiring is explicit constructor injection: no global registry, no
// init() side effects.
package main

import (
	"log"
	"net"
	"net/http"

	"github.com/daydream/camera-core/internal/api"
	"github.com/daydream/camera-core/internal/ble"
	"github.com/daydream/camera-core/internal/capture"
	"github.com/daydream/camera-core/internal/config"
	"github.com/daydream/camera-core/internal/crypto"
	"github.com/daydream/camera-core/internal/httpapi"
	"github.com/daydream/camera-core/internal/media"
	"github.com/daydream/camera-core/internal/pairing"
	"github.com/daydream/camera-core/internal/platform"
	"github.com/daydream/camera-core/internal/settings"
	"github.com/daydream/camera-core/internal/status"
	"github.com/daydream/camera-core/internal/wifi"
)

func main() {
	cfg := config.Load()

	store, err := settings.Open(cfg.SettingsPath)
	if err != nil {
		log.Fatal("settings: ", err)
	}

	keyPair := loadOrGenerateKeyPair(store)

	statusMgr := status.New()
	captureQueue := capture.New(cfg.CaptureQueueCapacity)
	defer captureQueue.Close()

	wifiMachine := wifi.New(platform.NewNMWifiPlatform("wlan0"), cfg.WifiConnectTimeout)
	mediaLister := media.New(cfg.MediaRoot)

	cameraInfo := platform.NewCameraInfo(cfg.MediaRoot, api.Capabilities{
		MaxPhotoWidth:  4096,
		MaxPhotoHeight: 4096,
		SupportedModes: []string{"photo"},
	})

	pairingMachine := pairing.New(keyPair, store, cfg.PairingSessionTTL)
	pairingMachine.OnStatusChange(statusMgr.SetPairingStatus)

	dispatcher := api.New(statusMgr, captureQueue, wifiMachine, store, mediaLister, cameraInfo, nil)

	startHTTP(cfg.HTTPAddr, store, dispatcher, mediaLister, statusMgr)
	startBLE(cfg, pairingMachine, dispatcher, store, keyPair)

	select {}
}

func loadOrGenerateKeyPair(store *settings.Store) *crypto.KeyPair {
	if raw, ok := store.Get(settings.KeyLocalKeyPair); ok {
		kp, err := crypto.LoadKeyPair(raw)
		if err == nil {
			return kp
		}
		log.Println("crypto: stored key pair unreadable, regenerating:", err)
	}

	kp, err := crypto.GenerateKeyPair()
	if err != nil {
		log.Fatal("crypto: generate key pair: ", err)
	}
	if err := store.Set(settings.KeyLocalKeyPair, kp.Private()); err != nil {
		log.Fatal("settings: persist key pair: ", err)
	}
	if err := store.Set(settings.KeyLocalKeyPairPub, kp.PublicKeyBytes()); err != nil {
		log.Fatal("settings: persist public key: ", err)
	}
	return kp
}

func startHTTP(addr string, store *settings.Store, dispatcher *api.Dispatcher, mediaLister *media.Lister, statusMgr *status.Manager) {
	auth := httpapi.NewAuthenticator(store)
	statusPusher := httpapi.NewStatusPusher(statusMgr)
	mux := httpapi.NewMux(auth, dispatcher, mediaLister, statusPusher)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatal("http: listen: ", err)
	}
	log.Println("http: listening on", addr)

	go func() {
		if err := http.Serve(ln, mux); err != nil {
			log.Fatal("http: serve: ", err)
		}
	}()
}

func startBLE(cfg *config.Config, pairingMachine *pairing.Machine, dispatcher *api.Dispatcher, store *settings.Store, keyPair *crypto.KeyPair) {
	executor := ble.NewExecutor(cfg.BLEOperationTimeout)
	srv := ble.NewServer(executor, pairingMachine, dispatcher, store, keyPair, nil, nil, cfg.BLEPairingWindow)

	adapter, err := ble.NewAdapter(srv)
	if err != nil {
		log.Println("ble: adapter init error (continuing without BLE):", err)
		return
	}
	srv.SetTransport(adapter, adapter)

	if err := srv.StartAdvertisingRotation(); err != nil {
		log.Println("ble: advertising error:", err)
	}
}
