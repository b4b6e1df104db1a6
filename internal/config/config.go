// Package config loads the camera core's runtime configuration from
// environment variables: github.com/joho/godotenv optionally loads a
// .env file first, then github.com/kelseyhightower/envconfig binds
// typed fields with struct-tag defaults.
package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"periph.io/x/conn/v3/physic"
)

// Config holds all runtime configuration for the companion-control core.
type Config struct {
	// Persistence
	SettingsPath string `envconfig:"SETTINGS_PATH" default:"/var/lib/daydreamcamera/settings.json"`
	MediaRoot    string `envconfig:"MEDIA_ROOT" default:"/var/lib/daydreamcamera/media"`

	// HTTP surface (C6)
	HTTPAddr string `envconfig:"HTTP_ADDR" default:"0.0.0.0:443"`

	// BLE surface (C5)
	BLEManufacturerID    uint16        `envconfig:"BLE_MANUFACTURER_ID" default:"0x4159"`
	BLEAdvertiseInterval time.Duration `envconfig:"BLE_ADVERTISE_INTERVAL" default:"160ms"`
	BLEOperationTimeout  time.Duration `envconfig:"BLE_OPERATION_TIMEOUT" default:"3s"`
	BLEPairingWindow     time.Duration `envconfig:"BLE_PAIRING_WINDOW" default:"60s"`

	// Pairing (C4)
	PairingSessionTTL time.Duration `envconfig:"PAIRING_SESSION_TTL" default:"10s"`

	// Capture queue (C9)
	CaptureQueueCapacity int `envconfig:"CAPTURE_QUEUE_CAPACITY" default:"4"`

	// Wi-Fi client (C11)
	WifiConnectTimeout time.Duration `envconfig:"WIFI_CONNECT_TIMEOUT" default:"30s"`

	// Motion ingest & correlator (C10/C12)
	OrientationHistoryWindow time.Duration `envconfig:"ORIENTATION_HISTORY_WINDOW" default:"1s"`
	CorrelatorPurgeAge       time.Duration `envconfig:"CORRELATOR_PURGE_AGE" default:"2s"`
	CorrelatorDiscardAge     time.Duration `envconfig:"CORRELATOR_DISCARD_AGE" default:"1s"`

	// BLEAdvertiseIntervalFreq is BLEAdvertiseInterval re-expressed as a
	// physic.Frequency: a typed unit value derived once at load time
	// rather than re-parsed on every advertisement tick.
	BLEAdvertiseIntervalFreq physic.Frequency `envconfig:"-"`
}

// Load reads an optional .env file (ignored if absent) and then binds
// environment variables onto a Config, matching defaults for anything
// unset.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("config: no .env file loaded:", err)
	}

	var cfg Config
	if err := envconfig.Process("DAYDREAMCAMERA", &cfg); err != nil {
		log.Fatal("config: ", err)
	}

	if cfg.BLEAdvertiseInterval > 0 {
		cfg.BLEAdvertiseIntervalFreq = physic.Hertz * physic.Frequency(time.Second/cfg.BLEAdvertiseInterval)
	}

	return &cfg
}
