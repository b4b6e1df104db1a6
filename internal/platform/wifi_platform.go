// Package platform holds the thin, host-specific adapters the core's
// interfaces need at the composition root: a NetworkManager-backed
// wifi.Platform and a camera.Info that reports real filesystem
// capacity. Both are small wrappers around an external command or
// syscall, logging failures rather than crashing the process.
package platform

import (
	"fmt"
	"os/exec"
)

// NMWifiPlatform drives Wi-Fi state transitions through nmcli, the
// NetworkManager CLI present on the target's Linux image.
type NMWifiPlatform struct {
	interfaceName string
}

// NewNMWifiPlatform builds a platform bound to the given network
// interface (e.g. "wlan0").
func NewNMWifiPlatform(interfaceName string) *NMWifiPlatform {
	return &NMWifiPlatform{interfaceName: interfaceName}
}

func (p *NMWifiPlatform) run(args ...string) error {
	cmd := exec.Command("nmcli", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("nmcli %v: %w: %s", args, err, out)
	}
	return nil
}

// Disconnect tears down any active connection on the interface.
func (p *NMWifiPlatform) Disconnect() error {
	return p.run("device", "disconnect", p.interfaceName)
}

// EnableNetwork creates (or replaces) and activates a connection profile
// for ssid/passphrase.
func (p *NMWifiPlatform) EnableNetwork(ssid, passphrase string) error {
	return p.run("device", "wifi", "connect", ssid, "password", passphrase, "ifname", p.interfaceName)
}

// BindDefaultNetwork raises the profile's connection priority so it is
// preferred as the default route.
func (p *NMWifiPlatform) BindDefaultNetwork(ssid string) error {
	return p.run("connection", "modify", ssid, "connection.autoconnect-priority", "10")
}

// Forget deletes the persisted connection profile for ssid.
func (p *NMWifiPlatform) Forget(ssid string) error {
	return p.run("connection", "delete", ssid)
}
