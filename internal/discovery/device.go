package discovery

import (
	"fmt"
	"time"
)

// Device represents a provisioned device found on the network
type Device struct {
	// Name is the mDNS instance name, which is the device thing name
	Name string

	// Hostname is the mDNS hostname (e.g., "porch-light.local.")
	Hostname string

	// IP is the IPv4 address, or IPv6 when the device has no IPv4
	IP string

	// Port is the HTTP port (typically 80)
	Port int

	// Metadata contains the mDNS TXT record data
	// Common fields: "apportal=1", "path=/", "version=v0.3.0"
	Metadata map[string]string

	// DiscoveredAt is when the device was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the device
func (d *Device) String() string {
	return fmt.Sprintf("%s (%s) at %s:%d", d.Name, d.Hostname, d.IP, d.Port)
}

// BaseURL returns the HTTP base URL for the device
func (d *Device) BaseURL() string {
	return fmt.Sprintf("http://%s:%d", d.IP, d.Port)
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (d *Device) GetMetadata(key string) string {
	if d.Metadata == nil {
		return ""
	}
	return d.Metadata[key]
}
