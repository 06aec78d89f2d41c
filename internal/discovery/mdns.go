package discovery

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	// ServiceType is the mDNS service type devices advertise
	// The portal is plain HTTP, so devices announce "_http._tcp"
	ServiceType = "_http._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// MarkerKey is the TXT key identifying apportal devices
	// Other "_http._tcp" services on the network lack it and are skipped
	MarkerKey = "apportal"

	// DefaultScanTimeout is the default timeout for device discovery
	DefaultScanTimeout = 10 * time.Second

	// DefaultPort is the default HTTP port, used when an entry has none
	DefaultPort = 80
)

// Scanner handles mDNS device discovery
type Scanner struct {
	// Timeout is the maximum time to wait for device discovery
	Timeout time.Duration
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

// ScanForDevices discovers all devices on the local network
// Returns a list of discovered devices or an error
func (s *Scanner) ScanForDevices() ([]*Device, error) {
	return s.ScanForDevicesWithContext(context.Background())
}

// ScanForDevicesWithContext discovers devices with a custom context
func (s *Scanner) ScanForDevicesWithContext(ctx context.Context) ([]*Device, error) {
	// Create a context with timeout
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	// Start the resolver
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	// The browse goroutine appends while we wait; mu guards both
	var mu sync.Mutex
	devices := make([]*Device, 0)
	seen := make(map[string]bool)

	// Channel to receive service entries
	entries := make(chan *zeroconf.ServiceEntry)

	// Collect entries in a goroutine
	go func() {
		for entry := range entries {
			device := s.parseServiceEntry(entry)
			if device == nil {
				continue
			}
			// A device answers every query; keep the first entry per name
			mu.Lock()
			if !seen[device.Name] {
				seen[device.Name] = true
				devices = append(devices, device)
			}
			mu.Unlock()
		}
	}()

	// Start browsing for HTTP services
	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	// Wait for context to complete (timeout or cancellation)
	<-ctx.Done()

	// Copy under the lock; the goroutine may still be draining
	mu.Lock()
	defer mu.Unlock()
	return append([]*Device(nil), devices...), nil
}

// WaitForDevice waits for a device with the given thing name
// Returns the device or an error if not found within timeout
func (s *Scanner) WaitForDevice(name string) (*Device, error) {
	return s.WaitForDeviceWithContext(context.Background(), name)
}

// WaitForDeviceWithContext waits for a specific device with a custom context
func (s *Scanner) WaitForDeviceWithContext(ctx context.Context, name string) (*Device, error) {
	// Create a context with timeout
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	// Start the resolver
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	// Channel to receive service entries
	entries := make(chan *zeroconf.ServiceEntry)
	deviceChan := make(chan *Device, 1)

	// Watch entries in a goroutine
	go func() {
		for entry := range entries {
			device := s.parseServiceEntry(entry)
			// Thing names are matched case-insensitively, like hostnames
			if device != nil && strings.EqualFold(device.Name, name) {
				select {
				case deviceChan <- device:
				default:
				}
				cancel() // Found the device, stop browsing
			}
		}
	}()

	// Start browsing for HTTP services
	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	// Wait for device or timeout
	select {
	case device := <-deviceChan:
		return device, nil
	case <-ctx.Done():
		// cancel() above also ends ctx; check for a device first
		select {
		case device := <-deviceChan:
			return device, nil
		default:
		}
		return nil, fmt.Errorf("device %s not found within timeout", name)
	}
}

// parseServiceEntry converts a zeroconf service entry to a Device.
// Returns nil unless the entry carries the apportal marker.
func (s *Scanner) parseServiceEntry(entry *zeroconf.ServiceEntry) *Device {
	// The instance name is the thing name
	if entry.Instance == "" {
		return nil
	}

	// Parse TXT records and require the marker
	metadata := parseText(entry.Text)
	if metadata[MarkerKey] != "1" {
		return nil
	}

	// Get IP address (prefer IPv4, fall back to IPv6)
	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	// Get port (default to 80 if not specified)
	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	return &Device{
		Name:         entry.Instance,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         port,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

// parseText splits "key=value" TXT strings. A key without "=" maps to "".
func parseText(text []string) map[string]string {
	metadata := make(map[string]string, len(text))
	for _, txt := range text {
		// TXT records are in "key=value" format
		parts := strings.SplitN(txt, "=", 2)
		if len(parts) == 2 {
			metadata[parts[0]] = parts[1]
		} else {
			// Key without value
			metadata[parts[0]] = ""
		}
	}
	return metadata
}

// ScanForDevices is a convenience function to scan for devices with a custom timeout
func ScanForDevices(timeout time.Duration) ([]*Device, error) {
	scanner := NewScanner()
	scanner.Timeout = timeout
	return scanner.ScanForDevices()
}

// FindDevice searches for a device by thing name with the default timeout
func FindDevice(name string) (*Device, error) {
	scanner := NewScanner()
	return scanner.WaitForDevice(name)
}

// registration is a live mDNS announcement.
type registration interface {
	Shutdown()
}

// registerFunc publishes an instance; replaced in tests.
type registerFunc func(instance string, port int, text []string) (registration, error)

func zeroconfRegister(instance string, port int, text []string) (registration, error) {
	return zeroconf.Register(instance, ServiceType, ServiceDomain, port, text, nil)
}

// Advertiser announces the device over mDNS. It implements
// provision.Advertiser.
type Advertiser struct {
	// register publishes an instance (zeroconf outside tests)
	register registerFunc
	// text holds the TXT records sent with every announcement
	text []string

	// mu guards current
	mu sync.Mutex
	// current is the live announcement, nil when not advertising
	current registration
}

// NewAdvertiser creates an Advertiser publishing the marker TXT record
// plus extra "key=value" entries.
func NewAdvertiser(extra ...string) *Advertiser {
	text := append([]string{MarkerKey + "=1", "path=/"}, extra...)
	return &Advertiser{register: zeroconfRegister, text: text}
}

// Advertise publishes host on port, replacing an earlier announcement.
func (a *Advertiser) Advertise(host string, port int) error {
	if host == "" {
		return fmt.Errorf("mDNS host name is empty")
	}
	if port <= 0 {
		port = DefaultPort
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	// Thing name changes re-register under the new instance name
	if a.current != nil {
		a.current.Shutdown()
		a.current = nil
	}
	reg, err := a.register(host, port, a.text)
	if err != nil {
		return fmt.Errorf("failed to register mDNS service %s: %w", host, err)
	}
	a.current = reg
	return nil
}

// Shutdown withdraws the announcement.
func (a *Advertiser) Shutdown() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current != nil {
		a.current.Shutdown()
		a.current = nil
	}
}
