package netprobe

import (
	"net"

	"github.com/muurk/apportal/internal/logging"
	"go.uber.org/zap"
)

// LinkStatus is the station link state.
type LinkStatus int

const (
	// NotConnected covers idle, joining and failed links.
	NotConnected LinkStatus = iota
	// Connected means the station has an address on the upstream network.
	Connected
)

// String returns a human-readable link status
func (s LinkStatus) String() string {
	if s == Connected {
		return "connected"
	}
	return "not connected"
}

// Adapter is the network driver. Implementations must not block:
// JoinNetwork starts a join and returns, the outcome is reported by
// LinkStatus.
type Adapter interface {
	JoinNetwork(ssid, password string) error
	LinkStatus() LinkStatus
	Disconnect() error
	HostAccessPoint(name, password string) error
	StopAccessPoint() error
	ClientCount() int
	SetHostname(name string) error
	AccessPointIP() net.IP
	StationIP() net.IP
}

// Probe wraps an Adapter.
type Probe struct {
	adapter Adapter
}

// New creates a Probe over adapter.
func New(adapter Adapter) *Probe {
	return &Probe{adapter: adapter}
}

// Adapter returns the wrapped adapter.
func (p *Probe) Adapter() Adapter {
	return p.adapter
}

// BeginStationConnect starts joining ssid.
func (p *Probe) BeginStationConnect(ssid, password string) {
	logging.Debug("Joining network", zap.String("ssid", ssid))
	if err := p.adapter.JoinNetwork(ssid, password); err != nil {
		logging.Warn("Failed to start network join",
			zap.String("ssid", ssid),
			zap.Error(err),
		)
	}
}

// StationLinkStatus polls the station link.
func (p *Probe) StationLinkStatus() LinkStatus {
	return p.adapter.LinkStatus()
}

// AbortStationConnect drops the station link or a join in progress.
func (p *Probe) AbortStationConnect() {
	if err := p.adapter.Disconnect(); err != nil {
		logging.Warn("Failed to disconnect station", zap.Error(err))
	}
}

// BeginAccessPoint starts the soft access point and reports success.
func (p *Probe) BeginAccessPoint(name, password string) bool {
	if err := p.adapter.HostAccessPoint(name, password); err != nil {
		logging.Error("Failed to start access point",
			zap.String("name", name),
			zap.Error(err),
		)
		return false
	}
	logging.Info("Access point started",
		zap.String("name", name),
		zap.Stringer("ip", p.adapter.AccessPointIP()),
	)
	return true
}

// StopAccessPoint shuts the soft access point down.
func (p *Probe) StopAccessPoint() {
	if err := p.adapter.StopAccessPoint(); err != nil {
		logging.Warn("Failed to stop access point", zap.Error(err))
	}
}

// AccessPointClientCount returns the number of joined clients.
func (p *Probe) AccessPointClientCount() int {
	return p.adapter.ClientCount()
}

// SetHostname sets the station hostname.
func (p *Probe) SetHostname(name string) {
	if err := p.adapter.SetHostname(name); err != nil {
		logging.Warn("Failed to set hostname",
			zap.String("hostname", name),
			zap.Error(err),
		)
	}
}

// AccessPointIP returns the soft access point address.
func (p *Probe) AccessPointIP() net.IP {
	return p.adapter.AccessPointIP()
}

// StationIP returns the station address, or nil when not connected.
func (p *Probe) StationIP() net.IP {
	return p.adapter.StationIP()
}

// LocalIP returns the address clients should use to reach the device:
// the station address when connected, otherwise the access point address.
func (p *Probe) LocalIP() net.IP {
	if p.adapter.LinkStatus() == Connected {
		if ip := p.adapter.StationIP(); ip != nil {
			return ip
		}
	}
	return p.adapter.AccessPointIP()
}
