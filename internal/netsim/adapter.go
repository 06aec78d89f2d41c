package netsim

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/muurk/apportal/internal/clock"
	"github.com/muurk/apportal/internal/logging"
	"github.com/muurk/apportal/internal/netprobe"
	"go.uber.org/zap"
)

const (
	// DefaultJoinLatency is how long a join takes by default.
	DefaultJoinLatency = 2 * time.Second
	// MinAPPasswordLength mirrors the WPA2 minimum passphrase length.
	MinAPPasswordLength = 8
)

var (
	// DefaultAccessPointIP is the soft access point address.
	DefaultAccessPointIP = net.IPv4(192, 168, 4, 1)
	// DefaultStationIP is the address handed out by the upstream network.
	DefaultStationIP = net.IPv4(192, 168, 1, 50)
)

// ErrAccessPointDown is returned by ClientJoin while no access point runs.
var ErrAccessPointDown = errors.New("access point is not running")

// Config describes the simulated radio environment.
type Config struct {
	// Networks maps reachable SSIDs to their passwords.
	Networks      map[string]string
	JoinLatency   time.Duration
	AccessPointIP net.IP
	StationIP     net.IP
}

// Status is a snapshot of the simulated radio.
type Status struct {
	AccessPoint bool
	APName      string
	Clients     int
	Link        netprobe.LinkStatus
	Joining     bool
	SSID        string
	NetworkUp   bool
	Hostname    string
}

// Adapter is a netprobe.Adapter backed by an in-memory radio. It is safe
// for concurrent use.
type Adapter struct {
	clock clock.Clock

	mu          sync.Mutex
	networks    map[string]string
	joinLatency time.Duration
	apIP        net.IP
	stationIP   net.IP

	networkUp bool
	joining   bool
	joinSSID  string
	joinPass  string
	joinStart time.Time
	linked    bool

	apActive bool
	apName   string
	clients  int
	hostname string
}

// New creates an Adapter using c for join latency.
func New(c clock.Clock, cfg Config) *Adapter {
	a := &Adapter{
		clock:       c,
		networks:    make(map[string]string, len(cfg.Networks)),
		joinLatency: cfg.JoinLatency,
		apIP:        cfg.AccessPointIP,
		stationIP:   cfg.StationIP,
		networkUp:   true,
	}
	for ssid, password := range cfg.Networks {
		a.networks[ssid] = password
	}
	if a.joinLatency < 0 {
		a.joinLatency = 0
	}
	if a.apIP == nil {
		a.apIP = DefaultAccessPointIP
	}
	if a.stationIP == nil {
		a.stationIP = DefaultStationIP
	}
	return a
}

// JoinNetwork starts joining ssid. The outcome shows in LinkStatus.
func (a *Adapter) JoinNetwork(ssid, password string) error {
	if ssid == "" {
		return errors.New("ssid is empty")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.linked = false
	a.joining = true
	a.joinSSID = ssid
	a.joinPass = password
	a.joinStart = a.clock.Now()
	logging.Debug("Simulated join started", zap.String("ssid", ssid))
	return nil
}

// LinkStatus settles a pending join and reports the link.
func (a *Adapter) LinkStatus() netprobe.LinkStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.settle()
	if a.linked {
		return netprobe.Connected
	}
	return netprobe.NotConnected
}

// settle must be called with mu held.
func (a *Adapter) settle() {
	if a.linked && !a.networkUp {
		logging.Debug("Simulated link lost", zap.String("ssid", a.joinSSID))
		a.linked = false
		return
	}
	if !a.joining || a.clock.Now().Sub(a.joinStart) < a.joinLatency {
		return
	}
	if !a.networkUp {
		return
	}
	password, known := a.networks[a.joinSSID]
	if !known || password != a.joinPass {
		// A real radio keeps retrying; the join simply never completes.
		return
	}
	a.joining = false
	a.linked = true
	logging.Debug("Simulated join completed", zap.String("ssid", a.joinSSID))
}

// Disconnect drops the link and cancels a pending join.
func (a *Adapter) Disconnect() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.joining = false
	a.linked = false
	return nil
}

// HostAccessPoint starts the access point. An empty password makes it
// open.
func (a *Adapter) HostAccessPoint(name, password string) error {
	if name == "" {
		return errors.New("access point name is empty")
	}
	if password != "" && len(password) < MinAPPasswordLength {
		return fmt.Errorf("access point password must be at least %d characters", MinAPPasswordLength)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.apActive = true
	a.apName = name
	a.clients = 0
	return nil
}

// StopAccessPoint stops the access point and drops its clients.
func (a *Adapter) StopAccessPoint() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.apActive = false
	a.clients = 0
	return nil
}

// ClientCount returns the number of clients on the access point.
func (a *Adapter) ClientCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.clients
}

// SetHostname records the station hostname.
func (a *Adapter) SetHostname(name string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hostname = name
	return nil
}

// AccessPointIP returns the access point address.
func (a *Adapter) AccessPointIP() net.IP {
	return a.apIP
}

// StationIP returns the station address, or nil without a link.
func (a *Adapter) StationIP() net.IP {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.linked {
		return nil
	}
	return a.stationIP
}

// ClientJoin adds a client to the access point.
func (a *Adapter) ClientJoin() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.apActive {
		return ErrAccessPointDown
	}
	a.clients++
	return nil
}

// ClientLeave removes a client from the access point.
func (a *Adapter) ClientLeave() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.clients > 0 {
		a.clients--
	}
}

// SetNetworkUp toggles the upstream networks. Taking them down drops an
// established link at the next poll.
func (a *Adapter) SetNetworkUp(up bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.networkUp = up
}

// AddNetwork makes ssid reachable with password.
func (a *Adapter) AddNetwork(ssid, password string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.networks[ssid] = password
}

// Status returns a snapshot of the radio.
func (a *Adapter) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	link := netprobe.NotConnected
	if a.linked {
		link = netprobe.Connected
	}
	return Status{
		AccessPoint: a.apActive,
		APName:      a.apName,
		Clients:     a.clients,
		Link:        link,
		Joining:     a.joining,
		SSID:        a.joinSSID,
		NetworkUp:   a.networkUp,
		Hostname:    a.hostname,
	}
}
