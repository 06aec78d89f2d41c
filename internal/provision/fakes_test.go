package provision

import (
	"net"
	"testing"
	"time"

	"github.com/muurk/apportal/internal/clock"
	"github.com/muurk/apportal/internal/netprobe"
	"github.com/muurk/apportal/internal/store"
)

type fakeAdapter struct {
	link        netprobe.LinkStatus
	clients     int
	joins       []AuthInfo
	aps         []AuthInfo
	apStops     int
	disconnects int
	hostname    string
}

func (f *fakeAdapter) JoinNetwork(ssid, password string) error {
	f.joins = append(f.joins, AuthInfo{ssid, password})
	return nil
}

func (f *fakeAdapter) LinkStatus() netprobe.LinkStatus { return f.link }

func (f *fakeAdapter) Disconnect() error {
	f.disconnects++
	return nil
}

func (f *fakeAdapter) HostAccessPoint(name, password string) error {
	f.aps = append(f.aps, AuthInfo{name, password})
	return nil
}

func (f *fakeAdapter) StopAccessPoint() error {
	f.apStops++
	return nil
}

func (f *fakeAdapter) ClientCount() int { return f.clients }

func (f *fakeAdapter) SetHostname(name string) error {
	f.hostname = name
	return nil
}

func (f *fakeAdapter) AccessPointIP() net.IP { return net.IPv4(192, 168, 4, 1) }

func (f *fakeAdapter) StationIP() net.IP { return net.IPv4(10, 0, 0, 7) }

type fakePortal struct {
	begins  int
	handled int
}

func (p *fakePortal) Begin() error { p.begins++; return nil }
func (p *fakePortal) HandleClient() { p.handled++ }

type fakeDNS struct {
	starts []net.IP
	stops  int
}

func (d *fakeDNS) Start(ip net.IP) error { d.starts = append(d.starts, ip); return nil }
func (d *fakeDNS) Stop() error { d.stops++; return nil }

type fakeUpdater struct {
	path   string
	setups int
	user   string
	pass   string
}

func (u *fakeUpdater) Setup(path string) { u.path = path; u.setups++ }
func (u *fakeUpdater) UpdateCredentials(user, password string) {
	u.user, u.pass = user, password
}

type fakeAdvertiser struct {
	host     string
	port     int
	shutdown bool
}

func (a *fakeAdvertiser) Advertise(host string, port int) error {
	a.host, a.port = host, port
	return nil
}
func (a *fakeAdvertiser) Shutdown() { a.shutdown = true }

type transition struct {
	from, to State
}

var testConfig = Config{
	ThingName:         "porch-light",
	InitialAPPassword: "smrtTHNG8266",
	ConfigVersion:     "t001",
}

type rig struct {
	clk         *clock.FakeClock
	adapter     *fakeAdapter
	portal      *fakePortal
	dns         *fakeDNS
	updater     *fakeUpdater
	adv         *fakeAdvertiser
	ctrl        *Controller
	transitions []transition
}

func newRig(opts ...Option) *rig {
	r := &rig{
		clk:     clock.Fake(time.Unix(1700000000, 0)),
		adapter: &fakeAdapter{},
		portal:  &fakePortal{},
		dns:     &fakeDNS{},
		updater: &fakeUpdater{},
		adv:     &fakeAdvertiser{},
	}
	all := append([]Option{
		WithClock(r.clk),
		WithPortal(r.portal),
		WithDNS(r.dns),
		WithUpdateServer(r.updater, "/firmware"),
		WithAdvertiser(r.adv, 8080),
	}, opts...)
	r.ctrl = New(testConfig, netprobe.New(r.adapter), all...)
	r.ctrl.SetStateObserver(func(from, to State) {
		r.transitions = append(r.transitions, transition{from, to})
	})
	return r
}

func (r *rig) init(t *testing.T, region store.Region) bool {
	t.Helper()
	valid, err := r.ctrl.Init(region)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	return valid
}

func (r *rig) expectState(t *testing.T, want State) {
	t.Helper()
	if got := r.ctrl.State(); got != want {
		t.Fatalf("State() = %v, want %v", got, want)
	}
}

// configuredRegion returns a region holding an AP password and network
// settings for testConfig.
func configuredRegion(t *testing.T, mutate func(*Controller)) *store.MemRegion {
	t.Helper()
	r := newRig()
	region := store.NewMemRegion(r.ctrl.RegionSize())
	r.init(t, region)

	r.ctrl.APPasswordParameter().SetValue("longenough1")
	r.ctrl.WifiSSIDParameter().SetValue("home")
	r.ctrl.WifiPasswordParameter().SetValue("wifisecret")
	if mutate != nil {
		mutate(r.ctrl)
	}
	if err := r.ctrl.SaveConfig(); err != nil {
		t.Fatalf("SaveConfig() error = %v", err)
	}
	return region
}

func pressed() Option {
	return WithConfigButton(ConfigButtonFunc(func() bool { return true }))
}
