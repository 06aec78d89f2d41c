package simulator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/muurk/apportal/internal/blink"
	"github.com/muurk/apportal/internal/captive"
	"github.com/muurk/apportal/internal/clock"
	"github.com/muurk/apportal/internal/config"
	"github.com/muurk/apportal/internal/console"
	"github.com/muurk/apportal/internal/discovery"
	"github.com/muurk/apportal/internal/logging"
	"github.com/muurk/apportal/internal/netprobe"
	"github.com/muurk/apportal/internal/netsim"
	"github.com/muurk/apportal/internal/portal"
	"github.com/muurk/apportal/internal/provision"
	"github.com/muurk/apportal/internal/store"
	"github.com/muurk/apportal/internal/version"
	"go.uber.org/zap"
)

const (
	// DefaultTickInterval is the length of one Delay call in Run.
	DefaultTickInterval = 50 * time.Millisecond

	commandQueueSize = 16
	maxTransitions   = 32
)

// Custom pattern toggled from the console.
const (
	customBlinkOn  = 100 * time.Millisecond
	customBlinkOff = 100 * time.Millisecond
)

// Options tune a Device.
type Options struct {
	// Clock defaults to clock.Real().
	Clock clock.Clock
	// TickInterval defaults to DefaultTickInterval.
	TickInterval time.Duration
	// Region overrides the file region named by the profile.
	Region store.Region
}

// serverSlot lets the controller hold the portal before the server, which
// needs the controller as its device, exists.
type serverSlot struct {
	*portal.Server
}

// Device is a simulated provisioning device. Step and Run must be called
// from a single goroutine; Send and Snapshot are safe from any goroutine.
type Device struct {
	profile  *config.Profile
	clock    clock.Clock
	interval time.Duration

	adapter *netsim.Adapter
	ctl     *provision.Controller
	server  *portal.Server
	updater *portal.Updater
	hub     *portal.StatusHub
	dns     *captive.Responder
	adv     *discovery.Advertiser
	region  store.Region

	cmds        chan console.Command
	led         bool
	customBlink bool
	lastErr     string

	mu          sync.Mutex
	snap        console.Snapshot
	transitions []console.Transition
}

// New builds a Device from profile and loads its stored configuration.
func New(profile *config.Profile, opts Options) (*Device, error) {
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}

	d := &Device{
		profile:  profile,
		clock:    opts.Clock,
		interval: opts.TickInterval,
		cmds:     make(chan console.Command, commandQueueSize),
		hub:      portal.NewStatusHub(),
	}

	d.adapter = netsim.New(d.clock, netsim.Config{
		Networks:      profile.NetworkMap(),
		JoinLatency:   profile.Simulator.JoinLatency,
		AccessPointIP: profile.AccessPointIP(),
		StationIP:     profile.StationIP(),
	})

	slot := &serverSlot{}
	ctlOpts := []provision.Option{
		provision.WithClock(d.clock),
		provision.WithStatusOutput(blink.OutputFunc(func(on bool) { d.led = on })),
		provision.WithConfigButton(provision.ConfigButtonFunc(func() bool { return profile.Device.ForceDefault })),
		provision.WithPortal(slot),
	}
	if profile.Portal.UpdatePath != "" {
		d.updater = portal.NewUpdater(profile.Portal.FirmwareDir)
		d.updater.OnUpload(func(path string, size int64) {
			logging.Info("Simulated firmware update staged",
				zap.String("path", path),
				zap.Int64("bytes", size),
			)
		})
		ctlOpts = append(ctlOpts, provision.WithUpdateServer(d.updater, profile.Portal.UpdatePath))
	}
	if profile.DNS.Enabled {
		d.dns = captive.NewResponder(profile.DNS.Listen)
		ctlOpts = append(ctlOpts, provision.WithDNS(d.dns))
	}
	if profile.MDNS.Enabled {
		d.adv = discovery.NewAdvertiser("version=" + version.Version)
		ctlOpts = append(ctlOpts, provision.WithAdvertiser(d.adv, profile.AdvertisedPort()))
	}

	d.ctl = provision.New(controllerConfig(profile), netprobe.New(d.adapter), ctlOpts...)

	handlerOpts := []portal.HandlerOption{}
	if profile.Portal.Title != "" {
		handlerOpts = append(handlerOpts, portal.WithTitle(profile.Portal.Title))
	}
	d.server = portal.NewServer(portal.ServerConfig{
		Addr:           profile.Portal.Listen,
		RequestTimeout: profile.Portal.Timeout,
	}, portal.NewHandler(d.ctl, handlerOpts...))
	slot.Server = d.server
	if d.updater != nil {
		d.server.MountUpdater(d.updater)
	}
	d.server.Mount(portal.StatusPath, d.hub)

	if err := addParameters(d.ctl, profile); err != nil {
		return nil, err
	}

	d.ctl.SetStateObserver(func(from, to provision.State) {
		d.hub.Observe(from, to)
		d.record(from, to)
	})
	d.ctl.SetWifiConnectionCallback(func() {
		logging.Info("Simulated device online", zap.Stringer("ip", d.adapter.StationIP()))
	})
	d.ctl.SetConfigSavedCallback(func() {
		logging.Info("Configuration saved", zap.String("thing_name", d.ctl.ThingName()))
	})
	if profile.Device.SkipAPStartup {
		d.ctl.SkipAPStartup()
	}

	d.region = opts.Region
	if d.region == nil {
		region, err := store.OpenFile(profile.Storage.RegionPath, d.ctl.RegionSize())
		if err != nil {
			return nil, err
		}
		d.region = region
	}

	valid, err := d.ctl.Init(d.region)
	if err != nil {
		// Defaults are in place; the device still boots.
		logging.Warn("Failed to load configuration", zap.Error(err))
		d.lastErr = err.Error()
	}
	logging.Info("Simulated device ready",
		zap.String("thing_name", d.ctl.ThingName()),
		zap.Bool("configured", valid),
		zap.Int("region_size", d.ctl.RegionSize()),
	)

	d.publish()
	return d, nil
}

// Controller returns the provisioning controller.
func (d *Device) Controller() *provision.Controller { return d.ctl }

// Adapter returns the simulated radio.
func (d *Device) Adapter() *netsim.Adapter { return d.adapter }

// PortalAddr returns the portal listener address, or nil before it starts.
func (d *Device) PortalAddr() net.Addr { return d.server.Addr() }

// StatusHub returns the websocket status feed.
func (d *Device) StatusHub() *portal.StatusHub { return d.hub }

// Send queues an operator command for the loop. Commands beyond the
// queue size are dropped.
func (d *Device) Send(cmd console.Command) {
	select {
	case d.cmds <- cmd:
	default:
		logging.Warn("Dropping operator command", zap.Stringer("command", cmd))
	}
}

// Snapshot returns the status published after the last step.
func (d *Device) Snapshot() console.Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	snap := d.snap
	snap.Transitions = append([]console.Transition(nil), d.transitions...)
	return snap
}

// Step applies queued commands and runs one tick.
func (d *Device) Step() {
	d.applyCommands()
	d.ctl.Tick()
	d.publish()
}

// Run steps the device until ctx is done, then shuts it down.
func (d *Device) Run(ctx context.Context) error {
	logging.Info("Simulator running", zap.Duration("tick", d.interval))
	for ctx.Err() == nil {
		d.applyCommands()
		d.ctl.Delay(d.interval)
		d.publish()
	}
	return d.Close()
}

// Close stops the controller and every listener.
func (d *Device) Close() error {
	d.ctl.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var errs []error
	if err := d.server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("portal: %w", err))
	}
	if d.dns != nil {
		if err := d.dns.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("dns: %w", err))
		}
	}
	d.hub.Close()
	return errors.Join(errs...)
}

func (d *Device) applyCommands() {
	for {
		select {
		case cmd := <-d.cmds:
			d.apply(cmd)
		default:
			return
		}
	}
}

func (d *Device) apply(cmd console.Command) {
	logging.Debug("Operator command", zap.Stringer("command", cmd))
	d.lastErr = ""

	switch cmd {
	case console.ClientJoin:
		if err := d.adapter.ClientJoin(); err != nil {
			d.lastErr = err.Error()
		}
	case console.ClientLeave:
		d.adapter.ClientLeave()
	case console.ToggleNetwork:
		d.adapter.SetNetworkUp(!d.adapter.Status().NetworkUp)
	case console.ToggleBlink:
		d.customBlink = !d.customBlink
		if d.customBlink {
			d.ctl.Blink().SetExplicit(customBlinkOn, customBlinkOff)
		} else {
			d.ctl.Blink().RevertToStateDefault()
		}
	}
}

func (d *Device) record(from, to provision.State) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.transitions = append(d.transitions, console.Transition{
		From: from.String(),
		To:   to.String(),
		At:   d.clock.Now(),
	})
	if len(d.transitions) > maxTransitions {
		d.transitions = d.transitions[len(d.transitions)-maxTransitions:]
	}
}

// publish copies the loop-owned state into the snapshot.
func (d *Device) publish() {
	radio := d.adapter.Status()
	on, off := d.ctl.Blink().Pattern()

	url := ""
	if addr := d.server.Addr(); addr != nil {
		url = "http://" + addr.String() + "/"
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.snap = console.Snapshot{
		ThingName:   d.ctl.ThingName(),
		State:       d.ctl.State().String(),
		LED:         d.led,
		BlinkOn:     on,
		BlinkOff:    off,
		AccessPoint: radio.AccessPoint,
		APName:      radio.APName,
		Clients:     radio.Clients,
		Link:        radio.Link.String(),
		SSID:        radio.SSID,
		NetworkUp:   radio.NetworkUp,
		PortalURL:   url,
		Err:         d.lastErr,
	}
}
