package provision

import (
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/muurk/apportal/internal/blink"
	"github.com/muurk/apportal/internal/clock"
	"github.com/muurk/apportal/internal/logging"
	"github.com/muurk/apportal/internal/netprobe"
	"github.com/muurk/apportal/internal/param"
	"github.com/muurk/apportal/internal/store"
	"go.uber.org/zap"
)

const (
	// WordLength is the capacity of the built-in text parameters.
	WordLength = 33

	// AdminUser is the basic auth user once the device is online.
	AdminUser = "admin"

	DefaultConfigVersion         = "init"
	DefaultWifiConnectionTimeout = 30 * time.Second
	DefaultAPTimeout             = 30 * time.Second
	DefaultHTTPPort              = 80
)

// Built-in parameter ids.
const (
	ParamThingName    = "thingName"
	ParamAPPassword   = "apPassword"
	ParamWifiSSID     = "wifiSsid"
	ParamWifiPassword = "wifiPassword"
	ParamAPTimeout    = "apTimeout"
)

// ErrNotInitialized is returned by SaveConfig before Init.
var ErrNotInitialized = errors.New("controller not initialized")

// Config holds the compiled-in device settings.
type Config struct {
	// ThingName is the default device name, AP SSID and hostname.
	ThingName string
	// InitialAPPassword protects the access point until a password is set.
	InitialAPPassword string
	// ConfigVersion is the version tag of the persisted layout. Change it
	// whenever parameters are added, removed or resized.
	ConfigVersion         string
	WifiConnectionTimeout time.Duration
	APTimeout             time.Duration
}

func (c Config) withDefaults() Config {
	if c.ConfigVersion == "" {
		c.ConfigVersion = DefaultConfigVersion
	}
	if c.WifiConnectionTimeout <= 0 {
		c.WifiConnectionTimeout = DefaultWifiConnectionTimeout
	}
	if c.APTimeout <= 0 {
		c.APTimeout = DefaultAPTimeout
	}
	return c
}

// Controller is the provisioning state machine. It is not safe for
// concurrent use: Init, Tick, Delay and SaveConfig must be called from the
// same goroutine.
type Controller struct {
	cfg   Config
	clock clock.Clock
	probe *netprobe.Probe
	reg   *param.Registry
	store *store.Store
	blink *blink.Signal

	thingName    *param.Parameter
	apPassword   *param.Parameter
	wifiSSID     *param.Parameter
	wifiPassword *param.Parameter
	apTimeoutStr *param.Parameter

	state        State
	presence     ApClientPresence
	forceDefault bool
	skipAP       bool
	started      bool
	initialized  bool
	validConfig  bool

	apStart   time.Time
	connStart time.Time

	apTimeout   time.Duration
	wifiTimeout time.Duration
	altAuth     *AuthInfo

	portal     Portal
	dns        DNSResponder
	updater    UpdateServer
	updatePath string
	advertiser Advertiser
	httpPort   int
	button     ConfigButton

	apHandler      APConnectionHandler
	wifiHandler    WifiConnectionHandler
	failureHandler WifiConnectionFailureHandler
	onConnect      func()
	onConfigSaved  func()
	formValidator  FormValidator
	stateObserver  StateObserver
}

// Option configures a Controller at construction.
type Option func(*Controller)

// WithClock sets the time source. Defaults to clock.Real().
func WithClock(c clock.Clock) Option {
	return func(ctrl *Controller) { ctrl.clock = c }
}

// WithStatusOutput attaches the status LED.
func WithStatusOutput(out blink.Output) Option {
	return func(ctrl *Controller) { ctrl.blink = blink.New(out) }
}

// WithConfigButton attaches the input that forces the initial AP password.
func WithConfigButton(b ConfigButton) Option {
	return func(ctrl *Controller) { ctrl.button = b }
}

// WithPortal attaches the HTTP transport.
func WithPortal(p Portal) Option {
	return func(ctrl *Controller) { ctrl.portal = p }
}

// WithDNS attaches the captive DNS responder.
func WithDNS(d DNSResponder) Option {
	return func(ctrl *Controller) { ctrl.dns = d }
}

// WithUpdateServer attaches the firmware updater served at path.
func WithUpdateServer(u UpdateServer, path string) Option {
	return func(ctrl *Controller) {
		ctrl.updater = u
		ctrl.updatePath = path
	}
}

// WithAdvertiser attaches the mDNS advertiser. The portal is announced on
// port.
func WithAdvertiser(a Advertiser, port int) Option {
	return func(ctrl *Controller) {
		ctrl.advertiser = a
		if port > 0 {
			ctrl.httpPort = port
		}
	}
}

// New creates a Controller and registers the built-in parameters.
func New(cfg Config, probe *netprobe.Probe, opts ...Option) *Controller {
	cfg = cfg.withDefaults()

	c := &Controller{
		cfg:         cfg,
		clock:       clock.Real(),
		probe:       probe,
		reg:         param.NewRegistry(),
		blink:       blink.New(nil),
		state:       Boot,
		apTimeout:   cfg.APTimeout,
		wifiTimeout: cfg.WifiConnectionTimeout,
		httpPort:    DefaultHTTPPort,
	}

	c.thingName = param.NewParameter("Thing name", ParamThingName, make([]byte, WordLength),
		param.WithDefault(cfg.ThingName))
	c.apPassword = param.NewParameter("AP password", ParamAPPassword, make([]byte, WordLength),
		param.WithKind(param.KindPassword))
	c.wifiSSID = param.NewParameter("WiFi SSID", ParamWifiSSID, make([]byte, WordLength))
	c.wifiPassword = param.NewParameter("WiFi password", ParamWifiPassword, make([]byte, WordLength),
		param.WithKind(param.KindPassword))
	c.apTimeoutStr = param.NewParameter("Startup delay (seconds)", ParamAPTimeout, make([]byte, WordLength),
		param.WithKind(param.KindNumber),
		param.WithDefault(strconv.Itoa(int(cfg.APTimeout/time.Second))),
		param.WithCustomHTML("min='1' max='600'"),
		param.Hidden(),
	)

	c.thingName.SetValue(cfg.ThingName)
	c.apTimeoutStr.Reset()
	for _, p := range []*param.Parameter{c.thingName, c.apPassword, c.wifiSSID, c.wifiPassword, c.apTimeoutStr} {
		c.reg.Add(p)
	}

	c.apHandler = probe.BeginAccessPoint
	c.wifiHandler = probe.BeginStationConnect
	c.failureHandler = func() *AuthInfo { return nil }

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// frozen reports whether configuration changes are no longer accepted.
func (c *Controller) frozen(what string) bool {
	if c.started {
		logging.Warn("Ignoring configuration change after start", zap.String("setting", what))
		return true
	}
	return false
}

// SetAPConnectionHandler replaces the function that starts the access
// point. The default calls Probe.BeginAccessPoint.
func (c *Controller) SetAPConnectionHandler(h APConnectionHandler) {
	if h != nil && !c.frozen("ap connection handler") {
		c.apHandler = h
	}
}

// SetWifiConnectionHandler replaces the function that starts a station
// connect. The default calls Probe.BeginStationConnect.
func (c *Controller) SetWifiConnectionHandler(h WifiConnectionHandler) {
	if h != nil && !c.frozen("wifi connection handler") {
		c.wifiHandler = h
	}
}

// SetWifiConnectionFailureHandler sets the function consulted when a
// connect attempt times out. Returning credentials retries with them;
// returning nil falls back to the access point. The default returns nil.
//
// Returned credentials are never persisted and only last until the
// access point starts again: every ApMode or NotConfigured entry, like
// ResetWifiAuthInfo, drops them, so the next connect after the portal
// uses the stored SSID and password.
func (c *Controller) SetWifiConnectionFailureHandler(h WifiConnectionFailureHandler) {
	if h != nil && !c.frozen("wifi connection failure handler") {
		c.failureHandler = h
	}
}

// SetWifiConnectionCallback sets the function run on every Online entry.
func (c *Controller) SetWifiConnectionCallback(f func()) {
	if !c.frozen("wifi connection callback") {
		c.onConnect = f
	}
}

// SetConfigSavedCallback sets the function run after a successful save.
func (c *Controller) SetConfigSavedCallback(f func()) {
	if !c.frozen("config saved callback") {
		c.onConfigSaved = f
	}
}

// SetFormValidator sets the validator run before the built-in rules.
func (c *Controller) SetFormValidator(v FormValidator) {
	if !c.frozen("form validator") {
		c.formValidator = v
	}
}

// SetStateObserver sets a function called after every transition.
func (c *Controller) SetStateObserver(o StateObserver) {
	if !c.frozen("state observer") {
		c.stateObserver = o
	}
}

// SkipAPStartup makes the first tick connect directly when a network and
// an AP password are configured and the config button is not pressed.
func (c *Controller) SkipAPStartup() {
	if !c.frozen("skip ap startup") {
		c.skipAP = true
	}
}

// AddParameter appends a user parameter. Parameters must be added before
// Init since they determine the persisted layout. A nil parameter is
// rejected.
func (c *Controller) AddParameter(p *param.Parameter) bool {
	if p == nil {
		return false
	}
	if c.initialized {
		logging.Warn("Ignoring parameter added after init", zap.String("id", p.ID))
		return false
	}
	return c.reg.Add(p)
}

// RegionSize returns the byte size the storage region must have.
func (c *Controller) RegionSize() int {
	return store.RegionSize(c.reg)
}

// Init reads the config button, loads the stored configuration and
// announces the hostname. It reports whether a valid configuration was
// found. On a version mismatch every parameter is reset to its default
// and Init returns false with a nil error.
func (c *Controller) Init(region store.Region) (bool, error) {
	if c.button != nil {
		c.forceDefault = c.button.Pressed()
		if c.forceDefault {
			logging.Info("Config button pressed, forcing initial AP password")
		}
	}

	c.store = store.New(region, c.cfg.ConfigVersion)
	c.initialized = true

	err := c.store.Load(c.reg)
	switch {
	case err == nil:
		c.validConfig = true
		c.refreshAPTimeout()
	case store.IsVersionMismatch(err):
		logging.Info("No valid configuration, using defaults")
		c.reg.ResetToDefaults()
		c.apTimeout = c.cfg.APTimeout
	default:
		c.reg.ResetToDefaults()
		c.apTimeout = c.cfg.APTimeout
		return false, err
	}

	c.probe.SetHostname(c.ThingName())
	if c.advertiser != nil {
		if err := c.advertiser.Advertise(c.ThingName(), c.httpPort); err != nil {
			logging.Warn("Failed to advertise hostname", zap.Error(err))
		}
	}

	return c.validConfig, nil
}

func (c *Controller) refreshAPTimeout() {
	secs, err := strconv.Atoi(c.apTimeoutStr.Value())
	if err != nil || secs <= 0 {
		logging.Warn("Invalid AP timeout, keeping current value",
			zap.String("value", c.apTimeoutStr.Value()),
			zap.Duration("current", c.apTimeout),
		)
		return
	}
	c.apTimeout = time.Duration(secs) * time.Second
}

// SaveConfig persists the registry, refreshes the AP timeout from its
// parameter and runs the saved callback. On failure the in-memory values
// are kept and the storage error is returned.
func (c *Controller) SaveConfig() error {
	if c.store == nil {
		return ErrNotInitialized
	}
	if err := c.store.Save(c.reg); err != nil {
		logging.Error("Failed to save configuration", zap.Error(err))
		return err
	}
	c.validConfig = true
	c.refreshAPTimeout()
	if c.onConfigSaved != nil {
		c.onConfigSaved()
	}
	return nil
}

// Shutdown stops the collaborators the controller started.
func (c *Controller) Shutdown() {
	if c.state.IsAccessPoint() {
		c.stopAP()
	}
	if c.advertiser != nil {
		c.advertiser.Shutdown()
	}
}

// State returns the current state.
func (c *Controller) State() State { return c.state }

// Presence returns the access point client tracking state.
func (c *Controller) Presence() ApClientPresence { return c.presence }

// ForceDefault reports whether the initial AP password is being forced.
func (c *Controller) ForceDefault() bool { return c.forceDefault }

// ThingName returns the configured device name.
func (c *Controller) ThingName() string { return c.thingName.Value() }

// APPassword returns the configured AP password.
func (c *Controller) APPassword() string { return c.apPassword.Value() }

// InitialAPPassword returns the compiled-in AP password.
func (c *Controller) InitialAPPassword() string { return c.cfg.InitialAPPassword }

// ConfigVersion returns the compiled-in version tag.
func (c *Controller) ConfigVersion() string { return c.cfg.ConfigVersion }

// Registry returns the parameter registry.
func (c *Controller) Registry() *param.Registry { return c.reg }

// Blink returns the status signal for custom patterns.
func (c *Controller) Blink() *blink.Signal { return c.blink }

// Probe returns the connectivity probe.
func (c *Controller) Probe() *netprobe.Probe { return c.probe }

// LocalIP returns the address clients reach the device on.
func (c *Controller) LocalIP() net.IP { return c.probe.LocalIP() }

// UpdatePath returns the firmware update path, or "" without an updater.
func (c *Controller) UpdatePath() string {
	if c.updater == nil {
		return ""
	}
	return c.updatePath
}

// Validator returns the external form validator, which may be nil.
func (c *Controller) Validator() FormValidator { return c.formValidator }

// ThingNameParameter returns the built-in device name parameter.
func (c *Controller) ThingNameParameter() *param.Parameter { return c.thingName }

// APPasswordParameter returns the built-in AP password parameter.
func (c *Controller) APPasswordParameter() *param.Parameter { return c.apPassword }

// WifiSSIDParameter returns the built-in network name parameter.
func (c *Controller) WifiSSIDParameter() *param.Parameter { return c.wifiSSID }

// WifiPasswordParameter returns the built-in network password parameter.
func (c *Controller) WifiPasswordParameter() *param.Parameter { return c.wifiPassword }

// APTimeoutParameter returns the built-in AP timeout parameter (seconds).
func (c *Controller) APTimeoutParameter() *param.Parameter { return c.apTimeoutStr }

// SetAPTimeout overrides the AP timeout in use without touching its
// parameter. The parameter value is applied again on Init and on save.
func (c *Controller) SetAPTimeout(d time.Duration) { c.apTimeout = d }

// APTimeout returns the AP timeout in use.
func (c *Controller) APTimeout() time.Duration { return c.apTimeout }

// SetWifiConnectionTimeout sets how long a connect attempt may take.
func (c *Controller) SetWifiConnectionTimeout(d time.Duration) { c.wifiTimeout = d }

// WifiConnectionTimeout returns the station connect timeout.
func (c *Controller) WifiConnectionTimeout() time.Duration { return c.wifiTimeout }

// WifiAuthInfo returns the credentials used for the next or current
// connect attempt: the ones substituted by the failure handler, or the
// stored network settings.
func (c *Controller) WifiAuthInfo() AuthInfo {
	if c.altAuth != nil {
		return *c.altAuth
	}
	return AuthInfo{SSID: c.wifiSSID.Value(), Password: c.wifiPassword.Value()}
}

// ResetWifiAuthInfo drops substituted credentials.
func (c *Controller) ResetWifiAuthInfo() {
	c.altAuth = nil
}
