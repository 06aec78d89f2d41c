package config

import (
	"time"
)

// CurrentVersion is the profile schema version.
const CurrentVersion = 1

// Profile represents the entire profile file.
type Profile struct {
	Version    int               `yaml:"version"`
	Device     DeviceConfig      `yaml:"device"`
	Storage    StorageConfig     `yaml:"storage"`
	Portal     PortalConfig      `yaml:"portal"`
	DNS        DNSConfig         `yaml:"dns"`
	MDNS       MDNSConfig        `yaml:"mdns"`
	Simulator  SimulatorConfig   `yaml:"simulator"`
	Parameters []ParameterConfig `yaml:"parameters,omitempty"`
}

// DeviceConfig holds the settings compiled into a device.
type DeviceConfig struct {
	ThingName         string `yaml:"thing_name"`
	InitialAPPassword string `yaml:"initial_ap_password"`
	// Up to 4 characters
	ConfigVersion string `yaml:"config_version"`
	// Go online directly when configured
	SkipAPStartup         bool          `yaml:"skip_ap_startup,omitempty"`
	WifiConnectionTimeout time.Duration `yaml:"wifi_connection_timeout"`
	// Default for the startup delay parameter
	APTimeout time.Duration `yaml:"ap_timeout"`
	// Simulates a held config button
	ForceDefault bool `yaml:"force_default,omitempty"`
}

// StorageConfig locates the persisted config region.
type StorageConfig struct {
	// Defaults to region.bin next to the profile
	RegionPath string `yaml:"region_path,omitempty"`
}

// PortalConfig configures the HTTP listener.
type PortalConfig struct {
	Listen string `yaml:"listen"`
	Title  string `yaml:"title,omitempty"`
	// Empty disables firmware updates
	UpdatePath string `yaml:"update_path,omitempty"`
	// Defaults to firmware/ next to the profile
	FirmwareDir string        `yaml:"firmware_dir,omitempty"`
	Timeout     time.Duration `yaml:"request_timeout,omitempty"`
}

// DNSConfig configures the captive DNS responder.
type DNSConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// MDNSConfig configures hostname advertisement.
type MDNSConfig struct {
	Enabled bool `yaml:"enabled"`
	// Defaults to the portal port
	Port int `yaml:"port,omitempty"`
}

// SimulatorConfig describes the simulated radio environment.
type SimulatorConfig struct {
	Networks      []NetworkConfig `yaml:"networks,omitempty"`
	JoinLatency   time.Duration   `yaml:"join_latency"`
	AccessPointIP string          `yaml:"access_point_ip"`
	StationIP     string          `yaml:"station_ip"`
}

// NetworkConfig is one reachable simulated network.
type NetworkConfig struct {
	SSID     string `yaml:"ssid"`
	Password string `yaml:"password,omitempty"`
}

// ParameterConfig is one user parameter or separator.
type ParameterConfig struct {
	ID        string `yaml:"id,omitempty"`
	Label     string `yaml:"label,omitempty"`
	Separator bool   `yaml:"separator,omitempty"`
	// Bytes including the NUL terminator
	Capacity int `yaml:"capacity,omitempty"`
	// text, password, number or custom
	Kind        string `yaml:"kind,omitempty"`
	Default     string `yaml:"default,omitempty"`
	Placeholder string `yaml:"placeholder,omitempty"`
	CustomHTML  string `yaml:"custom_html,omitempty"`
	Hidden      bool   `yaml:"hidden,omitempty"`
}

// NewProfile creates a Profile with default values.
func NewProfile() *Profile {
	return &Profile{
		Version: CurrentVersion,
		Device: DeviceConfig{
			ThingName:             "apportal",
			InitialAPPassword:     "smrtTHNG8266",
			ConfigVersion:         "init",
			WifiConnectionTimeout: 30 * time.Second,
			APTimeout:             30 * time.Second,
		},
		Portal: PortalConfig{
			Listen:     ":8080",
			UpdatePath: "/firmware",
		},
		DNS: DNSConfig{
			Enabled: true,
			Listen:  ":8053",
		},
		MDNS: MDNSConfig{
			Enabled: false,
		},
		Simulator: SimulatorConfig{
			JoinLatency:   2 * time.Second,
			AccessPointIP: "192.168.4.1",
			StationIP:     "192.168.1.50",
		},
	}
}

// NetworkMap returns the simulated networks keyed by SSID.
func (p *Profile) NetworkMap() map[string]string {
	networks := make(map[string]string, len(p.Simulator.Networks))
	for _, n := range p.Simulator.Networks {
		networks[n.SSID] = n.Password
	}
	return networks
}
