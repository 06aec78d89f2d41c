package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/muurk/apportal/internal/param"
	"github.com/muurk/apportal/internal/provision"
	"github.com/muurk/apportal/internal/store"
	"gopkg.in/yaml.v3"
)

const (
	appName     = "apportal"
	profileFile = "profile.yaml"
	regionFile  = "region.bin"
	firmwareDir = "firmware"
)

// Mutex for thread-safe file operations
var fileMutex sync.Mutex

// GetConfigDir returns the OS-appropriate configuration directory for the application.
// This follows platform conventions:
//   - Linux: $XDG_CONFIG_HOME/apportal or $HOME/.config/apportal
//   - macOS: $HOME/.config/apportal (following XDG convention on macOS)
//   - Windows: %LOCALAPPDATA%\apportal
func GetConfigDir() (string, error) {
	var baseDir string

	switch runtime.GOOS {
	case "windows":
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			userProfile := os.Getenv("USERPROFILE")
			if userProfile == "" {
				return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
			}
			baseDir = filepath.Join(userProfile, "AppData", "Local", appName)
		} else {
			baseDir = filepath.Join(localAppData, appName)
		}

	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		baseDir = filepath.Join(homeDir, ".config", appName)

	default:
		xdgConfigHome := os.Getenv("XDG_CONFIG_HOME")
		if xdgConfigHome != "" {
			baseDir = filepath.Join(xdgConfigHome, appName)
		} else {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("cannot determine home directory: %w", err)
			}
			baseDir = filepath.Join(homeDir, ".config", appName)
		}
	}

	return baseDir, nil
}

// GetProfilePath returns the default profile location.
func GetProfilePath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, profileFile), nil
}

// resolvePath returns path, or the default profile path when it is empty.
func resolvePath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	return GetProfilePath()
}

// Load reads the profile at path, or at the default location when path is
// empty. A missing file yields the default profile. Relative storage paths
// are resolved against the profile directory.
func Load(path string) (*Profile, error) {
	profilePath, err := resolvePath(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile path: %w", err)
	}

	profile := NewProfile()

	data, err := os.ReadFile(profilePath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// No profile yet, use defaults
	case err != nil:
		return nil, fmt.Errorf("failed to read profile: %w", err)
	default:
		if err := yaml.Unmarshal(data, profile); err != nil {
			return nil, fmt.Errorf("failed to parse profile: %w", err)
		}
		if profile.Version != CurrentVersion {
			return nil, fmt.Errorf("unsupported profile version: %d (expected %d)", profile.Version, CurrentVersion)
		}
	}

	profile.resolvePaths(filepath.Dir(profilePath))
	return profile, nil
}

// resolvePaths fills empty storage paths and anchors relative ones in dir.
func (p *Profile) resolvePaths(dir string) {
	anchor := func(path, fallback string) string {
		if path == "" {
			path = fallback
		}
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		return path
	}
	p.Storage.RegionPath = anchor(p.Storage.RegionPath, regionFile)
	p.Portal.FirmwareDir = anchor(p.Portal.FirmwareDir, firmwareDir)
}

// Save writes the profile to path, or to the default location when path
// is empty. Performs an atomic write to prevent corruption on crash.
func (p *Profile) Save(path string) error {
	fileMutex.Lock()
	defer fileMutex.Unlock()

	profilePath, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("failed to get profile path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(profilePath), 0700); err != nil {
		return fmt.Errorf("failed to create profile directory: %w", err)
	}

	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	header := []byte(`# apportal device profile
# Settings compiled into the device plus the simulated environment.
# Values entered through the portal are kept in the config region.
#
# Location: ` + profilePath + `

`)
	data = append(header, data...)

	tmpPath := profilePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary profile: %w", err)
	}
	if err := os.Rename(tmpPath, profilePath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save profile: %w", err)
	}

	return nil
}

// Validate checks the profile and returns every problem found.
func (p *Profile) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	d := p.Device
	if d.ThingName == "" {
		add("device.thing_name is required")
	} else if len(d.ThingName) >= provision.WordLength {
		add("device.thing_name must be shorter than %d bytes", provision.WordLength)
	}
	if n := len(d.InitialAPPassword); n < 8 || n >= provision.WordLength {
		add("device.initial_ap_password must be 8 to %d bytes", provision.WordLength-1)
	}
	if n := len(d.ConfigVersion); n == 0 || n > store.VersionLength {
		add("device.config_version must be 1 to %d characters", store.VersionLength)
	}
	if d.WifiConnectionTimeout < 0 || d.APTimeout < 0 {
		add("device timeouts must not be negative")
	}

	if p.Portal.Listen == "" {
		add("portal.listen is required")
	} else if _, _, err := net.SplitHostPort(p.Portal.Listen); err != nil {
		add("portal.listen: %v", err)
	}
	if p.DNS.Enabled {
		if _, _, err := net.SplitHostPort(p.DNS.Listen); err != nil {
			add("dns.listen: %v", err)
		}
	}
	if p.MDNS.Port < 0 || p.MDNS.Port > 65535 {
		add("mdns.port %d is out of range", p.MDNS.Port)
	}

	if ip := net.ParseIP(p.Simulator.AccessPointIP); ip == nil || ip.To4() == nil {
		add("simulator.access_point_ip %q is not an IPv4 address", p.Simulator.AccessPointIP)
	}
	if ip := net.ParseIP(p.Simulator.StationIP); ip == nil || ip.To4() == nil {
		add("simulator.station_ip %q is not an IPv4 address", p.Simulator.StationIP)
	}
	for i, n := range p.Simulator.Networks {
		if n.SSID == "" {
			add("simulator.networks[%d]: ssid is required", i)
		}
	}

	ids := map[string]bool{
		provision.ParamThingName:    true,
		provision.ParamAPPassword:   true,
		provision.ParamWifiSSID:     true,
		provision.ParamWifiPassword: true,
		provision.ParamAPTimeout:    true,
	}
	for i, pc := range p.Parameters {
		if pc.Separator {
			continue
		}
		switch {
		case pc.ID == "":
			add("parameters[%d]: id is required", i)
		case ids[pc.ID]:
			add("parameters[%d]: duplicate id %q", i, pc.ID)
		}
		ids[pc.ID] = true
		if pc.Capacity < 2 {
			add("parameters[%d]: capacity must be at least 2", i)
		} else if len(pc.Default) >= pc.Capacity {
			add("parameters[%d]: default does not fit in %d bytes", i, pc.Capacity)
		}
		switch pc.Kind {
		case "", "text", "password", "number", "custom":
		default:
			add("parameters[%d]: unknown kind %q", i, pc.Kind)
		}
	}
	if 5+len(p.Parameters) > param.MaxParameters {
		add("too many parameters (limit %d including built-ins)", param.MaxParameters-5)
	}

	return errors.Join(errs...)
}

// BuildParameters creates the user parameters in profile order.
func (p *Profile) BuildParameters() ([]*param.Parameter, error) {
	params := make([]*param.Parameter, 0, len(p.Parameters))
	for i, pc := range p.Parameters {
		if pc.Separator {
			params = append(params, param.NewSeparator(pc.Label))
			continue
		}
		if pc.ID == "" || pc.Capacity < 2 {
			return nil, fmt.Errorf("parameters[%d]: invalid id or capacity", i)
		}

		kind := param.ParseKind(pc.Kind)
		buf := make([]byte, pc.Capacity)
		if pc.Label == "" {
			params = append(params, param.NewCustomParameter(pc.ID, buf, pc.CustomHTML, kind))
			continue
		}

		opts := []param.Option{
			param.WithKind(kind),
			param.WithDefault(pc.Default),
			param.WithPlaceholder(pc.Placeholder),
			param.WithCustomHTML(pc.CustomHTML),
		}
		if pc.Hidden {
			opts = append(opts, param.Hidden())
		}
		params = append(params, param.NewParameter(pc.Label, pc.ID, buf, opts...))
	}
	return params, nil
}

// AccessPointIP returns the simulated access point address.
func (p *Profile) AccessPointIP() net.IP {
	return net.ParseIP(p.Simulator.AccessPointIP)
}

// StationIP returns the simulated station address.
func (p *Profile) StationIP() net.IP {
	return net.ParseIP(p.Simulator.StationIP)
}

// PortalPort returns the port of portal.listen, or 80 when it has none.
func (p *Profile) PortalPort() int {
	_, port, err := net.SplitHostPort(p.Portal.Listen)
	if err != nil {
		return provision.DefaultHTTPPort
	}
	n, err := net.LookupPort("tcp", port)
	if err != nil {
		return provision.DefaultHTTPPort
	}
	return n
}

// AdvertisedPort returns the mDNS port, defaulting to the portal port.
func (p *Profile) AdvertisedPort() int {
	if p.MDNS.Port > 0 {
		return p.MDNS.Port
	}
	return p.PortalPort()
}
