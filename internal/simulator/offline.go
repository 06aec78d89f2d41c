package simulator

import (
	"fmt"
	"net/url"

	"github.com/muurk/apportal/internal/clock"
	"github.com/muurk/apportal/internal/config"
	"github.com/muurk/apportal/internal/netprobe"
	"github.com/muurk/apportal/internal/netsim"
	"github.com/muurk/apportal/internal/portal"
	"github.com/muurk/apportal/internal/provision"
	"github.com/muurk/apportal/internal/store"
)

func controllerConfig(profile *config.Profile) provision.Config {
	return provision.Config{
		ThingName:             profile.Device.ThingName,
		InitialAPPassword:     profile.Device.InitialAPPassword,
		ConfigVersion:         profile.Device.ConfigVersion,
		WifiConnectionTimeout: profile.Device.WifiConnectionTimeout,
		APTimeout:             profile.Device.APTimeout,
	}
}

func addParameters(ctl *provision.Controller, profile *config.Profile) error {
	params, err := profile.BuildParameters()
	if err != nil {
		return err
	}
	for _, p := range params {
		if !ctl.AddParameter(p) {
			return fmt.Errorf("too many parameters")
		}
	}
	return nil
}

// Offline is a controller bound to the profile's config region without a
// running portal or radio. It is used to inspect and edit the stored
// configuration while the device is stopped.
type Offline struct {
	ctl    *provision.Controller
	region *store.FileRegion
	valid  bool
}

// OpenOffline builds the profile's parameter layout and loads the region.
// A region that fails to load still opens with defaults; the load error
// is returned alongside the Offline.
func OpenOffline(profile *config.Profile) (*Offline, error) {
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}

	adapter := netsim.New(clock.Real(), netsim.Config{
		AccessPointIP: profile.AccessPointIP(),
		StationIP:     profile.StationIP(),
	})
	ctl := provision.New(controllerConfig(profile), netprobe.New(adapter))
	if err := addParameters(ctl, profile); err != nil {
		return nil, err
	}

	region, err := store.OpenFile(profile.Storage.RegionPath, ctl.RegionSize())
	if err != nil {
		return nil, err
	}

	o := &Offline{ctl: ctl, region: region}
	o.valid, err = ctl.Init(region)
	return o, err
}

// Controller returns the controller holding the loaded values.
func (o *Offline) Controller() *provision.Controller { return o.ctl }

// Valid reports whether the region held a configuration for the current
// layout version.
func (o *Offline) Valid() bool { return o.valid }

// Path returns the region file.
func (o *Offline) Path() string { return o.region.Path() }

// Export renders the loaded values as YAML.
func (o *Offline) Export(showSecrets bool) ([]byte, error) {
	return store.Export(o.ctl.Registry(), o.ctl.ConfigVersion(), showSecrets)
}

// Update submits values the way the portal form does: the current
// visible values plus the given assignments are validated with the
// portal rules, applied and saved. Nothing is written when an id is
// unknown or hidden, a value does not fit, or validation fails; the
// latter returns a *portal.ValidationError. Password fields left empty
// keep their stored secret.
func (o *Offline) Update(values map[string]string) error {
	reg := o.ctl.Registry()
	for id, value := range values {
		p := reg.Get(id)
		switch {
		case p == nil:
			return fmt.Errorf("unknown parameter %q", id)
		case !p.Visible:
			return fmt.Errorf("parameter %q is not editable", id)
		case len(value) > p.Capacity()-1:
			return fmt.Errorf("value for %s does not fit in %d bytes", id, p.Capacity()-1)
		}
	}

	args := url.Values{}
	for p := range reg.Fields() {
		if p.Visible && !p.IsPassword() {
			args.Set(p.ID, p.Value())
		}
	}
	for id, value := range values {
		args.Set(id, value)
	}

	return portal.NewHandler(o.ctl).Submit(args)
}

// Reset erases the region so the next boot starts unconfigured.
func (o *Offline) Reset() error {
	o.region.Erase()
	return o.region.Commit()
}
