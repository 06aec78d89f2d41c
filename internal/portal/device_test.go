package portal

import (
	"net"
	"testing"

	"github.com/muurk/apportal/internal/param"
	"github.com/muurk/apportal/internal/provision"
	"github.com/muurk/apportal/internal/store"
)

// fakeDevice carries the built-in parameters plus one user field.
type fakeDevice struct {
	reg       *param.Registry
	region    *store.MemRegion
	store     *store.Store
	state     provision.State
	validator provision.FormValidator
	saves     int
}

func newFakeDevice(t *testing.T) *fakeDevice {
	t.Helper()
	reg := param.NewRegistry()
	word := func() []byte { return make([]byte, provision.WordLength) }
	reg.Add(param.NewParameter("Thing name", provision.ParamThingName, word(), param.WithDefault("Porch-Light")))
	reg.Add(param.NewParameter("AP password", provision.ParamAPPassword, word(), param.WithKind(param.KindPassword)))
	reg.Add(param.NewParameter("WiFi SSID", provision.ParamWifiSSID, word()))
	reg.Add(param.NewParameter("WiFi password", provision.ParamWifiPassword, word(), param.WithKind(param.KindPassword)))
	reg.Add(param.NewParameter("Startup delay (seconds)", provision.ParamAPTimeout, word(),
		param.WithKind(param.KindNumber), param.WithDefault("30"), param.Hidden()))
	reg.Add(param.NewSeparator("MQTT"))
	reg.Add(param.NewParameter("MQTT server", "mqttServer", make([]byte, 64), param.WithPlaceholder("broker.local")))

	d := &fakeDevice{reg: reg, state: provision.NotConfigured}
	d.region = store.NewMemRegion(store.RegionSize(reg))
	d.store = store.New(d.region, "t001")
	reg.ResetToDefaults()
	return d
}

func (d *fakeDevice) Registry() *param.Registry { return d.reg }
func (d *fakeDevice) State() provision.State { return d.state }
func (d *fakeDevice) ThingName() string { return d.reg.Get(provision.ParamThingName).Value() }
func (d *fakeDevice) APPassword() string { return d.reg.Get(provision.ParamAPPassword).Value() }
func (d *fakeDevice) ConfigVersion() string { return "t001" }
func (d *fakeDevice) Validator() provision.FormValidator { return d.validator }
func (d *fakeDevice) UpdatePath() string { return "/firmware" }
func (d *fakeDevice) LocalIP() net.IP { return net.IPv4(192, 168, 4, 1) }

func (d *fakeDevice) SaveConfig() error {
	if err := d.store.Save(d.reg); err != nil {
		return err
	}
	d.saves++
	return nil
}
