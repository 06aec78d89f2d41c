package simulator

import (
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/muurk/apportal/internal/clock"
	"github.com/muurk/apportal/internal/config"
	"github.com/muurk/apportal/internal/console"
	"github.com/muurk/apportal/internal/portal"
)

func testProfile(t *testing.T) *config.Profile {
	t.Helper()
	dir := t.TempDir()
	p := config.NewProfile()
	p.Device.ThingName = "porch-light"
	p.Portal.Listen = "127.0.0.1:0"
	p.Portal.FirmwareDir = filepath.Join(dir, "firmware")
	p.DNS.Listen = "127.0.0.1:0"
	p.Storage.RegionPath = filepath.Join(dir, "region.bin")
	p.Simulator.Networks = []config.NetworkConfig{{SSID: "home", Password: "wifisecret"}}
	p.Parameters = []config.ParameterConfig{
		{Separator: true, Label: "MQTT"},
		{ID: "mqttServer", Label: "MQTT server", Capacity: 64, Default: "broker.local"},
	}
	return p
}

func newDevice(t *testing.T, p *config.Profile) (*Device, *clock.FakeClock) {
	t.Helper()
	fc := clock.Fake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	d, err := New(p, Options{Clock: fc})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d, fc
}

type response struct {
	code int
	body string
	err  error
}

// roundTrip sends req while stepping the device until it is answered.
func roundTrip(t *testing.T, d *Device, req *http.Request) response {
	t.Helper()
	ch := make(chan response, 1)
	go func() {
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			ch <- response{err: err}
			return
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		ch <- response{code: resp.StatusCode, body: string(body)}
	}()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case r := <-ch:
			if r.err != nil {
				t.Fatalf("request error = %v", r.err)
			}
			return r
		case <-deadline:
			t.Fatal("request not answered")
		default:
			d.Step()
			time.Sleep(time.Millisecond)
		}
	}
}

func (d *Device) portalURL(t *testing.T) string {
	t.Helper()
	addr := d.PortalAddr()
	if addr == nil {
		t.Fatal("portal not listening")
	}
	return "http://" + addr.String() + "/"
}

func expectState(t *testing.T, d *Device, want string) {
	t.Helper()
	if got := d.Snapshot().State; got != want {
		t.Fatalf("state = %s, want %s", got, want)
	}
}

func TestProvisioningEndToEnd(t *testing.T) {
	d, fc := newDevice(t, testProfile(t))

	d.Step()
	expectState(t, d, "NotConfigured")
	snap := d.Snapshot()
	if !snap.AccessPoint || snap.APName != "porch-light" || snap.PortalURL == "" {
		t.Fatalf("snapshot = %+v", snap)
	}

	d.Send(console.ClientJoin)
	d.Step()
	if d.Snapshot().Clients != 1 {
		t.Fatalf("clients = %d", d.Snapshot().Clients)
	}

	page := roundTrip(t, d, mustRequest(t, http.MethodGet, d.portalURL(t), ""))
	if page.code != http.StatusOK || !strings.Contains(page.body, "broker.local") {
		t.Fatalf("config page %d: %s", page.code, page.body)
	}

	form := url.Values{
		portal.SaveField: {"true"},
		"thingName":      {"porch-light"},
		"apPassword":     {"longenough1"},
		"wifiSsid":       {"home"},
		"wifiPassword":   {"wifisecret"},
		"mqttServer":     {"mqtt.lan"},
	}
	saved := roundTrip(t, d, mustRequest(t, http.MethodPost, d.portalURL(t), form.Encode()))
	if saved.code != http.StatusOK || !strings.Contains(saved.body, "Configuration saved.") {
		t.Fatalf("save %d: %s", saved.code, saved.body)
	}
	if got := d.Controller().Registry().Get("mqttServer").Value(); got != "mqtt.lan" {
		t.Errorf("mqttServer = %q", got)
	}

	d.Send(console.ClientLeave)
	d.Step()
	expectState(t, d, "Connecting")
	if d.Snapshot().AccessPoint {
		t.Error("access point should stop when connecting")
	}

	fc.Advance(2 * time.Second)
	d.Step()
	expectState(t, d, "Online")

	unauth := roundTrip(t, d, mustRequest(t, http.MethodGet, d.portalURL(t), ""))
	if unauth.code != http.StatusUnauthorized {
		t.Errorf("online page without credentials = %d", unauth.code)
	}
	req := mustRequest(t, http.MethodGet, d.portalURL(t), "")
	req.SetBasicAuth("admin", "longenough1")
	if authed := roundTrip(t, d, req); authed.code != http.StatusOK {
		t.Errorf("online page with credentials = %d", authed.code)
	}

	var path []string
	for _, tr := range d.Snapshot().Transitions {
		path = append(path, tr.From+">"+tr.To)
	}
	want := "Boot>NotConfigured NotConfigured>Connecting Connecting>Online"
	if strings.Join(path, " ") != want {
		t.Errorf("transitions = %v, want %s", path, want)
	}

	// The stored configuration survives a restart.
	d.Close()
	again, _ := newDevice(t, d.profile)
	if got := again.Controller().ThingName(); got != "porch-light" {
		t.Errorf("reloaded thing name = %q", got)
	}
	if got := again.Controller().Registry().Get("mqttServer").Value(); got != "mqtt.lan" {
		t.Errorf("reloaded mqttServer = %q", got)
	}
}

func mustRequest(t *testing.T, method, target, body string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(method, target, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	return req
}

func TestOperatorCommands(t *testing.T) {
	p := testProfile(t)
	p.DNS.Enabled = false
	d, _ := newDevice(t, p)
	d.Step()

	d.Send(console.ToggleBlink)
	d.Step()
	snap := d.Snapshot()
	if snap.BlinkOn != customBlinkOn || snap.BlinkOff != customBlinkOff {
		t.Errorf("custom pattern = %v/%v", snap.BlinkOn, snap.BlinkOff)
	}
	d.Send(console.ToggleBlink)
	d.Step()
	snap = d.Snapshot()
	if snap.BlinkOn != 150*time.Millisecond || snap.BlinkOff != 150*time.Millisecond {
		t.Errorf("reverted pattern = %v/%v", snap.BlinkOn, snap.BlinkOff)
	}

	d.Send(console.ToggleNetwork)
	d.Step()
	if d.Snapshot().NetworkUp {
		t.Error("network should be down")
	}

	d.Send(console.ClientLeave)
	d.Step()
	if d.Snapshot().Clients != 0 {
		t.Error("client count went negative")
	}
}

func TestClientJoinWithoutAccessPoint(t *testing.T) {
	p := testProfile(t)
	p.DNS.Enabled = false
	d, _ := newDevice(t, p)

	// Still in Boot: no access point yet.
	d.Send(console.ClientJoin)
	d.applyCommands()
	d.publish()
	if d.Snapshot().Err == "" {
		t.Error("joining a stopped access point should report an error")
	}
}

func TestNewRejectsInvalidProfile(t *testing.T) {
	p := testProfile(t)
	p.Device.ConfigVersion = "too-long"
	if _, err := New(p, Options{}); err == nil {
		t.Error("New() with an invalid profile should fail")
	}
}
