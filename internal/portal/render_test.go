package portal

import (
	"net/url"
	"strings"
	"testing"

	"github.com/muurk/apportal/internal/param"
)

func TestRenderPage(t *testing.T) {
	d := newFakeDevice(t)
	d.reg.Get("apPassword").SetValue("stored-secret")
	d.reg.Get("wifiSsid").SetValue("home<net>")
	d.reg.Get("thingName").ErrorMessage = "Give a name with at least 3 characters."

	page := RenderPage(d.reg, url.Values{}, PageOptions{UpdatePath: "/firmware", ConfigVersion: "t001"})

	tests := []struct {
		name     string
		contains string
		want     bool
	}{
		{"title", "<title>Config ESP</title>", true},
		{"hidden save marker", "name='portalSave'", true},
		{"stored text value escaped", "value='home&lt;net&gt;'", true},
		{"password never echoed", "stored-secret", false},
		{"password input type", "type='password' id='apPassword'", true},
		{"hidden field skipped", "id='apTimeout'", false},
		{"separator with legend", "</fieldset><fieldset><legend>MQTT</legend>", true},
		{"placeholder", "placeholder='broker.local'", true},
		{"capacity", "maxlength='64'", true},
		{"error class", "<div class='de'><label for='thingName'>", true},
		{"error message", "<div class='em'>Give a name with at least 3 characters.</div>", true},
		{"update link", "<a href='/firmware'>Firmware update</a>", true},
		{"config version", "Firmware config version 't001'", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := strings.Contains(page, tt.contains); got != tt.want {
				t.Errorf("page contains %q = %v, want %v", tt.contains, got, tt.want)
			}
		})
	}
}

func TestRenderPageSubmittedValuesWin(t *testing.T) {
	d := newFakeDevice(t)
	d.reg.Get("wifiSsid").SetValue("stored")

	args := url.Values{"wifiSsid": {"typed"}, "apPassword": {"typed-secret"}}
	page := RenderPage(d.reg, args, PageOptions{})

	if !strings.Contains(page, "value='typed'") || strings.Contains(page, "value='stored'") {
		t.Error("submitted value should replace the stored one")
	}
	if strings.Contains(page, "typed-secret") {
		t.Error("submitted password must not be echoed")
	}
}

func TestRenderPageNoUpdateLink(t *testing.T) {
	d := newFakeDevice(t)
	page := RenderPage(d.reg, nil, PageOptions{})
	if strings.Contains(page, "Firmware update") {
		t.Error("update link rendered without update path")
	}
}

func TestRenderCustomParameter(t *testing.T) {
	reg := param.NewRegistry()
	reg.Add(param.NewCustomParameter("mode", make([]byte, 8), "<select name='mode'><option>a</option></select>", param.KindCustom))
	reg.Add(param.NewParameter("Port", "port", make([]byte, 6),
		param.WithKind(param.KindNumber), param.WithCustomHTML("min='1' max='65535'")))

	page := RenderPage(reg, nil, PageOptions{})
	if !strings.Contains(page, "<select name='mode'><option>a</option></select>") {
		t.Error("custom markup missing")
	}
	if !strings.Contains(page, "type='number' id='port' name='port' maxlength='6' placeholder='' value='' min='1' max='65535'/>") {
		t.Errorf("number input not rendered as expected:\n%s", page)
	}
}

type plainFormat struct {
	DefaultFormat
}

func (plainFormat) Style() string { return "" }
func (plainFormat) FormParam(param.Kind) string {
	return "[{i}={v}]"
}

func TestRenderCustomFormat(t *testing.T) {
	d := newFakeDevice(t)
	page := RenderPage(d.reg, nil, PageOptions{Format: plainFormat{}, Title: "Porch"})

	if strings.Contains(page, "<style>") {
		t.Error("overridden style still rendered")
	}
	if !strings.Contains(page, "[thingName=Porch-Light]") {
		t.Errorf("custom field markup not used:\n%s", page)
	}
	if !strings.Contains(page, "<title>Porch</title>") {
		t.Error("title not applied")
	}
}

func TestRenderMessage(t *testing.T) {
	page := RenderMessage("Configuration saved.", PageOptions{})
	if !strings.HasPrefix(page, "<!DOCTYPE html>") || !strings.Contains(page, "</head><body>") ||
		!strings.HasSuffix(page, "Configuration saved.</div></body></html>") {
		t.Errorf("unexpected page:\n%s", page)
	}
}
