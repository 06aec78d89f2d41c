package portal

import (
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/muurk/apportal/internal/store"
)

func submission(pairs ...string) url.Values {
	v := url.Values{SaveField: {"true"}}
	for i := 0; i+1 < len(pairs); i += 2 {
		v.Set(pairs[i], pairs[i+1])
	}
	return v
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		args       url.Values
		want       bool
		wantErrors map[string]string
	}{
		{
			name:       "short thing name",
			args:       submission("thingName", "A"),
			want:       false,
			wantErrors: map[string]string{"thingName": MsgThingNameTooShort},
		},
		{
			name:       "missing thing name",
			args:       submission(),
			want:       false,
			wantErrors: map[string]string{"thingName": MsgThingNameTooShort},
		},
		{
			name:       "short ap password",
			args:       submission("thingName", "porch", "apPassword", "short1"),
			want:       false,
			wantErrors: map[string]string{"apPassword": MsgPasswordTooShort},
		},
		{
			name: "short passwords",
			args: submission("thingName", "ab", "apPassword", "1234567", "wifiPassword", "x"),
			want: false,
			wantErrors: map[string]string{
				"thingName":    MsgThingNameTooShort,
				"apPassword":   MsgPasswordTooShort,
				"wifiPassword": MsgPasswordTooShort,
			},
		},
		{
			name: "empty passwords allowed",
			args: submission("thingName", "porch"),
			want: true,
		},
		{
			name: "valid",
			args: submission("thingName", "porch", "apPassword", "longenough1", "wifiPassword", "12345678"),
			want: true,
		},
		{
			name: "multibyte name counts runes",
			args: submission("thingName", "äöü"),
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newFakeDevice(t)
			d.reg.Get("wifiSsid").ErrorMessage = "stale"

			if got := Validate(d.reg, tt.args, nil); got != tt.want {
				t.Fatalf("Validate() = %v, want %v", got, tt.want)
			}
			for p := range d.reg.Fields() {
				if want := tt.wantErrors[p.ID]; p.ErrorMessage != want {
					t.Errorf("%s error = %q, want %q", p.ID, p.ErrorMessage, want)
				}
			}
		})
	}
}

func TestValidateExternalValidator(t *testing.T) {
	d := newFakeDevice(t)
	var seen url.Values
	ext := func(args url.Values) bool {
		seen = args
		d.reg.Get("mqttServer").ErrorMessage = "unreachable"
		return false
	}

	args := submission("thingName", "porch", "mqttServer", "nowhere")
	if Validate(d.reg, args, ext) {
		t.Fatal("Validate() should fail when the external validator fails")
	}
	if seen.Get("mqttServer") != "nowhere" {
		t.Error("external validator did not receive the arguments")
	}
	if d.reg.Get("mqttServer").ErrorMessage != "unreachable" {
		t.Error("external error message lost")
	}
}

func TestApply(t *testing.T) {
	d := newFakeDevice(t)
	d.reg.Get("apPassword").SetValue("old-secret")
	d.reg.Get("wifiPassword").SetValue("old-wifi")
	d.reg.Get("apTimeout").SetValue("45")

	Apply(d.reg, submission(
		"thingName", "garage",
		"apPassword", "",
		"wifiPassword", "new-wifi-pass",
		"apTimeout", "1",
		"mqttServer", strings.Repeat("m", 80),
	))

	want := map[string]string{
		"thingName":    "garage",
		"apPassword":   "old-secret",
		"wifiSsid":     "",
		"wifiPassword": "new-wifi-pass",
		"apTimeout":    "45",
		"mqttServer":   strings.Repeat("m", 63),
	}
	for id, w := range want {
		if got := d.reg.Get(id).Value(); got != w {
			t.Errorf("%s = %q, want %q", id, got, w)
		}
	}
}

func TestSubmitScenarios(t *testing.T) {
	t.Run("short thing name rejected", func(t *testing.T) {
		d := newFakeDevice(t)
		before := d.region.Committed()

		err := NewHandler(d).Submit(submission("thingName", "A", "wifiSsid", "home"))

		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("Submit() error = %v, want *ValidationError", err)
		}
		if verr.Fields["thingName"] != "Give a name with at least 3 characters." {
			t.Errorf("Fields = %v", verr.Fields)
		}
		if d.ThingName() != "Porch-Light" || d.reg.Get("wifiSsid").Value() != "" {
			t.Error("registry changed by rejected submission")
		}
		if d.saves != 0 || string(d.region.Committed()) != string(before) {
			t.Error("rejected submission was persisted")
		}
	})

	t.Run("short ap password rejected", func(t *testing.T) {
		d := newFakeDevice(t)
		err := NewHandler(d).Submit(submission("thingName", "porch", "apPassword", "short1"))

		var verr *ValidationError
		if !errors.As(err, &verr) || verr.Fields["apPassword"] != MsgPasswordTooShort {
			t.Fatalf("Submit() error = %v", err)
		}
		if d.APPassword() != "" || d.saves != 0 {
			t.Error("rejected password was applied")
		}
	})

	t.Run("long ap password accepted and persisted", func(t *testing.T) {
		d := newFakeDevice(t)
		err := NewHandler(d).Submit(submission("thingName", "porch", "apPassword", "longenough1"))
		if err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		if d.saves != 1 {
			t.Fatalf("saves = %d", d.saves)
		}

		reloaded := newFakeDevice(t)
		if err := store.New(d.region, "t001").Load(reloaded.reg); err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if got := reloaded.APPassword(); got != "longenough1" {
			t.Errorf("loaded AP password = %q", got)
		}
	})

	t.Run("blank password keeps stored secret across reload", func(t *testing.T) {
		d := newFakeDevice(t)
		h := NewHandler(d)
		if err := h.Submit(submission("thingName", "porch", "apPassword", "longenough1", "wifiSsid", "home")); err != nil {
			t.Fatal(err)
		}
		if err := h.Submit(submission("thingName", "porch2", "apPassword", "", "wifiSsid", "home")); err != nil {
			t.Fatal(err)
		}

		reloaded := newFakeDevice(t)
		if err := store.New(d.region, "t001").Load(reloaded.reg); err != nil {
			t.Fatal(err)
		}
		if reloaded.ThingName() != "porch2" || reloaded.APPassword() != "longenough1" {
			t.Errorf("reloaded = %q / %q", reloaded.ThingName(), reloaded.APPassword())
		}
	})

	t.Run("storage failure", func(t *testing.T) {
		d := newFakeDevice(t)
		d.region.FailCommit = true
		err := NewHandler(d).Submit(submission("thingName", "porch"))
		if !store.IsStorageWrite(err) {
			t.Fatalf("Submit() error = %v, want storage write failure", err)
		}
		if d.ThingName() != "porch" {
			t.Error("in-memory value should be kept after a failed save")
		}
	})
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"b": "two", "a": "one"}}
	if got := err.Error(); got != "validation failed: a: one; b: two" {
		t.Errorf("Error() = %q", got)
	}
	if got := (&ValidationError{}).Error(); got != "validation failed" {
		t.Errorf("Error() = %q", got)
	}
}
