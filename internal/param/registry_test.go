package param

import (
	"strings"
	"testing"
)

func TestRegistryTotalEncodedSize(t *testing.T) {
	tests := []struct {
		name   string
		params []*Parameter
		want   int
	}{
		{"empty", nil, 0},
		{
			name: "fields only",
			params: []*Parameter{
				NewParameter("A", "a", make([]byte, 33)),
				NewParameter("B", "b", make([]byte, 8)),
			},
			want: 41,
		},
		{
			name: "interleaved separators",
			params: []*Parameter{
				NewSeparator(""),
				NewParameter("A", "a", make([]byte, 33)),
				NewSeparator("MQTT"),
				NewParameter("B", "b", make([]byte, 16)),
				NewSeparator("trailing"),
				NewCustomParameter("c", make([]byte, 4), "<b>c</b>", KindCustom),
			},
			want: 53,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry()
			for _, p := range tt.params {
				if !reg.Add(p) {
					t.Fatalf("Add(%q) = false", p.ID)
				}
			}
			if got := reg.TotalEncodedSize(); got != tt.want {
				t.Errorf("TotalEncodedSize() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRegistryAddPreservesOrderAndLimit(t *testing.T) {
	reg := NewRegistry()
	if reg.Add(nil) {
		t.Error("Add(nil) should fail")
	}

	for i := 0; i < MaxParameters; i++ {
		if !reg.Add(NewSeparator("")) {
			t.Fatalf("Add #%d failed before the registry was full", i)
		}
	}
	if reg.Add(NewSeparator("overflow")) {
		t.Error("Add should fail once MaxParameters is reached")
	}
	if reg.Len() != MaxParameters {
		t.Errorf("Len() = %d, want %d", reg.Len(), MaxParameters)
	}
}

func TestRegistryAllIsRestartable(t *testing.T) {
	reg := NewRegistry()
	ids := []string{"first", "second", "third"}
	for _, id := range ids {
		reg.Add(NewParameter(id, id, make([]byte, 8)))
	}

	for pass := 0; pass < 2; pass++ {
		var got []string
		for i, p := range reg.All() {
			if p.ID != ids[i] {
				t.Errorf("pass %d: index %d = %q, want %q", pass, i, p.ID, ids[i])
			}
			got = append(got, p.ID)
		}
		if strings.Join(got, ",") != strings.Join(ids, ",") {
			t.Errorf("pass %d: order = %v", pass, got)
		}
	}

	// Early exit must not panic.
	for _, p := range reg.All() {
		if p.ID == "second" {
			break
		}
	}
}

func TestRegistryAllExposesMutableParameters(t *testing.T) {
	buf := make([]byte, 10)
	reg := NewRegistry()
	reg.Add(NewParameter("Name", "name", buf))

	for _, p := range reg.All() {
		p.SetValue("changed")
		p.ErrorMessage = "bad"
	}

	if got := reg.Get("name").Value(); got != "changed" {
		t.Errorf("Value() = %q, want changed", got)
	}
	if string(buf[:7]) != "changed" {
		t.Errorf("caller buffer not updated: %q", buf)
	}

	reg.ClearErrors()
	if reg.Get("name").ErrorMessage != "" {
		t.Error("ClearErrors() left a message behind")
	}
}

func TestRegistryGet(t *testing.T) {
	reg := NewRegistry()
	reg.Add(NewSeparator("legend"))
	reg.Add(NewParameter("Host", "host", make([]byte, 8)))

	if reg.Get("host") == nil {
		t.Error("Get(host) = nil")
	}
	if reg.Get("") != nil {
		t.Error("Get(\"\") should not match separators")
	}
	if reg.Get("missing") != nil {
		t.Error("Get(missing) should be nil")
	}
}

func TestRegistryResetToDefaults(t *testing.T) {
	reg := NewRegistry()
	withDefault := NewParameter("Port", "port", make([]byte, 6), WithDefault("1883"))
	noDefault := NewParameter("Host", "host", make([]byte, 16))
	reg.Add(withDefault)
	reg.Add(NewSeparator(""))
	reg.Add(noDefault)

	withDefault.SetValue("8883")
	noDefault.SetValue("broker")
	reg.ResetToDefaults()

	if withDefault.Value() != "1883" {
		t.Errorf("port = %q, want 1883", withDefault.Value())
	}
	if noDefault.Value() != "" {
		t.Errorf("host = %q, want empty", noDefault.Value())
	}
}
