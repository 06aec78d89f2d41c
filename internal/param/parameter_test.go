package param

import (
	"bytes"
	"testing"
)

func TestParameterSetValue(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		input    string
		want     string
		wantFit  bool
	}{
		{"fits", 8, "abc", "abc", true},
		{"exactly capacity minus one", 4, "abc", "abc", true},
		{"truncated", 4, "abcdef", "abc", false},
		{"empty", 4, "", "", true},
		{"rune boundary", 4, "aé€", "aé", false},
		{"zero capacity", 0, "x", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewParameter("L", "id", make([]byte, tt.capacity))
			if fit := p.SetValue(tt.input); fit != tt.wantFit {
				t.Errorf("SetValue(%q) fit = %v, want %v", tt.input, fit, tt.wantFit)
			}
			if got := p.Value(); got != tt.want {
				t.Errorf("Value() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParameterSetValueNulPads(t *testing.T) {
	buf := []byte("xxxxxxxx")
	p := NewParameter("L", "id", buf)
	p.SetValue("ab")

	want := []byte{'a', 'b', 0, 0, 0, 0, 0, 0}
	if !bytes.Equal(buf, want) {
		t.Errorf("buffer = %v, want %v", buf, want)
	}
}

func TestParameterValueWithoutTerminator(t *testing.T) {
	p := NewParameter("L", "id", []byte("full"))
	if p.Value() != "full" {
		t.Errorf("Value() = %q, want full", p.Value())
	}
}

func TestParameterOptions(t *testing.T) {
	p := NewParameter("Timeout", "timeout", make([]byte, 4),
		WithKind(KindNumber),
		WithPlaceholder("30"),
		WithDefault("30"),
		WithCustomHTML("min='1'"),
		Hidden(),
	)

	if p.Kind != KindNumber || p.Placeholder != "30" || p.DefaultValue != "30" ||
		p.CustomHTML != "min='1'" || p.Visible {
		t.Errorf("options not applied: %+v", p)
	}
	if p.IsSeparator() || p.IsPassword() {
		t.Error("number parameter misclassified")
	}

	p.Reset()
	if p.Value() != "30" {
		t.Errorf("Reset() value = %q, want 30", p.Value())
	}
}

func TestSeparator(t *testing.T) {
	s := NewSeparator("Network")
	if !s.IsSeparator() || s.Capacity() != 0 || s.Label != "Network" {
		t.Errorf("unexpected separator: %+v", s)
	}
}

func TestKindRoundTrip(t *testing.T) {
	for _, k := range []Kind{KindText, KindPassword, KindNumber, KindCustom} {
		if got := ParseKind(k.String()); got != k {
			t.Errorf("ParseKind(%q) = %v, want %v", k.String(), got, k)
		}
	}
	if ParseKind("email") != KindText {
		t.Error("unknown kinds should map to text")
	}
}
