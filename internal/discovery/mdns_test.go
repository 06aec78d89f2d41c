package discovery

import (
	"errors"
	"net"
	"reflect"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"
)

func TestScanner_parseServiceEntry(t *testing.T) {
	scanner := NewScanner()

	tests := []struct {
		name     string
		entry    *zeroconf.ServiceEntry
		wantNil  bool
		wantIP   string
		wantPort int
	}{
		{
			name: "marked device with IPv4",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "porch-light"},
				HostName:      "porch-light.local.",
				Port:          80,
				AddrIPv4:      []net.IP{net.ParseIP("192.168.1.50")},
				Text:          []string{"apportal=1", "path=/"},
			},
			wantIP:   "192.168.1.50",
			wantPort: 80,
		},
		{
			name: "no port specified defaults to 80",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "garage"},
				AddrIPv4:      []net.IP{net.ParseIP("172.16.0.1")},
				Text:          []string{"apportal=1"},
			},
			wantIP:   "172.16.0.1",
			wantPort: 80,
		},
		{
			name: "IPv6 only device",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "shed"},
				Port:          8080,
				AddrIPv6:      []net.IP{net.ParseIP("fe80::1")},
				Text:          []string{"apportal=1"},
			},
			wantIP:   "fe80::1",
			wantPort: 8080,
		},
		{
			name: "both families prefers IPv4",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "attic"},
				Port:          80,
				AddrIPv4:      []net.IP{net.ParseIP("192.168.1.51")},
				AddrIPv6:      []net.IP{net.ParseIP("fe80::2")},
				Text:          []string{"apportal=1"},
			},
			wantIP:   "192.168.1.51",
			wantPort: 80,
		},
		{
			name: "unmarked http service",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "printer"},
				Port:          80,
				AddrIPv4:      []net.IP{net.ParseIP("192.168.1.1")},
				Text:          []string{"path=/"},
			},
			wantNil: true,
		},
		{
			name: "marker with other value",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "printer"},
				AddrIPv4:      []net.IP{net.ParseIP("192.168.1.1")},
				Text:          []string{"apportal=0"},
			},
			wantNil: true,
		},
		{
			name: "no address",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "porch-light"},
				Text:          []string{"apportal=1"},
			},
			wantNil: true,
		},
		{
			name: "empty instance",
			entry: &zeroconf.ServiceEntry{
				AddrIPv4: []net.IP{net.ParseIP("192.168.1.1")},
				Text:     []string{"apportal=1"},
			},
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			device := scanner.parseServiceEntry(tt.entry)

			if tt.wantNil {
				if device != nil {
					t.Errorf("parseServiceEntry() = %v, want nil", device)
				}
				return
			}
			if device == nil {
				t.Fatal("parseServiceEntry() = nil, want non-nil device")
			}
			if device.Name != tt.entry.Instance {
				t.Errorf("device.Name = %v, want %v", device.Name, tt.entry.Instance)
			}
			if device.IP != tt.wantIP {
				t.Errorf("device.IP = %v, want %v", device.IP, tt.wantIP)
			}
			if device.Port != tt.wantPort {
				t.Errorf("device.Port = %v, want %v", device.Port, tt.wantPort)
			}
			if time.Since(device.DiscoveredAt) > time.Second {
				t.Errorf("device.DiscoveredAt is not recent: %v", device.DiscoveredAt)
			}
		})
	}
}

func TestParseText(t *testing.T) {
	got := parseText([]string{"apportal=1", "path=/", "flag", "note=a=b"})
	want := map[string]string{
		"apportal": "1",
		"path":     "/",
		"flag":     "",
		"note":     "a=b",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("parseText() = %v, want %v", got, want)
	}
}

func TestNewScanner(t *testing.T) {
	scanner := NewScanner()
	if scanner.Timeout != DefaultScanTimeout {
		t.Errorf("scanner.Timeout = %v, want %v", scanner.Timeout, DefaultScanTimeout)
	}
}

type fakeRegistration struct {
	instance string
	port     int
	text     []string
	down     bool
}

func (r *fakeRegistration) Shutdown() { r.down = true }

func fakeAdvertiser(fail error, extra ...string) (*Advertiser, *[]*fakeRegistration) {
	var regs []*fakeRegistration
	a := NewAdvertiser(extra...)
	a.register = func(instance string, port int, text []string) (registration, error) {
		if fail != nil {
			return nil, fail
		}
		r := &fakeRegistration{instance: instance, port: port, text: text}
		regs = append(regs, r)
		return r, nil
	}
	return a, &regs
}

func TestAdvertiser(t *testing.T) {
	a, regs := fakeAdvertiser(nil, "version=v0.3.0")

	if err := a.Advertise("porch-light", 0); err != nil {
		t.Fatalf("Advertise() error = %v", err)
	}
	first := (*regs)[0]
	if first.instance != "porch-light" || first.port != DefaultPort {
		t.Errorf("registered %s:%d", first.instance, first.port)
	}
	wantText := []string{"apportal=1", "path=/", "version=v0.3.0"}
	if !reflect.DeepEqual(first.text, wantText) {
		t.Errorf("text = %v, want %v", first.text, wantText)
	}

	if err := a.Advertise("garage", 8080); err != nil {
		t.Fatal(err)
	}
	if !first.down {
		t.Error("re-advertising should withdraw the old record")
	}

	a.Shutdown()
	if !(*regs)[1].down {
		t.Error("Shutdown() should withdraw the record")
	}
	a.Shutdown()
}

func TestAdvertiserErrors(t *testing.T) {
	a, _ := fakeAdvertiser(nil)
	if err := a.Advertise("", 80); err == nil {
		t.Error("Advertise(\"\") should fail")
	}

	boom := errors.New("no multicast interface")
	a, _ = fakeAdvertiser(boom)
	if err := a.Advertise("porch-light", 80); !errors.Is(err, boom) {
		t.Errorf("Advertise() error = %v, want wrapped %v", err, boom)
	}
}
