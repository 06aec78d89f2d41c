package captive

import (
	"net"
	"testing"

	"github.com/miekg/dns"
)

func startResponder(t *testing.T, ip net.IP) *Responder {
	t.Helper()
	r := NewResponder("127.0.0.1:0")
	if err := r.Start(ip); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { r.Stop() })
	return r
}

func query(t *testing.T, r *Responder, name string, qtype uint16) *dns.Msg {
	t.Helper()
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(name), qtype)
	c := &dns.Client{Net: "udp"}
	in, _, err := c.Exchange(m, r.Addr().String())
	if err != nil {
		t.Fatalf("Exchange(%s) error = %v", name, err)
	}
	return in
}

func TestResponderAnswers(t *testing.T) {
	r := startResponder(t, net.IPv4(192, 168, 4, 1))

	tests := []struct {
		name    string
		qname   string
		qtype   uint16
		answers int
	}{
		{"captive probe", "captive.apple.com", dns.TypeA, 1},
		{"any host", "connectivitycheck.gstatic.com", dns.TypeA, 1},
		{"ipv6 query", "example.org", dns.TypeAAAA, 0},
		{"mx query", "example.org", dns.TypeMX, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := query(t, r, tt.qname, tt.qtype)
			if in.Rcode != dns.RcodeSuccess {
				t.Errorf("Rcode = %s", dns.RcodeToString[in.Rcode])
			}
			if len(in.Answer) != tt.answers {
				t.Fatalf("got %d answers, want %d", len(in.Answer), tt.answers)
			}
			if tt.answers == 0 {
				return
			}
			a, ok := in.Answer[0].(*dns.A)
			if !ok {
				t.Fatalf("answer type = %T", in.Answer[0])
			}
			if !a.A.Equal(net.IPv4(192, 168, 4, 1)) {
				t.Errorf("A = %v", a.A)
			}
			if a.Hdr.Ttl != TTL || a.Hdr.Name != dns.Fqdn(tt.qname) {
				t.Errorf("header = %+v", a.Hdr)
			}
		})
	}
}

func TestResponderRestartReplacesAnswer(t *testing.T) {
	r := startResponder(t, net.IPv4(192, 168, 4, 1))
	addr := r.Addr().String()

	if err := r.Start(net.IPv4(10, 0, 0, 1)); err != nil {
		t.Fatalf("second Start() error = %v", err)
	}
	if r.Addr().String() != addr {
		t.Errorf("Addr changed from %s to %s", addr, r.Addr())
	}

	in := query(t, r, "example.org", dns.TypeA)
	if len(in.Answer) != 1 || !in.Answer[0].(*dns.A).A.Equal(net.IPv4(10, 0, 0, 1)) {
		t.Errorf("answer = %v", in.Answer)
	}
}

func TestResponderStop(t *testing.T) {
	r := NewResponder("127.0.0.1:0")
	if err := r.Stop(); err != nil {
		t.Errorf("Stop() before Start error = %v", err)
	}
	if err := r.Start(net.IPv4(192, 168, 4, 1)); err != nil {
		t.Fatal(err)
	}
	if err := r.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if r.Addr() != nil {
		t.Error("Addr() after Stop should be nil")
	}
	if err := r.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}

func TestResponderRejectsIPv6(t *testing.T) {
	r := NewResponder("127.0.0.1:0")
	if err := r.Start(net.ParseIP("fe80::1")); err == nil {
		r.Stop()
		t.Error("Start() with an IPv6 address should fail")
	}
}
