package captive

import (
	"fmt"
	"net"
	"sync"

	"github.com/miekg/dns"
	"github.com/muurk/apportal/internal/logging"
	"go.uber.org/zap"
)

const (
	// DefaultAddr is the standard DNS port on every interface.
	DefaultAddr = ":53"
	// TTL is the lifetime of every answer, in seconds.
	TTL = 60
)

// Responder is a wildcard DNS server. It implements provision.DNSResponder.
type Responder struct {
	addr string

	mu     sync.Mutex
	ip     net.IP
	server *dns.Server
	conn   net.PacketConn
}

// NewResponder creates a Responder that will listen on addr.
func NewResponder(addr string) *Responder {
	if addr == "" {
		addr = DefaultAddr
	}
	return &Responder{addr: addr}
}

// Start begins answering queries with ip. Calling Start while running only
// replaces the address.
func (r *Responder) Start(ip net.IP) error {
	ip4 := ip.To4()
	if ip4 == nil {
		return fmt.Errorf("captive DNS needs an IPv4 address, got %v", ip)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.ip = ip4
	if r.server != nil {
		return nil
	}

	pc, err := net.ListenPacket("udp", r.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", r.addr, err)
	}

	started := make(chan struct{})
	failed := make(chan error, 1)
	server := &dns.Server{
		PacketConn:        pc,
		Handler:           dns.HandlerFunc(r.serveDNS),
		NotifyStartedFunc: func() { close(started) },
	}
	go func() {
		if err := server.ActivateAndServe(); err != nil {
			failed <- err
		}
	}()

	select {
	case <-started:
	case err := <-failed:
		pc.Close()
		return fmt.Errorf("failed to start DNS server: %w", err)
	}

	r.server = server
	r.conn = pc
	logging.Info("Captive DNS started",
		zap.String("addr", pc.LocalAddr().String()),
		zap.String("answer", ip4.String()),
	)
	return nil
}

// Stop shuts the server down. Stopping a stopped Responder is a no-op.
func (r *Responder) Stop() error {
	r.mu.Lock()
	server := r.server
	r.server = nil
	r.conn = nil
	r.mu.Unlock()

	if server == nil {
		return nil
	}
	if err := server.Shutdown(); err != nil {
		return fmt.Errorf("failed to stop DNS server: %w", err)
	}
	logging.Info("Captive DNS stopped")
	return nil
}

// Addr returns the bound address, or nil when stopped.
func (r *Responder) Addr() net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == nil {
		return nil
	}
	return r.conn.LocalAddr()
}

func (r *Responder) answer() net.IP {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ip
}

func (r *Responder) serveDNS(w dns.ResponseWriter, req *dns.Msg) {
	m := new(dns.Msg)
	m.SetReply(req)
	m.Authoritative = true

	ip := r.answer()
	for _, q := range req.Question {
		if q.Qtype != dns.TypeA || q.Qclass != dns.ClassINET {
			continue
		}
		m.Answer = append(m.Answer, &dns.A{
			Hdr: dns.RR_Header{
				Name:   q.Name,
				Rrtype: dns.TypeA,
				Class:  dns.ClassINET,
				Ttl:    TTL,
			},
			A: ip,
		})
	}

	if len(req.Question) > 0 {
		logging.Debug("Captive DNS query",
			zap.String("name", req.Question[0].Name),
			zap.String("type", dns.TypeToString[req.Question[0].Qtype]),
			zap.Int("answers", len(m.Answer)),
		)
	}

	if err := w.WriteMsg(m); err != nil {
		logging.Warn("Failed to write DNS answer", zap.Error(err))
	}
}
