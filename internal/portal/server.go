package portal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/muurk/apportal/internal/logging"
	"go.uber.org/zap"
)

const (
	// DefaultQueueSize is the number of requests waiting for a tick.
	DefaultQueueSize = 16
	// DefaultRequestTimeout bounds how long a request waits for a tick.
	DefaultRequestTimeout = 5 * time.Second
)

// ServerConfig holds the transport settings.
type ServerConfig struct {
	Addr           string
	QueueSize      int
	RequestTimeout time.Duration
}

// pending is a request waiting to be served from HandleClient. Exactly one
// side claims it: the tick to serve it or the request goroutine to give up.
type pending struct {
	w       http.ResponseWriter
	r       *http.Request
	serve   http.HandlerFunc
	claimed atomic.Bool
	done    chan struct{}
}

// Server is the portal HTTP transport. It implements provision.Portal.
type Server struct {
	config  ServerConfig
	handler *Handler
	router  *mux.Router
	queue   chan *pending

	mu       sync.Mutex
	srv      *http.Server
	listener net.Listener
}

// NewServer creates a Server routing the configuration page to h. Extra
// handlers are mounted with Mount before Begin.
func NewServer(config ServerConfig, h *Handler) *Server {
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultQueueSize
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = DefaultRequestTimeout
	}

	s := &Server{
		config:  config,
		handler: h,
		router:  mux.NewRouter(),
		queue:   make(chan *pending, config.QueueSize),
	}
	s.router.HandleFunc("/", s.queued(h.ServeConfig))
	s.router.NotFoundHandler = s.queued(h.ServeNotFound)
	return s
}

// Mount serves path with handler outside the tick queue. handler must not
// touch the registry.
func (s *Server) Mount(path string, handler http.Handler) {
	s.router.Handle(path, handler)
}

// MountUpdater serves u at its current update path.
func (s *Server) MountUpdater(u *Updater) {
	s.router.MatcherFunc(func(r *http.Request, _ *mux.RouteMatch) bool {
		path := u.Path()
		return path != "" && r.URL.Path == path
	}).Handler(u)
}

// Router returns the request router.
func (s *Server) Router() http.Handler {
	return s.router
}

// queued wraps serve so it runs inside HandleClient.
func (s *Server) queued(serve http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logging.LogHTTPRequest(r.RemoteAddr, r.Method, r.URL.Path, r.Host)

		// Read the body here so the tick never waits on the network.
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}

		p := &pending{w: w, r: r, serve: serve, done: make(chan struct{})}
		select {
		case s.queue <- p:
		default:
			logging.Warn("Portal queue full", zap.String("remote_addr", r.RemoteAddr))
			http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
			return
		}

		timer := time.NewTimer(s.config.RequestTimeout)
		defer timer.Stop()

		select {
		case <-p.done:
			return
		case <-timer.C:
		case <-r.Context().Done():
		}

		if p.claimed.CompareAndSwap(false, true) {
			http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
			return
		}
		// HandleClient is serving it right now.
		<-p.done
	}
}

// HandleClient serves every queued request. It never blocks.
func (s *Server) HandleClient() {
	for {
		select {
		case p := <-s.queue:
			if !p.claimed.CompareAndSwap(false, true) {
				continue
			}
			p.serve(p.w, p.r)
			close(p.done)
		default:
			return
		}
	}
}

// Pending returns the number of queued requests.
func (s *Server) Pending() int {
	return len(s.queue)
}

// Begin starts listening. Calling it while already listening is a no-op.
func (s *Server) Begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.srv != nil {
		return nil
	}

	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.srv = srv
	s.listener = ln

	logging.Info("Portal listening", zap.String("addr", ln.Addr().String()))
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Portal server stopped", zap.Error(err))
		}
	}()
	return nil
}

// Addr returns the listening address, or nil before Begin.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown stops the listener and waits for active requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.srv = nil
	s.listener = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
