package portal

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/muurk/apportal/internal/logging"
	"github.com/muurk/apportal/internal/param"
	"github.com/muurk/apportal/internal/provision"
	"go.uber.org/zap"
)

// Device is the provisioning state the portal works on.
// *provision.Controller implements it.
type Device interface {
	Registry() *param.Registry
	State() provision.State
	ThingName() string
	APPassword() string
	ConfigVersion() string
	Validator() provision.FormValidator
	SaveConfig() error
	UpdatePath() string
	LocalIP() net.IP
}

// AuthRealm is the basic auth realm announced when online.
const AuthRealm = "Login Required"

// Handler answers portal requests for a device. Its methods touch the
// registry and must run on the device's tick goroutine; Server takes care
// of that.
type Handler struct {
	dev    Device
	format FormatProvider
	title  string
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithFormat replaces the page markup.
func WithFormat(f FormatProvider) HandlerOption {
	return func(h *Handler) { h.format = f }
}

// WithTitle sets the page title.
func WithTitle(title string) HandlerOption {
	return func(h *Handler) { h.title = title }
}

// NewHandler creates a Handler for dev.
func NewHandler(dev Device, opts ...HandlerOption) *Handler {
	h := &Handler{dev: dev, format: DefaultFormat{}, title: DefaultTitle}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) pageOptions() PageOptions {
	return PageOptions{
		Title:         h.title,
		UpdatePath:    h.dev.UpdatePath(),
		ConfigVersion: h.dev.ConfigVersion(),
		Format:        h.format,
	}
}

// Submit validates args, applies them and saves the configuration. It
// returns a *ValidationError when the submission was rejected, in which
// case the registry values are unchanged, or the error from SaveConfig.
func (h *Handler) Submit(args url.Values) error {
	reg := h.dev.Registry()
	if !Validate(reg, args, h.dev.Validator()) {
		verr := newValidationError(reg)
		logging.Info("Configuration rejected", zap.Any("errors", verr.Fields))
		return verr
	}

	logging.Info("Updating configuration")
	Apply(reg, args)
	return h.dev.SaveConfig()
}

// authorized reports whether r may see the configuration page. Once
// online the page requires the admin user and the AP password.
func (h *Handler) authorized(r *http.Request) bool {
	if h.dev.State() != provision.Online {
		return true
	}
	user, pass, ok := r.BasicAuth()
	if !ok {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(provision.AdminUser)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(h.dev.APPassword())) == 1
	return userOK && passOK
}

// ServeConfig renders the configuration page or processes a submission.
// Form values must already be parsed into r.Form.
func (h *Handler) ServeConfig(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		logging.Debug("Requesting authentication", zap.String("remote_addr", r.RemoteAddr))
		w.Header().Set("WWW-Authenticate", fmt.Sprintf("Basic realm=%q", AuthRealm))
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	args := r.Form
	if args.Get(SaveField) == "" {
		logging.Debug("Configuration page requested")
		h.writeHTML(w, http.StatusOK, RenderPage(h.dev.Registry(), args, h.pageOptions()))
		return
	}

	err := h.Submit(args)
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		h.writeHTML(w, http.StatusOK, RenderPage(h.dev.Registry(), args, h.pageOptions()))
	case err != nil:
		http.Error(w, "Failed to save configuration", http.StatusInternalServerError)
	default:
		h.writeHTML(w, http.StatusOK, RenderMessage(h.savedMessage(), h.pageOptions()))
	}
}

// savedMessage tells the user what has to happen next.
func (h *Handler) savedMessage() string {
	msg := "Configuration saved. "
	ssid := ""
	if p := h.dev.Registry().Get(provision.ParamWifiSSID); p != nil {
		ssid = p.Value()
	}
	switch {
	case h.dev.APPassword() == "":
		return msg + "You must change the default AP password to continue. " +
			"Return to <a href=''>configuration page</a>."
	case ssid == "":
		return msg + "You must provide the local wifi settings to continue. " +
			"Return to <a href=''>configuration page</a>."
	case h.dev.State() == provision.NotConfigured:
		return msg + "Please disconnect from WiFi AP to continue!"
	default:
		return msg + "Return to <a href='/'>home page</a>."
	}
}

func (h *Handler) writeHTML(w http.ResponseWriter, status int, page string) {
	w.Header().Set("Content-Type", "text/html; charset=UTF-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(page)))
	w.WriteHeader(status)
	if _, err := w.Write([]byte(page)); err != nil {
		logging.Debug("Failed to write page", zap.Error(err))
	}
}

// CaptiveRedirect redirects requests for foreign hosts to the device and
// reports whether it did. Requests addressed by IP or by a host starting
// with the lower-cased thing name are left alone.
func (h *Handler) CaptiveRedirect(w http.ResponseWriter, r *http.Request) bool {
	host := r.Host
	if hst, _, err := net.SplitHostPort(host); err == nil {
		host = hst
	}
	if net.ParseIP(host) != nil || strings.HasPrefix(host, strings.ToLower(h.dev.ThingName())) {
		return false
	}

	location := "http://" + h.localAddr(r)
	logging.Debug("Captive portal redirect",
		zap.String("host", r.Host),
		zap.String("location", location),
	)
	w.Header().Set("Location", location)
	w.Header().Set("Connection", "close")
	w.Header().Set("Content-Length", "0")
	w.WriteHeader(http.StatusFound)
	return true
}

// localAddr returns the address the client connected to, falling back to
// the device address when the request did not come from a listener.
func (h *Handler) localAddr(r *http.Request) string {
	if addr, ok := r.Context().Value(http.LocalAddrContextKey).(net.Addr); ok {
		if host, port, err := net.SplitHostPort(addr.String()); err == nil {
			if port == "80" {
				return host
			}
			return net.JoinHostPort(host, port)
		}
	}
	return h.dev.LocalIP().String()
}

// ServeNotFound redirects captive-portal probes and answers 404 otherwise.
func (h *Handler) ServeNotFound(w http.ResponseWriter, r *http.Request) {
	if h.CaptiveRedirect(w, r) {
		return
	}

	logging.Debug("Requested non-existing page",
		zap.String("uri", r.URL.RequestURI()),
		zap.String("method", r.Method),
	)

	var b strings.Builder
	b.WriteString("File Not Found\n\n")
	fmt.Fprintf(&b, "URI: %s\nMethod: %s\nArguments: %d\n", r.URL.Path, r.Method, len(r.Form))
	names := make([]string, 0, len(r.Form))
	for name := range r.Form {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, " %s: %s\n", name, r.Form.Get(name))
	}
	body := b.String()

	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "-1")
	w.Header().Set("Content-Type", "text/plain")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte(body))
}
