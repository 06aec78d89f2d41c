package provision

import (
	"net"
	"net/url"
)

// Portal is the HTTP transport serving the configuration page.
type Portal interface {
	// Begin (re)starts serving. It is called on every AP and Online entry.
	Begin() error
	// HandleClient processes pending requests. It runs inside Tick.
	HandleClient()
}

// DNSResponder answers every query with the access point address while the
// access point is up.
type DNSResponder interface {
	Start(ip net.IP) error
	Stop() error
}

// UpdateServer is the firmware upload endpoint.
type UpdateServer interface {
	Setup(path string)
	UpdateCredentials(user, password string)
}

// Advertiser publishes the device hostname on the local network.
type Advertiser interface {
	Advertise(host string, port int) error
	Shutdown()
}

// ConfigButton is the input that forces the initial AP password at boot.
type ConfigButton interface {
	Pressed() bool
}

// ConfigButtonFunc adapts a function to ConfigButton.
type ConfigButtonFunc func() bool

// Pressed calls f.
func (f ConfigButtonFunc) Pressed() bool { return f() }

// Handler types. The defaults are documented on the Set methods.
type (
	APConnectionHandler          func(name, password string) bool
	WifiConnectionHandler        func(ssid, password string)
	WifiConnectionFailureHandler func() *AuthInfo
	FormValidator                func(args url.Values) bool
	StateObserver                func(from, to State)
)
