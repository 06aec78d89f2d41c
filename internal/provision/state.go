package provision

import "fmt"

// State is the provisioning state.
type State int

const (
	Boot State = iota
	NotConfigured
	ApMode
	Connecting
	Online
)

// String returns the state name
func (s State) String() string {
	switch s {
	case Boot:
		return "Boot"
	case NotConfigured:
		return "NotConfigured"
	case ApMode:
		return "ApMode"
	case Connecting:
		return "Connecting"
	case Online:
		return "Online"
	default:
		return fmt.Sprintf("State(%d)", s)
	}
}

// IsAccessPoint reports whether the device hosts its access point in s.
func (s State) IsAccessPoint() bool {
	return s == NotConfigured || s == ApMode
}

// ApClientPresence tracks clients on the access point since it started.
type ApClientPresence int

const (
	// PresenceNone means no client has joined yet.
	PresenceNone ApClientPresence = iota
	// PresencePresent means at least one client is joined.
	PresencePresent
	// PresenceGone means a client joined and all clients have since left.
	PresenceGone
)

// String returns the presence name
func (p ApClientPresence) String() string {
	switch p {
	case PresenceNone:
		return "none"
	case PresencePresent:
		return "present"
	case PresenceGone:
		return "gone"
	default:
		return fmt.Sprintf("ApClientPresence(%d)", p)
	}
}

// AuthInfo holds the credentials of a station connect attempt.
type AuthInfo struct {
	SSID     string
	Password string
}
