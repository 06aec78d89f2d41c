// Package provision implements the device provisioning state machine.
//
// A Controller owns the parameter registry, the persisted configuration and
// the connectivity lifecycle. The host calls Tick repeatedly from a single
// goroutine; every state transition and every handler callback happens
// inside a tick, so callbacks never overlap.
//
// States:
//
//	Boot          - before the first tick
//	NotConfigured - access point with the initial password, portal open
//	ApMode        - access point with the configured password, portal open
//	Connecting    - joining the configured network
//	Online        - station link up, portal behind basic auth
//
// The device starts in the access point so a nearby client can change the
// configuration. It leaves the access point when the last client
// disconnects or when the AP timeout passes with nobody joined, provided a
// network and an AP password are configured. A failed join falls back to
// the access point unless the failure handler supplies other credentials.
//
// Collaborators (portal transport, captive DNS, firmware updater, mDNS) are
// declared here as small interfaces and injected with options. All
// handlers and options must be set before the first Tick.
//
// Typical usage:
//
//	ctrl := provision.New(provision.Config{ThingName: "porch-light",
//	    InitialAPPassword: "smrtTHNG8266", ConfigVersion: "pl01"}, probe)
//	region, _ := store.OpenFile(path, ctrl.RegionSize())
//	if _, err := ctrl.Init(region); err != nil { ... }
//	for {
//	    ctrl.Tick()
//	    time.Sleep(time.Millisecond)
//	}
package provision
