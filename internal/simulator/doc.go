// Package simulator assembles a complete provisioning device on a host.
//
// A Device wires the controller to the simulated radio, a file-backed
// config region, the portal HTTP server with its firmware updater and
// status feed, the captive DNS responder and the mDNS advertiser, all as
// described by a config.Profile. Run drives the cooperative loop; every
// other goroutine talks to the loop through Send and Snapshot.
package simulator
