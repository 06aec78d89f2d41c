// Package netprobe puts the network adapter behind a polling interface.
//
// Every call on a Probe returns immediately. Joining a network is started
// with BeginStationConnect and observed later through StationLinkStatus, so
// the provisioning loop never blocks on the radio. Adapter errors are
// logged and reported as a failed or NotConnected result.
package netprobe
