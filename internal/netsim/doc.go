// Package netsim provides a simulated Wi-Fi adapter so the provisioning
// controller can run on a development host.
//
// The simulated radio knows a fixed set of reachable networks. A join
// succeeds once the configured latency has elapsed on the injected clock,
// provided the network is up and the password matches. The access point
// side counts clients that an operator adds and removes by hand.
package netsim
