// Package captive answers DNS queries while the device hosts its access
// point.
//
// Every A query resolves to the access point address so that phones and
// laptops joining the network open the configuration page through their
// captive-portal detection. Other query types get an empty NOERROR
// answer.
//
//	r := captive.NewResponder(":53")
//	if err := r.Start(net.IPv4(192, 168, 4, 1)); err != nil {
//		return err
//	}
//	defer r.Stop()
package captive
