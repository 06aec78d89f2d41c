// Package discovery advertises provisioned devices over mDNS and finds
// them again from a workstation.
//
// A device registers its thing name as an "_http._tcp" service instance
// on the portal port, with a TXT record "apportal=1" marking it as ours.
// The Scanner browses the same service type and keeps only marked
// entries.
//
// # Usage Example
//
//	devices, err := discovery.ScanForDevices(5 * time.Second)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, device := range devices {
//	    fmt.Printf("Found: %s at %s\n", device.Name, device.BaseURL())
//	}
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Devices must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
package discovery
