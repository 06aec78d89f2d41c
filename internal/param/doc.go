// Package param defines the configuration fields shown on the captive
// portal and persisted to the device's byte region.
//
// A Parameter owns no storage of its own: it wraps a caller-supplied,
// fixed-size byte buffer, exactly like a C char array on the target
// board. The buffer length is the field's capacity and includes the NUL
// terminator, so a 33-byte buffer stores at most 32 bytes of text.
//
// # Registry Order
//
// The Registry is append-only. Insertion order is render order on the
// portal and also persistence order: the byte offset of a field in the
// stored region is the sum of the capacities of the fields registered
// before it. Reordering or resizing fields therefore requires a new
// config version tag.
//
// # Usage Example
//
//	var mqttHost [64]byte
//	reg := param.NewRegistry()
//	reg.Add(param.NewSeparator("MQTT"))
//	reg.Add(param.NewParameter("MQTT host", "mqttHost", mqttHost[:],
//	    param.WithPlaceholder("broker.local")))
//
//	for _, p := range reg.All() {
//	    fmt.Println(p.ID, p.Value())
//	}
//
// # Thread Safety
//
// None. The registry belongs to the single goroutine that runs the
// provisioning controller's Tick.
package param
