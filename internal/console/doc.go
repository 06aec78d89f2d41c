// Package console provides the terminal UI of the apportal tools.
//
// Model is the interactive Bubble Tea console of the simulator. It polls
// a Device for snapshots and turns key presses into operator commands:
// clients joining and leaving the access point, the upstream network
// going down and coming back, and a custom blink pattern. The device loop
// runs elsewhere; the console never touches the controller directly.
//
// Header renders the static banner used by the one-shot commands of
// apportal-cfg.
package console
