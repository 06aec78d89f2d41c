// Package blink generates the status LED pattern.
//
// A Signal holds an on and an off duration and flips its level whenever the
// time spent in the current phase exceeds that phase's duration. The
// provisioning controller installs a default pattern per state with
// SetStateDefault; user code may override it with SetPattern or
// SetExplicit and return to the state pattern with RevertToStateDefault.
//
// Tick is a pure function of elapsed time and never blocks:
//
//	sig := blink.New(led)
//	sig.SetStateDefault(300*time.Millisecond, 90)
//	for {
//	    sig.Tick(time.Now())
//	}
package blink
