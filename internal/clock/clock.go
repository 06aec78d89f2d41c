// Package clock provides the time source used by the provisioning
// controller. Production code uses Real(); tests use Fake() and advance
// time explicitly, so timeout transitions can be asserted exactly.
package clock

import (
	"sync"
	"time"
)

// Clock abstracts the two time operations the cooperative loop needs.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// Sleep pauses the caller for at least d.
	Sleep(d time.Duration)
}

type realClock struct{}

// Real returns a Clock backed by the time package.
func Real() Clock { return realClock{} }

func (realClock) Now() time.Time        { return time.Now() }
func (realClock) Sleep(d time.Duration) { time.Sleep(d) }

// FakeClock is a deterministic Clock. Time stands still until Advance or
// Sleep is called; Sleep advances the fake time instead of blocking.
//
// FakeClock is safe for concurrent use.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
}

// Fake returns a FakeClock initialized to the given time.
func Fake(initial time.Time) *FakeClock {
	return &FakeClock{current: initial}
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Sleep advances the fake time by d. Negative durations are ignored.
func (c *FakeClock) Sleep(d time.Duration) {
	c.Advance(d)
}

// Advance moves the fake time forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	if d <= 0 {
		return
	}
	c.mu.Lock()
	c.current = c.current.Add(d)
	c.mu.Unlock()
}
