package blink

import "time"

// Output drives the physical indicator.
type Output interface {
	Set(on bool)
}

// OutputFunc adapts a function to Output.
type OutputFunc func(on bool)

// Set calls f(on).
func (f OutputFunc) Set(on bool) { f(on) }

// Initial pattern before any state default is installed.
const (
	InitialOn  = 500 * time.Millisecond
	InitialOff = 500 * time.Millisecond
)

// Signal is a two-phase blink generator. It is not safe for concurrent
// use; the controller drives it from its tick.
type Signal struct {
	out Output

	defaultOn  time.Duration
	defaultOff time.Duration
	on         time.Duration
	off        time.Duration

	level      bool
	lastToggle time.Time
	started    bool
}

// New creates a Signal with the initial 500/500 ms pattern. The level
// starts on. out may be nil.
func New(out Output) *Signal {
	return &Signal{
		out:        out,
		defaultOn:  InitialOn,
		defaultOff: InitialOff,
		on:         InitialOn,
		off:        InitialOff,
		level:      true,
	}
}

func split(period time.Duration, duty int) (on, off time.Duration) {
	duty = max(0, min(duty, 100))
	on = period * time.Duration(duty) / 100
	off = period * time.Duration(100-duty) / 100
	return on, off
}

// SetPattern installs a custom pattern of the given period and duty cycle
// in percent. A zero period reverts to the state default.
func (s *Signal) SetPattern(period time.Duration, duty int) {
	if period <= 0 {
		s.RevertToStateDefault()
		return
	}
	s.on, s.off = split(period, duty)
}

// SetExplicit installs a custom pattern with exact phase durations.
func (s *Signal) SetExplicit(on, off time.Duration) {
	s.on = max(on, 0)
	s.off = max(off, 0)
}

// RevertToStateDefault drops any custom pattern.
func (s *Signal) RevertToStateDefault() {
	s.on = s.defaultOn
	s.off = s.defaultOff
}

// SetStateDefault records the pattern for the current state and makes it
// active, replacing any custom pattern.
func (s *Signal) SetStateDefault(period time.Duration, duty int) {
	s.defaultOn, s.defaultOff = split(max(period, 0), duty)
	s.RevertToStateDefault()
}

// Pattern returns the active on and off durations.
func (s *Signal) Pattern() (on, off time.Duration) {
	return s.on, s.off
}

// Level reports whether the output is currently on.
func (s *Signal) Level() bool {
	return s.level
}

// Tick advances the signal to now and reports whether the level changed.
// A zero on phase holds the output off and a zero off phase holds it on.
func (s *Signal) Tick(now time.Time) bool {
	if !s.started {
		s.started = true
		s.lastToggle = now
		s.write()
	}

	switch {
	case s.on == 0:
		return s.hold(false, now)
	case s.off == 0:
		return s.hold(true, now)
	}

	phase := s.off
	if s.level {
		phase = s.on
	}
	if now.Sub(s.lastToggle) > phase {
		s.level = !s.level
		s.lastToggle = now
		s.write()
		return true
	}
	return false
}

func (s *Signal) hold(level bool, now time.Time) bool {
	if s.level == level {
		return false
	}
	s.level = level
	s.lastToggle = now
	s.write()
	return true
}

func (s *Signal) write() {
	if s.out != nil {
		s.out.Set(s.level)
	}
}
