// Package timer implements the core's two clocks: a monotonic counter
// read straight from hardware, and a drift-disciplined wall clock
// projected from it.
package timer

// Counter is the hardware interface the clock reads ticks from; arm64.CPU
// satisfies it. Kept narrow so tests can supply a fake without pulling in
// the arch package.
type Counter interface {
	MonotonicCounter() uint64
	CounterFrequency() uint64
}

// Clock converts the free-running virtual counter into microseconds and
// maintains the wall-clock projection on top of it.
type Clock struct {
	counter Counter

	freqPPM    int32 // [-500, 500], applied as dt + dt*freqPPM/1e6
	slewRemUs  int64 // accumulated step offset, applied gradually
	unixBaseUs int64 // set_unix_us value
	unixBaseMono uint64 // monotonic reading at the moment unixBaseUs was set
	synced     bool

	tzOffsetMin int32
}

// TimerSlewMaxPPM bounds how much of slewRemUs is folded into each
// second of wall-clock output, and SlewClampUs bounds the total
// outstanding slew so a bad SNTP sample can't step the clock by more
// than a minute in one update.
const (
	TimerSlewMaxPPM = 500
	SlewClampUs     = 60_000_000
)

// New returns a Clock reading ticks from counter. Wall time is
// unsynchronized until SetUnixMicros is called.
func New(counter Counter) *Clock {
	return &Clock{counter: counter}
}

// NowMicros returns the monotonic counter value converted to
// microseconds, splitting the tick count into whole seconds plus a
// remainder so the multiply never overflows a 64-bit value even with a
// multi-year uptime.
func (c *Clock) NowMicros() uint64 {
	ticks := c.counter.MonotonicCounter()
	freq := c.counter.CounterFrequency()
	if freq == 0 {
		return 0
	}
	seconds := ticks / freq
	remainder := ticks % freq
	return seconds*1_000_000 + (remainder*1_000_000)/freq
}

// SetFreqPPM installs the wall-clock frequency correction, clamped to
// [-500, 500] parts per million.
func (c *Clock) SetFreqPPM(ppm int32) {
	if ppm > 500 {
		ppm = 500
	}
	if ppm < -500 {
		ppm = -500
	}
	c.freqPPM = ppm
}

// SetUnixMicros performs an SNTP-style step sync: the wall clock is
// pinned to unixUs at the current monotonic instant, and any
// outstanding slew is discarded since a step sync supersedes it.
func (c *Clock) SetUnixMicros(unixUs int64) {
	c.unixBaseUs = unixUs
	c.unixBaseMono = c.counter.MonotonicCounter()
	c.slewRemUs = 0
	c.synced = true
}

// AddSlew accumulates a step-offset to be applied gradually (at most
// TimerSlewMaxPPM per second) rather than stepped immediately, clamped
// to +/- SlewClampUs total outstanding.
func (c *Clock) AddSlew(offsetUs int64) {
	c.slewRemUs += offsetUs
	if c.slewRemUs > SlewClampUs {
		c.slewRemUs = SlewClampUs
	}
	if c.slewRemUs < -SlewClampUs {
		c.slewRemUs = -SlewClampUs
	}
}

// WallMicros returns the current wall-clock time in Unix-epoch
// microseconds, or 0 if the clock has never been synchronized.
func (c *Clock) WallMicros() int64 {
	if !c.synced {
		return 0
	}

	elapsedTicks := c.counter.MonotonicCounter() - c.unixBaseMono
	freq := c.counter.CounterFrequency()
	if freq == 0 {
		return c.unixBaseUs
	}
	dt := int64((elapsedTicks * 1_000_000) / freq)
	adj := dt + (dt*int64(c.freqPPM))/1_000_000

	slewApplied := c.applySlew(dt)

	return c.unixBaseUs + adj + slewApplied
}

// applySlew returns the portion of the accumulated slew to apply given
// dt microseconds of elapsed wall time, bounded by TimerSlewMaxPPM per
// second, and consumes that much from the outstanding slew.
func (c *Clock) applySlew(dtUs int64) int64 {
	if c.slewRemUs == 0 {
		return 0
	}
	maxApply := (dtUs * TimerSlewMaxPPM) / 1_000_000
	if maxApply == 0 {
		return 0
	}

	apply := c.slewRemUs
	if apply > maxApply {
		apply = maxApply
	}
	if apply < -maxApply {
		apply = -maxApply
	}
	c.slewRemUs -= apply
	return apply
}

// SetTimezoneOffsetMinutes records a local-time offset tracked
// separately from the UTC wall clock.
func (c *Clock) SetTimezoneOffsetMinutes(min int32) { c.tzOffsetMin = min }

// LocalMicros returns WallMicros adjusted by the timezone offset.
func (c *Clock) LocalMicros() int64 {
	return c.WallMicros() + int64(c.tzOffsetMin)*60_000_000
}
