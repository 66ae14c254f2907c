package audio

import "time"

// Device emits buffers on the host audio output and exposes the monotonic
// clock that playback positions are measured against.
type Device interface {
	// Now returns the device clock in seconds. It never goes backwards.
	Now() float64

	// Play starts emitting buf from offset seconds at the given rate
	// (1.0 = normal). onEnded is called once when the source runs out of
	// audio on its own. It is never called from inside Play or Stop, and it
	// is not called for a source that was stopped.
	Play(buf *Buffer, offset, rate float64, onEnded func()) (Source, error)
}

// Source is a single playback segment started by a Device.
type Source interface {
	// Stop halts emission. Stopping twice is a no-op.
	Stop()

	// SetRate changes the rate of future emission.
	SetRate(rate float64)
}

// MonotonicClock reports seconds elapsed since it was created, using the
// runtime's monotonic clock reading.
type MonotonicClock struct {
	origin time.Time
}

// NewMonotonicClock creates a clock that starts at zero.
func NewMonotonicClock() *MonotonicClock {
	return &MonotonicClock{origin: time.Now()}
}

// Now returns the elapsed seconds.
func (c *MonotonicClock) Now() float64 {
	return time.Since(c.origin).Seconds()
}
