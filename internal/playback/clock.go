package playback

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/t2s-studio/t2s/internal/audio"
)

// ErrInvalidSpeed is returned for a speed multiplier that is not a positive
// finite number.
var ErrInvalidSpeed = errors.New("speed must be a positive finite number")

// State is the transport state of a Clock.
type State int

const (
	// StateIdle means no buffer is loaded.
	StateIdle State = iota
	// StateStopped means a buffer is loaded and parked at an offset.
	StateStopped
	// StatePlaying means a source is emitting the buffer.
	StatePlaying
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStopped:
		return "stopped"
	case StatePlaying:
		return "playing"
	default:
		return "unknown"
	}
}

// Position is a point-in-time readout of the transport.
type Position struct {
	Offset   float64
	Duration float64
}

// String formats the position as "m:ss / m:ss".
func (p Position) String() string {
	return FormatClock(p.Offset) + " / " + FormatClock(p.Duration)
}

// Clock tracks where playback is within the loaded buffer as a function of
// the device clock. Positions are computed on demand from the anchor of the
// current segment instead of polling the device.
//
// Every start, stop and seek replaces the segment anchor and bumps the
// generation. A completion callback only applies if its generation is still
// current, so a stale completion from a superseded or stopped segment never
// touches state.
type Clock struct {
	device audio.Device
	logger *log.Logger

	mu         sync.Mutex
	buffer     *audio.Buffer
	playing    bool
	offset     float64 // offset at segment start, or the parked offset when stopped
	anchor     float64 // device clock at segment start
	speed      float64
	generation uint64
	source     audio.Source
	onPosition func(Position)
}

// Option configures a Clock.
type Option func(*Clock)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Clock) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithSpeed sets the initial speed multiplier. Invalid values are ignored.
func WithSpeed(speed float64) Option {
	return func(c *Clock) {
		if validSpeed(speed) {
			c.speed = speed
		}
	}
}

// WithPositionHook registers a function that receives the position each
// time Tick republishes it.
func WithPositionHook(fn func(Position)) Option {
	return func(c *Clock) {
		c.onPosition = fn
	}
}

// NewClock creates a clock bound to a device.
func NewClock(device audio.Device, opts ...Option) *Clock {
	c := &Clock{
		device: device,
		logger: log.Default(),
		speed:  DefaultSpeed,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithPrefix("clock")
	return c
}

func validSpeed(s float64) bool {
	return s > 0 && !math.IsInf(s, 0) && !math.IsNaN(s)
}

// clamp limits v to [0, hi]. NaN becomes 0.
func clamp(v, hi float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > hi:
		return hi
	default:
		return v
	}
}

// Load replaces the buffer. Any playback is stopped and the offset returns
// to zero. A nil buffer returns the clock to idle.
func (c *Clock) Load(buf *audio.Buffer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.haltLocked()
	c.buffer = buf
	c.offset = 0
	c.logger.Debug("Buffer loaded", "duration", buf.Duration())
}

// Buffer returns the loaded buffer, or nil.
func (c *Clock) Buffer() *audio.Buffer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buffer
}

// State returns the transport state.
func (c *Clock) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.buffer == nil:
		return StateIdle
	case c.playing:
		return StatePlaying
	default:
		return StateStopped
	}
}

// IsPlaying reports whether a segment is playing.
func (c *Clock) IsPlaying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}

// Speed returns the current speed multiplier.
func (c *Clock) Speed() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speed
}

// Duration returns the loaded buffer's duration in seconds.
func (c *Clock) Duration() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buffer.Duration()
}

// CurrentOffset returns the playback position in seconds, always within
// [0, duration].
func (c *Clock) CurrentOffset() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentLocked()
}

func (c *Clock) currentLocked() float64 {
	duration := c.buffer.Duration()
	if !c.playing {
		return clamp(c.offset, duration)
	}
	elapsed := (c.device.Now() - c.anchor) * c.speed
	return clamp(c.offset+elapsed, duration)
}

// Start begins playback at the given offset, clamped to the buffer. With no
// buffer loaded it does nothing. If a segment is already playing it is
// stopped first so two sources never overlap.
func (c *Clock) Start(at float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startLocked(at)
}

func (c *Clock) startLocked(at float64) error {
	if c.buffer == nil {
		return nil
	}
	if c.playing {
		c.offset = c.currentLocked()
		c.haltLocked()
	}

	at = clamp(at, c.buffer.Duration())
	c.generation++
	gen := c.generation

	src, err := c.device.Play(c.buffer, at, c.speed, func() { c.complete(gen) })
	if err != nil {
		c.logger.Warn("Playback failed to start", "offset", at, "err", err)
		if !errors.Is(err, audio.ErrDeviceUnavailable) && !errors.Is(err, audio.ErrInvalidAudioBuffer) {
			err = fmt.Errorf("%w: %w", audio.ErrDeviceUnavailable, err)
		}
		return err
	}

	c.source = src
	c.playing = true
	c.offset = at
	c.anchor = c.device.Now()
	c.logger.Debug("Playback started", "offset", at, "speed", c.speed, "generation", gen)
	return nil
}

// complete handles natural end of a segment.
func (c *Clock) complete(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation || !c.playing {
		c.logger.Debug("Ignoring stale completion", "generation", gen, "current", c.generation)
		return
	}
	c.playing = false
	c.source = nil
	c.offset = 0
	c.generation++
	c.logger.Debug("Playback finished", "generation", gen)
}

// Stop halts playback. The current position is kept unless resetToZero is
// set, in which case the clock rewinds to the start.
func (c *Clock) Stop(resetToZero bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.playing {
		c.offset = c.currentLocked()
		c.haltLocked()
	}
	if resetToZero {
		c.offset = 0
	}
}

// haltLocked stops the live source and invalidates its completion.
func (c *Clock) haltLocked() {
	if c.source != nil {
		c.source.Stop()
		c.source = nil
	}
	if c.playing {
		c.playing = false
		c.generation++
	}
}

// Toggle pauses a playing clock or resumes a stopped one. Resuming from the
// very end of the buffer starts over.
func (c *Clock) Toggle() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.buffer == nil {
		return nil
	}
	if c.playing {
		c.offset = c.currentLocked()
		c.haltLocked()
		return nil
	}
	at := c.currentLocked()
	if at >= c.buffer.Duration() {
		at = 0
	}
	return c.startLocked(at)
}

// Skip moves the position by delta seconds, saturating at both ends. While
// playing, the old segment is stopped and a new one starts at the target.
// It returns the new offset.
func (c *Clock) Skip(delta float64) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.buffer == nil {
		return 0, nil
	}
	var target float64
	switch {
	case math.IsInf(delta, -1):
		target = 0
	case math.IsInf(delta, 1):
		target = c.buffer.Duration()
	default:
		target = c.currentLocked() + delta
	}
	return c.seekLocked(target)
}

// Seek moves to an absolute offset, keeping the playing or stopped state.
func (c *Clock) Seek(at float64) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.buffer == nil {
		return 0, nil
	}
	return c.seekLocked(at)
}

func (c *Clock) seekLocked(target float64) (float64, error) {
	target = clamp(target, c.buffer.Duration())
	if !c.playing {
		c.offset = target
		return target, nil
	}
	if err := c.startLocked(target); err != nil {
		c.offset = target
		return target, err
	}
	return target, nil
}

// SetSpeed changes the playback rate. A playing segment is re-anchored at
// the current position so the position stays continuous and only future
// elapsed time uses the new rate.
func (c *Clock) SetSpeed(speed float64) error {
	if !validSpeed(speed) {
		return fmt.Errorf("%w: %v", ErrInvalidSpeed, speed)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.playing {
		c.offset = c.currentLocked()
		c.anchor = c.device.Now()
		if c.source != nil {
			c.source.SetRate(speed)
		}
	}
	c.speed = speed
	c.logger.Debug("Speed changed", "speed", speed, "playing", c.playing)
	return nil
}

// Tick recomputes the position and, while playing, republishes it to the
// position hook. Calling it once per display frame keeps a UI readout fresh.
func (c *Clock) Tick() Position {
	c.mu.Lock()
	pos := Position{Offset: c.currentLocked(), Duration: c.buffer.Duration()}
	hook := c.onPosition
	playing := c.playing
	c.mu.Unlock()

	if playing && hook != nil {
		hook(pos)
	}
	return pos
}

// Position returns the current position without publishing it.
func (c *Clock) Position() Position {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Position{Offset: c.currentLocked(), Duration: c.buffer.Duration()}
}
