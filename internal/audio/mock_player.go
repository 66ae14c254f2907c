package audio

import (
	"errors"
	"sync"
)

// MockDevice implements Device without producing sound. Its clock only moves
// when the test advances it, and natural completion only happens when the
// test calls Finish.
type MockDevice struct {
	mu      sync.Mutex
	now     float64
	sources []*MockSource

	// Fail makes the next Play calls return ErrDeviceUnavailable.
	Fail bool
}

// NewMockDevice creates a mock device with its clock at zero.
func NewMockDevice() *MockDevice {
	return &MockDevice{}
}

// Now implements Device.
func (m *MockDevice) Now() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by seconds.
func (m *MockDevice) Advance(seconds float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now += seconds
}

// Play implements Device.
func (m *MockDevice) Play(buf *Buffer, offset, rate float64, onEnded func()) (Source, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Fail {
		return nil, errors.Join(ErrDeviceUnavailable, errors.New("mock device failure"))
	}

	src := &MockSource{
		Buffer:  buf,
		Offset:  offset,
		rate:    rate,
		onEnded: onEnded,
	}
	m.sources = append(m.sources, src)
	return src, nil
}

// Sources returns every source created so far, oldest first.
func (m *MockDevice) Sources() []*MockSource {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*MockSource, len(m.sources))
	copy(out, m.sources)
	return out
}

// Last returns the most recent source, or nil.
func (m *MockDevice) Last() *MockSource {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sources) == 0 {
		return nil
	}
	return m.sources[len(m.sources)-1]
}

// Active returns the number of sources that have not been stopped.
func (m *MockDevice) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.sources {
		if !s.Stopped() {
			n++
		}
	}
	return n
}

// MockSource records what the clock asked of a playback segment.
type MockSource struct {
	Buffer *Buffer
	Offset float64

	mu      sync.Mutex
	rate    float64
	rates   []float64
	stopped bool
	onEnded func()
}

// Stop implements Source.
func (s *MockSource) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
}

// SetRate implements Source.
func (s *MockSource) SetRate(rate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rate = rate
	s.rates = append(s.rates, rate)
}

// Rate returns the current rate.
func (s *MockSource) Rate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rate
}

// RateChanges returns every rate passed to SetRate.
func (s *MockSource) RateChanges() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]float64(nil), s.rates...)
}

// Stopped reports whether Stop was called.
func (s *MockSource) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// Finish fires the completion callback as if the audio ran out. Unlike a
// real device it fires even for a stopped source, which lets tests deliver
// stale completions.
func (s *MockSource) Finish() {
	s.mu.Lock()
	onEnded := s.onEnded
	s.mu.Unlock()
	if onEnded != nil {
		onEnded()
	}
}
