package synth

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/t2s-studio/t2s/internal/audio"
)

// Mock is an offline synthesizer that produces a quiet tone whose length
// follows a words-per-minute estimate. It is used by tests and when no API
// key is configured.
type Mock struct {
	Delay          time.Duration
	WordsPerMinute int
	SampleRate     int

	mu        sync.Mutex
	failure   error
	callCount int
}

// NewMock creates a mock synthesizer with no delay.
func NewMock() *Mock {
	return &Mock{WordsPerMinute: 150, SampleRate: 24000}
}

// Name implements Synthesizer.
func (m *Mock) Name() string { return "mock" }

// Synthesize implements Synthesizer.
func (m *Mock) Synthesize(ctx context.Context, req Request) (*audio.Buffer, error) {
	req = req.Normalize()

	m.mu.Lock()
	m.callCount++
	failure := m.failure
	m.mu.Unlock()

	if req.Text == "" {
		return nil, NewError(ErrorCodeInvalidInput, "nothing to synthesize", ErrEmptyText)
	}
	if failure != nil {
		return nil, failure
	}

	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, NewError(ErrorCodeTimeout, "mock synthesis canceled", ctx.Err())
		}
	}

	rate := m.SampleRate
	if rate <= 0 {
		rate = 24000
	}
	seconds := m.EstimateDuration(req.Text, req.SpeechRate).Seconds()
	samples := make([]float32, int(seconds*float64(rate)))
	for i := range samples {
		samples[i] = float32(0.2 * math.Sin(2*math.Pi*220*float64(i)/float64(rate)))
	}
	return audio.NewBuffer(rate, samples)
}

// EstimateDuration returns how long the mock speaks text for.
func (m *Mock) EstimateDuration(text string, rate float64) time.Duration {
	words := len(strings.Fields(text))
	wpm := m.WordsPerMinute
	if wpm <= 0 {
		wpm = 150
	}
	if rate <= 0 {
		rate = 1
	}
	seconds := float64(words) * 60 / float64(wpm) / rate
	return time.Duration(seconds * float64(time.Second))
}

// SetFailure makes every following call fail with err. Nil clears it.
func (m *Mock) SetFailure(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failure = err
}

// Calls returns how many times Synthesize ran.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}
