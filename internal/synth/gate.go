package synth

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/t2s-studio/t2s/internal/audio"
	"github.com/t2s-studio/t2s/internal/cache"
	"golang.org/x/sync/semaphore"
)

// Store is a persistent cache of synthesized audio.
type Store interface {
	Get(key cache.Key) (*audio.Buffer, bool)
	Put(key cache.Key, buf *audio.Buffer) error
}

// Gate holds the most recent synthesis result together with the text,
// voice and speech rate that produced it, and only calls the synthesizer
// when one of them changes.
//
// The buffer and its fingerprint are always replaced together. A failed
// call leaves both untouched. At most one call to the synthesizer runs at a
// time; a caller that waited behind another re-checks the fingerprint
// before calling again.
type Gate struct {
	synth  Synthesizer
	store  Store
	logger *log.Logger
	sem    *semaphore.Weighted
	busy   atomic.Bool

	mu         sync.Mutex
	buffer     *audio.Buffer
	text       string
	voice      string
	rate       float64 // speech rate of buffer
	speechRate float64 // rate for the next request
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithStore consults and fills store around synthesizer calls.
func WithStore(s Store) GateOption {
	return func(g *Gate) { g.store = s }
}

// WithGateLogger sets the logger.
func WithGateLogger(l *log.Logger) GateOption {
	return func(g *Gate) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithSpeechRate sets the initial speech rate sent with each request.
func WithSpeechRate(r float64) GateOption {
	return func(g *Gate) {
		if r > 0 {
			g.speechRate = r
		}
	}
}

// NewGate wraps a synthesizer.
func NewGate(s Synthesizer, opts ...GateOption) *Gate {
	g := &Gate{
		synth:      s,
		logger:     log.Default(),
		sem:        semaphore.NewWeighted(1),
		speechRate: 1,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.WithPrefix("synth")
	return g
}

// Ensure returns audio for text spoken by voice. When the pair matches the
// held fingerprint the held buffer is returned and fresh is false. Otherwise
// the synthesizer is called; on failure the error wraps
// ErrSynthesisUnavailable and the previous buffer stays in place.
func (g *Gate) Ensure(ctx context.Context, text, voice string) (buf *audio.Buffer, fresh bool, err error) {
	req := Request{Text: text, Voice: voice}.Normalize()

	if b := g.match(req); b != nil {
		return b, false, nil
	}

	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrSynthesisUnavailable, err)
	}
	defer g.sem.Release(1)

	// another caller may have produced it while we waited
	if b := g.match(req); b != nil {
		return b, false, nil
	}

	g.mu.Lock()
	req.SpeechRate = g.speechRate
	g.mu.Unlock()

	// busy only once the rate is fixed for this call
	g.busy.Store(true)
	defer g.busy.Store(false)

	key := cache.Key{Engine: g.synth.Name(), Text: req.Text, Voice: req.Voice, SpeechRate: req.SpeechRate}
	if g.store != nil {
		if b, ok := g.store.Get(key); ok {
			g.logger.Debug("Cache hit", "voice", req.Voice)
			g.commit(req, b)
			return b, true, nil
		}
	}

	b, err := g.synth.Synthesize(ctx, req)
	if err == nil {
		err = b.Validate()
	}
	if err != nil {
		g.logger.Warn("Synthesis failed", "synthesizer", g.synth.Name(), "voice", req.Voice, "err", err)
		return nil, false, fmt.Errorf("%w: %w", ErrSynthesisUnavailable, err)
	}

	g.commit(req, b)
	if g.store != nil {
		if err := g.store.Put(key, b); err != nil {
			g.logger.Warn("Could not cache audio", "err", err)
		}
	}
	return b, true, nil
}

func (g *Gate) match(req Request) *audio.Buffer {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.buffer != nil && req.Text != "" && g.text == req.Text && g.voice == req.Voice &&
		g.rate == g.speechRate {
		return g.buffer
	}
	return nil
}

func (g *Gate) commit(req Request, b *audio.Buffer) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.buffer, g.text, g.voice, g.rate = b, req.Text, req.Voice, req.SpeechRate
}

// Buffer returns the held buffer, or nil.
func (g *Gate) Buffer() *audio.Buffer {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.buffer
}

// Fingerprint returns the text and voice of the held buffer.
func (g *Gate) Fingerprint() (text, voice string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.text, g.voice
}

// Busy reports whether a synthesizer call is in flight.
func (g *Gate) Busy() bool {
	return g.busy.Load()
}

// Invalidate forgets the fingerprint so the next Ensure synthesizes again.
// The held buffer stays available for playback and export.
func (g *Gate) Invalidate() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.text, g.voice = "", ""
}

// SetSpeechRate changes the rate for future requests. A different rate
// invalidates the fingerprint because the held audio was spoken at the old
// rate.
func (g *Gate) SetSpeechRate(r float64) {
	if r <= 0 {
		return
	}
	g.mu.Lock()
	changed := g.speechRate != r
	g.speechRate = r
	g.mu.Unlock()

	if changed {
		g.Invalidate()
	}
}

// SpeechRate returns the rate sent with future requests.
func (g *Gate) SpeechRate() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.speechRate
}
