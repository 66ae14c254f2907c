// Package synth turns text into decoded audio.
//
// A Synthesizer talks to a speech backend. The Gate in front of it makes
// sure a backend is only called when the text or voice actually changed and
// keeps the last good result when a call fails.
package synth

import (
	"context"
	"strings"

	"github.com/t2s-studio/t2s/internal/audio"
)

// Request is a synthesis request.
type Request struct {
	Text  string
	Voice string

	// SpeechRate asks the backend to speak faster or slower. It is baked
	// into the audio, unlike playback speed.
	SpeechRate float64
}

// Normalize trims the text and fills defaults.
func (r Request) Normalize() Request {
	r.Text = strings.TrimSpace(r.Text)
	if r.Voice == "" {
		r.Voice = DefaultVoice
	}
	if r.SpeechRate <= 0 {
		r.SpeechRate = 1
	}
	return r
}

// Synthesizer produces audio for text.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) (*audio.Buffer, error)
	Name() string
}
