//go:build !nocgo

package audio

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"
)

// DeviceConfig configures the oto output.
type DeviceConfig struct {
	// SampleRate of the output stream. Zero means "use the first buffer's rate".
	SampleRate int
	// Channels of the output stream. Zero means "use the first buffer's count".
	Channels int
	// BufferSize is the device buffer duration. Zero picks a per-platform default.
	BufferSize time.Duration
	// PollInterval is how often a playing source checks for its natural end.
	PollInterval time.Duration
}

// OtoDevice implements Device on top of oto/v3.
//
// oto allows a single context per process, so the context is opened lazily
// with the first buffer's format and reused afterwards. Buffers with a
// different format are converted on the fly by the rate reader.
type OtoDevice struct {
	config DeviceConfig
	clock  *MonotonicClock
	logger *log.Logger

	mu         sync.Mutex
	context    *oto.Context
	sampleRate int
	channels   int
}

// NewOtoDevice creates a device. The audio output itself is acquired on the
// first Play.
func NewOtoDevice(config DeviceConfig, logger *log.Logger) *OtoDevice {
	if logger == nil {
		logger = log.Default()
	}
	if config.PollInterval <= 0 {
		config.PollInterval = 20 * time.Millisecond
	}
	return &OtoDevice{
		config: config,
		clock:  NewMonotonicClock(),
		logger: logger.WithPrefix("audio"),
	}
}

// Now implements Device.
func (d *OtoDevice) Now() float64 {
	return d.clock.Now()
}

// open creates the oto context if needed.
func (d *OtoDevice) open(buf *Buffer) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.context != nil {
		return nil
	}

	sampleRate := d.config.SampleRate
	if sampleRate == 0 {
		sampleRate = buf.SampleRate
	}
	channels := d.config.Channels
	if channels == 0 {
		channels = min(buf.ChannelCount(), 2)
	}

	options := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   d.config.BufferSize,
	}
	if options.BufferSize == 0 {
		switch runtime.GOOS {
		case "darwin":
			// CoreAudio glitches with short buffers.
			options.BufferSize = 100 * time.Millisecond
		default:
			options.BufferSize = 50 * time.Millisecond
		}
	}

	ctx, ready, err := oto.NewContext(options)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	<-ready

	d.context = ctx
	d.sampleRate = sampleRate
	d.channels = channels
	d.logger.Debug("Audio context ready",
		"sampleRate", sampleRate,
		"channels", channels,
		"bufferSize", options.BufferSize)
	return nil
}

// Play implements Device.
func (d *OtoDevice) Play(buf *Buffer, offset, rate float64, onEnded func()) (Source, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}
	if err := d.open(buf); err != nil {
		return nil, err
	}

	d.mu.Lock()
	reader := newRateReader(buf, offset, rate, d.sampleRate, d.channels)
	player := d.context.NewPlayer(reader)
	d.mu.Unlock()
	if player == nil {
		return nil, fmt.Errorf("%w: failed to create player", ErrDeviceUnavailable)
	}

	ctx, cancel := context.WithCancel(context.Background())
	src := &otoSource{
		player:  player,
		reader:  reader,
		cancel:  cancel,
		onEnded: onEnded,
	}
	player.Play()
	go src.monitor(ctx, d.config.PollInterval)

	d.logger.Debug("Source started", "offset", offset, "rate", rate, "duration", buf.Length())
	return src, nil
}

// otoSource is one oto player reading from one rate reader.
type otoSource struct {
	player *oto.Player
	reader *rateReader
	cancel context.CancelFunc

	mu      sync.Mutex
	done    bool
	onEnded func()
}

// Stop implements Source.
func (s *otoSource) Stop() {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return
	}
	s.done = true
	s.mu.Unlock()

	s.cancel()
	s.player.Pause()
	_ = s.player.Close()
}

// SetRate implements Source.
func (s *otoSource) SetRate(rate float64) {
	s.reader.SetRate(rate)
}

// monitor watches for the natural end of playback: the reader is drained and
// the player has emptied its buffer.
func (s *otoSource) monitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.reader.Drained() || s.player.IsPlaying() {
				continue
			}

			s.mu.Lock()
			if s.done {
				s.mu.Unlock()
				return
			}
			s.done = true
			onEnded := s.onEnded
			s.mu.Unlock()

			s.cancel()
			_ = s.player.Close()
			if onEnded != nil {
				onEnded()
			}
			return
		}
	}
}
