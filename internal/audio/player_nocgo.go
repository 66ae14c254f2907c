//go:build nocgo

package audio

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"
)

// DeviceConfig configures the oto output.
type DeviceConfig struct {
	SampleRate   int
	Channels     int
	BufferSize   time.Duration
	PollInterval time.Duration
}

// OtoDevice is a stand-in for builds without cgo. It keeps time but every
// Play fails.
type OtoDevice struct {
	clock  *MonotonicClock
	logger *log.Logger
}

// NewOtoDevice creates a device that cannot play.
func NewOtoDevice(_ DeviceConfig, logger *log.Logger) *OtoDevice {
	if logger == nil {
		logger = log.Default()
	}
	return &OtoDevice{clock: NewMonotonicClock(), logger: logger.WithPrefix("audio")}
}

// Now implements Device.
func (d *OtoDevice) Now() float64 {
	return d.clock.Now()
}

// Play implements Device.
func (d *OtoDevice) Play(buf *Buffer, _, _ float64, _ func()) (Source, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}
	d.logger.Warn("Audio output not available in nocgo build")
	return nil, fmt.Errorf("%w: built without cgo", ErrDeviceUnavailable)
}
