package audio

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Buffer is decoded multi-channel PCM audio. Samples are nominally in
// [-1.0, 1.0]; values outside that range are clamped when quantized.
//
// A Buffer is immutable once produced. Callers replace it wholesale instead
// of editing samples in place.
type Buffer struct {
	// Channels holds one slice of samples per channel, in channel order.
	Channels [][]float32

	// SampleRate is the number of frames per second.
	SampleRate int
}

// NewBuffer creates a buffer and validates its shape.
func NewBuffer(sampleRate int, channels ...[]float32) (*Buffer, error) {
	b := &Buffer{Channels: channels, SampleRate: sampleRate}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// Validate checks that the buffer has at least one channel, that every
// channel has the same length and that the sample rate is positive.
func (b *Buffer) Validate() error {
	if b == nil {
		return fmt.Errorf("%w: nil buffer", ErrInvalidAudioBuffer)
	}
	if len(b.Channels) == 0 {
		return fmt.Errorf("%w: zero channels", ErrInvalidAudioBuffer)
	}
	if b.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate must be positive, got %d", ErrInvalidAudioBuffer, b.SampleRate)
	}
	frames := len(b.Channels[0])
	for i, ch := range b.Channels[1:] {
		if len(ch) != frames {
			return fmt.Errorf("%w: channel %d has %d frames, channel 0 has %d",
				ErrInvalidAudioBuffer, i+1, len(ch), frames)
		}
	}
	return nil
}

// ChannelCount returns the number of channels.
func (b *Buffer) ChannelCount() int {
	if b == nil {
		return 0
	}
	return len(b.Channels)
}

// Frames returns the number of samples per channel.
func (b *Buffer) Frames() int {
	if b == nil || len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// Duration returns the length of the buffer in seconds.
func (b *Buffer) Duration() float64 {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return float64(b.Frames()) / float64(b.SampleRate)
}

// Length returns the length of the buffer as a time.Duration.
func (b *Buffer) Length() time.Duration {
	return time.Duration(b.Duration() * float64(time.Second))
}

// Frame returns the sample at frame i of channel ch. Out of range reads
// return silence.
func (b *Buffer) Frame(ch, i int) float32 {
	if ch < 0 || ch >= len(b.Channels) || i < 0 || i >= len(b.Channels[ch]) {
		return 0
	}
	return b.Channels[ch][i]
}

// FromPCM16 decodes interleaved signed 16-bit little-endian PCM into a
// buffer with the given channel count. Trailing bytes that do not make up a
// whole frame are dropped.
func FromPCM16(data []byte, sampleRate, channels int) (*Buffer, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("%w: zero channels", ErrInvalidAudioBuffer)
	}
	frameSize := channels * 2
	frames := len(data) / frameSize

	out := make([][]float32, channels)
	for c := range out {
		out[c] = make([]float32, frames)
	}
	for i := 0; i < frames; i++ {
		base := i * frameSize
		for c := 0; c < channels; c++ {
			s := int16(binary.LittleEndian.Uint16(data[base+c*2:]))
			out[c][i] = Int16ToFloat(s)
		}
	}
	return NewBuffer(sampleRate, out...)
}

// Int16ToFloat maps a signed 16-bit sample into [-1.0, 1.0] using the same
// asymmetric scale the encoder uses. Non-zero samples land in the middle of
// their quantization step so that FloatToInt16 gives the original integer
// back despite float32 rounding.
func Int16ToFloat(s int16) float32 {
	switch {
	case s < 0:
		return max(float32((float64(s)-0.5)/32768), -1)
	case s > 0:
		return min(float32((float64(s)+0.5)/32767), 1)
	default:
		return 0
	}
}

// FloatToInt16 clamps s to [-1.0, 1.0] and maps it to a signed 16-bit value.
// Negative samples scale by 32768 and the rest by 32767, then the product is
// truncated toward zero by the integer conversion.
func FloatToInt16(s float32) int16 {
	v := float64(s)
	switch {
	case v != v: // NaN
		return 0
	case v > 1:
		v = 1
	case v < -1:
		v = -1
	}
	if v < 0 {
		return int16(v * 32768)
	}
	return int16(v * 32767)
}
