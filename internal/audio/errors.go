package audio

import "errors"

var (
	// ErrInvalidAudioBuffer indicates a decoded buffer with an unusable shape:
	// no channels, channels of different lengths, or a non-positive sample rate.
	ErrInvalidAudioBuffer = errors.New("invalid audio buffer")

	// ErrDeviceUnavailable indicates the host audio output could not be acquired.
	ErrDeviceUnavailable = errors.New("audio device unavailable")
)
