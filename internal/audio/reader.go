package audio

import (
	"encoding/binary"
	"io"
	"math"
	"sync"
	"sync/atomic"
)

// rateReader streams a Buffer as interleaved signed 16-bit little-endian
// frames in the device's format. It walks the buffer at
// rate * bufferRate / deviceRate source frames per output frame, so a rate
// change shifts pitch along with tempo the way a playback-rate control does.
type rateReader struct {
	buf            *Buffer
	deviceRate     int
	deviceChannels int

	mu  sync.Mutex
	pos float64 // source frame position

	rate    atomic.Uint64 // float64 bits
	drained atomic.Bool
}

func newRateReader(buf *Buffer, offset, rate float64, deviceRate, deviceChannels int) *rateReader {
	r := &rateReader{
		buf:            buf,
		deviceRate:     deviceRate,
		deviceChannels: deviceChannels,
		pos:            offset * float64(buf.SampleRate),
	}
	r.SetRate(rate)
	return r
}

// SetRate changes the playback rate for frames read from now on.
func (r *rateReader) SetRate(rate float64) {
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		rate = 1
	}
	r.rate.Store(math.Float64bits(rate))
}

func (r *rateReader) step() float64 {
	rate := math.Float64frombits(r.rate.Load())
	return rate * float64(r.buf.SampleRate) / float64(r.deviceRate)
}

// Drained reports whether the reader has returned io.EOF.
func (r *rateReader) Drained() bool {
	return r.drained.Load()
}

// Read implements io.Reader.
func (r *rateReader) Read(p []byte) (int, error) {
	frameSize := r.deviceChannels * 2
	if len(p) < frameSize {
		return 0, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	frames := r.buf.Frames()
	step := r.step()
	n := 0
	for n+frameSize <= len(p) {
		idx := int(r.pos)
		if idx >= frames {
			break
		}
		frac := float32(r.pos - float64(idx))
		for oc := 0; oc < r.deviceChannels; oc++ {
			s := r.sample(oc, idx, frac)
			binary.LittleEndian.PutUint16(p[n+oc*2:], uint16(FloatToInt16(s)))
		}
		n += frameSize
		r.pos += step
	}

	if n == 0 {
		r.drained.Store(true)
		return 0, io.EOF
	}
	return n, nil
}

// sample returns the interpolated value for output channel oc. A mono
// buffer feeds every output channel; a multi-channel buffer played on a
// mono device is averaged; otherwise extra output channels repeat the last
// source channel.
func (r *rateReader) sample(oc, idx int, frac float32) float32 {
	chans := r.buf.ChannelCount()
	if r.deviceChannels == 1 && chans > 1 {
		var sum float32
		for c := 0; c < chans; c++ {
			sum += r.lerp(c, idx, frac)
		}
		return sum / float32(chans)
	}
	c := oc
	if c >= chans {
		c = chans - 1
	}
	return r.lerp(c, idx, frac)
}

func (r *rateReader) lerp(c, idx int, frac float32) float32 {
	a := r.buf.Frame(c, idx)
	if frac == 0 || idx+1 >= r.buf.Frames() {
		return a
	}
	b := r.buf.Frame(c, idx+1)
	return a + (b-a)*frac
}
