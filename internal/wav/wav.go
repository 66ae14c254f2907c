// Package wav serializes decoded audio into the canonical uncompressed RIFF
// container: a 44-byte header followed by interleaved signed 16-bit
// little-endian frames.
package wav

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/t2s-studio/t2s/internal/audio"
)

// HeaderSize is the size of the canonical header in bytes.
const HeaderSize = 44

const (
	bitsPerSample = 16
	formatPCM     = 1
)

// ErrNotCanonical is returned by Decode for data that is not a canonical
// 16-bit PCM file.
var ErrNotCanonical = errors.New("not a canonical 16-bit PCM WAV file")

// Header is the on-disk layout of the canonical header.
type Header struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // 36 + data size
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32 // SampleRate * NumChannels * 2
	BlockAlign    uint16 // NumChannels * 2
	BitsPerSample uint16
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // frames * BlockAlign
}

// NewHeader builds the header for a buffer shape.
func NewHeader(channels, sampleRate, frames int) Header {
	blockAlign := uint16(channels * bitsPerSample / 8)
	dataSize := uint32(frames) * uint32(blockAlign)
	return Header{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   formatPCM,
		NumChannels:   uint16(channels),
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate) * uint32(blockAlign),
		BlockAlign:    blockAlign,
		BitsPerSample: bitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}
}

// Size returns the encoded size of a buffer: 44 + frames * channels * 2.
func Size(buf *audio.Buffer) int {
	return HeaderSize + buf.Frames()*buf.ChannelCount()*2
}

// Encode returns the canonical byte layout of buf. The output depends only
// on the buffer contents.
func Encode(buf *audio.Buffer) ([]byte, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}
	out := bytes.NewBuffer(make([]byte, 0, Size(buf)))
	if _, err := NewEncoder(out).Encode(buf); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// Encoder streams the canonical layout to a writer.
type Encoder struct {
	w io.Writer
}

// NewEncoder returns an encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode writes buf and returns the number of bytes written.
func (e *Encoder) Encode(buf *audio.Buffer) (int64, error) {
	if err := buf.Validate(); err != nil {
		return 0, err
	}

	bw := bufio.NewWriter(e.w)
	header := NewHeader(buf.ChannelCount(), buf.SampleRate, buf.Frames())
	if err := binary.Write(bw, binary.LittleEndian, header); err != nil {
		return 0, fmt.Errorf("failed to write WAV header: %w", err)
	}

	var sample [2]byte
	for i := 0; i < buf.Frames(); i++ {
		for _, ch := range buf.Channels {
			binary.LittleEndian.PutUint16(sample[:], uint16(audio.FloatToInt16(ch[i])))
			if _, err := bw.Write(sample[:]); err != nil {
				return 0, fmt.Errorf("failed to write audio data: %w", err)
			}
		}
	}
	if err := bw.Flush(); err != nil {
		return 0, fmt.Errorf("failed to write audio data: %w", err)
	}
	return int64(Size(buf)), nil
}

// WriteTo writes buf to w in the canonical layout.
func WriteTo(w io.Writer, buf *audio.Buffer) (int64, error) {
	return NewEncoder(w).Encode(buf)
}

// Decode reads the canonical layout back into a buffer. It accepts only
// what Encode produces: 16-bit PCM with the data chunk directly after the
// format chunk.
func Decode(data []byte) (*audio.Buffer, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: need at least %d bytes, got %d", ErrNotCanonical, HeaderSize, len(data))
	}

	var h Header
	if err := binary.Read(bytes.NewReader(data[:HeaderSize]), binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("failed to read WAV header: %w", err)
	}
	switch {
	case string(h.ChunkID[:]) != "RIFF", string(h.Format[:]) != "WAVE":
		return nil, fmt.Errorf("%w: missing RIFF/WAVE tags", ErrNotCanonical)
	case string(h.Subchunk1ID[:]) != "fmt ", string(h.Subchunk2ID[:]) != "data":
		return nil, fmt.Errorf("%w: unexpected chunk layout", ErrNotCanonical)
	case h.AudioFormat != formatPCM || h.BitsPerSample != bitsPerSample:
		return nil, fmt.Errorf("%w: format %d with %d bits", ErrNotCanonical, h.AudioFormat, h.BitsPerSample)
	case h.NumChannels == 0:
		return nil, fmt.Errorf("%w: zero channels", audio.ErrInvalidAudioBuffer)
	}

	payload := data[HeaderSize:]
	if int(h.Subchunk2Size) < len(payload) {
		payload = payload[:h.Subchunk2Size]
	}
	return audio.FromPCM16(payload, int(h.SampleRate), int(h.NumChannels))
}
