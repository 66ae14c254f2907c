package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/t2s-studio/t2s/internal/audio"
)

func TestEncodeMonoLayout(t *testing.T) {
	buf, err := audio.NewBuffer(8000, []float32{0, 1, -1, 0.5})
	if err != nil {
		t.Fatalf("NewBuffer failed: %v", err)
	}

	data, err := Encode(buf)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(data) != 52 {
		t.Fatalf("Expected 52 bytes, got %d", len(data))
	}

	want := []byte{
		'R', 'I', 'F', 'F', 44, 0, 0, 0, 'W', 'A', 'V', 'E',
		'f', 'm', 't', ' ', 16, 0, 0, 0, 1, 0, 1, 0,
		0x40, 0x1f, 0, 0, // 8000
		0x80, 0x3e, 0, 0, // 16000
		2, 0, 16, 0,
		'd', 'a', 't', 'a', 8, 0, 0, 0,
		0x00, 0x00, 0xff, 0x7f, 0x00, 0x80, 0xff, 0x3f,
	}
	if !bytes.Equal(data, want) {
		t.Errorf("Encoded bytes differ\n got %v\nwant %v", data, want)
	}
}

func TestEncodeStereoHeader(t *testing.T) {
	buf, _ := audio.NewBuffer(44100,
		[]float32{0, 0.25, 2},
		[]float32{-0.25, -2, 0},
	)
	data, err := Encode(buf)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(data) != HeaderSize+3*2*2 {
		t.Fatalf("Expected %d bytes, got %d", HeaderSize+12, len(data))
	}

	le := binary.LittleEndian
	checks := []struct {
		name   string
		offset int
		size   int
		want   uint32
	}{
		{"chunk size", 4, 4, 36 + 12},
		{"channels", 22, 2, 2},
		{"sample rate", 24, 4, 44100},
		{"byte rate", 28, 4, 44100 * 4},
		{"block align", 32, 2, 4},
		{"bits per sample", 34, 2, 16},
		{"data size", 40, 4, 12},
	}
	for _, c := range checks {
		var got uint32
		if c.size == 2 {
			got = uint32(le.Uint16(data[c.offset:]))
		} else {
			got = le.Uint32(data[c.offset:])
		}
		if got != c.want {
			t.Errorf("%s: got %d, want %d", c.name, got, c.want)
		}
	}

	// frames interleave in channel order and out of range samples clamp
	samples := make([]int16, 6)
	for i := range samples {
		samples[i] = int16(le.Uint16(data[HeaderSize+i*2:]))
	}
	want := []int16{0, -8192, 8191, -32768, 32767, 0}
	for i := range want {
		if samples[i] != want[i] {
			t.Errorf("sample %d: got %d, want %d", i, samples[i], want[i])
		}
	}
}

func TestEncodeDeterministic(t *testing.T) {
	buf, _ := audio.NewBuffer(24000, []float32{0.1, -0.2, 0.3, -0.4})
	a, _ := Encode(buf)
	b, _ := Encode(buf)
	if !bytes.Equal(a, b) {
		t.Error("encoding the same buffer twice should give identical bytes")
	}

	var w bytes.Buffer
	n, err := WriteTo(&w, buf)
	if err != nil {
		t.Fatalf("WriteTo failed: %v", err)
	}
	if n != int64(len(a)) || !bytes.Equal(w.Bytes(), a) {
		t.Error("streaming encoder should match Encode")
	}
}

func TestEncodeInvalidShape(t *testing.T) {
	tests := []struct {
		name string
		buf  *audio.Buffer
	}{
		{"nil", nil},
		{"zero channels", &audio.Buffer{SampleRate: 8000}},
		{"mismatched", &audio.Buffer{Channels: [][]float32{{0, 0}, {0}}, SampleRate: 8000}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Encode(tt.buf); !errors.Is(err, audio.ErrInvalidAudioBuffer) {
				t.Errorf("Expected ErrInvalidAudioBuffer, got %v", err)
			}
		})
	}
}

func TestEncodeEmptyBuffer(t *testing.T) {
	buf, _ := audio.NewBuffer(8000, []float32{})
	data, err := Encode(buf)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(data) != HeaderSize {
		t.Errorf("Expected header only, got %d bytes", len(data))
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	buf, _ := audio.NewBuffer(22050, []float32{0, 0.5, -0.5, 1}, []float32{1, -1, 0.25, 0})
	data, _ := Encode(buf)

	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got.SampleRate != 22050 || got.ChannelCount() != 2 || got.Frames() != 4 {
		t.Fatalf("unexpected shape %d ch x %d frames at %d Hz", got.ChannelCount(), got.Frames(), got.SampleRate)
	}

	again, _ := Encode(got)
	if !bytes.Equal(data, again) {
		t.Error("re-encoding a decoded file should be lossless")
	}

	if _, err := Decode(data[:20]); !errors.Is(err, ErrNotCanonical) {
		t.Errorf("Expected ErrNotCanonical for short data, got %v", err)
	}
	bad := append([]byte(nil), data...)
	copy(bad, "RIFX")
	if _, err := Decode(bad); !errors.Is(err, ErrNotCanonical) {
		t.Errorf("Expected ErrNotCanonical for bad tag, got %v", err)
	}
}

func TestEncodeStereoKnownValues(t *testing.T) {
	values := []float32{0, 1, -1, 0.5}
	buf, _ := audio.NewBuffer(24000, values, values)

	data, err := Encode(buf)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(data) != 60 {
		t.Fatalf("Expected 60 bytes, got %d", len(data))
	}

	var h Header
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &h); err != nil {
		t.Fatalf("failed to read header: %v", err)
	}
	if h != NewHeader(2, 24000, 4) {
		t.Errorf("unexpected header %+v", h)
	}
	if h.ByteRate != 96000 || h.BlockAlign != 4 || h.Subchunk2Size != 16 || h.ChunkSize != 52 {
		t.Errorf("header sizes wrong: %+v", h)
	}

	want := []int16{0, 32767, -32768, 16383}
	for frame, w := range want {
		for ch := 0; ch < 2; ch++ {
			off := HeaderSize + (frame*2+ch)*2
			if got := int16(binary.LittleEndian.Uint16(data[off:])); got != w {
				t.Errorf("frame %d channel %d: got %d, want %d", frame, ch, got, w)
			}
		}
	}
}
