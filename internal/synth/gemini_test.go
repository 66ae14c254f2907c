package synth

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/t2s-studio/t2s/internal/audio"
)

func pcmBase64(samples ...int16) string {
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(s))
	}
	return base64.StdEncoding.EncodeToString(data)
}

func newTestGemini(t *testing.T, handler http.HandlerFunc) *Gemini {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	g, err := NewGemini(GeminiConfig{
		APIKey:            "test-key",
		Endpoint:          srv.URL,
		Model:             "test-model",
		RequestsPerMinute: 60000,
	})
	if err != nil {
		t.Fatalf("NewGemini failed: %v", err)
	}
	return g
}

func TestGeminiSynthesize(t *testing.T) {
	var got geminiRequest
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/models/test-model:generateContent" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Error("missing API key header")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"inlineData":{` +
			`"mimeType":"audio/L16;codec=pcm;rate=16000","data":"` + pcmBase64(0, 16383, -16384) + `"}}]}}]}`))
	})

	buf, err := g.Synthesize(context.Background(), Request{Text: "Hello world", Voice: "Kore", SpeechRate: 1})
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	if got.GenerationConfig.ResponseModalities[0] != "AUDIO" {
		t.Errorf("unexpected modalities %v", got.GenerationConfig.ResponseModalities)
	}
	if v := got.GenerationConfig.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName; v != "Kore" {
		t.Errorf("Expected voice Kore, got %q", v)
	}
	if got.Contents[0].Parts[0].Text != "Hello world" {
		t.Errorf("unexpected prompt %q", got.Contents[0].Parts[0].Text)
	}

	if buf.SampleRate != 16000 || buf.ChannelCount() != 1 || buf.Frames() != 3 {
		t.Fatalf("unexpected buffer shape %d ch x %d at %d Hz", buf.ChannelCount(), buf.Frames(), buf.SampleRate)
	}
	for i, want := range []int16{0, 16383, -16384} {
		if s := audio.FloatToInt16(buf.Channels[0][i]); s != want {
			t.Errorf("sample %d: got %d, want %d", i, s, want)
		}
	}
}

func TestGeminiDefaultRate(t *testing.T) {
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"},{"inlineData":{` +
			`"mimeType":"audio/L16","data":"` + pcmBase64(1, 2, 3, 4) + `"}}]}}]}`))
	})
	buf, err := g.Synthesize(context.Background(), Request{Text: "hi"})
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if buf.SampleRate != DefaultSampleRate {
		t.Errorf("Expected default rate %d, got %d", DefaultSampleRate, buf.SampleRate)
	}
}

func TestGeminiErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		code      ErrorCode
		retryable bool
	}{
		{"rate limited", 429, `{"error":{"code":429,"message":"quota","status":"RESOURCE_EXHAUSTED"}}`, ErrorCodeRateLimited, true},
		{"server error", 503, `oops`, ErrorCodeUnavailable, true},
		{"bad key", 403, `{"error":{"code":403,"message":"denied"}}`, ErrorCodeAuth, false},
		{"no audio", 200, `{"candidates":[{"content":{"parts":[{"text":"sorry"}]}}]}`, ErrorCodeNoAudio, false},
		{"bad json", 200, `{`, ErrorCodeAudioFormat, false},
		{"bad mime", 200, `{"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":"audio/ogg","data":"AAAA"}}]}}]}`, ErrorCodeAudioFormat, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := g.Synthesize(context.Background(), Request{Text: "Hello", Voice: "Puck"})
			var se *Error
			if !errors.As(err, &se) {
				t.Fatalf("Expected *Error, got %v", err)
			}
			if se.Code != tt.code {
				t.Errorf("Expected code %s, got %s (%v)", tt.code, se.Code, err)
			}
			if se.IsRetryable() != tt.retryable {
				t.Errorf("IsRetryable() = %v, want %v", se.IsRetryable(), tt.retryable)
			}
		})
	}
}

func TestGeminiRejectsBadInput(t *testing.T) {
	called := false
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) { called = true })

	if _, err := g.Synthesize(context.Background(), Request{Text: "hi", Voice: "Nobody"}); !errors.Is(err, ErrUnknownVoice) {
		t.Errorf("Expected ErrUnknownVoice, got %v", err)
	}
	if _, err := g.Synthesize(context.Background(), Request{Text: " "}); !errors.Is(err, ErrEmptyText) {
		t.Errorf("Expected ErrEmptyText, got %v", err)
	}
	if _, err := g.Synthesize(context.Background(), Request{Text: strings.Repeat("a", maxTextSize+1)}); err == nil {
		t.Error("expected an error for oversized text")
	}
	if called {
		t.Error("invalid input should not reach the server")
	}

	if _, err := NewGemini(GeminiConfig{}); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("Expected ErrMissingAPIKey, got %v", err)
	}
}

func TestPrompt(t *testing.T) {
	if got := prompt(Request{Text: "hi", SpeechRate: 1}); got != "hi" {
		t.Errorf("normal rate should send the text as is, got %q", got)
	}
	if got := prompt(Request{Text: "hi", SpeechRate: 1.5}); !strings.Contains(got, "faster") || !strings.HasSuffix(got, "hi") {
		t.Errorf("unexpected prompt %q", got)
	}
	if got := prompt(Request{Text: "hi", SpeechRate: 0.75}); !strings.Contains(got, "slower") {
		t.Errorf("unexpected prompt %q", got)
	}
}
