package synth

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hajimehoshi/go-mp3"
	"github.com/t2s-studio/t2s/internal/audio"
	"golang.org/x/time/rate"
)

const (
	DefaultEndpoint   = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel      = "gemini-2.5-flash-preview-tts"
	DefaultSampleRate = 24000

	maxTextSize     = 5000
	maxResponseSize = 64 << 20
)

// GeminiConfig configures the Gemini speech client.
type GeminiConfig struct {
	APIKey            string
	Endpoint          string
	Model             string
	Timeout           time.Duration
	RequestsPerMinute int
	HTTPClient        *http.Client
	Logger            *log.Logger
}

// Gemini synthesizes speech with the Gemini generateContent API using a
// prebuilt voice.
type Gemini struct {
	apiKey   string
	endpoint string
	model    string
	timeout  time.Duration
	client   *http.Client
	limiter  *rate.Limiter
	logger   *log.Logger
}

// NewGemini creates a Gemini client. An API key is required.
func NewGemini(config GeminiConfig) (*Gemini, error) {
	if strings.TrimSpace(config.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if config.Endpoint == "" {
		config.Endpoint = DefaultEndpoint
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = 10
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{}
	}
	if config.Logger == nil {
		config.Logger = log.Default()
	}

	return &Gemini{
		apiKey:   config.APIKey,
		endpoint: strings.TrimRight(config.Endpoint, "/"),
		model:    config.Model,
		timeout:  config.Timeout,
		client:   config.HTTPClient,
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(config.RequestsPerMinute)), 1),
		logger:   config.Logger.WithPrefix("gemini"),
	}, nil
}

// Name implements Synthesizer.
func (g *Gemini) Name() string { return "gemini" }

type geminiRequest struct {
	Contents         []geminiContent  `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generationConfig struct {
	ResponseModalities []string     `json:"responseModalities"`
	SpeechConfig       speechConfig `json:"speechConfig"`
}

type speechConfig struct {
	VoiceConfig voiceConfig `json:"voiceConfig"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig prebuiltVoiceConfig `json:"prebuiltVoiceConfig"`
}

type prebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// prompt adds a pacing instruction when the speech rate is not normal.
func prompt(req Request) string {
	if req.SpeechRate == 1 {
		return req.Text
	}
	pace := "faster"
	if req.SpeechRate < 1 {
		pace = "slower"
	}
	return fmt.Sprintf("Read the following %s than normal, at about %s times natural pace:\n\n%s",
		pace, strconv.FormatFloat(req.SpeechRate, 'f', -1, 64), req.Text)
}

// Synthesize implements Synthesizer.
func (g *Gemini) Synthesize(ctx context.Context, req Request) (*audio.Buffer, error) {
	req = req.Normalize()
	if req.Text == "" {
		return nil, NewError(ErrorCodeInvalidInput, "nothing to synthesize", ErrEmptyText)
	}
	if len(req.Text) > maxTextSize {
		return nil, NewError(ErrorCodeInvalidInput,
			fmt.Sprintf("text too long: %d characters (max %d)", len(req.Text), maxTextSize), nil)
	}
	if _, err := LookupVoice(req.Voice); err != nil {
		return nil, NewError(ErrorCodeInvalidInput, "voice not available", err)
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return nil, NewError(ErrorCodeRateLimited, "rate limit wait canceled", err)
	}

	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt(req)}}}},
		GenerationConfig: generationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: speechConfig{VoiceConfig: voiceConfig{
				PrebuiltVoiceConfig: prebuiltVoiceConfig{VoiceName: req.Voice},
			}},
		},
	})
	if err != nil {
		return nil, NewError(ErrorCodeInvalidInput, "encoding request", err)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	url := fmt.Sprintf("%s/models/%s:generateContent", g.endpoint, g.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, NewError(ErrorCodeInvalidInput, "building request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.apiKey)

	start := time.Now()
	g.logger.Debug("Synthesizing", "voice", req.Voice, "chars", len(req.Text), "rate", req.SpeechRate)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, NewError(ErrorCodeTimeout, fmt.Sprintf("no response after %s", g.timeout), err)
		}
		return nil, NewError(ErrorCodeUnavailable, "request failed", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, NewError(ErrorCodeUnavailable, "reading response", err)
	}

	var parsed geminiResponse
	jsonErr := json.Unmarshal(raw, &parsed)

	if resp.StatusCode != http.StatusOK {
		msg := http.StatusText(resp.StatusCode)
		if jsonErr == nil && parsed.Error != nil && parsed.Error.Message != "" {
			msg = parsed.Error.Message
		}
		e := NewError(statusCode(resp.StatusCode), msg, nil)
		e.Status = resp.StatusCode
		return nil, e
	}
	if jsonErr != nil {
		return nil, NewError(ErrorCodeAudioFormat, "decoding response", jsonErr)
	}

	for _, c := range parsed.Candidates {
		for _, p := range c.Content.Parts {
			if p.InlineData == nil || p.InlineData.Data == "" {
				continue
			}
			buf, err := decodeInline(p.InlineData)
			if err != nil {
				return nil, NewError(ErrorCodeAudioFormat, "decoding audio", err)
			}
			g.logger.Debug("Synthesized", "duration", buf.Length(), "took", time.Since(start))
			return buf, nil
		}
	}
	return nil, NewError(ErrorCodeNoAudio, "response contained no audio", nil)
}

func statusCode(status int) ErrorCode {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return ErrorCodeAuth
	case status == http.StatusTooManyRequests:
		return ErrorCodeRateLimited
	case status == http.StatusRequestTimeout, status == http.StatusGatewayTimeout:
		return ErrorCodeTimeout
	case status >= 500:
		return ErrorCodeUnavailable
	default:
		return ErrorCodeInvalidInput
	}
}

// decodeInline turns base64 audio into a buffer. Raw PCM comes back as
// audio/L16 with the rate as a parameter; MP3 is decoded with go-mp3.
func decodeInline(d *inlineData) (*audio.Buffer, error) {
	data, err := base64.StdEncoding.DecodeString(d.Data)
	if err != nil {
		return nil, fmt.Errorf("base64: %w", err)
	}

	mediaType, params, err := mime.ParseMediaType(d.MimeType)
	if err != nil {
		return nil, fmt.Errorf("mime type %q: %w", d.MimeType, err)
	}

	switch mediaType {
	case "audio/l16", "audio/pcm":
		sampleRate := DefaultSampleRate
		if r, err := strconv.Atoi(params["rate"]); err == nil && r > 0 {
			sampleRate = r
		}
		channels := 1
		if c, err := strconv.Atoi(params["channels"]); err == nil && c > 0 {
			channels = c
		}
		return audio.FromPCM16(data, sampleRate, channels)

	case "audio/mpeg", "audio/mp3":
		dec, err := mp3.NewDecoder(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("mp3: %w", err)
		}
		pcm, err := io.ReadAll(dec)
		if err != nil {
			return nil, fmt.Errorf("mp3: %w", err)
		}
		// go-mp3 always produces 16-bit stereo
		return audio.FromPCM16(pcm, dec.SampleRate(), 2)

	default:
		return nil, fmt.Errorf("unsupported audio type %q", d.MimeType)
	}
}
