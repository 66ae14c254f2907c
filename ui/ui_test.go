package ui

import (
	"errors"
	"math"
	"os"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/t2s-studio/t2s/internal/audio"
	"github.com/t2s-studio/t2s/internal/export"
	"github.com/t2s-studio/t2s/internal/playback"
	"github.com/t2s-studio/t2s/internal/synth"
)

// 25 words at 150 wpm is ten seconds of mock audio.
var tenSeconds = strings.TrimSpace(strings.Repeat("word ", 25))

type harness struct {
	m      model
	device *audio.MockDevice
	synth  *synth.Mock
	dir    string
}

func newHarness(t *testing.T, text string) *harness {
	t.Helper()
	dev := audio.NewMockDevice()
	mock := synth.NewMock()
	dir := t.TempDir()
	exp, err := export.New(dir, nil)
	if err != nil {
		t.Fatalf("export.New failed: %v", err)
	}
	exp.Now = func() time.Time { return time.UnixMilli(1700000000000) }

	deps := Deps{
		Clock:    playback.NewClock(dev),
		Gate:     synth.NewGate(mock),
		Exporter: exp,
	}
	return &harness{
		m:      newModel(Config{Text: text, VoiceName: "Kore"}, deps),
		device: dev,
		synth:  mock,
		dir:    dir,
	}
}

func (h *harness) send(msg tea.Msg) tea.Cmd {
	next, cmd := h.m.Update(msg)
	h.m = next.(model)
	return cmd
}

func (h *harness) press(k tea.KeyMsg) tea.Cmd { return h.send(k) }

// speak presses ctrl+s and delivers the synthesis result.
func (h *harness) speak(t *testing.T) {
	t.Helper()
	h.press(tea.KeyMsg{Type: tea.KeyCtrlS})
	if !h.m.synthesizing {
		t.Fatalf("ctrl+s should start synthesis, notice %q", h.m.notice)
	}
	h.send(synthesizeCmd(h.m.deps.Gate, h.m.editor.Value(), h.m.voice)())
	if h.m.synthesizing {
		t.Fatal("synthesis should be finished")
	}
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

var (
	keyEsc   = tea.KeyMsg{Type: tea.KeyEsc}
	keySpace = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	keyLeft  = tea.KeyMsg{Type: tea.KeyLeft}
	keyRight = tea.KeyMsg{Type: tea.KeyRight}
	keyHome  = tea.KeyMsg{Type: tea.KeyHome}
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestSpeakEmptyText(t *testing.T) {
	h := newHarness(t, "   ")
	h.press(tea.KeyMsg{Type: tea.KeyCtrlS})
	if h.m.synthesizing {
		t.Error("blank text should not start synthesis")
	}
	if h.m.notice != "Nothing to speak" {
		t.Errorf("unexpected notice %q", h.m.notice)
	}
	if h.synth.Calls() != 0 {
		t.Errorf("Expected no synthesizer calls, got %d", h.synth.Calls())
	}
}

func TestSpeakLoadsAndPlays(t *testing.T) {
	h := newHarness(t, tenSeconds)
	h.speak(t)

	clock := h.m.deps.Clock
	if clock.State() != playback.StatePlaying {
		t.Fatalf("Expected playing, got %v", clock.State())
	}
	if !near(clock.Duration(), 10) {
		t.Errorf("Expected 10s of audio, got %v", clock.Duration())
	}
	if len(h.device.Sources()) != 1 {
		t.Fatalf("Expected 1 source, got %d", len(h.device.Sources()))
	}

	// same text while playing: no new synthesis, no restart
	h.device.Advance(3)
	h.speak(t)
	if h.synth.Calls() != 1 {
		t.Errorf("Expected 1 synthesizer call, got %d", h.synth.Calls())
	}
	if len(h.device.Sources()) != 1 {
		t.Errorf("unchanged text should not restart playback, got %d sources", len(h.device.Sources()))
	}
	if !near(clock.CurrentOffset(), 3) {
		t.Errorf("Expected offset 3, got %v", clock.CurrentOffset())
	}
}

func TestSpeakUnchangedTextResumes(t *testing.T) {
	h := newHarness(t, tenSeconds)
	h.speak(t)
	h.device.Advance(4)
	h.m.deps.Clock.Stop(false)

	h.speak(t)
	clock := h.m.deps.Clock
	if !clock.IsPlaying() {
		t.Fatal("Expected playback to resume")
	}
	if got := h.device.Last().Offset; !near(got, 4) {
		t.Errorf("Expected resume at 4s, got %v", got)
	}
}

func TestSpeakFailureKeepsBuffer(t *testing.T) {
	h := newHarness(t, tenSeconds)
	h.speak(t)
	held := h.m.deps.Clock.Buffer()

	h.m.editor.SetValue("something else entirely")
	h.synth.SetFailure(synth.NewError(synth.ErrorCodeAuth, "bad key", nil))
	h.speak(t)

	if h.m.deps.Clock.Buffer() != held {
		t.Error("failed synthesis should keep the loaded buffer")
	}
	if h.m.notice != "Synthesis failed: bad key" {
		t.Errorf("unexpected notice %q", h.m.notice)
	}

	h.synth.SetFailure(errors.New("boom"))
	h.speak(t)
	if h.m.notice != "Synthesis failed" {
		t.Errorf("unexpected notice %q", h.m.notice)
	}
}

func TestSpeakDeviceUnavailable(t *testing.T) {
	h := newHarness(t, tenSeconds)
	h.device.Fail = true
	h.speak(t)

	if h.m.notice != "Audio device unavailable" {
		t.Errorf("unexpected notice %q", h.m.notice)
	}
	if h.m.deps.Clock.State() != playback.StateStopped {
		t.Errorf("Expected stopped, got %v", h.m.deps.Clock.State())
	}
}

func TestTransportKeys(t *testing.T) {
	h := newHarness(t, tenSeconds)
	h.speak(t)
	clock := h.m.deps.Clock

	// transport keys are typed into the editor while it has focus
	h.press(keySpace)
	if !clock.IsPlaying() {
		t.Fatal("space in the editor should not pause")
	}

	h.press(keyEsc)
	if h.m.editor.Focused() {
		t.Fatal("esc should blur the editor")
	}

	h.device.Advance(2)
	h.press(keySpace)
	if clock.IsPlaying() {
		t.Fatal("space should pause")
	}

	tests := []struct {
		name string
		key  tea.KeyMsg
		want float64
	}{
		{"forward", keyRight, 7},
		{"forward saturates", keyRight, 10},
		{"back", keyLeft, 5},
		{"back again", keyLeft, 0},
		{"back saturates", keyLeft, 0},
		{"forward from zero", keyRight, 5},
		{"rewind", keyHome, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h.press(tt.key)
			if got := clock.CurrentOffset(); !near(got, tt.want) {
				t.Errorf("Expected offset %v, got %v", tt.want, got)
			}
			if !near(h.m.position.Offset, tt.want) {
				t.Errorf("readout not refreshed: %v", h.m.position.Offset)
			}
		})
	}

	h.press(runes("+"))
	if clock.Speed() != 1.25 {
		t.Errorf("Expected speed 1.25, got %v", clock.Speed())
	}
	h.press(runes("-"))
	h.press(runes("-"))
	if clock.Speed() != 0.75 {
		t.Errorf("Expected speed 0.75, got %v", clock.Speed())
	}

	h.press(keySpace)
	if !clock.IsPlaying() {
		t.Fatal("space should resume")
	}
	if got := h.device.Last().Rate(); got != 0.75 {
		t.Errorf("Expected source rate 0.75, got %v", got)
	}
}

func TestTickRefreshesPosition(t *testing.T) {
	h := newHarness(t, tenSeconds)
	h.speak(t)
	h.device.Advance(1.5)

	cmd := h.send(tickMsg(time.Now()))
	if cmd == nil {
		t.Error("tick should schedule the next tick")
	}
	if !near(h.m.position.Offset, 1.5) || !near(h.m.position.Duration, 10) {
		t.Errorf("unexpected position %+v", h.m.position)
	}
	if !strings.Contains(h.m.View(), "0:01 / 0:10") {
		t.Error("view should show the position readout")
	}
}

func TestExport(t *testing.T) {
	h := newHarness(t, tenSeconds)

	h.press(tea.KeyMsg{Type: tea.KeyCtrlE})
	if h.m.notice != "Nothing to export" {
		t.Errorf("unexpected notice %q", h.m.notice)
	}
	h.press(tea.KeyMsg{Type: tea.KeyCtrlY})
	if h.m.notice != "Nothing exported yet" {
		t.Errorf("unexpected notice %q", h.m.notice)
	}

	h.speak(t)
	h.send(exportCmd(h.m.deps.Exporter, h.m.deps.Clock.Buffer(), export.FormatWAV)())
	want := h.dir + string(os.PathSeparator) + "t2s_audio_1700000000000.wav"
	if h.m.lastExport != want {
		t.Errorf("Expected export at %s, got %s", want, h.m.lastExport)
	}
	info, err := os.Stat(want)
	if err != nil {
		t.Fatalf("exported file missing: %v", err)
	}
	// 44 byte header plus 240000 mono frames
	if info.Size() != 44+240000*2 {
		t.Errorf("unexpected export size %d", info.Size())
	}

	h.send(exportCmd(h.m.deps.Exporter, h.m.deps.Clock.Buffer(), export.FormatMP3)())
	if !strings.HasPrefix(h.m.notice, "No mp3 encoder") {
		t.Errorf("degraded export should say so, got %q", h.m.notice)
	}
	if !strings.HasSuffix(h.m.lastExport, ".mp3") {
		t.Errorf("unexpected export path %s", h.m.lastExport)
	}
}

func TestConfigChanged(t *testing.T) {
	h := newHarness(t, tenSeconds)
	h.speak(t)

	h.send(ConfigChangedMsg{PlaybackSpeed: 1.5, SpeechRate: 0.75, Pitch: 2, Voice: "Puck"})

	if got := h.m.deps.Clock.Speed(); got != 1.5 {
		t.Errorf("Expected live speed 1.5, got %v", got)
	}
	if got := h.device.Last().Rate(); got != 1.5 {
		t.Errorf("playing source should follow the new speed, got %v", got)
	}
	if got := h.m.deps.Gate.SpeechRate(); got != 0.75 {
		t.Errorf("Expected speech rate 0.75, got %v", got)
	}
	if text, _ := h.m.deps.Gate.Fingerprint(); text != "" {
		t.Error("a new speech rate should invalidate the held audio")
	}

	view := h.m.View()
	for _, want := range []string{"1.5x", "Puck", "pitch +2"} {
		if !strings.Contains(view, want) {
			t.Errorf("view should contain %q", want)
		}
	}
}

func TestNoticeTimeout(t *testing.T) {
	h := newHarness(t, "")
	h.press(tea.KeyMsg{Type: tea.KeyCtrlS})
	first := h.m.noticeID
	h.press(tea.KeyMsg{Type: tea.KeyCtrlE})

	h.send(clearNoticeMsg(first))
	if h.m.notice == "" {
		t.Error("an older timeout should not clear a newer notice")
	}
	h.send(clearNoticeMsg(h.m.noticeID))
	if h.m.notice != "" {
		t.Errorf("notice should be cleared, got %q", h.m.notice)
	}
}

func TestStatusRender(t *testing.T) {
	s := statusView{
		state:    playback.StatePlaying,
		position: playback.Position{Offset: 65, Duration: 125},
		speed:    1.25,
		voice:    "Kore",
		notice:   "Saved",
	}
	out := s.render(0)
	for _, want := range []string{"▶", "1:05 / 2:05", "1.25x", "Kore", "pitch 0", "Saved"} {
		if !strings.Contains(out, want) {
			t.Errorf("status %q should contain %q", out, want)
		}
	}

	if got := formatPitch(-3.5); got != "pitch -3.5" {
		t.Errorf("formatPitch(-3.5) = %q", got)
	}
}
