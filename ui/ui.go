// Package ui provides the editing and playback TUI for t2s.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/t2s-studio/t2s/internal/audio"
	"github.com/t2s-studio/t2s/internal/export"
	"github.com/t2s-studio/t2s/internal/playback"
	"github.com/t2s-studio/t2s/internal/synth"
)

const statusMessageTimeout = time.Second * 3

// Deps are the collaborators the TUI drives.
type Deps struct {
	Clock    *playback.Clock
	Gate     *synth.Gate
	Exporter *export.Exporter
}

// NewProgram returns a new Tea program.
func NewProgram(cfg Config, deps Deps) *tea.Program {
	log.Debug("Starting t2s", "voice", cfg.VoiceName, "speed", cfg.PlaybackSpeed)
	return tea.NewProgram(newModel(cfg, deps), tea.WithAltScreen())
}

type (
	synthesizedMsg struct {
		buf   *audio.Buffer
		fresh bool
		err   error
	}
	exportedMsg struct {
		res export.Result
		err error
	}
	copiedMsg struct {
		path string
		err  error
	}
	tickMsg        time.Time
	clearNoticeMsg int
)

// ConfigChangedMsg carries settings reloaded from the config file.
type ConfigChangedMsg struct {
	PlaybackSpeed float64
	SpeechRate    float64
	Pitch         float64
	Voice         string
}

type model struct {
	cfg  Config
	deps Deps
	keys keyMap

	editor  textarea.Model
	spinner spinner.Model

	width  int
	height int

	position     playback.Position
	synthesizing bool
	voice        string
	pitch        float64
	lastExport   string

	notice   string
	noticeID int
}

func newModel(cfg Config, deps Deps) model {
	ta := textarea.New()
	ta.Placeholder = "Type something to speak…"
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetValue(cfg.Text)
	ta.Focus()

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))

	if cfg.SkipSeconds <= 0 {
		cfg.SkipSeconds = 5
	}
	if cfg.RefreshRate <= 0 {
		cfg.RefreshRate = 20
	}
	voice := cfg.VoiceName
	if voice == "" {
		voice = synth.DefaultVoice
	}

	if deps.Clock != nil && cfg.PlaybackSpeed > 0 {
		if err := deps.Clock.SetSpeed(cfg.PlaybackSpeed); err != nil {
			log.Warn("Ignoring playback speed", "speed", cfg.PlaybackSpeed, "err", err)
		}
	}
	if deps.Gate != nil && cfg.SpeechRate > 0 {
		deps.Gate.SetSpeechRate(cfg.SpeechRate)
	}

	return model{
		cfg:     cfg,
		deps:    deps,
		keys:    newKeyMap(),
		editor:  ta,
		spinner: sp,
		voice:   voice,
		pitch:   cfg.Pitch,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.tick())
}

func (m model) tick() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(m.cfg.RefreshRate), func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *model) setNotice(format string, args ...any) tea.Cmd {
	m.noticeID++
	m.notice = fmt.Sprintf(format, args...)
	id := m.noticeID
	return tea.Tick(statusMessageTimeout, func(time.Time) tea.Msg {
		return clearNoticeMsg(id)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.editor.SetWidth(msg.Width)
		m.editor.SetHeight(max(msg.Height-3, 1))
		return m, nil

	case tickMsg:
		m.position = m.deps.Clock.Tick()
		return m, m.tick()

	case clearNoticeMsg:
		if int(msg) == m.noticeID {
			m.notice = ""
		}
		return m, nil

	case spinner.TickMsg:
		if !m.synthesizing {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case synthesizedMsg:
		m.synthesizing = false
		return m, m.handleSynthesized(msg)

	case exportedMsg:
		if msg.err != nil {
			return m, m.setNotice("Export failed: %v", msg.err)
		}
		m.lastExport = msg.res.Path
		if msg.res.Degraded {
			return m, m.setNotice("No %s encoder, saved WAV data to %s", msg.res.Format, msg.res.Path)
		}
		return m, m.setNotice("Saved %s", msg.res.Path)

	case copiedMsg:
		if msg.err != nil {
			return m, m.setNotice("Copy failed: %v", msg.err)
		}
		return m, m.setNotice("Copied %s", msg.path)

	case ConfigChangedMsg:
		return m, m.applyConfig(msg)

	case tea.KeyMsg:
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}
	}

	if m.editor.Focused() {
		var cmd tea.Cmd
		m.editor, cmd = m.editor.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.deps.Clock.Stop(false)
		return tea.Quit, true

	case key.Matches(msg, m.keys.Focus):
		if m.editor.Focused() {
			m.editor.Blur()
			return nil, true
		}
		return m.editor.Focus(), true

	case key.Matches(msg, m.keys.Synthesize):
		return m.synthesize(), true

	case key.Matches(msg, m.keys.ExportWAV):
		return m.export(export.FormatWAV), true

	case key.Matches(msg, m.keys.ExportMP3):
		return m.export(export.FormatMP3), true

	case key.Matches(msg, m.keys.CopyPath):
		if m.lastExport == "" {
			return m.setNotice("Nothing exported yet"), true
		}
		return copyPath(m.lastExport), true
	}

	// transport keys only apply while the editor is not taking input
	if m.editor.Focused() {
		return nil, false
	}

	clock := m.deps.Clock
	switch {
	case key.Matches(msg, m.keys.Toggle):
		return m.deviceResult(clock.Toggle()), true

	case key.Matches(msg, m.keys.Back):
		_, err := clock.Skip(-m.cfg.SkipSeconds)
		return m.deviceResult(err), true

	case key.Matches(msg, m.keys.Forward):
		_, err := clock.Skip(m.cfg.SkipSeconds)
		return m.deviceResult(err), true

	case key.Matches(msg, m.keys.Rewind):
		_, err := clock.Seek(0)
		return m.deviceResult(err), true

	case key.Matches(msg, m.keys.Faster):
		return m.setSpeed(playback.NextSpeed(clock.Speed())), true

	case key.Matches(msg, m.keys.Slower):
		return m.setSpeed(playback.PreviousSpeed(clock.Speed())), true
	}
	return nil, false
}

func (m *model) deviceResult(err error) tea.Cmd {
	m.position = m.deps.Clock.Position()
	if err == nil {
		return nil
	}
	if errors.Is(err, audio.ErrDeviceUnavailable) {
		return m.setNotice("Audio device unavailable")
	}
	return m.setNotice("Playback failed: %v", err)
}

func (m *model) setSpeed(speed float64) tea.Cmd {
	if err := m.deps.Clock.SetSpeed(speed); err != nil {
		return m.setNotice("%v", err)
	}
	m.position = m.deps.Clock.Position()
	return m.setNotice("Speed %s", playback.FormatSpeed(speed))
}

// synthesize asks the gate for audio of the editor text. The call runs off
// the update loop; its result arrives as a synthesizedMsg.
func (m *model) synthesize() tea.Cmd {
	if m.synthesizing {
		return nil
	}
	text := m.editor.Value()
	if strings.TrimSpace(text) == "" {
		return m.setNotice("Nothing to speak")
	}

	m.synthesizing = true
	return tea.Batch(m.spinner.Tick, synthesizeCmd(m.deps.Gate, text, m.voice))
}

func synthesizeCmd(gate *synth.Gate, text, voice string) tea.Cmd {
	return func() tea.Msg {
		buf, fresh, err := gate.Ensure(context.Background(), text, voice)
		return synthesizedMsg{buf: buf, fresh: fresh, err: err}
	}
}

func (m *model) handleSynthesized(msg synthesizedMsg) tea.Cmd {
	if msg.err != nil {
		log.Warn("Synthesis failed", "err", msg.err)
		var serr *synth.Error
		if errors.As(msg.err, &serr) {
			return m.setNotice("Synthesis failed: %s", serr.Message)
		}
		return m.setNotice("Synthesis failed")
	}

	clock := m.deps.Clock
	if msg.fresh || clock.Buffer() != msg.buf {
		clock.Load(msg.buf)
		return m.deviceResult(clock.Start(0))
	}
	// unchanged text: keep the position and resume
	if clock.IsPlaying() {
		return nil
	}
	return m.deviceResult(clock.Toggle())
}

func (m *model) export(f export.Format) tea.Cmd {
	buf := m.deps.Clock.Buffer()
	if buf == nil {
		return m.setNotice("Nothing to export")
	}
	return exportCmd(m.deps.Exporter, buf, f)
}

func exportCmd(e *export.Exporter, buf *audio.Buffer, f export.Format) tea.Cmd {
	return func() tea.Msg {
		res, err := e.Export(buf, f)
		return exportedMsg{res: res, err: err}
	}
}

func copyPath(path string) tea.Cmd {
	return func() tea.Msg {
		return copiedMsg{path: path, err: clipboard.WriteAll(path)}
	}
}

func (m *model) applyConfig(msg ConfigChangedMsg) tea.Cmd {
	if msg.PlaybackSpeed > 0 && msg.PlaybackSpeed != m.deps.Clock.Speed() {
		if err := m.deps.Clock.SetSpeed(msg.PlaybackSpeed); err != nil {
			log.Warn("Ignoring reloaded playback speed", "err", err)
		}
	}
	if msg.SpeechRate > 0 {
		m.deps.Gate.SetSpeechRate(msg.SpeechRate)
	}
	if msg.Voice != "" {
		m.voice = msg.Voice
	}
	m.pitch = msg.Pitch
	m.position = m.deps.Clock.Position()
	return m.setNotice("Config reloaded")
}

func (m model) View() string {
	status := statusView{
		state:        m.deps.Clock.State(),
		position:     m.position,
		speed:        m.deps.Clock.Speed(),
		voice:        m.voice,
		pitch:        m.pitch,
		synthesizing: m.synthesizing,
		spinner:      m.spinner.View(),
		notice:       m.notice,
	}

	help := m.keys.transportHelp()
	if m.editor.Focused() {
		help = m.keys.editorHelp()
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.editor.View(),
		status.render(m.width),
		helpView(help, m.width),
	)
}
