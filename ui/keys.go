package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Synthesize key.Binding
	Toggle     key.Binding
	Back       key.Binding
	Forward    key.Binding
	Rewind     key.Binding
	Faster     key.Binding
	Slower     key.Binding
	ExportWAV  key.Binding
	ExportMP3  key.Binding
	CopyPath   key.Binding
	Focus      key.Binding
	Quit       key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Synthesize: key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "speak")),
		Toggle:     key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/pause")),
		Back:       key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←", "back")),
		Forward:    key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→", "forward")),
		Rewind:     key.NewBinding(key.WithKeys("home", "0"), key.WithHelp("home", "rewind")),
		Faster:     key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "faster")),
		Slower:     key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "slower")),
		ExportWAV:  key.NewBinding(key.WithKeys("ctrl+e"), key.WithHelp("ctrl+e", "export wav")),
		ExportMP3:  key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "export mp3")),
		CopyPath:   key.NewBinding(key.WithKeys("ctrl+y"), key.WithHelp("ctrl+y", "copy path")),
		Focus:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "editor/transport")),
		Quit:       key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

// transportHelp is shown under the status bar when the editor is blurred.
func (k keyMap) transportHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Back, k.Forward, k.Rewind, k.Faster, k.Slower, k.Focus}
}

// editorHelp is shown while typing.
func (k keyMap) editorHelp() []key.Binding {
	return []key.Binding{k.Synthesize, k.ExportWAV, k.ExportMP3, k.CopyPath, k.Focus, k.Quit}
}
