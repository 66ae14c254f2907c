package ui

// Config contains TUI-specific configuration.
type Config struct {
	// Initial editor contents.
	Text string

	VoiceName     string
	SpeechRate    float64
	PlaybackSpeed float64
	Pitch         float64

	// Seconds moved by the skip keys.
	SkipSeconds float64 `env:"T2S_SKIP_SECONDS" envDefault:"5"`

	// Frames per second of the position readout.
	RefreshRate int `env:"T2S_REFRESH_RATE" envDefault:"20"`
}
