// Package main provides the entry point for the t2s CLI application.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/t2s-studio/t2s/internal/audio"
	"github.com/t2s-studio/t2s/internal/config"
	"github.com/t2s-studio/t2s/internal/playback"
	"github.com/t2s-studio/t2s/ui"
	"golang.org/x/term"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	debug      bool

	rootCmd = &cobra.Command{
		Use:   "t2s [TEXT|FILE|-]",
		Short: "Type text, hear it spoken, export it as audio",
		Long: paragraph(
			fmt.Sprintf("\nType text, %s, and export it as a WAV file.", keyword("hear it spoken")),
		),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.ArbitraryArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("config") {
				viper.SetConfigFile(configFile)
				if err := viper.ReadInConfig(); err != nil {
					return fmt.Errorf("unable to read config file: %w", err)
				}
			}
			if debug {
				log.SetLevel(log.DebugLevel)
			}
			return nil
		},
		RunE: execute,
	}
)

// readInput resolves the text to start with. Piped stdin wins, then "-",
// then a file path, and finally the arguments themselves.
func readInput(args []string, stdin *os.File) (string, error) {
	if len(args) == 0 && !term.IsTerminal(int(stdin.Fd())) {
		return readAll(stdin)
	}
	if len(args) == 1 && args[0] == "-" {
		return readAll(stdin)
	}
	if len(args) == 1 {
		if info, err := os.Stat(args[0]); err == nil && !info.IsDir() {
			f, err := os.Open(args[0])
			if err != nil {
				return "", fmt.Errorf("unable to open file: %w", err)
			}
			defer f.Close() //nolint:errcheck
			return readAll(f)
		}
	}
	return strings.Join(args, " "), nil
}

func readAll(r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("unable to read input: %w", err)
	}
	return strings.TrimRight(string(b), "\n"), nil
}

func execute(_ *cobra.Command, args []string) error {
	text, err := readInput(args, os.Stdin)
	if err != nil {
		return err
	}
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	return runTUI(cfg, text)
}

func runTUI(cfg config.Config, text string) error {
	// Read environment to get the TUI tuning knobs
	uiCfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %v", err)
	}
	uiCfg.Text = text
	uiCfg.VoiceName = cfg.VoiceName
	uiCfg.SpeechRate = cfg.SpeechRate
	uiCfg.PlaybackSpeed = cfg.PlaybackSpeed
	uiCfg.Pitch = cfg.Pitch

	svc, err := newServices(cfg)
	if err != nil {
		return err
	}
	defer svc.Close() //nolint:errcheck

	device := audio.NewOtoDevice(audio.DeviceConfig{BufferSize: cfg.Audio.BufferSize}, log.Default())
	clock := playback.NewClock(device,
		playback.WithLogger(log.Default()),
		playback.WithSpeed(cfg.PlaybackSpeed),
	)

	p := ui.NewProgram(uiCfg, ui.Deps{
		Clock:    clock,
		Gate:     svc.gate,
		Exporter: svc.exporter,
	})

	if viper.ConfigFileUsed() != "" {
		viper.OnConfigChange(func(e fsnotify.Event) {
			c, err := config.Load(viper.GetViper())
			if err != nil {
				log.Warn("Ignoring config change", "path", e.Name, "err", err)
				return
			}
			log.Debug("Config reloaded", "path", e.Name)
			p.Send(ui.ConfigChangedMsg{
				PlaybackSpeed: c.PlaybackSpeed,
				SpeechRate:    c.SpeechRate,
				Pitch:         c.Pitch,
				Voice:         c.VoiceName,
			})
		})
		viper.WatchConfig()
	}

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}
	clock.Stop(false)
	return nil
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "write debug logs")
	rootCmd.PersistentFlags().String("voice", "", "prebuilt voice name")
	rootCmd.PersistentFlags().String("engine", "", "synthesizer: gemini or mock")
	rootCmd.Flags().Float64("speed", 0, "initial playback speed")

	// Config bindings
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("voice_name", rootCmd.PersistentFlags().Lookup("voice"))
	_ = viper.BindPFlag("engine", rootCmd.PersistentFlags().Lookup("engine"))
	_ = viper.BindPFlag("playback_speed", rootCmd.Flags().Lookup("speed"))

	config.SetDefaults(viper.GetViper())

	rootCmd.AddCommand(configCmd, manCmd, exportCmd, voicesCmd)
}

// configDirs lists the config search path, most specific first.
func configDirs() ([]string, error) {
	dirs, err := gap.NewScope(gap.User, "t2s").ConfigDirs()
	if err != nil {
		return nil, err
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "t2s")}, dirs...)
	}

	if c := os.Getenv("T2S_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}
	if len(dirs) == 0 {
		return nil, errors.New("no configuration directory")
	}
	return dirs, nil
}

func tryLoadConfigFromDefaultPlaces() {
	dirs, err := configDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("t2s")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("t2s")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], "t2s.yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
		return
	}
	viper.SetConfigFile(configFile)
	if err := viper.ReadInConfig(); err != nil {
		log.Warn("Could not read default configuration", "err", err)
	}
}
