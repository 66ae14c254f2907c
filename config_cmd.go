package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/t2s-studio/t2s/internal/config"
)

const defaultConfig = `# synthesizer: gemini or mock
engine: "gemini"
# prebuilt voice, see "t2s voices"
voice_name: "Kore"
# speech rate asked of the synthesizer (0.5 to 2.0)
speech_rate: 1.0
# playback speed of the loaded audio (0.5 to 2.0), applied live
playback_speed: 1.0
# pitch in semitones (-20 to 20)
pitch: 0

export:
  # where exported files are written
  dir: "."
  # wav or mp3 (mp3 currently writes WAV data)
  format: "wav"

gemini:
  model: "gemini-2.5-flash-preview-tts"
  endpoint: "https://generativelanguage.googleapis.com/v1beta"
  timeout: "60s"
  requests_per_minute: 10
  # the API key is read from GEMINI_API_KEY or T2S_GEMINI_API_KEY

cache:
  enabled: true
  # dir: "~/.cache/t2s/audio"
  max_size_mb: 256
  ttl: "168h"

audio:
  # device buffer, 0 picks a default
  buffer_size: "0s"
`

var resetConfig bool

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the t2s config file",
	Long:    paragraph(fmt.Sprintf("\n%s the t2s config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("t2s config\nt2s config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if resetConfig {
			path, err := resolveConfigFile(configFile, viper.GetViper().ConfigFileUsed())
			if err != nil {
				return err
			}
			configFile = path
			if err := config.Save(configFile, config.Default()); err != nil {
				return err
			}
			fmt.Println("Reset config file:", configFile)
			return nil
		}
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("t2s", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func init() {
	configCmd.Flags().BoolVar(&resetConfig, "reset", false, "overwrite the config file with the defaults")
}

// resolveConfigFile picks the file to write: the --config flag, then the
// file viper loaded, then t2s.yml in the first config directory.
func resolveConfigFile(flag, used string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if used != "" {
		return used, nil
	}
	dirs, err := configDirs()
	if err != nil {
		return "", fmt.Errorf("unable to find configuration directory: %w", err)
	}
	return filepath.Join(dirs[0], "t2s.yml"), nil
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		// File doesn't exist yet, create all necessary directories and
		// write the default config file
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil { // some other error occurred
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
