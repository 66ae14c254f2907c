package main

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/viper"
)

func getLogFilePath() (string, error) {
	dir, err := gap.NewScope(gap.User, "t2s").CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "t2s.log"), nil
}

// setupLog sends logs to a file in the user cache dir. The TUI owns the
// terminal, so nothing is ever written to stderr once this has run.
func setupLog() (func() error, error) {
	log.SetOutput(io.Discard)

	logFile, err := getLogFilePath()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644) //nolint:gosec
	if err != nil {
		return nil, err
	}

	level := log.WarnLevel
	if os.Getenv("T2S_DEBUG") != "" || viper.GetBool("debug") {
		level = log.DebugLevel
	}
	logger := log.NewWithOptions(f, log.Options{
		ReportTimestamp: true,
		Level:           level,
	}).With("session", uuid.NewString()[:8])
	log.SetDefault(logger)

	return f.Close, nil
}
