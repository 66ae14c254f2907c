// Package export writes the loaded audio to disk.
//
// Only the canonical WAV layout is produced. Asking for MP3 yields the same
// WAV bytes under an .mp3 name; Degraded reports that so callers can warn.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/mitchellh/go-homedir"
	"github.com/t2s-studio/t2s/internal/audio"
	"github.com/t2s-studio/t2s/internal/wav"
)

// ContentType is the MIME type of every export.
const ContentType = "audio/wav"

// FilePrefix starts every exported file name.
const FilePrefix = "t2s_audio_"

// Format is a requested export format.
type Format string

const (
	FormatWAV Format = "wav"
	FormatMP3 Format = "mp3"
)

// ParseFormat accepts "wav" or "mp3" in any case, with or without a
// leading dot.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".")); f {
	case FormatWAV, FormatMP3:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported export format %q (want wav or mp3)", s)
	}
}

// Ext returns the file extension without the dot.
func (f Format) Ext() string {
	return string(f)
}

// ContentType returns the MIME type of the bytes actually written, which is
// audio/wav for every format.
func (f Format) ContentType() string {
	return ContentType
}

// Degraded reports whether the format is served by the WAV encoder instead
// of its own codec.
func (f Format) Degraded() bool {
	return f != FormatWAV
}

// FileName returns t2s_audio_<unix-millis>.<ext>.
func FileName(f Format, now time.Time) string {
	return fmt.Sprintf("%s%d.%s", FilePrefix, now.UnixMilli(), f.Ext())
}

// Result describes a finished export.
type Result struct {
	Path        string
	Bytes       int64
	Format      Format
	ContentType string
	Degraded    bool
}

// Exporter writes buffers into a directory.
type Exporter struct {
	Dir    string
	Now    func() time.Time
	Logger *log.Logger
}

// New creates an exporter for dir. A leading ~ is expanded; an empty dir
// means the working directory.
func New(dir string, logger *log.Logger) (*Exporter, error) {
	if dir == "" {
		dir = "."
	}
	expanded, err := homedir.Expand(dir)
	if err != nil {
		return nil, fmt.Errorf("expanding export dir: %w", err)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Exporter{
		Dir:    expanded,
		Now:    time.Now,
		Logger: logger.WithPrefix("export"),
	}, nil
}

// Export encodes buf and writes it to a new file in the export directory.
func (e *Exporter) Export(buf *audio.Buffer, f Format) (Result, error) {
	data, err := wav.Encode(buf)
	if err != nil {
		return Result{}, err
	}
	if f.Degraded() {
		e.Logger.Warn("No encoder for format, writing WAV data", "format", f)
	}

	if err := os.MkdirAll(e.Dir, 0o755); err != nil {
		return Result{}, fmt.Errorf("creating export dir: %w", err)
	}
	path := filepath.Join(e.Dir, FileName(f, e.Now()))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return Result{}, fmt.Errorf("writing export: %w", err)
	}

	e.Logger.Info("Exported audio", "path", path, "size", humanize.Bytes(uint64(len(data))))
	return Result{
		Path:        path,
		Bytes:       int64(len(data)),
		Format:      f,
		ContentType: f.ContentType(),
		Degraded:    f.Degraded(),
	}, nil
}
