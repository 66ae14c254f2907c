package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/t2s-studio/t2s/internal/config"
	"github.com/t2s-studio/t2s/internal/export"
)

func TestReadInput(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(file, []byte("from a file\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	// a regular file stands in for a terminal-less stdin
	stdin, err := os.Open(file)
	if err != nil {
		t.Fatal(err)
	}
	defer stdin.Close() //nolint:errcheck

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"file argument", []string{file}, "from a file"},
		{"words", []string{"hello", "there"}, "hello there"},
		{"missing file is text", []string{filepath.Join(dir, "nope.txt")}, filepath.Join(dir, "nope.txt")},
		{"dash reads stdin", []string{"-"}, "from a file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := stdin.Seek(0, 0); err != nil {
				t.Fatal(err)
			}
			got, err := readInput(tt.args, stdin)
			if err != nil {
				t.Fatalf("readInput failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("readInput(%v) = %q, want %q", tt.args, got, tt.want)
			}
		})
	}
}

func TestExportText(t *testing.T) {
	cfg := config.Default()
	cfg.Engine = "mock"
	cfg.Cache.Enabled = false
	cfg.Export.Dir = t.TempDir()

	svc, err := newServices(cfg)
	if err != nil {
		t.Fatalf("newServices failed: %v", err)
	}
	defer svc.Close() //nolint:errcheck

	var out bytes.Buffer
	if err := exportText(context.Background(), svc, "one two three four five", "Kore", export.FormatMP3, &out); err != nil {
		t.Fatalf("exportText failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "No mp3 encoder") {
		t.Fatalf("unexpected output %q", out.String())
	}
	path := strings.Fields(lines[1])[0]
	if filepath.Dir(path) != cfg.Export.Dir || !strings.HasPrefix(filepath.Base(path), export.FilePrefix) {
		t.Errorf("unexpected export path %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("export missing: %v", err)
	}
	if string(data[:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Error("export should hold WAV data")
	}
}

func TestNewSynthesizerFallsBackWithoutKey(t *testing.T) {
	cfg := config.Default()
	cfg.Secrets = config.Secrets{}
	s, err := newSynthesizer(cfg)
	if err != nil {
		t.Fatalf("newSynthesizer failed: %v", err)
	}
	if s.Name() != "mock" {
		t.Errorf("Expected the offline synthesizer, got %s", s.Name())
	}

	cfg.Secrets.GeminiAPIKey = "key"
	if s, _ := newSynthesizer(cfg); s.Name() != "gemini" {
		t.Errorf("Expected gemini, got %s", s.Name())
	}
}

func TestResolveConfigFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("T2S_CONFIG_HOME", home)

	tests := []struct {
		name string
		flag string
		used string
		want string
	}{
		{"flag wins", "/etc/t2s.yml", "/home/me/t2s.yml", "/etc/t2s.yml"},
		{"loaded file", "", "/home/me/t2s.yml", "/home/me/t2s.yml"},
		{"nothing loaded", "", "", filepath.Join(home, "t2s.yml")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveConfigFile(tt.flag, tt.used)
			if err != nil {
				t.Fatalf("resolveConfigFile failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("resolveConfigFile(%q, %q) = %q, want %q", tt.flag, tt.used, got, tt.want)
			}
		})
	}

	path, _ := resolveConfigFile("", "")
	if err := config.Save(path, config.Default()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("reset config not written: %v", err)
	}
}
