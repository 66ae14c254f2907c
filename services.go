package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/t2s-studio/t2s/internal/cache"
	"github.com/t2s-studio/t2s/internal/config"
	"github.com/t2s-studio/t2s/internal/export"
	"github.com/t2s-studio/t2s/internal/synth"
)

// services are the pieces shared by the TUI and the headless commands.
type services struct {
	synth    synth.Synthesizer
	gate     *synth.Gate
	exporter *export.Exporter
	cache    *cache.Manager
}

func (s *services) Close() error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Close()
}

func newSynthesizer(cfg config.Config) (synth.Synthesizer, error) {
	if cfg.Engine == "mock" {
		return synth.NewMock(), nil
	}
	g, err := synth.NewGemini(synth.GeminiConfig{
		APIKey:            cfg.Secrets.APIKey(),
		Endpoint:          cfg.Gemini.Endpoint,
		Model:             cfg.Gemini.Model,
		Timeout:           cfg.Gemini.Timeout,
		RequestsPerMinute: cfg.Gemini.RequestsPerMinute,
	})
	if errors.Is(err, synth.ErrMissingAPIKey) {
		log.Warn("No Gemini API key, using the offline synthesizer")
		return synth.NewMock(), nil
	}
	return g, err
}

func defaultCacheDir() (string, error) {
	dir, err := gap.NewScope(gap.User, "t2s").CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "audio"), nil
}

func newCache(cfg config.CacheConfig) (*cache.Manager, error) {
	cc := cache.DefaultConfig()
	cc.DiskPath = cfg.Dir
	if cc.DiskPath == "" {
		dir, err := defaultCacheDir()
		if err != nil {
			return nil, fmt.Errorf("unable to find cache directory: %w", err)
		}
		cc.DiskPath = dir
	}
	if cfg.MaxSizeMB > 0 {
		cc.DiskCapacity = int64(cfg.MaxSizeMB) << 20
	}
	if cfg.TTL > 0 {
		cc.TTL = cfg.TTL
	}
	return cache.NewManager(cc, log.Default())
}

func newServices(cfg config.Config) (*services, error) {
	s, err := newSynthesizer(cfg)
	if err != nil {
		return nil, err
	}

	opts := []synth.GateOption{
		synth.WithSpeechRate(cfg.SpeechRate),
		synth.WithGateLogger(log.Default()),
	}
	var mgr *cache.Manager
	if cfg.Cache.Enabled {
		mgr, err = newCache(cfg.Cache)
		if err != nil {
			// synthesis still works without a cache
			log.Warn("Audio cache disabled", "err", err)
		} else {
			opts = append(opts, synth.WithStore(mgr))
		}
	}

	exporter, err := export.New(cfg.Export.Dir, log.Default())
	if err != nil {
		if mgr != nil {
			_ = mgr.Close()
		}
		return nil, err
	}

	return &services{
		synth:    s,
		gate:     synth.NewGate(s, opts...),
		exporter: exporter,
		cache:    mgr,
	}, nil
}
