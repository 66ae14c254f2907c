package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/mitchellh/go-homedir"
	"github.com/t2s-studio/t2s/internal/audio"
	"github.com/t2s-studio/t2s/internal/wav"
)

// Manager stores decoded audio in the memory tier and, when configured, the
// disk tier. Disk hits are promoted to memory.
type Manager struct {
	memory *MemoryCache
	disk   *DiskCache
	config Config
	logger *log.Logger

	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// NewManager creates a cache manager. A background goroutine prunes entries
// older than the TTL when CleanupInterval is set; Close stops it.
func NewManager(config Config, logger *log.Logger) (*Manager, error) {
	if logger == nil {
		logger = log.Default()
	}
	m := &Manager{
		memory: NewMemoryCache(config.MemoryCapacity),
		config: config,
		logger: logger.WithPrefix("cache"),
		stop:   make(chan struct{}),
	}

	if config.DiskPath != "" {
		path, err := homedir.Expand(config.DiskPath)
		if err != nil {
			return nil, fmt.Errorf("expanding cache path: %w", err)
		}
		m.disk, err = NewDiskCache(path, config.DiskCapacity, config.CompressionLevel)
		if err != nil {
			return nil, fmt.Errorf("failed to create disk cache: %w", err)
		}
		m.logger.Debug("Disk cache opened", "path", path, "size", humanize.Bytes(uint64(m.disk.Stats().Size)))
	}

	if config.CleanupInterval > 0 && config.TTL > 0 {
		m.wg.Add(1)
		go m.cleanupLoop()
	}
	return m, nil
}

// Get returns the cached audio for key.
func (m *Manager) Get(key Key) (*audio.Buffer, bool) {
	id := key.String()

	if data, ok := m.memory.Get(id); ok {
		if buf, err := wav.Decode(data); err == nil {
			return buf, true
		}
		m.memory.Delete(id)
	}
	if m.disk == nil {
		return nil, false
	}

	data, ok := m.disk.Get(id)
	if !ok {
		return nil, false
	}
	buf, err := wav.Decode(data)
	if err != nil {
		m.logger.Warn("Dropping corrupted cache entry", "key", id[:12], "err", err)
		m.disk.Delete(id)
		return nil, false
	}
	_ = m.memory.Put(id, data)
	return buf, true
}

// Put stores buf under key in every tier.
func (m *Manager) Put(key Key, buf *audio.Buffer) error {
	data, err := wav.Encode(buf)
	if err != nil {
		return err
	}
	id := key.String()

	if err := m.memory.Put(id, data); err != nil && err != ErrItemTooLarge {
		return fmt.Errorf("memory cache: %w", err)
	}
	if m.disk != nil {
		if err := m.disk.Put(id, data); err != nil {
			return fmt.Errorf("disk cache: %w", err)
		}
	}
	m.logger.Debug("Cached audio", "key", id[:12], "size", humanize.Bytes(uint64(len(data))))
	return nil
}

// Stats returns the counters for each tier.
func (m *Manager) Stats() map[Level]Stats {
	out := map[Level]Stats{LevelMemory: m.memory.Stats()}
	if m.disk != nil {
		out[LevelDisk] = m.disk.Stats()
	}
	return out
}

// Prune drops entries older than the TTL from every tier.
func (m *Manager) Prune() int {
	if m.config.TTL <= 0 {
		return 0
	}
	cutoff := time.Now().Add(-m.config.TTL)
	n := m.memory.Prune(cutoff)
	if m.disk != nil {
		n += m.disk.Prune(cutoff)
	}
	if n > 0 {
		m.logger.Debug("Pruned expired entries", "count", n)
	}
	return n
}

// Close stops background cleanup and persists the disk index.
func (m *Manager) Close() error {
	m.once.Do(func() { close(m.stop) })
	m.wg.Wait()
	if m.disk != nil {
		return m.disk.Close()
	}
	return nil
}

func (m *Manager) cleanupLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Prune()
		case <-m.stop:
			return
		}
	}
}
