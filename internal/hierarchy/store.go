package hierarchy

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"

	ancerrors "github.com/Aman-CERP/ancestry/internal/errors"
)

// DefaultFileName is the file name used for the persisted configuration.
const DefaultFileName = "hierarchy.yaml"

// Store persists a hierarchy configuration.
type Store interface {
	Load() (Configuration, error)
	Save(cfg Configuration) error
}

// FileStore keeps the configuration as YAML at a fixed path. Writes take an
// exclusive lock on <path>.lock and replace the file atomically, so the CLI
// and a running server can share one file.
type FileStore struct {
	path string
	lock *flock.Flock
}

// NewFileStore returns a store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{
		path: path,
		lock: flock.New(path + ".lock"),
	}
}

// Path returns the configuration file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the configuration. A missing file yields Default().
func (s *FileStore) Load() (Configuration, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Configuration{}, ancerrors.New(ancerrors.ErrCodeConfigNotFound,
			"failed to read hierarchy configuration", err).WithDetail("path", s.path)
	}

	var cfg Configuration
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Configuration{}, ancerrors.New(ancerrors.ErrCodeConfigInvalid,
			"failed to parse hierarchy configuration", err).WithDetail("path", s.path)
	}
	if cfg.Fields == nil {
		cfg.Fields = map[string][]string{}
	}
	for id, keys := range cfg.Fields {
		cfg.Fields[id] = dedupe(keys)
	}
	return cfg, nil
}

// Save writes cfg after checking its shape. An empty or malformed
// configuration is refused and the file on disk is left untouched.
func (s *FileStore) Save(cfg Configuration) error {
	if err := cfg.Check(); err != nil {
		return ancerrors.New(ancerrors.ErrCodeConfigInvalid, "refusing to save hierarchy configuration", err)
	}

	normalized := Default()
	for id, keys := range cfg.Fields {
		normalized.Fields[id] = dedupe(keys)
	}

	data, err := yaml.Marshal(normalized)
	if err != nil {
		return ancerrors.InternalError("failed to encode hierarchy configuration", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create configuration directory: %w", err)
	}

	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	defer func() { _ = s.lock.Unlock() }()

	tmp, err := os.CreateTemp(dir, ".hierarchy-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("failed to replace configuration: %w", err)
	}
	return nil
}

// MemoryStore is an in-process Store, used by tests and the MCP server when
// no file path is configured.
type MemoryStore struct {
	mu  sync.RWMutex
	cfg Configuration
}

// Load returns a copy of the stored configuration.
func (m *MemoryStore) Load() (Configuration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := Default()
	for id, keys := range m.cfg.Fields {
		out.Fields[id] = append([]string(nil), keys...)
	}
	return out, nil
}

// Save stores cfg after the same shape check as FileStore.
func (m *MemoryStore) Save(cfg Configuration) error {
	if err := cfg.Check(); err != nil {
		return ancerrors.New(ancerrors.ErrCodeConfigInvalid, "refusing to save hierarchy configuration", err)
	}
	stored := Default()
	ids := make([]string, 0, len(cfg.Fields))
	for id := range cfg.Fields {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		stored.Fields[id] = dedupe(cfg.Fields[id])
	}
	m.mu.Lock()
	m.cfg = stored
	m.mu.Unlock()
	return nil
}
