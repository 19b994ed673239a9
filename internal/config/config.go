package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ProjectFileName is the project configuration file.
const ProjectFileName = ".ancestry.yaml"

// DataDirName holds the entity database, search index and hierarchy file.
const DataDirName = ".ancestry"

// Config is the complete ancestry configuration.
type Config struct {
	Version     int               `yaml:"version" json:"version"`
	Index       IndexConfig       `yaml:"index" json:"index"`
	Store       StoreConfig       `yaml:"store" json:"store"`
	Traversal   TraversalConfig   `yaml:"traversal" json:"traversal"`
	Performance PerformanceConfig `yaml:"performance" json:"performance"`
	Server      ServerConfig      `yaml:"server" json:"server"`

	// dir is the project directory relative paths resolve against.
	dir string
}

// IndexConfig names the index and the files describing it.
type IndexConfig struct {
	ID        string `yaml:"id" json:"id"`
	Schema    string `yaml:"schema" json:"schema"`
	Hierarchy string `yaml:"hierarchy" json:"hierarchy"`
}

// StoreConfig locates the entity database and the search index.
type StoreConfig struct {
	EntityDB    string `yaml:"entity_db" json:"entity_db"`
	SearchIndex string `yaml:"search_index" json:"search_index"`
}

// TraversalConfig bounds ancestor walks.
type TraversalConfig struct {
	MaxVisited      int `yaml:"max_visited" json:"max_visited"`
	MaxDepth        int `yaml:"max_depth" json:"max_depth"`
	EntityCacheSize int `yaml:"entity_cache_size" json:"entity_cache_size"`
}

// PerformanceConfig tunes indexing.
type PerformanceConfig struct {
	IndexWorkers     int    `yaml:"index_workers" json:"index_workers"`
	BatchSize        int    `yaml:"batch_size" json:"batch_size"`
	OptionsCacheSize int    `yaml:"options_cache_size" json:"options_cache_size"`
	WatchDebounce    string `yaml:"watch_debounce" json:"watch_debounce"`
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	Transport string `yaml:"transport" json:"transport"`
	LogLevel  string `yaml:"log_level" json:"log_level"`
}

// NewConfig returns a configuration with all defaults applied.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Index: IndexConfig{
			ID:        "default",
			Schema:    "schema.yaml",
			Hierarchy: filepath.Join(DataDirName, "hierarchy.yaml"),
		},
		Store: StoreConfig{
			EntityDB:    filepath.Join(DataDirName, "entities.db"),
			SearchIndex: filepath.Join(DataDirName, "index.bleve"),
		},
		Traversal: TraversalConfig{
			MaxVisited:      10000,
			MaxDepth:        256,
			EntityCacheSize: 4096,
		},
		Performance: PerformanceConfig{
			IndexWorkers:     runtime.NumCPU(),
			BatchSize:        500,
			OptionsCacheSize: 64,
			WatchDebounce:    "200ms",
		},
		Server: ServerConfig{
			Transport: "stdio",
			LogLevel:  "info",
		},
	}
}

// GetUserConfigPath returns the path to the user configuration file:
//   - $XDG_CONFIG_HOME/ancestry/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/ancestry/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "ancestry", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "ancestry", "config.yaml")
	}
	return filepath.Join(home, ".config", "ancestry", "config.yaml")
}

// loadUserConfig loads the user configuration file if it exists.
// Returns nil config and nil error if the file doesn't exist.
func loadUserConfig() (*Config, error) {
	configPath := GetUserConfigPath()
	if !fileExists(configPath) {
		return nil, nil
	}

	var cfg Config
	if err := readYAML(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", configPath, err)
	}
	return &cfg, nil
}

// Load loads configuration for the project in dir. Precedence, lowest first:
//  1. Hardcoded defaults
//  2. User config (~/.config/ancestry/config.yaml)
//  3. Project config (.ancestry.yaml in dir)
//  4. Environment variables (ANCESTRY_*)
func Load(dir string) (*Config, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	cfg := NewConfig()
	cfg.dir = abs

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	projectPath := filepath.Join(abs, ProjectFileName)
	if fileExists(projectPath) {
		var project Config
		if err := readYAML(projectPath, &project); err != nil {
			return nil, err
		}
		cfg.mergeWith(&project)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func readYAML(path string, into *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, into); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// mergeWith copies non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if other.Index.ID != "" {
		c.Index.ID = other.Index.ID
	}
	if other.Index.Schema != "" {
		c.Index.Schema = other.Index.Schema
	}
	if other.Index.Hierarchy != "" {
		c.Index.Hierarchy = other.Index.Hierarchy
	}

	if other.Store.EntityDB != "" {
		c.Store.EntityDB = other.Store.EntityDB
	}
	if other.Store.SearchIndex != "" {
		c.Store.SearchIndex = other.Store.SearchIndex
	}

	if other.Traversal.MaxVisited != 0 {
		c.Traversal.MaxVisited = other.Traversal.MaxVisited
	}
	if other.Traversal.MaxDepth != 0 {
		c.Traversal.MaxDepth = other.Traversal.MaxDepth
	}
	if other.Traversal.EntityCacheSize != 0 {
		c.Traversal.EntityCacheSize = other.Traversal.EntityCacheSize
	}

	if other.Performance.IndexWorkers != 0 {
		c.Performance.IndexWorkers = other.Performance.IndexWorkers
	}
	if other.Performance.BatchSize != 0 {
		c.Performance.BatchSize = other.Performance.BatchSize
	}
	if other.Performance.OptionsCacheSize != 0 {
		c.Performance.OptionsCacheSize = other.Performance.OptionsCacheSize
	}
	if other.Performance.WatchDebounce != "" {
		c.Performance.WatchDebounce = other.Performance.WatchDebounce
	}

	if other.Server.Transport != "" {
		c.Server.Transport = other.Server.Transport
	}
	if other.Server.LogLevel != "" {
		c.Server.LogLevel = other.Server.LogLevel
	}
}

// applyEnvOverrides applies ANCESTRY_* environment variable overrides.
// Malformed numbers are ignored.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("ANCESTRY_INDEX"); v != "" {
		c.Index.ID = v
	}
	if v := os.Getenv("ANCESTRY_SCHEMA"); v != "" {
		c.Index.Schema = v
	}
	if v := os.Getenv("ANCESTRY_HIERARCHY"); v != "" {
		c.Index.Hierarchy = v
	}
	if v := os.Getenv("ANCESTRY_ENTITY_DB"); v != "" {
		c.Store.EntityDB = v
	}
	if v := os.Getenv("ANCESTRY_SEARCH_INDEX"); v != "" {
		c.Store.SearchIndex = v
	}
	if v := os.Getenv("ANCESTRY_MAX_VISITED"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Traversal.MaxVisited = n
		}
	}
	if v := os.Getenv("ANCESTRY_MAX_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Traversal.MaxDepth = n
		}
	}
	if v := os.Getenv("ANCESTRY_INDEX_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Performance.IndexWorkers = n
		}
	}
	if v := os.Getenv("ANCESTRY_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("ANCESTRY_TRANSPORT"); v != "" {
		c.Server.Transport = v
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Index.ID) == "" {
		return fmt.Errorf("index.id must not be empty")
	}
	if c.Index.Schema == "" {
		return fmt.Errorf("index.schema must not be empty")
	}
	if c.Index.Hierarchy == "" {
		return fmt.Errorf("index.hierarchy must not be empty")
	}
	if c.Store.EntityDB == "" || c.Store.SearchIndex == "" {
		return fmt.Errorf("store.entity_db and store.search_index must not be empty")
	}

	if c.Traversal.MaxVisited < 0 {
		return fmt.Errorf("traversal.max_visited must be non-negative, got %d", c.Traversal.MaxVisited)
	}
	if c.Traversal.MaxDepth < 0 {
		return fmt.Errorf("traversal.max_depth must be non-negative, got %d", c.Traversal.MaxDepth)
	}
	if c.Traversal.EntityCacheSize < 0 {
		return fmt.Errorf("traversal.entity_cache_size must be non-negative, got %d", c.Traversal.EntityCacheSize)
	}

	if c.Performance.IndexWorkers < 1 {
		return fmt.Errorf("performance.index_workers must be at least 1, got %d", c.Performance.IndexWorkers)
	}
	if c.Performance.BatchSize < 1 {
		return fmt.Errorf("performance.batch_size must be at least 1, got %d", c.Performance.BatchSize)
	}
	if c.Performance.OptionsCacheSize < 1 {
		return fmt.Errorf("performance.options_cache_size must be at least 1, got %d", c.Performance.OptionsCacheSize)
	}
	if _, err := time.ParseDuration(c.Performance.WatchDebounce); err != nil {
		return fmt.Errorf("performance.watch_debounce is not a duration: %w", err)
	}

	validTransports := map[string]bool{"stdio": true}
	if !validTransports[strings.ToLower(c.Server.Transport)] {
		return fmt.Errorf("server.transport must be 'stdio', got %s", c.Server.Transport)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return fmt.Errorf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
	}

	return nil
}

// Dir returns the project directory, empty for configurations not built by
// Load.
func (c *Config) Dir() string {
	return c.dir
}

// Path resolves p against the project directory unless it is absolute.
func (c *Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) || c.dir == "" {
		return p
	}
	return filepath.Join(c.dir, p)
}

// WatchDebounce returns the parsed watch debounce interval.
func (c *Config) WatchDebounce() time.Duration {
	d, err := time.ParseDuration(c.Performance.WatchDebounce)
	if err != nil {
		return 200 * time.Millisecond
	}
	return d
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// FindProjectRoot walks up from startDir looking for .ancestry.yaml or a
// .git directory. It returns startDir when neither is found.
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	currentDir := absDir
	for {
		if fileExists(filepath.Join(currentDir, ProjectFileName)) ||
			dirExists(filepath.Join(currentDir, ".git")) {
			return currentDir, nil
		}
		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return absDir, nil
		}
		currentDir = parentDir
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
