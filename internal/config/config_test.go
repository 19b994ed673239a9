package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the user config at an empty directory.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
}

func TestNewConfig_ReturnsDefaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, "default", cfg.Index.ID)
	assert.Equal(t, "schema.yaml", cfg.Index.Schema)
	assert.Equal(t, filepath.Join(".ancestry", "hierarchy.yaml"), cfg.Index.Hierarchy)
	assert.Equal(t, filepath.Join(".ancestry", "entities.db"), cfg.Store.EntityDB)
	assert.Equal(t, 10000, cfg.Traversal.MaxVisited)
	assert.Equal(t, 256, cfg.Traversal.MaxDepth)
	assert.Equal(t, runtime.NumCPU(), cfg.Performance.IndexWorkers)
	assert.Equal(t, "stdio", cfg.Server.Transport)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_NoFilesUsesDefaults(t *testing.T) {
	isolate(t)
	dir := t.TempDir()

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "default", cfg.Index.ID)
	assert.Equal(t, filepath.Join(dir, "schema.yaml"), cfg.Path(cfg.Index.Schema))
}

func TestLoad_Precedence(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	userPath := filepath.Join(xdg, "ancestry", "config.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(userPath), 0755))
	require.NoError(t, os.WriteFile(userPath, []byte(`
index:
  id: user-index
traversal:
  max_depth: 32
server:
  log_level: warn
`), 0644))

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProjectFileName), []byte(`
index:
  id: repository
  schema: conf/schema.yaml
traversal:
  max_visited: 500
`), 0644))

	t.Setenv("ANCESTRY_LOG_LEVEL", "debug")
	t.Setenv("ANCESTRY_INDEX_WORKERS", "3")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "repository", cfg.Index.ID, "project overrides user")
	assert.Equal(t, 32, cfg.Traversal.MaxDepth, "user overrides default")
	assert.Equal(t, 500, cfg.Traversal.MaxVisited)
	assert.Equal(t, "debug", cfg.Server.LogLevel, "env overrides everything")
	assert.Equal(t, 3, cfg.Performance.IndexWorkers)
	assert.Equal(t, filepath.Join(dir, "conf", "schema.yaml"), cfg.Path(cfg.Index.Schema))
}

func TestLoad_EnvIgnoresMalformedNumbers(t *testing.T) {
	isolate(t)
	t.Setenv("ANCESTRY_MAX_DEPTH", "deep")
	t.Setenv("ANCESTRY_INDEX_WORKERS", "0")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 256, cfg.Traversal.MaxDepth)
	assert.Equal(t, runtime.NumCPU(), cfg.Performance.IndexWorkers)
}

func TestLoad_InvalidProjectFile(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProjectFileName), []byte("index: [oops"), 0644))

	_, err := Load(dir)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"empty index id", func(c *Config) { c.Index.ID = " " }, "index.id"},
		{"negative depth", func(c *Config) { c.Traversal.MaxDepth = -1 }, "max_depth"},
		{"zero workers", func(c *Config) { c.Performance.IndexWorkers = 0 }, "index_workers"},
		{"bad debounce", func(c *Config) { c.Performance.WatchDebounce = "soon" }, "watch_debounce"},
		{"bad transport", func(c *Config) { c.Server.Transport = "carrier-pigeon" }, "transport"},
		{"bad level", func(c *Config) { c.Server.LogLevel = "loud" }, "log_level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestConfig_PathAndDebounce(t *testing.T) {
	cfg := NewConfig()
	assert.Equal(t, "schema.yaml", cfg.Path("schema.yaml"), "no project dir")

	cfg.dir = "/srv/project"
	assert.Equal(t, "/srv/project/schema.yaml", cfg.Path("schema.yaml"))
	assert.Equal(t, "/etc/schema.yaml", cfg.Path("/etc/schema.yaml"))
	assert.Equal(t, 200*time.Millisecond, cfg.WatchDebounce())
}

func TestWriteYAML_RoundTrip(t *testing.T) {
	isolate(t)
	dir := t.TempDir()

	cfg := NewConfig()
	cfg.Index.ID = "repository"
	cfg.Traversal.MaxDepth = 12
	require.NoError(t, cfg.WriteYAML(filepath.Join(dir, ProjectFileName)))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "repository", loaded.Index.ID)
	assert.Equal(t, 12, loaded.Traversal.MaxDepth)
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ProjectFileName), []byte("version: 1\n"), 0644))
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))

	found, err := FindProjectRoot(nested)
	require.NoError(t, err)
	assert.Equal(t, root, found)
}
