package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/gridcore/internal/config"
	"github.com/rshade/gridcore/selection"
)

// writeOverlay is a test helper that writes YAML content to a temp file
// and returns its path.
func writeOverlay(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "overlay.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestNewDefaults(t *testing.T) {
	// Point GRIDCORE_HOME at an empty dir so the developer's real config
	// cannot leak into the test.
	t.Setenv("GRIDCORE_HOME", t.TempDir())

	cfg := config.New()
	assert.Equal(t, 50, cfg.Grid.PageSize)
	assert.Equal(t, 10, cfg.Grid.Buffer)
	assert.Equal(t, 100, cfg.Grid.ProbeIncrement)
	assert.Equal(t, "multi", cfg.Grid.SelectionMode)
	assert.False(t, cfg.Grid.MultiSort)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 10000, cfg.Demo.Rows)
	require.NoError(t, cfg.Validate())
}

func TestNewLoadsHomeConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("GRIDCORE_HOME", home)
	content := `
grid:
  page_size: 25
  buffer: 5
  probe_increment: 100
  selection_mode: single
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(home, "config.yaml"), []byte(content), 0600))

	cfg := config.New()
	assert.Equal(t, 25, cfg.Grid.PageSize)
	assert.Equal(t, "single", cfg.Grid.SelectionMode)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Untouched section keeps defaults.
	assert.Equal(t, 10000, cfg.Demo.Rows)
}

func TestShallowMergeYAML(t *testing.T) {
	t.Setenv("GRIDCORE_HOME", t.TempDir())

	t.Run("SectionReplacement", func(t *testing.T) {
		cfg := config.New()
		overlay := writeOverlay(t, `
grid:
  page_size: 200
`)
		require.NoError(t, config.ShallowMergeYAML(cfg, overlay))
		assert.Equal(t, 200, cfg.Grid.PageSize)
		// Shallow merge replaces the whole section; unset fields zero out.
		assert.Equal(t, 0, cfg.Grid.Buffer)
		// Absent sections are untouched.
		assert.Equal(t, "info", cfg.Logging.Level)
	})

	t.Run("UnknownKeysIgnored", func(t *testing.T) {
		cfg := config.New()
		overlay := writeOverlay(t, `
widgets:
  count: 3
demo:
  rows: 42
`)
		require.NoError(t, config.ShallowMergeYAML(cfg, overlay))
		assert.Equal(t, 42, cfg.Demo.Rows)
	})

	t.Run("EmptyFile", func(t *testing.T) {
		cfg := config.New()
		overlay := writeOverlay(t, "# comments only\n")
		require.NoError(t, config.ShallowMergeYAML(cfg, overlay))
		assert.Equal(t, 50, cfg.Grid.PageSize)
	})

	t.Run("MissingFile", func(t *testing.T) {
		cfg := config.New()
		err := config.ShallowMergeYAML(cfg, filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("MalformedYAML", func(t *testing.T) {
		cfg := config.New()
		overlay := writeOverlay(t, "grid: [broken")
		assert.Error(t, config.ShallowMergeYAML(cfg, overlay))
	})

	t.Run("NilTarget", func(t *testing.T) {
		assert.Error(t, config.ShallowMergeYAML(nil, "whatever.yaml"))
	})
}

func TestValidate(t *testing.T) {
	t.Setenv("GRIDCORE_HOME", t.TempDir())

	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{name: "ZeroPageSize", mutate: func(c *config.Config) { c.Grid.PageSize = 0 }},
		{name: "NegativeBuffer", mutate: func(c *config.Config) { c.Grid.Buffer = -1 }},
		{name: "ZeroProbeIncrement", mutate: func(c *config.Config) { c.Grid.ProbeIncrement = 0 }},
		{name: "BadSelectionMode", mutate: func(c *config.Config) { c.Grid.SelectionMode = "lasso" }},
		{name: "NegativeRows", mutate: func(c *config.Config) { c.Demo.Rows = -5 }},
		{name: "BadSortExpression", mutate: func(c *config.Config) { c.Demo.Sort = []string{"name:sideways"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.New()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSelectionModeParsing(t *testing.T) {
	t.Setenv("GRIDCORE_HOME", t.TempDir())

	cfg := config.New()
	cfg.Grid.SelectionMode = "single"
	assert.Equal(t, selection.ModeSingle, cfg.SelectionMode())

	cfg.Grid.SelectionMode = "garbage"
	assert.Equal(t, selection.ModeMulti, cfg.SelectionMode())
}

func TestGetConfigDir(t *testing.T) {
	t.Setenv("GRIDCORE_HOME", "/opt/gridcore-home")
	dir, err := config.GetConfigDir()
	require.NoError(t, err)
	assert.Equal(t, "/opt/gridcore-home", dir)
}
