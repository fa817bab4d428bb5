package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "home-advisor.yaml")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestLoadDefaults(t *testing.T) {
	p := writeConfig(t, "log:\n  level: DEBUG\n")

	cfg, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.Equal(t, DefaultDataDir, cfg.Server.DataDir)
	assert.Equal(t, DefaultModelPath, cfg.Model.Path)
	assert.Equal(t, "paired", cfg.Price.Encoding)
	assert.Equal(t, "declared", cfg.Price.Columns)
	assert.Equal(t, "memory", cfg.History.Backend)
	assert.False(t, cfg.Price.ErrorGuard)
	assert.Equal(t, "DEBUG", cfg.Log.Level)
}

func TestLoadFullFile(t *testing.T) {
	p := writeConfig(t, `server:
  port: 9000
  data_dir: /var/lib/advisor
  headless: true
model:
  path: /models/forest.json.zst
  watch: true
price:
  encoding: yes-only
  columns: model
  error_guard: true
history:
  backend: sqlite
`)
	cfg, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.True(t, cfg.Server.Headless)
	assert.Equal(t, "/models/forest.json.zst", cfg.Model.Path)
	assert.True(t, cfg.Model.Watch)
	assert.Equal(t, "yes-only", cfg.Price.Encoding)
	assert.Equal(t, "model", cfg.Price.Columns)
	assert.True(t, cfg.Price.ErrorGuard)
	assert.Equal(t, "sqlite", cfg.History.Backend)
	assert.Equal(t, filepath.Join("/var/lib/advisor", "history.db"), cfg.SQLiteFile())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HOME_ADVISOR_SERVER_PORT", "9191")
	t.Setenv("HOME_ADVISOR_PRICE_ERROR_GUARD", "true")
	p := writeConfig(t, "server:\n  port: 9000\n")

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.Server.Port)
	assert.True(t, cfg.Price.ErrorGuard)
}

func TestLoadNoDefaultFile(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultPort, cfg.Server.Port)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load("/nonexistent/home-advisor.yaml")
	assert.Error(t, err)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad port", "server:\n  port: 70000\n"},
		{"bad encoding", "price:\n  encoding: onehot\n"},
		{"bad columns", "price:\n  columns: inferred\n"},
		{"bad backend", "history:\n  backend: redis\n"},
		{"empty model path", "model:\n  path: \"\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestSQLiteFileExplicit(t *testing.T) {
	cfg := Config{History: HistoryConfig{SQLitePath: "/tmp/h.db"}}
	assert.Equal(t, "/tmp/h.db", cfg.SQLiteFile())
}

func TestSettingsRoundTrip(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG_CONFIG_HOME only drives os.UserConfigDir on linux")
	}
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	s, err := LoadSettings()
	require.NoError(t, err)
	assert.Empty(t, s.ModelPath)

	require.NoError(t, SaveSettings(&Settings{ModelPath: "/models/a.json"}))

	s, err = LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, "/models/a.json", s.ModelPath)
}
