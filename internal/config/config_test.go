package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"threadgenius/internal/model"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 5, cfg.Generation.Count)
	assert.Equal(t, model.MaxCharsStandard, cfg.Generation.MaxChars())
	assert.InDelta(t, 0.7, float64(cfg.LLM.DraftTemperature), 1e-6)
	assert.InDelta(t, 0.4, float64(cfg.LLM.RewriteTemperature), 1e-6)
}

func TestShortModeCap(t *testing.T) {
	g := GenerationConfig{Mode: ModeShort}
	assert.Equal(t, model.MaxCharsShort, g.MaxChars())
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]func(*Config){
		"provider":   func(c *Config) { c.LLM.Provider = "mystery" },
		"count":      func(c *Config) { c.Generation.Count = 0 },
		"mode":       func(c *Config) { c.Generation.Mode = "long" },
		"persona":    func(c *Config) { c.Personas = []model.Persona{{Name: "x"}} },
		"no persona": func(c *Config) { c.Personas = nil },
		"feed":       func(c *Config) { c.Feeds = []string{"not a url"} },
		"quiet hour": func(c *Config) { c.Publishing.QuietHours = []int{24} },
		"db path":    func(c *Config) { c.Storage.DBPath = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSaveLoadKeepsDefaultsForMissingFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	cfg := Default()
	cfg.Generation.ForcedTopicTag = "Web集客"
	cfg.LLM.CallTimeout = 45 * time.Second
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Web集客", got.Generation.ForcedTopicTag)
	assert.Equal(t, 45*time.Second, got.LLM.CallTimeout)
	assert.Len(t, got.Personas, len(model.DefaultPersonas()))

	partial := filepath.Join(dir, "partial.yaml")
	require.NoError(t, os.WriteFile(partial, []byte("generation:\n  count: 3\n"), 0o644))
	got, err = Load(partial)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Generation.Count)
	assert.Equal(t, "anthropic", got.LLM.Provider)
}

func TestSaveEmptyPath(t *testing.T) {
	assert.Error(t, Save("", Default()))
}

func TestResolveEnv(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("THREADS_ACCESS_TOKEN", "tok")
	t.Setenv("THREADS_USER_ID", "42")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := Default()
	cfg.Threads.UserID = "from-file"
	cfg.ResolveEnv()

	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, "tok", cfg.Threads.AccessToken)
	assert.Equal(t, "from-file", cfg.Threads.UserID)
	assert.Equal(t, "debug", cfg.Log.Level)
}
