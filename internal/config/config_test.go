package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "env: production\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Port)
	assert.False(t, cfg.IsDev())
	assert.Equal(t, 900, cfg.Interpretation.MinLength)
	assert.Equal(t, 1400, cfg.Interpretation.MaxLength)
	assert.Equal(t, "fr", cfg.Interpretation.DefaultLang)
	assert.Equal(t, 2, cfg.Interpretation.Version)
	assert.Contains(t, cfg.DSN, "tcp(127.0.0.1:3306)/astroia")
	assert.Equal(t, "best-astrology-api.p.rapidapi.com", cfg.Astro.Host)
}

func TestLoadExplicitValues(t *testing.T) {
	path := writeConfig(t, `
port: 9000
env: development
interpretation:
  min_length: 500
  max_length: 800
astro:
  base_url: https://astro.example.com
  api_key: k123
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.True(t, cfg.IsDev())
	assert.Equal(t, 500, cfg.Interpretation.MinLength)
	assert.Equal(t, "astro.example.com", cfg.Astro.Host)
	assert.Equal(t, "k123", cfg.Astro.APIKey)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, "nonsense_field: 1\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsInvertedLengthBounds(t *testing.T) {
	path := writeConfig(t, `
interpretation:
  min_length: 1500
  max_length: 1400
`)
	_, err := Load(path)
	assert.ErrorContains(t, err, "min_length")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("RAPIDAPI_KEY", "env-rapid-key")
	t.Setenv("ASTROIA_API_TOKEN", "env-token")

	path := writeConfig(t, "env: production\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-rapid-key", cfg.Astro.APIKey)
	assert.Equal(t, "env-token", cfg.APIToken)
}
