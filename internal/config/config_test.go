package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csheth/sanctuary/internal/i18n"
)

func isolatedOptions(t *testing.T) Options {
	t.Helper()
	for _, key := range []string{"SANCTUARY_LLM_API_KEY", "GEMINI_API_KEY", "API_KEY", "PORT", "SANCTUARY_SERVER_PORT"} {
		t.Setenv(key, "")
	}
	return Options{EnvFile: filepath.Join(t.TempDir(), "missing.env")}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(isolatedOptions(t))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8000", cfg.Address())
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, 2*time.Minute, cfg.LLM.Timeout)
	assert.Equal(t, 3*time.Minute, cfg.Server.WriteTimeout)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "memory", cfg.Session.Store)
	assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
	assert.Equal(t, int64(20<<20), cfg.Document.MaxBytes)
	assert.Equal(t, i18n.English, cfg.Language())
	assert.Empty(t, cfg.LLM.APIKey)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	opts := isolatedOptions(t)
	t.Setenv("SANCTUARY_LLM_PROVIDER", "openai")
	t.Setenv("SANCTUARY_LLM_TIMEOUT", "45s")
	t.Setenv("SANCTUARY_UI_LANGUAGE", "ar")
	t.Setenv("GEMINI_API_KEY", "from-gemini-var")
	t.Setenv("PORT", "9123")

	cfg, err := Load(opts)
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, 45*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, i18n.Arabic, cfg.Language())
	assert.Equal(t, "from-gemini-var", cfg.LLM.APIKey)
	assert.Equal(t, 9123, cfg.Server.Port)
	assert.Equal(t, "openai", cfg.LLM.ClientConfig().Provider)
}

func TestPrefixedKeyWinsOverFallbacks(t *testing.T) {
	opts := isolatedOptions(t)
	t.Setenv("SANCTUARY_LLM_API_KEY", "primary")
	t.Setenv("API_KEY", "secondary")

	cfg, err := Load(opts)
	require.NoError(t, err)
	assert.Equal(t, "primary", cfg.LLM.APIKey)
}

func TestLoadConfigFile(t *testing.T) {
	opts := isolatedOptions(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "sanctuary.yaml")
	body := `server:
  port: 8100
  cors_origins: ["http://localhost:3000"]
session:
  store: redis
  redis_addr: "redis:6379"
  ttl: 30m
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	opts.ConfigFile = path

	cfg, err := Load(opts)
	require.NoError(t, err)
	assert.Equal(t, 8100, cfg.Server.Port)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "redis", cfg.Session.Store)
	assert.Equal(t, "redis:6379", cfg.Session.RedisAddr)
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoadEnvFile(t *testing.T) {
	opts := isolatedOptions(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SANCTUARY_LLM_MODEL=dotenv-model\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("SANCTUARY_LLM_MODEL") })
	opts.EnvFile = path

	cfg, err := Load(opts)
	require.NoError(t, err)
	assert.Equal(t, "dotenv-model", cfg.LLM.Model)
}

func TestValidateRejectsUnknownValues(t *testing.T) {
	cases := map[string]struct {
		key   string
		value string
		want  string
	}{
		"provider": {key: "SANCTUARY_LLM_PROVIDER", value: "carrier-pigeon", want: "llm.provider"},
		"store":    {key: "SANCTUARY_SESSION_STORE", value: "floppy", want: "session.store"},
		"language": {key: "SANCTUARY_UI_LANGUAGE", value: "fr", want: "ui.language"},
		"format":   {key: "SANCTUARY_LOG_FORMAT", value: "xml", want: "log.format"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			opts := isolatedOptions(t)
			t.Setenv(tc.key, tc.value)
			_, err := Load(opts)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
