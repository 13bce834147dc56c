package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "APP_ENV", "NODE_ENV", "DOMAIN", "CLIENT_URL", "GOOGLE_CALLBACK_URL",
		"GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET", "SESSION_SECRET", "SESSION_COOKIE_NAME",
		"COOKIE_DOMAIN", "SESSION_TTL", "SESSION_STORE", "SESSION_DB_PATH", "SESSION_SWEEP_INTERVAL",
		"INFERENCE_PROVIDER", "INFERENCE_TIMEOUT", "HUGGINGFACE_API_KEY", "HF_MODEL", "HF_BASE_URL",
		"ARK_API_KEY", "ARK_ACCESS_KEY", "ARK_SECRET_KEY", "ARK_MODEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":80", cfg.Server.Addr)
	assert.Equal(t, EnvDevelopment, cfg.Server.Environment)
	assert.False(t, cfg.Server.Production())
	assert.Equal(t, "http://localhost:5000/auth/google/callback", cfg.Auth.CallbackURL)
	assert.False(t, cfg.Auth.Enabled())

	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
	assert.Equal(t, StoreMemory, cfg.Session.Store)
	assert.False(t, cfg.Session.Secure)
	assert.Empty(t, cfg.Session.CookieDomain)
	assert.True(t, cfg.Session.GeneratedSecret)
	assert.Len(t, cfg.Session.Secret, 32)

	assert.Equal(t, ProviderHuggingFace, cfg.Inference.Provider)
	assert.Equal(t, "distilgpt2", cfg.Inference.HuggingFace.Model)
	assert.Zero(t, cfg.Inference.Timeout)
}

func TestLoadProduction(t *testing.T) {
	clearEnv(t)
	t.Setenv("NODE_ENV", "production")
	t.Setenv("DOMAIN", "api.example.com")
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("PORT", "127.0.0.1:9000")
	t.Setenv("CLIENT_URL", "https://app.example.com/")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Server.Production())
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, "https://app.example.com", cfg.Server.ClientURL)
	assert.Equal(t, "https://api.example.com/auth/google/callback", cfg.Auth.CallbackURL)
	assert.True(t, cfg.Session.Secure)
	assert.Equal(t, ".api.example.com", cfg.Session.CookieDomain)
	assert.Equal(t, []byte("s3cret"), cfg.Session.Secret)
	assert.False(t, cfg.Session.GeneratedSecret)
}

func TestLoadProductionRequiresSecret(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "production")

	_, err := Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSessionSecretRequired))
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string][2]string{
		"port":     {"PORT", "80 80"},
		"store":    {"SESSION_STORE", "redis"},
		"provider": {"INFERENCE_PROVIDER", "openai"},
		"ttl":      {"SESSION_TTL", "-1h"},
	}

	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(kv[0], kv[1])

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestArkConfigEnabled(t *testing.T) {
	assert.False(t, ArkConfig{APIKey: "k"}.Enabled())
	assert.True(t, ArkConfig{APIKey: "k", Model: "m"}.Enabled())
	assert.True(t, ArkConfig{AccessKey: "a", SecretKey: "s", Model: "m"}.Enabled())
}
