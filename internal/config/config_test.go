package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"API_PORT", "OLLAMA_HOST", "AUTH_REQUIRE_TENANT"} {
		os.Unsetenv(key)
	}

	cfg := Load()
	assert.Equal(t, 8000, cfg.APIPort)
	assert.Equal(t, "localhost", cfg.OllamaHost)
	assert.False(t, cfg.AuthRequireTenant)
	assert.Equal(t, "X-Tenant-Id", cfg.HeaderTenantKey)
}

func TestLoad_Overrides(t *testing.T) {
	os.Setenv("API_PORT", "9000")
	os.Setenv("AUTH_REQUIRE_TENANT", "true")
	defer os.Unsetenv("API_PORT")
	defer os.Unsetenv("AUTH_REQUIRE_TENANT")

	cfg := Load()
	assert.Equal(t, 9000, cfg.APIPort)
	assert.True(t, cfg.AuthRequireTenant)
}

func TestGetEnvInt_InvalidFallsBackToDefault(t *testing.T) {
	os.Setenv("API_PORT", "not-a-number")
	defer os.Unsetenv("API_PORT")

	cfg := Load()
	assert.Equal(t, 8000, cfg.APIPort)
}
