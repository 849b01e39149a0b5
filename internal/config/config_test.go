package config_test

import (
	"testing"
	"time"

	"github.com/ogero/stremio-cartoony/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:3594", cfg.AddonHost)
	assert.Equal(t, ":3594", cfg.ServerListenAddr)
	assert.Equal(t, "https://cartoony.net", cfg.CartoonyBaseURL)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 5.0, cfg.OutboundRPS)
	assert.Empty(t, cfg.OTLPEndpoint)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ADDON_HOST", "https://addon.example/some/path?x=1")
	t.Setenv("HTTP_TIMEOUT", "3s")
	t.Setenv("OUTBOUND_RPS", "0")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "https://addon.example", cfg.AddonHost)
	assert.Equal(t, 3*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 0.0, cfg.OutboundRPS)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"addon host without scheme", "ADDON_HOST", "addon.example"},
		{"bad timeout", "HTTP_TIMEOUT", "soon"},
		{"negative rps", "OUTBOUND_RPS", "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := config.Load()
			assert.Error(t, err)
		})
	}
}
