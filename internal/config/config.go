package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the addon settings, read from the environment.
type Config struct {
	// AddonHost is the public (external) base URL where the addon is accessible.
	AddonHost string `env:"ADDON_HOST" envDefault:"http://127.0.0.1:3594"`
	// ServerListenAddr specifies the network address that the HTTP server will listen on.
	ServerListenAddr string `env:"SERVER_LISTEN_ADDR" envDefault:":3594"`

	// CartoonyBaseURL is the scraped site origin.
	CartoonyBaseURL string `env:"CARTOONY_BASE_URL" envDefault:"https://cartoony.net"`
	// HTTPTimeout bounds every outbound request to the site.
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"10s"`
	// OutboundRPS caps requests per second sent to the site, 0 disables the limit.
	OutboundRPS float64 `env:"OUTBOUND_RPS" envDefault:"5"`

	// CacheDir is where badger keeps memoized catalogs and metas.
	CacheDir string `env:"CACHE_DIR" envDefault:".cache"`

	ServiceName        string `env:"SERVICE_NAME" envDefault:"stremio-cartoony"`
	ServiceVersion     string `env:"SERVICE_VERSION" envDefault:"0.0.1"`
	ServiceEnvironment string `env:"SERVICE_ENVIRONMENT" envDefault:"lcl"`
	// OTLPEndpoint is the OpenTelemetry collector gRPC endpoint. Telemetry export is off when empty.
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// LokiHost is queried for the stats websocket. Stats polling is off when empty.
	LokiHost string `env:"LOKI_HOST"`
	// LogFile, when set, also writes logs to a rotated file.
	LogFile string `env:"LOG_FILE"`
	// StatsWebsocketChannel is the centrifuge channel stats are published on.
	StatsWebsocketChannel string `env:"STATS_WEBSOCKET_CHANNEL" envDefault:"stats"`
}

// Load parses the environment into a Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to env.Parse: %w", err)
	}

	u, err := url.Parse(cfg.AddonHost)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ADDON_HOST: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid ADDON_HOST %q, scheme and host are required", cfg.AddonHost)
	}
	cfg.AddonHost = fmt.Sprintf("%s://%s", u.Scheme, u.Host)

	if cfg.OutboundRPS < 0 {
		return nil, fmt.Errorf("invalid OUTBOUND_RPS %v", cfg.OutboundRPS)
	}

	return cfg, nil
}
