package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the runtime configuration of the addon, populated from
// the environment.
type Config struct {
	// AddonHost is the public (external) base URL where the addon is accessible.
	AddonHost string `env:"ADDON_HOST" envDefault:"http://127.0.0.1:7015"`
	// ServerListenAddr is the network address the HTTP server listens on.
	ServerListenAddr string `env:"SERVER_LISTEN_ADDR" envDefault:":7015"`
	// UpstreamBaseURL is the Cineby site, scraped for the build id and
	// hosting the identifier-scoped data endpoints.
	UpstreamBaseURL string `env:"UPSTREAM_BASE_URL" envDefault:"https://www.cineby.app"`
	// UpstreamAPIBaseURL is the identifier-independent stream sources API.
	UpstreamAPIBaseURL string `env:"UPSTREAM_API_BASE_URL" envDefault:"https://api.cineby.app"`
	// SessionTTL bounds how long a scraped build id is reused without a
	// new homepage fetch.
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"1h"`
	// CachePath is the on-disk location of the response cache.
	CachePath string `env:"CACHE_PATH" envDefault:".cache"`
	// ServiceEnvironment tags telemetry and enables stdout logging in
	// local environments ("lcl", "dk").
	ServiceEnvironment string `env:"SERVICE_ENVIRONMENT" envDefault:"lcl"`
	// OtelExporterEndpoint is the OTLP gRPC collector endpoint.
	OtelExporterEndpoint string `env:"OTEL_EXPORTER_ENDPOINT" envDefault:"127.0.0.1:4317"`
	// LokiHost is the Loki instance queried for 24h usage stats.
	LokiHost string `env:"LOKI_HOST" envDefault:"http://127.0.0.1:3100"`
	// StatsWebsocketChannel is the channel live stats are broadcast on.
	StatsWebsocketChannel string `env:"STATS_WEBSOCKET_CHANNEL" envDefault:"stats"`
	// RequestsPerMinute caps inbound requests per client IP.
	RequestsPerMinute int `env:"REQUESTS_PER_MINUTE" envDefault:"120"`
}

// Load parses the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to env.Parse: %w", err)
	}

	u, err := url.Parse(cfg.AddonHost)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ADDON_HOST: %w", err)
	}
	cfg.AddonHost = fmt.Sprintf("%s://%s", u.Scheme, u.Host)

	if _, err := url.Parse(cfg.UpstreamBaseURL); err != nil {
		return nil, fmt.Errorf("failed to parse UPSTREAM_BASE_URL: %w", err)
	}
	if _, err := url.Parse(cfg.UpstreamAPIBaseURL); err != nil {
		return nil, fmt.Errorf("failed to parse UPSTREAM_API_BASE_URL: %w", err)
	}

	return cfg, nil
}
