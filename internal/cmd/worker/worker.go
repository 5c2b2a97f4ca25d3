// Package worker parses worker command flags and launches the worker runtime.
package worker

import (
	"context"
	"flag"
	"strings"
	"time"

	entrypoint "github.com/johnqh/di-web/internal/platform/cmd"
	"github.com/johnqh/di-web/internal/platform/discovery"
	workerserver "github.com/johnqh/di-web/internal/services/worker/app"
)

// Config holds worker command configuration.
type Config struct {
	Port                int           `env:"DI_WEB_WORKER_PORT" envDefault:"8089"`
	HealthPort          int           `env:"DI_WEB_WORKER_HEALTH_PORT" envDefault:"8090"`
	UpstreamOrigin      string        `env:"DI_WEB_WORKER_UPSTREAM_ORIGIN"`
	AllowedHosts        string        `env:"DI_WEB_WORKER_ALLOWED_HOSTS"`
	DBPath              string        `env:"DI_WEB_WORKER_DB_PATH" envDefault:"data/worker.db"`
	Locale              string        `env:"DI_WEB_WORKER_LOCALE" envDefault:"en"`
	PushFeedURL         string        `env:"DI_WEB_WORKER_PUSH_FEED_URL"`
	ProbeInterval       time.Duration `env:"DI_WEB_WORKER_PROBE_INTERVAL" envDefault:"30s"`
	UpdateCheckInterval time.Duration `env:"DI_WEB_WORKER_UPDATE_CHECK_INTERVAL" envDefault:"24h"`
	RegistrationEnabled bool          `env:"DI_WEB_WORKER_REGISTRATION_ENABLED" envDefault:"true"`
	ForceRegistration   bool          `env:"DI_WEB_WORKER_FORCE_REGISTRATION" envDefault:"false"`
	MaxRetries          int           `env:"DI_WEB_WORKER_MAX_RETRIES" envDefault:"3"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	cfg.UpstreamOrigin = discovery.OrDefaultHTTPBaseURL(cfg.UpstreamOrigin, discovery.ServiceApp)
	cfg.PushFeedURL = discovery.OrDefaultWSBaseURL(cfg.PushFeedURL, discovery.ServicePushRelay)
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The worker gateway HTTP port")
	fs.IntVar(&cfg.HealthPort, "health-port", cfg.HealthPort, "The worker health gRPC server port")
	fs.StringVar(&cfg.UpstreamOrigin, "upstream-origin", cfg.UpstreamOrigin, "The application upstream origin URL")
	fs.StringVar(&cfg.AllowedHosts, "allowed-hosts", cfg.AllowedHosts, "Comma-separated extra hosts the worker may fetch")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The worker SQLite database path")
	fs.StringVar(&cfg.Locale, "locale", cfg.Locale, "The notification locale")
	fs.StringVar(&cfg.PushFeedURL, "push-feed-url", cfg.PushFeedURL, "The push relay websocket URL")
	fs.DurationVar(&cfg.ProbeInterval, "probe-interval", cfg.ProbeInterval, "Upstream connectivity probe interval")
	fs.DurationVar(&cfg.UpdateCheckInterval, "update-check-interval", cfg.UpdateCheckInterval, "Worker script update check interval")
	fs.BoolVar(&cfg.RegistrationEnabled, "registration-enabled", cfg.RegistrationEnabled, "Enable worker registration at startup")
	fs.BoolVar(&cfg.ForceRegistration, "force-registration", cfg.ForceRegistration, "Register even when registration is disabled")
	fs.IntVar(&cfg.MaxRetries, "max-retries", cfg.MaxRetries, "Maximum registration retries after the first attempt")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the worker runtime.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceWorker, func(context.Context) error {
		return workerserver.Run(ctx, workerserver.RuntimeConfig{
			Port:                cfg.Port,
			HealthPort:          cfg.HealthPort,
			UpstreamOrigin:      cfg.UpstreamOrigin,
			AllowedHosts:        splitHosts(cfg.AllowedHosts),
			DBPath:              cfg.DBPath,
			Locale:              cfg.Locale,
			PushFeedURL:         cfg.PushFeedURL,
			ProbeInterval:       cfg.ProbeInterval,
			UpdateCheckInterval: cfg.UpdateCheckInterval,
			RegistrationEnabled: cfg.RegistrationEnabled,
			ForceRegistration:   cfg.ForceRegistration,
			MaxRetries:          cfg.MaxRetries,
		})
	})
}

func splitHosts(raw string) []string {
	parts := strings.Split(raw, ",")
	hosts := make([]string, 0, len(parts))
	for _, part := range parts {
		if host := strings.TrimSpace(part); host != "" {
			hosts = append(hosts, host)
		}
	}
	return hosts
}
