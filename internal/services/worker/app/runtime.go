// Package app wires the worker runtime: persistent cache storage, the
// worker host and registration controller, the HTTP gateway, the push feed
// subscription, the connectivity watcher, and the gRPC health surface.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/johnqh/di-web/internal/platform/id"
	"github.com/johnqh/di-web/internal/platform/timeouts"
	"github.com/johnqh/di-web/internal/registration"
	"github.com/johnqh/di-web/internal/services/worker/assets"
	"github.com/johnqh/di-web/internal/services/worker/domain"
	"github.com/johnqh/di-web/internal/services/worker/host"
	"github.com/johnqh/di-web/internal/services/worker/metrics"
	"github.com/johnqh/di-web/internal/services/worker/storage/sqlite"
	"github.com/johnqh/di-web/internal/telemetry"
)

// RuntimeConfig controls gateway startup, dependencies, and lifecycle.
type RuntimeConfig struct {
	Port                int
	HealthPort          int
	UpstreamOrigin      string
	AllowedHosts        []string
	DBPath              string
	Locale              string
	PushFeedURL         string
	ProbeInterval       time.Duration
	UpdateCheckInterval time.Duration
	RegistrationEnabled bool
	ForceRegistration   bool
	MaxRetries          int
}

const (
	defaultGatewayPort   = 8089
	defaultHealthPort    = 8090
	defaultWorkerDB      = "data/worker.db"
	defaultProbeInterval = 30 * time.Second
)

// Run starts the worker runtime and blocks until ctx ends or a server
// fails.
func Run(ctx context.Context, cfg RuntimeConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(cfg.UpstreamOrigin) == "" {
		return fmt.Errorf("upstream origin is required")
	}
	origin, err := url.Parse(cfg.UpstreamOrigin)
	if err != nil {
		return fmt.Errorf("parse upstream origin: %w", err)
	}
	if cfg.Port <= 0 {
		cfg.Port = defaultGatewayPort
	}
	if cfg.HealthPort <= 0 {
		cfg.HealthPort = defaultHealthPort
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = defaultWorkerDB
	}
	if cfg.ProbeInterval <= 0 {
		cfg.ProbeInterval = defaultProbeInterval
	}

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create worker storage dir: %w", err)
		}
	}
	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open worker sqlite store: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			log.Printf("close worker sqlite store: %v", closeErr)
		}
	}()

	events := telemetry.NewEmitter(store)
	fetcher := newUpstreamFetcher(origin)
	source := host.ScriptSourceFunc(func(ctx context.Context, path string) ([]byte, error) {
		if path != assets.ScriptPath {
			return nil, fmt.Errorf("unknown worker script %s", path)
		}
		return assets.Script()
	})

	workerHost, err := host.New(host.Config{
		Source:       source,
		Store:        store,
		Fetcher:      fetcher,
		Notifier:     &eventNotifier{events: events},
		Observer:     metrics.NewObserver(),
		Events:       events,
		Origin:       origin,
		AllowedHosts: cfg.AllowedHosts,
		Locale:       cfg.Locale,
		Clock:        time.Now,
		NewID:        id.NewID,
	})
	if err != nil {
		return fmt.Errorf("build worker host: %w", err)
	}

	// The load signal holds registration back until the gateway listens.
	load := make(chan struct{})
	controller := registration.New(registration.Config{
		Registrar:           workerHost,
		Enabled:             cfg.RegistrationEnabled,
		ForceEnable:         cfg.ForceRegistration,
		OriginURL:           cfg.UpstreamOrigin,
		MaxRetries:          cfg.MaxRetries,
		UpdateCheckInterval: cfg.UpdateCheckInterval,
		LoadSignal:          load,
		OnStateChange: func(state registration.State) {
			log.Printf("registration state: %s", state)
			metrics.RecordRegistrationState(string(state))
		},
	})

	gateway := NewGateway(workerHost, controller, fetcher, store)
	httpListener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return fmt.Errorf("listen on gateway port %d: %w", cfg.Port, err)
	}
	defer httpListener.Close()
	httpServer := &http.Server{
		Handler:           otelhttp.NewHandler(gateway, "worker-gateway"),
		ReadHeaderTimeout: timeouts.ReadHeader,
	}
	httpErr := make(chan error, 1)
	go func() {
		httpErr <- httpServer.Serve(httpListener)
	}()

	healthListener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.HealthPort))
	if err != nil {
		return fmt.Errorf("listen on health port %d: %w", cfg.HealthPort, err)
	}
	defer healthListener.Close()
	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus("worker.gateway", grpc_health_v1.HealthCheckResponse_SERVING)
	grpcErr := make(chan error, 1)
	go func() {
		grpcErr <- grpcServer.Serve(healthListener)
	}()
	defer func() {
		healthServer.Shutdown()
		grpcServer.GracefulStop()
		<-grpcErr
	}()

	controller.Start(ctx)
	watcher := newConnectivityWatcher(origin, cfg.ProbeInterval, func(ctx context.Context) {
		if err := workerHost.Sync(ctx, domain.SyncTagResync); err != nil && !errors.Is(err, host.ErrNotRegistered) {
			log.Printf("resync after connectivity restore: %v", err)
		}
	})
	go watcher.run(ctx)
	if strings.TrimSpace(cfg.PushFeedURL) != "" {
		feed := newPushFeed(cfg.PushFeedURL, cfg.UpstreamOrigin, func(ctx context.Context, payload []byte) error {
			err := workerHost.Push(ctx, payload)
			if errors.Is(err, host.ErrNotRegistered) {
				return nil
			}
			return err
		})
		go feed.run(ctx)
	}

	close(load)
	log.Printf("worker gateway listening at %v, health at %v", httpListener.Addr(), healthListener.Addr())

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		err := httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown gateway: %w", err)
		}
		<-httpErr
		return nil
	case err := <-httpErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve gateway: %w", err)
	}
}
