package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/alfredjeanlab/eventrelay/internal/config"
	"github.com/alfredjeanlab/eventrelay/internal/dedup"
	"github.com/alfredjeanlab/eventrelay/internal/events"
)

const shutdownTimeout = 10 * time.Second

// newRegistry returns a registry with the Go runtime and process collectors.
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// openEvents connects the NATS fan-out, or returns a Noop publisher when no
// NATS URL is configured.
func openEvents(cfg *config.Config, logger *slog.Logger) (events.Publisher, error) {
	if cfg.NATS.URL == "" {
		logger.Info("events disabled (RELAY_NATS_URL not set)")
		return &events.NoopPublisher{}, nil
	}
	pub, err := events.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.Prefix)
	if err != nil {
		return nil, err
	}
	logger.Info("events enabled", "nats_url", cfg.NATS.URL, "prefix", cfg.NATS.Prefix)
	return pub, nil
}

// openDedup builds the configured dedup set. The returned close function is
// never nil.
func openDedup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (dedup.Set, func() error, error) {
	noClose := func() error { return nil }
	switch cfg.Dedup.Backend {
	case config.DedupMemory:
		logger.Info("dedup enabled", "backend", "memory", "ttl", cfg.Dedup.TTL, "capacity", cfg.Dedup.Capacity)
		return dedup.NewMemory(cfg.Dedup.TTL, cfg.Dedup.Capacity), noClose, nil
	case config.DedupRedis:
		r, err := dedup.DialRedis(ctx, cfg.Dedup.RedisURL, cfg.Dedup.KeyPrefix, cfg.Dedup.TTL)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("dedup enabled", "backend", "redis", "ttl", cfg.Dedup.TTL)
		return r, r.Close, nil
	case config.DedupNone, "":
		return dedup.Noop{}, noClose, nil
	default:
		return nil, nil, fmt.Errorf("unknown dedup backend %q", cfg.Dedup.Backend)
	}
}

// serveHTTP runs srv in the background and logs unexpected exits.
func serveHTTP(srv *http.Server, name string, logger *slog.Logger) {
	go func() {
		logger.Info(name+" listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(name+" error", "err", err)
		}
	}()
}

// shutdownHTTP stops srv, waiting up to shutdownTimeout for open requests.
func shutdownHTTP(srv *http.Server, name string, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error(name+" shutdown error", "err", err)
	}
	logger.Info(name + " stopped")
}
