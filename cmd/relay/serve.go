package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/eventrelay/internal/awsx"
	"github.com/alfredjeanlab/eventrelay/internal/bus"
	"github.com/alfredjeanlab/eventrelay/internal/generate"
	"github.com/alfredjeanlab/eventrelay/internal/server"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Start the HTTP publisher",
	GroupID: "workers",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		awsCfg, err := awsx.Load(ctx, cfg.AWSOptions())
		if err != nil {
			return err
		}

		reg := newRegistry()
		publisher := bus.NewPublisher(bus.NewAPI(awsCfg), cfg.Route(), generate.New(0), bus.NewMetrics(reg), logger)

		fanout, err := openEvents(cfg, logger)
		if err != nil {
			return err
		}
		defer fanout.Close()

		relay := server.NewRelayServer(publisher, fanout, cfg.Bus.Name, cfg.Bus.BatchSize, logger)
		httpServer := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           relay.NewHTTPHandler(cfg.AuthToken, server.NewHTTPMetrics(reg)),
			ReadHeaderTimeout: 10 * time.Second,
		}
		serveHTTP(httpServer, "HTTP server", logger)

		logger.Info("publisher started",
			"http_addr", cfg.HTTPAddr,
			"bus", cfg.Bus.Name,
			"region", cfg.AWS.Region,
			"endpoint", cfg.AWS.Endpoint,
			"auth", cfg.AuthToken != "",
		)

		<-ctx.Done()
		logger.Info("shutting down")
		shutdownHTTP(httpServer, "HTTP server", logger)
		logger.Info("shutdown complete")
		return nil
	},
}
