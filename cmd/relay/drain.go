package main

import (
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc/health"

	"github.com/alfredjeanlab/eventrelay/internal/awsx"
	"github.com/alfredjeanlab/eventrelay/internal/drain"
	"github.com/alfredjeanlab/eventrelay/internal/quarantine"
	"github.com/alfredjeanlab/eventrelay/internal/queue"
	"github.com/alfredjeanlab/eventrelay/internal/server"
)

var drainCmd = &cobra.Command{
	Use:     "drain",
	Short:   "Drain the student event queue on a cron schedule",
	GroupID: "workers",
	RunE: func(cmd *cobra.Command, args []string) error {
		once, _ := cmd.Flags().GetBool("once")

		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.ValidateDrain(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		awsCfg, err := awsx.Load(ctx, cfg.AWSOptions())
		if err != nil {
			return err
		}

		reg := newRegistry()
		drainer := drain.New(
			queue.New(queue.NewAPI(awsCfg), cfg.Drain.QueueURL),
			drain.Options{MaxMessages: cfg.Drain.MaxMessages, WaitTime: cfg.Drain.WaitTime},
			logger,
		).WithMetrics(drain.NewMetrics(reg))

		seen, closeSeen, err := openDedup(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer closeSeen()
		drainer.WithDedup(seen)

		if cfg.Quarantine.Bucket != "" {
			drainer.WithQuarantine(quarantine.NewS3Sink(quarantine.NewAPI(awsCfg), cfg.Quarantine.Bucket, cfg.Quarantine.Prefix))
			logger.Info("quarantine enabled", "bucket", cfg.Quarantine.Bucket, "prefix", cfg.Quarantine.Prefix)
		}

		fanout, err := openEvents(cfg, logger)
		if err != nil {
			return err
		}
		defer fanout.Close()
		drainer.WithEvents(fanout)

		if once {
			res, err := drainer.RunOnce(ctx)
			if err != nil {
				return err
			}
			return printDrainResult(cmd.OutOrStdout(), res)
		}

		// Health and metrics are only served by the long-running worker.
		hs := health.NewServer()
		status := server.NewDrainHealth(hs)
		drainer.WithStatus(status)

		grpcServer := server.NewGRPCServer(hs, cfg.AuthToken)
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return err
		}
		go func() {
			logger.Info("gRPC health listening", "addr", cfg.GRPCAddr)
			if err := grpcServer.Serve(lis); err != nil {
				logger.Error("gRPC server error", "err", err)
			}
		}()

		mux := http.NewServeMux()
		mux.Handle("GET /metrics", server.MetricsHandler(reg))
		metricsServer := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		serveHTTP(metricsServer, "metrics server", logger)

		scheduler, err := drain.NewScheduler(drainer, cfg.Drain.Schedule, cfg.Drain.RunOnStart, logger)
		if err != nil {
			grpcServer.Stop()
			return err
		}
		scheduler.Start(ctx)

		logger.Info("drain worker started",
			"queue_url", cfg.Drain.QueueURL,
			"schedule", cfg.Drain.Schedule,
			"max_messages", cfg.Drain.MaxMessages,
			"wait_time", cfg.Drain.WaitTime,
			"dedup", cfg.Dedup.Backend,
		)

		<-ctx.Done()
		logger.Info("shutting down")

		scheduler.Stop()
		logger.Info("drain scheduler stopped")

		status.Shutdown()
		grpcServer.GracefulStop()
		logger.Info("gRPC server stopped")

		shutdownHTTP(metricsServer, "metrics server", logger)
		logger.Info("shutdown complete")
		return nil
	},
}

func init() {
	drainCmd.Flags().Bool("once", false, "run a single drain cycle and exit")
}
