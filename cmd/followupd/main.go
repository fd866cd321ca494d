// followupd watches a Slack channel for ticket messages that never got a
// checkmark reaction and keeps reminding the right people until they do.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/goatkit/followup/internal/config"
	"github.com/goatkit/followup/internal/reconcile"
	"github.com/goatkit/followup/internal/slackconn"
)

func main() {
	// The token lives in .env; load it before any env reads.
	_ = godotenv.Load(".env")

	logger := log.New(os.Stdout, "", log.LstdFlags)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("followupd: %v", err)
	}

	client := slackconn.New(cfg.SlackToken)
	rec := reconcile.New(client, reconcile.Settings{
		MonitoredChannel: cfg.MonitoredChannel,
		AlertsChannel:    cfg.AlertsChannel,
		Interval:         cfg.CheckInterval(),
		Schedule:         cfg.CheckSchedule,
		CheckmarkEmoji:   cfg.CheckmarkEmoji,
		CheckedEmoji:     cfg.CheckedEmoji,
	}, reconcile.WithLogger(logger))

	if cfg.MetricsAddr != "" {
		go serveMetrics(logger, cfg.MetricsAddr)
	}

	logger.Printf("followupd: monitoring %s, alerts to %s", cfg.MonitoredChannel, cfg.AlertsChannel)
	if cfg.CheckSchedule != "" {
		logger.Printf("followupd: checking on schedule %q", cfg.CheckSchedule)
	} else {
		logger.Printf("followupd: checking every %s", cfg.CheckInterval())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rec.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("followupd: %v", err)
	}
	logger.Printf("followupd: shutting down")
}

func serveMetrics(logger *log.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Printf("followupd: serving metrics on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Printf("followupd: metrics server stopped: %v", err)
	}
}
