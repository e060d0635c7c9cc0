package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"

	nr "github.com/newrelic/go-agent/v3/newrelic"

	"careplatform/outbox-relay/config"
	"careplatform/outbox-relay/job"
	"careplatform/outbox-relay/log"
	"careplatform/outbox-relay/newrelic"
	"careplatform/outbox-relay/notification"
	"careplatform/outbox-relay/outbox"
	"careplatform/outbox-relay/outbox/data"
	"careplatform/outbox-relay/outbox/poller"
	"careplatform/outbox-relay/prometheus"
)

func main() {
	nrApp, stopAgent := newrelic.StartAgent()
	defer stopAgent()

	ctx, cancel := context.WithCancel(context.Background())
	cfg, err := config.NewConfig()
	if err != nil {
		log.Logger.Fatalf("unable to create configuration: %s", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		log.Logger.Info("shutdown signal received, stopping")
		cancel()
	}()

	db, dbClose := data.NewDB(cfg)
	defer dbClose()

	records := outbox.NewRepository(db, cfg)
	notifications := notification.NewRepository(db, cfg)

	var exitCode int
	switch {
	case cfg.RunCleanup:
		exitCode = job.RunCleanup(records, notifications, cfg)
	case cfg.RunOptimize:
		exitCode = job.RunOptimize(ctx, nrApp, db, cfg)
	case cfg.RunReclaim:
		exitCode = job.RunReclaim(ctx, records, cfg)
	case cfg.RunRetryFailed:
		exitCode = job.RunRetryFailed(ctx, records, notifications, cfg)
	default:
		exitCode = runMainApp(ctx, nrApp, db, cfg, records, notifications)
	}

	if exitCode > 0 {
		// os.Exit() does not run deferred calls
		dbClose()
		stopAgent()
		os.Exit(exitCode)
	}
}

func runMainApp(ctx context.Context, nrApp *nr.Application, db *sql.DB, cfg *config.Config, records outbox.Repository, notifications notification.Repository) int {
	stopRelay, err := poller.Start(ctx, cfg, db, nrApp)
	if err != nil {
		log.Logger.WithError(err).Error("unable to start the outbox relay")
		return 1
	}
	defer stopRelay()

	prometheus.ObserveAll(ctx, records, notifications, cfg.AttemptsAlertThreshold)
	prometheus.StartHttpServer(ctx, cfg, db)

	return 0
}
