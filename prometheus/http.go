package prometheus

import (
	"context"
	"net/http"
	"time"

	"careplatform/outbox-relay/config"
	h "careplatform/outbox-relay/http"
	"careplatform/outbox-relay/log"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = time.Second * 5

func NewServeMux(cfg *config.Config, db h.Pinger) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", h.NewHealthzHandler(cfg.GetDependencySystemAddresses(), db))

	return mux
}

// StartHttpServer serves /metrics and /healthz until ctx is cancelled.
func StartHttpServer(ctx context.Context, cfg *config.Config, db h.Pinger) {
	srv := &http.Server{Addr: cfg.HttpAddr, Handler: NewServeMux(cfg, db)}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Logger.WithError(err).Error("error shutting down the HTTP server")
		}
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Logger.Fatalf("failed to start prometheus HTTP server: %s", err)
	}
}
