package http

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"careplatform/outbox-relay/log"
)

const (
	checkTimeout = time.Second * 1
	databaseName = "database"
)

type healthzHandler struct {
	checkAddr []string
	db        Pinger
	dial      func(ctx context.Context, network, address string) (net.Conn, error)
}

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type healthzResponse struct {
	Healthy     bool     `json:"healthy"`
	Unavailable []string `json:"unavailable,omitempty"`
}

// NewHealthzHandler serves liveness (database only) and, with ?readiness=1,
// readiness (database plus a TCP dial to every address in checkAddr).
func NewHealthzHandler(checkAddr []string, db Pinger) http.Handler {
	d := &net.Dialer{Timeout: checkTimeout}
	return &healthzHandler{
		checkAddr: checkAddr,
		db:        db,
		dial:      d.DialContext,
	}
}

func (h healthzHandler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), checkTimeout)
	defer cancel()

	var unavailable []string
	if !h.checkDatabase(ctx) {
		unavailable = append(unavailable, databaseName)
	}
	if req.URL.Query().Get("readiness") == "1" {
		unavailable = append(unavailable, h.checkServices(ctx)...)
	}

	resp := healthzResponse{Healthy: len(unavailable) == 0, Unavailable: unavailable}

	w.Header().Set("Content-Type", "application/json")
	if resp.Healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Logger.WithError(err).Debug("unable to write the healthz response")
	}
}

func (h healthzHandler) checkDatabase(ctx context.Context) bool {
	if err := h.db.PingContext(ctx); err != nil {
		log.Logger.WithError(err).Debug("database is not available or there is a problem with connectivity")
		return false
	}
	return true
}

func (h healthzHandler) checkServices(ctx context.Context) []string {
	var unavailable []string
	for _, host := range h.checkAddr {
		log.Logger.Debugf("checking connectivity to %s", host)
		conn, err := h.dial(ctx, "tcp", host)
		if err != nil {
			unavailable = append(unavailable, host)
			log.Logger.Debugf("unable to connect to %s", host)
		} else {
			_ = conn.Close()
		}
	}
	return unavailable
}
