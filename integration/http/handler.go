//go:build integration
// +build integration

package http

import (
	"net/http"
	"sync"
)

var (
	mu    sync.Mutex
	recvd = map[string]bool{}
)

// GetHttpTestHandlerFunc stands in for the sidecar proxy of a one-shot job.
func GetHttpTestHandlerFunc() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/quitquitquit" && r.Method == http.MethodPost:
			handleQuit(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}
}

func Received(path string) bool {
	mu.Lock()
	defer mu.Unlock()
	return recvd[path]
}

func Reset() {
	mu.Lock()
	defer mu.Unlock()
	recvd = map[string]bool{}
}

func handleQuit(w http.ResponseWriter, r *http.Request) {
	mu.Lock()
	recvd[r.URL.Path] = true
	mu.Unlock()

	w.WriteHeader(http.StatusOK)
}
