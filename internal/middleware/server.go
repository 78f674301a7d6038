package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/channelactions-tgbot-go/internal/config"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// LivenessText is served on the root path.
const LivenessText = "Bot is running!"

// NewRouter builds the keep-alive router: liveness, health and, when enabled, metrics.
func NewRouter(cfg *config.Config) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(LivenessText))
	}).Methods(http.MethodGet, http.MethodHead)

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods(http.MethodGet)

	if cfg.Monitoring.Metrics.Enabled {
		router.Handle(cfg.Monitoring.Metrics.Path, promhttp.Handler())
	}

	return router
}

// NewServer wraps a handler into an HTTP server listening on port.
func NewServer(port int, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}
