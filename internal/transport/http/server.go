package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/PropertyListing/pkg/config"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func newRouter() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Debug("Failed to write health response", "error", err)
		}
	}).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// NewHTTPServer serves the listing API on SERVER_PORT.
func NewHTTPServer(cfg *config.Config, handler *Handler) *http.Server {
	r := newRouter()
	handler.Register(r)

	return &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// NewCatalogServer serves the reference properties API on MOCK_API_PORT.
func NewCatalogServer(cfg *config.Config, handler *CatalogHandler) *http.Server {
	r := newRouter()
	handler.Register(r.PathPrefix("/api").Subrouter())

	return &http.Server{
		Addr:              ":" + cfg.MockAPIPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
