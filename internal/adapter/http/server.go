package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/couchcryptid/tempest-monitor/internal/alert"
	"github.com/couchcryptid/tempest-monitor/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DeviceLister returns the current registry contents.
type DeviceLister interface {
	Devices() []alert.Device
}

// Server exposes health, readiness, metrics and device status endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and
// /devices routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, devices DeviceLister, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /devices", handleDevices(devices))

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type devicesResponse struct {
	Count   int            `json:"count"`
	Devices []alert.Device `json:"devices"`
}

// handleDevices lists the registry in registration order. ?privacy=true
// masks the serial numbers.
func handleDevices(lister DeviceLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		privacy, _ := strconv.ParseBool(r.URL.Query().Get("privacy"))

		devices := lister.Devices()
		if devices == nil {
			devices = []alert.Device{}
		}
		if privacy {
			for i := range devices {
				devices[i].Serial = domain.MaskSerial(devices[i].Serial)
			}
		}
		writeJSON(w, http.StatusOK, devicesResponse{Count: len(devices), Devices: devices})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort status response
}
