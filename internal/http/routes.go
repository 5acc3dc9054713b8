package httpx

import (
	"log/slog"
	"net/http"

	"github.com/treadscan/treadscan/internal/core"
	"github.com/treadscan/treadscan/internal/events"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Registry  *core.JobRegistry
	Queue     JobSubmitter
	Snapshots *core.SnapshotService
	Broker    *events.Broker

	// MaxSnapshotBytes caps decoded snapshot uploads. Zero disables the cap.
	MaxSnapshotBytes int64

	Logger *slog.Logger
}

// NewRouter creates and configures the HTTP router.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()

	reconstructionHandlers := &ReconstructionHandlers{
		Registry: services.Registry,
		Queue:    services.Queue,
	}
	snapshotHandlers := &SnapshotHandlers{
		Svc:      services.Snapshots,
		MaxBytes: services.MaxSnapshotBytes,
	}
	eventHandlers := &EventStreamHandlers{
		Broker: services.Broker,
		Logger: logger,
	}

	registerReconstructionRoutes(mux, reconstructionHandlers)
	registerSnapshotRoutes(mux, snapshotHandlers)
	mux.HandleFunc("GET /api/events", eventHandlers.Stream)
	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	return mux
}

func registerReconstructionRoutes(mux *http.ServeMux, h *ReconstructionHandlers) {
	mux.HandleFunc("POST /api/reconstructions", h.Create)
	mux.HandleFunc("GET /api/reconstructions", h.List)
	mux.HandleFunc("GET /api/reconstructions/{id}", h.Get)
}

func registerSnapshotRoutes(mux *http.ServeMux, h *SnapshotHandlers) {
	mux.HandleFunc("POST /api/reconstructions/{id}/snapshot", h.Save)
	mux.HandleFunc("GET /api/reconstructions/{id}/snapshot", h.Get)
}
