package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/treadscan/treadscan/internal/events"
)

// keepAliveInterval paces SSE comment pings so idle proxies keep the
// connection open.
const keepAliveInterval = 15 * time.Second

// EventStreamHandlers provides the Server-Sent Events endpoint for job
// progress updates.
type EventStreamHandlers struct {
	Broker *events.Broker
	Logger *slog.Logger
}

func (h *EventStreamHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// Stream handles HTTP requests to subscribe to the live event feed.
// An optional job_id query parameter restricts the stream to one job.
// Delivery is live-only: events published before the subscription are
// never replayed.
func (h *EventStreamHandlers) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: "streaming_unsupported",
			Err:     errors.New("response writer does not support streaming"),
		})
		return
	}

	jobID := r.URL.Query().Get("job_id")
	unsub, ch := h.Broker.Subscribe(jobID)
	defer unsub()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-keepAlive.C:
			if _, err := w.Write([]byte(": keep-alive\n\n")); err != nil {
				return
			}
			flusher.Flush()
		case event, open := <-ch:
			if !open {
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				h.logger().ErrorContext(ctx, "marshal event for stream", "error", err)
				continue
			}
			if _, err := w.Write([]byte("event: " + string(event.Kind) + "\ndata: " + string(payload) + "\n\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
