package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/flagbeam/flagbeam/internal/snapshot"
	"github.com/flagbeam/flagbeam/internal/telemetry"
)

const heartbeatInterval = 15 * time.Second

// handleStream is the SSE endpoint. Clients get one "snapshot" event with
// the current ETag on connect, an "update" event per snapshot publish, and
// comment heartbeats to keep intermediaries from closing the connection.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, ErrCodeInternal, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	telemetry.SSEClients.Inc()
	defer telemetry.SSEClients.Dec()

	updates, unsubscribe := snapshot.Subscribe()
	defer unsubscribe()

	sendEvent(w, "snapshot", snapshot.Load().ETag)
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case etag := <-updates:
			sendEvent(w, "update", etag)
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		}
	}
}

func sendEvent(w http.ResponseWriter, event, etag string) {
	fmt.Fprintf(w, "event: %s\ndata: {\"etag\":%q}\n\n", event, etag)
}
