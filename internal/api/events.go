package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mlorenz/socialflow/internal/events"
)

// handleEvents streams run lifecycle events as Server-Sent Events.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.bus == nil {
		respondError(w, http.StatusServiceUnavailable, "event stream not available")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	ch := s.bus.Subscribe(events.TypeRunStarted, events.TypeRunFinished)
	defer s.bus.Unsubscribe(ch)

	s.logger.Info("event stream client connected", "remote_addr", r.RemoteAddr)

	s.sendSSE(w, flusher, "connected", map[string]string{"status": "connected"})

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("event stream client disconnected", "remote_addr", r.RemoteAddr)
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			// Run events carry their own JSON shape.
			s.sendSSE(w, flusher, event.EventType(), event)
		}
	}
}

// sendSSE writes one event in SSE wire format: event: type\ndata: json\n\n.
func (s *Server) sendSSE(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) {
	encoded, err := json.Marshal(data)
	if err != nil {
		s.logger.Error("failed to marshal event", "error", err)
		return
	}
	fmt.Fprintf(w, "event: %s\n", eventType)
	fmt.Fprintf(w, "data: %s\n\n", encoded)
	flusher.Flush()
}
