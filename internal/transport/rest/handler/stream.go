package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"edubattle/internal/model"
	"edubattle/internal/service"
)

// StreamHandler serves battle state as a server-sent event stream. The
// endpoint is read-only and deliberately unauthenticated; the notifier
// enforces the stream's lifetime budget.
type StreamHandler struct {
	notifier *service.Notifier
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(notifier *service.Notifier) *StreamHandler {
	return &StreamHandler{notifier: notifier}
}

// Stream handles GET /v1/battles/{code}/stream
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sink := &sseSink{w: w, flusher: flusher}
	// r.Context() is cancelled when the consumer disconnects, which tears
	// down the watch loop's timers with it.
	_ = h.notifier.Watch(r.Context(), code, sink)
}

// sseSink adapts an http.ResponseWriter into a notifier sink using the
// event-stream wire format.
type sseSink struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func (s *sseSink) SendState(battle *model.Battle) error {
	payload, err := json.Marshal(battle)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "event: message\ndata: %s\n\n", payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s *sseSink) SendHeartbeat() error {
	// Comment-only line: keeps idle-connection timeouts at bay without
	// producing a client-visible event.
	if _, err := fmt.Fprint(s.w, ": keep-alive\n\n"); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s *sseSink) SendError(message string) error {
	payload, _ := json.Marshal(map[string]string{"error": message})
	if _, err := fmt.Fprintf(s.w, "event: error\ndata: %s\n\n", payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}
