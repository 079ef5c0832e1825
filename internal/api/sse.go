package api

import (
	"encoding/json"
	"net/http"
)

// sseWriter pushes JSON frames over a server-sent-events response.
// The channel is one-way and best-effort: no acknowledgment, no replay
// on reconnect. Clients needing durable state poll the status
// endpoints instead.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// newSSEWriter prepares the response for streaming. Returns nil when
// the underlying writer cannot flush (no streaming support).
func newSSEWriter(w http.ResponseWriter) *sseWriter {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	return &sseWriter{w: w, flusher: flusher}
}

// Send writes one `data: <JSON>\n\n` frame and flushes it. Write
// errors are swallowed: a disconnected client simply stops receiving.
func (s *sseWriter) Send(payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if _, err := s.w.Write([]byte("data: ")); err != nil {
		return
	}
	s.w.Write(raw)
	s.w.Write([]byte("\n\n"))
	s.flusher.Flush()
}
