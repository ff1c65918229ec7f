// Package sse streams notices to the web UI with Server-Sent Events.
//
// Each open page keeps one EventSource on /events; every notice the
// application raises is pushed as a "notice" event:
//
//	r.Get("/events", "events", sse.Notices(a.Notices, 15*time.Second))
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shashiranjanraj/aquaportal/pkg/notification"
)

// Stream is one client's SSE connection.
type Stream struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// New sets the SSE headers. It returns nil after answering 500 when w cannot
// flush.
func New(w http.ResponseWriter) *Stream {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return nil
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &Stream{w: w, flusher: flusher}
}

// Send writes a named event with a JSON payload. id is optional.
func (s *Stream) Send(event, id string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("sse: marshal: %w", err)
	}

	if id != "" {
		if _, err := fmt.Fprintf(s.w, "id: %s\n", id); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// Comment writes a comment line, used as a keepalive.
func (s *Stream) Comment(msg string) error {
	if _, err := fmt.Fprintf(s.w, ": %s\n\n", msg); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// Notices streams every notice raised on center until the client goes away.
// A heartbeat comment is written every keepalive.
func Notices(center *notification.Center, keepalive time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		notices, unsubscribe := center.Subscribe(16)
		defer unsubscribe()

		stream := New(w)
		if stream == nil {
			return
		}

		ticker := time.NewTicker(keepalive)
		defer ticker.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case n, ok := <-notices:
				if !ok {
					return
				}
				if err := stream.Send("notice", n.ID, n); err != nil {
					return
				}
			case <-ticker.C:
				if err := stream.Comment("ping"); err != nil {
					return
				}
			}
		}
	}
}
