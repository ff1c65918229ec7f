package sse

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/aquaportal/pkg/notification"
)

func TestNoticesStream(t *testing.T) {
	center := notification.NewCenter()
	srv := httptest.NewServer(Notices(center, time.Hour))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	sent := center.Success("Order %s has been delivered!", "o1")

	sc := bufio.NewScanner(resp.Body)
	var event, data string
	for sc.Scan() {
		line := sc.Text()
		if line == "" && data != "" {
			break
		}
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}

	assert.Equal(t, "notice", event)
	var got notification.Notice
	require.NoError(t, json.Unmarshal([]byte(data), &got))
	assert.Equal(t, sent.ID, got.ID)
	assert.Equal(t, "Order o1 has been delivered!", got.Message)
	assert.Equal(t, notification.LevelSuccess, got.Level)
}

func TestNewRejectsNonFlusher(t *testing.T) {
	w := &plainWriter{header: http.Header{}}
	assert.Nil(t, New(w))
	assert.Equal(t, http.StatusInternalServerError, w.status)
}

type plainWriter struct {
	header http.Header
	status int
}

func (w *plainWriter) Header() http.Header         { return w.header }
func (w *plainWriter) Write(b []byte) (int, error) { return len(b), nil }
func (w *plainWriter) WriteHeader(code int)        { w.status = code }
