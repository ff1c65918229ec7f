package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/aquaportal/pkg/reqid"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := New(srv.URL+"/api/", time.Second)
	c.UseHTTPClient(srv.Client())
	return c
}

func TestBearerAttachedWhenTokenPresent(t *testing.T) {
	var gotAuth, gotID string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotID = r.Header.Get(reqid.Header)
		assert.Equal(t, "/api/orders", r.URL.Path)
		_, _ = w.Write([]byte(`{"orders":[]}`))
	})
	c.UseTokenSource(TokenFunc(func() string { return "tok-1" }))

	ctx := reqid.WithValue(context.Background(), "req-9")
	require.NoError(t, c.Get("/orders").Send(ctx))
	assert.Equal(t, "Bearer tok-1", gotAuth)
	assert.Equal(t, "req-9", gotID)
}

func TestNoBearerWhenAnonymous(t *testing.T) {
	var gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	})
	c.UseTokenSource(TokenFunc(func() string { return "" }))

	require.NoError(t, c.Get("/auth").Send(context.Background()))
	assert.Empty(t, gotAuth)
}

func TestBodyAndDecode(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "accept", in["action"])
		_, _ = w.Write([]byte(`{"message":"ok"}`))
	})

	var out struct {
		Message string `json:"message"`
	}
	err := c.Post("/suppliers/respond/o1").
		Route("/suppliers/respond/:id").
		Body(map[string]string{"action": "accept"}).
		Decode(&out).
		Send(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", out.Message)
}

func TestBackendErrorCarriesMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Invalid credentials"}`))
	})

	err := c.Post("/auth/login").Send(context.Background())
	require.Error(t, err)

	var gwErr *Error
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, http.StatusUnauthorized, gwErr.Status)
	assert.Equal(t, "Invalid credentials", gwErr.Message)
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, "Invalid credentials", Message(err, "Login failed"))
}

func TestMessageFallback(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	err := c.Get("/orders").Send(context.Background())
	require.Error(t, err)
	assert.False(t, IsUnauthorized(err))
	assert.Equal(t, "Could not refresh orders.", Message(err, "Could not refresh orders."))
}

func TestFailureIsSentOnce(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	})

	err := c.Delete("/orders/o1").Send(context.Background())
	require.Error(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestTransportFailureHasZeroStatus(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(url, time.Second)
	err := c.Get("/orders").Send(context.Background())
	require.Error(t, err)

	var gwErr *Error
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, 0, gwErr.Status)
	assert.NotNil(t, gwErr.Unwrap())
}
