package probe

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastConfig(attempts int) Config {
	return Config{
		Timeout:     time.Second,
		MaxAttempts: attempts,
		Backoff:     time.Millisecond,
	}
}

func TestProbe_HealthyFirstAttempt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"healthy","timestamp":"2026-08-24T10:00:00Z","version":"1.0.0"}`)
	}))
	defer srv.Close()

	result, err := New(testLogger()).Probe(context.Background(), srv.URL+"/health", fastConfig(5))
	require.NoError(t, err)
	assert.True(t, result.Healthy)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, "1.0.0", result.Version)
}

func TestProbe_HealthyAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"status":"healthy","timestamp":"2026-08-24T10:00:00Z","version":"2.1.0"}`)
	}))
	defer srv.Close()

	// Healthy on attempt 2 of 5.
	result, err := New(testLogger()).Probe(context.Background(), srv.URL+"/health", fastConfig(5))
	require.NoError(t, err)
	assert.True(t, result.Healthy)
	assert.Equal(t, 2, result.Attempts)
}

func TestProbe_ExhaustsAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	result, err := New(testLogger()).Probe(context.Background(), srv.URL+"/health", fastConfig(5))
	require.NoError(t, err)
	assert.False(t, result.Healthy)
	assert.Equal(t, 5, result.Attempts)
	assert.Equal(t, int32(5), calls.Load())
}

func TestProbe_UnhealthyStatusBody(t *testing.T) {
	// A 200 with a non-"healthy" status is a failed attempt.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"unhealthy","timestamp":"2026-08-24T10:00:00Z","version":"1.0.0"}`)
	}))
	defer srv.Close()

	result, err := New(testLogger()).Probe(context.Background(), srv.URL+"/health", fastConfig(3))
	require.NoError(t, err)
	assert.False(t, result.Healthy)
	assert.Equal(t, 3, result.Attempts)
}

func TestProbe_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "not json")
	}))
	defer srv.Close()

	result, err := New(testLogger()).Probe(context.Background(), srv.URL+"/health", fastConfig(2))
	require.NoError(t, err)
	assert.False(t, result.Healthy)
}

func TestProbe_ConnectionRefused(t *testing.T) {
	// Port 1 should refuse connections.
	result, err := New(testLogger()).Probe(context.Background(), "http://127.0.0.1:1/health", fastConfig(2))
	require.NoError(t, err)
	assert.False(t, result.Healthy)
	assert.Equal(t, 2, result.Attempts)
}

func TestProbe_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := Config{Timeout: time.Second, MaxAttempts: 5, Backoff: time.Minute}
	_, err := New(testLogger()).Probe(ctx, srv.URL+"/health", cfg)
	assert.ErrorIs(t, err, context.Canceled)
}
