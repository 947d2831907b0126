package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smart-compressor/compressor-go/internal/config"
)

func newTestProber(t *testing.T, url string, attempts int, interval time.Duration) *Prober {
	t.Helper()
	cfg := config.DefaultBackendConfig()
	cfg.BaseURL = url
	cfg.HealthPath = "/api/health"
	cfg.ProbeAttempts = attempts
	cfg.ProbeTimeout = 2 * time.Second
	cfg.ProbeInterval = interval
	return New(cfg, zap.NewNop().Sugar())
}

func TestWaitForReadyImmediateSuccess(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := newTestProber(t, srv.URL, 40, 500*time.Millisecond)

	start := time.Now()
	err := p.WaitForReady(context.Background())
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, int32(1), requests.Load())
	// Success on attempt 1 means no inter-attempt delay was applied.
	assert.Less(t, elapsed, 400*time.Millisecond)
}

func TestWaitForReadyExhaustsAttempts(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := newTestProber(t, srv.URL, 3, 50*time.Millisecond)

	start := time.Now()
	err := p.WaitForReady(context.Background())
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, int32(3), requests.Load())
	// Two pauses between three attempts, none after the last.
	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
	assert.Less(t, elapsed, 400*time.Millisecond)
}

func TestWaitForReadySucceedsMidway(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if requests.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := newTestProber(t, srv.URL, 10, 10*time.Millisecond)

	err := p.WaitForReady(context.Background())
	require.NoError(t, err)
	// Stops at the first success, no further attempts.
	assert.Equal(t, int32(3), requests.Load())
}

func TestWaitForReadyAcceptsAny2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	p := newTestProber(t, srv.URL, 1, 0)
	assert.NoError(t, p.WaitForReady(context.Background()))
}

func TestWaitForReadyConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	url := srv.URL
	srv.Close()

	p := newTestProber(t, url, 2, 10*time.Millisecond)

	err := p.WaitForReady(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
}

func TestWaitForReadyContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	p := newTestProber(t, srv.URL, 40, time.Second)

	done := make(chan error, 1)
	go func() {
		done <- p.WaitForReady(ctx)
	}()

	cancel()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cancelled")
	case <-time.After(5 * time.Second):
		t.Fatal("probe did not stop on context cancellation")
	}
}
