package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workshop-announcer/internal/usecase/watch"
)

func newTestHealthServer() *HealthServer {
	return NewHealthServer(":0", slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)), globalTestMetrics)
}

func TestHealthServer_Liveness(t *testing.T) {
	h := newTestHealthServer()
	rec := httptest.NewRecorder()

	h.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHealthServer_Readiness(t *testing.T) {
	h := newTestHealthServer()

	t.Run("TC-1: not ready before SetReady", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.JSONEq(t, `{"status":"not ready"}`, rec.Body.String())
	})

	t.Run("TC-2: ready after SetReady(true)", func(t *testing.T) {
		h.SetReady(true)
		rec := httptest.NewRecorder()
		h.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, float64(1), testutil.ToFloat64(globalTestMetrics.Ready))
	})

	t.Run("TC-3: not ready again after SetReady(false)", func(t *testing.T) {
		h.SetReady(false)
		rec := httptest.NewRecorder()
		h.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, float64(0), testutil.ToFloat64(globalTestMetrics.Ready))
	})
}

type stubStatus struct{ status watch.Status }

func (s stubStatus) Status() watch.Status { return s.status }

func TestPollerStatusHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	success := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		status   watch.Status
		wantCode int
	}{
		{
			name:     "TC-1: no cycle yet",
			status:   watch.Status{},
			wantCode: http.StatusOK,
		},
		{
			name: "TC-2: cycles ran but none succeeded",
			status: watch.Status{
				LastCycle: &watch.CycleReport{Status: watch.CycleStatusSkipped},
			},
			wantCode: http.StatusServiceUnavailable,
		},
		{
			name: "TC-3: primed and healthy",
			status: watch.Status{
				Primed:        true,
				SeenCount:     30,
				LastSuccessAt: &success,
				LastCycle:     &watch.CycleReport{Status: watch.CycleStatusCompleted},
			},
			wantCode: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()

			PollerStatusHandler(stubStatus{tt.status}, logger)(rec, httptest.NewRequest(http.MethodGet, "/health/poller", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			var got watch.Status
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, tt.status.Primed, got.Primed)
			assert.Equal(t, tt.status.SeenCount, got.SeenCount)
		})
	}
}

func TestHealthServer_StartAndShutdown(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	h := NewHealthServer(addr, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)), nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Start(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/health")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.True(t, errors.Is(err, http.ErrServerClosed), "err = %v", err)
	case <-time.After(6 * time.Second):
		t.Fatal("server did not shut down")
	}
}
