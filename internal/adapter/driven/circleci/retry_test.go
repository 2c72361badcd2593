package circleci_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/cibench/internal/adapter/driven/circleci"
	"github.com/ericfisherdev/cibench/internal/adapter/driven/httpretry"
)

// droppingServer accepts every request and closes the connection without
// answering.
func droppingServer(t *testing.T, attempts *atomic.Int32) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		conn, _, err := w.(http.Hijacker).Hijack()
		if err != nil {
			t.Errorf("hijack: %v", err)
			return
		}
		conn.Close()
	}))
	t.Cleanup(server.Close)

	return server
}

func TestNew_RetriesDroppedConnectionsUntilExhausted(t *testing.T) {
	var attempts atomic.Int32
	server := droppingServer(t, &attempts)

	client := circleci.New("test-token",
		circleci.WithBaseURLs(server.URL+"/api/v2", server.URL+"/api/v1.1"),
		circleci.WithRetry(httpretry.WithMaxRetries(3), httpretry.WithBaseDelay(time.Millisecond)),
	)
	_, err := client.FetchRunState(context.Background(), target, "wf-1")

	require.Error(t, err)
	assert.Equal(t, int32(4), attempts.Load(), "one attempt plus three retries")
	assert.Contains(t, err.Error(), "failed after 4 attempt(s)")
	assert.NotContains(t, err.Error(), "Client.Timeout")
}

func TestNew_DefaultScheduleOutlastsOldClientTimeout(t *testing.T) {
	if testing.Short() {
		t.Skip("runs the full default backoff schedule")
	}

	var attempts atomic.Int32
	server := droppingServer(t, &attempts)

	client := circleci.New("test-token", circleci.WithBaseURLs(server.URL+"/api/v2", server.URL+"/api/v1.1"))
	_, err := client.FetchRunState(context.Background(), target, "wf-1")

	require.Error(t, err)
	// 1+2+4+8+16s of backoff: all six attempts run.
	assert.Equal(t, int32(6), attempts.Load())
}
