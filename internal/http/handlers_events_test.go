package httpx

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/treadscan/treadscan/internal/domain/model"
)

// readSSEEvent scans the stream until one complete event is read.
func readSSEEvent(t *testing.T, scanner *bufio.Scanner) (kind, data string) {
	t.Helper()
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			kind = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && data != "":
			return kind, data
		}
	}
	t.Fatal("stream ended before a complete event")
	return "", ""
}

func TestEventStream_DeliversPublishedEvents(t *testing.T) {
	env := newTestEnv()
	server := httptest.NewServer(NewRouter(env.handler))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/api/events?job_id=job-1", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	// The subscription races the request, so publish until the stream
	// carries an event through.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				env.broker.Publish(model.Event{
					Kind:     model.EventKindProgress,
					JobID:    "job-1",
					Progress: 30,
					Stage:    "preprocess damaged",
					At:       time.Now(),
				})
			}
		}
	}()

	scanner := bufio.NewScanner(resp.Body)
	kind, data := readSSEEvent(t, scanner)
	assert.Equal(t, "progress", kind)
	assert.Contains(t, data, `"job_id":"job-1"`)
	assert.Contains(t, data, `"progress":30`)
}

func TestEventStream_FiltersByJobID(t *testing.T) {
	env := newTestEnv()
	server := httptest.NewServer(NewRouter(env.handler))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/api/events?job_id=job-2", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				env.broker.Publish(model.Event{Kind: model.EventKindProgress, JobID: "job-1", Progress: 10, At: time.Now()})
				env.broker.Publish(model.Event{Kind: model.EventKindFailed, JobID: "job-2", Error: "boom", At: time.Now()})
			}
		}
	}()

	scanner := bufio.NewScanner(resp.Body)
	kind, data := readSSEEvent(t, scanner)
	assert.Equal(t, "failed", kind)
	assert.Contains(t, data, `"job_id":"job-2"`)
	assert.NotContains(t, data, "job-1")
}

func TestEventStream_EndsWhenClientDisconnects(t *testing.T) {
	env := newTestEnv()
	server := httptest.NewServer(NewRouter(env.handler))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/api/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	cancel()

	buf := make([]byte, 1)
	_, readErr := resp.Body.Read(buf)
	assert.Error(t, readErr)
}
