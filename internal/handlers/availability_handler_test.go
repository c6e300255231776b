package handlers

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
)

// nextEvent reads one server-sent event and returns its name and data line.
func nextEvent(t *testing.T, scanner *bufio.Scanner) (string, string) {
	t.Helper()
	var event string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "event:") {
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		}
		if strings.HasPrefix(line, "data:") {
			return event, strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
	}
	t.Fatalf("stream ended: %v", scanner.Err())
	return "", ""
}

type openStream struct {
	id      string
	base    string
	scanner *bufio.Scanner
}

func startStream(t *testing.T, env *testEnv) *openStream {
	t.Helper()
	srv := httptest.NewServer(env.router)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	base := srv.URL + "/entities/" + env.entity.ID.String() + "/slots/stream"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?date="+monday, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	scanner := bufio.NewScanner(resp.Body)
	event, data := nextEvent(t, scanner)
	require.Equal(t, "stream", event)
	var hello struct {
		StreamID string `json:"stream_id"`
	}
	require.NoError(t, json.Unmarshal([]byte(data), &hello))
	require.NotEmpty(t, hello.StreamID)
	assert.Equal(t, hello.StreamID, resp.Header.Get("X-Stream-ID"))

	return &openStream{id: hello.StreamID, base: srv.URL, scanner: scanner}
}

func (s *openStream) post(t *testing.T, env *testEnv, action, body string) int {
	t.Helper()
	url := s.base + "/entities/" + env.entity.ID.String() + "/slots/stream/" + s.id + "/" + action
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func TestStreamSlots(t *testing.T) {
	env := newTestEnv(t, 5)
	stream := startStream(t, env)

	event, data := nextEvent(t, stream.scanner)
	assert.Equal(t, "availability", event)
	assert.Contains(t, data, `"available":5`)
	assert.Contains(t, data, `"version":1`)
}

func TestRefreshStream(t *testing.T) {
	env := newTestEnv(t, 5)
	stream := startStream(t, env)

	_, data := nextEvent(t, stream.scanner)
	require.Contains(t, data, `"version":1`)

	env.seedBooking("b1", "kofi")
	assert.Equal(t, http.StatusAccepted, stream.post(t, env, "refresh", ""))

	event, data := nextEvent(t, stream.scanner)
	assert.Equal(t, "availability", event)
	assert.Contains(t, data, `"available":4`)
	assert.Contains(t, data, `"version":2`)

	stream.id = "unknown"
	assert.Equal(t, http.StatusNotFound, stream.post(t, env, "refresh", ""))
}

func TestStreamVisibility(t *testing.T) {
	env := newTestEnv(t, 5)
	stream := startStream(t, env)

	_, data := nextEvent(t, stream.scanner)
	require.Contains(t, data, `"version":1`)

	assert.Equal(t, http.StatusBadRequest, stream.post(t, env, "visibility", `{}`))
	assert.Equal(t, http.StatusAccepted, stream.post(t, env, "visibility", `{"visible":false}`))
	assert.Equal(t, http.StatusAccepted, stream.post(t, env, "visibility", `{"visible":true}`))

	// going to the background triggers nothing, so the next snapshot comes from coming back
	event, data := nextEvent(t, stream.scanner)
	assert.Equal(t, "availability", event)
	assert.Contains(t, data, `"version":2`)
}
