package downstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spinforge/outcome-engine/internal/config"
	"github.com/spinforge/outcome-engine/internal/core"
)

func newTestClient(serverURL string) *Client {
	return NewClient(config.DownstreamConfig{
		URL:            serverURL,
		Token:          "test-token",
		RequestTimeout: 2 * time.Second,
	})
}

func TestClientHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/health", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"queueSize":3,"gamePhase":"betting"}`))
	}))
	defer server.Close()

	health, err := newTestClient(server.URL).Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, health.QueueSize)
	assert.Equal(t, "betting", health.GamePhase)
}

func TestClientHealthNon200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Health(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 500")
}

func TestClientHealthUnreachable(t *testing.T) {
	client := NewClient(config.DownstreamConfig{
		URL:            "http://127.0.0.1:1",
		RequestTimeout: 200 * time.Millisecond,
	})
	_, err := client.Health(context.Background())
	require.Error(t, err)
}

func TestClientPushBatch(t *testing.T) {
	var received queuePayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/queue", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	rounds := []core.Round{
		{RoundNumber: 101, Multiplier: 1.8},
		{RoundNumber: 102, Multiplier: 9.0},
	}
	err := newTestClient(server.URL).PushBatch(context.Background(), 101, rounds)
	require.NoError(t, err)

	assert.Equal(t, uint64(101), received.StartRound)
	require.Len(t, received.Multipliers, 2)
	assert.Equal(t, uint64(101), received.Multipliers[0].RoundNumber)
	assert.Equal(t, 1.8, received.Multipliers[0].Multiplier)
	assert.Equal(t, 9.0, received.Multipliers[1].Multiplier)
}

func TestClientPushBatchNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad payload", http.StatusBadRequest)
	}))
	defer server.Close()

	err := newTestClient(server.URL).PushBatch(context.Background(), 1, []core.Round{{RoundNumber: 1, Multiplier: 2.0}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 400")
}
