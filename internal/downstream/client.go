package downstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spinforge/outcome-engine/internal/config"
	"github.com/spinforge/outcome-engine/internal/core"
)

// Client talks to the presentation service: pushes persisted batches to
// its queue and reads its queue-depth/phase signal.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(cfg config.DownstreamConfig) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.URL, "/"),
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
	}
}

type queueEntry struct {
	RoundNumber uint64  `json:"round_number"`
	Multiplier  float64 `json:"multiplier"`
}

type queuePayload struct {
	Multipliers []queueEntry `json:"multipliers"`
	StartRound  uint64       `json:"startRound"`
}

// Health returns the downstream queue signal from GET /health.
func (c *Client) Health(ctx context.Context) (*core.QueueHealth, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, err
	}
	c.setAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downstream health: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("downstream health: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("downstream health: HTTP %d: %s", resp.StatusCode, truncate(body))
	}

	var health core.QueueHealth
	if err := json.Unmarshal(body, &health); err != nil {
		return nil, fmt.Errorf("downstream health: decode: %w", err)
	}
	return &health, nil
}

// PushBatch notifies the downstream of a persisted batch via POST /queue.
func (c *Client) PushBatch(ctx context.Context, startRound uint64, rounds []core.Round) error {
	payload := queuePayload{
		Multipliers: make([]queueEntry, 0, len(rounds)),
		StartRound:  startRound,
	}
	for _, r := range rounds {
		payload.Multipliers = append(payload.Multipliers, queueEntry{
			RoundNumber: r.RoundNumber,
			Multiplier:  r.Multiplier,
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("downstream push: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/queue", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.setAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("downstream push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("downstream push: HTTP %d: %s", resp.StatusCode, truncate(respBody))
	}
	return nil
}

func (c *Client) setAuth(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func truncate(body []byte) string {
	const max = 256
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
