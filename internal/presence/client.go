package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const defaultBaseURL = "https://api.lanyard.rest/v1"

// Provider supplies live presence snapshots. Implemented by Client and by
// test fakes.
type Provider interface {
	Fetch(ctx context.Context, userID string) (*Snapshot, error)
}

// Client fetches presence data from the Lanyard REST API.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient() *Client {
	return &Client{
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// NewClientWithBaseURL is used by tests to point at a local server.
func NewClientWithBaseURL(baseURL string) *Client {
	c := NewClient()
	c.baseURL = baseURL
	return c
}

type envelope struct {
	Success bool `json:"success"`
	Data    struct {
		DiscordStatus string     `json:"discord_status"`
		Activities    []Activity `json:"activities"`
		Spotify       *Spotify   `json:"spotify"`
	} `json:"data"`
}

// Fetch returns the user's current snapshot, stamped with the current
// wall-clock time. A non-success envelope or transport failure is an
// error; callers decide how to degrade.
func (c *Client) Fetch(ctx context.Context, userID string) (*Snapshot, error) {
	url := fmt.Sprintf("%s/users/%s", c.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build lanyard request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lanyard request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lanyard returned status %d", resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("failed to decode lanyard response: %w", err)
	}
	if !env.Success {
		return nil, fmt.Errorf("lanyard reported failure for user %s", userID)
	}

	return &Snapshot{
		Activities: env.Data.Activities,
		Spotify:    env.Data.Spotify,
		UpdatedAt:  time.Now().UnixMilli(),
	}, nil
}
