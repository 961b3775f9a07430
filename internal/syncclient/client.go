// Package syncclient submits usage snapshots to the leaderboard server.
package syncclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spilist/tokscale/internal/config"
	"github.com/spilist/tokscale/internal/model"
)

// Client handles syncing to the server
type Client struct {
	cfg        *config.Config
	httpClient *http.Client
}

// SubmitRequest represents the submit API request body
type SubmitRequest struct {
	DeviceID string         `json:"deviceId"`
	Sources  []model.Source `json:"sources"`
	Snapshot model.Graph    `json:"snapshot"`
}

// SubmitResponse represents the submit API response
type SubmitResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message,omitempty"`
	DaysMerged int    `json:"daysMerged,omitempty"`
	Error      string `json:"error,omitempty"`
}

// NewClient creates a new sync client
func NewClient(cfg *config.Config) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Submit sends a usage snapshot to the server. Sources names every
// source this run covered, including ones with no events, so the server
// knows which of this device's slots the snapshot is authoritative for.
func (c *Client) Submit(ctx context.Context, graph model.Graph, sources []model.Source) (int, error) {
	reqBody := SubmitRequest{
		DeviceID: c.cfg.DeviceID,
		Sources:  sources,
		Snapshot: graph,
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return 0, err
	}

	url := fmt.Sprintf("%s/api/submit", c.cfg.Server)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return 0, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	var submitResp SubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&submitResp); err != nil {
		return 0, fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	if !submitResp.Success {
		errMsg := submitResp.Error
		if errMsg == "" {
			errMsg = submitResp.Message
		}
		if errMsg == "" {
			errMsg = fmt.Sprintf("server returned status %d", resp.StatusCode)
		}
		return 0, fmt.Errorf("%s", errMsg)
	}

	return submitResp.DaysMerged, nil
}
