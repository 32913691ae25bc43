// Package remote reads the active timer from another billr server so a
// local ledger can follow it.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sadopc/billr/internal/model"
	"github.com/sadopc/billr/internal/wire"
)

type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient talks to the API rooted at baseURL (for example
// http://host:8080). Each request is bounded by timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// ActiveTimer fetches the remote timer. A JSON null body means no timer is
// running and yields (nil, nil).
func (c *Client) ActiveTimer(ctx context.Context) (*model.ActiveTimer, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/timer/active", nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get active timer: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read active timer: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get active timer: %s; body: %s", resp.Status, bytes.TrimSpace(body))
	}

	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, nil
	}
	var w wire.ActiveTimer
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, fmt.Errorf("decode active timer: %w", err)
	}
	if w.ID == "" || w.ProjectID == "" {
		return nil, fmt.Errorf("decode active timer: missing id or project_id")
	}
	t := wire.ActiveTimerFromWire(w)
	return &t, nil
}
