// Package capture provides payment-capture coordinator clients. The
// coordinator is an external collaborator: it must treat a repeated capture
// for an already-captured item as a safe no-op.
package capture

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPCoordinator posts capture requests to a remote endpoint.
type HTTPCoordinator struct {
	client *http.Client
	url    string
}

func NewHTTPCoordinator(url string) *HTTPCoordinator {
	return &HTTPCoordinator{
		client: &http.Client{Timeout: 15 * time.Second},
		url:    url,
	}
}

type captureRequest struct {
	OrderItemID string `json:"order_item_id"`
}

type captureResponse struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

func (c *HTTPCoordinator) Capture(ctx context.Context, orderItemID string) error {
	body, err := json.Marshal(captureRequest{OrderItemID: orderItemID})
	if err != nil {
		return fmt.Errorf("marshal capture request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build capture request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("capture call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("capture call: unexpected status %d", resp.StatusCode)
	}

	var out captureResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&out); err != nil {
		return fmt.Errorf("decode capture response: %w", err)
	}
	if !out.OK {
		return fmt.Errorf("capture rejected: %s", out.Reason)
	}
	return nil
}
