package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client delivers outbound text messages through the upstream relay server.
// Delivery is best effort: callers log failures and move on, they never
// retry or block a user-facing response on it.
type Client struct {
	baseURL string
	client  *http.Client
}

type sendRequest struct {
	RecipientID string `json:"recipient_id"`
	MessageType string `json:"message_type"`
	Content     string `json:"content"`
}

type sendResponse struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// SendText pushes one text message to the recipient via the relay server.
func (c *Client) SendText(ctx context.Context, recipientID, content string) error {
	payload, err := json.Marshal(sendRequest{
		RecipientID: recipientID,
		MessageType: "text",
		Content:     content,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal relay message: %w", err)
	}

	url := fmt.Sprintf("%s/send_custom_message", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create relay request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("relay request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("relay server error (status %d): %s", resp.StatusCode, string(body))
	}

	var result sendResponse
	if err := json.Unmarshal(body, &result); err != nil {
		// Some relay deployments answer with a bare string; a 200 is enough.
		return nil
	}
	if result.ErrCode != 0 {
		return fmt.Errorf("relay delivery rejected (errcode %d): %s", result.ErrCode, result.ErrMsg)
	}
	return nil
}
