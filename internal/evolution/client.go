// Package evolution provides an HTTP client for the Evolution API
// WhatsApp gateway, used to send reply messages to users.
package evolution

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Sender sends a WhatsApp text message to a number.
type Sender interface {
	SendText(ctx context.Context, number, text string) error
}

// Client communicates with an Evolution API instance.
type Client struct {
	baseURL    string
	apiKey     string
	instance   string
	httpClient *http.Client
}

// NewClient creates a new Evolution API client.
func NewClient(baseURL, apiKey, instance string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		instance:   instance,
		httpClient: httpClient,
	}
}

type sendTextRequest struct {
	Number string `json:"number"`
	Text   string `json:"text"`
}

// SendText sends a plain text message to the given WhatsApp number.
func (c *Client) SendText(ctx context.Context, number, text string) error {
	body := sendTextRequest{Number: number, Text: text}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling message: %w", err)
	}

	url := fmt.Sprintf("%s/message/sendText/%s", c.baseURL, c.instance)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(jsonBody)))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending message: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sending message: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// JIDToNumber strips the WhatsApp JID suffix ("5511999999999@s.whatsapp.net")
// down to the bare number Evolution expects.
func JIDToNumber(jid string) string {
	if i := strings.IndexByte(jid, '@'); i >= 0 {
		return jid[:i]
	}
	return jid
}
