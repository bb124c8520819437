package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tiendabot/pedidos/internal/metrics"
)

const defaultBaseURL = "https://graph.facebook.com"

// Client is the Messaging Gateway: it delivers built payloads to the Cloud API.
type Client struct {
	baseURL       string
	apiVersion    string
	phoneNumberID string
	accessToken   string
	http          *http.Client
}

func NewClient(apiVersion, phoneNumberID, accessToken string) *Client {
	return &Client{
		baseURL:       defaultBaseURL,
		apiVersion:    apiVersion,
		phoneNumberID: phoneNumberID,
		accessToken:   accessToken,
		http:          &http.Client{Timeout: 15 * time.Second},
	}
}

// WithBaseURL points the client at another host, e.g. a test server.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

func (c *Client) endpoint() string {
	return fmt.Sprintf("%s/%s/%s/messages", c.baseURL, c.apiVersion, c.phoneNumberID)
}

// Send posts msg and returns the API response. Failures are *GatewayError.
func (c *Client) Send(ctx context.Context, msg SendMessageRequest) (*SendResponse, error) {
	resp, err := c.send(ctx, msg)
	metrics.RecordSend(msg.Kind(), err)
	return resp, err
}

func (c *Client) send(ctx context.Context, msg SendMessageRequest) (*SendResponse, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, &GatewayError{Err: fmt.Errorf("marshaling message: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(payload))
	if err != nil {
		return nil, &GatewayError{Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &GatewayError{Err: fmt.Errorf("sending message: %w", err)}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode >= 400 {
		return nil, &GatewayError{Status: resp.StatusCode, Body: string(respBody)}
	}

	var out SendResponse
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &out); err != nil {
			return nil, &GatewayError{Status: resp.StatusCode, Body: string(respBody), Err: fmt.Errorf("decoding response: %w", err)}
		}
	}
	return &out, nil
}
