// Package fcm delivers push notifications through an FCM-style HTTP
// endpoint. Recipient lists are chunked per the downstream per-request
// limit and the chunks are sent concurrently.
package fcm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/fieldops/workorder-api/internal/core"
)

// maxRecipientsPerRequest is the downstream cap on registration ids per
// request.
const maxRecipientsPerRequest = 900

// Config captures the subset of FCM behaviour we need.
type Config struct {
	Endpoint  string
	ServerKey string
	Timeout   time.Duration
	Client    *http.Client
}

// Client posts notification payloads to the configured endpoint. It
// implements the push sender port.
type Client struct {
	endpoint  string
	serverKey string
	client    *http.Client
}

var _ core.PushSender = (*Client)(nil)

// NewClient builds a push client. Callers must provide an endpoint and key.
func NewClient(cfg Config) (*Client, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, errors.New("push endpoint is required")
	}
	key := strings.TrimSpace(cfg.ServerKey)
	if key == "" {
		return nil, errors.New("push server key is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{
		endpoint:  endpoint,
		serverKey: key,
		client:    hc,
	}, nil
}

type payload struct {
	RegistrationIDs []string          `json:"registration_ids"`
	Notification    notification      `json:"notification"`
	Data            map[string]string `json:"data,omitempty"`
}

type notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Send delivers the message to every recipient, one request per chunk of at
// most 900 ids. Chunks are sent concurrently; the first failure is returned
// after all chunks finish.
func (c *Client) Send(ctx context.Context, msg core.PushMessage) error {
	if len(msg.Recipients) == 0 {
		return nil
	}

	// Every chunk carries the same message id so the receiving app can
	// deduplicate across partial retries.
	data := make(map[string]string, len(msg.Data)+1)
	for k, v := range msg.Data {
		data[k] = v
	}
	data["message_id"] = uuid.NewString()

	g, gctx := errgroup.WithContext(ctx)
	for _, chunk := range chunkRecipients(msg.Recipients, maxRecipientsPerRequest) {
		body, err := json.Marshal(payload{
			RegistrationIDs: chunk,
			Notification:    notification{Title: msg.Title, Body: msg.Body},
			Data:            data,
		})
		if err != nil {
			return fmt.Errorf("encode push payload: %w", err)
		}
		g.Go(func() error {
			return c.post(gctx, body)
		})
	}
	return g.Wait()
}

func chunkRecipients(recipients []string, size int) [][]string {
	chunks := make([][]string, 0, (len(recipients)+size-1)/size)
	for len(recipients) > size {
		chunks = append(chunks, recipients[:size])
		recipients = recipients[size:]
	}
	return append(chunks, recipients)
}

func (c *Client) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+c.serverKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("push request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.handleErrorResponse(resp)
	}
	return drainSuccess(resp)
}

func drainSuccess(resp *http.Response) error {
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		closeErr := resp.Body.Close()
		if closeErr != nil {
			return errors.Join(
				fmt.Errorf("drain push response body: %w", err),
				fmt.Errorf("close response body: %w", closeErr),
			)
		}
		return fmt.Errorf("drain push response body: %w", err)
	}
	if err := resp.Body.Close(); err != nil {
		return fmt.Errorf("close response body: %w", err)
	}
	return nil
}

func (c *Client) handleErrorResponse(resp *http.Response) error {
	respBody, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		closeErr := resp.Body.Close()
		if closeErr != nil {
			return errors.Join(
				fmt.Errorf("read push error response: %w", readErr),
				fmt.Errorf("close response body: %w", closeErr),
			)
		}
		return fmt.Errorf("read push error response: %w", readErr)
	}
	if err := resp.Body.Close(); err != nil {
		return fmt.Errorf("close response body: %w", err)
	}
	return fmt.Errorf("push endpoint %s: %s", resp.Status, strings.TrimSpace(string(respBody)))
}
