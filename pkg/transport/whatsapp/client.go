// Package whatsapp sends text messages through an HTTP WhatsApp gateway.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultTimeout = 30 * time.Second
	maxErrorBody   = 4 << 10
)

var ErrNoURL = errors.New("whatsapp gateway url is required")

// Config points at a gateway exposing POST {URL}/message/sendText/{Instance}.
type Config struct {
	URL      string
	Token    string
	Instance string
}

type message struct {
	Number string `json:"number"`
	Text   string `json:"text"`
}

// GatewayError is a non-2xx answer from the gateway.
type GatewayError struct {
	StatusCode int
	Body       string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("whatsapp gateway returned %d: %s", e.StatusCode, e.Body)
}

// Client implements protocol.WhatsAppSender.
type Client struct {
	endpoint string
	token    string
	http     *http.Client
	logger   *slog.Logger
}

func NewClient(config Config, httpClient *http.Client, logger *slog.Logger) (*Client, error) {
	if config.URL == "" {
		return nil, ErrNoURL
	}

	base, err := url.Parse(strings.TrimRight(config.URL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid whatsapp gateway url: %w", err)
	}

	endpoint := base.JoinPath("message", "sendText")
	if config.Instance != "" {
		endpoint = endpoint.JoinPath(config.Instance)
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	return &Client{
		endpoint: endpoint.String(),
		token:    config.Token,
		http:     httpClient,
		logger:   logger.With("module", "whatsapp"),
	}, nil
}

// SendWhatsApp posts the message to an already normalized phone number.
func (c *Client) SendWhatsApp(ctx context.Context, phone, text string) error {
	payload, err := json.Marshal(message{Number: phone, Text: text})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build whatsapp request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	if c.token != "" {
		req.Header.Set("apikey", c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

		return &GatewayError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	_, _ = io.Copy(io.Discard, resp.Body)

	c.logger.DebugContext(ctx, "WhatsApp message sent", "phone", phone)

	return nil
}
