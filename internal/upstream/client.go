package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// ErrNotConfigured means the feed URL is missing from configuration.
// Distinct from transport failures: retrying is pointless until an operator
// fixes the environment.
var ErrNotConfigured = errors.New("upstream URL not configured")

// StatusError is a non-2xx response from the upstream API.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream request failed with status %d", e.Code)
}

// Client fetches the two device feeds from the upstream vendor API.
// No in-call retry: the fetch schedule is the retry mechanism.
type Client struct {
	http       *resty.Client
	statusURL  string
	detailsURL string
	logger     *zap.Logger
}

func NewClient(statusURL, detailsURL string, timeout time.Duration, logger *zap.Logger) *Client {
	httpClient := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &Client{
		http:       httpClient,
		statusURL:  statusURL,
		detailsURL: detailsURL,
		logger:     logger,
	}
}

// FetchStatus pulls the status feed for one client. The expected body is a
// JSON array of device records; anything else degrades to an empty list
// because the upstream schema is not guaranteed.
func (c *Client) FetchStatus(ctx context.Context, client string) ([]map[string]any, error) {
	if c.statusURL == "" {
		return nil, ErrNotConfigured
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("client", client).
		Get(c.statusURL)
	if err != nil {
		return nil, fmt.Errorf("status feed request: %w", err)
	}
	if !resp.IsSuccess() {
		c.logger.Error("Status feed request failed",
			zap.String("client", client),
			zap.Int("status", resp.StatusCode()),
		)
		return nil, &StatusError{Code: resp.StatusCode()}
	}

	var records []map[string]any
	if err := json.Unmarshal(resp.Body(), &records); err != nil {
		c.logger.Warn("Status feed body is not a device list, treating as empty",
			zap.String("client", client),
			zap.Int("body_bytes", len(resp.Body())),
		)
		records = nil
	}

	c.logger.Info("Status feed response",
		zap.String("client", client),
		zap.Int("status", resp.StatusCode()),
		zap.Int("body_bytes", len(resp.Body())),
		zap.Int("device_count", len(records)),
	)
	return records, nil
}

// detailsEnvelope is the details feed wrapper object.
type detailsEnvelope struct {
	Devices []map[string]any `json:"devices"`
}

// FetchDetails pulls the details feed for one client. The URL template may
// embed the client as {client}. The expected body is {"devices": [...]}.
func (c *Client) FetchDetails(ctx context.Context, client string) ([]map[string]any, error) {
	if c.detailsURL == "" {
		return nil, ErrNotConfigured
	}
	url := strings.ReplaceAll(c.detailsURL, "{client}", client)

	resp, err := c.http.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("details feed request: %w", err)
	}
	if !resp.IsSuccess() {
		c.logger.Error("Details feed request failed",
			zap.String("client", client),
			zap.Int("status", resp.StatusCode()),
		)
		return nil, &StatusError{Code: resp.StatusCode()}
	}

	var envelope detailsEnvelope
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		c.logger.Warn("Details feed body is malformed, treating as empty",
			zap.String("client", client),
			zap.Int("body_bytes", len(resp.Body())),
		)
		envelope.Devices = nil
	}

	c.logger.Info("Details feed response",
		zap.String("client", client),
		zap.Int("status", resp.StatusCode()),
		zap.Int("body_bytes", len(resp.Body())),
		zap.Int("device_count", len(envelope.Devices)),
	)
	return envelope.Devices, nil
}
