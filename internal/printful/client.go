// Package printful is the authenticated client for the Printful REST API: catalog,
// pricing, product templates, embedded-designer nonces, orders, shipping rates and
// webhook subscriptions.
package printful

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"printful-bridge/internal/model"
	"printful-bridge/internal/transport"
)

// =============================================================================
// API GENERATIONS
// =============================================================================
//
// Printful serves two API generations from the same host:
//
//   v1  (no prefix)  orders, order confirm, shipping/rates, product-templates,
//                    embedded-designer/nonces. Envelope: {"code", "result", "error"}
//   v2  ("v2/")      catalog-products, catalog-categories, prices, order
//                    confirmation, webhooks. Envelope: {"data", "paging", "_links"}
//
// Both authenticate with a bearer token; account-level tokens additionally need
// X-PF-Store-Id to pick the store. Callers never see the envelopes: every method
// unwraps to typed results.
// =============================================================================

// DefaultBaseURL is the production API root.
const DefaultBaseURL = "https://api.printful.com/"

// Request timeouts. Order confirmation gets the longer budget because Printful
// finalizes costs synchronously on that call.
const (
	DefaultTimeout = 15 * time.Second
	ConfirmTimeout = 30 * time.Second
)

const userAgent = "printful-bridge/1.0"

// maxResponseSize caps how much of a response body is read.
const maxResponseSize = 8 << 20

// Config holds client settings.
type Config struct {
	APIKey  string
	StoreID string
	// BaseURL overrides DefaultBaseURL (tests, sandboxes).
	BaseURL string
	// HTTPClient overrides the Chrome-fingerprint transport client for all calls.
	HTTPClient *http.Client
}

// Client talks to the Printful API.
type Client struct {
	httpClient    *http.Client
	confirmClient *http.Client
	baseURL       string
	apiKey        string
	storeID       string
}

// New creates a client. The API key is required; the store id is sent when set.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, model.NewConfigError("Printful API key not configured")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	c := &Client{
		baseURL: baseURL,
		apiKey:  strings.TrimSpace(cfg.APIKey),
		storeID: strings.TrimSpace(cfg.StoreID),
	}
	if cfg.HTTPClient != nil {
		c.httpClient = cfg.HTTPClient
		c.confirmClient = cfg.HTTPClient
	} else {
		c.httpClient = transport.NewClient(DefaultTimeout)
		c.confirmClient = transport.NewClient(ConfirmTimeout)
	}
	return c, nil
}

// newRequest builds an authenticated JSON request. path is relative to the base URL
// ("v2/catalog-products", "orders").
func (c *Client) newRequest(ctx context.Context, method, path string, body interface{}) (*http.Request, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+strings.TrimPrefix(path, "/"), bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if c.storeID != "" {
		req.Header.Set("X-PF-Store-Id", c.storeID)
	}

	return req, nil
}

// do executes req and decodes a 2xx body into result. It returns the HTTP status
// whenever a response arrived, so callers that judge success by status (204 vs
// 200) can inspect it even on error.
func (c *Client) do(hc *http.Client, req *http.Request, result interface{}) (int, error) {
	resp, err := hc.Do(req)
	if err != nil {
		return 0, model.NewUpstreamError("Printful", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return resp.StatusCode, model.NewUpstreamError("Printful", fmt.Errorf("reading response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, c.parseError(resp.StatusCode, body)
	}

	if result != nil && len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, result); err != nil {
			return resp.StatusCode, model.NewUpstreamError("Printful", fmt.Errorf("parsing response: %w", err))
		}
	}

	return resp.StatusCode, nil
}

// get is the common GET path for both envelope kinds.
func (c *Client) get(ctx context.Context, path string, result interface{}) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	_, err = c.do(c.httpClient, req, result)
	return err
}

func (c *Client) post(ctx context.Context, path string, body, result interface{}) error {
	req, err := c.newRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return err
	}
	_, err = c.do(c.httpClient, req, result)
	return err
}

// parseError maps Printful error responses onto model errors.
// Both envelopes carry a message: v1 under error.message / result, v2 under error.message.
func (c *Client) parseError(statusCode int, body []byte) error {
	var pfErr ErrorResponse
	json.Unmarshal(body, &pfErr) // Best effort parse

	msg := pfErr.message()
	switch statusCode {
	case 401:
		return model.NewUnauthorizedError("Printful authentication failed")
	case 403:
		return model.NewForbiddenError("Printful access denied")
	case 404:
		return model.NewNotFoundError("Printful resource")
	case 429:
		return model.NewRateLimitError("Printful")
	case 400, 422:
		if msg == "" {
			msg = "invalid request"
		}
		return model.NewValidationError("request", msg)
	default:
		return model.NewUpstreamError("Printful", fmt.Errorf("status %d: %s", statusCode, msg))
	}
}
