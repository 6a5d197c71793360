package woocommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"printful-bridge/internal/adapter"
	"printful-bridge/internal/model"
	"printful-bridge/internal/transport"
)

// restAPIPath is the base path for WooCommerce REST API v3 endpoints.
// Must include /wp-json prefix for proper routing.
const restAPIPath = "/wp-json/wc/v3"

// defaultTimeout bounds every REST call.
const defaultTimeout = 30 * time.Second

// maxResponseSize caps how much of a response body is read.
const maxResponseSize = 4 << 20

// userAgent identifies this client to upstream servers.
// Required: WooCommerce CDN/WAF rate-limits requests without User-Agent.
const userAgent = "printful-bridge/1.0"

// Config holds WooCommerce-specific adapter configuration.
type Config struct {
	StoreURL  string
	APIKey    string // consumer key (ck_...)
	APISecret string // consumer secret (cs_...)

	// HTTPClient overrides the default Chrome-fingerprint client (tests).
	HTTPClient *http.Client
}

// Client implements adapter.Adapter for WooCommerce stores using the REST API v3.
// Requests authenticate with HTTP Basic using the consumer key and secret, which
// WooCommerce accepts over HTTPS.
type Client struct {
	httpClient *http.Client
	storeURL   string
	apiKey     string
	apiSecret  string
}

var _ adapter.Adapter = (*Client)(nil)

// New creates a WooCommerce client with the given configuration.
func New(cfg Config) (*Client, error) {
	if cfg.StoreURL == "" {
		return nil, fmt.Errorf("store URL is required")
	}
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("API credentials are required")
	}

	hc := cfg.HTTPClient
	if hc == nil {
		// Chrome TLS fingerprint transport avoids JA3-based rate limiting on
		// hosted stores. See internal/transport.
		hc = transport.NewClient(defaultTimeout)
	}
	return &Client{
		httpClient: hc,
		storeURL:   strings.TrimSuffix(cfg.StoreURL, "/"),
		apiKey:     cfg.APIKey,
		apiSecret:  cfg.APISecret,
	}, nil
}

// GetOrder loads an order.
func (c *Client) GetOrder(ctx context.Context, orderID int64) (*model.Order, error) {
	var wc WooOrder
	if err := c.do(ctx, http.MethodGet, "/orders/"+strconv.FormatInt(orderID, 10), nil, &wc); err != nil {
		return nil, err
	}
	return OrderToModel(&wc), nil
}

// CreateOrder creates an unpaid order from a checked-out cart.
func (c *Client) CreateOrder(ctx context.Context, req *model.OrderRequest) (*model.Order, error) {
	var wc WooOrder
	if err := c.do(ctx, http.MethodPost, "/orders", OrderRequestFromModel(req), &wc); err != nil {
		return nil, err
	}
	return OrderToModel(&wc), nil
}

// UpdateOrderMeta writes order meta. WooCommerce updates entries whose key
// already exists and appends the rest.
func (c *Client) UpdateOrderMeta(ctx context.Context, orderID int64, meta model.MetaList) error {
	body := WooMetaUpdate{MetaData: metaFromModel(meta)}
	return c.do(ctx, http.MethodPut, "/orders/"+strconv.FormatInt(orderID, 10), body, nil)
}

// AddOrderNote appends a private order note.
func (c *Client) AddOrderNote(ctx context.Context, orderID int64, note string) error {
	body := WooNoteRequest{Note: note}
	return c.do(ctx, http.MethodPost, "/orders/"+strconv.FormatInt(orderID, 10)+"/notes", body, nil)
}

// do sends one REST request and decodes a 2xx body into result when non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.storeURL+restAPIPath+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	c.setRESTHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.NewUpstreamError("WooCommerce", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return model.NewUpstreamError("WooCommerce", fmt.Errorf("reading response: %w", err))
	}

	if resp.StatusCode >= 400 {
		return c.parseErrorResponse(resp.StatusCode, respBody)
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, result); err != nil {
		return model.NewUpstreamError("WooCommerce", fmt.Errorf("parsing response: %w", err))
	}
	return nil
}

// setRESTHeaders sets headers for WooCommerce REST API requests.
func (c *Client) setRESTHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.apiKey, c.apiSecret)
}

// parseErrorResponse converts WooCommerce error to APIError.
func (c *Client) parseErrorResponse(statusCode int, body []byte) error {
	var wcErr WooErrorResponse
	_ = json.Unmarshal(body, &wcErr) // Best effort parse

	switch statusCode {
	case 404:
		return model.NewNotFoundError("order")
	case 401, 403:
		return model.NewUnauthorizedError("WooCommerce authentication failed")
	case 400:
		msg := wcErr.Message
		if msg == "" {
			msg = "invalid request"
		}
		return model.NewValidationError("request", msg)
	case 429:
		return model.NewRateLimitError("WooCommerce")
	default:
		return model.NewUpstreamError("WooCommerce",
			fmt.Errorf("status %d: %s - %s", statusCode, wcErr.Code, wcErr.Message))
	}
}
