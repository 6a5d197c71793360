package printful

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/mod/semver"
)

// Flow selects which API generation confirms an order.
type Flow string

const (
	FlowV1 Flow = "v1"
	FlowV2 Flow = "v2"
)

// ParseFlow accepts "v1", "1", "v2.0" and similar. Anything that is not a valid
// version, or a major version other than 1, maps to FlowV2.
func ParseFlow(s string) Flow {
	v := strings.TrimSpace(strings.ToLower(s))
	if v == "" {
		return FlowV2
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return FlowV2
	}
	if semver.Major(v) == "v1" {
		return FlowV1
	}
	return FlowV2
}

// CreateOrder submits an order (v1 POST orders).
func (c *Client) CreateOrder(ctx context.Context, or OrderRequest) (*Order, error) {
	var env v1Envelope[*Order]
	if err := c.post(ctx, "orders", or, &env); err != nil {
		return nil, err
	}
	return env.Result, nil
}

// GetOrder fetches an order by Printful id (v1).
func (c *Client) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	var env v1Envelope[*Order]
	if err := c.get(ctx, "orders/"+orderID, &env); err != nil {
		return nil, err
	}
	return env.Result, nil
}

// ConfirmOrderV2 asks Printful to confirm a draft (POST v2/orders/{id}/confirmation).
// The result is non-nil whenever Printful answered, including error statuses.
func (c *Client) ConfirmOrderV2(ctx context.Context, orderID string) (*ConfirmResult, error) {
	var env v2Envelope[struct {
		Status string `json:"status"`
	}]
	code, err := c.confirm(ctx, fmt.Sprintf("v2/orders/%s/confirmation", orderID), &env)
	if code == 0 {
		return nil, err
	}
	return &ConfirmResult{StatusCode: code, Status: env.Data.Status}, err
}

// ConfirmOrderV1 confirms a draft through the legacy endpoint (POST orders/{id}/confirm).
func (c *Client) ConfirmOrderV1(ctx context.Context, orderID string) (*ConfirmResult, error) {
	var env v1Envelope[struct {
		Status string `json:"status"`
	}]
	code, err := c.confirm(ctx, fmt.Sprintf("orders/%s/confirm", orderID), &env)
	if code == 0 {
		return nil, err
	}
	return &ConfirmResult{StatusCode: code, Status: env.Result.Status}, err
}

// ConfirmOrder dispatches on flow.
func (c *Client) ConfirmOrder(ctx context.Context, flow Flow, orderID string) (*ConfirmResult, error) {
	if flow == FlowV1 {
		return c.ConfirmOrderV1(ctx, orderID)
	}
	return c.ConfirmOrderV2(ctx, orderID)
}

func (c *Client) confirm(ctx context.Context, path string, result interface{}) (int, error) {
	req, err := c.newRequest(ctx, http.MethodPost, path, struct{}{})
	if err != nil {
		return 0, err
	}
	return c.do(c.confirmClient, req, result)
}
