// Package adapter defines the interface to the host commerce platform.
// The bridge reads orders, writes fulfillment metadata and audit notes back,
// and creates orders at checkout through it.
package adapter

import (
	"context"

	"printful-bridge/internal/model"
)

// Adapter abstracts the storefront's order API.
// The WooCommerce REST client is the production implementation.
//
// Implementations return *model.APIError for failures the caller may surface.
type Adapter interface {
	// GetOrder loads an order with its line items and metadata.
	GetOrder(ctx context.Context, orderID int64) (*model.Order, error)

	// CreateOrder creates a pending order from a checked-out cart.
	CreateOrder(ctx context.Context, req *model.OrderRequest) (*model.Order, error)

	// UpdateOrderMeta upserts order-level metadata keys.
	// Keys not named in meta are left untouched.
	UpdateOrderMeta(ctx context.Context, orderID int64, meta model.MetaList) error

	// AddOrderNote appends a private note to the order's audit trail.
	AddOrderNote(ctx context.Context, orderID int64, note string) error
}
