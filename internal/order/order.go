// Package order pushes paid storefront orders to Printful and drives the
// confirmation of orders Printful accepted as drafts.
//
// Submission runs once per storefront order: the printful_order_id meta key is
// the idempotency record, and Printful's external_id carries the storefront id
// for correlation. Confirmation is durable: a Job{remote id, attempt,
// not_before} per draft order sits in a Queue until a Worker (or a Printful
// webhook) sees it confirmed.
package order

import (
	"context"

	"printful-bridge/internal/printful"
)

// PrintfulAPI is the slice of the Printful client this package drives.
type PrintfulAPI interface {
	CreateOrder(ctx context.Context, req printful.OrderRequest) (*printful.Order, error)
	ConfirmOrderV1(ctx context.Context, orderID string) (*printful.ConfirmResult, error)
	ConfirmOrderV2(ctx context.Context, orderID string) (*printful.ConfirmResult, error)
}

// Outcome reports what a status change did. Submission never returns errors to
// its trigger; outcomes are recorded as order notes and surfaced here for logs.
type Outcome string

const (
	OutcomeIgnored          Outcome = "ignored"           // status does not trigger fulfillment
	OutcomeAlreadySubmitted Outcome = "already_submitted" // printful_order_id present
	OutcomeInFlight         Outcome = "in_flight"         // another trigger is submitting this order
	OutcomeNoItems          Outcome = "no_items"
	OutcomeSubmitted        Outcome = "submitted"
	OutcomeFailed           Outcome = "failed"
)

// Qualifying storefront statuses: payment complete, or explicitly completed.
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
)

// Qualifies reports whether a storefront status triggers submission.
func Qualifies(status string) bool {
	return status == StatusProcessing || status == StatusCompleted
}
