package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"printful-bridge/internal/model"
	"printful-bridge/internal/order"
	"printful-bridge/internal/webhook"
	"printful-bridge/internal/woocommerce"
)

// handlePrintfulWebhook verifies and processes a Printful delivery.
// POST /webhooks/printful
func (h *Handler) handlePrintfulWebhook(w http.ResponseWriter, r *http.Request) {
	if h.deps.Deliveries == nil {
		h.writeError(w, r, unavailable("printful webhook"))
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxRequestBodySize))
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, webhook.Response{OK: false, Reason: "unreadable body"})
		return
	}

	status, resp := h.deps.Deliveries.Handle(r.Context(),
		r.Header.Get(webhook.HeaderSignature),
		r.Header.Get(webhook.HeaderPublicKey),
		body,
	)
	h.writeJSON(w, status, resp)
}

type wooWebhookResponse struct {
	OK      bool   `json:"ok"`
	Outcome string `json:"outcome,omitempty"`
}

// handleWooWebhook receives WooCommerce order.updated deliveries and submits
// paid orders to Printful.
// POST /webhooks/woocommerce
func (h *Handler) handleWooWebhook(w http.ResponseWriter, r *http.Request) {
	if h.deps.Orders == nil {
		h.writeError(w, r, unavailable("order submission"))
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxRequestBodySize))
	if err != nil {
		h.writeError(w, r, model.NewBadRequestError("unreadable body"))
		return
	}

	ev, err := woocommerce.ParseWebhook(r.Header, body, h.opts.WooWebhookSecret)
	switch {
	case errors.Is(err, woocommerce.ErrWebhookSecretMissing):
		h.writeError(w, r, model.NewConfigError("WooCommerce webhook secret not configured"))
		return
	case errors.Is(err, woocommerce.ErrSignatureMissing), errors.Is(err, woocommerce.ErrSignatureMismatch):
		h.logger.WarnContext(r.Context(), "woocommerce webhook rejected", slog.Any("error", err))
		h.writeError(w, r, model.NewForbiddenError("invalid webhook signature"))
		return
	case err != nil:
		h.writeError(w, r, model.NewBadRequestError("invalid webhook payload"))
		return
	}

	if ev.Ping || ev.Order == nil {
		h.writeJSON(w, http.StatusOK, wooWebhookResponse{OK: true})
		return
	}

	outcome := h.deps.Orders.HandleStatusChange(r.Context(), ev.Order.ID, ev.Order.Status)
	h.logger.InfoContext(r.Context(), "woocommerce order event",
		slog.String("topic", ev.Topic),
		slog.Int64("order_id", ev.Order.ID),
		slog.String("status", ev.Order.Status),
		slog.String("outcome", string(outcome)),
	)
	h.writeJSON(w, http.StatusOK, wooWebhookResponse{OK: outcome != order.OutcomeFailed, Outcome: string(outcome)})
}
