package woocommerce

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"printful-bridge/internal/model"
)

// WooCommerce webhook delivery headers.
const (
	HeaderSignature = "X-WC-Webhook-Signature"
	HeaderTopic     = "X-WC-Webhook-Topic"
)

// Webhook errors.
var (
	ErrWebhookSecretMissing = errors.New("woocommerce: webhook secret not configured")
	ErrSignatureMissing     = errors.New("woocommerce: webhook signature missing")
	ErrSignatureMismatch    = errors.New("woocommerce: webhook signature mismatch")
)

// WebhookEvent is a verified delivery.
// Ping deliveries (sent once when a webhook is created) carry no order.
type WebhookEvent struct {
	Topic string
	Ping  bool
	Order *model.Order
}

// Sign computes the X-WC-Webhook-Signature value for body.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a delivery signature: base64 HMAC-SHA256 of the raw
// body keyed with the webhook secret.
func VerifySignature(body []byte, signature, secret string) error {
	if secret == "" {
		return ErrWebhookSecretMissing
	}
	if signature == "" {
		return ErrSignatureMissing
	}
	if !hmac.Equal([]byte(Sign(body, secret)), []byte(signature)) {
		return ErrSignatureMismatch
	}
	return nil
}

// ParseWebhook verifies and decodes an order webhook delivery.
func ParseWebhook(h http.Header, body []byte, secret string) (*WebhookEvent, error) {
	if bytes.HasPrefix(body, []byte("webhook_id=")) {
		return &WebhookEvent{Ping: true}, nil
	}
	if err := VerifySignature(body, h.Get(HeaderSignature), secret); err != nil {
		return nil, err
	}

	var wc WooOrder
	if err := json.Unmarshal(body, &wc); err != nil {
		return nil, fmt.Errorf("woocommerce: decode webhook: %w", err)
	}
	return &WebhookEvent{Topic: h.Get(HeaderTopic), Order: OrderToModel(&wc)}, nil
}
