package printful

import "context"

// Webhook event types the bridge subscribes to.
const (
	EventOrderCreated = "order_created"
	EventOrderUpdated = "order_updated"
	EventOrderFailed  = "order_failed"
)

// webhookEnvelope tolerates keys under either "result" or "data".
type webhookEnvelope struct {
	Result *WebhookConfig `json:"result"`
	Data   *WebhookConfig `json:"data"`
}

func (e webhookEnvelope) config() *WebhookConfig {
	if e.Data != nil {
		return e.Data
	}
	if e.Result != nil {
		return e.Result
	}
	return &WebhookConfig{}
}

// CreateWebhook (re)registers the store's webhook target. Printful returns fresh
// signing keys on every call.
func (c *Client) CreateWebhook(ctx context.Context, wr WebhookRequest) (*WebhookConfig, error) {
	var env webhookEnvelope
	if err := c.post(ctx, "v2/webhooks", wr, &env); err != nil {
		return nil, err
	}
	return env.config(), nil
}

// GetWebhooks reports the current webhook configuration.
func (c *Client) GetWebhooks(ctx context.Context) (*WebhookConfig, error) {
	var env webhookEnvelope
	if err := c.get(ctx, "v2/webhooks", &env); err != nil {
		return nil, err
	}
	return env.config(), nil
}
