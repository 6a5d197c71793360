package webhook

import (
	"context"
	"errors"
	"log/slog"

	"printful-bridge/internal/cache"
	"printful-bridge/internal/model"
	"printful-bridge/internal/printful"
)

// Keys are the signing keys Printful issued for this store.
type Keys struct {
	PublicKey string `json:"public_key"`
	SecretHex string `json:"secret_hex"`
}

// API is the Printful webhook endpoint.
type API interface {
	CreateWebhook(ctx context.Context, req printful.WebhookRequest) (*printful.WebhookConfig, error)
	GetWebhooks(ctx context.Context) (*printful.WebhookConfig, error)
}

// Status is what the admin surface shows about the subscription.
type Status struct {
	DefaultURL   string                  `json:"default_url"`
	PublicKey    string                  `json:"public_key,omitempty"`
	SecretMasked string                  `json:"secret_masked,omitempty"`
	Remote       *printful.WebhookConfig `json:"remote,omitempty"`
	RemoteError  string                  `json:"remote_error,omitempty"`
}

// Subscriptions registers the webhook with Printful and keeps its keys.
type Subscriptions struct {
	pf         API
	cache      cache.Store
	defaultURL string
	logger     *slog.Logger
}

// NewSubscriptions creates a subscription manager. defaultURL is where
// Printful should deliver (this service's /webhooks/printful).
func NewSubscriptions(pf API, store cache.Store, defaultURL string, logger *slog.Logger) *Subscriptions {
	if logger == nil {
		logger = slog.Default()
	}
	return &Subscriptions{pf: pf, cache: store, defaultURL: defaultURL, logger: logger}
}

// Keys returns the stored keys; zero Keys when none are stored.
func (s *Subscriptions) Keys(ctx context.Context) (Keys, error) {
	var k Keys
	if _, err := cache.GetJSON(ctx, s.cache, cache.WebhookKeysKey, &k); err != nil {
		return Keys{}, err
	}
	return k, nil
}

// Subscribe (re)registers for order_created and order_updated and stores the
// fresh keys. Previously stored keys stay when Printful returns none.
func (s *Subscriptions) Subscribe(ctx context.Context) (*Status, error) {
	if s.defaultURL == "" {
		return nil, model.NewConfigError("Webhook URL not configured")
	}
	cfg, err := s.pf.CreateWebhook(ctx, printful.WebhookRequest{
		DefaultURL: s.defaultURL,
		Events: []printful.WebhookEvent{
			{Type: printful.EventOrderCreated},
			{Type: printful.EventOrderUpdated},
		},
	})
	if err != nil {
		return nil, err
	}
	if cfg.PublicKey == "" || cfg.SecretKey == "" {
		return nil, model.NewUpstreamError("Printful", errors.New("webhook response carried no keys"))
	}

	keys := Keys{PublicKey: cfg.PublicKey, SecretHex: cfg.SecretKey}
	if err := cache.SetJSON(ctx, s.cache, cache.WebhookKeysKey, keys, 0); err != nil {
		return nil, model.NewInternalError(err)
	}
	s.logger.InfoContext(ctx, "printful webhook subscribed",
		slog.String("default_url", s.defaultURL),
		slog.String("public_key", keys.PublicKey),
	)
	return s.statusFor(keys, cfg, nil), nil
}

// Status reports the stored keys and the remote configuration. A remote
// failure is reported in the result rather than returned.
func (s *Subscriptions) Status(ctx context.Context) (*Status, error) {
	keys, err := s.Keys(ctx)
	if err != nil {
		return nil, model.NewInternalError(err)
	}
	remote, rerr := s.pf.GetWebhooks(ctx)
	return s.statusFor(keys, remote, rerr), nil
}

// Clear forgets the stored keys. Signed deliveries are rejected until the next Subscribe.
func (s *Subscriptions) Clear(ctx context.Context) error {
	if err := s.cache.Delete(ctx, cache.WebhookKeysKey); err != nil {
		return model.NewInternalError(err)
	}
	s.logger.InfoContext(ctx, "printful webhook keys cleared")
	return nil
}

func (s *Subscriptions) statusFor(keys Keys, remote *printful.WebhookConfig, rerr error) *Status {
	st := &Status{DefaultURL: s.defaultURL, PublicKey: keys.PublicKey}
	if keys.SecretHex != "" {
		st.SecretMasked = MaskHex(keys.SecretHex)
	}
	if rerr != nil {
		st.RemoteError = rerr.Error()
		return st
	}
	if remote != nil {
		cp := *remote
		if cp.SecretKey != "" {
			cp.SecretKey = MaskHex(cp.SecretKey)
		}
		st.Remote = &cp
	}
	return st
}
