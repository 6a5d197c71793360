// Package cache provides the keyed TTL store behind catalog pages, category trees, minimum
// prices, guest drafts, cart sessions and confirmation-flow memory.
//
// Two backends implement Store: Memory for single-instance and test use, Redis for
// deployments running more than one replica. Values are JSON encoded so both backends hold
// identical bytes for the same value.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Store is a keyed byte store with per-entry expiry.
// A zero ttl means the entry never expires.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Take returns the value and removes it in one atomic step. Of two concurrent
	// Takes for the same key, exactly one observes the value.
	Take(ctx context.Context, key string) ([]byte, bool, error)
	// DeletePrefix removes every key starting with prefix and reports how many went.
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

// Well-known keys and prefixes.
const (
	ProductsPrefix   = "pf_products_"
	CategoriesKey    = "pf_catalog_categories_all_v2"
	MinPricePrefix   = "pf_min_price_"
	GuestDraftPrefix = "pf_guest_draft_"
	FlowPrefix       = "pf_flow_"
	CartPrefix       = "pf_cart_"
	WebhookKeysKey   = "pf_webhook_keys"
)

// TTLs per cached kind.
const (
	ProductsTTL   = 30 * time.Minute
	CategoriesTTL = 24 * time.Hour
	MinPriceTTL   = 12 * time.Hour
	GuestDraftTTL = 6 * time.Hour
	FlowTTL       = 72 * time.Hour
	CartTTL       = 48 * time.Hour
)

// GetJSON loads key into dst. Returns false on a miss.
// A value that no longer decodes is treated as a miss and removed.
func GetJSON(ctx context.Context, s Store, key string, dst any) (bool, error) {
	data, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		_ = s.Delete(ctx, key)
		return false, nil
	}
	return true, nil
}

// SetJSON stores v under key.
func SetJSON(ctx context.Context, s Store, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", key, err)
	}
	return s.Set(ctx, key, data, ttl)
}

// TakeJSON atomically removes key and decodes it into dst.
func TakeJSON(ctx context.Context, s Store, key string, dst any) (bool, error) {
	data, ok, err := s.Take(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, nil
	}
	return true, nil
}

// ClearCatalog drops cached product pages, categories and minimum prices.
// Called by the admin cache-clear action and after settings change.
func ClearCatalog(ctx context.Context, s Store) (int, error) {
	total := 0
	for _, prefix := range []string{ProductsPrefix, MinPricePrefix} {
		n, err := s.DeletePrefix(ctx, prefix)
		if err != nil {
			return total, fmt.Errorf("cache: clear %s: %w", prefix, err)
		}
		total += n
	}
	if err := s.Delete(ctx, CategoriesKey); err != nil {
		return total, fmt.Errorf("cache: clear categories: %w", err)
	}
	return total, nil
}
