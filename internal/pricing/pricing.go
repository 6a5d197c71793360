// Package pricing resolves advertised "from" prices for catalog products and applies
// the store markup.
package pricing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/singleflight"

	"printful-bridge/internal/cache"
	"printful-bridge/internal/model"
	"printful-bridge/internal/printful"
)

// PriceSource fetches a product's price table. *printful.Client satisfies it.
type PriceSource interface {
	CatalogProductPrices(ctx context.Context, productID int64, q printful.PriceQuery) (*printful.ProductPrices, error)
}

// Resolver computes and caches per-product minimum prices.
type Resolver struct {
	source PriceSource
	cache  cache.Store
	logger *slog.Logger
	group  singleflight.Group
}

// NewResolver creates a Resolver.
func NewResolver(source PriceSource, store cache.Store, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{source: source, cache: store, logger: logger}
}

// MinPriceKey is the cache key for one (product, currency, region) price.
// Empty currency or region mean "use the store default".
func MinPriceKey(productID int64, currency, region string) string {
	if currency == "" {
		currency = "store"
	}
	if region == "" {
		region = "store"
	}
	return fmt.Sprintf("%s%d_%s_%s", cache.MinPricePrefix, productID, strings.ToUpper(currency), strings.ToLower(region))
}

// MinPrice returns the lowest technique price across all variants of a product.
// ok is false when the price is unknown: remote failure, empty table, or no numeric
// price anywhere. Unknown prices are not cached so the next request retries.
func (r *Resolver) MinPrice(ctx context.Context, productID int64, currency, region string) (price float64, ok bool) {
	if productID <= 0 {
		return 0, false
	}
	key := MinPriceKey(productID, currency, region)

	var cached float64
	if hit, err := cache.GetJSON(ctx, r.cache, key, &cached); err != nil {
		r.logger.WarnContext(ctx, "min price cache read failed", slog.String("key", key), slog.Any("error", err))
	} else if hit {
		return cached, true
	}

	// Concurrent misses for the same key (several catalog pages rendering the same
	// product) share one remote call, which outlives any single caller's cancellation.
	v, _, _ := r.group.Do(key, func() (interface{}, error) {
		ctx := context.WithoutCancel(ctx)
		prices, err := r.source.CatalogProductPrices(ctx, productID, printful.PriceQuery{
			Currency:          currency,
			SellingRegionName: region,
		})
		if err != nil {
			r.logger.WarnContext(ctx, "price lookup failed",
				slog.Int64("product_id", productID),
				slog.Any("error", err),
			)
			return nil, nil
		}

		min, found := MinOf(prices)
		if !found {
			r.logger.InfoContext(ctx, "no numeric price in price table", slog.Int64("product_id", productID))
			return nil, nil
		}

		if err := cache.SetJSON(ctx, r.cache, key, min, cache.MinPriceTTL); err != nil {
			r.logger.WarnContext(ctx, "min price cache write failed", slog.String("key", key), slog.Any("error", err))
		}
		return min, nil
	})

	if min, isFloat := v.(float64); isFloat {
		return min, true
	}
	return 0, false
}

// MinOf walks variants → techniques and returns the global minimum price.
// Ties keep the first entry encountered.
func MinOf(prices *printful.ProductPrices) (float64, bool) {
	if prices == nil {
		return 0, false
	}
	var min float64
	found := false
	for _, v := range prices.Variants {
		for _, t := range v.Techniques {
			if !t.Price.Valid {
				continue
			}
			if !found || t.Price.Value < min {
				min = t.Price.Value
				found = true
			}
		}
	}
	return min, found
}

// ApplyMarkup computes the retail price: unit * (1 + pct/100) + fix, rounded to cents.
func ApplyMarkup(unit, pct, fix float64) float64 {
	return model.RoundPrice(unit*(1+pct/100) + fix)
}
