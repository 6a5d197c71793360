// Package catalog serves filtered, paginated Printful catalog pages with their
// advertised minimum prices, plus the category tree and filter facets that drive
// the storefront grid.
package catalog

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"printful-bridge/internal/cache"
	"printful-bridge/internal/printful"
)

// Every product request is scoped to the Australian selling region.
const (
	DefaultSellingRegion      = "australia"
	DefaultDestinationCountry = "AU"
	DefaultLimit              = 8
	MaxLimit                  = 100
	defaultPriceConcurrency   = 4
)

// Source is the subset of the Printful client the catalog needs.
type Source interface {
	CatalogProducts(ctx context.Context, q printful.ProductQuery) (*printful.ProductPage, error)
	CatalogCategories(ctx context.Context, offset, limit int) ([]printful.Category, error)
}

// PriceResolver resolves a product's minimum price; ok is false when unknown.
type PriceResolver interface {
	MinPrice(ctx context.Context, productID int64, currency, region string) (float64, bool)
}

// Product is one grid entry. Price is nil when the minimum price is unknown.
type Product struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Type        string   `json:"type"`
	Image       string   `json:"image"`
	Price       *float64 `json:"price"`
	Description string   `json:"description"`
}

// Filters narrows a product query. Each list holds opaque facet ids.
type Filters struct {
	Techniques []string `json:"techniques,omitempty"`
	Placements []string `json:"placements,omitempty"`
	Colors     []string `json:"colors,omitempty"`
	Sizes      []string `json:"sizes,omitempty"`
}

// Query selects a page of products.
type Query struct {
	Offset      int
	Limit       int
	CategoryIDs []int64
	Filters     Filters
}

// Page is a cached product page.
// HasMore carries Printful's own end-of-list signal when it sent one.
type Page struct {
	Products []Product `json:"products"`
	HasMore  *bool     `json:"has_more,omitempty"`
}

// Options configures a Service.
type Options struct {
	SellingRegion      string
	DestinationCountry string
	// Currency and PriceRegion are forwarded to price lookups; empty means store default.
	Currency    string
	PriceRegion string
	// AllowedCategoryIDs applies when a query names no categories.
	AllowedCategoryIDs []int64
	PriceConcurrency   int
}

// Service is the catalog query engine.
type Service struct {
	source Source
	prices PriceResolver
	cache  cache.Store
	logger *slog.Logger
	opts   Options
	group  singleflight.Group
}

// NewService creates a catalog service.
func NewService(source Source, prices PriceResolver, store cache.Store, logger *slog.Logger, opts Options) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.SellingRegion == "" {
		opts.SellingRegion = DefaultSellingRegion
	}
	if opts.DestinationCountry == "" {
		opts.DestinationCountry = DefaultDestinationCountry
	}
	if opts.PriceConcurrency <= 0 {
		opts.PriceConcurrency = defaultPriceConcurrency
	}
	opts.AllowedCategoryIDs = NormalizeCategoryIDs(opts.AllowedCategoryIDs)
	return &Service{source: source, prices: prices, cache: store, logger: logger, opts: opts}
}

// GetProducts returns a page of products with minimum prices.
// Remote failures degrade to an empty page and are logged; only non-empty pages
// are cached.
func (s *Service) GetProducts(ctx context.Context, q Query) Page {
	q = s.normalize(q)
	key := ProductsKey(q)

	var cached Page
	if hit, err := cache.GetJSON(ctx, s.cache, key, &cached); err != nil {
		s.logger.WarnContext(ctx, "product cache read failed", slog.String("key", key), slog.Any("error", err))
	} else if hit {
		return cached
	}

	remote, err := s.source.CatalogProducts(ctx, printful.ProductQuery{
		Offset:             q.Offset,
		Limit:              q.Limit,
		CategoryIDs:        q.CategoryIDs,
		Techniques:         q.Filters.Techniques,
		Placements:         q.Filters.Placements,
		Colors:             q.Filters.Colors,
		Sizes:              q.Filters.Sizes,
		SellingRegionName:  s.opts.SellingRegion,
		DestinationCountry: s.opts.DestinationCountry,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "catalog products request failed",
			slog.Int("offset", q.Offset),
			slog.Int("limit", q.Limit),
			slog.Any("error", err),
		)
		return Page{Products: []Product{}}
	}
	if remote == nil || len(remote.Products) == 0 {
		s.logger.InfoContext(ctx, "catalog products empty", slog.Int("offset", q.Offset))
		return Page{Products: []Product{}, HasMore: hasMoreOf(remote)}
	}

	page := Page{
		Products: s.withPrices(ctx, remote.Products),
		HasMore:  remote.HasMore,
	}

	if err := cache.SetJSON(ctx, s.cache, key, page, cache.ProductsTTL); err != nil {
		s.logger.WarnContext(ctx, "product cache write failed", slog.String("key", key), slog.Any("error", err))
	}
	return page
}

func hasMoreOf(p *printful.ProductPage) *bool {
	if p == nil {
		return nil
	}
	return p.HasMore
}

// withPrices resolves minimum prices concurrently, keeping product order.
func (s *Service) withPrices(ctx context.Context, remote []printful.CatalogProduct) []Product {
	out := make([]Product, len(remote))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.PriceConcurrency)
	for i, p := range remote {
		out[i] = Product{
			ID:          p.ID,
			Title:       p.Name,
			Type:        p.Type,
			Image:       p.Image,
			Description: p.Description,
		}
		g.Go(func() error {
			if price, ok := s.prices.MinPrice(gctx, p.ID, s.opts.Currency, s.opts.PriceRegion); ok {
				out[i].Price = &price
			}
			return nil
		})
	}
	g.Wait() // Price lookups never fail the page

	return out
}

func (s *Service) normalize(q Query) Query {
	if q.Offset < 0 {
		q.Offset = 0
	}
	q.Limit = ClampLimit(q.Limit)
	q.CategoryIDs = NormalizeCategoryIDs(q.CategoryIDs)
	if len(q.CategoryIDs) == 0 {
		q.CategoryIDs = s.opts.AllowedCategoryIDs
	}
	q.Filters = NormalizeFilters(q.Filters)
	return q
}

// ClampLimit applies the default page size and the upper bound.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// NextOffset returns where the next page starts, or done when the sequence is
// exhausted: a short page, or Printful saying there is nothing more.
func NextOffset(offset, limit, returned int, hasMore *bool) (next int, done bool) {
	if returned < limit {
		return offset + returned, true
	}
	if hasMore != nil && !*hasMore {
		return offset + returned, true
	}
	return offset + limit, false
}

// ClearCache drops every cached product page, minimum price and the category list.
func (s *Service) ClearCache(ctx context.Context) (int, error) {
	n, err := cache.ClearCatalog(ctx, s.cache)
	if err != nil {
		return n, err
	}
	s.logger.InfoContext(ctx, "catalog cache cleared", slog.Int("keys", n))
	return n, nil
}

// =============================================================================
// NORMALIZATION
// =============================================================================

// NormalizeCategoryIDs keeps positive ids, drops duplicates and sorts ascending.
// The result is nil for an empty input so "no constraint" has one shape.
func NormalizeCategoryIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	var out []int64
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseCategoryIDs accepts "12, 7 12" style input and repeated values.
// Non-numeric tokens are ignored.
func ParseCategoryIDs(raw ...string) []int64 {
	var ids []int64
	for _, tok := range SplitList(raw...) {
		if id, err := strconv.ParseInt(tok, 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	return NormalizeCategoryIDs(ids)
}

// SplitList splits each value on commas and whitespace, dropping empty tokens.
func SplitList(raw ...string) []string {
	var out []string
	for _, r := range raw {
		out = append(out, strings.FieldsFunc(r, func(c rune) bool {
			return c == ',' || c == ' ' || c == '\t' || c == '\n' || c == '\r'
		})...)
	}
	return out
}

// NormalizeFilters trims, dedupes and sorts each facet list. Empty lists become nil
// and are left out of the remote request.
func NormalizeFilters(f Filters) Filters {
	return Filters{
		Techniques: normalizeFacet(f.Techniques),
		Placements: normalizeFacet(f.Placements),
		Colors:     normalizeFacet(f.Colors),
		Sizes:      normalizeFacet(f.Sizes),
	}
}

func normalizeFacet(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	var out []string
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// ProductsKey derives the cache key of a normalized query.
func ProductsKey(q Query) string {
	ids := make([]string, len(q.CategoryIDs))
	for i, id := range q.CategoryIDs {
		ids[i] = strconv.FormatInt(id, 10)
	}

	var b strings.Builder
	b.WriteString(strconv.Itoa(q.Offset))
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(q.Limit))
	b.WriteString("|c=")
	b.WriteString(strings.Join(ids, ","))
	for _, facet := range []struct {
		name   string
		values []string
	}{
		{"techniques", q.Filters.Techniques},
		{"placements", q.Filters.Placements},
		{"colors", q.Filters.Colors},
		{"sizes", q.Filters.Sizes},
	} {
		if len(facet.values) == 0 {
			continue
		}
		b.WriteString("|" + facet.name + "=")
		b.WriteString(strings.Join(facet.values, ","))
	}

	sum := sha1.Sum([]byte(b.String()))
	return cache.ProductsPrefix + hex.EncodeToString(sum[:])
}
