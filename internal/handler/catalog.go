package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"printful-bridge/internal/catalog"
	"printful-bridge/internal/model"
	"printful-bridge/internal/pricing"
)

// productsResponse is one catalog page plus where the next one starts.
type productsResponse struct {
	Products   []catalog.Product `json:"products"`
	NextOffset int               `json:"next_offset"`
	Done       bool              `json:"done"`
}

// handleProducts returns a filtered catalog page.
// GET /catalog/products?offset&limit&category_ids&techniques&placements&colors&sizes
func (h *Handler) handleProducts(w http.ResponseWriter, r *http.Request) {
	if h.deps.Catalog == nil {
		h.writeError(w, r, unavailable("catalog"))
		return
	}

	q := r.URL.Query()
	offset, _ := strconv.Atoi(q.Get("offset"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	query := catalog.Query{
		Offset:      max(offset, 0),
		Limit:       catalog.ClampLimit(limit),
		CategoryIDs: catalog.ParseCategoryIDs(q["category_ids"]...),
		Filters: catalog.Filters{
			Techniques: catalog.SplitList(q["techniques"]...),
			Placements: catalog.SplitList(q["placements"]...),
			Colors:     catalog.SplitList(q["colors"]...),
			Sizes:      catalog.SplitList(q["sizes"]...),
		},
	}

	h.writeJSON(w, http.StatusOK, h.productsPage(r.Context(), query))
}

// productsPage runs q and computes the continuation.
func (h *Handler) productsPage(ctx context.Context, q catalog.Query) productsResponse {
	page := h.deps.Catalog.GetProducts(ctx, q)
	products := page.Products
	if products == nil {
		products = []catalog.Product{}
	}
	if h.opts.ShowRetail {
		products = h.retail(products)
	}
	next, done := catalog.NextOffset(q.Offset, q.Limit, len(page.Products), page.HasMore)
	return productsResponse{Products: products, NextOffset: next, Done: done}
}

// retail marks up every known price without touching the cached page.
func (h *Handler) retail(in []catalog.Product) []catalog.Product {
	out := make([]catalog.Product, len(in))
	for i, p := range in {
		if p.Price != nil {
			v := pricing.ApplyMarkup(*p.Price, h.opts.MarkupPct, h.opts.MarkupFix)
			p.Price = &v
		}
		out[i] = p
	}
	return out
}

type categoriesResponse struct {
	Categories []catalog.Category     `json:"categories"`
	Paths      []catalog.CategoryPath `json:"paths"`
}

// handleCategories returns the category tree with breadcrumb labels.
// GET /catalog/categories?force=1
func (h *Handler) handleCategories(w http.ResponseWriter, r *http.Request) {
	if h.deps.Catalog == nil {
		h.writeError(w, r, unavailable("catalog"))
		return
	}
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))
	h.writeJSON(w, http.StatusOK, h.categoryTree(r.Context(), force))
}

// handleFilters returns the facet definitions.
// GET /catalog/filters
func (h *Handler) handleFilters(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, catalog.FilterDefinitions())
}

type minPriceResponse struct {
	ProductID int64    `json:"product_id"`
	Price     *float64 `json:"price"`
	Retail    *float64 `json:"retail,omitempty"`
	Currency  string   `json:"currency"`
}

// handleMinPrice returns a product's lowest price; price is null when unknown.
// GET /catalog/products/{id}/min-price?currency&region
func (h *Handler) handleMinPrice(w http.ResponseWriter, r *http.Request) {
	if h.deps.Prices == nil {
		h.writeError(w, r, unavailable("pricing"))
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		h.writeError(w, r, model.NewValidationError("id", "must be a positive integer"))
		return
	}

	q := r.URL.Query()
	resp := h.minPrice(r.Context(), id, q.Get("currency"), q.Get("region"))
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) minPrice(ctx context.Context, id int64, currency, region string) minPriceResponse {
	currency = strings.ToUpper(currency)
	resp := minPriceResponse{ProductID: id, Currency: currency}
	if resp.Currency == "" {
		resp.Currency = h.opts.Currency
	}
	if price, ok := h.deps.Prices.MinPrice(ctx, id, currency, region); ok {
		resp.Price = &price
		if h.opts.ShowRetail {
			retail := pricing.ApplyMarkup(price, h.opts.MarkupPct, h.opts.MarkupFix)
			resp.Retail = &retail
		}
	}
	return resp
}

// categoryTree returns the category list with non-nil slices.
func (h *Handler) categoryTree(ctx context.Context, force bool) categoriesResponse {
	cats := h.deps.Catalog.Categories(ctx, force)
	if cats == nil {
		cats = []catalog.Category{}
	}
	paths := catalog.CategoryPaths(cats)
	if paths == nil {
		paths = []catalog.CategoryPath{}
	}
	return categoriesResponse{Categories: cats, Paths: paths}
}
