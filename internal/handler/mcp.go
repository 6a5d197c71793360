// MCP transport for the bridge using the official MCP Go SDK.
// Exposes read-only catalog, pricing, shipping and order lookups as MCP tools.
package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"printful-bridge/internal/catalog"
	"printful-bridge/internal/model"
	"printful-bridge/internal/printful"
)

// === MCP Tool Input Types ===

// SearchCatalogInput is the input schema for the search_catalog tool.
type SearchCatalogInput struct {
	Offset      int      `json:"offset,omitempty" jsonschema:"index of the first product"`
	Limit       int      `json:"limit,omitempty" jsonschema:"page size, default 8, at most 100"`
	CategoryIDs []int64  `json:"category_ids,omitempty" jsonschema:"Printful category ids"`
	Techniques  []string `json:"techniques,omitempty" jsonschema:"technique facet ids such as dtg or embroidery"`
	Placements  []string `json:"placements,omitempty" jsonschema:"placement facet ids such as front or back"`
	Colors      []string `json:"colors,omitempty" jsonschema:"color facet ids"`
	Sizes       []string `json:"sizes,omitempty" jsonschema:"size facet ids"`
}

// ListCategoriesInput is the input schema for the list_categories tool.
type ListCategoriesInput struct {
	Force bool `json:"force,omitempty" jsonschema:"bypass the category cache"`
}

// MinPriceInput is the input schema for the get_min_price tool.
type MinPriceInput struct {
	ProductID int64  `json:"product_id" jsonschema:"Printful catalog product id"`
	Currency  string `json:"currency,omitempty" jsonschema:"ISO currency code, store default when empty"`
	Region    string `json:"region,omitempty" jsonschema:"selling region, store default when empty"`
}

// QuoteShippingInput is the input schema for the quote_shipping tool.
type QuoteShippingInput struct {
	Lines    []QuoteLine `json:"lines" jsonschema:"package contents"`
	Country  string      `json:"country" jsonschema:"ISO 3166-1 alpha-2 destination country"`
	State    string      `json:"state,omitempty" jsonschema:"destination state code"`
	City     string      `json:"city,omitempty"`
	Postcode string      `json:"postcode,omitempty"`
	Address1 string      `json:"address_1,omitempty"`
	Currency string      `json:"currency,omitempty"`
}

// QuoteLine is one line of a shipping quote.
type QuoteLine struct {
	VariantID int64 `json:"variant_id" jsonschema:"Printful catalog variant id"`
	Quantity  int   `json:"quantity" jsonschema:"units, at least 1"`
}

// OrderStatusInput is the input schema for the get_order_status tool.
type OrderStatusInput struct {
	OrderID string `json:"order_id" jsonschema:"Printful order id, or @external_id"`
}

// NewMCPServer creates an MCP server with the bridge tools registered.
func (h *Handler) NewMCPServer() *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "printful-bridge",
			Version: "1.0.0",
		},
		&mcp.ServerOptions{
			Instructions: "Printful bridge - browse the print-on-demand catalog, look up prices and " +
				"shipping, and check the fulfillment status of submitted orders.",
		},
	)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_catalog",
		Description: "List catalog products with their minimum prices, filtered by category and facets.",
	}, h.mcpSearchCatalog)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_categories",
		Description: "List the catalog category tree with breadcrumb labels.",
	}, h.mcpListCategories)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_min_price",
		Description: "Get the lowest price across all variants and techniques of one product.",
	}, h.mcpMinPrice)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "quote_shipping",
		Description: "Quote live shipping rates for a set of catalog variants to a destination.",
	}, h.mcpQuoteShipping)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_order_status",
		Description: "Get the Printful status of a submitted order.",
	}, h.mcpOrderStatus)

	return server
}

// NewMCPHandler returns an HTTP handler for the MCP endpoint.
// Mount this at /mcp on your mux.
func (h *Handler) NewMCPHandler() http.Handler {
	server := h.NewMCPServer()
	return mcp.NewStreamableHTTPHandler(
		func(r *http.Request) *mcp.Server { return server },
		nil,
	)
}

// === Tool Handlers ===

func (h *Handler) mcpSearchCatalog(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input SearchCatalogInput,
) (*mcp.CallToolResult, productsResponse, error) {
	if h.deps.Catalog == nil {
		return nil, productsResponse{}, h.mcpError(unavailable("catalog"))
	}
	q := catalog.Query{
		Offset:      max(input.Offset, 0),
		Limit:       catalog.ClampLimit(input.Limit),
		CategoryIDs: catalog.NormalizeCategoryIDs(input.CategoryIDs),
		Filters: catalog.Filters{
			Techniques: input.Techniques,
			Placements: input.Placements,
			Colors:     input.Colors,
			Sizes:      input.Sizes,
		},
	}
	return nil, h.productsPage(ctx, q), nil
}

func (h *Handler) mcpListCategories(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ListCategoriesInput,
) (*mcp.CallToolResult, categoriesResponse, error) {
	if h.deps.Catalog == nil {
		return nil, categoriesResponse{}, h.mcpError(unavailable("catalog"))
	}
	return nil, h.categoryTree(ctx, input.Force), nil
}

func (h *Handler) mcpMinPrice(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input MinPriceInput,
) (*mcp.CallToolResult, minPriceResponse, error) {
	if h.deps.Prices == nil {
		return nil, minPriceResponse{}, h.mcpError(unavailable("pricing"))
	}
	if input.ProductID <= 0 {
		return nil, minPriceResponse{}, fmt.Errorf("product_id is required")
	}
	return nil, h.minPrice(ctx, input.ProductID, input.Currency, input.Region), nil
}

func (h *Handler) mcpQuoteShipping(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input QuoteShippingInput,
) (*mcp.CallToolResult, ratesResponse, error) {
	if h.deps.Rates == nil {
		return nil, ratesResponse{}, h.mcpError(unavailable("shipping"))
	}

	rr := ratesRequest{
		Destination: rateDestination{
			Address1: input.Address1,
			City:     input.City,
			State:    input.State,
			Country:  input.Country,
			Postcode: input.Postcode,
		},
		Currency: input.Currency,
	}
	for _, l := range input.Lines {
		rr.Lines = append(rr.Lines, rateLine{PFItem: 1, VariantID: l.VariantID, Quantity: l.Quantity})
	}
	if err := h.check(&rr); err != nil {
		return nil, ratesResponse{}, h.mcpError(err)
	}
	return nil, h.quote(ctx, rr), nil
}

func (h *Handler) mcpOrderStatus(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input OrderStatusInput,
) (*mcp.CallToolResult, *printful.Order, error) {
	if h.deps.RemoteOrders == nil {
		return nil, nil, h.mcpError(unavailable("order lookup"))
	}
	if input.OrderID == "" {
		return nil, nil, fmt.Errorf("order_id is required")
	}
	if _, err := strconv.ParseInt(input.OrderID, 10, 64); err != nil && input.OrderID[0] != '@' {
		return nil, nil, fmt.Errorf("order_id must be numeric or @external_id")
	}

	o, err := h.deps.RemoteOrders.GetOrder(ctx, input.OrderID)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	return nil, o, nil
}

// mcpError converts service errors to MCP-friendly errors.
func (h *Handler) mcpError(err error) error {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %s", apiErr.Code, apiErr.Message)
	}
	// Don't leak internal error details
	h.logger.Error("mcp internal error", "error", err.Error())
	return fmt.Errorf("internal error")
}
