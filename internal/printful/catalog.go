package printful

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// CatalogProducts fetches one page of v2/catalog-products.
func (c *Client) CatalogProducts(ctx context.Context, q ProductQuery) (*ProductPage, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(q.Limit))
	params.Set("offset", strconv.Itoa(q.Offset))
	if q.SellingRegionName != "" {
		params.Set("selling_region_name", q.SellingRegionName)
	}
	if q.DestinationCountry != "" {
		params.Set("destination_country", q.DestinationCountry)
	}
	if len(q.CategoryIDs) > 0 {
		ids := make([]string, len(q.CategoryIDs))
		for i, id := range q.CategoryIDs {
			ids[i] = strconv.FormatInt(id, 10)
		}
		params.Set("category_ids", strings.Join(ids, ","))
	}
	setCSV(params, "techniques", q.Techniques)
	setCSV(params, "placements", q.Placements)
	setCSV(params, "colors", q.Colors)
	setCSV(params, "sizes", q.Sizes)

	var env v2Envelope[[]CatalogProduct]
	if err := c.get(ctx, "v2/catalog-products?"+params.Encode(), &env); err != nil {
		return nil, err
	}

	page := &ProductPage{Products: env.Data}
	switch {
	case env.Paging != nil && env.Paging.Total > 0:
		more := env.Paging.Offset+len(env.Data) < env.Paging.Total
		page.HasMore = &more
	case env.Links != nil:
		more := env.Links.Next != nil
		page.HasMore = &more
	}
	return page, nil
}

func setCSV(params url.Values, key string, values []string) {
	if len(values) > 0 {
		params.Set(key, strings.Join(values, ","))
	}
}

// CatalogCategories fetches one page of v2/catalog-categories.
func (c *Client) CatalogCategories(ctx context.Context, offset, limit int) ([]Category, error) {
	path := fmt.Sprintf("v2/catalog-categories?limit=%d&offset=%d", limit, offset)

	var env v2Envelope[[]Category]
	if err := c.get(ctx, path, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// CatalogProductPrices fetches the price table of one catalog product.
// Returns nil without error when Printful answers with an empty data object.
func (c *Client) CatalogProductPrices(ctx context.Context, productID int64, q PriceQuery) (*ProductPrices, error) {
	path := fmt.Sprintf("v2/catalog-products/%d/prices", productID)

	params := url.Values{}
	if q.Currency != "" {
		params.Set("currency", q.Currency)
	}
	if q.SellingRegionName != "" {
		params.Set("selling_region_name", q.SellingRegionName)
	}
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var env v2Envelope[*ProductPrices]
	if err := c.get(ctx, path, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}
