package printful

import (
	"encoding/json"
	"strings"

	"printful-bridge/internal/model"
)

// === Envelopes ===

// v1Envelope is the legacy {"code","result"} wrapper.
type v1Envelope[T any] struct {
	Code   int `json:"code"`
	Result T   `json:"result"`
}

// v2Envelope is the {"data","paging"} wrapper of the v2 API.
type v2Envelope[T any] struct {
	Data   T       `json:"data"`
	Paging *Paging `json:"paging,omitempty"`
	Links  *Links  `json:"_links,omitempty"`
}

// Paging describes a v2 list page.
type Paging struct {
	Total  int `json:"total"`
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// Links carries v2 HAL navigation; Next is nil on the last page.
type Links struct {
	Self *Link `json:"self,omitempty"`
	Next *Link `json:"next,omitempty"`
}

// Link is a HAL link.
type Link struct {
	Href string `json:"href"`
}

// ErrorResponse is the error body of either API generation.
type ErrorResponse struct {
	Code   int             `json:"code"`
	Result json.RawMessage `json:"result"`
	Error  struct {
		Reason  string `json:"reason"`
		Message string `json:"message"`
	} `json:"error"`
}

func (e ErrorResponse) message() string {
	if e.Error.Message != "" {
		return e.Error.Message
	}
	var s string
	if json.Unmarshal(e.Result, &s) == nil {
		return s
	}
	return e.Error.Reason
}

// === Catalog ===

// CatalogProduct is one row of v2/catalog-products.
type CatalogProduct struct {
	ID          int64              `json:"id"`
	Name        string             `json:"name"`
	Type        string             `json:"type"`
	Image       string             `json:"image"`
	Description string             `json:"description"`
	Techniques  []CatalogTechnique `json:"techniques,omitempty"`
	Placements  []CatalogPlacement `json:"placements,omitempty"`
	Colors      []CatalogColor     `json:"colors,omitempty"`
	Sizes       []string           `json:"sizes,omitempty"`
}

// CatalogTechnique is a decoration method offered for a product.
type CatalogTechnique struct {
	Key         string `json:"key"`
	DisplayName string `json:"display_name"`
	IsDefault   bool   `json:"is_default"`
}

// CatalogPlacement is a printable area of a product.
type CatalogPlacement struct {
	Placement string `json:"placement"`
	Technique string `json:"technique"`
}

// CatalogColor is a color swatch of a product.
type CatalogColor struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ProductQuery selects a page of catalog products. Empty slices are omitted from the
// request entirely.
type ProductQuery struct {
	Offset             int
	Limit              int
	CategoryIDs        []int64
	Techniques         []string
	Placements         []string
	Colors             []string
	Sizes              []string
	SellingRegionName  string
	DestinationCountry string
}

// ProductPage is a page of catalog products.
// HasMore is nil when the response carried neither paging totals nor links.
type ProductPage struct {
	Products []CatalogProduct
	HasMore  *bool
}

// Category is one row of v2/catalog-categories.
type Category struct {
	ID       int64  `json:"id"`
	ParentID int64  `json:"parent_id"`
	Title    string `json:"title"`
	ImageURL string `json:"image_url"`
}

// === Prices ===

// ProductPrices is the data of v2/catalog-products/{id}/prices.
type ProductPrices struct {
	Currency string         `json:"currency"`
	Product  PricesProduct  `json:"product"`
	Variants []VariantPrice `json:"variants"`
}

// PricesProduct carries per-placement surcharges.
type PricesProduct struct {
	ID         int64            `json:"id"`
	Placements []PlacementPrice `json:"placements"`
}

// PlacementPrice is the surcharge for decorating one placement with one technique.
type PlacementPrice struct {
	ID              string        `json:"id"`
	TechniqueKey    string        `json:"technique_key"`
	Price           model.Decimal `json:"price"`
	DiscountedPrice model.Decimal `json:"discounted_price"`
}

// VariantPrice lists a variant's base price per technique.
type VariantPrice struct {
	ID         int64            `json:"id"`
	Techniques []TechniquePrice `json:"techniques"`
}

// TechniquePrice is one price cell.
type TechniquePrice struct {
	TechniqueKey         string        `json:"technique_key"`
	TechniqueDisplayName string        `json:"technique_display_name"`
	Price                model.Decimal `json:"price"`
	DiscountedPrice      model.Decimal `json:"discounted_price"`
}

// PriceQuery narrows the price lookup. Empty fields use the store defaults.
type PriceQuery struct {
	Currency          string
	SellingRegionName string
}

// === Designer ===

// ProductTemplate is a saved embedded-designer template.
type ProductTemplate struct {
	ID            int64  `json:"id"`
	ProductID     int64  `json:"product_id"`
	ExternalID    string `json:"external_product_id"`
	Title         string `json:"title"`
	MockupFileURL string `json:"mockup_file_url"`
}

// NonceRequest asks for an embedded-designer session nonce.
type NonceRequest struct {
	ExternalProductID  string `json:"external_product_id"`
	ExternalCustomerID string `json:"external_customer_id,omitempty"`
}

type nonceResult struct {
	Nonce struct {
		Nonce     string `json:"nonce"`
		ExpiresAt int64  `json:"expires_at"`
	} `json:"nonce"`
}

// === Orders ===

// Recipient is the ship-to address of a Printful order or rate quote.
type Recipient struct {
	Name        string `json:"name,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Email       string `json:"email,omitempty"`
	Address1    string `json:"address1"`
	Address2    string `json:"address2,omitempty"`
	City        string `json:"city"`
	StateCode   string `json:"state_code,omitempty"`
	CountryCode string `json:"country_code"`
	Zip         string `json:"zip"`
}

// OrderItem is one fulfillable line.
type OrderItem struct {
	VariantID         int64  `json:"variant_id"`
	Quantity          int    `json:"quantity"`
	ProductTemplateID int64  `json:"product_template_id,omitempty"`
	Name              string `json:"name,omitempty"`
}

// PackingSlip customizes the slip inside the parcel.
type PackingSlip struct {
	Email   string `json:"email,omitempty"`
	Message string `json:"message,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

// OrderRequest is the body of POST orders.
type OrderRequest struct {
	ExternalID  string       `json:"external_id"`
	Recipient   Recipient    `json:"recipient"`
	Items       []OrderItem  `json:"items"`
	Confirm     bool         `json:"confirm"`
	Shipping    string       `json:"shipping,omitempty"`
	PackingSlip *PackingSlip `json:"packing_slip,omitempty"`
}

// Order is the part of a Printful order the bridge tracks.
type Order struct {
	ID         int64      `json:"id"`
	ExternalID string     `json:"external_id"`
	Status     string     `json:"status"`
	Costs      OrderCosts `json:"costs"`
}

// OrderCosts reports whether Printful finished pricing the order.
type OrderCosts struct {
	CalculationStatus string `json:"calculation_status"`
}

// IsDraft reports whether the order still awaits confirmation.
func (o Order) IsDraft() bool {
	return strings.EqualFold(o.Status, "draft")
}

// ConfirmResult is the outcome of a confirmation call that reached Printful.
type ConfirmResult struct {
	StatusCode int
	// Status is the order status echoed in the body, empty for 204 responses.
	Status string
}

// === Shipping ===

// RateItem is a line to quote.
type RateItem struct {
	VariantID int64 `json:"variant_id"`
	Quantity  int   `json:"quantity"`
}

// RateRequest is the body of POST shipping/rates.
type RateRequest struct {
	Recipient Recipient  `json:"recipient"`
	Items     []RateItem `json:"items"`
	Currency  string     `json:"currency,omitempty"`
}

// ShippingRate is one quoted service.
type ShippingRate struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	Service         string        `json:"service"`
	Rate            model.Decimal `json:"rate"`
	Currency        string        `json:"currency"`
	MinDeliveryDays *int          `json:"minDeliveryDays"`
	MaxDeliveryDays *int          `json:"maxDeliveryDays"`
}

// === Webhooks ===

// WebhookEvent subscribes to one event type.
type WebhookEvent struct {
	Type string `json:"type"`
}

// WebhookRequest is the body of POST v2/webhooks.
type WebhookRequest struct {
	DefaultURL string         `json:"default_url"`
	Events     []WebhookEvent `json:"events"`
}

// WebhookConfig is the store's webhook configuration as Printful reports it.
type WebhookConfig struct {
	DefaultURL string         `json:"default_url"`
	PublicKey  string         `json:"public_key"`
	SecretKey  string         `json:"secret_key"`
	ExpiresAt  string         `json:"expires_at,omitempty"`
	Events     []WebhookEvent `json:"events"`
}
