// Package woocommerce implements the adapter for WooCommerce stores using the REST API v3.
// All WooCommerce-specific types, transforms, and HTTP client logic live here.
package woocommerce

import "encoding/json"

// === WooCommerce REST v3 Types ===

// WooOrder is an order as returned by /wp-json/wc/v3/orders.
type WooOrder struct {
	ID            int64             `json:"id"`
	Status        string            `json:"status"`
	Currency      string            `json:"currency"`
	CustomerID    int64             `json:"customer_id"`
	DatePaidGMT   *string           `json:"date_paid_gmt"`
	Billing       WooAddress        `json:"billing"`
	Shipping      WooAddress        `json:"shipping"`
	LineItems     []WooLineItem     `json:"line_items"`
	ShippingLines []WooShippingLine `json:"shipping_lines,omitempty"`
	MetaData      []WooMeta         `json:"meta_data"`
}

// WooAddress is a billing or shipping address. Shipping carries no email;
// billing may carry a phone.
type WooAddress struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company"`
	Address1  string `json:"address_1"`
	Address2  string `json:"address_2"`
	City      string `json:"city"`
	State     string `json:"state"`
	Postcode  string `json:"postcode"`
	Country   string `json:"country"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// WooLineItem is one order line.
type WooLineItem struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	ProductID int64     `json:"product_id"`
	Quantity  int       `json:"quantity"`
	Total     string    `json:"total"` // "24.50" - string decimal
	MetaData  []WooMeta `json:"meta_data"`
}

// WooShippingLine is a shipping line on an order.
type WooShippingLine struct {
	MethodID    string    `json:"method_id"`
	MethodTitle string    `json:"method_title"`
	Total       string    `json:"total"`
	MetaData    []WooMeta `json:"meta_data,omitempty"`
}

// WooMeta is one meta_data entry. Values written by plugins may be strings,
// numbers, or nested objects, so the raw JSON is kept until transform.
type WooMeta struct {
	ID    int64           `json:"id,omitempty"`
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// === Request Types ===

// WooOrderRequest creates an order.
type WooOrderRequest struct {
	CustomerID    int64                `json:"customer_id,omitempty"`
	Status        string               `json:"status,omitempty"`
	Currency      string               `json:"currency,omitempty"`
	SetPaid       bool                 `json:"set_paid"`
	Billing       WooAddress           `json:"billing"`
	Shipping      WooAddress           `json:"shipping"`
	LineItems     []WooLineItemRequest `json:"line_items"`
	ShippingLines []WooShippingLine    `json:"shipping_lines,omitempty"`
	MetaData      []WooMetaWrite       `json:"meta_data,omitempty"`
}

// WooLineItemRequest is a line of a new order.
type WooLineItemRequest struct {
	ProductID int64          `json:"product_id"`
	Quantity  int            `json:"quantity"`
	Subtotal  string         `json:"subtotal,omitempty"`
	Total     string         `json:"total,omitempty"`
	MetaData  []WooMetaWrite `json:"meta_data,omitempty"`
}

// WooMetaWrite is a meta_data entry being written. WooCommerce upserts by key.
type WooMetaWrite struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// WooMetaUpdate is the PUT body for changing order meta only.
type WooMetaUpdate struct {
	MetaData []WooMetaWrite `json:"meta_data"`
}

// WooNoteRequest adds an order note.
type WooNoteRequest struct {
	Note         string `json:"note"`
	CustomerNote bool   `json:"customer_note"`
}

// WooErrorResponse represents WooCommerce error format.
type WooErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    *struct {
		Status int `json:"status"`
	} `json:"data,omitempty"`
}
