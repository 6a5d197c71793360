// Package model defines the shared storefront types and error values used across packages.
package model

import (
	"strconv"
	"strings"
	"time"
)

// Address is a postal address as the storefront stores it for billing and shipping.
// State and Country hold ISO codes (e.g., "NSW", "AU").
type Address struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Company   string `json:"company,omitempty"`
	Address1  string `json:"address_1,omitempty"`
	Address2  string `json:"address_2,omitempty"`
	City      string `json:"city,omitempty"`
	State     string `json:"state,omitempty"`
	Postcode  string `json:"postcode,omitempty"`
	Country   string `json:"country,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// FullName joins first and last name, trimming the gap when either is empty.
func (a Address) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// MetaData is one key/value pair of order or line-item metadata.
type MetaData struct {
	ID    int64  `json:"id,omitempty"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

// MetaList is an ordered metadata collection with typed lookups.
type MetaList []MetaData

// Get returns the first value stored under key.
func (m MetaList) Get(key string) string {
	for _, md := range m {
		if md.Key == key {
			return md.Value
		}
	}
	return ""
}

// Int returns the value under key as an integer, or 0 when absent or non-numeric.
func (m MetaList) Int(key string) int64 {
	v := strings.TrimSpace(m.Get(key))
	if v == "" {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(v, 64)
		if ferr != nil {
			return 0
		}
		return int64(f)
	}
	return n
}

// Order is a storefront order with the fields fulfillment needs.
type Order struct {
	ID        int64       `json:"id"`
	Status    string      `json:"status"`
	Currency  string      `json:"currency"`
	DatePaid  *time.Time  `json:"date_paid,omitempty"`
	Billing   Address     `json:"billing"`
	Shipping  Address     `json:"shipping"`
	LineItems []OrderLine `json:"line_items"`
	Meta      MetaList    `json:"meta_data"`
}

// OrderLine is one line item of an order. Meta carries the frozen cart-line metadata.
type OrderLine struct {
	ID        int64    `json:"id"`
	ProductID int64    `json:"product_id"`
	Name      string   `json:"name"`
	Quantity  int      `json:"quantity"`
	Total     string   `json:"total"`
	Meta      MetaList `json:"meta_data"`
}

// OrderRequest creates a storefront order from a checked-out cart.
type OrderRequest struct {
	CustomerID    int64              `json:"customer_id,omitempty"`
	Status        string             `json:"status,omitempty"`
	Currency      string             `json:"currency,omitempty"`
	Billing       Address            `json:"billing"`
	Shipping      Address            `json:"shipping"`
	Lines         []OrderLineRequest `json:"line_items"`
	ShippingLines []ShippingLine     `json:"shipping_lines,omitempty"`
	Meta          MetaList           `json:"meta_data,omitempty"`
}

// OrderLineRequest is a line of a new order.
type OrderLineRequest struct {
	ProductID int64    `json:"product_id"`
	Quantity  int      `json:"quantity"`
	Total     string   `json:"total"`
	Meta      MetaList `json:"meta_data,omitempty"`
}

// ShippingLine records the rate the shopper picked at checkout.
type ShippingLine struct {
	MethodID    string   `json:"method_id"`
	MethodTitle string   `json:"method_title"`
	Total       string   `json:"total"`
	Meta        MetaList `json:"meta_data,omitempty"`
}
