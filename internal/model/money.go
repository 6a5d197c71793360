package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Decimal is a money amount as Printful and WooCommerce send it: a JSON number, a numeric
// string ("13.25"), or null. Valid is false when the value was absent or not numeric, so an
// unknown price never reads as 0.
type Decimal struct {
	Value float64
	Valid bool
}

// NewDecimal returns a valid Decimal.
func NewDecimal(v float64) Decimal {
	return Decimal{Value: v, Valid: true}
}

// UnmarshalJSON accepts numbers, numeric strings and null. Anything else decodes as invalid
// rather than failing the whole payload.
func (d *Decimal) UnmarshalJSON(data []byte) error {
	*d = Decimal{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		if v, ok := ParsePrice(s); ok {
			*d = NewDecimal(v)
		}
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	*d = NewDecimal(f)
	return nil
}

// MarshalJSON writes null for invalid values.
func (d Decimal) MarshalJSON() ([]byte, error) {
	if !d.Valid {
		return []byte("null"), nil
	}
	return []byte(FormatPrice(d.Value)), nil
}

// Ptr returns nil for invalid values.
func (d Decimal) Ptr() *float64 {
	if !d.Valid {
		return nil
	}
	v := d.Value
	return &v
}

// ParsePrice parses a decimal string such as "13.25" or " 9 ".
// Returns false for empty or non-numeric input.
func ParsePrice(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// RoundPrice rounds to two decimal places, half away from zero.
func RoundPrice(f float64) float64 {
	return math.Round(f*100) / 100
}

// FormatPrice renders a price with exactly two decimals, the format WooCommerce REST
// expects for line and shipping totals.
// Examples: 12.5 → "12.50", 3 → "3.00"
func FormatPrice(f float64) string {
	return strconv.FormatFloat(RoundPrice(f), 'f', 2, 64)
}
