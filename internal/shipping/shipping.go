// Package shipping quotes live Printful shipping rates for carts holding
// custom-design lines.
package shipping

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"printful-bridge/internal/printful"
)

// MethodID prefixes every rate id.
const MethodID = "printful_live"

// RateSource quotes rates.
type RateSource interface {
	ShippingRates(ctx context.Context, req printful.RateRequest) ([]printful.ShippingRate, error)
}

// PackageLine is one cart line in a package.
type PackageLine struct {
	PFItem    int   `json:"pf_item"`
	VariantID int64 `json:"variant_id"`
	Quantity  int   `json:"quantity"`
}

// Destination is where the package ships.
type Destination struct {
	Address1 string `json:"address_1"`
	City     string `json:"city"`
	State    string `json:"state"`
	Country  string `json:"country"`
	Postcode string `json:"postcode"`
}

// Package is a cart's shippable contents.
type Package struct {
	Lines       []PackageLine `json:"lines"`
	Destination Destination   `json:"destination"`
	Currency    string        `json:"currency,omitempty"`
}

// Rate is one shipping option for the storefront.
type Rate struct {
	ID          string  `json:"id"`
	Label       string  `json:"label"`
	Cost        float64 `json:"cost"`
	ServiceCode string  `json:"service_code"`
}

// Calculator turns packages into live rates.
type Calculator struct {
	pf       RateSource
	currency string
	logger   *slog.Logger
}

// NewCalculator creates a calculator quoting in currency unless a package names its own.
func NewCalculator(pf RateSource, currency string, logger *slog.Logger) *Calculator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Calculator{pf: pf, currency: currency, logger: logger}
}

// Calculate quotes the package. It returns nil when nothing in the package is
// quotable or Printful has no answer; the storefront then offers no options.
func (c *Calculator) Calculate(ctx context.Context, pkg Package) []Rate {
	items := Items(pkg.Lines)
	if len(items) == 0 {
		c.logger.WarnContext(ctx, "no printful items with variant_id in package")
		return nil
	}

	currency := pkg.Currency
	if currency == "" {
		currency = c.currency
	}
	d := pkg.Destination
	req := printful.RateRequest{
		Recipient: printful.Recipient{
			Address1:    d.Address1,
			City:        d.City,
			StateCode:   d.State,
			CountryCode: d.Country,
			Zip:         d.Postcode,
		},
		Items:    items,
		Currency: currency,
	}

	quotes, err := c.pf.ShippingRates(ctx, req)
	if err != nil {
		c.logger.WarnContext(ctx, "printful rates failed", slog.String("country", d.Country), slog.Any("error", err))
		return nil
	}
	if len(quotes) == 0 {
		c.logger.WarnContext(ctx, "printful rates empty", slog.String("country", d.Country))
		return nil
	}

	rates := make([]Rate, 0, len(quotes))
	for _, q := range quotes {
		rates = append(rates, ToRate(q))
	}
	c.logger.InfoContext(ctx, "printful rates quoted", slog.Int("rates", len(rates)), slog.Int("items", len(items)))
	return rates
}

// Items keeps the custom-design lines with a variant and a quantity.
func Items(lines []PackageLine) []printful.RateItem {
	var items []printful.RateItem
	for _, l := range lines {
		if l.PFItem == 0 || l.VariantID <= 0 || l.Quantity <= 0 {
			continue
		}
		items = append(items, printful.RateItem{VariantID: l.VariantID, Quantity: l.Quantity})
	}
	return items
}

// ToRate maps a Printful quote onto a storefront rate.
func ToRate(q printful.ShippingRate) Rate {
	label := firstNonEmpty(q.Name, q.Service, "Shipping")
	if q.MinDeliveryDays != nil && q.MaxDeliveryDays != nil {
		label += fmt.Sprintf(" (%d–%d days)", *q.MinDeliveryDays, *q.MaxDeliveryDays)
	}
	return Rate{
		ID:          MethodID + ":" + Slugify(firstNonEmpty(q.ID, label)),
		Label:       label,
		Cost:        q.Rate.Value,
		ServiceCode: firstNonEmpty(q.ID, q.Service),
	}
}

// Slugify lowercases s and collapses every run of other characters to one hyphen.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
