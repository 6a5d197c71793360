package order

import (
	"strconv"

	"printful-bridge/internal/model"
	"printful-bridge/internal/printful"
)

// BuildRecipient prefers shipping fields and falls back to billing field by
// field. Email and phone always come from billing; WooCommerce keeps them there.
func BuildRecipient(o *model.Order) printful.Recipient {
	s, b := o.Shipping, o.Billing
	return printful.Recipient{
		Name:        firstNonEmpty(s.FullName(), b.FullName()),
		Phone:       b.Phone,
		Email:       b.Email,
		Address1:    firstNonEmpty(s.Address1, b.Address1),
		Address2:    firstNonEmpty(s.Address2, b.Address2),
		City:        firstNonEmpty(s.City, b.City),
		StateCode:   firstNonEmpty(s.State, b.State),
		CountryCode: firstNonEmpty(s.Country, b.Country),
		Zip:         firstNonEmpty(s.Postcode, b.Postcode),
	}
}

// BuildItems collects the fulfillable lines: those carrying a positive variant_id.
func BuildItems(o *model.Order) []printful.OrderItem {
	var items []printful.OrderItem
	for _, li := range o.LineItems {
		variant := li.Meta.Int("variant_id")
		if variant <= 0 {
			continue
		}
		item := printful.OrderItem{
			VariantID: variant,
			Quantity:  max(1, li.Quantity),
			Name:      li.Meta.Get("design_name"),
		}
		if tpl := li.Meta.Int("template_id"); tpl > 0 {
			item.ProductTemplateID = tpl
		}
		items = append(items, item)
	}
	return items
}

// BuildRequest assembles the Printful payload for a storefront order.
func BuildRequest(o *model.Order, items []printful.OrderItem, slip *printful.PackingSlip) printful.OrderRequest {
	req := printful.OrderRequest{
		ExternalID: strconv.FormatInt(o.ID, 10),
		Recipient:  BuildRecipient(o),
		Items:      items,
		Confirm:    true,
		Shipping:   o.Meta.Get(model.MetaPrintfulShippingService),
	}
	if slip != nil && slip.Email != "" {
		cp := *slip
		req.PackingSlip = &cp
	}
	return req
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
