package model

import (
	"strconv"
)

// Order meta keys written by fulfillment.
const (
	MetaPrintfulOrderID         = "printful_order_id"
	MetaPrintfulStatus          = "printful_status"
	MetaPrintfulShippingService = "printful_shipping_service"
	MetaPrintfulServiceCode     = "printful_service_code"
)

// DesignMeta is the metadata a custom-design cart line carries through cart,
// session, checkout and the persisted order line. The container product is the
// same for every design; everything that identifies the design lives here.
type DesignMeta struct {
	PFItem            int     `json:"pf_item"`
	DesignID          int64   `json:"design_id,omitempty"`
	DesignName        string  `json:"design_name"`
	ProductID         int64   `json:"product_id"`
	VariantID         int64   `json:"variant_id"`
	TemplateID        int64   `json:"template_id"`
	ExternalProductID string  `json:"external_product_id"`
	MockupURL         string  `json:"mockup_url"`
	DesignCategory    string  `json:"design_category"`
	UnitPrice         float64 `json:"unit_price"`
	Currency          string  `json:"currency"`
	// UniqueKey keeps two otherwise identical designs on separate lines.
	UniqueKey string `json:"unique_key"`
}

// DesignMetaKeys lists every key of the line metadata contract, in wire order.
var DesignMetaKeys = []string{
	"pf_item", "design_id", "design_name", "product_id", "variant_id", "template_id",
	"external_product_id", "mockup_url", "design_category", "unit_price", "currency", "unique_key",
}

// IsDesign reports whether the line is a custom-design line.
func (m DesignMeta) IsDesign() bool {
	return m.PFItem == 1
}

// MetaList renders the full key set as order-line metadata. design_id is only
// present for lines added from a saved design.
func (m DesignMeta) MetaList() MetaList {
	out := MetaList{{Key: "pf_item", Value: strconv.Itoa(m.PFItem)}}
	if m.DesignID > 0 {
		out = append(out, MetaData{Key: "design_id", Value: strconv.FormatInt(m.DesignID, 10)})
	}
	return append(out,
		MetaData{Key: "design_name", Value: m.DesignName},
		MetaData{Key: "product_id", Value: strconv.FormatInt(m.ProductID, 10)},
		MetaData{Key: "variant_id", Value: strconv.FormatInt(m.VariantID, 10)},
		MetaData{Key: "template_id", Value: strconv.FormatInt(m.TemplateID, 10)},
		MetaData{Key: "external_product_id", Value: m.ExternalProductID},
		MetaData{Key: "mockup_url", Value: m.MockupURL},
		MetaData{Key: "design_category", Value: m.DesignCategory},
		MetaData{Key: "unit_price", Value: FormatPrice(m.UnitPrice)},
		MetaData{Key: "currency", Value: m.Currency},
		MetaData{Key: "unique_key", Value: m.UniqueKey},
	)
}

// DesignMetaFrom reads line metadata back from an order line.
func DesignMetaFrom(meta MetaList) DesignMeta {
	price, _ := ParsePrice(meta.Get("unit_price"))
	return DesignMeta{
		PFItem:            int(meta.Int("pf_item")),
		DesignID:          meta.Int("design_id"),
		DesignName:        meta.Get("design_name"),
		ProductID:         meta.Int("product_id"),
		VariantID:         meta.Int("variant_id"),
		TemplateID:        meta.Int("template_id"),
		ExternalProductID: meta.Get("external_product_id"),
		MockupURL:         meta.Get("mockup_url"),
		DesignCategory:    meta.Get("design_category"),
		UnitPrice:         price,
		Currency:          meta.Get("currency"),
		UniqueKey:         meta.Get("unique_key"),
	}
}
