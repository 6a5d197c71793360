package woocommerce

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"printful-bridge/internal/model"
)

// wooTimeLayout is the format of WooCommerce *_gmt timestamps.
const wooTimeLayout = "2006-01-02T15:04:05"

// OrderToModel converts a WooCommerce order to the shared order model.
func OrderToModel(wc *WooOrder) *model.Order {
	if wc == nil {
		return nil
	}
	o := &model.Order{
		ID:        wc.ID,
		Status:    wc.Status,
		Currency:  wc.Currency,
		DatePaid:  parseWooTime(wc.DatePaidGMT),
		Billing:   addressToModel(wc.Billing),
		Shipping:  addressToModel(wc.Shipping),
		LineItems: make([]model.OrderLine, 0, len(wc.LineItems)),
		Meta:      metaToModel(wc.MetaData),
	}
	for _, li := range wc.LineItems {
		o.LineItems = append(o.LineItems, model.OrderLine{
			ID:        li.ID,
			ProductID: li.ProductID,
			Name:      li.Name,
			Quantity:  li.Quantity,
			Total:     li.Total,
			Meta:      metaToModel(li.MetaData),
		})
	}
	return o
}

// OrderRequestFromModel converts a checkout into a WooCommerce create-order body.
func OrderRequestFromModel(req *model.OrderRequest) *WooOrderRequest {
	wc := &WooOrderRequest{
		CustomerID: req.CustomerID,
		Status:     req.Status,
		Currency:   req.Currency,
		Billing:    addressFromModel(req.Billing),
		Shipping:   addressFromModel(req.Shipping),
		LineItems:  make([]WooLineItemRequest, 0, len(req.Lines)),
		MetaData:   metaFromModel(req.Meta),
	}
	for _, l := range req.Lines {
		wc.LineItems = append(wc.LineItems, WooLineItemRequest{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			Subtotal:  l.Total,
			Total:     l.Total,
			MetaData:  metaFromModel(l.Meta),
		})
	}
	for _, s := range req.ShippingLines {
		sl := WooShippingLine{MethodID: s.MethodID, MethodTitle: s.MethodTitle, Total: s.Total}
		for _, m := range s.Meta {
			raw, _ := json.Marshal(m.Value)
			sl.MetaData = append(sl.MetaData, WooMeta{Key: m.Key, Value: raw})
		}
		wc.ShippingLines = append(wc.ShippingLines, sl)
	}
	return wc
}

func addressToModel(a WooAddress) model.Address {
	return model.Address{
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Company:   a.Company,
		Address1:  a.Address1,
		Address2:  a.Address2,
		City:      a.City,
		State:     a.State,
		Postcode:  a.Postcode,
		Country:   a.Country,
		Email:     a.Email,
		Phone:     a.Phone,
	}
}

func addressFromModel(a model.Address) WooAddress {
	return WooAddress{
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Company:   a.Company,
		Address1:  a.Address1,
		Address2:  a.Address2,
		City:      a.City,
		State:     a.State,
		Postcode:  a.Postcode,
		Country:   a.Country,
		Email:     a.Email,
		Phone:     a.Phone,
	}
}

func metaToModel(meta []WooMeta) model.MetaList {
	out := make(model.MetaList, 0, len(meta))
	for _, m := range meta {
		out = append(out, model.MetaData{ID: m.ID, Key: m.Key, Value: metaValueString(m.Value)})
	}
	return out
}

func metaFromModel(meta model.MetaList) []WooMetaWrite {
	if len(meta) == 0 {
		return nil
	}
	out := make([]WooMetaWrite, 0, len(meta))
	for _, m := range meta {
		out = append(out, WooMetaWrite{Key: m.Key, Value: m.Value})
	}
	return out
}

// metaValueString flattens a meta value to text. Strings are unquoted, numbers
// and booleans keep their literal form, and objects stay as compact JSON.
func metaValueString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	if raw[0] == '{' || raw[0] == '[' {
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err == nil {
			return buf.String()
		}
	}
	return string(raw)
}

func parseWooTime(s *string) *time.Time {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	t, err := time.Parse(wooTimeLayout, *s)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}
