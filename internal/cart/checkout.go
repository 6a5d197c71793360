package cart

import (
	"context"
	"log/slog"

	"printful-bridge/internal/cache"
	"printful-bridge/internal/model"
)

// ShippingMethodID is the method id of Printful live rates.
const ShippingMethodID = "printful_live"

// ShippingChoice is the rate the shopper picked.
type ShippingChoice struct {
	ID          string  `json:"id"`
	Label       string  `json:"label"`
	Cost        float64 `json:"cost"`
	ServiceCode string  `json:"service_code"`
}

// CheckoutRequest completes a cart.
type CheckoutRequest struct {
	Billing  model.Address   `json:"billing"`
	Shipping model.Address   `json:"shipping"`
	Rate     *ShippingChoice `json:"shipping_rate,omitempty"`
}

// Checkout freezes the cart into a pending storefront order: one order line per
// cart line carrying the full metadata set, the chosen rate as a shipping line,
// and the rate's service code (or the method id) as order meta for fulfillment. The cart is emptied
// once the order exists.
func (s *Service) Checkout(ctx context.Context, userID int64, sessionID string, req CheckoutRequest) (*model.Order, error) {
	if err := s.precheck(userID, sessionID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, model.NewInternalError(err)
	}
	if len(c.Lines) == 0 {
		return nil, model.NewBadRequestError("Cart is empty")
	}

	orderReq := BuildOrderRequest(userID, c.Lines, req, s.cfg.Currency)
	order, err := s.orders.CreateOrder(ctx, orderReq)
	if err != nil {
		s.logger.WarnContext(ctx, "checkout order create failed", slog.Any("error", err))
		return nil, err
	}

	if err := s.cache.Delete(ctx, cache.CartPrefix+sessionID); err != nil {
		s.logger.WarnContext(ctx, "cart clear failed", slog.Any("error", err))
	}

	s.logger.InfoContext(ctx, "checkout complete",
		slog.Int64("order_id", order.ID),
		slog.Int("lines", len(c.Lines)),
	)
	return order, nil
}

// BuildOrderRequest maps cart lines onto a storefront order.
func BuildOrderRequest(userID int64, lines []Line, req CheckoutRequest, defaultCurrency string) *model.OrderRequest {
	or := &model.OrderRequest{
		CustomerID: userID,
		Status:     "pending",
		Currency:   defaultCurrency,
		Billing:    req.Billing,
		Shipping:   req.Shipping,
	}
	for _, l := range lines {
		if l.Meta.Currency != "" {
			or.Currency = l.Meta.Currency
		}
		or.Lines = append(or.Lines, model.OrderLineRequest{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			Total:     model.FormatPrice(l.Total()),
			Meta:      l.Meta.MetaList(),
		})
	}

	if r := req.Rate; r != nil {
		or.ShippingLines = []model.ShippingLine{{
			MethodID:    ShippingMethodID,
			MethodTitle: r.Label,
			Total:       model.FormatPrice(r.Cost),
			Meta:        model.MetaList{{Key: model.MetaPrintfulServiceCode, Value: r.ServiceCode}},
		}}
		service := r.ServiceCode
		if service == "" {
			service = ShippingMethodID
		}
		or.Meta = append(or.Meta, model.MetaData{Key: model.MetaPrintfulShippingService, Value: service})
	}
	return or
}
