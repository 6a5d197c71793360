package handler

import (
	"context"
	"log/slog"
	"net/http"

	"printful-bridge/internal/cart"
	"printful-bridge/internal/model"
	"printful-bridge/internal/shipping"
)

// addCartItemRequest is a designer "add to cart" with the design's metadata.
type addCartItemRequest struct {
	ProductID         int64   `json:"product_id" validate:"gte=0"`
	VariantID         int64   `json:"variant_id" validate:"gt=0"`
	TemplateID        int64   `json:"template_id" validate:"gte=0"`
	ExternalProductID string  `json:"external_product_id"`
	DesignName        string  `json:"design_name" validate:"max=200"`
	MockupURL         string  `json:"mockup_url" validate:"omitempty,url"`
	DesignCategory    string  `json:"design_category"`
	UnitPrice         float64 `json:"unit_price" validate:"gte=0"`
	Currency          string  `json:"currency" validate:"omitempty,len=3,alpha"`
}

// handleAddCartItem adds a designed product to the session cart.
// POST /cart/items
func (h *Handler) handleAddCartItem(w http.ResponseWriter, r *http.Request) {
	if h.deps.Carts == nil {
		h.writeError(w, r, unavailable("cart"))
		return
	}
	var req addCartItemRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	who := identity(r)
	res, err := h.deps.Carts.AddItemWithDesign(r.Context(), who.UserID, who.SessionID, cart.AddRequest{
		ProductID:         req.ProductID,
		VariantID:         req.VariantID,
		TemplateID:        req.TemplateID,
		ExternalProductID: req.ExternalProductID,
		DesignName:        req.DesignName,
		MockupURL:         req.MockupURL,
		DesignCategory:    req.DesignCategory,
		UnitPrice:         req.UnitPrice,
		Currency:          req.Currency,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

type cartResponse struct {
	Lines    []cartLine `json:"lines"`
	Subtotal float64    `json:"subtotal"`
	Currency string     `json:"currency"`
}

type cartLine struct {
	cart.Line
	Total float64 `json:"total"`
}

// handleGetCart restores the session cart.
// GET /cart
func (h *Handler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	if h.deps.Carts == nil {
		h.writeError(w, r, unavailable("cart"))
		return
	}
	sessionID := identity(r).SessionID
	if sessionID == "" {
		h.writeError(w, r, model.NewBadRequestError("Missing cart session"))
		return
	}
	c, err := h.deps.Carts.Restore(r.Context(), sessionID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := cartResponse{Lines: make([]cartLine, 0, len(c.Lines)), Currency: h.opts.Currency}
	var subtotal float64
	for _, l := range c.Lines {
		total := l.Total()
		subtotal += total
		resp.Lines = append(resp.Lines, cartLine{Line: l, Total: total})
		if l.Meta.Currency != "" {
			resp.Currency = l.Meta.Currency
		}
	}
	resp.Subtotal = model.RoundPrice(subtotal)
	h.writeJSON(w, http.StatusOK, resp)
}

// handleRemoveCartItem drops one cart line.
// DELETE /cart/items/{key}
func (h *Handler) handleRemoveCartItem(w http.ResponseWriter, r *http.Request) {
	if h.deps.Carts == nil {
		h.writeError(w, r, unavailable("cart"))
		return
	}
	sessionID := identity(r).SessionID
	if sessionID == "" {
		h.writeError(w, r, model.NewBadRequestError("Missing cart session"))
		return
	}
	if err := h.deps.Carts.Remove(r.Context(), sessionID, r.PathValue("key")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type addressRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company"`
	Address1  string `json:"address_1" validate:"required"`
	Address2  string `json:"address_2"`
	City      string `json:"city" validate:"required"`
	State     string `json:"state"`
	Postcode  string `json:"postcode" validate:"required"`
	Country   string `json:"country" validate:"required,iso3166_1_alpha2"`
	Email     string `json:"email" validate:"omitempty,email"`
	Phone     string `json:"phone"`
}

func (a addressRequest) toModel() model.Address {
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

type checkoutRequest struct {
	Billing      addressRequest       `json:"billing"`
	Shipping     *addressRequest      `json:"shipping"`
	ShippingRate *cart.ShippingChoice `json:"shipping_rate"`
}

// handleCheckout freezes the cart into a host order.
// POST /cart/checkout
func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	if h.deps.Carts == nil {
		h.writeError(w, r, unavailable("cart"))
		return
	}
	var req checkoutRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	creq := cart.CheckoutRequest{Billing: req.Billing.toModel(), Rate: req.ShippingRate}
	creq.Shipping = creq.Billing
	if req.Shipping != nil {
		creq.Shipping = req.Shipping.toModel()
	}

	who := identity(r)
	o, err := h.deps.Carts.Checkout(r.Context(), who.UserID, who.SessionID, creq)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.logger.InfoContext(r.Context(), "checkout created order",
		slog.Int64("order_id", o.ID),
		slog.Int64("user_id", who.UserID),
	)
	h.writeJSON(w, http.StatusCreated, o)
}

type ratesRequest struct {
	Lines       []rateLine      `json:"lines" validate:"required,min=1,dive"`
	Destination rateDestination `json:"destination"`
	Currency    string          `json:"currency" validate:"omitempty,len=3,alpha"`
}

type rateLine struct {
	PFItem    int   `json:"pf_item" validate:"gte=0"`
	VariantID int64 `json:"variant_id" validate:"gte=0"`
	Quantity  int   `json:"quantity" validate:"gte=0"`
}

type rateDestination struct {
	Address1 string `json:"address_1"`
	City     string `json:"city"`
	State    string `json:"state"`
	Country  string `json:"country" validate:"required,iso3166_1_alpha2"`
	Postcode string `json:"postcode"`
}

type ratesResponse struct {
	Rates []shipping.Rate `json:"rates"`
}

// handleShippingRates quotes live Printful shipping for a package.
// An empty list means no Printful rate applies.
// POST /shipping/rates
func (h *Handler) handleShippingRates(w http.ResponseWriter, r *http.Request) {
	if h.deps.Rates == nil {
		h.writeError(w, r, unavailable("shipping"))
		return
	}
	var req ratesRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, h.quote(r.Context(), req))
}

func (h *Handler) quote(ctx context.Context, req ratesRequest) ratesResponse {
	pkg := shipping.Package{
		Destination: shipping.Destination(req.Destination),
		Currency:    req.Currency,
	}
	for _, l := range req.Lines {
		pkg.Lines = append(pkg.Lines, shipping.PackageLine(l))
	}

	rates := h.deps.Rates.Calculate(ctx, pkg)
	if rates == nil {
		rates = []shipping.Rate{}
	}
	return ratesResponse{Rates: rates}
}
