// Package handler provides HTTP handlers for the bridge API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"printful-bridge/internal/cart"
	"printful-bridge/internal/catalog"
	"printful-bridge/internal/design"
	"printful-bridge/internal/middleware"
	"printful-bridge/internal/model"
	"printful-bridge/internal/order"
	"printful-bridge/internal/printful"
	"printful-bridge/internal/shipping"
	"printful-bridge/internal/shopper"
	"printful-bridge/internal/webhook"
)

// Catalog serves product pages and the category tree.
type Catalog interface {
	GetProducts(ctx context.Context, q catalog.Query) catalog.Page
	Categories(ctx context.Context, force bool) []catalog.Category
	ClearCache(ctx context.Context) (int, error)
}

// Prices resolves minimum product prices.
type Prices interface {
	MinPrice(ctx context.Context, productID int64, currency, region string) (float64, bool)
}

// Designs is the design draft and claim service.
type Designs interface {
	SaveTemplate(ctx context.Context, userID int64, req design.SaveRequest) (*design.SaveResult, error)
	SaveDraft(ctx context.Context, userID int64, req design.SaveRequest) (*design.SaveResult, error)
	SaveGuest(ctx context.Context, req design.SaveRequest) (*design.GuestResult, error)
	Claim(ctx context.Context, userID int64, token string) (*design.ClaimResult, error)
	Get(ctx context.Context, userID, id int64) (*design.Design, error)
	List(ctx context.Context, userID int64) ([]design.Design, error)
	Delete(ctx context.Context, userID, id int64) (int64, error)
	EditorNonce(ctx context.Context, userID int64, req design.EditorRequest) (*design.EditorSession, error)
}

// Carts holds the session carts.
type Carts interface {
	AddItemWithDesign(ctx context.Context, userID int64, sessionID string, req cart.AddRequest) (*cart.AddResult, error)
	AddSavedDesign(ctx context.Context, userID int64, sessionID string, designID int64, currency string) (*cart.AddResult, error)
	Restore(ctx context.Context, sessionID string) (*cart.Cart, error)
	Remove(ctx context.Context, sessionID, key string) error
	Checkout(ctx context.Context, userID int64, sessionID string, req cart.CheckoutRequest) (*model.Order, error)
}

// Rates quotes live shipping.
type Rates interface {
	Calculate(ctx context.Context, pkg shipping.Package) []shipping.Rate
}

// Deliveries processes Printful webhook deliveries.
type Deliveries interface {
	Handle(ctx context.Context, signature, publicKey string, body []byte) (int, webhook.Response)
}

// Subscriptions manages the Printful webhook registration.
type Subscriptions interface {
	Subscribe(ctx context.Context) (*webhook.Status, error)
	Status(ctx context.Context) (*webhook.Status, error)
	Clear(ctx context.Context) error
}

// Orders reacts to host order status changes.
type Orders interface {
	HandleStatusChange(ctx context.Context, orderID int64, status string) order.Outcome
}

// Jobs lists pending confirmation jobs.
type Jobs interface {
	List(ctx context.Context) ([]order.Job, error)
}

// RemoteOrders looks up orders on Printful.
type RemoteOrders interface {
	GetOrder(ctx context.Context, orderID string) (*printful.Order, error)
}

// Deps wires the handler to its services. Nil services disable their routes'
// behaviour with a config_error.
type Deps struct {
	Catalog       Catalog
	Prices        Prices
	Designs       Designs
	Widgets       *WidgetSessions
	Carts         Carts
	Rates         Rates
	Deliveries    Deliveries
	Subscriptions Subscriptions
	Orders        Orders
	Jobs          Jobs
	RemoteOrders  RemoteOrders
}

// Options carries the store settings the HTTP layer applies itself.
type Options struct {
	ShopperSecret    string
	AdminToken       string
	WooWebhookSecret string
	Currency         string
	MarkupPct        float64
	MarkupFix        float64
	ShowRetail       bool
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	deps     Deps
	opts     Options
	logger   *slog.Logger
	validate *validator.Validate
}

// New creates a new Handler.
func New(deps Deps, opts Options, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Widgets == nil && deps.Designs != nil {
		deps.Widgets = NewWidgetSessions(deps.Designs)
	}
	return &Handler{
		deps:     deps,
		opts:     opts,
		logger:   logger,
		validate: newValidator(),
	}
}

// RegisterRoutes registers all HTTP routes with the given ServeMux.
// Uses Go 1.22+ method routing patterns.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	shopperAuth := shopper.Middleware(h.opts.ShopperSecret, h.logger)
	storefront := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, shopperAuth(fn))
	}
	admin := middleware.AdminAuth(h.opts.AdminToken)

	// Catalog
	storefront("GET /catalog/products", h.handleProducts)
	storefront("GET /catalog/categories", h.handleCategories)
	storefront("GET /catalog/filters", h.handleFilters)
	storefront("GET /catalog/products/{id}/min-price", h.handleMinPrice)

	// Designs
	storefront("POST /designs/editor-nonce", h.handleEditorNonce)
	storefront("POST /designs/editor/{nonce}/events", h.handleWidgetEvent)
	storefront("POST /designs/template", h.handleSaveTemplate)
	storefront("POST /designs/guest", h.handleSaveGuest)
	storefront("POST /designs/claim", h.handleClaim)
	storefront("POST /designs/draft", h.handleSaveDraft)
	storefront("GET /designs", h.handleListDesigns)
	storefront("GET /designs/{id}", h.handleGetDesign)
	storefront("DELETE /designs/{id}", h.handleDeleteDesign)
	storefront("POST /designs/{id}/cart", h.handleAddSavedDesign)

	// Cart and shipping
	storefront("POST /cart/items", h.handleAddCartItem)
	storefront("GET /cart", h.handleGetCart)
	storefront("DELETE /cart/items/{key}", h.handleRemoveCartItem)
	storefront("POST /cart/checkout", h.handleCheckout)
	storefront("POST /shipping/rates", h.handleShippingRates)

	// Webhooks verify their own signatures.
	mux.HandleFunc("POST /webhooks/printful", h.handlePrintfulWebhook)
	mux.HandleFunc("POST /webhooks/woocommerce", h.handleWooWebhook)

	// Admin
	mux.Handle("POST /admin/cache/clear", admin(http.HandlerFunc(h.handleClearCache)))
	mux.Handle("POST /admin/webhooks", admin(http.HandlerFunc(h.handleSubscribe)))
	mux.Handle("GET /admin/webhooks", admin(http.HandlerFunc(h.handleWebhookStatus)))
	mux.Handle("DELETE /admin/webhooks/keys", admin(http.HandlerFunc(h.handleClearWebhookKeys)))
	mux.Handle("GET /admin/confirmations", admin(http.HandlerFunc(h.handleConfirmations)))

	// MCP transport - JSON-RPC endpoint using official MCP SDK
	mux.Handle("/mcp", h.NewMCPHandler())

	// Health check
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /healthz", h.handleHealth)
}

// healthResponse is the JSON structure for health check responses.
type healthResponse struct {
	Status string `json:"status"`
}

// handleHealth returns service health status.
// GET /health, GET /healthz
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

// === Response Helpers ===

// writeJSON sends a JSON response with the given status code.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeError sends an error response, extracting status/code from APIError if present.
// Uses errors.As() to unwrap error chains (e.g., fmt.Errorf wrapping).
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		apiErr = &model.APIError{
			Code:       "INTERNAL_ERROR",
			Message:    "an internal error occurred",
			StatusCode: http.StatusInternalServerError,
		}
		h.logger.ErrorContext(r.Context(), "internal error",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	} else if apiErr.StatusCode >= http.StatusInternalServerError {
		h.logger.WarnContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path),
			slog.String("code", apiErr.Code),
			slog.Any("error", apiErr.Err),
		)
	}

	h.writeJSON(w, apiErr.StatusCode, errorResponse{
		Error: errorBody{
			Code:     apiErr.Code,
			Message:  apiErr.Message,
			Redirect: apiErr.Redirect,
		},
	})
}

// errorResponse is the JSON structure for error responses.
type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Redirect string `json:"redirect,omitempty"`
}

// MaxRequestBodySize limits JSON request bodies to 1MB.
const MaxRequestBodySize = 1 << 20

// decodeJSON reads JSON from the request body into v and validates its
// `validate` tags. Returns an APIError on failure.
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		// Don't expose internal error details to client
		return model.NewValidationError("body", "invalid JSON")
	}
	return h.check(v)
}

// check runs struct validation and reports the first failing field.
func (h *Handler) check(v interface{}) error {
	err := h.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return model.NewValidationError(jsonFieldName(fe.Namespace()), failedRule(fe))
	}
	return model.NewValidationError("body", err.Error())
}

// jsonFieldName drops the root struct from a namespace such as
// "request.shipping.country".
func jsonFieldName(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

// newValidator reports fields by their json names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

func failedRule(fe validator.FieldError) string {
	if fe.Param() != "" {
		return fmt.Sprintf("must satisfy %s=%s", fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("must satisfy %s", fe.Tag())
}

// identity returns the shopper the request acts for.
func identity(r *http.Request) shopper.Identity {
	return shopper.FromContext(r.Context())
}

func unavailable(what string) error {
	return model.NewConfigError(what + " is not configured")
}
