package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"printful-bridge/internal/cart"
	"printful-bridge/internal/catalog"
	"printful-bridge/internal/design"
	"printful-bridge/internal/model"
	"printful-bridge/internal/order"
	"printful-bridge/internal/printful"
	"printful-bridge/internal/shipping"
	"printful-bridge/internal/shopper"
	"printful-bridge/internal/webhook"
	"printful-bridge/internal/woocommerce"
)

// fakeServices implements every service interface with overridable funcs.
type fakeServices struct {
	productsFn   func(q catalog.Query) catalog.Page
	categoriesFn func(force bool) []catalog.Category
	cleared      int

	minPriceFn func(id int64, currency, region string) (float64, bool)

	saveTemplateFn func(userID int64, req design.SaveRequest) (*design.SaveResult, error)
	saveDraftFn    func(userID int64, req design.SaveRequest) (*design.SaveResult, error)
	saveGuestFn    func(req design.SaveRequest) (*design.GuestResult, error)
	claimFn        func(userID int64, token string) (*design.ClaimResult, error)
	nonceFn        func(userID int64, req design.EditorRequest) (*design.EditorSession, error)

	addItemFn  func(userID int64, sessionID string, req cart.AddRequest) (*cart.AddResult, error)
	addSavedFn func(userID int64, sessionID string, designID int64, currency string) (*cart.AddResult, error)
	restoreFn  func(sessionID string) (*cart.Cart, error)
	checkoutFn func(userID int64, sessionID string, req cart.CheckoutRequest) (*model.Order, error)

	calculateFn func(pkg shipping.Package) []shipping.Rate

	handleFn func(sig, pub string, body []byte) (int, webhook.Response)

	statusChanges []string
	outcome       order.Outcome

	jobs []order.Job

	getOrderFn func(id string) (*printful.Order, error)
}

func (f *fakeServices) GetProducts(_ context.Context, q catalog.Query) catalog.Page {
	if f.productsFn != nil {
		return f.productsFn(q)
	}
	return catalog.Page{}
}

func (f *fakeServices) Categories(_ context.Context, force bool) []catalog.Category {
	if f.categoriesFn != nil {
		return f.categoriesFn(force)
	}
	return nil
}

func (f *fakeServices) ClearCache(context.Context) (int, error) {
	f.cleared++
	return 3, nil
}

func (f *fakeServices) MinPrice(_ context.Context, id int64, currency, region string) (float64, bool) {
	if f.minPriceFn != nil {
		return f.minPriceFn(id, currency, region)
	}
	return 0, false
}

func (f *fakeServices) SaveTemplate(_ context.Context, userID int64, req design.SaveRequest) (*design.SaveResult, error) {
	if f.saveTemplateFn != nil {
		return f.saveTemplateFn(userID, req)
	}
	return &design.SaveResult{ID: 1}, nil
}

func (f *fakeServices) SaveDraft(_ context.Context, userID int64, req design.SaveRequest) (*design.SaveResult, error) {
	if f.saveDraftFn != nil {
		return f.saveDraftFn(userID, req)
	}
	return &design.SaveResult{ID: 2}, nil
}

func (f *fakeServices) SaveGuest(_ context.Context, req design.SaveRequest) (*design.GuestResult, error) {
	if f.saveGuestFn != nil {
		return f.saveGuestFn(req)
	}
	return &design.GuestResult{Token: "tok-1", Redirect: "/login?pf_draft=tok-1", TTL: 6 * time.Hour}, nil
}

func (f *fakeServices) Claim(_ context.Context, userID int64, token string) (*design.ClaimResult, error) {
	if f.claimFn != nil {
		return f.claimFn(userID, token)
	}
	return &design.ClaimResult{RowID: 9}, nil
}

func (f *fakeServices) Get(_ context.Context, userID, id int64) (*design.Design, error) {
	if userID != 42 || id != 7 {
		return nil, model.NewNotFoundError("design")
	}
	return &design.Design{ID: 7, UserID: 42, DesignName: "Tee"}, nil
}

func (f *fakeServices) List(_ context.Context, userID int64) ([]design.Design, error) {
	return nil, nil
}

func (f *fakeServices) Delete(_ context.Context, userID, id int64) (int64, error) {
	return 1, nil
}

func (f *fakeServices) EditorNonce(_ context.Context, userID int64, req design.EditorRequest) (*design.EditorSession, error) {
	if f.nonceFn != nil {
		return f.nonceFn(userID, req)
	}
	return &design.EditorSession{Nonce: "n-1", ProductID: req.ProductID, ExternalProductID: "ext-1"}, nil
}

func (f *fakeServices) AddItemWithDesign(_ context.Context, userID int64, sessionID string, req cart.AddRequest) (*cart.AddResult, error) {
	if f.addItemFn != nil {
		return f.addItemFn(userID, sessionID, req)
	}
	return &cart.AddResult{Key: "k1"}, nil
}

func (f *fakeServices) AddSavedDesign(_ context.Context, userID int64, sessionID string, designID int64, currency string) (*cart.AddResult, error) {
	if f.addSavedFn != nil {
		return f.addSavedFn(userID, sessionID, designID, currency)
	}
	return &cart.AddResult{Key: "k2"}, nil
}

func (f *fakeServices) Restore(_ context.Context, sessionID string) (*cart.Cart, error) {
	if f.restoreFn != nil {
		return f.restoreFn(sessionID)
	}
	return &cart.Cart{}, nil
}

func (f *fakeServices) Remove(_ context.Context, sessionID, key string) error {
	return nil
}

func (f *fakeServices) Checkout(_ context.Context, userID int64, sessionID string, req cart.CheckoutRequest) (*model.Order, error) {
	if f.checkoutFn != nil {
		return f.checkoutFn(userID, sessionID, req)
	}
	return &model.Order{ID: 100, Status: "pending"}, nil
}

func (f *fakeServices) Calculate(_ context.Context, pkg shipping.Package) []shipping.Rate {
	if f.calculateFn != nil {
		return f.calculateFn(pkg)
	}
	return nil
}

func (f *fakeServices) Handle(_ context.Context, sig, pub string, body []byte) (int, webhook.Response) {
	if f.handleFn != nil {
		return f.handleFn(sig, pub, body)
	}
	return http.StatusOK, webhook.Response{OK: true}
}

func (f *fakeServices) Subscribe(context.Context) (*webhook.Status, error) {
	return &webhook.Status{DefaultURL: "https://bridge.example.com/webhooks/printful"}, nil
}

func (f *fakeServices) Status(context.Context) (*webhook.Status, error) {
	return &webhook.Status{DefaultURL: "https://bridge.example.com/webhooks/printful", SecretMasked: "0011••••eeff"}, nil
}

func (f *fakeServices) Clear(context.Context) error { return nil }

func (f *fakeServices) HandleStatusChange(_ context.Context, orderID int64, status string) order.Outcome {
	f.statusChanges = append(f.statusChanges, status)
	if f.outcome != "" {
		return f.outcome
	}
	return order.OutcomeSubmitted
}

func (f *fakeServices) ListJobs(context.Context) ([]order.Job, error) { return f.jobs, nil }

func (f *fakeServices) GetOrder(_ context.Context, id string) (*printful.Order, error) {
	if f.getOrderFn != nil {
		return f.getOrderFn(id)
	}
	return nil, model.NewNotFoundError("Printful resource")
}

// jobsFake adapts ListJobs to the Jobs interface; List is taken by designs.
type jobsFake struct{ f *fakeServices }

func (j jobsFake) List(ctx context.Context) ([]order.Job, error) { return j.f.ListJobs(ctx) }

func allDeps(f *fakeServices) Deps {
	return Deps{
		Catalog:       f,
		Prices:        f,
		Designs:       f,
		Carts:         f,
		Rates:         f,
		Deliveries:    f,
		Subscriptions: f,
		Orders:        f,
		Jobs:          jobsFake{f},
		RemoteOrders:  f,
	}
}

const (
	testAdminToken  = "admin-s3cret"
	testWooSecret   = "woo-s3cret"
	testShopperUser = `user=42, session="sess-1"`
)

func testHandler(f *fakeServices, opts Options) (*Handler, *http.ServeMux) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if opts.AdminToken == "" {
		opts.AdminToken = testAdminToken
	}
	if opts.WooWebhookSecret == "" {
		opts.WooWebhookSecret = testWooSecret
	}
	if opts.Currency == "" {
		opts.Currency = "AUD"
	}
	h := New(allDeps(f), opts, logger)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return h, mux
}

func serve(mux *http.ServeMux, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func jsonRequest(method, path string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var resp errorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body: %v\nBody: %s", err, w.Body.String())
	}
	return resp.Error
}

func TestHandleHealth(t *testing.T) {
	_, mux := testHandler(&fakeServices{}, Options{})

	for _, path := range []string{"/health", "/healthz"} {
		w := serve(mux, httptest.NewRequest("GET", path, nil))
		if w.Code != http.StatusOK {
			t.Errorf("%s Status = %d, want %d", path, w.Code, http.StatusOK)
		}
		var resp healthResponse
		json.NewDecoder(w.Body).Decode(&resp)
		if resp.Status != "ok" {
			t.Errorf("%s status = %s, want ok", path, resp.Status)
		}
	}
}

func TestHandleProducts(t *testing.T) {
	price := 12.0
	var got catalog.Query
	f := &fakeServices{productsFn: func(q catalog.Query) catalog.Page {
		got = q
		return catalog.Page{Products: []catalog.Product{{ID: 71, Title: "Tee", Price: &price}, {ID: 72}}}
	}}
	_, mux := testHandler(f, Options{})

	w := serve(mux, httptest.NewRequest("GET",
		"/catalog/products?offset=4&limit=2&category_ids=24,6&techniques=dtg&colors=black,white&sizes=M", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d\nBody: %s", w.Code, http.StatusOK, w.Body.String())
	}

	if got.Offset != 4 || got.Limit != 2 {
		t.Errorf("query offset/limit = %d/%d, want 4/2", got.Offset, got.Limit)
	}
	if len(got.CategoryIDs) != 2 || got.CategoryIDs[0] != 6 || got.CategoryIDs[1] != 24 {
		t.Errorf("CategoryIDs = %v, want [6 24]", got.CategoryIDs)
	}
	if len(got.Filters.Colors) != 2 || len(got.Filters.Techniques) != 1 || len(got.Filters.Sizes) != 1 {
		t.Errorf("Filters = %+v", got.Filters)
	}

	var resp productsResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if len(resp.Products) != 2 {
		t.Fatalf("Products len = %d, want 2", len(resp.Products))
	}
	if resp.NextOffset != 6 || resp.Done {
		t.Errorf("next = %d done = %v, want 6 false", resp.NextOffset, resp.Done)
	}
	if resp.Products[0].Price == nil || *resp.Products[0].Price != 12 {
		t.Errorf("Price = %v, want 12", resp.Products[0].Price)
	}
	if resp.Products[1].Price != nil {
		t.Errorf("unknown price = %v, want null", *resp.Products[1].Price)
	}
}

func TestHandleProductsShortPageAndRetail(t *testing.T) {
	price := 20.0
	f := &fakeServices{productsFn: func(q catalog.Query) catalog.Page {
		return catalog.Page{Products: []catalog.Product{{ID: 1, Price: &price}}}
	}}
	_, mux := testHandler(f, Options{ShowRetail: true, MarkupPct: 20, MarkupFix: 1.5})

	w := serve(mux, httptest.NewRequest("GET", "/catalog/products", nil))
	var resp productsResponse
	json.NewDecoder(w.Body).Decode(&resp)

	if !resp.Done || resp.NextOffset != 1 {
		t.Errorf("next = %d done = %v, want 1 true", resp.NextOffset, resp.Done)
	}
	if resp.Products[0].Price == nil || *resp.Products[0].Price != 25.5 {
		t.Errorf("retail price = %v, want 25.5", resp.Products[0].Price)
	}
	if price != 20 {
		t.Errorf("source price mutated to %v", price)
	}
}

func TestHandleProductsEmptyIsArray(t *testing.T) {
	_, mux := testHandler(&fakeServices{}, Options{})
	w := serve(mux, httptest.NewRequest("GET", "/catalog/products", nil))
	if !strings.Contains(w.Body.String(), `"products":[]`) {
		t.Errorf("Body = %s, want empty products array", w.Body.String())
	}
}

func TestHandleCategories(t *testing.T) {
	var forced bool
	f := &fakeServices{categoriesFn: func(force bool) []catalog.Category {
		forced = force
		return []catalog.Category{{ID: 1, Title: "Men's clothing"}, {ID: 2, ParentID: 1, Title: "T-shirts"}}
	}}
	_, mux := testHandler(f, Options{})

	w := serve(mux, httptest.NewRequest("GET", "/catalog/categories?force=1", nil))
	if !forced {
		t.Error("force flag not passed through")
	}
	var resp categoriesResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if len(resp.Paths) != 2 {
		t.Fatalf("Paths len = %d, want 2", len(resp.Paths))
	}
	found := false
	for _, p := range resp.Paths {
		if p.ID == 2 && p.Label == "Men's clothing › T-shirts" {
			found = true
		}
	}
	if !found {
		t.Errorf("Paths = %+v, missing breadcrumb for 2", resp.Paths)
	}
}

func TestHandleFilters(t *testing.T) {
	_, mux := testHandler(&fakeServices{}, Options{})
	w := serve(mux, httptest.NewRequest("GET", "/catalog/filters", nil))
	var defs catalog.Definitions
	json.NewDecoder(w.Body).Decode(&defs)
	if len(defs.Technique) != 4 {
		t.Errorf("Technique len = %d, want 4", len(defs.Technique))
	}
}

func TestHandleMinPrice(t *testing.T) {
	f := &fakeServices{minPriceFn: func(id int64, currency, region string) (float64, bool) {
		if id == 71 && currency == "USD" && region == "europe" {
			return 9.5, true
		}
		return 0, false
	}}
	_, mux := testHandler(f, Options{})

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantPrice  *float64
		wantCur    string
	}{
		{"known", "/catalog/products/71/min-price?currency=usd&region=europe", http.StatusOK, ptr(9.5), "USD"},
		{"unknown", "/catalog/products/72/min-price", http.StatusOK, nil, "AUD"},
		{"bad id", "/catalog/products/abc/min-price", http.StatusBadRequest, nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(mux, httptest.NewRequest("GET", tt.path, nil))
			if w.Code != tt.wantStatus {
				t.Fatalf("Status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var resp minPriceResponse
			json.NewDecoder(w.Body).Decode(&resp)
			if resp.Currency != tt.wantCur {
				t.Errorf("Currency = %s, want %s", resp.Currency, tt.wantCur)
			}
			switch {
			case tt.wantPrice == nil && resp.Price != nil:
				t.Errorf("Price = %v, want null", *resp.Price)
			case tt.wantPrice != nil && (resp.Price == nil || *resp.Price != *tt.wantPrice):
				t.Errorf("Price = %v, want %v", resp.Price, *tt.wantPrice)
			}
		})
	}
}

func ptr(v float64) *float64 { return &v }

func TestSaveTemplateGuestFallsThrough(t *testing.T) {
	var guestCalls, userCalls int
	f := &fakeServices{
		saveGuestFn: func(req design.SaveRequest) (*design.GuestResult, error) {
			guestCalls++
			return &design.GuestResult{Token: "tok-9", Redirect: "/login?pf_draft=tok-9", TTL: time.Hour}, nil
		},
		saveTemplateFn: func(userID int64, req design.SaveRequest) (*design.SaveResult, error) {
			userCalls++
			return &design.SaveResult{ID: 5}, nil
		},
	}
	_, mux := testHandler(f, Options{})

	w := serve(mux, jsonRequest("POST", "/designs/template", map[string]any{
		"template_id": 555, "external_product_id": "ext-1",
	}))
	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d\nBody: %s", w.Code, http.StatusOK, w.Body.String())
	}
	if guestCalls != 1 || userCalls != 0 {
		t.Errorf("guest/user calls = %d/%d, want 1/0", guestCalls, userCalls)
	}

	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != design.DraftCookie || cookies[0].Value != "tok-9" || cookies[0].MaxAge != 3600 {
		t.Errorf("cookies = %+v, want pf_draft=tok-9 max-age 3600", cookies)
	}
}

func TestSaveTemplateAuthenticated(t *testing.T) {
	var gotUser int64
	f := &fakeServices{saveTemplateFn: func(userID int64, req design.SaveRequest) (*design.SaveResult, error) {
		gotUser = userID
		return &design.SaveResult{ID: 5, Redirect: "/my-designs"}, nil
	}}
	_, mux := testHandler(f, Options{})

	req := jsonRequest("POST", "/designs/template", map[string]any{"template_id": 555, "external_product_id": "ext-1"})
	req.Header.Set(shopper.Header, testShopperUser)
	w := serve(mux, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotUser != 42 {
		t.Errorf("userID = %d, want 42", gotUser)
	}
}

func TestShopperSignatureRequiredWhenSecretSet(t *testing.T) {
	_, mux := testHandler(&fakeServices{}, Options{ShopperSecret: "shh"})

	req := httptest.NewRequest("GET", "/designs", nil)
	req.Header.Set(shopper.Header, testShopperUser)
	w := serve(mux, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unsigned Status = %d, want %d", w.Code, http.StatusUnauthorized)
	}

	signed, err := shopper.Format(shopper.Identity{UserID: 42, SessionID: "sess-1"}, "shh")
	if err != nil {
		t.Fatal(err)
	}
	req = httptest.NewRequest("GET", "/designs", nil)
	req.Header.Set(shopper.Header, signed)
	w = serve(mux, req)
	if w.Code != http.StatusOK {
		t.Errorf("signed Status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), `"designs":[]`) {
		t.Errorf("Body = %s, want empty designs array", w.Body.String())
	}
}

func TestClaimUsesCookieAndClearsIt(t *testing.T) {
	var gotToken string
	f := &fakeServices{claimFn: func(userID int64, token string) (*design.ClaimResult, error) {
		gotToken = token
		return &design.ClaimResult{RowID: 9, Redirect: "/my-designs"}, nil
	}}
	_, mux := testHandler(f, Options{})

	req := httptest.NewRequest("POST", "/designs/claim", nil)
	req.Header.Set(shopper.Header, testShopperUser)
	req.AddCookie(&http.Cookie{Name: design.DraftCookie, Value: "tok-cookie"})
	w := serve(mux, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d\nBody: %s", w.Code, http.StatusOK, w.Body.String())
	}
	if gotToken != "tok-cookie" {
		t.Errorf("token = %q, want tok-cookie", gotToken)
	}
	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Errorf("cookies = %+v, want pf_draft cleared", cookies)
	}
}

func TestErrorCarriesRedirect(t *testing.T) {
	f := &fakeServices{saveDraftFn: func(userID int64, req design.SaveRequest) (*design.SaveResult, error) {
		return nil, model.NewAuthRequiredError("Please log in to save designs!", "https://shop.example.com/login")
	}}
	_, mux := testHandler(f, Options{})

	w := serve(mux, jsonRequest("POST", "/designs/draft", map[string]any{"design_data": "{}"}))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("Status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	e := errorOf(t, w)
	if e.Code != "auth_required" || e.Redirect != "https://shop.example.com/login" {
		t.Errorf("error = %+v, want auth_required with redirect", e)
	}
}

func TestGetDesignOwnerScoped(t *testing.T) {
	_, mux := testHandler(&fakeServices{}, Options{})

	req := httptest.NewRequest("GET", "/designs/7", nil)
	req.Header.Set(shopper.Header, testShopperUser)
	if w := serve(mux, req); w.Code != http.StatusOK {
		t.Errorf("owner Status = %d, want %d", w.Code, http.StatusOK)
	}

	req = httptest.NewRequest("GET", "/designs/7", nil)
	req.Header.Set(shopper.Header, `user=43, session="x"`)
	if w := serve(mux, req); w.Code != http.StatusNotFound {
		t.Errorf("other user Status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestAddCartItemValidation(t *testing.T) {
	_, mux := testHandler(&fakeServices{}, Options{})

	req := jsonRequest("POST", "/cart/items", map[string]any{"product_id": 71, "unit_price": 20})
	req.Header.Set(shopper.Header, testShopperUser)
	w := serve(mux, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("Status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	e := errorOf(t, w)
	if e.Code != "validation_error" || !strings.Contains(e.Message, "variant_id") {
		t.Errorf("error = %+v, want validation_error on variant_id", e)
	}
}

func TestAddCartItem(t *testing.T) {
	var got cart.AddRequest
	var gotSession string
	f := &fakeServices{addItemFn: func(userID int64, sessionID string, req cart.AddRequest) (*cart.AddResult, error) {
		got, gotSession = req, sessionID
		return &cart.AddResult{Key: "line-1", Redirect: "/cart"}, nil
	}}
	_, mux := testHandler(f, Options{})

	req := jsonRequest("POST", "/cart/items", map[string]any{
		"product_id": 71, "variant_id": 4012, "template_id": 555, "unit_price": 20, "currency": "AUD",
	})
	req.Header.Set(shopper.Header, testShopperUser)
	w := serve(mux, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d\nBody: %s", w.Code, http.StatusOK, w.Body.String())
	}
	if got.VariantID != 4012 || gotSession != "sess-1" {
		t.Errorf("request = %+v session %q", got, gotSession)
	}
}

func TestGetCart(t *testing.T) {
	f := &fakeServices{restoreFn: func(sessionID string) (*cart.Cart, error) {
		return &cart.Cart{Lines: []cart.Line{
			{Key: "a", Quantity: 2, Meta: model.DesignMeta{UnitPrice: 10.25, Currency: "AUD"}},
			{Key: "b", Quantity: 1, Meta: model.DesignMeta{UnitPrice: 5}},
		}}, nil
	}}
	_, mux := testHandler(f, Options{})

	req := httptest.NewRequest("GET", "/cart", nil)
	req.Header.Set(shopper.Header, testShopperUser)
	w := serve(mux, req)

	var resp cartResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if len(resp.Lines) != 2 {
		t.Fatalf("Lines len = %d, want 2", len(resp.Lines))
	}
	if resp.Subtotal != 25.5 {
		t.Errorf("Subtotal = %v, want 25.5", resp.Subtotal)
	}
}

func TestGetCartMissingSession(t *testing.T) {
	_, mux := testHandler(&fakeServices{}, Options{})
	w := serve(mux, httptest.NewRequest("GET", "/cart", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestCheckoutDefaultsShippingToBilling(t *testing.T) {
	var got cart.CheckoutRequest
	f := &fakeServices{checkoutFn: func(userID int64, sessionID string, req cart.CheckoutRequest) (*model.Order, error) {
		got = req
		return &model.Order{ID: 100, Status: "pending"}, nil
	}}
	_, mux := testHandler(f, Options{})

	req := jsonRequest("POST", "/cart/checkout", map[string]any{
		"billing": map[string]string{
			"first_name": "Ada", "address_1": "1 Main St", "city": "Sydney",
			"postcode": "2000", "country": "AU", "email": "ada@example.com",
		},
		"shipping_rate": map[string]any{"id": "printful_live:standard", "label": "Standard", "cost": 7.95, "service_code": "STANDARD"},
	})
	req.Header.Set(shopper.Header, testShopperUser)
	w := serve(mux, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Status = %d, want %d\nBody: %s", w.Code, http.StatusCreated, w.Body.String())
	}
	if got.Shipping.City != "Sydney" || got.Shipping.FirstName != "Ada" {
		t.Errorf("Shipping = %+v, want billing copy", got.Shipping)
	}
	if got.Rate == nil || got.Rate.ServiceCode != "STANDARD" {
		t.Errorf("Rate = %+v", got.Rate)
	}
}

func TestCheckoutRejectsBadCountry(t *testing.T) {
	_, mux := testHandler(&fakeServices{}, Options{})
	req := jsonRequest("POST", "/cart/checkout", map[string]any{
		"billing": map[string]string{"address_1": "1 Main St", "city": "Sydney", "postcode": "2000", "country": "Australia"},
	})
	w := serve(mux, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if e := errorOf(t, w); !strings.Contains(e.Message, "billing.country") {
		t.Errorf("message = %q, want billing.country", e.Message)
	}
}

func TestShippingRates(t *testing.T) {
	var got shipping.Package
	f := &fakeServices{calculateFn: func(pkg shipping.Package) []shipping.Rate {
		got = pkg
		return nil
	}}
	_, mux := testHandler(f, Options{})

	w := serve(mux, jsonRequest("POST", "/shipping/rates", map[string]any{
		"lines":       []map[string]any{{"pf_item": 1, "variant_id": 4012, "quantity": 2}},
		"destination": map[string]string{"country": "AU", "state": "NSW", "postcode": "2000"},
	}))
	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d\nBody: %s", w.Code, http.StatusOK, w.Body.String())
	}
	if len(got.Lines) != 1 || got.Lines[0].VariantID != 4012 || got.Destination.State != "NSW" {
		t.Errorf("package = %+v", got)
	}
	if !strings.Contains(w.Body.String(), `"rates":[]`) {
		t.Errorf("Body = %s, want empty rates array", w.Body.String())
	}
}

func TestPrintfulWebhookPassesHeaders(t *testing.T) {
	var gotSig, gotPub string
	var gotBody []byte
	f := &fakeServices{handleFn: func(sig, pub string, body []byte) (int, webhook.Response) {
		gotSig, gotPub, gotBody = sig, pub, body
		return http.StatusForbidden, webhook.Response{OK: false, Reason: "bad_signature"}
	}}
	_, mux := testHandler(f, Options{})

	req := httptest.NewRequest("POST", "/webhooks/printful", strings.NewReader(`{"type":"order_updated"}`))
	req.Header.Set(webhook.HeaderSignature, "abcd")
	req.Header.Set(webhook.HeaderPublicKey, "pk")
	w := serve(mux, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusForbidden)
	}
	if gotSig != "abcd" || gotPub != "pk" || string(gotBody) != `{"type":"order_updated"}` {
		t.Errorf("got sig=%q pub=%q body=%q", gotSig, gotPub, gotBody)
	}
}

func TestWooWebhook(t *testing.T) {
	body := []byte(`{"id":123,"status":"processing"}`)

	tests := []struct {
		name        string
		body        []byte
		signature   string
		wantStatus  int
		wantChanges int
	}{
		{"signed", body, woocommerce.Sign(body, testWooSecret), http.StatusOK, 1},
		{"bad signature", body, woocommerce.Sign(body, "other"), http.StatusForbidden, 0},
		{"missing signature", body, "", http.StatusForbidden, 0},
		{"ping", []byte("webhook_id=7"), "", http.StatusOK, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeServices{}
			_, mux := testHandler(f, Options{})

			req := httptest.NewRequest("POST", "/webhooks/woocommerce", bytes.NewReader(tt.body))
			if tt.signature != "" {
				req.Header.Set(woocommerce.HeaderSignature, tt.signature)
			}
			req.Header.Set(woocommerce.HeaderTopic, "order.updated")
			w := serve(mux, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Status = %d, want %d\nBody: %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if len(f.statusChanges) != tt.wantChanges {
				t.Errorf("status changes = %v, want %d", f.statusChanges, tt.wantChanges)
			}
			if tt.wantChanges > 0 && f.statusChanges[0] != "processing" {
				t.Errorf("status = %q, want processing", f.statusChanges[0])
			}
		})
	}
}

func TestAdminRoutesRequireToken(t *testing.T) {
	f := &fakeServices{}
	_, mux := testHandler(f, Options{})

	w := serve(mux, httptest.NewRequest("POST", "/admin/cache/clear", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token Status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	if f.cleared != 0 {
		t.Error("cache cleared without token")
	}

	req := httptest.NewRequest("POST", "/admin/cache/clear", nil)
	req.Header.Set("Authorization", "Bearer "+testAdminToken)
	w = serve(mux, req)
	if w.Code != http.StatusOK {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
	}
	if f.cleared != 1 {
		t.Errorf("cleared = %d, want 1", f.cleared)
	}
}

func TestAdminConfirmationsSorted(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f := &fakeServices{jobs: []order.Job{
		{RemoteOrderID: 2, Attempt: 3, NotBefore: now.Add(time.Hour)},
		{RemoteOrderID: 1, Attempt: 0, NotBefore: now},
	}}
	_, mux := testHandler(f, Options{})

	req := httptest.NewRequest("GET", "/admin/confirmations", nil)
	req.Header.Set("Authorization", "Bearer "+testAdminToken)
	w := serve(mux, req)

	var resp confirmationsResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if len(resp.Jobs) != 2 || resp.Jobs[0].RemoteOrderID != 1 {
		t.Errorf("Jobs = %+v, want order 1 first", resp.Jobs)
	}
}

func TestAdminWebhookStatus(t *testing.T) {
	_, mux := testHandler(&fakeServices{}, Options{})

	req := httptest.NewRequest("GET", "/admin/webhooks", nil)
	req.Header.Set("Authorization", "Bearer "+testAdminToken)
	w := serve(mux, req)

	var st webhook.Status
	json.NewDecoder(w.Body).Decode(&st)
	if st.SecretMasked == "" || st.DefaultURL == "" {
		t.Errorf("status = %+v", st)
	}
}

func TestWidgetEvents(t *testing.T) {
	var saves []design.SaveRequest
	f := &fakeServices{saveTemplateFn: func(userID int64, req design.SaveRequest) (*design.SaveResult, error) {
		saves = append(saves, req)
		return &design.SaveResult{ID: 11}, nil
	}}
	_, mux := testHandler(f, Options{})

	post := func(path string, body any, who string) *httptest.ResponseRecorder {
		req := jsonRequest("POST", path, body)
		if who != "" {
			req.Header.Set(shopper.Header, who)
		}
		return serve(mux, req)
	}

	w := post("/designs/editor-nonce", map[string]any{"product_id": 71, "design_category": "T-SHIRT"}, testShopperUser)
	if w.Code != http.StatusOK {
		t.Fatalf("nonce Status = %d\nBody: %s", w.Code, w.Body.String())
	}

	events := "/designs/editor/n-1/events"
	saved := map[string]any{"event": "template_saved", "template_id": 555, "external_product_id": "ext-1"}

	// Auto-save on load is ignored.
	post(events, saved, testShopperUser)
	if len(saves) != 0 {
		t.Fatalf("saves = %d before save click, want 0", len(saves))
	}

	post(events, map[string]any{"event": "pricing_update", "unit_price": 21.5, "currency": "AUD", "variant_id": 4012}, testShopperUser)
	post(events, map[string]any{"event": "save_clicked"}, testShopperUser)
	w = post(events, saved, testShopperUser)
	if w.Code != http.StatusOK {
		t.Fatalf("template_saved Status = %d\nBody: %s", w.Code, w.Body.String())
	}
	if len(saves) != 1 {
		t.Fatalf("saves = %d, want 1", len(saves))
	}
	if saves[0].VariantID != 4012 || saves[0].DesignCategory != "T-SHIRT" || saves[0].UnitPrice == nil {
		t.Errorf("save = %+v", saves[0])
	}

	if w := post(events, map[string]any{"event": "save_clicked"}, `user=43`); w.Code != http.StatusNotFound {
		t.Errorf("other user Status = %d, want %d", w.Code, http.StatusNotFound)
	}
	if w := post(events, map[string]any{"event": "bogus"}, testShopperUser); w.Code != http.StatusBadRequest {
		t.Errorf("unknown event Status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestUnconfiguredServiceIsConfigError(t *testing.T) {
	h := New(Deps{}, Options{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	w := serve(mux, httptest.NewRequest("GET", "/catalog/products", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
	if e := errorOf(t, w); e.Code != "config_error" {
		t.Errorf("code = %s, want config_error", e.Code)
	}
}
