package cart

import (
	"context"
	"errors"
	"testing"
	"time"

	"printful-bridge/internal/adapter"
	"printful-bridge/internal/cache"
	"printful-bridge/internal/design"
	"printful-bridge/internal/model"
)

func newTestService(t *testing.T) (*Service, *design.MemoryStore, *adapter.Mock) {
	t.Helper()
	designs := design.NewMemoryStore()
	orders := &adapter.Mock{}
	svc := NewService(cache.NewMemory(0), designs, orders, nil, Config{
		ContainerProductID: 501,
		MarkupPct:          20,
		MarkupFix:          1.5,
		Currency:           "AUD",
		CartURL:            "https://shop.example/cart",
		LoginURL:           "https://shop.example/login",
	})
	clock := time.Unix(1700000000, 0)
	svc.now = func() time.Time {
		clock = clock.Add(time.Millisecond)
		return clock
	}
	return svc, designs, orders
}

func apiCode(err error) string {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}

func sampleAdd() AddRequest {
	return AddRequest{
		ProductID:         71,
		VariantID:         4012,
		TemplateID:        9001,
		ExternalProductID: "u7:p71",
		DesignName:        "Sunset",
		MockupURL:         "https://mockups/9001.png",
		UnitPrice:         24.5,
	}
}

func TestAddItemWithDesign_SameDesignTwiceMakesTwoLines(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.AddItemWithDesign(ctx, 7, "sess", sampleAdd())
	if err != nil {
		t.Fatalf("AddItemWithDesign() error = %v", err)
	}
	second, err := svc.AddItemWithDesign(ctx, 7, "sess", sampleAdd())
	if err != nil {
		t.Fatalf("AddItemWithDesign() error = %v", err)
	}
	if first.Key == second.Key {
		t.Errorf("line keys equal (%s), want distinct lines", first.Key)
	}
	if first.Redirect != "https://shop.example/cart" {
		t.Errorf("Redirect = %q, want cart url", first.Redirect)
	}

	lines, err := svc.Lines(ctx, "sess")
	if err != nil {
		t.Fatalf("Lines() error = %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("len(lines) = %d, want 2", len(lines))
	}
	if lines[0].Meta.UniqueKey == lines[1].Meta.UniqueKey {
		t.Errorf("unique_key values equal, want distinct")
	}
	for _, l := range lines {
		if l.Quantity != 1 {
			t.Errorf("Quantity = %d, want 1", l.Quantity)
		}
		if l.ProductID != 501 {
			t.Errorf("ProductID = %d, want container 501", l.ProductID)
		}
		if l.Meta.Currency != "AUD" {
			t.Errorf("Currency = %q, want AUD default", l.Meta.Currency)
		}
	}
}

func TestLineKey_IdenticalMetaMerges(t *testing.T) {
	meta := model.DesignMeta{PFItem: 1, VariantID: 4012, UniqueKey: "abc"}
	if LineKey(501, meta) != LineKey(501, meta) {
		t.Error("LineKey not stable for identical input")
	}
	other := meta
	other.UniqueKey = "abd"
	if LineKey(501, meta) == LineKey(501, other) {
		t.Error("LineKey ignores unique_key")
	}
}

func TestAdd_Errors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		userID  int64
		session string
		mutate  func(*Service)
		want    string
	}{
		{"guest", 0, "sess", nil, "auth_required"},
		{"no session", 7, "", nil, "bad_request"},
		{"no container", 7, "sess", func(s *Service) { s.cfg.ContainerProductID = 0 }, "config_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _, _ := newTestService(t)
			if tt.mutate != nil {
				tt.mutate(s)
			}
			_, err := s.AddItemWithDesign(ctx, tt.userID, tt.session, sampleAdd())
			if got := apiCode(err); got != tt.want {
				t.Errorf("code = %q, want %q (err = %v)", got, tt.want, err)
			}
		})
	}
}

func TestAddSavedDesign(t *testing.T) {
	svc, designs, _ := newTestService(t)
	ctx := context.Background()

	price := 20.0
	id, err := designs.Upsert(ctx, &design.Design{
		UserID:            7,
		ProductID:         71,
		DesignName:        "Saved",
		Status:            design.StatusSaved,
		ExternalProductID: "u7:p71",
		TemplateID:        9001,
		UnitPrice:         &price,
		VariantID:         4012,
	})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	if _, err := svc.AddSavedDesign(ctx, 7, "sess", id, ""); err != nil {
		t.Fatalf("AddSavedDesign() error = %v", err)
	}
	lines, _ := svc.Lines(ctx, "sess")
	if len(lines) != 1 {
		t.Fatalf("len(lines) = %d, want 1", len(lines))
	}
	meta := lines[0].Meta
	if meta.DesignID != id {
		t.Errorf("DesignID = %d, want %d", meta.DesignID, id)
	}
	// 20 * 1.2 + 1.5
	if meta.UnitPrice != 25.5 {
		t.Errorf("UnitPrice = %v, want 25.5", meta.UnitPrice)
	}

	_, err = svc.AddSavedDesign(ctx, 8, "sess", id, "")
	if apiCode(err) != "not_found" {
		t.Errorf("other user code = %q, want not_found", apiCode(err))
	}
}

func TestRestore_KeepsEveryMetaKey(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	req := sampleAdd()
	req.DesignCategory = "Apparel"
	if _, err := svc.AddItemWithDesign(ctx, 7, "sess", req); err != nil {
		t.Fatalf("AddItemWithDesign() error = %v", err)
	}

	c, err := svc.Restore(ctx, "sess")
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	got := c.Lines[0].Meta.MetaList()
	for _, key := range model.DesignMetaKeys {
		if key == "design_id" {
			continue
		}
		if got.Get(key) == "" {
			t.Errorf("restored meta missing %q", key)
		}
	}
}

func TestRemove(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	a, _ := svc.AddItemWithDesign(ctx, 7, "sess", sampleAdd())
	b, _ := svc.AddItemWithDesign(ctx, 7, "sess", sampleAdd())

	if err := svc.Remove(ctx, "sess", a.Key); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if err := svc.Remove(ctx, "sess", "missing"); err != nil {
		t.Fatalf("Remove(missing) error = %v", err)
	}
	lines, _ := svc.Lines(ctx, "sess")
	if len(lines) != 1 || lines[0].Key != b.Key {
		t.Errorf("lines = %+v, want only %s", lines, b.Key)
	}
}

func TestCheckout(t *testing.T) {
	svc, _, orders := newTestService(t)
	ctx := context.Background()

	var got *model.OrderRequest
	orders.CreateOrderFunc = func(_ context.Context, req *model.OrderRequest) (*model.Order, error) {
		got = req
		return &model.Order{ID: 3001, Status: "pending"}, nil
	}

	req := sampleAdd()
	if _, err := svc.AddItemWithDesign(ctx, 7, "sess", req); err != nil {
		t.Fatalf("AddItemWithDesign() error = %v", err)
	}

	order, err := svc.Checkout(ctx, 7, "sess", CheckoutRequest{
		Shipping: model.Address{FirstName: "Ada", Country: "AU"},
		Rate:     &ShippingChoice{ID: "printful_live:standard", Label: "Standard", Cost: 7.95, ServiceCode: "STANDARD"},
	})
	if err != nil {
		t.Fatalf("Checkout() error = %v", err)
	}
	if order.ID != 3001 {
		t.Errorf("order.ID = %d, want 3001", order.ID)
	}

	if len(got.Lines) != 1 {
		t.Fatalf("len(Lines) = %d, want 1", len(got.Lines))
	}
	line := got.Lines[0]
	if line.ProductID != 501 || line.Total != "24.50" {
		t.Errorf("line = %+v, want product 501 total 24.50", line)
	}
	if line.Meta.Int("variant_id") != 4012 {
		t.Errorf("variant_id meta = %d, want 4012", line.Meta.Int("variant_id"))
	}
	if len(got.ShippingLines) != 1 || got.ShippingLines[0].MethodID != ShippingMethodID {
		t.Errorf("ShippingLines = %+v, want one %s line", got.ShippingLines, ShippingMethodID)
	}
	if v := got.Meta.Get(model.MetaPrintfulShippingService); v != "STANDARD" {
		t.Errorf("shipping service meta = %q, want STANDARD", v)
	}

	lines, _ := svc.Lines(ctx, "sess")
	if len(lines) != 0 {
		t.Errorf("cart after checkout has %d lines, want 0", len(lines))
	}
}

func TestAddItemWithDesign_FrozenClockStillDistinct(t *testing.T) {
	svc, _, _ := newTestService(t)
	frozen := time.Unix(1700000000, 0)
	svc.now = func() time.Time { return frozen }
	ctx := context.Background()

	first, err := svc.AddItemWithDesign(ctx, 7, "sess", sampleAdd())
	if err != nil {
		t.Fatalf("AddItemWithDesign() error = %v", err)
	}
	second, err := svc.AddItemWithDesign(ctx, 7, "sess", sampleAdd())
	if err != nil {
		t.Fatalf("AddItemWithDesign() error = %v", err)
	}
	if first.Key == second.Key {
		t.Errorf("line keys equal (%s) under a frozen clock", first.Key)
	}
	lines, _ := svc.Lines(ctx, "sess")
	if len(lines) != 2 {
		t.Errorf("len(lines) = %d, want 2", len(lines))
	}
}

func TestBuildOrderRequest_ShippingServiceFallsBackToMethod(t *testing.T) {
	tests := []struct {
		name string
		code string
		want string
	}{
		{"service code", "EXPRESS", "EXPRESS"},
		{"no service code", "", ShippingMethodID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := CheckoutRequest{Rate: &ShippingChoice{ID: "printful_live:x", Label: "Rate", Cost: 5, ServiceCode: tt.code}}
			got := BuildOrderRequest(7, nil, req, "AUD")
			if v := got.Meta.Get(model.MetaPrintfulShippingService); v != tt.want {
				t.Errorf("shipping service meta = %q, want %q", v, tt.want)
			}
		})
	}

	if got := BuildOrderRequest(7, nil, CheckoutRequest{}, "AUD"); got.Meta.Get(model.MetaPrintfulShippingService) != "" {
		t.Error("no rate should leave shipping service unset")
	}
}

func TestCheckout_EmptyCart(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Checkout(context.Background(), 7, "sess", CheckoutRequest{})
	if apiCode(err) != "bad_request" {
		t.Errorf("code = %q, want bad_request", apiCode(err))
	}
}

func TestCheckout_FailureKeepsCart(t *testing.T) {
	svc, _, orders := newTestService(t)
	ctx := context.Background()
	orders.CreateOrderFunc = func(context.Context, *model.OrderRequest) (*model.Order, error) {
		return nil, model.NewUpstreamError("WooCommerce", errors.New("boom"))
	}
	_, _ = svc.AddItemWithDesign(ctx, 7, "sess", sampleAdd())

	if _, err := svc.Checkout(ctx, 7, "sess", CheckoutRequest{}); err == nil {
		t.Fatal("Checkout() error = nil, want upstream error")
	}
	lines, _ := svc.Lines(ctx, "sess")
	if len(lines) != 1 {
		t.Errorf("len(lines) = %d, want cart left unchanged", len(lines))
	}
}
