// Package cart keeps shopper carts of custom-design lines and freezes them into
// WooCommerce orders at checkout.
//
// Every design is sold through one configured "container" product; the design
// itself rides on the line as model.DesignMeta. Lines are keyed the way
// WooCommerce keys cart items (a hash over product and line data), so a line
// with the same metadata merges quantity and a fresh unique_key never merges.
package cart

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"printful-bridge/internal/cache"
	"printful-bridge/internal/design"
	"printful-bridge/internal/model"
	"printful-bridge/internal/pricing"
)

// OrderCreator creates the storefront order at checkout.
type OrderCreator interface {
	CreateOrder(ctx context.Context, req *model.OrderRequest) (*model.Order, error)
}

// DesignReader loads a saved design scoped to its owner.
type DesignReader interface {
	Get(ctx context.Context, id, userID int64) (*design.Design, error)
}

// Config holds cart settings.
type Config struct {
	ContainerProductID int64
	MarkupPct          float64
	MarkupFix          float64
	Currency           string
	CartURL            string
	LoginURL           string
}

// Line is one cart line.
type Line struct {
	Key       string           `json:"key"`
	ProductID int64            `json:"product_id"`
	Quantity  int              `json:"quantity"`
	Meta      model.DesignMeta `json:"meta"`
	AddedAt   time.Time        `json:"added_at"`
}

// Total is the line price before shipping.
func (l Line) Total() float64 {
	return model.RoundPrice(l.Meta.UnitPrice * float64(l.Quantity))
}

// Cart is a session's lines in insertion order.
type Cart struct {
	Lines []Line `json:"lines"`
}

// AddResult tells the page where to go after adding.
type AddResult struct {
	Key      string `json:"key"`
	Redirect string `json:"redirect"`
}

// Service manages carts in the cache, one entry per session.
type Service struct {
	cache   cache.Store
	designs DesignReader
	orders  OrderCreator
	cfg     Config
	logger  *slog.Logger
	now     func() time.Time

	// mu serializes read-modify-write of cart entries within this process.
	mu sync.Mutex
}

// NewService creates a cart service.
func NewService(store cache.Store, designs DesignReader, orders OrderCreator, logger *slog.Logger, cfg Config) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{cache: store, designs: designs, orders: orders, cfg: cfg, logger: logger, now: time.Now}
}

// AddRequest is a design fresh out of the designer, added straight to the cart.
type AddRequest struct {
	ProductID         int64   `json:"product_id"`
	VariantID         int64   `json:"variant_id"`
	TemplateID        int64   `json:"template_id"`
	ExternalProductID string  `json:"external_product_id"`
	DesignName        string  `json:"design_name"`
	MockupURL         string  `json:"mockup_url"`
	DesignCategory    string  `json:"design_category"`
	UnitPrice         float64 `json:"unit_price"`
	Currency          string  `json:"currency"`
}

func (s *Service) precheck(userID int64, sessionID string) error {
	if userID <= 0 {
		return model.NewAuthRequiredError("Please log in to save designs.", s.cfg.LoginURL)
	}
	if s.cfg.ContainerProductID <= 0 {
		return model.NewConfigError("Container product not configured")
	}
	if sessionID == "" {
		return model.NewBadRequestError("Missing cart session")
	}
	return nil
}

// AddItemWithDesign adds a designer result as one container line.
func (s *Service) AddItemWithDesign(ctx context.Context, userID int64, sessionID string, req AddRequest) (*AddResult, error) {
	if err := s.precheck(userID, sessionID); err != nil {
		return nil, err
	}

	meta := model.DesignMeta{
		PFItem:            1,
		DesignName:        orDefault(req.DesignName, design.DefaultName),
		ProductID:         req.ProductID,
		VariantID:         req.VariantID,
		TemplateID:        req.TemplateID,
		ExternalProductID: req.ExternalProductID,
		MockupURL:         req.MockupURL,
		DesignCategory:    req.DesignCategory,
		UnitPrice:         req.UnitPrice,
		Currency:          orDefault(req.Currency, s.cfg.Currency),
		UniqueKey:         s.uniqueKey(userID, req.TemplateID),
	}
	return s.add(ctx, sessionID, meta)
}

// AddSavedDesign adds one of the caller's saved designs at the marked-up price.
func (s *Service) AddSavedDesign(ctx context.Context, userID int64, sessionID string, designID int64, currency string) (*AddResult, error) {
	if err := s.precheck(userID, sessionID); err != nil {
		return nil, err
	}
	if designID <= 0 {
		return nil, model.NewBadRequestError("missing_design_id")
	}

	d, err := s.designs.Get(ctx, designID, userID)
	if errors.Is(err, design.ErrNotFound) {
		return nil, model.NewNotFoundError("design").WithMessage("design_not_found")
	}
	if err != nil {
		return nil, model.NewInternalError(err)
	}

	var unit float64
	if d.UnitPrice != nil {
		unit = *d.UnitPrice
	}
	meta := model.DesignMeta{
		PFItem:            1,
		DesignID:          d.ID,
		DesignName:        orDefault(d.DesignName, "Saved Design"),
		ProductID:         d.ProductID,
		VariantID:         d.VariantID,
		TemplateID:        d.TemplateID,
		ExternalProductID: d.ExternalProductID,
		MockupURL:         d.MockupURL,
		DesignCategory:    d.DesignCategory,
		UnitPrice:         pricing.ApplyMarkup(unit, s.cfg.MarkupPct, s.cfg.MarkupFix),
		Currency:          orDefault(currency, s.cfg.Currency),
		UniqueKey:         s.uniqueKey(userID, d.ID),
	}
	return s.add(ctx, sessionID, meta)
}

// uniqueKey is md5(user . ref . microtime . uuid), so two adds of the same design
// never share a line, even within one microsecond.
func (s *Service) uniqueKey(userID, ref int64) string {
	now := s.now()
	seed := strconv.FormatInt(userID, 10) + strconv.FormatInt(ref, 10) +
		strconv.FormatFloat(float64(now.UnixNano())/1e9, 'f', 6, 64) + uuid.NewString()
	sum := md5.Sum([]byte(seed))
	return hex.EncodeToString(sum[:])
}

func (s *Service) add(ctx context.Context, sessionID string, meta model.DesignMeta) (*AddResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, addFailed(err)
	}

	key := LineKey(s.cfg.ContainerProductID, meta)
	merged := false
	for i := range c.Lines {
		if c.Lines[i].Key == key {
			c.Lines[i].Quantity++
			merged = true
			break
		}
	}
	if !merged {
		c.Lines = append(c.Lines, Line{
			Key:       key,
			ProductID: s.cfg.ContainerProductID,
			Quantity:  1,
			Meta:      meta,
			AddedAt:   s.now(),
		})
	}

	if err := s.save(ctx, sessionID, c); err != nil {
		return nil, addFailed(err)
	}

	s.logger.InfoContext(ctx, "design added to cart",
		slog.String("key", key),
		slog.Int64("variant_id", meta.VariantID),
		slog.Int64("template_id", meta.TemplateID),
	)
	return &AddResult{Key: key, Redirect: s.cfg.CartURL}, nil
}

func addFailed(err error) error {
	return model.NewInternalError(err).WithMessage("add_to_cart_failed")
}

// LineKey hashes the product and the full line metadata, as WooCommerce's cart id does.
func LineKey(productID int64, meta model.DesignMeta) string {
	data, _ := json.Marshal(meta)
	sum := md5.Sum([]byte(fmt.Sprintf("%d_0_%s", productID, data)))
	return hex.EncodeToString(sum[:])
}

// Restore rehydrates a session's cart. Every metadata key comes back as stored.
func (s *Service) Restore(ctx context.Context, sessionID string) (*Cart, error) {
	if sessionID == "" {
		return &Cart{Lines: []Line{}}, nil
	}
	c, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, model.NewInternalError(err)
	}
	return c, nil
}

// Lines is Restore for callers that only want the lines.
func (s *Service) Lines(ctx context.Context, sessionID string) ([]Line, error) {
	c, err := s.Restore(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return c.Lines, nil
}

// Remove drops a line. Removing a missing key is not an error.
func (s *Service) Remove(ctx context.Context, sessionID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.load(ctx, sessionID)
	if err != nil {
		return model.NewInternalError(err)
	}
	kept := c.Lines[:0]
	for _, l := range c.Lines {
		if l.Key != key {
			kept = append(kept, l)
		}
	}
	c.Lines = kept
	if err := s.save(ctx, sessionID, c); err != nil {
		return model.NewInternalError(err)
	}
	return nil
}

func (s *Service) load(ctx context.Context, sessionID string) (*Cart, error) {
	c := &Cart{}
	if _, err := cache.GetJSON(ctx, s.cache, cache.CartPrefix+sessionID, c); err != nil {
		return nil, fmt.Errorf("cart: load: %w", err)
	}
	if c.Lines == nil {
		c.Lines = []Line{}
	}
	return c, nil
}

func (s *Service) save(ctx context.Context, sessionID string, c *Cart) error {
	if err := cache.SetJSON(ctx, s.cache, cache.CartPrefix+sessionID, c, cache.CartTTL); err != nil {
		return fmt.Errorf("cart: save: %w", err)
	}
	return nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
