package design

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"printful-bridge/internal/cache"
	"printful-bridge/internal/model"
	"printful-bridge/internal/printful"
)

// TemplateSource is the part of the Printful client designs depend on.
type TemplateSource interface {
	ProductTemplate(ctx context.Context, templateID int64) (*printful.ProductTemplate, error)
	EmbeddedDesignerNonce(ctx context.Context, nr printful.NonceRequest) (string, error)
}

// Config holds the storefront URLs designs redirect to.
type Config struct {
	LoginURL     string
	MyDesignsURL string
}

// Service runs design saves, guest drafts and claims.
type Service struct {
	store    Store
	drafts   cache.Store
	pf       TemplateSource
	logger   *slog.Logger
	cfg      Config
	now      func() time.Time
	newToken func() string
}

// NewService creates a design service.
func NewService(store Store, drafts cache.Store, pf TemplateSource, logger *slog.Logger, cfg Config) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    store,
		drafts:   drafts,
		pf:       pf,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
		newToken: func() string { return uuid.NewString() },
	}
}

// SaveRequest carries one save from the designer page.
type SaveRequest struct {
	ProductID         int64    `json:"product_id"`
	TemplateID        int64    `json:"template_id"`
	ExternalProductID string   `json:"external_product_id"`
	DesignName        string   `json:"design_name"`
	UnitPrice         *float64 `json:"unit_price,omitempty"`
	Currency          string   `json:"currency,omitempty"`
	VariantID         int64    `json:"variant_id,omitempty"`
	DesignCategory    string   `json:"design_category,omitempty"`
	// ReplaceID overwrites that row instead of the (user, external id) pair when the
	// caller owns it.
	ReplaceID int64 `json:"replace_id,omitempty"`
	// DesignData is the legacy free-form payload of manual saves.
	DesignData string `json:"design_data,omitempty"`
}

// SaveResult is returned by authenticated saves.
type SaveResult struct {
	ID         int64  `json:"id"`
	TemplateID int64  `json:"template_id,omitempty"`
	Redirect   string `json:"redirect,omitempty"`
	Message    string `json:"message,omitempty"`
}

func (s *Service) authRequired(msg string) error {
	return model.NewAuthRequiredError(msg, s.cfg.LoginURL)
}

// SaveTemplate stores a design the embedded designer saved, as status "saved".
func (s *Service) SaveTemplate(ctx context.Context, userID int64, req SaveRequest) (*SaveResult, error) {
	if userID <= 0 {
		return nil, s.authRequired("Please log in to save designs!")
	}
	if req.TemplateID <= 0 || req.ExternalProductID == "" {
		return nil, model.NewBadRequestError("Missing template_id or external_product_id")
	}

	d := s.fromRequest(ctx, userID, req, StatusSaved)

	if req.ReplaceID > 0 {
		err := s.store.Replace(ctx, req.ReplaceID, d)
		switch {
		case err == nil:
			s.logger.InfoContext(ctx, "design replaced",
				slog.Int64("user_id", userID),
				slog.Int64("design_id", req.ReplaceID),
			)
			return &SaveResult{ID: req.ReplaceID, TemplateID: req.TemplateID, Redirect: s.cfg.MyDesignsURL}, nil
		case errors.Is(err, ErrNotFound):
			// Not the caller's row: fall through to the upsert.
		case errors.Is(err, ErrDuplicate):
			return nil, model.NewBadRequestError("Another saved design already uses this external_product_id")
		default:
			return nil, model.NewInternalError(err)
		}
	}

	id, err := s.store.Upsert(ctx, d)
	if err != nil {
		return nil, model.NewInternalError(err)
	}
	s.logger.InfoContext(ctx, "design saved",
		slog.Int64("user_id", userID),
		slog.Int64("design_id", id),
		slog.String("external_product_id", req.ExternalProductID),
	)
	return &SaveResult{ID: id, TemplateID: req.TemplateID, Redirect: s.cfg.MyDesignsURL}, nil
}

// SaveDraft is the manual save button: a draft upsert when the designer produced a
// template, otherwise a legacy row holding DesignData.
func (s *Service) SaveDraft(ctx context.Context, userID int64, req SaveRequest) (*SaveResult, error) {
	if userID <= 0 {
		return nil, s.authRequired("Please log in to save designs.")
	}

	if req.TemplateID > 0 && req.ExternalProductID != "" {
		id, err := s.store.Upsert(ctx, s.fromRequest(ctx, userID, req, StatusDraft))
		if err != nil {
			return nil, model.NewInternalError(err)
		}
		return &SaveResult{ID: id, TemplateID: req.TemplateID, Message: "Saved (EDM)"}, nil
	}

	if req.DesignData == "" {
		return nil, model.NewBadRequestError("Missing template_id/external_product_id and no legacy design_data provided")
	}

	id, err := s.store.Insert(ctx, &Design{
		UserID:     userID,
		ProductID:  req.ProductID,
		DesignData: req.DesignData,
		DesignName: req.DesignName,
		Status:     StatusDraft,
	})
	if err != nil {
		return nil, model.NewInternalError(err)
	}
	return &SaveResult{ID: id, Message: "Design saved as draft (legacy)"}, nil
}

func (s *Service) fromRequest(ctx context.Context, userID int64, req SaveRequest, status Status) *Design {
	return &Design{
		UserID:            userID,
		ProductID:         req.ProductID,
		DesignName:        req.DesignName,
		Status:            status,
		ExternalProductID: req.ExternalProductID,
		TemplateID:        req.TemplateID,
		MockupURL:         s.mockupURL(ctx, req.TemplateID),
		UnitPrice:         req.UnitPrice,
		Currency:          req.Currency,
		VariantID:         req.VariantID,
		DesignCategory:    req.DesignCategory,
	}
}

// mockupURL looks up the template's rendered mockup. Empty when the template has
// none yet or the lookup failed; stores keep an existing URL in that case.
func (s *Service) mockupURL(ctx context.Context, templateID int64) string {
	if templateID <= 0 {
		return ""
	}
	tpl, err := s.pf.ProductTemplate(ctx, templateID)
	if err != nil {
		s.logger.WarnContext(ctx, "template lookup failed",
			slog.Int64("template_id", templateID),
			slog.Any("error", err),
		)
		return ""
	}
	return tpl.MockupFileURL
}

// =============================================================================
// GUEST DRAFTS
// =============================================================================
//
// A guest who saves is not logged in, so nothing can be written to designs yet.
// The draft is parked in the cache under a random token (6h), the token goes to a
// cookie and into the login redirect, and after login the page posts the token
// to Claim. Claim takes the draft atomically, so of two concurrent claims only one
// sees it and the other gets not_found.
// =============================================================================

// DraftCookie names the cookie carrying a guest draft token.
const DraftCookie = "pf_draft"

// GuestDraft is a design parked for a guest.
type GuestDraft struct {
	ProductID         int64    `json:"product_id"`
	DesignName        string   `json:"design_name"`
	Status            Status   `json:"status"`
	ExternalProductID string   `json:"external_product_id"`
	TemplateID        int64    `json:"template_id"`
	MockupURL         string   `json:"mockup_url"`
	UnitPrice         *float64 `json:"unit_price"`
	Currency          string   `json:"currency,omitempty"`
	VariantID         int64    `json:"variant_id,omitempty"`
	DesignCategory    string   `json:"design_category,omitempty"`
	Created           int64    `json:"created"`
}

// GuestResult tells the page where to send the guest.
type GuestResult struct {
	Token    string        `json:"token"`
	Redirect string        `json:"redirect"`
	Message  string        `json:"message"`
	TTL      time.Duration `json:"-"`
}

// SaveGuest parks a guest's design and returns the login redirect carrying the token.
func (s *Service) SaveGuest(ctx context.Context, req SaveRequest) (*GuestResult, error) {
	if req.TemplateID <= 0 || req.ExternalProductID == "" {
		return nil, model.NewBadRequestError("Missing template data.")
	}

	draft := GuestDraft{
		ProductID:         req.ProductID,
		DesignName:        orDefaultName(req.DesignName),
		Status:            StatusSaved,
		ExternalProductID: req.ExternalProductID,
		TemplateID:        req.TemplateID,
		MockupURL:         s.mockupURL(ctx, req.TemplateID),
		UnitPrice:         req.UnitPrice,
		Currency:          req.Currency,
		VariantID:         req.VariantID,
		DesignCategory:    req.DesignCategory,
		Created:           s.now().Unix(),
	}

	token := s.newToken()
	if err := cache.SetJSON(ctx, s.drafts, cache.GuestDraftPrefix+token, draft, cache.GuestDraftTTL); err != nil {
		return nil, model.NewInternalError(err)
	}

	s.logger.InfoContext(ctx, "guest draft parked", slog.String("external_product_id", req.ExternalProductID))
	return &GuestResult{
		Token:    token,
		Redirect: withQuery(s.cfg.LoginURL, "pf_draft", token),
		Message:  "Draft saved temporarily. Please log in to continue.",
		TTL:      cache.GuestDraftTTL,
	}, nil
}

// ClaimResult points the shopper at their designs.
type ClaimResult struct {
	RowID    int64  `json:"row_id"`
	Redirect string `json:"redirect"`
	Message  string `json:"message"`
}

// Claim converts a guest draft into a saved design of userID. The token is void
// afterwards: a second claim fails with not_found.
func (s *Service) Claim(ctx context.Context, userID int64, token string) (*ClaimResult, error) {
	if userID <= 0 {
		return nil, s.authRequired("Please log in.")
	}
	if token == "" {
		return nil, model.NewBadRequestError("Missing token.")
	}

	key := cache.GuestDraftPrefix + token
	var draft GuestDraft
	found, err := cache.TakeJSON(ctx, s.drafts, key, &draft)
	if err != nil {
		return nil, model.NewInternalError(err)
	}
	if !found || draft.TemplateID <= 0 || draft.ExternalProductID == "" {
		return nil, model.NewNotFoundError("draft").WithMessage("Draft expired or already claimed.")
	}

	id, err := s.store.Upsert(ctx, &Design{
		UserID:            userID,
		ProductID:         draft.ProductID,
		DesignName:        draft.DesignName,
		Status:            StatusSaved,
		ExternalProductID: draft.ExternalProductID,
		TemplateID:        draft.TemplateID,
		MockupURL:         draft.MockupURL,
		UnitPrice:         draft.UnitPrice,
		Currency:          draft.Currency,
		VariantID:         draft.VariantID,
		DesignCategory:    draft.DesignCategory,
	})
	if err != nil {
		s.restoreDraft(ctx, key, draft)
		return nil, model.NewInternalError(err)
	}

	s.logger.InfoContext(ctx, "guest draft claimed",
		slog.Int64("user_id", userID),
		slog.Int64("design_id", id),
	)
	return &ClaimResult{
		RowID:    id,
		Redirect: s.cfg.MyDesignsURL,
		Message:  "Your draft has been saved to My Designs.",
	}, nil
}

// restoreDraft puts a taken draft back for its remaining lifetime so a failed
// write does not lose it.
func (s *Service) restoreDraft(ctx context.Context, key string, draft GuestDraft) {
	remaining := cache.GuestDraftTTL - s.now().Sub(time.Unix(draft.Created, 0))
	if remaining <= 0 {
		return
	}
	if err := cache.SetJSON(ctx, s.drafts, key, draft, remaining); err != nil {
		s.logger.ErrorContext(ctx, "guest draft restore failed", slog.Any("error", err))
	}
}

// =============================================================================
// READS
// =============================================================================

// Get returns one of the caller's designs.
func (s *Service) Get(ctx context.Context, userID, id int64) (*Design, error) {
	if userID <= 0 {
		return nil, s.authRequired("Please log in to view designs.")
	}
	d, err := s.store.Get(ctx, id, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, model.NewNotFoundError("design")
	}
	if err != nil {
		return nil, model.NewInternalError(err)
	}
	return d, nil
}

// List returns the caller's designs, newest first. Rows whose mockup was still
// rendering at save time get a fresh lookup, persisted when found.
func (s *Service) List(ctx context.Context, userID int64) ([]Design, error) {
	if userID <= 0 {
		return nil, s.authRequired("Please log in to view designs.")
	}
	designs, err := s.store.List(ctx, userID)
	if err != nil {
		return nil, model.NewInternalError(err)
	}

	for i := range designs {
		d := &designs[i]
		if d.TemplateID <= 0 || d.MockupURL != "" {
			continue
		}
		if url := s.mockupURL(ctx, d.TemplateID); url != "" {
			d.MockupURL = url
			if err := s.store.SetMockup(ctx, d.ID, userID, url); err != nil {
				s.logger.WarnContext(ctx, "mockup persist failed", slog.Int64("design_id", d.ID), slog.Any("error", err))
			}
		}
	}
	return designs, nil
}

// Delete removes one of the caller's designs and reports how many rows went.
func (s *Service) Delete(ctx context.Context, userID, id int64) (int64, error) {
	if userID <= 0 {
		return 0, s.authRequired("Please log in to save designs.")
	}
	if id <= 0 {
		return 0, model.NewBadRequestError("Missing design_id")
	}
	n, err := s.store.Delete(ctx, id, userID)
	if err != nil {
		return 0, model.NewInternalError(err)
	}
	return n, nil
}

// =============================================================================
// EDITOR SESSIONS
// =============================================================================

// EditorRequest opens the embedded designer, either fresh for a catalog product or
// re-opened on a saved design.
type EditorRequest struct {
	ProductID         int64  `json:"product_id"`
	ExternalProductID string `json:"external_product_id"`
	DesignID          int64  `json:"design_id"`
}

// EditorSession is what the designer page needs to initialize the widget.
// A non-zero TemplateID means "edit this template", not a fresh product.
type EditorSession struct {
	Nonce             string `json:"nonce"`
	ProductID         int64  `json:"product_id"`
	ExternalProductID string `json:"external_product_id"`
	DesignID          int64  `json:"design_id,omitempty"`
	TemplateID        int64  `json:"template_id,omitempty"`
	VariantID         int64  `json:"variant_id,omitempty"`
	DesignName        string `json:"design_name,omitempty"`
}

// EditorNonce issues a designer nonce. Re-opening requires the caller to own the
// design; a fresh session without an external id gets a generated one.
func (s *Service) EditorNonce(ctx context.Context, userID int64, req EditorRequest) (*EditorSession, error) {
	session := &EditorSession{ProductID: req.ProductID, ExternalProductID: req.ExternalProductID}

	if req.DesignID > 0 {
		d, err := s.store.Get(ctx, req.DesignID, userID)
		if userID <= 0 || errors.Is(err, ErrNotFound) {
			return nil, model.NewNotFoundError("design").WithMessage("Design not found or you do not have access.")
		}
		if err != nil {
			return nil, model.NewInternalError(err)
		}
		session.DesignID = d.ID
		session.TemplateID = d.TemplateID
		session.VariantID = d.VariantID
		session.DesignName = d.DesignName
		session.ExternalProductID = d.ExternalProductID
		if session.ProductID == 0 {
			session.ProductID = d.ProductID
		}
	}

	if session.ProductID == 0 && session.ExternalProductID == "" {
		return nil, model.NewBadRequestError("Product ID or External Product ID is required")
	}
	if session.ExternalProductID == "" {
		session.ExternalProductID = fmt.Sprintf("u%d:p%d:ts:%d", max(userID, 0), session.ProductID, s.now().Unix())
	}

	nr := printful.NonceRequest{ExternalProductID: session.ExternalProductID}
	if userID > 0 {
		nr.ExternalCustomerID = strconv.FormatInt(userID, 10)
	}
	nonce, err := s.pf.EmbeddedDesignerNonce(ctx, nr)
	if err != nil {
		s.logger.WarnContext(ctx, "designer nonce failed",
			slog.String("external_product_id", session.ExternalProductID),
			slog.Any("error", err),
		)
		return nil, model.NewUpstreamError("Printful designer", err)
	}
	session.Nonce = nonce
	return session, nil
}

func withQuery(base, key, value string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}
