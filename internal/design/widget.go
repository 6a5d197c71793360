package design

import (
	"context"
	"log/slog"
	"sync"
)

// Widget events as the embedded designer reports them.
type (
	// TemplateSaved fires when the designer has persisted a template on Printful's side.
	TemplateSaved struct {
		TemplateID        int64
		ExternalProductID string
		DesignName        string
	}
	// PricingUpdate carries the live price of the current selection.
	PricingUpdate struct {
		UnitPrice float64
		Currency  string
		VariantID int64
	}
	// DesignStatusUpdate reports the designer's readiness (for example "ready", "loading").
	DesignStatusUpdate struct {
		Status string
	}
	// WidgetError is an error raised inside the designer.
	WidgetError struct {
		Message string
	}
)

// WidgetEvents is the designer's callback surface, one method per event.
type WidgetEvents interface {
	OnTemplateSaved(ctx context.Context, ev TemplateSaved) (*SaveOutcome, error)
	OnPricingUpdate(ctx context.Context, ev PricingUpdate)
	OnDesignStatusUpdate(ctx context.Context, ev DesignStatusUpdate)
	OnError(ctx context.Context, ev WidgetError)
}

// SaveOutcome is the result of a template-saved event. Exactly one of Saved and Guest
// is set; both are nil when the event was ignored.
type SaveOutcome struct {
	Saved *SaveResult  `json:"saved,omitempty"`
	Guest *GuestResult `json:"guest,omitempty"`
}

// Saver is what the adapter turns a user-initiated save into.
type Saver interface {
	SaveTemplate(ctx context.Context, userID int64, req SaveRequest) (*SaveResult, error)
	SaveGuest(ctx context.Context, req SaveRequest) (*GuestResult, error)
}

// WidgetSession is the context a designer page was opened with.
type WidgetSession struct {
	UserID         int64
	ProductID      int64
	ReplaceID      int64
	DesignCategory string
}

// WidgetAdapter turns designer events into design commands for one page session.
//
// The designer fires TemplateSaved on its own when it loads an existing template;
// that event must not save anything. Saves only go through after ArmSave, which
// the page calls when the shopper clicks the save button, and each arming is
// consumed by one save.
type WidgetAdapter struct {
	svc     Saver
	session WidgetSession
	logger  *slog.Logger

	mu      sync.Mutex
	armed   bool
	pricing PricingUpdate
	status  string
}

var _ WidgetEvents = (*WidgetAdapter)(nil)

// NewWidgetAdapter creates an adapter for one designer page.
func NewWidgetAdapter(svc Saver, session WidgetSession, logger *slog.Logger) *WidgetAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &WidgetAdapter{svc: svc, session: session, logger: logger}
}

// ArmSave marks the next TemplateSaved as user-initiated.
func (a *WidgetAdapter) ArmSave() {
	a.mu.Lock()
	a.armed = true
	a.mu.Unlock()
}

func (a *WidgetAdapter) OnTemplateSaved(ctx context.Context, ev TemplateSaved) (*SaveOutcome, error) {
	a.mu.Lock()
	armed := a.armed
	a.armed = false
	pricing := a.pricing
	a.mu.Unlock()

	if !armed {
		a.logger.DebugContext(ctx, "template saved without save click, ignored",
			slog.Int64("template_id", ev.TemplateID),
		)
		return &SaveOutcome{}, nil
	}

	req := SaveRequest{
		ProductID:         a.session.ProductID,
		TemplateID:        ev.TemplateID,
		ExternalProductID: ev.ExternalProductID,
		DesignName:        ev.DesignName,
		Currency:          pricing.Currency,
		VariantID:         pricing.VariantID,
		DesignCategory:    a.session.DesignCategory,
		ReplaceID:         a.session.ReplaceID,
	}
	if pricing.UnitPrice > 0 {
		price := pricing.UnitPrice
		req.UnitPrice = &price
	}

	if a.session.UserID > 0 {
		res, err := a.svc.SaveTemplate(ctx, a.session.UserID, req)
		if err != nil {
			return nil, err
		}
		return &SaveOutcome{Saved: res}, nil
	}

	res, err := a.svc.SaveGuest(ctx, req)
	if err != nil {
		return nil, err
	}
	return &SaveOutcome{Guest: res}, nil
}

func (a *WidgetAdapter) OnPricingUpdate(_ context.Context, ev PricingUpdate) {
	a.mu.Lock()
	a.pricing = ev
	a.mu.Unlock()
}

func (a *WidgetAdapter) OnDesignStatusUpdate(ctx context.Context, ev DesignStatusUpdate) {
	a.mu.Lock()
	a.status = ev.Status
	a.mu.Unlock()
	a.logger.DebugContext(ctx, "designer status", slog.String("status", ev.Status))
}

func (a *WidgetAdapter) OnError(ctx context.Context, ev WidgetError) {
	a.logger.WarnContext(ctx, "designer error",
		slog.Int64("user_id", a.session.UserID),
		slog.String("message", ev.Message),
	)
}

// Status returns the last status the designer reported.
func (a *WidgetAdapter) Status() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}
