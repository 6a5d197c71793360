package handler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"printful-bridge/internal/design"
)

// widgetTTL bounds how long an open designer page keeps its adapter.
const widgetTTL = 6 * time.Hour

type widgetEntry struct {
	adapter *design.WidgetAdapter
	userID  int64
	created time.Time
}

// WidgetSessions keeps one WidgetAdapter per issued designer nonce, so the
// armed-save state survives between the page's event posts.
type WidgetSessions struct {
	saver design.Saver
	now   func() time.Time

	mu       sync.Mutex
	sessions map[string]*widgetEntry
}

// NewWidgetSessions creates an empty registry.
func NewWidgetSessions(saver design.Saver) *WidgetSessions {
	return &WidgetSessions{saver: saver, now: time.Now, sessions: make(map[string]*widgetEntry)}
}

// Open registers the adapter for nonce, dropping expired pages.
func (ws *WidgetSessions) Open(nonce string, session design.WidgetSession, logger *slog.Logger) {
	now := ws.now()
	ws.mu.Lock()
	defer ws.mu.Unlock()
	for k, e := range ws.sessions {
		if now.Sub(e.created) > widgetTTL {
			delete(ws.sessions, k)
		}
	}
	ws.sessions[nonce] = &widgetEntry{
		adapter: design.NewWidgetAdapter(ws.saver, session, logger),
		userID:  session.UserID,
		created: now,
	}
}

// Lookup returns the adapter for nonce when userID opened it.
func (ws *WidgetSessions) Lookup(nonce string, userID int64) (*design.WidgetAdapter, bool) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	e, ok := ws.sessions[nonce]
	if !ok || e.userID != userID || ws.now().Sub(e.created) > widgetTTL {
		return nil, false
	}
	return e.adapter, true
}

// Close forgets nonce.
func (ws *WidgetSessions) Close(nonce string) {
	ws.mu.Lock()
	delete(ws.sessions, nonce)
	ws.mu.Unlock()
}

// widgetEvent is one designer callback relayed by the page.
type widgetEvent struct {
	Event             string  `json:"event" validate:"required,oneof=save_clicked template_saved pricing_update design_status_update error"`
	TemplateID        int64   `json:"template_id"`
	ExternalProductID string  `json:"external_product_id"`
	DesignName        string  `json:"design_name"`
	UnitPrice         float64 `json:"unit_price"`
	Currency          string  `json:"currency"`
	VariantID         int64   `json:"variant_id"`
	Status            string  `json:"status"`
	Message           string  `json:"message"`
}

// dispatch forwards ev to the adapter. Only template_saved produces an outcome.
func dispatch(ctx context.Context, a *design.WidgetAdapter, ev widgetEvent) (*design.SaveOutcome, error) {
	switch ev.Event {
	case "save_clicked":
		a.ArmSave()
	case "template_saved":
		return a.OnTemplateSaved(ctx, design.TemplateSaved{
			TemplateID:        ev.TemplateID,
			ExternalProductID: ev.ExternalProductID,
			DesignName:        ev.DesignName,
		})
	case "pricing_update":
		a.OnPricingUpdate(ctx, design.PricingUpdate{UnitPrice: ev.UnitPrice, Currency: ev.Currency, VariantID: ev.VariantID})
	case "design_status_update":
		a.OnDesignStatusUpdate(ctx, design.DesignStatusUpdate{Status: ev.Status})
	case "error":
		a.OnError(ctx, design.WidgetError{Message: ev.Message})
	}
	return nil, nil
}
