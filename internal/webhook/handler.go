package webhook

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"printful-bridge/internal/printful"
)

// Confirmer confirms a draft order immediately.
type Confirmer interface {
	ConfirmNow(ctx context.Context, remoteOrderID int64) bool
}

// KeySource supplies the stored signing keys.
type KeySource interface {
	Keys(ctx context.Context) (Keys, error)
}

// Event is the part of a v2 delivery the bridge reads.
type Event struct {
	Type string `json:"type"`
	Data struct {
		Order *EventOrder `json:"order"`
	} `json:"data"`
}

// EventOrder is the order inside an event.
type EventOrder struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
	Costs  struct {
		CalculationStatus string `json:"calculation_status"`
	} `json:"costs"`
}

// Response is the JSON body returned to Printful.
type Response struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

// Handler processes Printful deliveries.
type Handler struct {
	keys      KeySource
	confirmer Confirmer
	logger    *slog.Logger
}

// NewHandler creates a delivery handler.
func NewHandler(keys KeySource, confirmer Confirmer, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{keys: keys, confirmer: confirmer, logger: logger}
}

// Handle verifies and processes one delivery, returning the HTTP status and
// body to answer with. Anything past verification answers 200.
func (h *Handler) Handle(ctx context.Context, signature, publicKey string, body []byte) (int, Response) {
	if signature != "" && publicKey != "" {
		keys, err := h.keys.Keys(ctx)
		if err != nil {
			h.logger.WarnContext(ctx, "webhook keys unavailable", slog.Any("error", err))
		}
		if err := Verify(signature, publicKey, body, keys); err != nil {
			h.logger.WarnContext(ctx, "webhook rejected", slog.Any("error", err))
			return StatusFor(err), Response{OK: false, Reason: reason(err)}
		}
	}

	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		h.logger.DebugContext(ctx, "webhook body not JSON", slog.Any("error", err))
		return 200, Response{OK: true}
	}

	if o := ev.Data.Order; o != nil && ShouldConfirm(ev.Type, o) {
		h.confirmer.ConfirmNow(ctx, o.ID)
	}
	return 200, Response{OK: true}
}

// ShouldConfirm reports whether an event shows a draft whose costs are done.
func ShouldConfirm(eventType string, o *EventOrder) bool {
	switch eventType {
	case printful.EventOrderCreated, printful.EventOrderUpdated, printful.EventOrderFailed:
	default:
		return false
	}
	if o.ID <= 0 || !strings.EqualFold(o.Status, "draft") {
		return false
	}
	return !strings.EqualFold(o.Costs.CalculationStatus, "calculating")
}

func reason(err error) string {
	switch err {
	case ErrKeysMismatch:
		return "Webhook keys not set or mismatch"
	case ErrBadSecret:
		return "Bad secret hex"
	default:
		return "Bad signature"
	}
}
