package order

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"printful-bridge/internal/adapter"
	"printful-bridge/internal/model"
	"printful-bridge/internal/printful"
)

// Submitter creates Printful orders for paid storefront orders.
type Submitter struct {
	store     adapter.Adapter
	pf        PrintfulAPI
	confirmer *Confirmer
	slip      *printful.PackingSlip
	logger    *slog.Logger

	mu       sync.Mutex
	inflight map[int64]struct{}
}

// NewSubmitter creates a submitter. slip may be nil.
func NewSubmitter(store adapter.Adapter, pf PrintfulAPI, confirmer *Confirmer, slip *printful.PackingSlip, logger *slog.Logger) *Submitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Submitter{
		store:     store,
		pf:        pf,
		confirmer: confirmer,
		slip:      slip,
		logger:    logger,
		inflight:  make(map[int64]struct{}),
	}
}

// HandleStatusChange submits the order when status qualifies.
func (s *Submitter) HandleStatusChange(ctx context.Context, orderID int64, status string) Outcome {
	if !Qualifies(status) {
		return OutcomeIgnored
	}
	return s.Submit(ctx, orderID)
}

// Submit pushes one storefront order to Printful unless it was already pushed.
// It reloads the order so the idempotency check sees current metadata.
func (s *Submitter) Submit(ctx context.Context, orderID int64) Outcome {
	if !s.acquire(orderID) {
		return OutcomeInFlight
	}
	defer s.release(orderID)

	o, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		s.logger.WarnContext(ctx, "order load failed", slog.Int64("order_id", orderID), slog.Any("error", err))
		return OutcomeFailed
	}
	if o.Meta.Get(model.MetaPrintfulOrderID) != "" {
		return OutcomeAlreadySubmitted
	}

	items := BuildItems(o)
	if len(items) == 0 {
		s.note(ctx, orderID, "Printful: No PF items found (missing variant_id); not submitted.")
		return OutcomeNoItems
	}

	req := BuildRequest(o, items, s.slip)
	s.logger.DebugContext(ctx, "submitting printful order",
		slog.Int64("order_id", orderID),
		slog.Int("items", len(items)),
		slog.String("shipping", req.Shipping),
	)

	pfOrder, err := s.pf.CreateOrder(ctx, req)
	if err != nil {
		s.logger.WarnContext(ctx, "printful create order failed", slog.Int64("order_id", orderID), slog.Any("error", err))
		s.note(ctx, orderID, "Printful: create error: "+err.Error())
		return OutcomeFailed
	}
	if pfOrder == nil {
		s.note(ctx, orderID, "Printful: create failed (empty response). See debug log.")
		return OutcomeFailed
	}
	if pfOrder.ID == 0 {
		s.logger.WarnContext(ctx, "printful create order missing id", slog.Int64("order_id", orderID))
		s.note(ctx, orderID, "Printful: create returned without id. See log.")
		return OutcomeFailed
	}

	meta := model.MetaList{{Key: model.MetaPrintfulOrderID, Value: strconv.FormatInt(pfOrder.ID, 10)}}
	if pfOrder.Status != "" {
		meta = append(meta, model.MetaData{Key: model.MetaPrintfulStatus, Value: pfOrder.Status})
	}
	if err := s.store.UpdateOrderMeta(ctx, orderID, meta); err != nil {
		s.logger.ErrorContext(ctx, "printful order id not recorded",
			slog.Int64("order_id", orderID),
			slog.Int64("printful_order_id", pfOrder.ID),
			slog.Any("error", err),
		)
	}
	status := pfOrder.Status
	if status == "" {
		status = "unknown"
	}
	s.note(ctx, orderID, fmt.Sprintf("Printful: order created (PF #%d, status: %s)", pfOrder.ID, status))

	if pfOrder.IsDraft() && s.confirmer != nil {
		if err := s.confirmer.Schedule(ctx, pfOrder.ID, printful.FlowV1, 0); err != nil {
			s.logger.WarnContext(ctx, "confirmation not scheduled", slog.Int64("printful_order_id", pfOrder.ID), slog.Any("error", err))
		}
	}

	s.logger.InfoContext(ctx, "printful order created",
		slog.Int64("order_id", orderID),
		slog.Int64("printful_order_id", pfOrder.ID),
		slog.String("status", pfOrder.Status),
	)
	return OutcomeSubmitted
}

func (s *Submitter) note(ctx context.Context, orderID int64, note string) {
	if err := s.store.AddOrderNote(ctx, orderID, note); err != nil {
		s.logger.WarnContext(ctx, "order note failed", slog.Int64("order_id", orderID), slog.Any("error", err))
	}
}

func (s *Submitter) acquire(orderID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[orderID]; busy {
		return false
	}
	s.inflight[orderID] = struct{}{}
	return true
}

func (s *Submitter) release(orderID int64) {
	s.mu.Lock()
	delete(s.inflight, orderID)
	s.mu.Unlock()
}
