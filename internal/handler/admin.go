package handler

import (
	"log/slog"
	"net/http"
	"sort"

	"printful-bridge/internal/model"
	"printful-bridge/internal/order"
)

// handleClearCache drops cached catalog pages, prices and categories.
// POST /admin/cache/clear
func (h *Handler) handleClearCache(w http.ResponseWriter, r *http.Request) {
	if h.deps.Catalog == nil {
		h.writeError(w, r, unavailable("catalog"))
		return
	}
	n, err := h.deps.Catalog.ClearCache(r.Context())
	if err != nil {
		h.writeError(w, r, model.NewInternalError(err))
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]int{"cleared": n})
}

// handleSubscribe (re)registers the Printful webhook and stores its keys.
// POST /admin/webhooks
func (h *Handler) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	if h.deps.Subscriptions == nil {
		h.writeError(w, r, unavailable("webhook subscriptions"))
		return
	}
	st, err := h.deps.Subscriptions.Subscribe(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.logger.InfoContext(r.Context(), "printful webhook subscribed", slog.String("url", st.DefaultURL))
	h.writeJSON(w, http.StatusOK, st)
}

// handleWebhookStatus reports stored keys (masked) and the remote registration.
// GET /admin/webhooks
func (h *Handler) handleWebhookStatus(w http.ResponseWriter, r *http.Request) {
	if h.deps.Subscriptions == nil {
		h.writeError(w, r, unavailable("webhook subscriptions"))
		return
	}
	st, err := h.deps.Subscriptions.Status(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, st)
}

// handleClearWebhookKeys forgets the stored signing keys.
// DELETE /admin/webhooks/keys
func (h *Handler) handleClearWebhookKeys(w http.ResponseWriter, r *http.Request) {
	if h.deps.Subscriptions == nil {
		h.writeError(w, r, unavailable("webhook subscriptions"))
		return
	}
	if err := h.deps.Subscriptions.Clear(r.Context()); err != nil {
		h.writeError(w, r, model.NewInternalError(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type confirmationsResponse struct {
	Jobs []order.Job `json:"jobs"`
}

// handleConfirmations lists pending confirmation jobs, soonest first.
// GET /admin/confirmations
func (h *Handler) handleConfirmations(w http.ResponseWriter, r *http.Request) {
	if h.deps.Jobs == nil {
		h.writeError(w, r, unavailable("confirmation queue"))
		return
	}
	jobs, err := h.deps.Jobs.List(r.Context())
	if err != nil {
		h.writeError(w, r, model.NewInternalError(err))
		return
	}
	if jobs == nil {
		jobs = []order.Job{}
	}
	sort.SliceStable(jobs, func(i, j int) bool { return jobs[i].NotBefore.Before(jobs[j].NotBefore) })
	h.writeJSON(w, http.StatusOK, confirmationsResponse{Jobs: jobs})
}
