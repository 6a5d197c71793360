package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"printful-bridge/internal/design"
	"printful-bridge/internal/model"
)

type editorNonceRequest struct {
	design.EditorRequest
	DesignCategory string `json:"design_category"`
}

// handleEditorNonce opens the embedded designer and registers its event session.
// POST /designs/editor-nonce
func (h *Handler) handleEditorNonce(w http.ResponseWriter, r *http.Request) {
	if h.deps.Designs == nil {
		h.writeError(w, r, unavailable("designs"))
		return
	}
	var req editorNonceRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	id := identity(r)
	session, err := h.deps.Designs.EditorNonce(r.Context(), id.UserID, req.EditorRequest)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.deps.Widgets.Open(session.Nonce, design.WidgetSession{
		UserID:         max(id.UserID, 0),
		ProductID:      session.ProductID,
		ReplaceID:      session.DesignID,
		DesignCategory: req.DesignCategory,
	}, h.logger)

	h.writeJSON(w, http.StatusOK, session)
}

// handleWidgetEvent relays one designer callback.
// POST /designs/editor/{nonce}/events
func (h *Handler) handleWidgetEvent(w http.ResponseWriter, r *http.Request) {
	if h.deps.Widgets == nil {
		h.writeError(w, r, unavailable("designs"))
		return
	}
	var ev widgetEvent
	if err := h.decodeJSON(w, r, &ev); err != nil {
		h.writeError(w, r, err)
		return
	}

	nonce := r.PathValue("nonce")
	adapter, ok := h.deps.Widgets.Lookup(nonce, max(identity(r).UserID, 0))
	if !ok {
		h.writeError(w, r, model.NewNotFoundError("designer session"))
		return
	}

	outcome, err := dispatch(r.Context(), adapter, ev)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if outcome == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": adapter.Status()})
		return
	}
	if outcome.Guest != nil {
		h.setDraftCookie(w, outcome.Guest)
	}
	h.writeJSON(w, http.StatusOK, outcome)
}

// handleSaveTemplate saves a designer template. Guests are parked as drafts.
// POST /designs/template
func (h *Handler) handleSaveTemplate(w http.ResponseWriter, r *http.Request) {
	if h.deps.Designs == nil {
		h.writeError(w, r, unavailable("designs"))
		return
	}
	var req design.SaveRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	id := identity(r)
	if id.IsGuest() {
		h.saveGuest(w, r, req)
		return
	}
	res, err := h.deps.Designs.SaveTemplate(r.Context(), id.UserID, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

// handleSaveGuest parks a guest design and sets the draft cookie.
// POST /designs/guest
func (h *Handler) handleSaveGuest(w http.ResponseWriter, r *http.Request) {
	if h.deps.Designs == nil {
		h.writeError(w, r, unavailable("designs"))
		return
	}
	var req design.SaveRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.saveGuest(w, r, req)
}

func (h *Handler) saveGuest(w http.ResponseWriter, r *http.Request, req design.SaveRequest) {
	res, err := h.deps.Designs.SaveGuest(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.setDraftCookie(w, res)
	h.writeJSON(w, http.StatusOK, res)
}

func (h *Handler) setDraftCookie(w http.ResponseWriter, res *design.GuestResult) {
	http.SetCookie(w, &http.Cookie{
		Name:     design.DraftCookie,
		Value:    res.Token,
		Path:     "/",
		MaxAge:   int(res.TTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

type claimRequest struct {
	Token string `json:"token"`
}

// handleClaim turns the guest draft into a saved design of the logged-in user.
// The token comes from the body or the pf_draft cookie.
// POST /designs/claim
func (h *Handler) handleClaim(w http.ResponseWriter, r *http.Request) {
	if h.deps.Designs == nil {
		h.writeError(w, r, unavailable("designs"))
		return
	}
	var req claimRequest
	if r.ContentLength != 0 {
		if err := h.decodeJSON(w, r, &req); err != nil {
			h.writeError(w, r, err)
			return
		}
	}
	if req.Token == "" {
		if c, err := r.Cookie(design.DraftCookie); err == nil {
			req.Token = c.Value
		}
	}

	res, err := h.deps.Designs.Claim(r.Context(), identity(r).UserID, req.Token)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: design.DraftCookie, Value: "", Path: "/", MaxAge: -1})
	h.writeJSON(w, http.StatusOK, res)
}

// handleSaveDraft is the legacy manual save button.
// POST /designs/draft
func (h *Handler) handleSaveDraft(w http.ResponseWriter, r *http.Request) {
	if h.deps.Designs == nil {
		h.writeError(w, r, unavailable("designs"))
		return
	}
	var req design.SaveRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.deps.Designs.SaveDraft(r.Context(), identity(r).UserID, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

type designsResponse struct {
	Designs []design.Design `json:"designs"`
}

// handleListDesigns lists the caller's designs, newest first.
// GET /designs
func (h *Handler) handleListDesigns(w http.ResponseWriter, r *http.Request) {
	if h.deps.Designs == nil {
		h.writeError(w, r, unavailable("designs"))
		return
	}
	list, err := h.deps.Designs.List(r.Context(), identity(r).UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []design.Design{}
	}
	h.writeJSON(w, http.StatusOK, designsResponse{Designs: list})
}

// handleGetDesign returns one owned design.
// GET /designs/{id}
func (h *Handler) handleGetDesign(w http.ResponseWriter, r *http.Request) {
	if h.deps.Designs == nil {
		h.writeError(w, r, unavailable("designs"))
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	d, err := h.deps.Designs.Get(r.Context(), identity(r).UserID, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, d)
}

// handleDeleteDesign deletes one owned design.
// DELETE /designs/{id}
func (h *Handler) handleDeleteDesign(w http.ResponseWriter, r *http.Request) {
	if h.deps.Designs == nil {
		h.writeError(w, r, unavailable("designs"))
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	userID := identity(r).UserID
	n, err := h.deps.Designs.Delete(r.Context(), userID, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.logger.InfoContext(r.Context(), "design deleted",
		slog.Int64("user_id", userID),
		slog.Int64("design_id", id),
	)
	h.writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

type addSavedDesignRequest struct {
	Currency string `json:"currency" validate:"omitempty,len=3,alpha"`
}

// handleAddSavedDesign puts a saved design into the cart at the marked-up price.
// POST /designs/{id}/cart
func (h *Handler) handleAddSavedDesign(w http.ResponseWriter, r *http.Request) {
	if h.deps.Carts == nil {
		h.writeError(w, r, unavailable("cart"))
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req addSavedDesignRequest
	if r.ContentLength != 0 {
		if err := h.decodeJSON(w, r, &req); err != nil {
			h.writeError(w, r, err)
			return
		}
	}

	who := identity(r)
	res, err := h.deps.Carts.AddSavedDesign(r.Context(), who.UserID, who.SessionID, id, req.Currency)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, model.NewValidationError(name, "must be a positive integer")
	}
	return id, nil
}
