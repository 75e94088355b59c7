package admin

import (
	"errors"
	"net/http"

	"mq-designer/topology"
)

// ExchangeRoutes handles routing for /admin/designs/{id}/exchanges/* paths.
func ExchangeRoutes(h *Handler, w http.ResponseWriter, r *http.Request, designID string, parts []string) {
	if r.Method == http.MethodGet {
		if len(parts) == 0 || (len(parts) == 1 && parts[0] == "") {
			h.handleListExchanges(w, r, designID)
			return
		}
		if len(parts) == 1 {
			h.handleViewExchange(w, r, designID, parts[0])
			return
		}
	}

	if r.Method == http.MethodPost {
		if len(parts) == 1 && parts[0] == "create" {
			h.handleCreateExchange(w, r, designID)
			return
		}
		if len(parts) == 2 && parts[1] == "update" {
			h.handleUpdateExchange(w, r, designID, parts[0])
			return
		}
		if len(parts) == 2 && parts[1] == "delete" {
			h.handleDeleteExchange(w, r, designID, parts[0])
			return
		}
	}

	http.NotFound(w, r)
}

func (h *Handler) handleListExchanges(w http.ResponseWriter, r *http.Request, designID string) {
	if h.designOr404(w, r, designID) == nil {
		return
	}

	cfg, err := h.Designer.Snapshot(designID)
	if err != nil {
		h.respondError(w, r, http.StatusInternalServerError, "Failed to retrieve topology: %s", err.Error())
		return
	}

	q := r.URL.Query().Get("q")
	result := make([]topology.Exchange, 0, len(cfg.Exchanges))
	for _, ex := range cfg.Exchanges {
		if matchesQuery(ex.Name, q) {
			result = append(result, ex)
		}
	}

	h.respondJSON(w, http.StatusOK, result)
}

func (h *Handler) handleViewExchange(w http.ResponseWriter, r *http.Request, designID, name string) {
	if h.designOr404(w, r, designID) == nil {
		return
	}

	cfg, err := h.Designer.Snapshot(designID)
	if err != nil {
		h.respondError(w, r, http.StatusInternalServerError, "Failed to retrieve topology: %s", err.Error())
		return
	}

	ex := cfg.FindExchange(name)
	if ex == nil {
		h.respondError(w, r, http.StatusNotFound, "Exchange not found.")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"exchange": ex,
		"bindings": cfg.BindingsFor(name),
	})
}

func (h *Handler) handleCreateExchange(w http.ResponseWriter, r *http.Request, designID string) {
	if h.designOr404(w, r, designID) == nil {
		return
	}

	var ex topology.Exchange
	if err := json.NewDecoder(r.Body).Decode(&ex); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Invalid request body.")
		return
	}

	created, err := h.Designer.CreateExchange(designID, ex)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, topology.ErrDuplicateName) {
			status = http.StatusConflict
		}
		h.respondError(w, r, status, "Failed to create exchange: %s", err.Error())
		return
	}

	h.Logger.Info("exchange created successfully", "design_id", designID, "exchange", created.Name)
	h.respondJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleUpdateExchange(w http.ResponseWriter, r *http.Request, designID, name string) {
	if h.designOr404(w, r, designID) == nil {
		return
	}

	cfg, err := h.Designer.Snapshot(designID)
	if err != nil {
		h.respondError(w, r, http.StatusInternalServerError, "Failed to retrieve topology: %s", err.Error())
		return
	}
	if cfg.FindExchange(name) == nil {
		h.respondError(w, r, http.StatusNotFound, "Exchange not found.")
		return
	}

	var ex topology.Exchange
	if err := json.NewDecoder(r.Body).Decode(&ex); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Invalid request body.")
		return
	}

	updated, err := h.Designer.UpdateExchange(designID, name, ex)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, topology.ErrDuplicateName) {
			status = http.StatusConflict
		}
		h.respondError(w, r, status, "Failed to update exchange: %s", err.Error())
		return
	}

	h.Logger.Info("exchange updated successfully", "design_id", designID, "exchange", updated.Name)
	h.respondJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleDeleteExchange(w http.ResponseWriter, r *http.Request, designID, name string) {
	if h.designOr404(w, r, designID) == nil {
		return
	}

	cfg, err := h.Designer.Snapshot(designID)
	if err != nil {
		h.respondError(w, r, http.StatusInternalServerError, "Failed to retrieve topology: %s", err.Error())
		return
	}
	if cfg.FindExchange(name) == nil {
		h.respondError(w, r, http.StatusNotFound, "Exchange not found.")
		return
	}

	if err := h.Designer.DeleteExchange(designID, name); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Failed to delete exchange: %s", err.Error())
		return
	}

	h.Logger.Info("exchange deleted successfully", "design_id", designID, "exchange", name)
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
