package admin

import (
	"net/http"

	"mq-designer/topology"
)

// BindingRoutes handles routing for /admin/designs/{id}/bindings/* paths.
func BindingRoutes(h *Handler, w http.ResponseWriter, r *http.Request, designID string, parts []string) {
	if r.Method == http.MethodGet {
		if len(parts) == 0 || (len(parts) == 1 && parts[0] == "") {
			h.handleListBindings(w, r, designID)
			return
		}
		if len(parts) == 1 {
			h.handleViewBinding(w, r, designID, parts[0])
			return
		}
	}

	if r.Method == http.MethodPost {
		if len(parts) == 1 && parts[0] == "create" {
			h.handleCreateBinding(w, r, designID)
			return
		}
		if len(parts) == 2 && parts[1] == "delete" {
			h.handleDeleteBinding(w, r, designID, parts[0])
			return
		}
	}

	http.NotFound(w, r)
}

func (h *Handler) handleListBindings(w http.ResponseWriter, r *http.Request, designID string) {
	if h.designOr404(w, r, designID) == nil {
		return
	}

	cfg, err := h.Designer.Snapshot(designID)
	if err != nil {
		h.respondError(w, r, http.StatusInternalServerError, "Failed to retrieve topology: %s", err.Error())
		return
	}

	q := r.URL.Query().Get("q")
	result := make([]topology.Binding, 0, len(cfg.Bindings))
	for _, b := range cfg.Bindings {
		if matchesQuery(b.Source, q) || matchesQuery(b.Destination, q) {
			result = append(result, b)
		}
	}

	h.respondJSON(w, http.StatusOK, result)
}

func (h *Handler) handleViewBinding(w http.ResponseWriter, r *http.Request, designID, id string) {
	if h.designOr404(w, r, designID) == nil {
		return
	}

	cfg, err := h.Designer.Snapshot(designID)
	if err != nil {
		h.respondError(w, r, http.StatusInternalServerError, "Failed to retrieve topology: %s", err.Error())
		return
	}

	binding := cfg.FindBinding(id)
	if binding == nil {
		h.respondError(w, r, http.StatusNotFound, "Binding not found.")
		return
	}

	h.respondJSON(w, http.StatusOK, binding)
}

// handleCreateBinding stores a binding after validation. An optional "strict"
// field overrides the configured strict mode for this one request; when the
// binding is rejected the response carries the full check result so the
// caller can see which rule fired.
func (h *Handler) handleCreateBinding(w http.ResponseWriter, r *http.Request, designID string) {
	if h.designOr404(w, r, designID) == nil {
		return
	}

	var req struct {
		topology.Binding
		Strict *bool `json:"strict"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Invalid request body.")
		return
	}

	result, err := h.Designer.CreateBinding(designID, req.Binding, req.Strict)
	if err != nil {
		lang := h.determineLanguage(r)
		payload := map[string]interface{}{
			"error": h.I18n.Sprintf(lang, "Failed to create binding: %s", err.Error()),
		}
		if result != nil {
			payload["check"] = result.Check
		}
		h.respondJSON(w, http.StatusBadRequest, payload)
		return
	}

	h.Logger.Info("binding created successfully",
		"design_id", designID,
		"source", result.Binding.Source,
		"destination", result.Binding.Destination)
	h.respondJSON(w, http.StatusCreated, result)
}

func (h *Handler) handleDeleteBinding(w http.ResponseWriter, r *http.Request, designID, id string) {
	if h.designOr404(w, r, designID) == nil {
		return
	}

	cfg, err := h.Designer.Snapshot(designID)
	if err != nil {
		h.respondError(w, r, http.StatusInternalServerError, "Failed to retrieve topology: %s", err.Error())
		return
	}
	if cfg.FindBinding(id) == nil {
		h.respondError(w, r, http.StatusNotFound, "Binding not found.")
		return
	}

	if err := h.Designer.DeleteBinding(designID, id); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Failed to delete binding: %s", err.Error())
		return
	}

	h.Logger.Info("binding deleted successfully", "design_id", designID, "binding_id", id)
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
