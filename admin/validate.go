package admin

import (
	"net/http"

	"mq-designer/topology"
)

// ValidateRoutes handles routing for /admin/designs/{id}/validate/* paths.
// Both endpoints are dry runs and never touch the stored topology.
func ValidateRoutes(h *Handler, w http.ResponseWriter, r *http.Request, designID string, parts []string) {
	if r.Method == http.MethodPost && len(parts) == 1 {
		switch parts[0] {
		case "routing-key":
			h.handleValidateRoutingKey(w, r, designID)
			return
		case "binding":
			h.handleValidateBinding(w, r, designID)
			return
		}
	}

	http.NotFound(w, r)
}

func (h *Handler) handleValidateRoutingKey(w http.ResponseWriter, r *http.Request, designID string) {
	if h.designOr404(w, r, designID) == nil {
		return
	}

	var req struct {
		RoutingKey string `json:"routing_key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Invalid request body.")
		return
	}

	h.respondJSON(w, http.StatusOK, h.Designer.ValidateRoutingKey(req.RoutingKey))
}

func (h *Handler) handleValidateBinding(w http.ResponseWriter, r *http.Request, designID string) {
	if h.designOr404(w, r, designID) == nil {
		return
	}

	var binding topology.Binding
	if err := json.NewDecoder(r.Body).Decode(&binding); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Invalid request body.")
		return
	}

	check, err := h.Designer.CheckBinding(designID, binding)
	if err != nil {
		h.respondError(w, r, http.StatusInternalServerError, "Failed to check binding: %s", err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, check)
}
