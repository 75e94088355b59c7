package admin

import (
	"net/http"
)

// MaintenanceRoutes handles routing for /admin/maintenance/* paths.
func MaintenanceRoutes(h *Handler, w http.ResponseWriter, r *http.Request, parts []string) {
	// POST /admin/maintenance
	if r.Method == http.MethodPost && (len(parts) == 0 || (len(parts) == 1 && parts[0] == "")) {
		h.handleMaintenanceActions(w, r)
		return
	}

	http.NotFound(w, r)
}

func (h *Handler) handleMaintenanceActions(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action   string `json:"action"`
		DesignID string `json:"design_id"`
		Keep     int    `json:"keep"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Invalid request body.")
		return
	}

	switch req.Action {
	case "prune_orphaned_bindings":
		h.handlePruneOrphanedBindings(w, r)
	case "prune_snapshots":
		h.handlePruneSnapshots(w, r, req.DesignID, req.Keep)
	default:
		h.respondError(w, r, http.StatusBadRequest, "Unknown maintenance action.")
	}
}

// handlePruneOrphanedBindings removes stored bindings whose source exchange
// or destination queue no longer exists. The validation gateway never writes
// such rows, they appear when the database is edited outside the designer.
// Loaded designs keep their in-memory topology until the next load.
func (h *Handler) handlePruneOrphanedBindings(w http.ResponseWriter, r *http.Request) {
	count, err := h.Store.DeleteOrphanedBindings()
	if err != nil {
		h.respondError(w, r, http.StatusInternalServerError, "Failed to prune orphaned bindings: %s", err.Error())
		return
	}

	h.Logger.Info("pruned orphaned bindings", "count", count)
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"action": "prune_orphaned_bindings",
		"pruned": count,
	})
}

func (h *Handler) handlePruneSnapshots(w http.ResponseWriter, r *http.Request, designID string, keep int) {
	if keep <= 0 {
		h.respondError(w, r, http.StatusBadRequest, "Keep must be a positive number.")
		return
	}

	var total int64
	if designID != "" {
		if h.designOr404(w, r, designID) == nil {
			return
		}
		count, err := h.Store.PruneSnapshots(designID, keep)
		if err != nil {
			h.respondError(w, r, http.StatusInternalServerError, "Failed to prune snapshots: %s", err.Error())
			return
		}
		total = count
	} else {
		designs, err := h.Store.GetAllDesigns()
		if err != nil {
			h.respondError(w, r, http.StatusInternalServerError, "Failed to retrieve designs: %s", err.Error())
			return
		}
		for _, design := range designs {
			count, err := h.Store.PruneSnapshots(design.ID, keep)
			if err != nil {
				h.respondError(w, r, http.StatusInternalServerError, "Failed to prune snapshots: %s", err.Error())
				return
			}
			total += count
		}
	}

	h.Logger.Info("pruned snapshots", "design_id", designID, "keep", keep, "count", total)
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"action": "prune_snapshots",
		"pruned": total,
	})
}
