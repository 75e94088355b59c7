package admin

import (
	"errors"
	"net/http"

	"mq-designer/topology"
)

// PolicyRoutes handles routing for /admin/designs/{id}/policies/* paths.
func PolicyRoutes(h *Handler, w http.ResponseWriter, r *http.Request, designID string, parts []string) {
	if r.Method == http.MethodGet {
		if len(parts) == 0 || (len(parts) == 1 && parts[0] == "") {
			h.handleListPolicies(w, r, designID)
			return
		}
		if len(parts) == 1 {
			h.handleViewPolicy(w, r, designID, parts[0])
			return
		}
	}

	if r.Method == http.MethodPost {
		if len(parts) == 1 && parts[0] == "create" {
			h.handleCreatePolicy(w, r, designID)
			return
		}
		if len(parts) == 2 {
			switch parts[1] {
			case "update":
				h.handleUpdatePolicy(w, r, designID, parts[0])
				return
			case "delete":
				h.handleDeletePolicy(w, r, designID, parts[0])
				return
			}
		}
	}

	http.NotFound(w, r)
}

func (h *Handler) handleListPolicies(w http.ResponseWriter, r *http.Request, designID string) {
	if h.designOr404(w, r, designID) == nil {
		return
	}

	cfg, err := h.Designer.Snapshot(designID)
	if err != nil {
		h.respondError(w, r, http.StatusInternalServerError, "Failed to retrieve topology: %s", err.Error())
		return
	}

	q := r.URL.Query().Get("q")
	result := make([]topology.Policy, 0, len(cfg.Policies))
	for _, p := range cfg.Policies {
		if matchesQuery(p.Name, q) {
			result = append(result, p)
		}
	}

	h.respondJSON(w, http.StatusOK, result)
}

func (h *Handler) handleViewPolicy(w http.ResponseWriter, r *http.Request, designID, name string) {
	if h.designOr404(w, r, designID) == nil {
		return
	}

	cfg, err := h.Designer.Snapshot(designID)
	if err != nil {
		h.respondError(w, r, http.StatusInternalServerError, "Failed to retrieve topology: %s", err.Error())
		return
	}

	policy := cfg.FindPolicy(name)
	if policy == nil {
		h.respondError(w, r, http.StatusNotFound, "Policy not found.")
		return
	}

	h.respondJSON(w, http.StatusOK, policy)
}

func (h *Handler) handleCreatePolicy(w http.ResponseWriter, r *http.Request, designID string) {
	if h.designOr404(w, r, designID) == nil {
		return
	}

	var policy topology.Policy
	if err := json.NewDecoder(r.Body).Decode(&policy); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Invalid request body.")
		return
	}

	created, err := h.Designer.CreatePolicy(designID, policy)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, topology.ErrDuplicateName) {
			status = http.StatusConflict
		}
		h.respondError(w, r, status, "Failed to create policy: %s", err.Error())
		return
	}

	h.Logger.Info("policy created successfully", "design_id", designID, "policy", created.Name)
	h.respondJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleUpdatePolicy(w http.ResponseWriter, r *http.Request, designID, name string) {
	if h.designOr404(w, r, designID) == nil {
		return
	}

	cfg, err := h.Designer.Snapshot(designID)
	if err != nil {
		h.respondError(w, r, http.StatusInternalServerError, "Failed to retrieve topology: %s", err.Error())
		return
	}
	if cfg.FindPolicy(name) == nil {
		h.respondError(w, r, http.StatusNotFound, "Policy not found.")
		return
	}

	var policy topology.Policy
	if err := json.NewDecoder(r.Body).Decode(&policy); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Invalid request body.")
		return
	}

	updated, err := h.Designer.UpdatePolicy(designID, name, policy)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, topology.ErrDuplicateName) {
			status = http.StatusConflict
		}
		h.respondError(w, r, status, "Failed to update policy: %s", err.Error())
		return
	}

	h.Logger.Info("policy updated successfully", "design_id", designID, "policy", updated.Name)
	h.respondJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleDeletePolicy(w http.ResponseWriter, r *http.Request, designID, name string) {
	if h.designOr404(w, r, designID) == nil {
		return
	}

	cfg, err := h.Designer.Snapshot(designID)
	if err != nil {
		h.respondError(w, r, http.StatusInternalServerError, "Failed to retrieve topology: %s", err.Error())
		return
	}
	if cfg.FindPolicy(name) == nil {
		h.respondError(w, r, http.StatusNotFound, "Policy not found.")
		return
	}

	if err := h.Designer.DeletePolicy(designID, name); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Failed to delete policy: %s", err.Error())
		return
	}

	h.Logger.Info("policy deleted successfully", "design_id", designID, "policy", name)
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
