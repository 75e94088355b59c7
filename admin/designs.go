package admin

import (
	"net/http"

	"mq-designer/storage"
)

// DesignRoutes handles routing for /admin/designs/* paths.
func DesignRoutes(h *Handler, w http.ResponseWriter, r *http.Request, parts []string) {
	if len(parts) == 0 || (len(parts) == 1 && parts[0] == "") {
		if r.Method == http.MethodGet {
			h.handleListDesigns(w, r)
			return
		}
		http.NotFound(w, r)
		return
	}

	// POST /admin/designs/create
	if r.Method == http.MethodPost && len(parts) == 1 && parts[0] == "create" {
		h.handleCreateDesign(w, r)
		return
	}

	designID := parts[0]

	// GET /admin/designs/{id}
	if r.Method == http.MethodGet && len(parts) == 1 {
		h.handleViewDesign(w, r, designID)
		return
	}

	if r.Method == http.MethodPost && len(parts) == 2 {
		switch parts[1] {
		case "update":
			h.handleUpdateDesign(w, r, designID)
			return
		case "delete":
			h.handleDeleteDesign(w, r, designID)
			return
		}
	}

	// Nested entity routes: /admin/designs/{id}/{entity}/*
	if len(parts) >= 2 {
		rest := parts[2:]
		switch parts[1] {
		case "exchanges":
			ExchangeRoutes(h, w, r, designID, rest)
			return
		case "queues":
			QueueRoutes(h, w, r, designID, rest)
			return
		case "bindings":
			BindingRoutes(h, w, r, designID, rest)
			return
		case "policies":
			PolicyRoutes(h, w, r, designID, rest)
			return
		case "generators":
			GeneratorRoutes(h, w, r, designID, rest)
			return
		case "validate":
			ValidateRoutes(h, w, r, designID, rest)
			return
		case "definitions":
			DefinitionRoutes(h, w, r, designID, rest)
			return
		case "snapshots":
			SnapshotRoutes(h, w, r, designID, rest)
			return
		case "provision", "verify":
			ProvisionRoutes(h, w, r, designID, parts[1:])
			return
		}
	}

	http.NotFound(w, r)
}

func (h *Handler) handleListDesigns(w http.ResponseWriter, r *http.Request) {
	infos, err := h.Designer.Designs()
	if err != nil {
		h.respondError(w, r, http.StatusInternalServerError, "Failed to retrieve designs: %s", err.Error())
		return
	}

	q := r.URL.Query().Get("q")
	result := make([]storage.DesignInfo, 0, len(infos))
	for _, info := range infos {
		if matchesQuery(info.Name, q) {
			result = append(result, info)
		}
	}

	h.respondJSON(w, http.StatusOK, result)
}

func (h *Handler) handleCreateDesign(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Invalid request body.")
		return
	}

	if req.Name == "" {
		h.respondError(w, r, http.StatusBadRequest, "Design name cannot be empty.")
		return
	}

	design, err := h.Designer.CreateDesign(req.Name, req.Description)
	if err != nil {
		h.respondError(w, r, http.StatusConflict, "Failed to create design: %s", err.Error())
		return
	}

	h.Logger.Info("design created successfully", "design_name", design.Name, "design_id", design.ID)
	h.respondJSON(w, http.StatusCreated, design)
}

func (h *Handler) handleViewDesign(w http.ResponseWriter, r *http.Request, designID string) {
	design := h.designOr404(w, r, designID)
	if design == nil {
		return
	}

	overview, err := h.Designer.OverviewFor(designID)
	if err != nil {
		h.respondError(w, r, http.StatusInternalServerError, "Failed to retrieve design overview: %s", err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"design":   design,
		"overview": overview,
	})
}

func (h *Handler) handleUpdateDesign(w http.ResponseWriter, r *http.Request, designID string) {
	if h.designOr404(w, r, designID) == nil {
		return
	}

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Invalid request body.")
		return
	}

	if req.Name == "" {
		h.respondError(w, r, http.StatusBadRequest, "Design name cannot be empty.")
		return
	}

	design, err := h.Designer.UpdateDesign(designID, req.Name, req.Description)
	if err != nil {
		h.respondError(w, r, http.StatusConflict, "Failed to update design: %s", err.Error())
		return
	}

	h.Logger.Info("design updated successfully", "design_id", designID)
	h.respondJSON(w, http.StatusOK, design)
}

func (h *Handler) handleDeleteDesign(w http.ResponseWriter, r *http.Request, designID string) {
	if h.designOr404(w, r, designID) == nil {
		return
	}

	if err := h.Designer.DeleteDesign(designID); err != nil {
		h.respondError(w, r, http.StatusInternalServerError, "Failed to delete design: %s", err.Error())
		return
	}

	h.Logger.Info("design deleted successfully", "design_id", designID)
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
