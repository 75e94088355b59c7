package admin

import (
	"net/http"

	"github.com/google/uuid"

	"mq-designer/storage"
)

// GeneratorRoutes handles routing for /admin/designs/{id}/generators/* paths.
func GeneratorRoutes(h *Handler, w http.ResponseWriter, r *http.Request, designID string, parts []string) {
	if r.Method == http.MethodGet {
		if len(parts) == 0 || (len(parts) == 1 && parts[0] == "") {
			h.handleListGenerators(w, r, designID)
			return
		}
		if len(parts) == 1 {
			h.handleViewGenerator(w, r, designID, parts[0])
			return
		}
	}

	if r.Method == http.MethodPost {
		if len(parts) == 1 && parts[0] == "create" {
			h.handleCreateGenerator(w, r, designID)
			return
		}
		if len(parts) == 2 {
			switch parts[1] {
			case "update":
				h.handleUpdateGenerator(w, r, designID, parts[0])
				return
			case "delete":
				h.handleDeleteGenerator(w, r, designID, parts[0])
				return
			case "run":
				h.handleRunGenerator(w, r, designID, parts[0])
				return
			}
		}
	}

	http.NotFound(w, r)
}

// generatorOr404 loads a generator and checks it belongs to the design.
func (h *Handler) generatorOr404(w http.ResponseWriter, r *http.Request, designID, generatorID string) *storage.Generator {
	gen, err := h.Store.GetGeneratorByID(generatorID)
	if err != nil {
		h.respondError(w, r, http.StatusInternalServerError, "Failed to retrieve generator: %s", err.Error())
		return nil
	}
	if gen == nil || gen.DesignID != designID {
		h.respondError(w, r, http.StatusNotFound, "Generator not found.")
		return nil
	}
	return gen
}

func (h *Handler) handleListGenerators(w http.ResponseWriter, r *http.Request, designID string) {
	if h.designOr404(w, r, designID) == nil {
		return
	}

	generators, err := h.Store.GetGeneratorsByDesignID(designID)
	if err != nil {
		h.respondError(w, r, http.StatusInternalServerError, "Failed to retrieve generators: %s", err.Error())
		return
	}

	q := r.URL.Query().Get("q")
	result := make([]storage.Generator, 0, len(generators))
	for _, gen := range generators {
		if matchesQuery(gen.Name, q) {
			result = append(result, gen)
		}
	}

	h.respondJSON(w, http.StatusOK, result)
}

func (h *Handler) handleViewGenerator(w http.ResponseWriter, r *http.Request, designID, generatorID string) {
	if h.designOr404(w, r, designID) == nil {
		return
	}

	gen := h.generatorOr404(w, r, designID, generatorID)
	if gen == nil {
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"generator": gen,
		"scheduled": h.Generators.Scheduled(gen.ID),
	})
}

func (h *Handler) handleCreateGenerator(w http.ResponseWriter, r *http.Request, designID string) {
	if h.designOr404(w, r, designID) == nil {
		return
	}

	var req struct {
		Name     string `json:"name"`
		Schedule string `json:"schedule"`
		Engine   string `json:"engine"`
		Script   string `json:"script"`
		Enabled  bool   `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Invalid request body.")
		return
	}

	if req.Name == "" || req.Schedule == "" || req.Engine == "" || req.Script == "" {
		h.respondError(w, r, http.StatusBadRequest, "Name, schedule, engine, and script are required.")
		return
	}

	gen := &storage.Generator{
		ID:       uuid.New().String(),
		DesignID: designID,
		Name:     req.Name,
		Schedule: req.Schedule,
		Engine:   req.Engine,
		Script:   req.Script,
		Enabled:  req.Enabled,
	}

	if err := h.Generators.Schedule(gen); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Failed to schedule generator: %s", err.Error())
		return
	}

	if err := h.Store.CreateGenerator(gen); err != nil {
		h.Generators.Unschedule(gen.ID)
		h.respondError(w, r, http.StatusInternalServerError, "Failed to create generator: %s", err.Error())
		return
	}

	h.Logger.Info("generator created successfully", "design_id", designID, "generator_id", gen.ID, "name", gen.Name)
	h.respondJSON(w, http.StatusCreated, gen)
}

func (h *Handler) handleUpdateGenerator(w http.ResponseWriter, r *http.Request, designID, generatorID string) {
	if h.designOr404(w, r, designID) == nil {
		return
	}

	gen := h.generatorOr404(w, r, designID, generatorID)
	if gen == nil {
		return
	}

	var req struct {
		Name     string `json:"name"`
		Schedule string `json:"schedule"`
		Engine   string `json:"engine"`
		Script   string `json:"script"`
		Enabled  bool   `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Invalid request body.")
		return
	}

	if req.Name == "" || req.Schedule == "" || req.Engine == "" || req.Script == "" {
		h.respondError(w, r, http.StatusBadRequest, "Name, schedule, engine, and script are required.")
		return
	}

	gen.Name = req.Name
	gen.Schedule = req.Schedule
	gen.Engine = req.Engine
	gen.Script = req.Script
	gen.Enabled = req.Enabled

	if err := h.Generators.Schedule(gen); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Failed to schedule generator: %s", err.Error())
		return
	}

	if err := h.Store.UpdateGenerator(gen); err != nil {
		h.respondError(w, r, http.StatusInternalServerError, "Failed to update generator: %s", err.Error())
		return
	}

	h.Logger.Info("generator updated successfully", "design_id", designID, "generator_id", gen.ID)
	h.respondJSON(w, http.StatusOK, gen)
}

func (h *Handler) handleDeleteGenerator(w http.ResponseWriter, r *http.Request, designID, generatorID string) {
	if h.designOr404(w, r, designID) == nil {
		return
	}

	gen := h.generatorOr404(w, r, designID, generatorID)
	if gen == nil {
		return
	}

	h.Generators.Unschedule(gen.ID)
	if err := h.Store.DeleteGenerator(gen.ID); err != nil {
		h.respondError(w, r, http.StatusInternalServerError, "Failed to delete generator: %s", err.Error())
		return
	}

	h.Logger.Info("generator deleted successfully", "design_id", designID, "generator_id", gen.ID)
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleRunGenerator triggers one immediate run outside the schedule. The
// run reports its outcome through logs and metrics, not the response.
func (h *Handler) handleRunGenerator(w http.ResponseWriter, r *http.Request, designID, generatorID string) {
	if h.designOr404(w, r, designID) == nil {
		return
	}

	gen := h.generatorOr404(w, r, designID, generatorID)
	if gen == nil {
		return
	}

	h.Generators.RunGenerator(gen.ID)
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "completed"})
}
