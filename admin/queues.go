package admin

import (
	"errors"
	"net/http"

	"mq-designer/topology"
)

// QueueRoutes handles routing for /admin/designs/{id}/queues/* paths.
func QueueRoutes(h *Handler, w http.ResponseWriter, r *http.Request, designID string, parts []string) {
	if r.Method == http.MethodGet {
		if len(parts) == 0 || (len(parts) == 1 && parts[0] == "") {
			h.handleListQueues(w, r, designID)
			return
		}
		if len(parts) == 1 {
			h.handleViewQueue(w, r, designID, parts[0])
			return
		}
	}

	if r.Method == http.MethodPost {
		if len(parts) == 1 && parts[0] == "create" {
			h.handleCreateQueue(w, r, designID)
			return
		}
		if len(parts) == 2 {
			switch parts[1] {
			case "update":
				h.handleUpdateQueue(w, r, designID, parts[0])
				return
			case "delete":
				h.handleDeleteQueue(w, r, designID, parts[0])
				return
			case "flags":
				h.handleSetQueueFlag(w, r, designID, parts[0])
				return
			case "purge":
				h.handlePurgeQueue(w, r, designID, parts[0])
				return
			}
		}
	}

	http.NotFound(w, r)
}

func (h *Handler) handleListQueues(w http.ResponseWriter, r *http.Request, designID string) {
	if h.designOr404(w, r, designID) == nil {
		return
	}

	cfg, err := h.Designer.Snapshot(designID)
	if err != nil {
		h.respondError(w, r, http.StatusInternalServerError, "Failed to retrieve topology: %s", err.Error())
		return
	}

	q := r.URL.Query().Get("q")
	result := make([]topology.Queue, 0, len(cfg.Queues))
	for _, queue := range cfg.Queues {
		if matchesQuery(queue.Name, q) {
			result = append(result, queue)
		}
	}

	h.respondJSON(w, http.StatusOK, result)
}

func (h *Handler) handleViewQueue(w http.ResponseWriter, r *http.Request, designID, name string) {
	if h.designOr404(w, r, designID) == nil {
		return
	}

	cfg, err := h.Designer.Snapshot(designID)
	if err != nil {
		h.respondError(w, r, http.StatusInternalServerError, "Failed to retrieve topology: %s", err.Error())
		return
	}

	queue := cfg.FindQueue(name)
	if queue == nil {
		h.respondError(w, r, http.StatusNotFound, "Queue not found.")
		return
	}

	var inbound []topology.Binding
	for _, b := range cfg.Bindings {
		if b.Destination == name {
			inbound = append(inbound, b)
		}
	}

	payload := map[string]interface{}{
		"queue":    queue,
		"bindings": inbound,
	}
	if metrics, err := h.Designer.Metrics(designID); err == nil {
		if qm, ok := metrics[name]; ok {
			payload["metrics"] = qm
		}
	}

	h.respondJSON(w, http.StatusOK, payload)
}

func (h *Handler) handleCreateQueue(w http.ResponseWriter, r *http.Request, designID string) {
	if h.designOr404(w, r, designID) == nil {
		return
	}

	var queue topology.Queue
	if err := json.NewDecoder(r.Body).Decode(&queue); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Invalid request body.")
		return
	}

	created, err := h.Designer.CreateQueue(designID, queue)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, topology.ErrDuplicateName) {
			status = http.StatusConflict
		}
		h.respondError(w, r, status, "Failed to create queue: %s", err.Error())
		return
	}

	h.Logger.Info("queue created successfully", "design_id", designID, "queue", created.Name)
	h.respondJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleUpdateQueue(w http.ResponseWriter, r *http.Request, designID, name string) {
	if h.designOr404(w, r, designID) == nil {
		return
	}

	cfg, err := h.Designer.Snapshot(designID)
	if err != nil {
		h.respondError(w, r, http.StatusInternalServerError, "Failed to retrieve topology: %s", err.Error())
		return
	}
	if cfg.FindQueue(name) == nil {
		h.respondError(w, r, http.StatusNotFound, "Queue not found.")
		return
	}

	var queue topology.Queue
	if err := json.NewDecoder(r.Body).Decode(&queue); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Invalid request body.")
		return
	}

	updated, err := h.Designer.UpdateQueue(designID, name, queue)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, topology.ErrDuplicateName) {
			status = http.StatusConflict
		}
		h.respondError(w, r, status, "Failed to update queue: %s", err.Error())
		return
	}

	h.Logger.Info("queue updated successfully", "design_id", designID, "queue", updated.Name)
	h.respondJSON(w, http.StatusOK, updated)
}

// handleSetQueueFlag flips one boolean flag on a queue. The response carries
// the queue as stored, since setting one flag can clear its counterpart.
func (h *Handler) handleSetQueueFlag(w http.ResponseWriter, r *http.Request, designID, name string) {
	if h.designOr404(w, r, designID) == nil {
		return
	}

	cfg, err := h.Designer.Snapshot(designID)
	if err != nil {
		h.respondError(w, r, http.StatusInternalServerError, "Failed to retrieve topology: %s", err.Error())
		return
	}
	if cfg.FindQueue(name) == nil {
		h.respondError(w, r, http.StatusNotFound, "Queue not found.")
		return
	}

	var req struct {
		Field string `json:"field"`
		Value bool   `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Invalid request body.")
		return
	}

	updated, err := h.Designer.SetQueueFlag(designID, name, req.Field, req.Value)
	if err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Failed to update queue flag: %s", err.Error())
		return
	}

	h.Logger.Info("queue flag updated", "design_id", designID, "queue", name, "field", req.Field, "value", req.Value)
	h.respondJSON(w, http.StatusOK, updated)
}

func (h *Handler) handlePurgeQueue(w http.ResponseWriter, r *http.Request, designID, name string) {
	if h.designOr404(w, r, designID) == nil {
		return
	}

	purged, err := h.Designer.PurgeQueue(designID, name)
	if err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Failed to purge queue: %s", err.Error())
		return
	}

	h.Logger.Info("queue purged", "design_id", designID, "queue", name, "purged", purged)
	h.respondJSON(w, http.StatusOK, map[string]int64{"purged": purged})
}

func (h *Handler) handleDeleteQueue(w http.ResponseWriter, r *http.Request, designID, name string) {
	if h.designOr404(w, r, designID) == nil {
		return
	}

	cfg, err := h.Designer.Snapshot(designID)
	if err != nil {
		h.respondError(w, r, http.StatusInternalServerError, "Failed to retrieve topology: %s", err.Error())
		return
	}
	if cfg.FindQueue(name) == nil {
		h.respondError(w, r, http.StatusNotFound, "Queue not found.")
		return
	}

	if err := h.Designer.DeleteQueue(designID, name); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Failed to delete queue: %s", err.Error())
		return
	}

	h.Logger.Info("queue deleted successfully", "design_id", designID, "queue", name)
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
