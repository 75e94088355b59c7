package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"mq-designer/designer"
)

// Handler serves the runtime API consumed by the canvas frontend. It only
// talks to loaded designs, management goes through the admin handler.
type Handler struct {
	Designer *designer.Service
	Logger   *slog.Logger
}

func NewHandler(d *designer.Service, l *slog.Logger) *Handler {
	return &Handler{
		Designer: d,
		Logger:   l,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.Logger.Info("api handler invoked", "method", r.Method, "path", r.URL.Path)

	path := strings.TrimPrefix(r.URL.Path, "/api/designs/")
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 2 || parts[0] == "" {
		h.Logger.Warn("api path not found", "path", r.URL.Path)
		http.NotFound(w, r)
		return
	}

	designID := parts[0]
	switch parts[1] {
	case "metrics":
		h.handleMetrics(w, r, designID)
	case "overview":
		h.handleOverview(w, r, designID)
	case "simulation":
		h.handleSimulation(w, r, designID)
	case "consumers":
		h.handleSetConsumers(w, r, designID)
	case "publish":
		h.handlePublish(w, r, designID)
	default:
		h.Logger.Warn("api path not found", "path", r.URL.Path)
		http.NotFound(w, r)
	}
}

// handleMetrics
func (h *Handler) handleMetrics(w http.ResponseWriter, r *http.Request, designID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	metrics, err := h.Designer.Metrics(designID)
	if err != nil {
		h.Logger.Warn("metrics requested for unknown design", "design_id", designID, "error", err)
		http.Error(w, "Design not found", http.StatusNotFound)
		return
	}

	responseBody := map[string]interface{}{
		"design_id": designID,
		"queues":    metrics,
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	json.NewEncoder(w).Encode(responseBody)
}

// handleOverview
func (h *Handler) handleOverview(w http.ResponseWriter, r *http.Request, designID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	overview, err := h.Designer.OverviewFor(designID)
	if err != nil {
		h.Logger.Warn("overview requested for unknown design", "design_id", designID, "error", err)
		http.Error(w, "Design not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	json.NewEncoder(w).Encode(overview)
}

// handleSimulation reports the running flag on GET and applies a
// start/stop/reset action on POST.
func (h *Handler) handleSimulation(w http.ResponseWriter, r *http.Request, designID string) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodPost:
		var req struct {
			Action string `json:"action"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		var err error
		switch req.Action {
		case "start":
			err = h.Designer.StartSimulation(designID)
		case "stop":
			err = h.Designer.StopSimulation(designID)
		case "reset":
			err = h.Designer.ResetSimulation(designID)
		default:
			http.Error(w, "Unknown simulation action", http.StatusBadRequest)
			return
		}
		if err != nil {
			h.Logger.Warn("simulation action failed", "design_id", designID, "action", req.Action, "error", err)
			http.Error(w, "Design not found", http.StatusNotFound)
			return
		}
		h.Logger.Info("simulation action applied", "design_id", designID, "action", req.Action)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	running, err := h.Designer.SimulationRunning(designID)
	if err != nil {
		http.Error(w, "Design not found", http.StatusNotFound)
		return
	}

	resp := map[string]interface{}{
		"design_id": designID,
		"running":   running,
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	json.NewEncoder(w).Encode(resp)
}

// handleSetConsumers
func (h *Handler) handleSetConsumers(w http.ResponseWriter, r *http.Request, designID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Queue     string `json:"queue"`
		Consumers int    `json:"consumers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.Designer.SetConsumers(designID, req.Queue, req.Consumers); err != nil {
		h.Logger.Warn("failed to set consumers", "design_id", designID, "queue", req.Queue, "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"queue":     req.Queue,
		"consumers": req.Consumers,
	})
	h.Logger.Info("consumers updated", "design_id", designID, "queue", req.Queue, "consumers", req.Consumers)
}

// handlePublish injects simulated traffic through an exchange and reports
// how many queue deliveries were enqueued.
func (h *Handler) handlePublish(w http.ResponseWriter, r *http.Request, designID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Exchange   string                 `json:"exchange"`
		RoutingKey string                 `json:"routing_key"`
		Headers    map[string]interface{} `json:"headers"`
		Count      int                    `json:"count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Count <= 0 {
		req.Count = 1
	}

	enqueued, err := h.Designer.InjectTraffic(designID, req.Exchange, req.RoutingKey, req.Headers, req.Count)
	if err != nil {
		h.Logger.Warn("failed to publish traffic", "design_id", designID, "exchange", req.Exchange, "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	json.NewEncoder(w).Encode(map[string]int64{"enqueued": enqueued})
	h.Logger.Info("traffic published", "design_id", designID, "exchange", req.Exchange, "enqueued", enqueued)
}
