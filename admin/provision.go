package admin

import (
	"net/http"
)

// ProvisionRoutes handles /admin/designs/{id}/provision and
// /admin/designs/{id}/verify. Both require a configured live broker.
func ProvisionRoutes(h *Handler, w http.ResponseWriter, r *http.Request, designID string, parts []string) {
	if len(parts) != 1 {
		http.NotFound(w, r)
		return
	}

	if h.Provisioner == nil {
		h.respondError(w, r, http.StatusServiceUnavailable, "Live broker is not configured.")
		return
	}

	switch {
	case parts[0] == "provision" && r.Method == http.MethodPost:
		h.handleProvisionDesign(w, r, designID)
	case parts[0] == "verify" && r.Method == http.MethodGet:
		h.handleVerifyDesign(w, r, designID)
	default:
		http.NotFound(w, r)
	}
}

func (h *Handler) handleProvisionDesign(w http.ResponseWriter, r *http.Request, designID string) {
	if h.designOr404(w, r, designID) == nil {
		return
	}

	cfg, err := h.Designer.Snapshot(designID)
	if err != nil {
		h.respondError(w, r, http.StatusInternalServerError, "Failed to retrieve topology: %s", err.Error())
		return
	}

	if err := h.Provisioner.ProvisionDesign(cfg); err != nil {
		h.respondError(w, r, http.StatusBadGateway, "Failed to provision design: %s", err.Error())
		return
	}

	h.Logger.Info("design provisioned successfully", "design_id", designID)
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "provisioned",
		"exchanges": len(cfg.Exchanges),
		"queues":    len(cfg.Queues),
		"bindings":  len(cfg.Bindings),
	})
}

func (h *Handler) handleVerifyDesign(w http.ResponseWriter, r *http.Request, designID string) {
	if h.designOr404(w, r, designID) == nil {
		return
	}

	cfg, err := h.Designer.Snapshot(designID)
	if err != nil {
		h.respondError(w, r, http.StatusInternalServerError, "Failed to retrieve topology: %s", err.Error())
		return
	}

	result, err := h.Provisioner.VerifyDesign(cfg)
	if err != nil {
		h.respondError(w, r, http.StatusBadGateway, "Failed to verify design: %s", err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}
