package admin

import (
	"io"
	"net/http"
	"strings"
)

// DefinitionRoutes handles routing for /admin/designs/{id}/definitions/* paths.
func DefinitionRoutes(h *Handler, w http.ResponseWriter, r *http.Request, designID string, parts []string) {
	if r.Method == http.MethodGet && (len(parts) == 0 || (len(parts) == 1 && parts[0] == "")) {
		h.handleExportDefinitions(w, r, designID)
		return
	}

	if r.Method == http.MethodPost && len(parts) == 1 && parts[0] == "import" {
		h.handleImportDefinitions(w, r, designID)
		return
	}

	http.NotFound(w, r)
}

// definitionsFormat resolves the document format from the query string,
// falling back to the Content-Type header, then to JSON.
func definitionsFormat(r *http.Request) string {
	if format := r.URL.Query().Get("format"); format != "" {
		return format
	}
	if strings.Contains(r.Header.Get("Content-Type"), "yaml") {
		return "yaml"
	}
	return "json"
}

func (h *Handler) handleExportDefinitions(w http.ResponseWriter, r *http.Request, designID string) {
	if h.designOr404(w, r, designID) == nil {
		return
	}

	format := definitionsFormat(r)
	data, err := h.Designer.ExportDefinitions(designID, format)
	if err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Failed to export definitions: %s", err.Error())
		return
	}

	contentType := "application/json; charset=utf-8"
	if format == "yaml" {
		contentType = "application/x-yaml; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.Logger.Error("failed to write definitions response", "error", err)
	}
}

func (h *Handler) handleImportDefinitions(w http.ResponseWriter, r *http.Request, designID string) {
	if h.designOr404(w, r, designID) == nil {
		return
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Invalid request body.")
		return
	}

	if err := h.Designer.ImportDefinitions(designID, data, definitionsFormat(r)); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Failed to import definitions: %s", err.Error())
		return
	}

	h.Logger.Info("definitions imported successfully", "design_id", designID)
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "imported"})
}
