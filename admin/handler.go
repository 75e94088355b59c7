package admin

import (
	"log/slog"
	"net/http"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"mq-designer/designer"
	"mq-designer/generator"
	"mq-designer/i18n"
	"mq-designer/rabbitmq"
	"mq-designer/storage"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Handler struct {
	Store       *storage.Store
	Designer    *designer.Service
	Generators  *generator.Service
	Provisioner *rabbitmq.Provisioner
	Logger      *slog.Logger
	Version     string
	I18n        *i18n.Service
}

// NewHandler creates the admin handler. The provisioner may be nil when no
// live broker is configured.
func NewHandler(s *storage.Store, d *designer.Service, g *generator.Service, p *rabbitmq.Provisioner, l *slog.Logger, version string, i18nService *i18n.Service) *Handler {
	return &Handler{
		Store:       s,
		Designer:    d,
		Generators:  g,
		Provisioner: p,
		Logger:      l,
		Version:     version,
		I18n:        i18nService,
	}
}

// determineLanguage determines the language for the request.
// It prioritizes the language set in the database, falling back to the Accept-Language header.
func (h *Handler) determineLanguage(r *http.Request) string {
	lang, err := h.Store.GetSetting("language")
	if err != nil {
		h.Logger.Error("failed to get language setting from DB", "error", err)
	}
	if lang != "" {
		return lang
	}

	return r.Header.Get("Accept-Language")
}

// ServeHTTP handles all incoming HTTP requests for the /admin path.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.Logger.Info("admin handler invoked", "method", r.Method, "path", r.URL.Path)

	path := strings.TrimPrefix(r.URL.Path, "/admin")
	parts := strings.Split(strings.Trim(path, "/"), "/")

	if len(parts) == 0 || parts[0] == "" {
		if r.Method == http.MethodGet {
			h.handleStatus(w, r)
			return
		}
		http.NotFound(w, r)
		return
	}

	subPath := parts[1:]
	switch parts[0] {
	case "designs":
		DesignRoutes(h, w, r, subPath)
	case "maintenance":
		MaintenanceRoutes(h, w, r, subPath)
	case "settings":
		SettingsRoutes(h, w, r, subPath)
	default:
		http.NotFound(w, r)
	}
}

// handleStatus serves the panel bootstrap payload.
func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	infos, err := h.Designer.Designs()
	if err != nil {
		h.respondError(w, r, http.StatusInternalServerError, "Failed to retrieve designs: %s", err.Error())
		return
	}

	settings, err := h.Store.GetAllSettings()
	if err != nil {
		h.respondError(w, r, http.StatusInternalServerError, "Failed to retrieve settings: %s", err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"version":   h.Version,
		"designs":   len(infos),
		"languages": h.I18n.Languages(),
		"settings":  settings,
	})
}

// SettingsRoutes handles routing for /admin/settings/* paths.
func SettingsRoutes(h *Handler, w http.ResponseWriter, r *http.Request, parts []string) {
	if r.Method == http.MethodGet && (len(parts) == 0 || (len(parts) == 1 && parts[0] == "")) {
		h.handleGetSettings(w, r)
		return
	}

	if r.Method == http.MethodPost && len(parts) == 1 && parts[0] == "update" {
		h.handleUpdateSettings(w, r)
		return
	}

	http.NotFound(w, r)
}

func (h *Handler) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Store.GetAllSettings()
	if err != nil {
		h.respondError(w, r, http.StatusInternalServerError, "Failed to retrieve settings: %s", err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"settings":  settings,
		"languages": h.I18n.Languages(),
	})
}

// handleUpdateSettings saves application-wide settings.
func (h *Handler) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Invalid request body.")
		return
	}

	for key, value := range req {
		if err := h.Store.SetSetting(key, value); err != nil {
			h.respondError(w, r, http.StatusInternalServerError, "Failed to save settings: %s", err.Error())
			return
		}
	}

	h.Logger.Info("settings updated", "count", len(req))
	lang := h.determineLanguage(r)
	h.respondJSON(w, http.StatusOK, map[string]string{
		"message": h.I18n.Sprintf(lang, "Settings updated successfully."),
	})
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.Logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, status int, message string, args ...interface{}) {
	lang := h.determineLanguage(r)
	h.respondJSON(w, status, map[string]string{"error": h.I18n.Sprintf(lang, message, args...)})
}

// designOr404 fetches the design, responding itself when the design is
// unknown. Callers stop when it returns nil.
func (h *Handler) designOr404(w http.ResponseWriter, r *http.Request, designID string) *storage.Design {
	design, err := h.Designer.Design(designID)
	if err != nil {
		h.Logger.Error("failed to get design", "error", err, "design_id", designID)
		h.respondError(w, r, http.StatusInternalServerError, "Failed to retrieve design: %s", err.Error())
		return nil
	}
	if design == nil {
		h.respondError(w, r, http.StatusNotFound, "Design not found.")
		return nil
	}
	return design
}

// matchesQuery reports whether the name matches the search box filter.
func matchesQuery(name, q string) bool {
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(name), strings.ToLower(q))
}
