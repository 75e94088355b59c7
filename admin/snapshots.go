package admin

import (
	"net/http"

	"mq-designer/storage"
)

// SnapshotRoutes handles routing for /admin/designs/{id}/snapshots/* paths.
// Snapshots have no delete endpoint, retention pruning removes old ones.
func SnapshotRoutes(h *Handler, w http.ResponseWriter, r *http.Request, designID string, parts []string) {
	if r.Method == http.MethodGet {
		if len(parts) == 0 || (len(parts) == 1 && parts[0] == "") {
			h.handleListSnapshots(w, r, designID)
			return
		}
		if len(parts) == 1 {
			h.handleViewSnapshot(w, r, designID, parts[0])
			return
		}
	}

	if r.Method == http.MethodPost {
		if len(parts) == 1 && parts[0] == "create" {
			h.handleCreateSnapshot(w, r, designID)
			return
		}
		if len(parts) == 2 && parts[1] == "restore" {
			h.handleRestoreSnapshot(w, r, designID, parts[0])
			return
		}
	}

	http.NotFound(w, r)
}

func (h *Handler) snapshotOr404(w http.ResponseWriter, r *http.Request, designID, snapshotID string) *storage.Snapshot {
	snapshot, err := h.Store.GetSnapshotByID(snapshotID)
	if err != nil {
		h.respondError(w, r, http.StatusInternalServerError, "Failed to retrieve snapshot: %s", err.Error())
		return nil
	}
	if snapshot == nil || snapshot.DesignID != designID {
		h.respondError(w, r, http.StatusNotFound, "Snapshot not found.")
		return nil
	}
	return snapshot
}

func (h *Handler) handleListSnapshots(w http.ResponseWriter, r *http.Request, designID string) {
	if h.designOr404(w, r, designID) == nil {
		return
	}

	snapshots, err := h.Designer.Snapshots(designID)
	if err != nil {
		h.respondError(w, r, http.StatusInternalServerError, "Failed to retrieve snapshots: %s", err.Error())
		return
	}

	// The listing omits documents, they can run large. Fetch one snapshot
	// by ID to get its document.
	type snapshotInfo struct {
		ID        string `json:"id"`
		DesignID  string `json:"design_id"`
		CreatedAt string `json:"created_at"`
		Size      int    `json:"size"`
	}
	result := make([]snapshotInfo, 0, len(snapshots))
	for _, sn := range snapshots {
		result = append(result, snapshotInfo{
			ID:        sn.ID,
			DesignID:  sn.DesignID,
			CreatedAt: sn.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
			Size:      len(sn.Document),
		})
	}

	h.respondJSON(w, http.StatusOK, result)
}

func (h *Handler) handleViewSnapshot(w http.ResponseWriter, r *http.Request, designID, snapshotID string) {
	if h.designOr404(w, r, designID) == nil {
		return
	}

	snapshot := h.snapshotOr404(w, r, designID, snapshotID)
	if snapshot == nil {
		return
	}

	h.respondJSON(w, http.StatusOK, snapshot)
}

func (h *Handler) handleCreateSnapshot(w http.ResponseWriter, r *http.Request, designID string) {
	if h.designOr404(w, r, designID) == nil {
		return
	}

	snapshot, err := h.Designer.SaveSnapshot(designID)
	if err != nil {
		h.respondError(w, r, http.StatusInternalServerError, "Failed to save snapshot: %s", err.Error())
		return
	}

	h.Logger.Info("snapshot saved successfully", "design_id", designID, "snapshot_id", snapshot.ID)
	h.respondJSON(w, http.StatusCreated, snapshot)
}

func (h *Handler) handleRestoreSnapshot(w http.ResponseWriter, r *http.Request, designID, snapshotID string) {
	if h.designOr404(w, r, designID) == nil {
		return
	}

	if h.snapshotOr404(w, r, designID, snapshotID) == nil {
		return
	}

	if err := h.Designer.RestoreSnapshot(designID, snapshotID); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Failed to restore snapshot: %s", err.Error())
		return
	}

	h.Logger.Info("snapshot restored successfully", "design_id", designID, "snapshot_id", snapshotID)
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "restored"})
}
