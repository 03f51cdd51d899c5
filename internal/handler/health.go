package handler

import "net/http"

// GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	snap := h.service.Snapshot()
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Items:  snap.CountItems(),
		Users:  snap.CountUsers(),
		Model:  h.service.ModelName(),
	})
}
