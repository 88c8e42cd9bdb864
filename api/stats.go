package api

import "net/http"

func (h *Handler) getStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.relay.Stats(r.Context())
	if err != nil {
		writeRelayError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
