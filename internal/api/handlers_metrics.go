package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mehedi/hookpulse/internal/metrics"
	"github.com/mehedi/hookpulse/internal/models"
)

type MetricsHandler struct {
	recorder *metrics.Recorder
}

func NewMetricsHandler(recorder *metrics.Recorder) *MetricsHandler {
	return &MetricsHandler{recorder: recorder}
}

func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	acc := AccountFromContext(r.Context())
	if acc == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	m, err := h.recorder.Metrics(r.Context(), acc.ID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get metrics")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *MetricsHandler) Executions(w http.ResponseWriter, r *http.Request) {
	acc := AccountFromContext(r.Context())
	if acc == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	execs, err := h.recorder.RecentExecutions(r.Context(), acc.ID, chi.URLParam(r, "id"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list executions")
		return
	}
	if execs == nil {
		execs = []models.Execution{}
	}
	writeJSON(w, http.StatusOK, execs)
}

func (h *MetricsHandler) DailyStats(w http.ResponseWriter, r *http.Request) {
	acc := AccountFromContext(r.Context())
	if acc == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	stats, err := h.recorder.DailyStats(r.Context(), acc.ID, chi.URLParam(r, "id"), days)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get daily stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
