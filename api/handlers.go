/*
handlers.go - Status endpoint implementations

PURPOSE:
  Read-only operational endpoints over the bot's store: counters for
  monitoring and the recent report run history.

SEE ALSO:
  - server.go: Route wiring
  - store/sqlite/sqlite.go: The counters' source of truth
*/
package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/relay/timesheet-bot/store/sqlite"
)

const defaultReportLimit = 20

// Handler holds the dependencies of the status endpoints.
type Handler struct {
	store     *sqlite.Store
	startedAt time.Time
}

// NewHandler creates a status handler over the store.
func NewHandler(store *sqlite.Store) *Handler {
	return &Handler{store: store, startedAt: time.Now()}
}

// =============================================================================
// HANDLERS
// =============================================================================

// Health is the liveness probe.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Status reports bot counters.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sessions, err := h.store.CountSessions(ctx)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to count sessions")
		return
	}
	users, err := h.store.CountCredentials(ctx)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to count users")
		return
	}
	reports, err := h.store.CountReportRuns(ctx)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to count reports")
		return
	}

	respondJSON(w, http.StatusOK, StatusResponse{
		UptimeSeconds:      int64(time.Since(h.startedAt).Seconds()),
		ActiveSessions:     sessions,
		AuthenticatedUsers: users,
		ReportsGenerated:   reports,
	})
}

// ListReports returns the most recent report runs, newest first.
// Query param "limit" caps the result (default 20).
func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	limit := defaultReportLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	runs, err := h.store.RecentReportRuns(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list report runs")
		return
	}

	out := make([]ReportRunResponse, len(runs))
	for i, run := range runs {
		out[i] = ReportRunResponse{
			ID:          run.ID,
			Projects:    run.Projects,
			PeriodStart: run.PeriodStart,
			PeriodEnd:   run.PeriodEnd,
			RowCount:    run.RowCount,
			TotalHours:  run.TotalHours,
			Filename:    run.Filename,
			CreatedAt:   run.CreatedAt.Format(time.RFC3339),
		}
	}
	respondJSON(w, http.StatusOK, out)
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("api: failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}
