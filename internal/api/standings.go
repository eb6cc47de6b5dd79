package api

import (
	"net/http"
	"strings"
	"time"

	"example.com/ranking/internal/auth"
	"example.com/ranking/internal/observability"
	"example.com/ranking/internal/ranking"
)

func (h *Handler) ranking(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	if _, ok := requireClaims(w, r); !ok {
		return
	}

	q := r.URL.Query()
	var period ranking.Period
	if raw := strings.TrimSpace(q.Get("start")); raw != "" {
		start, err := parseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", "start must be YYYY-MM-DD")
			return
		}
		period.Start = &start
	}
	if raw := strings.TrimSpace(q.Get("end")); raw != "" {
		end, err := parseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", "end must be YYYY-MM-DD")
			return
		}
		period.End = &end
	}
	if period.Start != nil && period.End != nil && period.End.Before(*period.Start) {
		writeError(w, http.StatusBadRequest, "validation_failed", "end must not precede start")
		return
	}

	snap, err := h.service.Snapshot(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	started := time.Now()
	entries := ranking.FromSnapshot(snap, &period)
	observability.ObserveRanking(time.Since(started))

	resp := RankingResponse{Entries: make([]RankingEntryView, 0, len(entries))}
	if period.Start != nil {
		resp.Start = period.Start.Format(time.DateOnly)
	}
	if period.End != nil {
		resp.End = period.End.Format(time.DateOnly)
	}
	for i, e := range entries {
		resp.Entries = append(resp.Entries, toRankingEntryView(i+1, e))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	snap, err := h.service.Snapshot(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	summary := ranking.Summarize(snap, auth.VisibleUnit(claims))
	resp := DashboardResponse{PendingReviews: summary.PendingReviews, Completed: summary.Completed}
	if summary.TopUnit != nil {
		top := toRankingEntryView(1, *summary.TopUnit)
		resp.TopUnit = &top
	}
	writeJSON(w, http.StatusOK, resp)
}
