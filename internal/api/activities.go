package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"example.com/ranking/internal/domain"
)

const (
	maxActivityNameLen        = 120
	maxActivityDescriptionLen = 500
)

func (h *Handler) activities(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createActivity(w, r)
	case http.MethodGet:
		h.listActivities(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (h *Handler) activityByID(w http.ResponseWriter, r *http.Request) {
	id, action := splitID(r.URL.Path, "/v1/activities/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing activity id")
		return
	}

	switch {
	case action == "status" && r.Method == http.MethodGet:
		h.activityStatus(w, r, id)
	case action != "":
		writeError(w, http.StatusNotFound, "not_found", "unknown resource")
	case r.Method == http.MethodGet:
		h.getActivity(w, r, id)
	case r.Method == http.MethodPut:
		h.updateActivity(w, r, id)
	case r.Method == http.MethodDelete:
		h.deleteActivity(w, r, id)
	default:
		methodNotAllowed(w)
	}
}

// toInput validates request shape and converts it into domain input. Range checks are left to the domain.
func (req ActivityRequest) toInput() (domain.ActivityInput, error) {
	name := sanitizeText(req.Name)
	description := sanitizeText(req.Description)
	if len([]rune(name)) > maxActivityNameLen {
		return domain.ActivityInput{}, errors.New("name must be at most 120 characters")
	}
	if len([]rune(description)) > maxActivityDescriptionLen {
		return domain.ActivityInput{}, errors.New("description must be at most 500 characters")
	}
	start, err := parseDate(req.WindowStart)
	if err != nil {
		return domain.ActivityInput{}, errors.New("window_start must be YYYY-MM-DD")
	}
	end, err := parseDate(req.WindowEnd)
	if err != nil {
		return domain.ActivityInput{}, errors.New("window_end must be YYYY-MM-DD")
	}
	return domain.ActivityInput{
		Name:        name,
		Description: description,
		WindowStart: start,
		WindowEnd:   end,
		BasePoints:  req.BasePoints,
		BonusPoints: req.BonusPoints,
	}, nil
}

func parseDate(raw string) (time.Time, error) {
	return time.Parse(time.DateOnly, strings.TrimSpace(raw))
}

func (h *Handler) createActivity(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireManager(w, r); !ok {
		return
	}

	var req ActivityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	activity, err := h.service.CreateActivity(r.Context(), in)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toActivityView(*activity))
}

func (h *Handler) updateActivity(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := requireManager(w, r); !ok {
		return
	}

	var req ActivityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	activity, err := h.service.UpdateActivity(r.Context(), id, in)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toActivityView(*activity))
}

func (h *Handler) deleteActivity(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := requireManager(w, r); !ok {
		return
	}
	if err := h.service.DeleteActivity(r.Context(), id); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getActivity(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := requireClaims(w, r); !ok {
		return
	}
	activity, err := h.service.GetActivity(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toActivityView(*activity))
}

func (h *Handler) listActivities(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireClaims(w, r); !ok {
		return
	}
	activities, err := h.service.ListActivities(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	resp := ListActivitiesResponse{Items: make([]ActivityView, 0, len(activities))}
	for _, a := range activities {
		resp.Items = append(resp.Items, toActivityView(a))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) activityStatus(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := requireClaims(w, r); !ok {
		return
	}
	snap, err := h.service.Snapshot(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	status, err := domain.ActivityStatusIn(snap, id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	resp := ActivityStatusView{ActivityID: id, Status: string(status), Units: make([]UnitStatusView, 0, len(snap.Units))}
	for _, u := range snap.Units {
		resp.Units = append(resp.Units, UnitStatusView{UnitID: u.ID, Status: string(domain.StatusIn(snap, id, u.ID))})
	}
	writeJSON(w, http.StatusOK, resp)
}
