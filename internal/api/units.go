package api

import (
	"net/http"
)

func (h *Handler) units(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	if _, ok := requireClaims(w, r); !ok {
		return
	}
	units, err := h.service.ListUnits(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	resp := ListUnitsResponse{Items: make([]UnitView, 0, len(units))}
	for _, u := range units {
		resp.Items = append(resp.Items, toUnitView(u))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) unitByID(w http.ResponseWriter, r *http.Request) {
	id, action := splitID(r.URL.Path, "/v1/units/")
	switch {
	case id == "":
		writeError(w, http.StatusBadRequest, "invalid_request", "missing unit id")
		return
	case action != "":
		writeError(w, http.StatusNotFound, "not_found", "unknown resource")
		return
	case r.Method != http.MethodGet:
		methodNotAllowed(w)
		return
	}
	if _, ok := requireClaims(w, r); !ok {
		return
	}
	unit, err := h.service.GetUnit(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUnitView(*unit))
}
