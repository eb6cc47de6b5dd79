package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"example.com/ranking/internal/auth"
	"example.com/ranking/internal/domain"
	"example.com/ranking/internal/persistence"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	// multipartOverhead leaves room for form fields next to the attachment.
	multipartOverhead = 64 << 10
)

func (h *Handler) submissions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.submitProof(w, r)
	case http.MethodGet:
		h.listSubmissions(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (h *Handler) submissionByID(w http.ResponseWriter, r *http.Request) {
	id, action := splitID(r.URL.Path, "/v1/submissions/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing submission id")
		return
	}

	switch {
	case action == "review" && r.Method == http.MethodPost:
		h.reviewSubmission(w, r, id)
	case action == "attachment" && r.Method == http.MethodGet:
		h.downloadAttachment(w, r, id)
	case action != "":
		writeError(w, http.StatusNotFound, "not_found", "unknown resource")
	case r.Method == http.MethodGet:
		h.getSubmission(w, r, id)
	case r.Method == http.MethodDelete:
		h.deleteSubmission(w, r, id)
	default:
		methodNotAllowed(w)
	}
}

func (h *Handler) submitProof(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxAttachmentBytes+multipartOverhead)
	if err := r.ParseMultipartForm(h.maxAttachmentBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "attachment exceeds the size limit")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_request", "expected multipart/form-data body")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	activityID := strings.TrimSpace(r.FormValue("activity_id"))
	unitID := strings.TrimSpace(r.FormValue("unit_id"))
	if activityID == "" || unitID == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "activity_id and unit_id are required")
		return
	}
	if !auth.CanSubmitFor(claims, unitID) {
		writeError(w, http.StatusForbidden, "forbidden", "actor may only submit for its own unit")
		return
	}
	if !h.uploads.Allow(claims.Subject) {
		writeError(w, http.StatusTooManyRequests, "rate_limited", "too many uploads, retry later")
		return
	}

	opts, err := ifMatch(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	in := domain.SubmitProofInput{ActivityID: activityID, UnitID: unitID}
	if _, present := r.MultipartForm.Value["description"]; present {
		in.Description = sanitizeOptional(domain.Ptr(r.FormValue("description")))
	}

	file, header, err := r.FormFile("attachment")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to read attachment")
		return
	default:
		defer file.Close()
		if header.Size > h.maxAttachmentBytes {
			writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "attachment exceeds the size limit")
			return
		}
		data, err := io.ReadAll(file)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "unable to read attachment")
			return
		}
		in.Attachment = &domain.Attachment{ContentType: header.Header.Get("Content-Type"), Data: data}
	}

	sub, err := h.service.SubmitProof(r.Context(), in, opts...)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.logger.Info("proof submitted",
		zap.String("submission_id", sub.ID),
		zap.String("activity_id", sub.ActivityID),
		zap.String("unit_id", sub.UnitID),
		zap.String("actor", claims.Subject),
	)

	status := http.StatusOK
	if sub.Version == 1 {
		status = http.StatusCreated
	}
	w.Header().Set("ETag", etag(sub.Version))
	writeJSON(w, status, toSubmissionView(*sub))
}

func (h *Handler) listSubmissions(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := domain.SubmissionFilter{
		Status:     domain.SubmissionStatus(strings.ToUpper(strings.TrimSpace(q.Get("status")))),
		UnitID:     strings.TrimSpace(q.Get("unit_id")),
		ActivityID: strings.TrimSpace(q.Get("activity_id")),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		writeError(w, http.StatusBadRequest, "validation_failed", "unknown status filter")
		return
	}
	if raw := q.Get("submitted_on"); raw != "" {
		day, err := parseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", "submitted_on must be YYYY-MM-DD")
			return
		}
		filter.SubmittedOn = day
	}
	if visible := auth.VisibleUnit(claims); visible != "" {
		if filter.UnitID != "" && filter.UnitID != visible {
			writeError(w, http.StatusForbidden, "forbidden", "actor may only list its own unit")
			return
		}
		filter.UnitID = visible
	}

	limit := defaultPageSize
	if raw := q.Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = min(parsed, maxPageSize)
		}
	}

	cursor, err := persistence.DecodeCursor(q.Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid cursor")
		return
	}

	subs, next, err := h.service.ListSubmissions(r.Context(), filter, cursor, limit)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	resp := ListSubmissionsResponse{
		Items:      make([]SubmissionView, 0, len(subs)),
		NextCursor: persistence.EncodeCursor(next),
	}
	for _, sub := range subs {
		resp.Items = append(resp.Items, toSubmissionView(sub))
	}
	writeJSON(w, http.StatusOK, resp)
}

// visibleSubmission loads the submission and checks the actor may see it.
func (h *Handler) visibleSubmission(w http.ResponseWriter, r *http.Request, id string) (*auth.Claims, *domain.ProofSubmission, bool) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return nil, nil, false
	}
	sub, err := h.service.GetSubmission(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return nil, nil, false
	}
	if visible := auth.VisibleUnit(claims); visible != "" && visible != sub.UnitID {
		writeError(w, http.StatusForbidden, "forbidden", "submission belongs to another unit")
		return nil, nil, false
	}
	return claims, sub, true
}

func (h *Handler) getSubmission(w http.ResponseWriter, r *http.Request, id string) {
	_, sub, ok := h.visibleSubmission(w, r, id)
	if !ok {
		return
	}
	w.Header().Set("ETag", etag(sub.Version))
	writeJSON(w, http.StatusOK, toSubmissionView(*sub))
}

func (h *Handler) deleteSubmission(w http.ResponseWriter, r *http.Request, id string) {
	claims, sub, ok := h.visibleSubmission(w, r, id)
	if !ok {
		return
	}
	if !auth.CanSubmitFor(claims, sub.UnitID) {
		writeError(w, http.StatusForbidden, "forbidden", "actor may only withdraw its own unit's proofs")
		return
	}
	if err := h.service.DeleteSubmission(r.Context(), id); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) reviewSubmission(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := requireManager(w, r)
	if !ok {
		return
	}

	var req ReviewRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	opts, err := ifMatch(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	decision := domain.ReviewDecision{
		ReviewerID:              claims.Subject,
		Outcome:                 domain.ReviewOutcome(strings.ToUpper(strings.TrimSpace(req.Outcome))),
		AdjustedBasePoints:      req.AdjustedBasePoints,
		AdjustedBonusPoints:     req.AdjustedBonusPoints,
		AdjustmentJustification: sanitizeText(req.AdjustmentJustification),
		RejectionJustification:  sanitizeText(req.RejectionJustification),
	}
	if req.ReviewedAt != nil {
		decision.ReviewedAt = *req.ReviewedAt
	}

	sub, err := h.service.ReviewSubmission(r.Context(), id, decision, opts...)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.logger.Info("proof reviewed",
		zap.String("submission_id", sub.ID),
		zap.String("outcome", string(decision.Outcome)),
		zap.String("reviewer", claims.Subject),
	)
	w.Header().Set("ETag", etag(sub.Version))
	writeJSON(w, http.StatusOK, toSubmissionView(*sub))
}

func (h *Handler) downloadAttachment(w http.ResponseWriter, r *http.Request, id string) {
	if _, _, ok := h.visibleSubmission(w, r, id); !ok {
		return
	}
	data, err := h.service.LoadAttachment(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if data == nil {
		writeError(w, http.StatusNotFound, "no_attachment", "submission has no image")
		return
	}
	w.Header().Set("Content-Type", domain.DetectMediaType(data))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
