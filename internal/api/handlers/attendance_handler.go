package handlers

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"attendr/internal/engine/attendance"
	"attendr/internal/pkg/errors"
	"attendr/internal/platform/repositories"
)

type AttendanceHandler struct {
	svc *attendance.Service
}

func NewAttendanceHandler(svc *attendance.Service) *AttendanceHandler {
	return &AttendanceHandler{svc: svc}
}

type RecordRequest struct {
	QRData string `json:"qr_data"`
}

// Record registers a badge scan made by the authenticated user.
func (h *AttendanceHandler) Record(w http.ResponseWriter, r *http.Request) {
	var req RecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.Invalid(w, "Invalid request body")
		return
	}

	scan, err := h.svc.Record(r.Context(), req.QRData, claimsFrom(r).UserID)
	switch {
	case err == nil:
	case stderrors.Is(err, attendance.ErrEmptyScan):
		errors.Invalid(w, err.Error())
		return
	case stderrors.Is(err, attendance.ErrUserNotFound):
		errors.NotFound(w, "User not found")
		return
	case stderrors.Is(err, repositories.ErrAmbiguousCode):
		errors.Conflict(w, "Scanned code matches more than one user")
		return
	case stderrors.Is(err, attendance.ErrAlreadyCheckedOut):
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeConflict, "Already checked out today", nil)
		return
	default:
		log.Error().Err(err).Msg("failed to record attendance")
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to record attendance", nil)
		return
	}

	writeJSON(w, http.StatusOK, scan)
}

func (h *AttendanceHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := attendance.Filter{
		UserID: q.Get("user_id"),
		Date:   q.Get("date"),
		Role:   q.Get("role"),
	}
	if f.Date != "" && !validDate(f.Date) {
		errors.Invalid(w, "date must be YYYY-MM-DD")
		return
	}

	records, err := h.svc.List(f)
	if err != nil {
		errors.Internal(w, err, "Database error")
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *AttendanceHandler) Stats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, end := q.Get("start_date"), q.Get("end_date")
	for _, d := range []string{start, end} {
		if d != "" && !validDate(d) {
			errors.Invalid(w, "dates must be YYYY-MM-DD")
			return
		}
	}

	stats, err := h.svc.Stats(param(r, "user_id"), start, end)
	if err != nil {
		errors.Internal(w, err, "Database error")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *AttendanceHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Dashboard()
	if err != nil {
		errors.Internal(w, err, "Database error")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func validDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}
