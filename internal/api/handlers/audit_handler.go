package handlers

import (
	"net/http"
	"strconv"

	"attendr/internal/pkg/errors"
	"attendr/internal/platform/audit"
)

type AuditHandler struct {
	logger *audit.Logger
}

func NewAuditHandler(logger *audit.Logger) *AuditHandler {
	return &AuditHandler{logger: logger}
}

// List returns recent admin actions, newest first. Query: action, limit.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			errors.Invalid(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := h.logger.List(q.Get("action"), limit)
	if err != nil {
		errors.Internal(w, err, "Database error")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
