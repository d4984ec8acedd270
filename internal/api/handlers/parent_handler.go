package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"attendr/internal/pkg/errors"
	"attendr/internal/pkg/validator"
	"attendr/internal/platform/audit"
	"attendr/internal/platform/models"
	"attendr/internal/platform/repositories"
)

type ParentHandler struct {
	userRepo   *repositories.UserRepository
	parentRepo *repositories.ParentRepository
	audit      auditTrail
}

func NewParentHandler(userRepo *repositories.UserRepository, parentRepo *repositories.ParentRepository) *ParentHandler {
	return &ParentHandler{userRepo: userRepo, parentRepo: parentRepo}
}

// WithAudit records parent profile changes through a.
func (h *ParentHandler) WithAudit(a Auditor) *ParentHandler {
	h.audit.auditor = a
	return h
}

type CreateParentRequest struct {
	UserID            string   `json:"user_id"`
	StudentIDs        []string `json:"student_ids"`
	Phone             string   `json:"phone"`
	NotificationEmail string   `json:"notification_email"`
}

// requireRole loads id and checks it has role. It writes the 404 itself.
func (h *ParentHandler) requireRole(w http.ResponseWriter, id, role, notFound string) (*models.User, bool) {
	user, err := h.userRepo.GetByID(id)
	if err != nil {
		errors.Internal(w, err, "Database error")
		return nil, false
	}
	if user == nil || user.Role != role {
		errors.NotFound(w, notFound)
		return nil, false
	}
	return user, true
}

func normalizeOptionalEmail(email string) (string, error) {
	if strings.TrimSpace(email) == "" {
		return "", nil
	}
	return validator.NormalizeEmail(email)
}

func (h *ParentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateParentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.Invalid(w, "Invalid request body")
		return
	}

	email, err := normalizeOptionalEmail(req.NotificationEmail)
	if err != nil {
		errors.Invalid(w, err.Error())
		return
	}
	if _, ok := h.requireRole(w, req.UserID, models.RoleParent, "Parent not found"); !ok {
		return
	}
	for _, sid := range req.StudentIDs {
		if _, ok := h.requireRole(w, sid, models.RoleStudent, "Student not found: "+sid); !ok {
			return
		}
	}

	now := time.Now().Unix()
	if err := h.parentRepo.Save(&models.Parent{
		UserID:            req.UserID,
		StudentIDs:        req.StudentIDs,
		Phone:             strings.TrimSpace(req.Phone),
		NotificationEmail: email,
		CreatedAt:         now,
		UpdatedAt:         now,
	}); err != nil {
		log.Error().Err(err).Str("parent_id", req.UserID).Msg("failed to save parent")
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to save parent", nil)
		return
	}

	parent, err := h.parentRepo.Get(req.UserID)
	if err != nil || parent == nil {
		errors.Internal(w, err, "Database error")
		return
	}
	h.audit.record(r, audit.ActionParentSaved, "parent", parent.UserID, map[string]interface{}{"students": parent.StudentIDs})
	writeJSON(w, http.StatusCreated, parent)
}

type LinkRequest struct {
	ParentUserID      string `json:"parent_user_id"`
	StudentID         string `json:"student_id"`
	NotificationEmail string `json:"notification_email"`
}

type LinkResponse struct {
	Message           string `json:"message"`
	Parent            string `json:"parent"`
	Student           string `json:"student"`
	NotificationEmail string `json:"notification_email"`
}

// Link adds a student to a parent's set, creating the parent profile on
// first use. Fields may come as a JSON body or as query parameters.
func (h *ParentHandler) Link(w http.ResponseWriter, r *http.Request) {
	var req LinkRequest
	if r.ContentLength != 0 && r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			errors.Invalid(w, "Invalid request body")
			return
		}
	}
	q := r.URL.Query()
	if req.ParentUserID == "" {
		req.ParentUserID = q.Get("parent_user_id")
	}
	if req.StudentID == "" {
		req.StudentID = q.Get("student_id")
	}
	if req.NotificationEmail == "" {
		req.NotificationEmail = q.Get("notification_email")
	}

	if req.ParentUserID == "" || req.StudentID == "" {
		errors.Invalid(w, "parent_user_id and student_id are required")
		return
	}
	email, err := normalizeOptionalEmail(req.NotificationEmail)
	if err != nil {
		errors.Invalid(w, err.Error())
		return
	}

	parent, ok := h.requireRole(w, req.ParentUserID, models.RoleParent, "Parent not found")
	if !ok {
		return
	}
	student, ok := h.requireRole(w, req.StudentID, models.RoleStudent, "Student not found")
	if !ok {
		return
	}

	now := time.Now().Unix()
	if err := h.parentRepo.Save(&models.Parent{
		UserID:            parent.ID,
		StudentIDs:        []string{student.ID},
		NotificationEmail: email,
		CreatedAt:         now,
		UpdatedAt:         now,
	}); err != nil {
		log.Error().Err(err).Str("parent_id", parent.ID).Str("student_id", student.ID).Msg("failed to link parent")
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to link parent", nil)
		return
	}

	if email == "" {
		email = parent.Email
	}
	log.Info().Str("parent_id", parent.ID).Str("student_id", student.ID).Msg("parent linked")
	h.audit.record(r, audit.ActionParentLinked, "parent", parent.ID, map[string]interface{}{"student_id": student.ID})
	writeJSON(w, http.StatusOK, LinkResponse{
		Message:           "Vinculación exitosa",
		Parent:            parent.FullName,
		Student:           student.FullName,
		NotificationEmail: email,
	})
}

func (h *ParentHandler) Get(w http.ResponseWriter, r *http.Request) {
	parent, err := h.parentRepo.Get(param(r, "user_id"))
	if err != nil {
		errors.Internal(w, err, "Database error")
		return
	}
	if parent == nil {
		errors.NotFound(w, "Parent not found")
		return
	}
	writeJSON(w, http.StatusOK, parent)
}

func (h *ParentHandler) Students(w http.ResponseWriter, r *http.Request) {
	id := param(r, "user_id")
	parent, err := h.parentRepo.Get(id)
	if err != nil {
		errors.Internal(w, err, "Database error")
		return
	}
	if parent == nil {
		errors.NotFound(w, "Parent not found")
		return
	}

	students, err := h.parentRepo.ListStudents(id)
	if err != nil {
		errors.Internal(w, err, "Database error")
		return
	}
	writeJSON(w, http.StatusOK, students)
}

func (h *ParentHandler) ByStudent(w http.ResponseWriter, r *http.Request) {
	contacts, err := h.parentRepo.ListContactsByStudent(param(r, "student_id"))
	if err != nil {
		errors.Internal(w, err, "Database error")
		return
	}
	writeJSON(w, http.StatusOK, contacts)
}
