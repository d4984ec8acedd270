package handlers

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"attendr/internal/engine/card"
	"attendr/internal/engine/qr"
	"attendr/internal/pkg/errors"
	"attendr/internal/pkg/validator"
	"attendr/internal/platform/audit"
	"attendr/internal/platform/models"
	"attendr/internal/platform/repositories"
)

var photoExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

type UserHandler struct {
	userRepo      *repositories.UserRepository
	assetsRoot    string
	maxUploadSize int64
	audit         auditTrail
}

func NewUserHandler(userRepo *repositories.UserRepository, assetsRoot string, maxUploadSize int64) *UserHandler {
	return &UserHandler{
		userRepo:      userRepo,
		assetsRoot:    assetsRoot,
		maxUploadSize: maxUploadSize,
	}
}

// WithAudit records updates, deletions and photo uploads through a.
func (h *UserHandler) WithAudit(a Auditor) *UserHandler {
	h.audit.auditor = a
	return h
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	role := r.URL.Query().Get("role")
	if role != "" && !models.ValidRole(role) {
		errors.Invalid(w, "Invalid role")
		return
	}

	users, err := h.userRepo.List(role)
	if err != nil {
		errors.Internal(w, err, "Database error")
		return
	}
	if users == nil {
		users = []*models.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := h.load(w, param(r, "user_id"))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) load(w http.ResponseWriter, id string) (*models.User, bool) {
	user, err := h.userRepo.GetByID(id)
	if err != nil {
		errors.Internal(w, err, "Database error")
		return nil, false
	}
	if user == nil {
		errors.NotFound(w, "User not found")
		return nil, false
	}
	return user, true
}

// UpdateUserRequest lists the mutable fields. id, password and created_at
// cannot be changed here.
type UpdateUserRequest struct {
	Email    *string `json:"email"`
	FullName *string `json:"full_name"`
	Role     *string `json:"role"`
	PhotoURL *string `json:"photo_url"`
	Code     *string `json:"code"`
	Category *string `json:"category"`
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.Invalid(w, "Invalid request body")
		return
	}

	user, ok := h.load(w, param(r, "user_id"))
	if !ok {
		return
	}

	if req.Email != nil {
		email, err := validator.NormalizeEmail(*req.Email)
		if err != nil {
			errors.Invalid(w, err.Error())
			return
		}
		if email != user.Email {
			other, err := h.userRepo.GetByEmail(email)
			if err != nil {
				errors.Internal(w, err, "Database error")
				return
			}
			if other != nil {
				errors.Conflict(w, "Email already registered")
				return
			}
		}
		user.Email = email
	}
	if req.Role != nil {
		if !models.ValidRole(*req.Role) {
			errors.Invalid(w, "Invalid role")
			return
		}
		user.Role = *req.Role
	}
	if req.FullName != nil {
		if strings.TrimSpace(*req.FullName) == "" {
			errors.Invalid(w, "full_name cannot be empty")
			return
		}
		user.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.PhotoURL != nil {
		user.PhotoURL = *req.PhotoURL
	}
	if req.Code != nil {
		code := strings.TrimSpace(*req.Code)
		if !models.ValidCode(code) {
			errors.Invalid(w, fmt.Sprintf("code must be at most %d characters", models.MaxCodeLength))
			return
		}
		if code != "" && !strings.EqualFold(code, user.Code) {
			other, err := h.userRepo.GetByCode(code)
			if err != nil && !stderrors.Is(err, repositories.ErrAmbiguousCode) {
				errors.Internal(w, err, "Database error")
				return
			}
			if err != nil || (other != nil && other.ID != user.ID) {
				errors.Conflict(w, "Code already assigned")
				return
			}
		}
		user.Code = code
	}
	if req.Category != nil {
		user.Category = *req.Category
	}
	user.UpdatedAt = time.Now().Unix()

	found, err := h.userRepo.Update(user)
	if err != nil {
		errors.Internal(w, err, "Failed to update user")
		return
	}
	if !found {
		errors.NotFound(w, "User not found")
		return
	}
	h.audit.record(r, audit.ActionUserUpdated, "user", user.ID, nil)
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := param(r, "user_id")
	found, err := h.userRepo.Delete(id)
	if err != nil {
		errors.Internal(w, err, "Failed to delete user")
		return
	}
	if !found {
		errors.NotFound(w, "User not found")
		return
	}
	log.Info().Str("user_id", id).Msg("user deleted")
	h.audit.record(r, audit.ActionUserDeleted, "user", id, nil)
	writeJSON(w, http.StatusOK, map[string]string{"message": "User deleted successfully"})
}

// UploadPhoto stores the multipart "file" as static/uploads/<id>.<ext> under
// the asset root and points the user's photo_url at it.
func (h *UserHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	user, ok := h.load(w, param(r, "user_id"))
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		errors.Invalid(w, "Missing or oversized file")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !photoExtensions[ext] {
		errors.Invalid(w, "Photo must be a JPEG or PNG image")
		return
	}

	dir := filepath.Join(h.assetsRoot, "static", "uploads")
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Error().Err(err).Str("dir", dir).Msg("failed to create upload directory")
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to store photo", nil)
		return
	}

	filename := user.ID + ext
	if err := writeFile(filepath.Join(dir, filename), file); err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("failed to store photo")
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to store photo", nil)
		return
	}

	photoURL := "/static/uploads/" + filename
	if _, err := h.userRepo.UpdatePhoto(user.ID, photoURL, time.Now().Unix()); err != nil {
		errors.Internal(w, err, "Database error")
		return
	}
	h.audit.record(r, audit.ActionPhotoUploaded, "user", user.ID, map[string]interface{}{"photo_url": photoURL})
	writeJSON(w, http.StatusOK, map[string]string{"photo_url": photoURL})
}

func writeFile(path string, src io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// QRCode returns the profile QR of a user as a PNG data URL.
func (h *UserHandler) QRCode(w http.ResponseWriter, r *http.Request) {
	user, ok := h.load(w, param(r, "user_id"))
	if !ok {
		return
	}
	url, err := qr.DataURL(user.ID)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, fmt.Sprintf("Failed to render QR code: %v", err), nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"user_id": user.ID, "qr_code": url})
}

func (h *UserHandler) Categories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{
		models.RoleStudent: card.Categories(models.RoleStudent),
		models.RoleStaff:   card.Categories(models.RoleStaff),
		models.RoleTeacher: card.Categories(models.RoleTeacher),
		models.RoleAdmin:   card.Categories(models.RoleAdmin),
	})
}
