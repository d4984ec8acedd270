package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"attendr/internal/pkg/errors"
	"attendr/internal/pkg/validator"
	"attendr/internal/platform/audit"
	"attendr/internal/platform/auth"
	"attendr/internal/platform/models"
	"attendr/internal/platform/repositories"
)

type AuthHandler struct {
	userRepo       *repositories.UserRepository
	tokenSvc       *auth.TokenService
	institutionTag string
	audit          auditTrail
}

func NewAuthHandler(userRepo *repositories.UserRepository, tokenSvc *auth.TokenService, institutionTag string) *AuthHandler {
	return &AuthHandler{
		userRepo:       userRepo,
		tokenSvc:       tokenSvc,
		institutionTag: institutionTag,
	}
}

// WithAudit records registrations through a.
func (h *AuthHandler) WithAudit(a Auditor) *AuthHandler {
	h.audit.auditor = a
	return h
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
	Category string `json:"category"`
	PhotoURL string `json:"photo_url"`
}

// userCode is the printed identifier assigned at registration. Students get
// a reserved sequence number; staff codes derive from the user id.
func userCode(tag, role, id string, number int) string {
	short := strings.ToUpper(id)
	if len(short) > 6 {
		short = short[:6]
	}
	switch role {
	case models.RoleStudent:
		return fmt.Sprintf("%s-%04d", tag, number)
	case models.RoleTeacher:
		return "DOC" + short
	case models.RoleAdmin:
		return "ADM" + short
	case models.RoleStaff:
		return "PER" + short
	}
	return ""
}

// Register creates a user of any role. Admin only.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.Invalid(w, "Invalid request body")
		return
	}
	h.register(w, r, req, false)
}

// Bootstrap creates the first admin account. It is refused once any admin
// exists.
func (h *AuthHandler) Bootstrap(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.Invalid(w, "Invalid request body")
		return
	}
	req.Role = models.RoleAdmin
	h.register(w, r, req, true)
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request, req RegisterRequest, bootstrap bool) {
	email, err := validator.NormalizeEmail(req.Email)
	if err != nil {
		errors.Invalid(w, err.Error())
		return
	}
	if err := validator.Password(req.Password); err != nil {
		errors.Invalid(w, err.Error())
		return
	}
	if strings.TrimSpace(req.FullName) == "" {
		errors.Invalid(w, "full_name is required")
		return
	}
	if !models.ValidRole(req.Role) {
		errors.Invalid(w, "Invalid role")
		return
	}

	existing, err := h.userRepo.GetByEmail(email)
	if err != nil {
		errors.Internal(w, err, "Database error")
		return
	}
	if existing != nil {
		errors.Conflict(w, "Email already registered")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		errors.Internal(w, err, "Failed to hash password")
		return
	}

	now := time.Now().Unix()
	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(req.FullName),
		Role:         req.Role,
		PhotoURL:     req.PhotoURL,
		Category:     req.Category,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// student numbering and the bootstrap check read inside the insert
	// transaction
	tx, err := h.userRepo.BeginTx()
	if err != nil {
		errors.Internal(w, err, "Database error")
		return
	}
	defer tx.Rollback()

	if bootstrap {
		admins, err := h.userRepo.CountByRoleTx(tx, models.RoleAdmin)
		if err != nil {
			errors.Internal(w, err, "Database error")
			return
		}
		if admins > 0 {
			errors.WriteError(w, http.StatusForbidden, errors.ErrCodeForbidden, "Already bootstrapped", nil)
			return
		}
	}

	number := 0
	if user.Role == models.RoleStudent {
		if number, err = h.userRepo.NextStudentNumberTx(tx, h.institutionTag); err != nil {
			errors.Internal(w, err, "Database error")
			return
		}
	}
	user.Code = userCode(h.institutionTag, user.Role, user.ID, number)
	if !models.ValidCode(user.Code) {
		log.Warn().Str("code", user.Code).Msg("generated code does not fit on a card")
		errors.Conflict(w, fmt.Sprintf("No free code of at most %d characters for tag %s", models.MaxCodeLength, h.institutionTag))
		return
	}

	if err := h.userRepo.CreateTx(tx, user); err != nil {
		log.Error().Err(err).Str("email", email).Msg("failed to create user")
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to create user", nil)
		return
	}
	if err := tx.Commit(); err != nil {
		errors.Internal(w, err, "Database error")
		return
	}

	log.Info().Str("user_id", user.ID).Str("role", user.Role).Str("code", user.Code).Msg("user registered")
	h.audit.record(r, audit.ActionUserCreated, "user", user.ID, map[string]interface{}{
		"role":      user.Role,
		"bootstrap": bootstrap,
	})
	writeJSON(w, http.StatusCreated, user)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	User         *models.User `json:"user"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.Invalid(w, "Invalid request body")
		return
	}

	user, err := h.userRepo.GetByEmail(strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		errors.Internal(w, err, "Database error")
		return
	}
	if user == nil || !auth.VerifyPassword(req.Password, user.PasswordHash) {
		errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Invalid email or password", nil)
		return
	}

	if auth.NeedsRehash(user.PasswordHash) {
		if hash, err := auth.HashPassword(req.Password); err == nil {
			if err := h.userRepo.UpdatePassword(user.ID, hash, time.Now().Unix()); err != nil {
				log.Error().Err(err).Str("user_id", user.ID).Msg("failed to upgrade password hash")
			}
		}
	}

	accessToken, err := h.tokenSvc.GenerateAccessToken(user.ID, user.Role, user.Email)
	if err != nil {
		errors.Internal(w, err, "Failed to generate token")
		return
	}

	refreshToken, err := h.tokenSvc.GenerateRefreshToken(user.ID)
	if err != nil {
		errors.Internal(w, err, "Failed to generate token")
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
		User:         user,
	})
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type RefreshResponse struct {
	AccessToken string `json:"access_token"`
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.Invalid(w, "Invalid request body")
		return
	}

	userID, err := h.tokenSvc.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Invalid refresh token", nil)
		return
	}

	// role may have changed since the refresh token was issued
	user, err := h.userRepo.GetByID(userID)
	if err != nil {
		errors.Internal(w, err, "Database error")
		return
	}
	if user == nil {
		errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "User not found", nil)
		return
	}

	accessToken, err := h.tokenSvc.GenerateAccessToken(user.ID, user.Role, user.Email)
	if err != nil {
		errors.Internal(w, err, "Failed to generate token")
		return
	}

	writeJSON(w, http.StatusOK, RefreshResponse{AccessToken: accessToken})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	user, err := h.userRepo.GetByID(claims.UserID)
	if err != nil {
		errors.Internal(w, err, "Database error")
		return
	}
	if user == nil {
		errors.NotFound(w, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}
