package handlers

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"attendr/internal/engine/card"
	"attendr/internal/pkg/errors"
	"attendr/internal/pkg/metrics"
	"attendr/internal/platform/audit"
	"attendr/internal/platform/models"
	"attendr/internal/platform/repositories"
)

// CardRenderer produces the PDF bytes of one card.
type CardRenderer interface {
	Generate(in card.Input) ([]byte, error)
}

type CardHandler struct {
	userRepo *repositories.UserRepository
	renderer CardRenderer
	cache    *card.Cache
	audit    auditTrail
}

func NewCardHandler(userRepo *repositories.UserRepository, renderer CardRenderer) *CardHandler {
	return &CardHandler{userRepo: userRepo, renderer: renderer}
}

// WithCache serves repeat requests for an unchanged card from c.
func (h *CardHandler) WithCache(c *card.Cache) *CardHandler {
	h.cache = c
	return h
}

// WithAudit records generated cards through a.
func (h *CardHandler) WithAudit(a Auditor) *CardHandler {
	h.audit.auditor = a
	return h
}

// cardIdentifier is the stored code, or a role prefix and the start of the
// user id for accounts created without one.
func cardIdentifier(u *models.User) string {
	if u.Code != "" {
		return u.Code
	}
	short := strings.ToUpper(u.ID)
	if len(short) > 6 {
		short = short[:6]
	}
	switch u.Role {
	case models.RoleStudent:
		return "EST" + short
	case models.RoleTeacher:
		return "DOC" + short
	case models.RoleAdmin:
		return "ADM" + short
	}
	return "PER" + short
}

func (h *CardHandler) Generate(w http.ResponseWriter, r *http.Request) {
	user, err := h.userRepo.GetByID(param(r, "user_id"))
	if err != nil {
		errors.Internal(w, err, "Database error")
		return
	}
	if user == nil {
		metrics.CardsGenerated.WithLabelValues("not_found").Inc()
		errors.NotFound(w, "Usuario no encontrado")
		return
	}

	in := card.Input{
		Identifier:     cardIdentifier(user),
		DisplayName:    user.FullName,
		Role:           card.RoleFor(user.Role),
		Category:       user.Category,
		PhotoReference: user.PhotoURL,
	}

	var cacheKey string
	if h.cache != nil {
		cacheKey = h.cache.Key(in)
		if pdf, ok := h.cache.Get(cacheKey); ok {
			metrics.CardCacheLookups.WithLabelValues("hit").Inc()
			metrics.CardsGenerated.WithLabelValues("ok").Inc()
			writePDF(w, user, pdf)
			return
		}
		metrics.CardCacheLookups.WithLabelValues("miss").Inc()
	}

	pdf, err := h.renderer.Generate(in)
	switch {
	case err == nil:
	case stderrors.Is(err, card.ErrIneligibleSubject):
		metrics.CardsGenerated.WithLabelValues("ineligible").Inc()
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeIneligible, "Los padres no requieren carnet de identificación", nil)
		return
	case stderrors.Is(err, card.ErrInvalidInput):
		metrics.CardsGenerated.WithLabelValues("invalid").Inc()
		errors.Invalid(w, err.Error())
		return
	default:
		metrics.CardsGenerated.WithLabelValues("failed").Inc()
		log.Error().Err(err).Str("user_id", user.ID).Msg("card generation failed")
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeGenerationFailed, "Error generating card", nil)
		return
	}

	metrics.CardsGenerated.WithLabelValues("ok").Inc()
	log.Info().Str("user_id", user.ID).Int("bytes", len(pdf)).Msg("card generated")
	if h.cache != nil {
		h.cache.Set(cacheKey, pdf)
	}
	h.audit.record(r, audit.ActionCardGenerated, "user", user.ID, map[string]interface{}{"bytes": len(pdf)})
	writePDF(w, user, pdf)
}

func writePDF(w http.ResponseWriter, user *models.User, pdf []byte) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", card.Filename(user.FullName)))
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}
