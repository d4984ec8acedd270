// Package card renders the printable 55x85 mm identity card issued to
// students and staff.
package card

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"attendr/internal/engine/barcode"
	"attendr/internal/engine/qr"
)

var (
	ErrInvalidInput      = errors.New("card: identifier is required")
	ErrIneligibleSubject = errors.New("card: role does not receive an identity card")
	ErrGenerationFailed  = errors.New("card: generation failed")
)

type Role string

const (
	RoleStudent Role = "STUDENT"
	RoleStaff   Role = "STAFF"
	RoleParent  Role = "PARENT"
)

// RoleFor maps an account role to the card role.
func RoleFor(userRole string) Role {
	switch userRole {
	case "student":
		return RoleStudent
	case "teacher", "admin", "staff":
		return RoleStaff
	case "parent":
		return RoleParent
	}
	return Role(strings.ToUpper(userRole))
}

func (r Role) Eligible() bool {
	return r == RoleStudent || r == RoleStaff
}

func (r Role) BadgeCaption() string {
	if r == RoleStudent {
		return "ESTUDIANTE"
	}
	return "PERSONAL"
}

// Input is everything the card shows about one person.
type Input struct {
	Identifier     string
	DisplayName    string
	Role           Role
	Category       string
	PhotoReference string
}

type Generator struct {
	branding Branding
	assets   *AssetStore
	qr       *qr.Encoder
	bars     barcode.Synthesizer
	metrics  *textMetrics
}

func NewGenerator(b Branding, assets *AssetStore) (*Generator, error) {
	bars, err := barcode.New(b.BarcodeSymbology)
	if err != nil {
		return nil, err
	}
	m, err := loadTextMetrics()
	if err != nil {
		return nil, fmt.Errorf("card: load fonts: %w", err)
	}
	return &Generator{
		branding: b,
		assets:   assets,
		qr:       qr.NewEncoder(qr.CardOptions()),
		bars:     bars,
		metrics:  m,
	}, nil
}

// Branding returns a copy of the template content in use.
func (g *Generator) Branding() Branding {
	return g.branding
}

// Payload returns the code payload for an identifier as printed on the card.
func (g *Generator) Payload(identifier string) string {
	return BuildPayload(g.branding.InstitutionTag, g.branding.Year, cardCode(identifier))
}

// Generate renders the card as a single-page PDF.
func (g *Generator) Generate(in Input) ([]byte, error) {
	if !in.Role.Eligible() {
		return nil, ErrIneligibleSubject
	}
	if strings.TrimSpace(in.Identifier) == "" {
		return nil, ErrInvalidInput
	}

	plan, err := g.Plan(in)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	out, err := g.render(plan)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrGenerationFailed)
	}

	log.Debug().
		Str("identifier", in.Identifier).
		Str("payload", plan.Payload).
		Bool("photo_placeholder", plan.PhotoPlaceholder).
		Int("bytes", len(out)).
		Msg("card rendered")

	return out, nil
}

// Filename suggests a download name for a card.
func Filename(displayName string) string {
	name := strings.TrimSpace(displayName)
	if name == "" {
		name = "carnet"
	}
	return strings.ReplaceAll(name, " ", "_") + "_carnet.pdf"
}
