package card

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"attendr/internal/platform/config"
)

// Palette holds every colour used on the card.
type Palette struct {
	Header          color.RGBA
	Text            color.RGBA
	Muted           color.RGBA
	Accent          color.RGBA
	Valid           color.RGBA
	Badge           color.RGBA
	PhotoBorder     color.RGBA
	Placeholder     color.RGBA
	PlaceholderText color.RGBA
	Background      color.RGBA
	OnDark          color.RGBA
}

// Branding is the institution-specific content of the card template. A
// Generator copies it at construction and never mutates it.
type Branding struct {
	InstitutionTag   string
	HeaderLines      [2]string
	Year             string
	IDLabel          string
	Contact          string
	ValidUntil       string
	Footer           [3]string
	LogoPath         string
	BarcodeSymbology string
	Palette          Palette
}

func DefaultPalette() Palette {
	return Palette{
		Header:          rgb(56, 102, 184),
		Text:            rgb(51, 51, 51),
		Muted:           rgb(102, 102, 102),
		Accent:          rgb(51, 102, 179),
		Valid:           rgb(46, 140, 87),
		Badge:           rgb(38, 51, 77),
		PhotoBorder:     rgb(217, 217, 217),
		Placeholder:     rgb(242, 242, 242),
		PlaceholderText: rgb(153, 153, 153),
		Background:      rgb(255, 255, 255),
		OnDark:          rgb(255, 255, 255),
	}
}

func DefaultBranding() Branding {
	return Branding{
		InstitutionTag: "LISFA",
		HeaderLines:    [2]string{"LICEO SAN FRANCISCO", "DE ASÍS - LISFA"},
		Year:           "2026",
		IDLabel:        "ID",
		Contact:        "+502 30624815",
		ValidUntil:     "Dic 2026",
		Footer: [3]string{
			"Este carnet es propiedad del",
			"Liceo San Francisco de Asís",
			"LISFA - Educación de Calidad",
		},
		LogoPath:         "/static/logos/logo.jpeg",
		BarcodeSymbology: "pseudo",
		Palette:          DefaultPalette(),
	}
}

// NewBranding applies the non-empty fields of cfg over DefaultBranding.
func NewBranding(cfg config.CardConfig) (Branding, error) {
	b := DefaultBranding()
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&b.InstitutionTag, cfg.InstitutionTag)
	set(&b.Year, cfg.Year)
	set(&b.IDLabel, cfg.IDLabel)
	set(&b.Contact, cfg.Contact)
	set(&b.ValidUntil, cfg.ValidUntil)
	set(&b.LogoPath, cfg.LogoPath)
	set(&b.BarcodeSymbology, cfg.BarcodeSymbology)

	if len(cfg.HeaderLines) > len(b.HeaderLines) {
		return Branding{}, fmt.Errorf("card: at most %d header lines, got %d", len(b.HeaderLines), len(cfg.HeaderLines))
	}
	if len(cfg.HeaderLines) > 0 {
		b.HeaderLines = [2]string{}
		copy(b.HeaderLines[:], cfg.HeaderLines)
	}
	if len(cfg.Footer) > len(b.Footer) {
		return Branding{}, fmt.Errorf("card: at most %d footer lines, got %d", len(b.Footer), len(cfg.Footer))
	}
	if len(cfg.Footer) > 0 {
		b.Footer = [3]string{}
		copy(b.Footer[:], cfg.Footer)
	}

	if cfg.HeaderColor != "" {
		c, err := ParseHexColor(cfg.HeaderColor)
		if err != nil {
			return Branding{}, fmt.Errorf("card: header_color: %w", err)
		}
		b.Palette.Header = c
	}
	if cfg.AccentColor != "" {
		c, err := ParseHexColor(cfg.AccentColor)
		if err != nil {
			return Branding{}, fmt.Errorf("card: accent_color: %w", err)
		}
		b.Palette.Accent = c
	}
	return b, nil
}

func rgb(r, g, b uint8) color.RGBA {
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}

// ParseHexColor accepts "#RRGGBB" or "RRGGBB".
func ParseHexColor(s string) (color.RGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid colour %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	return rgb(uint8(v>>16), uint8(v>>8), uint8(v)), nil
}

var studentCategories = []string{
	"Párvulos",
	"Kinder",
	"Preparatoria",
	"1ro. Primaria",
	"2do. Primaria",
	"3ro. Primaria",
	"4to. Primaria",
	"5to. Primaria",
	"6to. Primaria",
	"1ro. Básico A",
	"1ro. Básico B",
	"2do. Básico A",
	"2do. Básico B",
	"3ro. Básico A",
	"3ro. Básico B",
	"4to. Bachillerato en Computación",
	"4to. Bachillerato en Diseño",
	"5to. Bachillerato en Computación",
	"5to. Bachillerato en Diseño",
}

var staffCategories = []string{
	"Personal Administrativo",
	"Secretaria",
	"Personal de Biblioteca",
	"Personal de Servicio",
	"Personal de Librería",
	"Coordinación",
	"Docente",
}

// Categories returns the grade or job categories offered for a user role.
func Categories(userRole string) []string {
	switch userRole {
	case "student":
		return append([]string(nil), studentCategories...)
	case "teacher", "admin", "staff":
		return append([]string(nil), staffCategories...)
	}
	return []string{}
}
