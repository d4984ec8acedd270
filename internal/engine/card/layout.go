package card

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/rs/zerolog/log"

	"attendr/internal/engine/barcode"
)

// Card geometry in millimetres, measured from the top-left corner.
const (
	CardWidthMM  = 55.0
	CardHeightMM = 85.0

	ptPerMM = 72 / 25.4

	headerHeight = 12.0
	centerX      = CardWidthMM / 2

	photoX, photoY, photoW, photoH = 3.0, 15.0, 14.0, 17.0
	photoInset                     = 0.3

	infoX           = 19.0
	infoWidth       = 34.0
	nameTop         = 18.0
	nameLeading     = 3.0
	maxNameLines    = 2
	maxCategoryRune = 16
	maxCodeRunes    = 10
	badgeW, badgeH  = 17.0, 3.2

	qrX, qrY, qrSide = 20.5, 38.0, 14.0
	qrPixels         = 100

	barsX, barsY, barsW, barsH = 8.5, 59.0, 38.0, 5.0
	barsPixelWidth             = 307 // barsW at 0.35 pt per pixel
	barsPixelHeight            = 20

	logoMaxPx    = 80
	logoQuality  = 70
	photoMaxW    = 100
	photoMaxH    = 120
	photoQuality = 60
)

type Kind int

const (
	KindRect Kind = iota
	KindRoundRect
	KindText
	KindImage
)

type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

const (
	RegionHeader   = "header"
	RegionPhoto    = "photo"
	RegionIdentity = "identity"
	RegionQR       = "qr"
	RegionBarcode  = "barcode"
	RegionDetails  = "details"
	RegionFooter   = "footer"
)

// Element names identify individual directives inside a region.
const (
	ElemBackground       = "background"
	ElemHeaderBar        = "header-bar"
	ElemLogo             = "logo"
	ElemInstitution      = "institution"
	ElemYear             = "year"
	ElemIDLabel          = "id-label"
	ElemPhotoFrame       = "photo-frame"
	ElemPhoto            = "photo"
	ElemPhotoPlaceholder = "photo-placeholder"
	ElemPhotoCaption     = "photo-caption"
	ElemNameLine         = "name-line"
	ElemBadge            = "badge"
	ElemBadgeCaption     = "badge-caption"
	ElemCategory         = "category"
	ElemCode             = "code"
	ElemQRTitle          = "qr-title"
	ElemQRImage          = "qr-image"
	ElemQRCaption        = "qr-caption"
	ElemBarcodeTitle     = "barcode-title"
	ElemBarcodeImage     = "barcode-image"
	ElemBarcodeCaption   = "barcode-caption"
	ElemDetailLabel      = "detail-label"
	ElemDetailValue      = "detail-value"
	ElemFooterLine       = "footer-line"
)

// Directive is one drawing step. Shapes and images use X, Y as the top-left
// corner; text uses X as the anchor for Align and Y as the baseline.
type Directive struct {
	Region  string
	Element string
	Kind    Kind

	X, Y, W, H float64
	Radius     float64

	// Style is "F", "D" or "FD".
	Style     string
	Fill      color.RGBA
	Stroke    color.RGBA
	LineWidth float64

	Text  string
	Font  Font
	Align Align
	Color color.RGBA

	Image []byte
}

// Plan is the fully resolved card: payload, derived images and the ordered
// drawing steps.
type Plan struct {
	Payload          string
	NameLines        []string
	NameLinesDropped int
	PhotoPlaceholder bool
	Directives       []Directive
}

// Find returns every directive with the given element name, in draw order.
func (p *Plan) Find(element string) []Directive {
	var out []Directive
	for _, d := range p.Directives {
		if d.Element == element {
			out = append(out, d)
		}
	}
	return out
}

// Plan lays out the card for in. Only code image generation can fail;
// missing assets fall back silently.
func (g *Generator) Plan(in Input) (*Plan, error) {
	b := g.branding
	pal := b.Palette
	code := cardCode(in.Identifier)
	p := &Plan{Payload: BuildPayload(b.InstitutionTag, b.Year, code)}

	add := func(d Directive) { p.Directives = append(p.Directives, d) }
	text := func(region, elem string, x, y float64, s string, f Font, c color.RGBA, a Align) {
		add(Directive{Region: region, Element: elem, Kind: KindText, X: x, Y: y, Text: s, Font: f, Color: c, Align: a})
	}

	add(Directive{Region: RegionHeader, Element: ElemBackground, Kind: KindRect,
		W: CardWidthMM, H: CardHeightMM, Style: "F", Fill: pal.Background})

	// header
	add(Directive{Region: RegionHeader, Element: ElemHeaderBar, Kind: KindRect,
		W: CardWidthMM, H: headerHeight, Style: "F", Fill: pal.Header})
	if logo, ok := g.assets.LoadOptionalImage(b.LogoPath); ok {
		if d, err := fitImage(logo, logoMaxPx, logoMaxPx, logoQuality, 2, 1.5, 9, 9); err != nil {
			log.Debug().Err(err).Msg("logo skipped")
		} else {
			d.Region, d.Element = RegionHeader, ElemLogo
			add(d)
		}
	}
	text(RegionHeader, ElemInstitution, 12, 4.5, b.HeaderLines[0], Font{Bold: true, Size: 5}, pal.OnDark, AlignLeft)
	text(RegionHeader, ElemInstitution, 12, 7.5, b.HeaderLines[1], Font{Bold: true, Size: 5}, pal.OnDark, AlignLeft)
	text(RegionHeader, ElemYear, 53, 5, b.Year, Font{Bold: true, Size: 7}, pal.OnDark, AlignRight)
	text(RegionHeader, ElemIDLabel, 53, 8.5, b.IDLabel, Font{Size: 5}, pal.OnDark, AlignRight)

	// photo
	add(Directive{Region: RegionPhoto, Element: ElemPhotoFrame, Kind: KindRect,
		X: photoX, Y: photoY, W: photoW, H: photoH, Style: "D", Stroke: pal.PhotoBorder, LineWidth: 0.5})
	ix, iy := photoX+photoInset, photoY+photoInset
	iw, ih := photoW-2*photoInset, photoH-2*photoInset
	p.PhotoPlaceholder = true
	if photo, ok := g.assets.LoadOptionalImage(in.PhotoReference); ok {
		if d, err := fitImage(photo, photoMaxW, photoMaxH, photoQuality, ix, iy, iw, ih); err != nil {
			log.Debug().Err(err).Str("ref", in.PhotoReference).Msg("photo skipped")
		} else {
			d.Region, d.Element = RegionPhoto, ElemPhoto
			add(d)
			p.PhotoPlaceholder = false
		}
	}
	if p.PhotoPlaceholder {
		add(Directive{Region: RegionPhoto, Element: ElemPhotoPlaceholder, Kind: KindRect,
			X: ix, Y: iy, W: iw, H: ih, Style: "F", Fill: pal.Placeholder})
		text(RegionPhoto, ElemPhotoCaption, photoX+photoW/2, 23.5, "FOTO", Font{Size: 5}, pal.PlaceholderText, AlignCenter)
	}

	// identity
	name := strings.ToUpper(strings.TrimSpace(in.DisplayName))
	if name == "" {
		name = "NOMBRE"
	}
	nameFont := Font{Bold: true, Size: 6}
	lines := wrapWords(name, infoWidth*ptPerMM, func(s string) float64 { return g.metrics.width(nameFont, s) })
	if len(lines) > maxNameLines {
		p.NameLinesDropped = len(lines) - maxNameLines
		lines = lines[:maxNameLines]
	}
	p.NameLines = lines
	y := nameTop
	for _, l := range lines {
		text(RegionIdentity, ElemNameLine, infoX, y, l, nameFont, pal.Text, AlignLeft)
		y += nameLeading
	}
	y++
	add(Directive{Region: RegionIdentity, Element: ElemBadge, Kind: KindRoundRect,
		X: infoX, Y: y - 2.7, W: badgeW, H: badgeH, Radius: 1, Style: "F", Fill: pal.Badge})
	text(RegionIdentity, ElemBadgeCaption, infoX+badgeW/2, y-0.3, in.Role.BadgeCaption(), Font{Bold: true, Size: 4.5}, pal.OnDark, AlignCenter)
	y += 4.5
	category := strings.TrimSpace(in.Category)
	if category == "" {
		category = "N/A"
	}
	text(RegionIdentity, ElemCategory, infoX, y, truncateRunes(category, maxCategoryRune), Font{Size: 5}, pal.Text, AlignLeft)
	y += 3
	text(RegionIdentity, ElemCode, infoX, y, code, Font{Bold: true, Size: 5}, pal.Accent, AlignLeft)

	// qr
	qrPNG, err := g.qr.PNG(p.Payload, qrPixels)
	if err != nil {
		return nil, fmt.Errorf("qr code: %w", err)
	}
	text(RegionQR, ElemQRTitle, centerX, 36, "CÓDIGO QR", Font{Bold: true, Size: 5}, pal.Text, AlignCenter)
	add(Directive{Region: RegionQR, Element: ElemQRImage, Kind: KindImage, X: qrX, Y: qrY, W: qrSide, H: qrSide, Image: qrPNG})
	text(RegionQR, ElemQRCaption, centerX, 54, p.Payload, Font{Size: 3.5}, pal.Muted, AlignCenter)

	// barcode
	bars, err := g.bars.Image(p.Payload, barsPixelWidth, barsPixelHeight)
	if err != nil {
		return nil, fmt.Errorf("barcode: %w", err)
	}
	barsPNG, err := barcode.PNG(bars)
	if err != nil {
		return nil, fmt.Errorf("barcode: %w", err)
	}
	text(RegionBarcode, ElemBarcodeTitle, centerX, 57, "CÓDIGO DE BARRAS", Font{Bold: true, Size: 5}, pal.Text, AlignCenter)
	add(Directive{Region: RegionBarcode, Element: ElemBarcodeImage, Kind: KindImage, X: barsX, Y: barsY, W: barsW, H: barsH, Image: barsPNG})
	text(RegionBarcode, ElemBarcodeCaption, centerX, 66, p.Payload, Font{Size: 3.5}, pal.Muted, AlignCenter)

	// details
	details := []struct {
		label, value string
		valid        bool
	}{
		{"Año Lectivo:", b.Year, false},
		{"Contacto:", b.Contact, false},
		{"Válido hasta:", b.ValidUntil, true},
	}
	for i, row := range details {
		ry := 69 + 3*float64(i)
		text(RegionDetails, ElemDetailLabel, 3, ry, row.label, Font{Size: 4.5}, pal.Muted, AlignLeft)
		if row.valid {
			text(RegionDetails, ElemDetailValue, 52, ry, row.value, Font{Bold: true, Size: 4.5}, pal.Valid, AlignRight)
		} else {
			text(RegionDetails, ElemDetailValue, 52, ry, row.value, Font{Size: 4.5}, pal.Text, AlignRight)
		}
	}

	// footer
	text(RegionFooter, ElemFooterLine, centerX, 79.5, b.Footer[0], Font{Size: 3.5}, pal.Muted, AlignCenter)
	text(RegionFooter, ElemFooterLine, centerX, 81.5, b.Footer[1], Font{Size: 3.5}, pal.Muted, AlignCenter)
	text(RegionFooter, ElemFooterLine, centerX, 84, b.Footer[2], Font{Bold: true, Size: 3.5}, pal.Accent, AlignCenter)

	return p, nil
}

// fitImage shrinks img and places it centred inside the box, keeping its
// aspect ratio.
func fitImage(img image.Image, maxW, maxH, quality int, x, y, w, h float64) (Directive, error) {
	raw, size, err := shrinkJPEG(img, maxW, maxH, quality)
	if err != nil {
		return Directive{}, err
	}
	scale := min(w/float64(size.X), h/float64(size.Y))
	dw, dh := float64(size.X)*scale, float64(size.Y)*scale
	return Directive{
		Kind:  KindImage,
		X:     x + (w-dw)/2,
		Y:     y + (h-dh)/2,
		W:     dw,
		H:     dh,
		Image: raw,
	}, nil
}
