package card

import (
	"bytes"
	"fmt"

	"github.com/signintech/gopdf"
)

// render draws every directive of p onto a single page sized to the card.
func (g *Generator) render(p *Plan) ([]byte, error) {
	pdf := gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: gopdf.Rect{W: CardWidthMM * ptPerMM, H: CardHeightMM * ptPerMM}})
	pdf.SetInfo(gopdf.PdfInfo{
		Title:   "Carnet " + p.Payload,
		Subject: g.branding.InstitutionTag,
		Creator: "attendr",
	})

	for _, f := range []Font{{}, {Bold: true}} {
		if err := pdf.AddTTFFontData(f.family(), f.ttf()); err != nil {
			return nil, fmt.Errorf("font %s: %w", f.family(), err)
		}
	}
	pdf.AddPage()

	for i, d := range p.Directives {
		if err := draw(&pdf, d); err != nil {
			return nil, fmt.Errorf("%s/%s (#%d): %w", d.Region, d.Element, i, err)
		}
	}

	var buf bytes.Buffer
	if _, err := pdf.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func draw(pdf *gopdf.GoPdf, d Directive) error {
	x, y, w, h := d.X*ptPerMM, d.Y*ptPerMM, d.W*ptPerMM, d.H*ptPerMM

	switch d.Kind {
	case KindRect:
		applyShapeStyle(pdf, d)
		pdf.RectFromUpperLeftWithStyle(x, y, w, h, d.Style)
		return nil

	case KindRoundRect:
		applyShapeStyle(pdf, d)
		return pdf.Rectangle(x, y, x+w, y+h, d.Style, d.Radius*ptPerMM, 8)

	case KindText:
		if err := pdf.SetFont(d.Font.family(), "", d.Font.Size); err != nil {
			return err
		}
		pdf.SetTextColor(d.Color.R, d.Color.G, d.Color.B)
		if d.Align != AlignLeft {
			tw, err := pdf.MeasureTextWidth(d.Text)
			if err != nil {
				return err
			}
			if d.Align == AlignCenter {
				x -= tw / 2
			} else {
				x -= tw
			}
		}
		pdf.SetXY(x, y)
		return pdf.Text(d.Text)

	case KindImage:
		holder, err := gopdf.ImageHolderByBytes(d.Image)
		if err != nil {
			return err
		}
		return pdf.ImageByHolder(holder, x, y, &gopdf.Rect{W: w, H: h})
	}

	return fmt.Errorf("unknown directive kind %d", d.Kind)
}

func applyShapeStyle(pdf *gopdf.GoPdf, d Directive) {
	pdf.SetFillColor(d.Fill.R, d.Fill.G, d.Fill.B)
	pdf.SetStrokeColor(d.Stroke.R, d.Stroke.G, d.Stroke.B)
	if d.LineWidth > 0 {
		pdf.SetLineWidth(d.LineWidth)
	}
}
