// Package barcode draws the bar strip printed under the QR code on identity
// cards.
//
// The default symbology is a cosmetic pattern derived from the MD5 digest of
// the payload. It only has to look like a barcode and be reproducible; no
// scanner is expected to read it. Code 128 is available when a deployment
// explicitly asks for a machine-readable strip.
package barcode

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"
)

const (
	SymbologyPseudo  = "pseudo"
	SymbologyCode128 = "code128"
)

// Synthesizer turns a payload into a width x height bar image.
type Synthesizer interface {
	Image(payload string, width, height int) (image.Image, error)
}

// New returns the synthesizer registered under name. An empty name selects
// the cosmetic pattern.
func New(name string) (Synthesizer, error) {
	switch name {
	case "", SymbologyPseudo:
		return Pseudo{}, nil
	case SymbologyCode128:
		return Code128{}, nil
	default:
		return nil, fmt.Errorf("barcode: unknown symbology %q", name)
	}
}

// PNG encodes a bar image losslessly.
func PNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression)); err != nil {
		return nil, fmt.Errorf("barcode: encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func checkSize(width, height int) error {
	if width < 8 || height < 5 {
		return fmt.Errorf("barcode: image %dx%d too small", width, height)
	}
	return nil
}
