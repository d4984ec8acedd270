package barcode

import (
	"fmt"
	"image"

	bc "github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
)

// Code128 renders a scannable Code 128 symbol scaled to the requested size.
type Code128 struct{}

func (Code128) Image(payload string, width, height int) (image.Image, error) {
	if err := checkSize(width, height); err != nil {
		return nil, err
	}

	code, err := code128.Encode(payload)
	if err != nil {
		return nil, fmt.Errorf("barcode: encode code128: %w", err)
	}

	scaled, err := bc.Scale(code, width, height)
	if err != nil {
		return nil, fmt.Errorf("barcode: scale code128 to %dx%d: %w", width, height, err)
	}
	return scaled, nil
}
