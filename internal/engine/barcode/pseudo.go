package barcode

import (
	"crypto/md5"
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
)

const margin = 2

// Pseudo paints one bar per set bit of md5(payload), least significant bit
// first. Every bit advances the cursor, so zero bits leave gaps. Bars never
// enter the 2px frame around the image.
type Pseudo struct{}

func (Pseudo) Image(payload string, width, height int) (image.Image, error) {
	if err := checkSize(width, height); err != nil {
		return nil, err
	}

	img := imaging.New(width, height, color.White)
	digest := md5.Sum([]byte(payload))

	unit := width / 60
	if unit < 1 {
		unit = 1
	}

	x := margin
	for _, b := range digest {
		for bit := 0; bit < 8; bit++ {
			if x >= width-margin {
				return img, nil
			}
			v := int(b>>bit) & 1
			bar := unit + v
			if v == 1 {
				r := image.Rect(x, margin, min(x+bar, width-margin), height-margin)
				draw.Draw(img, r, image.Black, image.Point{}, draw.Src)
			}
			x += bar + 1
		}
	}
	return img, nil
}
