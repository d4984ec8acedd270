package card

import (
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

const (
	familyRegular = "GoRegular"
	familyBold    = "GoBold"
)

// Font selects a face and size in points.
type Font struct {
	Bold bool
	Size float64
}

func (f Font) family() string {
	if f.Bold {
		return familyBold
	}
	return familyRegular
}

func (f Font) ttf() []byte {
	if f.Bold {
		return gobold.TTF
	}
	return goregular.TTF
}

type textMetrics struct {
	regular *opentype.Font
	bold    *opentype.Font
}

var loadTextMetrics = sync.OnceValues(func() (*textMetrics, error) {
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, err
	}
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, err
	}
	return &textMetrics{regular: regular, bold: bold}, nil
})

// width returns the advance of s in points.
func (m *textMetrics) width(f Font, s string) float64 {
	src := m.regular
	if f.Bold {
		src = m.bold
	}
	face, err := opentype.NewFace(src, &opentype.FaceOptions{
		Size:    f.Size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return 0
	}
	defer face.Close()
	return float64(font.MeasureString(face, s)) / 64
}
