package card

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog/log"
)

// AssetStore resolves logo and photo references against a root directory.
// References look like "/static/uploads/<file>" and never escape the root.
type AssetStore struct {
	root string
}

func NewAssetStore(root string) *AssetStore {
	return &AssetStore{root: root}
}

func (s *AssetStore) Root() string {
	return s.root
}

// Resolve maps a reference to a file path under the root. Remote URLs are
// not resolvable.
func (s *AssetStore) Resolve(ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.Contains(ref, "://") {
		return "", false
	}
	clean := filepath.Clean("/" + filepath.ToSlash(ref))
	return filepath.Join(s.root, clean), true
}

// LoadOptionalImage returns the decoded image behind ref. Any failure is
// reported as false and logged at debug level.
func (s *AssetStore) LoadOptionalImage(ref string) (image.Image, bool) {
	if s == nil {
		return nil, false
	}
	path, ok := s.Resolve(ref)
	if !ok {
		if ref != "" {
			log.Debug().Str("ref", ref).Msg("asset reference not resolvable")
		}
		return nil, false
	}

	f, err := os.Open(path)
	if err != nil {
		log.Debug().Err(err).Str("path", path).Msg("asset unavailable")
		return nil, false
	}
	defer f.Close()

	img, err := imaging.Decode(f, imaging.AutoOrientation(true))
	if err != nil {
		log.Debug().Err(err).Str("path", path).Msg("asset not decodable")
		return nil, false
	}
	return img, true
}

// shrinkJPEG fits img inside maxW x maxH, flattens it on white and encodes it
// as JPEG. The returned size is the pixel size of the encoded image.
func shrinkJPEG(img image.Image, maxW, maxH, quality int) ([]byte, image.Point, error) {
	fitted := imaging.Fit(img, maxW, maxH, imaging.Lanczos)
	b := fitted.Bounds()
	flat := imaging.Overlay(imaging.New(b.Dx(), b.Dy(), color.White), fitted, image.Point{}, 1.0)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, flat, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, image.Point{}, err
	}
	return buf.Bytes(), image.Pt(b.Dx(), b.Dy()), nil
}
