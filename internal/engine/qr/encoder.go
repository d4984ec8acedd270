package qr

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/disintegration/imaging"
	"github.com/skip2/go-qrcode"
)

const maxVersion = 40

var (
	ErrEmptyPayload     = errors.New("qr: empty payload")
	ErrInvalidSize      = errors.New("invalid size: must be between 32 and 2048")
	ErrCapacityExceeded = errors.New("qr: payload exceeds capacity of version 40")
)

// Options controls the symbol before it is resized to the requested size.
type Options struct {
	Level      qrcode.RecoveryLevel
	Version    int // starting version, escalated when the payload does not fit
	ModuleSize int // pixels per module before resizing
	QuietZone  int // modules of white border on each side
}

// CardOptions is tuned for the printed card: small symbol, low error
// correction, scanned at close range on high contrast stock.
func CardOptions() Options {
	return Options{
		Level:      qrcode.Low,
		Version:    1,
		ModuleSize: 6,
		QuietZone:  1,
	}
}

type Encoder struct {
	opts Options
}

func NewEncoder(opts Options) *Encoder {
	if opts.Version < 1 {
		opts.Version = 1
	}
	if opts.ModuleSize < 1 {
		opts.ModuleSize = 1
	}
	if opts.QuietZone < 0 {
		opts.QuietZone = 0
	}
	return &Encoder{opts: opts}
}

// Image renders payload as a size x size image.
func (e *Encoder) Image(payload string, size int) (image.Image, error) {
	if payload == "" {
		return nil, ErrEmptyPayload
	}
	if size < 32 || size > 2048 {
		return nil, ErrInvalidSize
	}

	code, err := e.symbol(payload)
	if err != nil {
		return nil, err
	}
	code.DisableBorder = true

	matrix := code.Image(-e.opts.ModuleSize)
	pad := e.opts.QuietZone * e.opts.ModuleSize
	bounds := matrix.Bounds()
	canvas := imaging.New(bounds.Dx()+2*pad, bounds.Dy()+2*pad, color.White)
	canvas = imaging.Paste(canvas, matrix, image.Pt(pad, pad))

	return imaging.Resize(canvas, size, size, imaging.Lanczos), nil
}

// PNG returns the image produced by Image encoded as PNG.
func (e *Encoder) PNG(payload string, size int) ([]byte, error) {
	img, err := e.Image(payload, size)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression)); err != nil {
		return nil, fmt.Errorf("qr: encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// symbol picks the smallest version, starting at the configured one, that
// can hold payload.
func (e *Encoder) symbol(payload string) (*qrcode.QRCode, error) {
	var lastErr error
	for v := e.opts.Version; v <= maxVersion; v++ {
		code, err := qrcode.NewWithForcedVersion(payload, v, e.opts.Level)
		if err == nil {
			return code, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %v", ErrCapacityExceeded, lastErr)
}

// DataURL renders a profile QR code (medium level, standard quiet zone) as
// an inline PNG data URL.
func DataURL(payload string) (string, error) {
	if payload == "" {
		return "", ErrEmptyPayload
	}
	code, err := qrcode.New(payload, qrcode.Medium)
	if err != nil {
		return "", err
	}
	raw, err := code.PNG(-10)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(raw), nil
}
