package qr

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"strings"
	"testing"

	"github.com/makiuchi-d/gozxing"
	zxingqr "github.com/makiuchi-d/gozxing/qrcode"
)

func decode(t *testing.T, img image.Image) string {
	t.Helper()
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		t.Fatalf("creating bitmap: %v", err)
	}
	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER: true,
	}
	result, err := zxingqr.NewQRCodeReader().Decode(bmp, hints)
	if err != nil {
		t.Fatalf("no QR code found in image: %v", err)
	}
	return result.GetText()
}

func TestEncoderImage_RoundTrip(t *testing.T) {
	enc := NewEncoder(CardOptions())

	tests := []struct {
		name    string
		payload string
		size    int
	}{
		{"card payload", "LISFA2026LISFA-0007", 120},
		{"card payload at draw size", "LISFA2026DOC1A2B3C", 100},
		{"fits version 1", "LISFA2026", 120},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := enc.Image(tt.payload, tt.size)
			if err != nil {
				t.Fatalf("Image() error = %v", err)
			}
			if b := img.Bounds(); b.Dx() != tt.size || b.Dy() != tt.size {
				t.Fatalf("Image() bounds = %v, want %dx%d", b, tt.size, tt.size)
			}
			if got := decode(t, img); got != tt.payload {
				t.Errorf("decoded %q, want %q", got, tt.payload)
			}
		})
	}
}

func TestEncoderImage_EscalatesVersion(t *testing.T) {
	enc := NewEncoder(CardOptions())
	payload := strings.Repeat("LISFA2026LISFA-0007", 8)

	img, err := enc.Image(payload, 400)
	if err != nil {
		t.Fatalf("Image() error = %v", err)
	}
	if got := decode(t, img); got != payload {
		t.Errorf("decoded %q, want %q", got, payload)
	}
}

func TestEncoderImage_CapacityExceeded(t *testing.T) {
	enc := NewEncoder(CardOptions())
	payload := strings.Repeat("x", 3000)

	_, err := enc.Image(payload, 512)
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Errorf("Image() error = %v, want ErrCapacityExceeded", err)
	}
}

func TestEncoderImage_Validation(t *testing.T) {
	enc := NewEncoder(CardOptions())

	tests := []struct {
		name    string
		payload string
		size    int
		wantErr error
	}{
		{"empty payload", "", 120, ErrEmptyPayload},
		{"size too small", "abc", 16, ErrInvalidSize},
		{"size too large", "abc", 5000, ErrInvalidSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := enc.Image(tt.payload, tt.size)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Image() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestEncoderPNG_Deterministic(t *testing.T) {
	enc := NewEncoder(CardOptions())

	a, err := enc.PNG("LISFA2026LISFA-0007", 100)
	if err != nil {
		t.Fatalf("PNG() error = %v", err)
	}
	b, err := enc.PNG("LISFA2026LISFA-0007", 100)
	if err != nil {
		t.Fatalf("PNG() error = %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("PNG() output differs between calls")
	}

	img, err := png.Decode(bytes.NewReader(a))
	if err != nil {
		t.Fatalf("png.Decode() error = %v", err)
	}
	if got := decode(t, img); got != "LISFA2026LISFA-0007" {
		t.Errorf("decoded %q", got)
	}
}

func TestDataURL(t *testing.T) {
	got, err := DataURL("9b7c1f6e-user")
	if err != nil {
		t.Fatalf("DataURL() error = %v", err)
	}
	if !strings.HasPrefix(got, "data:image/png;base64,") {
		t.Errorf("DataURL() = %q, want png data url prefix", got[:32])
	}

	if _, err := DataURL(""); !errors.Is(err, ErrEmptyPayload) {
		t.Errorf("DataURL(\"\") error = %v, want ErrEmptyPayload", err)
	}
}
