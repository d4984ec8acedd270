package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

// Delivery headers. The signature header reads "t=<unix seconds>,v1=<hex>",
// where v1 is the HMAC-SHA256 of "<unix seconds>.<body>".
const (
	HeaderEvent     = "X-Attendr-Event"
	HeaderDelivery  = "X-Attendr-Delivery"
	HeaderSignature = "X-Attendr-Signature"
)

var (
	ErrMalformedSignature = errors.New("malformed signature header")
	ErrSignatureMismatch  = errors.New("signature does not match payload")
	ErrStaleSignature     = errors.New("signature timestamp outside tolerance")
)

func mac(secret string, ts int64, payload []byte) []byte {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(strconv.FormatInt(ts, 10)))
	h.Write([]byte{'.'})
	h.Write(payload)
	return h.Sum(nil)
}

// Sign returns the signature header value for payload sent at ts.
func Sign(secret string, payload []byte, ts time.Time) string {
	unix := ts.Unix()
	return "t=" + strconv.FormatInt(unix, 10) + ",v1=" + hex.EncodeToString(mac(secret, unix, payload))
}

// Verify checks a signature header against payload. Receivers pass the
// allowed clock skew as tolerance; zero disables the age check.
func Verify(secret string, payload []byte, header string, tolerance time.Duration, now time.Time) error {
	var (
		ts  int64
		sig []byte
		err error
	)
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			return ErrMalformedSignature
		}
		switch k {
		case "t":
			if ts, err = strconv.ParseInt(v, 10, 64); err != nil {
				return ErrMalformedSignature
			}
		case "v1":
			if sig, err = hex.DecodeString(v); err != nil {
				return ErrMalformedSignature
			}
		}
	}
	if ts == 0 || sig == nil {
		return ErrMalformedSignature
	}

	if !hmac.Equal(mac(secret, ts, payload), sig) {
		return ErrSignatureMismatch
	}
	if tolerance > 0 {
		age := now.Sub(time.Unix(ts, 0))
		if age > tolerance || age < -tolerance {
			return ErrStaleSignature
		}
	}
	return nil
}
