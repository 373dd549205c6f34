// Package imgutil normalizes the optional selfie attached to a check-in.
package imgutil

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/png" // enable PNG decode
	"strings"

	"github.com/disintegration/imaging"
)

const (
	maxSide     = 1080
	maxRawBytes = 8 << 20
	jpegQuality = 85
)

var ErrTooLarge = errors.New("image too large")

// NormalizeBase64 accepts plain or data-URL base64 (PNG/JPEG), fits the
// image inside 1080x1080 and re-encodes it as JPEG q85, returned as plain
// base64.
func NormalizeBase64(in string) (string, error) {
	// potong "data:image/...;base64,"
	if i := strings.Index(in, ","); i != -1 && strings.Contains(in[:i], "base64") {
		in = in[i+1:]
	}
	in = strings.TrimSpace(in)
	if base64.StdEncoding.DecodedLen(len(in)) > maxRawBytes {
		return "", ErrTooLarge
	}
	raw, err := base64.StdEncoding.DecodeString(in)
	if err != nil {
		return "", fmt.Errorf("decode base64: %w", err)
	}

	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("decode img: %w", err)
	}

	b := src.Bounds()
	if b.Dx() > maxSide || b.Dy() > maxSide {
		src = imaging.Fit(src, maxSide, maxSide, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, src, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return "", fmt.Errorf("encode jpeg: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
