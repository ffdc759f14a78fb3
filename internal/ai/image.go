package ai

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"regexp"
	"strings"

	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// dataURLPrefix matches the transport prefix browsers put on canvas snapshots.
var dataURLPrefix = regexp.MustCompile(`^data:image/\w+;base64,`)

// StripDataURL removes a leading data:image/<fmt>;base64, prefix if present.
func StripDataURL(encoded string) string {
	return dataURLPrefix.ReplaceAllString(strings.TrimSpace(encoded), "")
}

// DecodeImage turns a data URL or raw base64 string into image bytes.
// The bytes are not validated as an image.
func DecodeImage(encoded string) ([]byte, error) {
	raw := StripDataURL(encoded)
	if raw == "" {
		return nil, errors.New("image is empty")
	}
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 image: %w", err)
	}
	return data, nil
}

// EncodeDataURL renders image bytes as a data URL, sniffing the MIME type.
func EncodeDataURL(data []byte) string {
	return "data:" + ImageMIMEType(data) + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// ImageMIMEType sniffs the MIME type of image bytes, falling back to JPEG.
func ImageMIMEType(data []byte) string {
	mime := http.DetectContentType(data)
	if strings.HasPrefix(mime, "image/") {
		return mime
	}
	return "image/jpeg"
}

// PrepareImage downsizes an image for upload. When maxSize is 0 or the image
// cannot be decoded the bytes are returned unchanged.
func PrepareImage(data []byte, maxSize int) []byte {
	if maxSize <= 0 {
		return data
	}
	resized, err := ResizeImage(data, maxSize)
	if err != nil {
		return data
	}
	return resized
}

// ResizeImage resizes an image to fit within maxSize (width or height) while keeping aspect ratio.
func ResizeImage(data []byte, maxSize int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if width <= maxSize && height <= maxSize {
		// Re-encode as JPEG to ensure consistent format.
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
			return nil, fmt.Errorf("failed to encode image: %w", err)
		}
		return buf.Bytes(), nil
	}

	var newWidth, newHeight int
	if width > height {
		newWidth = maxSize
		newHeight = int(float64(height) * float64(maxSize) / float64(width))
	} else {
		newHeight = maxSize
		newWidth = int(float64(width) * float64(maxSize) / float64(height))
	}

	resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("failed to encode resized image: %w", err)
	}

	return buf.Bytes(), nil
}
