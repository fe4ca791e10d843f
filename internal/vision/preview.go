package vision

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	previewMaxSide = 640
	previewQuality = 85
)

// Preview is the image served back to the browser for the selected file.
type Preview struct {
	ContentType string
	Data        []byte
}

// DetectContentType prefers the type declared by the client and sniffs the
// bytes when none was sent.
func DetectContentType(declared string, data []byte) string {
	if declared != "" && declared != "application/octet-stream" {
		if mt, err := mimeTypeOf(declared); err == nil {
			return mt
		}
	}
	return mimetype.Detect(data).String()
}

// IsImage reports whether contentType is in the image/ family.
func IsImage(contentType string) bool {
	mt, err := mimeTypeOf(contentType)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mt, "image/") && len(mt) > len("image/")
}

// MakePreview downscales the image to fit previewMaxSide and re-encodes it as
// JPEG. Formats the decoders cannot read are passed through unchanged.
func MakePreview(contentType string, data []byte) Preview {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Preview{ContentType: contentType, Data: data}
	}

	thumb := scale(img, previewMaxSide)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: previewQuality}); err != nil {
		return Preview{ContentType: contentType, Data: data}
	}
	return Preview{ContentType: "image/jpeg", Data: buf.Bytes()}
}

func scale(img image.Image, maxSide int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxSide && h <= maxSide {
		// Still drawn onto RGBA so transparent PNGs encode predictably.
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
		draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Over)
		return dst
	}

	if w >= h {
		h = h * maxSide / w
		w = maxSide
	} else {
		w = w * maxSide / h
		h = maxSide
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

func mimeTypeOf(value string) (string, error) {
	mt, _, err := mime.ParseMediaType(strings.TrimSpace(value))
	if err != nil {
		return "", fmt.Errorf("parse content type %q: %w", value, err)
	}
	return strings.ToLower(mt), nil
}
