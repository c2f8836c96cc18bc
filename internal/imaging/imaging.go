// Package imaging downscales client photos before they are uploaded.
package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	stddraw "image/draw"
	"image/jpeg"
	_ "image/png"
	"net/http"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/webp"
)

const (
	// MaxWidth is the widest an uploaded image may be.
	MaxWidth = 1024
	// Quality is the JPEG quality of the output.
	Quality = 70
	// OutputMIME is the content type Downscale produces.
	OutputMIME = "image/jpeg"
)

var (
	ErrEmpty       = errors.New("image is empty")
	ErrUnsupported = errors.New("image must be png, jpeg, or webp")
	ErrDecode      = errors.New("unable to decode image")
)

// Downscale decodes a png, jpeg or webp image, scales it to at most MaxWidth
// pixels wide keeping the aspect ratio, and re-encodes it as JPEG at Quality.
// Narrower images keep their size. Transparent areas become white.
func Downscale(raw []byte) ([]byte, error) {
	if len(raw) == 0 {
		return nil, ErrEmpty
	}

	switch http.DetectContentType(raw) {
	case "image/png", "image/jpeg", "image/webp":
	default:
		return nil, ErrUnsupported
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		decoded, decodeErr := webp.Decode(bytes.NewReader(raw))
		if decodeErr != nil {
			return nil, ErrDecode
		}
		img = decoded
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, errors.New("invalid image dimensions")
	}

	w, h := Fit(width, height, MaxWidth)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	stddraw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, stddraw.Src)
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, xdraw.Over, nil)

	var out bytes.Buffer
	if err := jpeg.Encode(&out, dst, &jpeg.Options{Quality: Quality}); err != nil {
		return nil, errors.New("unable to encode image")
	}
	return out.Bytes(), nil
}

// Fit returns the size of a width x height image scaled down to at most
// maxWidth wide. Images already within maxWidth are unchanged.
func Fit(width, height, maxWidth int) (int, int) {
	if width <= maxWidth {
		return width, height
	}
	h := height * maxWidth / width
	if h < 1 {
		h = 1
	}
	return maxWidth, h
}
