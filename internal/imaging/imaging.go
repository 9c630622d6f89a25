// Package imaging normalizes photos attached to lost and found reports.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"

	"golang.org/x/image/draw"
)

// Limits for accepted photos.
const (
	MaxUploadBytes = 8 << 20
	MaxPixels      = 40_000_000
	MaxDimension   = 1280
	JPEGQuality    = 82
)

// Photo errors.
var (
	ErrTooLarge    = errors.New("photo is too large")
	ErrUnsupported = errors.New("unsupported photo format (JPEG or PNG only)")
)

var decoders = map[string]func(io.Reader) (image.Image, error){
	"image/jpeg": jpeg.Decode,
	"image/png":  png.Decode,
}

var configDecoders = map[string]func(io.Reader) (image.Config, error){
	"image/jpeg": jpeg.DecodeConfig,
	"image/png":  png.DecodeConfig,
}

// Photo is a normalized report photo.
type Photo struct {
	Data          []byte
	MIME          string
	Width, Height int
}

// Process reads an uploaded photo, checks its real format and size, fits it
// within MaxDimension and re-encodes it as JPEG on a white background.
func Process(r io.Reader) (*Photo, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading photo: %w", err)
	}
	if len(data) > MaxUploadBytes {
		return nil, ErrTooLarge
	}

	mime := http.DetectContentType(data)
	decode, ok := decoders[mime]
	if !ok {
		return nil, ErrUnsupported
	}

	cfg, err := configDecoders[mime](bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("reading photo header: %w", err)
	}
	if cfg.Width*cfg.Height > MaxPixels {
		return nil, ErrTooLarge
	}

	img, err := decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding photo: %w", err)
	}

	out := fit(img, MaxDimension)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encoding photo: %w", err)
	}

	b := out.Bounds()
	return &Photo{Data: buf.Bytes(), MIME: "image/jpeg", Width: b.Dx(), Height: b.Dy()}, nil
}

// fit scales img down so neither side exceeds maxDim, keeping the aspect
// ratio, and paints it over white so transparent areas don't turn black.
func fit(img image.Image, maxDim int) *image.RGBA {
	src := img.Bounds()
	w, h := src.Dx(), src.Dy()

	if w > maxDim || h > maxDim {
		if w >= h {
			h = max(1, h*maxDim/w)
			w = maxDim
		} else {
			w = max(1, w*maxDim/h)
			h = maxDim
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	if w == src.Dx() && h == src.Dy() {
		draw.Draw(dst, dst.Bounds(), img, src.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, src, draw.Over, nil)
	}
	return dst
}
