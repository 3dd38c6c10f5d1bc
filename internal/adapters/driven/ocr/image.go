package ocr

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	"image/png"
	"os"

	_ "golang.org/x/image/bmp"  // register BMP decoder
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff" // register TIFF decoder
	_ "golang.org/x/image/webp" // register WebP decoder

	"github.com/custodia-labs/pdfsearch/internal/core/domain"
)

// Dimensions returns the pixel size of the input without decoding pixel data
// when the input is encoded.
func Dimensions(in domain.OCRInput) (width, height int, err error) {
	switch {
	case len(in.Data) > 0:
		cfg, _, err := image.DecodeConfig(bytes.NewReader(in.Data))
		if err != nil {
			return 0, 0, fmt.Errorf("reading image header: %w", err)
		}
		return cfg.Width, cfg.Height, nil
	case in.Image != nil:
		b := in.Image.Bounds()
		return b.Dx(), b.Dy(), nil
	case in.Path != "":
		f, err := os.Open(in.Path)
		if err != nil {
			return 0, 0, err
		}
		defer f.Close()
		cfg, _, err := image.DecodeConfig(f)
		if err != nil {
			return 0, 0, fmt.Errorf("reading image header: %w", err)
		}
		return cfg.Width, cfg.Height, nil
	}
	return 0, 0, fmt.Errorf("%w: empty input", domain.ErrOCRFailure)
}

// Decode returns the input as a decoded image.
func Decode(in domain.OCRInput) (image.Image, error) {
	switch {
	case len(in.Data) > 0:
		img, _, err := image.Decode(bytes.NewReader(in.Data))
		return img, err
	case in.Image != nil:
		return in.Image, nil
	case in.Path != "":
		f, err := os.Open(in.Path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		img, _, err := image.Decode(f)
		return img, err
	}
	return nil, fmt.Errorf("%w: empty input", domain.ErrOCRFailure)
}

// Preprocess prepares an image for recognition: images whose longer side
// exceeds maxDimension are scaled down, colour is dropped and the grey
// levels are stretched to the full range. maxDimension <= 0 keeps the size.
func Preprocess(img image.Image, maxDimension int) *image.Gray {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxDimension > 0 && (w > maxDimension || h > maxDimension) {
		if w >= h {
			h = max(1, h*maxDimension/w)
			w = maxDimension
		} else {
			w = max(1, w*maxDimension/h)
			h = maxDimension
		}
	}

	gray := image.NewGray(image.Rect(0, 0, w, h))
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(gray, gray.Bounds(), img, b, draw.Src, nil)
	}
	stretchContrast(gray)
	return gray
}

// stretchContrast maps the darkest pixel to black and the lightest to white.
func stretchContrast(img *image.Gray) {
	lo, hi := uint8(255), uint8(0)
	for _, p := range img.Pix {
		lo = min(lo, p)
		hi = max(hi, p)
	}
	if hi <= lo || (lo == 0 && hi == 255) {
		return
	}
	span := int(hi) - int(lo)
	for i, p := range img.Pix {
		img.Pix[i] = uint8((int(p) - int(lo)) * 255 / span)
	}
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
