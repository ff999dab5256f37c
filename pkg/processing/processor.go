package processing

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"

	_ "image/gif"
	_ "golang.org/x/image/webp"
)

// Processor handles byte-level image inspection and model-prep encoding.
type Processor struct{}

// NewProcessor creates a new image processor
func NewProcessor() *Processor {
	return &Processor{}
}

// DecodeDimensions extracts pixel width and height from raw image content
// without decoding the full pixel data. Registered decoders (jpeg, png, gif,
// webp) are tried first; a full WebP decode is the fallback for streams the
// header sniffing misses.
func (p *Processor) DecodeDimensions(ctx context.Context, data []byte) (int, int, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err == nil {
		return cfg.Width, cfg.Height, nil
	}

	if img, werr := webp.Decode(bytes.NewReader(data)); werr == nil {
		b := img.Bounds()
		return b.Dx(), b.Dy(), nil
	}

	return 0, 0, fmt.Errorf("image: unknown or unsupported format")
}

// DecodeImage decodes raw image content into pixels with WebP support.
func (p *Processor) DecodeImage(data []byte) (image.Image, error) {
	// Try standard image.Decode first
	if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}

	// Try WebP decode
	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}

	return nil, fmt.Errorf("image: unknown or unsupported format")
}

// PrepareForModel converts raw image content to base64 for sending to vision
// models, downscaling so the long side does not exceed maxDim (0 keeps the
// original size).
func (p *Processor) PrepareForModel(data []byte, format string, maxDim int, quality int) (string, error) {
	img, err := p.DecodeImage(data)
	if err != nil {
		return "", err
	}

	if maxDim > 0 {
		b := img.Bounds()
		w, h := b.Dx(), b.Dy()
		if w > maxDim || h > maxDim {
			if w >= h {
				img = imaging.Resize(img, maxDim, 0, imaging.Lanczos)
			} else {
				img = imaging.Resize(img, 0, maxDim, imaging.Lanczos)
			}
		}
	}

	var buf bytes.Buffer
	switch strings.ToLower(format) {
	case "png":
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return "", err
		}
	default: // jpg
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return "", err
		}
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
