package imageurl

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"io"

	// Decoders registered for image.Decode.
	_ "image/gif"
	_ "image/png"

	"github.com/cockroachdb/errors"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	defaultMaxDimension = 1920
	defaultQuality      = 80
	defaultMaxBytes     = 1 << 20
	minQuality          = 40
	qualityStep         = 10
)

// Compressor recompresses an image before it is uploaded.
type Compressor interface {
	Compress(ctx context.Context, r io.Reader) (*Compressed, error)
}

// Compressed is an encoded image ready for upload.
type Compressed struct {
	Data        []byte
	ContentType string
	Width       int
	Height      int
}

// JPEGCompressor bounds the longest side to MaxDimension and re-encodes as
// JPEG, lowering quality until the output fits in MaxBytes or the quality floor
// is reached.
type JPEGCompressor struct {
	MaxDimension int
	Quality      int
	MaxBytes     int
}

// NewJPEGCompressor fills zero fields with defaults.
func NewJPEGCompressor(maxDimension, quality, maxBytes int) *JPEGCompressor {
	if maxDimension <= 0 {
		maxDimension = defaultMaxDimension
	}
	if quality <= 0 || quality > 100 {
		quality = defaultQuality
	}
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	return &JPEGCompressor{MaxDimension: maxDimension, Quality: quality, MaxBytes: maxBytes}
}

func (c *JPEGCompressor) Compress(ctx context.Context, r io.Reader) (*Compressed, error) {
	src, _, err := image.Decode(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode image")
	}

	img := fitWithin(src, c.MaxDimension)

	var buf bytes.Buffer
	for quality := c.Quality; ; quality -= qualityStep {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if quality < minQuality {
			quality = minQuality
		}

		buf.Reset()
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, errors.Wrap(err, "failed to encode jpeg")
		}
		if buf.Len() <= c.MaxBytes || quality == minQuality {
			break
		}
	}

	bounds := img.Bounds()
	return &Compressed{
		Data:        append([]byte(nil), buf.Bytes()...),
		ContentType: "image/jpeg",
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
	}, nil
}

// fitWithin scales img down so neither side exceeds max, keeping the aspect ratio.
func fitWithin(img image.Image, max int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= max && h <= max {
		return img
	}

	var nw, nh int
	if w >= h {
		nw, nh = max, h*max/w
	} else {
		nw, nh = w*max/h, max
	}
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}
