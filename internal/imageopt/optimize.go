// Package imageopt shrinks uploaded images before they are stored. It is best
// effort: when anything fails the original bytes are kept.
package imageopt

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"path"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

const (
	DefaultMaxDimension = 1920
	DefaultQuality      = 80
)

// ErrNotImage is returned for content the optimizer does not attempt.
var ErrNotImage = errors.New("imageopt: not a raster image")

// Result is the asset to store. Optimized is false when Data is the original.
type Result struct {
	Data        []byte
	ContentType string
	Ext         string
	Width       int
	Height      int
	Optimized   bool
}

// Optimizer fits images into a bounding box and re-encodes them.
type Optimizer struct {
	maxDimension int
	quality      int
}

// Option configures an Optimizer.
type Option func(*Optimizer)

func WithMaxDimension(max int) Option {
	return func(o *Optimizer) {
		if max > 0 {
			o.maxDimension = max
		}
	}
}

func WithQuality(quality int) Option {
	return func(o *Optimizer) {
		if quality > 0 && quality <= 100 {
			o.quality = quality
		}
	}
}

func New(opts ...Option) *Optimizer {
	o := &Optimizer{maxDimension: DefaultMaxDimension, quality: DefaultQuality}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Optimize fits data into the bounding box and returns a smaller rendition
// when it can produce one. A resized image is always kept, even when its
// encoding is not smaller than the source; an image already inside the box is
// only replaced by a smaller re-encode. The returned Result is always usable;
// the error explains a fallback.
func (o *Optimizer) Optimize(name, contentType string, data []byte) (Result, error) {
	original := Original(name, contentType, data)
	if !optimizable(original.ContentType) {
		return original, ErrNotImage
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return original, fmt.Errorf("imageopt: decode %s: %w", name, err)
	}
	bounds := img.Bounds()
	resized := bounds.Dx() > o.maxDimension || bounds.Dy() > o.maxDimension
	if resized {
		img = imaging.Fit(img, o.maxDimension, o.maxDimension, imaging.Lanczos)
	}

	format := imaging.PNG
	if opaque(img) {
		format = imaging.JPEG
	}
	out, err := o.encode(img, format)
	if err != nil {
		return original, fmt.Errorf("imageopt: encode %s: %w", name, err)
	}
	if !resized {
		if len(out.Data) >= len(data) {
			original.Width, original.Height = bounds.Dx(), bounds.Dy()
			return original, nil
		}
		return out, nil
	}
	// The source format may compress the resized pixels better.
	if source, ok := encodable(original.ContentType); ok && source != format && len(out.Data) >= len(data) {
		if alt, err := o.encode(img, source); err == nil && len(alt.Data) < len(out.Data) {
			out = alt
		}
	}
	return out, nil
}

func (o *Optimizer) encode(img image.Image, format imaging.Format) (Result, error) {
	var buf bytes.Buffer
	out := Result{Width: img.Bounds().Dx(), Height: img.Bounds().Dy(), Optimized: true}
	var err error
	if format == imaging.JPEG {
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(o.quality))
		out.ContentType, out.Ext = "image/jpeg", ".jpg"
	} else {
		err = imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression))
		out.ContentType, out.Ext = "image/png", ".png"
	}
	if err != nil {
		return Result{}, err
	}
	out.Data = buf.Bytes()
	return out, nil
}

// encodable maps a source content type onto a format imaging can write.
// WebP sources are written as JPEG or PNG.
func encodable(contentType string) (imaging.Format, bool) {
	switch contentType {
	case "image/jpeg", "image/jpg":
		return imaging.JPEG, true
	case "image/png":
		return imaging.PNG, true
	default:
		return 0, false
	}
}

// Original describes data as-is, with the content type and extension inferred
// from the name when the caller did not provide one.
func Original(name, contentType string, data []byte) Result {
	ext := strings.ToLower(path.Ext(name))
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if contentType == "" {
		contentType = contentTypeFor(ext)
	}
	if ext == "" {
		ext = extFor(contentType)
	}
	return Result{Data: data, ContentType: contentType, Ext: ext}
}

// Animated GIFs and vector images are stored untouched.
func optimizable(contentType string) bool {
	switch contentType {
	case "image/jpeg", "image/jpg", "image/png", "image/webp":
		return true
	default:
		return false
	}
}

func opaque(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}
	return false
}

func contentTypeFor(ext string) string {
	switch ext {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	case ".svg":
		return "image/svg+xml"
	case ".mp4":
		return "video/mp4"
	default:
		return "application/octet-stream"
	}
}

func extFor(contentType string) string {
	switch contentType {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	case "image/svg+xml":
		return ".svg"
	case "video/mp4":
		return ".mp4"
	default:
		return ".bin"
	}
}
