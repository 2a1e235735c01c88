package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/chai2010/webp"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
)

const (
	// DefaultWidth is the target width of transcoded component images.
	DefaultWidth = 1024
	// DefaultQuality is the lossy WebP quality factor.
	DefaultQuality = 80
)

// ErrEmptyImage is returned when Transcode receives no bytes.
var ErrEmptyImage = errors.New("image buffer is required")

// Encoded is a transcoded image ready for storage.
type Encoded struct {
	Data        []byte
	ContentType string
	Extension   string
}

// WebPTranscoder resizes images to a fixed width, preserving the aspect
// ratio, and re-encodes them as lossy WebP.
type WebPTranscoder struct {
	Width   int
	Quality float32
}

// NewWebPTranscoder returns a transcoder with the default width and quality.
func NewWebPTranscoder() *WebPTranscoder {
	return &WebPTranscoder{
		Width:   DefaultWidth,
		Quality: DefaultQuality,
	}
}

// Transcode decodes data (png, jpeg, gif, bmp, tiff or webp), scales it to
// t.Width and returns the WebP encoding.
func (t *WebPTranscoder) Transcode(data []byte) (*Encoded, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	dst := resize(src, t.Width)

	var buf bytes.Buffer
	if err := webp.Encode(&buf, dst, &webp.Options{Quality: t.Quality}); err != nil {
		return nil, fmt.Errorf("failed to encode webp: %w", err)
	}

	return &Encoded{
		Data:        buf.Bytes(),
		ContentType: "image/webp",
		Extension:   "webp",
	}, nil
}

// resize scales src to the given width. Images already at that width are
// returned unchanged.
func resize(src image.Image, width int) image.Image {
	bounds := src.Bounds()
	if width <= 0 || bounds.Dx() == 0 || bounds.Dx() == width {
		return src
	}

	height := bounds.Dy() * width / bounds.Dx()
	if height < 1 {
		height = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
	return dst
}
