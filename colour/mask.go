package colour

import (
	"bytes"
	"image"
	"image/color"
	"image/png"

	// decoders accepted for uploaded images
	_ "image/gif"
	_ "image/jpeg"

	"github.com/BaSui01/extrudeflow/internal/pool"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

var (
	ink   = color.Gray{Y: 0}
	paper = color.Gray{Y: 255}
)

// NewCanvas returns a w×h mask filled with white.
func NewCanvas(w, h int) *image.Gray {
	m := image.NewGray(image.Rect(0, 0, w, h))
	for i := range m.Pix {
		m.Pix[i] = paper.Y
	}
	return m
}

// Marked reports whether the mask pixel at (x, y) is set.
func Marked(m *image.Gray, x, y int) bool {
	return m.GrayAt(x, y).Y != paper.Y
}

// HasInk reports whether any pixel of m is set.
func HasInk(m *image.Gray) bool {
	if m == nil {
		return false
	}
	for _, v := range m.Pix {
		if v != paper.Y {
			return true
		}
	}
	return false
}

// Decode reads a PNG, JPEG, GIF, BMP or WebP image.
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	return img, err
}

// EncodePNG serializes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	buf := pool.ByteBufferPool.Get()
	defer pool.ByteBufferPool.Put(buf)
	if err := png.Encode(buf, img); err != nil {
		return nil, err
	}
	return bytes.Clone(buf.Bytes()), nil
}
