// Package texture decodes image files into tightly packed RGBA8 pixels ready
// for upload.
package texture

import (
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math/bits"
	"os"

	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Pixels is an RGBA8 image with rows packed back to back.
type Pixels struct {
	Width  uint32
	Height uint32
	Data   []byte
}

// Size returns the byte length of the pixel data.
func (p *Pixels) Size() int { return len(p.Data) }

// MipLevels returns how many levels a full mip chain of p has.
func (p *Pixels) MipLevels() uint32 {
	return MipLevels(p.Width, p.Height)
}

// MipLevels returns floor(log2(max(width, height))) + 1.
func MipLevels(width, height uint32) uint32 {
	m := width
	if height > m {
		m = height
	}
	if m == 0 {
		return 1
	}
	return uint32(bits.Len32(m))
}

// Load decodes the image at path.
func Load(path string) (*Pixels, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open texture")
	}
	defer f.Close()

	p, err := Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	return p, nil
}

// Decode reads any registered image format and converts it to RGBA8.
func Decode(r io.Reader) (*Pixels, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, err
	}
	return FromImage(img)
}

// FromImage converts img to packed RGBA8.
func FromImage(img image.Image) (*Pixels, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, errors.New("image is empty")
	}
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != 4*b.Dx() || b.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}
	return &Pixels{
		Width:  uint32(b.Dx()),
		Height: uint32(b.Dy()),
		Data:   rgba.Pix,
	}, nil
}

// Checker returns a 2x2 grey checkerboard used when a texture cannot be
// loaded.
func Checker() *Pixels {
	return &Pixels{
		Width:  2,
		Height: 2,
		Data: []byte{
			255, 255, 255, 255, 50, 50, 50, 255,
			50, 50, 50, 255, 255, 255, 255, 255,
		},
	}
}
