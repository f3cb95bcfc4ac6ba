// Package pixels holds the in-memory raster representation used by the
// comparison engine and the codec that moves it to and from image files.
package pixels

import (
	"fmt"
	"image"
	"image/draw"
)

// Buffer is a width x height raster of non-premultiplied RGBA bytes.
type Buffer struct {
	Width  int
	Height int
	Data   []byte
}

// New allocates a zeroed (transparent black) buffer.
func New(width, height int) Buffer {
	return Buffer{
		Width:  width,
		Height: height,
		Data:   make([]byte, width*height*4),
	}
}

// Validate checks the dimension and length invariants.
func (b Buffer) Validate() error {
	if b.Width <= 0 || b.Height <= 0 {
		return fmt.Errorf("invalid dimensions %dx%d", b.Width, b.Height)
	}
	if want := b.Width * b.Height * 4; len(b.Data) != want {
		return fmt.Errorf("pixel data is %d bytes, want %d for %dx%d", len(b.Data), want, b.Width, b.Height)
	}
	return nil
}

// SameSize reports whether b and o have identical dimensions.
func (b Buffer) SameSize(o Buffer) bool {
	return b.Width == o.Width && b.Height == o.Height
}

// At returns the RGBA bytes of the pixel at (x, y).
func (b Buffer) At(x, y int) (r, g, bl, a uint8) {
	i := (y*b.Width + x) * 4
	return b.Data[i], b.Data[i+1], b.Data[i+2], b.Data[i+3]
}

// Set writes the pixel at (x, y).
func (b Buffer) Set(x, y int, r, g, bl, a uint8) {
	i := (y*b.Width + x) * 4
	b.Data[i], b.Data[i+1], b.Data[i+2], b.Data[i+3] = r, g, bl, a
}

// Fill paints every pixel with one color.
func (b Buffer) Fill(r, g, bl, a uint8) {
	for i := 0; i < len(b.Data); i += 4 {
		b.Data[i], b.Data[i+1], b.Data[i+2], b.Data[i+3] = r, g, bl, a
	}
}

// Clone returns a deep copy.
func (b Buffer) Clone() Buffer {
	data := make([]byte, len(b.Data))
	copy(data, b.Data)
	return Buffer{Width: b.Width, Height: b.Height, Data: data}
}

// Image wraps the buffer as an *image.NRGBA sharing the same bytes.
func (b Buffer) Image() *image.NRGBA {
	return &image.NRGBA{
		Pix:    b.Data,
		Stride: b.Width * 4,
		Rect:   image.Rect(0, 0, b.Width, b.Height),
	}
}

// FromImage converts any image into a buffer anchored at (0, 0).
func FromImage(img image.Image) Buffer {
	bounds := img.Bounds()
	if nrgba, ok := img.(*image.NRGBA); ok && bounds.Min == (image.Point{}) && nrgba.Stride == bounds.Dx()*4 {
		return Buffer{Width: bounds.Dx(), Height: bounds.Dy(), Data: nrgba.Pix[:bounds.Dx()*bounds.Dy()*4]}
	}

	dst := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Src)
	return Buffer{Width: bounds.Dx(), Height: bounds.Dy(), Data: dst.Pix}
}
