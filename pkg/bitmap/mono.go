package bitmap

import (
	"image"
	"image/color"
)

// NewMono allocates a packed 1-bit image. Rows are padded to whole bytes.
func NewMono(r image.Rectangle) *Mono {
	stride := (r.Dx() + 7) / 8
	return &Mono{
		pixels: make([]byte, stride*r.Dy()),
		stride: stride,
		bounds: r,
	}
}

// Mono is a 1 bit per pixel frame. A set bit is ink (black), and pixel x of a
// row lives in bit x%8 of its byte, least significant bit first. It
// implements the draw.Image interface.
type Mono struct {
	pixels []byte
	stride int
	bounds image.Rectangle
}

func (m *Mono) Pixels() []byte {
	return m.pixels
}

func (m *Mono) Stride() int {
	return m.stride
}

// Bounds implements the image.Image (and draw.Image) interface.
func (m *Mono) Bounds() image.Rectangle {
	return m.bounds
}

// ColorModel implements the image.Image (and draw.Image) interface.
func (m *Mono) ColorModel() color.Model {
	return MonoModel
}

// At implements the image.Image (and draw.Image) interface.
func (m *Mono) At(x, y int) color.Color {
	if !(image.Point{X: x, Y: y}.In(m.bounds)) {
		return color.White
	}
	i, bit := m.offset(x, y)
	if m.pixels[i]&bit != 0 {
		return color.Black
	}
	return color.White
}

// Set implements the draw.Image interface.
func (m *Mono) Set(x, y int, c color.Color) {
	if !(image.Point{X: x, Y: y}.In(m.bounds)) {
		return
	}
	i, bit := m.offset(x, y)
	if isInk(c) {
		m.pixels[i] |= bit
	} else {
		m.pixels[i] &^= bit
	}
}

func (m *Mono) offset(x, y int) (int, byte) {
	x -= m.bounds.Min.X
	y -= m.bounds.Min.Y
	return y*m.stride + x/8, 1 << uint(x%8)
}

// MonoModel thresholds any colour to black or white at half luminance.
// Transparent pixels are white.
var MonoModel = color.ModelFunc(func(c color.Color) color.Color {
	if isInk(c) {
		return color.Black
	}
	return color.White
})

func isInk(c color.Color) bool {
	_, _, _, a := c.RGBA()
	if a < 0x8000 {
		return false
	}
	y := color.GrayModel.Convert(c).(color.Gray).Y
	return y < 0x80
}
