package bitmap

import (
	"image"
)

// Encode packs src into the Mono layout and returns the raw bytes.
func Encode(src image.Image) []byte {
	b := src.Bounds()
	dst := NewMono(b)

	for x := b.Min.X; x < b.Max.X; x++ {
		for y := b.Min.Y; y < b.Max.Y; y++ {
			dst.Set(x, y, src.At(x, y))
		}
	}

	return dst.pixels
}

// Decode unpacks raw Mono bytes of the given size back into an image.
func Decode(pixels []byte, width, height int) *Mono {
	m := NewMono(image.Rect(0, 0, width, height))
	copy(m.pixels, pixels)
	return m
}
