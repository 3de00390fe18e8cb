package epd

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/MaxHalford/halfgone"
	"github.com/disintegration/imaging"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// bufferSize returns the packed size of a buffer for bounds.
func bufferSize(bounds image.Rectangle) int {
	return (bounds.Dx() + 7) / 8 * bounds.Dy()
}

// fitPanel returns img at exactly the panel size. Portrait images on a
// landscape panel (and the reverse) are rotated, anything else is scaled to
// fit and centred on white.
func fitPanel(bounds image.Rectangle, img image.Image) image.Image {
	w, h := bounds.Dx(), bounds.Dy()
	ib := img.Bounds()
	switch {
	case ib.Dx() == w && ib.Dy() == h:
		return img
	case ib.Dx() == h && ib.Dy() == w:
		return imaging.Rotate90(img)
	default:
		scaled := imaging.Fit(img, w, h, imaging.Lanczos)
		return imaging.PasteCenter(imaging.New(w, h, color.White), scaled)
	}
}

func isWhite(c color.Color) bool {
	return color.GrayModel.Convert(c).(color.Gray).Y >= 0x80
}

// twoTone reports whether every pixel of gray is pure black or pure white.
func twoTone(gray *image.Gray) bool {
	for _, p := range gray.Pix {
		if p != 0 && p != 0xff {
			return false
		}
	}
	return true
}

// packBuffer converts img to the packed 1-bit layout shared by all drivers.
func packBuffer(bounds image.Rectangle, img image.Image) ([]byte, error) {
	if img == nil {
		return nil, fmt.Errorf("epd: nil image")
	}
	if bounds.Empty() {
		return nil, fmt.Errorf("epd: empty panel bounds %v", bounds)
	}
	w, h := bounds.Dx(), bounds.Dy()
	stride := (w + 7) / 8
	tosend := make([]byte, bufferSize(bounds))

	if bits, ok := img.(*image1bit.VerticalLSB); ok && bits.Bounds().Dx() == w && bits.Bounds().Dy() == h {
		min := bits.Bounds().Min
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				if bits.BitAt(min.X+x, min.Y+y) == image1bit.On {
					tosend[y*stride+x/8] |= 0x80 >> (x % 8)
				}
			}
		}
		return tosend, nil
	}

	src := fitPanel(bounds, img)
	panel := image.Rect(0, 0, w, h)
	gray := image.NewGray(panel)
	// Transparent pixels end up white.
	draw.Draw(gray, panel, &image.Uniform{color.White}, image.Point{}, draw.Src)
	draw.Draw(gray, panel, src, src.Bounds().Min, draw.Over)
	if !twoTone(gray) {
		gray = halfgone.FloydSteinbergDitherer{}.Apply(gray)
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if isWhite(gray.GrayAt(x, y)) {
				tosend[y*stride+x/8] |= 0x80 >> (x % 8)
			}
		}
	}
	return tosend, nil
}

// invert returns a copy of buf with every bit flipped.
func invert(buf []byte) []byte {
	out := make([]byte, len(buf))
	for i, b := range buf {
		out[i] = ^b
	}
	return out
}

// fill returns a buffer of n bytes set to v.
func fill(n int, v byte) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func checkBuffer(bounds image.Rectangle, name string, buf []byte) error {
	if want := bufferSize(bounds); len(buf) != want {
		return fmt.Errorf("epd: %s buffer is %d bytes, want %d", name, len(buf), want)
	}
	return nil
}
