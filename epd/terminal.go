package epd

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
)

// maxTerminalColumns bounds the width of the terminal preview; larger panels
// are sampled down.
const maxTerminalColumns = 100

// Terminal is a Driver that shows the panel content on an ANSI terminal.
//
// Useful while working on layouts away from the hardware.
type Terminal struct {
	w       io.Writer
	bounds  image.Rectangle
	palette ansi256.Palette
	buf     bytes.Buffer

	awake bool
}

// NewTerminal returns a Terminal with the geometry of m. A nil w writes to
// stdout.
func NewTerminal(m Model, w io.Writer) *Terminal {
	if w == nil {
		w = colorable.NewColorableStdout()
	}
	return &Terminal{
		w:       w,
		bounds:  m.Bounds(),
		palette: *ansi256.Default,
	}
}

func (t *Terminal) String() string {
	return fmt.Sprintf("Terminal{%dx%d}", t.bounds.Dx(), t.bounds.Dy())
}

// Bounds implements Driver.
func (t *Terminal) Bounds() image.Rectangle {
	return t.bounds
}

// Buffer implements Driver.
func (t *Terminal) Buffer(img image.Image) ([]byte, error) {
	return packBuffer(t.bounds, img)
}

// Init implements Driver.
func (t *Terminal) Init() error {
	t.awake = true
	return nil
}

// Sleep implements Driver.
func (t *Terminal) Sleep() error {
	t.awake = false
	return nil
}

// Display implements Driver.
func (t *Terminal) Display(black, colour []byte) error {
	if !t.awake {
		return fmt.Errorf("epd: %s: display while asleep", t)
	}
	if err := checkBuffer(t.bounds, "black", black); err != nil {
		return err
	}
	if colour != nil {
		if err := checkBuffer(t.bounds, "colour", colour); err != nil {
			return err
		}
	}

	w, h := t.bounds.Dx(), t.bounds.Dy()
	stride := (w + 7) / 8
	step := (w + maxTerminalColumns - 1) / maxTerminalColumns
	bit := func(buf []byte, x, y int) bool {
		return buf[y*stride+x/8]&(0x80>>(x%8)) != 0
	}

	t.buf.Reset()
	// Terminal cells are about twice as tall as wide.
	for y := 0; y < h; y += 2 * step {
		_, _ = t.buf.WriteString("\033[0m")
		for x := 0; x < w; x += step {
			c := color.NRGBA{A: 255}
			switch {
			case colour != nil && !bit(colour, x, y):
				c.R = 255
			case bit(black, x, y):
				c = color.NRGBA{255, 255, 255, 255}
			}
			_, _ = io.WriteString(&t.buf, t.palette.Block(c))
		}
		_, _ = t.buf.WriteString("\033[0m\n")
	}
	_, err := t.buf.WriteTo(t.w)
	return err
}

var _ Driver = &Terminal{}
var _ fmt.Stringer = &Terminal{}
