// Package epd holds the e-paper panel drivers and the registry that maps a
// panel profile name, such as "epd_7in5_colour", to the driver for it.
package epd

import (
	"errors"
	"fmt"
	"image"
	"sort"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/spi"
)

// Driver is the set of primitives every panel driver offers.
//
// Buffers are in the packed layout returned by Buffer: one bit per pixel,
// most significant bit first, row-major, each row padded to a whole byte,
// bit set for white. For the colour plane a cleared bit means "coloured".
type Driver interface {
	// Init wakes the panel and loads its register configuration.
	Init() error
	// Buffer converts img to the driver's native buffer.
	Buffer(img image.Image) ([]byte, error)
	// Display transmits the buffers and refreshes the panel. colour is nil
	// for monochrome panels.
	Display(black, colour []byte) error
	// Sleep puts the panel in deep sleep. Init must be called again
	// before the next Display.
	Sleep() error
	// Bounds returns the native panel size.
	Bounds() image.Rectangle
}

// Pins are the control lines shared by every SPI e-paper panel.
type Pins struct {
	DC   gpio.PinOut
	CS   gpio.PinOut
	RST  gpio.PinOut
	Busy gpio.PinIO
}

// Constructor builds a driver on the given SPI port.
type Constructor func(s spi.Port, p Pins) (Driver, error)

// Model describes one supported panel.
type Model struct {
	Width  int
	Height int
	New    Constructor
}

// Bounds returns the native panel size of the model.
func (m Model) Bounds() image.Rectangle {
	return image.Rect(0, 0, m.Width, m.Height)
}

// ErrUnknownModel is returned for a profile name that has no registered
// driver.
var ErrUnknownModel = errors.New("epd: unknown model")

var (
	mu        sync.Mutex
	epd_types = map[string]Model{
		"epd_1in54_v2":    {Width: 200, Height: 200, New: newSSD16xx(&epd1in54v2)},
		"epd_2in9_v2":     {Width: 128, Height: 296, New: newSSD16xx(&epd2in9v2)},
		"epd_2in9_colour": {Width: 128, Height: 296, New: newSSD16xx(&epd2in9colour)},
		"epd_1in54_m09":   {Width: 200, Height: 200, New: newUC81xx(&epd1in54m09)},
		"epd_2in7":        {Width: 176, Height: 264, New: newUC81xx(&epd2in7)},
		"epd_4in2_colour": {Width: 400, Height: 300, New: newUC81xx(&epd4in2colour)},
		"epd_7in5_v2":     {Width: 800, Height: 480, New: newUC81xx(&epd7in5v2)},
		"epd_7in5_colour": {Width: 800, Height: 480, New: newUC81xx(&epd7in5colour)},
	}
)

// Register adds a panel model. It panics if name is already registered.
func Register(name string, m Model) {
	mu.Lock()
	defer mu.Unlock()
	if _, ok := epd_types[name]; ok {
		panic(fmt.Sprintf("epd: model %q registered twice", name))
	}
	if m.New == nil {
		panic(fmt.Sprintf("epd: model %q has no constructor", name))
	}
	epd_types[name] = m
}

// Lookup returns the model registered under name.
func Lookup(name string) (Model, bool) {
	mu.Lock()
	defer mu.Unlock()
	m, ok := epd_types[name]
	return m, ok
}

// SupportedTypes returns the registered profile names, sorted.
func SupportedTypes() []string {
	mu.Lock()
	defer mu.Unlock()
	retval := make([]string, 0, len(epd_types))
	for k := range epd_types {
		retval = append(retval, k)
	}
	sort.Strings(retval)
	return retval
}

// NewFromSPI builds the driver registered under name.
func NewFromSPI(name string, s spi.Port, p Pins) (Driver, error) {
	m, ok := Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownModel, name)
	}
	return m.New(s, p)
}
