// Package display drives an e-paper panel chosen by profile name: it renders
// images to it and runs the anti-ghosting calibration.
package display

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"io"
	"log/slog"
	"strings"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/AndreRenaud/inkdisplay/epd"
)

// DefaultCalibrationCycles is the number of flush cycles Calibrate runs when
// asked for zero or fewer.
const DefaultCalibrationCycles = 3

var (
	// ErrUnsupportedProfile is returned by New when no driver is registered
	// for the profile.
	ErrUnsupportedProfile = errors.New("display: module not supported, check spelling")
	// ErrHardwareUnavailable is returned by New when the SPI bus or the
	// control pins cannot be opened.
	ErrHardwareUnavailable = errors.New("display: SPI could not be found, check if SPI is enabled")
	// ErrMissingColourPlane is returned by Render on a colour panel when no
	// colour image is given.
	ErrMissingColourPlane = errors.New("display: colour image is required for colour e-paper displays")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("display: closed")
)

// PinNames names the control lines of a panel.
type PinNames struct {
	DC   string `yaml:"dc"`
	CS   string `yaml:"cs"`
	RST  string `yaml:"rst"`
	Busy string `yaml:"busy"`
}

// HATPins is the Waveshare e-Paper HAT wiring on a Raspberry Pi header.
var HATPins = PinNames{DC: "GPIO25", CS: "GPIO8", RST: "GPIO17", Busy: "GPIO24"}

// FT232HPins is the wiring on the C bus of an FT232H bridge.
var FT232HPins = PinNames{DC: "FT232H.C0", CS: "FT232H.C1", RST: "FT232H.C2", Busy: "FT232H.C3"}

// Resolve looks every pin up with find.
func (n PinNames) Resolve(find func(name string) (gpio.PinIO, error)) (epd.Pins, error) {
	var pins epd.Pins
	var err error
	if pins.DC, err = find(n.DC); err != nil {
		return epd.Pins{}, fmt.Errorf("dc: %w", err)
	}
	if pins.CS, err = find(n.CS); err != nil {
		return epd.Pins{}, fmt.Errorf("cs: %w", err)
	}
	if pins.RST, err = find(n.RST); err != nil {
		return epd.Pins{}, fmt.Errorf("rst: %w", err)
	}
	if pins.Busy, err = find(n.Busy); err != nil {
		return epd.Pins{}, fmt.Errorf("busy: %w", err)
	}
	return pins, nil
}

// HostPin finds a pin of the host in gpioreg.
func HostPin(name string) (gpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("no such gpio %s", name)
	}
	return p, nil
}

// lookupModel resolves profile names, tests replace it.
var lookupModel = epd.Lookup

// Display owns the driver of one panel.
type Display struct {
	profile        string
	supportsColour bool
	drv            epd.Driver
	port           spi.PortCloser // nil unless opened by New
	log            *slog.Logger
	state          State
	closed         bool
}

// New loads the driver for profile. The profile supports a colour plane
// when its name contains "colour".
func New(profile string, opts ...Option) (*Display, error) {
	o := options{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		open:   openSPI,
	}
	for _, opt := range opts {
		opt(&o)
	}

	d := &Display{
		profile:        profile,
		supportsColour: strings.Contains(profile, "colour"),
		log:            o.logger.With("profile", profile),
		state:          Ready,
	}

	m, ok := lookupModel(profile)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProfile, profile)
	}

	if o.terminal != nil {
		d.drv = epd.NewTerminal(m, o.terminal)
		return d, nil
	}

	port := o.port
	if port == nil {
		pc, err := o.open(o.bus)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrHardwareUnavailable, err)
		}
		port, d.port = pc, pc
	}

	pins := o.pins
	if pins.DC == nil {
		var err error
		if pins, err = defaultPins(); err != nil {
			d.closePort()
			return nil, fmt.Errorf("%w: %v", ErrHardwareUnavailable, err)
		}
	}

	drv, err := m.New(port, pins)
	if err != nil {
		d.closePort()
		return nil, fmt.Errorf("%w: %s: %w", ErrHardwareUnavailable, profile, err)
	}
	d.drv = drv
	d.log.Debug("driver loaded", "bounds", drv.Bounds())
	return d, nil
}

func openSPI(bus string) (spi.PortCloser, error) {
	if _, err := host.Init(); err != nil {
		return nil, err
	}
	return spireg.Open(bus)
}

func defaultPins() (epd.Pins, error) {
	pins, err := HATPins.Resolve(HostPin)
	if err != nil {
		return epd.Pins{}, fmt.Errorf("e-Paper HAT pins: %w", err)
	}
	return pins, nil
}

// Profile returns the hardware profile name.
func (d *Display) Profile() string {
	return d.profile
}

// SupportsColour reports whether the panel has a colour plane.
func (d *Display) SupportsColour() bool {
	return d.supportsColour
}

// Bounds returns the native panel size.
func (d *Display) Bounds() image.Rectangle {
	return d.drv.Bounds()
}

// State returns the power state of the panel.
func (d *Display) State() State {
	return d.state
}

// Render shows black, and colour on colour panels. Pixels that are black in
// colour are drawn in the panel's colour. colour is ignored on monochrome
// panels.
func (d *Display) Render(black, colour image.Image) error {
	if d.closed {
		return ErrClosed
	}
	if black == nil {
		return errors.New("display: black image is required")
	}
	if d.supportsColour && colour == nil {
		return ErrMissingColourPlane
	}

	d.state = Active
	d.log.Info("initialising")
	if err := d.drv.Init(); err != nil {
		return fmt.Errorf("display: init: %w", err)
	}

	b, err := d.drv.Buffer(black)
	if err != nil {
		return fmt.Errorf("display: black image: %w", err)
	}
	var c []byte
	if d.supportsColour {
		if c, err = d.drv.Buffer(colour); err != nil {
			return fmt.Errorf("display: colour image: %w", err)
		}
	}

	d.log.Info("updating display")
	if err := d.drv.Display(b, c); err != nil {
		return fmt.Errorf("display: update: %w", err)
	}

	d.log.Info("sending e-paper to deep sleep")
	if err := d.drv.Sleep(); err != nil {
		return fmt.Errorf("display: sleep: %w", err)
	}
	d.state = Asleep
	d.log.Info("done")
	return nil
}

// Calibrate flushes the panel with solid colours to clear ghosting. cycles
// is how often each colour is shown, 3 is recommended.
//
// Colour panels are left awake at the end; only monochrome panels are put to
// sleep.
func (d *Display) Calibrate(cycles int) error {
	if d.closed {
		return ErrClosed
	}
	if cycles <= 0 {
		cycles = DefaultCalibrationCycles
	}

	d.state = Active
	if err := d.drv.Init(); err != nil {
		return fmt.Errorf("display: init: %w", err)
	}

	white, err := d.solid(image1bit.On)
	if err != nil {
		return err
	}
	black, err := d.solid(image1bit.Off)
	if err != nil {
		return err
	}

	d.log.Info("started calibration", "cycles", cycles)
	if d.supportsColour {
		for i := 0; i < cycles; i++ {
			d.log.Debug("calibrating black")
			if err := d.drv.Display(black, white); err != nil {
				return fmt.Errorf("display: calibrate: %w", err)
			}
			d.log.Debug("calibrating colour")
			if err := d.drv.Display(white, black); err != nil {
				return fmt.Errorf("display: calibrate: %w", err)
			}
			d.log.Debug("calibrating white")
			if err := d.drv.Display(white, white); err != nil {
				return fmt.Errorf("display: calibrate: %w", err)
			}
			d.log.Info("cycle complete", "cycle", i+1, "of", cycles)
		}
		return nil
	}

	for i := 0; i < cycles; i++ {
		d.log.Debug("calibrating black")
		if err := d.drv.Display(black, nil); err != nil {
			return fmt.Errorf("display: calibrate: %w", err)
		}
		d.log.Debug("calibrating white")
		if err := d.drv.Display(white, nil); err != nil {
			return fmt.Errorf("display: calibrate: %w", err)
		}
		d.log.Info("cycle complete", "cycle", i+1, "of", cycles)
	}
	d.log.Info("calibration complete")
	if err := d.drv.Sleep(); err != nil {
		return fmt.Errorf("display: sleep: %w", err)
	}
	d.state = Asleep
	return nil
}

// solid returns the buffer of a panel filled with b.
func (d *Display) solid(b image1bit.Bit) ([]byte, error) {
	img := image1bit.NewVerticalLSB(d.drv.Bounds())
	draw.Draw(img, img.Bounds(), &image.Uniform{b}, image.Point{}, draw.Src)
	buf, err := d.drv.Buffer(img)
	if err != nil {
		return nil, fmt.Errorf("display: calibration image: %w", err)
	}
	return buf, nil
}

// Close releases the SPI port opened by New. The panel keeps its last
// image.
func (d *Display) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	return d.closePort()
}

func (d *Display) closePort() error {
	if d.port == nil {
		return nil
	}
	err := d.port.Close()
	d.port = nil
	return err
}
