package display

import (
	"io"
	"log/slog"

	"periph.io/x/conn/v3/spi"

	"github.com/AndreRenaud/inkdisplay/epd"
)

type options struct {
	logger   *slog.Logger
	bus      string
	port     spi.Port
	pins     epd.Pins
	terminal io.Writer
	open     func(bus string) (spi.PortCloser, error)
}

// Option configures New.
type Option func(*options)

// WithLogger sets the logger progress messages go to. By default they are
// discarded.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithBus selects the SPI bus by name, as known to spireg. The empty name,
// the default, picks the first bus.
func WithBus(name string) Option {
	return func(o *options) {
		o.bus = name
	}
}

// WithPort uses an already open SPI port instead of opening one. The caller
// keeps ownership of it.
func WithPort(p spi.Port) Option {
	return func(o *options) {
		o.port = p
	}
}

// WithPins sets the control pins. By default the Waveshare e-Paper HAT
// wiring is used.
func WithPins(p epd.Pins) Option {
	return func(o *options) {
		o.pins = p
	}
}

// WithTerminal shows the panel on w instead of the hardware. No bus is
// opened.
func WithTerminal(w io.Writer) Option {
	return func(o *options) {
		o.terminal = w
	}
}
