// Package config loads the inkdisplay settings file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/AndreRenaud/inkdisplay/display"
	"github.com/AndreRenaud/inkdisplay/epd"
	"github.com/AndreRenaud/inkdisplay/stocks"
)

// Config is the whole settings file.
type Config struct {
	Display Display       `yaml:"display"`
	Stocks  stocks.Config `yaml:"stocks"`
}

// Display selects and wires the panel.
type Display struct {
	Model             string `yaml:"model"`
	SPIBus            string `yaml:"spi_bus"`
	FTDI              bool   `yaml:"ftdi"`
	Terminal          bool   `yaml:"terminal"`
	Pins              Pins   `yaml:"pins"`
	CalibrationCycles int    `yaml:"calibration_cycles"`
}

// Pins names the control lines, as known to gpioreg or the FT232H header.
type Pins = display.PinNames

// Default returns the configuration used when there is no settings file.
func Default() Config {
	return Config{
		Display: Display{
			Model:             "epd_7in5_v2",
			CalibrationCycles: display.DefaultCalibrationCycles,
		},
		Stocks: stocks.Config{
			Size:     [2]int{400, 200},
			PaddingX: 10,
			PaddingY: 10,
			FontSize: 12,
			Language: "en",
		},
	}
}

// Load reads the settings file at path.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()
	cfg, err := Parse(f)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a settings file on top of Default and validates it.
func Parse(r io.Reader) (Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, err
	}
	cfg.fillPins()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// fillPins sets the unset pins to the wiring of the selected bus.
func (c *Config) fillPins() {
	def := display.HATPins
	if c.Display.FTDI {
		def = display.FT232HPins
	}
	p := &c.Display.Pins
	if p.DC == "" {
		p.DC = def.DC
	}
	if p.CS == "" {
		p.CS = def.CS
	}
	if p.RST == "" {
		p.RST = def.RST
	}
	if p.Busy == "" {
		p.Busy = def.Busy
	}
}

// Validate checks the configuration for values that can never work.
func (c Config) Validate() error {
	if _, ok := epd.Lookup(c.Display.Model); !ok {
		return fmt.Errorf("config: display model %q is not supported, choose one of %v", c.Display.Model, epd.SupportedTypes())
	}
	if c.Display.CalibrationCycles < 0 {
		return fmt.Errorf("config: calibration_cycles must not be negative, got %d", c.Display.CalibrationCycles)
	}
	if c.Stocks.Size[0] <= 0 || c.Stocks.Size[1] <= 0 {
		return fmt.Errorf("config: stocks size %v must be positive", c.Stocks.Size)
	}
	return nil
}
