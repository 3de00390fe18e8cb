package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/disintegration/imaging"
	"github.com/mattn/go-colorable"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/host/v3"
	"periph.io/x/host/v3/ftdi"

	"github.com/AndreRenaud/inkdisplay/config"
	"github.com/AndreRenaud/inkdisplay/display"
	"github.com/AndreRenaud/inkdisplay/epd"
	"github.com/AndreRenaud/inkdisplay/stocks"
)

func findGPIO(ft232h *ftdi.FT232H, name string) (gpio.PinIO, error) {
	headers := ft232h.Header()
	for _, h := range headers {
		if h.Name() == name {
			return h, nil
		}
	}
	return nil, fmt.Errorf("no such gpio %s", name)
}

func getImageFromFilePath(filePath string) (image.Image, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	image, _, err := image.Decode(f)
	return image, err
}

// displayOptions works out how to reach the panel described by cfg.
func displayOptions(cfg config.Display, log *slog.Logger) ([]display.Option, error) {
	opts := []display.Option{display.WithLogger(log)}
	if cfg.Terminal {
		return append(opts, display.WithTerminal(colorable.NewColorableStdout())), nil
	}
	if _, err := host.Init(); err != nil {
		return nil, err
	}
	if !cfg.FTDI {
		pins, err := cfg.Pins.Resolve(display.HostPin)
		if err != nil {
			return nil, err
		}
		return append(opts, display.WithBus(cfg.SPIBus), display.WithPins(pins)), nil
	}

	all := ftdi.All()
	if len(all) == 0 {
		return nil, fmt.Errorf("found no FTDI device on the USB bus")
	}
	// Use channel A.
	ft232h, ok := all[0].(*ftdi.FT232H)
	if !ok {
		return nil, fmt.Errorf("not FTDI device on the USB bus")
	}
	s, err := ft232h.SPI()
	if err != nil {
		return nil, fmt.Errorf("spi: %w", err)
	}
	pins, err := cfg.Pins.Resolve(func(name string) (gpio.PinIO, error) {
		return findGPIO(ft232h, name)
	})
	if err != nil {
		return nil, err
	}
	return append(opts, display.WithPort(s), display.WithPins(pins)), nil
}

var (
	configPath     = flag.String("config", "", "YAML settings file")
	model          = flag.String("model", "", "Display model, overrides the settings file")
	imageFilename  = flag.String("image", "", "Image to draw on the EInk")
	colourFilename = flag.String("colour-image", "", "Image to draw on the colour plane")
	rotate         = flag.Int("rotate", 0, "Rotation angle")
	calibrate      = flag.Bool("calibrate", false, "Cycle the panel through solid colours")
	cycles         = flag.Int("cycles", 0, "Calibration cycles, overrides the settings file")
	showStocks     = flag.Bool("stocks", false, "Draw the stock ticker widget")
	useFTDI        = flag.Bool("ftdi", false, "Use an FT232H on the USB bus")
	terminal       = flag.Bool("terminal", false, "Show the panel on the terminal")
	list           = flag.Bool("list", false, "List the supported display models")
	verbose        = flag.Bool("v", false, "Verbose logging")
)

func run(log *slog.Logger) error {
	if *list {
		for _, name := range epd.SupportedTypes() {
			m, _ := epd.Lookup(name)
			fmt.Printf("%-18s %dx%d\n", name, m.Width, m.Height)
		}
		return nil
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return err
		}
	}
	if *model != "" {
		cfg.Display.Model = *model
	}
	if *cycles != 0 {
		cfg.Display.CalibrationCycles = *cycles
	}
	if *useFTDI && !cfg.Display.FTDI {
		cfg.Display.FTDI = true
		cfg.Display.Pins = display.FT232HPins
	}
	cfg.Display.Terminal = cfg.Display.Terminal || *terminal

	if !*calibrate && !*showStocks && *imageFilename == "" {
		return fmt.Errorf("must supply -image, -stocks or -calibrate")
	}

	opts, err := displayOptions(cfg.Display, log)
	if err != nil {
		return err
	}
	d, err := display.New(cfg.Display.Model, opts...)
	if err != nil {
		return err
	}
	defer d.Close()

	if *calibrate {
		start := time.Now()
		if err := d.Calibrate(cfg.Display.CalibrationCycles); err != nil {
			return err
		}
		log.Info("calibration complete", "took", time.Since(start))
		return nil
	}

	var black, colour image.Image
	if *showStocks {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		w, err := stocks.New(cfg.Stocks, &stocks.YahooProvider{}, stocks.WithLogger(log))
		if err != nil {
			return err
		}
		if black, colour, err = w.GenerateImage(ctx); err != nil {
			return err
		}
	} else {
		logo, err := getImageFromFilePath(*imageFilename)
		if err != nil {
			return fmt.Errorf("load image: %w", err)
		}
		black = imaging.Rotate(logo, float64(*rotate%360), color.White)
		if *colourFilename != "" {
			c, err := getImageFromFilePath(*colourFilename)
			if err != nil {
				return fmt.Errorf("load colour image: %w", err)
			}
			colour = imaging.Rotate(c, float64(*rotate%360), color.White)
		}
	}
	if !d.SupportsColour() {
		colour = nil
	} else if colour == nil {
		colour = imaging.New(black.Bounds().Dx(), black.Bounds().Dy(), color.White)
	}
	return d.Render(black, colour)
}

func main() {
	flag.Parse()
	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	if err := run(log); err != nil {
		log.Error("inkdisplay failed", "err", err)
		os.Exit(1)
	}
}
