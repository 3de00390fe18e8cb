package epd

// Register sequences based on the GoodDisplay GDEW0154M09 and Waveshare
// UC8179/IL0398/IL91874 reference code,
// https://github.com/GoodDisplay/E-paper-Display-Library-of-GoodDisplay/blob/main/Monochrome_E-paper-Display/1.54inch_JD79653_GDEW0154M09_200x200/Arduino/GDEW0154M09_Arduino.ino

import (
	"image"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// UC81xx commands
const (
	ucPanelSetting           byte = 0x00
	ucPowerSetting           byte = 0x01
	ucPowerOff               byte = 0x02
	ucPowerOn                byte = 0x04
	ucBoosterSoftStart       byte = 0x06
	ucDeepSleep              byte = 0x07
	ucDataStartTransmission1 byte = 0x10
	ucDisplayRefresh         byte = 0x12
	ucDataStartTransmission2 byte = 0x13
	ucDualSPI                byte = 0x15
	ucLutVcom                byte = 0x20
	ucLutWW                  byte = 0x21
	ucLutBW                  byte = 0x22
	ucLutWB                  byte = 0x23
	ucLutBB                  byte = 0x24
	ucVcomDataInterval       byte = 0x50
	ucTconSetting            byte = 0x60
	ucResolutionSetting      byte = 0x61
	ucVcomDCSetting          byte = 0x82
)

// ucDeepSleepCheck is the check code the deep sleep command requires.
const ucDeepSleepCheck byte = 0xA5

type command struct {
	cmd  byte
	data []byte
}

// ucOpts is the per-panel configuration of a UC81xx controller.
//
// Monochrome panels write white to the old-data RAM and the image to the
// new-data RAM. Colour panels write the black plane to the first RAM and the
// colour plane to the second.
type ucOpts struct {
	width, height int
	colour        bool
	setup         []command // sent after reset, before power on
	invertBlack   bool
	invertColour  bool
}

var epd1in54m09 = ucOpts{
	width:  200,
	height: 200,
	setup: []command{
		{ucPanelSetting, []byte{0xDF, 0x0E}},
		{0x4D, []byte{0x55}}, // FITI internal code
		{0xAA, []byte{0x0F}},
		{0xE9, []byte{0x02}},
		{0xB6, []byte{0x11}},
		{0xF3, []byte{0x0A}},
		{ucResolutionSetting, []byte{0xC8, 0x00, 0xC8}},
		{ucTconSetting, []byte{0x00}},
		{ucVcomDataInterval, []byte{0x97}},
		{0xE3, []byte{0x00}},
	},
}

// Waveforms of the 2.7" panel, loaded into the LUT registers because its
// panel setting selects register LUTs over OTP.
var (
	lut2in7Vcom = []byte{
		0x00, 0x00,
		0x00, 0x08, 0x00, 0x00, 0x00, 0x02,
		0x60, 0x28, 0x28, 0x00, 0x00, 0x01,
		0x00, 0x14, 0x00, 0x00, 0x00, 0x01,
		0x00, 0x12, 0x12, 0x00, 0x00, 0x01,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	}
	lut2in7White = []byte{
		0x40, 0x08, 0x00, 0x00, 0x00, 0x02,
		0x90, 0x28, 0x28, 0x00, 0x00, 0x01,
		0x40, 0x14, 0x00, 0x00, 0x00, 0x01,
		0xA0, 0x12, 0x12, 0x00, 0x00, 0x01,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	}
	lut2in7Black = []byte{
		0x80, 0x08, 0x00, 0x00, 0x00, 0x02,
		0x90, 0x28, 0x28, 0x00, 0x00, 0x01,
		0x80, 0x14, 0x00, 0x00, 0x00, 0x01,
		0x50, 0x12, 0x12, 0x00, 0x00, 0x01,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	}
)

var epd2in7 = ucOpts{
	width:  176,
	height: 264,
	setup: []command{
		{ucPowerSetting, []byte{0x03, 0x00, 0x2B, 0x2B, 0x09}},
		{ucBoosterSoftStart, []byte{0x07, 0x07, 0x17}},
		{ucPanelSetting, []byte{0xAF}}, // LUT from registers
		{0x30, []byte{0x3A}},           // PLL
		{ucResolutionSetting, []byte{0x00, 0xB0, 0x01, 0x08}},
		{ucVcomDCSetting, []byte{0x12}},
		{ucVcomDataInterval, []byte{0x97}},
		{ucLutVcom, lut2in7Vcom},
		{ucLutWW, lut2in7White},
		{ucLutBW, lut2in7White},
		{ucLutWB, lut2in7Black},
		{ucLutBB, lut2in7Black},
	},
}

var epd4in2colour = ucOpts{
	width:  400,
	height: 300,
	colour: true,
	setup: []command{
		{ucBoosterSoftStart, []byte{0x17, 0x17, 0x17}},
		{ucPanelSetting, []byte{0x0F}},
		{ucResolutionSetting, []byte{0x01, 0x90, 0x01, 0x2C}},
		{ucVcomDataInterval, []byte{0x77}},
	},
}

var epd7in5v2 = ucOpts{
	width:  800,
	height: 480,
	setup: []command{
		{ucPowerSetting, []byte{0x07, 0x07, 0x3F, 0x3F}},
		{ucPanelSetting, []byte{0x1F}},
		{ucResolutionSetting, []byte{0x03, 0x20, 0x01, 0xE0}},
		{ucDualSPI, []byte{0x00}},
		{ucVcomDataInterval, []byte{0x10, 0x07}},
		{ucTconSetting, []byte{0x22}},
	},
	invertBlack: true,
}

var epd7in5colour = ucOpts{
	width:  800,
	height: 480,
	colour: true,
	setup: []command{
		{ucPowerSetting, []byte{0x07, 0x07, 0x3F, 0x3F}},
		{ucPanelSetting, []byte{0x0F}},
		{ucResolutionSetting, []byte{0x03, 0x20, 0x01, 0xE0}},
		{ucDualSPI, []byte{0x00}},
		{ucVcomDataInterval, []byte{0x11, 0x07}},
		{ucTconSetting, []byte{0x22}},
	},
	invertColour: true,
}

type uc81xx struct {
	ctrl controller
	opts *ucOpts
}

func newUC81xx(opts *ucOpts) Constructor {
	return func(s spi.Port, p Pins) (Driver, error) {
		eh, err := newErrorHandler(s, p, 4*physic.MegaHertz, gpio.Low)
		if err != nil {
			return nil, err
		}
		return &uc81xx{ctrl: eh, opts: opts}, nil
	}
}

func (e *uc81xx) Bounds() image.Rectangle {
	return image.Rect(0, 0, e.opts.width, e.opts.height)
}

func (e *uc81xx) Buffer(img image.Image) ([]byte, error) {
	return packBuffer(e.Bounds(), img)
}

func (e *uc81xx) Init() error {
	ucInit(e.ctrl, e.opts)
	return e.ctrl.takeErr()
}

func (e *uc81xx) Display(black, colour []byte) error {
	if err := checkBuffer(e.Bounds(), "black", black); err != nil {
		return err
	}
	if e.opts.colour && colour != nil {
		if err := checkBuffer(e.Bounds(), "colour", colour); err != nil {
			return err
		}
	}
	ucDisplay(e.ctrl, e.opts, black, colour)
	return e.ctrl.takeErr()
}

func (e *uc81xx) Sleep() error {
	e.ctrl.sendCommand(ucPowerOff)
	e.ctrl.waitUntilIdle()
	e.ctrl.delay(time.Second)
	e.ctrl.sendCommand(ucDeepSleep)
	e.ctrl.sendData([]byte{ucDeepSleepCheck})
	return e.ctrl.takeErr()
}

func ucInit(ctrl controller, opts *ucOpts) {
	ctrl.reset()
	ctrl.delay(100 * time.Millisecond)
	for _, c := range opts.setup {
		ctrl.sendCommand(c.cmd)
		ctrl.sendData(c.data)
	}
	ctrl.sendCommand(ucPowerOn)
	ctrl.delay(100 * time.Millisecond)
	ctrl.waitUntilIdle()
}

func ucDisplay(ctrl controller, opts *ucOpts, black, colour []byte) {
	first, second := fill(len(black), 0xFF), black
	if opts.colour {
		first, second = black, fill(len(black), 0xFF)
		if colour != nil {
			second = colour
		}
		if opts.invertColour {
			second = invert(second)
		}
	} else if opts.invertBlack {
		first, second = invert(first), invert(second)
	}

	ctrl.sendCommand(ucDataStartTransmission1)
	ctrl.sendData(first)
	ctrl.sendCommand(ucDataStartTransmission2)
	ctrl.sendData(second)

	ctrl.sendCommand(ucDisplayRefresh)
	// The controller needs at least 200us before busy is valid.
	ctrl.delay(10 * time.Millisecond)
	ctrl.waitUntilIdle()
}
