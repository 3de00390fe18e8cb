package epd

// Register sequences based on the Waveshare SSD1681/SSD1680 reference code,
// https://github.com/waveshare/e-Paper/blob/master/RaspberryPi_JetsonNano/c/lib/e-Paper/EPD_1in54_V2.c

import (
	"image"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// SSD16xx commands
const (
	ssdDriverOutputControl     byte = 0x01
	ssdDeepSleepMode           byte = 0x10
	ssdDataEntryModeSetting    byte = 0x11
	ssdSWReset                 byte = 0x12
	ssdTemperatureSensor       byte = 0x18
	ssdMasterActivation        byte = 0x20
	ssdDisplayUpdateControl2   byte = 0x22
	ssdWriteRAMBW              byte = 0x24
	ssdWriteRAMRed             byte = 0x26
	ssdWriteVcomRegister       byte = 0x2C
	ssdWriteLutRegister        byte = 0x32
	ssdBorderWaveformControl   byte = 0x3C
	ssdEndOption               byte = 0x3F
	ssdGateDrivingVoltage      byte = 0x03
	ssdSourceDrivingVoltage    byte = 0x04
	ssdSetRAMXAddressStartEnd  byte = 0x44
	ssdSetRAMYAddressStartEnd  byte = 0x45
	ssdSetRAMXAddressCounter   byte = 0x4E
	ssdSetRAMYAddressCounter   byte = 0x4F
	ssdLoadTemperatureWaveform byte = 0xB1
)

// Data entry modes.
const (
	ssdYDecrementXIncrement byte = 0x01
	ssdYIncrementXIncrement byte = 0x03
)

// waveform full refresh
var wf_full_1in54 = []byte{
	0x80, 0x48, 0x40, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0,
	0x40, 0x48, 0x80, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0,
	0x80, 0x48, 0x40, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0,
	0x40, 0x48, 0x80, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0,
	0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0,
	0xA, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0,
	0x8, 0x1, 0x0, 0x8, 0x1, 0x0, 0x2,
	0xA, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0,
	0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0,
	0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0,
	0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0,
	0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0,
	0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0,
	0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0,
	0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0,
	0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0,
	0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0,
	0x22, 0x22, 0x22, 0x22, 0x22, 0x22, 0x0, 0x0, 0x0,
	0x22, 0x17, 0x41, 0x0, 0x32, 0x20,
}

// ssdOpts is the per-panel configuration of an SSD16xx controller.
type ssdOpts struct {
	width, height int
	colour        bool
	dataEntry     byte
	gateScan      byte // third byte of DriverOutputControl, scanning direction
	border        byte
	update        byte   // DisplayUpdateControl2 sequence for a full refresh
	lut           []byte // optional custom waveform, 159 bytes
}

var epd1in54v2 = ssdOpts{
	width:     200,
	height:    200,
	dataEntry: ssdYDecrementXIncrement,
	gateScan:  0x01,
	border:    0x01,
	update:    0xC7,
	lut:       wf_full_1in54,
}

var epd2in9v2 = ssdOpts{
	width:     128,
	height:    296,
	dataEntry: ssdYIncrementXIncrement,
	border:    0x05,
	update:    0xF7,
}

var epd2in9colour = ssdOpts{
	width:     128,
	height:    296,
	colour:    true,
	dataEntry: ssdYIncrementXIncrement,
	border:    0x05,
	update:    0xF7,
}

type ssd16xx struct {
	ctrl controller
	opts *ssdOpts
}

func newSSD16xx(opts *ssdOpts) Constructor {
	return func(s spi.Port, p Pins) (Driver, error) {
		eh, err := newErrorHandler(s, p, 20*physic.MegaHertz, gpio.High)
		if err != nil {
			return nil, err
		}
		return &ssd16xx{ctrl: eh, opts: opts}, nil
	}
}

func (e *ssd16xx) Bounds() image.Rectangle {
	return image.Rect(0, 0, e.opts.width, e.opts.height)
}

func (e *ssd16xx) Buffer(img image.Image) ([]byte, error) {
	return packBuffer(e.Bounds(), img)
}

func (e *ssd16xx) Init() error {
	ssdInit(e.ctrl, e.opts)
	return e.ctrl.takeErr()
}

func (e *ssd16xx) Display(black, colour []byte) error {
	if err := checkBuffer(e.Bounds(), "black", black); err != nil {
		return err
	}
	if e.opts.colour && colour != nil {
		if err := checkBuffer(e.Bounds(), "colour", colour); err != nil {
			return err
		}
	}
	ssdDisplay(e.ctrl, e.opts, black, colour)
	return e.ctrl.takeErr()
}

func (e *ssd16xx) Sleep() error {
	e.ctrl.sendCommand(ssdDeepSleepMode)
	e.ctrl.sendData([]byte{0x01})
	e.ctrl.delay(100 * time.Millisecond)
	return e.ctrl.takeErr()
}

func ssdInit(ctrl controller, opts *ssdOpts) {
	ctrl.reset()
	ctrl.waitUntilIdle()
	ctrl.sendCommand(ssdSWReset)
	ctrl.waitUntilIdle()

	last := opts.height - 1
	ctrl.sendCommand(ssdDriverOutputControl)
	ctrl.sendData([]byte{byte(last), byte(last >> 8), opts.gateScan})

	ctrl.sendCommand(ssdDataEntryModeSetting)
	ctrl.sendData([]byte{opts.dataEntry})

	ystart, yend := 0, last
	if opts.dataEntry == ssdYDecrementXIncrement {
		ystart, yend = last, 0
	}
	ctrl.sendCommand(ssdSetRAMXAddressStartEnd)
	ctrl.sendData([]byte{0x00, byte((opts.width - 1) >> 3)})
	ctrl.sendCommand(ssdSetRAMYAddressStartEnd)
	ctrl.sendData([]byte{byte(ystart), byte(ystart >> 8), byte(yend), byte(yend >> 8)})

	ctrl.sendCommand(ssdBorderWaveformControl)
	ctrl.sendData([]byte{opts.border})

	ctrl.sendCommand(ssdTemperatureSensor)
	ctrl.sendData([]byte{0x80})

	ctrl.sendCommand(ssdDisplayUpdateControl2)
	ctrl.sendData([]byte{ssdLoadTemperatureWaveform})
	ctrl.sendCommand(ssdMasterActivation)
	ctrl.waitUntilIdle()

	ctrl.sendCommand(ssdSetRAMXAddressCounter)
	ctrl.sendData([]byte{0x00})
	ctrl.sendCommand(ssdSetRAMYAddressCounter)
	ctrl.sendData([]byte{byte(ystart), byte(ystart >> 8)})
	ctrl.waitUntilIdle()

	if opts.lut != nil {
		ssdSetLut(ctrl, opts.lut)
	}
}

func ssdSetLut(ctrl controller, lut []byte) {
	ctrl.sendCommand(ssdWriteLutRegister)
	ctrl.sendData(lut[0:153])
	ctrl.waitUntilIdle()

	ctrl.sendCommand(ssdEndOption)
	ctrl.sendData(lut[153:154])

	ctrl.sendCommand(ssdGateDrivingVoltage)
	ctrl.sendData(lut[154:155])

	ctrl.sendCommand(ssdSourceDrivingVoltage)
	ctrl.sendData(lut[155:158])

	ctrl.sendCommand(ssdWriteVcomRegister)
	ctrl.sendData(lut[158:159])
}

// ssdDisplay writes the planes and runs a full refresh. The red RAM uses
// a set bit for coloured pixels, the opposite of the buffer layout.
func ssdDisplay(ctrl controller, opts *ssdOpts, black, colour []byte) {
	ctrl.sendCommand(ssdWriteRAMBW)
	ctrl.sendData(black)

	if opts.colour {
		red := fill(len(black), 0x00)
		if colour != nil {
			red = invert(colour)
		}
		ctrl.sendCommand(ssdWriteRAMRed)
		ctrl.sendData(red)
	}

	ctrl.sendCommand(ssdDisplayUpdateControl2)
	ctrl.sendData([]byte{opts.update})
	ctrl.sendCommand(ssdMasterActivation)
	ctrl.waitUntilIdle()
}
