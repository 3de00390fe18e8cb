package epd

import (
	"errors"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// controller is the wire-level interface the panel sequences are written
// against.
type controller interface {
	reset()
	sendCommand(cmd byte)
	sendData(data []byte)
	waitUntilIdle()
	delay(d time.Duration)
	takeErr() error
}

// errBusyTimeout is returned when the busy line never goes idle.
var errBusyTimeout = errors.New("epd: timed out waiting for busy line")

const (
	busyTimeout      = 60 * time.Second
	defaultMaxTxSize = 4096
)

// errorHandler wraps the SPI connection and control pins. The first failure
// is kept and every later call becomes a no-op.
type errorHandler struct {
	c    spi.Conn
	dc   gpio.PinOut
	cs   gpio.PinOut
	rst  gpio.PinOut
	busy gpio.PinIO

	busyLevel gpio.Level // level of the busy line while the panel works
	err       error
}

func (eh *errorHandler) takeErr() error {
	err := eh.err
	eh.err = nil
	return err
}

func (eh *errorHandler) out(p gpio.PinOut, l gpio.Level) {
	if eh.err != nil || p == nil {
		return
	}
	eh.err = p.Out(l)
}

// cTx writes w, split to the largest transfer the bus accepts.
func (eh *errorHandler) cTx(w []byte) {
	max := defaultMaxTxSize
	if l, ok := eh.c.(conn.Limits); ok && l.MaxTxSize() > 0 {
		max = l.MaxTxSize()
	}
	for len(w) > 0 && eh.err == nil {
		n := len(w)
		if n > max {
			n = max
		}
		eh.err = eh.c.Tx(w[:n], nil)
		w = w[n:]
	}
}

func (eh *errorHandler) delay(d time.Duration) {
	if eh.err != nil {
		return
	}
	time.Sleep(d)
}

func (eh *errorHandler) reset() {
	eh.out(eh.rst, gpio.High)
	eh.delay(20 * time.Millisecond)
	eh.out(eh.rst, gpio.Low)
	eh.delay(2 * time.Millisecond)
	eh.out(eh.rst, gpio.High)
	eh.delay(20 * time.Millisecond)
}

func (eh *errorHandler) waitUntilIdle() {
	if eh.err != nil || eh.busy == nil {
		return
	}
	deadline := time.Now().Add(busyTimeout)
	for eh.busy.Read() == eh.busyLevel {
		if time.Now().After(deadline) {
			eh.err = errBusyTimeout
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func (eh *errorHandler) sendCommand(cmd byte) {
	eh.out(eh.dc, gpio.Low)
	eh.out(eh.cs, gpio.Low)
	eh.cTx([]byte{cmd})
	eh.out(eh.cs, gpio.High)
}

func (eh *errorHandler) sendData(data []byte) {
	eh.out(eh.dc, gpio.High)
	eh.out(eh.cs, gpio.Low)
	eh.cTx(data)
	eh.out(eh.cs, gpio.High)
}

// newErrorHandler connects to s and puts the control pins in their idle
// state. busyLevel is the level the panel holds the busy line at while it
// is working.
func newErrorHandler(s spi.Port, p Pins, f physic.Frequency, busyLevel gpio.Level) (*errorHandler, error) {
	if p.DC == nil || p.DC == gpio.INVALID {
		return nil, errors.New("epd: a dc pin is required, 3-wire mode is not supported")
	}

	c, err := s.Connect(f, spi.Mode0, 8)
	if err != nil {
		return nil, err
	}

	eh := &errorHandler{
		c:         c,
		dc:        p.DC,
		cs:        p.CS,
		rst:       p.RST,
		busy:      p.Busy,
		busyLevel: busyLevel,
	}
	eh.out(eh.rst, gpio.High)
	eh.out(eh.dc, gpio.Low)
	eh.out(eh.cs, gpio.High)
	if eh.busy != nil && eh.err == nil {
		// Pull towards idle so a floating line does not look busy.
		pull := gpio.PullDown
		if busyLevel == gpio.Low {
			pull = gpio.PullUp
		}
		eh.err = eh.busy.In(pull, gpio.NoEdge)
	}
	if err := eh.takeErr(); err != nil {
		return nil, err
	}
	return eh, nil
}
