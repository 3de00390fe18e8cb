package epd

import (
	"bytes"
	"errors"
	"image"
	"sort"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spitest"
)

func TestSupportedTypes(t *testing.T) {
	got := SupportedTypes()
	if !sort.StringsAreSorted(got) {
		t.Errorf("SupportedTypes() = %v, not sorted", got)
	}
	for _, name := range []string{"epd_2in7", "epd_7in5_colour", "epd_1in54_v2", "epd_1in54_m09"} {
		if _, ok := Lookup(name); !ok {
			t.Errorf("Lookup(%q) not found", name)
		}
	}
}

func TestModelsMatchDrivers(t *testing.T) {
	for _, name := range SupportedTypes() {
		t.Run(name, func(t *testing.T) {
			m, _ := Lookup(name)
			d, err := m.New(&spitest.Playback{}, testPins())
			if err != nil {
				t.Fatalf("New() failed: %v", err)
			}
			if diff := cmp.Diff(d.Bounds(), m.Bounds()); diff != "" {
				t.Errorf("Bounds() difference (-got +want):\n%s", diff)
			}
		})
	}
}

func TestNewFromSPIUnknown(t *testing.T) {
	_, err := NewFromSPI("epd_13in3_nope", &spitest.Playback{}, testPins())
	if !errors.Is(err, ErrUnknownModel) {
		t.Errorf("NewFromSPI() = %v, want %v", err, ErrUnknownModel)
	}
}

func TestRegister(t *testing.T) {
	called := false
	Register("test_register", Model{Width: 8, Height: 8, New: func(spi.Port, Pins) (Driver, error) {
		called = true
		return NewTerminal(Model{Width: 8, Height: 8}, &bytes.Buffer{}), nil
	}})

	if _, err := NewFromSPI("test_register", nil, Pins{}); err != nil {
		t.Fatalf("NewFromSPI() failed: %v", err)
	}
	if !called {
		t.Error("registered constructor was not called")
	}

	defer func() {
		if recover() == nil {
			t.Error("Register() twice did not panic")
		}
	}()
	Register("test_register", Model{New: func(spi.Port, Pins) (Driver, error) { return nil, nil }})
}

func TestTerminal(t *testing.T) {
	var out bytes.Buffer
	d := NewTerminal(Model{Width: 16, Height: 4}, &out)

	if got := d.String(); got != "Terminal{16x4}" {
		t.Errorf("String() = %q", got)
	}
	black := []byte{0xFF, 0x00, 0xFF, 0x00, 0x0F, 0xF0, 0x0F, 0xF0}
	if err := d.Display(black, nil); err == nil {
		t.Error("Display() before Init() succeeded")
	}

	if err := d.Init(); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	colour := bytes.Repeat([]byte{0xFF}, 8)
	colour[0] = 0x7F
	if err := d.Display(black, colour); err != nil {
		t.Fatalf("Display() failed: %v", err)
	}
	if got := strings.Count(out.String(), "\n"); got != 2 {
		t.Errorf("Display() wrote %d lines, want 2", got)
	}
	if err := d.Sleep(); err != nil {
		t.Fatalf("Sleep() failed: %v", err)
	}
	if diff := cmp.Diff(d.Bounds(), image.Rect(0, 0, 16, 4)); diff != "" {
		t.Errorf("Bounds() difference (-got +want):\n%s", diff)
	}
}
