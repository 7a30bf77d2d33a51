package gpio

import (
	"fmt"

	"github.com/hjkoskel/govattu"
)

// VattuLine drives a BCM pin through memory-mapped registers on a Pi.
type VattuLine struct {
	hw  govattu.Vattu
	pin uint8
}

var openVattuFn = govattu.Open

func OpenVattu(pin int) (*VattuLine, error) {
	if pin < 0 || pin > 53 {
		return nil, fmt.Errorf("gpio: invalid bcm pin %d", pin)
	}
	hw, err := openVattuFn()
	if err != nil {
		return nil, fmt.Errorf("gpio: open gpiomem: %w", err)
	}
	hw.PinMode(uint8(pin), govattu.ALToutput)
	hw.PinClear(uint8(pin))
	return &VattuLine{hw: hw, pin: uint8(pin)}, nil
}

func (v *VattuLine) Set(high bool) error {
	if high {
		v.hw.PinSet(v.pin)
	} else {
		v.hw.PinClear(v.pin)
	}
	return nil
}

func (v *VattuLine) Close() error {
	v.hw.PinClear(v.pin)
	return v.hw.Close()
}
