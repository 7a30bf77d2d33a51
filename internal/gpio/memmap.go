package gpio

import (
	"fmt"
	"sync"

	wgpio "github.com/warthog618/gpio"
)

// The memmap library keeps one process-wide mapping; count users so the
// last Close unmaps it.
var (
	memmapMu   sync.Mutex
	memmapRefs int
)

type memmapPin interface {
	Output()
	PullNone()
	High()
	Low()
}

var (
	memmapOpenFn  = wgpio.Open
	memmapCloseFn = wgpio.Close
	newMemmapPin  = func(pin int) memmapPin { return wgpio.NewPin(pin) }
)

// MemmapLine drives a BCM pin through warthog618/gpio's /dev/gpiomem mapping.
type MemmapLine struct {
	pin memmapPin
}

// OpenMemmap configures pin as a low output with the pull resistor off.
func OpenMemmap(pin int) (*MemmapLine, error) {
	if pin < 0 || pin > 53 {
		return nil, fmt.Errorf("gpio: invalid bcm pin %d", pin)
	}
	memmapMu.Lock()
	defer memmapMu.Unlock()
	if memmapRefs == 0 {
		if err := memmapOpenFn(); err != nil {
			return nil, fmt.Errorf("gpio: open gpiomem: %w", err)
		}
	}
	memmapRefs++
	p := newMemmapPin(pin)
	p.Low()
	p.Output()
	p.PullNone()
	return &MemmapLine{pin: p}, nil
}

func (m *MemmapLine) Set(high bool) error {
	if high {
		m.pin.High()
	} else {
		m.pin.Low()
	}
	return nil
}

func (m *MemmapLine) Close() error {
	memmapMu.Lock()
	defer memmapMu.Unlock()
	if m.pin == nil {
		return nil
	}
	m.pin.Low()
	m.pin = nil
	memmapRefs--
	if memmapRefs == 0 {
		return memmapCloseFn()
	}
	return nil
}
