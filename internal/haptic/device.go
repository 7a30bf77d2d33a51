package haptic

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"hapticd/internal/timedoutput"
)

// ErrUnavailable reports that the actuator outputs could not be acquired.
// The subsystem is unusable after it.
var ErrUnavailable = errors.New("haptic: actuator outputs unavailable")

var sleepFn = time.Sleep

const (
	freqAttr = "freq"
	dutyAttr = "duty"

	// testPulseMs is applied after a frequency change so it can be felt.
	testPulseMs = 1000
)

type Config struct {
	// Name is the timed-output registration name.
	Name         string
	FrequencyHz  int
	DutyPercent  int
	StartupPulse time.Duration
}

// Resources acquires the hardware outputs. Each opener is called once.
type Resources struct {
	OpenPWM  func() (PWMOutput, error)
	OpenLine func() (EnableLine, error)
}

// Device binds a Controller to its hardware and to a timedoutput.Registry.
type Device struct {
	name string
	ctrl *Controller
	reg  *timedoutput.Registry
	pwm  PWMOutput
	line EnableLine

	closeOnce sync.Once
	closeErr  error
}

// Start acquires the outputs, pulses the actuator once, and registers the
// device with its freq and duty attributes. On failure everything acquired so
// far is released in reverse order and nothing stays registered.
func Start(cfg Config, res Resources, reg *timedoutput.Registry) (*Device, error) {
	if reg == nil {
		return nil, fmt.Errorf("haptic: registry is nil")
	}
	if res.OpenPWM == nil || res.OpenLine == nil {
		return nil, fmt.Errorf("haptic: resources incomplete")
	}
	cfg.Name = strings.TrimSpace(cfg.Name)
	if cfg.Name == "" {
		cfg.Name = "vibrator"
	}
	if cfg.FrequencyHz == 0 {
		cfg.FrequencyHz = DefaultFrequencyHz
	}
	if cfg.DutyPercent == 0 {
		cfg.DutyPercent = DefaultDutyPercent
	}
	settings := NewSettings(cfg.FrequencyHz, cfg.DutyPercent)

	pwm, err := res.OpenPWM()
	if err != nil {
		return nil, fmt.Errorf("%w: pwm: %v", ErrUnavailable, err)
	}
	periodNS, duty := settings.load()
	if err := pwm.Configure(uint64(duty)*periodNS/100, periodNS); err != nil {
		log.Printf("haptic: initial pwm configure: %v", err)
	}

	line, err := res.OpenLine()
	if err != nil {
		_ = pwm.Close()
		return nil, fmt.Errorf("%w: enable line: %v", ErrUnavailable, err)
	}
	startupPulse(pwm, line, cfg.StartupPulse)

	d := &Device{
		name: cfg.Name,
		ctrl: NewController(settings, pwm, line),
		reg:  reg,
		pwm:  pwm,
		line: line,
	}

	if err := reg.Register(d.name, d); err != nil {
		d.release()
		return nil, fmt.Errorf("haptic: register %q: %w", d.name, err)
	}
	if err := reg.AddAttribute(d.name, d.freqAttribute()); err != nil {
		reg.Unregister(d.name)
		d.release()
		return nil, fmt.Errorf("haptic: add %s attribute: %w", freqAttr, err)
	}
	if err := reg.AddAttribute(d.name, d.dutyAttribute()); err != nil {
		reg.RemoveAttribute(d.name, freqAttr)
		reg.Unregister(d.name)
		d.release()
		return nil, fmt.Errorf("haptic: add %s attribute: %w", dutyAttr, err)
	}

	log.Printf("haptic: %s ready freq=%dHz duty=%d%%", d.name, settings.FrequencyHz(), settings.DutyPercent())
	return d, nil
}

// startupPulse drives the motor briefly and leaves both outputs off.
func startupPulse(pwm PWMOutput, line EnableLine, pulse time.Duration) {
	_ = pwm.Enable()
	_ = line.Set(true)
	if pulse > 0 {
		sleepFn(pulse)
	}
	_ = line.Set(false)
	_ = pwm.Disable()
}

func (d *Device) Name() string { return d.name }

func (d *Device) Controller() *Controller { return d.ctrl }

// Enable implements timedoutput.Device.
func (d *Device) Enable(value int32) int {
	return d.ctrl.Trigger(Command(value))
}

// Remaining implements timedoutput.Device.
func (d *Device) Remaining() int {
	return d.ctrl.RemainingMs()
}

// Close disables the outputs, unregisters the device, removes its attributes
// and releases the hardware, in that order. It is safe to call more than once.
func (d *Device) Close() error {
	d.closeOnce.Do(func() {
		d.ctrl.Shutdown()
		d.reg.Unregister(d.name)
		d.reg.RemoveAttribute(d.name, freqAttr)
		d.reg.RemoveAttribute(d.name, dutyAttr)
		d.closeErr = d.release()
		log.Printf("haptic: %s closed", d.name)
	})
	return d.closeErr
}

// release frees the outputs in reverse acquisition order.
func (d *Device) release() error {
	return errors.Join(d.line.Close(), d.pwm.Close())
}

func (d *Device) freqAttribute() timedoutput.Attribute {
	s := d.ctrl.Settings()
	return timedoutput.Attribute{
		Name: freqAttr,
		Show: func() string { return strconv.Itoa(s.FrequencyHz()) + "\n" },
		Store: func(v string) {
			hz, ok := scanInt(v)
			if !ok || !s.SetFrequencyHz(hz) {
				return
			}
			d.ctrl.Trigger(Encode(NoDutyOverride, testPulseMs))
		},
	}
}

func (d *Device) dutyAttribute() timedoutput.Attribute {
	s := d.ctrl.Settings()
	return timedoutput.Attribute{
		Name: dutyAttr,
		Show: func() string { return strconv.Itoa(s.DutyPercent()) + "\n" },
		Store: func(v string) {
			if p, ok := scanInt(v); ok {
				s.SetDutyPercent(p)
			}
		},
	}
}

// scanInt reads a leading decimal integer, ignoring surrounding whitespace and
// any trailing text ("50\n" and "50hz" both yield 50).
func scanInt(s string) (int, bool) {
	s = strings.TrimLeft(s, " \t\r\n")
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
