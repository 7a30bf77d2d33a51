//go:build !linux

package pwm

import "fmt"

type Sysfs struct{}

func OpenSysfs(chip string, channel int) (*Sysfs, error) {
	return nil, fmt.Errorf("pwm: sysfs pwm unsupported on this platform")
}

func (d *Sysfs) Configure(dutyNS, periodNS uint64) error { return fmt.Errorf("pwm: unsupported") }
func (d *Sysfs) Enable() error                           { return fmt.Errorf("pwm: unsupported") }
func (d *Sysfs) Disable() error                          { return fmt.Errorf("pwm: unsupported") }
func (d *Sysfs) Close() error                            { return nil }
