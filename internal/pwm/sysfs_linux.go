//go:build linux

package pwm

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

// Sysfs drives one hardware PWM channel through /sys/class/pwm.
//
// Notes:
//   - The kernel rejects a duty_cycle larger than the current period, so
//     Configure orders the two writes depending on whether the period grows
//     or shrinks.
//   - Right after export, udev may still be fixing permissions on the new
//     attribute files. Writes made while opening retry for a short window;
//     runtime writes are single attempts so they stay fast.
type Sysfs struct {
	chipPath string // /sys/class/pwm/pwmchipN
	pwmPath  string // /sys/class/pwm/pwmchipN/pwmM
	channel  int

	exported bool
	periodNS uint64
	enabled  bool
}

var sysfsBase = "/sys/class/pwm"

var writeFn = writeSysfs

// OpenSysfs exports channel on chip (e.g. "pwmchip0") and leaves it disabled.
// An empty chip selects the first chip exposing enough channels.
func OpenSysfs(chip string, channel int) (*Sysfs, error) {
	if channel < 0 {
		return nil, fmt.Errorf("pwm: invalid channel %d", channel)
	}
	var chipPath string
	if strings.TrimSpace(chip) == "" {
		p, err := findChip(channel)
		if err != nil {
			return nil, err
		}
		chipPath = p
	} else {
		chipPath = filepath.Join(sysfsBase, chip)
	}

	d := &Sysfs{
		chipPath: chipPath,
		channel:  channel,
		pwmPath:  filepath.Join(chipPath, fmt.Sprintf("pwm%d", channel)),
	}
	if err := d.ensureExported(); err != nil {
		return nil, err
	}
	if err := writeRetry(filepath.Join(d.pwmPath, "enable"), "0"); err != nil {
		return nil, fmt.Errorf("pwm: disable %s: %w", d.pwmPath, err)
	}
	if n, err := readInt(filepath.Join(d.pwmPath, "period")); err == nil && n > 0 {
		d.periodNS = uint64(n)
	}
	return d, nil
}

func findChip(channel int) (string, error) {
	entries, err := os.ReadDir(sysfsBase)
	if err != nil {
		return "", fmt.Errorf("pwm: read %s: %w", sysfsBase, err)
	}
	// pwmchipN entries are usually symlinks, so match on name only.
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, "pwmchip") {
			continue
		}
		chip := filepath.Join(sysfsBase, name)
		n, err := readInt(filepath.Join(chip, "npwm"))
		if err != nil || n <= channel {
			continue
		}
		return chip, nil
	}
	return "", fmt.Errorf("pwm: no pwmchip with channel %d under %s (is the pwm overlay enabled?)", channel, sysfsBase)
}

func (d *Sysfs) ensureExported() error {
	if _, err := os.Stat(d.pwmPath); err == nil {
		return nil
	}
	if err := writeFn(filepath.Join(d.chipPath, "export"), strconv.Itoa(d.channel)); err != nil {
		// Someone else may have exported it between the stat and the write.
		if _, statErr := os.Stat(d.pwmPath); statErr == nil {
			return nil
		}
		return fmt.Errorf("pwm: export channel %d: %w", d.channel, err)
	}
	d.exported = true

	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(d.pwmPath); err == nil {
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	if _, err := os.Stat(d.pwmPath); err != nil {
		return fmt.Errorf("pwm: %s not created after export: %w", d.pwmPath, err)
	}
	return nil
}

func (d *Sysfs) Configure(dutyNS, periodNS uint64) error {
	if periodNS == 0 {
		return fmt.Errorf("pwm: zero period")
	}
	if dutyNS > periodNS {
		dutyNS = periodNS
	}
	if periodNS == d.periodNS {
		return d.writeUint("duty_cycle", dutyNS)
	}
	// Shrinking: lower the duty first so it never exceeds the period.
	if periodNS < d.periodNS {
		if err := d.writeUint("duty_cycle", dutyNS); err != nil {
			return err
		}
		if err := d.writeUint("period", periodNS); err != nil {
			return err
		}
		d.periodNS = periodNS
		return nil
	}
	if err := d.writeUint("period", periodNS); err != nil {
		return err
	}
	d.periodNS = periodNS
	return d.writeUint("duty_cycle", dutyNS)
}

func (d *Sysfs) Enable() error {
	if d.enabled {
		return nil
	}
	if err := d.writeBool("enable", true); err != nil {
		return err
	}
	d.enabled = true
	return nil
}

func (d *Sysfs) Disable() error {
	if err := d.writeBool("enable", false); err != nil {
		return err
	}
	d.enabled = false
	return nil
}

// Close disables the channel and unexports it if OpenSysfs exported it.
func (d *Sysfs) Close() error {
	err := d.Disable()
	if d.exported {
		uerr := writeFn(filepath.Join(d.chipPath, "unexport"), strconv.Itoa(d.channel))
		d.exported = false
		return errors.Join(err, uerr)
	}
	return err
}

func (d *Sysfs) writeUint(name string, v uint64) error {
	return writeFn(filepath.Join(d.pwmPath, name), strconv.FormatUint(v, 10))
}

func (d *Sysfs) writeBool(name string, v bool) error {
	val := "0"
	if v {
		val = "1"
	}
	return writeFn(filepath.Join(d.pwmPath, name), val)
}

// writeSysfs writes value with O_WRONLY only; some sysfs attributes reject
// O_TRUNC or O_CREAT at open time.
func writeSysfs(path, value string) error {
	fd, err := unix.Open(path, unix.O_WRONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return &os.PathError{Op: "open", Path: path, Err: err}
	}
	_, werr := unix.Write(fd, []byte(value))
	cerr := unix.Close(fd)
	if werr != nil {
		return &os.PathError{Op: "write", Path: path, Err: werr}
	}
	if cerr != nil {
		return &os.PathError{Op: "close", Path: path, Err: cerr}
	}
	return nil
}

func writeRetry(path, value string) error {
	deadline := time.Now().Add(2 * time.Second)
	for {
		err := writeFn(path, value)
		if err == nil {
			return nil
		}
		if !isRetryable(err) || !time.Now().Before(deadline) {
			return err
		}
		time.Sleep(25 * time.Millisecond)
	}
}

func isRetryable(err error) bool {
	return errors.Is(err, unix.EACCES) || errors.Is(err, unix.EPERM) || errors.Is(err, unix.ENOENT)
}

func readInt(path string) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	s := strings.TrimSpace(string(b))
	if s == "" {
		return 0, fmt.Errorf("%s: empty", path)
	}
	return strconv.Atoi(s)
}
