package haptic

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

// MaxTimeoutMs bounds a single vibration. Longer requests are truncated.
const MaxTimeoutMs = 5000

// State is the actuator's observable state.
type State int

const (
	Idle State = iota
	Running
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Snapshot is a point-in-time view of the controller for status surfaces.
type Snapshot struct {
	State       string `json:"state"`
	RemainingMs int    `json:"remaining_ms"`

	// AppliedDuty and AppliedTimeoutMs describe the current or last run.
	AppliedDuty      int `json:"applied_duty"`
	AppliedTimeoutMs int `json:"applied_timeout_ms"`

	FrequencyHz int `json:"frequency_hz"`
	DutyPercent int `json:"duty_percent"`

	Triggers  uint64    `json:"triggers"`
	LastRunAt time.Time `json:"last_run_utc,omitempty"`
	LastError string    `json:"last_error,omitempty"`
}

// Controller is the actuator state machine. It owns the PWM output, the enable
// line and the shutoff deadline; nothing else may touch them.
type Controller struct {
	settings *Settings
	pwm      PWMOutput
	line     EnableLine

	// mu serializes cancel -> program -> arm against itself and against the
	// expiry path.
	mu       sync.Mutex
	gen      uint64
	state    State
	closed   bool
	deadline *deadline

	snapMu sync.RWMutex
	snap   Snapshot
}

// NewController wraps already acquired outputs. The outputs are not touched
// until the first Trigger.
func NewController(settings *Settings, pwm PWMOutput, line EnableLine) *Controller {
	if settings == nil {
		settings = NewSettings(DefaultFrequencyHz, DefaultDutyPercent)
	}
	return &Controller{
		settings: settings,
		pwm:      pwm,
		line:     line,
		deadline: newDeadline(),
	}
}

func (c *Controller) Settings() *Settings {
	return c.settings
}

// Trigger applies cmd and returns the timeout actually armed in milliseconds.
//
// A zero timeout turns the actuator off and cancels any pending deadline.
// Otherwise any in-flight vibration is replaced by the new one.
func (c *Controller) Trigger(cmd Command) int {
	duty, timeoutMs := Decode(cmd)
	periodNS, defDuty := c.settings.load()
	if duty <= 0 {
		duty = defDuty
	}
	if duty > 100 {
		duty = 100
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0
	}

	c.deadline.cancel()
	c.gen++

	if timeoutMs == 0 {
		c.disableLocked()
		return 0
	}

	err := c.enableLocked(duty, periodNS)
	if timeoutMs > MaxTimeoutMs {
		timeoutMs = MaxTimeoutMs
	}
	gen := c.gen
	c.deadline.arm(time.Duration(timeoutMs)*time.Millisecond, func() { c.onDeadlineExpired(gen) })
	c.state = Running

	c.setState(func(sn *Snapshot) {
		sn.AppliedDuty = duty
		sn.AppliedTimeoutMs = timeoutMs
		sn.Triggers++
		sn.LastRunAt = time.Now().UTC()
		sn.LastError = errString(err)
	})
	return timeoutMs
}

// RemainingMs reports the time left on the armed deadline, or 0.
func (c *Controller) RemainingMs() int {
	return int(c.deadline.remaining().Milliseconds())
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Snapshot() Snapshot {
	c.snapMu.RLock()
	sn := c.snap
	c.snapMu.RUnlock()

	sn.State = c.State().String()
	sn.RemainingMs = c.RemainingMs()
	sn.FrequencyHz = c.settings.FrequencyHz()
	sn.DutyPercent = c.settings.DutyPercent()
	return sn
}

// Shutdown turns the actuator off and rejects further triggers.
func (c *Controller) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.deadline.cancel()
	c.gen++
	c.disableLocked()
	c.closed = true
}

// onDeadlineExpired runs on the timer's goroutine. A timer that fired while a
// newer Trigger held the lock carries a stale generation and does nothing.
func (c *Controller) onDeadlineExpired(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || c.closed {
		return
	}
	c.deadline.expired()
	c.disableLocked()
}

func (c *Controller) enableLocked(duty int, periodNS uint64) error {
	dutyNS := uint64(duty) * periodNS / 100
	var errs []error
	if err := c.pwm.Configure(dutyNS, periodNS); err != nil {
		errs = append(errs, fmt.Errorf("pwm configure: %w", err))
	}
	if err := c.pwm.Enable(); err != nil {
		errs = append(errs, fmt.Errorf("pwm enable: %w", err))
	}
	if err := c.line.Set(true); err != nil {
		errs = append(errs, fmt.Errorf("enable line high: %w", err))
	}
	err := errors.Join(errs...)
	if err != nil {
		log.Printf("haptic: enable outputs: %v", err)
	}
	return err
}

func (c *Controller) disableLocked() {
	c.state = Idle
	var errs []error
	if err := c.line.Set(false); err != nil {
		errs = append(errs, fmt.Errorf("enable line low: %w", err))
	}
	if err := c.pwm.Disable(); err != nil {
		errs = append(errs, fmt.Errorf("pwm disable: %w", err))
	}
	err := errors.Join(errs...)
	if err != nil {
		log.Printf("haptic: disable outputs: %v", err)
	}
	c.setState(func(sn *Snapshot) { sn.LastError = errString(err) })
}

func (c *Controller) setState(update func(*Snapshot)) {
	c.snapMu.Lock()
	defer c.snapMu.Unlock()
	update(&c.snap)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
