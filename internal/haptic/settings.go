package haptic

import "sync"

const nsPerSecond = 1_000_000_000

const (
	// DefaultFrequencyHz is 128x the actuator's resonant frequency.
	DefaultFrequencyHz = 22222
	// DefaultDutyPercent gives weak vibrations; 1 is the strongest.
	DefaultDutyPercent = 33
)

// Settings holds the PWM period and default duty consulted on every trigger.
// It is written by the tuning surfaces and read by the controller; readers see
// the latest committed value.
type Settings struct {
	mu       sync.RWMutex
	periodNS uint64
	duty     int
}

// NewSettings returns settings for frequencyHz and dutyPercent. Out-of-range
// inputs fall back to the defaults (frequency) or are clamped (duty).
func NewSettings(frequencyHz, dutyPercent int) *Settings {
	s := &Settings{periodNS: nsPerSecond / DefaultFrequencyHz, duty: DefaultDutyPercent}
	s.SetFrequencyHz(frequencyHz)
	s.SetDutyPercent(dutyPercent)
	return s
}

// SetFrequencyHz stores the period for hz. It reports false and leaves the
// period untouched when hz would not yield a positive period.
func (s *Settings) SetFrequencyHz(hz int) bool {
	if hz <= 0 || hz > nsPerSecond {
		return false
	}
	s.mu.Lock()
	s.periodNS = uint64(nsPerSecond / hz)
	s.mu.Unlock()
	return true
}

// FrequencyHz derives the frequency from the stored period.
func (s *Settings) FrequencyHz() int {
	return int(nsPerSecond / s.PeriodNS())
}

func (s *Settings) PeriodNS() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.periodNS
}

// SetDutyPercent stores p clamped to [1,100] and returns the stored value.
func (s *Settings) SetDutyPercent(p int) int {
	p = clampInt(p, 1, 100)
	s.mu.Lock()
	s.duty = p
	s.mu.Unlock()
	return p
}

func (s *Settings) DutyPercent() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.duty
}

func (s *Settings) load() (periodNS uint64, duty int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.periodNS, s.duty
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
