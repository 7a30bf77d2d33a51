package haptic

// PWMOutput is the periodic signal driving the motor.
//
// Implementations must not block beyond a single hardware write; the
// controller calls them while holding its transition lock.
type PWMOutput interface {
	// Configure sets the on-time and period, both in nanoseconds.
	Configure(dutyNS, periodNS uint64) error
	Enable() error
	Disable() error
	// Close releases the channel. It should leave the output disabled.
	Close() error
}

// EnableLine is the digital output gating actuator power.
type EnableLine interface {
	Set(high bool) error
	Close() error
}
