package pwm

import "sync"

// Sim is an in-memory PWM channel for development hosts without hardware.
type Sim struct {
	mu       sync.Mutex
	dutyNS   uint64
	periodNS uint64
	enabled  bool
}

func NewSim() *Sim { return &Sim{} }

func (s *Sim) Configure(dutyNS, periodNS uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dutyNS, s.periodNS = dutyNS, periodNS
	return nil
}

func (s *Sim) Enable() error  { return s.setEnabled(true) }
func (s *Sim) Disable() error { return s.setEnabled(false) }
func (s *Sim) Close() error   { return s.setEnabled(false) }

func (s *Sim) setEnabled(v bool) error {
	s.mu.Lock()
	s.enabled = v
	s.mu.Unlock()
	return nil
}

// State returns the last programmed duty and period and whether output is on.
func (s *Sim) State() (dutyNS, periodNS uint64, enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dutyNS, s.periodNS, s.enabled
}
