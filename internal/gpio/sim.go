package gpio

import "sync"

// Sim is an in-memory output line.
type Sim struct {
	mu   sync.Mutex
	high bool
}

func NewSim() *Sim { return &Sim{} }

func (s *Sim) Set(high bool) error {
	s.mu.Lock()
	s.high = high
	s.mu.Unlock()
	return nil
}

func (s *Sim) Close() error { return s.Set(false) }

func (s *Sim) High() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.high
}
