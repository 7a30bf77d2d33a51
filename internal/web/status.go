package web

import (
	"sort"
	"sync"
	"time"

	"hapticd/internal/haptic"
)

// SnapshotSource is satisfied by *haptic.Controller.
type SnapshotSource interface {
	Snapshot() haptic.Snapshot
}

type Status struct {
	started time.Time

	mu      sync.RWMutex
	devices map[string]SnapshotSource
	surface map[string]string
}

type StatusSnapshot struct {
	Service   string                     `json:"service"`
	NowUTC    string                     `json:"now_utc"`
	UptimeSec int64                      `json:"uptime_sec"`
	Devices   map[string]haptic.Snapshot `json:"devices"`
	// Surfaces reports each optional front end (web, mqtt, input) and
	// whether it is running.
	Surfaces map[string]string `json:"surfaces,omitempty"`
	Host     *HostSnapshot     `json:"host,omitempty"`
}

func NewStatus() *Status {
	return &Status{
		started: time.Now().UTC(),
		devices: make(map[string]SnapshotSource),
		surface: make(map[string]string),
	}
}

func (s *Status) AddDevice(name string, src SnapshotSource) {
	s.mu.Lock()
	s.devices[name] = src
	s.mu.Unlock()
}

func (s *Status) RemoveDevice(name string) {
	s.mu.Lock()
	delete(s.devices, name)
	s.mu.Unlock()
}

func (s *Status) SetSurface(name, state string) {
	s.mu.Lock()
	s.surface[name] = state
	s.mu.Unlock()
}

func (s *Status) DeviceNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.devices))
	for n := range s.devices {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (s *Status) Snapshot(now time.Time) StatusSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := StatusSnapshot{
		Service:   "hapticd",
		NowUTC:    now.Format(time.RFC3339Nano),
		UptimeSec: int64(now.Sub(s.started).Seconds()),
		Devices:   make(map[string]haptic.Snapshot, len(s.devices)),
		Host:      snapshotHost(),
	}
	for name, src := range s.devices {
		snap.Devices[name] = src.Snapshot()
	}
	if len(s.surface) > 0 {
		snap.Surfaces = make(map[string]string, len(s.surface))
		for k, v := range s.surface {
			snap.Surfaces[k] = v
		}
	}
	return snap
}
