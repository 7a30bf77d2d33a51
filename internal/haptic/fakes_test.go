package haptic

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type fakePWM struct {
	mu       sync.Mutex
	dutyNS   uint64
	periodNS uint64
	enabled  bool
	closed   bool
	events   []string
	failCfg  error
}

func (p *fakePWM) Configure(dutyNS, periodNS uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, "pwm.configure")
	if p.failCfg != nil {
		return p.failCfg
	}
	p.dutyNS, p.periodNS = dutyNS, periodNS
	return nil
}

func (p *fakePWM) Enable() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, "pwm.enable")
	p.enabled = true
	return nil
}

func (p *fakePWM) Disable() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, "pwm.disable")
	p.enabled = false
	return nil
}

func (p *fakePWM) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, "pwm.close")
	p.enabled = false
	p.closed = true
	return nil
}

func (p *fakePWM) state() (dutyNS, periodNS uint64, enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dutyNS, p.periodNS, p.enabled
}

type fakeLine struct {
	mu     sync.Mutex
	high   bool
	closed bool
	events []string
	// onSet observes every level change.
	onSet func(high bool)
}

func (l *fakeLine) Set(high bool) error {
	l.mu.Lock()
	l.high = high
	if high {
		l.events = append(l.events, "line.high")
	} else {
		l.events = append(l.events, "line.low")
	}
	cb := l.onSet
	l.mu.Unlock()
	if cb != nil {
		cb(high)
	}
	return nil
}

func (l *fakeLine) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, "line.close")
	l.closed = true
	return nil
}

func (l *fakeLine) isHigh() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.high
}

// fakeTimers records armed deadlines instead of letting them fire.
type fakeTimers struct {
	mu   sync.Mutex
	durs []time.Duration
	fns  []func()
}

func installFakeTimers(t *testing.T) *fakeTimers {
	t.Helper()
	ft := &fakeTimers{}
	old := afterFuncFn
	afterFuncFn = func(d time.Duration, fn func()) *time.Timer {
		ft.mu.Lock()
		ft.durs = append(ft.durs, d)
		ft.fns = append(ft.fns, fn)
		ft.mu.Unlock()
		return time.AfterFunc(time.Hour, func() {})
	}
	t.Cleanup(func() { afterFuncFn = old })
	return ft
}

func (ft *fakeTimers) last() (time.Duration, func()) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	if len(ft.fns) == 0 {
		return 0, nil
	}
	n := len(ft.fns) - 1
	return ft.durs[n], ft.fns[n]
}

func (ft *fakeTimers) fire(i int) {
	ft.mu.Lock()
	fn := ft.fns[i]
	ft.mu.Unlock()
	fn()
}

var errBoom = errors.New("boom")
