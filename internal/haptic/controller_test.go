package haptic

import (
	"sync"
	"testing"
	"time"
)

func newTestController() (*Controller, *fakePWM, *fakeLine) {
	pwm := &fakePWM{}
	line := &fakeLine{}
	return NewController(NewSettings(DefaultFrequencyHz, DefaultDutyPercent), pwm, line), pwm, line
}

func TestTrigger_DefaultDutyScenario(t *testing.T) {
	ft := installFakeTimers(t)
	c, pwm, line := newTestController()

	if got := c.Trigger(1000); got != 1000 {
		t.Fatalf("applied=%d want 1000", got)
	}
	dutyNS, periodNS, enabled := pwm.state()
	if periodNS != 45000 {
		t.Fatalf("period=%d want 45000", periodNS)
	}
	if dutyNS != 33*45000/100 {
		t.Fatalf("duty=%d want %d", dutyNS, 33*45000/100)
	}
	if !enabled || !line.isHigh() {
		t.Fatalf("enabled=%v line=%v want both on", enabled, line.isHigh())
	}
	if c.State() != Running {
		t.Fatalf("state=%v want running", c.State())
	}
	if d, _ := ft.last(); d != time.Second {
		t.Fatalf("armed=%v want 1s", d)
	}
	if rem := c.RemainingMs(); rem <= 0 || rem > 1000 {
		t.Fatalf("remaining=%d want (0,1000]", rem)
	}

	_, fire := ft.last()
	fire()
	if c.State() != Idle {
		t.Fatalf("state=%v want idle after expiry", c.State())
	}
	if _, _, enabled := pwm.state(); enabled || line.isHigh() {
		t.Fatalf("outputs still on after expiry")
	}
	if rem := c.RemainingMs(); rem != 0 {
		t.Fatalf("remaining=%d want 0 after expiry", rem)
	}
}

func TestTrigger_DutyOverrideScenario(t *testing.T) {
	ft := installFakeTimers(t)
	c, pwm, _ := newTestController()

	if got := c.Trigger(Command(80<<16 | 200)); got != 200 {
		t.Fatalf("applied=%d want 200", got)
	}
	if dutyNS, _, _ := pwm.state(); dutyNS != 80*45000/100 {
		t.Fatalf("duty=%d want %d", dutyNS, 80*45000/100)
	}
	if d, _ := ft.last(); d != 200*time.Millisecond {
		t.Fatalf("armed=%v want 200ms", d)
	}
	if sn := c.Snapshot(); sn.AppliedDuty != 80 || sn.AppliedTimeoutMs != 200 {
		t.Fatalf("snapshot=%+v", sn)
	}
}

func TestTrigger_ReturnsTimeoutForAllDuties(t *testing.T) {
	installFakeTimers(t)
	c, _, _ := newTestController()

	for d := 0; d <= 100; d += 10 {
		for _, ms := range []int{1, 2, 999, 1000, 4999, 5000} {
			if got := c.Trigger(Encode(d, ms)); got != ms {
				t.Fatalf("Trigger(Encode(%d,%d))=%d want %d", d, ms, got, ms)
			}
			if rem := c.RemainingMs(); rem < 0 || rem > ms {
				t.Fatalf("remaining=%d want <= %d", rem, ms)
			}
		}
	}
}

func TestTrigger_ClampsLongTimeouts(t *testing.T) {
	ft := installFakeTimers(t)
	c, _, _ := newTestController()

	for _, ms := range []int{5001, 6000, 32768, 65535} {
		if got := c.Trigger(Encode(NoDutyOverride, ms)); got != MaxTimeoutMs {
			t.Fatalf("Trigger(%d)=%d want %d", ms, got, MaxTimeoutMs)
		}
		if d, _ := ft.last(); d != MaxTimeoutMs*time.Millisecond {
			t.Fatalf("armed=%v want 5s", d)
		}
		if rem := c.RemainingMs(); rem > MaxTimeoutMs {
			t.Fatalf("remaining=%d exceeds clamp", rem)
		}
	}
}

func TestTrigger_ZeroTimeoutStopsFromAnyState(t *testing.T) {
	installFakeTimers(t)
	c, pwm, line := newTestController()

	if got := c.Trigger(Encode(50, 0)); got != 0 {
		t.Fatalf("idle stop returned %d", got)
	}
	if c.State() != Idle {
		t.Fatalf("state=%v want idle", c.State())
	}

	c.Trigger(3000)
	if got := c.Trigger(Encode(50, 0)); got != 0 {
		t.Fatalf("running stop returned %d", got)
	}
	if c.State() != Idle || line.isHigh() {
		t.Fatalf("state=%v line=%v want idle/low", c.State(), line.isHigh())
	}
	if _, _, enabled := pwm.state(); enabled {
		t.Fatalf("pwm still enabled")
	}
	if rem := c.RemainingMs(); rem != 0 {
		t.Fatalf("remaining=%d want 0", rem)
	}
}

func TestTrigger_DutyNormalization(t *testing.T) {
	installFakeTimers(t)
	c, pwm, _ := newTestController()

	c.Trigger(Encode(250, 10))
	if dutyNS, periodNS, _ := pwm.state(); dutyNS != periodNS {
		t.Fatalf("duty=%d want full period %d", dutyNS, periodNS)
	}

	c.Trigger(Command(-1<<16 | 10))
	if dutyNS, periodNS, _ := pwm.state(); dutyNS != uint64(DefaultDutyPercent)*periodNS/100 {
		t.Fatalf("negative override duty=%d want default", dutyNS)
	}
}

func TestTrigger_UsesLatestSettings(t *testing.T) {
	installFakeTimers(t)
	c, pwm, _ := newTestController()

	c.Settings().SetDutyPercent(50)
	c.Settings().SetFrequencyHz(20000)
	c.Trigger(100)
	if dutyNS, periodNS, _ := pwm.state(); periodNS != 50000 || dutyNS != 25000 {
		t.Fatalf("duty=%d period=%d want 25000/50000", dutyNS, periodNS)
	}
}

func TestRetrigger_StaleExpiryIgnored(t *testing.T) {
	ft := installFakeTimers(t)
	c, _, line := newTestController()

	c.Trigger(1000)
	c.Trigger(300)

	// The first deadline's callback raced the second trigger and lost.
	ft.fire(0)
	if c.State() != Running || !line.isHigh() {
		t.Fatalf("stale expiry shut off the newer run")
	}

	ft.fire(1)
	if c.State() != Idle || line.isHigh() {
		t.Fatalf("current expiry did not shut off")
	}
}

func TestRetrigger_OnTimeEqualsSecondDuration(t *testing.T) {
	line := &fakeLine{}
	var mu sync.Mutex
	var lastHigh, lastLow time.Time
	line.onSet = func(high bool) {
		mu.Lock()
		defer mu.Unlock()
		if high {
			lastHigh = time.Now()
		} else {
			lastLow = time.Now()
		}
	}
	c := NewController(NewSettings(DefaultFrequencyHz, DefaultDutyPercent), &fakePWM{}, line)

	c.Trigger(400)
	time.Sleep(50 * time.Millisecond)
	c.Trigger(100)

	deadline := time.Now().Add(2 * time.Second)
	for c.State() != Idle && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if c.State() != Idle {
		t.Fatalf("actuator never returned to idle")
	}

	mu.Lock()
	on := lastLow.Sub(lastHigh)
	mu.Unlock()
	if on < 100*time.Millisecond || on > 300*time.Millisecond {
		t.Fatalf("on time after retrigger=%v want ~100ms", on)
	}
}

func TestShutdown_RejectsFurtherTriggers(t *testing.T) {
	installFakeTimers(t)
	c, pwm, line := newTestController()

	c.Trigger(2000)
	c.Shutdown()
	if c.State() != Idle || line.isHigh() {
		t.Fatalf("shutdown left actuator on")
	}
	if got := c.Trigger(2000); got != 0 {
		t.Fatalf("trigger after shutdown=%d want 0", got)
	}
	if _, _, enabled := pwm.state(); enabled {
		t.Fatalf("pwm re-enabled after shutdown")
	}
}

func TestTrigger_OutputErrorRecordedNotReturned(t *testing.T) {
	installFakeTimers(t)
	pwm := &fakePWM{failCfg: errBoom}
	c := NewController(nil, pwm, &fakeLine{})

	if got := c.Trigger(500); got != 500 {
		t.Fatalf("applied=%d want 500", got)
	}
	if sn := c.Snapshot(); sn.LastError == "" {
		t.Fatalf("expected last_error to be recorded")
	}
}

func TestController_ConcurrentUse(t *testing.T) {
	c, _, line := newTestController()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				c.Trigger(Encode(i*10, 1+j%5))
				_ = c.RemainingMs()
				_ = c.Snapshot()
			}
		}(i)
	}
	wg.Wait()

	c.Trigger(0)
	if c.State() != Idle || line.isHigh() {
		t.Fatalf("state=%v line=%v want idle/low", c.State(), line.isHigh())
	}
}
