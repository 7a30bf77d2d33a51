package haptic

import (
	"sync/atomic"
	"time"
)

var afterFuncFn = time.AfterFunc

// deadline is a one-shot countdown on the monotonic clock.
//
// arm and cancel are called with the controller lock held. remaining is
// lock-free and may observe a value that changes right after the read.
type deadline struct {
	epoch time.Time
	// at is the expiry as nanoseconds since epoch; 0 means unarmed.
	at    atomic.Int64
	timer *time.Timer
}

func newDeadline() *deadline {
	return &deadline{epoch: time.Now()}
}

func (d *deadline) arm(dur time.Duration, fn func()) {
	d.at.Store(int64(time.Since(d.epoch) + dur))
	d.timer = afterFuncFn(dur, fn)
}

// cancel stops a pending timer. Cancelling an unarmed or already fired
// deadline is a no-op.
func (d *deadline) cancel() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.at.Store(0)
}

// expired marks the deadline unarmed from inside its own callback. The fired
// timer is dropped, never stopped.
func (d *deadline) expired() {
	d.timer = nil
	d.at.Store(0)
}

func (d *deadline) remaining() time.Duration {
	at := d.at.Load()
	if at == 0 {
		return 0
	}
	rem := time.Duration(at) - time.Since(d.epoch)
	if rem < 0 {
		return 0
	}
	return rem
}
