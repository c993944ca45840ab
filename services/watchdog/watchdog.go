// Package watchdog restarts the device when the control loop stalls and
// serialises reboot requests.
package watchdog

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"alertmap-go/services/scheduler"
)

// Kicker is fed once per control-loop pass.
type Kicker interface {
	Kick()
}

// Software is a watchdog backed by a timer. It calls onExpire from its own
// goroutine when Kick is not called within timeout.
type Software struct {
	mu       sync.Mutex
	timeout  time.Duration
	timer    *time.Timer
	onExpire func()
	fired    bool
}

func NewSoftware(timeout time.Duration, onExpire func()) *Software {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Software{timeout: timeout, onExpire: onExpire}
}

// Start arms the watchdog. Calling it twice is harmless.
func (w *Software) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		return
	}
	w.timer = time.AfterFunc(w.timeout, w.expire)
}

func (w *Software) Kick() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer == nil || w.fired {
		return
	}
	w.timer.Reset(w.timeout)
}

func (w *Software) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

// Fired reports whether the watchdog has expired.
func (w *Software) Fired() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fired
}

func (w *Software) expire() {
	w.mu.Lock()
	if w.fired || w.timer == nil {
		w.mu.Unlock()
		return
	}
	w.fired = true
	fn := w.onExpire
	w.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// -----------------------------------------------------------------------------
// Reboot
// -----------------------------------------------------------------------------

// Rebooter runs restart once, delay after the first Reboot call, from the
// control loop's scheduler. Notify, if set, is called synchronously so the
// caller can show a message first.
type Rebooter struct {
	log     zerolog.Logger
	restart func()
	sched   *scheduler.Scheduler
	Notify  func(reason string, delay time.Duration)

	reason  string
	pending bool
}

func NewRebooter(restart func(), sched *scheduler.Scheduler, log zerolog.Logger) *Rebooter {
	if restart == nil {
		restart = func() {}
	}
	return &Rebooter{restart: restart, sched: sched, log: log.With().Str("svc", "watchdog").Logger()}
}

func (r *Rebooter) Reboot(reason string, delay time.Duration) {
	if r.pending {
		r.log.Debug().Str("reason", reason).Msg("reboot already pending")
		return
	}
	if delay < 0 {
		delay = 0
	}
	r.reason, r.pending = reason, true
	r.sched.After(delay, r.restart)

	r.log.Warn().Str("reason", reason).Dur("delay", delay).Msg("rebooting")
	if r.Notify != nil {
		r.Notify(reason, delay)
	}
}

// Pending returns the reason of the scheduled reboot, if any.
func (r *Rebooter) Pending() (string, bool) {
	return r.reason, r.pending
}
