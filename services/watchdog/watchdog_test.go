package watchdog

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alertmap-go/services/scheduler"
	"alertmap-go/x/timex"
)

func TestSoftwareFiresWithoutKicks(t *testing.T) {
	fired := make(chan struct{}, 1)
	w := NewSoftware(20*time.Millisecond, func() { fired <- struct{}{} })
	w.Start()
	defer w.Stop()

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("watchdog did not fire")
	}
	assert.True(t, w.Fired())
}

func TestSoftwareKickedDoesNotFire(t *testing.T) {
	var n atomic.Int32
	w := NewSoftware(200*time.Millisecond, func() { n.Add(1) })
	w.Start()
	for i := 0; i < 10; i++ {
		time.Sleep(20 * time.Millisecond)
		w.Kick()
	}
	w.Stop()
	assert.Zero(t, n.Load())
	assert.False(t, w.Fired())
}

func TestRebootOnce(t *testing.T) {
	clock := timex.NewManual(time.Unix(1_700_000_000, 0))
	sched := scheduler.New(clock)
	restarts := 0
	r := NewRebooter(func() { restarts++ }, sched, zerolog.Nop())
	var notes []string
	r.Notify = func(reason string, _ time.Duration) { notes = append(notes, reason) }

	r.Reboot("feed timeout", 2*time.Second)
	r.Reboot("button", 0)

	reason, ok := r.Pending()
	require.True(t, ok)
	assert.Equal(t, "feed timeout", reason)

	clock.Advance(time.Second)
	sched.Tick()
	assert.Zero(t, restarts, "restart waits for the delay")

	clock.Advance(time.Second)
	sched.Tick()
	clock.Advance(time.Minute)
	sched.Tick()
	assert.Equal(t, 1, restarts)
	assert.Equal(t, []string{"feed timeout"}, notes)
}
