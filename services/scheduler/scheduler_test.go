package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alertmap-go/x/timex"
)

func newTest() (*Scheduler, *timex.Manual) {
	clk := timex.NewManual(time.Unix(1_700_000_000, 0))
	return New(clk), clk
}

func TestEveryFiresAtPeriod(t *testing.T) {
	s, clk := newTest()
	n := 0
	s.Every(time.Second, func() { n++ })

	assert.Equal(t, 0, s.Tick())
	clk.Advance(999 * time.Millisecond)
	s.Tick()
	assert.Equal(t, 0, n)

	clk.Advance(time.Millisecond)
	s.Tick()
	assert.Equal(t, 1, n)

	clk.Advance(time.Second)
	s.Tick()
	assert.Equal(t, 2, n)
}

func TestIntervalDoesNotBurstWhenBehind(t *testing.T) {
	s, clk := newTest()
	n := 0
	s.Every(100*time.Millisecond, func() { n++ })

	clk.Advance(time.Second)
	s.Tick()
	assert.Equal(t, 1, n, "missed periods are not caught up")

	next, ok := s.NextDue()
	require.True(t, ok)
	assert.Equal(t, clk.Now().Add(100*time.Millisecond), next)
}

func TestAfterRunsOnce(t *testing.T) {
	s, clk := newTest()
	n := 0
	h := s.After(500*time.Millisecond, func() { n++ })
	assert.True(t, s.Active(h))

	clk.Advance(time.Second)
	s.Tick()
	s.Tick()
	assert.Equal(t, 1, n)
	assert.False(t, s.Active(h))
	assert.Equal(t, 0, s.Pending())
}

func TestSameDueFollowsRegistrationOrder(t *testing.T) {
	s, clk := newTest()
	var order []string
	s.After(time.Second, func() { order = append(order, "a") })
	s.Every(time.Second, func() { order = append(order, "b") })
	s.After(time.Second, func() { order = append(order, "c") })
	s.After(500*time.Millisecond, func() { order = append(order, "early") })

	clk.Advance(time.Second)
	s.Tick()
	assert.Equal(t, []string{"early", "a", "b", "c"}, order)
}

func TestCancelIsIdempotent(t *testing.T) {
	s, clk := newTest()
	n := 0
	h := s.Every(time.Second, func() { n++ })
	s.Cancel(h)
	s.Cancel(h)
	s.Cancel(Handle(999))

	clk.Advance(5 * time.Second)
	s.Tick()
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, s.Pending())
}

func TestCancelFromOwnCallback(t *testing.T) {
	s, clk := newTest()
	n := 0
	var h Handle
	h = s.Every(time.Second, func() {
		n++
		s.Cancel(h)
	})

	for i := 0; i < 3; i++ {
		clk.Advance(time.Second)
		s.Tick()
	}
	assert.Equal(t, 1, n)
}

func TestCancelOtherDueTaskFromCallback(t *testing.T) {
	s, clk := newTest()
	ran := false
	var second Handle
	s.After(time.Second, func() { s.Cancel(second) })
	second = s.After(time.Second, func() { ran = true })

	clk.Advance(time.Second)
	s.Tick()
	assert.False(t, ran)
}

func TestRescheduleTimeout(t *testing.T) {
	s, clk := newTest()
	released := 0
	h := s.After(time.Second, func() { released++ })

	clk.Advance(600 * time.Millisecond)
	s.Tick()
	s.Cancel(h)
	s.After(time.Second, func() { released++ })

	clk.Advance(600 * time.Millisecond)
	s.Tick()
	assert.Equal(t, 0, released)

	clk.Advance(400 * time.Millisecond)
	s.Tick()
	assert.Equal(t, 1, released)
}

func TestTaskAddedDuringTickWaits(t *testing.T) {
	s, clk := newTest()
	inner := 0
	s.After(0, func() {
		s.After(0, func() { inner++ })
	})

	s.Tick()
	assert.Equal(t, 0, inner)
	assert.Equal(t, 1, s.Pending())

	clk.Advance(time.Millisecond)
	s.Tick()
	assert.Equal(t, 1, inner)
}

func TestPeriodCoercedToMinimum(t *testing.T) {
	s, clk := newTest()
	n := 0
	s.Every(0, func() { n++ })

	clk.Advance(MinPeriod)
	s.Tick()
	assert.Equal(t, 1, n)
}
