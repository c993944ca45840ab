package buttons

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alertmap-go/bus"
	"alertmap-go/types"
)

type fakePin struct {
	mu    sync.Mutex
	level bool
	h     func()
}

func (p *fakePin) Get() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

func (p *fakePin) SetIRQ(handler func()) error {
	p.mu.Lock()
	p.h = handler
	p.mu.Unlock()
	return nil
}

func (p *fakePin) ClearIRQ() error {
	p.mu.Lock()
	p.h = nil
	p.mu.Unlock()
	return nil
}

func (p *fakePin) trigger(level bool) {
	p.mu.Lock()
	p.level = level
	h := p.h
	p.mu.Unlock()
	if h != nil {
		h()
	}
}

var _ Pin = (*fakePin)(nil)

func TestClassifierClick(t *testing.T) {
	c := Classifier{LongPress: time.Second, Repeat: 50 * time.Millisecond}
	t0 := time.Unix(100, 0)

	assert.Empty(t, c.Edge(true, t0))
	assert.True(t, c.Down())
	assert.Empty(t, c.Poll(t0.Add(500*time.Millisecond)))
	assert.Equal(t, []types.ButtonEventKind{types.ButtonClick}, c.Edge(false, t0.Add(600*time.Millisecond)))
	assert.Empty(t, c.Edge(false, t0.Add(700*time.Millisecond)), "repeated level is ignored")
}

func TestClassifierLongPress(t *testing.T) {
	c := Classifier{LongPress: time.Second, Repeat: 100 * time.Millisecond}
	t0 := time.Unix(100, 0)
	c.Edge(true, t0)

	assert.Equal(t, []types.ButtonEventKind{types.ButtonLongClick}, c.Poll(t0.Add(time.Second)))
	assert.Empty(t, c.Poll(t0.Add(1050*time.Millisecond)))
	assert.Equal(t, []types.ButtonEventKind{types.ButtonDuringLong}, c.Poll(t0.Add(1100*time.Millisecond)))
	assert.Equal(t, []types.ButtonEventKind{types.ButtonLongClickDone}, c.Edge(false, t0.Add(1200*time.Millisecond)))
	assert.Empty(t, c.Poll(t0.Add(2*time.Second)))
}

func TestClassifierLongReleaseBeforePoll(t *testing.T) {
	c := Classifier{LongPress: time.Second, Repeat: 100 * time.Millisecond}
	t0 := time.Unix(100, 0)
	c.Edge(true, t0)

	assert.Equal(t,
		[]types.ButtonEventKind{types.ButtonLongClick, types.ButtonLongClickDone},
		c.Edge(false, t0.Add(2*time.Second)))
}

func recvButton(t *testing.T, s *bus.Subscription) types.ButtonEvent {
	t.Helper()
	select {
	case m := <-s.Channel():
		return m.Payload.(types.ButtonEvent)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for button event")
	}
	return types.ButtonEvent{}
}

func TestWorkerPublishesClickAndLongPress(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := bus.NewBus(32)
	conn := b.NewConnection("buttons_test")
	sub := conn.Subscribe(TopicAll)

	w := NewWorker(conn, zerolog.Nop())
	w.Debounce = 0
	w.LongPress = 40 * time.Millisecond
	w.Repeat = 5 * time.Millisecond

	p := &fakePin{level: true} // active low, idle high
	detach, err := w.Register(1, p, true)
	require.NoError(t, err)
	defer detach()
	go w.Run(ctx)

	p.trigger(false)
	p.trigger(true)
	assert.Equal(t, types.ButtonEvent{Button: 1, Kind: types.ButtonClick}, recvButton(t, sub))

	p.trigger(false)
	assert.Equal(t, types.ButtonLongClick, recvButton(t, sub).Kind)
	assert.Equal(t, types.ButtonDuringLong, recvButton(t, sub).Kind)
	p.trigger(true)

	for {
		ev := recvButton(t, sub)
		if ev.Kind == types.ButtonLongClickDone {
			break
		}
		require.Equal(t, types.ButtonDuringLong, ev.Kind)
	}
	assert.Zero(t, w.Drops())
}

func TestWorkerDebounce(t *testing.T) {
	b := bus.NewBus(8)
	conn := b.NewConnection("buttons_test")
	sub := conn.Subscribe(TopicAll)

	w := NewWorker(conn, zerolog.Nop())
	w.Debounce = 50 * time.Millisecond
	p := &fakePin{}
	_, err := w.Register(0, p, false)
	require.NoError(t, err)

	t0 := time.Unix(100, 0)
	w.handleISR(isrEvent{idx: 0, level: true}, t0)
	w.handleISR(isrEvent{idx: 0, level: false}, t0.Add(10*time.Millisecond))
	_, ok := sub.TryRecv()
	assert.False(t, ok, "bounce inside the window is dropped")

	w.handleISR(isrEvent{idx: 0, level: false}, t0.Add(200*time.Millisecond))
	m, ok := sub.TryRecv()
	require.True(t, ok)
	assert.Equal(t, types.ButtonClick, m.Payload.(types.ButtonEvent).Kind)
}
