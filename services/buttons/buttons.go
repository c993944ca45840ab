// Package buttons turns raw button pin edges into logical click, long-click,
// hold and release events published on "button/<index>".
package buttons

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"alertmap-go/bus"
	"alertmap-go/types"
)

const (
	DefaultDebounce  = 30 * time.Millisecond
	DefaultLongPress = time.Second
	DefaultRepeat    = 50 * time.Millisecond
)

// Topic is where events of button idx are published.
func Topic(idx int) bus.Topic { return bus.T("button", idx) }

// TopicAll matches every button.
var TopicAll = bus.T("button", bus.SingleWild)

// Pin is an input with an edge interrupt. The handler runs in interrupt
// context and must not block.
type Pin interface {
	Get() bool
	SetIRQ(handler func()) error
	ClearIRQ() error
}

// -----------------------------------------------------------------------------
// Classifier
// -----------------------------------------------------------------------------

// Classifier recognises clicks and long presses from press/release edges.
// A long press emits LongClick once the threshold passes, DuringLong every
// Repeat while held, and LongClickDone on release.
type Classifier struct {
	LongPress time.Duration
	Repeat    time.Duration

	down       bool
	long       bool
	pressedAt  time.Time
	lastRepeat time.Time
}

func (c *Classifier) Edge(pressed bool, now time.Time) []types.ButtonEventKind {
	if pressed == c.down {
		return nil
	}
	c.down = pressed
	if pressed {
		c.pressedAt, c.long = now, false
		return nil
	}
	if c.long {
		c.long = false
		return []types.ButtonEventKind{types.ButtonLongClickDone}
	}
	if now.Sub(c.pressedAt) >= c.LongPress {
		// released after the threshold but before any poll saw it
		return []types.ButtonEventKind{types.ButtonLongClick, types.ButtonLongClickDone}
	}
	return []types.ButtonEventKind{types.ButtonClick}
}

func (c *Classifier) Poll(now time.Time) []types.ButtonEventKind {
	if !c.down {
		return nil
	}
	if !c.long {
		if now.Sub(c.pressedAt) < c.LongPress {
			return nil
		}
		c.long, c.lastRepeat = true, now
		return []types.ButtonEventKind{types.ButtonLongClick}
	}
	if now.Sub(c.lastRepeat) < c.Repeat {
		return nil
	}
	c.lastRepeat = now
	return []types.ButtonEventKind{types.ButtonDuringLong}
}

func (c *Classifier) Down() bool { return c.down }

// -----------------------------------------------------------------------------
// Worker
// -----------------------------------------------------------------------------

type isrEvent struct {
	idx   int
	level bool
}

type watch struct {
	idx       int
	pin       Pin
	invert    bool
	lastLevel bool
	lastEdge  time.Time
	cls       Classifier
}

// Worker owns every registered button. Interrupt handlers only enqueue;
// classification and publishing happen on the worker goroutine.
type Worker struct {
	conn *bus.Connection
	log  zerolog.Logger

	Debounce  time.Duration
	LongPress time.Duration
	Repeat    time.Duration

	isrQ chan isrEvent

	mu     sync.Mutex
	inputs map[int]*watch

	drops uint32
}

func NewWorker(conn *bus.Connection, log zerolog.Logger) *Worker {
	return &Worker{
		conn:      conn,
		log:       log.With().Str("svc", "buttons").Logger(),
		Debounce:  DefaultDebounce,
		LongPress: DefaultLongPress,
		Repeat:    DefaultRepeat,
		isrQ:      make(chan isrEvent, 64),
		inputs:    make(map[int]*watch),
	}
}

// Register watches pin as button idx. invert suits active-low wiring. The
// returned func detaches the interrupt.
func (w *Worker) Register(idx int, pin Pin, invert bool) (func(), error) {
	wh := &watch{
		idx:       idx,
		pin:       pin,
		invert:    invert,
		lastLevel: pin.Get() != invert,
		cls:       Classifier{LongPress: w.LongPress, Repeat: w.Repeat},
	}
	handler := func() {
		select {
		case w.isrQ <- isrEvent{idx: idx, level: pin.Get()}:
		default:
			atomic.AddUint32(&w.drops, 1)
		}
	}
	if err := pin.SetIRQ(handler); err != nil {
		return nil, err
	}

	w.mu.Lock()
	w.inputs[idx] = wh
	w.mu.Unlock()

	return func() {
		w.mu.Lock()
		if cur, ok := w.inputs[idx]; ok {
			_ = cur.pin.ClearIRQ()
			delete(w.inputs, idx)
		}
		w.mu.Unlock()
	}, nil
}

// Run classifies edges until ctx is done.
func (w *Worker) Run(ctx context.Context) {
	tick := time.NewTicker(w.Repeat)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-w.isrQ:
			w.handleISR(ev, time.Now())
		case now := <-tick.C:
			w.poll(now)
		}
	}
}

func (w *Worker) handleISR(ev isrEvent, now time.Time) {
	w.mu.Lock()
	wh := w.inputs[ev.idx]
	w.mu.Unlock()
	if wh == nil {
		return
	}
	pressed := ev.level != wh.invert

	if !wh.lastEdge.IsZero() && now.Sub(wh.lastEdge) < w.Debounce {
		return
	}
	if pressed == wh.lastLevel {
		return
	}
	wh.lastLevel = pressed
	wh.lastEdge = now
	w.publish(wh.idx, wh.cls.Edge(pressed, now))
}

func (w *Worker) poll(now time.Time) {
	w.mu.Lock()
	list := make([]*watch, 0, len(w.inputs))
	for _, wh := range w.inputs {
		list = append(list, wh)
	}
	w.mu.Unlock()
	for _, wh := range list {
		w.publish(wh.idx, wh.cls.Poll(now))
	}
}

func (w *Worker) publish(idx int, kinds []types.ButtonEventKind) {
	for _, k := range kinds {
		w.log.Debug().Int("button", idx).Str("kind", string(k)).Msg("button event")
		w.conn.Publish(w.conn.NewMessage(Topic(idx), types.ButtonEvent{Button: idx, Kind: k}, false))
	}
}

// Drops counts interrupts lost to a full queue.
func (w *Worker) Drops() uint32 { return atomic.LoadUint32(&w.drops) }
