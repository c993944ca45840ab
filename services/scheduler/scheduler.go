// Package scheduler is the cooperative task engine that drives all periodic
// work of the control loop. It is not safe for concurrent use: every call is
// expected from the single goroutine that also calls Tick.
package scheduler

import (
	"container/heap"
	"time"

	"alertmap-go/x/timex"
)

// MinPeriod is the shortest interval accepted; shorter periods are coerced.
const MinPeriod = time.Millisecond

type Handle uint64

type Kind uint8

const (
	Interval Kind = iota
	Timeout
)

type task struct {
	id     Handle
	seq    uint64
	due    int64 // unix nanos
	period time.Duration
	kind   Kind
	fn     func()
	index  int
}

type taskHeap []*task

func (h taskHeap) Len() int { return len(h) }
func (h taskHeap) Less(i, j int) bool {
	if h[i].due != h[j].due {
		return h[i].due < h[j].due
	}
	return h[i].seq < h[j].seq
}
func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *taskHeap) Push(x any)   { it := x.(*task); it.index = len(*h); *h = append(*h, it) }
func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	it.index = -1
	*h = old[:n-1]
	return it
}
func (h taskHeap) Top() *task {
	if len(h) == 0 {
		return nil
	}
	return h[0]
}

type Scheduler struct {
	clock timex.Clock
	h     taskHeap
	items map[Handle]*task
	next  Handle
	seq   uint64
}

func New(clock timex.Clock) *Scheduler {
	if clock == nil {
		clock = timex.System{}
	}
	return &Scheduler{
		clock: clock,
		items: make(map[Handle]*task),
	}
}

// Every registers fn to run every period. The first run is one period from now.
func (s *Scheduler) Every(period time.Duration, fn func()) Handle {
	if period < MinPeriod {
		period = MinPeriod
	}
	return s.add(Interval, period, period, fn)
}

// After registers fn to run once after delay.
func (s *Scheduler) After(delay time.Duration, fn func()) Handle {
	if delay < 0 {
		delay = 0
	}
	return s.add(Timeout, delay, delay, fn)
}

func (s *Scheduler) add(kind Kind, delay, period time.Duration, fn func()) Handle {
	s.next++
	s.seq++
	t := &task{
		id:     s.next,
		seq:    s.seq,
		due:    s.clock.Now().Add(delay).UnixNano(),
		period: period,
		kind:   kind,
		fn:     fn,
		index:  -1,
	}
	s.items[t.id] = t
	heap.Push(&s.h, t)
	return t.id
}

// Cancel removes a task. Unknown, finished or already cancelled handles are
// ignored. Cancelling the running task from its own callback stops re-arm.
func (s *Scheduler) Cancel(h Handle) {
	t, ok := s.items[h]
	if !ok {
		return
	}
	delete(s.items, h)
	if t.index >= 0 {
		heap.Remove(&s.h, t.index)
	}
}

// Active reports whether h is still scheduled.
func (s *Scheduler) Active(h Handle) bool {
	_, ok := s.items[h]
	return ok
}

// Pending returns the number of live tasks.
func (s *Scheduler) Pending() int { return len(s.items) }

// NextDue returns the earliest due time, if any task is scheduled.
func (s *Scheduler) NextDue() (time.Time, bool) {
	top := s.h.Top()
	if top == nil {
		return time.Time{}, false
	}
	return time.Unix(0, top.due), true
}

// Tick runs every task that is due, in (due, registration) order. Tasks
// registered by a callback during this pass wait for the next Tick. It
// returns the number of callbacks run.
func (s *Scheduler) Tick() int {
	now := s.clock.Now().UnixNano()
	limit := s.seq
	ran := 0
	var deferred []*task

	for {
		top := s.h.Top()
		if top == nil || top.due > now {
			break
		}
		t := heap.Pop(&s.h).(*task)
		if t.seq > limit {
			deferred = append(deferred, t)
			continue
		}
		if t.kind == Timeout {
			delete(s.items, t.id)
		}

		t.fn()
		ran++

		if t.kind == Interval {
			if _, live := s.items[t.id]; !live {
				continue
			}
			t.due += int64(t.period)
			if t.due <= now {
				t.due = now + int64(t.period)
			}
			heap.Push(&s.h, t)
		}
	}
	for _, t := range deferred {
		if _, live := s.items[t.id]; live {
			heap.Push(&s.h, t)
		}
	}
	return ran
}
