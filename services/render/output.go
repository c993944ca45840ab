package render

import (
	"sync"

	"github.com/rs/zerolog"
)

// Strip is an LED strip driver. Implementations must not retain px.
type Strip interface {
	WritePixels(px []RGB) error
}

// Output flushes frames to whatever strips the board has. A nil strip is an
// absent capability and is skipped.
type Output struct {
	Main       Strip
	Background Strip
	Service    Strip

	Log zerolog.Logger
}

// Flush writes one frame. Driver errors are logged and dropped so a faulty
// strip never stops the loop.
func (o *Output) Flush(f Frame) {
	o.write("main", o.Main, f.Main)
	o.write("background", o.Background, f.Background)
	o.write("service", o.Service, f.Service)
}

func (o *Output) write(name string, s Strip, px []RGB) {
	if s == nil || len(px) == 0 {
		return
	}
	if err := s.WritePixels(px); err != nil {
		o.Log.Warn().Err(err).Str("strip", name).Msg("strip write failed")
	}
}

// MemoryStrip records the last frame written. Hosts without LEDs use it.
type MemoryStrip struct {
	mu     sync.Mutex
	px     []RGB
	writes int
}

func (m *MemoryStrip) WritePixels(px []RGB) error {
	m.mu.Lock()
	m.px = append(m.px[:0], px...)
	m.writes++
	m.mu.Unlock()
	return nil
}

// Pixels returns a copy of the last frame.
func (m *MemoryStrip) Pixels() []RGB {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]RGB(nil), m.px...)
}

func (m *MemoryStrip) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}
