//go:build !rp2040 && !rp2350

package platform

import (
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"alertmap-go/services/render"
	"alertmap-go/services/watchdog"
	"alertmap-go/types"
)

// Open builds an inert host board: strips keep their last frame in memory,
// outputs and the screen go to the log, and a software watchdog exits the
// process when the loop stalls.
func Open(p types.BoardProfile, log zerolog.Logger) (*Board, error) {
	log = log.With().Str("svc", "platform").Logger()
	b := &Board{
		Output:  &render.Output{Log: log},
		Restart: func() { os.Exit(3) },
	}
	if p.MainPixels > 0 {
		b.Output.Main = &render.MemoryStrip{}
	}
	if p.BgPixels > 0 {
		b.Output.Background = &render.MemoryStrip{}
	}
	if p.ServicePixels > 0 {
		b.Output.Service = &render.MemoryStrip{}
	}
	if p.HasAlertPin() {
		b.AlertPin = &LogPin{Name: "alert", Log: log}
	}
	if p.HasClearPin() {
		b.ClearPin = &LogPin{Name: "clear", Log: log}
	}
	for i := 0; i < p.Buttons; i++ {
		b.Buttons = append(b.Buttons, &HostButton{level: true})
	}
	if p.Display {
		b.Display = LogDisplay{Log: log}
	}

	restart := b.Restart
	dog := watchdog.NewSoftware(WatchdogTimeoutMs*time.Millisecond, func() {
		log.Error().Msg("loop stalled")
		restart()
	})
	dog.Start()
	b.Watchdog = dog
	return b, nil
}

// HostButton is an active-low button driven from code.
type HostButton struct {
	mu    sync.Mutex
	level bool
	irq   func()
}

func (h *HostButton) Get() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.level
}

func (h *HostButton) SetIRQ(handler func()) error {
	h.mu.Lock()
	h.irq = handler
	h.mu.Unlock()
	return nil
}

func (h *HostButton) ClearIRQ() error {
	h.mu.Lock()
	h.irq = nil
	h.mu.Unlock()
	return nil
}

// Press drives the line low (true) or releases it.
func (h *HostButton) Press(down bool) {
	h.mu.Lock()
	h.level = !down
	irq := h.irq
	h.mu.Unlock()
	if irq != nil {
		irq()
	}
}
