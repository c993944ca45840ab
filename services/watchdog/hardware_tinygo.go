//go:build tinygo

package watchdog

import "machine"

// Hardware drives the MCU watchdog peripheral.
type Hardware struct{}

func NewHardware(timeoutMillis uint32) Hardware {
	machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: timeoutMillis})
	machine.Watchdog.Start()
	return Hardware{}
}

func (Hardware) Kick() { machine.Watchdog.Update() }

// Reset lets the watchdog bite as soon as possible.
func Reset() {
	machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 1})
	machine.Watchdog.Start()
	for {
	}
}
