// Package regions is the canonical per-region alarm, event and weather
// state. It is written only by the feed ingestion path of the control loop.
package regions

import (
	"time"

	"alertmap-go/services/topology"
	"alertmap-go/types"
	"alertmap-go/x/timex"
)

type Alarm struct {
	Active bool
	Since  time.Time
}

type Events struct {
	Explosion time.Time
	Missile   time.Time
	Drone     time.Time
}

type Weather struct {
	Temp  float64
	Known bool
}

type Store struct {
	clock    timex.Clock
	alarms   [topology.N]Alarm
	seen     [topology.N]bool
	events   [topology.N]Events
	weather  [topology.N]Weather
	received bool
}

func New(clock timex.Clock) *Store {
	if clock == nil {
		clock = timex.System{}
	}
	return &Store{clock: clock}
}

// ApplyAlerts merges an alerts update and returns the regions whose active
// flag flipped. A repeated flag leaves Since untouched even when the feed
// sends a different timestamp. Out-of-range regions are skipped.
func (s *Store) ApplyAlerts(in []types.RegionAlert) []int {
	var changed []int
	for _, a := range in {
		if !topology.Valid(a.Region) {
			continue
		}
		r := a.Region
		cur := s.alarms[r]
		if s.seen[r] && cur.Active == a.Active {
			continue
		}
		since := s.clock.Now()
		if a.Since > 0 {
			since = time.Unix(a.Since, 0)
		}
		s.alarms[r] = Alarm{Active: a.Active, Since: since}
		s.seen[r] = true
		if cur.Active != a.Active {
			changed = append(changed, r)
		}
	}
	s.received = true
	return changed
}

// ApplyEvents stores one event channel. A zero timestamp clears the region.
// It returns the regions whose timestamp moved.
func (s *Store) ApplyEvents(kind types.EventKind, in []types.RegionTime) []int {
	var changed []int
	for _, e := range in {
		if !topology.Valid(e.Region) {
			continue
		}
		var at time.Time
		if e.At > 0 {
			at = time.Unix(e.At, 0)
		}
		slot := s.eventSlot(kind, e.Region)
		if slot == nil || slot.Equal(at) {
			continue
		}
		*slot = at
		changed = append(changed, e.Region)
	}
	return changed
}

func (s *Store) eventSlot(kind types.EventKind, r int) *time.Time {
	switch kind {
	case types.EventExplosion:
		return &s.events[r].Explosion
	case types.EventMissile:
		return &s.events[r].Missile
	case types.EventDrone:
		return &s.events[r].Drone
	}
	return nil
}

func (s *Store) ApplyWeather(in []types.RegionValue) {
	for _, w := range in {
		if topology.Valid(w.Region) {
			s.weather[w.Region] = Weather{Temp: w.Value, Known: true}
		}
	}
}

// Received reports whether at least one alerts update was applied.
func (s *Store) Received() bool { return s.received }

func (s *Store) Alarm(r int) Alarm {
	if !topology.Valid(r) {
		return Alarm{}
	}
	return s.alarms[r]
}

func (s *Store) Events(r int) Events {
	if !topology.Valid(r) {
		return Events{}
	}
	return s.events[r]
}

func (s *Store) Weather(r int) Weather {
	if !topology.Valid(r) {
		return Weather{}
	}
	return s.weather[r]
}

// AnyActive reports whether any of regions has an active alarm.
func (s *Store) AnyActive(regions []int) bool {
	for _, r := range regions {
		if topology.Valid(r) && s.alarms[r].Active {
			return true
		}
	}
	return false
}

// ActiveCount returns the number of regions under alarm.
func (s *Store) ActiveCount() int {
	n := 0
	for _, a := range s.alarms {
		if a.Active {
			n++
		}
	}
	return n
}

// Cell implements topology.Source.
func (s *Store) Cell(r int) topology.Cell {
	if !topology.Valid(r) {
		return topology.Cell{}
	}
	a, e, w := s.alarms[r], s.events[r], s.weather[r]
	return topology.Cell{
		Active:    a.Active,
		Since:     a.Since,
		Explosion: e.Explosion,
		Missile:   e.Missile,
		Drone:     e.Drone,
		Temp:      w.Temp,
		TempKnown: w.Known,
	}
}
