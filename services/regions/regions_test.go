package regions

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alertmap-go/services/topology"
	"alertmap-go/types"
	"alertmap-go/x/timex"
)

var t0 = time.Unix(1_700_000_000, 0)

func TestApplyAlertsSetsSinceOnFlip(t *testing.T) {
	s := New(timex.NewManual(t0))

	changed := s.ApplyAlerts([]types.RegionAlert{{Region: 3, Active: true, Since: t0.Unix() - 60}})
	assert.Equal(t, []int{3}, changed)
	assert.Equal(t, Alarm{Active: true, Since: t0.Add(-time.Minute)}, s.Alarm(3))
	assert.True(t, s.Received())
}

func TestRedundantAlertKeepsSince(t *testing.T) {
	s := New(timex.NewManual(t0))
	s.ApplyAlerts([]types.RegionAlert{{Region: 5, Active: true, Since: t0.Unix()}})

	changed := s.ApplyAlerts([]types.RegionAlert{{Region: 5, Active: true, Since: t0.Unix() + 500}})
	assert.Empty(t, changed)
	assert.Equal(t, t0, s.Alarm(5).Since)
}

func TestClearMovesSinceAndFallsBackToNow(t *testing.T) {
	clk := timex.NewManual(t0)
	s := New(clk)
	s.ApplyAlerts([]types.RegionAlert{{Region: 1, Active: true, Since: t0.Unix()}})

	clk.Advance(10 * time.Minute)
	changed := s.ApplyAlerts([]types.RegionAlert{{Region: 1, Active: false}})
	assert.Equal(t, []int{1}, changed)
	assert.Equal(t, Alarm{Active: false, Since: t0.Add(10 * time.Minute)}, s.Alarm(1))
}

func TestFirstInactiveReportIsNotAChange(t *testing.T) {
	s := New(timex.NewManual(t0))
	changed := s.ApplyAlerts([]types.RegionAlert{{Region: 2, Active: false, Since: t0.Unix() - 3600}})
	assert.Empty(t, changed)
	assert.Equal(t, t0.Add(-time.Hour), s.Alarm(2).Since)

	// Absent regions stay as they were.
	assert.Equal(t, Alarm{}, s.Alarm(4))
}

func TestInvalidRegionsSkipped(t *testing.T) {
	s := New(timex.NewManual(t0))
	changed := s.ApplyAlerts([]types.RegionAlert{{Region: -1, Active: true}, {Region: topology.N, Active: true}})
	assert.Empty(t, changed)
	assert.Equal(t, 0, s.ActiveCount())
	assert.Equal(t, Alarm{}, s.Alarm(99))
}

func TestApplyEvents(t *testing.T) {
	s := New(timex.NewManual(t0))
	changed := s.ApplyEvents(types.EventMissile, []types.RegionTime{{Region: 7, At: t0.Unix()}, {Region: 8, At: 0}})
	assert.Equal(t, []int{7}, changed)
	assert.Equal(t, t0, s.Events(7).Missile)
	assert.True(t, s.Events(7).Explosion.IsZero())

	assert.Empty(t, s.ApplyEvents(types.EventMissile, []types.RegionTime{{Region: 7, At: t0.Unix()}}))
	assert.Empty(t, s.ApplyEvents("bogus", []types.RegionTime{{Region: 7, At: 1}}))

	changed = s.ApplyEvents(types.EventMissile, []types.RegionTime{{Region: 7, At: 0}})
	assert.Equal(t, []int{7}, changed)
	assert.True(t, s.Events(7).Missile.IsZero())
}

func TestWeatherAndCell(t *testing.T) {
	s := New(timex.NewManual(t0))
	s.ApplyWeather([]types.RegionValue{{Region: 25, Value: -4.5}})
	s.ApplyAlerts([]types.RegionAlert{{Region: 25, Active: true, Since: t0.Unix()}})
	s.ApplyEvents(types.EventDrone, []types.RegionTime{{Region: 25, At: t0.Unix()}})

	c := s.Cell(25)
	assert.True(t, c.Active)
	assert.True(t, c.TempKnown)
	assert.Equal(t, -4.5, c.Temp)
	assert.Equal(t, t0, c.Drone)
	assert.False(t, s.Weather(0).Known)
}

func TestAnyActive(t *testing.T) {
	s := New(timex.NewManual(t0))
	s.ApplyAlerts([]types.RegionAlert{{Region: 19, Active: true}})

	assert.True(t, s.AnyActive(topology.Neighbors(7)))
	assert.False(t, s.AnyActive(topology.Neighbors(0)))
	assert.False(t, s.AnyActive([]int{-5}))
	require.Equal(t, 1, s.ActiveCount())
}
