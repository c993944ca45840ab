package display

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alertmap-go/x/timex"
)

type fakeDisplay struct {
	available bool
	screens   []Screen
	dims      []bool
	drawErr   error
}

func (f *fakeDisplay) Available() bool { return f.available }
func (f *fakeDisplay) Draw(s Screen) error {
	if f.drawErr != nil {
		return f.drawErr
	}
	f.screens = append(f.screens, s)
	return nil
}
func (f *fakeDisplay) Dim(on bool) error { f.dims = append(f.dims, on); return nil }

func at(sec int64) time.Time { return time.Unix(sec, 0) }

func newMachine(now time.Time) (*Machine, *timex.Manual) {
	clk := timex.NewManual(now)
	return NewMachine(clk, zerolog.Nop()), clk
}

func TestSlot(t *testing.T) {
	assert.Equal(t, 0, Slot(3, 3, at(0)))
	assert.Equal(t, 0, Slot(3, 3, at(2)))
	assert.Equal(t, 1, Slot(3, 3, at(3)))
	assert.Equal(t, 2, Slot(3, 3, at(7)))
	assert.Equal(t, 0, Slot(3, 3, at(9)))

	assert.Equal(t, 0, Slot(0, 3, at(7)))
	assert.Equal(t, 0, Slot(3, 0, at(7)))
	assert.Equal(t, Slot(5, 6, at(1234)), Slot(5, 6, at(1234)), "deterministic")
}

func TestNextSkipsClimateWithoutSensor(t *testing.T) {
	assert.Equal(t, ModeClock, Next(ModeOff, false))
	assert.Equal(t, ModeToggle, Next(ModeTech, false))
	assert.Equal(t, ModeClimate, Next(ModeTech, true))
	assert.Equal(t, ModeOff, Next(ModeToggle, true))
	assert.Equal(t, ModeClock, Next(Mode(42), true), "unknown starts over")
	assert.False(t, ModeClimate.Available(false))
	assert.False(t, Mode(5).Valid())
}

func TestServiceMessageWinsUntilExpiry(t *testing.T) {
	m, clk := newMachine(at(100))
	m.Show("Map mode:", "Weather", 2*time.Second)

	c := Context{Now: clk.Now(), Anthem: true, Silence: true, Mode: ModeClock}
	s := m.Screen(c)
	assert.Equal(t, SourceService, s.Source)
	assert.Equal(t, "Weather", s.Body)

	c.Now = clk.Advance(2 * time.Second)
	assert.True(t, m.Message().Expired(c.Now))
	assert.Equal(t, SourceAnthem, m.Screen(c).Source)
}

func TestPriorityOrder(t *testing.T) {
	m, _ := newMachine(at(0))
	base := Context{
		Now:           at(0),
		SlotPeriod:    5,
		HomeAlarm:     true,
		ShowAlarmTime: true,
		HomeSince:     at(-125 * 60),
		HomeName:      "Kyiv Oblast",
		Off:           true,
		Firmware:      FirmwareNotice{Enabled: true, Available: true, Version: "4.3"},
		Mode:          ModeClock,
	}

	c := base
	c.Silence = true
	assert.Equal(t, SourceSilence, m.Screen(c).Source)

	s := m.Screen(base)
	assert.Equal(t, SourceHomeAlarm, s.Source)
	assert.Equal(t, "Alarm lasts:", s.Title)
	assert.Equal(t, "2h 5m", s.Body)

	c = base
	c.Now = at(5)
	c.HomeSince = at(5 - 60)
	s = m.Screen(c)
	assert.Equal(t, "Kyiv Oblast", s.Title)
	assert.Equal(t, "1m", s.Body)

	c = base
	c.ShowAlarmTime = false
	s = m.Screen(c)
	assert.Equal(t, SourceOff, s.Source)
	assert.True(t, s.Blank())

	c.Off = false
	assert.Equal(t, SourceFirmware, m.Screen(c).Source)

	c.Firmware.Enabled = false
	assert.Equal(t, SourceMode, m.Screen(c).Source)
}

func TestMinuteOfSilenceCycles(t *testing.T) {
	m, _ := newMachine(at(0))
	var titles []string
	for sec := int64(0); sec < 9; sec += 3 {
		s := m.Screen(Context{Now: at(sec), Silence: true})
		assert.Equal(t, IconTrident, s.Icon)
		titles = append(titles, s.Title)
	}
	assert.Equal(t, []string{"Honor to the", "Glory to", "Death to"}, titles)

	s := m.Screen(Context{Now: at(0), Anthem: true})
	assert.Equal(t, "Glory to", s.Title)
}

func TestFirmwareNotice(t *testing.T) {
	m, _ := newMachine(at(0))
	c := Context{
		SlotPeriod: 5,
		Firmware:   FirmwareNotice{Enabled: true, Available: true, Version: "4.3", IP: "10.0.0.7"},
	}

	c.Now = at(5)
	assert.Equal(t, Screen{Source: SourceFirmware, Title: "Update available:", Body: "4.3"}, m.Screen(c))

	c.Now = at(0)
	assert.Equal(t, "10.0.0.7", m.Screen(c).Body)

	c.Firmware.Button = true
	assert.Equal(t, "To update press", m.Screen(c).Title)
}

func TestClockAndTemp(t *testing.T) {
	m, _ := newMachine(at(0))
	now := time.Date(2024, 2, 24, 9, 5, 10, 0, time.UTC)

	s := m.Screen(Context{Now: now, Mode: ModeClock})
	assert.Equal(t, "09:05", s.Body)
	assert.Equal(t, "Sat 24.02.2024", s.Title)

	s = m.Screen(Context{Now: now.Add(time.Second), Mode: ModeClock})
	assert.Equal(t, "09 05", s.Body)

	s = m.Screen(Context{Now: now, Mode: ModeTemp, HomeName: "Lviv Oblast", HomeTemp: -3.26, HomeTempKnown: true})
	assert.Equal(t, "Lviv Oblast", s.Title)
	assert.Equal(t, "-3.3°C", s.Body)

	s = m.Screen(Context{Now: now, Mode: ModeTemp})
	assert.Equal(t, "--", s.Body)

	assert.True(t, m.Screen(Context{Now: now, Mode: ModeOff}).Blank())
}

func TestTechPanelSixWay(t *testing.T) {
	m, _ := newMachine(at(0))
	c := Context{
		Mode:       ModeTech,
		SlotPeriod: 1,
		Tech: Tech{
			IP:            "192.168.1.20",
			RSSI:          -61,
			HasRSSI:       true,
			Uptime:        26 * time.Hour,
			FeedConnected: true,
			Firmware:      "4.2",
		},
	}
	want := []string{"192.168.1.20", "-61 dBm", "1d 2h", "Connected", "Disconnected", "4.2"}
	for i, body := range want {
		c.Now = at(int64(i))
		assert.Equal(t, body, m.Screen(c).Body, "slot %d", i)
	}
	c.Now = at(6)
	assert.Equal(t, "192.168.1.20", m.Screen(c).Body)
}

func TestTechPanelWithoutRadio(t *testing.T) {
	m, _ := newMachine(at(0))
	c := Context{
		Mode:       ModeTech,
		SlotPeriod: 1,
		Tech:       Tech{IP: "10.0.0.2", Uptime: time.Minute, Firmware: "4.2"},
	}
	var titles []string
	for i := 0; i < 5; i++ {
		c.Now = at(int64(i))
		titles = append(titles, m.Screen(c).Title)
	}
	assert.NotContains(t, titles, "WiFi signal:")
	assert.Equal(t, []string{"Map IP address:", "Uptime:", "Map API:", "Home Assistant:", "Firmware:"}, titles)
	c.Now = at(5)
	assert.Equal(t, "10.0.0.2", m.Screen(c).Body)
}

func TestClimateOnlyAvailableReadings(t *testing.T) {
	m, _ := newMachine(at(0))
	c := Context{
		Mode:       ModeClimate,
		SlotPeriod: 1,
		Climate:    Climate{Temp: 21.55, Press: 745.04, HasTemp: true, HasPress: true},
	}
	c.Now = at(0)
	assert.Equal(t, "21.6°C", m.Screen(c).Body)
	c.Now = at(1)
	assert.Equal(t, "745.0mmHg", m.Screen(c).Body)
	c.Now = at(2)
	assert.Equal(t, "Temperature", m.Screen(c).Title)

	c.Climate = Climate{}
	assert.True(t, m.Screen(c).Blank())
}

func TestToggleSkipsUnavailable(t *testing.T) {
	m, _ := newMachine(at(0))
	c := Context{
		Mode:          ModeToggle,
		SlotPeriod:    1,
		HomeName:      "Odesa Oblast",
		HomeTemp:      12,
		HomeTempKnown: true,
		Toggle:        Toggle{Weather: false, Temp: true, Hum: true, Press: true},
		Climate:       Climate{Hum: 40, HasHum: true},
	}
	var titles []string
	for sec := int64(0); sec < 3; sec++ {
		c.Now = at(sec)
		titles = append(titles, m.Screen(c).Title)
	}
	assert.Equal(t, "Humidity", titles[1])
	assert.Equal(t, titles[0], titles[2], "loops back to the clock")

	c.Climate = Climate{}
	c.Now = at(1)
	assert.Equal(t, "Odesa Oblast", m.Screen(c).Title, "weather shown without sensors")
}

func TestUpdateSkipsRedraws(t *testing.T) {
	m, _ := newMachine(at(0))
	d := &fakeDisplay{available: true}
	c := Context{Now: at(0), Mode: ModeTemp, HomeName: "Kyiv", HomeTempKnown: true, HomeTemp: 1}

	m.Update(d, c, false)
	m.Update(d, c, false)
	m.Update(d, c, true)
	require.Len(t, d.screens, 1)
	assert.Equal(t, []bool{false, true}, d.dims)

	c.HomeTemp = 2
	m.Update(d, c, true)
	assert.Len(t, d.screens, 2)
}

func TestUpdateUnavailableOrFailing(t *testing.T) {
	m, _ := newMachine(at(0))
	off := &fakeDisplay{}
	s := m.Update(off, Context{Now: at(0), Mode: ModeClock}, false)
	assert.False(t, s.Blank())
	assert.Empty(t, off.screens)
	assert.Empty(t, off.dims)

	bad := &fakeDisplay{available: true, drawErr: errors.New("i2c nack")}
	m.Update(bad, Context{Now: at(0), Mode: ModeClock}, false)
	bad.drawErr = nil
	m.Update(bad, Context{Now: at(0), Mode: ModeClock}, false)
	assert.Len(t, bad.screens, 1, "retried after a failed draw")
}
