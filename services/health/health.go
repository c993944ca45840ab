// Package health watches feed liveness and escalates from reconnect to
// reboot. It is driven from the control loop and never blocks.
package health

import (
	"time"

	"github.com/rs/zerolog"

	"alertmap-go/bus"
	"alertmap-go/services/feed"
	"alertmap-go/types"
)

type State uint8

const (
	Connected State = iota
	Reconnecting
	Rebooting
)

func (s State) String() string {
	switch s {
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	case Rebooting:
		return "rebooting"
	}
	return "unknown"
}

const (
	DefaultAlertTimeout  = 150 * time.Second
	DefaultRebootTimeout = 300 * time.Second
	DefaultRebootDelay   = 3 * time.Second
)

// Rebooter restarts the device.
type Rebooter interface {
	Reboot(reason string, delay time.Duration)
}

// Monitor tracks the last heartbeat. Zero timeouts fall back to defaults.
type Monitor struct {
	conn     *bus.Connection
	log      zerolog.Logger
	rebooter Rebooter

	alertTimeout  time.Duration
	rebootTimeout time.Duration
	requestGap    time.Duration

	last         time.Time
	open         bool
	reconnecting bool
	rebooting    bool
	lastRequest  time.Time
}

// New starts the heartbeat clock at now so a device that never connects
// still escalates.
func New(conn *bus.Connection, rebooter Rebooter, log zerolog.Logger, now time.Time) *Monitor {
	return &Monitor{
		conn:          conn,
		log:           log.With().Str("svc", "health").Logger(),
		rebooter:      rebooter,
		alertTimeout:  DefaultAlertTimeout,
		rebootTimeout: DefaultRebootTimeout,
		requestGap:    3 * time.Second,
		last:          now,
	}
}

// SetTimeouts updates the escalation thresholds; non-positive values keep
// the current ones.
func (m *Monitor) SetTimeouts(alert, reboot time.Duration) {
	if alert > 0 {
		m.alertTimeout = alert
	}
	if reboot > 0 {
		m.rebootTimeout = reboot
	}
}

// SetRequestGap bounds how often reconnect requests are published.
func (m *Monitor) SetRequestGap(d time.Duration) { m.requestGap = d }

func (m *Monitor) Heartbeat(now time.Time) { m.last = now }

// Opened records a successful (re)connection.
func (m *Monitor) Opened(now time.Time) {
	if m.reconnecting {
		m.log.Info().Msg("feed recovered")
	}
	m.last = now
	m.open = true
	m.reconnecting = false
}

func (m *Monitor) Closed() { m.open = false }

func (m *Monitor) IsOpen() bool { return m.open }

// Handle feeds a "feed/state" or "feed/heartbeat" message into the monitor.
func (m *Monitor) Handle(msg *bus.Message, now time.Time) {
	switch p := msg.Payload.(type) {
	case types.Heartbeat:
		m.Heartbeat(now)
	case types.FeedState:
		if p.Connected {
			m.Opened(now)
		} else {
			m.Closed()
		}
	}
}

// State reports the current state without advancing it.
func (m *Monitor) State() State {
	switch {
	case m.rebooting:
		return Rebooting
	case m.reconnecting:
		return Reconnecting
	}
	return Connected
}

// Check advances the state machine. Past the alert timeout the monitor is
// Reconnecting and asks the feed to redial; past the reboot timeout a reboot
// is requested exactly once.
func (m *Monitor) Check(now time.Time) State {
	if m.rebooting {
		return Rebooting
	}
	silent := now.Sub(m.last)
	if silent > m.alertTimeout && !m.reconnecting {
		m.log.Warn().Dur("silent", silent).Msg("feed heartbeat lost")
		m.reconnecting = true
	}
	if silent > m.rebootTimeout {
		m.rebooting = true
		m.log.Error().Dur("silent", silent).Msg("feed dead, rebooting")
		if m.rebooter != nil {
			m.rebooter.Reboot("feed timeout", DefaultRebootDelay)
		}
		return Rebooting
	}
	if m.reconnecting {
		m.requestReconnect(now)
	}
	return m.State()
}

func (m *Monitor) requestReconnect(now time.Time) {
	if !m.lastRequest.IsZero() && now.Sub(m.lastRequest) < m.requestGap {
		return
	}
	m.lastRequest = now
	if m.conn != nil {
		m.conn.Publish(m.conn.NewMessage(feed.TopicReconnect, true, false))
	}
}
