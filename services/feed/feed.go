// Package feed owns the websocket link to the data server. It runs in its own
// goroutine and talks to the control loop only through the bus.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"alertmap-go/bus"
	"alertmap-go/types"
	"alertmap-go/x/timex"
)

var (
	TopicConfig    = bus.T("config", "feed")
	TopicState     = bus.T("feed", "state")
	TopicHeartbeat = bus.T("feed", "heartbeat")
	TopicSend      = bus.T("feed", "send")
	TopicReconnect = bus.T("feed", "control", "reconnect")
)

// TopicFor is where updates of a payload kind are published.
func TopicFor(kind string) bus.Topic { return bus.T("feed", kind) }

const (
	defaultPath      = "/data_v3"
	defaultHandshake = 3 * time.Second
	defaultPing      = 30 * time.Second
	writeWait        = 2 * time.Second
)

var errReconnect = errors.New("reconnect requested")

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

// Config is expected on "config/feed", either as a value or as JSON.
type Config struct {
	Host       string         `json:"host"`
	Port       int            `json:"port"`
	Path       string         `json:"path,omitempty"`
	ChipID     string         `json:"chip_id"`
	Firmware   string         `json:"firmware"`
	Identifier string         `json:"identifier"`
	UserInfo   map[string]any `json:"user_info,omitempty"`

	HandshakeTimeoutMS int `json:"handshake_timeout_ms,omitempty"`
	PingIntervalMS     int `json:"ping_interval_ms,omitempty"`
}

func (c Config) URL() string {
	path := c.Path
	if path == "" {
		path = defaultPath
	}
	return "ws://" + net.JoinHostPort(c.Host, strconv.Itoa(c.Port)) + path
}

func (c Config) handshakeTimeout() time.Duration {
	if c.HandshakeTimeoutMS > 0 {
		return time.Duration(c.HandshakeTimeoutMS) * time.Millisecond
	}
	return defaultHandshake
}

func (c Config) pingInterval() time.Duration {
	if c.PingIntervalMS > 0 {
		return time.Duration(c.PingIntervalMS) * time.Millisecond
	}
	return defaultPing
}

// Handshake returns the identity frames sent right after the link opens.
func (c Config) Handshake() ([]string, error) {
	info := c.UserInfo
	if info == nil {
		info = map[string]any{}
	}
	b, err := json.Marshal(info)
	if err != nil {
		return nil, err
	}
	return []string{
		"chip_id:" + c.ChipID,
		"firmware:" + c.Firmware + "_" + c.Identifier,
		"user_info:" + string(b),
	}, nil
}

// -----------------------------------------------------------------------------
// Service
// -----------------------------------------------------------------------------

// Start runs the feed service until ctx is cancelled. The link is (re)built
// every time a config arrives on "config/feed".
func Start(ctx context.Context, conn *bus.Connection, log zerolog.Logger) {
	s := &Service{
		conn: conn,
		log:  log.With().Str("svc", "feed").Logger(),
	}
	s.run(ctx)
}

type Service struct {
	conn *bus.Connection
	log  zerolog.Logger

	mu     sync.Mutex
	curRun context.CancelFunc
}

func (s *Service) run(ctx context.Context) {
	cfgSub := s.conn.Subscribe(TopicConfig)
	defer s.conn.Unsubscribe(cfgSub)

	s.publishState(false, "idle", "awaiting_config", nil)

	for {
		select {
		case <-ctx.Done():
			s.stopCurrent()
			return
		case msg, ok := <-cfgSub.Channel():
			if !ok {
				s.publishState(false, "error", "config_subscription_closed", nil)
				return
			}
			cfg, err := decodeConfig(msg.Payload)
			if err != nil {
				s.publishState(false, "error", "config_decode_failed", err)
				continue
			}
			s.reconfigure(ctx, cfg)
		}
	}
}

func (s *Service) stopCurrent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.curRun != nil {
		s.curRun()
		s.curRun = nil
	}
}

func (s *Service) reconfigure(parent context.Context, cfg Config) {
	s.mu.Lock()
	if s.curRun != nil {
		s.curRun()
		s.curRun = nil
	}
	ctx, cancel := context.WithCancel(parent)
	s.curRun = cancel
	s.mu.Unlock()

	s.log.Info().Str("url", cfg.URL()).Msg("feed configured")
	go s.runLink(ctx, cfg)
}

// -----------------------------------------------------------------------------
// Link supervision and I/O
// -----------------------------------------------------------------------------

func (s *Service) runLink(ctx context.Context, cfg Config) {
	dialer := websocket.Dialer{HandshakeTimeout: cfg.handshakeTimeout()}
	backoff := backoffSeq(250*time.Millisecond, 10*time.Second)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		start := time.Now()
		c, _, err := dialer.DialContext(ctx, cfg.URL(), nil)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			delay := backoff()
			s.publishState(false, "degraded", "dial_failed_retrying", fmt.Errorf("%v (retry in %s)", err, delay))
			if !sleep(ctx, delay) {
				return
			}
			continue
		}
		backoff = backoffSeq(250*time.Millisecond, 10*time.Second)
		s.log.Info().Dur("took", time.Since(start)).Msg("connection opened")

		err = s.handleLink(ctx, c, cfg)
		_ = c.Close()
		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, errReconnect) {
			s.publishState(false, "degraded", "reconnect_requested", nil)
			continue
		}
		delay := backoff()
		s.publishState(false, "degraded", "link_lost_retrying", fmt.Errorf("%v (retry in %s)", err, delay))
		if !sleep(ctx, delay) {
			return
		}
	}
}

// handleLink owns the active link lifetime.
func (s *Service) handleLink(ctx context.Context, c *websocket.Conn, cfg Config) error {
	sendSub := s.conn.Subscribe(TopicSend)
	defer s.conn.Unsubscribe(sendSub)
	ctlSub := s.conn.Subscribe(TopicReconnect)
	defer s.conn.Unsubscribe(ctlSub)

	s.publishState(true, "up", "link_established", nil)

	c.SetPingHandler(func(data string) error {
		s.log.Debug().Msg("websocket ping")
		s.beat()
		return c.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
	})
	c.SetPongHandler(func(string) error {
		s.log.Debug().Msg("websocket pong")
		s.beat()
		return nil
	})

	frames, err := cfg.Handshake()
	if err != nil {
		return err
	}
	for _, f := range frames {
		s.log.Debug().Str("frame", f).Msg("handshake")
		if err := s.write(c, f); err != nil {
			return err
		}
	}
	if err := c.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		for {
			_, data, err := c.ReadMessage()
			if err != nil {
				errCh <- err
				return
			}
			s.dispatch(data)
		}
	}()

	tick := time.NewTicker(cfg.pingInterval())
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = c.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return nil
		case err := <-errCh:
			return err
		case <-tick.C:
			if err := c.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return err
			}
		case msg, ok := <-sendSub.Channel():
			if !ok {
				return errors.New("send subscription closed")
			}
			text, err := encodeOutbound(msg.Payload)
			if err != nil {
				s.log.Warn().Err(err).Msg("dropping outbound message")
				continue
			}
			if err := s.write(c, text); err != nil {
				return err
			}
		case <-ctlSub.Channel():
			s.log.Info().Msg("reconnect requested")
			return errReconnect
		}
	}
}

func (s *Service) write(c *websocket.Conn, text string) error {
	_ = c.SetWriteDeadline(time.Now().Add(writeWait))
	return c.WriteMessage(websocket.TextMessage, []byte(text))
}

// dispatch decodes one text frame and publishes its content. Any frame from
// the server counts as a heartbeat.
func (s *Service) dispatch(data []byte) {
	s.beat()
	u, err := Decode(data)
	if err != nil {
		s.log.Warn().Err(err).Msg("decode failed")
		return
	}
	if !u.Known() {
		s.log.Debug().Str("kind", u.Kind).Msg("ignoring payload")
		return
	}
	s.log.Debug().Str("kind", u.Kind).Msg("message")

	var payload any
	switch u.Kind {
	case KindPing:
		return
	case KindAlerts:
		payload = u.Alerts
	case KindWeather:
		payload = u.Weather
	case KindExplosions, KindMissiles, KindDrones:
		payload = u.Events
	case KindBins, KindTestBins:
		payload = u.Bins
	}
	s.conn.Publish(s.conn.NewMessage(TopicFor(u.Kind), payload, false))
}

func (s *Service) beat() {
	s.conn.Publish(s.conn.NewMessage(TopicHeartbeat, types.Heartbeat{TS: timex.NowMs()}, false))
}

func (s *Service) publishState(connected bool, level, status string, err error) {
	st := types.FeedState{
		Connected: connected,
		Level:     level,
		Status:    status,
		TS:        timex.NowMs(),
	}
	if err != nil {
		st.Error = err.Error()
		s.log.Warn().Err(err).Str("status", status).Msg("feed state")
	} else {
		s.log.Info().Str("status", status).Msg("feed state")
	}
	s.conn.Publish(s.conn.NewMessage(TopicState, st, true))
}

// -----------------------------------------------------------------------------
// Utilities
// -----------------------------------------------------------------------------

// encodeOutbound turns a "feed/send" payload into a text frame.
func encodeOutbound(p any) (string, error) {
	switch v := p.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case types.Telemetry:
		b, err := json.Marshal(map[string]string{v.Key: v.Value})
		if err != nil {
			return "", err
		}
		return "settings:" + string(b), nil
	default:
		return "", fmt.Errorf("unsupported outbound payload type: %T", p)
	}
}

func decodeConfig(p any) (Config, error) {
	var cfg Config
	switch v := p.(type) {
	case Config:
		cfg = v
	case *Config:
		if v == nil {
			return cfg, errors.New("nil config")
		}
		cfg = *v
	case []byte:
		if err := json.Unmarshal(v, &cfg); err != nil {
			return cfg, err
		}
	case string:
		if err := json.Unmarshal([]byte(v), &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config payload type: %T", p)
	}
	if cfg.Host == "" || cfg.Port <= 0 {
		return cfg, errors.New("host and port are required")
	}
	return cfg, nil
}

func backoffSeq(min, max time.Duration) func() time.Duration {
	if min <= 0 {
		min = 100 * time.Millisecond
	}
	if max < min {
		max = min
	}
	var cur = min
	return func() time.Duration {
		d := cur
		cur *= 2
		if cur > max {
			cur = max
		}
		return d
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
