package feed

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alertmap-go/bus"
	"alertmap-go/types"
)

// fakeServer accepts websocket links and reports every text frame it reads.
type fakeServer struct {
	srv   *httptest.Server
	conns chan *websocket.Conn
	texts chan string
	paths chan string
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	fs := &fakeServer{
		conns: make(chan *websocket.Conn, 4),
		texts: make(chan string, 64),
		paths: make(chan string, 4),
	}
	up := websocket.Upgrader{}
	fs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		fs.paths <- r.URL.Path
		fs.conns <- c
		for {
			typ, data, err := c.ReadMessage()
			if err != nil {
				return
			}
			if typ == websocket.TextMessage {
				fs.texts <- string(data)
			}
		}
	}))
	t.Cleanup(fs.srv.Close)
	return fs
}

func (fs *fakeServer) config(t *testing.T) Config {
	t.Helper()
	u, err := url.Parse(fs.srv.URL)
	require.NoError(t, err)
	host, port, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	p, err := strconv.Atoi(port)
	require.NoError(t, err)
	return Config{
		Host:       host,
		Port:       p,
		ChipID:     "abc123",
		Firmware:   "4.2",
		Identifier: "alertmap",
		UserInfo:   map[string]any{"legacy": 0},
	}
}

func (fs *fakeServer) nextText(t *testing.T) string {
	t.Helper()
	select {
	case s := <-fs.texts:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for text frame")
		return ""
	}
}

func (fs *fakeServer) nextConn(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case c := <-fs.conns:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for connection")
		return nil
	}
}

func startFeed(t *testing.T, cfg any) (*bus.Connection, *bus.Subscription) {
	t.Helper()
	b := bus.NewBus(64)
	conn := b.NewConnection("feed_test")
	state := conn.Subscribe(TopicState)
	t.Cleanup(func() { conn.Unsubscribe(state) })

	conn.Publish(conn.NewMessage(TopicConfig, cfg, true))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go Start(ctx, b.NewConnection("feed"), zerolog.Nop())
	return conn, state
}

// waitState reads states until one with the wanted status arrives.
func waitState(t *testing.T, sub *bus.Subscription, status string) types.FeedState {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case m := <-sub.Channel():
			st, ok := m.Payload.(types.FeedState)
			require.True(t, ok, "state payload type %T", m.Payload)
			if st.Status == status {
				return st
			}
		case <-deadline:
			t.Fatalf("timeout waiting for state %q", status)
			return types.FeedState{}
		}
	}
}

func TestFeed_HandshakeAndDispatch(t *testing.T) {
	fs := newFakeServer(t)
	conn, state := startFeed(t, fs.config(t))
	alerts := conn.Subscribe(TopicFor(KindAlerts))
	beats := conn.Subscribe(TopicHeartbeat)

	st := waitState(t, state, "link_established")
	assert.True(t, st.Connected)
	assert.Equal(t, "up", st.Level)

	srv := fs.nextConn(t)
	assert.Equal(t, "/data_v3", <-fs.paths)
	assert.Equal(t, "chip_id:abc123", fs.nextText(t))
	assert.Equal(t, "firmware:4.2_alertmap", fs.nextText(t))
	assert.Equal(t, `user_info:{"legacy":0}`, fs.nextText(t))

	require.NoError(t, srv.WriteMessage(websocket.TextMessage,
		[]byte(`{"payload":"alerts","alerts":[[1,1700000000],[0,0]]}`)))

	select {
	case m := <-alerts.Channel():
		assert.Equal(t, []types.RegionAlert{
			{Region: 0, Active: true, Since: 1700000000},
			{Region: 1},
		}, m.Payload)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for alerts")
	}

	select {
	case m := <-beats.Channel():
		_, ok := m.Payload.(types.Heartbeat)
		assert.True(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("no heartbeat published")
	}
}

func TestFeed_ForwardsTelemetry(t *testing.T) {
	fs := newFakeServer(t)
	conn, state := startFeed(t, fs.config(t))
	waitState(t, state, "link_established")
	for i := 0; i < 3; i++ {
		fs.nextText(t)
	}

	conn.Publish(conn.NewMessage(TopicSend, types.Telemetry{Key: "brightness", Value: "50"}, false))
	assert.Equal(t, `settings:{"brightness":"50"}`, fs.nextText(t))

	conn.Publish(conn.NewMessage(TopicSend, "raw", false))
	assert.Equal(t, "raw", fs.nextText(t))
}

func TestFeed_ReconnectRequest(t *testing.T) {
	fs := newFakeServer(t)
	conn, state := startFeed(t, fs.config(t))
	waitState(t, state, "link_established")
	fs.nextConn(t)

	conn.Publish(conn.NewMessage(TopicReconnect, true, false))
	waitState(t, state, "reconnect_requested")
	waitState(t, state, "link_established")
	fs.nextConn(t)
}

func TestFeed_DialFailureDegrades(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	_, state := startFeed(t, Config{Host: "127.0.0.1", Port: port})
	st := waitState(t, state, "dial_failed_retrying")
	assert.False(t, st.Connected)
	assert.Equal(t, "degraded", st.Level)
	assert.NotEmpty(t, st.Error)
}

func TestFeed_BadConfig(t *testing.T) {
	_, state := startFeed(t, "not json")
	st := waitState(t, state, "config_decode_failed")
	assert.Equal(t, "error", st.Level)
}

func TestEncodeOutbound(t *testing.T) {
	s, err := encodeOutbound([]byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "x", s)

	_, err = encodeOutbound(42)
	assert.Error(t, err)
}

func TestBackoffSeqCaps(t *testing.T) {
	next := backoffSeq(250*time.Millisecond, time.Second)
	got := []time.Duration{next(), next(), next(), next()}
	assert.Equal(t, []time.Duration{250 * time.Millisecond, 500 * time.Millisecond, time.Second, time.Second}, got)
}
