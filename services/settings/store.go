// Package settings is the typed key-value store behind every user setting.
// Reads never fail: a missing or mistyped value resolves to the compiled-in
// default. Every save publishes a types.SettingChange on "settings/<key>".
package settings

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"alertmap-go/bus"
	"alertmap-go/errcode"
	"alertmap-go/types"
)

const topicPrefix = "settings"

// Topic returns the change-notification topic of key.
func Topic(key Key) bus.Topic { return bus.T(topicPrefix, string(key)) }

// Record is the persisted form of one value.
type Record struct {
	Key   Key
	Type  Type
	Value string
}

// Backend persists records. Durability is the backend's concern.
type Backend interface {
	Load(ctx context.Context) ([]Record, error)
	Put(ctx context.Context, r Record) error
}

type Store struct {
	mu      sync.RWMutex
	values  map[Key]any
	backend Backend
	conn    *bus.Connection
	log     zerolog.Logger
	timeout time.Duration
}

type Option func(*Store)

// WithBus enables change notifications.
func WithBus(conn *bus.Connection) Option { return func(s *Store) { s.conn = conn } }

func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.log = l.With().Str("svc", "settings").Logger() }
}

// WithPersistTimeout bounds each backend write.
func WithPersistTimeout(d time.Duration) Option { return func(s *Store) { s.timeout = d } }

// New returns a store over backend. A nil backend keeps values in memory only.
func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		values:  make(map[Key]any),
		backend: backend,
		log:     zerolog.Nop(),
		timeout: 2 * time.Second,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Load reads every record from the backend. Records that do not decode as
// their declared type are skipped.
func (s *Store) Load(ctx context.Context) error {
	if s.backend == nil {
		return nil
	}
	recs, err := s.backend.Load(ctx)
	if err != nil {
		return errcode.Wrap(errcode.RestoreFailed, "settings.load", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range recs {
		if want, ok := TypeOf(r.Key); ok && want != r.Type {
			s.log.Warn().Str("key", string(r.Key)).Str("type", r.Type.String()).Msg("stored type mismatch, using default")
			continue
		}
		v, err := decode(r.Type, r.Value)
		if err != nil {
			s.log.Warn().Err(err).Str("key", string(r.Key)).Msg("undecodable value, using default")
			continue
		}
		s.values[r.Key] = v
	}
	s.log.Debug().Int("count", len(recs)).Msg("settings loaded")
	return nil
}

// -----------------------------------------------------------------------------
// Reads
// -----------------------------------------------------------------------------

func (s *Store) GetInt(key Key) int {
	if v, ok := s.lookup(key).(int); ok {
		return v
	}
	return 0
}

func (s *Store) GetBool(key Key) bool {
	v, _ := s.lookup(key).(bool)
	return v
}

func (s *Store) GetFloat(key Key) float64 {
	v, _ := s.lookup(key).(float64)
	return v
}

func (s *Store) GetString(key Key) string {
	v, _ := s.lookup(key).(string)
	return v
}

func (s *Store) lookup(key Key) any {
	s.mu.RLock()
	v, ok := s.values[key]
	s.mu.RUnlock()
	if ok {
		return v
	}
	return defaults[key].def
}

// -----------------------------------------------------------------------------
// Writes
// -----------------------------------------------------------------------------

func (s *Store) SaveInt(key Key, v int, persist bool) error {
	return s.save(key, TypeInt, v, persist)
}

func (s *Store) SaveBool(key Key, v bool, persist bool) error {
	return s.save(key, TypeBool, v, persist)
}

func (s *Store) SaveFloat(key Key, v float64, persist bool) error {
	return s.save(key, TypeFloat, v, persist)
}

func (s *Store) SaveString(key Key, v string, persist bool) error {
	return s.save(key, TypeString, v, persist)
}

// save updates memory first so a failing backend never hides the new value
// from readers; the persistence error is still returned.
func (s *Store) save(key Key, typ Type, v any, persist bool) error {
	if want, ok := TypeOf(key); ok && want != typ {
		return &errcode.E{C: errcode.InvalidValue, Op: "settings.save", Msg: string(key) + " is " + want.String()}
	}
	s.mu.Lock()
	s.values[key] = v
	s.mu.Unlock()

	var err error
	if persist && s.backend != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		err = s.backend.Put(ctx, Record{Key: key, Type: typ, Value: encode(v)})
		cancel()
		if err != nil {
			s.log.Error().Err(err).Str("key", string(key)).Msg("persist failed")
			err = errcode.Wrap(errcode.PersistFailed, "settings.save", err)
		}
	}
	if s.conn != nil {
		s.conn.Publish(s.conn.NewMessage(Topic(key), types.SettingChange{
			Key:       string(key),
			Value:     v,
			Persisted: persist && err == nil,
		}, false))
	}
	return err
}

// Snapshot returns every known key with its effective value.
func (s *Store) Snapshot() map[Key]any {
	out := make(map[Key]any, len(defaults))
	for k, e := range defaults {
		out[k] = e.def
	}
	s.mu.RLock()
	for k, v := range s.values {
		out[k] = v
	}
	s.mu.RUnlock()
	return out
}

// -----------------------------------------------------------------------------
// Encoding
// -----------------------------------------------------------------------------

func typeOfValue(v any) (Type, bool) {
	switch v.(type) {
	case int:
		return TypeInt, true
	case bool:
		return TypeBool, true
	case float64:
		return TypeFloat, true
	case string:
		return TypeString, true
	}
	return 0, false
}

func encode(v any) string {
	switch x := v.(type) {
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case string:
		return x
	}
	return ""
}

func decode(t Type, s string) (any, error) {
	switch t {
	case TypeInt:
		return strconv.Atoi(s)
	case TypeBool:
		return strconv.ParseBool(s)
	case TypeFloat:
		return strconv.ParseFloat(s, 64)
	case TypeString:
		return s, nil
	}
	return nil, errcode.InvalidValue
}
