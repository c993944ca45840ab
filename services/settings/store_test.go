package settings

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alertmap-go/bus"
	"alertmap-go/errcode"
	"alertmap-go/types"
)

func TestDefaults(t *testing.T) {
	s := New(nil)
	assert.Equal(t, 1, s.GetInt(MapMode))
	assert.Equal(t, 7, s.GetInt(HomeRegion))
	assert.Equal(t, 150000, s.GetInt(WSAlertTimeMs))
	assert.True(t, s.GetBool(EnableExplosions))
	assert.Equal(t, 1.0, s.GetFloat(AlertPinTimeSec))
	assert.Equal(t, "jaam.net.ua", s.GetString(ServerHost))

	// Unknown keys and mismatched reads fall back to zero values.
	assert.Equal(t, 0, s.GetInt("nope"))
	assert.False(t, s.GetBool(MapMode))
}

func TestSaveRejectsWrongType(t *testing.T) {
	s := New(nil)
	err := s.SaveBool(MapMode, true, false)
	assert.ErrorIs(t, err, errcode.InvalidValue)
	assert.Equal(t, 1, s.GetInt(MapMode))
}

func TestSavePublishesChange(t *testing.T) {
	b := bus.NewBus(4)
	conn := b.NewConnection("test")
	sub := conn.Subscribe(bus.T(topicPrefix, "+"))

	s := New(NewMemory(), WithBus(conn))
	require.NoError(t, s.SaveInt(Brightness, 80, true))

	m, ok := sub.TryRecv()
	require.True(t, ok)
	assert.Equal(t, Topic(Brightness), m.Topic)
	assert.Equal(t, types.SettingChange{Key: "brightness", Value: 80, Persisted: true}, m.Payload)
}

func TestPersistAndReload(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	s := New(mem)
	require.NoError(t, s.SaveInt(MapMode, 5, true))
	require.NoError(t, s.SaveFloat(TempCorrection, -1.5, true))
	require.NoError(t, s.SaveInt(DisplayMode, 9, false))

	s2 := New(mem)
	require.NoError(t, s2.Load(ctx))
	assert.Equal(t, 5, s2.GetInt(MapMode))
	assert.Equal(t, -1.5, s2.GetFloat(TempCorrection))
	assert.Equal(t, 2, s2.GetInt(DisplayMode), "non-persisted save is not reloaded")
}

func TestLoadSkipsBadRecords(t *testing.T) {
	mem := NewMemory()
	require.NoError(t, mem.Put(context.Background(), Record{Key: MapMode, Type: TypeString, Value: "x"}))
	require.NoError(t, mem.Put(context.Background(), Record{Key: HomeRegion, Type: TypeInt, Value: "abc"}))

	s := New(mem)
	require.NoError(t, s.Load(context.Background()))
	assert.Equal(t, 1, s.GetInt(MapMode))
	assert.Equal(t, 7, s.GetInt(HomeRegion))
}

type failing struct{ *Memory }

func (f *failing) Put(context.Context, Record) error { return errors.New("flash worn out") }

func TestPersistFailureKeepsValue(t *testing.T) {
	s := New(&failing{NewMemory()})
	err := s.SaveInt(Brightness, 30, true)
	assert.ErrorIs(t, err, errcode.PersistFailed)
	assert.Equal(t, 30, s.GetInt(Brightness))
}

func TestSQLiteBackend(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "settings.db")

	db, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	s := New(db)
	require.NoError(t, s.SaveInt(HomeRegion, 25, true))
	require.NoError(t, s.SaveInt(HomeRegion, 14, true))
	require.NoError(t, s.SaveBool(MinuteOfSilence, false, true))
	require.NoError(t, s.SaveString(ServerHost, "example.org", true))
	require.NoError(t, db.Close())

	db2, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer db2.Close()
	s2 := New(db2)
	require.NoError(t, s2.Load(ctx))
	assert.Equal(t, 14, s2.GetInt(HomeRegion))
	assert.False(t, s2.GetBool(MinuteOfSilence))
	assert.Equal(t, "example.org", s2.GetString(ServerHost))
}

func TestBackupRestoreSkipsIdentifier(t *testing.T) {
	src := New(nil)
	require.NoError(t, src.SaveInt(ColorAlert, 10, false))
	require.NoError(t, src.SaveString(Identifier, "custom", false))
	require.NoError(t, src.SaveString(ChipID, "src-chip", false))

	var buf bytes.Buffer
	require.NoError(t, src.Backup(&buf, BackupMeta{FirmwareVersion: "4.2", ChipID: "abc", Time: time.Unix(0, 0)}))
	assert.NotContains(t, buf.String(), `"custom"`)
	assert.NotContains(t, buf.String(), `"src-chip"`)
	assert.Contains(t, buf.String(), `"fw_version": "4.2"`)

	dst := New(NewMemory())
	require.NoError(t, dst.SaveString(Identifier, "mine", false))
	require.NoError(t, dst.SaveString(ChipID, "dst-chip", false))
	n, err := dst.Restore(&buf)
	require.NoError(t, err)
	assert.Equal(t, len(defaults)-2, n)
	assert.Equal(t, 10, dst.GetInt(ColorAlert))
	assert.Equal(t, "mine", dst.GetString(Identifier))
	assert.Equal(t, "dst-chip", dst.GetString(ChipID))
}

func TestRestoreRejectsGarbage(t *testing.T) {
	s := New(nil)
	_, err := s.Restore(strings.NewReader("{not json"))
	assert.ErrorIs(t, err, errcode.RestoreFailed)

	_, err = s.Restore(strings.NewReader(`{"fw_version":"1"}`))
	assert.ErrorIs(t, err, errcode.RestoreFailed)

	n, err := s.Restore(strings.NewReader(`{"settings":[{"key":"mapmode","type":"bool","value":true},{"key":"hd","type":"int","value":3}]}`))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 3, s.GetInt(HomeRegion))
	assert.Equal(t, 1, s.GetInt(MapMode))
}

func TestEnsureChipID(t *testing.T) {
	backend := NewMemory()
	s := New(backend)

	id, err := s.EnsureChipID("")
	require.NoError(t, err)
	assert.Len(t, id, 16)

	restarted := New(backend)
	require.NoError(t, restarted.Load(context.Background()))
	again, err := restarted.EnsureChipID("")
	require.NoError(t, err)
	assert.Equal(t, id, again, "generated id survives a restart")

	hw, err := s.EnsureChipID("a1b2c3d4")
	require.NoError(t, err)
	assert.Equal(t, "a1b2c3d4", hw)
	assert.Equal(t, "a1b2c3d4", s.GetString(ChipID))
}
