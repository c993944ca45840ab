package feed

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alertmap-go/errcode"
	"alertmap-go/types"
)

func TestDecodeAlerts(t *testing.T) {
	u, err := Decode([]byte(`{"payload":"alerts","alerts":[[1,1700000000],[0,0],[true,5],["x",1]]}`))
	require.NoError(t, err)
	assert.True(t, u.Known())
	assert.Equal(t, []types.RegionAlert{
		{Region: 0, Active: true, Since: 1700000000},
		{Region: 1, Active: false},
		{Region: 2, Active: true, Since: 5},
	}, u.Alerts)
}

func TestDecodeWeatherSkipsNulls(t *testing.T) {
	u, err := Decode([]byte(`{"payload":"weather","weather":[12.5,null,-3]}`))
	require.NoError(t, err)
	assert.Equal(t, []types.RegionValue{{Region: 0, Value: 12.5}, {Region: 2, Value: -3}}, u.Weather)
}

func TestDecodeEvents(t *testing.T) {
	for kind, want := range map[string]types.EventKind{
		"explosions": types.EventExplosion,
		"missiles":   types.EventMissile,
		"drones":     types.EventDrone,
	} {
		u, err := Decode([]byte(`{"payload":"` + kind + `","` + kind + `":[0,1700000100]}`))
		require.NoError(t, err, kind)
		assert.Equal(t, want, u.Events.Kind)
		assert.Equal(t, []types.RegionTime{{Region: 0, At: 0}, {Region: 1, At: 1700000100}}, u.Events.At)
	}
}

func TestDecodeBins(t *testing.T) {
	u, err := Decode([]byte(`{"payload":"bins","bins":["4.2.bin","latest.bin"]}`))
	require.NoError(t, err)
	assert.Equal(t, types.Bins{Bins: []string{"4.2.bin", "latest.bin"}}, u.Bins)

	u, err = Decode([]byte(`{"payload":"test_bins","test_bins":["4.3-b1.bin"]}`))
	require.NoError(t, err)
	assert.True(t, u.Bins.Test)
}

func TestDecodeTruncatesToRegionCount(t *testing.T) {
	vals := strings.TrimSuffix(strings.Repeat("1,", 30), ",")
	u, err := Decode([]byte(`{"payload":"weather","weather":[` + vals + `]}`))
	require.NoError(t, err)
	assert.Len(t, u.Weather, 26)
}

func TestDecodeMissingPartsAreNoChange(t *testing.T) {
	u, err := Decode([]byte(`{"payload":"alerts"}`))
	require.NoError(t, err)
	assert.Empty(t, u.Alerts)

	u, err = Decode([]byte(`{"payload":"hello","hello":1}`))
	require.NoError(t, err)
	assert.False(t, u.Known())

	u, err = Decode([]byte(`{"payload":"ping"}`))
	require.NoError(t, err)
	assert.True(t, u.Known())
}

func TestDecodeWithoutPayloadFails(t *testing.T) {
	_, err := Decode([]byte(`{"alerts":[]}`))
	assert.ErrorIs(t, err, errcode.DecodeFailed)
}
