package feed

import (
	"errors"

	"github.com/buger/jsonparser"

	"alertmap-go/errcode"
	"alertmap-go/services/topology"
	"alertmap-go/types"
)

// Payload kinds understood by Decode.
const (
	KindPing       = "ping"
	KindAlerts     = "alerts"
	KindWeather    = "weather"
	KindExplosions = "explosions"
	KindMissiles   = "missiles"
	KindDrones     = "drones"
	KindBins       = "bins"
	KindTestBins   = "test_bins"
)

// Update is one decoded server message. Only the field matching Kind is set;
// regions missing from the message are absent from the slices.
type Update struct {
	Kind    string
	Alerts  []types.RegionAlert
	Weather []types.RegionValue
	Events  types.Events
	Bins    types.Bins
}

// Known reports whether Decode recognised the payload kind.
func (u Update) Known() bool {
	switch u.Kind {
	case KindPing, KindAlerts, KindWeather, KindExplosions, KindMissiles, KindDrones, KindBins, KindTestBins:
		return true
	}
	return false
}

// Decode parses a text frame of the form {"payload":"<kind>","<kind>":[...]}.
// Unknown kinds decode to an Update with Known() == false.
func Decode(data []byte) (Update, error) {
	kind, err := jsonparser.GetString(data, "payload")
	if err != nil {
		return Update{}, errcode.Wrap(errcode.DecodeFailed, "feed.decode", err)
	}
	u := Update{Kind: kind}
	switch kind {
	case KindAlerts:
		u.Alerts, err = decodeAlerts(data)
	case KindWeather:
		u.Weather, err = decodeWeather(data)
	case KindExplosions:
		u.Events, err = decodeEvents(data, types.EventExplosion)
	case KindMissiles:
		u.Events, err = decodeEvents(data, types.EventMissile)
	case KindDrones:
		u.Events, err = decodeEvents(data, types.EventDrone)
	case KindBins, KindTestBins:
		u.Bins, err = decodeBins(data, kind)
	}
	if err != nil {
		return Update{Kind: kind}, errcode.Wrap(errcode.DecodeFailed, "feed.decode."+kind, err)
	}
	return u, nil
}

// each walks the array under key, handing every element its region index.
// A missing key is not an error.
func each(data []byte, key string, fn func(region int, v []byte, t jsonparser.ValueType)) error {
	region := 0
	_, err := jsonparser.ArrayEach(data, func(v []byte, t jsonparser.ValueType, _ int, _ error) {
		if region < topology.N {
			fn(region, v, t)
		}
		region++
	}, key)
	if errors.Is(err, jsonparser.KeyPathNotFoundError) {
		return nil
	}
	return err
}

func decodeAlerts(data []byte) ([]types.RegionAlert, error) {
	out := make([]types.RegionAlert, 0, topology.N)
	err := each(data, KindAlerts, func(r int, v []byte, t jsonparser.ValueType) {
		if t != jsonparser.Array {
			return
		}
		flag, ft, _, err := jsonparser.Get(v, "[0]")
		if err != nil {
			return
		}
		active, ok := truthy(flag, ft)
		if !ok {
			return
		}
		a := types.RegionAlert{Region: r, Active: active}
		if ts, err := jsonparser.GetInt(v, "[1]"); err == nil && ts > 0 {
			a.Since = ts
		}
		out = append(out, a)
	})
	return out, err
}

func decodeWeather(data []byte) ([]types.RegionValue, error) {
	out := make([]types.RegionValue, 0, topology.N)
	err := each(data, KindWeather, func(r int, v []byte, t jsonparser.ValueType) {
		if t != jsonparser.Number {
			return
		}
		f, err := jsonparser.ParseFloat(v)
		if err != nil {
			return
		}
		out = append(out, types.RegionValue{Region: r, Value: f})
	})
	return out, err
}

func decodeEvents(data []byte, kind types.EventKind) (types.Events, error) {
	ev := types.Events{Kind: kind, At: make([]types.RegionTime, 0, topology.N)}
	err := each(data, string(kind), func(r int, v []byte, t jsonparser.ValueType) {
		if t != jsonparser.Number {
			return
		}
		ts, err := jsonparser.ParseInt(v)
		if err != nil {
			return
		}
		ev.At = append(ev.At, types.RegionTime{Region: r, At: ts})
	})
	return ev, err
}

func decodeBins(data []byte, kind string) (types.Bins, error) {
	b := types.Bins{Test: kind == KindTestBins}
	_, err := jsonparser.ArrayEach(data, func(v []byte, t jsonparser.ValueType, _ int, _ error) {
		if t != jsonparser.String {
			return
		}
		if s, err := jsonparser.ParseString(v); err == nil {
			b.Bins = append(b.Bins, s)
		}
	}, kind)
	if errors.Is(err, jsonparser.KeyPathNotFoundError) {
		err = nil
	}
	return b, err
}

func truthy(v []byte, t jsonparser.ValueType) (bool, bool) {
	switch t {
	case jsonparser.Boolean:
		b, err := jsonparser.ParseBoolean(v)
		return b, err == nil
	case jsonparser.Number:
		n, err := jsonparser.ParseInt(v)
		return n != 0, err == nil
	}
	return false, false
}
