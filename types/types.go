package types

// ---- Feed payloads (published by the feed worker) ----

// RegionAlert is one region's alarm flag as reported by the feed. Since is
// Unix seconds; zero means the feed did not carry a timestamp.
type RegionAlert struct {
	Region int   `json:"region"`
	Active bool  `json:"active"`
	Since  int64 `json:"since,omitempty"`
}

// RegionTime is a per-region event timestamp in Unix seconds.
type RegionTime struct {
	Region int   `json:"region"`
	At     int64 `json:"at"`
}

// RegionValue is a per-region measurement (temperature in °C).
type RegionValue struct {
	Region int     `json:"region"`
	Value  float64 `json:"value"`
}

// EventKind names the three threat-event channels.
type EventKind string

const (
	EventExplosion EventKind = "explosions"
	EventMissile   EventKind = "missiles"
	EventDrone     EventKind = "drones"
)

// Events carries one event channel. Regions absent from At are unchanged.
type Events struct {
	Kind EventKind    `json:"kind"`
	At   []RegionTime `json:"at"`
}

// Bins is a firmware file list from the server.
type Bins struct {
	Test bool     `json:"test"`
	Bins []string `json:"bins"`
}

// FeedState is retained on "feed/state". Level is one of "idle", "up",
// "degraded" or "error"; Status is a short machine string.
type FeedState struct {
	Connected bool   `json:"connected"`
	Level     string `json:"level"`
	Status    string `json:"status"`
	TS        int64  `json:"ts_ms"`
	Error     string `json:"error,omitempty"`
}

// Telemetry is a key/value report sent to the server as "settings:{...}".
type Telemetry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Heartbeat marks liveness of the feed (ping, pong or any message).
type Heartbeat struct {
	TS int64 `json:"ts_ms"`
}

// ---- Settings ----

// SettingChange is published on "settings/<key>" after every save.
type SettingChange struct {
	Key       string `json:"key"`
	Value     any    `json:"value"`
	Persisted bool   `json:"persisted"`
}

// ---- Local input ----

type ButtonEventKind string

const (
	ButtonClick         ButtonEventKind = "click"
	ButtonLongClick     ButtonEventKind = "long_click"
	ButtonDuringLong    ButtonEventKind = "during_long"
	ButtonLongClickDone ButtonEventKind = "long_click_end"
)

// ButtonEvent is a debounced logical event from one physical button.
type ButtonEvent struct {
	Button int             `json:"button"`
	Kind   ButtonEventKind `json:"kind"`
}

// PlayerState reports the external audio player.
type PlayerState struct {
	Anthem bool `json:"anthem"`
}

// ---- Firmware ----

// FirmwareUpdate asks the update transport to fetch and flash File.
type FirmwareUpdate struct {
	File string `json:"file"`
	Beta bool   `json:"beta"`
}
