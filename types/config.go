package types

// Board profile supplied on topic "config/board" (retained).

type BoardProfile struct {
	ID               string  `json:"id" toml:"id"`
	Legacy           int     `json:"legacy" toml:"legacy"`
	MainPixels       int     `json:"main_pixels" toml:"main_pixels"`
	BgPixels         int     `json:"bg_pixels" toml:"bg_pixels"`
	ServicePixels    int     `json:"service_pixels" toml:"service_pixels"`
	BrightnessFactor float64 `json:"brightness_factor" toml:"brightness_factor"`
	MinBrightness    int     `json:"min_brightness" toml:"min_brightness"`
	MinBlink         float64 `json:"min_blink" toml:"min_blink"`
	Display          bool    `json:"display" toml:"display"`
	LightSensor      bool    `json:"light_sensor" toml:"light_sensor"`
	ClimateSensor    bool    `json:"climate_sensor" toml:"climate_sensor"`
	Buttons          int     `json:"buttons" toml:"buttons"`
	AlertPin         int     `json:"alert_pin" toml:"alert_pin"`
	ClearPin         int     `json:"clear_pin" toml:"clear_pin"`

	// MCU wiring; -1 when absent.
	MainPin    int   `json:"main_pin" toml:"main_pin"`
	BgPin      int   `json:"bg_pin" toml:"bg_pin"`
	ServicePin int   `json:"service_pin" toml:"service_pin"`
	ButtonPins []int `json:"button_pins" toml:"button_pins"`
	SDAPin     int   `json:"sda_pin" toml:"sda_pin"`
	SCLPin     int   `json:"scl_pin" toml:"scl_pin"`
}

// Pin values below zero mean "not wired".
func (p BoardProfile) HasAlertPin() bool { return p.AlertPin >= 0 }
func (p BoardProfile) HasClearPin() bool { return p.ClearPin >= 0 }
