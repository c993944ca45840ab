package config

// Embedded board profiles. Key: board id (placed in ctx under CtxDeviceKey).

const cfgJaam1 = `{
  "legacy": 1,
  "main_pixels": 26,
  "brightness_factor": 1.0,
  "min_brightness": 1,
  "min_blink": 0.05,
  "display": true,
  "light_sensor": true,
  "climate_sensor": true,
  "buttons": 1,
  "alert_pin": -1,
  "clear_pin": -1
}`

const cfgJaam2 = `{
  "legacy": 3,
  "main_pixels": 26,
  "bg_pixels": 100,
  "service_pixels": 5,
  "brightness_factor": 0.5,
  "min_brightness": 1,
  "min_blink": 0.05,
  "display": true,
  "light_sensor": true,
  "climate_sensor": true,
  "buttons": 2,
  "alert_pin": 34,
  "clear_pin": 35
}`

const cfgPico = `{
  "legacy": 0,
  "main_pixels": 26,
  "bg_pixels": 0,
  "service_pixels": 5,
  "brightness_factor": 0.5,
  "min_brightness": 2,
  "min_blink": 0.05,
  "display": false,
  "light_sensor": true,
  "climate_sensor": true,
  "buttons": 1,
  "alert_pin": 14,
  "clear_pin": 15,
  "main_pin": 16,
  "service_pin": 17,
  "button_pins": [18],
  "sda_pin": 4,
  "scl_pin": 5
}`

var embeddedConfigs = map[string][]byte{
	"jaam1": []byte(cfgJaam1),
	"jaam2": []byte(cfgJaam2),
	"pico":  []byte(cfgPico),
}
