package settings

// Key is the persisted name of a setting. Names are short because they are
// also used as telemetry field names on the feed.
type Key string

// Type tags the stored representation of a key.
type Type uint8

const (
	TypeInt Type = iota + 1
	TypeBool
	TypeFloat
	TypeString
)

func (t Type) String() string {
	switch t {
	case TypeInt:
		return "int"
	case TypeBool:
		return "bool"
	case TypeFloat:
		return "float"
	case TypeString:
		return "string"
	}
	return "unknown"
}

// ParseType is the inverse of Type.String.
func ParseType(s string) (Type, bool) {
	switch s {
	case "int":
		return TypeInt, true
	case "bool":
		return TypeBool, true
	case "float":
		return TypeFloat, true
	case "string":
		return TypeString, true
	}
	return 0, false
}

// Identity and connectivity.
const (
	DeviceName     Key = "dn"
	DeviceDesc     Key = "dd"
	BroadcastName  Key = "bn"
	ServerHost     Key = "wshost"
	ServerPort     Key = "wsnp"
	UpdatePort     Key = "upp"
	NTPHost        Key = "ntph"
	Identifier     Key = "id"
	ChipID         Key = "chipid"
	TimeZone       Key = "tz"
	WSAlertTimeMs  Key = "wsat"
	WSRebootTimeMs Key = "wsrt"
)

// Hardware layout.
const (
	Legacy            Key = "legacy"
	KyivMode          Key = "kdm"
	ServiceDiodesMode Key = "sdm"
)

// Map rendering.
const (
	MapMode          Key = "mapmode"
	AlarmsAutoSwitch Key = "aas"
	HomeRegion       Key = "hd"
	NotifyMode       Key = "anm"

	ColorAlert     Key = "coloral"
	ColorClear     Key = "colorcl"
	ColorNewAlert  Key = "colorna"
	ColorAlertOver Key = "colorao"
	ColorExplosion Key = "colorex"
	ColorMissiles  Key = "colormi"
	ColorDrones    Key = "colordr"
	ColorHome      Key = "colorhd"

	EnableExplosions Key = "eex"
	EnableMissiles   Key = "emi"
	EnableDrones     Key = "edr"

	AlertOnMin    Key = "aont"
	AlertOffMin   Key = "aoft"
	ExplosionMin  Key = "ext"
	AlertBlinkSec Key = "abt"

	WeatherMinTemp Key = "mintemp"
	WeatherMaxTemp Key = "maxtemp"

	LampBrightness Key = "ha_lbri"
	LampR          Key = "ha_lr"
	LampG          Key = "ha_lg"
	LampB          Key = "ha_lb"
)

// Brightness.
const (
	Brightness          Key = "brightness"
	CurrentBrightness   Key = "cbr"
	BrightnessDay       Key = "brd"
	BrightnessNight     Key = "brn"
	BrightnessAuto      Key = "bra"
	BrightnessAlert     Key = "ba"
	BrightnessClear     Key = "bc"
	BrightnessNewAlert  Key = "bna"
	BrightnessAlertOver Key = "bao"
	BrightnessExplosion Key = "bex"
	BrightnessHome      Key = "bhd"
	BrightnessBg        Key = "bbg"
	BrightnessService   Key = "bs"
	DayStart            Key = "ds"
	NightStart          Key = "ns"
	LightSensorFactor   Key = "lsf"
)

// Display.
const (
	DisplayMode     Key = "dm"
	DisplayModeTime Key = "dmt"
	ToggleWeather   Key = "tmw"
	ToggleTemp      Key = "tmt"
	ToggleHum       Key = "tmh"
	TogglePress     Key = "tmp"
	HomeAlertTime   Key = "hat"
	DimDisplayNight Key = "ddon"
	InvertDisplay   Key = "invd"
	TempCorrection  Key = "ltc"
	HumCorrection   Key = "lhc"
	PressCorrection Key = "lpc"
	MinuteOfSilence Key = "mos"
	NewFwNotice     Key = "nfwn"
	FwUpdateChannel Key = "fwuc"
)

// Buttons and pins.
const (
	ButtonMode      Key = "bm"
	Button2Mode     Key = "b2m"
	ButtonModeLong  Key = "bml"
	Button2ModeLong Key = "b2ml"
	AlertPinMode    Key = "acpm"
	AlertPinTimeSec Key = "acpt"
)

type entry struct {
	typ Type
	def any
}

var defaults = map[Key]entry{
	DeviceName:     {TypeString, "JAAM"},
	DeviceDesc:     {TypeString, "JAAM Informer"},
	BroadcastName:  {TypeString, "jaam"},
	ServerHost:     {TypeString, "jaam.net.ua"},
	ServerPort:     {TypeInt, 2052},
	UpdatePort:     {TypeInt, 2095},
	NTPHost:        {TypeString, "pool.ntp.org"},
	Identifier:     {TypeString, "github"},
	ChipID:         {TypeString, ""},
	TimeZone:       {TypeInt, 2},
	WSAlertTimeMs:  {TypeInt, 150000},
	WSRebootTimeMs: {TypeInt, 300000},

	Legacy:            {TypeInt, 1},
	KyivMode:          {TypeInt, 1},
	ServiceDiodesMode: {TypeBool, false},

	MapMode:          {TypeInt, 1},
	AlarmsAutoSwitch: {TypeInt, 1},
	HomeRegion:       {TypeInt, 7},
	NotifyMode:       {TypeInt, 2},

	ColorAlert:     {TypeInt, 0},
	ColorClear:     {TypeInt, 120},
	ColorNewAlert:  {TypeInt, 30},
	ColorAlertOver: {TypeInt, 100},
	ColorExplosion: {TypeInt, 180},
	ColorMissiles:  {TypeInt, 275},
	ColorDrones:    {TypeInt, 330},
	ColorHome:      {TypeInt, 120},

	EnableExplosions: {TypeBool, true},
	EnableMissiles:   {TypeBool, true},
	EnableDrones:     {TypeBool, true},

	AlertOnMin:    {TypeInt, 5},
	AlertOffMin:   {TypeInt, 5},
	ExplosionMin:  {TypeInt, 3},
	AlertBlinkSec: {TypeInt, 2},

	WeatherMinTemp: {TypeInt, -10},
	WeatherMaxTemp: {TypeInt, 30},

	LampBrightness: {TypeInt, 50},
	LampR:          {TypeInt, 215},
	LampG:          {TypeInt, 7},
	LampB:          {TypeInt, 255},

	Brightness:          {TypeInt, 50},
	CurrentBrightness:   {TypeInt, 50},
	BrightnessDay:       {TypeInt, 50},
	BrightnessNight:     {TypeInt, 5},
	BrightnessAuto:      {TypeInt, 0},
	BrightnessAlert:     {TypeInt, 100},
	BrightnessClear:     {TypeInt, 100},
	BrightnessNewAlert:  {TypeInt, 100},
	BrightnessAlertOver: {TypeInt, 100},
	BrightnessExplosion: {TypeInt, 100},
	BrightnessHome:      {TypeInt, 100},
	BrightnessBg:        {TypeInt, 100},
	BrightnessService:   {TypeInt, 50},
	DayStart:            {TypeInt, 8},
	NightStart:          {TypeInt, 22},
	LightSensorFactor:   {TypeFloat, 1.0},

	DisplayMode:     {TypeInt, 2},
	DisplayModeTime: {TypeInt, 5},
	ToggleWeather:   {TypeBool, true},
	ToggleTemp:      {TypeBool, true},
	ToggleHum:       {TypeBool, true},
	TogglePress:     {TypeBool, true},
	HomeAlertTime:   {TypeBool, false},
	DimDisplayNight: {TypeBool, true},
	InvertDisplay:   {TypeBool, false},
	TempCorrection:  {TypeFloat, 0.0},
	HumCorrection:   {TypeFloat, 0.0},
	PressCorrection: {TypeFloat, 0.0},
	MinuteOfSilence: {TypeBool, true},
	NewFwNotice:     {TypeBool, true},
	FwUpdateChannel: {TypeInt, 0},

	ButtonMode:      {TypeInt, 0},
	Button2Mode:     {TypeInt, 0},
	ButtonModeLong:  {TypeInt, 0},
	Button2ModeLong: {TypeInt, 0},
	AlertPinMode:    {TypeInt, 0},
	AlertPinTimeSec: {TypeFloat, 1.0},
}

// deviceBound keys describe one physical unit and never travel in backups.
func deviceBound(k Key) bool { return k == Identifier || k == ChipID }

// TypeOf returns the declared type of key.
func TypeOf(key Key) (Type, bool) {
	e, ok := defaults[key]
	return e.typ, ok
}

// Keys returns every known key.
func Keys() []Key {
	out := make([]Key, 0, len(defaults))
	for k := range defaults {
		out = append(out, k)
	}
	return out
}
