// Package profile loads PDM configuration profiles and turns them into the
// command sequence that applies them to a device.
//
// A profile is a YAML (or any format viper reads) file:
//
//	channels:
//	  ch1: {overcurrent: 20, inrush: 60, inrush_time: 1500, mode: LATCH, group: 1}
//	  ch3: {mode: MOMENTARY}
//	temp_warn: 70
//	temp_trip: 85
//	can_speed: 500
//	pdm_node: "15"
//	keypad_node: "0x16"
//	digital_out: "0x680"
//
// Anything omitted takes the firmware's factory value. Node IDs and the
// digital output COB-ID are hexadecimal and must be quoted strings, with or
// without a 0x prefix; an unquoted number is rejected because YAML would
// read 15 as decimal.
package profile

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Channel is the configuration of one output
type Channel struct {
	Overcurrent         float64 `mapstructure:"overcurrent" validate:"gte=0.1,lte=100"`
	Inrush              float64 `mapstructure:"inrush" validate:"gte=0.1,lte=200"`
	InrushTime          int     `mapstructure:"inrush_time" validate:"gte=100,lte=10000"`
	UndercurrentWarning float64 `mapstructure:"undercurrent_warning" validate:"gte=0.01,lte=10"`
	Mode                string  `mapstructure:"mode" validate:"oneof=LATCH MOMENTARY"`
	Group               int     `mapstructure:"group" validate:"gte=1,lte=4"`
}

// Profile is a complete device configuration
type Profile struct {
	Channels   map[string]Channel `mapstructure:"channels" validate:"len=4,dive,keys,oneof=ch1 ch2 ch3 ch4,endkeys"`
	TempWarn   float64            `mapstructure:"temp_warn" validate:"gte=0,lte=150"`
	TempTrip   float64            `mapstructure:"temp_trip" validate:"lte=150,gtfield=TempWarn"`
	CANSpeed   int                `mapstructure:"can_speed" validate:"oneof=125 250 500 1000"`
	PDMNode    string             `mapstructure:"pdm_node" validate:"hexid=8"`
	KeypadNode string             `mapstructure:"keypad_node" validate:"hexid=8"`
	DigitalOut string             `mapstructure:"digital_out" validate:"hexid=11"`
}

// channelKeys are the profile keys of the four outputs in wire order
var channelKeys = []string{"ch1", "ch2", "ch3", "ch4"}

// Factory values of the PDM firmware
const (
	defaultOvercurrent = 15.0
	defaultInrush      = 50.0
	defaultInrushTime  = 1000
	defaultUnderWarn   = 0.10
	defaultTempWarn    = 70.0
	defaultTempTrip    = 85.0
	defaultCANSpeed    = 1000
	defaultNodeID      = "0x15"
	defaultDigitalOut  = "0x680"
)

func setDefaults(v *viper.Viper) {
	for i, key := range channelKeys {
		prefix := "channels." + key + "."
		v.SetDefault(prefix+"overcurrent", defaultOvercurrent)
		v.SetDefault(prefix+"inrush", defaultInrush)
		v.SetDefault(prefix+"inrush_time", defaultInrushTime)
		v.SetDefault(prefix+"undercurrent_warning", defaultUnderWarn)
		v.SetDefault(prefix+"mode", "LATCH")
		v.SetDefault(prefix+"group", i+1)
	}
	v.SetDefault("temp_warn", defaultTempWarn)
	v.SetDefault("temp_trip", defaultTempTrip)
	v.SetDefault("can_speed", defaultCANSpeed)
	v.SetDefault("pdm_node", defaultNodeID)
	v.SetDefault("keypad_node", defaultNodeID)
	v.SetDefault("digital_out", defaultDigitalOut)
}

// Default returns the firmware's factory configuration
func Default() *Profile {
	v := viper.New()
	setDefaults(v)
	p, err := decode(v)
	if err != nil {
		panic(fmt.Sprintf("profile defaults do not decode: %v", err))
	}
	return p
}

// Load reads and validates the profile at path
func Load(path string) (*Profile, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read profile %s: %w", path, err)
	}

	p, err := decode(v)
	if err != nil {
		return nil, fmt.Errorf("decode profile %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// hexKeys hold identifiers written as quoted hex strings. By the time the
// parser hands over a bare number, 15 and 0x0F look the same.
var hexKeys = []string{"pdm_node", "keypad_node", "digital_out"}

func decode(v *viper.Viper) (*Profile, error) {
	for _, key := range hexKeys {
		switch n := v.Get(key).(type) {
		case int, int64, uint64, float64:
			return nil, fmt.Errorf("%w: %s is the bare number %v; write it as a quoted hex string such as \"15\" or \"0x15\"",
				ErrInvalidProfile, key, n)
		}
	}

	var p Profile
	if err := v.Unmarshal(&p); err != nil {
		return nil, err
	}
	for key, ch := range p.Channels {
		ch.Mode = strings.ToUpper(strings.TrimSpace(ch.Mode))
		p.Channels[key] = ch
	}
	return &p, nil
}
