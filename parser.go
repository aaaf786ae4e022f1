package pdm

import (
	"strconv"
	"strings"
)

// Event is a status update recognized in the device's output. It is one of
// TemperatureEvent, BatteryVoltageEvent, UptimeEvent or ChannelStatusEvent.
type Event interface {
	isEvent()
}

// TemperatureEvent reports the board temperature
type TemperatureEvent struct {
	Celsius float64
}

// BatteryVoltageEvent reports the supply voltage
type BatteryVoltageEvent struct {
	Volts float64
}

// UptimeEvent reports seconds since the firmware started
type UptimeEvent struct {
	Seconds int64
}

// ChannelState is one row of the firmware's channel status table
type ChannelState struct {
	Channel  int // 0-based
	Active   bool
	Current  float64 // amps
	Mode     string
	Group    int
	LEDState string
}

// ChannelStatusEvent reports the state of a single output channel
type ChannelStatusEvent struct {
	ChannelState
}

func (TemperatureEvent) isEvent()    {}
func (BatteryVoltageEvent) isEvent() {}
func (UptimeEvent) isEvent()         {}
func (ChannelStatusEvent) isEvent()  {}

// NumChannels is the number of switched outputs on the PDM
const NumChannels = 4

const (
	labelTemperature = "Board Temperature:"
	labelBattery     = "Battery Voltage:"
	labelUptime      = "System Uptime:"

	minRowFields = 6
)

// ParseStatusLine classifies a single line of device output. The first
// matching rule wins; a line whose label matches but whose value does not
// parse yields no event and is not tried against later rules.
func ParseStatusLine(line string) (Event, bool) {
	switch {
	case strings.Contains(line, labelTemperature):
		v, ok := parseDecimalAfter(line, labelTemperature, true)
		if !ok {
			return nil, false
		}
		return TemperatureEvent{Celsius: v}, true

	case strings.Contains(line, labelBattery):
		v, ok := parseDecimalAfter(line, labelBattery, false)
		if !ok {
			return nil, false
		}
		return BatteryVoltageEvent{Volts: v}, true

	case strings.Contains(line, labelUptime):
		tok := leadingToken(line, labelUptime, "0123456789")
		secs, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			return nil, false
		}
		return UptimeEvent{Seconds: secs}, true

	case isChannelRow(line):
		state, ok := parseChannelRow(line)
		if !ok {
			return nil, false
		}
		return ChannelStatusEvent{ChannelState: state}, true
	}
	return nil, false
}

// leadingToken returns the run of allowed characters that follows label,
// skipping blanks in between
func leadingToken(line, label, allowed string) string {
	_, rest, _ := strings.Cut(line, label)
	rest = strings.TrimLeft(rest, " \t")
	end := 0
	for end < len(rest) && strings.IndexByte(allowed, rest[end]) >= 0 {
		end++
	}
	return rest[:end]
}

func parseDecimalAfter(line, label string, signed bool) (float64, bool) {
	allowed := "0123456789."
	if signed {
		allowed += "-"
	}
	v, err := strconv.ParseFloat(leadingToken(line, label, allowed), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func isChannelRow(line string) bool {
	return strings.Contains(line, "|") &&
		(strings.Contains(line, "ON") || strings.Contains(line, "OFF"))
}

// parseChannelRow reads "<ch> | ON|OFF | <amps> A | <mode> | <group> | <led> [| ...]".
// The table header and separator rows fail the numeric fields and are dropped.
func parseChannelRow(line string) (ChannelState, bool) {
	fields := strings.Split(line, "|")
	if len(fields) < minRowFields {
		return ChannelState{}, false
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	ch, err := strconv.Atoi(fields[0])
	if err != nil || ch < 1 || ch > NumChannels {
		return ChannelState{}, false
	}

	current, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(fields[2], "A")), 64)
	if err != nil {
		return ChannelState{}, false
	}

	group, err := strconv.Atoi(fields[4])
	if err != nil {
		return ChannelState{}, false
	}

	return ChannelState{
		Channel:  ch - 1,
		Active:   fields[1] == "ON",
		Current:  current,
		Mode:     fields[3],
		Group:    group,
		LEDState: fields[5],
	}, true
}
