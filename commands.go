package pdm

import (
	"fmt"
	"strconv"
)

// Commands understood by the PDM firmware
const (
	CmdStatus       = "STATUS"
	CmdSave         = "SAVE"
	CmdConfig       = "CONFIG"
	CmdFactoryReset = "FACTORY_RESET"
)

// OutputMode is how a channel reacts to its input
type OutputMode string

const (
	ModeLatch     OutputMode = "LATCH"
	ModeMomentary OutputMode = "MOMENTARY"
)

// CAN bus speeds accepted by CANSPEED, in kbps
var CANSpeeds = []int{125, 250, 500, 1000}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func channelCommand(name string, ch int, value string) string {
	return fmt.Sprintf("%s %d %s", name, ch, value)
}

// OvercurrentCommand sets the overcurrent trip threshold of channel ch (1-based) in amps
func OvercurrentCommand(ch int, amps float64) string {
	return channelCommand("OC", ch, formatFloat(amps))
}

// InrushCommand sets the inrush current threshold in amps
func InrushCommand(ch int, amps float64) string {
	return channelCommand("INR", ch, formatFloat(amps))
}

// InrushTimeCommand sets how long inrush current is tolerated, in milliseconds
func InrushTimeCommand(ch int, ms int) string {
	return channelCommand("INRTIME", ch, strconv.Itoa(ms))
}

// UndercurrentWarningCommand sets the undercurrent warning threshold in amps
func UndercurrentWarningCommand(ch int, amps float64) string {
	return channelCommand("UWR", ch, formatFloat(amps))
}

func ModeCommand(ch int, mode OutputMode) string {
	return channelCommand("MODE", ch, string(mode))
}

func GroupCommand(ch int, group int) string {
	return channelCommand("GROUP", ch, strconv.Itoa(group))
}

// TempWarnCommand sets the board temperature warning threshold in °C
func TempWarnCommand(celsius float64) string {
	return "TEMPWARN " + formatFloat(celsius)
}

// TempTripCommand sets the board temperature trip threshold in °C
func TempTripCommand(celsius float64) string {
	return "TEMPTRIP " + formatFloat(celsius)
}

func CANSpeedCommand(kbps int) string {
	return "CANSPEED " + strconv.Itoa(kbps)
}

// PDMNodeCommand sets the PDM's own CAN node ID (two hex digits)
func PDMNodeCommand(id uint8) string {
	return fmt.Sprintf("PDMNODE %02X", id)
}

// KeypadNodeCommand sets the CAN node ID of the keypad (two hex digits)
func KeypadNodeCommand(id uint8) string {
	return fmt.Sprintf("KEYPADNODE %02X", id)
}

// DigitalOutCommand sets the COB-ID the PDM listens on for digital outputs (three hex digits)
func DigitalOutCommand(cobID uint16) string {
	return fmt.Sprintf("DIGITALOUT %03X", cobID)
}
