package pdm

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestCommandBuilders(t *testing.T) {
	t.Parallel()

	tests := []struct {
		got  string
		want string
	}{
		{OvercurrentCommand(1, 15), "OC 1 15"},
		{OvercurrentCommand(4, 0.5), "OC 4 0.5"},
		{InrushCommand(2, 50), "INR 2 50"},
		{InrushTimeCommand(3, 1000), "INRTIME 3 1000"},
		{UndercurrentWarningCommand(1, 0.1), "UWR 1 0.1"},
		{ModeCommand(2, ModeLatch), "MODE 2 LATCH"},
		{ModeCommand(3, ModeMomentary), "MODE 3 MOMENTARY"},
		{GroupCommand(4, 2), "GROUP 4 2"},
		{TempWarnCommand(70), "TEMPWARN 70"},
		{TempTripCommand(85.5), "TEMPTRIP 85.5"},
		{CANSpeedCommand(1000), "CANSPEED 1000"},
		{PDMNodeCommand(0x15), "PDMNODE 15"},
		{PDMNodeCommand(0x05), "PDMNODE 05"},
		{KeypadNodeCommand(0xAB), "KEYPADNODE AB"},
		{DigitalOutCommand(0x680), "DIGITALOUT 680"},
		{DigitalOutCommand(0x1F), "DIGITALOUT 01F"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.got)
	}
}

func TestChannelCommandsRoundTrip(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		ch := rapid.IntRange(1, NumChannels).Draw(t, "channel")
		amps := rapid.Float64Range(0.01, 200).Draw(t, "amps")

		fields := strings.Fields(OvercurrentCommand(ch, amps))
		if len(fields) != 3 || fields[0] != "OC" {
			t.Fatalf("unexpected command %q", fields)
		}
		if fields[1] != strconv.Itoa(ch) {
			t.Fatalf("channel %s, want %d", fields[1], ch)
		}
		got, err := strconv.ParseFloat(fields[2], 64)
		if err != nil || got != amps {
			t.Fatalf("value %s does not round-trip %v", fields[2], amps)
		}
	})
}

func TestNodeCommandsHexWidth(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		node := rapid.Uint8().Draw(t, "node")
		cobID := rapid.Uint16Range(0, 0x7FF).Draw(t, "cobID")

		nodeHex := strings.TrimPrefix(PDMNodeCommand(node), "PDMNODE ")
		dig := strings.TrimPrefix(DigitalOutCommand(cobID), "DIGITALOUT ")

		if len(nodeHex) != 2 {
			t.Fatalf("node %q is not two hex digits", nodeHex)
		}
		if len(dig) != 3 {
			t.Fatalf("COB-ID %q is not three hex digits", dig)
		}
		if v, err := strconv.ParseUint(nodeHex, 16, 8); err != nil || uint8(v) != node {
			t.Fatalf("node %q does not round-trip %d", nodeHex, node)
		}
		if v, err := strconv.ParseUint(dig, 16, 16); err != nil || uint16(v) != cobID {
			t.Fatalf("COB-ID %q does not round-trip %d", dig, cobID)
		}
	})
}
