package components

import (
	"fmt"
	"time"

	pdm "github.com/allbin/go-pdm"
	"github.com/allbin/go-pdm/internal/tui/colors"
	"github.com/allbin/go-pdm/internal/tui/styles"
	"github.com/charmbracelet/lipgloss"
)

// Default thermal limits used to color the temperature readout
const (
	DefaultTempWarn = 70.0
	DefaultTempTrip = 85.0
)

// Telemetry is the latest board-level reading of each kind. A nil field
// has not been reported yet.
type Telemetry struct {
	Temperature    *float64
	BatteryVoltage *float64
	Uptime         *time.Duration
}

type StatusBar struct {
	portPath  string
	state     pdm.State
	err       error
	width     int
	telemetry Telemetry
	tempWarn  float64
	tempTrip  float64
}

func NewStatusBar(portPath string) *StatusBar {
	return &StatusBar{
		portPath: portPath,
		state:    pdm.StateDisconnected,
		tempWarn: DefaultTempWarn,
		tempTrip: DefaultTempTrip,
	}
}

func (sb *StatusBar) SetWidth(width int) {
	sb.width = width
}

// SetState records the link state; a non-nil err marks the link failed
func (sb *StatusBar) SetState(state pdm.State, err error) {
	sb.state = state
	sb.err = err
}

func (sb *StatusBar) State() pdm.State {
	return sb.state
}

func (sb *StatusBar) Telemetry() Telemetry {
	return sb.telemetry
}

// Apply folds a board-level status event into the telemetry; channel
// events are ignored
func (sb *StatusBar) Apply(ev pdm.Event) {
	switch e := ev.(type) {
	case pdm.TemperatureEvent:
		v := e.Celsius
		sb.telemetry.Temperature = &v
	case pdm.BatteryVoltageEvent:
		v := e.Volts
		sb.telemetry.BatteryVoltage = &v
	case pdm.UptimeEvent:
		v := time.Duration(e.Seconds) * time.Second
		sb.telemetry.Uptime = &v
	}
}

// ApplySnapshot copies the board-level fields of a STATUS snapshot
func (sb *StatusBar) ApplySnapshot(status *pdm.DeviceStatus) {
	sb.Apply(pdm.TemperatureEvent{Celsius: status.Temperature})
	sb.Apply(pdm.BatteryVoltageEvent{Volts: status.BatteryVoltage})
	sb.Apply(pdm.UptimeEvent{Seconds: status.Uptime})
}

func (sb *StatusBar) indicator() string {
	glyph := "○"
	switch {
	case sb.err != nil:
		glyph = "✗"
	case sb.state == pdm.StateConnected:
		glyph = "●"
	}
	return styles.StateStyle(sb.state, sb.err).Padding(0, 1).Render(glyph)
}

func (sb *StatusBar) readouts() string {
	muted := lipgloss.NewStyle().Foreground(colors.Overlay0).Padding(0, 1)
	value := lipgloss.NewStyle().Foreground(colors.Subtext1).Padding(0, 1)

	temp := muted.Render("🌡 --")
	if t := sb.telemetry.Temperature; t != nil {
		temp = value.Foreground(colors.ForTemperature(*t, sb.tempWarn, sb.tempTrip)).
			Render(fmt.Sprintf("🌡 %.1f°C", *t))
	}

	batt := muted.Render("⚡ --")
	if v := sb.telemetry.BatteryVoltage; v != nil {
		batt = value.Render(fmt.Sprintf("⚡ %.2fV", *v))
	}

	up := muted.Render("⏱ --")
	if u := sb.telemetry.Uptime; u != nil {
		up = value.Render("⏱ " + u.String())
	}

	return lipgloss.JoinHorizontal(lipgloss.Left, temp, batt, up)
}

// View renders the single-line status bar: mode, port, link indicator and
// telemetry on the left, clock on the right
func (sb *StatusBar) View(inputMode, timestamp string) string {
	terminalWidth := sb.width
	if terminalWidth <= 0 {
		terminalWidth = 80
	}

	modeStyle := lipgloss.NewStyle().
		Foreground(colors.Base).
		Background(colors.Blue).
		Bold(true).
		Padding(0, 1)
	if inputMode == "INSERT" {
		modeStyle = modeStyle.Background(colors.Green)
	}
	mode := modeStyle.Render(inputMode)

	portName := sb.portPath
	if portName == "" {
		portName = "no port"
	}
	port := lipgloss.NewStyle().
		Foreground(colors.Mauve).
		Bold(true).
		Padding(0, 1).
		Render(portName)

	divider := lipgloss.NewStyle().
		Foreground(colors.Surface2).
		Padding(0, 1).
		Render("│")

	clock := lipgloss.NewStyle().
		Foreground(colors.Subtext1).
		Padding(0, 1).
		Render(timestamp)

	leftSide := lipgloss.JoinHorizontal(lipgloss.Left, mode, port, sb.indicator(), divider, sb.readouts())
	rightSide := lipgloss.JoinHorizontal(lipgloss.Left, divider, clock)

	spacerWidth := terminalWidth - lipgloss.Width(leftSide) - lipgloss.Width(rightSide)
	if spacerWidth < 1 {
		spacerWidth = 1
	}
	spacer := lipgloss.NewStyle().Width(spacerWidth).Render("")

	return lipgloss.NewStyle().
		Foreground(colors.Text).
		Background(colors.Surface0).
		Width(terminalWidth).
		Render(lipgloss.JoinHorizontal(lipgloss.Left, leftSide, spacer, rightSide))
}
