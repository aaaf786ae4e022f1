package components

import (
	"fmt"
	"strconv"

	pdm "github.com/allbin/go-pdm"
	"github.com/allbin/go-pdm/internal/tui/colors"
	"github.com/allbin/go-pdm/internal/tui/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/evertras/bubble-table/table"
)

const (
	columnKeyChannel = "channel"
	columnKeyOutput  = "output"
	columnKeyCurrent = "current"
	columnKeyMode    = "mode"
	columnKeyGroup   = "group"
	columnKeyLED     = "led"
)

// ChannelTable shows the last known state of every output channel
type ChannelTable struct {
	channels [pdm.NumChannels]pdm.ChannelState
	known    [pdm.NumChannels]bool
	model    table.Model
}

func NewChannelTable() *ChannelTable {
	columns := []table.Column{
		table.NewColumn(columnKeyChannel, "CH", 4),
		table.NewColumn(columnKeyOutput, "Output", 8),
		table.NewColumn(columnKeyCurrent, "Current", 10),
		table.NewColumn(columnKeyMode, "Mode", 11),
		table.NewColumn(columnKeyGroup, "Group", 7),
		table.NewColumn(columnKeyLED, "LED", 12),
	}

	ct := &ChannelTable{
		model: table.New(columns).
			BorderRounded().
			HeaderStyle(styles.TableHeaderStyle).
			WithBaseStyle(styles.TableBaseStyle),
	}
	ct.refresh()
	return ct
}

// Update records the state of one channel
func (ct *ChannelTable) Update(state pdm.ChannelState) {
	if state.Channel < 0 || state.Channel >= pdm.NumChannels {
		return
	}
	ct.channels[state.Channel] = state
	ct.known[state.Channel] = true
	ct.refresh()
}

// SetAll replaces every channel, as after a STATUS snapshot
func (ct *ChannelTable) SetAll(states [pdm.NumChannels]pdm.ChannelState) {
	ct.channels = states
	for i := range ct.known {
		ct.known[i] = true
	}
	ct.refresh()
}

// Channel returns the state of channel i (0-based) and whether it has been reported
func (ct *ChannelTable) Channel(i int) (pdm.ChannelState, bool) {
	if i < 0 || i >= pdm.NumChannels {
		return pdm.ChannelState{}, false
	}
	return ct.channels[i], ct.known[i]
}

func (ct *ChannelTable) refresh() {
	rows := make([]table.Row, 0, pdm.NumChannels)
	for i, ch := range ct.channels {
		rows = append(rows, ct.row(i, ch))
	}
	ct.model = ct.model.WithRows(rows)
}

func (ct *ChannelTable) row(i int, ch pdm.ChannelState) table.Row {
	if !ct.known[i] {
		return table.NewRow(table.RowData{
			columnKeyChannel: strconv.Itoa(i + 1),
			columnKeyOutput:  "--",
			columnKeyCurrent: "--",
			columnKeyMode:    "--",
			columnKeyGroup:   "--",
			columnKeyLED:     "--",
		}).WithStyle(lipgloss.NewStyle().Foreground(colors.Overlay0))
	}

	output := table.NewStyledCell("OFF", lipgloss.NewStyle().Foreground(colors.Overlay0))
	if ch.Active {
		output = table.NewStyledCell("ON", lipgloss.NewStyle().Foreground(colors.Green).Bold(true))
	}

	return table.NewRow(table.RowData{
		columnKeyChannel: strconv.Itoa(i + 1),
		columnKeyOutput:  output,
		columnKeyCurrent: fmt.Sprintf("%.2f A", ch.Current),
		columnKeyMode:    modeName(ch.Mode),
		columnKeyGroup:   strconv.Itoa(ch.Group),
		columnKeyLED:     table.NewStyledCell(ch.LEDState, lipgloss.NewStyle().Foreground(colors.ForLED(ch.LEDState))),
	})
}

func modeName(mode string) string {
	switch mode {
	case "L":
		return "latch"
	case "M":
		return "momentary"
	default:
		return mode
	}
}

func (ct *ChannelTable) View() string {
	return ct.model.View()
}
