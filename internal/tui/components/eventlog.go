package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/allbin/go-pdm/internal/tui/colors"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// MaxLogEntries bounds the event log; older entries are dropped first
const MaxLogEntries = 1000

type Direction int

const (
	DirectionRX Direction = iota
	DirectionTX
	DirectionInfo
	DirectionError
)

// TXStatus tracks a sent command until it is answered
type TXStatus int

const (
	TXPending TXStatus = iota
	TXAnswered
	TXFailed
)

// LogEntry is one line of the event log
type LogEntry struct {
	Timestamp time.Time
	Direction Direction
	Text      string
	Status    TXStatus // TX entries only
}

// FormatEntry renders an entry as "[15:04:05.000] ↙ RX: text"
func FormatEntry(e LogEntry) string {
	var color lipgloss.Color
	var label string

	switch e.Direction {
	case DirectionTX:
		switch e.Status {
		case TXAnswered:
			color, label = colors.Green, "↗ TX ✓"
		case TXFailed:
			color, label = colors.Red, "↗ TX ✗"
		default:
			color, label = colors.Yellow, "↗ TX ○"
		}
	case DirectionInfo:
		color, label = colors.Mauve, "• INFO"
	case DirectionError:
		color, label = colors.Red, "! ERR"
	default:
		color, label = colors.Sky, "↙ RX"
	}

	indicator := lipgloss.NewStyle().
		Foreground(color).
		Bold(true).
		Render(label)

	timestamp := lipgloss.NewStyle().
		Foreground(colors.Subtext0).
		Render(fmt.Sprintf("[%s]", e.Timestamp.Format("15:04:05.000")))

	return fmt.Sprintf("%s %s: %s", timestamp, indicator, e.Text)
}

// EventLog is a scrolling view of received lines, sent commands and
// monitor notices
type EventLog struct {
	viewport viewport.Model
	entries  []LogEntry
	dropped  int
	follow   bool
}

func NewEventLog(width, height int) *EventLog {
	return &EventLog{
		viewport: viewport.New(width, height),
		follow:   true,
	}
}

func (l *EventLog) SetSize(width, height int) {
	l.viewport.Width = width
	l.viewport.Height = height
	l.render()
}

// Add appends an entry and returns its id for later SetStatus calls
func (l *EventLog) Add(e LogEntry) int {
	l.entries = append(l.entries, e)
	if len(l.entries) > MaxLogEntries {
		n := len(l.entries) - MaxLogEntries
		l.entries = append(l.entries[:0:0], l.entries[n:]...)
		l.dropped += n
	}
	l.render()
	return l.dropped + len(l.entries) - 1
}

// SetStatus updates a TX entry; ids that scrolled out of the log are ignored
func (l *EventLog) SetStatus(id int, status TXStatus) {
	i := id - l.dropped
	if i < 0 || i >= len(l.entries) {
		return
	}
	l.entries[i].Status = status
	l.render()
}

func (l *EventLog) Entries() []LogEntry {
	return l.entries
}

func (l *EventLog) Len() int {
	return len(l.entries)
}

func (l *EventLog) Clear() {
	l.entries = nil
	l.dropped = 0
	l.viewport.SetContent("")
}

// ScrollUp leaves follow mode so new entries do not move the view
func (l *EventLog) ScrollUp() {
	l.follow = false
	l.viewport.LineUp(1)
}

func (l *EventLog) ScrollDown() {
	l.viewport.LineDown(1)
	if l.viewport.AtBottom() {
		l.follow = true
	}
}

func (l *EventLog) GotoTop() {
	l.follow = false
	l.viewport.GotoTop()
}

// GotoBottom returns to follow mode
func (l *EventLog) GotoBottom() {
	l.follow = true
	l.viewport.GotoBottom()
}

func (l *EventLog) Following() bool {
	return l.follow
}

func (l *EventLog) render() {
	lines := make([]string, len(l.entries))
	for i, e := range l.entries {
		lines[i] = FormatEntry(e)
	}
	l.viewport.SetContent(strings.Join(lines, "\n"))
	if l.follow {
		l.viewport.GotoBottom()
	}
}

func (l *EventLog) Update(msg tea.Msg) tea.Cmd {
	// Only window sizing reaches the viewport so it does not eat key bindings
	if _, ok := msg.(tea.WindowSizeMsg); ok {
		var cmd tea.Cmd
		l.viewport, cmd = l.viewport.Update(msg)
		return cmd
	}
	return nil
}

func (l *EventLog) View() string {
	return l.viewport.View()
}
