package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	pdm "github.com/allbin/go-pdm"
	"github.com/allbin/go-pdm/internal/tui/components"
	"github.com/allbin/go-pdm/internal/tui/keys"
	"github.com/allbin/go-pdm/internal/tui/styles"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jonboulle/clockwork"
)

// InputMode represents the current input mode (vim-like)
type InputMode int

const (
	InputModeNormal InputMode = iota
	InputModeInsert
)

func (m InputMode) String() string {
	switch m {
	case InputModeInsert:
		return "INSERT"
	default:
		return "NORMAL"
	}
}

// linkPollInterval is how often the monitor re-reads the client state to
// notice a lost link
const linkPollInterval = time.Second

// DefaultRefreshInterval is how often the monitor requests a STATUS
// snapshot while connected; the firmware only reports telemetry when asked
const DefaultRefreshInterval = 2 * time.Second

// Device is the part of pdm.Client the monitor drives
type Device interface {
	SendCommand(ctx context.Context, text string) (string, error)
	GetDeviceStatus(ctx context.Context) (*pdm.DeviceStatus, error)
	State() pdm.State
}

// ConnectionStatusMsg reports the outcome of the background connect
type ConnectionStatusMsg struct {
	State pdm.State
	Err   error
}

// LineMsg carries one raw line from the client's line handler
type LineMsg struct {
	Line string
	At   time.Time
}

// EventMsg carries one parsed status event from the client's status handler
type EventMsg struct {
	Event pdm.Event
}

type responseMsg struct {
	id       int
	response string
	err      error
}

type snapshotMsg struct {
	status   *pdm.DeviceStatus
	err      error
	periodic bool
}

type tickMsg time.Time

type refreshMsg struct{}

// Monitor is the bubbletea model behind pdmctl monitor
type Monitor struct {
	device   Device
	portPath string
	clock    clockwork.Clock

	ctx    context.Context
	cancel context.CancelFunc

	state     pdm.State
	err       error
	inputMode InputMode
	ready     bool
	width     int

	refresh time.Duration
	// snapshotting is set while a snapshot is in flight; quiet while that
	// snapshot was started by the refresh timer and its lines stay out of the log
	snapshotting bool
	quiet        bool

	statusBar *components.StatusBar
	channels  *components.ChannelTable
	events    *components.EventLog
	input     *components.Input
	help      help.Model
	keys      keys.MonitorKeys
}

func NewMonitor(device Device, portPath string, clock clockwork.Clock) *Monitor {
	ctx, cancel := context.WithCancel(context.Background())

	m := &Monitor{
		device:    device,
		portPath:  portPath,
		clock:     clock,
		ctx:       ctx,
		cancel:    cancel,
		state:     pdm.StateConnecting,
		refresh:   DefaultRefreshInterval,
		statusBar: components.NewStatusBar(portPath),
		channels:  components.NewChannelTable(),
		events:    components.NewEventLog(0, 0), // sized by WindowSizeMsg
		input:     components.NewInput("Type a command (e.g. OC 1 15) and press Enter..."),
		help:      help.New(),
		keys:      keys.NewMonitorKeys(),
	}
	m.statusBar.SetState(pdm.StateConnecting, nil)
	return m
}

// SetRefreshInterval sets how often a snapshot is requested while
// connected. Zero or less turns periodic snapshots off.
func (m *Monitor) SetRefreshInterval(d time.Duration) {
	m.refresh = d
}

func (m *Monitor) Init() tea.Cmd {
	return m.tick()
}

func (m *Monitor) tick() tea.Cmd {
	return tea.Tick(linkPollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// scheduleRefresh fires a refreshMsg once the refresh interval passes on
// the monitor's clock
func (m *Monitor) scheduleRefresh() tea.Cmd {
	if m.refresh <= 0 {
		return nil
	}
	ctx, clock, d := m.ctx, m.clock, m.refresh
	return func() tea.Msg {
		select {
		case <-clock.After(d):
			return refreshMsg{}
		case <-ctx.Done():
			return nil
		}
	}
}

func (m *Monitor) logf(dir components.Direction, format string, args ...any) int {
	return m.events.Add(components.LogEntry{
		Timestamp: m.clock.Now(),
		Direction: dir,
		Text:      fmt.Sprintf(format, args...),
	})
}

func (m *Monitor) setState(state pdm.State, err error) {
	m.state = state
	m.err = err
	m.statusBar.SetState(state, err)
}

// send issues text through the client; the reply itself shows up as a LineMsg
func (m *Monitor) send(text string) tea.Cmd {
	id := m.events.Add(components.LogEntry{
		Timestamp: m.clock.Now(),
		Direction: components.DirectionTX,
		Text:      text,
	})
	ctx := m.ctx
	return func() tea.Msg {
		resp, err := m.device.SendCommand(ctx, text)
		return responseMsg{id: id, response: resp, err: err}
	}
}

// snapshot requests a full status report. A periodic one runs quietly.
func (m *Monitor) snapshot(periodic bool) tea.Cmd {
	if !periodic {
		m.logf(components.DirectionInfo, "requesting status snapshot")
	}
	m.snapshotting = true
	m.quiet = periodic
	ctx := m.ctx
	return func() tea.Msg {
		status, err := m.device.GetDeviceStatus(ctx)
		return snapshotMsg{status: status, err: err, periodic: periodic}
	}
}

func (m *Monitor) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.SetWidth(msg.Width)
		m.statusBar.SetWidth(msg.Width)
		m.events.SetSize(msg.Width, m.logHeight(msg.Height))
		m.ready = true

	case ConnectionStatusMsg:
		m.setState(msg.State, msg.Err)
		if msg.Err != nil {
			m.logf(components.DirectionError, "connect failed: %v", msg.Err)
		} else {
			m.logf(components.DirectionInfo, "connected to %s", m.portPath)
		}
		if msg.State == pdm.StateConnected {
			cmds = append(cmds, m.scheduleRefresh())
		}

	case refreshMsg:
		if m.state != pdm.StateConnected {
			break
		}
		if !m.snapshotting {
			cmds = append(cmds, m.snapshot(true))
		}
		cmds = append(cmds, m.scheduleRefresh())

	case tickMsg:
		if m.state == pdm.StateConnected && m.device.State() != pdm.StateConnected {
			m.setState(pdm.StateDisconnected, pdm.ErrLinkLost)
			m.logf(components.DirectionError, "link lost")
		}
		cmds = append(cmds, m.tick())

	case LineMsg:
		if m.quiet {
			break
		}
		m.events.Add(components.LogEntry{Timestamp: msg.At, Text: msg.Line})

	case EventMsg:
		if ev, ok := msg.Event.(pdm.ChannelStatusEvent); ok {
			m.channels.Update(ev.ChannelState)
		} else {
			m.statusBar.Apply(msg.Event)
		}

	case responseMsg:
		if msg.err != nil {
			m.events.SetStatus(msg.id, components.TXFailed)
			m.logf(components.DirectionError, "%v", msg.err)
			if errors.Is(msg.err, pdm.ErrLinkLost) {
				m.setState(pdm.StateDisconnected, msg.err)
			}
		} else {
			m.events.SetStatus(msg.id, components.TXAnswered)
		}

	case snapshotMsg:
		m.snapshotting = false
		m.quiet = false
		if msg.err != nil {
			if errors.Is(msg.err, context.Canceled) {
				break
			}
			m.logf(components.DirectionError, "snapshot failed: %v", msg.err)
			if errors.Is(msg.err, pdm.ErrLinkLost) {
				m.setState(pdm.StateDisconnected, msg.err)
			}
			break
		}
		m.channels.SetAll(msg.status.Channels)
		m.statusBar.ApplySnapshot(msg.status)
		if !msg.periodic {
			m.logf(components.DirectionInfo, "snapshot: %.1f°C, %.2fV, up %ds",
				msg.status.Temperature, msg.status.BatteryVoltage, msg.status.Uptime)
		}

	case tea.KeyMsg:
		if m.inputMode == InputModeInsert {
			return m, m.updateInsert(msg)
		}
		return m, m.updateNormal(msg)
	}

	cmds = append(cmds, m.events.Update(msg))
	return m, tea.Batch(cmds...)
}

func (m *Monitor) updateInsert(msg tea.KeyMsg) tea.Cmd {
	switch {
	case msg.Type == tea.KeyCtrlC:
		m.cancel()
		return tea.Quit
	case key.Matches(msg, m.keys.Escape):
		m.inputMode = InputModeNormal
		m.input.Blur()
		return nil
	case key.Matches(msg, m.keys.Enter):
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return nil
		}
		m.input.AddToHistory(text)
		m.input.SetValue("")
		return m.send(text)
	case msg.Type == tea.KeyUp:
		m.input.NavigateHistoryUp()
		return nil
	case msg.Type == tea.KeyDown:
		m.input.NavigateHistoryDown()
		return nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *Monitor) updateNormal(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.cancel()
		return tea.Quit
	case key.Matches(msg, m.keys.InsertMode):
		m.inputMode = InputModeInsert
		return m.input.Focus()
	case key.Matches(msg, m.keys.Snapshot):
		return m.snapshot(false)
	case key.Matches(msg, m.keys.Clear):
		m.events.Clear()
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Up):
		m.events.ScrollUp()
	case key.Matches(msg, m.keys.Down):
		m.events.ScrollDown()
	case key.Matches(msg, m.keys.GotoTop):
		m.events.GotoTop()
	case key.Matches(msg, m.keys.GotoBottom):
		m.events.GotoBottom()
	}
	return nil
}

// logHeight is what is left for the event log once the channel table,
// input box, help line and status bar are laid out
func (m *Monitor) logHeight(total int) int {
	const inputHeight, statusBarHeight, helpHeight, borderHeight = 3, 1, 1, 1
	h := total - lipgloss.Height(m.channels.View()) - inputHeight - statusBarHeight - helpHeight - borderHeight
	if h < 1 {
		h = 1
	}
	return h
}

func (m *Monitor) View() string {
	content := "Initializing..."
	if m.ready {
		content = m.events.View()
	}

	status := m.statusBar.View(m.inputMode.String(), m.clock.Now().Format("15:04:05"))

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.channels.View(),
		styles.ContentBorderStyle.Render(content),
		m.input.View(m.inputMode == InputModeInsert),
		m.help.View(m.keys),
		status,
	)
}

// State returns the link state as last seen by the monitor
func (m *Monitor) State() pdm.State {
	return m.state
}

// Err returns the last connection error, if any
func (m *Monitor) Err() error {
	return m.err
}

// SnapshotPending reports whether a snapshot request is in flight
func (m *Monitor) SnapshotPending() bool {
	return m.snapshotting
}

func (m *Monitor) Events() *components.EventLog {
	return m.events
}

func (m *Monitor) Channels() *components.ChannelTable {
	return m.channels
}

func (m *Monitor) StatusBar() *components.StatusBar {
	return m.statusBar
}

// Cancel aborts any in-flight command
func (m *Monitor) Cancel() {
	m.cancel()
}
