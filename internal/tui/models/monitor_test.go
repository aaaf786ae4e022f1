package models

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	pdm "github.com/allbin/go-pdm"
	"github.com/allbin/go-pdm/internal/tui/components"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDevice struct {
	mu     sync.Mutex
	sent   []string
	reply  string
	err    error
	status *pdm.DeviceStatus
	state  pdm.State

	statusCalls int
}

func (d *stubDevice) SendCommand(_ context.Context, text string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, text)
	return d.reply, d.err
}

func (d *stubDevice) GetDeviceStatus(context.Context) (*pdm.DeviceStatus, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.statusCalls++
	return d.status, d.err
}

func (d *stubDevice) snapshots() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.statusCalls
}

func (d *stubDevice) State() pdm.State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newTestMonitor(t *testing.T, dev *stubDevice) *Monitor {
	t.Helper()
	m := NewMonitor(dev, "/dev/ttyACM0", clockwork.NewFakeClockAt(time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)))
	t.Cleanup(m.Cancel)
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m.Update(ConnectionStatusMsg{State: pdm.StateConnected})
	return m
}

// run executes cmd, fanning out batches, and delivers every resulting
// message on the returned channel
func run(cmd tea.Cmd) <-chan tea.Msg {
	out := make(chan tea.Msg, 32)
	var exec func(tea.Cmd)
	exec = func(c tea.Cmd) {
		if c == nil {
			return
		}
		go func() {
			msg := c()
			if batch, ok := msg.(tea.BatchMsg); ok {
				for _, c := range batch {
					exec(c)
				}
				return
			}
			if msg != nil {
				out <- msg
			}
		}()
	}
	exec(cmd)
	return out
}

// await returns the first message of type T delivered on msgs
func await[T tea.Msg](t *testing.T, msgs <-chan tea.Msg) T {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case msg := <-msgs:
			if want, ok := msg.(T); ok {
				return want
			}
		case <-deadline:
			var zero T
			t.Fatalf("no %T arrived", zero)
			return zero
		}
	}
}

func lastEntry(m *Monitor) components.LogEntry {
	entries := m.Events().Entries()
	return entries[len(entries)-1]
}

func TestMonitorConnectionStatus(t *testing.T) {
	t.Parallel()

	m := newTestMonitor(t, &stubDevice{state: pdm.StateConnected})
	assert.Equal(t, pdm.StateConnected, m.State())
	assert.Contains(t, lastEntry(m).Text, "connected to /dev/ttyACM0")

	m.Update(ConnectionStatusMsg{State: pdm.StateDisconnected, Err: pdm.ErrDeviceNotFound})
	assert.ErrorIs(t, m.Err(), pdm.ErrDeviceNotFound)
	assert.Equal(t, components.DirectionError, lastEntry(m).Direction)
}

func TestMonitorSendsCommand(t *testing.T) {
	t.Parallel()

	dev := &stubDevice{state: pdm.StateConnected, reply: "OK: CH1 OC=15.00A"}
	m := newTestMonitor(t, dev)

	m.Update(runes("i"))
	m.Update(runes("OC 1 15"))
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	tx := lastEntry(m)
	assert.Equal(t, components.DirectionTX, tx.Direction)
	assert.Equal(t, "OC 1 15", tx.Text)
	assert.Equal(t, components.TXPending, tx.Status)

	m.Update(cmd())
	assert.Equal(t, []string{"OC 1 15"}, dev.sent)
	assert.Equal(t, components.TXAnswered, lastEntry(m).Status)

	// the reply arrives through the line handler
	m.Update(LineMsg{Line: "OK: CH1 OC=15.00A", At: time.Now()})
	assert.Equal(t, "OK: CH1 OC=15.00A", lastEntry(m).Text)
}

func TestMonitorEmptyCommandIgnored(t *testing.T) {
	t.Parallel()

	dev := &stubDevice{state: pdm.StateConnected}
	m := newTestMonitor(t, dev)
	before := m.Events().Len()

	m.Update(runes("i"))
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Equal(t, before, m.Events().Len())
}

func TestMonitorHistoryRecall(t *testing.T) {
	t.Parallel()

	m := newTestMonitor(t, &stubDevice{state: pdm.StateConnected})
	m.Update(runes("i"))
	m.Update(runes("STATUS"))
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	m.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, "STATUS", m.input.Value())

	// j and k are text while typing
	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m.Update(runes("k"))
	assert.Equal(t, "k", m.input.Value())
}

func TestMonitorSendFailureMarksLinkLost(t *testing.T) {
	t.Parallel()

	dev := &stubDevice{state: pdm.StateConnected, err: pdm.ErrLinkLost}
	m := newTestMonitor(t, dev)

	m.Update(runes("i"))
	m.Update(runes("SAVE"))
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m.Update(cmd())

	entries := m.Events().Entries()
	assert.Equal(t, components.TXFailed, entries[len(entries)-2].Status)
	assert.Equal(t, pdm.StateDisconnected, m.State())
	assert.ErrorIs(t, m.Err(), pdm.ErrLinkLost)
}

func TestMonitorSnapshot(t *testing.T) {
	t.Parallel()

	status := &pdm.DeviceStatus{Temperature: 41.5, BatteryVoltage: 12.1, Uptime: 300}
	for i := range status.Channels {
		status.Channels[i] = pdm.ChannelState{Channel: i, Mode: "L", Group: 1, LEDState: "OFF"}
	}
	status.Channels[1].Active = true
	dev := &stubDevice{state: pdm.StateConnected, status: status}
	m := newTestMonitor(t, dev)

	_, cmd := m.Update(runes("s"))
	require.NotNil(t, cmd)
	m.Update(cmd())

	ch, known := m.Channels().Channel(1)
	require.True(t, known)
	assert.True(t, ch.Active)
	require.NotNil(t, m.StatusBar().Telemetry().Temperature)
	assert.InDelta(t, 41.5, *m.StatusBar().Telemetry().Temperature, 1e-9)
	assert.Contains(t, lastEntry(m).Text, "snapshot: 41.5°C")
}

func TestMonitorSnapshotError(t *testing.T) {
	t.Parallel()

	m := newTestMonitor(t, &stubDevice{state: pdm.StateConnected, err: pdm.ErrNotConnected})
	_, cmd := m.Update(runes("s"))
	m.Update(cmd())

	assert.Equal(t, components.DirectionError, lastEntry(m).Direction)
	assert.True(t, strings.HasPrefix(lastEntry(m).Text, "snapshot failed"))
}

func TestMonitorRefreshesSnapshot(t *testing.T) {
	t.Parallel()

	status := &pdm.DeviceStatus{Temperature: 38, BatteryVoltage: 12.4, Uptime: 60}
	status.Channels[2] = pdm.ChannelState{Channel: 2, Active: true, Current: 3.5}
	dev := &stubDevice{state: pdm.StateConnected, status: status}

	clock := clockwork.NewFakeClockAt(time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC))
	m := NewMonitor(dev, "/dev/ttyACM0", clock)
	t.Cleanup(m.Cancel)
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})

	_, cmd := m.Update(ConnectionStatusMsg{State: pdm.StateConnected})
	msgs := run(cmd)

	require.NoError(t, clock.BlockUntilContext(t.Context(), 1))
	assert.Zero(t, dev.snapshots())
	clock.Advance(DefaultRefreshInterval)
	refresh := await[refreshMsg](t, msgs)

	before := m.Events().Len()
	_, cmd = m.Update(refresh)
	assert.True(t, m.SnapshotPending())

	// a second tick while the first snapshot is in flight starts none
	m.Update(refreshMsg{})
	msgs = run(cmd)
	snap := await[snapshotMsg](t, msgs)
	assert.Equal(t, 1, dev.snapshots())

	// lines of a periodic snapshot stay out of the log
	m.Update(LineMsg{Line: "CH3: ON 3.50A", At: clock.Now()})
	m.Update(snap)

	assert.False(t, m.SnapshotPending())
	ch, known := m.Channels().Channel(2)
	require.True(t, known)
	assert.InDelta(t, 3.5, ch.Current, 1e-9)
	assert.Equal(t, before, m.Events().Len())

	// the timer re-arms for the next round
	require.NoError(t, clock.BlockUntilContext(t.Context(), 1))
	clock.Advance(DefaultRefreshInterval)
	_, cmd = m.Update(await[refreshMsg](t, msgs))
	await[snapshotMsg](t, run(cmd))
	assert.Equal(t, 2, dev.snapshots())
}

func TestMonitorRefreshStopsWhenDisconnected(t *testing.T) {
	t.Parallel()

	dev := &stubDevice{state: pdm.StateConnected}
	m := newTestMonitor(t, dev)
	m.Update(ConnectionStatusMsg{State: pdm.StateDisconnected, Err: pdm.ErrLinkLost})

	_, cmd := m.Update(refreshMsg{})
	assert.Nil(t, cmd)
	assert.False(t, m.SnapshotPending())
	assert.Zero(t, dev.snapshots())
}

func TestMonitorRefreshDisabled(t *testing.T) {
	t.Parallel()

	m := NewMonitor(&stubDevice{state: pdm.StateConnected}, "/dev/ttyACM0", clockwork.NewFakeClock())
	t.Cleanup(m.Cancel)
	m.SetRefreshInterval(0)

	_, cmd := m.Update(ConnectionStatusMsg{State: pdm.StateConnected})
	assert.Nil(t, cmd)
}

func TestMonitorEvents(t *testing.T) {
	t.Parallel()

	m := newTestMonitor(t, &stubDevice{state: pdm.StateConnected})
	m.Update(EventMsg{Event: pdm.BatteryVoltageEvent{Volts: 12.6}})
	m.Update(EventMsg{Event: pdm.ChannelStatusEvent{ChannelState: pdm.ChannelState{Channel: 3, Current: 1.25}}})

	require.NotNil(t, m.StatusBar().Telemetry().BatteryVoltage)
	assert.InDelta(t, 12.6, *m.StatusBar().Telemetry().BatteryVoltage, 1e-9)
	ch, known := m.Channels().Channel(3)
	assert.True(t, known)
	assert.InDelta(t, 1.25, ch.Current, 1e-9)
}

func TestMonitorDetectsLinkLoss(t *testing.T) {
	t.Parallel()

	dev := &stubDevice{state: pdm.StateConnected}
	m := newTestMonitor(t, dev)

	_, cmd := m.Update(tickMsg(time.Now()))
	assert.NotNil(t, cmd)
	assert.Equal(t, pdm.StateConnected, m.State())

	dev.mu.Lock()
	dev.state = pdm.StateDisconnected
	dev.mu.Unlock()

	m.Update(tickMsg(time.Now()))
	assert.Equal(t, pdm.StateDisconnected, m.State())
	assert.True(t, errors.Is(m.Err(), pdm.ErrLinkLost))
	assert.Equal(t, "link lost", lastEntry(m).Text)
}

func TestMonitorQuitAndClear(t *testing.T) {
	t.Parallel()

	m := newTestMonitor(t, &stubDevice{state: pdm.StateConnected})
	m.Update(runes("c"))
	assert.Zero(t, m.Events().Len())

	_, cmd := m.Update(runes("q"))
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	assert.True(t, ok)
}

func TestMonitorView(t *testing.T) {
	t.Parallel()

	m := newTestMonitor(t, &stubDevice{state: pdm.StateConnected})
	view := m.View()
	assert.Contains(t, view, "/dev/ttyACM0")
	assert.Contains(t, view, "NORMAL")
	assert.Contains(t, view, "12:00:00")
}

func TestInputModeString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "NORMAL", InputModeNormal.String())
	assert.Equal(t, "INSERT", InputModeInsert.String())
}
