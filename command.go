package pdm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// DeviceStatus is the snapshot assembled from one STATUS block
type DeviceStatus struct {
	Temperature    float64 // °C
	BatteryVoltage float64 // V
	Uptime         int64   // seconds
	Channels       [NumChannels]ChannelState
}

func newDeviceStatus() *DeviceStatus {
	status := &DeviceStatus{}
	for i := range status.Channels {
		status.Channels[i] = ChannelState{Channel: i, Mode: "L", Group: 1}
	}
	return status
}

// apply folds a recognized status line into the snapshot
func (d *DeviceStatus) apply(line string) {
	ev, ok := ParseStatusLine(line)
	if !ok {
		return
	}
	switch ev := ev.(type) {
	case TemperatureEvent:
		d.Temperature = ev.Celsius
	case BatteryVoltageEvent:
		d.BatteryVoltage = ev.Volts
	case UptimeEvent:
		d.Uptime = ev.Seconds
	case ChannelStatusEvent:
		d.Channels[ev.Channel] = ev.ChannelState
	}
}

// isStatusMarker matches "===== PDM SYSTEM STATUS =====" style lines
func isStatusMarker(line string) bool {
	return strings.Contains(line, "====") && strings.Contains(line, "STATUS")
}

// isRule reports whether line is a run of at least four c characters
func isRule(line string, c rune) bool {
	if len(line) < 4 {
		return false
	}
	return strings.Trim(line, string(c)) == ""
}

func isConfigHeader(line string) bool {
	return strings.HasPrefix(line, "----") && strings.Contains(line, "Configuration")
}

func validateCommand(text string) error {
	if strings.TrimSpace(text) == "" || strings.ContainsAny(text, "\r\n") {
		return ErrInvalidCommand
	}
	return nil
}

// SendCommand writes text and returns the first response line that is not
// the firmware's "Received:" echo. It fails with ErrTimeout when nothing
// arrives within the command timeout.
func (c *Client) SendCommand(ctx context.Context, text string) (string, error) {
	if err := validateCommand(text); err != nil {
		return "", err
	}

	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	s, err := c.activeSession()
	if err != nil {
		return "", err
	}
	return c.exchange(ctx, s, text)
}

// exchange runs one request/response round trip; the caller holds cmdMu
func (c *Client) exchange(ctx context.Context, s *session, text string) (string, error) {
	if n := s.router.drain(); n > 0 {
		s.log.Debug().Int("lines", n).Msg("discarded stale lines")
	}

	s.log.Debug().Str("tx", text).Msg("sending command")
	if err := s.writeLine(text); err != nil {
		s.log.Error().Err(err).Str("command", text).Msg("failed to send command")
		return "", fmt.Errorf("send %q: %w", text, err)
	}

	t := c.config.Clock.NewTimer(c.config.CommandTimeout)
	defer t.Stop()

	resp, err := s.router.nextResponse(ctx, t.Chan())
	if err != nil {
		if errors.Is(err, ErrTimeout) {
			s.log.Debug().Str("command", text).Msg("no response before timeout")
		}
		return "", err
	}
	return resp, nil
}

// collect hands lines to fn until fn returns true or the status window
// closes. Echo lines are skipped.
func (c *Client) collect(ctx context.Context, s *session, fn func(line string) (stop bool)) error {
	t := c.config.Clock.NewTimer(c.config.StatusWindow)
	defer t.Stop()

	for {
		line, err := s.router.nextResponse(ctx, t.Chan())
		if errors.Is(err, ErrTimeout) {
			return nil
		}
		if err != nil {
			return err
		}
		if fn(line) {
			return nil
		}
	}
}

// SendConfigCommand sends text and reports whether the firmware
// acknowledged it with a line starting with "OK:"
func (c *Client) SendConfigCommand(ctx context.Context, text string) (bool, error) {
	resp, err := c.SendCommand(ctx, text)
	if err != nil {
		return false, err
	}
	return strings.HasPrefix(resp, "OK:"), nil
}

// GetDeviceStatus issues STATUS and builds a snapshot from the block the
// firmware prints. Collection ends at the block's closing rule, a STATUS
// marker line, or after the status window.
func (c *Client) GetDeviceStatus(ctx context.Context) (*DeviceStatus, error) {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	s, err := c.activeSession()
	if err != nil {
		return nil, err
	}

	status := newDeviceStatus()

	resp, err := c.exchange(ctx, s, CmdStatus)
	switch {
	case err == nil:
		// the block header usually arrives as the response
		if !isStatusMarker(resp) {
			status.apply(resp)
		}
	case errors.Is(err, ErrTimeout):
		s.log.Debug().Msg("STATUS gave no direct response, reading block anyway")
	default:
		return nil, err
	}

	err = c.collect(ctx, s, func(line string) bool {
		if isStatusMarker(line) || isRule(line, '=') {
			return true
		}
		status.apply(line)
		return false
	})
	if err != nil {
		return nil, err
	}
	return status, nil
}

// GetConfiguration requests the configuration block and returns its lines
// verbatim, without the header and closing rule
func (c *Client) GetConfiguration(ctx context.Context) ([]string, error) {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	s, err := c.activeSession()
	if err != nil {
		return nil, err
	}

	resp, err := c.exchange(ctx, s, c.config.ConfigCommand)
	if err != nil {
		return nil, err
	}
	if !isConfigHeader(resp) {
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedResponse, resp)
	}

	var lines []string
	err = c.collect(ctx, s, func(line string) bool {
		if isRule(line, '-') {
			return true
		}
		lines = append(lines, line)
		return false
	})
	if err != nil {
		return nil, err
	}
	return lines, nil
}

// SaveConfiguration asks the firmware to persist its configuration to
// EEPROM and reports whether the response carried an "OK:" acknowledgement
func (c *Client) SaveConfiguration(ctx context.Context) (bool, error) {
	resp, err := c.SendCommand(ctx, CmdSave)
	if err != nil {
		return false, err
	}
	return strings.Contains(resp, "OK:"), nil
}

// FactoryReset sends FACTORY_RESET and returns the raw response
func (c *Client) FactoryReset(ctx context.Context) (string, error) {
	return c.SendCommand(ctx, CmdFactoryReset)
}
