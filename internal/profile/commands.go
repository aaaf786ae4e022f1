package profile

import (
	"context"
	"errors"
	"fmt"

	pdm "github.com/allbin/go-pdm"
)

// Commands renders the profile as the configuration commands that apply
// it, channel settings first
func (p *Profile) Commands() ([]string, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	var cmds []string
	for i, key := range channelKeys {
		ch := p.Channels[key]
		n := i + 1
		cmds = append(cmds,
			pdm.OvercurrentCommand(n, ch.Overcurrent),
			pdm.InrushCommand(n, ch.Inrush),
			pdm.InrushTimeCommand(n, ch.InrushTime),
			pdm.UndercurrentWarningCommand(n, ch.UndercurrentWarning),
			pdm.ModeCommand(n, pdm.OutputMode(ch.Mode)),
			pdm.GroupCommand(n, ch.Group),
		)
	}

	// validated above, so these parse
	pdmNode, _ := parseHexID(p.PDMNode, 8)
	keypadNode, _ := parseHexID(p.KeypadNode, 8)
	digitalOut, _ := parseHexID(p.DigitalOut, 11)

	cmds = append(cmds,
		pdm.TempWarnCommand(p.TempWarn),
		pdm.TempTripCommand(p.TempTrip),
		pdm.CANSpeedCommand(p.CANSpeed),
		pdm.PDMNodeCommand(uint8(pdmNode)),
		pdm.KeypadNodeCommand(uint8(keypadNode)),
		pdm.DigitalOutCommand(uint16(digitalOut)),
	)
	return cmds, nil
}

// ConfigSender sends one configuration command and reports whether the
// device acknowledged it
type ConfigSender interface {
	SendConfigCommand(ctx context.Context, text string) (bool, error)
}

// Result is the outcome of one command
type Result struct {
	Command string
	OK      bool
	Err     error
}

// Report summarizes an Apply run
type Report struct {
	Results   []Result
	Succeeded int
	Total     int
	Aborted   bool // the link went away before every command was sent
}

func (r Report) String() string {
	if r.Succeeded == r.Total {
		return fmt.Sprintf("all %d commands acknowledged", r.Total)
	}
	return fmt.Sprintf("partial success: %d/%d commands", r.Succeeded, r.Total)
}

// Apply sends each command in order. A rejected or timed-out command does
// not stop the run; losing the connection or ctx does.
func Apply(ctx context.Context, sender ConfigSender, cmds []string) Report {
	report := Report{Total: len(cmds)}
	for _, cmd := range cmds {
		ok, err := sender.SendConfigCommand(ctx, cmd)
		report.Results = append(report.Results, Result{Command: cmd, OK: ok, Err: err})
		if ok {
			report.Succeeded++
		}
		if ctx.Err() != nil || errors.Is(err, pdm.ErrNotConnected) || errors.Is(err, pdm.ErrLinkLost) {
			report.Aborted = true
			break
		}
	}
	return report
}
