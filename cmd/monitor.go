/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"errors"
	"io"
	"time"

	pdm "github.com/allbin/go-pdm"
	"github.com/allbin/go-pdm/internal/logging"
	"github.com/allbin/go-pdm/internal/tui/models"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// monitorCmd represents the monitor command
var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Watch the PDM live in a terminal UI",
	Long: `Open the PDM and show its telemetry live.

The screen shows the four output channels, a log of every line the board
prints, a command line and a status bar with the link state, board
temperature, battery voltage and uptime.

Keys:
  i      type a command, enter sends it, esc leaves the command line
  s      request a STATUS snapshot now
  c      clear the log
  ↑/↓    scroll the log (history while typing)
  g/G    jump to the top / follow new lines
  ?      help
  q      quit

A STATUS snapshot is also requested every --refresh interval while the
board is connected; 0 turns that off.

Log output goes to --log-file only while the monitor runs.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := logging.Setup(logging.Options{
			Level:   viper.GetString("log.level"),
			File:    viper.GetString("log.file"),
			Console: io.Discard,
		}); err != nil {
			return err
		}

		port, err := resolvePort(viper.GetString("port"))
		if err != nil {
			return err
		}
		client, err := newClient()
		if err != nil {
			return err
		}

		return runMonitor(cmd.Context(), client, port, viper.GetDuration("monitor.refresh"))
	},
}

func init() {
	rootCmd.AddCommand(monitorCmd)

	monitorCmd.Flags().Duration("refresh", models.DefaultRefreshInterval, "how often to request a STATUS snapshot, 0 to turn off")
	if err := viper.BindPFlag("monitor.refresh", monitorCmd.Flags().Lookup("refresh")); err != nil {
		panic(err)
	}
}

func runMonitor(ctx context.Context, client *pdm.Client, port string, refresh time.Duration) error {
	m := models.NewMonitor(client, port, clockwork.NewRealClock())
	m.SetRefreshInterval(refresh)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	client.SetLineHandler(func(line string) {
		p.Send(models.LineMsg{Line: line, At: time.Now()})
	})
	client.SetStatusHandler(func(ev pdm.Event) {
		p.Send(models.EventMsg{Event: ev})
	})

	connectCtx, cancelConnect := context.WithCancel(ctx)
	connected := make(chan struct{})
	go func() {
		defer close(connected)
		err := client.Connect(connectCtx, port)
		p.Send(models.ConnectionStatusMsg{State: client.State(), Err: err})
	}()

	_, err := p.Run()

	// stop a connect still settling before tearing the session down
	m.Cancel()
	cancelConnect()
	<-connected

	client.SetLineHandler(nil)
	client.SetStatusHandler(nil)
	if derr := client.Disconnect(); derr != nil {
		log.Warn().Err(derr).Msg("disconnect")
	}

	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}
