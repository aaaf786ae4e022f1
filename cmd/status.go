/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	pdm "github.com/allbin/go-pdm"
	"github.com/allbin/go-pdm/internal/tui/components"
	"github.com/spf13/cobra"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print a STATUS snapshot of the PDM",
	Long: `Connect, send STATUS and print the board temperature, battery voltage,
uptime and the state of all four output channels.

Readings the board did not report within the status window keep their
defaults (0, channels off, latch mode, group 1).

Examples:
  pdmctl status --port /dev/ttyACM0
  PDM_PORT=/dev/ttyACM0 pdmctl status`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, client *pdm.Client) error {
			status, err := client.GetDeviceStatus(ctx)
			if err != nil {
				return err
			}
			renderStatus(cmd.OutOrStdout(), status)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func renderStatus(w io.Writer, status *pdm.DeviceStatus) {
	fmt.Fprintln(w, infoStyle.Render("PDM Status"))
	fmt.Fprintf(w, "  Board Temperature: %.1f °C\n", status.Temperature)
	fmt.Fprintf(w, "  Battery Voltage:   %.2f V\n", status.BatteryVoltage)
	fmt.Fprintf(w, "  System Uptime:     %s\n\n", time.Duration(status.Uptime)*time.Second)

	table := components.NewChannelTable()
	table.SetAll(status.Channels)
	fmt.Fprintln(w, table.View())
}
