/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"
	"io"

	pdm "github.com/allbin/go-pdm"
	"github.com/spf13/cobra"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the PDM's running configuration",
	Long: `Ask the board for its configuration block and print it.

Firmware builds differ in the command name: older ones answer CONFIG, newer
ones SHOW or PRINT. Pick one with --command.

Examples:
  pdmctl config
  pdmctl config --command SHOW`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		command, _ := cmd.Flags().GetString("command")

		return withClient(cmd, func(ctx context.Context, client *pdm.Client) error {
			lines, err := client.GetConfiguration(ctx)
			if err != nil {
				return err
			}
			printConfiguration(cmd.OutOrStdout(), lines)
			return nil
		}, pdm.WithConfigCommand(command))
	},
}

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.Flags().StringP("command", "c", pdm.CmdConfig, "Command that prints the configuration block")
}

func printConfiguration(w io.Writer, lines []string) {
	fmt.Fprintln(w, infoStyle.Render("PDM Configuration"))
	for _, line := range lines {
		fmt.Fprintf(w, "  %s\n", line)
	}
}
