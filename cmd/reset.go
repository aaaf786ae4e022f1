/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	pdm "github.com/allbin/go-pdm"
	"github.com/spf13/cobra"
)

var errResetDeclined = errors.New("factory reset cancelled")

// factoryResetCmd represents the factory-reset command
var factoryResetCmd = &cobra.Command{
	Use:   "factory-reset",
	Short: "Restore the PDM's factory configuration",
	Long: `Send FACTORY_RESET and print the board's reply.

Every channel returns to 15A overcurrent, 50A inrush for 1000ms, 0.1A
undercurrent warning, latch mode and its own group; thermal limits return to
70/85°C and CAN to 1000 kbps. You are asked to confirm unless --yes is given.

Examples:
  pdmctl factory-reset
  pdmctl factory-reset --yes`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes && !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), "Reset the PDM to factory defaults?") {
			return errResetDeclined
		}

		return withClient(cmd, func(ctx context.Context, client *pdm.Client) error {
			resp, err := client.FactoryReset(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", successStyle.Render("✓"), resp)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(factoryResetCmd)

	factoryResetCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
}

// confirm asks a yes/no question, defaulting to no
func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprint(out, infoStyle.Render(question+" [y/N] "))

	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
