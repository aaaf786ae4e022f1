/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"

	pdm "github.com/allbin/go-pdm"
	"github.com/spf13/cobra"
)

// saveCmd represents the save command
var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Persist the running configuration to the PDM's flash",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, client *pdm.Client) error {
			ok, err := client.SaveConfiguration(ctx)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("save not acknowledged: %w", pdm.ErrUnexpectedResponse)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s configuration saved\n", successStyle.Render("✓"))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(saveCmd)
}
