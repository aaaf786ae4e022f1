/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	pdm "github.com/allbin/go-pdm"
	"github.com/allbin/go-pdm/internal/profile"
	"github.com/spf13/cobra"
)

// applyCmd represents the apply command
var applyCmd = &cobra.Command{
	Use:   "apply <profile.yaml>",
	Short: "Apply a configuration profile to the PDM",
	Long: `Validate a YAML configuration profile and send it to the PDM one
command at a time, reporting which commands the board acknowledged.

Values missing from the profile fall back to factory defaults. A rejected
command does not stop the run; losing the link does. Settings live in RAM
until saved, pass --save to issue SAVE after a fully acknowledged run.

Example profile:
  channels:
    ch1: {overcurrent: 10, mode: latch, group: 1}
    ch2: {overcurrent: 20, inrush: 60, mode: momentary, group: 2}
  temp_warn: 65
  temp_trip: 80
  can_speed: 500

Examples:
  pdmctl apply truck.yaml --dry-run
  pdmctl apply truck.yaml --save`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := profile.Load(args[0])
		if err != nil {
			return err
		}
		commands, err := p.Commands()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		if dryRun {
			for _, c := range commands {
				fmt.Fprintln(out, c)
			}
			return nil
		}

		save, _ := cmd.Flags().GetBool("save")
		return withClient(cmd, func(ctx context.Context, client *pdm.Client) error {
			return applyProfile(ctx, out, client, commands, save)
		})
	},
}

func init() {
	rootCmd.AddCommand(applyCmd)

	applyCmd.Flags().BoolP("dry-run", "n", false, "Print the commands instead of sending them")
	applyCmd.Flags().Bool("save", false, "Send SAVE when every command was acknowledged")
}

// configDevice is the subset of pdm.Client applying a profile needs
type configDevice interface {
	profile.ConfigSender
	SaveConfiguration(ctx context.Context) (bool, error)
}

// errPartialApply reports that some profile commands were not acknowledged
var errPartialApply = errors.New("profile not fully applied")

func applyProfile(ctx context.Context, w io.Writer, dev configDevice, commands []string, save bool) error {
	report := profile.Apply(ctx, dev, commands)

	for _, r := range report.Results {
		switch {
		case r.OK:
			fmt.Fprintf(w, "%s %s\n", successStyle.Render("✓"), r.Command)
		case r.Err != nil:
			fmt.Fprintf(w, "%s %s: %v\n", errorStyle.Render("✗"), r.Command, r.Err)
		default:
			fmt.Fprintf(w, "%s %s: not acknowledged\n", errorStyle.Render("✗"), r.Command)
		}
	}

	if report.Aborted {
		fmt.Fprintf(w, "%s aborted after %d of %d commands\n", errorStyle.Render("✗"), len(report.Results), report.Total)
	}
	if report.Succeeded != report.Total {
		return fmt.Errorf("%w: %s", errPartialApply, report)
	}
	fmt.Fprintf(w, "%s %s\n", successStyle.Render("✓"), report)

	if !save {
		return nil
	}
	ok, err := dev.SaveConfiguration(ctx)
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}
	if !ok {
		return fmt.Errorf("save: %w", pdm.ErrUnexpectedResponse)
	}
	fmt.Fprintf(w, "%s configuration saved\n", successStyle.Render("✓"))
	return nil
}
