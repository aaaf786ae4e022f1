/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	pdm "github.com/allbin/go-pdm"
	"github.com/spf13/cobra"
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send [command...]",
	Short: "Send raw commands to the PDM and print the responses",
	Long: `Send one or more console commands and print each response line.

Commands can be provided as:
- Arguments: pdmctl send OC 1 15
- From stdin (pipe), one command per line: cat commands.txt | pdmctl send
- Interactive mode: pdmctl send (prompts for a command)

Lines starting with # and blank lines in piped input are skipped.

Example usage:
  pdmctl send STATUS
  pdmctl send MODE 2 MOMENTARY
  printf 'OC 1 10\nSAVE\n' | pdmctl send`,
	RunE: func(cmd *cobra.Command, args []string) error {
		commands, err := readCommands(args, cmd.InOrStdin())
		if err != nil {
			return err
		}
		if len(commands) == 0 {
			return fmt.Errorf("nothing to send: %w", pdm.ErrInvalidCommand)
		}

		return withClient(cmd, func(ctx context.Context, client *pdm.Client) error {
			return sendCommands(ctx, cmd.OutOrStdout(), client, commands)
		})
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
}

// commandSender is the subset of pdm.Client the send command needs
type commandSender interface {
	SendCommand(ctx context.Context, text string) (string, error)
}

func sendCommands(ctx context.Context, w io.Writer, client commandSender, commands []string) error {
	var failed int
	for _, text := range commands {
		fmt.Fprintf(w, "%s %s\n", infoStyle.Render("📤"), text)
		resp, err := client.SendCommand(ctx, text)
		if err != nil {
			fmt.Fprintf(w, "%s %v\n", errorStyle.Render("✗"), err)
			failed++
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}
		fmt.Fprintf(w, "%s %s\n", successStyle.Render("✓"), resp)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d commands failed", failed, len(commands))
	}
	return nil
}

// readCommands takes the command from args, else one per line from a
// piped stdin, else prompts for one
func readCommands(args []string, stdin io.Reader) ([]string, error) {
	if len(args) > 0 {
		return []string{strings.Join(args, " ")}, nil
	}

	if f, ok := stdin.(*os.File); ok {
		stat, err := f.Stat()
		if err != nil || (stat.Mode()&os.ModeCharDevice) != 0 {
			if text := promptForCommand(stdin); text != "" {
				return []string{text}, nil
			}
			return nil, nil
		}
	}

	var commands []string
	scanner := bufio.NewScanner(stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		commands = append(commands, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading stdin: %w", err)
	}
	return commands, nil
}

func promptForCommand(stdin io.Reader) string {
	fmt.Print(infoStyle.Render("Enter command to send: "))

	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text())
	}
	return ""
}
