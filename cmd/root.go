/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	pdm "github.com/allbin/go-pdm"
	"github.com/allbin/go-pdm/internal/logging"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("99")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("40")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)
)

var cfgFile string

// availablePorts is swapped out in tests
var availablePorts = pdm.AvailablePorts

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pdmctl",
	Short: "Configure and monitor a PDM over its USB serial link",
	Long: `pdmctl talks to a 4-channel power distribution module over its serial
console at 115200 baud, 8N1.

Settings are read from flags, PDM_* environment variables and an optional
pdmctl.yaml in the working directory or the user config directory:

  port: /dev/ttyACM0
  log:
    level: info
    file: ~/.cache/pdmctl/pdmctl.log
  timeouts:
    command: 3s
    settle: 2s

When no port is configured and exactly one serial port is present, that
port is used.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}
		return logging.Setup(logging.Options{
			Level: viper.GetString("log.level"),
			File:  viper.GetString("log.file"),
		})
	},
}

// Execute adds all child commands to the root command and runs it. ctx is
// cancelled on interrupt.
func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("✗ "+err.Error()))
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default ./pdmctl.yaml or <user config dir>/pdmctl/pdmctl.yaml)")
	pf.StringP("port", "p", "", "serial port of the PDM, e.g. /dev/ttyACM0")
	pf.String("log-level", "warn", "log level: trace, debug, info, warn, error")
	pf.String("log-file", "", "also write logs to this rotating file")
	pf.Duration("timeout", 3*time.Second, "how long to wait for a command response")
	pf.Duration("settle", 2*time.Second, "delay after opening the port before talking to the board")

	for key, flag := range map[string]string{
		"port":             "port",
		"log.level":        "log-level",
		"log.file":         "log-file",
		"timeouts.command": "timeout",
		"timeouts.settle":  "settle",
	} {
		if err := viper.BindPFlag(key, pf.Lookup(flag)); err != nil {
			panic(err)
		}
	}
}

// loadConfig wires env vars and the optional config file into viper
func loadConfig() error {
	viper.SetEnvPrefix("PDM")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("pdmctl")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			viper.AddConfigPath(filepath.Join(dir, "pdmctl"))
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	log.Debug().Str("file", viper.ConfigFileUsed()).Msg("loaded config")
	return nil
}

// resolvePort returns the configured port, or the only port on the host
func resolvePort(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}

	ports, err := availablePorts()
	if err != nil {
		return "", fmt.Errorf("listing ports: %w", err)
	}
	switch len(ports) {
	case 0:
		return "", fmt.Errorf("no serial ports found: %w", pdm.ErrDeviceNotFound)
	case 1:
		return ports[0], nil
	default:
		return "", fmt.Errorf("several serial ports found (%s), pick one with --port", strings.Join(ports, ", "))
	}
}

// newClient builds a client from the command line settings
func newClient(opts ...pdm.Option) (*pdm.Client, error) {
	base := []pdm.Option{
		pdm.WithCommandTimeout(viper.GetDuration("timeouts.command")),
		pdm.WithSettleDelay(viper.GetDuration("timeouts.settle")),
		pdm.WithLogger(log.Logger),
	}
	return pdm.New(append(base, opts...)...)
}

// connectClient opens the configured port; the caller must Disconnect
func connectClient(ctx context.Context, w io.Writer, opts ...pdm.Option) (*pdm.Client, error) {
	port, err := resolvePort(viper.GetString("port"))
	if err != nil {
		return nil, err
	}

	client, err := newClient(opts...)
	if err != nil {
		return nil, err
	}

	fmt.Fprintf(w, "%s Opening %s...\n", infoStyle.Render("⚡"), port)
	if err := client.Connect(ctx, port); err != nil {
		return nil, err
	}
	fmt.Fprintf(w, "%s Connected\n", successStyle.Render("✓"))
	return client, nil
}

// withClient connects, runs fn and always disconnects
func withClient(cmd *cobra.Command, fn func(ctx context.Context, client *pdm.Client) error, opts ...pdm.Option) error {
	ctx := cmd.Context()
	client, err := connectClient(ctx, cmd.ErrOrStderr(), opts...)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Disconnect(); err != nil {
			log.Warn().Err(err).Msg("disconnect")
		}
	}()
	return fn(ctx, client)
}
