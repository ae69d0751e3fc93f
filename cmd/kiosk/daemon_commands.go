package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"kiosk/internal/daemonctl"
)

const (
	startTimeout = 10 * time.Second
	stopGrace    = 10 * time.Second
	probeTimeout = 2 * time.Second
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newStartCommand(ctx),
		newStopCommand(ctx),
	}
}

func newStartCommand(ctx *commandContext) *cobra.Command {
	var logLevel string
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the kiosk daemon in the background",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			probeCtx, cancel := context.WithTimeout(cmd.Context(), probeTimeout)
			health, err := client.Health(probeCtx)
			cancel()
			if err == nil {
				fmt.Fprintf(out, "Daemon already running (pid %d)\n", health.PID)
				return nil
			}

			exe, err := os.Executable()
			if err != nil {
				return fmt.Errorf("resolve executable: %w", err)
			}
			if err := daemonctl.Launch(exe, daemonctl.LaunchOptions{
				ConfigPath: ctx.launchConfigPath(),
				LogLevel:   logLevel,
			}); err != nil {
				return err
			}
			health, err = daemonctl.WaitForHealthy(cmd.Context(), client, startTimeout)
			if err != nil {
				cfg, _ := ctx.ensureConfig()
				return fmt.Errorf("%w (see %s)", err, cfg.LogPath())
			}
			fmt.Fprintf(out, "Daemon started (pid %d)\n", health.PID)
			return nil
		},
	}
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override logging.level for the daemon")
	return cmd
}

func newStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the background kiosk daemon",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			result, err := daemonctl.Stop(cmd.Context(), cfg.PIDPath(), stopGrace)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(out, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if result.Forced {
				fmt.Fprintf(out, "Daemon (pid %d) did not exit in %s and was killed\n", result.PID, stopGrace)
				return nil
			}
			fmt.Fprintf(out, "Daemon stopped (pid %d)\n", result.PID)
			return nil
		},
	}
}

// launchConfigPath returns the config file the background daemon should
// load, so it matches the one this CLI invocation resolved.
func (c *commandContext) launchConfigPath() string {
	if c.configFlag != nil && strings.TrimSpace(*c.configFlag) != "" {
		return c.configPath
	}
	if _, err := os.Stat(c.configPath); err == nil {
		return c.configPath
	}
	return ""
}
