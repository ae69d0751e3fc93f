package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"kiosk/internal/api"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var heartbeats bool
	var output string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print change-stream events from the running daemon",
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := resolveFormat(cmd, output)
			if err != nil {
				return err
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			out := cmd.OutOrStdout()
			colorize := isTerminal(out)
			var writeErr error
			err = client.Events(signalCtx, func(evt api.StreamEvent) {
				if evt.Type == "heartbeat" && !heartbeats {
					return
				}
				if format != formatTable {
					if err := writeJSONLine(cmd, evt); err != nil && writeErr == nil {
						writeErr = err
						cancel()
					}
					return
				}
				fmt.Fprintln(out, renderEventLine(evt, colorize))
			})
			if err != nil {
				cfg, _ := ctx.ensureConfig()
				return wrapDialError(err, cfg.API.Bind)
			}
			return writeErr
		},
	}
	cmd.Flags().BoolVar(&heartbeats, "heartbeats", false, "Include heartbeat frames")
	addOutputFlag(cmd, &output)
	return cmd
}

func renderEventLine(evt api.StreamEvent, colorize bool) string {
	entry := statusEntry{
		label:  time.Unix(evt.TS, 0).Format(time.TimeOnly) + " " + evt.Type,
		level:  levelInfo,
		detail: strings.TrimSpace(string(evt.Data)),
	}
	if evt.Type == "config_changed" {
		entry.level = levelOK
		var payload api.ConfigChangedData
		if err := evt.DecodeData(&payload); err == nil {
			entry.detail = fmt.Sprintf("groups=%s checksum=%s", strings.Join(payload.ChangedGroups, ","), shortChecksum(payload.Checksum))
		}
	}
	return entry.format(0, colorize)
}

func shortChecksum(sum string) string {
	if len(sum) > 12 {
		return sum[:12]
	}
	return sum
}
