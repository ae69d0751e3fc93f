package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"kiosk/internal/api"
	"kiosk/internal/preflight"
)

const statusTimeout = 5 * time.Second

type statusReport struct {
	Daemon    *api.HealthResponse `json:"daemon,omitempty"`
	DaemonErr string              `json:"daemon_error,omitempty"`
	Checks    []preflight.Result  `json:"checks"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon health and environment checks",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := resolveFormat(cmd, output)
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			reqCtx, cancel := context.WithTimeout(cmd.Context(), statusTimeout)
			defer cancel()

			report := statusReport{Checks: preflight.RunAll(reqCtx, cfg)}
			client, err := ctx.client()
			if err == nil {
				report.Daemon, err = client.Health(reqCtx)
			}
			if err != nil {
				report.DaemonErr = wrapDialError(err, cfg.API.Bind).Error()
			}

			if format != formatTable {
				return writeStructured(cmd, format, report)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderSections(statusSections(report), isTerminal(cmd.OutOrStdout())))
			return nil
		},
	}
	addOutputFlag(cmd, &output)
	return cmd
}

func statusSections(report statusReport) []*statusSection {
	daemon := &statusSection{title: "Daemon"}
	if h := report.Daemon; h == nil {
		daemon.add("API", levelError, report.DaemonErr)
	} else {
		daemon.add("API", levelOK, fmt.Sprintf("%s (pid %d)", h.Status, h.PID))
		daemon.add("Uptime", levelInfo, (time.Duration(h.UptimeSeconds) * time.Second).String())
		daemon.add("Document", levelInfo, h.DocumentPath)
		daemon.add("Checksum", levelInfo, h.Checksum)
		daemon.add("Subscribers", levelInfo, fmt.Sprint(h.Subscribers))
		daemon.add("Watcher", activeLevel(h.Watching), yesNo(h.Watching))
		daemon.add("NATS relay", activeLevel(h.Relaying), yesNo(h.Relaying))
	}

	checks := &statusSection{title: "Checks"}
	for _, check := range report.Checks {
		level := levelOK
		switch {
		case !check.Passed:
			level = levelError
		case strings.Contains(check.Detail, "warning"):
			level = levelWarn
		}
		checks.add(check.Name, level, check.Detail)
	}
	return []*statusSection{daemon, checks}
}

func activeLevel(on bool) statusLevel {
	if on {
		return levelOK
	}
	return levelInfo
}
