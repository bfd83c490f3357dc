package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"encore/internal/api"
	"encore/internal/deps"
	"encore/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, dependency, and storage status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			name, err := ctx.userName()
			if err != nil {
				name = ""
			}

			var status api.DaemonStatus
			client, err := api.NewClient(cfg.Paths.APIBind, cfg.Paths.APIToken, name)
			if err == nil {
				status, err = client.Status(cmd.Context())
			}
			switch {
			case err == nil:
			case api.IsAPIUnavailable(err):
				// Report what can be checked locally.
				status = api.DaemonStatus{
					StorageRoot:  cfg.Paths.StorageRoot,
					DatabasePath: cfg.DatabasePath(),
					LockFilePath: cfg.LockPath(),
					Dependencies: api.FromDependencies(deps.Check(cfg)),
					Checks:       api.FromPreflight(preflight.RunAll(cfg)),
				}
			default:
				return err
			}

			if asJSON {
				return writeJSON(cmd, status)
			}
			out := cmd.OutOrStdout()
			printStatus(out, cfg.Paths.APIBind, status, shouldColorize(out))
			return nil
		},
	}
	addJSONFlag(cmd, &asJSON)
	return cmd
}

func printStatus(out io.Writer, bind string, status api.DaemonStatus, colorize bool) {
	for _, line := range renderSectionHeader("Daemon", colorize) {
		fmt.Fprintln(out, line)
	}
	if status.Running {
		fmt.Fprintln(out, renderStatusLine("Daemon", statusOK, fmt.Sprintf("running (pid %d) on %s", status.PID, bind), colorize))
	} else {
		fmt.Fprintln(out, renderStatusLine("Daemon", statusWarn, "not running", colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Storage", statusInfo, status.StorageRoot, colorize))
	fmt.Fprintln(out, renderStatusLine("Database", statusInfo, status.DatabasePath, colorize))
	if len(status.Jobs) > 0 {
		keys := make([]string, 0, len(status.Jobs))
		for k := range status.Jobs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintln(out, renderStatusLine(jobStatusLabel(k)+" jobs", jobStatusKind(k), fmt.Sprintf("%d", status.Jobs[k]), colorize))
		}
	}

	fmt.Fprintln(out)
	for _, line := range renderSectionHeader("Dependencies", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, dep := range status.Dependencies {
		kind := statusOK
		message := dep.Command
		if !dep.Available {
			kind = statusError
			if dep.Optional {
				kind = statusWarn
			}
			message = dep.Detail
		}
		fmt.Fprintln(out, renderStatusLine(dep.Name, kind, message, colorize))
	}

	fmt.Fprintln(out)
	for _, line := range renderSectionHeader("Storage checks", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, check := range status.Checks {
		kind := statusOK
		if !check.Passed {
			kind = statusError
		}
		fmt.Fprintln(out, renderStatusLine(check.Name, kind, check.Detail, colorize))
	}
}
