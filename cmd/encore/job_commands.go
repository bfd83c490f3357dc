package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"encore/internal/api"
)

const waitPollInterval = time.Second

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var wait bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "submit <file>",
		Short: "Upload a song and start separation and transcription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			file, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open %s: %w", path, err)
			}
			defer file.Close()

			return ctx.withClient(func(client *api.Client) error {
				resp, err := client.SubmitJob(cmd.Context(), filepath.Base(path), file)
				if err != nil {
					return err
				}
				if !wait {
					if asJSON {
						return writeJSON(cmd, resp)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Submitted job %s\n", resp.ID)
					return nil
				}
				job, err := waitForJob(cmd.Context(), client, resp.ID, func(job api.Job) {
					if !asJSON {
						fmt.Fprintf(cmd.ErrOrStderr(), "\r%s %3d%%", resp.ID, job.Progress)
					}
				})
				if !asJSON {
					fmt.Fprintln(cmd.ErrOrStderr())
				}
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, job)
				}
				printJob(cmd, job)
				if job.Status == "error" {
					return fmt.Errorf("job %s failed: %s", job.ID, job.Error)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Wait for the job to finish")
	addJSONFlag(cmd, &asJSON)
	return cmd
}

// waitForJob polls until the job leaves processing.
func waitForJob(ctx context.Context, client *api.Client, id string, onPoll func(api.Job)) (api.Job, error) {
	ticker := time.NewTicker(waitPollInterval)
	defer ticker.Stop()
	for {
		job, err := client.Job(ctx, id)
		if err != nil {
			return api.Job{}, err
		}
		if onPoll != nil {
			onPoll(job)
		}
		if job.Status != "processing" {
			return job, nil
		}
		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-ticker.C:
		}
	}
}

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "List your jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				jobs, err := client.Jobs(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					if jobs == nil {
						jobs = []api.Job{}
					}
					return writeJSON(cmd, jobs)
				}
				out := cmd.OutOrStdout()
				if len(jobs) == 0 {
					fmt.Fprintln(out, "No jobs")
					return nil
				}
				fmt.Fprintln(out, renderJobTable(jobs, shouldColorize(out)))
				return nil
			})
		},
	}
	addJSONFlag(jobsCmd, &asJSON)

	jobsCmd.AddCommand(newJobShowCommand(ctx))
	jobsCmd.AddCommand(newJobRemoveCommand(ctx))
	return jobsCmd
}

func newJobShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one job with its lyrics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				job, err := client.Job(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, job)
				}
				printJob(cmd, job)
				return nil
			})
		},
	}
	addJSONFlag(cmd, &asJSON)
	return cmd
}

func newJobRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>...",
		Aliases: []string{"remove"},
		Short:   "Delete finished jobs and their files",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				for _, id := range args {
					if err := client.DeleteJob(cmd.Context(), id); err != nil {
						return fmt.Errorf("delete job %s: %w", id, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Deleted job %s\n", id)
				}
				return nil
			})
		},
	}
}

func renderJobTable(jobs []api.Job, colorize bool) string {
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		detail := job.Error
		if job.Status == "ready" {
			detail = fmt.Sprintf("%d lyric lines", len(job.Lyrics))
		}
		rows = append(rows, []string{
			job.ID,
			job.Title,
			colorizeCell(jobStatusLabel(job.Status), jobStatusKind(job.Status), colorize),
			strconv.Itoa(job.Progress) + "%",
			formatTimestamp(job.CreatedAt),
			detail,
		})
	}
	return renderTable(
		[]string{"ID", "Title", "Status", "Progress", "Created", "Detail"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
	)
}

func printJob(cmd *cobra.Command, job api.Job) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	for _, line := range renderSectionHeader(job.Title, colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderStatusLine("Job", statusInfo, job.ID, colorize))
	fmt.Fprintln(out, renderStatusLine("Status", jobStatusKind(job.Status),
		fmt.Sprintf("%s (%d%%)", jobStatusLabel(job.Status), job.Progress), colorize))
	if job.Error != "" {
		fmt.Fprintln(out, renderStatusLine("Error", statusError, job.Error, colorize))
	}
	if job.InstrumentalURL != "" {
		fmt.Fprintln(out, renderStatusLine("Instrumental", statusInfo, job.InstrumentalURL, colorize))
	}
	if len(job.Lyrics) == 0 {
		return
	}
	fmt.Fprintln(out)
	for _, line := range renderSectionHeader("Lyrics", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, seg := range job.Lyrics {
		fmt.Fprintf(out, "[%s -> %s] %s\n", formatOffset(seg.Start), formatOffset(seg.End), strings.TrimSpace(seg.Text))
	}
}

// formatOffset renders seconds as m:ss.cc.
func formatOffset(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	centis := int64(seconds*100 + 0.5)
	return fmt.Sprintf("%d:%02d.%02d", centis/6000, (centis/100)%60, centis%100)
}

func formatTimestamp(value string) string {
	if value == "" {
		return "-"
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return value
	}
	return t.Local().Format("2006-01-02 15:04")
}
