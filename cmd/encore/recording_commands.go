package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"encore/internal/api"
)

func newRecordCommand(ctx *commandContext) *cobra.Command {
	var jobID string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "record <file>",
		Short: "Upload a vocal take to denoise and mix over a job's instrumental",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			file, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open %s: %w", path, err)
			}
			defer file.Close()

			return ctx.withClient(func(client *api.Client) error {
				resp, err := client.SubmitRecording(cmd.Context(), filepath.Base(path), jobID, file)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Accepted recording %s\n", resp.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&jobID, "job", "j", "", "Job whose instrumental the take is mixed over")
	addJSONFlag(cmd, &asJSON)
	return cmd
}

func newRecordingsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	recordingsCmd := &cobra.Command{
		Use:   "recordings",
		Short: "List your recordings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				recordings, err := client.Recordings(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					if recordings == nil {
						recordings = []api.Recording{}
					}
					return writeJSON(cmd, recordings)
				}
				out := cmd.OutOrStdout()
				if len(recordings) == 0 {
					fmt.Fprintln(out, "No recordings")
					return nil
				}
				fmt.Fprintln(out, renderRecordingTable(recordings))
				return nil
			})
		},
	}
	addJSONFlag(recordingsCmd, &asJSON)

	recordingsCmd.AddCommand(&cobra.Command{
		Use:     "rm <id>...",
		Aliases: []string{"remove"},
		Short:   "Delete recordings and their audio",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				for _, id := range args {
					if err := client.DeleteRecording(cmd.Context(), id); err != nil {
						return fmt.Errorf("delete recording %s: %w", id, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Deleted recording %s\n", id)
				}
				return nil
			})
		},
	})
	return recordingsCmd
}

func renderRecordingTable(recordings []api.Recording) string {
	rows := make([][]string, 0, len(recordings))
	for _, rec := range recordings {
		duration := "-"
		if rec.Duration != nil {
			duration = formatOffset(*rec.Duration)
		}
		job := rec.JobID
		if job == "" {
			job = "-"
		}
		rows = append(rows, []string{rec.ID, rec.Title, rec.Filename, duration, job})
	}
	return renderTable(
		[]string{"ID", "Title", "File", "Duration", "Job"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	)
}
