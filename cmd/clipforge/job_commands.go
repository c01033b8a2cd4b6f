package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"clipforge/internal/api"
	"clipforge/internal/apiclient"
	"clipforge/internal/jobs"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var lengths []int
	var wait bool

	cmd := &cobra.Command{
		Use:   "submit <source-key>",
		Short: "Submit an uploaded video for analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				resp, err := client.Submit(cmd.Context(), api.SubmitRequest{
					SourceKey:   strings.TrimSpace(args[0]),
					ClipLengths: lengths,
					Wait:        wait,
				})
				if err != nil {
					return describeAPIError(err)
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Job %s %s\n", resp.JobID, resp.Status)
				if resp.Error != nil {
					fmt.Fprintf(out, "Error: %s\n", resp.Error.Message)
				}
				if len(resp.Candidates) > 0 {
					fmt.Fprintln(out, renderCandidates(resp.Candidates))
					fmt.Fprintf(out, "Render with: clipforge render %s\n", resp.JobID)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntSliceVarP(&lengths, "length", "l", []int{30}, "Target clip length in seconds (repeatable)")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Wait for analysis and print candidates")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "show <job-id>",
		Aliases: []string{"job"},
		Short:   "Show one job",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				job, err := client.Job(cmd.Context(), args[0])
				if err != nil {
					return describeAPIError(err)
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, job)
				}
				out := cmd.OutOrStdout()
				printJob(out, job, shouldColorize(out))
				return nil
			})
		},
	}
}

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var statuses []string

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := make([]jobs.Status, 0, len(statuses))
			for _, value := range statuses {
				status, ok := jobs.ParseStatus(value)
				if !ok {
					return fmt.Errorf("unknown status %q", value)
				}
				filter = append(filter, status)
			}
			return ctx.withClient(func(client *apiclient.Client) error {
				resp, err := client.List(cmd.Context(), filter...)
				if err != nil {
					return describeAPIError(err)
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				if len(resp.Jobs) == 0 {
					fmt.Fprintln(out, "No jobs")
					return nil
				}
				colorize := shouldColorize(out)
				table := make([][]string, 0, len(resp.Jobs))
				for _, job := range resp.Jobs {
					table = append(table, []string{
						job.ID,
						colorStatus(job.Status, colorize),
						strconv.Itoa(job.Progress) + "%",
						job.SourceKey,
						job.UpdatedAt,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Status", "Progress", "Source", "Updated"},
					table,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Only show jobs with these statuses")
	return cmd
}

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var soundEnhance bool

	cmd := &cobra.Command{
		Use:   "render <job-id>",
		Short: "Render the draft and final clip for an analyzed job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				resp, err := client.Render(cmd.Context(), args[0], soundEnhance)
				if err != nil {
					return describeAPIError(err)
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, resp)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Render queued for job %s\n", resp.JobID)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&soundEnhance, "sound-enhance", false, "Clean up the audio track before rendering")
	return cmd
}

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <job-id>",
		Short: "Cancel a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				resp, err := client.Cancel(cmd.Context(), args[0])
				if err != nil {
					return describeAPIError(err)
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, resp)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cancel requested for job %s\n", resp.JobID)
				return nil
			})
		},
	}
}

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <job-id>",
		Short: "Follow a job's status until it finishes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			return ctx.withClient(func(client *apiclient.Client) error {
				var last api.Job
				err := client.Events(cmd.Context(), args[0], func(job api.Job) error {
					last = job
					if ctx.jsonOutput() {
						return writeJSON(cmd, job)
					}
					line := fmt.Sprintf("%3d%% %s", job.Progress, colorStatus(job.Status, colorize))
					if job.Message != "" {
						line += "  " + job.Message
					}
					fmt.Fprintln(out, line)
					return nil
				})
				if err != nil {
					return describeAPIError(err)
				}
				if !ctx.jsonOutput() && jobs.Status(last.Status).IsTerminal() {
					printLinks(out, last)
				}
				return nil
			})
		},
	}
}

func printJob(out io.Writer, job api.Job, colorize bool) {
	for _, line := range renderSectionHeader("Job "+job.ID, colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderStatusLine("Status", jobStatusKind(job.Status), job.Status, colorize))
	fmt.Fprintln(out, renderStatusLine("Progress", statusInfo, fmt.Sprintf("%d%% %s", job.Progress, job.Message), colorize))
	fmt.Fprintln(out, renderStatusLine("Source", statusInfo, job.SourceKey, colorize))
	if job.Duration > 0 {
		fmt.Fprintln(out, renderStatusLine("Duration", statusInfo, formatSeconds(job.Duration), colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Awaiting render", statusInfo, yesNo(job.AwaitingRender), colorize))
	if job.Edit != nil && !job.Edit.Meaningful {
		fmt.Fprintln(out, renderStatusLine("Edit", statusWarn, job.Edit.Reason, colorize))
	}
	if job.Error != nil {
		msg := job.Error.Message
		if job.Error.Hint != "" {
			msg += " (" + job.Error.Hint + ")"
		}
		fmt.Fprintln(out, renderStatusLine("Error", statusError, msg, colorize))
	}
	printLinks(out, job)
	if len(job.Candidates) > 0 {
		fmt.Fprintln(out, renderCandidates(job.Candidates))
	}
}

func printLinks(out io.Writer, job api.Job) {
	if job.DraftURL != "" {
		fmt.Fprintf(out, "Draft: %s\n", job.DraftURL)
	}
	if job.FinalURL != "" {
		fmt.Fprintf(out, "Final: %s\n", job.FinalURL)
	}
}

func renderCandidates(candidates []api.Candidate) string {
	rows := make([][]string, 0, len(candidates))
	for _, c := range candidates {
		rows = append(rows, []string{
			strconv.Itoa(c.Rank),
			c.Title,
			formatSeconds(c.Start) + "-" + formatSeconds(c.End),
			strconv.Itoa(c.Length) + "s",
			strconv.FormatFloat(c.Score, 'f', 3, 64),
		})
	}
	return renderTable(
		[]string{"#", "Title", "Window", "Length", "Score"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight},
	)
}

func formatSeconds(value float64) string {
	total := int(value + 0.5)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// describeAPIError adds the daemon's hint and quota details to the message.
func describeAPIError(err error) error {
	var apiErr *apiclient.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	msg := apiErr.Error()
	if d := apiErr.Decision; d != nil {
		msg = fmt.Sprintf("%s (plan %s: %d of %d renders used)", msg, d.Plan, d.Used, d.Limit)
	}
	if apiErr.Hint != "" {
		msg += "; " + apiErr.Hint
	}
	return errors.New(msg)
}
