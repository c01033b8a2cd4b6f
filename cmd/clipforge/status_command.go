package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"clipforge/internal/api"
	"clipforge/internal/apiclient"
	"clipforge/internal/jobs"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon, stage and job status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				status, err := client.Health(cmd.Context())
				if err != nil {
					return describeAPIError(err)
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, status)
				}
				printDaemonStatus(cmd, status)
				return nil
			})
		},
	}
}

func printDaemonStatus(cmd *cobra.Command, status api.DaemonStatus) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	for _, line := range renderSectionHeader("Daemon", colorize) {
		fmt.Fprintln(out, line)
	}
	if status.Workflow.Running {
		fmt.Fprintln(out, renderStatusLine("Workflow", statusOK, fmt.Sprintf("Running (pid %d)", status.PID), colorize))
	} else {
		fmt.Fprintln(out, renderStatusLine("Workflow", statusWarn, "Stopped", colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Slots", statusInfo, strconv.Itoa(status.Workflow.Slots), colorize))
	fmt.Fprintln(out, renderStatusLine("Database", statusInfo, status.DatabasePath, colorize))
	if status.Workflow.LastError != "" {
		fmt.Fprintln(out, renderStatusLine("Last error", statusError, status.Workflow.LastError, colorize))
	}

	fmt.Fprintln(out)
	for _, line := range renderSectionHeader("Dependencies", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, dep := range status.Dependencies {
		switch {
		case dep.Available:
			fmt.Fprintln(out, renderStatusLine(dep.Name, statusOK, dep.Command, colorize))
		case dep.Optional:
			fmt.Fprintln(out, renderStatusLine(dep.Name, statusWarn, dep.Detail, colorize))
		default:
			fmt.Fprintln(out, renderStatusLine(dep.Name, statusError, dep.Detail, colorize))
		}
	}

	fmt.Fprintln(out)
	for _, line := range renderSectionHeader("Stages", colorize) {
		fmt.Fprintln(out, line)
	}
	health := append([]api.StageHealth(nil), status.Workflow.StageHealth...)
	sort.Slice(health, func(i, j int) bool { return health[i].Name < health[j].Name })
	for _, stage := range health {
		kind := statusOK
		if !stage.Ready {
			kind = statusError
		}
		fmt.Fprintln(out, renderStatusLine(stage.Name, kind, stage.Detail, colorize))
	}

	if len(status.Workflow.Active) > 0 {
		fmt.Fprintln(out)
		rows := make([][]string, 0, len(status.Workflow.Active))
		for _, active := range status.Workflow.Active {
			rows = append(rows, []string{active.JobID, active.Phase, formatSeconds(active.ElapsedSeconds)})
		}
		fmt.Fprintln(out, renderTable([]string{"Job", "Phase", "Elapsed"}, rows,
			[]columnAlignment{alignLeft, alignLeft, alignRight}))
	}

	fmt.Fprintln(out)
	rows := make([][]string, 0, len(status.Workflow.JobCounts))
	for _, s := range jobs.AllStatuses() {
		count, ok := status.Workflow.JobCounts[string(s)]
		if !ok {
			continue
		}
		rows = append(rows, []string{colorStatus(string(s), colorize), strconv.Itoa(count)})
	}
	fmt.Fprintln(out, renderTable([]string{"Status", "Jobs"}, rows, []columnAlignment{alignLeft, alignRight}))
}
