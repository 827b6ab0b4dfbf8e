package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/stewardhq/steward/internal/config"
	"github.com/stewardhq/steward/internal/job"
	"github.com/stewardhq/steward/internal/store"
)

// NewStatusCmd creates the 'status' command showing queue state per project
func NewStatusCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queued and running jobs per project",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			db, err := store.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()

			projects, err := db.ListProjects()
			if err != nil {
				return err
			}
			if len(projects) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No jobs.")
				return nil
			}

			out := cmd.OutOrStdout()
			width := terminalWidth()
			now := time.Now()

			for _, project := range projects {
				fmt.Fprintln(out, headerStyle.Render(project))
				for _, status := range []job.Status{job.StatusRunning, job.StatusPending} {
					jobs, err := db.ListJobs(project, status)
					if err != nil {
						return err
					}
					for _, j := range jobs {
						fmt.Fprintln(out, formatJobLine(j, now, width))
					}
				}
				depth, err := db.QueueDepth(project)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "  %s\n\n", pendingStyle.Render(
					fmt.Sprintf("%d pending", depth)))
			}
			return nil
		},
	}
}

func formatJobLine(j *job.Job, now time.Time, width int) string {
	age, known := j.Age(now)
	style := pendingStyle
	if j.Status == job.StatusRunning {
		style = runningStyle
	}
	msgWidth := width - 45
	if msgWidth < 10 {
		msgWidth = 10
	}
	return fmt.Sprintf("  %s  %-8s %-4s %-7s %s",
		j.ID[:8],
		style.Render(string(j.Status)),
		j.Priority,
		FormatDuration(age, known),
		truncateCell(j.MessageText, msgWidth))
}
