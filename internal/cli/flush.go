package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stewardhq/steward/internal/config"
	"github.com/stewardhq/steward/internal/store"
)

// NewFlushStuckCmd creates the 'flush-stuck' command that requeues every
// running job. Use when the daemon died without cleanup.
func NewFlushStuckCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "flush-stuck",
		Short: "Requeue all running jobs as pending",
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
			total := 0
			for _, project := range projects {
				n, err := db.ResetRunning(project)
				if err != nil {
					return fmt.Errorf("reset %s: %w", project, err)
				}
				total += n
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Requeued %d jobs.\n", total)
			return nil
		},
	}
}

// NewFlushJobCmd creates the 'flush-job' command that deletes one job by ID.
func NewFlushJobCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "flush-job <job-id>",
		Short: "Delete a single job from the queue",
		Args:  cobra.ExactArgs(1),
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

			j, err := db.GetJob(args[0])
			if err != nil {
				return err
			}
			if j == nil {
				return fmt.Errorf("no job with id %s", args[0])
			}
			if err := db.DeleteJob(j.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s (%s, %s).\n",
				j.ID, j.ProjectKey, j.Status)
			return nil
		},
	}
}
