package cli

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/stewardhq/steward/internal/cli/tui"
	"github.com/stewardhq/steward/internal/config"
	"github.com/stewardhq/steward/internal/job"
	"github.com/stewardhq/steward/internal/store"
)

// NewWatchCmd creates the 'watch' command: a live terminal view of every
// project queue, refreshed from the store.
func NewWatchCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch project queues in a live terminal view",
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

			model := tui.NewModel(func() ([]tui.ProjectRow, error) {
				return loadSnapshot(db)
			})
			_, err = tea.NewProgram(model).Run()
			return err
		},
	}
}

// loadSnapshot reads every project's queue state for the watch view. Worker
// liveness is approximated from job state since watch runs out of process:
// a running job implies a worker.
func loadSnapshot(db *store.DB) ([]tui.ProjectRow, error) {
	projects, err := db.ListProjects()
	if err != nil {
		return nil, err
	}
	rows := make([]tui.ProjectRow, 0, len(projects))
	for _, key := range projects {
		row := tui.ProjectRow{Key: key}
		depth, err := db.QueueDepth(key)
		if err != nil {
			return nil, err
		}
		row.Depth = depth
		for _, status := range []job.Status{job.StatusRunning, job.StatusPending} {
			jobs, err := db.ListJobs(key, status)
			if err != nil {
				return nil, err
			}
			for _, j := range jobs {
				age, known := j.Age(time.Now())
				row.Jobs = append(row.Jobs, tui.JobRow{
					ID:          j.ID,
					Status:      string(j.Status),
					Priority:    string(j.Priority),
					Age:         age,
					AgeKnown:    known,
					MessageText: j.MessageText,
				})
				if j.Status == job.StatusRunning {
					row.WorkerAlive = true
				}
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
