package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stewardhq/steward/internal/config"
	"github.com/stewardhq/steward/internal/gitops"
	"github.com/stewardhq/steward/internal/revival"
)

// NewReviveCheckCmd creates the 'revive-check' command that inspects a
// project for unfinished session work.
func NewReviveCheckCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "revive-check <project-key>",
		Short: "Scan a project for unfinished session branches",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			project, ok := cfg.Projects[args[0]]
			if !ok {
				return fmt.Errorf("unknown project %q", args[0])
			}

			detector := revival.NewDetector(gitops.NewCoordinator())
			info, err := detector.Check(cmd.Context(), args[0], project.WorkingDir, 0)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if info == nil {
				fmt.Fprintln(out, "Nothing to revive.")
				return nil
			}

			fmt.Fprintf(out, "Unfinished work in %s:\n", info.WorkingDir)
			for _, b := range info.Branches {
				fmt.Fprintf(out, "  branch %s\n", b)
			}
			if info.HasUncommittedChanges {
				fmt.Fprintln(out, "  uncommitted changes present")
			}
			if info.PlanPreview != "" {
				fmt.Fprintf(out, "  active plan: %s\n", truncateCell(info.PlanPreview, 120))
			}
			return nil
		},
	}
}
