package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/stewardhq/steward/internal/config"
	"github.com/stewardhq/steward/internal/orchestrator"
)

// NewServeCmd creates the 'serve' command that runs the orchestrator daemon
func NewServeCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the orchestrator",
		Long: `Run the orchestrator: recover interrupted jobs, start workers for
projects with backlog, and keep the health monitor sweeping until
interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(),
				os.Interrupt, syscall.SIGTERM)
			defer cancel()

			orch, err := orchestrator.New(ctx, cfg)
			if err != nil {
				return err
			}
			if err := orch.Start(ctx); err != nil {
				orch.Close(context.Background())
				return err
			}
			slog.Info("steward running", "db", cfg.DBPath, "projects", len(cfg.Projects))

			<-ctx.Done()
			slog.Info("shutting down")
			return orch.Close(context.Background())
		},
	}
}
