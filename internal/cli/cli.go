// Package cli implements the steward command-line interface.
package cli

import (
	"github.com/spf13/cobra"
)

// App represents the CLI application with all wired dependencies
type App struct {
	rootCmd *cobra.Command

	// configPath is the steward.yaml location, settable via --config
	configPath string
	verbose    bool

	// Version information
	version string
	commit  string
	date    string
}

// New creates a new CLI application
func New() *App {
	app := &App{}
	app.setupRootCmd()
	return app
}

// Execute runs the CLI application
func (a *App) Execute() error {
	return a.rootCmd.Execute()
}

// SetVersion sets the version string for the version command
func (a *App) SetVersion(version, commit, date string) {
	a.version = version
	a.commit = commit
	a.date = date
}

// setupRootCmd configures the root Cobra command
func (a *App) setupRootCmd() {
	a.rootCmd = &cobra.Command{
		Use:   "steward",
		Short: "Multi-project agent orchestrator",
		Long: `Steward queues user requests per project, runs a coding agent
serially within each project on isolated session branches, and routes the
agent's output back to the originating chat.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	a.rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "steward.yaml",
		"Path to configuration file")
	a.rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false,
		"Verbose output")

	a.rootCmd.AddCommand(
		NewServeCmd(a),
		NewStatusCmd(a),
		NewFlushStuckCmd(a),
		NewFlushJobCmd(a),
		NewReviveCheckCmd(a),
		NewWatchCmd(a),
		NewVersionCmd(a),
	)
}
