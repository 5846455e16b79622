package app

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/agentstation/taxmap/cmd/taxmap/cmd/run"
	"github.com/agentstation/taxmap/cmd/taxmap/cmd/states"
)

// CreateRunCommand creates the run command with app dependencies.
// Config-file and env values become flag defaults; explicit flags win.
func (a *App) CreateRunCommand() *cobra.Command {
	return run.NewCommand(a, run.Defaults{
		APEXFile:            a.config.APEXFile,
		CommandFile:         a.config.CommandFile,
		EditsFile:           a.config.EditsFile,
		OutputDir:           a.config.OutputDir,
		ExcludedChangeTypes: a.config.ExcludedChangeTypes,
	})
}

// CreateStatesCommand creates the states command with app dependencies.
func (a *App) CreateStatesCommand() *cobra.Command {
	return states.NewCommand(a)
}

// CreateVersionCommand creates the version command.
func (a *App) CreateVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Show version information for the taxmap CLI.`,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("taxmap version %s\n", a.version)
			fmt.Printf("commit: %s\n", a.commit)
			fmt.Printf("built: %s\n", a.date)
			fmt.Printf("built by: %s\n", a.builtBy)
			fmt.Printf("go version: %s\n", runtime.Version())
			fmt.Printf("platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
