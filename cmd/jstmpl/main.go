package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rainwave/jstmpl/cmd/jstmpl/internal/ui"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.Failure("%v", err))
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var rootCmd = &cobra.Command{
		Use:   "jstmpl",
		Short: "jstmpl - compile HTML templates into DOM-building JavaScript",
		Long: `jstmpl compiles Handlebars-flavored HTML templates into JavaScript
functions that build DOM nodes directly, and bundles them into one
script that registers every template on a global object.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "jstmpl.yaml", "Path to the project configuration")
	rootCmd.PersistentFlags().StringVar(&flags.cwd, "cwd", "", "Working directory of the project (defaults to current)")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Print every template as it is compiled")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if flags.cwd != "" {
			if err := os.Chdir(flags.cwd); err != nil {
				return fmt.Errorf("failed to change directory to %s: %w", flags.cwd, err)
			}
		}
		return nil
	}

	// Add commands
	rootCmd.AddCommand(newCompileCommand())
	rootCmd.AddCommand(newCheckCommand())
	rootCmd.AddCommand(newDevCommand())
	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newCacheCommand())
	return rootCmd
}
