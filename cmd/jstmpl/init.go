package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rainwave/jstmpl/cmd/jstmpl/internal/config"
	"github.com/rainwave/jstmpl/cmd/jstmpl/internal/ui"
)

func newInitCommand() *cobra.Command {
	var interactive bool
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a jstmpl.yaml for this project",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := flags.configPath
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite it", path)
			}

			cfg := config.DefaultConfig()
			if interactive {
				var err error
				if cfg, err = ui.RunInitForm(cfg); err != nil {
					return err
				}
			}
			if err := config.Save(cfg, path); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), ui.Success("Wrote %s", path))
			for _, dir := range cfg.Templates.Dirs {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					fmt.Fprintln(cmd.OutOrStdout(), ui.Muted(fmt.Sprintf("  create %s/ and add templates, then run jstmpl compile", dir)))
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Fill in the configuration with a form")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing configuration")
	return cmd
}
