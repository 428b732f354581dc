package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rainwave/jstmpl/cmd/jstmpl/internal/ui"
)

func newCheckCommand() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "check [template dirs...]",
		Short: "Report template errors without writing a bundle",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadProject(args)
			if err != nil {
				return err
			}
			b := newBuilder(cfg, nil, cmd.OutOrStdout())
			res, err := b.Build(cmd.Context())
			if err != nil {
				return err
			}

			warnings := printDiagnostics(cmd.ErrOrStderr(), res)
			if !res.OK() {
				return failedError(res)
			}
			if strict && warnings > 0 {
				return fmt.Errorf("%d unknown template reference(s)", warnings)
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Success("%d template(s) OK", res.Bundle.Len()))
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Treat references to unknown templates as errors")
	return cmd
}
