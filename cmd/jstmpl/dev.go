package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rainwave/jstmpl/cmd/jstmpl/internal/devserver"
)

func newDevCommand() *cobra.Command {
	var port int
	var host string
	var static string

	cmd := &cobra.Command{
		Use:   "dev [template dirs...]",
		Short: "Start the development server",
		Long: `Serves the bundle at /templates.js, rebuilds it when templates change, and
reloads pages that include /jstmpl/live.js.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadProject(args)
			if err != nil {
				return err
			}

			// CLI takes precedence over the config file
			if cmd.Flags().Changed("port") {
				cfg.Dev.Port = port
			}
			if cmd.Flags().Changed("host") {
				cfg.Dev.Host = host
			}
			if static != "" {
				cfg.Dev.Static = static
			}

			c := openCache(cfg, false)
			if c != nil {
				defer c.Close()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return devserver.New(cfg, newBuilder(cfg, c, cmd.OutOrStdout())).Run(ctx)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "Port to run the dev server on")
	cmd.Flags().StringVarP(&host, "host", "H", "localhost", "Host to bind the dev server to")
	cmd.Flags().StringVar(&static, "static", "", "Directory served at / next to the bundle")

	return cmd
}
