package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rainwave/jstmpl/cmd/jstmpl/internal/build"
	"github.com/rainwave/jstmpl/cmd/jstmpl/internal/devserver"
	"github.com/rainwave/jstmpl/cmd/jstmpl/internal/ui"
)

func newCompileCommand() *cobra.Command {
	var output string
	var watch bool
	var noCache bool

	cmd := &cobra.Command{
		Use:   "compile [template dirs...]",
		Short: "Compile templates into a bundle",
		Long: `Compiles every template into one JavaScript bundle. If any template fails,
all diagnostics are printed and no output is written.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadProject(args)
			if err != nil {
				return err
			}
			if output != "" {
				cfg.Output = output
			}
			c := openCache(cfg, noCache)
			if c != nil {
				defer c.Close()
			}
			b := newBuilder(cfg, c, cmd.OutOrStdout())

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			err = runCompile(ctx, cmd, b, cfg.Output)
			if !watch {
				return err
			}
			if err != nil {
				log.Printf("❌ %v", err)
			}
			log.Printf("👀 Watching %v for changes...", b.Dirs())
			return devserver.Watch(ctx, b, cfg.Dev.Debounce, func() {
				if err := runCompile(ctx, cmd, b, cfg.Output); err != nil {
					log.Printf("❌ %v", err)
				}
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Bundle path (overrides the configured output)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Recompile when templates change")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Compile every template, ignoring the cache")

	return cmd
}

func runCompile(ctx context.Context, cmd *cobra.Command, b *build.Builder, output string) error {
	res, err := b.Build(ctx)
	if err != nil {
		return err
	}
	printDiagnostics(cmd.ErrOrStderr(), res)
	if !res.OK() {
		return fmt.Errorf("%w, %s not written", failedError(res), output)
	}

	sizes, err := build.Write(res.Bundle, output)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), ui.Success("Compiled %d template(s) (%d cached) → %s  %s  %s",
		res.Bundle.Len(), res.Cached, output, ui.FormatSizes(sizes.Raw, sizes.Gzip),
		ui.Muted(res.Duration.Round(time.Millisecond).String())))
	return nil
}
