package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/rainwave/jstmpl/cmd/jstmpl/internal/ui"
	"github.com/rainwave/jstmpl/internal/cache"
)

func newCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the compiled template cache",
	}

	open := func() (*cache.Cache, error) {
		cfg, err := loadProject(nil)
		if err != nil {
			return nil, err
		}
		return cache.New(cache.Config{Dir: cfg.Cache.Dir, MaxEntries: cfg.Cache.MaxEntries})
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show cache size",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := open()
			if err != nil {
				return err
			}
			defer c.Close()
			st := c.GetStats()
			fmt.Fprintf(cmd.OutOrStdout(), "%s unit(s), %s\n", humanize.Comma(int64(st.Entries)), humanize.Bytes(uint64(st.TotalSize)))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove every cached unit",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := open()
			if err != nil {
				return err
			}
			if err := c.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Success("Cache cleared"))
			return nil
		},
	})

	return cmd
}
