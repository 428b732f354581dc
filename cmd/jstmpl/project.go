package main

import (
	"fmt"
	"io"
	"log"
	"maps"
	"slices"

	"github.com/rainwave/jstmpl/cmd/jstmpl/internal/build"
	"github.com/rainwave/jstmpl/cmd/jstmpl/internal/config"
	"github.com/rainwave/jstmpl/cmd/jstmpl/internal/ui"
	"github.com/rainwave/jstmpl/internal/cache"
	"github.com/rainwave/jstmpl/pkg/template"
)

type globalFlags struct {
	configPath string
	cwd        string
	verbose    bool
}

var flags globalFlags

// loadProject loads the configuration; template directories given on the
// command line replace the configured ones.
func loadProject(dirs []string) (*config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", flags.configPath, err)
	}
	if len(dirs) > 0 {
		cfg.Templates.Dirs = dirs
	}
	if !template.ValidName(cfg.Registry) {
		return nil, fmt.Errorf("registry %q is not a JavaScript identifier", cfg.Registry)
	}
	return cfg, nil
}

// openCache returns nil when caching is off or the cache cannot be opened.
func openCache(cfg *config.Config, disabled bool) *cache.Cache {
	if disabled || !cfg.CacheEnabled() {
		return nil
	}
	c, err := cache.New(cache.Config{Dir: cfg.Cache.Dir, MaxEntries: cfg.Cache.MaxEntries})
	if err != nil {
		log.Printf("⚠️  Failed to initialize build cache: %v", err)
		// Continue without cache
		return nil
	}
	return c
}

func newBuilder(cfg *config.Config, c *cache.Cache, w io.Writer) *build.Builder {
	b := build.New(cfg, c)
	if flags.verbose {
		b.Progress = func(format string, args ...any) {
			fmt.Fprintf(w, format+"\n", args...)
		}
	}
	return b
}

// printDiagnostics writes every error of res, then a warning for every
// included template that does not exist. It returns the number of
// warnings.
func printDiagnostics(w io.Writer, res *build.Result) int {
	paths := make(map[string]string, len(res.Sources))
	for _, src := range res.Sources {
		paths[src.Name] = src.Path
	}
	for _, e := range res.Errors.Errors() {
		fmt.Fprintln(w, ui.FormatError(e, paths[e.Template]))
	}

	unresolved := res.Bundle.Unresolved()
	for _, name := range slices.Sorted(maps.Keys(unresolved)) {
		for _, user := range unresolved[name] {
			fmt.Fprintln(w, ui.FormatWarning("%s includes {{> %s}}, which is not a known template", paths[user], name))
		}
	}
	return len(unresolved)
}

func failedError(res *build.Result) error {
	return fmt.Errorf("%d of %d template(s) failed to compile", res.Errors.Len(), len(res.Sources))
}
