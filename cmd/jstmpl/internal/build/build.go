// Package build turns a project's template directories into one bundle.
// The compile, check and dev commands all share this pipeline.
package build

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/natefinch/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/rainwave/jstmpl/cmd/jstmpl/internal/config"
	"github.com/rainwave/jstmpl/internal/cache"
	"github.com/rainwave/jstmpl/pkg/template"
)

// Builder runs the load, compile and bundle steps for one configuration.
type Builder struct {
	cfg   *config.Config
	cache *cache.Cache
	// Progress, when set, receives one line per template.
	Progress func(format string, args ...any)
}

// Result is the outcome of one build. Bundle only holds the units that
// compiled; a build with errors must not be written.
type Result struct {
	Bundle   *template.Bundle
	Errors   *template.ErrorList
	Sources  []template.Source
	Compiled int
	Cached   int
	Duration time.Duration
}

// OK reports whether every template compiled.
func (r *Result) OK() bool {
	return r.Errors.Len() == 0
}

// New returns a builder. c may be nil to disable caching.
func New(cfg *config.Config, c *cache.Cache) *Builder {
	return &Builder{cfg: cfg, cache: c}
}

// Dirs returns the template directories the builder reads.
func (b *Builder) Dirs() []string {
	return b.cfg.Templates.Dirs
}

// Load reads every template from the configured directories, in directory
// order and then lexical order.
func (b *Builder) Load() ([]template.Source, error) {
	var all []template.Source
	for _, dir := range b.cfg.Templates.Dirs {
		info, err := os.Stat(dir)
		if err != nil {
			return nil, fmt.Errorf("template directory: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("template directory %s is not a directory", dir)
		}
		sources, err := template.Load(os.DirFS(dir), b.cfg.Templates.Extensions...)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", dir, err)
		}
		for i := range sources {
			sources[i].Path = filepath.Join(dir, filepath.FromSlash(sources[i].Path))
		}
		all = append(all, sources...)
	}
	return all, nil
}

// Build loads and compiles every template. Templates compile concurrently;
// a failing template is recorded in the result and does not stop the
// others. The returned error is only set when sources cannot be read or
// ctx is done.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	start := time.Now()
	sources, err := b.Load()
	if err != nil {
		return nil, err
	}

	opts := b.cfg.Options()
	units := make([]*template.Unit, len(sources))
	errs := make([]error, len(sources))
	hits := make([]bool, len(sources))
	keys := make([]string, len(sources))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, src := range sources {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			keys[i] = cache.Key(opts, src.Name, src.Text)
			if b.cache != nil {
				if u, ok := b.cache.Get(keys[i]); ok {
					units[i], hits[i] = u, true
					return nil
				}
			}
			u, err := template.Compile(src.Name, src.Text, opts)
			if err != nil {
				errs[i] = err
				return nil
			}
			units[i] = u
			if b.cache != nil {
				if err := b.cache.Put(keys[i], u); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{
		Bundle:  template.NewBundle(opts),
		Errors:  &template.ErrorList{},
		Sources: sources,
	}
	live := make(map[string]bool, len(sources))
	for i, src := range sources {
		live[keys[i]] = true
		if errs[i] != nil {
			res.Errors.Add(src.Name, errs[i])
			b.progress("  ✗ %s", src.Path)
			continue
		}
		if err := res.Bundle.Add(units[i]); err != nil {
			res.Errors.Add(src.Name, err)
			b.progress("  ✗ %s", src.Path)
			continue
		}
		if hits[i] {
			res.Cached++
			b.progress("  · %s (cached)", src.Path)
		} else {
			res.Compiled++
			b.progress("  ✓ %s", src.Path)
		}
	}

	if b.cache != nil {
		b.cache.Prune(live)
		if err := b.cache.Flush(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}
	res.Duration = time.Since(start)
	return res, nil
}

func (b *Builder) progress(format string, args ...any) {
	if b.Progress != nil {
		b.Progress(format, args...)
	}
}

// Sizes describes a written bundle.
type Sizes struct {
	Raw  int64
	Gzip int64
}

// Write renders the bundle to path atomically, creating parent directories.
func Write(bundle *template.Bundle, path string) (Sizes, error) {
	var buf bytes.Buffer
	if _, err := bundle.WriteTo(&buf); err != nil {
		return Sizes{}, err
	}
	sizes := Sizes{Raw: int64(buf.Len()), Gzip: gzippedSize(buf.Bytes())}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return Sizes{}, fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := atomic.WriteFile(path, &buf); err != nil {
		return Sizes{}, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return sizes, nil
}

func gzippedSize(content []byte) int64 {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	gz.Write(content)
	gz.Close()
	return int64(buf.Len())
}

// IsTemplate reports whether path has one of the configured template
// extensions.
func (b *Builder) IsTemplate(path string) bool {
	ext := filepath.Ext(path)
	for _, want := range b.cfg.Templates.Extensions {
		if strings.EqualFold(ext, want) {
			return true
		}
	}
	return false
}
