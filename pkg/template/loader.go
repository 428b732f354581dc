package template

import (
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"
	"time"
)

// DefaultExtensions are the file extensions Load collects when none are
// given.
var DefaultExtensions = []string{".hbs", ".html"}

// Source is one template file read from a filesystem.
type Source struct {
	Name    string // registry name derived from Path
	Path    string // slash-separated path inside the filesystem
	Text    string
	ModTime time.Time
}

// Load walks fsys in lexical order and reads every file whose extension is
// one of exts, compared case-insensitively. Two files that map to the same
// name are an error.
func Load(fsys fs.FS, exts ...string) ([]Source, error) {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	want := make([]string, len(exts))
	for i, ext := range exts {
		want[i] = strings.ToLower(ext)
	}

	var sources []Source
	seen := make(map[string]string)
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !slices.Contains(want, strings.ToLower(path.Ext(p))) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		raw, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		name := NameFromPath(p)
		if prev, ok := seen[name]; ok {
			return &Error{
				Kind:     ErrDuplicateTemplate,
				Template: name,
				Message:  fmt.Sprintf("%s and %s both map to template %s", prev, p, name),
			}
		}
		seen[name] = p
		sources = append(sources, Source{
			Name:    name,
			Path:    p,
			Text:    string(raw),
			ModTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sources, nil
}

// NameFromPath derives a registry name from a slash path: the extension is
// dropped and '/', '-' and '.' become '_'. "song/rating-bar.hbs" is
// "song_rating_bar".
func NameFromPath(p string) string {
	p = strings.TrimPrefix(p, "./")
	p = strings.TrimSuffix(p, path.Ext(p))
	return strings.NewReplacer("/", "_", "-", "_", ".", "_").Replace(p)
}
