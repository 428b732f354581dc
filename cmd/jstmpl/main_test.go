package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rainwave/jstmpl/cmd/jstmpl/internal/config"
)

type project struct {
	root      string
	templates string
	config    string
	output    string
}

func newProject(t *testing.T, files map[string]string) project {
	t.Helper()
	root := t.TempDir()
	p := project{
		root:      root,
		templates: filepath.Join(root, "templates"),
		config:    filepath.Join(root, config.FileName),
		output:    filepath.Join(root, "out", "templates.js"),
	}
	require.NoError(t, os.MkdirAll(p.templates, 0755))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(p.templates, name), []byte(content), 0644))
	}
	return p
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestCompileCommand(t *testing.T) {
	p := newProject(t, map[string]string{
		"row.hbs":  `<tr>{{> cell}}</tr>`,
		"cell.hbs": `<td>{{v}}</td>`,
	})
	stdout, stderr, err := run(t, "compile", "--config", p.config, "--no-cache", "-o", p.output, p.templates)
	require.NoError(t, err, stderr)
	require.Contains(t, stdout, "Compiled 2 template(s)")
	require.Contains(t, stdout, "gzip")

	data, err := os.ReadFile(p.output)
	require.NoError(t, err)
	require.Contains(t, string(data), "window.RWTemplates={")
	require.Contains(t, string(data), "row:function(_c,_p)")
}

func TestCompileCommand_FailureWritesNothing(t *testing.T) {
	p := newProject(t, map[string]string{
		"good.hbs":  `<p></p>`,
		"bad.hbs":   `<p>{{#if x}}</p>`,
		"worse.hbs": `<div></span>`,
	})
	_, stderr, err := run(t, "compile", "--config", p.config, "--no-cache", "-o", p.output, p.templates)
	require.Error(t, err)
	require.Contains(t, err.Error(), "2 of 3 template(s) failed")
	require.Contains(t, stderr, filepath.Join(p.templates, "bad.hbs"))
	require.Contains(t, stderr, filepath.Join(p.templates, "worse.hbs"))
	require.NoFileExists(t, p.output)
}

func TestCompileCommand_InvalidRegistry(t *testing.T) {
	p := newProject(t, map[string]string{"a.hbs": `<p></p>`})
	require.NoError(t, os.WriteFile(p.config, []byte("registry: rw-templates\n"), 0644))
	_, _, err := run(t, "compile", "--config", p.config, "--no-cache", "-o", p.output, p.templates)
	require.ErrorContains(t, err, "not a JavaScript identifier")
}

func TestCheckCommand(t *testing.T) {
	p := newProject(t, map[string]string{"row.hbs": `<tr>{{> missing}}</tr>`})

	stdout, stderr, err := run(t, "check", "--config", p.config, p.templates)
	require.NoError(t, err)
	require.Contains(t, stdout, "1 template(s) OK")
	require.Contains(t, stderr, "missing")

	_, _, err = run(t, "check", "--strict", "--config", p.config, p.templates)
	require.ErrorContains(t, err, "unknown template reference")
	require.NoFileExists(t, p.output)
}

func TestInitCommand(t *testing.T) {
	p := newProject(t, nil)

	stdout, _, err := run(t, "init", "--config", p.config)
	require.NoError(t, err)
	require.Contains(t, stdout, "Wrote")

	cfg, err := config.Load(p.config)
	require.NoError(t, err)
	require.Equal(t, config.DefaultConfig(), cfg)

	_, _, err = run(t, "init", "--config", p.config)
	require.ErrorContains(t, err, "already exists")

	_, _, err = run(t, "init", "--force", "--config", p.config)
	require.NoError(t, err)
}
