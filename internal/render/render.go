// Package render writes the per-variant build files from the OS templates.
package render

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	gotemplate "text/template"

	"github.com/spf13/afero"

	"github.com/donaldgifford/containeros/internal/manifest"
	"github.com/donaldgifford/containeros/internal/resolve"
	"github.com/donaldgifford/containeros/internal/template"
)

// Default directories relative to the repository root.
const (
	DefaultTemplatesDir   = "templates"
	DefaultDockerfilesDir = "dockerfiles"
)

// FileStatus is the state of one output file relative to disk.
type FileStatus string

const (
	// StatusCreated means the file did not exist.
	StatusCreated FileStatus = "created"
	// StatusUpdated means the file existed with different content.
	StatusUpdated FileStatus = "updated"
	// StatusUnchanged means the file already matches.
	StatusUnchanged FileStatus = "unchanged"
)

// Opts configures a render pass.
type Opts struct {
	// Manifest is the validated manifest to render.
	Manifest *manifest.Manifest
	// Fs is the repository filesystem; paths below are relative to it.
	Fs afero.Fs
	// TemplatesDir holds {os}.Dockerfile.tmpl files.
	TemplatesDir string
	// OutputDir receives {os}/{version}/{engine}.Dockerfile.
	OutputDir string
	// DryRun reports what would be written without writing.
	DryRun bool
	// Check reports stale files without writing.
	Check bool
	// Writer receives dry-run lines.
	Writer io.Writer
	// Logger for debug output.
	Logger *slog.Logger
}

// FileReport is the outcome for one output file.
type FileReport struct {
	Path   string
	Ref    manifest.Ref
	Status FileStatus
}

// Result holds the outcome of a render pass.
type Result struct {
	Files []FileReport
	// Written counts files written (0 in dry-run and check mode).
	Written int
	// Stale counts files that are missing or differ.
	Stale int
}

// TemplatePath returns the template for an OS family.
func TemplatePath(dir string, o manifest.OS) string {
	return filepath.Join(dir, string(o)+".Dockerfile"+template.Ext)
}

// Run renders every declared (os, version, engine) plus every defaults entry.
// Output files are processed in path order. A missing template or a default
// pointing at an undeclared target fails the pass before anything is written.
func Run(opts *Opts) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	m := opts.Manifest

	latest, err := resolve.LatestVersions(m)
	if err != nil {
		return nil, err
	}

	templates, err := loadTemplates(template.NewRenderer(fs), opts.templatesDir(), m)
	if err != nil {
		return nil, err
	}

	outputs := make(map[string][]byte)
	refs := make(map[string]manifest.Ref)

	add := func(path string, ref manifest.Ref) error {
		content, err := renderOne(m, ref, latest, templates[ref.OS])
		if err != nil {
			return fmt.Errorf("rendering %s: %w", path, err)
		}

		outputs[path] = content
		refs[path] = ref

		return nil
	}

	for _, ot := range m.Targets {
		for _, vt := range ot.Versions {
			for _, e := range manifest.Engines {
				ref := manifest.Ref{OS: ot.OS, Version: vt.Key, Engine: e}
				if err := add(resolve.BuildFilePath(opts.outputDir(), ref), ref); err != nil {
					return nil, err
				}
			}
		}
	}

	for _, d := range m.Defaults {
		if _, ok := templates[d.OS]; !ok {
			return nil, fmt.Errorf("defaults.%s: target %s %s is not declared in the manifest", d.Path, d.OS, d.Version)
		}

		if err := add(filepath.Clean(d.Path), d.Ref); err != nil {
			return nil, fmt.Errorf("defaults.%s: %w", d.Path, err)
		}
	}

	paths := make([]string, 0, len(outputs))
	for p := range outputs {
		paths = append(paths, p)
	}

	sort.Strings(paths)

	result := &Result{Files: make([]FileReport, 0, len(paths))}

	for _, p := range paths {
		status, err := compare(fs, p, outputs[p])
		if err != nil {
			return nil, err
		}

		result.Files = append(result.Files, FileReport{Path: p, Ref: refs[p], Status: status})

		if status == StatusUnchanged {
			continue
		}

		result.Stale++

		switch {
		case opts.Check:
			logger.Debug("stale build file", "path", p, "status", status)
		case opts.DryRun:
			if opts.Writer != nil {
				if _, err := fmt.Fprintf(opts.Writer, "[dry-run] Would write %s\n", p); err != nil {
					return nil, err
				}
			}
		default:
			if err := write(fs, p, outputs[p]); err != nil {
				return nil, err
			}

			logger.Debug("wrote build file", "path", p, "status", status)
			result.Written++
		}
	}

	return result, nil
}

func (o *Opts) templatesDir() string {
	if o.TemplatesDir == "" {
		return DefaultTemplatesDir
	}

	return o.TemplatesDir
}

func (o *Opts) outputDir() string {
	if o.OutputDir == "" {
		return DefaultDockerfilesDir
	}

	return o.OutputDir
}

// loadTemplates parses the template of every OS the manifest declares.
func loadTemplates(r *template.Renderer, dir string, m *manifest.Manifest) (map[manifest.OS]*gotemplate.Template, error) {
	out := make(map[manifest.OS]*gotemplate.Template, len(m.Targets))

	for _, ot := range m.Targets {
		t, err := r.Load(TemplatePath(dir, ot.OS))
		if err != nil {
			return nil, fmt.Errorf("loading %s template: %w", ot.OS, err)
		}

		out[ot.OS] = t
	}

	return out, nil
}

func renderOne(m *manifest.Manifest, ref manifest.Ref, latest map[manifest.OS]string, t *gotemplate.Template) ([]byte, error) {
	ctx, err := NewContext(m, ref, latest)
	if err != nil {
		return nil, err
	}

	out, err := template.Execute(t, ctx)
	if err != nil {
		return nil, err
	}

	return []byte(strings.TrimRight(string(out), " \t\r\n") + "\n"), nil
}

func compare(fs afero.Fs, path string, want []byte) (FileStatus, error) {
	have, err := afero.ReadFile(fs, path)
	if err != nil {
		exists, statErr := afero.Exists(fs, path)
		if statErr == nil && !exists {
			return StatusCreated, nil
		}

		return "", fmt.Errorf("reading %s: %w", path, err)
	}

	if bytes.Equal(have, want) {
		return StatusUnchanged, nil
	}

	return StatusUpdated, nil
}

func write(fs afero.Fs, path string, content []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	if err := afero.WriteFile(fs, path, content, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	return nil
}
