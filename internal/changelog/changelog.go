// Package changelog prepends release entries to CHANGELOG.md.
package changelog

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/donaldgifford/containeros/internal/manifest"
	"github.com/donaldgifford/containeros/internal/pkgversions"
)

// DefaultPath is the changelog location relative to the repository root.
const DefaultPath = "CHANGELOG.md"

// preamble starts a changelog that does not exist yet.
var preamble = []string{"# Changelog", ""}

// Opts configures a changelog update.
type Opts struct {
	// Manifest supplies the release version and targets.
	Manifest *manifest.Manifest
	// PackageVersions supplies verified package versions. May be nil.
	PackageVersions *pkgversions.File
	// Fs holds the changelog.
	Fs afero.Fs
	// Path is the changelog file.
	Path string
	// Auto inserts the entry below the preamble instead of at the very top.
	Auto bool
	// Now stamps the entry. Defaults to time.Now.
	Now func() time.Time
	// DryRun writes the entry to Writer instead of the file.
	DryRun bool
	// Writer receives the dry-run entry.
	Writer io.Writer
	// Logger for debug output.
	Logger *slog.Logger
}

// Notes lists the changes a release carries: the standalone compose
// version, every target's base image patch level and every verified package
// version of that target.
func Notes(m *manifest.Manifest, pv *pkgversions.File) []string {
	var notes []string

	if m.DockerComposeVersion != "" {
		notes = append(notes, "Standalone docker-compose updated to "+m.DockerComposeVersion)
	}

	for _, ot := range m.Targets {
		for _, vt := range ot.Versions {
			notes = append(notes, fmt.Sprintf("%s %s base updated to %s", ot.OS, vt.Key, vt.AliasPatch))

			if pv == nil {
				continue
			}

			sections := pv.Sections(string(ot.OS), vt.Key)
			for _, section := range sorted(sections) {
				pkgs := sections[section]
				for _, pkg := range sorted(pkgs) {
					notes = append(notes, fmt.Sprintf("%s %s %s: %s -> %s", ot.OS, vt.Key, section, pkg, pkgs[pkg]))
				}
			}
		}
	}

	return notes
}

func sorted[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

// Entry formats a release entry: a dated heading, one bullet per note and a
// blank line.
func Entry(version string, date time.Time, notes []string) []string {
	lines := make([]string, 0, len(notes)+2)
	lines = append(lines, fmt.Sprintf("## %s - %s", version, date.UTC().Format(time.DateOnly)))

	for _, n := range notes {
		lines = append(lines, "- "+n)
	}

	return append(lines, "")
}

// Insert places entry into an existing changelog. With auto the entry goes
// after the first two lines (title and blank line); otherwise it is
// prepended. An empty changelog starts from the "# Changelog" preamble.
func Insert(existing string, entry []string, auto bool) string {
	var lines []string
	if existing != "" {
		lines = strings.Split(strings.TrimSuffix(existing, "\n"), "\n")
	}

	if len(lines) == 0 {
		lines = append([]string(nil), preamble...)
	}

	var out []string

	if auto {
		head := min(2, len(lines))
		out = append(out, lines[:head]...)
		out = append(out, entry...)
		out = append(out, lines[head:]...)
	} else {
		out = append(out, entry...)
		out = append(out, lines...)
	}

	return strings.Join(out, "\n") + "\n"
}

// Run builds the entry for the manifest's release and writes it into the
// changelog. It returns the entry lines, or nil when there is nothing to
// note.
func Run(opts *Opts) ([]string, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	notes := Notes(opts.Manifest, opts.PackageVersions)
	if len(notes) == 0 {
		logger.Debug("no changelog notes")
		return nil, nil
	}

	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	entry := Entry(opts.Manifest.Version, now(), notes)

	if opts.DryRun {
		if opts.Writer != nil {
			if _, err := io.WriteString(opts.Writer, strings.Join(entry, "\n")+"\n"); err != nil {
				return nil, err
			}
		}

		return entry, nil
	}

	fsys := opts.Fs
	if fsys == nil {
		fsys = afero.NewOsFs()
	}

	path := opts.Path
	if path == "" {
		path = DefaultPath
	}

	existing, err := afero.ReadFile(fsys, path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading changelog %s: %w", path, err)
	}

	updated := Insert(string(existing), entry, opts.Auto)

	if err := afero.WriteFile(fsys, path, []byte(updated), 0o644); err != nil {
		return nil, fmt.Errorf("writing changelog %s: %w", path, err)
	}

	logger.Debug("changelog updated", "path", path, "notes", len(notes))

	return entry, nil
}
