// Package upstream looks up and applies the latest standalone docker-compose
// release.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/afero"

	"github.com/donaldgifford/containeros/internal/getter"
	"github.com/donaldgifford/containeros/internal/manifest"
	"github.com/donaldgifford/containeros/internal/pkgversions"
)

const (
	// ComposeReleaseURL is the GitHub API endpoint for the latest compose release.
	ComposeReleaseURL = "https://api.github.com/repos/docker/compose/releases/latest"

	// DefaultTimeout bounds the release lookup.
	DefaultTimeout = 10 * time.Second
)

// Lookup fetches release metadata.
type Lookup struct {
	Getter  *getter.Getter
	URL     string
	Timeout time.Duration
}

type release struct {
	TagName string `json:"tag_name"`
}

// LatestComposeVersion returns the tag name of the latest compose release.
func (l *Lookup) LatestComposeVersion(ctx context.Context) (string, error) {
	url := l.URL
	if url == "" {
		url = ComposeReleaseURL
	}

	timeout := l.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	g := l.Getter
	if g == nil {
		g = getter.New(nil)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	path, cleanup, err := g.FetchTemp(ctx, url, getter.FetchOpts{})
	if err != nil {
		return "", fmt.Errorf("fetching latest docker-compose release: %w", err)
	}
	defer cleanup()

	data, err := os.ReadFile(path) //nolint:gosec // temp file written by FetchTemp
	if err != nil {
		return "", fmt.Errorf("reading release metadata: %w", err)
	}

	var r release
	if err := json.Unmarshal(data, &r); err != nil {
		return "", fmt.Errorf("parsing release metadata: %w", err)
	}

	if r.TagName == "" {
		return "", fmt.Errorf("release metadata from %s has no tag_name", url)
	}

	return r.TagName, nil
}

// Opts configures a compose version update.
type Opts struct {
	// Version is the compose release to record.
	Version string
	// ManifestPath is edited in place.
	ManifestPath string
	// Fs holds the package versions file.
	Fs afero.Fs
	// PackageVersionsPath is updated when the file exists.
	PackageVersionsPath string
	// DryRun reports without writing.
	DryRun bool
	// Logger for debug output.
	Logger *slog.Logger
}

// FileUpdate reports what happened to one file.
type FileUpdate struct {
	Path    string
	Old     string
	Updated bool
}

// Apply records opts.Version in the manifest and, when present, the package
// versions file. Files already at the version are left alone.
func Apply(opts *Opts) ([]FileUpdate, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	doc, err := manifest.OpenDocument(opts.ManifestPath)
	if err != nil {
		return nil, err
	}

	old, _ := doc.Get("docker_compose_version")
	updates := []FileUpdate{{Path: opts.ManifestPath, Old: old, Updated: old != opts.Version}}

	if old != opts.Version && !opts.DryRun {
		doc.Set("docker_compose_version", opts.Version)

		if err := doc.Save(); err != nil {
			return nil, err
		}
	}

	if opts.PackageVersionsPath == "" {
		return updates, nil
	}

	fsys := opts.Fs
	if fsys == nil {
		fsys = afero.NewOsFs()
	}

	exists, err := afero.Exists(fsys, opts.PackageVersionsPath)
	if err != nil {
		return nil, fmt.Errorf("checking package versions %s: %w", opts.PackageVersionsPath, err)
	}

	if !exists {
		logger.Debug("package versions file absent", "path", opts.PackageVersionsPath)
		return updates, nil
	}

	pv, err := pkgversions.Load(fsys, opts.PackageVersionsPath)
	if err != nil {
		return nil, err
	}

	pvOld := pv.DockerComposeVersion
	updates = append(updates, FileUpdate{Path: opts.PackageVersionsPath, Old: pvOld, Updated: pvOld != opts.Version})

	if pvOld != opts.Version && !opts.DryRun {
		pv.DockerComposeVersion = opts.Version

		if err := pkgversions.Save(fsys, opts.PackageVersionsPath, pv); err != nil {
			return nil, err
		}
	}

	return updates, nil
}
