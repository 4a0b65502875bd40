// Package getter wraps hashicorp/go-getter for fetching remote manifests and
// upstream release metadata.
package getter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"

	getter "github.com/hashicorp/go-getter/v2"
)

// Getter wraps go-getter to fetch single files over HTTP, git, S3 and the
// other protocols go-getter understands.
type Getter struct {
	client *getter.Client
	logger *slog.Logger
}

// New creates a Getter with default configuration.
func New(logger *slog.Logger) *Getter {
	if logger == nil {
		logger = slog.Default()
	}

	return &Getter{
		client: &getter.Client{
			DisableSymlinks: true,
		},
		logger: logger,
	}
}

// FetchOpts configures a fetch operation.
type FetchOpts struct {
	// Ref is appended as ?ref= for git sources.
	Ref string

	// Checksum is appended as ?checksum=sha256: for verification.
	Checksum string

	// Pwd is the working directory for relative path detection.
	Pwd string
}

// remotePrefixes are source spellings that never name a local file.
var remotePrefixes = []string{
	"http://", "https://", "git::", "git@", "s3::", "gcs::", "hg::",
	"github.com/", "gitlab.com/", "bitbucket.org/",
}

// IsRemote reports whether src must be fetched rather than read from disk.
func IsRemote(src string) bool {
	for _, p := range remotePrefixes {
		if strings.HasPrefix(src, p) {
			return true
		}
	}

	return false
}

// FetchFile downloads a single file from src to dest.
func (g *Getter) FetchFile(ctx context.Context, src, dest string, opts FetchOpts) error {
	fullSrc := appendQueryParams(src, opts)
	g.logger.Debug("fetching file", "src", fullSrc, "dest", dest)

	req := &getter.Request{
		Src:             fullSrc,
		Dst:             dest,
		Pwd:             opts.Pwd,
		GetMode:         getter.ModeFile,
		DisableSymlinks: true,
	}

	if _, err := g.client.Get(ctx, req); err != nil {
		return fmt.Errorf("fetching file %s: %w", src, err)
	}

	return nil
}

// FetchTemp downloads src into a fresh temporary directory, keeping the
// source's base name so the file extension still selects the format. The
// returned cleanup removes the directory.
func (g *Getter) FetchTemp(ctx context.Context, src string, opts FetchOpts) (string, func(), error) {
	dir, err := os.MkdirTemp("", "containeros-*")
	if err != nil {
		return "", nil, fmt.Errorf("creating temp dir: %w", err)
	}

	cleanup := func() { _ = os.RemoveAll(dir) }

	dest := dir + string(os.PathSeparator) + baseName(src)

	if err := g.FetchFile(ctx, src, dest, opts); err != nil {
		cleanup()
		return "", nil, err
	}

	return dest, cleanup, nil
}

// baseName returns the last path element of src without go-getter forcing,
// subdirectory or query syntax.
func baseName(src string) string {
	if _, rest, ok := strings.Cut(src, "::"); ok {
		src = rest
	}

	src, _, _ = strings.Cut(src, "?")

	if i := strings.LastIndex(src, "//"); i >= 0 && !strings.HasSuffix(src[:i], ":") {
		src = src[i+2:]
	}

	name := path.Base(src)
	if name == "." || name == "/" || name == "" {
		return "download"
	}

	return name
}

// appendQueryParams adds ref and checksum query parameters to a source URL.
func appendQueryParams(src string, opts FetchOpts) string {
	sep := "?"
	if strings.Contains(src, "?") {
		sep = "&"
	}

	result := src

	if opts.Ref != "" {
		result += sep + "ref=" + opts.Ref
		sep = "&"
	}

	if opts.Checksum != "" {
		result += sep + "checksum=sha256:" + opts.Checksum
	}

	return result
}
