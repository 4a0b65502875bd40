// Package verify builds every variant image, records the package versions
// actually installed in each, and cleans the test images up again.
package verify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/afero"

	"github.com/donaldgifford/containeros/internal/engine"
	"github.com/donaldgifford/containeros/internal/manifest"
	"github.com/donaldgifford/containeros/internal/pkgversions"
	"github.com/donaldgifford/containeros/internal/resolve"
)

// DefaultSettleDelay is how long a fresh container gets before it is queried.
const DefaultSettleDelay = 2 * time.Second

// Opts configures a build-and-verify run.
type Opts struct {
	// Engine builds and runs the images.
	Engine engine.Engine
	// Manifest supplies the package lists.
	Manifest *manifest.Manifest
	// Variants are the images to build, usually the enumerated variants.
	Variants []resolve.Variant
	// Repo prefixes the test image tags.
	Repo string
	// ContextDir is the build context, the repository root.
	ContextDir string
	// Fs holds the package versions file.
	Fs afero.Fs
	// PackageVersionsPath is the file updated with the verified versions.
	PackageVersionsPath string
	// SettleDelay overrides DefaultSettleDelay when positive.
	SettleDelay time.Duration
	// KeepImages skips the final image cleanup.
	KeepImages bool
	// Output receives build progress.
	Output io.Writer
	// Logger for progress and debug output.
	Logger *slog.Logger
}

// VariantReport is the verification outcome of one variant.
type VariantReport struct {
	Variant  resolve.Variant
	Image    string
	Versions map[pkgversions.Key]pkgversions.Packages
	// Missing lists packages whose version could not be queried.
	Missing []string
}

// Report is the outcome of a run.
type Report struct {
	Variants []VariantReport
}

// TestImage names the throwaway image built for a variant.
func TestImage(repo string, v resolve.Variant) string {
	return fmt.Sprintf("%s:test-%s-%s-%s", repo, v.OS, v.Version, v.Engine)
}

// Run builds every variant, stopping before verification if any build
// fails. It then queries each image, merges the versions into the package
// versions file and removes the test images.
func Run(ctx context.Context, opts *Opts) (*Report, error) {
	logger := opts.logger()

	if err := BuildAll(ctx, opts); err != nil {
		return nil, err
	}

	logger.Info("built all images", "count", len(opts.Variants))

	report := &Report{Variants: make([]VariantReport, 0, len(opts.Variants))}

	var errs []error

	for _, v := range opts.Variants {
		vr, err := Variant(ctx, opts, v)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		report.Variants = append(report.Variants, *vr)
	}

	if len(errs) == 0 && opts.PackageVersionsPath != "" {
		if err := record(opts, report); err != nil {
			errs = append(errs, err)
		}
	}

	if !opts.KeepImages {
		Cleanup(context.WithoutCancel(ctx), opts)
	}

	if err := errors.Join(errs...); err != nil {
		return report, err
	}

	return report, nil
}

// BuildAll builds every variant image and returns every failure joined.
func BuildAll(ctx context.Context, opts *Opts) error {
	logger := opts.logger()

	var errs []error

	for _, v := range opts.Variants {
		img := TestImage(opts.Repo, v)
		logger.Info("building image", "variant", v.String(), "tag", img)

		err := opts.Engine.Build(ctx, engine.BuildOptions{
			ContextDir: opts.ContextDir,
			Dockerfile: v.BuildFile,
			Tag:        img,
			Output:     opts.Output,
		})
		if err != nil {
			logger.Error("build failed", "variant", v.String(), "err", err)
			errs = append(errs, fmt.Errorf("building %s: %w", v, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%d of %d images failed to build: %w", len(errs), len(opts.Variants), errors.Join(errs...))
	}

	return nil
}

// Variant starts a container from the variant's test image and queries the
// version of every common and engine package.
func Variant(ctx context.Context, opts *Opts, v resolve.Variant) (*VariantReport, error) {
	logger := opts.logger()

	target, ok := opts.Manifest.Target(v.OS, v.Version)
	if !ok {
		return nil, fmt.Errorf("verifying %s: target is not declared in the manifest", v)
	}

	img := TestImage(opts.Repo, v)

	id, err := opts.Engine.Start(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("verifying %s: %w", v, err)
	}

	defer func() {
		if err := opts.Engine.Remove(context.WithoutCancel(ctx), id); err != nil {
			logger.Warn("removing verify container", "variant", v.String(), "err", err)
		}
	}()

	if err := settle(ctx, opts.settleDelay()); err != nil {
		return nil, fmt.Errorf("verifying %s: %w", v, err)
	}

	vr := &VariantReport{
		Variant:  v,
		Image:    img,
		Versions: make(map[pkgversions.Key]pkgversions.Packages),
	}

	seen := make(map[string]bool)

	for _, section := range []string{manifest.CommonSection, string(v.Engine)} {
		key := pkgversions.Key{OS: string(v.OS), Version: v.Version, Section: section}

		for _, pkg := range target.Section(section) {
			if seen[pkg] {
				continue
			}

			seen[pkg] = true

			version, err := query(ctx, opts.Engine, id, v.OS, pkg)
			if err != nil {
				return nil, fmt.Errorf("verifying %s: %w", v, err)
			}

			if version == "" {
				logger.Warn("package not found or failed to query", "variant", v.String(), "package", pkg)
				vr.Missing = append(vr.Missing, pkg)

				continue
			}

			logger.Debug("package verified", "variant", v.String(), "package", pkg, "version", version)

			if vr.Versions[key] == nil {
				vr.Versions[key] = make(pkgversions.Packages)
			}

			vr.Versions[key][pkg] = version
		}
	}

	return vr, nil
}

// Cleanup removes every test image, logging failures.
func Cleanup(ctx context.Context, opts *Opts) {
	logger := opts.logger()

	for _, v := range opts.Variants {
		img := TestImage(opts.Repo, v)
		if err := opts.Engine.RemoveImage(ctx, img); err != nil {
			logger.Warn("removing test image", "image", img, "err", err)
		}
	}
}

func query(ctx context.Context, eng engine.Engine, id string, o manifest.OS, pkg string) (string, error) {
	res, err := eng.Exec(ctx, id, QueryCommand(o, pkg))
	if err != nil {
		return "", err
	}

	if res.ExitCode != 0 {
		return "", nil
	}

	version, _ := ParseVersion(o, pkg, res.Stdout)

	return version, nil
}

func record(opts *Opts, report *Report) error {
	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	f, err := pkgversions.Load(fs, opts.PackageVersionsPath)
	if err != nil {
		return err
	}

	for _, vr := range report.Variants {
		for key, pkgs := range vr.Versions {
			f.Merge(key, pkgs)
		}
	}

	return pkgversions.Save(fs, opts.PackageVersionsPath, f)
}

func settle(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (o *Opts) settleDelay() time.Duration {
	if o.SettleDelay > 0 {
		return o.SettleDelay
	}

	return DefaultSettleDelay
}

func (o *Opts) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}

	return o.Logger
}
