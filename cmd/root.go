// Package cmd defines the CLI commands for containeros.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/donaldgifford/containeros/internal/config"
	"github.com/donaldgifford/containeros/internal/getter"
	"github.com/donaldgifford/containeros/internal/manifest"
	"github.com/donaldgifford/containeros/internal/resolve"
	"github.com/donaldgifford/containeros/internal/ui"
)

var (
	verbose bool
	noColor bool
	cfgFile string
	dryRun  bool
)

// rootCmd is the base command for the containeros CLI.
var rootCmd = &cobra.Command{
	Use:   "containeros",
	Short: "Resolve and publish the container OS image matrix",
	Long: `containeros reads the targets manifest and derives everything the image
release pipeline needs from it: the build variants, their tags, the CI
build matrix, the README tag list, rendered Dockerfiles and channel retags.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		initLogger()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	pf.BoolVar(&noColor, "no-color", false, "disable colored output")
	pf.StringVar(&cfgFile, "config", "", "settings file (default is .containeros.yaml in the root)")
	pf.BoolVar(&dryRun, "dry-run", false, "report what would change without writing or publishing")
	pf.String("manifest", manifest.DefaultPath, "targets manifest path or go-getter URL")
	pf.String("root", ".", "repository root")
}

func initLogger() {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{Level: level})
	if noColor || os.Getenv("NO_COLOR") != "" {
		logger.SetColorProfile(termenv.Ascii)
	}

	slog.SetDefault(slog.New(logger))
}

// env is what every command needs: settings, the repository filesystem and
// an output writer.
type env struct {
	settings *config.Settings
	fs       afero.Fs
	out      *ui.Writer
}

func newEnv(cmd *cobra.Command) (*env, error) {
	root, err := cmd.Flags().GetString("root")
	if err != nil {
		return nil, err
	}

	s, err := config.Load(config.LoadOptions{
		ConfigFile: cfgFile,
		Root:       root,
		Flags:      cmd.Flags(),
	})
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(s.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving root %s: %w", s.Root, err)
	}

	s.Root = abs

	slog.Debug("settings loaded", "file", s.File, "root", s.Root, "manifest", s.Manifest)

	return &env{
		settings: s,
		fs:       afero.NewBasePathFs(afero.NewOsFs(), s.Root),
		out:      ui.NewWriter(noColor),
	}, nil
}

// manifestPath returns a local path for the manifest, fetching remote
// sources into a temporary file. The cleanup must always be called.
func (e *env) manifestPath(ctx context.Context) (string, func(), error) {
	src := e.settings.Manifest
	if !getter.IsRemote(src) {
		return e.settings.Path(src), func() {}, nil
	}

	path, cleanup, err := getter.New(nil).FetchTemp(ctx, src, getter.FetchOpts{Pwd: e.settings.Root})
	if err != nil {
		return "", nil, fmt.Errorf("fetching manifest: %w", err)
	}

	return path, cleanup, nil
}

// localManifestPath rejects remote manifests for commands that edit the
// manifest in place.
func (e *env) localManifestPath() (string, error) {
	if getter.IsRemote(e.settings.Manifest) {
		return "", fmt.Errorf("manifest %s is remote and cannot be edited", e.settings.Manifest)
	}

	return e.settings.Path(e.settings.Manifest), nil
}

func (e *env) loadManifest(ctx context.Context) (*manifest.Manifest, error) {
	path, cleanup, err := e.manifestPath(ctx)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	return manifest.LoadFile(path)
}

func (e *env) locator() *resolve.FSLocator {
	return &resolve.FSLocator{Fs: e.fs, Dir: e.settings.DockerfilesDir}
}

// resolve loads the manifest and runs a resolution pass, logging any
// diagnostics.
func (e *env) resolve(ctx context.Context, strict bool) (*manifest.Manifest, *resolve.Resolution, error) {
	m, err := e.loadManifest(ctx)
	if err != nil {
		return nil, nil, err
	}

	res, err := resolve.Resolve(m, e.locator(), resolve.Opts{Strict: strict})
	if err != nil {
		return nil, nil, err
	}

	resolve.LogDiagnostics(slog.Default(), res.Diagnostics)

	return m, res, nil
}
