// Package config loads containeros settings. Values are layered with
// spf13/viper: built-in defaults, then a settings file, then CONTAINEROS_*
// environment variables, then flags the user set explicitly.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/donaldgifford/containeros/internal/changelog"
	"github.com/donaldgifford/containeros/internal/docs"
	"github.com/donaldgifford/containeros/internal/getter"
	"github.com/donaldgifford/containeros/internal/manifest"
	"github.com/donaldgifford/containeros/internal/matrix"
	"github.com/donaldgifford/containeros/internal/pkgversions"
	"github.com/donaldgifford/containeros/internal/registry"
	"github.com/donaldgifford/containeros/internal/render"
)

const (
	// EnvPrefix prefixes environment overrides (CONTAINEROS_REPO, ...).
	EnvPrefix = "CONTAINEROS"

	// FileName is the settings file searched for in the repository root and
	// the user config directory.
	FileName = ".containeros"
)

// Settings are the resolved CLI settings. Relative paths are relative to
// Root.
type Settings struct {
	Manifest        string `mapstructure:"manifest"`
	Root            string `mapstructure:"root"`
	Repo            string `mapstructure:"repo"`
	Platforms       string `mapstructure:"platforms"`
	TemplatesDir    string `mapstructure:"templates_dir"`
	DockerfilesDir  string `mapstructure:"dockerfiles_dir"`
	PackageVersions string `mapstructure:"package_versions"`
	Readme          string `mapstructure:"readme"`
	Changelog       string `mapstructure:"changelog"`

	// File is the settings file that was read, if any.
	File string `mapstructure:"-"`
}

// Defaults returns the built-in settings.
func Defaults() Settings {
	return Settings{
		Manifest:        manifest.DefaultPath,
		Root:            ".",
		Repo:            registry.DefaultRepo,
		Platforms:       matrix.DefaultPlatforms,
		TemplatesDir:    render.DefaultTemplatesDir,
		DockerfilesDir:  render.DefaultDockerfilesDir,
		PackageVersions: pkgversions.DefaultPath,
		Readme:          docs.DefaultReadme,
		Changelog:       changelog.DefaultPath,
	}
}

// keys maps settings keys to the flag names that override them.
var keys = map[string]string{
	"manifest":         "manifest",
	"root":             "root",
	"repo":             "repo",
	"platforms":        "platforms",
	"templates_dir":    "templates-dir",
	"dockerfiles_dir":  "dockerfiles-dir",
	"package_versions": "package-versions",
	"readme":           "readme",
	"changelog":        "changelog",
}

// LoadOptions controls where settings come from.
type LoadOptions struct {
	// ConfigFile is used exclusively when set and must exist.
	ConfigFile string
	// Root is searched for the settings file. Defaults to ".".
	Root string
	// Flags are bound to their settings keys; only flags the user changed
	// take precedence over the other sources.
	Flags *pflag.FlagSet
}

// Load resolves settings from all sources.
func Load(opts LoadOptions) (*Settings, error) {
	v := viper.New()

	d := Defaults()
	v.SetDefault("manifest", d.Manifest)
	v.SetDefault("root", d.Root)
	v.SetDefault("repo", d.Repo)
	v.SetDefault("platforms", d.Platforms)
	v.SetDefault("templates_dir", d.TemplatesDir)
	v.SetDefault("dockerfiles_dir", d.DockerfilesDir)
	v.SetDefault("package_versions", d.PackageVersions)
	v.SetDefault("readme", d.Readme)
	v.SetDefault("changelog", d.Changelog)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := opts.Root
	if root == "" {
		root = "."
	}

	if opts.ConfigFile != "" {
		if _, err := os.Stat(opts.ConfigFile); err != nil {
			return nil, fmt.Errorf("reading settings file %s: %w", opts.ConfigFile, err)
		}

		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(root)
		v.AddConfigPath(DefaultConfigDir())
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading settings: %w", err)
		}
	}

	if opts.Flags != nil {
		for key, name := range keys {
			f := opts.Flags.Lookup(name)
			if f == nil {
				continue
			}

			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("binding flag --%s: %w", name, err)
			}
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("decoding settings: %w", err)
	}

	s.File = v.ConfigFileUsed()

	return &s, nil
}

// DefaultConfigDir returns the user settings directory, respecting
// XDG_CONFIG_HOME.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "containeros")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "containeros")
	}

	return filepath.Join(home, ".config", "containeros")
}

// Path resolves p against Root. Absolute paths and remote sources are
// returned unchanged.
func (s *Settings) Path(p string) string {
	if p == "" || filepath.IsAbs(p) || getter.IsRemote(p) {
		return p
	}

	return filepath.Join(s.Root, p)
}
