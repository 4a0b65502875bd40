// Package pkgversions reads and writes the verified package versions file,
// manifests/package_versions.json.
package pkgversions

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"

	"github.com/spf13/afero"
)

// DefaultPath is the file location relative to the repository root.
const DefaultPath = "manifests/package_versions.json"

const composeKey = "docker_compose_version"

// Packages maps package name to installed version.
type Packages map[string]string

// Sections maps a package section ("common" or an engine) to its packages.
type Sections map[string]Packages

// File is the decoded package versions document:
// os -> os version -> section -> package -> version, plus the standalone
// compose version.
type File struct {
	DockerComposeVersion string
	OS                   map[string]map[string]Sections
}

// New returns an empty file.
func New() *File {
	return &File{OS: make(map[string]map[string]Sections)}
}

// Key names the section a batch of versions belongs to.
type Key struct {
	OS      string
	Version string
	Section string
}

func (k Key) String() string {
	return k.OS + ":" + k.Version + ":" + k.Section
}

// Sections returns the sections recorded for one os version, or nil.
func (f *File) Sections(osName, version string) Sections {
	return f.OS[osName][version]
}

// Merge records versions under key, keeping packages not named in versions.
func (f *File) Merge(key Key, versions Packages) {
	if f.OS == nil {
		f.OS = make(map[string]map[string]Sections)
	}

	byVersion, ok := f.OS[key.OS]
	if !ok {
		byVersion = make(map[string]Sections)
		f.OS[key.OS] = byVersion
	}

	sections, ok := byVersion[key.Version]
	if !ok {
		sections = make(Sections)
		byVersion[key.Version] = sections
	}

	pkgs, ok := sections[key.Section]
	if !ok {
		pkgs = make(Packages)
		sections[key.Section] = pkgs
	}

	for name, v := range versions {
		pkgs[name] = v
	}
}

// Entry is one flattened package record.
type Entry struct {
	Key
	Package string
	Version string
}

// Entries lists every package record sorted by os, version, section and
// package name.
func (f *File) Entries() []Entry {
	var out []Entry

	for _, osName := range sortedKeys(f.OS) {
		for _, version := range sortedKeys(f.OS[osName]) {
			sections := f.OS[osName][version]
			for _, section := range sortedKeys(sections) {
				for _, pkg := range sortedKeys(sections[section]) {
					out = append(out, Entry{
						Key:     Key{OS: osName, Version: version, Section: section},
						Package: pkg,
						Version: sections[section][pkg],
					})
				}
			}
		}
	}

	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

// UnmarshalJSON decodes the document. Entries that are not nested objects
// are ignored.
func (f *File) UnmarshalJSON(data []byte) error {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return err
	}

	out := New()

	for k, raw := range top {
		if k == composeKey {
			if err := json.Unmarshal(raw, &out.DockerComposeVersion); err != nil {
				return fmt.Errorf("%s: %w", composeKey, err)
			}

			continue
		}

		var byVersion map[string]map[string]json.RawMessage
		if err := json.Unmarshal(raw, &byVersion); err != nil {
			continue
		}

		for version, sections := range byVersion {
			for section, rawPkgs := range sections {
				var pkgs Packages
				if err := json.Unmarshal(rawPkgs, &pkgs); err != nil {
					continue
				}

				out.Merge(Key{OS: k, Version: version, Section: section}, pkgs)
			}
		}
	}

	*f = *out

	return nil
}

// MarshalJSON encodes the document with the compose version alongside the OS
// entries.
func (f *File) MarshalJSON() ([]byte, error) {
	top := make(map[string]any, len(f.OS)+1)
	for k, v := range f.OS {
		top[k] = v
	}

	if f.DockerComposeVersion != "" {
		top[composeKey] = f.DockerComposeVersion
	}

	return json.Marshal(top)
}

// Load reads path from fsys. A missing file yields an empty document.
func Load(fsys afero.Fs, path string) (*File, error) {
	data, err := afero.ReadFile(fsys, path)
	if errors.Is(err, fs.ErrNotExist) {
		return New(), nil
	}

	if err != nil {
		return nil, fmt.Errorf("reading package versions %s: %w", path, err)
	}

	f := New()
	if err := json.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("parsing package versions %s: %w", path, err)
	}

	return f, nil
}

// Save writes f to path with two-space indentation and a trailing newline.
func Save(fsys afero.Fs, path string, f *File) error {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)

	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("encoding package versions: %w", err)
	}

	if err := afero.WriteFile(fsys, path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing package versions %s: %w", path, err)
	}

	return nil
}
