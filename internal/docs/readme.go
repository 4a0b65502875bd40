// Package docs renders human-facing views of a resolution: the README tag
// section and the variant listing.
package docs

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/donaldgifford/containeros/internal/resolve"
)

// DefaultReadme is the README location relative to the repository root.
const DefaultReadme = "README.md"

// TagsHeader opens the README section that lists every published tag.
const TagsHeader = "## Supported tags and respective Dockerfiles"

// TagsSection renders the full README section, header included, ending in
// a single newline.
func TagsSection(res *resolve.Resolution) string {
	entries := make([]string, 0, len(res.Builds))
	for i := range res.Builds {
		entries = append(entries, flavor(&res.Builds[i]))
	}

	var b strings.Builder

	b.WriteString(TagsHeader)
	b.WriteString("\n\n")
	b.WriteString(strings.Join(entries, "\n"))

	return b.String()
}

func flavor(b *resolve.Build) string {
	quoted := make([]string, 0, len(b.Tags))
	for _, t := range b.Tags {
		quoted = append(quoted, "`"+t+"`")
	}

	path := filepath.ToSlash(b.BuildFile)

	return fmt.Sprintf("- **%s %s %s**\n\n  %s\n  ([`%s`](%s))\n",
		b.OS.Title(), b.Version, b.Engine, strings.Join(quoted, ", "), path, path)
}

// Splice replaces the tag section of a README with section. The old section
// runs from TagsHeader to the next level-two heading, or to the end of the
// document when none follows. A README without the header gets the section
// appended.
func Splice(readme, section string) string {
	section = strings.TrimRight(section, "\n") + "\n"

	start := headerIndex(readme)
	if start < 0 {
		if readme == "" {
			return section
		}

		return strings.TrimRight(readme, "\n") + "\n\n" + section
	}

	rest := readme[start+len(TagsHeader):]

	end := strings.Index(rest, "\n## ")
	if end < 0 {
		return readme[:start] + section
	}

	return readme[:start] + section + rest[end:]
}

// headerIndex finds TagsHeader at the start of a line.
func headerIndex(s string) int {
	for off := 0; ; {
		i := strings.Index(s[off:], TagsHeader)
		if i < 0 {
			return -1
		}

		i += off
		if i == 0 || s[i-1] == '\n' {
			return i
		}

		off = i + len(TagsHeader)
	}
}

// UpdateReadme splices the tag section for res into the README at path and
// reports whether the file changed. A missing README is created.
func UpdateReadme(fsys afero.Fs, path string, res *resolve.Resolution) (bool, error) {
	current, err := afero.ReadFile(fsys, path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("reading readme %s: %w", path, err)
	}

	updated := Splice(string(current), TagsSection(res))
	if updated == string(current) {
		return false, nil
	}

	if err := afero.WriteFile(fsys, path, []byte(updated), 0o644); err != nil {
		return false, fmt.Errorf("writing readme %s: %w", path, err)
	}

	return true, nil
}
