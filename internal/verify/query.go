package verify

import (
	"strings"
	"unicode"

	"github.com/donaldgifford/containeros/internal/manifest"
)

// QueryCommand returns the command that prints the installed version of pkg
// inside an image of the given family.
func QueryCommand(o manifest.OS, pkg string) []string {
	if o == manifest.OSAlpine {
		return []string{"sh", "-c", "apk list --installed " + pkg + " 2>/dev/null | cut -d' ' -f1"}
	}

	return []string{"dpkg-query", "-W", "-f", "${Version}", pkg}
}

// ParseVersion extracts the version from query output. Ubuntu output is the
// bare version. Alpine output is "name-version-rN"; the package name prefix
// is stripped when a version follows it, otherwise the version starts at the
// first dash-separated part that contains a digit.
func ParseVersion(o manifest.OS, pkg, output string) (string, bool) {
	out := strings.TrimSpace(output)
	if out == "" {
		return "", false
	}

	if o != manifest.OSAlpine {
		return out, true
	}

	// apk may list several matches; the exact package is the first line.
	out, _, _ = strings.Cut(out, "\n")

	if rest, ok := strings.CutPrefix(out, pkg+"-"); ok && rest != "" && unicode.IsDigit(rune(rest[0])) {
		return rest, true
	}

	parts := strings.Split(out, "-")
	for i, p := range parts {
		if strings.IndexFunc(p, unicode.IsDigit) >= 0 {
			return strings.Join(parts[i:], "-"), true
		}
	}

	return "", false
}
