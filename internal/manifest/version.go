package manifest

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
	version "github.com/hashicorp/go-version"
)

// versionKeyPattern matches dot-separated non-negative integers ("24.04", "3.20").
var versionKeyPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+)*$`)

// releasePattern matches the manifest release version: exactly major.minor.patch.
var releasePattern = regexp.MustCompile(`^[0-9]+\.[0-9]+\.[0-9]+$`)

// ParseVersionKey parses an OS version key for numeric ordering.
func ParseVersionKey(key string) (*version.Version, error) {
	if !versionKeyPattern.MatchString(key) {
		return nil, fmt.Errorf("%w: version key %q must be dot-separated non-negative integers", ErrInvalidManifest, key)
	}

	v, err := version.NewVersion(key)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing version key %q: %v", ErrInvalidManifest, key, err)
	}

	return v, nil
}

// CompareVersionKeys compares two version keys element-wise as integers, so
// "1.10" sorts after "1.9". It returns -1, 0 or 1.
func CompareVersionKeys(a, b string) (int, error) {
	va, err := ParseVersionKey(a)
	if err != nil {
		return 0, err
	}

	vb, err := ParseVersionKey(b)
	if err != nil {
		return 0, err
	}

	return va.Compare(vb), nil
}

// ParseRelease validates the manifest release version.
func ParseRelease(s string) (*semver.Version, error) {
	if !releasePattern.MatchString(s) {
		return nil, fmt.Errorf("%w: version %q must have three numeric components (major.minor.patch)", ErrInvalidManifest, s)
	}

	v, err := semver.StrictNewVersion(s)
	if err != nil {
		return nil, fmt.Errorf("%w: version %q: %v", ErrInvalidManifest, s, err)
	}

	return v, nil
}

func arity(key string) int {
	return strings.Count(key, ".") + 1
}

func cutVersion(key string) (major, rest string, ok bool) {
	return strings.Cut(key, ".")
}
