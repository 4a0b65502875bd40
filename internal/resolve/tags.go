package resolve

import (
	"fmt"
	"slices"

	"github.com/donaldgifford/containeros/internal/manifest"
)

// TagSet is an ordered, duplicate-free list of registry tags. The first tag
// is the canonical one.
type TagSet []string

// Canonical returns the fully-qualified tag, or "" for an empty set.
func (s TagSet) Canonical() string {
	if len(s) == 0 {
		return ""
	}

	return s[0]
}

// Contains reports whether tag is in the set.
func (s TagSet) Contains(tag string) bool {
	return slices.Contains(s, tag)
}

// ComposeTags builds the tag set for one variant:
//
//  1. {release}-{os}-{alias_patch}-{engine}
//  2. {release}-{os_alias}-{engine}
//  3. daemon engines only: {release}-{os_alias} and {os_alias}
//  4. daemon engine on the latest version of its OS: latest / latest-alpine
//  5. every channel whose reference equals the variant
//
// Duplicates keep their first position. A channel alias that duplicates an
// earlier tag is reported as an alias collision.
func ComposeTags(release string, v Variant, latest map[manifest.OS]string, channels []manifest.Channel) (TagSet, []Diagnostic) {
	alias := v.OS.Alias(v.Version)

	tags := make(TagSet, 0, 6)
	add := func(tag string) bool {
		if tags.Contains(tag) {
			return false
		}

		tags = append(tags, tag)

		return true
	}

	add(v.CanonicalTag(release))
	add(fmt.Sprintf("%s-%s-%s", release, alias, v.Engine))

	if v.Engine.Daemon() {
		add(fmt.Sprintf("%s-%s", release, alias))
		add(alias)

		if latest[v.OS] == v.Version {
			add(v.OS.LatestTag())
		}
	}

	var diags []Diagnostic

	ref := v.Ref()

	for _, c := range channels {
		if c.Ref != ref {
			continue
		}

		if !add(c.Alias) {
			diags = append(diags, Diagnostic{
				Kind:    DiagAliasCollision,
				Subject: c.Alias,
				Message: fmt.Sprintf("channel alias %q duplicates a tag of %s and was dropped", c.Alias, ref),
			})
		}
	}

	return tags, diags
}
