package resolve

import (
	"fmt"

	"github.com/donaldgifford/containeros/internal/manifest"
)

// Retag publishes a channel: create Target as an alias of Source within a
// repository. Re-applying the same retag is a no-op at the registry.
type Retag struct {
	Channel string
	Ref     manifest.Ref
	Source  string
	Target  string
}

func (r Retag) String() string {
	return fmt.Sprintf("%s -> %s", r.Target, r.Source)
}

// ResolveChannels maps every channel to the retag that publishes it, in
// manifest order. Channels whose (os, version) is not declared in targets are
// skipped with a diagnostic. Build files are not consulted: a channel names
// manifest intent, not what has been materialized.
func ResolveChannels(m *manifest.Manifest) ([]Retag, []Diagnostic) {
	var (
		retags []Retag
		diags  []Diagnostic
	)

	for _, c := range m.Channels {
		target, ok := m.Target(c.OS, c.Version)
		if !ok {
			diags = append(diags, Diagnostic{
				Kind:    DiagMissingChannelTarget,
				Subject: c.Alias,
				Message: fmt.Sprintf("channel %q points at %s %s, which is not in targets; skipping", c.Alias, c.OS, c.Version),
			})

			continue
		}

		v := Variant{OS: c.OS, Version: c.Version, Engine: c.Engine, AliasPatch: target.AliasPatch}

		retags = append(retags, Retag{
			Channel: c.Alias,
			Ref:     c.Ref,
			Source:  v.CanonicalTag(m.Version),
			Target:  c.Alias,
		})
	}

	return retags, diags
}
