package resolve

import (
	"github.com/donaldgifford/containeros/internal/manifest"
)

// LatestVersions returns, per OS family, the version key that is greatest
// under element-wise numeric comparison. A malformed key is a fatal
// configuration error.
func LatestVersions(m *manifest.Manifest) (map[manifest.OS]string, error) {
	latest := make(map[manifest.OS]string, len(m.Targets))

	for _, ot := range m.Targets {
		best := ""

		for _, vt := range ot.Versions {
			if best == "" {
				if _, err := manifest.ParseVersionKey(vt.Key); err != nil {
					return nil, err
				}

				best = vt.Key

				continue
			}

			c, err := manifest.CompareVersionKeys(vt.Key, best)
			if err != nil {
				return nil, err
			}

			if c > 0 {
				best = vt.Key
			}
		}

		if best != "" {
			latest[ot.OS] = best
		}
	}

	return latest, nil
}
