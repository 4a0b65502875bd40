// Package matrix turns a resolution into CI build-matrix records.
package matrix

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/donaldgifford/containeros/internal/resolve"
)

// DefaultPlatforms is the buildx platform list stamped on every record.
const DefaultPlatforms = "linux/amd64,linux/arm64"

// Record is one matrix entry, consumed by the CI build job.
type Record struct {
	OS            string   `json:"os"`
	Version       string   `json:"version"`
	Engine        string   `json:"engine"`
	Dockerfile    string   `json:"dockerfile"`
	Tags          []string `json:"tags"`
	DockerhubTags []string `json:"dockerhub_tags"`
	CombinedTags  string   `json:"combined_tags"`
	Platforms     string   `json:"platforms"`
}

// Matrix is the top-level document CI expands with fromJSON.
type Matrix struct {
	Include []Record `json:"include"`
}

// Build converts every resolved build into a record, qualifying tags with
// repo. An empty platforms falls back to DefaultPlatforms.
func Build(res *resolve.Resolution, repo, platforms string) *Matrix {
	if platforms == "" {
		platforms = DefaultPlatforms
	}

	m := &Matrix{Include: make([]Record, 0, len(res.Builds))}

	for i := range res.Builds {
		b := &res.Builds[i]

		qualified := Qualify(repo, b.Tags)

		m.Include = append(m.Include, Record{
			OS:            string(b.OS),
			Version:       b.Version,
			Engine:        string(b.Engine),
			Dockerfile:    filepath.ToSlash(b.BuildFile),
			Tags:          append([]string(nil), b.Tags...),
			DockerhubTags: qualified,
			CombinedTags:  strings.Join(qualified, "\n"),
			Platforms:     platforms,
		})
	}

	return m
}

// Qualify prefixes each tag with "repo:".
func Qualify(repo string, tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		out = append(out, repo+":"+t)
	}

	return out
}

// Write encodes the matrix as a single line of JSON.
func Write(w io.Writer, m *Matrix) error {
	if err := json.NewEncoder(w).Encode(m); err != nil {
		return fmt.Errorf("encoding matrix: %w", err)
	}

	return nil
}
