package docs

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/donaldgifford/containeros/internal/resolve"
)

// Opts configures the variant listing.
type Opts struct {
	// Resolution is the pass to list.
	Resolution *resolve.Resolution
	// OSFilter limits output to one OS family.
	OSFilter string
	// OutputFormat is "table" or "json".
	OutputFormat string
	// Writer is the output destination.
	Writer io.Writer
}

// VariantInfo represents a variant in list output.
type VariantInfo struct {
	OS         string   `json:"os"`
	Version    string   `json:"version"`
	Engine     string   `json:"engine"`
	AliasPatch string   `json:"alias_patch"`
	Dockerfile string   `json:"dockerfile"`
	Tags       []string `json:"tags"`
}

// ChannelInfo represents a published channel in list output.
type ChannelInfo struct {
	Channel string `json:"channel"`
	Source  string `json:"source"`
}

type listing struct {
	Release  string        `json:"release"`
	Variants []VariantInfo `json:"variants"`
	Channels []ChannelInfo `json:"channels"`
}

// List writes the resolved variants and channels.
func List(opts *Opts) error {
	if opts.Resolution == nil {
		return fmt.Errorf("listing variants: no resolution")
	}

	l := collect(opts.Resolution, opts.OSFilter)

	switch opts.OutputFormat {
	case "json":
		return renderJSON(opts.Writer, l)
	default:
		return renderTable(opts.Writer, l)
	}
}

func collect(res *resolve.Resolution, osFilter string) *listing {
	l := &listing{
		Release:  res.Release,
		Variants: make([]VariantInfo, 0, len(res.Builds)),
		Channels: make([]ChannelInfo, 0, len(res.Retags)),
	}

	for i := range res.Builds {
		b := &res.Builds[i]
		if osFilter != "" && !strings.EqualFold(string(b.OS), osFilter) {
			continue
		}

		l.Variants = append(l.Variants, VariantInfo{
			OS:         string(b.OS),
			Version:    b.Version,
			Engine:     string(b.Engine),
			AliasPatch: b.AliasPatch,
			Dockerfile: b.BuildFile,
			Tags:       b.Tags,
		})
	}

	for _, r := range res.Retags {
		if osFilter != "" && !strings.EqualFold(string(r.Ref.OS), osFilter) {
			continue
		}

		l.Channels = append(l.Channels, ChannelInfo{Channel: r.Target, Source: r.Source})
	}

	return l
}

func renderTable(w io.Writer, l *listing) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if _, err := fmt.Fprintln(tw, "OS\tVERSION\tENGINE\tPATCH\tTAGS"); err != nil {
		return err
	}

	for _, v := range l.Variants {
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			v.OS, v.Version, v.Engine, v.AliasPatch, strings.Join(v.Tags, ", ")); err != nil {
			return err
		}
	}

	if err := tw.Flush(); err != nil {
		return err
	}

	if len(l.Channels) == 0 {
		return nil
	}

	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}

	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if _, err := fmt.Fprintln(tw, "CHANNEL\tSOURCE"); err != nil {
		return err
	}

	for _, c := range l.Channels {
		if _, err := fmt.Fprintf(tw, "%s\t%s\n", c.Channel, c.Source); err != nil {
			return err
		}
	}

	return tw.Flush()
}

func renderJSON(w io.Writer, l *listing) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(l)
}
