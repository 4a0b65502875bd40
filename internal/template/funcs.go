// Package template provides the text/template engine used to render build
// files, with helpers for shell-continuation heavy Dockerfile text.
package template

import (
	"os"
	"strings"
	"text/template"
)

// FuncMap returns the custom template function map available to build-file
// templates.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"upper":      strings.ToUpper,
		"lower":      strings.ToLower,
		"join":       join,
		"replace":    replace,
		"trimPrefix": trimPrefix,
		"trimSuffix": trimSuffix,
		"indent":     indent,
		"continued":  continued,
		"env":        os.Getenv,
		"default":    defaultVal,
	}
}

// join concatenates items with sep.
// Argument order is (sep, items) to support piping: {{ .Tags | join ", " }}.
func join(sep string, items []string) string {
	return strings.Join(items, sep)
}

// replace replaces all occurrences of old with repl in s.
// Argument order is (old, repl, s) to support piping: {{ "foo-bar" | replace "-" "_" }}.
func replace(old, repl, s string) string {
	return strings.ReplaceAll(s, old, repl)
}

// trimPrefix removes the given prefix from s.
// Argument order is (prefix, s) to support piping: {{ "v2.31.0" | trimPrefix "v" }}.
func trimPrefix(prefix, s string) string {
	return strings.TrimPrefix(s, prefix)
}

// trimSuffix removes the given suffix from s.
func trimSuffix(suffix, s string) string {
	return strings.TrimSuffix(s, suffix)
}

// indent prefixes every non-empty line of s with n spaces.
func indent(n int, s string) string {
	pad := strings.Repeat(" ", n)
	lines := strings.Split(s, "\n")

	for i, l := range lines {
		if l != "" {
			lines[i] = pad + l
		}
	}

	return strings.Join(lines, "\n")
}

// continued joins items as shell continuation lines: every line but the last
// ends in " \".
func continued(items []string) string {
	if len(items) == 0 {
		return ""
	}

	return strings.Join(items, " \\\n")
}

// defaultVal returns val if it's non-empty, otherwise returns def.
func defaultVal(def, val string) string {
	if val != "" {
		return val
	}

	return def
}
