package resolve

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrMissingChannelTarget is returned in strict mode when a channel points at
// an (os, version) the manifest does not declare.
var ErrMissingChannelTarget = errors.New("channel target not declared")

// DiagnosticKind classifies a non-fatal finding of a resolution pass.
type DiagnosticKind string

// Diagnostic kinds.
const (
	// DiagMissingChannelTarget: the channel was skipped.
	DiagMissingChannelTarget DiagnosticKind = "missing-channel-target"
	// DiagAliasCollision: a channel alias duplicated a tag already in the
	// variant's set and was dropped from it.
	DiagAliasCollision DiagnosticKind = "alias-collision"
)

// Diagnostic is a recoverable problem surfaced to the caller.
type Diagnostic struct {
	Kind    DiagnosticKind
	Subject string
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s", d.Kind, d.Subject, d.Message)
}

// LogDiagnostics writes each diagnostic as a warning.
func LogDiagnostics(logger *slog.Logger, diags []Diagnostic) {
	if logger == nil {
		logger = slog.Default()
	}

	for _, d := range diags {
		logger.Warn(d.Message, "kind", string(d.Kind), "subject", d.Subject)
	}
}
