// Package main is the entry point for the containeros CLI.
package main

import (
	"errors"
	"os"

	"github.com/donaldgifford/containeros/cmd"
	"github.com/donaldgifford/containeros/internal/ui"
)

// Build-time variables set via ldflags.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	cmd.SetVersionInfo(version, commit)

	err := cmd.Execute()
	if err == nil {
		return
	}

	var exitErr *cmd.ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Msg != "" {
			ui.NewWriter(false).Info(exitErr.Msg)
		}

		os.Exit(exitErr.Code)
	}

	ui.NewWriter(false).Error(err.Error())
	os.Exit(1)
}
