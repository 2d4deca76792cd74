package main

import (
	"os"

	"github.com/nholik/stackpilot/internal/cli"
	"github.com/nholik/stackpilot/internal/logging"
)

func main() {
	if err := cli.Execute(os.Args[1:], cli.IO{}); err != nil {
		logger := logging.NewConsole(os.Stderr, "info")
		logger.Error().Err(err).Msg("stackpilot failed")
		os.Exit(1)
	}
}
