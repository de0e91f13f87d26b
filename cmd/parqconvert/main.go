package main

import (
	"errors"
	"fmt"
	"os"

	"parqconvert/internal/app"
	"parqconvert/internal/logging"
)

// main is the entry point for the parqconvert application.
func main() {
	runner := app.NewAppRunner()

	err := runner.Run(os.Args[1:])
	if err != nil {
		printUsage := errors.Is(err, app.ErrUsage) || errors.Is(err, app.ErrConfigNotFound) || errors.Is(err, app.ErrMissingArgs)
		if printUsage {
			fmt.Fprintln(os.Stderr, "")
			runner.Usage(os.Stderr)
		}

		// Make sure the failure is visible even if the configured level
		// suppresses errors.
		if logging.GetLevel() < logging.Error {
			logging.SetLevel(logging.Error)
		}
		logging.Logf(logging.Error, "Conversion failed: %v", err)
		os.Exit(1)
	}

	logging.Logf(logging.Info, "Conversion completed successfully.")
}
