// SPDX-License-Identifier: MPL-2.0

// Command controlplanedemo exercises the lifetime/resolver framework end to
// end against an in-memory table, so the concurrency rules and teardown
// sequencing can be observed outside of a unit test.
package main

import (
	"fmt"
	"os"

	"github.com/mitchellh/cli"

	"github.com/contrail-io/controlplane/internal/logging"
)

// Ui is the cli.Ui used for communicating to the outside world.
var Ui cli.Ui

func init() {
	Ui = &cli.BasicUi{
		Writer:      os.Stdout,
		ErrorWriter: os.Stderr,
		Reader:      os.Stdin,
	}
}

func main() {
	os.Exit(realMain())
}

func realMain() int {
	log := logging.HCLogger().Named("demo")
	log.Debug("starting controlplanedemo", "args", os.Args[1:])

	commands := map[string]cli.CommandFactory{
		"run": func() (cli.Command, error) {
			return &RunCommand{Ui: Ui}, nil
		},
		"inspect": func() (cli.Command, error) {
			return &InspectCommand{Ui: Ui}, nil
		},
	}

	runner := &cli.CLI{
		Name:     "controlplanedemo",
		Args:     os.Args[1:],
		Commands: commands,
		HelpFunc: cli.BasicHelpFunc("controlplanedemo"),
	}

	exitCode, err := runner.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error executing CLI: %s\n", err.Error())
		return 1
	}
	return exitCode
}
