// Command doclogctl is a thin driver over the engine.Controller surface:
// a handful of subcommands for manually poking at the replicated document
// engine and for running the scenarios from spec.md §8 as visible demos,
// the way flowctl's subcommands each drive one slice of the Flow runtime
// without themselves being part of it.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	flags "github.com/jessevdk/go-flags"
	log "github.com/sirupsen/logrus"
)

func main() {
	parser := flags.NewParser(nil, flags.HelpFlag|flags.PassDoubleDash)

	addCmd(parser, "reconcile", "Print the ops needed to converge one JSON document to another", `
Reads two JSON documents, "current" and "target", and prints the minimal
operation list computeReconcileOps would emit to converge the first into
the second.
`, &cmdReconcile{})

	addCmd(parser, "demo", "Run one of the spec's end-to-end scenarios", `
Runs a named scenario (basic, reconcile, converge, dedup, retention,
sharing) against in-process controllers and prints each state transition.
`, &cmdDemo{})

	addCmd(parser, "apply", "Apply an operation list to a JSON document", `
Reads a base JSON document and a JSON-encoded operation list, applies the
ops via the immutable applier, and prints the resulting document.
`, &cmdApply{})

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		log.WithField("err", err).Error("doclogctl: command failed")
		fmt.Fprintln(os.Stderr, color.RedString("error: %v", err))
		os.Exit(1)
	}
}

func addCmd(parser *flags.Parser, name, short, long string, data interface{}) *flags.Command {
	cmd, err := parser.AddCommand(name, short, long, data)
	if err != nil {
		log.WithField("err", err).Fatal("doclogctl: failed to register command")
	}
	return cmd
}
