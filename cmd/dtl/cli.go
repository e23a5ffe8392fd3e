package main

import (
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/bwhmather/dtl"
)

var version string

// parseOptions mirrors the teacher's go-flags wiring: a plain struct
// of long-only flags plus a single positional script path.
func parseOptions(args []string) (dtl.Options, string, error) {
	var opts struct {
		InputDir  string `long:"input-dir" description:"Directory of input tables, one JSON file per location" value-name:"path" required:"true"`
		OutputDir string `long:"output-dir" description:"Directory exported tables are written to" value-name:"path" required:"true"`
		TraceDir  string `long:"trace-dir" description:"Directory the trace manifest and traced arrays are written to; omit to disable tracing" value-name:"path"`
		Debug     bool   `long:"debug" description:"Log the compiled command schedule before running it"`
		Version   bool   `long:"version" description:"Show this version"`
		Args      struct {
			Script string `positional-arg-name:"script" description:"Path to a DTL script; reads stdin if omitted"`
		} `positional-args:"yes"`
	}

	parser := flags.NewParser(&opts, flags.Default)
	parser.Usage = "[options] [script]"
	_, err := parser.ParseArgs(args)
	if err != nil {
		return dtl.Options{}, "", err
	}

	if opts.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	return dtl.Options{
		InputDir:  opts.InputDir,
		OutputDir: opts.OutputDir,
		TraceDir:  opts.TraceDir,
		Debug:     opts.Debug,
	}, opts.Args.Script, nil
}
