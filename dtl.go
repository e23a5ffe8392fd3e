// Package dtl wires the compiler pipeline together: parse, lower,
// derive mappings, schedule, evaluate (spec §2, "System Overview").
// cmd/dtl is a thin flag-parsing shell around Run.
package dtl

import (
	"log/slog"

	"github.com/bwhmather/dtl/arrayrt"
	"github.com/bwhmather/dtl/eval"
	"github.com/bwhmather/dtl/internal/dtlerrors"
	"github.com/bwhmather/dtl/internal/dtlio"
	"github.com/bwhmather/dtl/internal/dtlutil"
	"github.com/bwhmather/dtl/internal/lowering"
	"github.com/bwhmather/dtl/mapping"
	"github.com/bwhmather/dtl/parser"
	"github.com/bwhmather/dtl/schedule"
)

// Options configures one Run: the input/output table directories and
// an optional trace directory (spec §6, CLI).
type Options struct {
	InputDir  string
	OutputDir string
	// TraceDir, if empty, disables tracing: the manifest and traced
	// arrays are built in memory but never written to disk.
	TraceDir string
	// Debug, if set, logs the compiled command schedule before running
	// it, mirroring the teacher's --dry-run.
	Debug bool
}

// Run parses script, compiles it against the tables found under
// options.InputDir, evaluates it, and writes the results under
// options.OutputDir (and, if set, options.TraceDir).
func Run(script string, options Options) (err error) {
	defer dtlerrors.Recover(&err)

	stmts, err := parser.Parse(script)
	if err != nil {
		return err
	}

	importer, err := dtlio.LoadInputDir(options.InputDir)
	if err != nil {
		return err
	}

	program, err := lowering.Lower(stmts, importer)
	if err != nil {
		return err
	}

	mappings, err := mapping.Compose(program.Roots())
	if err != nil {
		return err
	}

	sched, err := schedule.Build(program, mappings)
	if err != nil {
		return err
	}

	if options.Debug {
		slog.Debug("compiled schedule", "commands", dtlutil.Dump(sched.Commands))
	}

	runtime := arrayrt.NewMemoryRuntime()
	exporter := arrayrt.NewMemoryExporter()
	tracer := arrayrt.NewMemoryTracer()

	ctx := eval.NewContext(runtime, importer, exporter, tracer)
	if err := eval.Run(ctx, script, sched); err != nil {
		return err
	}

	if err := dtlio.DumpOutputDir(options.OutputDir, exporter); err != nil {
		return err
	}

	if options.TraceDir != "" {
		if err := dtlio.DumpTraceDir(options.TraceDir, tracer); err != nil {
			return err
		}
	}

	return nil
}
