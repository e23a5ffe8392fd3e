package dtlutil

import (
	"github.com/k0kubun/pp/v3"
)

// dumper is configured once so every call site gets the same colourless,
// deterministic-ish formatting (useful when a dump ends up in a test
// failure message rather than a terminal).
var dumper = func() *pp.PrettyPrinter {
	p := pp.New()
	p.SetColoringEnabled(false)
	return p
}()

// Dump renders a value (an IR node, a command stream, a Program) as a
// struct-shaped string for debugging. Used behind the CLI's --debug flag
// to render the compiled command stream.
func Dump(v any) string {
	return dumper.Sprint(v)
}
