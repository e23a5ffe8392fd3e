// Package arrayrt is the contract the evaluator depends on for actual
// column storage and arithmetic (spec §4.2, "Array Runtime Interface").
// The spec treats the array runtime itself as an external collaborator
// — in the Python original this role is played by pyarrow. No
// columnar-array library in the example pack ships a buildable,
// non-test implementation, so this package also provides a small
// reference runtime (memory.go) built directly on Go slices, entirely
// behind these interfaces, so the evaluator and CLI have something real
// to run against end to end.
package arrayrt

import (
	"github.com/bwhmather/dtl/ir"
	"github.com/bwhmather/dtl/manifest"
	"github.com/google/uuid"
)

// Array is an opaque, typed, fixed-length column of values. Runtime
// implementations decide their own internal representation; callers
// only need DType and Len.
type Array interface {
	DType() ir.DType
	Len() int
}

// Runtime is the full set of operations the evaluator needs from the
// array runtime (spec §4.2). All operations are pure.
type Runtime interface {
	Filter(arr, mask Array) (Array, error)
	Take(arr, indexes Array) (Array, error)
	Add(a, b Array) (Array, error)
	Subtract(a, b Array) (Array, error)
	Multiply(a, b Array) (Array, error)
	Divide(a, b Array) (Array, error)
	Equal(a, b Array) (Array, error)
	Sum(mask Array) (int, error)
	Range(n int) (Array, error)
	Broadcast(value any, n int, dtype ir.DType) (Array, error)

	// JoinLeftIndex and JoinRightIndex realise the two index arrays of
	// the full Cartesian product of an a-row and a b-row table (ir.JoinLeft
	// / ir.JoinRight, spec §4.6): JoinLeftIndex repeats each left-hand
	// index b times; JoinRightIndex cycles [0,b) a times.
	JoinLeftIndex(a, b int) (Array, error)
	JoinRightIndex(a, b int) (Array, error)
}

// Importer yields columnar tables given a location string.
type Importer interface {
	// Len returns the row count of the table at location.
	Len(location string) (int, error)
	// Column returns a single named column of the table at location.
	Column(location, name string) (Array, error)
}

// Exporter receives a sink name and its materialised columns.
type Exporter interface {
	Export(name string, columns map[string]Array) error
}

// Tracer receives an array identifier and an array, once per root
// array, and finally the trace manifest.
type Tracer interface {
	TraceArray(id uuid.UUID, arr Array) error
	WriteManifest(m *manifest.Manifest) error
}
