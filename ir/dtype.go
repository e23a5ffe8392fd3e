// Package ir is the immutable expression DAG that sits between AST→IR
// lowering and the scheduler/evaluator (spec §3, §4.1). Node identity is
// reference-based: two structurally identical nodes are distinct unless
// a caller explicitly shares the pointer, and all comparisons in this
// package and its consumers (mapping, schedule, eval) rely on that
// instead of structural equality.
package ir

// DType is the closed set of element types a column can hold (spec
// §3.1). INDEX is a distinct type from INT64: it names a row position in
// some other array, never an arbitrary integer value.
type DType int

const (
	BOOL DType = iota
	INT32
	INT64
	DOUBLE
	TEXT
	BYTES
	INDEX
	TIMESTAMP
	DATE
)

func (d DType) String() string {
	switch d {
	case BOOL:
		return "BOOL"
	case INT32:
		return "INT32"
	case INT64:
		return "INT64"
	case DOUBLE:
		return "DOUBLE"
	case TEXT:
		return "TEXT"
	case BYTES:
		return "BYTES"
	case INDEX:
		return "INDEX"
	case TIMESTAMP:
		return "TIMESTAMP"
	case DATE:
		return "DATE"
	default:
		return "UNKNOWN"
	}
}
