package ir

import "github.com/bwhmather/dtl/pos"

// Level orders how user-facing a TraceTable snapshot is (spec §3.3).
type Level int

const (
	EXPORT Level = iota
	STATEMENT
	TABLE_EXPRESSION
	COLUMN_EXPRESSION
	INTERNAL
	ASSERTION
)

func (l Level) String() string {
	switch l {
	case EXPORT:
		return "EXPORT"
	case STATEMENT:
		return "STATEMENT"
	case TABLE_EXPRESSION:
		return "TABLE_EXPRESSION"
	case COLUMN_EXPRESSION:
		return "COLUMN_EXPRESSION"
	case INTERNAL:
		return "INTERNAL"
	case ASSERTION:
		return "ASSERTION"
	default:
		return "UNKNOWN"
	}
}

// Column is a single named column of a Table.
type Column struct {
	Name       string
	Expression ArrayExpression
}

// Table is either a TraceTable or an ExportTable (spec §3.3).
type Table interface {
	Columns() []Column
}

// TraceTable is a snapshot of the logical table visible at some AST
// position. Trace tables are the anchor points for row-level lineage:
// every array referenced by one is a root for the mapping algebra and
// the scheduler.
type TraceTable struct {
	Span    pos.Span
	Level   Level
	Cols    []Column
}

func (t *TraceTable) Columns() []Column { return t.Cols }

// ExportTable names a sink where a table's columns should be
// materialised.
type ExportTable struct {
	ExportAs string
	Cols     []Column
}

func (t *ExportTable) Columns() []Column { return t.Cols }

// Program is the ordered list of Tables produced by lowering a whole
// script.
type Program struct {
	Tables []Table
}

// Roots returns every ArrayExpression referenced by any table in the
// Program — the scheduler and mapping algebra's root set, before
// mappings contribute their own additional roots (spec §4.4, §4.5).
func (p *Program) Roots() []Expression {
	var roots []Expression
	for _, table := range p.Tables {
		for _, col := range table.Columns() {
			roots = append(roots, col.Expression)
		}
	}
	return roots
}
