// Package schedule turns a lowered, mapped Program into a linear
// command stream the evaluator can execute in order (spec §4.5,
// "Scheduler (ir_to_cmd)").
package schedule

import (
	"fmt"

	"github.com/bwhmather/dtl/ir"
	"github.com/bwhmather/dtl/mapping"
	"github.com/bwhmather/dtl/pos"
	"github.com/google/uuid"
)

// Command is one step of the linear plan the evaluator executes.
type Command interface {
	isCommand()
}

// EvaluateShape computes and caches a ShapeExpression's row count.
type EvaluateShape struct {
	Shape ir.ShapeExpression
}

func (EvaluateShape) isCommand() {}

// EvaluateArray computes and caches an ArrayExpression's value.
type EvaluateArray struct {
	Array ir.ArrayExpression
}

func (EvaluateArray) isCommand() {}

// TraceArray persists an already-cached array to the tracer under a
// stable identifier.
type TraceArray struct {
	Array ir.ArrayExpression
	ID    uuid.UUID
}

func (TraceArray) isCommand() {}

// NamedArray is one column of an ExportTableCmd.
type NamedArray struct {
	Name  string
	Array ir.ArrayExpression
}

// ExportTableCmd materialises a named sink from its columns.
type ExportTableCmd struct {
	Name    string
	Columns []NamedArray
}

func (ExportTableCmd) isCommand() {}

// CollectArray drops a cached array whose last consumer has already
// run. Spec §4.5 marks it optional ("not required for correctness");
// this scheduler does not emit it — see DESIGN.md.
type CollectArray struct {
	Array ir.ArrayExpression
}

func (CollectArray) isCommand() {}

// ColumnPlan is one named, identified column of a SnapshotPlan.
type ColumnPlan struct {
	Name  string
	Array ir.ArrayExpression
	ID    uuid.UUID
}

// SnapshotPlan is the pre-evaluation shape of one manifest snapshot:
// everything but the arrays' actual values, which only exist once the
// evaluator has run the schedule.
type SnapshotPlan struct {
	Span    pos.Span
	Columns []ColumnPlan
}

// MappingPlan is the pre-evaluation shape of one manifest mapping.
type MappingPlan struct {
	Kind                 mapping.Kind
	SrcID, TgtID         uuid.UUID
	SrcIndexID, TgtIndexID uuid.UUID
}

// Schedule is a linear command stream plus the manifest skeleton that
// the same uuids tie back to once the evaluator fills in array values.
type Schedule struct {
	Commands  []Command
	Snapshots []SnapshotPlan
	Mappings  []MappingPlan
}

// Build lowers a Program and its composed Mappings into a Schedule.
// The root set is exactly the union spec §4.5 names: the arrays
// referenced by trace/export tables (ir.Program.Roots), plus every
// array a Mapping references, including its index arrays.
func Build(program *ir.Program, mappings []mapping.Mapping) (*Schedule, error) {
	ids := make(map[ir.ArrayExpression]uuid.UUID)
	idFor := func(a ir.ArrayExpression) uuid.UUID {
		if id, ok := ids[a]; ok {
			return id
		}
		id := uuid.New()
		ids[a] = id
		return id
	}

	rootSet := make(map[ir.Expression]bool)
	var roots []ir.Expression
	addRoot := func(e ir.Expression) {
		if e == nil || rootSet[e] {
			return
		}
		rootSet[e] = true
		roots = append(roots, e)
	}

	var snapshots []SnapshotPlan
	var exports []ExportTableCmd

	for _, table := range program.Tables {
		switch t := table.(type) {
		case *ir.TraceTable:
			cols := make([]ColumnPlan, len(t.Cols))
			for i, col := range t.Cols {
				addRoot(col.Expression)
				cols[i] = ColumnPlan{Name: col.Name, Array: col.Expression, ID: idFor(col.Expression)}
			}
			snapshots = append(snapshots, SnapshotPlan{Span: t.Span, Columns: cols})
		case *ir.ExportTable:
			named := make([]NamedArray, len(t.Cols))
			for i, col := range t.Cols {
				addRoot(col.Expression)
				named[i] = NamedArray{Name: col.Name, Array: col.Expression}
			}
			exports = append(exports, ExportTableCmd{Name: t.ExportAs, Columns: named})
		default:
			return nil, fmt.Errorf("schedule: unhandled ir.Table variant %T", table)
		}
	}

	mappingPlans := make([]MappingPlan, len(mappings))
	for i, m := range mappings {
		addRoot(m.Src)
		addRoot(m.Tgt)
		plan := MappingPlan{Kind: m.Kind, SrcID: idFor(m.Src), TgtID: idFor(m.Tgt)}
		if m.SrcIndex != nil {
			addRoot(m.SrcIndex)
			plan.SrcIndexID = idFor(m.SrcIndex)
		}
		if m.TgtIndex != nil {
			addRoot(m.TgtIndex)
			plan.TgtIndexID = idFor(m.TgtIndex)
		}
		mappingPlans[i] = plan
	}

	order := ir.TraverseDepthFirst(roots)

	var commands []Command
	for _, node := range order {
		switch n := node.(type) {
		case ir.ShapeExpression:
			commands = append(commands, EvaluateShape{Shape: n})
		case ir.ArrayExpression:
			commands = append(commands, EvaluateArray{Array: n})
		default:
			return nil, fmt.Errorf("schedule: node %T is neither a ShapeExpression nor an ArrayExpression", node)
		}
	}

	traced := make(map[ir.ArrayExpression]bool, len(ids))
	emitTrace := func(a ir.ArrayExpression) {
		if a == nil || traced[a] {
			return
		}
		traced[a] = true
		commands = append(commands, TraceArray{Array: a, ID: ids[a]})
	}
	for _, snap := range snapshots {
		for _, col := range snap.Columns {
			emitTrace(col.Array)
		}
	}
	for _, m := range mappings {
		emitTrace(m.Src)
		emitTrace(m.Tgt)
		emitTrace(m.SrcIndex)
		emitTrace(m.TgtIndex)
	}

	for _, exp := range exports {
		commands = append(commands, exp)
	}

	return &Schedule{Commands: commands, Snapshots: snapshots, Mappings: mappingPlans}, nil
}
