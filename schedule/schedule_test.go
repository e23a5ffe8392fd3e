package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bwhmather/dtl/ir"
	"github.com/bwhmather/dtl/mapping"
)

func TestBuildEmitsEvaluateCommandsInDependencyOrder(t *testing.T) {
	shape := ir.NewImportShape("a.csv")
	x := ir.NewImportColumn(shape, "x", ir.INT64)
	y := ir.NewImportColumn(shape, "y", ir.INT64)
	sum := ir.NewAdd(x, y)

	program := &ir.Program{
		Tables: []ir.Table{
			&ir.ExportTable{ExportAs: "out.csv", Cols: []ir.Column{{Name: "sum", Expression: sum}}},
		},
	}

	sched, err := Build(program, nil)
	require.NoError(t, err)

	indexOf := func(want ir.Expression) int {
		for i, cmd := range sched.Commands {
			switch c := cmd.(type) {
			case EvaluateShape:
				if c.Shape == want {
					return i
				}
			case EvaluateArray:
				if ir.Expression(c.Array) == want {
					return i
				}
			}
		}
		return -1
	}

	require.GreaterOrEqual(t, indexOf(x), 0)
	require.GreaterOrEqual(t, indexOf(sum), 0)
	assert.Less(t, indexOf(x), indexOf(sum))
	assert.Less(t, indexOf(y), indexOf(sum))
}

func TestBuildEmitsExportCommandLast(t *testing.T) {
	shape := ir.NewImportShape("a.csv")
	x := ir.NewImportColumn(shape, "x", ir.INT64)

	program := &ir.Program{
		Tables: []ir.Table{
			&ir.ExportTable{ExportAs: "out.csv", Cols: []ir.Column{{Name: "x", Expression: x}}},
		},
	}

	sched, err := Build(program, nil)
	require.NoError(t, err)

	require.NotEmpty(t, sched.Commands)
	last := sched.Commands[len(sched.Commands)-1]
	exp, ok := last.(ExportTableCmd)
	require.True(t, ok)
	assert.Equal(t, "out.csv", exp.Name)
	require.Len(t, exp.Columns, 1)
	assert.Equal(t, "x", exp.Columns[0].Name)
}

func TestBuildTracesSnapshotColumns(t *testing.T) {
	shape := ir.NewImportShape("a.csv")
	x := ir.NewImportColumn(shape, "x", ir.INT64)

	program := &ir.Program{
		Tables: []ir.Table{
			&ir.TraceTable{Level: ir.STATEMENT, Cols: []ir.Column{{Name: "x", Expression: x}}},
			&ir.ExportTable{ExportAs: "out.csv", Cols: []ir.Column{{Name: "x", Expression: x}}},
		},
	}

	sched, err := Build(program, nil)
	require.NoError(t, err)

	require.Len(t, sched.Snapshots, 1)
	assert.Equal(t, "x", sched.Snapshots[0].Columns[0].Name)

	var traceCount int
	for _, cmd := range sched.Commands {
		if tr, ok := cmd.(TraceArray); ok {
			traceCount++
			assert.Equal(t, ir.Expression(x), ir.Expression(tr.Array))
		}
	}
	// x is referenced by both the snapshot and the export, but must only
	// be traced once.
	assert.Equal(t, 1, traceCount)
}

func TestBuildIncludesMappingArraysAsRoots(t *testing.T) {
	shape := ir.NewImportShape("a.csv")
	mask := ir.NewImportColumn(shape, "active", ir.BOOL)
	source := ir.NewImportColumn(shape, "x", ir.INT64)
	where := ir.NewWhere(source, mask)

	program := &ir.Program{
		Tables: []ir.Table{
			&ir.ExportTable{ExportAs: "out.csv", Cols: []ir.Column{{Name: "x", Expression: where}}},
		},
	}

	mappings := []mapping.Mapping{
		{Kind: mapping.ManyToMany, Src: source, Tgt: where, SrcIndex: ir.NewRange(shape), TgtIndex: ir.NewRange(where.Shape())},
	}

	sched, err := Build(program, mappings)
	require.NoError(t, err)
	require.Len(t, sched.Mappings, 1)

	plan := sched.Mappings[0]
	assert.Equal(t, mapping.ManyToMany, plan.Kind)
	assert.NotEqual(t, plan.SrcID, plan.TgtID)
	assert.NotEqual(t, plan.SrcIndexID, plan.TgtIndexID)

	var tracedMask, tracedSource bool
	for _, cmd := range sched.Commands {
		if tr, ok := cmd.(TraceArray); ok {
			if ir.Expression(tr.Array) == ir.Expression(source) {
				tracedSource = true
			}
		}
		if ev, ok := cmd.(EvaluateArray); ok && ir.Expression(ev.Array) == ir.Expression(mask) {
			tracedMask = true
		}
	}
	assert.True(t, tracedSource, "mapping source array must be traced")
	assert.True(t, tracedMask, "mask feeding a traced Where node must be evaluated")
}

func TestBuildRejectsUnknownTableVariant(t *testing.T) {
	program := &ir.Program{Tables: []ir.Table{unknownTable{}}}
	_, err := Build(program, nil)
	assert.Error(t, err)
}

type unknownTable struct{}

func (unknownTable) Columns() []ir.Column { return nil }
