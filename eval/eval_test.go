package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bwhmather/dtl/arrayrt"
	"github.com/bwhmather/dtl/ir"
	"github.com/bwhmather/dtl/mapping"
	"github.com/bwhmather/dtl/manifest"
	"github.com/bwhmather/dtl/schedule"
)

func newContext(importer *arrayrt.MemoryImporter) (*Context, *arrayrt.MemoryExporter, *arrayrt.MemoryTracer) {
	rt := arrayrt.NewMemoryRuntime()
	exporter := arrayrt.NewMemoryExporter()
	tracer := arrayrt.NewMemoryTracer()
	return NewContext(rt, importer, exporter, tracer), exporter, tracer
}

func TestRunEvaluatesAndExportsAColumn(t *testing.T) {
	shape := ir.NewImportShape("people.csv")
	age := ir.NewImportColumn(shape, "age", ir.INT64)
	one := ir.NewIntLit(1, ir.INT64, shape)
	nextAge := ir.NewAdd(age, one)

	importer := arrayrt.NewMemoryImporter()
	importer.AddTable("people.csv", []string{"age"}, map[string]arrayrt.Array{
		"age": arrayrt.Int64Array{30, 25, 40},
	})

	program := &ir.Program{
		Tables: []ir.Table{
			&ir.ExportTable{ExportAs: "out.csv", Cols: []ir.Column{{Name: "next_age", Expression: nextAge}}},
		},
	}

	sched, err := schedule.Build(program, nil)
	require.NoError(t, err)

	ctx, exporter, _ := newContext(importer)
	require.NoError(t, Run(ctx, "EXPORT ...;", sched))

	table, ok := exporter.Table("out.csv")
	require.True(t, ok)
	assert.Equal(t, arrayrt.Int64Array{31, 26, 41}, table["next_age"])
}

func TestRunWritesManifestWithMappings(t *testing.T) {
	shape := ir.NewImportShape("people.csv")
	mask := ir.NewImportColumn(shape, "active", ir.BOOL)
	source := ir.NewImportColumn(shape, "x", ir.INT64)
	where := ir.NewWhere(source, mask)

	importer := arrayrt.NewMemoryImporter()
	importer.AddTable("people.csv", []string{"active", "x"}, map[string]arrayrt.Array{
		"active": arrayrt.BoolArray{true, false, true},
		"x":      arrayrt.Int64Array{1, 2, 3},
	})

	program := &ir.Program{
		Tables: []ir.Table{
			&ir.ExportTable{ExportAs: "out.csv", Cols: []ir.Column{{Name: "x", Expression: where}}},
		},
	}

	mappings := []mapping.Mapping{
		{
			Kind: mapping.ManyToMany, Src: source, Tgt: where,
			SrcIndex: ir.NewWhereColumn(where.Shape().(*ir.WhereShape), ir.NewRange(shape), mask),
			TgtIndex: ir.NewRange(where.Shape()),
		},
	}

	sched, err := schedule.Build(program, mappings)
	require.NoError(t, err)

	ctx, exporter, tracer := newContext(importer)
	require.NoError(t, Run(ctx, "EXPORT ...;", sched))

	table, ok := exporter.Table("out.csv")
	require.True(t, ok)
	assert.Equal(t, arrayrt.Int64Array{1, 3}, table["x"])

	assert.NotEmpty(t, tracer.Arrays())
	require.NotNil(t, tracer.Manifest)
	require.NotEmpty(t, tracer.Manifest.Mappings)
	assert.IsType(t, manifest.ManyToManyMapping{}, tracer.Manifest.Mappings[0])
}

func TestRunRejectsUnhandledMappingKind(t *testing.T) {
	shape := ir.NewImportShape("a.csv")
	x := ir.NewImportColumn(shape, "x", ir.INT64)

	importer := arrayrt.NewMemoryImporter()
	importer.AddTable("a.csv", []string{"x"}, map[string]arrayrt.Array{"x": arrayrt.Int64Array{1}})

	program := &ir.Program{
		Tables: []ir.Table{
			&ir.ExportTable{ExportAs: "out.csv", Cols: []ir.Column{{Name: "x", Expression: x}}},
		},
	}

	sched, err := schedule.Build(program, nil)
	require.NoError(t, err)
	sched.Mappings = append(sched.Mappings, schedule.MappingPlan{Kind: mapping.Kind(99)})

	ctx, _, _ := newContext(importer)
	err = Run(ctx, "script", sched)
	assert.Error(t, err)
}
