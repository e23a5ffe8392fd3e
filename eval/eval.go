// Package eval executes a schedule.Schedule against an arrayrt.Runtime,
// producing exported tables and a trace manifest (spec §4.6,
// "Evaluator").
package eval

import (
	"fmt"

	"github.com/bwhmather/dtl/arrayrt"
	"github.com/bwhmather/dtl/internal/dtlerrors"
	"github.com/bwhmather/dtl/ir"
	"github.com/bwhmather/dtl/mapping"
	"github.com/bwhmather/dtl/manifest"
	"github.com/bwhmather/dtl/schedule"
)

// Context is the evaluator's mutable state: two caches (shape→int,
// array-expr→array) plus the importer/exporter/tracer handles. Nothing
// outside Context.arrays/shapes is ever mutated; building a Context is
// the only stateful part of evaluation (spec §5).
type Context struct {
	Runtime  arrayrt.Runtime
	Importer arrayrt.Importer
	Exporter arrayrt.Exporter
	Tracer   arrayrt.Tracer

	shapes map[ir.ShapeExpression]int
	arrays map[ir.ArrayExpression]arrayrt.Array
}

// NewContext builds an evaluator bound to the given runtime and I/O
// handles.
func NewContext(rt arrayrt.Runtime, importer arrayrt.Importer, exporter arrayrt.Exporter, tracer arrayrt.Tracer) *Context {
	return &Context{
		Runtime:  rt,
		Importer: importer,
		Exporter: exporter,
		Tracer:   tracer,
		shapes:   make(map[ir.ShapeExpression]int),
		arrays:   make(map[ir.ArrayExpression]arrayrt.Array),
	}
}

// Run executes every command of sched in order, then writes the trace
// manifest built from sched's snapshot/mapping plans. source is
// embedded verbatim into the manifest (spec §6).
func Run(ctx *Context, source string, sched *schedule.Schedule) error {
	for _, cmd := range sched.Commands {
		if err := ctx.execute(cmd); err != nil {
			return err
		}
	}

	m := &manifest.Manifest{Source: source}
	for _, snap := range sched.Snapshots {
		cols := make([]manifest.Column, len(snap.Columns))
		for i, c := range snap.Columns {
			cols[i] = manifest.Column{Name: c.Name, Array: c.ID}
		}
		m.Snapshots = append(m.Snapshots, manifest.Snapshot{
			Start:   snap.Span.Start,
			End:     snap.Span.End,
			Columns: cols,
		})
	}
	for _, mp := range sched.Mappings {
		mm, err := mappingPlanToManifest(mp)
		if err != nil {
			return err
		}
		m.Mappings = append(m.Mappings, mm)
	}

	if err := ctx.Tracer.WriteManifest(m); err != nil {
		return &dtlerrors.RuntimeError{Message: "write trace manifest", Cause: err}
	}
	return nil
}

func mappingPlanToManifest(mp schedule.MappingPlan) (manifest.Mapping, error) {
	switch mp.Kind {
	case mapping.Identity:
		return manifest.IdentityMapping{Src: mp.SrcID, Tgt: mp.TgtID}, nil
	case mapping.ManyToOne:
		return manifest.ManyToOneMapping{Src: mp.SrcID, Tgt: mp.TgtID, TgtIndex: mp.TgtIndexID}, nil
	case mapping.OneToMany:
		return manifest.OneToManyMapping{Src: mp.SrcID, Tgt: mp.TgtID, SrcIndex: mp.SrcIndexID}, nil
	case mapping.ManyToMany:
		return manifest.ManyToManyMapping{
			Src: mp.SrcID, Tgt: mp.TgtID,
			SrcIndex: mp.SrcIndexID, TgtIndex: mp.TgtIndexID,
		}, nil
	default:
		return nil, &dtlerrors.InternalError{Message: fmt.Sprintf("eval: unhandled mapping kind %s", mp.Kind)}
	}
}

func (ctx *Context) execute(cmd schedule.Command) error {
	switch c := cmd.(type) {
	case schedule.EvaluateShape:
		return ctx.evalShape(c.Shape)
	case schedule.EvaluateArray:
		return ctx.evalArray(c.Array)
	case schedule.TraceArray:
		arr, ok := ctx.arrays[c.Array]
		if !ok {
			dtlerrors.Panic("eval: TraceArray requested before its array was evaluated")
		}
		if err := ctx.Tracer.TraceArray(c.ID, arr); err != nil {
			return &dtlerrors.RuntimeError{Message: "trace array", Cause: err}
		}
		return nil
	case schedule.ExportTableCmd:
		cols := make(map[string]arrayrt.Array, len(c.Columns))
		for _, nc := range c.Columns {
			arr, ok := ctx.arrays[nc.Array]
			if !ok {
				dtlerrors.Panic("eval: ExportTable column %q requested before its array was evaluated", nc.Name)
			}
			cols[nc.Name] = arr
		}
		if err := ctx.Exporter.Export(c.Name, cols); err != nil {
			return &dtlerrors.RuntimeError{Message: fmt.Sprintf("export table %q", c.Name), Cause: err}
		}
		return nil
	case schedule.CollectArray:
		delete(ctx.arrays, c.Array)
		return nil
	default:
		dtlerrors.Panic("eval: unhandled schedule.Command variant %T", cmd)
		return nil
	}
}

func (ctx *Context) evalShape(shape ir.ShapeExpression) error {
	if _, ok := ctx.shapes[shape]; ok {
		return nil
	}

	switch s := shape.(type) {
	case *ir.ImportShape:
		n, err := ctx.Importer.Len(s.Location)
		if err != nil {
			return &dtlerrors.RuntimeError{Message: fmt.Sprintf("import %q", s.Location), Cause: err}
		}
		ctx.shapes[shape] = n

	case *ir.WhereShape:
		mask, ok := ctx.arrays[s.Mask]
		if !ok {
			dtlerrors.Panic("eval: WhereShape evaluated before its mask")
		}
		n, err := ctx.Runtime.Sum(mask)
		if err != nil {
			return &dtlerrors.RuntimeError{Message: "sum mask", Cause: err}
		}
		ctx.shapes[shape] = n

	case *ir.JoinShape:
		a, ok := ctx.shapes[s.A]
		if !ok {
			dtlerrors.Panic("eval: JoinShape evaluated before operand A's shape")
		}
		b, ok := ctx.shapes[s.B]
		if !ok {
			dtlerrors.Panic("eval: JoinShape evaluated before operand B's shape")
		}
		ctx.shapes[shape] = a * b

	default:
		dtlerrors.Panic("eval: unhandled ShapeExpression variant %T", shape)
	}

	return nil
}

func (ctx *Context) evalArray(node ir.ArrayExpression) error {
	if _, ok := ctx.arrays[node]; ok {
		return nil
	}

	length, ok := ctx.shapes[node.Shape()]
	if !ok {
		dtlerrors.Panic("eval: %T evaluated before its shape", node)
	}

	var (
		arr arrayrt.Array
		err error
	)

	switch n := node.(type) {
	case *ir.BoolLit:
		arr, err = ctx.Runtime.Broadcast(n.Value, length, ir.BOOL)
	case *ir.IntLit:
		var val any
		if n.DT == ir.INT32 {
			val = int32(n.Value)
		} else {
			val = n.Value
		}
		arr, err = ctx.Runtime.Broadcast(val, length, n.DT)
	case *ir.FloatLit:
		arr, err = ctx.Runtime.Broadcast(n.Value, length, ir.DOUBLE)
	case *ir.TextLit:
		arr, err = ctx.Runtime.Broadcast(n.Value, length, ir.TEXT)
	case *ir.BytesLit:
		arr, err = ctx.Runtime.Broadcast(n.Value, length, ir.BYTES)

	case *ir.Import:
		arr, err = ctx.Importer.Column(n.Location, n.Name)

	case *ir.Where:
		source, sok := ctx.arrays[n.Source]
		mask, mok := ctx.arrays[n.Mask]
		if !sok || !mok {
			dtlerrors.Panic("eval: Where evaluated before its operands")
		}
		arr, err = ctx.Runtime.Filter(source, mask)

	case *ir.Pick:
		source, sok := ctx.arrays[n.Source]
		indexes, iok := ctx.arrays[n.Indexes]
		if !sok || !iok {
			dtlerrors.Panic("eval: Pick evaluated before its operands")
		}
		arr, err = ctx.Runtime.Take(source, indexes)

	case *ir.Range:
		arr, err = ctx.Runtime.Range(length)

	case *ir.JoinLeft:
		a, aok := ctx.shapes[n.A]
		b, bok := ctx.shapes[n.B]
		if !aok || !bok {
			dtlerrors.Panic("eval: JoinLeft evaluated before its operand shapes")
		}
		arr, err = ctx.Runtime.JoinLeftIndex(a, b)

	case *ir.JoinRight:
		a, aok := ctx.shapes[n.A]
		b, bok := ctx.shapes[n.B]
		if !aok || !bok {
			dtlerrors.Panic("eval: JoinRight evaluated before its operand shapes")
		}
		arr, err = ctx.Runtime.JoinRightIndex(a, b)

	case *ir.Binary:
		a, aok := ctx.arrays[n.SourceA]
		b, bok := ctx.arrays[n.SourceB]
		if !aok || !bok {
			dtlerrors.Panic("eval: Binary evaluated before its operands")
		}
		switch n.Op {
		case ir.OpAdd:
			arr, err = ctx.Runtime.Add(a, b)
		case ir.OpSubtract:
			arr, err = ctx.Runtime.Subtract(a, b)
		case ir.OpMultiply:
			arr, err = ctx.Runtime.Multiply(a, b)
		case ir.OpDivide:
			arr, err = ctx.Runtime.Divide(a, b)
		case ir.OpEqualTo:
			arr, err = ctx.Runtime.Equal(a, b)
		default:
			dtlerrors.Panic("eval: unhandled BinaryOp %v", n.Op)
		}

	case *ir.JoinLeftEqual, *ir.JoinRightEqual:
		dtlerrors.Panic("eval: %T is a reserved fused node; no lowering or mapping path produces one", node)

	default:
		dtlerrors.Panic("eval: unhandled ArrayExpression variant %T", node)
	}

	if err != nil {
		return &dtlerrors.RuntimeError{Message: fmt.Sprintf("evaluate %T", node), Cause: err}
	}

	ctx.arrays[node] = arr
	return nil
}
