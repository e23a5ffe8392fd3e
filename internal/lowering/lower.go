package lowering

import (
	"fmt"

	"github.com/bwhmather/dtl/ast"
	"github.com/bwhmather/dtl/internal/dtlerrors"
	"github.com/bwhmather/dtl/ir"
	"github.com/bwhmather/dtl/pos"
)

// SchemaImporter is everything lowering needs from the array runtime's
// importer: column names and dtypes, without touching actual data.
// arrayrt.MemoryImporter satisfies this directly.
type SchemaImporter interface {
	ColumnNames(location string) ([]string, error)
	ColumnDType(location, name string) (ir.DType, error)
}

type joinShapeKey struct {
	a, b ir.ShapeExpression
}

// context is lowering's mutable state (spec §4.3): the Program under
// construction, the global bindings introduced by WITH statements, the
// importer, and caches that make sure structurally-identical shapes
// (same import location, same mask, same join operands) collapse onto
// one shared node — required for the reference-identity shape check
// every binary op enforces at construction.
type context struct {
	program  *ir.Program
	globals  map[string]Scope
	importer SchemaImporter

	importShapes map[string]*ir.ImportShape
	whereShapes  map[ir.ArrayExpression]*ir.WhereShape
	joinShapes   map[joinShapeKey]*ir.JoinShape
}

// Lower lowers a parsed statement list into a Program (spec §4.3).
func Lower(stmts *ast.StatementList, importer SchemaImporter) (prog *ir.Program, err error) {
	defer func() {
		if r := recover(); r != nil {
			switch e := r.(type) {
			case *dtlerrors.CompileError:
				err = e
			case *dtlerrors.InternalError:
				err = e
			default:
				panic(r)
			}
		}
	}()

	c := &context{
		program:      &ir.Program{},
		globals:      make(map[string]Scope),
		importer:     importer,
		importShapes: make(map[string]*ir.ImportShape),
		whereShapes:  make(map[ir.ArrayExpression]*ir.WhereShape),
		joinShapes:   make(map[joinShapeKey]*ir.JoinShape),
	}

	for _, stmt := range stmts.Statements {
		c.lowerStatement(stmt)
	}

	return c.program, nil
}

func (c *context) fail(span pos.Span, format string, args ...any) {
	panic(&dtlerrors.CompileError{Span: span, Message: fmt.Sprintf(format, args...)})
}

func (c *context) importShape(location string) *ir.ImportShape {
	if s, ok := c.importShapes[location]; ok {
		return s
	}
	s := ir.NewImportShape(location)
	c.importShapes[location] = s
	return s
}

func (c *context) whereShape(mask ir.ArrayExpression) *ir.WhereShape {
	if s, ok := c.whereShapes[mask]; ok {
		return s
	}
	s := ir.NewWhereShape(mask)
	c.whereShapes[mask] = s
	return s
}

func (c *context) joinShape(a, b ir.ShapeExpression) *ir.JoinShape {
	key := joinShapeKey{a, b}
	if s, ok := c.joinShapes[key]; ok {
		return s
	}
	s := ir.NewJoinShape(a, b)
	c.joinShapes[key] = s
	return s
}

// trace materialises scope into a TraceTable and appends it to the
// Program.
func (c *context) trace(scope Scope, span pos.Span, level ir.Level) {
	c.program.Tables = append(c.program.Tables, &ir.TraceTable{
		Span:  span,
		Level: level,
		Cols:  scopeColumns(scope),
	})
}

// export emits an ExportTable for scope.
func (c *context) export(scope Scope, name string) {
	c.program.Tables = append(c.program.Tables, &ir.ExportTable{
		ExportAs: name,
		Cols:     scopeColumns(scope),
	})
}

func scopeColumns(scope Scope) []ir.Column {
	names := scope.Names()
	exprs := scope.Exprs()
	cols := make([]ir.Column, len(names))
	for i := range names {
		cols[i] = ir.Column{Name: names[i], Expression: exprs[i]}
	}
	return cols
}

// --- Statement lowering ------------------------------------------------------

func (c *context) lowerStatement(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.WithStatement:
		scope := c.lowerTableExpression(s.Expression).StripNamespaces()
		c.trace(scope, s.Span(), ir.STATEMENT)
		c.globals[s.Target] = scope
	case *ast.ExportStatement:
		scope := c.lowerTableExpression(s.Expression).StripNamespaces()
		c.trace(scope, s.Span(), ir.EXPORT)
		c.export(scope, s.Location)
	default:
		dtlerrors.Panic("lowering: unhandled Statement variant %T", stmt)
	}
}

// --- Table expression lowering -----------------------------------------------

func (c *context) lowerTableExpression(te ast.TableExpression) Scope {
	switch t := te.(type) {
	case *ast.TableReference:
		scope, ok := c.globals[t.Name]
		if !ok {
			c.fail(t.Span(), "undefined table %q", t.Name)
		}
		scope = scope.StripNamespaces()
		c.trace(scope, t.Span(), ir.TABLE_EXPRESSION)
		return scope
	case *ast.ImportExpression:
		return c.lowerImport(t)
	case *ast.SelectExpression:
		return c.lowerSelect(t)
	default:
		dtlerrors.Panic("lowering: unhandled TableExpression variant %T", te)
		return Scope{}
	}
}

func (c *context) lowerImport(t *ast.ImportExpression) Scope {
	names, err := c.importer.ColumnNames(t.Location)
	if err != nil {
		c.fail(t.Span(), "import %q: %s", t.Location, err)
	}

	shape := c.importShape(t.Location)
	exprs := make([]ir.ArrayExpression, len(names))
	for i, name := range names {
		dt, err := c.importer.ColumnDType(t.Location, name)
		if err != nil {
			c.fail(t.Span(), "import %q: %s", t.Location, err)
		}
		exprs[i] = ir.NewImportColumn(shape, name, dt)
	}

	scope := NewScope(names, exprs)
	c.trace(scope, t.Span(), ir.TABLE_EXPRESSION)
	return scope
}

func (c *context) lowerSelect(sel *ast.SelectExpression) Scope {
	scope := c.lowerTableExpression(sel.Source)
	if name, ok := tableExpressionName(sel.Source, sel.SourceAlias); ok {
		scope = scope.WithNamespace(name)
	}

	for _, join := range sel.Joins {
		scope = c.lowerJoin(scope, join)
	}

	if sel.Where != nil {
		mask := c.lowerExpression(scope, sel.Where)
		if mask.DType() != ir.BOOL {
			c.fail(sel.Where.Span(), "WHERE predicate must be BOOL, got %s", mask.DType())
		}
		shape := c.whereShape(mask)
		scope = scope.mapExprs(func(e ir.ArrayExpression) ir.ArrayExpression {
			return ir.NewWhereColumn(shape, e, mask)
		})
	}

	if sel.GroupBy != nil {
		c.fail(sel.GroupBy.Span(), "GROUP BY is not implemented")
	}

	names := make([]string, 0, len(sel.Columns))
	exprs := make([]ir.ArrayExpression, 0, len(sel.Columns))
	index := make(map[string]int, len(sel.Columns))

	set := func(name string, expr ir.ArrayExpression) {
		if i, ok := index[name]; ok {
			exprs[i] = expr
			return
		}
		index[name] = len(names)
		names = append(names, name)
		exprs = append(exprs, expr)
	}

	for _, cb := range sel.Columns {
		switch b := cb.(type) {
		case *ast.Wildcard:
			wildcardNames := scope.Names()
			wildcardExprs := scope.Exprs()
			for i, n := range wildcardNames {
				set(n, wildcardExprs[i])
			}
		case *ast.ExpressionBinding:
			expr := c.lowerExpression(scope, b.Expression)
			name, ok := columnBindingName(b)
			if !ok {
				c.fail(b.Span(), "column has no name; add an AS alias")
			}
			set(name, expr)
		default:
			dtlerrors.Panic("lowering: unhandled ColumnBinding variant %T", cb)
		}
	}

	result := NewScope(names, exprs)
	c.trace(result, sel.Span(), ir.STATEMENT)
	return result
}

func (c *context) lowerJoin(scope Scope, join *ast.JoinClause) Scope {
	joinScope := c.lowerTableExpression(join.Table)
	if name, ok := tableExpressionName(join.Table, join.Alias); ok {
		joinScope = joinScope.WithNamespace(name)
	}

	shapeA, ok := scope.FirstShape()
	if !ok {
		c.fail(join.Span(), "cannot join: left side of join has no columns")
	}
	shapeB, ok := joinScope.FirstShape()
	if !ok {
		c.fail(join.Table.Span(), "cannot join: right side of join has no columns")
	}

	full := c.joinShape(shapeA, shapeB)
	leftFull := ir.NewJoinLeftWithShape(full, shapeA, shapeB)
	rightFull := ir.NewJoinRightWithShape(full, shapeA, shapeB)

	scratch := scope.mapExprs(func(e ir.ArrayExpression) ir.ArrayExpression {
		return ir.NewPick(e, leftFull)
	}).concat(joinScope.mapExprs(func(e ir.ArrayExpression) ir.ArrayExpression {
		return ir.NewPick(e, rightFull)
	}))

	constraint, ok := join.Constraint.(*ast.OnConstraint)
	if !ok {
		c.fail(join.Span(), "USING joins are not implemented")
	}
	mask := c.lowerExpression(scratch, constraint.Predicate)
	if mask.DType() != ir.BOOL {
		c.fail(constraint.Span(), "join predicate must be BOOL, got %s", mask.DType())
	}

	filterShape := c.whereShape(mask)
	leftFiltered := ir.NewWhereColumn(filterShape, leftFull, mask)
	rightFiltered := ir.NewWhereColumn(filterShape, rightFull, mask)

	joined := scope.mapExprs(func(e ir.ArrayExpression) ir.ArrayExpression {
		return ir.NewPick(e, leftFiltered)
	}).concat(joinScope.mapExprs(func(e ir.ArrayExpression) ir.ArrayExpression {
		return ir.NewPick(e, rightFiltered)
	}))

	c.trace(joined, join.Span(), ir.INTERNAL)
	return joined
}

// tableExpressionName derives the namespace a table expression's
// columns additionally become reachable under: an explicit alias, or
// (absent one) the referenced table's own name.
func tableExpressionName(te ast.TableExpression, alias *string) (string, bool) {
	if alias != nil {
		return *alias, true
	}
	if tr, ok := te.(*ast.TableReference); ok {
		return tr.Name, true
	}
	return "", false
}

// columnBindingName implements the implicit-naming rule of spec §4.3:
// a bare column reference (qualified or not) binds under its
// unqualified name; anything else needs an explicit alias.
func columnBindingName(b *ast.ExpressionBinding) (string, bool) {
	if b.Alias != nil {
		return *b.Alias, true
	}
	if cr, ok := b.Expression.(*ast.ColumnReference); ok {
		switch n := cr.Name.(type) {
		case *ast.UnqualifiedColumnName:
			return n.Name, true
		case *ast.QualifiedColumnName:
			return n.Name, true
		}
	}
	return "", false
}

// --- Expression lowering ------------------------------------------------------

func (c *context) lowerExpression(scope Scope, expr ast.Expression) ir.ArrayExpression {
	switch e := expr.(type) {
	case *ast.ColumnReference:
		return c.lowerColumnReference(scope, e)
	case *ast.BoolLiteral:
		return ir.NewBoolLit(e.Value, c.literalShape(scope, e.Span()))
	case *ast.IntLiteral:
		return ir.NewIntLit(e.Value, ir.INT64, c.literalShape(scope, e.Span()))
	case *ast.FloatLiteral:
		return ir.NewFloatLit(e.Value, c.literalShape(scope, e.Span()))
	case *ast.StringLiteral:
		return ir.NewTextLit(e.Value, c.literalShape(scope, e.Span()))
	case *ast.BytesLiteral:
		return ir.NewBytesLit(e.Value, c.literalShape(scope, e.Span()))
	case *ast.FunctionCall:
		return c.lowerFunctionCall(scope, e)
	case *ast.BinaryExpression:
		return c.lowerBinaryExpression(scope, e)
	default:
		dtlerrors.Panic("lowering: unhandled Expression variant %T", expr)
		return nil
	}
}

func (c *context) lowerColumnReference(scope Scope, cr *ast.ColumnReference) ir.ArrayExpression {
	switch n := cr.Name.(type) {
	case *ast.UnqualifiedColumnName:
		arr, ok := scope.Lookup(DefaultNamespace, n.Name)
		if !ok {
			c.fail(cr.Span(), "undefined column %q", n.Name)
		}
		return arr
	case *ast.QualifiedColumnName:
		arr, ok := scope.Lookup(n.Table, n.Name)
		if !ok {
			c.fail(cr.Span(), "undefined column %q.%q", n.Table, n.Name)
		}
		return arr
	default:
		dtlerrors.Panic("lowering: unhandled ColumnName variant %T", cr.Name)
		return nil
	}
}

func (c *context) literalShape(scope Scope, span pos.Span) ir.ShapeExpression {
	shape, ok := scope.FirstShape()
	if !ok {
		c.fail(span, "cannot evaluate a literal against a table with no columns")
	}
	return shape
}

func (c *context) lowerFunctionCall(scope Scope, fc *ast.FunctionCall) ir.ArrayExpression {
	switch fc.Name {
	case "add":
		if len(fc.Args) != 2 {
			c.fail(fc.Span(), "add: expected 2 arguments, got %d", len(fc.Args))
		}
		a := c.lowerExpression(scope, fc.Args[0])
		b := c.lowerExpression(scope, fc.Args[1])
		if a.DType() != b.DType() {
			c.fail(fc.Span(), "add: mismatched argument dtypes %s and %s", a.DType(), b.DType())
		}
		return ir.NewAdd(a, b)
	default:
		c.fail(fc.Span(), "unknown function %q", fc.Name)
		return nil
	}
}

func (c *context) lowerBinaryExpression(scope Scope, be *ast.BinaryExpression) ir.ArrayExpression {
	a := c.lowerExpression(scope, be.Left)
	b := c.lowerExpression(scope, be.Right)
	if a.DType() != b.DType() {
		c.fail(be.Span(), "%s: mismatched operand dtypes %s and %s", binaryOpName(be.Op), a.DType(), b.DType())
	}

	switch be.Op {
	case ast.OpAdd:
		return ir.NewAdd(a, b)
	case ast.OpSubtract:
		return ir.NewSubtract(a, b)
	case ast.OpMultiply:
		return ir.NewMultiply(a, b)
	case ast.OpDivide:
		return ir.NewDivide(a, b)
	case ast.OpEqual:
		return ir.NewEqualTo(a, b)
	case ast.OpNotEqual, ast.OpLessThan, ast.OpLessThanOrEqual, ast.OpGreaterThan, ast.OpGreaterThanOrEqual:
		c.fail(be.Span(), "comparison operator %s is not implemented: the IR only carries EqualTo", binaryOpName(be.Op))
		return nil
	default:
		dtlerrors.Panic("lowering: unhandled BinaryOp %v", be.Op)
		return nil
	}
}

func binaryOpName(op ast.BinaryOp) string {
	switch op {
	case ast.OpAdd:
		return "+"
	case ast.OpSubtract:
		return "-"
	case ast.OpMultiply:
		return "*"
	case ast.OpDivide:
		return "/"
	case ast.OpEqual:
		return "="
	case ast.OpNotEqual:
		return "!="
	case ast.OpLessThan:
		return "<"
	case ast.OpLessThanOrEqual:
		return "<="
	case ast.OpGreaterThan:
		return ">"
	case ast.OpGreaterThanOrEqual:
		return ">="
	default:
		return "?"
	}
}
