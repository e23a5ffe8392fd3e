package ir

import "github.com/bwhmather/dtl/internal/dtlerrors"

// Expression is a node of the DAG: either a ShapeExpression or an
// ArrayExpression (spec §3.2). Every concrete type is a pointer type;
// two separately-constructed nodes are never == even if every field is
// equal (invariant I4) — deduplication, where wanted, is the caller's
// job (see Map).
type Expression interface {
	// dependencies returns this node's direct predecessors, in the
	// order dependencies must be evaluated.
	dependencies() []Expression
}

// ShapeExpression evaluates, at runtime, to a non-negative row count.
type ShapeExpression interface {
	Expression
	isShapeExpression()
}

// ArrayExpression evaluates, at runtime, to a typed array of its DType,
// with the given number of rows.
type ArrayExpression interface {
	Expression
	isArrayExpression()
	DType() DType
	Shape() ShapeExpression
}

// --- Shape expressions -----------------------------------------------------

// ImportShape is the row count of an externally supplied table (spec
// §3.2).
type ImportShape struct {
	Location string
}

func (*ImportShape) isShapeExpression()        {}
func (*ImportShape) dependencies() []Expression { return nil }

func NewImportShape(location string) *ImportShape {
	return &ImportShape{Location: location}
}

// WhereShape is the popcount of a BOOL mask: the number of true
// entries, known only once the mask is evaluated. It is never the
// mask's length, nor the length of the imported table the mask came
// from.
type WhereShape struct {
	Mask ArrayExpression
}

func (*WhereShape) isShapeExpression() {}
func (s *WhereShape) dependencies() []Expression {
	return []Expression{s.Mask}
}

func NewWhereShape(mask ArrayExpression) *WhereShape {
	if mask.DType() != BOOL {
		dtlerrors.Panic("WhereShape mask must be BOOL, got %s", mask.DType())
	}
	return &WhereShape{Mask: mask}
}

// JoinShape is the Cartesian product |a|*|b| of two shapes; the only way
// shapes grow (invariant I5).
type JoinShape struct {
	A, B ShapeExpression
}

func (*JoinShape) isShapeExpression() {}
func (s *JoinShape) dependencies() []Expression {
	return []Expression{s.A, s.B}
}

func NewJoinShape(a, b ShapeExpression) *JoinShape {
	return &JoinShape{A: a, B: b}
}

// --- Array expressions ------------------------------------------------------

type BoolLit struct {
	Value     bool
	ShapeExpr ShapeExpression
}

func (*BoolLit) isArrayExpression()        {}
func (*BoolLit) DType() DType              { return BOOL }
func (n *BoolLit) Shape() ShapeExpression  { return n.ShapeExpr }
func (n *BoolLit) dependencies() []Expression { return []Expression{n.ShapeExpr} }

func NewBoolLit(value bool, shape ShapeExpression) *BoolLit {
	return &BoolLit{Value: value, ShapeExpr: shape}
}

type IntLit struct {
	Value     int64
	DT        DType // INT32 or INT64
	ShapeExpr ShapeExpression
}

func (*IntLit) isArrayExpression()          {}
func (n *IntLit) DType() DType              { return n.DT }
func (n *IntLit) Shape() ShapeExpression    { return n.ShapeExpr }
func (n *IntLit) dependencies() []Expression { return []Expression{n.ShapeExpr} }

func NewIntLit(value int64, dt DType, shape ShapeExpression) *IntLit {
	if dt != INT32 && dt != INT64 {
		dtlerrors.Panic("IntLit dtype must be INT32 or INT64, got %s", dt)
	}
	return &IntLit{Value: value, DT: dt, ShapeExpr: shape}
}

type FloatLit struct {
	Value     float64
	ShapeExpr ShapeExpression
}

func (*FloatLit) isArrayExpression()          {}
func (*FloatLit) DType() DType                { return DOUBLE }
func (n *FloatLit) Shape() ShapeExpression    { return n.ShapeExpr }
func (n *FloatLit) dependencies() []Expression { return []Expression{n.ShapeExpr} }

func NewFloatLit(value float64, shape ShapeExpression) *FloatLit {
	return &FloatLit{Value: value, ShapeExpr: shape}
}

type TextLit struct {
	Value     string
	ShapeExpr ShapeExpression
}

func (*TextLit) isArrayExpression()          {}
func (*TextLit) DType() DType                { return TEXT }
func (n *TextLit) Shape() ShapeExpression    { return n.ShapeExpr }
func (n *TextLit) dependencies() []Expression { return []Expression{n.ShapeExpr} }

func NewTextLit(value string, shape ShapeExpression) *TextLit {
	return &TextLit{Value: value, ShapeExpr: shape}
}

type BytesLit struct {
	Value     []byte
	ShapeExpr ShapeExpression
}

func (*BytesLit) isArrayExpression()          {}
func (*BytesLit) DType() DType                { return BYTES }
func (n *BytesLit) Shape() ShapeExpression    { return n.ShapeExpr }
func (n *BytesLit) dependencies() []Expression { return []Expression{n.ShapeExpr} }

func NewBytesLit(value []byte, shape ShapeExpression) *BytesLit {
	return &BytesLit{Value: value, ShapeExpr: shape}
}

// Import is a named column of an externally supplied table.
type Import struct {
	Location string
	Name     string
	DT       DType

	shape *ImportShape
}

func (*Import) isArrayExpression()       {}
func (n *Import) DType() DType           { return n.DT }
func (n *Import) Shape() ShapeExpression { return n.shape }
func (n *Import) dependencies() []Expression { return []Expression{n.shape} }

func NewImport(location, name string, dt DType) *Import {
	return &Import{Location: location, Name: name, DT: dt, shape: NewImportShape(location)}
}

// NewImportColumn builds an Import column against an already-constructed
// ImportShape, so every column of the same input table shares one shape
// node rather than each minting its own structurally-identical one.
// Callers that lower more than one column of the same location (the
// common case) should use this and build the shape once.
func NewImportColumn(shape *ImportShape, name string, dt DType) *Import {
	return &Import{Location: shape.Location, Name: name, DT: dt, shape: shape}
}

// Where filters source element-wise by mask; result shape is
// WhereShape(mask).
type Where struct {
	Source ArrayExpression
	Mask   ArrayExpression

	shape *WhereShape
}

func (*Where) isArrayExpression()       {}
func (n *Where) DType() DType           { return n.Source.DType() }
func (n *Where) Shape() ShapeExpression { return n.shape }
func (n *Where) dependencies() []Expression {
	return []Expression{n.shape, n.Source, n.Mask}
}

func NewWhere(source, mask ArrayExpression) *Where {
	if mask.DType() != BOOL {
		dtlerrors.Panic("Where mask must be BOOL, got %s", mask.DType())
	}
	return &Where{Source: source, Mask: mask, shape: NewWhereShape(mask)}
}

// NewWhereColumn builds a Where node against an already-constructed
// WhereShape, so every column filtered by the same mask shares one
// shape node. Two Where nodes over the same mask but with independently
// constructed WhereShapes would compare unequal by Shape() identity,
// which breaks the shape-matching check every binary op relies on.
func NewWhereColumn(shape *WhereShape, source, mask ArrayExpression) *Where {
	if mask.DType() != BOOL {
		dtlerrors.Panic("Where mask must be BOOL, got %s", mask.DType())
	}
	return &Where{Source: source, Mask: mask, shape: shape}
}

// Pick gathers: result[i] = source[indexes[i]].
type Pick struct {
	Source  ArrayExpression
	Indexes ArrayExpression
}

func (*Pick) isArrayExpression()       {}
func (n *Pick) DType() DType           { return n.Source.DType() }
func (n *Pick) Shape() ShapeExpression { return n.Indexes.Shape() }
func (n *Pick) dependencies() []Expression {
	return []Expression{n.Source, n.Indexes}
}

func NewPick(source, indexes ArrayExpression) *Pick {
	if indexes.DType() != INDEX {
		dtlerrors.Panic("Pick indexes must be INDEX, got %s", indexes.DType())
	}
	return &Pick{Source: source, Indexes: indexes}
}

// Range is [0, 1, ..., shape-1] with dtype INDEX.
type Range struct {
	ShapeExpr ShapeExpression
}

func (*Range) isArrayExpression()          {}
func (*Range) DType() DType                { return INDEX }
func (n *Range) Shape() ShapeExpression    { return n.ShapeExpr }
func (n *Range) dependencies() []Expression { return []Expression{n.ShapeExpr} }

func NewRange(shape ShapeExpression) *Range {
	return &Range{ShapeExpr: shape}
}

// JoinLeft is the left index array realising the full Cartesian product
// of shapes A and B: each index of A repeated |B| times.
type JoinLeft struct {
	A, B ShapeExpression

	shape *JoinShape
}

func (*JoinLeft) isArrayExpression()       {}
func (*JoinLeft) DType() DType             { return INDEX }
func (n *JoinLeft) Shape() ShapeExpression { return n.shape }
func (n *JoinLeft) dependencies() []Expression {
	return []Expression{n.shape, n.A, n.B}
}

func NewJoinLeft(a, b ShapeExpression) *JoinLeft {
	return &JoinLeft{A: a, B: b, shape: NewJoinShape(a, b)}
}

// NewJoinLeftWithShape builds a JoinLeft against an already-constructed
// JoinShape, so the left and right index arrays of the same join share
// one shape node.
func NewJoinLeftWithShape(shape *JoinShape, a, b ShapeExpression) *JoinLeft {
	return &JoinLeft{A: a, B: b, shape: shape}
}

// JoinRight is the right index array realising the full Cartesian
// product of shapes A and B: indexes [0, |B|) cycled |A| times.
type JoinRight struct {
	A, B ShapeExpression

	shape *JoinShape
}

func (*JoinRight) isArrayExpression()       {}
func (*JoinRight) DType() DType             { return INDEX }
func (n *JoinRight) Shape() ShapeExpression { return n.shape }
func (n *JoinRight) dependencies() []Expression {
	return []Expression{n.shape, n.A, n.B}
}

func NewJoinRight(a, b ShapeExpression) *JoinRight {
	return &JoinRight{A: a, B: b, shape: NewJoinShape(a, b)}
}

// NewJoinRightWithShape is NewJoinLeftWithShape's right-hand twin.
func NewJoinRightWithShape(shape *JoinShape, a, b ShapeExpression) *JoinRight {
	return &JoinRight{A: a, B: b, shape: shape}
}

// BinaryOp identifies the element-wise operator of a binary array node.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSubtract
	OpMultiply
	OpDivide
	OpEqualTo
)

func (op BinaryOp) String() string {
	switch op {
	case OpAdd:
		return "Add"
	case OpSubtract:
		return "Subtract"
	case OpMultiply:
		return "Multiply"
	case OpDivide:
		return "Divide"
	case OpEqualTo:
		return "EqualTo"
	default:
		return "UnknownOp"
	}
}

// Binary is Add/Subtract/Multiply/Divide/EqualTo: an element-wise binary
// op over two operands of matching (dtype, shape). EqualTo always
// yields BOOL; the others preserve the operand dtype.
type Binary struct {
	Op               BinaryOp
	SourceA, SourceB ArrayExpression
}

func (*Binary) isArrayExpression() {}

func (n *Binary) DType() DType {
	if n.Op == OpEqualTo {
		return BOOL
	}
	return n.SourceA.DType()
}

func (n *Binary) Shape() ShapeExpression { return n.SourceA.Shape() }

func (n *Binary) dependencies() []Expression {
	return []Expression{n.SourceA, n.SourceB}
}

func newBinary(op BinaryOp, a, b ArrayExpression) *Binary {
	if a.DType() != b.DType() {
		dtlerrors.Panic("%s operands have mismatched dtypes: %s vs %s", op, a.DType(), b.DType())
	}
	if a.Shape() != b.Shape() {
		dtlerrors.Panic("%s operands have mismatched shapes", op)
	}
	return &Binary{Op: op, SourceA: a, SourceB: b}
}

func NewAdd(a, b ArrayExpression) *Binary      { return newBinary(OpAdd, a, b) }
func NewSubtract(a, b ArrayExpression) *Binary { return newBinary(OpSubtract, a, b) }
func NewMultiply(a, b ArrayExpression) *Binary { return newBinary(OpMultiply, a, b) }
func NewDivide(a, b ArrayExpression) *Binary   { return newBinary(OpDivide, a, b) }
func NewEqualTo(a, b ArrayExpression) *Binary  { return newBinary(OpEqualTo, a, b) }

// --- Reserved / optional fusions --------------------------------------------
//
// JoinLeftEqual and JoinRightEqual are the fused form of:
//
//	left  := JoinLeft(shapeA, shapeB)
//	right := JoinRight(shapeA, shapeB)
//	mask  := EqualTo(Pick(a, left), Pick(b, right))
//	joinLeftEqual  := Where(left, mask)
//	joinRightEqual := Where(right, mask)
//
// They exist so a future optimiser can recognise and fuse that pattern;
// nothing in this repository's lowering or mapping composition emits
// them (spec §3.2, §12).

// JoinLeftEqual is the reserved fused form described above. Constructing
// one is legal but the lowering and mapping-composition code paths in
// this repository never produce one; they always build the unfused
// Where(JoinLeft(...), EqualTo(...)) chain.
type JoinLeftEqual struct {
	A, B ArrayExpression

	shape *WhereShape
}

func (*JoinLeftEqual) isArrayExpression()       {}
func (*JoinLeftEqual) DType() DType             { return INDEX }
func (n *JoinLeftEqual) Shape() ShapeExpression { return n.shape }
func (n *JoinLeftEqual) dependencies() []Expression {
	return []Expression{n.shape, n.A, n.B}
}

// JoinRightEqual is the right-hand twin of JoinLeftEqual.
type JoinRightEqual struct {
	A, B ArrayExpression

	shape *WhereShape
}

func (*JoinRightEqual) isArrayExpression()       {}
func (*JoinRightEqual) DType() DType             { return INDEX }
func (n *JoinRightEqual) Shape() ShapeExpression { return n.shape }
func (n *JoinRightEqual) dependencies() []Expression {
	return []Expression{n.shape, n.A, n.B}
}

// NewJoinLeftEqual builds the fused node directly, for an optimiser (not
// implemented here) that has recognised the unfused pattern.
func NewJoinLeftEqual(a, b ArrayExpression) *JoinLeftEqual {
	left := NewJoinLeft(a.Shape(), b.Shape())
	right := NewJoinRight(a.Shape(), b.Shape())
	mask := NewEqualTo(NewPick(a, left), NewPick(b, right))
	return &JoinLeftEqual{A: a, B: b, shape: NewWhereShape(mask)}
}

// NewJoinRightEqual builds the fused node directly, for an optimiser (not
// implemented here) that has recognised the unfused pattern.
func NewJoinRightEqual(a, b ArrayExpression) *JoinRightEqual {
	left := NewJoinLeft(a.Shape(), b.Shape())
	right := NewJoinRight(a.Shape(), b.Shape())
	mask := NewEqualTo(NewPick(a, left), NewPick(b, right))
	return &JoinRightEqual{A: a, B: b, shape: NewWhereShape(mask)}
}

// Dependencies returns node's direct predecessors (exported wrapper over
// the package-private method so other packages can walk the DAG without
// themselves implementing Expression).
func Dependencies(node Expression) []Expression {
	return node.dependencies()
}
