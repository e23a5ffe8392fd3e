// Package ast defines the surface syntax tree produced by the parser for
// the DTL script language (spec §6). The tree is deliberately close to
// the grammar: lowering to the IR happens entirely in
// internal/lowering.
package ast

import "github.com/bwhmather/dtl/pos"

// Node is implemented by every AST node so each carries its source span
// for error reporting and trace-table tagging.
type Node interface {
	Span() pos.Span
}

type base struct {
	span pos.Span
}

func (b base) Span() pos.Span { return b.span }

// ColumnName is either an UnqualifiedColumnName or a QualifiedColumnName.
type ColumnName interface {
	Node
	isColumnName()
}

type UnqualifiedColumnName struct {
	base
	Name string
}

func (UnqualifiedColumnName) isColumnName() {}

func NewUnqualifiedColumnName(span pos.Span, name string) *UnqualifiedColumnName {
	return &UnqualifiedColumnName{base{span}, name}
}

type QualifiedColumnName struct {
	base
	Table string
	Name  string
}

func (QualifiedColumnName) isColumnName() {}

func NewQualifiedColumnName(span pos.Span, table, name string) *QualifiedColumnName {
	return &QualifiedColumnName{base{span}, table, name}
}

// Expression is a scalar/column expression: a literal, a column
// reference, a function call, or an arithmetic/comparison operator
// applied to two expressions.
type Expression interface {
	Node
	isExpression()
}

type ColumnReference struct {
	base
	Name ColumnName
}

func (ColumnReference) isExpression() {}

func NewColumnReference(span pos.Span, name ColumnName) *ColumnReference {
	return &ColumnReference{base{span}, name}
}

type BoolLiteral struct {
	base
	Value bool
}

func (BoolLiteral) isExpression() {}

func NewBoolLiteral(span pos.Span, value bool) *BoolLiteral {
	return &BoolLiteral{base{span}, value}
}

type IntLiteral struct {
	base
	Value int64
}

func (IntLiteral) isExpression() {}

func NewIntLiteral(span pos.Span, value int64) *IntLiteral {
	return &IntLiteral{base{span}, value}
}

type FloatLiteral struct {
	base
	Value float64
}

func (FloatLiteral) isExpression() {}

func NewFloatLiteral(span pos.Span, value float64) *FloatLiteral {
	return &FloatLiteral{base{span}, value}
}

type StringLiteral struct {
	base
	Value string
}

func (StringLiteral) isExpression() {}

func NewStringLiteral(span pos.Span, value string) *StringLiteral {
	return &StringLiteral{base{span}, value}
}

type BytesLiteral struct {
	base
	Value []byte
}

func (BytesLiteral) isExpression() {}

func NewBytesLiteral(span pos.Span, value []byte) *BytesLiteral {
	return &BytesLiteral{base{span}, value}
}

// BinaryOp is the operator of a BinaryExpression.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSubtract
	OpMultiply
	OpDivide
	OpEqual
	OpNotEqual
	OpLessThan
	OpLessThanOrEqual
	OpGreaterThan
	OpGreaterThanOrEqual
)

type BinaryExpression struct {
	base
	Op          BinaryOp
	Left, Right Expression
}

func (BinaryExpression) isExpression() {}

func NewBinaryExpression(span pos.Span, op BinaryOp, left, right Expression) *BinaryExpression {
	return &BinaryExpression{base{span}, op, left, right}
}

type FunctionCall struct {
	base
	Name string
	Args []Expression
}

func (FunctionCall) isExpression() {}

func NewFunctionCall(span pos.Span, name string, args []Expression) *FunctionCall {
	return &FunctionCall{base{span}, name, args}
}

// ColumnBinding is an entry of a SELECT column list: either a bare `*`
// wildcard or an expression, optionally aliased.
type ColumnBinding interface {
	Node
	isColumnBinding()
}

type Wildcard struct {
	base
}

func (Wildcard) isColumnBinding() {}

func NewWildcard(span pos.Span) *Wildcard {
	return &Wildcard{base{span}}
}

type ExpressionBinding struct {
	base
	Expression Expression
	Alias      *string
}

func (ExpressionBinding) isColumnBinding() {}

func NewExpressionBinding(span pos.Span, expr Expression, alias *string) *ExpressionBinding {
	return &ExpressionBinding{base{span}, expr, alias}
}

// JoinConstraint is the ON clause of a join. USING is reserved, parsed
// but rejected at lowering (spec §4.3).
type JoinConstraint interface {
	Node
	isJoinConstraint()
}

type OnConstraint struct {
	base
	Predicate Expression
}

func (OnConstraint) isJoinConstraint() {}

func NewOnConstraint(span pos.Span, predicate Expression) *OnConstraint {
	return &OnConstraint{base{span}, predicate}
}

type UsingConstraint struct {
	base
	Columns []*UnqualifiedColumnName
}

func (UsingConstraint) isJoinConstraint() {}

// DistinctClause is parsed but not implemented by lowering.
type DistinctClause struct {
	base
	Consecutive bool
}

// GroupByClause is parsed but rejected at lowering (spec §4.3, Non-goal).
type GroupByClause struct {
	base
	Consecutive bool
	Pattern     []Expression
}

// TableExpression is a table-valued expression: an IMPORT, a bound
// identifier, or a SELECT.
type TableExpression interface {
	Node
	isTableExpression()
}

type TableReference struct {
	base
	Name string
}

func (TableReference) isTableExpression() {}

func NewTableReference(span pos.Span, name string) *TableReference {
	return &TableReference{base{span}, name}
}

type ImportExpression struct {
	base
	Location string
}

func (ImportExpression) isTableExpression() {}

func NewImportExpression(span pos.Span, location string) *ImportExpression {
	return &ImportExpression{base{span}, location}
}

type JoinClause struct {
	base
	Table      TableExpression
	Alias      *string
	Constraint JoinConstraint
}

type SelectExpression struct {
	base
	Distinct *DistinctClause
	Columns  []ColumnBinding
	Source   TableExpression
	SourceAlias *string
	Joins    []*JoinClause
	Where    Expression // nil if absent
	GroupBy  *GroupByClause
}

func (SelectExpression) isTableExpression() {}

func NewSelectExpression(
	span pos.Span,
	distinct *DistinctClause,
	columns []ColumnBinding,
	source TableExpression,
	sourceAlias *string,
	joins []*JoinClause,
	where Expression,
	groupBy *GroupByClause,
) *SelectExpression {
	return &SelectExpression{
		base{span}, distinct, columns, source, sourceAlias, joins, where, groupBy,
	}
}

// Statement is a top-level DTL statement: WITH or EXPORT.
type Statement interface {
	Node
	isStatement()
}

type WithStatement struct {
	base
	Target     string
	Expression TableExpression
}

func (WithStatement) isStatement() {}

func NewWithStatement(span pos.Span, target string, expr TableExpression) *WithStatement {
	return &WithStatement{base{span}, target, expr}
}

type ExportStatement struct {
	base
	Expression TableExpression
	Location   string
}

func (ExportStatement) isStatement() {}

func NewExportStatement(span pos.Span, expr TableExpression, location string) *ExportStatement {
	return &ExportStatement{base{span}, expr, location}
}

// StatementList is a whole parsed script.
type StatementList struct {
	base
	Statements []Statement
}

func NewStatementList(span pos.Span, statements []Statement) *StatementList {
	return &StatementList{base{span}, statements}
}
