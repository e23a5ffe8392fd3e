// Package parser implements a recursive-descent parser for the DTL
// script language over the token stream produced by package lexer. A
// full LALR parser generator is treated as an external collaborator by
// the spec; the grammar here is small enough that hand-written recursive
// descent, in the shape ha1tch-tsqlparser uses for T-SQL, is a better
// match for the budget.
package parser

import (
	"fmt"

	"github.com/bwhmather/dtl/ast"
	"github.com/bwhmather/dtl/internal/dtlerrors"
	"github.com/bwhmather/dtl/lexer"
	"github.com/bwhmather/dtl/pos"
	"github.com/bwhmather/dtl/token"
)

// Parser turns a token stream into an *ast.StatementList.
type Parser struct {
	l *lexer.Lexer

	cur  token.Token
	peek token.Token
}

// New creates a Parser over the given source text.
func New(input string) *Parser {
	p := &Parser{l: lexer.New(input)}
	p.next()
	p.next()
	return p
}

// Parse parses a whole script into a statement list.
func Parse(input string) (list *ast.StatementList, err error) {
	defer func() {
		if r := recover(); r != nil {
			if perr, ok := r.(*dtlerrors.ParseError); ok {
				err = perr
				return
			}
			panic(r)
		}
	}()

	p := New(input)
	start := p.cur.Pos
	var statements []ast.Statement
	for p.cur.Type != token.EOF {
		statements = append(statements, p.parseStatement())
	}
	end := p.cur.Pos
	return ast.NewStatementList(pos.Span{Start: start, End: end}, statements), nil
}

func (p *Parser) next() {
	p.cur = p.peek
	p.peek = p.l.NextToken()
}

func (p *Parser) fail(format string, args ...any) {
	panic(&dtlerrors.ParseError{Pos: p.cur.Pos, Message: fmt.Sprintf(format, args...)})
}

func (p *Parser) expect(tt token.Type) token.Token {
	if p.cur.Type != tt {
		p.fail("expected %s, got %s %q", tt, p.cur.Type, p.cur.Literal)
	}
	tok := p.cur
	p.next()
	return tok
}

func (p *Parser) at(tt token.Type) bool {
	return p.cur.Type == tt
}

func (p *Parser) accept(tt token.Type) bool {
	if p.at(tt) {
		p.next()
		return true
	}
	return false
}

// parseStatement parses a single `WITH ... ;` or `EXPORT ... ;` statement.
func (p *Parser) parseStatement() ast.Statement {
	start := p.cur.Pos
	switch p.cur.Type {
	case token.WITH:
		p.next()
		name := p.expect(token.IDENT).Literal
		p.expect(token.AS)
		expr := p.parseTableExpression()
		p.expect(token.SEMICOLON)
		return ast.NewWithStatement(pos.Span{Start: start, End: p.cur.Pos}, name, expr)
	case token.EXPORT:
		p.next()
		expr := p.parseTableExpression()
		p.expect(token.TO)
		location := p.expect(token.STRING).Literal
		p.expect(token.SEMICOLON)
		return ast.NewExportStatement(pos.Span{Start: start, End: p.cur.Pos}, expr, location)
	default:
		p.fail("expected WITH or EXPORT, got %s %q", p.cur.Type, p.cur.Literal)
		panic("unreachable")
	}
}

// parseTableExpression parses IMPORT '...', a bound identifier, or a
// SELECT.
func (p *Parser) parseTableExpression() ast.TableExpression {
	start := p.cur.Pos
	switch p.cur.Type {
	case token.IMPORT:
		p.next()
		location := p.expect(token.STRING).Literal
		return ast.NewImportExpression(pos.Span{Start: start, End: p.cur.Pos}, location)
	case token.SELECT:
		return p.parseSelectExpression()
	case token.IDENT:
		name := p.cur.Literal
		p.next()
		return ast.NewTableReference(pos.Span{Start: start, End: p.cur.Pos}, name)
	default:
		p.fail("expected a table expression, got %s %q", p.cur.Type, p.cur.Literal)
		panic("unreachable")
	}
}

func (p *Parser) parseSelectExpression() *ast.SelectExpression {
	start := p.cur.Pos
	p.expect(token.SELECT)

	var distinct *ast.DistinctClause
	if p.accept(token.DISTINCT) {
		consecutive := p.accept(token.CONSECUTIVE)
		distinct = &ast.DistinctClause{Consecutive: consecutive}
	}

	columns := p.parseColumnBindingList()

	p.expect(token.FROM)
	source, sourceAlias := p.parseAliasedTableExpression()

	var joins []*ast.JoinClause
	for p.at(token.JOIN) {
		joinStart := p.cur.Pos
		p.next()
		table, alias := p.parseAliasedTableExpression()
		constraint := p.parseJoinConstraint(joinStart)
		joins = append(joins, &ast.JoinClause{Table: table, Alias: alias, Constraint: constraint})
	}

	var where ast.Expression
	if p.accept(token.WHERE) {
		where = p.parseExpression()
	}

	var groupBy *ast.GroupByClause
	if p.at(token.GROUP) {
		p.next()
		consecutive := p.accept(token.CONSECUTIVE)
		p.expect(token.BY)
		pattern := []ast.Expression{p.parseExpression()}
		for p.accept(token.COMMA) {
			pattern = append(pattern, p.parseExpression())
		}
		groupBy = &ast.GroupByClause{Consecutive: consecutive, Pattern: pattern}
	}

	return ast.NewSelectExpression(
		pos.Span{Start: start, End: p.cur.Pos},
		distinct, columns, source, sourceAlias, joins, where, groupBy,
	)
}

// parseAliasedTableExpression parses a table expression followed by an
// optional `AS alias` (or bare `alias`).
func (p *Parser) parseAliasedTableExpression() (ast.TableExpression, *string) {
	expr := p.parseTableExpression()
	var alias *string
	if p.accept(token.AS) {
		name := p.expect(token.IDENT).Literal
		alias = &name
	} else if p.at(token.IDENT) {
		name := p.cur.Literal
		p.next()
		alias = &name
	}
	return expr, alias
}

func (p *Parser) parseJoinConstraint(start pos.Position) ast.JoinConstraint {
	switch p.cur.Type {
	case token.ON:
		p.next()
		predicate := p.parseExpression()
		return ast.NewOnConstraint(pos.Span{Start: start, End: p.cur.Pos}, predicate)
	case token.USING:
		p.next()
		p.expect(token.LPAREN)
		var cols []*ast.UnqualifiedColumnName
		for {
			colStart := p.cur.Pos
			name := p.expect(token.IDENT).Literal
			cols = append(cols, ast.NewUnqualifiedColumnName(pos.Span{Start: colStart, End: p.cur.Pos}, name))
			if !p.accept(token.COMMA) {
				break
			}
		}
		p.expect(token.RPAREN)
		return &ast.UsingConstraint{Columns: cols}
	default:
		p.fail("expected ON or USING, got %s %q", p.cur.Type, p.cur.Literal)
		panic("unreachable")
	}
}

func (p *Parser) parseColumnBindingList() []ast.ColumnBinding {
	var bindings []ast.ColumnBinding
	bindings = append(bindings, p.parseColumnBinding())
	for p.accept(token.COMMA) {
		bindings = append(bindings, p.parseColumnBinding())
	}
	return bindings
}

func (p *Parser) parseColumnBinding() ast.ColumnBinding {
	start := p.cur.Pos
	if p.at(token.ASTERISK) {
		p.next()
		return ast.NewWildcard(pos.Span{Start: start, End: p.cur.Pos})
	}

	expr := p.parseExpression()
	var alias *string
	if p.accept(token.AS) {
		name := p.expect(token.IDENT).Literal
		alias = &name
	}
	return ast.NewExpressionBinding(pos.Span{Start: start, End: p.cur.Pos}, expr, alias)
}

// Expression grammar, weakest to strongest binding:
//
//	expr       := comparison
//	comparison := additive ( ( '=' | '!=' | '<' | '<=' | '>' | '>=' ) additive )*
//	additive   := multiplicative ( ( '+' | '-' ) multiplicative )*
//	multiplicative := primary ( ( '*' | '/' ) primary )*
//
// All binary operators are left-associative (spec §6); `*`/`/` bind
// tighter than `+`/`-`, and comparisons bind weaker than both.
func (p *Parser) parseExpression() ast.Expression {
	return p.parseComparison()
}

func (p *Parser) parseComparison() ast.Expression {
	left := p.parseAdditive()
	for {
		var op ast.BinaryOp
		switch p.cur.Type {
		case token.EQ:
			op = ast.OpEqual
		case token.NEQ:
			op = ast.OpNotEqual
		case token.LT:
			op = ast.OpLessThan
		case token.LTE:
			op = ast.OpLessThanOrEqual
		case token.GT:
			op = ast.OpGreaterThan
		case token.GTE:
			op = ast.OpGreaterThanOrEqual
		default:
			return left
		}
		p.next()
		right := p.parseAdditive()
		left = ast.NewBinaryExpression(pos.Span{Start: left.Span().Start, End: right.Span().End}, op, left, right)
	}
}

func (p *Parser) parseAdditive() ast.Expression {
	left := p.parseMultiplicative()
	for {
		var op ast.BinaryOp
		switch p.cur.Type {
		case token.PLUS:
			op = ast.OpAdd
		case token.MINUS:
			op = ast.OpSubtract
		default:
			return left
		}
		p.next()
		right := p.parseMultiplicative()
		left = ast.NewBinaryExpression(pos.Span{Start: left.Span().Start, End: right.Span().End}, op, left, right)
	}
}

func (p *Parser) parseMultiplicative() ast.Expression {
	left := p.parsePrimary()
	for {
		var op ast.BinaryOp
		switch p.cur.Type {
		case token.ASTERISK:
			op = ast.OpMultiply
		case token.SLASH:
			op = ast.OpDivide
		default:
			return left
		}
		p.next()
		right := p.parsePrimary()
		left = ast.NewBinaryExpression(pos.Span{Start: left.Span().Start, End: right.Span().End}, op, left, right)
	}
}

func (p *Parser) parsePrimary() ast.Expression {
	start := p.cur.Pos
	switch p.cur.Type {
	case token.LPAREN:
		p.next()
		expr := p.parseExpression()
		p.expect(token.RPAREN)
		return expr
	case token.TRUE:
		p.next()
		return ast.NewBoolLiteral(pos.Span{Start: start, End: p.cur.Pos}, true)
	case token.FALSE:
		p.next()
		return ast.NewBoolLiteral(pos.Span{Start: start, End: p.cur.Pos}, false)
	case token.INT:
		lit := p.cur.Literal
		p.next()
		var value int64
		if _, err := fmt.Sscanf(lit, "%d", &value); err != nil {
			p.fail("invalid integer literal %q", lit)
		}
		return ast.NewIntLiteral(pos.Span{Start: start, End: p.cur.Pos}, value)
	case token.FLOAT:
		lit := p.cur.Literal
		p.next()
		var value float64
		if _, err := fmt.Sscanf(lit, "%g", &value); err != nil {
			p.fail("invalid float literal %q", lit)
		}
		return ast.NewFloatLiteral(pos.Span{Start: start, End: p.cur.Pos}, value)
	case token.STRING:
		lit := p.cur.Literal
		p.next()
		return ast.NewStringLiteral(pos.Span{Start: start, End: p.cur.Pos}, lit)
	case token.BYTES:
		lit := p.cur.Literal
		p.next()
		return ast.NewBytesLiteral(pos.Span{Start: start, End: p.cur.Pos}, []byte(lit))
	case token.IDENT:
		return p.parseIdentExpression(start)
	default:
		p.fail("expected an expression, got %s %q", p.cur.Type, p.cur.Literal)
		panic("unreachable")
	}
}

func (p *Parser) parseIdentExpression(start pos.Position) ast.Expression {
	first := p.expect(token.IDENT).Literal

	if p.at(token.LPAREN) {
		p.next()
		var args []ast.Expression
		if !p.at(token.RPAREN) {
			args = append(args, p.parseExpression())
			for p.accept(token.COMMA) {
				args = append(args, p.parseExpression())
			}
		}
		p.expect(token.RPAREN)
		return ast.NewFunctionCall(pos.Span{Start: start, End: p.cur.Pos}, first, args)
	}

	if p.accept(token.DOT) {
		second := p.expect(token.IDENT).Literal
		name := ast.NewQualifiedColumnName(pos.Span{Start: start, End: p.cur.Pos}, first, second)
		return ast.NewColumnReference(pos.Span{Start: start, End: p.cur.Pos}, name)
	}

	name := ast.NewUnqualifiedColumnName(pos.Span{Start: start, End: p.cur.Pos}, first)
	return ast.NewColumnReference(pos.Span{Start: start, End: p.cur.Pos}, name)
}
