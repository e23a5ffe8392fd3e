// Package token defines the lexical tokens of the DTL script language.
package token

import "github.com/bwhmather/dtl/pos"

// Type identifies the kind of a lexical token.
type Type int

const (
	ILLEGAL Type = iota
	EOF
	COMMENT

	// Identifiers and literals.
	IDENT  // column_name, table_name
	INT    // 123
	FLOAT  // 1.5
	STRING // 'text'
	BYTES  // b'bytes'
	TRUE
	FALSE

	// Operators.
	PLUS     // +
	MINUS    // -
	ASTERISK // *
	SLASH    // /
	EQ       // =
	NEQ      // != or <>
	LT       // <
	LTE      // <=
	GT       // >
	GTE      // >=

	// Delimiters.
	COMMA     // ,
	SEMICOLON // ;
	DOT       // .
	LPAREN    // (
	RPAREN    // )
	QUOTE     // ' (never produced by the lexer: an unterminated string is ILLEGAL)

	keywordBeg
	WITH
	AS
	EXPORT
	TO
	IMPORT
	SELECT
	DISTINCT
	CONSECUTIVE
	FROM
	JOIN
	ON
	USING
	WHERE
	GROUP
	BY
	keywordEnd
)

var names = map[Type]string{
	ILLEGAL:     "ILLEGAL",
	EOF:         "EOF",
	COMMENT:     "COMMENT",
	IDENT:       "IDENT",
	INT:         "INT",
	FLOAT:       "FLOAT",
	STRING:      "STRING",
	BYTES:       "BYTES",
	TRUE:        "TRUE",
	FALSE:       "FALSE",
	PLUS:        "+",
	MINUS:       "-",
	ASTERISK:    "*",
	SLASH:       "/",
	EQ:          "=",
	NEQ:         "!=",
	LT:          "<",
	LTE:         "<=",
	GT:          ">",
	GTE:         ">=",
	COMMA:       ",",
	SEMICOLON:   ";",
	DOT:         ".",
	LPAREN:      "(",
	RPAREN:      ")",
	QUOTE:       "'",
	WITH:        "WITH",
	AS:          "AS",
	EXPORT:      "EXPORT",
	TO:          "TO",
	IMPORT:      "IMPORT",
	SELECT:      "SELECT",
	DISTINCT:    "DISTINCT",
	CONSECUTIVE: "CONSECUTIVE",
	FROM:        "FROM",
	JOIN:        "JOIN",
	ON:          "ON",
	USING:       "USING",
	WHERE:       "WHERE",
	GROUP:       "GROUP",
	BY:          "BY",
}

func (t Type) String() string {
	if name, ok := names[t]; ok {
		return name
	}
	return "UNKNOWN"
}

var keywords = func() map[string]Type {
	m := make(map[string]Type)
	for tt := keywordBeg + 1; tt < keywordEnd; tt++ {
		m[names[tt]] = tt
	}
	return m
}()

// Lookup returns the keyword token type for an upper-cased identifier,
// or IDENT if it is not a keyword.
func Lookup(ident string) Type {
	if tt, ok := keywords[ident]; ok {
		return tt
	}
	return IDENT
}

// Token is a single lexical token together with its source text and
// position.
type Token struct {
	Type    Type
	Literal string
	Pos     pos.Position
}
