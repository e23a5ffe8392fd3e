// Package lexer implements a hand-rolled scanner for the DTL script
// language. The grammar is small enough that this, and the
// recursive-descent parser built on top of it, are kept in-repo rather
// than generated; a full LALR parser generator is the kind of thing the
// spec treats as an external collaborator.
package lexer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/bwhmather/dtl/pos"
	"github.com/bwhmather/dtl/token"
)

// Lexer scans a DTL script into a stream of tokens.
type Lexer struct {
	input        string
	position     int
	readPosition int
	ch           rune
	line         int
	column       int
}

// New creates a Lexer over the given source text.
func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1, column: 0}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = l.readPosition
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPosition:])
	l.ch = r
	l.position = l.readPosition
	l.readPosition += size
	l.column++
	if r == '\n' {
		l.line++
		l.column = 0
	}
}

func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

func (l *Lexer) newToken(tt token.Type, literal string, at pos.Position) token.Token {
	return token.Token{Type: tt, Literal: literal, Pos: at}
}

// NextToken returns the next token in the stream, advancing past it.
// Comments and whitespace are skipped; callers never see a COMMENT
// token.
func (l *Lexer) NextToken() token.Token {
	l.skipWhitespaceAndComments()

	at := pos.Position{Line: l.line, Column: l.column}

	switch l.ch {
	case 0:
		return l.newToken(token.EOF, "", at)
	case '+':
		l.readChar()
		return l.newToken(token.PLUS, "+", at)
	case '-':
		l.readChar()
		return l.newToken(token.MINUS, "-", at)
	case '*':
		l.readChar()
		return l.newToken(token.ASTERISK, "*", at)
	case '/':
		l.readChar()
		return l.newToken(token.SLASH, "/", at)
	case ',':
		l.readChar()
		return l.newToken(token.COMMA, ",", at)
	case ';':
		l.readChar()
		return l.newToken(token.SEMICOLON, ";", at)
	case '.':
		if isDigit(l.peekChar()) {
			return l.readNumber(at)
		}
		l.readChar()
		return l.newToken(token.DOT, ".", at)
	case '(':
		l.readChar()
		return l.newToken(token.LPAREN, "(", at)
	case ')':
		l.readChar()
		return l.newToken(token.RPAREN, ")", at)
	case '=':
		l.readChar()
		return l.newToken(token.EQ, "=", at)
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return l.newToken(token.NEQ, "!=", at)
		}
		l.readChar()
		return l.newToken(token.ILLEGAL, "!", at)
	case '<':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return l.newToken(token.LTE, "<=", at)
		}
		if l.peekChar() == '>' {
			l.readChar()
			l.readChar()
			return l.newToken(token.NEQ, "<>", at)
		}
		l.readChar()
		return l.newToken(token.LT, "<", at)
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return l.newToken(token.GTE, ">=", at)
		}
		l.readChar()
		return l.newToken(token.GT, ">", at)
	case '\'':
		return l.readString(at)
	}

	if l.ch == 'b' && l.peekChar() == '\'' {
		l.readChar()
		return l.readBytes(at)
	}

	if isDigit(l.ch) {
		return l.readNumber(at)
	}

	if isIdentStart(l.ch) {
		return l.readIdent(at)
	}

	illegal := string(l.ch)
	l.readChar()
	return l.newToken(token.ILLEGAL, illegal, at)
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		switch {
		case unicode.IsSpace(l.ch):
			l.readChar()
		case l.ch == '-' && l.peekChar() == '-':
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
		case l.ch == '/' && l.peekChar() == '*':
			l.readChar()
			l.readChar()
			for !(l.ch == '*' && l.peekChar() == '/') && l.ch != 0 {
				l.readChar()
			}
			if l.ch != 0 {
				l.readChar()
				l.readChar()
			}
		default:
			return
		}
	}
}

func (l *Lexer) readIdent(at pos.Position) token.Token {
	start := l.position
	for isIdentPart(l.ch) {
		l.readChar()
	}
	literal := l.input[start:l.position]
	upper := strings.ToUpper(literal)
	switch upper {
	case "TRUE":
		return l.newToken(token.TRUE, literal, at)
	case "FALSE":
		return l.newToken(token.FALSE, literal, at)
	}
	return l.newToken(token.Lookup(upper), literal, at)
}

func (l *Lexer) readNumber(at pos.Position) token.Token {
	start := l.position
	isFloat := false
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		isFloat = true
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	literal := l.input[start:l.position]
	if isFloat {
		return l.newToken(token.FLOAT, literal, at)
	}
	return l.newToken(token.INT, literal, at)
}

func (l *Lexer) readString(at pos.Position) token.Token {
	l.readChar() // opening quote
	start := l.position
	var sb strings.Builder
	for l.ch != '\'' && l.ch != 0 {
		if l.ch == '\\' && l.peekChar() == '\'' {
			sb.WriteRune('\'')
			l.readChar()
			l.readChar()
			continue
		}
		sb.WriteRune(l.ch)
		l.readChar()
	}
	if l.ch == 0 {
		return l.newToken(token.ILLEGAL, l.input[start:l.position], at)
	}
	l.readChar() // closing quote
	return l.newToken(token.STRING, sb.String(), at)
}

func (l *Lexer) readBytes(at pos.Position) token.Token {
	tok := l.readString(at)
	if tok.Type == token.STRING {
		tok.Type = token.BYTES
	}
	return tok
}

func isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch)
}

func isIdentPart(ch rune) bool {
	return isIdentStart(ch) || isDigit(ch)
}
