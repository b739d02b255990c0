// Package lexer tokenizes filter query text.
package lexer

import (
	"strings"
	"unicode"

	"github.com/conduit-lang/contentq/internal/filter/ast"
	ferrors "github.com/conduit-lang/contentq/internal/filter/errors"
)

// Lexer tokenizes one filter query.
//
// Lexer instances are not safe for concurrent use; create one per query.
type Lexer struct {
	source  []rune
	start   int // Start position of current token
	current int // Current position in source
	tokens  []Token
	errors  ferrors.ErrorList
}

// New creates a new Lexer for the given query
func New(source string) *Lexer {
	return &Lexer{
		source: []rune(source),
		tokens: make([]Token, 0, len(source)/2+1),
	}
}

// ScanTokens tokenizes the whole query and returns tokens and errors
func (l *Lexer) ScanTokens() ([]Token, ferrors.ErrorList) {
	for !l.isAtEnd() {
		l.start = l.current
		l.scanToken()
	}

	l.tokens = append(l.tokens, Token{Type: TOKEN_EOF, Offset: len(l.source)})
	return l.tokens, l.errors
}

func (l *Lexer) scanToken() {
	c := l.advance()

	switch {
	case c == '(':
		l.addToken(TOKEN_LPAREN)
	case c == ')':
		l.addToken(TOKEN_RPAREN)
	case c == '[':
		l.addToken(TOKEN_LBRACKET)
	case c == ']':
		l.addToken(TOKEN_RBRACKET)
	case c == ',':
		l.addToken(TOKEN_COMMA)
	case c == '?':
		l.addToken(TOKEN_ARG)
	case c == '!':
		if l.match('=') {
			l.addToken(TOKEN_NOT_EQUAL)
		} else {
			l.addToken(TOKEN_BANG)
		}
	case c == '=':
		l.match('=')
		l.addToken(TOKEN_EQUAL)
	case c == '<':
		if l.match('=') {
			l.addToken(TOKEN_LESS_EQUAL)
		} else {
			l.addToken(TOKEN_LESS)
		}
	case c == '>':
		if l.match('=') {
			l.addToken(TOKEN_GREATER_EQUAL)
		} else {
			l.addToken(TOKEN_GREATER)
		}
	case c == '&':
		l.pair('&', TOKEN_AND)
	case c == '|':
		l.pair('|', TOKEN_OR)
	case c == '@':
		l.context()
	case c == '"' || c == '\'':
		l.string(c)
	case c == '-' && isDigit(l.peek()):
		l.number()
	case isDigit(c):
		l.number()
	case isAlpha(c):
		l.identifier()
	case unicode.IsSpace(c):
		// Whitespace is insignificant between tokens
	default:
		l.addError(ferrors.NewUnexpectedChar(l.location(), c))
	}
}

// pair scans a doubled operator such as && or ||
func (l *Lexer) pair(second rune, tokenType TokenType) {
	if l.match(second) {
		l.addToken(tokenType)
		return
	}
	l.addError(ferrors.NewUnexpectedChar(l.location(), l.source[l.start]))
}

// context scans @Name
func (l *Lexer) context() {
	if !isAlpha(l.peek()) {
		l.addError(ferrors.NewExpectedToken(ast.SourceLocation{Offset: l.current}, "attribute name after @", l.peekText()))
		return
	}
	for isAlphaNumeric(l.peek()) {
		l.advance()
	}
	name := string(l.source[l.start+1 : l.current])
	l.tokens = append(l.tokens, Token{Type: TOKEN_CONTEXT, Lexeme: name, Offset: l.start})
}

// string scans a literal delimited by quote. Only the delimiter can be
// escaped; any other backslash is kept as written.
func (l *Lexer) string(quote rune) {
	var b strings.Builder

	for !l.isAtEnd() {
		c := l.advance()
		if c == quote {
			l.addTokenWithLiteral(TOKEN_STRING, b.String())
			return
		}
		if c == '\\' && l.peek() == quote {
			l.advance()
			b.WriteRune(quote)
			continue
		}
		b.WriteRune(c)
	}

	l.addError(ferrors.NewUnterminatedString(l.location(), quote))
}

// number scans digits with at most one decimal point
func (l *Lexer) number() {
	dots := 0
	for isDigit(l.peek()) || l.peek() == '.' {
		if l.advance() == '.' {
			dots++
		}
	}
	// A trailing letter makes the literal malformed (e.g. 12ab)
	for isAlpha(l.peek()) {
		l.advance()
	}

	lexeme := string(l.source[l.start:l.current])
	last := l.source[l.current-1]
	switch {
	case dots > 1 || last == '.' || !isDigit(last):
		l.addError(ferrors.NewInvalidNumber(l.location(), lexeme))
	case dots == 1:
		l.addToken(TOKEN_DECIMAL)
	default:
		l.addToken(TOKEN_NUMBER)
	}
}

// identifier scans a name or a case-insensitive keyword
func (l *Lexer) identifier() {
	for isAlphaNumeric(l.peek()) {
		l.advance()
	}

	text := string(l.source[l.start:l.current])
	if tokenType, ok := keywords[strings.ToLower(text)]; ok {
		switch tokenType {
		case TOKEN_TRUE:
			l.addTokenWithLiteral(tokenType, true)
		case TOKEN_FALSE:
			l.addTokenWithLiteral(tokenType, false)
		default:
			l.addToken(tokenType)
		}
		return
	}
	l.addToken(TOKEN_IDENTIFIER)
}

func (l *Lexer) isAtEnd() bool {
	return l.current >= len(l.source)
}

func (l *Lexer) advance() rune {
	c := l.source[l.current]
	l.current++
	return c
}

func (l *Lexer) match(expected rune) bool {
	if l.isAtEnd() || l.source[l.current] != expected {
		return false
	}
	l.current++
	return true
}

func (l *Lexer) peek() rune {
	if l.isAtEnd() {
		return 0
	}
	return l.source[l.current]
}

func (l *Lexer) peekText() string {
	if l.isAtEnd() {
		return "end of query"
	}
	return string(l.source[l.current])
}

func isDigit(c rune) bool {
	return c >= '0' && c <= '9'
}

func isAlpha(c rune) bool {
	return unicode.IsLetter(c)
}

func isAlphaNumeric(c rune) bool {
	return isAlpha(c) || isDigit(c) || c == '_'
}

func (l *Lexer) location() ast.SourceLocation {
	return ast.SourceLocation{Offset: l.start}
}

func (l *Lexer) addToken(tokenType TokenType) {
	l.addTokenWithLiteral(tokenType, nil)
}

func (l *Lexer) addTokenWithLiteral(tokenType TokenType, literal interface{}) {
	l.tokens = append(l.tokens, Token{
		Type:    tokenType,
		Lexeme:  string(l.source[l.start:l.current]),
		Literal: literal,
		Offset:  l.start,
	})
}

func (l *Lexer) addError(err *ferrors.CompilerError) {
	l.errors = append(l.errors, err.WithQuery(string(l.source)))
}
