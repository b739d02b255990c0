// Package parser implements the recursive-descent parser for filter queries.
//
// Grammar:
//
//	expr       := and ( ("or" | "||") and )*
//	and        := unary ( ("and" | "&&") unary )*
//	unary      := ("!" | "not") group | group | comparison
//	group      := "(" expr ")"
//	comparison := member ( op value )?
//	member     := identifier ( "(" args ")" )? | "@" identifier
//	value      := "?" | "[" "?" "]" | number | decimal | string | true | false | null | "@" identifier
//
// Argument slots are numbered in the order their placeholders appear.
package parser

import (
	"strings"

	"github.com/conduit-lang/contentq/internal/filter/ast"
	ferrors "github.com/conduit-lang/contentq/internal/filter/errors"
	"github.com/conduit-lang/contentq/internal/filter/lexer"
)

// Parser builds an AST from filter tokens
type Parser struct {
	text           string
	tokens         []lexer.Token
	current        int
	allowConstants bool
	slots          []*ast.ArgSlot
}

// New creates a parser over already scanned tokens
func New(text string, tokens []lexer.Token, allowConstants bool) *Parser {
	return &Parser{
		text:           text,
		tokens:         tokens,
		allowConstants: allowConstants,
		slots:          make([]*ast.ArgSlot, 0),
	}
}

// Parse scans and parses a filter query. Literal constants are rejected
// unless allowConstants is set.
func Parse(text string, allowConstants bool) (*ast.Query, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ferrors.NewEmptyQuery().WithQuery(text)
	}

	tokens, errs := lexer.New(text).ScanTokens()
	if len(errs) > 0 {
		return nil, errs[0]
	}

	return New(text, tokens, allowConstants).Parse()
}

// Parse parses the whole token stream
func (p *Parser) Parse() (*ast.Query, error) {
	root, err := p.expression()
	if err != nil {
		return nil, p.wrap(err)
	}

	if !p.isAtEnd() {
		tok := p.peek()
		if tok.Type == lexer.TOKEN_RPAREN {
			return nil, p.wrap(ferrors.NewExpectedToken(loc(tok), "end of query", tok.Lexeme))
		}
		return nil, p.wrap(ferrors.NewTrailingInput(loc(tok), tok.Lexeme))
	}

	return &ast.Query{Text: p.text, Root: root, Slots: p.slots}, nil
}

// expression parses a chain of or-joined terms
func (p *Parser) expression() (ast.Node, error) {
	left, err := p.and()
	if err != nil {
		return nil, err
	}

	for p.matchLogic(ast.OpOr) {
		opTok := p.previous()
		right, err := p.and()
		if err != nil {
			return nil, err
		}
		left = &ast.OpNode{Op: ast.OpOr, Left: left, Right: right, Loc: loc(opTok)}
	}

	return left, nil
}

// and parses a chain of and-joined terms
func (p *Parser) and() (ast.Node, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}

	for p.matchLogic(ast.OpAnd) {
		opTok := p.previous()
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = &ast.OpNode{Op: ast.OpAnd, Left: left, Right: right, Loc: loc(opTok)}
	}

	return left, nil
}

// unary parses a negation, a group or a comparison
func (p *Parser) unary() (ast.Node, error) {
	if p.check(lexer.TOKEN_BANG) || p.checkWord("not") {
		bang := p.advance()
		if !p.check(lexer.TOKEN_LPAREN) {
			return nil, p.expected("'(' after "+bang.Lexeme, p.peek())
		}
		inner, err := p.group()
		if err != nil {
			return nil, err
		}
		return &ast.OpNode{Op: ast.OpNot, Right: inner, Loc: loc(bang)}, nil
	}

	if p.check(lexer.TOKEN_LPAREN) {
		return p.group()
	}

	return p.comparison()
}

// group parses "(" expr ")"
func (p *Parser) group() (ast.Node, error) {
	open := p.advance()
	inner, err := p.expression()
	if err != nil {
		return nil, err
	}
	if !p.match(lexer.TOKEN_RPAREN) {
		if p.isAtEnd() {
			return nil, ferrors.NewUnterminatedGroup(loc(open), "(", ")")
		}
		return nil, p.expected("')'", p.peek())
	}
	return inner, nil
}

// comparison parses a member optionally followed by an operator and a value
func (p *Parser) comparison() (ast.Node, error) {
	left, err := p.member()
	if err != nil {
		return nil, err
	}

	op, ok := p.peekComparison()
	if !ok {
		return left, nil
	}
	opTok := p.advance()

	right, err := p.value()
	if err != nil {
		return nil, err
	}

	if next, chained := p.peekComparison(); chained {
		return nil, ferrors.NewChainedComparison(loc(p.peek()), next.String())
	}

	return &ast.OpNode{Op: op, Left: left, Right: right, Loc: loc(opTok)}, nil
}

// member parses a field name, a function call or a context attribute
func (p *Parser) member() (ast.Node, error) {
	tok := p.peek()

	switch tok.Type {
	case lexer.TOKEN_CONTEXT:
		p.advance()
		return &ast.MemberNode{Name: tok.Lexeme, Kind: ast.MemberContext, Loc: loc(tok)}, nil
	case lexer.TOKEN_IDENTIFIER:
		p.advance()
	case lexer.TOKEN_EOF:
		return nil, ferrors.NewUnexpectedEnd(loc(tok), "a field name")
	default:
		return nil, p.expected("a field name", tok)
	}

	if !p.check(lexer.TOKEN_LPAREN) {
		return &ast.MemberNode{Name: tok.Lexeme, Kind: ast.MemberField, Loc: loc(tok)}, nil
	}

	open := p.advance()
	call := &ast.MemberNode{Name: tok.Lexeme, Kind: ast.MemberCall, Loc: loc(tok)}

	var err error
	if strings.EqualFold(tok.Lexeme, "On") {
		call.Args, err = p.onArguments()
	} else {
		call.Args, err = p.arguments()
	}
	if err != nil {
		return nil, err
	}

	if !p.match(lexer.TOKEN_RPAREN) {
		if p.isAtEnd() {
			return nil, ferrors.NewUnterminatedGroup(loc(open), "(", ")")
		}
		return nil, p.expected("')' or ','", p.peek())
	}
	return call, nil
}

// arguments parses a comma separated value list for a function call
func (p *Parser) arguments() ([]ast.Node, error) {
	args := make([]ast.Node, 0)
	if p.check(lexer.TOKEN_RPAREN) || p.isAtEnd() {
		return args, nil
	}

	for {
		arg, err := p.value()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if !p.match(lexer.TOKEN_COMMA) {
			return args, nil
		}
	}
}

// onArguments parses On(Type, ?[, "map"]). The type and map name select
// schema rather than data, so they are accepted even without constants.
func (p *Parser) onArguments() ([]ast.Node, error) {
	args := make([]ast.Node, 0, 3)

	tok := p.peek()
	switch tok.Type {
	case lexer.TOKEN_IDENTIFIER:
		p.advance()
		args = append(args, &ast.ConstNode{Kind: ast.ConstString, Literal: tok.Lexeme, Slot: -1, Loc: loc(tok)})
	case lexer.TOKEN_STRING:
		p.advance()
		args = append(args, &ast.ConstNode{Kind: ast.ConstString, Literal: tok.Literal, Slot: -1, Loc: loc(tok)})
	default:
		return nil, ferrors.NewInvalidOnArgument(loc(tok), 1, "a type name", describe(tok))
	}

	if !p.match(lexer.TOKEN_COMMA) {
		return nil, ferrors.NewInvalidOnArgument(loc(p.peek()), 2, "a ? placeholder", describe(p.peek()))
	}

	tok = p.peek()
	switch tok.Type {
	case lexer.TOKEN_ARG:
		p.advance()
		args = append(args, p.newSlot(tok, false))
	case lexer.TOKEN_CONTEXT:
		p.advance()
		args = append(args, &ast.MemberNode{Name: tok.Lexeme, Kind: ast.MemberContext, Loc: loc(tok)})
	default:
		return nil, ferrors.NewInvalidOnArgument(loc(tok), 2, "a ? placeholder", describe(tok))
	}

	if !p.match(lexer.TOKEN_COMMA) {
		return args, nil
	}

	tok = p.peek()
	if tok.Type != lexer.TOKEN_STRING {
		return nil, ferrors.NewInvalidOnArgument(loc(tok), 3, "a quoted map name", describe(tok))
	}
	p.advance()
	args = append(args, &ast.ConstNode{Kind: ast.ConstString, Literal: tok.Literal, Slot: -1, Loc: loc(tok)})

	if p.check(lexer.TOKEN_COMMA) {
		return nil, ferrors.NewWrongArity(loc(p.peek()), "On", "2 or 3", len(args)+1)
	}
	return args, nil
}

// value parses the right-hand side of a comparison
func (p *Parser) value() (ast.Node, error) {
	tok := p.peek()

	switch tok.Type {
	case lexer.TOKEN_ARG:
		p.advance()
		return p.newSlot(tok, false), nil

	case lexer.TOKEN_LBRACKET:
		p.advance()
		if !p.match(lexer.TOKEN_ARG) {
			return nil, p.expected("'?' inside [ ]", p.peek())
		}
		if !p.match(lexer.TOKEN_RBRACKET) {
			if p.isAtEnd() {
				return nil, ferrors.NewUnterminatedGroup(loc(tok), "[", "]")
			}
			return nil, p.expected("']'", p.peek())
		}
		return p.newSlot(tok, true), nil

	case lexer.TOKEN_CONTEXT:
		p.advance()
		return &ast.MemberNode{Name: tok.Lexeme, Kind: ast.MemberContext, Loc: loc(tok)}, nil

	case lexer.TOKEN_NULL:
		p.advance()
		return &ast.ConstNode{Kind: ast.ConstNull, Slot: -1, Loc: loc(tok)}, nil

	case lexer.TOKEN_NUMBER, lexer.TOKEN_DECIMAL, lexer.TOKEN_STRING, lexer.TOKEN_TRUE, lexer.TOKEN_FALSE:
		p.advance()
		if !p.allowConstants {
			return nil, ferrors.NewConstantsNotAllowed(loc(tok), tok.Lexeme)
		}
		return literal(tok), nil

	case lexer.TOKEN_EOF:
		return nil, ferrors.NewUnexpectedEnd(loc(tok), "a value")

	case lexer.TOKEN_IDENTIFIER, lexer.TOKEN_LPAREN, lexer.TOKEN_BANG:
		return nil, ferrors.NewChainedComparison(loc(tok), p.previous().Lexeme)

	default:
		return nil, p.expected("a value", tok)
	}
}

func literal(tok lexer.Token) *ast.ConstNode {
	c := &ast.ConstNode{Slot: -1, Loc: loc(tok)}
	switch tok.Type {
	case lexer.TOKEN_NUMBER:
		c.Kind, c.Literal = ast.ConstNumber, tok.Lexeme
	case lexer.TOKEN_DECIMAL:
		c.Kind, c.Literal = ast.ConstDecimal, tok.Lexeme
	case lexer.TOKEN_STRING:
		c.Kind, c.Literal = ast.ConstString, tok.Literal
	default:
		c.Kind, c.Literal = ast.ConstBool, tok.Literal
	}
	return c
}

// newSlot declares the next argument slot
func (p *Parser) newSlot(tok lexer.Token, isArray bool) *ast.ConstNode {
	slot := &ast.ArgSlot{Index: len(p.slots), IsArray: isArray, Loc: loc(tok)}
	p.slots = append(p.slots, slot)

	kind := ast.ConstArg
	if isArray {
		kind = ast.ConstArrayArg
	}
	return &ast.ConstNode{Kind: kind, Slot: slot.Index, Loc: loc(tok)}
}

// peekComparison reports whether the next token is a comparison or string operator
func (p *Parser) peekComparison() (ast.Operator, bool) {
	tok := p.peek()
	if tok.Type.IsComparison() {
		return ast.LookupSymbolOperator(tok.Lexeme)
	}
	if tok.Type == lexer.TOKEN_IDENTIFIER {
		if op, ok := ast.LookupWordOperator(tok.Lexeme); ok && !op.IsLogic() {
			return op, true
		}
	}
	return 0, false
}

// matchLogic consumes a logic operator spelled as a symbol or a word
func (p *Parser) matchLogic(op ast.Operator) bool {
	tok := p.peek()
	switch {
	case op == ast.OpAnd && tok.Type == lexer.TOKEN_AND,
		op == ast.OpOr && tok.Type == lexer.TOKEN_OR:
		p.advance()
		return true
	case tok.Type == lexer.TOKEN_IDENTIFIER:
		if word, ok := ast.LookupWordOperator(tok.Lexeme); ok && word == op {
			p.advance()
			return true
		}
	}
	return false
}

func (p *Parser) checkWord(word string) bool {
	tok := p.peek()
	return tok.Type == lexer.TOKEN_IDENTIFIER && strings.EqualFold(tok.Lexeme, word) &&
		p.current+1 < len(p.tokens) && p.tokens[p.current+1].Type == lexer.TOKEN_LPAREN
}

func (p *Parser) expected(what string, tok lexer.Token) *ferrors.CompilerError {
	if tok.Type == lexer.TOKEN_EOF {
		return ferrors.NewUnexpectedEnd(loc(tok), what)
	}
	return ferrors.NewExpectedToken(loc(tok), what, tok.Lexeme)
}

func (p *Parser) wrap(err error) error {
	if ce, ok := err.(*ferrors.CompilerError); ok {
		return ce.WithQuery(p.text)
	}
	return err
}

// Token navigation

func (p *Parser) peek() lexer.Token {
	if len(p.tokens) == 0 {
		return lexer.Token{Type: lexer.TOKEN_EOF}
	}
	if p.current >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.current]
}

func (p *Parser) previous() lexer.Token {
	if len(p.tokens) == 0 || p.current == 0 {
		return lexer.Token{Type: lexer.TOKEN_EOF}
	}
	return p.tokens[p.current-1]
}

func (p *Parser) advance() lexer.Token {
	if !p.isAtEnd() {
		p.current++
	}
	return p.previous()
}

func (p *Parser) check(tokenType lexer.TokenType) bool {
	if p.isAtEnd() {
		return false
	}
	return p.peek().Type == tokenType
}

func (p *Parser) match(types ...lexer.TokenType) bool {
	for _, t := range types {
		if p.check(t) {
			p.advance()
			return true
		}
	}
	return false
}

func (p *Parser) isAtEnd() bool {
	return p.current >= len(p.tokens) || p.tokens[p.current].Type == lexer.TOKEN_EOF
}

func loc(tok lexer.Token) ast.SourceLocation {
	return ast.SourceLocation{Offset: tok.Offset}
}

func describe(tok lexer.Token) string {
	if tok.Type == lexer.TOKEN_EOF {
		return "end of query"
	}
	return tok.Lexeme
}
