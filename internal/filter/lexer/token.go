package lexer

import "fmt"

// TokenType represents the type of a token in a filter query
type TokenType int

const (
	// TOKEN_EOF marks the end of the token stream.
	TOKEN_EOF TokenType = iota

	// Literals
	TOKEN_IDENTIFIER // Age, startsWith, and
	TOKEN_CONTEXT    // @UserId (lexeme without the @)
	TOKEN_STRING     // "text" or 'text'
	TOKEN_NUMBER     // 18
	TOKEN_DECIMAL    // 4.5
	TOKEN_TRUE       // true
	TOKEN_FALSE      // false
	TOKEN_NULL       // null

	// Placeholders
	TOKEN_ARG // ?

	// Delimiters
	TOKEN_LPAREN   // (
	TOKEN_RPAREN   // )
	TOKEN_LBRACKET // [
	TOKEN_RBRACKET // ]
	TOKEN_COMMA    // ,

	// Operators
	TOKEN_BANG          // !
	TOKEN_EQUAL         // = or ==
	TOKEN_NOT_EQUAL     // !=
	TOKEN_LESS          // <
	TOKEN_LESS_EQUAL    // <=
	TOKEN_GREATER       // >
	TOKEN_GREATER_EQUAL // >=
	TOKEN_AND           // &&
	TOKEN_OR            // ||
)

var tokenNames = map[TokenType]string{
	TOKEN_EOF:           "EOF",
	TOKEN_IDENTIFIER:    "IDENTIFIER",
	TOKEN_CONTEXT:       "CONTEXT",
	TOKEN_STRING:        "STRING",
	TOKEN_NUMBER:        "NUMBER",
	TOKEN_DECIMAL:       "DECIMAL",
	TOKEN_TRUE:          "TRUE",
	TOKEN_FALSE:         "FALSE",
	TOKEN_NULL:          "NULL",
	TOKEN_ARG:           "ARG",
	TOKEN_LPAREN:        "LPAREN",
	TOKEN_RPAREN:        "RPAREN",
	TOKEN_LBRACKET:      "LBRACKET",
	TOKEN_RBRACKET:      "RBRACKET",
	TOKEN_COMMA:         "COMMA",
	TOKEN_BANG:          "BANG",
	TOKEN_EQUAL:         "EQUAL",
	TOKEN_NOT_EQUAL:     "NOT_EQUAL",
	TOKEN_LESS:          "LESS",
	TOKEN_LESS_EQUAL:    "LESS_EQUAL",
	TOKEN_GREATER:       "GREATER",
	TOKEN_GREATER_EQUAL: "GREATER_EQUAL",
	TOKEN_AND:           "AND",
	TOKEN_OR:            "OR",
}

// String returns the string representation of a token type
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", t)
}

// IsComparison reports whether the token is a symbolic comparison operator
func (t TokenType) IsComparison() bool {
	return t >= TOKEN_EQUAL && t <= TOKEN_GREATER_EQUAL
}

// IsLiteral reports whether the token is a constant value
func (t TokenType) IsLiteral() bool {
	return t >= TOKEN_STRING && t <= TOKEN_NULL
}

// Token is a lexical token
type Token struct {
	Type    TokenType   // Type of the token
	Lexeme  string      // Raw text from the query
	Literal interface{} // Parsed value for strings and booleans
	Offset  int         // Zero-based rune offset of the first character
}

// String returns a debug representation of the token
func (t Token) String() string {
	if t.Literal != nil {
		return fmt.Sprintf("%s(%q, %v) at %d", t.Type, t.Lexeme, t.Literal, t.Offset)
	}
	return fmt.Sprintf("%s(%q) at %d", t.Type, t.Lexeme, t.Offset)
}

// keywords are matched case-insensitively
var keywords = map[string]TokenType{
	"true":  TOKEN_TRUE,
	"false": TOKEN_FALSE,
	"null":  TOKEN_NULL,
}
