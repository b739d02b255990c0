package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "github.com/conduit-lang/contentq/internal/filter/errors"
)

func scanSource(source string) ([]Token, ferrors.ErrorList) {
	return New(source).ScanTokens()
}

func tokenTypes(tokens []Token) []TokenType {
	types := make([]TokenType, 0, len(tokens))
	for _, t := range tokens {
		if t.Type == TOKEN_EOF {
			continue
		}
		types = append(types, t.Type)
	}
	return types
}

func TestLexer_Operators(t *testing.T) {
	tokens, errs := scanSource("( ) [ ] , ? ! != = == < <= > >= && ||")
	require.Empty(t, errs)

	assert.Equal(t, []TokenType{
		TOKEN_LPAREN, TOKEN_RPAREN, TOKEN_LBRACKET, TOKEN_RBRACKET, TOKEN_COMMA, TOKEN_ARG,
		TOKEN_BANG, TOKEN_NOT_EQUAL, TOKEN_EQUAL, TOKEN_EQUAL, TOKEN_LESS, TOKEN_LESS_EQUAL,
		TOKEN_GREATER, TOKEN_GREATER_EQUAL, TOKEN_AND, TOKEN_OR,
	}, tokenTypes(tokens))
}

func TestLexer_Query(t *testing.T) {
	tokens, errs := scanSource(`Age>=18 and Tags=[?]`)
	require.Empty(t, errs)

	assert.Equal(t, []TokenType{
		TOKEN_IDENTIFIER, TOKEN_GREATER_EQUAL, TOKEN_NUMBER, TOKEN_IDENTIFIER,
		TOKEN_IDENTIFIER, TOKEN_EQUAL, TOKEN_LBRACKET, TOKEN_ARG, TOKEN_RBRACKET,
	}, tokenTypes(tokens))

	assert.Equal(t, 0, tokens[0].Offset)
	assert.Equal(t, 3, tokens[1].Offset)
	assert.Equal(t, 5, tokens[2].Offset)
	assert.Equal(t, "and", tokens[3].Lexeme)
	assert.Equal(t, len("Age>=18 and Tags=[?]"), tokens[len(tokens)-1].Offset)
}

func TestLexer_Keywords(t *testing.T) {
	tokens, errs := scanSource("TRUE false Null nullable")
	require.Empty(t, errs)

	assert.Equal(t, []TokenType{TOKEN_TRUE, TOKEN_FALSE, TOKEN_NULL, TOKEN_IDENTIFIER}, tokenTypes(tokens))
	assert.Equal(t, true, tokens[0].Literal)
	assert.Equal(t, false, tokens[1].Literal)
}

func TestLexer_Numbers(t *testing.T) {
	tests := []struct {
		source  string
		want    TokenType
		wantErr bool
	}{
		{"18", TOKEN_NUMBER, false},
		{"4.5", TOKEN_DECIMAL, false},
		{"-3", TOKEN_NUMBER, false},
		{"-0.25", TOKEN_DECIMAL, false},
		{"1.2.3", 0, true},
		{"7.", 0, true},
		{"12ab", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			tokens, errs := scanSource(tt.source)
			if tt.wantErr {
				require.Len(t, errs, 1)
				assert.Equal(t, ferrors.ErrInvalidNumber, errs[0].Code)
				assert.Equal(t, 0, errs[0].Location.Offset)
				return
			}
			require.Empty(t, errs)
			assert.Equal(t, tt.want, tokens[0].Type)
			assert.Equal(t, tt.source, tokens[0].Lexeme)
		})
	}
}

func TestLexer_Strings(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{`"hello"`, "hello"},
		{`'single'`, "single"},
		{`"say \"hi\""`, `say "hi"`},
		{`'it\'s'`, "it's"},
		{`"back\slash"`, `back\slash`},
		{`"mixed 'quotes'"`, "mixed 'quotes'"},
		{`""`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			tokens, errs := scanSource(tt.source)
			require.Empty(t, errs)
			require.Equal(t, TOKEN_STRING, tokens[0].Type)
			assert.Equal(t, tt.want, tokens[0].Literal)
		})
	}
}

func TestLexer_UnterminatedString(t *testing.T) {
	_, errs := scanSource(`Name="abc`)
	require.Len(t, errs, 1)
	assert.Equal(t, ferrors.ErrUnterminatedString, errs[0].Code)
	assert.Equal(t, 5, errs[0].Location.Offset)
	assert.Equal(t, `Name="abc`, errs[0].Near)
}

func TestLexer_UnexpectedCharacter(t *testing.T) {
	_, errs := scanSource("Age # 3 & 4")
	require.Len(t, errs, 2)
	assert.Equal(t, ferrors.ErrUnexpectedChar, errs[0].Code)
	assert.Equal(t, 4, errs[0].Location.Offset)
	assert.Equal(t, 8, errs[1].Location.Offset)
}

func TestLexer_Context(t *testing.T) {
	tokens, errs := scanSource("OwnerId=@UserId")
	require.Empty(t, errs)
	require.Equal(t, TOKEN_CONTEXT, tokens[2].Type)
	assert.Equal(t, "UserId", tokens[2].Lexeme)
	assert.Equal(t, 8, tokens[2].Offset)

	_, errs = scanSource("@ =1")
	require.Len(t, errs, 1)
	assert.Equal(t, ferrors.ErrExpectedToken, errs[0].Code)
}

func TestTokenTypeHelpers(t *testing.T) {
	assert.True(t, TOKEN_LESS_EQUAL.IsComparison())
	assert.False(t, TOKEN_AND.IsComparison())
	assert.True(t, TOKEN_NULL.IsLiteral())
	assert.False(t, TOKEN_ARG.IsLiteral())
	assert.Equal(t, "GREATER_EQUAL", TOKEN_GREATER_EQUAL.String())
	assert.Equal(t, "UNKNOWN(99)", TokenType(99).String())
}
