package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/contentq/internal/filter/ast"
)

func TestErrorCodeUniqueness(t *testing.T) {
	groups := map[ErrorCategory][]ErrorCode{
		CategorySyntax: {
			ErrUnexpectedChar, ErrExpectedToken, ErrUnterminatedString, ErrUnterminatedGroup,
			ErrInvalidNumber, ErrChainedComparison, ErrUnexpectedEnd, ErrEmptyQuery, ErrTrailingInput,
		},
		CategorySemantic: {
			ErrUnknownField, ErrUnknownFunction, ErrUnknownContextField, ErrConstantsNotAllowed,
			ErrWrongArity, ErrInvalidOnArgument, ErrUnknownType, ErrNoPrimaryAssociation,
			ErrOperatorNotSupported, ErrInvalidLiteral, ErrUnknownSortField, ErrInvalidOperand,
		},
		CategoryBinding: {
			ErrArgTypeMismatch, ErrTooManyArgs, ErrNullArg, ErrArgOutOfOrder,
			ErrArgParse, ErrInvalidState, ErrInvalidPage,
		},
		CategoryJoin:     {ErrUnknownAssociation, ErrMissingPrimaryAssociation, ErrSetupFailed},
		CategoryInternal: {ErrCollectorIndex, ErrUnexpectedNode},
	}
	prefixes := map[ErrorCategory]string{
		CategorySyntax:   "SYN",
		CategorySemantic: "SEM",
		CategoryBinding:  "BND",
		CategoryJoin:     "JON",
		CategoryInternal: "INT",
	}

	seen := make(map[ErrorCode]bool)
	for category, codes := range groups {
		for _, code := range codes {
			assert.False(t, seen[code], "duplicate code %s", code)
			seen[code] = true
			assert.True(t, strings.HasPrefix(string(code), prefixes[category]), "code %s in %s", code, category)
		}
	}
}

func TestErrorsIsByCode(t *testing.T) {
	err := NewUnknownField(ast.SourceLocation{Offset: 3}, "Article", "Nope")
	wrapped := fmt.Errorf("compile: %w", err)

	assert.True(t, stderrors.Is(wrapped, ErrUnknownField))
	assert.False(t, stderrors.Is(wrapped, ErrUnknownFunction))
	assert.True(t, stderrors.Is(wrapped, &CompilerError{Code: ErrUnknownField}))
	assert.Equal(t, ErrUnknownField, CodeOf(wrapped))
	assert.Equal(t, ErrorCode(""), CodeOf(stderrors.New("plain")))
}

func TestIsInternal(t *testing.T) {
	internal := NewCollectorIndex(2, 1)
	assert.True(t, IsInternal(fmt.Errorf("match: %w", internal)))
	assert.Equal(t, SeverityFatal, internal.Severity)
	assert.False(t, IsInternal(NewTooManyArgs(1)))
	assert.False(t, IsInternal(nil))
}

func TestWithQueryExcerpt(t *testing.T) {
	query := "Age>=18 and Name startsWith ~x"
	err := NewUnexpectedChar(ast.SourceLocation{Offset: 28}, '~').WithQuery(query)

	assert.Equal(t, "tartsWith ~x", err.Near)
	assert.Contains(t, err.Error(), "near")
	assert.Contains(t, err.Error(), "[SYN001]")

	formatted := err.Format()
	lines := strings.Split(formatted, "\n")
	require.GreaterOrEqual(t, len(lines), 3)
	assert.Equal(t, "  "+query, lines[1])
	assert.Equal(t, 2+28, strings.Index(lines[2], "^"))
}

func TestExcerptBounds(t *testing.T) {
	assert.Equal(t, "abc", Excerpt("abc", 1))
	assert.Equal(t, "abc", Excerpt("abc", 10))
	assert.Equal(t, "", Excerpt("", 0))
	assert.Equal(t, "0123456789", Excerpt("0123456789abcdefghij", -5))
}

func TestBindingErrorsCiteSlotAndTypes(t *testing.T) {
	err := NewArgTypeMismatch(0, "int!", "string")
	assert.Contains(t, err.Message, "slot 0")
	assert.Contains(t, err.Message, "int!")
	assert.Contains(t, err.Message, "string")
	assert.Equal(t, "int!", err.Expected)
	assert.Equal(t, "string", err.Actual)
	assert.Equal(t, CategoryBinding, err.Category)
}

func TestSetupFailedUnwraps(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := NewSetupFailed("Article", "Tag", "Tags", cause)
	assert.True(t, stderrors.Is(err, cause))
	assert.True(t, stderrors.Is(err, ErrSetupFailed))
}

func TestErrorListErr(t *testing.T) {
	var empty ErrorList
	assert.NoError(t, empty.Err())
	assert.Equal(t, "no errors", empty.Error())

	one := ErrorList{NewEmptyQuery()}
	assert.Equal(t, one[0], one.Err())

	two := ErrorList{NewEmptyQuery(), NewTooManyArgs(0)}
	err := two.Err()
	assert.Contains(t, err.Error(), "2 error(s)")
	assert.False(t, stderrors.Is(err, ErrEmptyQuery), "lists do not match by code")

	first, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, ErrEmptyQuery, first.Code)
}

func TestToJSON(t *testing.T) {
	err := NewConstantsNotAllowed(ast.SourceLocation{Offset: 4}, "18").WithQuery("Age=18")
	s, jerr := err.ToJSON()
	require.NoError(t, jerr)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(s), &decoded))
	assert.Equal(t, "SEM204", decoded["code"])
	assert.Equal(t, "semantic", decoded["category"])
	assert.Equal(t, "Age=18", decoded["query"])
}
