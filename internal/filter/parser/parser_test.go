package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/contentq/internal/filter/ast"
	ferrors "github.com/conduit-lang/contentq/internal/filter/errors"
)

func mustParse(t *testing.T, text string, allowConstants bool) *ast.Query {
	t.Helper()
	q, err := Parse(text, allowConstants)
	require.NoError(t, err)
	return q
}

func requireCode(t *testing.T, err error, code ferrors.ErrorCode) *ferrors.CompilerError {
	t.Helper()
	require.Error(t, err)
	ce, ok := ferrors.As(err)
	require.True(t, ok, "expected a CompilerError, got %T", err)
	assert.Equal(t, code, ce.Code, ce.Message)
	return ce
}

func TestParse_RoundTrip(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Age>=18", "Age>=18"},
		{"Age >= 18 and Name startsWith 'A'", `(Age>=18 and Name startsWith "A")`},
		{"A=1 or B=2 and C=3", "(A=1 or (B=2 and C=3))"},
		{"A=1 && B=2 || C=3", "((A=1 and B=2) or C=3)"},
		{"(A=1 or B=2) and C=3", "((A=1 or B=2) and C=3)"},
		{"!(A=1)", "!(A=1)"},
		{"NOT (A=1 or B=2)", "!((A=1 or B=2))"},
		{"Tags=[?]", "Tags=[?]"},
		{"Title CONTAINS ?", "Title contains ?"},
		{"Price<4.50", "Price<4.50"},
		{"Foo!=null", "Foo!=null"},
		{"Published == TRUE", "Published=true"},
		{"OwnerId=@UserId", "OwnerId=@UserId"},
		{"@RoleId=?", "@RoleId=?"},
		{"IsSelf() or HasUserPermit()", "(IsSelf() or HasUserPermit())"},
		{`On(Video, ?)`, `On("Video", ?)`},
		{`On("Video", ?, "Clips")`, `On("Video", ?, "Clips")`},
		{"Published", "Published"},
		{`Name="say \"hi\""`, `Name="say \"hi\""`},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			q := mustParse(t, tt.text, true)
			assert.Equal(t, tt.want, q.Root.String())
			assert.Equal(t, tt.text, q.Text)
		})
	}
}

func TestParse_SlotsInSourceOrder(t *testing.T) {
	q := mustParse(t, "(A=? or (B=[?] and !(C=?))) and On(Tag, ?)", false)
	require.Len(t, q.Slots, 4)

	for i, slot := range q.Slots {
		assert.Equal(t, i, slot.Index)
	}
	assert.False(t, q.Slots[0].IsArray)
	assert.True(t, q.Slots[1].IsArray)
	assert.False(t, q.Slots[2].IsArray)

	var seen []int
	ast.Walk(q.Root, func(n ast.Node) bool {
		if c, ok := n.(*ast.ConstNode); ok && c.IsArg() {
			seen = append(seen, c.Slot)
		}
		return true
	})
	assert.Equal(t, []int{0, 1, 2, 3}, seen)
}

func TestParse_ConstantsGate(t *testing.T) {
	_, err := Parse("Age=18", false)
	ce := requireCode(t, err, ferrors.ErrConstantsNotAllowed)
	assert.Equal(t, 4, ce.Location.Offset)
	assert.Contains(t, ce.Message, "Constants not permitted")

	mustParse(t, "Age=?", false)
	mustParse(t, "Foo=null", false)
	mustParse(t, `On(Video, ?, "Clips")`, false)

	_, err = Parse(`Name startsWith "A"`, false)
	requireCode(t, err, ferrors.ErrConstantsNotAllowed)
}

func TestParse_Nodes(t *testing.T) {
	q := mustParse(t, "Age>=18 and Score<4.5", true)

	root, ok := q.Root.(*ast.OpNode)
	require.True(t, ok)
	assert.Equal(t, ast.OpAnd, root.Op)
	assert.Equal(t, 8, root.Loc.Offset)

	left := root.Left.(*ast.OpNode)
	assert.Equal(t, ast.OpGreaterEqual, left.Op)
	member := left.Left.(*ast.MemberNode)
	assert.Equal(t, ast.MemberField, member.Kind)
	assert.Equal(t, "Age", member.Name)
	num := left.Right.(*ast.ConstNode)
	assert.Equal(t, ast.ConstNumber, num.Kind)
	assert.Equal(t, "18", num.Literal)
	assert.Equal(t, -1, num.Slot)

	right := root.Right.(*ast.OpNode)
	dec := right.Right.(*ast.ConstNode)
	assert.Equal(t, ast.ConstDecimal, dec.Kind)
}

func TestParse_OnArguments(t *testing.T) {
	q := mustParse(t, `on("Video", @UserId, 'Clips')`, false)
	call := q.Root.(*ast.MemberNode)
	require.Equal(t, ast.MemberCall, call.Kind)
	require.Len(t, call.Args, 3)
	assert.Equal(t, "Video", call.Args[0].(*ast.ConstNode).Literal)
	assert.Equal(t, ast.MemberContext, call.Args[1].(*ast.MemberNode).Kind)
	assert.Equal(t, "Clips", call.Args[2].(*ast.ConstNode).Literal)
	assert.Empty(t, q.Slots)

	tests := []struct {
		text string
		code ferrors.ErrorCode
	}{
		{"On(?, ?)", ferrors.ErrInvalidOnArgument},
		{"On(Video)", ferrors.ErrInvalidOnArgument},
		{"On(Video, 42)", ferrors.ErrInvalidOnArgument},
		{"On(Video, ?, Clips)", ferrors.ErrInvalidOnArgument},
		{`On(Video, ?, "Clips", "x")`, ferrors.ErrWrongArity},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			_, err := Parse(tt.text, true)
			requireCode(t, err, tt.code)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		text   string
		code   ferrors.ErrorCode
		offset int
	}{
		{"", ferrors.ErrEmptyQuery, 0},
		{"   ", ferrors.ErrEmptyQuery, 0},
		{"Age=1=2", ferrors.ErrChainedComparison, 5},
		{"A=B=?", ferrors.ErrChainedComparison, 2},
		{"A=? contains ?", ferrors.ErrChainedComparison, 4},
		{"(A=1", ferrors.ErrUnterminatedGroup, 0},
		{"A=1)", ferrors.ErrExpectedToken, 3},
		{"A=[?", ferrors.ErrUnterminatedGroup, 2},
		{"A=[1]", ferrors.ErrExpectedToken, 3},
		{"A=", ferrors.ErrUnexpectedEnd, 2},
		{"A=1 and", ferrors.ErrUnexpectedEnd, 7},
		{"!A=1", ferrors.ErrExpectedToken, 1},
		{"A=1 B=2", ferrors.ErrTrailingInput, 4},
		{"A=1 $", ferrors.ErrUnexpectedChar, 4},
		{`Name="open`, ferrors.ErrUnterminatedString, 5},
		{"A=1.2.3", ferrors.ErrInvalidNumber, 2},
		{"= 3", ferrors.ErrExpectedToken, 0},
		{"IsSelf(", ferrors.ErrUnterminatedGroup, 6},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			_, err := Parse(tt.text, true)
			ce := requireCode(t, err, tt.code)
			assert.Equal(t, tt.offset, ce.Location.Offset)
			assert.Equal(t, tt.text, ce.Query)
		})
	}
}

func TestParse_NotAsFieldName(t *testing.T) {
	q := mustParse(t, "Not=?", false)
	assert.Equal(t, "Not=?", q.Root.String())
}
